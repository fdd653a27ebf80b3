// Package validate holds the field rules shared by several entities.
package validate

import (
	"regexp"
	"strings"
	"time"
)

var (
	emailRe   = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)
	phoneRe   = regexp.MustCompile(`^\d{10,15}$`)
	phoneJunk = regexp.MustCompile(`[\s\-()]`)
	licenseRe = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)
)

func Email(s string) bool { return emailRe.MatchString(s) }

// Phone accepts 10 to 15 digits once spaces, dashes and parentheses are removed.
func Phone(s string) bool { return phoneRe.MatchString(phoneJunk.ReplaceAllString(s, "")) }

func License(s string) bool { return licenseRe.MatchString(s) }

// NormalizeEmail lowercases and trims.
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// LowerList trims and lowercases every entry and drops empties.
func LowerList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TrimList trims every entry, keeping case, and drops empties.
func TrimList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NameLength reports whether a trimmed name is 2 to 100 characters.
func NameLength(s string) bool {
	n := len([]rune(s))
	return n >= 2 && n <= 100
}

// AgeOn returns whole years between dob and now, one less when the
// birthday has not come yet this year.
func AgeOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// OneOf reports whether v is among allowed.
func OneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
