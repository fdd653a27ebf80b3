package user

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
	"github.com/casework/casework/internal/platform/validate"
)

const (
	maxSpecialties = 15
	maxWeeklySlots = 80
)

type DayHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Availability struct {
	WeeklySlots int                 `json:"weeklySlots"`
	Schedule    map[string]DayHours `json:"schedule,omitempty"`
	TimeZone    string              `json:"timeZone"`
}

type NotificationPrefs struct {
	Email bool `json:"email"`
	InApp bool `json:"inApp"`
}

type Preferences struct {
	Notifications NotificationPrefs `json:"notifications"`
	Theme         string            `json:"theme"`
}

type User struct {
	ID            uuid.UUID    `json:"id"`
	ExternalID    *string      `json:"-"`
	Email         string       `json:"email"`
	Name          string       `json:"name"`
	Role          string       `json:"role"`
	Specialties   []string     `json:"specialties"`
	Availability  Availability `json:"availability"`
	Active        bool         `json:"active"`
	LicenseNumber *string      `json:"licenseNumber,omitempty"`
	Phone         *string      `json:"phone,omitempty"`
	Department    *string      `json:"department,omitempty"`
	HireDate      *time.Time   `json:"hireDate,omitempty"`
	LastLoginAt   *time.Time   `json:"lastLoginAt,omitempty"`
	Preferences   Preferences  `json:"preferences"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// ProfileCompleteness is the percentage of name, email, role, phone,
// specialties and license number that are filled in.
func (u *User) ProfileCompleteness() int {
	filled := 0
	for _, ok := range []bool{
		u.Name != "",
		u.Email != "",
		u.Role != "",
		u.Phone != nil && *u.Phone != "",
		len(u.Specialties) > 0,
		u.LicenseNumber != nil && *u.LicenseNumber != "",
	} {
		if ok {
			filled++
		}
	}
	return int(math.Round(float64(filled) / 6 * 100))
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	return json.Marshal(struct {
		plain
		ProfileCompleteness int `json:"profileCompleteness"`
	}{plain(u), u.ProfileCompleteness()})
}

// Normalize trims free text, lowercases email and specialties and fills
// defaults for unset nested settings.
func (u *User) Normalize() {
	u.Email = validate.NormalizeEmail(u.Email)
	u.Name = strings.TrimSpace(u.Name)
	u.Role = strings.ToLower(strings.TrimSpace(u.Role))
	u.Specialties = validate.LowerList(u.Specialties)
	if u.Availability.TimeZone == "" {
		u.Availability.TimeZone = "UTC"
	}
	if u.Preferences.Theme == "" {
		u.Preferences.Theme = "light"
	}
	trimPtr(&u.Phone)
	trimPtr(&u.Department)
	trimPtr(&u.LicenseNumber)
}

func trimPtr(p **string) {
	if *p == nil {
		return
	}
	s := strings.TrimSpace(**p)
	if s == "" {
		*p = nil
		return
	}
	*p = &s
}

// Validate returns every rule the user breaks as one validation error.
func (u *User) Validate() error {
	var c apperr.Collector
	c.Check(u.Email != "", "email is required")
	c.Check(u.Email == "" || validate.Email(u.Email), "email must be a valid email address")
	c.Check(u.Name != "", "name is required")
	c.Check(u.Name == "" || validate.NameLength(u.Name), "name must be between 2 and 100 characters")
	c.Check(u.Role != "", "role is required")
	c.Check(u.Role == "" || auth.ValidRole(u.Role), "role must be one of therapist, supervisor, admin")
	if len(u.Specialties) > maxSpecialties {
		c.Addf("specialties cannot have more than %d entries", maxSpecialties)
	}
	if u.Availability.WeeklySlots < 0 || u.Availability.WeeklySlots > maxWeeklySlots {
		c.Addf("availability.weeklySlots must be between 0 and %d", maxWeeklySlots)
	}
	if u.LicenseNumber != nil {
		c.Check(validate.License(*u.LicenseNumber), "licenseNumber must be 5-20 uppercase letters or digits")
	}
	if u.Phone != nil {
		c.Check(validate.Phone(*u.Phone), "phone must contain 10-15 digits")
	}
	c.Check(validate.OneOf(u.Preferences.Theme, "light", "dark", "auto"), "preferences.theme must be one of light, dark, auto")
	return c.Err()
}

// CreateRequest is the POST /api/users body.
type CreateRequest struct {
	ExternalID    *string       `json:"externalId"`
	Email         string        `json:"email"`
	Name          string        `json:"name"`
	Role          string        `json:"role"`
	Specialties   []string      `json:"specialties"`
	Availability  *Availability `json:"availability"`
	Active        *bool         `json:"active"`
	LicenseNumber *string       `json:"licenseNumber"`
	Phone         *string       `json:"phone"`
	Department    *string       `json:"department"`
	HireDate      *time.Time    `json:"hireDate"`
	Preferences   *Preferences  `json:"preferences"`
}

func (r CreateRequest) User() *User {
	u := &User{
		ExternalID:    r.ExternalID,
		Email:         r.Email,
		Name:          r.Name,
		Role:          r.Role,
		Specialties:   r.Specialties,
		Active:        true,
		LicenseNumber: r.LicenseNumber,
		Phone:         r.Phone,
		Department:    r.Department,
		HireDate:      r.HireDate,
		Preferences:   Preferences{Notifications: NotificationPrefs{Email: true, InApp: true}},
	}
	if r.Availability != nil {
		u.Availability = *r.Availability
	}
	if r.Active != nil {
		u.Active = *r.Active
	}
	if r.Preferences != nil {
		u.Preferences = *r.Preferences
	}
	return u
}

// UpdateRequest is the PATCH /api/users/:id body. Absent fields are left
// unchanged.
type UpdateRequest struct {
	Name          *string       `json:"name"`
	Role          *string       `json:"role"`
	Active        *bool         `json:"active"`
	Specialties   *[]string     `json:"specialties"`
	Availability  *Availability `json:"availability"`
	LicenseNumber *string       `json:"licenseNumber"`
	Phone         *string       `json:"phone"`
	Department    *string       `json:"department"`
	Preferences   *Preferences  `json:"preferences"`
}

func (r UpdateRequest) Apply(u *User) {
	if r.Name != nil {
		u.Name = *r.Name
	}
	if r.Role != nil {
		u.Role = *r.Role
	}
	if r.Active != nil {
		u.Active = *r.Active
	}
	if r.Specialties != nil {
		u.Specialties = *r.Specialties
	}
	if r.Availability != nil {
		u.Availability = *r.Availability
	}
	if r.LicenseNumber != nil {
		u.LicenseNumber = r.LicenseNumber
	}
	if r.Phone != nil {
		u.Phone = r.Phone
	}
	if r.Department != nil {
		u.Department = r.Department
	}
	if r.Preferences != nil {
		u.Preferences = *r.Preferences
	}
}
