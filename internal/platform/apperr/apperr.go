// Package apperr defines the error taxonomy shared by services, repositories
// and handlers, and the echo error handler that renders it as
// {"error": ..., "message": ..., "details": [...]}.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidID
	KindDuplicate
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindNoCandidate
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation Error"
	case KindInvalidID:
		return "Invalid ID"
	case KindDuplicate:
		return "Duplicate Entry"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "Not Found"
	case KindConflict:
		return "Conflict"
	case KindNoCandidate:
		return "No Candidate"
	default:
		return "Internal Server Error"
	}
}

// Error is a classified application error. Details carries field-level
// messages for validation failures.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Details) > 0 {
		msg += ": " + strings.Join(e.Details, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation error from field-level messages.
func Validation(details ...string) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid data provided", Details: details}
}

// InvalidID reports a malformed identifier for the named field.
func InvalidID(field string) *Error {
	return &Error{Kind: KindInvalidID, Message: fmt.Sprintf("The provided %s is not valid", field)}
}

// NotFound reports a missing entity, e.g. NotFound("Patient").
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Duplicate reports a unique-constraint violation on field.
func Duplicate(field string) *Error {
	return &Error{Kind: KindDuplicate, Message: field + " already exists"}
}

// Conflict reports an operation that is not allowed in the current state.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NoCandidate reports that an allocation found nobody to pick.
func NoCandidate(msg string) *Error {
	return &Error{Kind: KindNoCandidate, Message: msg}
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Something went wrong", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Collector accumulates validation messages and yields a single error.
type Collector struct {
	details []string
}

// Addf records a validation message.
func (c *Collector) Addf(format string, args ...interface{}) {
	c.details = append(c.details, fmt.Sprintf(format, args...))
}

// Check records msg when ok is false.
func (c *Collector) Check(ok bool, msg string) {
	if !ok {
		c.details = append(c.details, msg)
	}
}

// Err returns a validation error when any message was recorded, else nil.
func (c *Collector) Err() error {
	if len(c.details) == 0 {
		return nil
	}
	return Validation(c.details...)
}
