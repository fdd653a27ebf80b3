package auth

import (
	"context"
	"errors"
)

const (
	RoleTherapist  = "therapist"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// ValidRole reports whether r is one of the three clinic roles.
func ValidRole(r string) bool {
	switch r {
	case RoleTherapist, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrInactiveUser = errors.New("user account is inactive")
)

// Identity is the verified caller. Subject is the identity-provider subject;
// UserID is the local user id when the subject maps to a stored user.
type Identity struct {
	Subject string `json:"subject"`
	UserID  string `json:"userId,omitempty"`
	Role    string `json:"role"`
	Email   string `json:"email,omitempty"`
}

// ID returns the local user id, falling back to the provider subject.
func (i *Identity) ID() string {
	if i.UserID != "" {
		return i.UserID
	}
	return i.Subject
}

// TokenVerifier turns a bearer token into an Identity. Implementations
// return ErrInvalidToken (possibly wrapped) for any token they reject.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by the auth gate, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// RoleFromContext returns the caller's role, or "" when unauthenticated.
func RoleFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Role
	}
	return ""
}
