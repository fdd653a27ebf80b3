package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/apperr"
)

// HasRole reports whether role satisfies one of required. Admin satisfies
// every check.
func HasRole(role string, required ...string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRole rejects callers whose role is not among roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFromContext(c.Request().Context())
			if id == nil {
				return apperr.Unauthorized(msgNoToken)
			}
			if !HasRole(id.Role, roles...) {
				return apperr.Forbidden("Access denied. Required roles: " + strings.Join(roles, ", "))
			}
			return next(c)
		}
	}
}
