package auth

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/platform/apperr"
)

const (
	msgNoToken      = "No authentication token provided"
	msgInvalidToken = "Invalid authentication token"
)

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// Gate authenticates every request not matched by skip. The verified
// Identity is stored on the request context and on the echo context under
// "identity".
func Gate(v TokenVerifier, logger zerolog.Logger, skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperr.Unauthorized(msgNoToken)
			}

			ctx := c.Request().Context()
			id, err := v.Verify(ctx, token)
			if err != nil {
				if errors.Is(err, ErrInactiveUser) {
					return apperr.Forbidden("Account is inactive")
				}
				if !errors.Is(err, ErrInvalidToken) {
					logger.Warn().Err(err).Str("path", c.Path()).Msg("token verification failed")
				}
				return apperr.Unauthorized(msgInvalidToken)
			}

			c.Set("identity", id)
			c.SetRequest(c.Request().WithContext(WithIdentity(ctx, id)))
			return next(c)
		}
	}
}
