package middleware

import (
	"github.com/labstack/echo/v4"
)

type SecurityHeadersConfig struct {
	// HSTS is left off in development, where the frontend talks to the API
	// over plain http on localhost.
	HSTS bool
}

// SecurityHeaders sets response headers for a JSON API that serves clinical
// records to a browser frontend. Responses carry patient data, so nothing
// may be cached or framed.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	fixed := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
		"Pragma":                  "no-cache",
	}
	if cfg.HSTS {
		fixed["Strict-Transport-Security"] = "max-age=31536000; includeSubDomains"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for k, v := range fixed {
				h.Set(k, v)
			}
			return next(c)
		}
	}
}
