package auth

import (
	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// Skipper reports whether the route bypasses the auth gate. CORS preflight
// requests are let through so the browser can learn the allowed headers.
func Skipper(c echo.Context) bool {
	if c.Request().Method == "OPTIONS" {
		return true
	}
	return IsPublicPath(c.Request().URL.Path)
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
