package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/platform/auth"
)

// AccessEntry records who touched which clinical record.
type AccessEntry struct {
	RequestID  string
	UserID     string
	Role       string
	Entity     string
	EntityID   string
	PatientID  string
	Action     string
	Method     string
	Path       string
	RemoteIP   string
	StatusCode int
	Timestamp  time.Time
}

// Audit logs one access entry for every /api/ request after the handler
// has run, so the entry carries the final status.
func Audit(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			err := next(c)

			entry := buildAccessEntry(c)
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					entry.StatusCode = he.Code
				}
			}

			logger.Info().
				Str("type", "access_audit").
				Str("request_id", entry.RequestID).
				Str("user_id", entry.UserID).
				Str("role", entry.Role).
				Str("entity", entry.Entity).
				Str("entity_id", entry.EntityID).
				Str("patient_id", entry.PatientID).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.RemoteIP).
				Int("status", entry.StatusCode).
				Msg("record_access")

			return err
		}
	}
}

func buildAccessEntry(c echo.Context) AccessEntry {
	req := c.Request()
	entity, entityID := splitAPIPath(req.URL.Path)
	entry := AccessEntry{
		Entity:     entity,
		EntityID:   entityID,
		Action:     actionFor(req.Method, entityID),
		Method:     req.Method,
		Path:       req.URL.Path,
		RemoteIP:   c.RealIP(),
		StatusCode: c.Response().Status,
		Timestamp:  time.Now().UTC(),
	}
	entry.RequestID, _ = c.Get("request_id").(string)
	if id := auth.IdentityFromContext(req.Context()); id != nil {
		entry.UserID = id.ID()
		entry.Role = id.Role
	}

	switch {
	case entity == "patients" && entityID != "":
		entry.PatientID = entityID
	case c.QueryParam("patient") != "":
		entry.PatientID = c.QueryParam("patient")
	}
	return entry
}

// splitAPIPath turns /api/patients/<id>/... into ("patients", "<id>").
// Non-UUID second segments such as "me" or "auto-assign" are not ids.
func splitAPIPath(path string) (string, string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	if len(parts) > 1 {
		if _, err := uuid.Parse(parts[1]); err == nil {
			return parts[0], parts[1]
		}
	}
	return parts[0], ""
}

func actionFor(method, entityID string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		if entityID == "" {
			return "search"
		}
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
