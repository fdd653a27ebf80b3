package progressreport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
)

func newTestServer() (*echo.Echo, *Service) {
	svc, _ := newTestService()
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	api := e.Group("/api", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role := c.Request().Header.Get("X-Test-Role"); role != "" {
				id := &auth.Identity{Subject: "test", UserID: uuid.NewString(), Role: role}
				c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), id)))
			}
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, svc
}

func do(e *echo.Echo, method, path, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Test-Role", role)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_CreateAndReview(t *testing.T) {
	e, _ := newTestServer()
	rec := do(e, http.MethodPost, "/api/progress-reports", auth.RoleTherapist,
		`{"patient":"`+uuid.NewString()+`","sessionCount":4,"narrative":"ok"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"Pending Review"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	id := between(rec.Body.String(), `"id":"`, `"`)

	if rec := do(e, http.MethodPost, "/api/progress-reports/"+id+"/review", auth.RoleTherapist, `{"feedback":"x"}`); rec.Code != http.StatusForbidden {
		t.Errorf("therapist review: expected 403, got %d", rec.Code)
	}
	rec = do(e, http.MethodPost, "/api/progress-reports/"+id+"/review", auth.RoleSupervisor, `{"feedback":"Nice work"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"Reviewed"`) {
		t.Errorf("review: unexpected %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/api/progress-reports/"+id+"/review", auth.RoleSupervisor, `{"feedback":"again"}`); rec.Code != http.StatusConflict {
		t.Errorf("second review: expected 409, got %d", rec.Code)
	}
}

func TestRoutes_SupervisorCannotCreate(t *testing.T) {
	e, _ := newTestServer()
	rec := do(e, http.MethodPost, "/api/progress-reports", auth.RoleSupervisor, `{}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Access denied. Required roles: therapist") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		return s[:j]
	}
	return s
}
