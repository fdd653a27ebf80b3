package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
)

func TestHandler_Create_UsesCallerAsTherapist(t *testing.T) {
	svc, repo := newTestService()
	h := NewHandler(svc)
	caller := uuid.New()
	body := `{"patient":"` + uuid.NewString() + `","date":"2024-04-02T15:00:00Z","durationMin":30,"outcomes":[{"metric":"words","value":8}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: caller.String(), Role: auth.RoleTherapist}))
	rec := httptest.NewRecorder()

	if err := h.Create(echo.New().NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	for _, s := range repo.store {
		if s.Therapist != caller {
			t.Errorf("expected caller as therapist, got %s", s.Therapist)
		}
	}
}

func TestHandler_Create_MissingDate(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	body := `{"patient":"` + uuid.NewString() + `","therapist":"` + uuid.NewString() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err := h.Create(echo.New().NewContext(req, httptest.NewRecorder()))
	if !apperr.Is(err, apperr.KindValidation) || !strings.Contains(err.Error(), "date is required") {
		t.Errorf("expected date validation error, got %v", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	if err := h.Get(c); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
