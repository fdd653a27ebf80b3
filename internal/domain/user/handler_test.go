package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_Create(t *testing.T) {
	h, e := newTestHandler()
	body := `{"email":"ana@clinic.org","name":"Ana Silva","role":"therapist","specialties":["Anxiety"],"externalId":"auth0|ana"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &got)
	if _, ok := got["externalId"]; ok {
		t.Error("externalId must not be serialized")
	}
	if got["profileCompleteness"] != float64(67) {
		t.Errorf("expected profileCompleteness 67, got %v", got["profileCompleteness"])
	}
}

func TestHandler_Create_Invalid(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"name":"A"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.Create(c); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.Get(c); !apperr.Is(err, apperr.KindInvalidID) {
		t.Errorf("expected invalid id, got %v", err)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.Get(c); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHandler_List_Filters(t *testing.T) {
	h, e := newTestHandler()
	for _, r := range []CreateRequest{
		{Email: "t1@c.org", Name: "Tara One", Role: "therapist"},
		{Email: "t2@c.org", Name: "Theo Two", Role: "therapist"},
		{Email: "s1@c.org", Name: "Sam Sup", Role: "supervisor"},
	} {
		if err := h.svc.Create(context.Background(), r.User()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/users?role=therapist&limit=1&page=2", nil), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []User `json:"data"`
		Total int    `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Total != 2 {
		t.Errorf("expected total 2, got %d", body.Total)
	}
	if len(body.Data) != 1 || body.Data[0].Name != "Tara One" {
		t.Errorf("expected second page to hold the older therapist, got %+v", body.Data)
	}
}

func TestHandler_Update(t *testing.T) {
	h, e := newTestHandler()
	u := CreateRequest{Email: "t1@c.org", Name: "Tara One", Role: "therapist"}.User()
	h.svc.Create(context.Background(), u)

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"active":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(u.ID.String())

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"active":false`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Me(t *testing.T) {
	h, e := newTestHandler()
	u := CreateRequest{Email: "s@c.org", Name: "Sam Sup", Role: "supervisor"}.User()
	h.svc.Create(context.Background(), u)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Subject: "auth0|sam", UserID: u.ID.String(), Role: "supervisor"}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Me(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["userId"] != u.ID.String() || body["role"] != "supervisor" || body["user"] == nil {
		t.Errorf("unexpected body %v", body)
	}
}

func TestHandler_Me_Unlinked(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Subject: "dev-user:therapist", Role: "therapist"}))
	rec := httptest.NewRecorder()

	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), `"user"`) {
		t.Errorf("expected no user for unlinked identity, got %s", rec.Body.String())
	}
}
