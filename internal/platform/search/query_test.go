package search

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/apperr"
)

var patientParams = map[string]Param{
	"q":         {Type: Contains, Column: "name"},
	"status":    {Type: Exact, Column: "case_status"},
	"therapist": {Type: Ref, Column: "assigned_therapist"},
}

func TestQuery_NoFilters(t *testing.T) {
	q := NewQuery("patients", "id, name")
	q.OrderBy("updated_at DESC")

	if got := q.CountSQL(); got != "SELECT COUNT(*) FROM patients WHERE 1=1" {
		t.Errorf("CountSQL = %s", got)
	}
	if got := q.DataSQL(); got != "SELECT id, name FROM patients WHERE 1=1 ORDER BY updated_at DESC LIMIT $1 OFFSET $2" {
		t.Errorf("DataSQL = %s", got)
	}
	args := q.DataArgs(20, 40)
	if len(args) != 2 || args[0] != 20 || args[1] != 40 {
		t.Errorf("DataArgs = %v", args)
	}
}

func TestQuery_ApplyAll(t *testing.T) {
	tid := uuid.New()
	q := NewQuery("patients", "id")
	err := q.ApplyAll(map[string]string{
		"therapist": tid.String(),
		"q":         "ana",
		"status":    "active",
		"unknown":   "ignored",
	}, patientParams)
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}

	want := "SELECT COUNT(*) FROM patients WHERE 1=1 AND name ILIKE '%' || $1 || '%' AND case_status = $2 AND assigned_therapist = $3"
	if got := q.CountSQL(); got != want {
		t.Errorf("CountSQL =\n%s\nwant\n%s", got, want)
	}
	args := q.CountArgs()
	if len(args) != 3 || args[0] != "ana" || args[1] != "active" || args[2] != tid {
		t.Errorf("CountArgs = %v", args)
	}
	if q.Idx() != 4 {
		t.Errorf("Idx = %d, want 4", q.Idx())
	}
}

func TestQuery_InvalidRef(t *testing.T) {
	q := NewQuery("patients", "id")
	err := q.Apply("therapist", patientParams["therapist"], "not-a-uuid")
	if !apperr.Is(err, apperr.KindInvalidID) {
		t.Errorf("expected invalid id error, got %v", err)
	}
}

func TestQuery_BoolAndNull(t *testing.T) {
	q := NewQuery("users", "id")
	q.Apply("active", Param{Type: Bool, Column: "active"}, "yes")
	q.Apply("reviewed", Param{Type: NotNull, Column: "reviewed_at"}, "true")

	if got := q.CountSQL(); got != "SELECT COUNT(*) FROM users WHERE 1=1 AND active = $1 AND reviewed_at IS NOT NULL" {
		t.Errorf("CountSQL = %s", got)
	}
	if q.CountArgs()[0] != false {
		t.Errorf("expected non-\"true\" to mean false, got %v", q.CountArgs()[0])
	}
}

func TestQuery_ArrayContains(t *testing.T) {
	q := NewQuery("users", "id")
	q.Apply("specialty", Param{Type: ArrayContains, Column: "specialties"}, " Autism ")
	if got := q.CountSQL(); got != "SELECT COUNT(*) FROM users WHERE 1=1 AND $1 = ANY(specialties)" {
		t.Errorf("CountSQL = %s", got)
	}
	if q.CountArgs()[0] != "autism" {
		t.Errorf("expected lowercased trimmed value, got %v", q.CountArgs()[0])
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike = %s", got)
	}
}

func TestValues_SkipsPagination(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=5&page=2&role=therapist", nil), httptest.NewRecorder())
	v := Values(c)
	if len(v) != 1 || v["role"] != "therapist" {
		t.Errorf("Values = %v", v)
	}
}
