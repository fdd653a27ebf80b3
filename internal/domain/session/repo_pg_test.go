package session

import (
	"strings"
	"testing"
	"time"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/search"
)

func TestApplyDateRange(t *testing.T) {
	q := search.NewQuery(sessionFrom, sessionCols)
	if err := q.ApplyAll(map[string]string{"patient": "6f1c2f0e-3f7a-4e55-9a57-3b1f0c2d9e11"}, sessionSearchParams); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := applyDateRange(q, map[string]string{"from": "2024-04-01", "to": "2024-04-30"}); err != nil {
		t.Fatalf("range: %v", err)
	}
	sql := q.CountSQL()
	if !strings.Contains(sql, "s.date >= $2") || !strings.Contains(sql, "s.date < $3") {
		t.Errorf("unexpected SQL %s", sql)
	}
	args := q.CountArgs()
	if end := args[2].(time.Time); !end.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected exclusive end on the following day, got %v", end)
	}
	if !strings.Contains(q.DataSQL(), "LIMIT $4 OFFSET $5") {
		t.Errorf("unexpected data SQL %s", q.DataSQL())
	}
}

func TestApplyDateRange_Invalid(t *testing.T) {
	q := search.NewQuery(sessionFrom, sessionCols)
	if err := applyDateRange(q, map[string]string{"from": "04/01/2024"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
