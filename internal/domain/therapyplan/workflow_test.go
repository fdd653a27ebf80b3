package therapyplan

import (
	"testing"
	"time"

	"github.com/casework/casework/internal/platform/apperr"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusNeedsRevision, StatusSubmitted, true},
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusNeedsRevision, true},
		{StatusDraft, StatusApproved, false},
		{StatusSubmitted, StatusSubmitted, false},
		{StatusApproved, StatusSubmitted, false},
		{StatusApproved, StatusNeedsRevision, false},
		{"bogus", StatusSubmitted, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSubmit_SetsTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p := &TherapyPlan{Status: StatusDraft}
	if err := submit(p, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusSubmitted || p.SubmittedAt == nil || !p.SubmittedAt.Equal(at) {
		t.Errorf("unexpected plan after submit %+v", p)
	}
	if err := submit(p, at); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict on double submit, got %v", err)
	}
}

func TestReview_DecisionCheckedBeforeState(t *testing.T) {
	p := &TherapyPlan{Status: StatusDraft}
	if err := review(p, "rejected", "", time.Now()); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for unknown decision, got %v", err)
	}
	if err := review(p, StatusApproved, "", time.Now()); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict reviewing a draft, got %v", err)
	}
	if p.Status != StatusDraft || p.ReviewedAt != nil {
		t.Error("failed review must not modify the plan")
	}
}

func TestReview_Approved(t *testing.T) {
	p := &TherapyPlan{Status: StatusSubmitted}
	if err := review(p, " Approved ", " ok ", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusApproved || p.ReviewedAt == nil || p.SupervisorComments != "ok" {
		t.Errorf("unexpected plan after review %+v", p)
	}
}
