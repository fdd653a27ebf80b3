package therapyplan

import (
	"strings"
	"time"

	"github.com/casework/casework/internal/platform/apperr"
)

// transitions lists the statuses each status may move to.
var transitions = map[string][]string{
	StatusDraft:         {StatusSubmitted},
	StatusNeedsRevision: {StatusSubmitted},
	StatusSubmitted:     {StatusApproved, StatusNeedsRevision},
}

// CanTransition reports whether a plan in status from may move to to.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func invalidTransition(from, to string) error {
	return apperr.Conflict("invalid transition: cannot move plan from %s to %s", from, to)
}

// submit moves a draft or revised plan to submitted.
func submit(p *TherapyPlan, at time.Time) error {
	if !CanTransition(p.Status, StatusSubmitted) {
		return invalidTransition(p.Status, StatusSubmitted)
	}
	p.Status = StatusSubmitted
	p.SubmittedAt = &at
	return nil
}

// review records a supervisor decision on a submitted plan.
func review(p *TherapyPlan, decision, comments string, at time.Time) error {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != StatusApproved && decision != StatusNeedsRevision {
		return apperr.Validation("decision must be one of approved, needs_revision")
	}
	if !CanTransition(p.Status, decision) {
		return invalidTransition(p.Status, decision)
	}
	p.Status = decision
	p.ReviewedAt = &at
	p.SupervisorComments = strings.TrimSpace(comments)
	return nil
}
