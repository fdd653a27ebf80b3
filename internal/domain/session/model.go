package session

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/validate"
)

const maxDurationMin = 480

type Outcome struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// Session is one logged therapy session.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Patient      uuid.UUID `json:"patient"`
	Therapist    uuid.UUID `json:"therapist"`
	Date         time.Time `json:"date"`
	DurationMin  int       `json:"durationMin"`
	Activities   []string  `json:"activities"`
	Observations string    `json:"observations"`
	Outcomes     []Outcome `json:"outcomes"`
	NextSteps    string    `json:"nextSteps"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	PatientName   string `json:"patientName,omitempty"`
	TherapistName string `json:"therapistName,omitempty"`
}

func (s *Session) normalize() {
	s.Activities = validate.TrimList(s.Activities)
	s.Observations = strings.TrimSpace(s.Observations)
	s.NextSteps = strings.TrimSpace(s.NextSteps)
	for i := range s.Outcomes {
		s.Outcomes[i].Metric = strings.TrimSpace(s.Outcomes[i].Metric)
	}
	if s.Outcomes == nil {
		s.Outcomes = []Outcome{}
	}
}

func (s *Session) validate() error {
	var c apperr.Collector
	c.Check(s.Patient != uuid.Nil, "patient is required")
	c.Check(s.Therapist != uuid.Nil, "therapist is required")
	c.Check(!s.Date.IsZero(), "date is required")
	if s.DurationMin < 0 || s.DurationMin > maxDurationMin {
		c.Addf("durationMin must be between 0 and %d", maxDurationMin)
	}
	for i, o := range s.Outcomes {
		if o.Metric == "" {
			c.Addf("outcomes[%d].metric is required", i)
		}
	}
	return c.Err()
}

// WriteRequest is the POST and PUT body; on PUT absent fields are kept.
type WriteRequest struct {
	Patient      *uuid.UUID `json:"patient"`
	Therapist    *uuid.UUID `json:"therapist"`
	Date         *time.Time `json:"date"`
	DurationMin  *int       `json:"durationMin"`
	Activities   *[]string  `json:"activities"`
	Observations *string    `json:"observations"`
	Outcomes     *[]Outcome `json:"outcomes"`
	NextSteps    *string    `json:"nextSteps"`
}

func (r WriteRequest) Apply(s *Session) {
	if r.Patient != nil {
		s.Patient = *r.Patient
	}
	if r.Therapist != nil {
		s.Therapist = *r.Therapist
	}
	if r.Date != nil {
		s.Date = *r.Date
	}
	if r.DurationMin != nil {
		s.DurationMin = *r.DurationMin
	}
	if r.Activities != nil {
		s.Activities = *r.Activities
	}
	if r.Observations != nil {
		s.Observations = *r.Observations
	}
	if r.Outcomes != nil {
		s.Outcomes = *r.Outcomes
	}
	if r.NextSteps != nil {
		s.NextSteps = *r.NextSteps
	}
}
