package progressreport

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casework/casework/internal/platform/apperr"
)

const (
	StatusPending  = "Pending Review"
	StatusReviewed = "Reviewed"
)

type MetricSummary struct {
	Metric string  `json:"metric"`
	Trend  string  `json:"trend,omitempty"`
	Value  float64 `json:"value"`
}

type ProgressReport struct {
	ID                 uuid.UUID       `json:"id"`
	Patient            uuid.UUID       `json:"patient"`
	Therapist          uuid.UUID       `json:"therapist"`
	SessionCount       int             `json:"sessionCount"`
	MetricsSummary     []MetricSummary `json:"metricsSummary"`
	Narrative          string          `json:"narrative"`
	Recommendation     string          `json:"recommendation"`
	SubmittedAt        time.Time       `json:"submittedAt"`
	ReviewedAt         *time.Time      `json:"reviewedAt,omitempty"`
	SupervisorFeedback string          `json:"supervisorFeedback"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`

	PatientName   string `json:"patientName,omitempty"`
	TherapistName string `json:"therapistName,omitempty"`
}

// Status is derived from whether the report has been reviewed.
func (r *ProgressReport) Status() string {
	if r.ReviewedAt != nil {
		return StatusReviewed
	}
	return StatusPending
}

func (r ProgressReport) MarshalJSON() ([]byte, error) {
	type plain ProgressReport
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain(r), r.Status()})
}

func (r *ProgressReport) normalize() {
	r.Narrative = strings.TrimSpace(r.Narrative)
	r.Recommendation = strings.TrimSpace(r.Recommendation)
	for i := range r.MetricsSummary {
		r.MetricsSummary[i].Metric = strings.TrimSpace(r.MetricsSummary[i].Metric)
		r.MetricsSummary[i].Trend = strings.ToLower(strings.TrimSpace(r.MetricsSummary[i].Trend))
	}
	if r.MetricsSummary == nil {
		r.MetricsSummary = []MetricSummary{}
	}
}

func (r *ProgressReport) validate() error {
	var c apperr.Collector
	c.Check(r.Patient != uuid.Nil, "patient is required")
	c.Check(r.Therapist != uuid.Nil, "therapist is required")
	c.Check(r.SessionCount >= 0, "sessionCount cannot be negative")
	for i, m := range r.MetricsSummary {
		if m.Metric == "" {
			c.Addf("metricsSummary[%d].metric is required", i)
		}
	}
	return c.Err()
}

// CreateRequest is the POST /api/progress-reports body. Review fields are
// not accepted on create.
type CreateRequest struct {
	Patient        uuid.UUID       `json:"patient"`
	Therapist      uuid.UUID       `json:"therapist"`
	SessionCount   int             `json:"sessionCount"`
	MetricsSummary []MetricSummary `json:"metricsSummary"`
	Narrative      string          `json:"narrative"`
	Recommendation string          `json:"recommendation"`
	SubmittedAt    *time.Time      `json:"submittedAt"`
}

func (c CreateRequest) Report() *ProgressReport {
	r := &ProgressReport{
		Patient:        c.Patient,
		Therapist:      c.Therapist,
		SessionCount:   c.SessionCount,
		MetricsSummary: c.MetricsSummary,
		Narrative:      c.Narrative,
		Recommendation: c.Recommendation,
	}
	if c.SubmittedAt != nil {
		r.SubmittedAt = *c.SubmittedAt
	}
	return r
}

// ReviewRequest is the POST /api/progress-reports/:id/review body.
type ReviewRequest struct {
	Feedback string `json:"feedback"`
}
