package therapyplan

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/validate"
)

const (
	StatusDraft         = "draft"
	StatusSubmitted     = "submitted"
	StatusApproved      = "approved"
	StatusNeedsRevision = "needs_revision"
)

type Goal struct {
	Title  string   `json:"title"`
	Metric string   `json:"metric,omitempty"`
	Target *float64 `json:"target,omitempty"`
}

type Activity struct {
	Name      string `json:"name"`
	Frequency string `json:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty"`
}

type TherapyPlan struct {
	ID                 uuid.UUID  `json:"id"`
	Patient            uuid.UUID  `json:"patient"`
	Therapist          uuid.UUID  `json:"therapist"`
	Status             string     `json:"status"`
	Goals              []Goal     `json:"goals"`
	Activities         []Activity `json:"activities"`
	Notes              string     `json:"notes"`
	Attachments        []string   `json:"attachments"`
	SubmittedAt        *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`
	SupervisorComments string     `json:"supervisorComments"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`

	PatientName    string `json:"patientName,omitempty"`
	TherapistName  string `json:"therapistName,omitempty"`
	TherapistEmail string `json:"therapistEmail,omitempty"`
}

func (p *TherapyPlan) normalize() {
	p.Notes = strings.TrimSpace(p.Notes)
	p.Attachments = validate.TrimList(p.Attachments)
	for i := range p.Goals {
		p.Goals[i].Title = strings.TrimSpace(p.Goals[i].Title)
	}
	for i := range p.Activities {
		p.Activities[i].Name = strings.TrimSpace(p.Activities[i].Name)
	}
	if p.Goals == nil {
		p.Goals = []Goal{}
	}
	if p.Activities == nil {
		p.Activities = []Activity{}
	}
}

func (p *TherapyPlan) validate() error {
	var c apperr.Collector
	c.Check(p.Patient != uuid.Nil, "patient is required")
	c.Check(p.Therapist != uuid.Nil, "therapist is required")
	for i, g := range p.Goals {
		if g.Title == "" {
			c.Addf("goals[%d].title is required", i)
		}
	}
	for i, a := range p.Activities {
		if a.Name == "" {
			c.Addf("activities[%d].name is required", i)
		}
	}
	return c.Err()
}

// CreateRequest is the POST /api/plans body. Plans always start as drafts.
type CreateRequest struct {
	Patient     uuid.UUID  `json:"patient"`
	Therapist   uuid.UUID  `json:"therapist"`
	Goals       []Goal     `json:"goals"`
	Activities  []Activity `json:"activities"`
	Notes       string     `json:"notes"`
	Attachments []string   `json:"attachments"`
}

func (r CreateRequest) Plan() *TherapyPlan {
	return &TherapyPlan{
		Patient:     r.Patient,
		Therapist:   r.Therapist,
		Status:      StatusDraft,
		Goals:       r.Goals,
		Activities:  r.Activities,
		Notes:       r.Notes,
		Attachments: r.Attachments,
	}
}

// UpdateRequest is the PUT /api/plans/:id body. Workflow fields are only
// changed by submit and review.
type UpdateRequest struct {
	Goals       *[]Goal     `json:"goals"`
	Activities  *[]Activity `json:"activities"`
	Notes       *string     `json:"notes"`
	Attachments *[]string   `json:"attachments"`
}

func (r UpdateRequest) Apply(p *TherapyPlan) {
	if r.Goals != nil {
		p.Goals = *r.Goals
	}
	if r.Activities != nil {
		p.Activities = *r.Activities
	}
	if r.Notes != nil {
		p.Notes = *r.Notes
	}
	if r.Attachments != nil {
		p.Attachments = *r.Attachments
	}
}

// ReviewRequest is the POST /api/plans/:id/review body.
type ReviewRequest struct {
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}
