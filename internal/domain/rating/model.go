package rating

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casework/casework/internal/platform/apperr"
)

const (
	minScore = 0
	maxScore = 5
)

// periodRe accepts 2024, 2024-Q2 and 2024-06 style periods.
var periodRe = regexp.MustCompile(`^\d{4}(-Q[1-4]|-(0[1-9]|1[0-2]))?$`)

// ClinicalRating is a supervisor's scoring of a therapist for a period.
type ClinicalRating struct {
	ID         uuid.UUID          `json:"id"`
	Therapist  uuid.UUID          `json:"therapist"`
	Supervisor uuid.UUID          `json:"supervisor"`
	Period     string             `json:"period"`
	Scores     map[string]float64 `json:"scores"`
	Comments   string             `json:"comments"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`

	TherapistName  string `json:"therapistName,omitempty"`
	SupervisorName string `json:"supervisorName,omitempty"`
}

// Average is the mean of all scores, rounded to two places, or 0 when
// there are none.
func (r *ClinicalRating) Average() float64 {
	if len(r.Scores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range r.Scores {
		sum += v
	}
	return math.Round(sum/float64(len(r.Scores))*100) / 100
}

func (r *ClinicalRating) normalize() {
	r.Period = strings.ToUpper(strings.TrimSpace(r.Period))
	r.Comments = strings.TrimSpace(r.Comments)
	if r.Scores == nil {
		r.Scores = map[string]float64{}
	}
}

func (r *ClinicalRating) validate() error {
	var c apperr.Collector
	c.Check(r.Therapist != uuid.Nil, "therapist is required")
	c.Check(r.Supervisor != uuid.Nil, "supervisor is required")
	c.Check(r.Period == "" || periodRe.MatchString(r.Period), "period must look like 2024, 2024-Q2 or 2024-06")
	for k, v := range r.Scores {
		if strings.TrimSpace(k) == "" {
			c.Addf("scores cannot have an empty key")
			continue
		}
		if v < minScore || v > maxScore {
			c.Addf("scores.%s must be between %d and %d", k, minScore, maxScore)
		}
	}
	return c.Err()
}

// CreateRequest is the POST /api/ratings body.
type CreateRequest struct {
	Therapist  uuid.UUID          `json:"therapist"`
	Supervisor uuid.UUID          `json:"supervisor"`
	Period     string             `json:"period"`
	Scores     map[string]float64 `json:"scores"`
	Comments   string             `json:"comments"`
}

func (c CreateRequest) Rating() *ClinicalRating {
	return &ClinicalRating{
		Therapist:  c.Therapist,
		Supervisor: c.Supervisor,
		Period:     c.Period,
		Scores:     c.Scores,
		Comments:   c.Comments,
	}
}
