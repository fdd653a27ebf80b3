package progressreport

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/platform/apperr"
)

var now = time.Now

var errAlreadyReviewed = apperr.Conflict("Progress report has already been reviewed")

type Service struct {
	reports Repository
	logger  zerolog.Logger
}

func NewService(reports Repository, logger zerolog.Logger) *Service {
	return &Service{reports: reports, logger: logger.With().Str("service", "progressreport").Logger()}
}

// Create stores a new, unreviewed report. SubmittedAt defaults to now.
func (s *Service) Create(ctx context.Context, r *ProgressReport) error {
	r.ReviewedAt, r.SupervisorFeedback = nil, ""
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = now().UTC()
	}
	r.normalize()
	if err := r.validate(); err != nil {
		return err
	}
	return s.reports.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ProgressReport, error) {
	return s.reports.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ProgressReport, int, error) {
	return s.reports.Search(ctx, params, limit, offset)
}

// Review attaches supervisor feedback. A report is reviewed at most once.
func (s *Service) Review(ctx context.Context, id uuid.UUID, feedback string) (*ProgressReport, error) {
	r, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ReviewedAt != nil {
		return nil, errAlreadyReviewed
	}
	at := now().UTC()
	r.ReviewedAt = &at
	r.SupervisorFeedback = strings.TrimSpace(feedback)
	if err := s.reports.SaveReview(ctx, r); err != nil {
		return nil, err
	}
	s.logger.Info().Str("report_id", id.String()).Msg("progress report reviewed")
	return r, nil
}
