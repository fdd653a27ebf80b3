package therapyplan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var now = time.Now

type Service struct {
	plans  Repository
	logger zerolog.Logger
}

func NewService(plans Repository, logger zerolog.Logger) *Service {
	return &Service{plans: plans, logger: logger.With().Str("service", "therapyplan").Logger()}
}

func (s *Service) Create(ctx context.Context, p *TherapyPlan) error {
	p.Status = StatusDraft
	p.SubmittedAt, p.ReviewedAt = nil, nil
	p.normalize()
	if err := p.validate(); err != nil {
		return err
	}
	return s.plans.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TherapyPlan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*TherapyPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(p)
	p.normalize()
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := s.plans.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*TherapyPlan, int, error) {
	return s.plans.Search(ctx, params, limit, offset)
}

// Submit sends a draft, or a plan returned for revision, to supervision.
func (s *Service) Submit(ctx context.Context, id uuid.UUID) (*TherapyPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := p.Status
	if err := submit(p, now().UTC()); err != nil {
		return nil, err
	}
	if err := s.plans.SaveTransition(ctx, p, from); err != nil {
		return nil, err
	}
	s.logger.Info().Str("plan_id", id.String()).Str("from", from).Msg("therapy plan submitted")
	return p, nil
}

// Review applies a supervisor decision to a submitted plan.
func (s *Service) Review(ctx context.Context, id uuid.UUID, req ReviewRequest) (*TherapyPlan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := p.Status
	if err := review(p, req.Decision, req.Comments, now().UTC()); err != nil {
		return nil, err
	}
	if err := s.plans.SaveTransition(ctx, p, from); err != nil {
		return nil, err
	}
	s.logger.Info().Str("plan_id", id.String()).Str("decision", p.Status).Msg("therapy plan reviewed")
	return p, nil
}
