package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	sessions Repository
	logger   zerolog.Logger
}

func NewService(sessions Repository, logger zerolog.Logger) *Service {
	return &Service{sessions: sessions, logger: logger.With().Str("service", "session").Logger()}
}

func (s *Service) Create(ctx context.Context, sess *Session) error {
	sess.normalize()
	if err := sess.validate(); err != nil {
		return err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return err
	}
	s.logger.Info().
		Str("session_id", sess.ID.String()).
		Str("patient_id", sess.Patient.String()).
		Int("duration_min", sess.DurationMin).
		Msg("session logged")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req WriteRequest) (*Session, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(sess)
	sess.normalize()
	if err := sess.validate(); err != nil {
		return nil, err
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Session, int, error) {
	return s.sessions.Search(ctx, params, limit, offset)
}
