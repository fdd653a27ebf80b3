package rating

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/domain/user"
	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
)

type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	ratings Repository
	users   UserLookup
	logger  zerolog.Logger
}

func NewService(ratings Repository, users UserLookup, logger zerolog.Logger) *Service {
	return &Service{ratings: ratings, users: users, logger: logger.With().Str("service", "rating").Logger()}
}

// Create stores a rating after checking the rated user is a therapist and
// the rater a supervisor or admin.
func (s *Service) Create(ctx context.Context, r *ClinicalRating) error {
	r.normalize()
	if err := r.validate(); err != nil {
		return err
	}
	var c apperr.Collector
	ok, err := s.hasRole(ctx, r.Therapist, auth.RoleTherapist)
	if err != nil {
		return err
	}
	c.Check(ok, "therapist must reference a therapist")
	ok, err = s.hasRole(ctx, r.Supervisor, auth.RoleSupervisor, auth.RoleAdmin)
	if err != nil {
		return err
	}
	c.Check(ok, "supervisor must reference a supervisor or admin")
	if err := c.Err(); err != nil {
		return err
	}

	if err := s.ratings.Create(ctx, r); err != nil {
		return err
	}
	s.logger.Info().
		Str("rating_id", r.ID.String()).
		Str("therapist_id", r.Therapist.String()).
		Str("period", r.Period).
		Float64("average", r.Average()).
		Msg("clinical rating recorded")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ClinicalRating, error) {
	return s.ratings.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ClinicalRating, int, error) {
	return s.ratings.Search(ctx, params, limit, offset)
}

func (s *Service) hasRole(ctx context.Context, id uuid.UUID, roles ...string) (bool, error) {
	u, err := s.users.GetUser(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if u.Role == r {
			return true, nil
		}
	}
	return false, nil
}
