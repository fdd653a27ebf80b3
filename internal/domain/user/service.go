package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
)

type Service struct {
	users  Repository
	logger zerolog.Logger
}

func NewService(users Repository, logger zerolog.Logger) *Service {
	return &Service{users: users, logger: logger.With().Str("service", "user").Logger()}
}

func (s *Service) Create(ctx context.Context, u *User) error {
	u.Normalize()
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// GetUser satisfies the lookup used by patient reference checks and the
// allocator.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Apply(u)
	u.Normalize()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	return s.users.Search(ctx, params, limit, offset)
}

// ActiveTherapists returns the allocator's candidate pool in its stable
// iteration order.
func (s *Service) ActiveTherapists(ctx context.Context) ([]*User, error) {
	return s.users.ListActiveByRole(ctx, auth.RoleTherapist)
}

// ResolveExternal maps an identity-provider subject to the stored user so
// the auth gate can use the stored role. Unknown subjects yield nil.
func (s *Service) ResolveExternal(ctx context.Context, externalID string) (*auth.ResolvedUser, error) {
	u, err := s.users.GetByExternalID(ctx, externalID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record last login")
	}
	return &auth.ResolvedUser{ID: u.ID.String(), Role: u.Role, Active: u.Active}, nil
}
