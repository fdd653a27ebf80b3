package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Update(ctx context.Context, u *User) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error)
	// ListActiveByRole returns active users of role ordered by creation,
	// oldest first, with id as the tie-breaker.
	ListActiveByRole(ctx context.Context, role string) ([]*User, error)
}
