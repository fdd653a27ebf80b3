package rating

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *ClinicalRating) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalRating, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ClinicalRating, int, error)
}
