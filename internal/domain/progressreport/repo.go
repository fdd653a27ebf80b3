package progressreport

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *ProgressReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProgressReport, error)
	// SaveReview stores the review fields only when the report has not been
	// reviewed yet.
	SaveReview(ctx context.Context, r *ProgressReport) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ProgressReport, int, error)
}
