package therapyplan

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *TherapyPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*TherapyPlan, error)
	Update(ctx context.Context, p *TherapyPlan) error
	// SaveTransition persists the workflow fields only if the stored status
	// still equals from.
	SaveTransition(ctx context.Context, p *TherapyPlan, from string) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*TherapyPlan, int, error)
}
