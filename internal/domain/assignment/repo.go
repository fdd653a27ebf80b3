package assignment

import (
	"context"
)

// Repository has no update or delete; assignments are an audit trail.
type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Assignment, int, error)
}
