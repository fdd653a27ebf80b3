package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	// Update writes p. assigned_therapist is only written when reassign is
	// set; otherwise the stored pointer is kept and read back into p.
	Update(ctx context.Context, p *Patient, reassign bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)
	CountActiveCaseload(ctx context.Context, therapistID uuid.UUID) (int, error)
	SetAssignedTherapist(ctx context.Context, patientID, therapistID uuid.UUID) error
}
