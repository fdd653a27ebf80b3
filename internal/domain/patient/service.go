package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/domain/user"
	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
)

// UserLookup resolves the users a patient references.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	patients Repository
	users    UserLookup
	logger   zerolog.Logger
}

func NewService(patients Repository, users UserLookup, logger zerolog.Logger) *Service {
	return &Service{patients: patients, users: users, logger: logger.With().Str("service", "patient").Logger()}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.prepare(ctx, p, p.AssignedTherapist != nil, p.Supervisor != nil); err != nil {
		return err
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient created")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req WriteRequest) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// stored references are only re-checked when the request moves them
	therapistMoved := req.AssignedTherapist != nil && !sameRef(p.AssignedTherapist, req.AssignedTherapist)
	supervisorMoved := req.Supervisor != nil && !sameRef(p.Supervisor, req.Supervisor)
	req.Apply(p)
	if err := s.prepare(ctx, p, therapistMoved, supervisorMoved); err != nil {
		return nil, err
	}
	if err := s.patients.Update(ctx, p, req.AssignedTherapist != nil); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params, limit, offset)
}

// CurrentActiveCaseload counts the therapist's active patients. It is
// recomputed on every call.
func (s *Service) CurrentActiveCaseload(ctx context.Context, therapistID uuid.UUID) (int, error) {
	return s.patients.CountActiveCaseload(ctx, therapistID)
}

// AssignTherapist moves the patient's assignment pointer without
// re-running reference checks; the allocator has already chosen.
func (s *Service) AssignTherapist(ctx context.Context, patientID, therapistID uuid.UUID) error {
	return s.patients.SetAssignedTherapist(ctx, patientID, therapistID)
}

func sameRef(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

func (s *Service) prepare(ctx context.Context, p *Patient, checkTherapist, checkSupervisor bool) error {
	p.Normalize()
	if err := p.Validate(now()); err != nil {
		return err
	}
	var c apperr.Collector
	if checkTherapist {
		ok, err := s.activeWithRole(ctx, *p.AssignedTherapist, auth.RoleTherapist)
		if err != nil {
			return err
		}
		c.Check(ok, "assignedTherapist must be an active therapist")
	}
	if checkSupervisor {
		ok, err := s.activeWithRole(ctx, *p.Supervisor, auth.RoleSupervisor)
		if err != nil {
			return err
		}
		c.Check(ok, "supervisor must be an active supervisor")
	}
	return c.Err()
}

func (s *Service) activeWithRole(ctx context.Context, id uuid.UUID, role string) (bool, error) {
	u, err := s.users.GetUser(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Active && u.Role == role, nil
}
