package assignment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/casework/casework/internal/domain/patient"
	"github.com/casework/casework/internal/domain/user"
	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/events"
)

// PatientStore is the slice of the patient service the allocator needs.
type PatientStore interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	CurrentActiveCaseload(ctx context.Context, therapistID uuid.UUID) (int, error)
	AssignTherapist(ctx context.Context, patientID, therapistID uuid.UUID) error
}

// TherapistDirectory lists and looks up users.
type TherapistDirectory interface {
	ActiveTherapists(ctx context.Context) ([]*user.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	assignments Repository
	patients    PatientStore
	users       TherapistDirectory
	tx          db.TxRunner
	publisher   events.Publisher
	concurrency int
	logger      zerolog.Logger
}

func NewService(assignments Repository, patients PatientStore, users TherapistDirectory,
	tx db.TxRunner, publisher events.Publisher, concurrency int, logger zerolog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		assignments: assignments,
		patients:    patients,
		users:       users,
		tx:          tx,
		publisher:   publisher,
		concurrency: concurrency,
		logger:      logger.With().Str("service", "assignment").Logger(),
	}
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Assignment, int, error) {
	return s.assignments.Search(ctx, params, limit, offset)
}

// Candidates scores every active therapist for the patient, in pool order.
func (s *Service) Candidates(ctx context.Context, p *patient.Patient) ([]Candidate, error) {
	pool, err := s.users.ActiveTherapists(ctx)
	if err != nil {
		return nil, err
	}

	caseloads := make([]int, len(pool))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.concurrency
	if db.TxFromContext(ctx) != nil {
		// a single transaction cannot run queries in parallel
		limit = 1
	}
	g.SetLimit(limit)
	for i, t := range pool {
		g.Go(func() error {
			n, err := s.patients.CurrentActiveCaseload(gctx, t.ID)
			if err != nil {
				return fmt.Errorf("caseload for %s: %w", t.ID, err)
			}
			caseloads[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	terms := p.MatchTerms()
	cands := make([]Candidate, len(pool))
	for i, t := range pool {
		m := countMatches(t.Specialties, terms)
		cands[i] = Candidate{Therapist: t, Matches: m, Caseload: caseloads[i], Score: Score(m, caseloads[i])}
	}
	return cands, nil
}

// AutoAssign picks the highest scoring active therapist for the patient,
// records the assignment and moves the patient's pointer in one
// transaction.
func (s *Service) AutoAssign(ctx context.Context, patientID uuid.UUID, supervisor *uuid.UUID) (*Assignment, error) {
	p, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	cands, err := s.Candidates(ctx, p)
	if err != nil {
		return nil, err
	}
	best := pickBest(cands)
	if best == nil {
		return nil, apperr.NoCandidate("No available therapist found")
	}

	s.logger.Debug().
		Str("patient_id", patientID.String()).
		Str("therapist_id", best.Therapist.ID.String()).
		Int("score", best.Score).
		Int("matches", best.Matches).
		Int("caseload", best.Caseload).
		Int("candidates", len(cands)).
		Msg("auto-assign selected therapist")

	a := &Assignment{
		Patient:    patientID,
		Therapist:  best.Therapist.ID,
		Supervisor: supervisor,
		Method:     MethodAuto,
		Rationale:  fmt.Sprintf("Auto-assigned based on specialty match and caseload. Score: %d", best.Score),
	}
	if err := s.record(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ManualAssign records a supervisor's choice. The therapist only has to
// exist; role and active status are not checked.
func (s *Service) ManualAssign(ctx context.Context, patientID, therapistID uuid.UUID, rationale string, supervisor *uuid.UUID) (*Assignment, error) {
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return nil, apperr.Validation("rationale is required")
	}
	if _, err := s.patients.Get(ctx, patientID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, therapistID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("Therapist")
		}
		return nil, err
	}

	a := &Assignment{
		Patient:    patientID,
		Therapist:  therapistID,
		Supervisor: supervisor,
		Method:     MethodManual,
		Rationale:  rationale,
	}
	if err := s.record(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// record writes the assignment and the patient pointer together, then
// publishes the event once committed. Inside a caller's transaction the
// commit is not ours to observe, so no event is sent.
func (s *Service) record(ctx context.Context, a *Assignment) error {
	owned := db.TxFromContext(ctx) == nil
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.assignments.Create(ctx, a); err != nil {
			return err
		}
		return s.patients.AssignTherapist(ctx, a.Patient, a.Therapist)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("assignment_id", a.ID.String()).
		Str("patient_id", a.Patient.String()).
		Str("therapist_id", a.Therapist.String()).
		Str("method", a.Method).
		Bool("published", owned).
		Msg("patient assigned")
	if owned {
		s.publish(ctx, a)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, a *Assignment) {
	if s.publisher == nil {
		return
	}
	evt, err := events.New(events.AssignmentCreated, createdEvent{
		AssignmentID: a.ID,
		PatientID:    a.Patient,
		TherapistID:  a.Therapist,
		SupervisorID: a.Supervisor,
		Method:       a.Method,
		Rationale:    a.Rationale,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, evt)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("assignment_id", a.ID.String()).Msg("failed to publish assignment event")
	}
}
