// Package seed loads YAML fixtures into a casework database through the
// domain services, so fixtures pass the same validation as API requests.
//
// Records may carry a "ref" name; later records point at them by writing
// that name where an id is expected (patient, therapist, supervisor,
// assignedTherapist).
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/casework/casework/internal/domain/assignment"
	"github.com/casework/casework/internal/domain/patient"
	"github.com/casework/casework/internal/domain/progressreport"
	"github.com/casework/casework/internal/domain/rating"
	"github.com/casework/casework/internal/domain/session"
	"github.com/casework/casework/internal/domain/therapyplan"
	"github.com/casework/casework/internal/domain/user"
	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/db"
)

type Record map[string]interface{}

// Fixture is the decoded YAML document. Sections are applied in field order.
type Fixture struct {
	Users       []Record `yaml:"users"`
	Patients    []Record `yaml:"patients"`
	Assignments []Record `yaml:"assignments"`
	Plans       []Record `yaml:"plans"`
	Sessions    []Record `yaml:"sessions"`
	Reports     []Record `yaml:"reports"`
	Ratings     []Record `yaml:"ratings"`
}

// Result counts the records created per section.
type Result struct {
	Users       int `json:"users"`
	Patients    int `json:"patients"`
	Assignments int `json:"assignments"`
	Plans       int `json:"plans"`
	Sessions    int `json:"sessions"`
	Reports     int `json:"reports"`
	Ratings     int `json:"ratings"`
}

func Load(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

type Users interface {
	Create(ctx context.Context, u *user.User) error
}

type Patients interface {
	Create(ctx context.Context, p *patient.Patient) error
}

type Assigner interface {
	AutoAssign(ctx context.Context, patientID uuid.UUID, supervisor *uuid.UUID) (*assignment.Assignment, error)
	ManualAssign(ctx context.Context, patientID, therapistID uuid.UUID, rationale string, supervisor *uuid.UUID) (*assignment.Assignment, error)
}

type Plans interface {
	Create(ctx context.Context, p *therapyplan.TherapyPlan) error
	Submit(ctx context.Context, id uuid.UUID) (*therapyplan.TherapyPlan, error)
	Review(ctx context.Context, id uuid.UUID, req therapyplan.ReviewRequest) (*therapyplan.TherapyPlan, error)
}

type Sessions interface {
	Create(ctx context.Context, s *session.Session) error
}

type Reports interface {
	Create(ctx context.Context, r *progressreport.ProgressReport) error
	Review(ctx context.Context, id uuid.UUID, feedback string) (*progressreport.ProgressReport, error)
}

type Ratings interface {
	Create(ctx context.Context, r *rating.ClinicalRating) error
}

// Targets are the services the seeder writes through.
type Targets struct {
	Users       Users
	Patients    Patients
	Assignments Assigner
	Plans       Plans
	Sessions    Sessions
	Reports     Reports
	Ratings     Ratings
}

type Seeder struct {
	targets Targets
	tx      db.TxRunner
	logger  zerolog.Logger
}

func New(targets Targets, tx db.TxRunner, logger zerolog.Logger) *Seeder {
	return &Seeder{targets: targets, tx: tx, logger: logger.With().Str("component", "seed").Logger()}
}

// Apply writes every record of f in one transaction. Any failure rolls the
// whole fixture back.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		*res = Result{}
		refs := map[string]uuid.UUID{}
		steps := []struct {
			section string
			records []Record
			count   *int
			apply   func(context.Context, Record, map[string]uuid.UUID) (uuid.UUID, error)
		}{
			{"users", f.Users, &res.Users, s.user},
			{"patients", f.Patients, &res.Patients, s.patient},
			{"assignments", f.Assignments, &res.Assignments, s.assignment},
			{"plans", f.Plans, &res.Plans, s.plan},
			{"sessions", f.Sessions, &res.Sessions, s.session},
			{"reports", f.Reports, &res.Reports, s.report},
			{"ratings", f.Ratings, &res.Ratings, s.rating},
		}
		for _, step := range steps {
			for i, rec := range step.records {
				id, err := step.apply(ctx, rec, refs)
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", step.section, i, err)
				}
				if ref, ok := rec["ref"].(string); ok && ref != "" {
					if _, dup := refs[ref]; dup {
						return fmt.Errorf("%s[%d]: %w", step.section, i, apperr.Validation(fmt.Sprintf("ref %q is defined twice", ref)))
					}
					refs[ref] = id
				}
				*step.count++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int("users", res.Users).
		Int("patients", res.Patients).
		Int("assignments", res.Assignments).
		Int("plans", res.Plans).
		Int("sessions", res.Sessions).
		Int("reports", res.Reports).
		Int("ratings", res.Ratings).
		Msg("fixture applied")
	return res, nil
}

var refFields = []string{"patient", "therapist", "supervisor", "assignedTherapist"}

// decode resolves ref names in rec and converts it into out through its
// JSON tags.
func decode(rec Record, refs map[string]uuid.UUID, out interface{}) error {
	resolved := make(map[string]interface{}, len(rec))
	for k, v := range rec {
		resolved[k] = v
	}
	for _, field := range refFields {
		name, ok := resolved[field].(string)
		if !ok || name == "" {
			continue
		}
		if _, err := uuid.Parse(name); err == nil {
			continue
		}
		id, ok := refs[name]
		if !ok {
			return apperr.Validation(fmt.Sprintf("%s: unknown ref %q", field, name))
		}
		resolved[field] = id.String()
	}
	raw, err := json.Marshal(resolved)
	if err != nil {
		return apperr.Validation(err.Error())
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Validation(err.Error())
	}
	return nil
}

func (s *Seeder) user(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req user.CreateRequest
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	u := req.User()
	if err := s.targets.Users.Create(ctx, u); err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (s *Seeder) patient(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req patient.WriteRequest
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	p := &patient.Patient{}
	req.Apply(p)
	if err := s.targets.Patients.Create(ctx, p); err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// assignment runs the allocator unless the record names a therapist.
func (s *Seeder) assignment(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req struct {
		Patient    uuid.UUID  `json:"patient"`
		Therapist  uuid.UUID  `json:"therapist"`
		Supervisor *uuid.UUID `json:"supervisor"`
		Rationale  string     `json:"rationale"`
	}
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	var (
		a   *assignment.Assignment
		err error
	)
	if req.Therapist == uuid.Nil {
		a, err = s.targets.Assignments.AutoAssign(ctx, req.Patient, req.Supervisor)
	} else {
		a, err = s.targets.Assignments.ManualAssign(ctx, req.Patient, req.Therapist, req.Rationale, req.Supervisor)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return a.ID, nil
}

// plan creates a draft and then walks the workflow to the record's status.
func (s *Seeder) plan(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req therapyplan.CreateRequest
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	p := req.Plan()
	if err := s.targets.Plans.Create(ctx, p); err != nil {
		return uuid.Nil, err
	}

	status, _ := rec["status"].(string)
	comments, _ := rec["reviewComments"].(string)
	switch status {
	case "", therapyplan.StatusDraft:
	case therapyplan.StatusSubmitted, therapyplan.StatusApproved, therapyplan.StatusNeedsRevision:
		if _, err := s.targets.Plans.Submit(ctx, p.ID); err != nil {
			return uuid.Nil, err
		}
		if status != therapyplan.StatusSubmitted {
			if _, err := s.targets.Plans.Review(ctx, p.ID, therapyplan.ReviewRequest{Decision: status, Comments: comments}); err != nil {
				return uuid.Nil, err
			}
		}
	default:
		return uuid.Nil, apperr.Validation(fmt.Sprintf("status %q is not a plan status", status))
	}
	return p.ID, nil
}

func (s *Seeder) session(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req session.WriteRequest
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	sess := &session.Session{}
	req.Apply(sess)
	if err := s.targets.Sessions.Create(ctx, sess); err != nil {
		return uuid.Nil, err
	}
	return sess.ID, nil
}

// report creates a progress report and reviews it when feedback is given.
func (s *Seeder) report(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req progressreport.CreateRequest
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	r := req.Report()
	if err := s.targets.Reports.Create(ctx, r); err != nil {
		return uuid.Nil, err
	}
	if feedback, ok := rec["feedback"].(string); ok && feedback != "" {
		if _, err := s.targets.Reports.Review(ctx, r.ID, feedback); err != nil {
			return uuid.Nil, err
		}
	}
	return r.ID, nil
}

func (s *Seeder) rating(ctx context.Context, rec Record, refs map[string]uuid.UUID) (uuid.UUID, error) {
	var req rating.CreateRequest
	if err := decode(rec, refs, &req); err != nil {
		return uuid.Nil, err
	}
	r := req.Rating()
	if err := s.targets.Ratings.Create(ctx, r); err != nil {
		return uuid.Nil, err
	}
	return r.ID, nil
}
