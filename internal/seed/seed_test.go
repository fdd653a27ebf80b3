package seed

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/domain/assignment"
	"github.com/casework/casework/internal/domain/patient"
	"github.com/casework/casework/internal/domain/progressreport"
	"github.com/casework/casework/internal/domain/rating"
	"github.com/casework/casework/internal/domain/session"
	"github.com/casework/casework/internal/domain/therapyplan"
	"github.com/casework/casework/internal/domain/user"
	"github.com/casework/casework/internal/platform/apperr"
)

// recorder implements every target service by storing what it receives.
type recorder struct {
	users       []*user.User
	patients    []*patient.Patient
	assignments []*assignment.Assignment
	plans       map[uuid.UUID]*therapyplan.TherapyPlan
	sessions    []*session.Session
	reports     map[uuid.UUID]*progressreport.ProgressReport
	ratings     []*rating.ClinicalRating
	failRatings bool
}

func newRecorder() *recorder {
	return &recorder{
		plans:   map[uuid.UUID]*therapyplan.TherapyPlan{},
		reports: map[uuid.UUID]*progressreport.ProgressReport{},
	}
}

type userTarget struct{ *recorder }

func (r userTarget) Create(_ context.Context, u *user.User) error {
	u.ID = uuid.New()
	r.users = append(r.users, u)
	return nil
}

type patientTarget struct{ *recorder }

func (r patientTarget) Create(_ context.Context, p *patient.Patient) error {
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	p.ID = uuid.New()
	r.patients = append(r.patients, p)
	return nil
}

func (r *recorder) AutoAssign(_ context.Context, patientID uuid.UUID, supervisor *uuid.UUID) (*assignment.Assignment, error) {
	a := &assignment.Assignment{ID: uuid.New(), Patient: patientID, Therapist: r.users[1].ID, Supervisor: supervisor, Method: assignment.MethodAuto}
	r.assignments = append(r.assignments, a)
	return a, nil
}

func (r *recorder) ManualAssign(_ context.Context, patientID, therapistID uuid.UUID, rationale string, supervisor *uuid.UUID) (*assignment.Assignment, error) {
	a := &assignment.Assignment{ID: uuid.New(), Patient: patientID, Therapist: therapistID, Supervisor: supervisor, Method: assignment.MethodManual, Rationale: rationale}
	r.assignments = append(r.assignments, a)
	return a, nil
}

type planTarget struct{ *recorder }

func (r planTarget) Create(_ context.Context, p *therapyplan.TherapyPlan) error {
	p.ID = uuid.New()
	r.plans[p.ID] = p
	return nil
}

func (r planTarget) Submit(_ context.Context, id uuid.UUID) (*therapyplan.TherapyPlan, error) {
	p := r.plans[id]
	p.Status = therapyplan.StatusSubmitted
	return p, nil
}

func (r planTarget) Review(_ context.Context, id uuid.UUID, req therapyplan.ReviewRequest) (*therapyplan.TherapyPlan, error) {
	p := r.plans[id]
	if p.Status != therapyplan.StatusSubmitted {
		return nil, apperr.Conflict("not submitted")
	}
	p.Status = req.Decision
	p.SupervisorComments = req.Comments
	return p, nil
}

type sessionTarget struct{ *recorder }

func (r sessionTarget) Create(_ context.Context, s *session.Session) error {
	s.ID = uuid.New()
	r.sessions = append(r.sessions, s)
	return nil
}

type reportTarget struct{ *recorder }

func (r reportTarget) Create(_ context.Context, rep *progressreport.ProgressReport) error {
	rep.ID = uuid.New()
	r.reports[rep.ID] = rep
	return nil
}

func (r reportTarget) Review(_ context.Context, id uuid.UUID, feedback string) (*progressreport.ProgressReport, error) {
	rep := r.reports[id]
	rep.SupervisorFeedback = feedback
	return rep, nil
}

type ratingTarget struct{ *recorder }

func (r ratingTarget) Create(_ context.Context, rt *rating.ClinicalRating) error {
	if r.failRatings {
		return apperr.Validation("therapist must reference a therapist")
	}
	rt.ID = uuid.New()
	r.ratings = append(r.ratings, rt)
	return nil
}

func (r *recorder) targets() Targets {
	return Targets{
		Users:       userTarget{r},
		Patients:    patientTarget{r},
		Assignments: r,
		Plans:       planTarget{r},
		Sessions:    sessionTarget{r},
		Reports:     reportTarget{r},
		Ratings:     ratingTarget{r},
	}
}

type fakeTx struct {
	calls      int
	rolledBack bool
}

func (f *fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rolledBack = true
		return err
	}
	return nil
}

func loadClinic(t *testing.T) *Fixture {
	t.Helper()
	file, err := os.Open("testdata/clinic.yaml")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer file.Close()
	f, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return f
}

func TestApply_Clinic(t *testing.T) {
	rec := newRecorder()
	tx := &fakeTx{}
	s := New(rec.targets(), tx, zerolog.Nop())

	res, err := s.Apply(context.Background(), loadClinic(t))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := Result{Users: 3, Patients: 2, Assignments: 2, Plans: 2, Sessions: 1, Reports: 1, Ratings: 1}
	if *res != want {
		t.Errorf("result = %+v, want %+v", *res, want)
	}
	if tx.calls != 1 {
		t.Errorf("expected a single transaction, got %d", tx.calls)
	}

	dana, sam, lee := rec.users[0], rec.users[1], rec.users[2]
	if dana.Email != "Dana.Reyes@clinic.example" || dana.Role != "supervisor" {
		t.Errorf("unexpected supervisor %+v", dana)
	}
	if sam.Availability.WeeklySlots != 20 {
		t.Errorf("expected weeklySlots 20, got %d", sam.Availability.WeeklySlots)
	}

	mia, noah := rec.patients[0], rec.patients[1]
	if mia.Supervisor == nil || *mia.Supervisor != dana.ID {
		t.Errorf("mia supervisor ref not resolved: %v", mia.Supervisor)
	}
	if noah.AssignedTherapist == nil || *noah.AssignedTherapist != lee.ID {
		t.Errorf("noah therapist ref not resolved: %v", noah.AssignedTherapist)
	}
	if mia.DOB.Format("2006-01-02") != "2016-05-14" {
		t.Errorf("unexpected dob %s", mia.DOB.Format("2006-01-02"))
	}

	if rec.assignments[0].Method != assignment.MethodAuto || rec.assignments[1].Method != assignment.MethodManual {
		t.Errorf("unexpected assignment methods %s, %s", rec.assignments[0].Method, rec.assignments[1].Method)
	}
	if rec.assignments[1].Therapist != lee.ID || rec.assignments[1].Rationale != "Continuity with previous provider" {
		t.Errorf("unexpected manual assignment %+v", rec.assignments[1])
	}

	statuses := map[string]int{}
	for _, p := range rec.plans {
		statuses[p.Status]++
		if p.Status == therapyplan.StatusApproved && p.SupervisorComments != "Good baseline" {
			t.Errorf("expected review comments, got %q", p.SupervisorComments)
		}
	}
	if statuses[therapyplan.StatusApproved] != 1 || statuses[therapyplan.StatusSubmitted] != 1 {
		t.Errorf("unexpected plan statuses %v", statuses)
	}

	if rec.sessions[0].Therapist != sam.ID || rec.sessions[0].DurationMin != 45 {
		t.Errorf("unexpected session %+v", rec.sessions[0])
	}
	for _, r := range rec.reports {
		if r.SupervisorFeedback != "Keep the current plan" {
			t.Errorf("expected report to be reviewed, got %q", r.SupervisorFeedback)
		}
	}
	if rec.ratings[0].Supervisor != dana.ID || rec.ratings[0].Scores["engagement"] != 5 {
		t.Errorf("unexpected rating %+v", rec.ratings[0])
	}
}

func TestApply_FailureRollsBack(t *testing.T) {
	rec := newRecorder()
	rec.failRatings = true
	tx := &fakeTx{}
	s := New(rec.targets(), tx, zerolog.Nop())

	_, err := s.Apply(context.Background(), loadClinic(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if !tx.rolledBack {
		t.Error("expected the transaction to roll back")
	}
	if !strings.HasPrefix(err.Error(), "ratings[0]:") || !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("unexpected error %v", err)
	}
}

func TestApply_RefErrors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
		want    string
	}{
		{
			name:    "unknown ref",
			fixture: "patients:\n  - name: Ada\n    assignedTherapist: ghost\n",
			want:    `patients[0]: Invalid data provided: assignedTherapist: unknown ref "ghost"`,
		},
		{
			name:    "duplicate ref",
			fixture: "users:\n  - {ref: a, email: a@x.io, name: Ann, role: therapist}\n  - {ref: a, email: b@x.io, name: Bob, role: therapist}\n",
			want:    `users[1]: Invalid data provided: ref "a" is defined twice`,
		},
		{
			name:    "bad plan status",
			fixture: "plans:\n  - {status: archived}\n",
			want:    `plans[0]: Invalid data provided: status "archived" is not a plan status`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Load(strings.NewReader(tt.fixture))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			_, err = New(newRecorder().targets(), &fakeTx{}, zerolog.Nop()).Apply(context.Background(), f)
			if err == nil || err.Error() != tt.want {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestApply_LiteralIDsPassThrough(t *testing.T) {
	id := uuid.New()
	f, err := Load(strings.NewReader("sessions:\n  - {patient: " + id.String() + ", therapist: " + id.String() + ", date: \"2026-02-01T09:00:00Z\"}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rec := newRecorder()
	if _, err := New(rec.targets(), &fakeTx{}, zerolog.Nop()).Apply(context.Background(), f); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if rec.sessions[0].Patient != id {
		t.Errorf("expected literal id to be kept, got %s", rec.sessions[0].Patient)
	}
}

func TestLoad(t *testing.T) {
	if _, err := Load(strings.NewReader("clinics:\n  - name: Main\n")); err == nil {
		t.Error("expected unknown section to be rejected")
	}
	f, err := Load(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty fixture: %v", err)
	}
	if len(f.Users) != 0 {
		t.Errorf("expected empty fixture, got %+v", f)
	}
	if _, err := Load(strings.NewReader("users: [")); err == nil || !strings.Contains(err.Error(), "decode fixture") {
		t.Errorf("expected decode error, got %v", err)
	}
}
