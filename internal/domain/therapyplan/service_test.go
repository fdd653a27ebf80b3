package therapyplan

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/casework/casework/internal/platform/apperr"
)

// -- Mock Repository --

type mockPlanRepo struct {
	store map[uuid.UUID]*TherapyPlan
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{store: make(map[uuid.UUID]*TherapyPlan)}
}

func (m *mockPlanRepo) Create(_ context.Context, p *TherapyPlan) error {
	p.ID = uuid.New()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPlanRepo) GetByID(_ context.Context, id uuid.UUID) (*TherapyPlan, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Therapy plan")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlanRepo) Update(_ context.Context, p *TherapyPlan) error {
	stored, ok := m.store[p.ID]
	if !ok {
		return apperr.NotFound("Therapy plan")
	}
	stored.Goals, stored.Activities, stored.Notes, stored.Attachments = p.Goals, p.Activities, p.Notes, p.Attachments
	return nil
}

func (m *mockPlanRepo) SaveTransition(_ context.Context, p *TherapyPlan, from string) error {
	stored, ok := m.store[p.ID]
	if !ok || stored.Status != from {
		return apperr.Conflict("therapy plan changed status concurrently, reload and retry")
	}
	stored.Status, stored.SubmittedAt, stored.ReviewedAt, stored.SupervisorComments = p.Status, p.SubmittedAt, p.ReviewedAt, p.SupervisorComments
	return nil
}

func (m *mockPlanRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*TherapyPlan, int, error) {
	var r []*TherapyPlan
	for _, p := range m.store {
		if s := params["status"]; s != "" && p.Status != s {
			continue
		}
		r = append(r, p)
	}
	return r, len(r), nil
}

func newTestService() (*Service, *mockPlanRepo) {
	repo := newMockPlanRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func newDraft(t *testing.T, svc *Service) *TherapyPlan {
	t.Helper()
	p := CreateRequest{
		Patient:   uuid.New(),
		Therapist: uuid.New(),
		Goals:     []Goal{{Title: " Improve eye contact ", Metric: "seconds"}},
	}.Plan()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

// -- Service Tests --

func TestCreatePlan_AlwaysDraft(t *testing.T) {
	svc, repo := newTestService()
	p := &TherapyPlan{Patient: uuid.New(), Therapist: uuid.New(), Status: StatusApproved}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.store[p.ID].Status != StatusDraft {
		t.Errorf("expected draft, got %q", repo.store[p.ID].Status)
	}
}

func TestCreatePlan_Validation(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Create(context.Background(), &TherapyPlan{Goals: []Goal{{Title: " "}}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := "Invalid data provided: patient is required; therapist is required; goals[0].title is required"
	if err.Error() != want {
		t.Errorf("unexpected error %q", err.Error())
	}
}

func TestSubmitThenApprove(t *testing.T) {
	svc, repo := newTestService()
	p := newDraft(t, svc)

	got, err := svc.Submit(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.Status != StatusSubmitted || got.SubmittedAt == nil {
		t.Errorf("unexpected plan after submit %+v", got)
	}

	got, err = svc.Review(context.Background(), p.ID, ReviewRequest{Decision: "approved", Comments: "ok"})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	stored := repo.store[p.ID]
	if stored.Status != StatusApproved || stored.ReviewedAt == nil || stored.SupervisorComments != "ok" {
		t.Errorf("unexpected stored plan %+v", stored)
	}
	if got.SubmittedAt == nil {
		t.Error("review must keep submittedAt")
	}
}

func TestRevisionCycle(t *testing.T) {
	svc, _ := newTestService()
	p := newDraft(t, svc)
	svc.Submit(context.Background(), p.ID)
	if _, err := svc.Review(context.Background(), p.ID, ReviewRequest{Decision: "needs_revision", Comments: "add targets"}); err != nil {
		t.Fatalf("review: %v", err)
	}
	got, err := svc.Submit(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if got.Status != StatusSubmitted {
		t.Errorf("expected resubmitted plan, got %q", got.Status)
	}
}

func TestInvalidTransitions(t *testing.T) {
	svc, _ := newTestService()
	p := newDraft(t, svc)

	if _, err := svc.Review(context.Background(), p.ID, ReviewRequest{Decision: "approved"}); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict reviewing a draft, got %v", err)
	}
	svc.Submit(context.Background(), p.ID)
	if _, err := svc.Submit(context.Background(), p.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict on double submit, got %v", err)
	}
	if _, err := svc.Review(context.Background(), p.ID, ReviewRequest{Decision: "draft"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error for bad decision, got %v", err)
	}
	if _, err := svc.Submit(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdatePlan_DoesNotTouchStatus(t *testing.T) {
	svc, repo := newTestService()
	p := newDraft(t, svc)
	svc.Submit(context.Background(), p.ID)

	notes := "updated notes"
	got, err := svc.Update(context.Background(), p.ID, UpdateRequest{Notes: &notes})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Notes != notes || repo.store[p.ID].Status != StatusSubmitted {
		t.Errorf("unexpected plan after update %+v", repo.store[p.ID])
	}
}
