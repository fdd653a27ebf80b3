package therapyplan

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type planRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &planRepoPG{pool: pool}
}

const planFrom = `therapy_plans tp
	JOIN patients p ON p.id = tp.patient
	JOIN users t ON t.id = tp.therapist`

const planCols = `tp.id, tp.patient, tp.therapist, tp.status, tp.goals, tp.activities, tp.notes, tp.attachments,
	tp.submitted_at, tp.reviewed_at, tp.supervisor_comments, tp.created_at, tp.updated_at,
	p.name, t.name, t.email`

func scanPlan(row pgx.Row) (*TherapyPlan, error) {
	var p TherapyPlan
	err := row.Scan(&p.ID, &p.Patient, &p.Therapist, &p.Status, &p.Goals, &p.Activities, &p.Notes, &p.Attachments,
		&p.SubmittedAt, &p.ReviewedAt, &p.SupervisorComments, &p.CreatedAt, &p.UpdatedAt,
		&p.PatientName, &p.TherapistName, &p.TherapistEmail)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func attachments(p *TherapyPlan) []string {
	if p.Attachments == nil {
		return []string{}
	}
	return p.Attachments
}

func (r *planRepoPG) Create(ctx context.Context, p *TherapyPlan) error {
	p.ID = uuid.New()
	p.Attachments = attachments(p)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO therapy_plans (id, patient, therapist, status, goals, activities, notes, attachments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.Patient, p.Therapist, p.Status, p.Goals, p.Activities, p.Notes, p.Attachments,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.ClassifyError(err, "Therapy plan")
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TherapyPlan, error) {
	p, err := scanPlan(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+planCols+` FROM `+planFrom+` WHERE tp.id = $1`, id))
	return p, db.ClassifyError(err, "Therapy plan")
}

func (r *planRepoPG) Update(ctx context.Context, p *TherapyPlan) error {
	p.Attachments = attachments(p)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE therapy_plans SET goals=$2, activities=$3, notes=$4, attachments=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Goals, p.Activities, p.Notes, p.Attachments,
	).Scan(&p.UpdatedAt)
	return db.ClassifyError(err, "Therapy plan")
}

func (r *planRepoPG) SaveTransition(ctx context.Context, p *TherapyPlan, from string) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE therapy_plans SET status=$2, submitted_at=$3, reviewed_at=$4, supervisor_comments=$5, updated_at=NOW()
		WHERE id = $1 AND status = $6
		RETURNING updated_at`,
		p.ID, p.Status, p.SubmittedAt, p.ReviewedAt, p.SupervisorComments, from,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Conflict("therapy plan changed status concurrently, reload and retry")
	}
	return db.ClassifyError(err, "Therapy plan")
}

var planSearchParams = map[string]search.Param{
	"patient":   {Type: search.Ref, Column: "tp.patient"},
	"therapist": {Type: search.Ref, Column: "tp.therapist"},
	"status":    {Type: search.Exact, Column: "tp.status"},
}

func (r *planRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*TherapyPlan, int, error) {
	q := search.NewQuery(planFrom, planCols)
	if err := q.ApplyAll(params, planSearchParams); err != nil {
		return nil, 0, err
	}
	q.OrderBy("tp.updated_at DESC, tp.id DESC")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "Therapy plan")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "Therapy plan")
	}
	defer rows.Close()
	items := []*TherapyPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, db.ClassifyError(err, "Therapy plan")
		}
		items = append(items, p)
	}
	return items, total, db.ClassifyError(rows.Err(), "Therapy plan")
}
