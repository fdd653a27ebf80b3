package assignment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &assignmentRepoPG{pool: pool}
}

const assignmentFrom = `assignments a
	JOIN patients p ON p.id = a.patient
	JOIN users t ON t.id = a.therapist`

const assignmentCols = `a.id, a.patient, a.therapist, a.supervisor, a.method, a.rationale, a.created_at, a.updated_at,
	p.name, t.name, t.email`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.Patient, &a.Therapist, &a.Supervisor, &a.Method, &a.Rationale, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.TherapistName, &a.TherapistEmail)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO assignments (id, patient, therapist, supervisor, method, rationale)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		a.ID, a.Patient, a.Therapist, a.Supervisor, a.Method, a.Rationale,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return db.ClassifyError(err, "Assignment")
}

var assignmentSearchParams = map[string]search.Param{
	"patient":   {Type: search.Ref, Column: "a.patient"},
	"therapist": {Type: search.Ref, Column: "a.therapist"},
	"method":    {Type: search.Exact, Column: "a.method"},
}

func (r *assignmentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Assignment, int, error) {
	q := search.NewQuery(assignmentFrom, assignmentCols)
	if err := q.ApplyAll(params, assignmentSearchParams); err != nil {
		return nil, 0, err
	}
	q.OrderBy("a.created_at DESC, a.id DESC")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "Assignment")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "Assignment")
	}
	defer rows.Close()
	items := []*Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, db.ClassifyError(err, "Assignment")
		}
		items = append(items, a)
	}
	return items, total, db.ClassifyError(rows.Err(), "Assignment")
}
