package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &sessionRepoPG{pool: pool}
}

const sessionFrom = `sessions s
	JOIN patients p ON p.id = s.patient
	JOIN users t ON t.id = s.therapist`

const sessionCols = `s.id, s.patient, s.therapist, s.date, s.duration_min, s.activities, s.observations, s.outcomes,
	s.next_steps, s.created_at, s.updated_at, p.name, t.name`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.Patient, &s.Therapist, &s.Date, &s.DurationMin, &s.Activities, &s.Observations, &s.Outcomes,
		&s.NextSteps, &s.CreatedAt, &s.UpdatedAt, &s.PatientName, &s.TherapistName)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func activities(s *Session) []string {
	if s.Activities == nil {
		return []string{}
	}
	return s.Activities
}

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	s.Activities = activities(s)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO sessions (id, patient, therapist, date, duration_min, activities, observations, outcomes, next_steps)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		s.ID, s.Patient, s.Therapist, s.Date, s.DurationMin, s.Activities, s.Observations, s.Outcomes, s.NextSteps,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.ClassifyError(err, "Session")
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	s, err := scanSession(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM `+sessionFrom+` WHERE s.id = $1`, id))
	return s, db.ClassifyError(err, "Session")
}

func (r *sessionRepoPG) Update(ctx context.Context, s *Session) error {
	s.Activities = activities(s)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE sessions SET patient=$2, therapist=$3, date=$4, duration_min=$5, activities=$6, observations=$7,
			outcomes=$8, next_steps=$9, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		s.ID, s.Patient, s.Therapist, s.Date, s.DurationMin, s.Activities, s.Observations, s.Outcomes, s.NextSteps,
	).Scan(&s.UpdatedAt)
	return db.ClassifyError(err, "Session")
}

var sessionSearchParams = map[string]search.Param{
	"patient":   {Type: search.Ref, Column: "s.patient"},
	"therapist": {Type: search.Ref, Column: "s.therapist"},
}

// applyDateRange adds the inclusive from/to day bounds.
func applyDateRange(q *search.Query, params map[string]string) error {
	if v := params["from"]; v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.Validation("from must be a date in YYYY-MM-DD format")
		}
		q.Add(fmt.Sprintf("s.date >= $%d", q.Idx()), from)
	}
	if v := params["to"]; v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			return apperr.Validation("to must be a date in YYYY-MM-DD format")
		}
		q.Add(fmt.Sprintf("s.date < $%d", q.Idx()), to.AddDate(0, 0, 1))
	}
	return nil
}

func (r *sessionRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Session, int, error) {
	q := search.NewQuery(sessionFrom, sessionCols)
	if err := q.ApplyAll(params, sessionSearchParams); err != nil {
		return nil, 0, err
	}
	if err := applyDateRange(q, params); err != nil {
		return nil, 0, err
	}
	q.OrderBy("s.date DESC, s.id DESC")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "Session")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "Session")
	}
	defer rows.Close()
	items := []*Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, db.ClassifyError(err, "Session")
		}
		items = append(items, s)
	}
	return items, total, db.ClassifyError(rows.Err(), "Session")
}
