package rating

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type ratingRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &ratingRepoPG{pool: pool}
}

const ratingFrom = `ratings r
	JOIN users t ON t.id = r.therapist
	JOIN users s ON s.id = r.supervisor`

const ratingCols = `r.id, r.therapist, r.supervisor, r.period, r.scores, r.comments, r.created_at, r.updated_at,
	t.name, s.name`

func scanRating(row pgx.Row) (*ClinicalRating, error) {
	var r ClinicalRating
	err := row.Scan(&r.ID, &r.Therapist, &r.Supervisor, &r.Period, &r.Scores, &r.Comments, &r.CreatedAt, &r.UpdatedAt,
		&r.TherapistName, &r.SupervisorName)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ratingRepoPG) Create(ctx context.Context, r *ClinicalRating) error {
	r.ID = uuid.New()
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO ratings (id, therapist, supervisor, period, scores, comments)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		r.ID, r.Therapist, r.Supervisor, r.Period, r.Scores, r.Comments,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	return db.ClassifyError(err, "Clinical rating")
}

func (s *ratingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalRating, error) {
	r, err := scanRating(db.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT `+ratingCols+` FROM `+ratingFrom+` WHERE r.id = $1`, id))
	return r, db.ClassifyError(err, "Clinical rating")
}

var ratingSearchParams = map[string]search.Param{
	"therapist":  {Type: search.Ref, Column: "r.therapist"},
	"supervisor": {Type: search.Ref, Column: "r.supervisor"},
	"period":     {Type: search.Exact, Column: "r.period"},
}

func (s *ratingRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ClinicalRating, int, error) {
	q := search.NewQuery(ratingFrom, ratingCols)
	if err := q.ApplyAll(params, ratingSearchParams); err != nil {
		return nil, 0, err
	}
	q.OrderBy("r.created_at DESC, r.id DESC")

	conn := db.Conn(ctx, s.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "Clinical rating")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "Clinical rating")
	}
	defer rows.Close()
	items := []*ClinicalRating{}
	for rows.Next() {
		r, err := scanRating(rows)
		if err != nil {
			return nil, 0, db.ClassifyError(err, "Clinical rating")
		}
		items = append(items, r)
	}
	return items, total, db.ClassifyError(rows.Err(), "Clinical rating")
}
