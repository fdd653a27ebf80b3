package progressreport

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &reportRepoPG{pool: pool}
}

const reportFrom = `progress_reports r
	JOIN patients p ON p.id = r.patient
	JOIN users t ON t.id = r.therapist`

const reportCols = `r.id, r.patient, r.therapist, r.session_count, r.metrics_summary, r.narrative, r.recommendation,
	r.submitted_at, r.reviewed_at, r.supervisor_feedback, r.created_at, r.updated_at, p.name, t.name`

func scanReport(row pgx.Row) (*ProgressReport, error) {
	var r ProgressReport
	err := row.Scan(&r.ID, &r.Patient, &r.Therapist, &r.SessionCount, &r.MetricsSummary, &r.Narrative, &r.Recommendation,
		&r.SubmittedAt, &r.ReviewedAt, &r.SupervisorFeedback, &r.CreatedAt, &r.UpdatedAt, &r.PatientName, &r.TherapistName)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *reportRepoPG) Create(ctx context.Context, r *ProgressReport) error {
	r.ID = uuid.New()
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO progress_reports (id, patient, therapist, session_count, metrics_summary, narrative,
			recommendation, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		r.ID, r.Patient, r.Therapist, r.SessionCount, r.MetricsSummary, r.Narrative, r.Recommendation, r.SubmittedAt,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	return db.ClassifyError(err, "Progress report")
}

func (s *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProgressReport, error) {
	r, err := scanReport(db.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM `+reportFrom+` WHERE r.id = $1`, id))
	return r, db.ClassifyError(err, "Progress report")
}

func (s *reportRepoPG) SaveReview(ctx context.Context, r *ProgressReport) error {
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		UPDATE progress_reports SET reviewed_at=$2, supervisor_feedback=$3, updated_at=NOW()
		WHERE id = $1 AND reviewed_at IS NULL
		RETURNING updated_at`,
		r.ID, r.ReviewedAt, r.SupervisorFeedback,
	).Scan(&r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errAlreadyReviewed
	}
	return db.ClassifyError(err, "Progress report")
}

var reportSearchParams = map[string]search.Param{
	"patient":   {Type: search.Ref, Column: "r.patient"},
	"therapist": {Type: search.Ref, Column: "r.therapist"},
	"reviewed":  {Type: search.NotNull, Column: "r.reviewed_at"},
}

func (s *reportRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ProgressReport, int, error) {
	q := search.NewQuery(reportFrom, reportCols)
	if err := q.ApplyAll(params, reportSearchParams); err != nil {
		return nil, 0, err
	}
	q.OrderBy("r.submitted_at DESC, r.id DESC")

	conn := db.Conn(ctx, s.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "Progress report")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "Progress report")
	}
	defer rows.Close()
	items := []*ProgressReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, db.ClassifyError(err, "Progress report")
		}
		items = append(items, r)
	}
	return items, total, db.ClassifyError(rows.Err(), "Progress report")
}
