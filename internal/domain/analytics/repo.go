package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/db"
)

// Repository evaluates read-only report queries.
type Repository interface {
	Rows(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error)
	Count(ctx context.Context, sql string, args ...interface{}) (int64, error)
}

type pgRepo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

// Rows returns each result row as a column-name keyed map.
func (r *pgRepo) Rows(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, db.ClassifyError(err, "Report")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, db.ClassifyError(err, "Report")
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, db.ClassifyError(err, "Report")
	}
	return results, nil
}

func (r *pgRepo) Count(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	var n int64
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, db.ClassifyError(err, "Report")
	}
	return n, nil
}
