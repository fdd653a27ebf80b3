package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, external_id, email, name, role, specialties, availability, active,
	license_number, phone, department, hire_date, last_login_at, preferences,
	created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Role, &u.Specialties, &u.Availability, &u.Active,
		&u.LicenseNumber, &u.Phone, &u.Department, &u.HireDate, &u.LastLoginAt, &u.Preferences,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	if u.Specialties == nil {
		u.Specialties = []string{}
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (id, external_id, email, name, role, specialties, availability, active,
			license_number, phone, department, hire_date, preferences)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		u.ID, u.ExternalID, u.Email, u.Name, u.Role, u.Specialties, u.Availability, u.Active,
		u.LicenseNumber, u.Phone, u.Department, u.HireDate, u.Preferences,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return db.ClassifyError(err, "User")
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	return u, db.ClassifyError(err, "User")
}

func (r *userRepoPG) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	u, err := scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE external_id = $1`, externalID))
	return u, db.ClassifyError(err, "User")
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	if u.Specialties == nil {
		u.Specialties = []string{}
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE users SET name=$2, role=$3, specialties=$4, availability=$5, active=$6,
			license_number=$7, phone=$8, department=$9, preferences=$10, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, u.Role, u.Specialties, u.Availability, u.Active,
		u.LicenseNumber, u.Phone, u.Department, u.Preferences,
	).Scan(&u.UpdatedAt)
	return db.ClassifyError(err, "User")
}

func (r *userRepoPG) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return db.ClassifyError(err, "User")
}

var userSearchParams = map[string]search.Param{
	"role":      {Type: search.Exact, Column: "role"},
	"active":    {Type: search.Bool, Column: "active"},
	"q":         {Type: search.Contains, Column: "name"},
	"specialty": {Type: search.ArrayContains, Column: "specialties"},
}

func (r *userRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	q := search.NewQuery("users", userCols)
	if err := q.ApplyAll(params, userSearchParams); err != nil {
		return nil, 0, err
	}
	q.OrderBy("created_at DESC, id DESC")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "User")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "User")
	}
	items, err := collect(rows)
	return items, total, err
}

func (r *userRepoPG) ListActiveByRole(ctx context.Context, role string) ([]*User, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+userCols+` FROM users WHERE role = $1 AND active ORDER BY created_at ASC, id ASC`, role)
	if err != nil {
		return nil, db.ClassifyError(err, "User")
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*User, error) {
	defer rows.Close()
	items := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, db.ClassifyError(err, "User")
	}
	return items, nil
}

