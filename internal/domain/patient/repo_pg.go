package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casework/casework/internal/platform/db"
	"github.com/casework/casework/internal/platform/search"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

const patientFrom = `patients p
	LEFT JOIN users t ON t.id = p.assigned_therapist
	LEFT JOIN users s ON s.id = p.supervisor`

const patientCols = `p.id, p.name, p.dob, p.contact, p.diagnoses, p.tags, p.assigned_therapist, p.supervisor,
	p.case_status, p.priority, p.notes, p.last_session_date, p.next_appointment, p.created_at, p.updated_at,
	t.name, t.email, s.name, s.email`

func scanPatient(row pgx.Row) (*Patient, error) {
	var (
		p             Patient
		dob           time.Time
		tName, tEmail *string
		sName, sEmail *string
	)
	err := row.Scan(&p.ID, &p.Name, &dob, &p.Contact, &p.Diagnoses, &p.Tags, &p.AssignedTherapist, &p.Supervisor,
		&p.CaseStatus, &p.Priority, &p.Notes, &p.LastSessionDate, &p.NextAppointment, &p.CreatedAt, &p.UpdatedAt,
		&tName, &tEmail, &sName, &sEmail)
	if err != nil {
		return nil, err
	}
	p.DOB = Date{dob}
	p.TherapistInfo = ref(p.AssignedTherapist, tName, tEmail)
	p.SupervisorInfo = ref(p.Supervisor, sName, sEmail)
	return &p, nil
}

func ref(id *uuid.UUID, name, email *string) *UserRef {
	if id == nil || name == nil {
		return nil
	}
	r := &UserRef{ID: *id, Name: *name}
	if email != nil {
		r.Email = *email
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.Diagnoses, p.Tags = nonNil(p.Diagnoses), nonNil(p.Tags)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patients (id, name, dob, contact, diagnoses, tags, assigned_therapist, supervisor,
			case_status, priority, notes, last_session_date, next_appointment)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.DOB.Time, p.Contact, p.Diagnoses, p.Tags, p.AssignedTherapist, p.Supervisor,
		p.CaseStatus, p.Priority, p.Notes, p.LastSessionDate, p.NextAppointment,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.ClassifyError(err, "Patient")
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM `+patientFrom+` WHERE p.id = $1`, id))
	return p, db.ClassifyError(err, "Patient")
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient, reassign bool) error {
	p.Diagnoses, p.Tags = nonNil(p.Diagnoses), nonNil(p.Tags)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patients SET name=$2, dob=$3, contact=$4, diagnoses=$5, tags=$6,
			assigned_therapist = CASE WHEN $14 THEN $7 ELSE assigned_therapist END,
			supervisor=$8, case_status=$9, priority=$10, notes=$11, last_session_date=$12,
			next_appointment=$13, updated_at=NOW()
		WHERE id = $1
		RETURNING assigned_therapist, updated_at`,
		p.ID, p.Name, p.DOB.Time, p.Contact, p.Diagnoses, p.Tags, p.AssignedTherapist,
		p.Supervisor, p.CaseStatus, p.Priority, p.Notes, p.LastSessionDate, p.NextAppointment, reassign,
	).Scan(&p.AssignedTherapist, &p.UpdatedAt)
	return db.ClassifyError(err, "Patient")
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return db.ClassifyError(err, "Patient")
	}
	if tag.RowsAffected() == 0 {
		return db.ClassifyError(pgx.ErrNoRows, "Patient")
	}
	return nil
}

var patientSearchParams = map[string]search.Param{
	"q":          {Type: search.Contains, Column: "p.name"},
	"status":     {Type: search.Exact, Column: "p.case_status"},
	"priority":   {Type: search.Exact, Column: "p.priority"},
	"therapist":  {Type: search.Ref, Column: "p.assigned_therapist"},
	"supervisor": {Type: search.Ref, Column: "p.supervisor"},
	"tag":        {Type: search.ArrayContains, Column: "p.tags"},
}

func (r *patientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	q := search.NewQuery(patientFrom, patientCols)
	if err := q.ApplyAll(params, patientSearchParams); err != nil {
		return nil, 0, err
	}
	q.OrderBy("p.updated_at DESC, p.id DESC")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, db.ClassifyError(err, "Patient")
	}
	rows, err := conn.Query(ctx, q.DataSQL(), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, db.ClassifyError(err, "Patient")
	}
	defer rows.Close()
	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, db.ClassifyError(err, "Patient")
		}
		items = append(items, p)
	}
	return items, total, db.ClassifyError(rows.Err(), "Patient")
}

func (r *patientRepoPG) CountActiveCaseload(ctx context.Context, therapistID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE assigned_therapist = $1 AND case_status = 'active'`, therapistID,
	).Scan(&n)
	return n, db.ClassifyError(err, "Patient")
}

func (r *patientRepoPG) SetAssignedTherapist(ctx context.Context, patientID, therapistID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE patients SET assigned_therapist = $2, updated_at = NOW() WHERE id = $1`, patientID, therapistID)
	if err != nil {
		return db.ClassifyError(err, "Patient")
	}
	if tag.RowsAffected() == 0 {
		return db.ClassifyError(pgx.ErrNoRows, "Patient")
	}
	return nil
}
