// Package analytics serves the supervisor dashboard: a fixed catalogue of
// SQL reports evaluated over a relative time range.
package analytics

import (
	"strings"
	"time"

	"github.com/casework/casework/internal/platform/apperr"
)

// Param selects the value bound to $1 of a query.
type Param int

const (
	ParamNone Param = iota
	ParamSince
	ParamOverdueCutoff
)

// OverdueAfter is how long a submitted plan or report may wait for review.
const OverdueAfter = 7 * 24 * time.Hour

type Query struct {
	Key   string
	SQL   string
	Param Param
}

// Definition is one entry in the report catalogue.
type Definition struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Ranged      bool    `json:"ranged"`
	Queries     []Query `json:"-"`
}

const (
	ReportCaseload    = "caseload"
	ReportApproval    = "approval"
	ReportOverdue     = "overdue"
	ReportSessions    = "sessions"
	ReportPerformance = "performance"
	ReportProgress    = "progress"
	ReportSummary     = "summary"
)

var Definitions = []Definition{
	{
		ID:          ReportCaseload,
		Name:        "Therapist Caseload",
		Description: "Active caseload and weekly slots per active therapist",
		Queries: []Query{{Key: "therapists", SQL: `
SELECT u.id::text AS "therapistId", u.name AS "therapistName",
       COALESCE((u.availability->>'weeklySlots')::int, 0) AS "weeklySlots",
       COUNT(p.id) AS "activeCaseload"
FROM users u
LEFT JOIN patients p ON p.assigned_therapist = u.id AND p.case_status = 'active'
WHERE u.role = 'therapist' AND u.active
GROUP BY u.id, u.name, u.availability
ORDER BY "activeCaseload" DESC, u.name`}},
	},
	{
		ID:          ReportApproval,
		Name:        "Plan Approval Turnaround",
		Description: "Hours between plan submission and review, and plans by status",
		Ranged:      true,
		Queries: []Query{
			{Key: "turnaround", Param: ParamSince, SQL: `
SELECT COUNT(*) AS "reviewed",
       COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (reviewed_at - submitted_at)) / 3600)::numeric, 2)::float8, 0) AS "avgHours",
       COALESCE(ROUND(MIN(EXTRACT(EPOCH FROM (reviewed_at - submitted_at)) / 3600)::numeric, 2)::float8, 0) AS "minHours",
       COALESCE(ROUND(MAX(EXTRACT(EPOCH FROM (reviewed_at - submitted_at)) / 3600)::numeric, 2)::float8, 0) AS "maxHours"
FROM therapy_plans
WHERE submitted_at IS NOT NULL AND reviewed_at IS NOT NULL AND reviewed_at >= $1`},
			{Key: "byStatus", Param: ParamSince, SQL: `
SELECT status, COUNT(*) AS "count"
FROM therapy_plans
WHERE updated_at >= $1
GROUP BY status
ORDER BY status`},
		},
	},
	{
		ID:          ReportOverdue,
		Name:        "Overdue Reviews",
		Description: "Plans and progress reports waiting more than 7 days for review",
		Queries: []Query{
			{Key: "plans", Param: ParamOverdueCutoff, SQL: `
SELECT tp.id::text AS "planId", p.name AS "patientName", u.name AS "therapistName",
       tp.submitted_at AS "submittedAt",
       FLOOR(EXTRACT(EPOCH FROM (NOW() - tp.submitted_at)) / 86400)::int AS "daysPending"
FROM therapy_plans tp
JOIN patients p ON p.id = tp.patient
JOIN users u ON u.id = tp.therapist
WHERE tp.status = 'submitted' AND tp.submitted_at < $1
ORDER BY tp.submitted_at`},
			{Key: "reports", Param: ParamOverdueCutoff, SQL: `
SELECT r.id::text AS "reportId", p.name AS "patientName", u.name AS "therapistName",
       r.submitted_at AS "submittedAt",
       FLOOR(EXTRACT(EPOCH FROM (NOW() - r.submitted_at)) / 86400)::int AS "daysPending"
FROM progress_reports r
JOIN patients p ON p.id = r.patient
JOIN users u ON u.id = r.therapist
WHERE r.reviewed_at IS NULL AND r.submitted_at < $1
ORDER BY r.submitted_at`},
		},
	},
	{
		ID:          ReportSessions,
		Name:        "Session Volume",
		Description: "Session count and average duration per therapist",
		Ranged:      true,
		Queries: []Query{{Key: "therapists", Param: ParamSince, SQL: `
SELECT u.id::text AS "therapistId", u.name AS "therapistName",
       COUNT(s.id) AS "sessionCount",
       COALESCE(ROUND(AVG(s.duration_min)::numeric, 1)::float8, 0) AS "avgDurationMin"
FROM sessions s
JOIN users u ON u.id = s.therapist
WHERE s.date >= $1
GROUP BY u.id, u.name
ORDER BY "sessionCount" DESC, u.name`}},
	},
	{
		ID:          ReportPerformance,
		Name:        "Therapist Performance",
		Description: "Average clinical rating score and rating count per therapist",
		Ranged:      true,
		Queries: []Query{{Key: "therapists", Param: ParamSince, SQL: `
SELECT u.id::text AS "therapistId", u.name AS "therapistName",
       COUNT(DISTINCT r.id) AS "ratingCount",
       COALESCE(ROUND(AVG(v.value::float8)::numeric, 2)::float8, 0) AS "avgScore"
FROM ratings r
JOIN users u ON u.id = r.therapist
LEFT JOIN LATERAL jsonb_each_text(r.scores) AS v(key, value) ON TRUE
WHERE r.created_at >= $1
GROUP BY u.id, u.name
ORDER BY "avgScore" DESC, u.name`}},
	},
	{
		ID:          ReportProgress,
		Name:        "Patient Progress",
		Description: "Progress reports by recommendation and metric trend",
		Ranged:      true,
		Queries: []Query{
			{Key: "byRecommendation", Param: ParamSince, SQL: `
SELECT COALESCE(NULLIF(recommendation, ''), 'none') AS "recommendation", COUNT(*) AS "count"
FROM progress_reports
WHERE submitted_at >= $1
GROUP BY 1
ORDER BY "count" DESC, 1`},
			{Key: "byTrend", Param: ParamSince, SQL: `
SELECT COALESCE(NULLIF(m->>'trend', ''), 'unknown') AS "trend", COUNT(*) AS "count"
FROM progress_reports r
CROSS JOIN LATERAL jsonb_array_elements(r.metrics_summary) AS m
WHERE r.submitted_at >= $1
GROUP BY 1
ORDER BY "count" DESC, 1`},
		},
	},
	{
		ID:          ReportSummary,
		Name:        "Dashboard Summary",
		Description: "Headline counts for the supervisor dashboard",
		Ranged:      true,
		Queries: []Query{
			{Key: "activePatients", SQL: `SELECT COUNT(*) FROM patients WHERE case_status = 'active'`},
			{Key: "unassignedPatients", SQL: `SELECT COUNT(*) FROM patients WHERE case_status = 'active' AND assigned_therapist IS NULL`},
			{Key: "activeTherapists", SQL: `SELECT COUNT(*) FROM users WHERE role = 'therapist' AND active`},
			{Key: "pendingPlans", SQL: `SELECT COUNT(*) FROM therapy_plans WHERE status = 'submitted'`},
			{Key: "pendingReports", SQL: `SELECT COUNT(*) FROM progress_reports WHERE reviewed_at IS NULL`},
			{Key: "overduePlans", Param: ParamOverdueCutoff, SQL: `SELECT COUNT(*) FROM therapy_plans WHERE status = 'submitted' AND submitted_at < $1`},
			{Key: "sessions", Param: ParamSince, SQL: `SELECT COUNT(*) FROM sessions WHERE date >= $1`},
			{Key: "assignments", Param: ParamSince, SQL: `SELECT COUNT(*) FROM assignments WHERE created_at >= $1`},
		},
	},
}

// Find returns the definition with the given id, or nil.
func Find(id string) *Definition {
	for i := range Definitions {
		if Definitions[i].ID == id {
			return &Definitions[i]
		}
	}
	return nil
}

func reportIDs() []string {
	ids := make([]string, len(Definitions))
	for i, d := range Definitions {
		ids[i] = d.ID
	}
	return ids
}

// Range names accepted by the range query parameter.
const (
	RangeLastWeek    = "last-week"
	RangeLastMonth   = "last-month"
	RangeLastQuarter = "last-quarter"
	RangeLastYear    = "last-year"
)

var rangeNames = []string{RangeLastWeek, RangeLastMonth, RangeLastQuarter, RangeLastYear}

// Since returns the start of the named range ending at now. An empty name
// means last-month.
func Since(name string, now time.Time) (time.Time, error) {
	switch name {
	case RangeLastWeek:
		return now.AddDate(0, 0, -7), nil
	case "", RangeLastMonth:
		return now.AddDate(0, -1, 0), nil
	case RangeLastQuarter:
		return now.AddDate(0, -3, 0), nil
	case RangeLastYear:
		return now.AddDate(-1, 0, 0), nil
	}
	return time.Time{}, apperr.Validation("range must be one of " + strings.Join(rangeNames, ", "))
}
