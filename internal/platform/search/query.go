// Package search builds the filtered, ordered, paginated SQL that every
// listing repository runs: one COUNT query for the total and one data query
// for the page.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/apperr"
)

type ParamType int

const (
	// Exact compares the column to the raw value.
	Exact ParamType = iota
	// Ref compares a UUID column; the value must parse as a UUID.
	Ref
	// Contains is a case-insensitive substring match.
	Contains
	// Bool matches true only for the literal "true".
	Bool
	// ArrayContains matches rows whose text[] column holds the lowercased value.
	ArrayContains
	// NotNull matches "true" to IS NOT NULL and anything else to IS NULL.
	NotNull
)

// Param maps a query-string parameter to a column.
type Param struct {
	Type   ParamType
	Column string
}

type Query struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

func NewQuery(table, cols string) *Query {
	return &Query{table: table, cols: cols, idx: 1}
}

// Add appends a WHERE fragment using placeholders starting at Idx().
func (q *Query) Add(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

func (q *Query) Idx() int { return q.idx }

func (q *Query) next(clause string, arg interface{}) {
	q.Add(fmt.Sprintf(clause, q.idx), arg)
}

// Apply adds the clause for one parameter. Empty values are ignored.
func (q *Query) Apply(name string, p Param, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	switch p.Type {
	case Exact:
		q.next(p.Column+" = $%d", value)
	case Ref:
		id, err := uuid.Parse(value)
		if err != nil {
			return apperr.InvalidID(name)
		}
		q.next(p.Column+" = $%d", id)
	case Contains:
		q.next(p.Column+" ILIKE '%%' || $%d || '%%'", escapeLike(value))
	case Bool:
		q.next(p.Column+" = $%d", value == "true")
	case ArrayContains:
		q.next("$%d = ANY("+p.Column+")", strings.ToLower(value))
	case NotNull:
		if value == "true" {
			q.where += " AND " + p.Column + " IS NOT NULL"
		} else {
			q.where += " AND " + p.Column + " IS NULL"
		}
	default:
		return fmt.Errorf("unknown search param type %d", p.Type)
	}
	return nil
}

// ApplyAll applies every known parameter in name order so the generated
// SQL is stable. Unknown parameters are ignored.
func (q *Query) ApplyAll(values map[string]string, params map[string]Param) error {
	names := make([]string, 0, len(values))
	for name := range values {
		if _, ok := params[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		if err := q.Apply(name, params[name], values[name]); err != nil {
			return err
		}
	}
	return nil
}

func (q *Query) OrderBy(orderBy string) { q.orderBy = orderBy }

func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

func (q *Query) CountArgs() []interface{} { return q.args }

func (q *Query) DataSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	return sql + fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
}

func (q *Query) DataArgs(limit, offset int) []interface{} {
	out := make([]interface{}, len(q.args), len(q.args)+2)
	copy(out, q.args)
	return append(out, limit, offset)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Values collects the first value of each query parameter, skipping the
// pagination controls.
func Values(c echo.Context) map[string]string {
	out := make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) == 0 || k == "limit" || k == "page" {
			continue
		}
		out[k] = v[0]
	}
	return out
}
