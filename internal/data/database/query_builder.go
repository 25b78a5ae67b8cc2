// Package database builds parameterized SQL for filtered list queries.
package database

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5"
)

type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	ILike              ConditionType = "ILIKE"
	In                 ConditionType = "IN"
	NotIn              ConditionType = "NOT IN"
	defaultLimit                     = -1
)

type Condition struct {
	Field string
	Type  ConditionType
	Value any
}

func WhereCond(field string, condType ConditionType, value any) Condition {
	return Condition{Field: field, Type: condType, Value: value}
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Dir    string
}

type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    []Order
	Limit      int
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	options := &ListQueryOptions{
		Table: table,
		Limit: defaultLimit,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Columns = cols
	}
}

// WithCondition adds a single condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.Conditions = append(o.Conditions, cond)
	}
}

// WithOrderBy appends an ordering term; call it again for tie-breakers.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = append(o.OrderBy, Order{Column: column, Dir: direction})
	}
}

// WithLimit sets the limit. Zero and negative values mean no limit.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit > 0 {
			o.Limit = limit
		}
	}
}

// WithCountOnly sets the query to count only.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) {
		o.CountOnly = true
	}
}

// sanitizeIdentifier quotes a possibly qualified identifier like "table.column".
func sanitizeIdentifier(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

// BuildListQuery constructs a SQL query string and arguments from options, sanitizing identifiers.
//
// Example usage:
//
//	options := NewListQueryOptions("records",
//		WithColumns("id", "location"),
//		WithCondition(WhereCond("recorded_at", GreaterThanOrEqual, from)),
//		WithCondition(WhereCond("shift", Equal, "1")),
//		WithOrderBy("recorded_at", "DESC"),
//		WithOrderBy("id", "DESC"),
//		WithLimit(100),
//	)
//	query, args := BuildListQuery(options)
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}

	var query strings.Builder
	switch {
	case options.CountOnly:
		query.WriteString("SELECT COUNT(*) ")
	case len(options.Columns) == 0:
		query.WriteString("SELECT * ")
	default:
		cols := make([]string, len(options.Columns))
		for i, c := range options.Columns {
			cols[i] = sanitizeIdentifier(c)
		}
		query.WriteString("SELECT " + strings.Join(cols, ", ") + " ")
	}
	query.WriteString("FROM ")
	query.WriteString(sanitizeIdentifier(options.Table))

	whereClause, args := buildWhereClause(options.Conditions)
	if whereClause != "" {
		query.WriteString(" ")
		query.WriteString(whereClause)
	}
	if options.CountOnly {
		return query.String(), args
	}

	if len(options.OrderBy) > 0 {
		terms := make([]string, 0, len(options.OrderBy))
		for _, o := range options.OrderBy {
			term := sanitizeIdentifier(o.Column)
			if dir := strings.ToUpper(strings.TrimSpace(o.Dir)); dir == "ASC" || dir == "DESC" {
				term += " " + dir
			}
			terms = append(terms, term)
		}
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(terms, ", "))
	}
	if options.Limit != defaultLimit {
		args = append(args, options.Limit)
		query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return query.String(), args
}

// buildWhereClause generates the WHERE part of the query with sanitized fields and numbered parameters.
func buildWhereClause(conds []Condition) (string, []any) {
	parts := make([]string, 0, len(conds))
	var args []any
	for _, cond := range conds {
		if cond.Field == "" {
			continue
		}
		field := sanitizeIdentifier(cond.Field)
		switch cond.Type {
		case In, NotIn:
			rv := reflect.ValueOf(cond.Value)
			if rv.Kind() != reflect.Slice || rv.Len() == 0 {
				continue
			}
			placeholders := make([]string, rv.Len())
			for i := range rv.Len() {
				args = append(args, rv.Index(i).Interface())
				placeholders[i] = fmt.Sprintf("$%d", len(args))
			}
			parts = append(parts, fmt.Sprintf("%s %s (%s)", field, cond.Type, strings.Join(placeholders, ", ")))
		case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual, ILike:
			args = append(args, cond.Value)
			parts = append(parts, fmt.Sprintf("%s %s $%d", field, cond.Type, len(args)))
		}
	}
	if len(parts) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(parts, " AND "), args
}
