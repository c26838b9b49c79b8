package sqldb

import (
	"context"
	"fmt"
	"strings"
)

// ColumnValue pairs a column with an already-rendered SQL literal.
type ColumnValue struct {
	Column string
	Value  string
}

// UpsertBuilder synthesizes an insert-or-update statement for one database type.
// ok is false when the statement cannot be built, e.g. the conflict column
// is not among values.
type UpsertBuilder interface {
	BuildUpsert(table string, values []ColumnValue, conflictColumn string, returning []string) (sql string, ok bool)
}

// UpsertFunc adapts a function to UpsertBuilder.
type UpsertFunc func(table string, values []ColumnValue, conflictColumn string, returning []string) (string, bool)

func (f UpsertFunc) BuildUpsert(table string, values []ColumnValue, conflictColumn string, returning []string) (string, bool) {
	return f(table, values, conflictColumn, returning)
}

// Query describes a single-table statement. Upserts are synthesized by Delegate.
type Query struct {
	Table          string
	Values         []ColumnValue
	ConflictColumn string
	Returning      []string
	Columns        []Column // select list; empty means *
	Where          string   // raw condition, without WHERE
	Orders         []OrderBy
	Delegate       UpsertBuilder
}

func NewQuery(table string, delegate UpsertBuilder) *Query {
	return &Query{Table: table, Delegate: delegate}
}

// Set appends a column and its rendered literal. A repeated column replaces the earlier value.
func (q *Query) Set(column, literal string) *Query {
	for i := range q.Values {
		if q.Values[i].Column == column {
			q.Values[i].Value = literal
			return q
		}
	}
	q.Values = append(q.Values, ColumnValue{Column: column, Value: literal})
	return q
}

// SetValue renders v with Literal and sets it.
func (q *Query) SetValue(column string, v any) (*Query, error) {
	lit, err := Literal(v)
	if err != nil {
		return q, fmt.Errorf("column %s: %w", column, err)
	}
	return q.Set(column, lit), nil
}

func (q *Query) OnConflict(column string) *Query {
	q.ConflictColumn = column
	return q
}

func (q *Query) ReturnColumns(columns ...string) *Query {
	q.Returning = append(q.Returning, columns...)
	return q
}

func (q *Query) Select(columns ...Column) *Query {
	q.Columns = append(q.Columns, columns...)
	return q
}

func (q *Query) Filter(cond string) *Query {
	q.Where = cond
	return q
}

func (q *Query) OrderBy(orders ...OrderBy) *Query {
	q.Orders = append(q.Orders, orders...)
	return q
}

func (q *Query) validate(op string) error {
	if !IsIdentifier(q.Table) {
		return &ConfigurationError{Op: op, Msg: fmt.Sprintf("invalid table name %q", q.Table)}
	}
	for _, v := range q.Values {
		if !IsIdentifier(v.Column) {
			return &ConfigurationError{Op: op, Msg: fmt.Sprintf("invalid column name %q", v.Column)}
		}
	}
	return nil
}

// UpsertSQL asks the delegate for the upsert statement.
func (q *Query) UpsertSQL() (string, error) {
	if err := q.validate("upsert"); err != nil {
		return "", err
	}
	if q.Delegate == nil {
		return "", &ConfigurationError{Op: "upsert", Msg: "no upsert builder for query"}
	}
	if len(q.Values) == 0 {
		return "", &ConfigurationError{Op: "upsert", Msg: "no values"}
	}
	stmt, ok := q.Delegate.BuildUpsert(q.Table, q.Values, q.ConflictColumn, q.Returning)
	if !ok {
		return "", &ConfigurationError{
			Op:  "upsert",
			Msg: fmt.Sprintf("conflict column %q is not among the values of %s", q.ConflictColumn, q.Table),
		}
	}
	return stmt, nil
}

// SelectSQL renders SELECT <columns> FROM <table> [WHERE ...] [ORDER BY ...].
func (q *Query) SelectSQL() (string, error) {
	if err := q.validate("select"); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	}
	for i, c := range q.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name())
	}
	b.WriteString(" FROM ")
	b.WriteString(q.Table)
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	b.WriteString(OrderByClause(q.Orders))
	return b.String(), nil
}

// Upsert synthesizes q and runs it on h.
func Upsert(ctx context.Context, h Handle, q *Query) ([]RowMap, error) {
	stmt, err := q.UpsertSQL()
	if err != nil {
		return nil, err
	}
	return h.ExecuteQueryString(ctx, stmt)
}
