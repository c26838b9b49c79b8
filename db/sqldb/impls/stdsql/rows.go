package stdsql

import (
	"database/sql"
	"fmt"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

type Rows struct {
	rows    *sql.Rows
	columns []string
	kinds   []sqldb.ValueKind
}

// Ensure stdsql.Rows implements sqldb.Rows interface
var _ sqldb.Rows = (*Rows)(nil)

func NewRows(rows *sql.Rows) (*Rows, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	r := &Rows{rows: rows}
	r.describe(types)
	return r, nil
}

func (r *Rows) describe(types []*sql.ColumnType) {
	r.columns = make([]string, len(types))
	r.kinds = make([]sqldb.ValueKind, len(types))
	for i, t := range types {
		r.columns[i] = t.Name()
		r.kinds[i] = sqldb.KindForDatabaseType(t.DatabaseTypeName())
	}
}

func (r *Rows) Next() bool {
	return r.rows.Next()
}

func (r *Rows) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

// Map scans the current row into a RowMap.
func (r *Rows) Map() sqldb.RowMap {
	m, err := r.scanMap()
	if err != nil {
		return nil
	}
	return m
}

func (r *Rows) scanMap() (sqldb.RowMap, error) {
	raw := make([]any, len(r.columns))
	dest := make([]any, len(r.columns))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, err
	}
	m := make(sqldb.RowMap, len(r.columns))
	for i, col := range r.columns {
		m[col] = sqldb.Coerce(r.kinds[i], raw[i])
	}
	return m, nil
}

func (r *Rows) Columns() []string {
	return r.columns
}

func (r *Rows) Close() error {
	return r.rows.Close()
}

func (r *Rows) NextResultSet() bool {
	if !r.rows.NextResultSet() {
		return false
	}
	if types, err := r.rows.ColumnTypes(); err == nil {
		r.describe(types)
	}
	return true
}

func (r *Rows) Err() error {
	return r.rows.Err()
}

// Materialize drains rows into RowMaps and closes them.
// Values are folded into the sqldb value set by column type.
func Materialize(rows *sql.Rows) ([]string, []sqldb.RowMap, error) {
	r, err := NewRows(rows)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = r.Close() }()
	items := []sqldb.RowMap{}
	for r.Next() {
		m, err := r.scanMap()
		if err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}
		items = append(items, m)
	}
	if err := r.Err(); err != nil {
		return nil, nil, fmt.Errorf("error during iterating rows: %w", err)
	}
	return r.columns, items, nil
}
