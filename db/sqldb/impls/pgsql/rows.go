package pgsql

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

type Rows struct {
	current pgx.Rows
	err     error
}

// Ensure pgsql.Rows implements sqldb.Rows
var _ sqldb.Rows = (*Rows)(nil)

func (r *Rows) Next() bool {
	return r.current.Next()
}

// Scan reads *bool destinations from SMALLINT columns, matching how
// sqldb.Literal renders booleans.
func (r *Rows) Scan(dest ...any) error {
	return scanWithBools(r.current.Scan, dest)
}

func (r *Rows) Map() sqldb.RowMap {
	values, err := r.current.Values()
	if err != nil {
		r.err = err
		return nil
	}
	fields := r.current.FieldDescriptions()
	m := make(sqldb.RowMap, len(fields))
	for i, f := range fields {
		m[f.Name] = convertValue(values[i])
	}
	return m
}

func (r *Rows) Columns() []string {
	fields := r.current.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return cols
}

func (r *Rows) Close() error {
	if r.current != nil {
		r.current.Close()
	}
	return nil
}

func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.current.Err()
}

func (r *Rows) NextResultSet() bool {
	return false
}

// convertValue folds a pgx decoded value into the sqldb value set.
func convertValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		if !x.Valid || x.NaN || x.InfinityModifier != pgtype.Finite || x.Int == nil {
			return nil
		}
		return decimal.NewFromBigInt(x.Int, x.Exp)
	case *pgtype.Numeric:
		if x == nil {
			return nil
		}
		return convertValue(*x)
	}
	return sqldb.Normalize(v)
}

func scanWithBools(scan func(dest ...any) error, dest []any) error {
	// first, scan to `int16`s instead of `bool`s
	raw := make([]any, len(dest))
	for i, d := range dest {
		switch d.(type) {
		case *bool:
			raw[i] = new(int16)
		default:
			raw[i] = d
		}
	}
	if err := scan(raw...); err != nil {
		return err
	}
	// fill dest with `bool` as `bool`
	for i, d := range dest {
		if v, ok := d.(*bool); ok {
			*v = *(raw[i].(*int16)) != 0
		}
	}
	return nil
}
