package sqldb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RowMap is one fetched row keyed by column name.
// Values never alias driver buffers; see values.go for the value set.
type RowMap = map[string]any

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	NextResultSet() bool
	Columns() []string
	Map() RowMap // current row
}

type Row interface {
	Scan(dest ...any) error
}

type Result interface {
	RowsAffected() (int64, error)
	LastInsertId() (int64, error)
}

// MapRows iterates materialized rows in fetch order.
type MapRows struct {
	columns []string
	rows    []RowMap
	pos     int
	closed  bool
}

// Ensure MapRows implements Rows
var _ Rows = (*MapRows)(nil)

// NewMapRows wraps rows. columns gives the select-list order used by Scan.
func NewMapRows(columns []string, rows []RowMap) *MapRows {
	return &MapRows{columns: columns, rows: rows}
}

func (r *MapRows) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *MapRows) current() (RowMap, error) {
	if r.closed {
		return nil, fmt.Errorf("sqldb: rows are closed")
	}
	if r.pos == 0 || r.pos > len(r.rows) {
		return nil, fmt.Errorf("sqldb: Scan called without a successful Next")
	}
	return r.rows[r.pos-1], nil
}

// Scan assigns the current row's values, in column order, to dest.
func (r *MapRows) Scan(dest ...any) error {
	row, err := r.current()
	if err != nil {
		return err
	}
	if len(dest) != len(r.columns) {
		return fmt.Errorf("sqldb: expected %d destination arguments in Scan, not %d", len(r.columns), len(dest))
	}
	for i, col := range r.columns {
		if err := assign(dest[i], row[col]); err != nil {
			return fmt.Errorf("sqldb: Scan column %d (%q): %w", i, col, err)
		}
	}
	return nil
}

func (r *MapRows) Map() RowMap {
	row, err := r.current()
	if err != nil {
		return nil
	}
	return row
}

func (r *MapRows) Columns() []string {
	return r.columns
}

func (r *MapRows) Close() error {
	r.closed = true
	return nil
}

func (r *MapRows) Err() error {
	return nil
}

func (r *MapRows) NextResultSet() bool {
	return false
}

// All returns every row regardless of the iterator position.
func (r *MapRows) All() []RowMap {
	return r.rows
}

type mapRow struct {
	rows Rows
	err  error
}

// NewRow returns a Row that scans the first row of rows, or reports err.
func NewRow(rows Rows, err error) Row {
	return &mapRow{rows: rows, err: err}
}

func (r *mapRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer func() { _ = r.rows.Close() }()
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return err
		}
		return ErrNoRows
	}
	return r.rows.Scan(dest...)
}

// assign stores a row value into a Scan destination.
func assign(dest any, v any) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(scannerValue(v))
	}
	switch d := dest.(type) {
	case *any:
		*d = v
		return nil
	}
	if v == nil {
		return fmt.Errorf("converting NULL to %T is unsupported", dest)
	}
	switch d := dest.(type) {
	case *string:
		switch x := v.(type) {
		case string:
			*d = x
		case decimal.Decimal:
			*d = x.String()
		case time.Time:
			*d = x.Format(time.RFC3339Nano)
		default:
			*d = fmt.Sprint(x)
		}
		return nil
	case *int64:
		return assignInt(v, d)
	case *int:
		var i int64
		if err := assignInt(v, &i); err != nil {
			return err
		}
		*d = int(i)
		return nil
	case *float64:
		switch x := v.(type) {
		case decimal.Decimal:
			*d = x.InexactFloat64()
		case int64:
			*d = float64(x)
		case string:
			dec, ok := ParseDecimal(x)
			if !ok {
				return fmt.Errorf("converting %q to float64", x)
			}
			*d = dec.InexactFloat64()
		default:
			return fmt.Errorf("unsupported conversion from %T to float64", v)
		}
		return nil
	case *decimal.Decimal:
		switch x := v.(type) {
		case decimal.Decimal:
			*d = x
		case int64:
			*d = decimal.NewFromInt(x)
		case string:
			dec, ok := ParseDecimal(x)
			if !ok {
				return fmt.Errorf("converting %q to decimal", x)
			}
			*d = dec
		default:
			return fmt.Errorf("unsupported conversion from %T to decimal", v)
		}
		return nil
	case *time.Time:
		switch x := v.(type) {
		case time.Time:
			*d = x
		case string:
			t, ok := ParseTimestamp(x)
			if !ok {
				return fmt.Errorf("converting %q to time.Time", x)
			}
			*d = t
		default:
			return fmt.Errorf("unsupported conversion from %T to time.Time", v)
		}
		return nil
	case *bool:
		var i int64
		if err := assignInt(v, &i); err != nil {
			return err
		}
		*d = i != 0
		return nil
	default:
		return fmt.Errorf("unsupported Scan destination %T", dest)
	}
}

func assignInt(v any, d *int64) error {
	switch x := v.(type) {
	case int64:
		*d = x
	case decimal.Decimal:
		if !x.IsInteger() {
			return fmt.Errorf("converting %s to integer loses precision", x)
		}
		*d = x.IntPart()
	case string:
		i, ok := ParseInteger(x)
		if !ok {
			return fmt.Errorf("converting %q to integer", x)
		}
		*d = i
	default:
		return fmt.Errorf("unsupported conversion from %T to integer", v)
	}
	return nil
}

// scannerValue converts a row value to a driver.Value for sql.Scanner targets.
func scannerValue(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return v
}
