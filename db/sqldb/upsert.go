package sqldb

import "strings"

// BuildInsertOnConflict renders the INSERT ... ON CONFLICT form shared by
// PostgreSQL and SQLite. When conflictColumn is the only column the row is
// left untouched on conflict.
func BuildInsertOnConflict(table string, values []ColumnValue, conflictColumn string, returning []string) (string, bool) {
	if !HasColumn(values, conflictColumn) {
		return "", false
	}
	cols, vals := SplitValues(values)
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(vals, ", "))
	b.WriteString(") ON CONFLICT (")
	b.WriteString(conflictColumn)
	b.WriteString(")")
	sets := make([]string, 0, len(values))
	for _, c := range cols {
		if c != conflictColumn {
			sets = append(sets, c+" = EXCLUDED."+c)
		}
	}
	if len(sets) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		b.WriteString(" DO UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}
	if len(returning) > 0 {
		b.WriteString(" RETURNING ")
		b.WriteString(strings.Join(returning, ", "))
	}
	return b.String(), true
}

// HasColumn reports whether column is among values.
func HasColumn(values []ColumnValue, column string) bool {
	for _, v := range values {
		if v.Column == column {
			return true
		}
	}
	return false
}

// SplitValues returns the columns and literals of values in order.
func SplitValues(values []ColumnValue) (cols, vals []string) {
	cols = make([]string, 0, len(values))
	vals = make([]string, 0, len(values))
	for _, v := range values {
		cols = append(cols, v.Column)
		vals = append(vals, v.Value)
	}
	return cols, vals
}
