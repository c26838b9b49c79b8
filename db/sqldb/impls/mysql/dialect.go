package mysql

import (
	"strings"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

// Dialect renders INSERT ... ON DUPLICATE KEY UPDATE upserts.
// MySQL has no RETURNING clause, so returning is not rendered.
type Dialect struct{}

func (Dialect) BuildUpsert(table string, values []sqldb.ColumnValue, conflictColumn string, returning []string) (string, bool) {
	if !sqldb.HasColumn(values, conflictColumn) {
		return "", false
	}
	cols, vals := sqldb.SplitValues(values)
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != conflictColumn {
			sets = append(sets, c+" = VALUES("+c+")")
		}
	}
	if len(sets) == 0 {
		// no-op assignment keeps the existing row
		sets = append(sets, conflictColumn+" = "+conflictColumn)
	}
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(vals, ", "))
	b.WriteString(") ON DUPLICATE KEY UPDATE ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String(), true
}
