package oracle

import (
	"strings"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

// Dialect synthesizes Oracle statements for sqldb.Query.
type Dialect struct{}

var _ sqldb.UpsertBuilder = Dialect{}

func (Dialect) BuildUpsert(table string, values []sqldb.ColumnValue, conflictColumn string, returning []string) (string, bool) {
	return BuildUpsert(table, values, conflictColumn, returning)
}

// BuildUpsert renders an insert-or-update of one row keyed on conflictColumn:
//
//	MERGE INTO t USING DUAL ON (c = v) WHEN NOT MATCHED THEN INSERT (cols) VALUES (vals) WHEN MATCHED THEN UPDATE SET col=val, ...
//
// Values are SQL literals and are emitted verbatim in the given order.
// It reports false when conflictColumn is not among values.
// returning is accepted and ignored; no RETURNING clause is emitted.
func BuildUpsert(table string, values []sqldb.ColumnValue, conflictColumn string, returning []string) (string, bool) {
	if !sqldb.HasColumn(values, conflictColumn) {
		return "", false
	}
	cols, vals := sqldb.SplitValues(values)
	var conflictValue string
	keyed := false
	sets := make([]string, 0, len(values))
	for i, c := range cols {
		if c != conflictColumn {
			sets = append(sets, c+"="+vals[i])
		} else if !keyed {
			conflictValue, keyed = vals[i], true
		}
	}

	var b strings.Builder
	b.WriteString("MERGE INTO ")
	b.WriteString(table)
	b.WriteString(" USING DUAL ON (")
	b.WriteString(conflictColumn)
	b.WriteString(" = ")
	b.WriteString(conflictValue)
	b.WriteString(") WHEN NOT MATCHED THEN INSERT (")
	b.WriteString(strings.Join(cols, ","))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(vals, ","))
	b.WriteString(")")
	// Oracle rejects an empty SET list.
	if len(sets) > 0 {
		b.WriteString(" WHEN MATCHED THEN UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}
	return b.String(), true
}
