package mssql

import (
	"strings"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

// Dialect renders T-SQL MERGE upserts. returning becomes an OUTPUT clause.
type Dialect struct{}

func (Dialect) BuildUpsert(table string, values []sqldb.ColumnValue, conflictColumn string, returning []string) (string, bool) {
	if !sqldb.HasColumn(values, conflictColumn) {
		return "", false
	}
	selects := make([]string, 0, len(values))
	cols := make([]string, 0, len(values))
	sources := make([]string, 0, len(values))
	sets := make([]string, 0, len(values))
	for _, v := range values {
		selects = append(selects, v.Value+" AS "+v.Column)
		cols = append(cols, v.Column)
		sources = append(sources, "source."+v.Column)
		if v.Column != conflictColumn {
			sets = append(sets, v.Column+" = source."+v.Column)
		}
	}
	var b strings.Builder
	b.WriteString("MERGE INTO ")
	b.WriteString(table)
	b.WriteString(" AS target USING (SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(") AS source ON (target.")
	b.WriteString(conflictColumn)
	b.WriteString(" = source.")
	b.WriteString(conflictColumn)
	b.WriteString(")")
	if len(sets) > 0 {
		b.WriteString(" WHEN MATCHED THEN UPDATE SET ")
		b.WriteString(strings.Join(sets, ", "))
	}
	b.WriteString(" WHEN NOT MATCHED THEN INSERT (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(sources, ", "))
	b.WriteString(")")
	if len(returning) > 0 {
		outs := make([]string, len(returning))
		for i, r := range returning {
			outs[i] = "inserted." + r
		}
		b.WriteString(" OUTPUT ")
		b.WriteString(strings.Join(outs, ", "))
	}
	// MERGE must be terminated
	b.WriteString(";")
	return b.String(), true
}
