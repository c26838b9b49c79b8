package oracle

import (
	"context"

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/oci"
)

// execution is the materialized outcome of one statement.
type execution struct {
	stmtType oci.StmtType
	columns  []string
	rows     []sqldb.RowMap
	rowCount uint64 // rows processed, from the statement's row count
}

// execute prepares, executes and drains query on the session.
// The statement handle is released on every path out.
func (s *session) execute(ctx context.Context, query string) (*execution, error) {
	logInfo("SQL: %s", query)
	if !s.connected() {
		return nil, &StatementError{Stage: StageStmtPrepare, Err: ErrNotConnected}
	}
	n := s.native

	stmt, st := n.StmtPrepare2(s.svc, s.err, query, oci.NtvSyntax, oci.ModeDefault)
	if stmt != 0 {
		defer func() {
			interpret(n, n.StmtRelease(stmt, s.err, oci.ModeDefault), s.err, StageStmtRelease)
		}()
	}
	if o := interpret(n, st, s.err, StageStmtPrepare); !o.Continuable() {
		return nil, statementError(o)
	}

	stype, st := oci.AttrGetUint(n, stmt, oci.HTypeStmt, oci.AttrStmtType, s.err)
	if o := interpret(n, st, s.err, StageStmtGet); !o.Continuable() {
		return nil, statementError(o)
	}
	ex := &execution{stmtType: oci.StmtType(stype), rows: []sqldb.RowMap{}}

	// Queries fetch on demand; everything else runs once.
	var iters uint32 = 1
	if ex.stmtType == oci.StmtSelect {
		iters = 0
	}
	st = n.StmtExecute(ctx, s.svc, stmt, s.err, iters, 0, oci.ModeDefault)
	o := interpret(n, st, s.err, StageStmtExecute)
	if o.Kind == OutcomeNoData {
		return ex, nil
	}
	if !o.Continuable() {
		return nil, statementError(o)
	}

	fields, err := s.describe(stmt)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		ex.columns = append(ex.columns, f.name)
	}

	if ex.stmtType != oci.StmtSelect {
		ex.rowCount = s.rowCount(stmt)
		return ex, nil
	}

	for {
		st = n.StmtFetch2(ctx, stmt, s.err, 1, oci.FetchNext, 0, oci.ModeDefault)
		o = interpret(n, st, s.err, StageFetch)
		if o.Kind == OutcomeNoData {
			break
		}
		if !o.Continuable() {
			return nil, statementError(o)
		}
		row := make(sqldb.RowMap, len(fields))
		for _, f := range fields {
			row[f.name] = f.value()
		}
		ex.rows = append(ex.rows, row)
	}
	ex.rowCount = uint64(len(ex.rows))
	return ex, nil
}

// describe binds a field for every select-list position. There is no column
// count to ask for: positions are requested from 1 until the driver stops
// returning OCI_SUCCESS.
func (s *session) describe(stmt oci.Handle) ([]*field, error) {
	n := s.native
	var fields []*field
	for pos := uint32(1); ; pos++ {
		param, st := n.ParamGet(stmt, oci.HTypeStmt, s.err, pos)
		if st != oci.Success {
			logDebug("%s: %d columns, position %d reported %s", StageParamGet, len(fields), pos, st)
			return fields, nil
		}
		f, err := newField(n, stmt, s.err, param, pos)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
}

func (s *session) rowCount(stmt oci.Handle) uint64 {
	count, st := oci.AttrGetUint(s.native, stmt, oci.HTypeStmt, oci.AttrRowCount, s.err)
	if o := interpret(s.native, st, s.err, StageRowCount); !o.Continuable() {
		return 0
	}
	return count
}
