// Package ocimock provides an in-memory oci.Native for tests.
// Results are scripted per SQL text and any call can be forced to fail.
package ocimock

import (
	"context"
	"fmt"

	"github.com/zeptools/gw-oradb/db/sqldb/oci"
)

// Column describes one select-list item of a scripted result.
type Column struct {
	Name string
	Type oci.DataType
	Size uint16
}

// Result scripts what a SQL text produces.
type Result struct {
	Columns []Column
	Rows    [][]any // string values or nil for NULL

	StmtType     oci.StmtType // zero classifies the text with oci.StmtTypeOf
	ExecStatus   oci.Status   // non-zero overrides the StmtExecute status
	FetchErrorAt int          // 1-based fetch call that fails with OCI_ERROR
	RowCount     uint64
}

// Mock is not safe for concurrent use.
type Mock struct {
	Results map[string]*Result

	// Fail forces a status for a call. Keys are method names, with the
	// handle type appended for HandleAlloc/HandleFree ("HandleAlloc:SERVER").
	Fail map[string]oci.Status

	// ErrCode and ErrMsg are reported by ErrorGet after a forced failure.
	ErrCode int32
	ErrMsg  string

	Calls      []string
	Freed      []oci.HandleType
	Terminated int
	LastDBLink string
	Username   string
	Password   string

	next    oci.Handle
	live    map[oci.Handle]oci.HandleType
	stmts   map[oci.Handle]*stmt
	params  map[oci.Handle]Column
	lastErr map[oci.Handle]errRecord
}

type stmt struct {
	text     string
	result   *Result
	executed bool
	fetched  int
	defines  map[uint32]*oci.Define
	params   []oci.Handle
}

type errRecord struct {
	code int32
	msg  string
}

var _ oci.Native = (*Mock)(nil)

func New() *Mock {
	return &Mock{
		Results: map[string]*Result{},
		Fail:    map[string]oci.Status{},
		ErrCode: 1,
		ErrMsg:  "forced failure",
		live:    map[oci.Handle]oci.HandleType{},
		stmts:   map[oci.Handle]*stmt{},
		params:  map[oci.Handle]Column{},
		lastErr: map[oci.Handle]errRecord{},
	}
}

// Live returns the number of handles allocated and not yet freed.
func (m *Mock) Live() int {
	return len(m.live)
}

// LiveStmts returns the number of statements not yet released.
func (m *Mock) LiveStmts() int {
	return len(m.stmts)
}

func (m *Mock) record(name string) (oci.Status, bool) {
	m.Calls = append(m.Calls, name)
	st, ok := m.Fail[name]
	return st, ok
}

func (m *Mock) forced(errh oci.Handle, st oci.Status) oci.Status {
	if st == oci.Error {
		m.lastErr[errh] = errRecord{code: m.ErrCode, msg: m.ErrMsg}
	}
	return st
}

func (m *Mock) fail(errh oci.Handle, code int32, format string, args ...any) oci.Status {
	m.lastErr[errh] = errRecord{code: code, msg: fmt.Sprintf(format, args...)}
	return oci.Error
}

func (m *Mock) alloc(htype oci.HandleType) oci.Handle {
	m.next++
	m.live[m.next] = htype
	return m.next
}

func (m *Mock) isLive(h oci.Handle, htype oci.HandleType) bool {
	t, ok := m.live[h]
	return ok && t == htype
}

func (m *Mock) EnvCreate(_ oci.Mode) (oci.Handle, oci.Status) {
	if st, ok := m.record("EnvCreate"); ok {
		return 0, st
	}
	return m.alloc(oci.HTypeEnv), oci.Success
}

func (m *Mock) HandleAlloc(parent oci.Handle, htype oci.HandleType) (oci.Handle, oci.Status) {
	if st, ok := m.record("HandleAlloc:" + htype.String()); ok {
		return 0, st
	}
	if !m.isLive(parent, oci.HTypeEnv) {
		return 0, oci.InvalidHandle
	}
	return m.alloc(htype), oci.Success
}

func (m *Mock) HandleFree(h oci.Handle, htype oci.HandleType) oci.Status {
	if st, ok := m.record("HandleFree:" + htype.String()); ok {
		return st
	}
	if !m.isLive(h, htype) {
		return oci.InvalidHandle
	}
	delete(m.live, h)
	delete(m.lastErr, h)
	m.Freed = append(m.Freed, htype)
	return oci.Success
}

func (m *Mock) Terminate(_ oci.Mode) oci.Status {
	m.record("Terminate")
	m.Terminated++
	return oci.Success
}

func (m *Mock) AttrSet(target oci.Handle, htype oci.HandleType, value any, attr oci.Attr, errh oci.Handle) oci.Status {
	if st, ok := m.record(fmt.Sprintf("AttrSet:%d", attr)); ok {
		return m.forced(errh, st)
	}
	if !m.isLive(target, htype) {
		return oci.InvalidHandle
	}
	switch attr {
	case oci.AttrUsername:
		m.Username, _ = value.(string)
	case oci.AttrPassword:
		m.Password, _ = value.(string)
	case oci.AttrServer, oci.AttrSession:
		h, ok := value.(oci.Handle)
		if !ok || m.live[h] == 0 {
			return oci.InvalidHandle
		}
	}
	return oci.Success
}

func (m *Mock) AttrGet(target oci.Handle, htype oci.HandleType, attr oci.Attr, errh oci.Handle) (any, oci.Status) {
	if st, ok := m.record(fmt.Sprintf("AttrGet:%d", attr)); ok {
		return nil, m.forced(errh, st)
	}
	switch htype {
	case oci.HTypeStmt:
		s, ok := m.stmts[target]
		if !ok {
			return nil, oci.InvalidHandle
		}
		switch attr {
		case oci.AttrStmtType:
			if s.result.StmtType != oci.StmtUnknown {
				return s.result.StmtType, oci.Success
			}
			return oci.StmtTypeOf(s.text), oci.Success
		case oci.AttrRowCount:
			if s.result.RowCount > 0 {
				return s.result.RowCount, oci.Success
			}
			return uint64(s.fetched), oci.Success
		}
	case oci.DTypeParam:
		col, ok := m.params[target]
		if !ok {
			return nil, oci.InvalidHandle
		}
		switch attr {
		case oci.AttrName:
			return col.Name, oci.Success
		case oci.AttrDataType:
			return col.Type, oci.Success
		case oci.AttrDataSize:
			return col.Size, oci.Success
		}
	}
	return nil, m.fail(errh, 24315, "ORA-24315: illegal attribute type")
}

// ErrorGet returns the message in a NUL-padded 512-byte buffer, as the C API does.
func (m *Mock) ErrorGet(errh oci.Handle, _ uint32) (int32, []byte, oci.Status) {
	m.record("ErrorGet")
	rec, ok := m.lastErr[errh]
	if !ok {
		return 0, nil, oci.NoData
	}
	buf := make([]byte, 512)
	copy(buf[:511], rec.msg)
	return rec.code, buf, oci.Success
}

func (m *Mock) ServerAttach(_ context.Context, srv, errh oci.Handle, dblink string, _ oci.Mode) oci.Status {
	m.LastDBLink = dblink
	if st, ok := m.record("ServerAttach"); ok {
		return m.forced(errh, st)
	}
	if !m.isLive(srv, oci.HTypeServer) {
		return oci.InvalidHandle
	}
	return oci.Success
}

func (m *Mock) ServerDetach(srv, errh oci.Handle, _ oci.Mode) oci.Status {
	if st, ok := m.record("ServerDetach"); ok {
		return m.forced(errh, st)
	}
	if !m.isLive(srv, oci.HTypeServer) {
		return oci.InvalidHandle
	}
	return oci.Success
}

func (m *Mock) SessionBegin(_ context.Context, svc, errh, usr oci.Handle, _ oci.Cred, _ oci.Mode) oci.Status {
	if st, ok := m.record("SessionBegin"); ok {
		return m.forced(errh, st)
	}
	if !m.isLive(svc, oci.HTypeSvcCtx) || !m.isLive(usr, oci.HTypeSession) {
		return oci.InvalidHandle
	}
	return oci.Success
}

func (m *Mock) SessionEnd(svc, errh, usr oci.Handle, _ oci.Mode) oci.Status {
	if st, ok := m.record("SessionEnd"); ok {
		return m.forced(errh, st)
	}
	if !m.isLive(svc, oci.HTypeSvcCtx) || !m.isLive(usr, oci.HTypeSession) {
		return oci.InvalidHandle
	}
	return oci.Success
}

func (m *Mock) StmtPrepare2(svc, errh oci.Handle, text string, _ oci.Syntax, _ oci.Mode) (oci.Handle, oci.Status) {
	if st, ok := m.record("StmtPrepare2"); ok {
		return 0, m.forced(errh, st)
	}
	if !m.isLive(svc, oci.HTypeSvcCtx) {
		return 0, oci.InvalidHandle
	}
	res, ok := m.Results[text]
	if !ok {
		return 0, m.fail(errh, 942, "ORA-00942: table or view does not exist")
	}
	h := m.alloc(oci.HTypeStmt)
	m.stmts[h] = &stmt{text: text, result: res, defines: map[uint32]*oci.Define{}}
	return h, oci.Success
}

func (m *Mock) StmtRelease(h, errh oci.Handle, _ oci.Mode) oci.Status {
	if st, ok := m.record("StmtRelease"); ok {
		return m.forced(errh, st)
	}
	s, ok := m.stmts[h]
	if !ok {
		return oci.InvalidHandle
	}
	for _, p := range s.params {
		delete(m.params, p)
		delete(m.live, p)
	}
	delete(m.stmts, h)
	delete(m.live, h)
	return oci.Success
}

func (m *Mock) StmtExecute(_ context.Context, svc, h, errh oci.Handle, iters, _ uint32, _ oci.Mode) oci.Status {
	if st, ok := m.record(fmt.Sprintf("StmtExecute:%d", iters)); ok {
		return m.forced(errh, st)
	}
	s, ok := m.stmts[h]
	if !ok || !m.isLive(svc, oci.HTypeSvcCtx) {
		return oci.InvalidHandle
	}
	stype := s.result.StmtType
	if stype == oci.StmtUnknown {
		stype = oci.StmtTypeOf(s.text)
	}
	if stype != oci.StmtSelect && iters == 0 {
		return m.fail(errh, 24333, "ORA-24333: zero iteration count")
	}
	s.executed = true
	if s.result.ExecStatus != 0 {
		if s.result.ExecStatus == oci.Error {
			return m.forced(errh, oci.Error)
		}
		return s.result.ExecStatus
	}
	return oci.Success
}

func (m *Mock) ParamGet(h oci.Handle, _ oci.HandleType, errh oci.Handle, pos uint32) (oci.Handle, oci.Status) {
	if st, ok := m.record(fmt.Sprintf("ParamGet:%d", pos)); ok {
		return 0, m.forced(errh, st)
	}
	s, ok := m.stmts[h]
	if !ok {
		return 0, oci.InvalidHandle
	}
	if !s.executed || pos < 1 || int(pos) > len(s.result.Columns) {
		return 0, m.fail(errh, 24334, "ORA-24334: no descriptor for this position")
	}
	p := m.alloc(oci.DTypeParam)
	m.params[p] = s.result.Columns[pos-1]
	s.params = append(s.params, p)
	return p, oci.Success
}

func (m *Mock) DefineByPos(h, errh oci.Handle, pos uint32, def *oci.Define, _ oci.Mode) oci.Status {
	if st, ok := m.record(fmt.Sprintf("DefineByPos:%d", pos)); ok {
		return m.forced(errh, st)
	}
	s, ok := m.stmts[h]
	if !ok {
		return oci.InvalidHandle
	}
	if pos < 1 || int(pos) > len(s.result.Columns) {
		return m.fail(errh, 1007, "ORA-01007: variable not in select list")
	}
	s.defines[pos] = def
	return oci.Success
}

func (m *Mock) StmtFetch2(_ context.Context, h, errh oci.Handle, _ uint32, _ oci.FetchOrientation, _ int32, _ oci.Mode) oci.Status {
	if st, ok := m.record("StmtFetch2"); ok {
		return m.forced(errh, st)
	}
	s, ok := m.stmts[h]
	if !ok {
		return oci.InvalidHandle
	}
	if !s.executed {
		return m.fail(errh, 24374, "ORA-24374: define not done before fetch or execute and fetch")
	}
	if s.result.FetchErrorAt > 0 && s.fetched+1 == s.result.FetchErrorAt {
		return m.forced(errh, oci.Error)
	}
	if s.fetched >= len(s.result.Rows) {
		return oci.NoData
	}
	row := s.result.Rows[s.fetched]
	s.fetched++
	status := oci.Success
	for pos, def := range s.defines {
		var v any
		if int(pos) <= len(row) {
			v = row[pos-1]
		}
		if v == nil {
			oci.WriteNull(def)
			continue
		}
		if oci.WriteText(def, fmt.Sprint(v)) == oci.SuccessWithInfo {
			status = oci.SuccessWithInfo
		}
	}
	return status
}
