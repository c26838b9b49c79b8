// Package sqlnative implements oci.Native on top of database/sql.
//
// Handles are entries of a registry owned by the Native value. The server
// handle records the connect string, the session handle owns one *sql.Conn
// opened by SessionBegin, and statements keep their cursor between
// StmtExecute and the fetches that drain it. The default driver is the pure
// Go Oracle driver github.com/sijms/go-ora/v2; any other registered
// database/sql driver can stand in for it.
package sqlnative

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/zeptools/gw-oradb/db/sqldb/oci"
)

// DSNFunc builds the driver DSN for a session.
type DSNFunc func(link Link, user, password string) (string, error)

// Options configure a Native.
type Options struct {
	DriverName string
	DSN        DSNFunc

	// DataType maps the driver's column type name to an internal type code.
	// Nil means oci.DataTypeFor.
	DataType func(dbTypeName string) oci.DataType

	// DialListener makes ServerAttach dial host:port before reporting success.
	DialListener bool
	DialTimeout  time.Duration
}

// Native is safe for concurrent use; the handles it hands out are not.
type Native struct {
	opts Options

	mu      sync.Mutex
	next    oci.Handle
	objects map[oci.Handle]any
	envs    int
}

var _ oci.Native = (*Native)(nil)

func New(opts Options) *Native {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.DataType == nil {
		opts.DataType = oci.DataTypeFor
	}
	return &Native{opts: opts, objects: map[oci.Handle]any{}}
}

// NewOracle returns a Native backed by go-ora. A non-empty fixedDSN is used
// verbatim instead of a URL built from the connect string and credentials.
func NewOracle(fixedDSN string) *Native {
	return New(Options{
		DriverName:   "oracle",
		DSN:          oracleDSN(fixedDSN),
		DialListener: fixedDSN == "",
		DataType:     GoOraDataType,
	})
}

// go-ora names columns after its TNSType constants ("NCHAR" for VARCHAR2,
// "SB1" for integers), whose values are the server's type codes.
var goOraTypeCodes = sync.OnceValue(func() map[string]oci.DataType {
	codes := make(map[string]oci.DataType)
	for i := 0; i < 256; i++ {
		name := go_ora.TNSType(i).String()
		if strings.HasPrefix(name, "TNSType(") {
			continue
		}
		codes[name] = oci.DataType(i)
	}
	return codes
})

// GoOraDataType returns the type code for a go-ora column type name.
// Names go-ora does not define fall back to oci.DataTypeFor.
func GoOraDataType(dbTypeName string) oci.DataType {
	if code, ok := goOraTypeCodes()[dbTypeName]; ok {
		return code
	}
	return oci.DataTypeFor(dbTypeName)
}

func oracleDSN(fixedDSN string) DSNFunc {
	return func(link Link, user, password string) (string, error) {
		if fixedDSN != "" {
			return fixedDSN, nil
		}
		return go_ora.BuildUrl(link.Host, link.Port, link.Service, user, password, nil), nil
	}
}

// Link is a parsed "//host:port/service" connect string.
type Link struct {
	Host    string
	Port    int
	Service string
}

func (l Link) String() string {
	return "//" + net.JoinHostPort(l.Host, strconv.Itoa(l.Port)) + "/" + l.Service
}

func ParseLink(dblink string) (Link, error) {
	s, ok := strings.CutPrefix(dblink, "//")
	if !ok {
		return Link{}, fmt.Errorf("connect string %q must start with //", dblink)
	}
	hostport, service, _ := strings.Cut(s, "/")
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return Link{}, fmt.Errorf("connect string %q: %w", dblink, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Link{}, fmt.Errorf("connect string %q: invalid port %q", dblink, portStr)
	}
	return Link{Host: host, Port: port, Service: service}, nil
}

//---- handle objects ----

type envObj struct{}

type errObj struct {
	code int32
	msg  string
}

type serverObj struct {
	link     Link
	attached bool
}

type svcObj struct {
	server  oci.Handle
	session oci.Handle
}

type sessionObj struct {
	user     string
	password string
	db       *sql.DB
	conn     *sql.Conn
}

type stmtObj struct {
	svc      oci.Handle
	text     string
	stype    oci.StmtType
	rows     *sql.Rows
	cols     []*sql.ColumnType
	defines  map[uint32]*oci.Define
	params   []oci.Handle
	rowCount uint64
	executed bool
}

type paramObj struct {
	col *sql.ColumnType
}

func (n *Native) put(obj any) oci.Handle {
	n.next++
	n.objects[n.next] = obj
	return n.next
}

func get[T any](n *Native, h oci.Handle) (T, bool) {
	v, ok := n.objects[h].(T)
	return v, ok
}

var oraCode = regexp.MustCompile(`ORA-(\d{5})`)

// setError records err on the error handle and returns oci.Error.
func (n *Native) setError(errh oci.Handle, code int32, err error) oci.Status {
	msg := err.Error()
	if m := oraCode.FindStringSubmatch(msg); m != nil {
		if c, convErr := strconv.Atoi(m[1]); convErr == nil {
			code = int32(c)
		}
	}
	if !strings.HasPrefix(msg, "ORA-") {
		msg = fmt.Sprintf("ORA-%05d: %s", code, msg)
	}
	if e, ok := get[*errObj](n, errh); ok {
		e.code = code
		e.msg = msg
	}
	return oci.Error
}

//---- environment & handles ----

func (n *Native) EnvCreate(_ oci.Mode) (oci.Handle, oci.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.envs++
	return n.put(&envObj{}), oci.Success
}

func (n *Native) HandleAlloc(parent oci.Handle, htype oci.HandleType) (oci.Handle, oci.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := get[*envObj](n, parent); !ok {
		return 0, oci.InvalidHandle
	}
	switch htype {
	case oci.HTypeError:
		return n.put(&errObj{}), oci.Success
	case oci.HTypeServer:
		return n.put(&serverObj{}), oci.Success
	case oci.HTypeSvcCtx:
		return n.put(&svcObj{}), oci.Success
	case oci.HTypeSession:
		return n.put(&sessionObj{}), oci.Success
	default:
		return 0, oci.InvalidHandle
	}
}

func (n *Native) HandleFree(h oci.Handle, htype oci.HandleType) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	obj, ok := n.objects[h]
	if !ok {
		return oci.InvalidHandle
	}
	switch o := obj.(type) {
	case *envObj:
		if htype != oci.HTypeEnv {
			return oci.InvalidHandle
		}
		n.envs--
	case *sessionObj:
		if htype != oci.HTypeSession {
			return oci.InvalidHandle
		}
		o.close()
	case *stmtObj:
		if htype != oci.HTypeStmt {
			return oci.InvalidHandle
		}
		n.releaseStmt(h, o)
		return oci.Success
	}
	delete(n.objects, h)
	return oci.Success
}

// Terminate releases nothing. Every resource here is owned by a handle and
// goes with it, so one session's teardown cannot affect another session that
// shares this Native.
func (n *Native) Terminate(_ oci.Mode) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.envs > 0 {
		log.Printf("[INFO][sqlnative] terminate deferred: %d environment(s) still allocated", n.envs)
	}
	return oci.Success
}

//---- attributes & errors ----

func (n *Native) AttrSet(target oci.Handle, htype oci.HandleType, value any, attr oci.Attr, errh oci.Handle) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch htype {
	case oci.HTypeSvcCtx:
		svc, ok := get[*svcObj](n, target)
		if !ok {
			return oci.InvalidHandle
		}
		h, ok := value.(oci.Handle)
		if !ok {
			return oci.InvalidHandle
		}
		switch attr {
		case oci.AttrServer:
			if _, ok := get[*serverObj](n, h); !ok {
				return oci.InvalidHandle
			}
			svc.server = h
			return oci.Success
		case oci.AttrSession:
			if _, ok := get[*sessionObj](n, h); !ok {
				return oci.InvalidHandle
			}
			svc.session = h
			return oci.Success
		}
	case oci.HTypeSession:
		sess, ok := get[*sessionObj](n, target)
		if !ok {
			return oci.InvalidHandle
		}
		s, ok := value.(string)
		if !ok {
			return oci.InvalidHandle
		}
		switch attr {
		case oci.AttrUsername:
			sess.user = s
			return oci.Success
		case oci.AttrPassword:
			sess.password = s
			return oci.Success
		}
	}
	return n.setError(errh, 24315, fmt.Errorf("illegal attribute type %d for %s", attr, htype))
}

func (n *Native) AttrGet(target oci.Handle, htype oci.HandleType, attr oci.Attr, errh oci.Handle) (any, oci.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch htype {
	case oci.HTypeStmt:
		st, ok := get[*stmtObj](n, target)
		if !ok {
			return nil, oci.InvalidHandle
		}
		switch attr {
		case oci.AttrStmtType:
			return st.stype, oci.Success
		case oci.AttrRowCount:
			return st.rowCount, oci.Success
		}
	case oci.DTypeParam:
		p, ok := get[*paramObj](n, target)
		if !ok {
			return nil, oci.InvalidHandle
		}
		switch attr {
		case oci.AttrName:
			return p.col.Name(), oci.Success
		case oci.AttrDataType:
			return n.opts.DataType(p.col.DatabaseTypeName()), oci.Success
		case oci.AttrDataSize:
			return n.dataSize(p.col), oci.Success
		}
	}
	return nil, n.setError(errh, 24315, fmt.Errorf("illegal attribute type %d for %s", attr, htype))
}

func (n *Native) dataSize(col *sql.ColumnType) uint16 {
	if l, ok := col.Length(); ok && l > 0 {
		if l > 65535 {
			return 65535
		}
		return uint16(l)
	}
	switch n.opts.DataType(col.DatabaseTypeName()) {
	case oci.SQLTNum, oci.SQLTInt, oci.SQLTFlt:
		return 22
	case oci.SQLTDat:
		return 7
	case oci.SQLTTimestamp:
		return 11
	default:
		return 0
	}
}

func (n *Native) ErrorGet(errh oci.Handle, recordNo uint32) (int32, []byte, oci.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := get[*errObj](n, errh)
	if !ok {
		return 0, nil, oci.InvalidHandle
	}
	if recordNo != 1 || e.msg == "" {
		return 0, nil, oci.NoData
	}
	return e.code, []byte(e.msg), oci.Success
}

//---- server & session ----

func (n *Native) ServerAttach(ctx context.Context, srv, errh oci.Handle, dblink string, _ oci.Mode) oci.Status {
	link, err := ParseLink(dblink)
	if err != nil {
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.setError(errh, 12154, err)
	}
	if n.opts.DialListener {
		d := net.Dialer{Timeout: n.opts.DialTimeout}
		conn, dialErr := d.DialContext(ctx, "tcp", net.JoinHostPort(link.Host, strconv.Itoa(link.Port)))
		if dialErr != nil {
			n.mu.Lock()
			defer n.mu.Unlock()
			return n.setError(errh, 12541, fmt.Errorf("TNS:no listener: %w", dialErr))
		}
		_ = conn.Close()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := get[*serverObj](n, srv)
	if !ok {
		return oci.InvalidHandle
	}
	s.link = link
	s.attached = true
	return oci.Success
}

func (n *Native) ServerDetach(srv, _ oci.Handle, _ oci.Mode) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	s, ok := get[*serverObj](n, srv)
	if !ok || !s.attached {
		return oci.InvalidHandle
	}
	s.attached = false
	return oci.Success
}

func (n *Native) SessionBegin(ctx context.Context, svc, errh, usr oci.Handle, _ oci.Cred, _ oci.Mode) oci.Status {
	n.mu.Lock()
	sv, ok := get[*svcObj](n, svc)
	sess, ok2 := get[*sessionObj](n, usr)
	if !ok || !ok2 {
		n.mu.Unlock()
		return oci.InvalidHandle
	}
	server, ok := get[*serverObj](n, sv.server)
	if !ok || !server.attached {
		defer n.mu.Unlock()
		return n.setError(errh, 24327, fmt.Errorf("need explicit attach before authenticating a user"))
	}
	link, user, password := server.link, sess.user, sess.password
	n.mu.Unlock()

	db, conn, err := n.open(ctx, link, user, password)

	n.mu.Lock()
	defer n.mu.Unlock()
	if err != nil {
		return n.setError(errh, 1017, err)
	}
	sess.db = db
	sess.conn = conn
	return oci.Success
}

func (n *Native) open(ctx context.Context, link Link, user, password string) (*sql.DB, *sql.Conn, error) {
	dsn, err := n.opts.DSN(link, user, password)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(n.opts.DriverName, dsn)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, nil, err
	}
	return db, conn, nil
}

func (s *sessionObj) close() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}

func (n *Native) SessionEnd(svc, errh, usr oci.Handle, _ oci.Mode) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	sv, ok := get[*svcObj](n, svc)
	sess, ok2 := get[*sessionObj](n, usr)
	if !ok || !ok2 {
		return oci.InvalidHandle
	}
	if sess.conn == nil {
		return n.setError(errh, 3114, fmt.Errorf("not connected to ORACLE"))
	}
	sess.close()
	if sv.session == usr {
		sv.session = 0
	}
	return oci.Success
}

//---- statements ----

func (n *Native) conn(svc oci.Handle) (*sql.Conn, bool) {
	sv, ok := get[*svcObj](n, svc)
	if !ok {
		return nil, false
	}
	sess, ok := get[*sessionObj](n, sv.session)
	if !ok || sess.conn == nil {
		return nil, false
	}
	return sess.conn, true
}

func (n *Native) StmtPrepare2(svc, errh oci.Handle, text string, _ oci.Syntax, _ oci.Mode) (oci.Handle, oci.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := get[*svcObj](n, svc); !ok {
		return 0, oci.InvalidHandle
	}
	if _, ok := n.conn(svc); !ok {
		return 0, n.setError(errh, 3114, fmt.Errorf("not connected to ORACLE"))
	}
	if strings.TrimSpace(text) == "" {
		return 0, n.setError(errh, 900, fmt.Errorf("invalid SQL statement"))
	}
	return n.put(&stmtObj{
		svc:     svc,
		text:    text,
		stype:   oci.StmtTypeOf(text),
		defines: map[uint32]*oci.Define{},
	}), oci.Success
}

func (n *Native) StmtRelease(h, _ oci.Handle, _ oci.Mode) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := get[*stmtObj](n, h)
	if !ok {
		return oci.InvalidHandle
	}
	n.releaseStmt(h, st)
	return oci.Success
}

func (n *Native) releaseStmt(h oci.Handle, st *stmtObj) {
	if st.rows != nil {
		_ = st.rows.Close()
		st.rows = nil
	}
	for _, p := range st.params {
		delete(n.objects, p)
	}
	st.defines = nil
	delete(n.objects, h)
}

func isDML(t oci.StmtType) bool {
	switch t {
	case oci.StmtUpdate, oci.StmtDelete, oci.StmtInsert, oci.StmtMerge:
		return true
	default:
		return false
	}
}

// StmtExecute opens a cursor for queries. Other statements run immediately
// and a DML statement that touches no rows reports NoData.
func (n *Native) StmtExecute(ctx context.Context, svc, h, errh oci.Handle, iters, _ uint32, _ oci.Mode) oci.Status {
	n.mu.Lock()
	st, ok := get[*stmtObj](n, h)
	conn, connOK := n.conn(svc)
	if !ok || !connOK || st.svc != svc {
		n.mu.Unlock()
		return oci.InvalidHandle
	}
	if st.stype != oci.StmtSelect && iters == 0 {
		defer n.mu.Unlock()
		return n.setError(errh, 24333, fmt.Errorf("zero iteration count"))
	}
	if st.rows != nil {
		_ = st.rows.Close()
		st.rows = nil
	}
	text, stype := st.text, st.stype
	n.mu.Unlock()

	if stype == oci.StmtSelect {
		rows, err := conn.QueryContext(ctx, text)
		var cols []*sql.ColumnType
		if err == nil {
			cols, err = rows.ColumnTypes()
			if err != nil {
				_ = rows.Close()
			}
		}
		n.mu.Lock()
		defer n.mu.Unlock()
		if err != nil {
			return n.setError(errh, 0, err)
		}
		st.rows, st.cols, st.executed, st.rowCount = rows, cols, true, 0
		return oci.Success
	}

	res, err := conn.ExecContext(ctx, text)
	n.mu.Lock()
	defer n.mu.Unlock()
	if err != nil {
		return n.setError(errh, 0, err)
	}
	st.executed, st.cols = true, nil
	if affected, raErr := res.RowsAffected(); raErr == nil && affected > 0 {
		st.rowCount = uint64(affected)
	} else {
		st.rowCount = 0
	}
	if isDML(stype) && st.rowCount == 0 {
		return oci.NoData
	}
	return oci.Success
}

func (n *Native) ParamGet(h oci.Handle, _ oci.HandleType, errh oci.Handle, pos uint32) (oci.Handle, oci.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := get[*stmtObj](n, h)
	if !ok {
		return 0, oci.InvalidHandle
	}
	if !st.executed || pos < 1 || int(pos) > len(st.cols) {
		return 0, n.setError(errh, 24334, fmt.Errorf("no descriptor for this position"))
	}
	p := n.put(&paramObj{col: st.cols[pos-1]})
	st.params = append(st.params, p)
	return p, oci.Success
}

func (n *Native) DefineByPos(h, errh oci.Handle, pos uint32, def *oci.Define, _ oci.Mode) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := get[*stmtObj](n, h)
	if !ok || def == nil {
		return oci.InvalidHandle
	}
	if pos < 1 || int(pos) > len(st.cols) {
		return n.setError(errh, 1007, fmt.Errorf("variable not in select list"))
	}
	if def.DataType != oci.SQLTStr {
		return n.setError(errh, 932, fmt.Errorf("inconsistent datatypes: only SQLT_STR defines are supported"))
	}
	st.defines[pos] = def
	return oci.Success
}

func (n *Native) StmtFetch2(_ context.Context, h, errh oci.Handle, _ uint32, _ oci.FetchOrientation, _ int32, _ oci.Mode) oci.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	st, ok := get[*stmtObj](n, h)
	if !ok {
		return oci.InvalidHandle
	}
	if st.rows == nil {
		if st.executed {
			return oci.NoData
		}
		return n.setError(errh, 24374, fmt.Errorf("define not done before fetch or execute and fetch"))
	}
	if !st.rows.Next() {
		err := st.rows.Err()
		_ = st.rows.Close()
		st.rows = nil
		if err != nil {
			return n.setError(errh, 0, err)
		}
		return oci.NoData
	}
	raw := make([]any, len(st.cols))
	dest := make([]any, len(st.cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := st.rows.Scan(dest...); err != nil {
		return n.setError(errh, 0, err)
	}
	st.rowCount++
	status := oci.Success
	for pos, def := range st.defines {
		v := raw[pos-1]
		if v == nil {
			oci.WriteNull(def)
			continue
		}
		if oci.WriteText(def, render(v)) == oci.SuccessWithInfo {
			status = oci.SuccessWithInfo
		}
	}
	return status
}

// DateLayout is how DATE and TIMESTAMP values are rendered into text defines.
const DateLayout = "2006-01-02 15:04:05.999999999"

// render converts a driver value to the text the server would produce for an
// SQLT_STR define.
func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format(DateLayout)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
