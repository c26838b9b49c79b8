package oracle

import (
	"context"
	"fmt"

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/oci"
)

// Connection defaults applied to empty configuration fields.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 1521
	DefaultUser     = "root"
	DefaultDatabase = "public"
)

var defaults = sqldb.Conf{
	Host: DefaultHost,
	Port: DefaultPort,
	User: DefaultUser,
	DB:   DefaultDatabase,
}

// ConnectString renders the server attach string //host:port/database.
func ConnectString(host string, port int, database string) string {
	return fmt.Sprintf("//%s:%d/%s", host, port, database)
}

// session owns the five native handles of one authenticated connection.
// It is either disconnected (every handle zero) or connected (every handle
// set and the session begun); connect tears down whatever it built before
// returning an error.
type session struct {
	native oci.Native

	env  oci.Handle
	err  oci.Handle
	srv  oci.Handle
	svc  oci.Handle
	auth oci.Handle
}

func (s *session) connected() bool {
	return s.env != 0 && s.err != 0 && s.srv != 0 && s.svc != 0 && s.auth != 0
}

func (s *session) connect(ctx context.Context, conf sqldb.Conf) (err error) {
	if s.connected() {
		return nil
	}
	conf = conf.WithDefaults(defaults)
	n := s.native

	defer func() {
		if err != nil {
			logError("connect to %s failed: %v", ConnectString(conf.Host, conf.Port, conf.DB), err)
			s.disconnect()
		}
	}()

	env, st := n.EnvCreate(oci.ModeDefault)
	s.env = env
	if o := interpret(n, st, 0, StageEnvCreate); !o.Continuable() {
		return connectionError(o)
	}
	if s.err, err = s.alloc(oci.HTypeError, 0); err != nil {
		return err
	}
	if s.srv, err = s.alloc(oci.HTypeServer, s.err); err != nil {
		return err
	}

	dblink := ConnectString(conf.Host, conf.Port, conf.DB)
	st = n.ServerAttach(ctx, s.srv, s.err, dblink, oci.ModeDefault)
	if o := interpret(n, st, s.err, StageServerAttach); !o.Continuable() {
		return connectionError(o)
	}

	if s.svc, err = s.alloc(oci.HTypeSvcCtx, s.err); err != nil {
		return err
	}
	if err = s.set(s.svc, oci.HTypeSvcCtx, s.srv, oci.AttrServer); err != nil {
		return err
	}
	if s.auth, err = s.alloc(oci.HTypeSession, s.err); err != nil {
		return err
	}
	if err = s.set(s.auth, oci.HTypeSession, conf.User, oci.AttrUsername); err != nil {
		return err
	}
	if err = s.set(s.auth, oci.HTypeSession, conf.PW, oci.AttrPassword); err != nil {
		return err
	}

	st = n.SessionBegin(ctx, s.svc, s.err, s.auth, oci.CredRDBMS, oci.ModeDefault)
	if o := interpret(n, st, s.err, StageSessionBegin); !o.Continuable() {
		return connectionError(o)
	}
	if err = s.set(s.svc, oci.HTypeSvcCtx, s.auth, oci.AttrSession); err != nil {
		return err
	}
	logInfo("session begun on %s as %s", dblink, conf.User)
	return nil
}

func (s *session) alloc(htype oci.HandleType, errh oci.Handle) (oci.Handle, error) {
	h, st := s.native.HandleAlloc(s.env, htype)
	o := interpret(s.native, st, errh, StageHandleAlloc)
	if !o.Continuable() {
		return 0, connectionError(o)
	}
	return h, nil
}

func (s *session) set(target oci.Handle, htype oci.HandleType, value any, attr oci.Attr) error {
	st := s.native.AttrSet(target, htype, value, attr, s.err)
	if o := interpret(s.native, st, s.err, StageAttrSet); !o.Continuable() {
		return connectionError(o)
	}
	return nil
}

// disconnect ends the session, detaches, frees every held handle in reverse
// order of acquisition and terminates the library. Each step runs only when
// its handles are set, so it is safe on a partial or already closed session.
// It never fails; statuses are logged.
func (s *session) disconnect() {
	n := s.native
	held := s.env != 0 || s.err != 0 || s.srv != 0 || s.svc != 0 || s.auth != 0
	if !held {
		return
	}

	if s.svc != 0 && s.err != 0 && s.auth != 0 {
		interpret(n, n.SessionEnd(s.svc, s.err, s.auth, oci.ModeDefault), s.err, StageSessionEnd)
	}
	if s.srv != 0 && s.err != 0 {
		interpret(n, n.ServerDetach(s.srv, s.err, oci.ModeDefault), s.err, StageServerDetach)
	}

	s.free(&s.auth, oci.HTypeSession)
	s.free(&s.svc, oci.HTypeSvcCtx)
	s.free(&s.srv, oci.HTypeServer)
	s.free(&s.err, oci.HTypeError)
	s.free(&s.env, oci.HTypeEnv)

	// OCITerminate is process-wide; it runs even if other sessions remain open.
	interpret(n, n.Terminate(oci.ModeDefault), 0, StageTerminate)
	logInfo("session closed")
}

func (s *session) free(h *oci.Handle, htype oci.HandleType) {
	if *h == 0 {
		return
	}
	interpret(s.native, s.native.HandleFree(*h, htype), 0, StageHandleFree)
	*h = 0
}
