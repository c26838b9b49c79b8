package sqlnative_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/impls/oracle"
	"github.com/zeptools/gw-oradb/db/sqldb/oci"
	"github.com/zeptools/gw-oradb/db/sqldb/oci/sqlnative"
)

func sqliteNative(path string) *sqlnative.Native {
	return sqlnative.New(sqlnative.Options{
		DriverName: "sqlite3",
		DSN: func(_ sqlnative.Link, _, _ string) (string, error) {
			return path, nil
		},
	})
}

var _ = Describe("Native over sqlite", func() {
	var (
		ctx context.Context
		dir string
		n   *sqlnative.Native
		c   *oracle.Client
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dir, err = os.MkdirTemp("", "sqlnative")
		Expect(err).ToNot(HaveOccurred())
		n = sqliteNative(filepath.Join(dir, "test.db"))
		c = oracle.NewClient(&sqldb.Conf{Host: "localhost", DB: "main"}, n)
		Expect(c.Open(ctx)).To(Succeed())

		for _, stmt := range []string{
			"CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT, balance DECIMAL(10,2), opened DATETIME)",
			"INSERT INTO accounts (id, name, balance, opened) VALUES (1, 'Bob', 100.5, '2024-01-02 03:04:05')",
			"INSERT INTO accounts (id, name, balance, opened) VALUES (2, NULL, 7, NULL)",
		} {
			_, err = c.ExecuteQueryString(ctx, stmt)
			Expect(err).ToNot(HaveOccurred())
		}
	})

	AfterEach(func() {
		Expect(c.Close()).To(Succeed())
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("should materialize typed rows", func() {
		rows, err := c.ExecuteQueryString(ctx, "SELECT id, name, balance, opened FROM accounts ORDER BY id")
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(2))

		Expect(rows[0]["id"]).To(Equal(int64(1)))
		Expect(rows[0]["name"]).To(Equal("Bob"))
		Expect(rows[0]["balance"].(decimal.Decimal).String()).To(Equal("100.5"))
		Expect(rows[0]["opened"].(time.Time).Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))).To(BeTrue())

		Expect(rows[1]["name"]).To(BeNil())
		Expect(rows[1]["opened"]).To(BeNil())
		Expect(rows[1]["balance"].(decimal.Decimal).IntPart()).To(Equal(int64(7)))
	})

	It("should report affected rows and no data", func() {
		res, err := c.Exec(ctx, "UPDATE accounts SET balance = 0")
		Expect(err).ToNot(HaveOccurred())
		Expect(res.RowsAffected()).To(Equal(int64(2)))

		rows, err := c.ExecuteQueryString(ctx, "UPDATE accounts SET balance = 1 WHERE id = -1")
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})

	It("should return an empty slice for an empty result", func() {
		rows, err := c.ExecuteQueryString(ctx, "SELECT id FROM accounts WHERE id > 100")
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})

	It("should surface driver errors as statement errors", func() {
		_, err := c.ExecuteQueryString(ctx, "SELECT * FROM missing")
		var se *oracle.StatementError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.Stage).To(Equal(oracle.StageStmtExecute))
		var fe *oracle.FatalNativeError
		Expect(errors.As(err, &fe)).To(BeTrue())
		Expect(fe.Message).To(ContainSubstring("no such table"))
	})

	It("should scan through the handle", func() {
		var name string
		var balance float64
		Expect(c.QueryRow(ctx, "SELECT name, balance FROM accounts WHERE id = 1").Scan(&name, &balance)).To(Succeed())
		Expect(name).To(Equal("Bob"))
		Expect(balance).To(Equal(100.5))
	})

	It("should free every handle on close", func() {
		Expect(c.Close()).To(Succeed())
		Expect(c.Connected()).To(BeFalse())
		_, err := c.ExecuteQueryString(ctx, "SELECT id FROM accounts")
		Expect(err).To(MatchError(oracle.ErrNotConnected))
	})
})

var _ = Describe("Native protocol", func() {
	var (
		ctx  context.Context
		dir  string
		n    *sqlnative.Native
		env  oci.Handle
		errh oci.Handle
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dir, err = os.MkdirTemp("", "sqlnative")
		Expect(err).ToNot(HaveOccurred())
		n = sqliteNative(filepath.Join(dir, "p.db"))
		var st oci.Status
		env, st = n.EnvCreate(oci.ModeDefault)
		Expect(st).To(Equal(oci.Success))
		errh, st = n.HandleAlloc(env, oci.HTypeError)
		Expect(st).To(Equal(oci.Success))
	})

	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	connect := func() (srv, svc, usr oci.Handle) {
		srv, _ = n.HandleAlloc(env, oci.HTypeServer)
		Expect(n.ServerAttach(ctx, srv, errh, "//localhost:1521/main", oci.ModeDefault)).To(Equal(oci.Success))
		svc, _ = n.HandleAlloc(env, oci.HTypeSvcCtx)
		Expect(n.AttrSet(svc, oci.HTypeSvcCtx, srv, oci.AttrServer, errh)).To(Equal(oci.Success))
		usr, _ = n.HandleAlloc(env, oci.HTypeSession)
		Expect(n.AttrSet(usr, oci.HTypeSession, "u", oci.AttrUsername, errh)).To(Equal(oci.Success))
		Expect(n.SessionBegin(ctx, svc, errh, usr, oci.CredRDBMS, oci.ModeDefault)).To(Equal(oci.Success))
		Expect(n.AttrSet(svc, oci.HTypeSvcCtx, usr, oci.AttrSession, errh)).To(Equal(oci.Success))
		return
	}

	It("should reject zero iterations for commands", func() {
		_, svc, usr := connect()
		stmt, st := n.StmtPrepare2(svc, errh, "CREATE TABLE t (a INTEGER)", oci.NtvSyntax, oci.ModeDefault)
		Expect(st).To(Equal(oci.Success))
		Expect(n.StmtExecute(ctx, svc, stmt, errh, 0, 0, oci.ModeDefault)).To(Equal(oci.Error))
		code, msg, st := n.ErrorGet(errh, 1)
		Expect(st).To(Equal(oci.Success))
		Expect(code).To(Equal(int32(24333)))
		Expect(string(msg)).To(HavePrefix("ORA-24333"))
		Expect(n.StmtRelease(stmt, errh, oci.ModeDefault)).To(Equal(oci.Success))
		Expect(n.SessionEnd(svc, errh, usr, oci.ModeDefault)).To(Equal(oci.Success))
	})

	It("should stop describing past the last column and require text defines", func() {
		_, svc, _ := connect()
		stmt, _ := n.StmtPrepare2(svc, errh, "SELECT 1 AS a, 'x' AS b", oci.NtvSyntax, oci.ModeDefault)
		Expect(n.StmtExecute(ctx, svc, stmt, errh, 0, 0, oci.ModeDefault)).To(Equal(oci.Success))
		_, st := n.ParamGet(stmt, oci.HTypeStmt, errh, 2)
		Expect(st).To(Equal(oci.Success))
		_, st = n.ParamGet(stmt, oci.HTypeStmt, errh, 3)
		Expect(st).To(Equal(oci.Error))

		def := &oci.Define{Buf: make([]byte, 16), DataType: oci.SQLTInt}
		Expect(n.DefineByPos(stmt, errh, 1, def, oci.ModeDefault)).To(Equal(oci.Error))
		def.DataType = oci.SQLTStr
		Expect(n.DefineByPos(stmt, errh, 1, def, oci.ModeDefault)).To(Equal(oci.Success))

		Expect(n.StmtFetch2(ctx, stmt, errh, 1, oci.FetchNext, 0, oci.ModeDefault)).To(Equal(oci.Success))
		Expect(def.Text()).To(Equal("1"))
		Expect(n.StmtFetch2(ctx, stmt, errh, 1, oci.FetchNext, 0, oci.ModeDefault)).To(Equal(oci.NoData))
		Expect(n.StmtRelease(stmt, errh, oci.ModeDefault)).To(Equal(oci.Success))
		Expect(n.StmtRelease(stmt, errh, oci.ModeDefault)).To(Equal(oci.InvalidHandle))
	})

	It("should check handle types on free", func() {
		Expect(n.HandleFree(errh, oci.HTypeEnv)).To(Equal(oci.InvalidHandle))
		Expect(n.HandleFree(errh, oci.HTypeError)).To(Equal(oci.Success))
		Expect(n.HandleFree(errh, oci.HTypeError)).To(Equal(oci.InvalidHandle))
		Expect(n.HandleFree(env, oci.HTypeEnv)).To(Equal(oci.Success))
		Expect(n.Terminate(oci.ModeDefault)).To(Equal(oci.Success))
	})

	It("should report no error record before a failure", func() {
		_, _, st := n.ErrorGet(errh, 1)
		Expect(st).To(Equal(oci.NoData))
	})

	It("should reject malformed connect strings", func() {
		srv, _ := n.HandleAlloc(env, oci.HTypeServer)
		Expect(n.ServerAttach(ctx, srv, errh, "localhost/main", oci.ModeDefault)).To(Equal(oci.Error))
		code, _, _ := n.ErrorGet(errh, 1)
		Expect(code).To(Equal(int32(12154)))
	})

	It("should report a missing listener", func() {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		port := l.Addr().(*net.TCPAddr).Port
		Expect(l.Close()).To(Succeed())

		probing := sqlnative.New(sqlnative.Options{
			DriverName:   "sqlite3",
			DSN:          func(sqlnative.Link, string, string) (string, error) { return ":memory:", nil },
			DialListener: true,
			DialTimeout:  time.Second,
		})
		e, _ := probing.EnvCreate(oci.ModeDefault)
		eh, _ := probing.HandleAlloc(e, oci.HTypeError)
		srv, _ := probing.HandleAlloc(e, oci.HTypeServer)
		Expect(probing.ServerAttach(ctx, srv, eh, "//127.0.0.1:"+strconv.Itoa(port)+"/x", oci.ModeDefault)).To(Equal(oci.Error))
		code, _, _ := probing.ErrorGet(eh, 1)
		Expect(code).To(Equal(int32(12541)))
	})

	It("should fail session begin when the driver cannot connect", func() {
		failing := sqlnative.New(sqlnative.Options{
			DriverName: "sqlite3",
			DSN: func(sqlnative.Link, string, string) (string, error) {
				return "", errors.New("no credentials")
			},
		})
		c := oracle.NewClient(&sqldb.Conf{}, failing)
		err := c.Open(ctx)
		var ce *oracle.ConnectionError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Stage).To(Equal(oracle.StageSessionBegin))
		Expect(err.Error()).To(ContainSubstring("ORA-01017"))
		Expect(c.Close()).To(Succeed())
	})
})
