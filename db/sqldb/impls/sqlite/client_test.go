package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

var _ = Describe("Client", func() {
	var (
		ctx context.Context
		dir string
		c   *Client
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		dir, err = os.MkdirTemp("", "gwsqlite")
		Expect(err).ToNot(HaveOccurred())
		c = &Client{Conf: &sqldb.Conf{Type: "sqlite", DB: filepath.Join(dir, "app.db")}}
		Expect(c.Init()).To(Succeed())
		_, err = c.Exec(ctx, "CREATE TABLE accounts (id INTEGER PRIMARY KEY, name TEXT, balance DECIMAL(10,2), opened DATETIME)")
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		Expect(c.Close()).To(Succeed())
		Expect(c.Close()).To(Succeed())
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	It("should upsert through the dialect", func() {
		q := sqldb.NewQuery("accounts", c.Dialect()).
			Set("id", "1").Set("name", "'Bob'").Set("balance", "100.5").
			OnConflict("id").ReturnColumns("id", "name")
		rows, err := sqldb.Upsert(ctx, c, q)
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0]["name"]).To(Equal("Bob"))

		q.Set("name", "'Robert'")
		rows, err = sqldb.Upsert(ctx, c, q)
		Expect(err).ToNot(HaveOccurred())
		Expect(rows[0]["name"]).To(Equal("Robert"))

		all, err := c.ExecuteQueryString(ctx, "SELECT id, name, balance FROM accounts")
		Expect(err).ToNot(HaveOccurred())
		Expect(all).To(HaveLen(1))
		Expect(all[0]["id"]).To(Equal(int64(1)))
		Expect(all[0]["balance"].(decimal.Decimal).String()).To(Equal("100.5"))
	})

	It("should materialize typed values", func() {
		_, err := c.Exec(ctx, "INSERT INTO accounts VALUES (2, NULL, 3, '2024-01-02 03:04:05')")
		Expect(err).ToNot(HaveOccurred())
		rows, err := c.ExecuteQueryString(ctx, "SELECT * FROM accounts")
		Expect(err).ToNot(HaveOccurred())
		Expect(rows[0]["name"]).To(BeNil())
		Expect(rows[0]["opened"].(time.Time).Year()).To(Equal(2024))
	})

	It("should return an empty slice for commands", func() {
		rows, err := c.ExecuteQueryString(ctx, "UPDATE accounts SET name = 'x' WHERE id = -1")
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(BeEmpty())
	})

	It("should iterate rows with maps and scans", func() {
		_, err := c.Exec(ctx, "INSERT INTO accounts (id, name) VALUES (1, 'a'), (2, 'b')")
		Expect(err).ToNot(HaveOccurred())
		rows, err := c.QueryRows(ctx, "SELECT id, name FROM accounts ORDER BY id")
		Expect(err).ToNot(HaveOccurred())
		defer rows.Close()
		Expect(rows.Columns()).To(Equal([]string{"id", "name"}))
		Expect(rows.Next()).To(BeTrue())
		Expect(rows.Map()).To(Equal(sqldb.RowMap{"id": int64(1), "name": "a"}))
		var id int64
		var name string
		Expect(rows.Next()).To(BeTrue())
		Expect(rows.Scan(&id, &name)).To(Succeed())
		Expect(name).To(Equal("b"))
		Expect(rows.Next()).To(BeFalse())
	})

	It("should map no rows", func() {
		var id int64
		err := c.QueryRow(ctx, "SELECT id FROM accounts WHERE id = 99").Scan(&id)
		Expect(err).To(MatchError(sqldb.ErrNoRows))
	})

	It("should report affected rows", func() {
		res, err := c.Exec(ctx, "INSERT INTO accounts (id) VALUES (5)")
		Expect(err).ToNot(HaveOccurred())
		Expect(res.RowsAffected()).To(Equal(int64(1)))
		Expect(res.LastInsertId()).To(Equal(int64(5)))
		Expect(c.Ping(ctx)).To(Succeed())
	})
})

var _ = Describe("BuildDSN", func() {
	It("should use the database file", func() {
		Expect(BuildDSN(&sqldb.Conf{DB: "data/app.db"})).To(Equal("file:data/app.db?_busy_timeout=5000&_foreign_keys=on"))
		Expect(BuildDSN(&sqldb.Conf{})).To(HavePrefix("file::memory:"))
		Expect(BuildDSN(&sqldb.Conf{DSN: "x.db"})).To(Equal("x.db"))
	})
})
