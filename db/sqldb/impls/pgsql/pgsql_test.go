package pgsql

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/zeptools/gw-oradb/db/sqldb"
)

var _ = Describe("convertValue", func() {
	It("should keep numeric precision", func() {
		n := pgtype.Numeric{Int: big.NewInt(12345), Exp: -2, Valid: true}
		d, ok := convertValue(n).(decimal.Decimal)
		Expect(ok).To(BeTrue())
		Expect(d.String()).To(Equal("123.45"))
	})

	It("should drop non-finite numerics", func() {
		Expect(convertValue(pgtype.Numeric{NaN: true, Valid: true})).To(BeNil())
		Expect(convertValue(pgtype.Numeric{Int: big.NewInt(1), InfinityModifier: pgtype.Infinity, Valid: true})).To(BeNil())
		Expect(convertValue(pgtype.Numeric{})).To(BeNil())
	})

	It("should normalize driver values", func() {
		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		Expect(convertValue(int32(7))).To(Equal(int64(7)))
		Expect(convertValue("x")).To(Equal("x"))
		Expect(convertValue(ts)).To(Equal(ts))
		Expect(convertValue(nil)).To(BeNil())
	})
})

var _ = Describe("scanWithBools", func() {
	It("should read SMALLINT into bool", func() {
		scan := func(dest ...any) error {
			*(dest[0].(*int16)) = 1
			*(dest[1].(*string)) = "ok"
			return nil
		}
		var b bool
		var s string
		Expect(scanWithBools(scan, []any{&b, &s})).To(Succeed())
		Expect(b).To(BeTrue())
		Expect(s).To(Equal("ok"))
	})

	It("should pass scan errors through", func() {
		boom := errors.New("boom")
		var b bool
		Expect(scanWithBools(func(...any) error { return boom }, []any{&b})).To(MatchError(boom))
	})
})

var _ = Describe("Client", func() {
	It("should build a keyword DSN with defaults", func() {
		Expect(BuildDSN(&sqldb.Conf{PW: "it's"})).To(Equal(
			`host=localhost port=5432 user=postgres password='it\'s' dbname=postgres sslmode=disable TimeZone=UTC`))
	})

	It("should use ON CONFLICT upserts", func() {
		stmt, ok := (&Client{}).Dialect().BuildUpsert("t", []sqldb.ColumnValue{{Column: "a", Value: "1"}}, "a", []string{"a"})
		Expect(ok).To(BeTrue())
		Expect(stmt).To(Equal("INSERT INTO t (a) VALUES (1) ON CONFLICT (a) DO NOTHING RETURNING a"))
	})

	It("should report affected rows", func() {
		r := &Result{tag: pgconn.NewCommandTag("UPDATE 3")}
		Expect(r.RowsAffected()).To(Equal(int64(3)))
		_, err := r.LastInsertId()
		Expect(err).To(HaveOccurred())
	})

	It("should refuse operations before Init", func() {
		c := &Client{Conf: &sqldb.Conf{}}
		Expect(c.Close()).To(Succeed())
		_, err := c.Exec(context.Background(), "SELECT 1")
		Expect(err).To(HaveOccurred())
	})
})
