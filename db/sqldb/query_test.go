package sqldb

import (
	"context"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

type recordingHandle struct {
	queries []string
}

func (h *recordingHandle) ExecuteQueryString(_ context.Context, query string) ([]RowMap, error) {
	h.queries = append(h.queries, query)
	return []RowMap{}, nil
}

func (h *recordingHandle) QueryRows(ctx context.Context, query string) (Rows, error) {
	rows, err := h.ExecuteQueryString(ctx, query)
	return NewMapRows(nil, rows), err
}

func (h *recordingHandle) QueryRow(ctx context.Context, query string) Row {
	return NewRow(h.QueryRows(ctx, query))
}

func (h *recordingHandle) Exec(ctx context.Context, query string) (Result, error) {
	_, err := h.ExecuteQueryString(ctx, query)
	return MapResult{}, err
}

var joinUpsert = UpsertFunc(func(table string, values []ColumnValue, conflict string, _ []string) (string, bool) {
	parts := make([]string, 0, len(values))
	found := false
	for _, v := range values {
		parts = append(parts, v.Column+"="+v.Value)
		found = found || v.Column == conflict
	}
	return "UPSERT " + table + " " + strings.Join(parts, ",") + " ON " + conflict, found
})

var _ = Describe("Query", func() {
	It("should delegate upsert synthesis", func() {
		q := NewQuery("accounts", joinUpsert).Set("id", "1").Set("name", "'a'").OnConflict("id")
		stmt, err := q.UpsertSQL()
		Expect(err).ToNot(HaveOccurred())
		Expect(stmt).To(Equal("UPSERT accounts id=1,name='a' ON id"))
	})

	It("should replace a repeated column", func() {
		q := NewQuery("t", joinUpsert).Set("id", "1").Set("id", "2").OnConflict("id")
		Expect(q.Values).To(HaveLen(1))
		Expect(q.Values[0].Value).To(Equal("2"))
	})

	It("should report a configuration error when the builder declines", func() {
		_, err := NewQuery("accounts", joinUpsert).Set("name", "'a'").OnConflict("id").UpsertSQL()
		var ce *ConfigurationError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Op).To(Equal("upsert"))
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should require a delegate", func() {
		_, err := NewQuery("accounts", nil).Set("id", "1").OnConflict("id").UpsertSQL()
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should reject unsafe identifiers", func() {
		_, err := NewQuery("accounts; DROP TABLE x", joinUpsert).Set("id", "1").OnConflict("id").UpsertSQL()
		Expect(IsConfigurationError(err)).To(BeTrue())
		_, err = NewQuery("accounts", joinUpsert).Set("id)", "1").OnConflict("id)").UpsertSQL()
		Expect(IsConfigurationError(err)).To(BeTrue())
	})

	It("should run the upsert on a handle", func() {
		h := &recordingHandle{}
		_, err := Upsert(context.Background(), h, NewQuery("t", joinUpsert).Set("id", "1").OnConflict("id"))
		Expect(err).ToNot(HaveOccurred())
		Expect(h.queries).To(Equal([]string{"UPSERT t id=1 ON id"}))
	})

	It("should render selects", func() {
		q := NewQuery("accounts", nil).
			Select(NewColumnOrPanic("id"), NewColumnOrPanic("name")).
			Filter("balance > 0").
			OrderBy(OrderBy{Column: NewColumnOrPanic("name"), Desc: true})
		stmt, err := q.SelectSQL()
		Expect(err).ToNot(HaveOccurred())
		Expect(stmt).To(Equal("SELECT id, name FROM accounts WHERE balance > 0 ORDER BY name DESC"))
	})

	Context("Literal", func() {
		It("should render values", func() {
			cases := []struct {
				in  any
				out string
			}{
				{"it's", "'it''s'"},
				{int64(-3), "-3"},
				{true, "1"},
				{2.5, "2.5"},
				{decimal.RequireFromString("1.10"), "1.1"},
				{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "'2024-01-02 03:04:05'"},
			}
			for _, c := range cases {
				lit, err := Literal(c.in)
				Expect(err).ToNot(HaveOccurred())
				Expect(lit).To(Equal(c.out))
			}
			lit, _ := Literal(nil)
			Expect(lit).To(Equal("NULL"))
		})
		It("should reject unknown types", func() {
			_, err := Literal(struct{}{})
			Expect(err).To(MatchError(ErrUnsupportedType))
		})
	})

	Context("Column", func() {
		It("should validate identifiers", func() {
			_, err := NewColumn("accounts.email")
			Expect(err).ToNot(HaveOccurred())
			_, err = NewColumn("1abc")
			Expect(err).To(HaveOccurred())
			Expect(func() { NewColumnOrPanic("a b") }).To(Panic())
		})
	})

	Context("Conf", func() {
		It("should fill only empty fields", func() {
			c := Conf{Host: "db1"}.WithDefaults(Conf{Host: "localhost", Port: 1521, User: "root", DB: "public"})
			Expect(c).To(Equal(Conf{Host: "db1", Port: 1521, User: "root", DB: "public"}))
			Expect(Conf{PW: "x"}.Redacted().PW).To(Equal("****"))
		})
	})
})

var _ = Describe("BuildInsertOnConflict", func() {
	It("should update every non-key column", func() {
		stmt, ok := BuildInsertOnConflict("accounts", []ColumnValue{
			{Column: "id", Value: "1"}, {Column: "name", Value: "'Bob'"},
		}, "id", []string{"id"})
		Expect(ok).To(BeTrue())
		Expect(stmt).To(Equal("INSERT INTO accounts (id, name) VALUES (1, 'Bob') ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name RETURNING id"))
	})

	It("should do nothing when only the key is given", func() {
		stmt, ok := BuildInsertOnConflict("tags", []ColumnValue{{Column: "tag", Value: "'x'"}}, "tag", nil)
		Expect(ok).To(BeTrue())
		Expect(stmt).To(Equal("INSERT INTO tags (tag) VALUES ('x') ON CONFLICT (tag) DO NOTHING"))
	})

	It("should refuse a missing key", func() {
		_, ok := BuildInsertOnConflict("t", []ColumnValue{{Column: "a", Value: "1"}}, "b", nil)
		Expect(ok).To(BeFalse())
	})
})
