package oracle

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/zeptools/gw-oradb/db/sqldb"
	"github.com/zeptools/gw-oradb/db/sqldb/oci/ocimock"
)

func accountValues() []sqldb.ColumnValue {
	return []sqldb.ColumnValue{
		{Column: "id", Value: "1"},
		{Column: "name", Value: "'Bob'"},
		{Column: "balance", Value: "100"},
	}
}

var _ = Describe("BuildUpsert", func() {
	It("should render the accounts merge", func() {
		stmt, ok := BuildUpsert("accounts", accountValues(), "id", []string{"id"})
		Expect(ok).To(BeTrue())
		Expect(stmt).To(Equal("MERGE INTO accounts USING DUAL ON (id = 1) " +
			"WHEN NOT MATCHED THEN INSERT (id,name,balance) VALUES (1,'Bob',100) " +
			"WHEN MATCHED THEN UPDATE SET name='Bob', balance=100"))
	})

	It("should report false when the conflict column is absent", func() {
		_, ok := BuildUpsert("accounts", accountValues(), "email", nil)
		Expect(ok).To(BeFalse())
		_, ok = BuildUpsert("accounts", nil, "id", nil)
		Expect(ok).To(BeFalse())
	})

	It("should keep the conflict column out of the update clause", func() {
		values := []sqldb.ColumnValue{
			{Column: "name", Value: "'Ann'"},
			{Column: "code", Value: "'A1'"},
			{Column: "qty", Value: "3"},
		}
		stmt, ok := BuildUpsert("items", values, "code", nil)
		Expect(ok).To(BeTrue())
		update := stmt[strings.Index(stmt, "UPDATE SET"):]
		Expect(update).ToNot(ContainSubstring("code"))
		Expect(stmt).To(ContainSubstring("ON (code = 'A1')"))

		insert := stmt[strings.Index(stmt, "INSERT ("):strings.Index(stmt, ") VALUES")]
		for _, v := range values {
			Expect(strings.Count(insert, v.Column)).To(Equal(1))
		}
	})

	It("should list columns and literals in the shared value order", func() {
		cols, vals := sqldb.SplitValues(accountValues())
		stmt, _ := BuildUpsert("accounts", accountValues(), "id", nil)
		Expect(stmt).To(ContainSubstring("INSERT (" + strings.Join(cols, ",") + ") VALUES (" + strings.Join(vals, ",") + ")"))

		keyOnly, ok := BuildUpsert("accounts", []sqldb.ColumnValue{{Column: "id", Value: "7"}}, "id", nil)
		Expect(ok).To(BeTrue())
		Expect(keyOnly).To(Equal("MERGE INTO accounts USING DUAL ON (id = 7) WHEN NOT MATCHED THEN INSERT (id) VALUES (7)"))
	})

	It("should ignore returning columns", func() {
		with, _ := BuildUpsert("accounts", accountValues(), "id", []string{"id", "balance"})
		without, _ := BuildUpsert("accounts", accountValues(), "id", nil)
		Expect(with).To(Equal(without))
		Expect(with).ToNot(ContainSubstring("RETURNING"))
	})

	It("should omit the update clause when only the key is given", func() {
		stmt, ok := BuildUpsert("tags", []sqldb.ColumnValue{{Column: "tag", Value: "'x'"}}, "tag", nil)
		Expect(ok).To(BeTrue())
		Expect(stmt).To(Equal("MERGE INTO tags USING DUAL ON (tag = 'x') WHEN NOT MATCHED THEN INSERT (tag) VALUES ('x')"))
	})

	Context("through sqldb.Query", func() {
		It("should run the synthesized merge", func() {
			m := ocimock.New()
			stmt, _ := BuildUpsert("accounts", accountValues(), "id", nil)
			m.Results[stmt] = &ocimock.Result{}
			c := NewClient(&sqldb.Conf{}, m)
			Expect(c.Open(context.Background())).To(Succeed())

			q := sqldb.NewQuery("accounts", c.Dialect()).
				Set("id", "1").Set("name", "'Bob'").Set("balance", "100").
				OnConflict("id").ReturnColumns("id")
			rows, err := sqldb.Upsert(context.Background(), c, q)
			Expect(err).ToNot(HaveOccurred())
			Expect(rows).To(BeEmpty())
			Expect(m.Calls).To(ContainElement("StmtExecute:1"))
		})

		It("should surface a configuration error", func() {
			q := sqldb.NewQuery("accounts", Dialect{}).Set("name", "'Bob'").OnConflict("id")
			_, err := q.UpsertSQL()
			Expect(sqldb.IsConfigurationError(err)).To(BeTrue())
		})
	})
})
