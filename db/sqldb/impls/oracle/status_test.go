package oracle

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"

	"github.com/zeptools/gw-oradb/db/sqldb/oci"
	"github.com/zeptools/gw-oradb/db/sqldb/oci/ocimock"
)

var _ = Describe("interpret", func() {
	var m *ocimock.Mock
	BeforeEach(func() {
		m = ocimock.New()
	})

	table.DescribeTable("status kinds",
		func(code oci.Status, kind OutcomeKind, continuable bool, sentinel error) {
			o := interpret(m, code, 0, "TEST")
			Expect(o.Kind).To(Equal(kind))
			Expect(o.Stage).To(Equal("TEST"))
			Expect(o.Continuable()).To(Equal(continuable))
			if sentinel == nil {
				Expect(o.Err()).ToNot(HaveOccurred())
			} else {
				Expect(o.Err()).To(MatchError(sentinel))
			}
		},
		table.Entry("success", oci.Success, OutcomeSuccess, true, nil),
		table.Entry("success with info", oci.SuccessWithInfo, OutcomeSuccessWithInfo, true, nil),
		table.Entry("no data", oci.NoData, OutcomeNoData, false, ErrNoData),
		table.Entry("need data", oci.NeedData, OutcomeNeedData, false, ErrNeedData),
		table.Entry("invalid handle", oci.InvalidHandle, OutcomeInvalidHandle, false, ErrInvalidHandle),
		table.Entry("still executing", oci.StillExecuting, OutcomeStillExecuting, false, ErrStillExecuting),
		table.Entry("continue", oci.Continue, OutcomeContinue, false, ErrContinue),
	)

	Context("fatal", func() {
		var errh oci.Handle
		BeforeEach(func() {
			env, _ := m.EnvCreate(oci.ModeDefault)
			errh, _ = m.HandleAlloc(env, oci.HTypeError)
			srv, _ := m.HandleAlloc(env, oci.HTypeServer)
			m.Fail["ServerAttach"] = oci.Error
			m.ErrCode = 12154
			m.ErrMsg = "ORA-12154: TNS:could not resolve the connect identifier specified\n"
			m.ServerAttach(context.Background(), srv, errh, "//x:1/y", oci.ModeDefault)
		})

		It("should read the error record", func() {
			o := interpret(m, oci.Error, errh, StageServerAttach)
			Expect(o.Kind).To(Equal(OutcomeFatal))
			Expect(o.SubCode).To(Equal(int32(12154)))
			Expect(o.Message).To(Equal("ORA-12154: TNS:could not resolve the connect identifier specified"))
			Expect(o.String()).To(ContainSubstring("OCI_ERROR (12154) ORA-12154"))

			var fe *FatalNativeError
			Expect(errors.As(o.Err(), &fe)).To(BeTrue())
			Expect(fe.Error()).To(HavePrefix("ORA-12154"))
		})

		It("should treat unknown codes as fatal", func() {
			o := interpret(m, oci.Status(-999), errh, "TEST")
			Expect(o.Kind).To(Equal(OutcomeFatal))
			Expect(o.SubCode).To(Equal(int32(12154)))
		})

		It("should not read records without an error handle", func() {
			m.Calls = nil
			o := interpret(m, oci.Error, 0, "TEST")
			Expect(o.Kind).To(Equal(OutcomeFatal))
			Expect(o.Message).To(BeEmpty())
			Expect(m.Calls).ToNot(ContainElement("ErrorGet"))
		})
	})

	It("should describe outcomes", func() {
		Expect(Outcome{Kind: OutcomeSuccess}.String()).To(Equal("SUCCESS"))
		Expect(Outcome{Kind: OutcomeNoData, Code: oci.NoData}.String()).To(Equal("Error - OCI_NO_DATA"))
		Expect(OutcomeStillExecuting.String()).To(Equal("still-executing"))
	})

	It("should format native errors", func() {
		Expect((&FatalNativeError{Code: 1}).Error()).To(Equal("ORA-00001"))
		Expect((&FatalNativeError{Code: 1, Message: "unique constraint violated"}).Error()).To(Equal("ORA-00001: unique constraint violated"))
	})
})
