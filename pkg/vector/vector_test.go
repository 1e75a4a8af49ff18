package vector_test

import (
	"context"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

var _ = Describe("Vector", func() {
	It("compares element-wise without tolerance", func() {
		Expect(vector.Vector{1, 2, 3}.Equal(vector.Vector{1, 2, 3})).To(BeTrue())
		Expect(vector.Vector{1, 2, 3}.Equal(vector.Vector{1, 2, 3.001})).To(BeFalse())
		Expect(vector.Vector{1, 2}.Equal(vector.Vector{1, 2, 3})).To(BeFalse())
	})
})

var _ = Describe("ValidateTopK", func() {
	It("accepts positive values", func() {
		Expect(vector.ValidateTopK(1)).To(Succeed())
		Expect(vector.ValidateTopK(vector.DefaultTopK)).To(Succeed())
	})

	It("rejects zero and negatives as STORE_BAD_REQUEST", func() {
		for _, topK := range []int{0, -1, -42} {
			err := vector.ValidateTopK(topK)
			kind, ok := coreerr.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(coreerr.StoreBadRequest))
			Expect(coreerr.StatusOf(err)).To(Equal(http.StatusBadRequest))
		}
	})
})

var _ = Describe("StoreErrors", func() {
	DescribeTable("classifies by status only",
		func(status int, want coreerr.Kind) {
			Expect(vector.StoreErrors.Classify(status, "")).To(Equal(want))
			Expect(vector.StoreErrors.Classify(status, "ignored")).To(Equal(want))
		},
		Entry("500", 500, coreerr.StoreInternalServerError),
		Entry("400", 400, coreerr.StoreUnknown),
		Entry("404", 404, coreerr.StoreUnknown),
		Entry("503", 503, coreerr.StoreUnknown),
	)

	It("classifies timeouts and other transport failures", func() {
		Expect(vector.StoreErrors.ClassifyTransport(context.DeadlineExceeded)).To(Equal(coreerr.StoreTimeout))
		Expect(vector.StoreErrors.ClassifyTransport(errors.New("connection refused"))).To(Equal(coreerr.StoreUnknown))
	})
})
