package pgvector_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/logger"
	"github.com/papercomputeco/ragchat/pkg/vector"
	"github.com/papercomputeco/ragchat/pkg/vector/pgvector"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("RAGCHAT_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("RAGCHAT_TEST_POSTGRES_DSN not set, skipping pgvector tests")
	}
	return dsn
}

var _ = Describe("NewDriver", func() {
	It("requires a connection string", func() {
		_, err := pgvector.NewDriver(context.Background(), pgvector.Config{Dimensions: 3}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("connection string is required")))
	})

	It("requires dimensions", func() {
		_, err := pgvector.NewDriver(context.Background(), pgvector.Config{ConnString: "postgres://localhost/x"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("dimensions must be specified")))
	})
})

var _ = Describe("Driver", func() {
	var (
		driver *pgvector.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dsn := connStr()

		var err error
		driver, err = pgvector.NewDriver(ctx, pgvector.Config{
			ConnString: dsn,
			TableName:  "ragchat_test_chunks",
			Dimensions: 3,
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		Expect(driver.Truncate(ctx)).To(Succeed())
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	It("rejects non-positive topK", func() {
		_, err := driver.Search(ctx, vector.Vector{1, 0, 0}, 0)
		kind, _ := coreerr.KindOf(err)
		Expect(kind).To(Equal(coreerr.StoreBadRequest))
	})

	It("returns an empty slice from an empty table", func() {
		chunks, err := driver.Search(ctx, vector.Vector{1, 0, 0}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).NotTo(BeNil())
		Expect(chunks).To(BeEmpty())
	})

	It("saves and finds chunks ordered by similarity", func() {
		Expect(driver.Save(ctx, []vector.Chunk{
			{ID: "a", Text: "alpha", DocumentID: "doc", URL: "http://a", Vector: vector.Vector{1, 0, 0}},
			{ID: "b", Text: "beta", DocumentID: "doc", Vector: vector.Vector{0, 1, 0}},
		})).To(Succeed())

		query := vector.Vector{0.9, 0.1, 0}
		chunks, err := driver.Search(ctx, query, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(2))
		Expect(chunks[0].ID).To(Equal("a"))
		Expect(chunks[0].URL).To(Equal("http://a"))
		Expect(chunks[0].Vector.Equal(query)).To(BeTrue())
		Expect(chunks[1].URL).To(BeEmpty())
	})

	It("overwrites chunks with the same id", func() {
		c := vector.Chunk{ID: "a", Text: "first", DocumentID: "doc", Vector: vector.Vector{1, 0, 0}}
		Expect(driver.Save(ctx, []vector.Chunk{c})).To(Succeed())
		c.Text = "second"
		Expect(driver.Save(ctx, []vector.Chunk{c})).To(Succeed())

		chunks, err := driver.Search(ctx, vector.Vector{1, 0, 0}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(chunks).To(HaveLen(1))
		Expect(chunks[0].Text).To(Equal("second"))
	})

	It("classifies server errors as STORE_INTERNAL_SERVER_ERROR", func() {
		err := driver.Save(ctx, []vector.Chunk{
			{ID: "bad", Text: "wrong length", DocumentID: "doc", Vector: vector.Vector{1, 2}},
		})
		kind, _ := coreerr.KindOf(err)
		Expect(kind).To(Equal(coreerr.StoreInternalServerError))
	})
})
