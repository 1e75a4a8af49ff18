package retrieval_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/eventstream"
	"github.com/papercomputeco/ragchat/pkg/logger"
	"github.com/papercomputeco/ragchat/pkg/retrieval"
	testutils "github.com/papercomputeco/ragchat/pkg/utils/test"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

type recordingSink struct {
	mu     sync.Mutex
	events []*eventstream.ChunksSavedEvent
}

func (s *recordingSink) Enqueue(e *eventstream.ChunksSavedEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return true
}

var _ = Describe("Retriever", func() {
	var (
		ctx       context.Context
		embedder  *testutils.MockEmbedder
		driver    *testutils.MockVectorDriver
		sink      *recordingSink
		retriever *retrieval.Retriever
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		driver = testutils.NewMockVectorDriver()
		sink = &recordingSink{}

		var err error
		retriever, err = retrieval.New(retrieval.Config{
			Embedder: embedder,
			Driver:   driver,
			Events:   sink,
			Store:    eventstream.StoreMeta{Provider: "mock", Collection: "chunks"},
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("requires an embedder and a driver", func() {
			_, err := retrieval.New(retrieval.Config{Driver: driver, Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
			_, err = retrieval.New(retrieval.Config{Embedder: embedder, Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Retrieve", func() {
		It("embeds the question with the caller's key and searches with the result", func() {
			embedder.Embeddings["what is rag?"] = vector.Vector{9, 8, 7}
			Expect(driver.Save(ctx, []vector.Chunk{{ID: "c1", Text: "rag is", DocumentID: "d1"}})).To(Succeed())

			chunks, err := retriever.Retrieve(ctx, "sk-user", "what is rag?", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(chunks).To(HaveLen(1))
			Expect(embedder.Keys).To(Equal([]string{"sk-user"}))
			Expect(driver.LastQuery.Equal(vector.Vector{9, 8, 7})).To(BeTrue())
			Expect(driver.LastTopK).To(Equal(3))
		})

		It("rejects a non-positive topK before embedding", func() {
			_, err := retriever.Retrieve(ctx, "sk-user", "q", 0)
			kind, _ := coreerr.KindOf(err)
			Expect(kind).To(Equal(coreerr.StoreBadRequest))
			Expect(embedder.Calls()).To(BeZero())
			Expect(driver.SearchCalls).To(BeZero())
		})

		It("returns embedding failures unchanged and skips the search", func() {
			embedder.Errors["q"] = coreerr.New(coreerr.EmbeddingKeyInvalid)

			_, err := retriever.Retrieve(ctx, "bad", "q", 5)
			Expect(errors.Is(err, coreerr.New(coreerr.EmbeddingKeyInvalid))).To(BeTrue())
			Expect(driver.SearchCalls).To(BeZero())
		})

		It("returns store failures unchanged", func() {
			driver.SearchErr = coreerr.New(coreerr.StoreTimeout)

			_, err := retriever.Retrieve(ctx, "sk", "q", 5)
			Expect(errors.Is(err, coreerr.New(coreerr.StoreTimeout))).To(BeTrue())
		})
	})

	Describe("Ingest", func() {
		docs := func() []retrieval.Document {
			return []retrieval.Document{
				{ID: "fixed-id", Text: "first", DocumentID: "doc-1", URL: "http://a"},
				{Text: "second", DocumentID: "doc-1"},
				{Text: "third", DocumentID: "doc-2"},
			}
		}

		It("embeds every text, saves once and returns ids in input order", func() {
			embedder.Embeddings["second"] = vector.Vector{2}

			ids, err := retriever.Ingest(ctx, "sk", docs())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(3))
			Expect(ids[0]).To(Equal("fixed-id"))
			_, err = uuid.Parse(ids[1])
			Expect(err).NotTo(HaveOccurred())

			Expect(embedder.Calls()).To(Equal(3))
			Expect(driver.SaveCalls).To(Equal(1))

			points := driver.Points()
			Expect(points).To(HaveLen(3))
			Expect(points[ids[1]].Vector.Equal(vector.Vector{2})).To(BeTrue())
			Expect(points["fixed-id"].URL).To(Equal("http://a"))
		})

		It("emits one event per successful save", func() {
			ids, err := retriever.Ingest(ctx, "sk", docs())
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.events).To(HaveLen(1))
			event := sink.events[0]
			Expect(event.EventType).To(Equal(eventstream.EventTypeChunksSaved))
			Expect(event.Store.Provider).To(Equal("mock"))
			Expect(event.Chunks).To(HaveLen(3))
			Expect(event.Chunks[0].ID).To(Equal(ids[0]))
		})

		It("is an upsert when re-ingesting the same ids", func() {
			in := []retrieval.Document{{ID: "a", Text: "x", DocumentID: "d"}}
			_, err := retriever.Ingest(ctx, "sk", in)
			Expect(err).NotTo(HaveOccurred())
			_, err = retriever.Ingest(ctx, "sk", in)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Points()).To(HaveLen(1))
		})

		It("saves nothing when any embedding fails", func() {
			embedder.Errors["third"] = coreerr.New(coreerr.EmbeddingQuotaExceeded)

			_, err := retriever.Ingest(ctx, "sk", docs())
			Expect(errors.Is(err, coreerr.New(coreerr.EmbeddingQuotaExceeded))).To(BeTrue())
			Expect(driver.SaveCalls).To(BeZero())
			Expect(sink.events).To(BeEmpty())
		})

		It("emits no event when the save fails", func() {
			driver.SaveErr = coreerr.New(coreerr.StoreInternalServerError)

			_, err := retriever.Ingest(ctx, "sk", docs())
			Expect(errors.Is(err, coreerr.New(coreerr.StoreInternalServerError))).To(BeTrue())
			Expect(sink.events).To(BeEmpty())
		})

		DescribeTable("rejects invalid input as BAD_REQUEST without embedding",
			func(in []retrieval.Document, message string) {
				_, err := retriever.Ingest(ctx, "sk", in)
				kind, _ := coreerr.KindOf(err)
				Expect(kind).To(Equal(coreerr.BadRequest))
				Expect(err).To(MatchError(ContainSubstring(message)))
				Expect(embedder.Calls()).To(BeZero())
			},
			Entry("no chunks", []retrieval.Document{}, "chunks are required"),
			Entry("blank text", []retrieval.Document{{Text: "  ", DocumentID: "d"}}, "chunks[0]: text is required"),
			Entry("missing document id", []retrieval.Document{{Text: "ok", DocumentID: "d"}, {Text: "t"}}, "chunks[1]: documentId is required"),
		)
	})
})
