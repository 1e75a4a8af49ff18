package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/logger"
	"github.com/papercomputeco/ragchat/pkg/retrieval"
	testutils "github.com/papercomputeco/ragchat/pkg/utils/test"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

type envelope struct {
	Meta Meta            `json:"meta"`
	Data json.RawMessage `json:"data"`
}

func do(server *Server, method, path, apiKey, body string) (*http.Response, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set(APIKeyHeader, apiKey)
	}

	resp, err := server.app.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())

	raw, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())

	var env envelope
	if len(raw) > 0 && raw[0] == '{' {
		Expect(json.Unmarshal(raw, &env)).To(Succeed())
	}
	return resp, env
}

// blockingRetriever waits for its context to end.
type blockingRetriever struct{}

func (blockingRetriever) Retrieve(ctx context.Context, _, _ string, _ int) ([]vector.Chunk, error) {
	<-ctx.Done()
	return nil, coreerr.Wrap(coreerr.EmbeddingTimeout, ctx.Err())
}

func (blockingRetriever) Ingest(ctx context.Context, _ string, _ []retrieval.Document) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var _ = Describe("Server", func() {
	var (
		server   *Server
		driver   *testutils.MockVectorDriver
		embedder *testutils.MockEmbedder
	)

	BeforeEach(func() {
		driver = testutils.NewMockVectorDriver()
		embedder = testutils.NewMockEmbedder()

		r, err := retrieval.New(retrieval.Config{
			Embedder: embedder,
			Driver:   driver,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server = NewServer(Config{ListenAddr: ":0", Retriever: r}, logger.Nop())
	})

	Describe("GET /ping", func() {
		It("returns pong as plain text", func() {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(resp.Header.Get(fiber.HeaderContentType)).To(HavePrefix(fiber.MIMETextPlain))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("pong"))
		})
	})

	Describe("POST /api/v1/chat", func() {
		BeforeEach(func() {
			Expect(driver.Save(context.Background(), []vector.Chunk{
				{ID: "c1", Text: "RAG retrieves context", DocumentID: "d1", URL: "https://example.com/rag", Vector: vector.Vector{1, 0}},
				{ID: "c2", Text: "Embeddings are vectors", DocumentID: "d2", Vector: vector.Vector{0, 1}},
			})).To(Succeed())
		})

		It("rejects requests without an API key before touching the embedder", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chat", "", `{"question":"What is RAG?"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.Result).To(Equal(ResultFail))
			Expect(env.Meta.ErrorCode).To(Equal("EMBEDDING_KEY_NOT_FOUND"))
			Expect(string(env.Data)).To(Equal("null"))
			Expect(embedder.Calls()).To(BeZero())
		})

		It("rejects a blank question", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"   "}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.ErrorCode).To(Equal("BAD_REQUEST"))
			Expect(env.Meta.Message).To(Equal("question is required"))
			Expect(embedder.Calls()).To(BeZero())
		})

		It("rejects malformed JSON", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.ErrorCode).To(Equal("BAD_REQUEST"))
			Expect(env.Meta.Message).To(Equal("invalid request body"))
		})

		It("returns the placeholder answer with retrieved sources", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(env.Meta).To(Equal(Meta{Result: ResultSuccess}))

			var data ChatResponse
			Expect(json.Unmarshal(env.Data, &data)).To(Succeed())
			Expect(data.Answer).To(Equal(PlaceholderAnswer))
			Expect(data.Sources).To(Equal([]Source{
				{ID: "c1", Text: "RAG retrieves context", DocumentID: "d1", URL: "https://example.com/rag"},
				{ID: "c2", Text: "Embeddings are vectors", DocumentID: "d2"},
			}))

			Expect(embedder.Keys).To(ConsistOf("sk-test"))
			Expect(driver.LastTopK).To(Equal(DefaultTopK))
		})

		It("passes topK through", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?","topK":1}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var data ChatResponse
			Expect(json.Unmarshal(env.Data, &data)).To(Succeed())
			Expect(data.Sources).To(HaveLen(1))
			Expect(driver.LastTopK).To(Equal(1))
		})

		It("rejects a non-positive topK as a store bad request", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?","topK":0}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.ErrorCode).To(Equal("STORE_BAD_REQUEST"))
			Expect(embedder.Calls()).To(BeZero())
			Expect(driver.SearchCalls).To(BeZero())
		})

		DescribeTable("renders classified failures with the kind's status",
			func(err error, status int, code string) {
				embedder.Errors = map[string]error{"What is RAG?": err}

				resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?"}`)
				Expect(resp.StatusCode).To(Equal(status))
				Expect(env.Meta.Result).To(Equal(ResultFail))
				Expect(env.Meta.ErrorCode).To(Equal(code))
			},
			Entry("invalid key", coreerr.New(coreerr.EmbeddingKeyInvalid), http.StatusBadRequest, "EMBEDDING_KEY_INVALID"),
			Entry("rate limited", coreerr.New(coreerr.EmbeddingTooManyRequests), http.StatusTooManyRequests, "EMBEDDING_TOO_MANY_REQUESTS"),
			Entry("timeout", coreerr.New(coreerr.EmbeddingTimeout), http.StatusGatewayTimeout, "EMBEDDING_TIMEOUT"),
			Entry("unclassified errors stay opaque", io.ErrUnexpectedEOF, http.StatusInternalServerError, "INTERNAL_ERROR"),
		)

		It("renders store failures", func() {
			driver.SearchErr = coreerr.New(coreerr.StoreTimeout)

			resp, env := do(server, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusGatewayTimeout))
			Expect(env.Meta.ErrorCode).To(Equal("STORE_TIMEOUT"))
			Expect(env.Meta.Message).To(Equal(coreerr.StoreTimeout.Message()))
		})

		It("answers without sources when no retriever is configured", func() {
			bare := NewServer(Config{ListenAddr: ":0"}, logger.Nop())

			resp, env := do(bare, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var data ChatResponse
			Expect(json.Unmarshal(env.Data, &data)).To(Succeed())
			Expect(data.Answer).To(Equal(PlaceholderAnswer))
			Expect(data.Sources).To(BeEmpty())
		})

		It("bounds handlers by the request timeout", func() {
			slow := NewServer(Config{
				ListenAddr:     ":0",
				RequestTimeout: 20 * time.Millisecond,
				Retriever:      blockingRetriever{},
			}, logger.Nop())

			resp, env := do(slow, http.MethodPost, "/api/v1/chat", "sk-test", `{"question":"What is RAG?"}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusGatewayTimeout))
			Expect(env.Meta.ErrorCode).To(Equal("EMBEDDING_TIMEOUT"))
		})
	})

	Describe("POST /api/v1/chunks", func() {
		It("embeds and saves chunks and returns their ids", func() {
			body := `{"chunks":[
				{"id":"c1","text":"first","documentId":"d1","url":"https://example.com/1"},
				{"text":"second","documentId":"d1"}
			]}`

			resp, env := do(server, http.MethodPost, "/api/v1/chunks", "sk-test", body)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(env.Meta.Result).To(Equal(ResultSuccess))

			var data IngestResponse
			Expect(json.Unmarshal(env.Data, &data)).To(Succeed())
			Expect(data.IDs).To(HaveLen(2))
			Expect(data.IDs[0]).To(Equal("c1"))
			Expect(data.IDs[1]).NotTo(BeEmpty())

			points := driver.Points()
			Expect(points).To(HaveLen(2))
			Expect(points["c1"].URL).To(Equal("https://example.com/1"))
			Expect(points[data.IDs[1]].Text).To(Equal("second"))
			Expect(driver.SaveCalls).To(Equal(1))
		})

		It("rejects an empty chunk list", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chunks", "sk-test", `{"chunks":[]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.Message).To(Equal("chunks are required"))
			Expect(driver.SaveCalls).To(BeZero())
		})

		It("rejects chunks without a document id", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chunks", "sk-test", `{"chunks":[{"text":"orphan"}]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.Message).To(Equal("chunks[0]: documentId is required"))
		})

		It("requires an API key", func() {
			resp, env := do(server, http.MethodPost, "/api/v1/chunks", "", `{"chunks":[{"text":"a","documentId":"d"}]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
			Expect(env.Meta.ErrorCode).To(Equal("EMBEDDING_KEY_NOT_FOUND"))
		})

		It("surfaces save failures and returns no ids", func() {
			driver.SaveErr = coreerr.New(coreerr.StoreInternalServerError)

			resp, env := do(server, http.MethodPost, "/api/v1/chunks", "sk-test", `{"chunks":[{"text":"a","documentId":"d"}]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
			Expect(env.Meta.ErrorCode).To(Equal("STORE_INTERNAL_SERVER_ERROR"))
		})

		It("is unavailable without a retriever", func() {
			bare := NewServer(Config{ListenAddr: ":0"}, logger.Nop())

			resp, env := do(bare, http.MethodPost, "/api/v1/chunks", "sk-test", `{"chunks":[{"text":"a","documentId":"d"}]}`)
			Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
			Expect(env.Meta.Message).To(Equal("ingestion is not configured"))
		})
	})

	It("renders unknown routes in the envelope", func() {
		resp, env := do(server, http.MethodGet, "/api/v1/nope", "", "")
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
		Expect(env.Meta.Result).To(Equal(ResultFail))
		Expect(env.Meta.ErrorCode).To(Equal("NOT_FOUND"))
	})
})
