package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/embeddings/openai"
	"github.com/papercomputeco/ragchat/pkg/logger"
)

func expectKind(err error, kind coreerr.Kind) {
	GinkgoHelper()
	Expect(err).To(HaveOccurred())
	got, ok := coreerr.KindOf(err)
	Expect(ok).To(BeTrue(), "expected *coreerr.Error, got %T: %v", err, err)
	Expect(got).To(Equal(kind), "got %s", got)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

var _ = Describe("Embedder", func() {
	var (
		server   *httptest.Server
		embedder *openai.Embedder
		handler  http.HandlerFunc
	)

	BeforeEach(func() {
		handler = respond(http.StatusOK, `{"data":[{"embedding":[0.5],"index":0}]}`)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))

		var err error
		embedder, err = openai.NewEmbedder(openai.EmbedderConfig{BaseURL: server.URL}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("request", func() {
		It("posts the input with a bearer key to /v1/embeddings", func() {
			var (
				got     map[string]any
				authHdr string
				calls   atomic.Int32
			)
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				calls.Add(1)
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/v1/embeddings"))
				authHdr = r.Header.Get("Authorization")
				Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
				_, _ = io.WriteString(w, `{"data":[{"embedding":[1,2],"index":0}]}`)
			}

			_, err := embedder.Embed(context.Background(), "sk-test", "what is rag?")
			Expect(err).NotTo(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(1)))
			Expect(authHdr).To(Equal("Bearer sk-test"))
			Expect(got).To(HaveKeyWithValue("input", "what is rag?"))
			Expect(got).To(HaveKeyWithValue("model", openai.DefaultEmbeddingModel))
		})

		It("forwards an empty question without local validation", func() {
			var calls atomic.Int32
			handler = func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				_, _ = io.WriteString(w, `{"data":[{"embedding":[1],"index":0}]}`)
			}

			_, err := embedder.Embed(context.Background(), "sk-test", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(calls.Load()).To(Equal(int32(1)))
		})
	})

	Describe("success", func() {
		It("round-trips a 1536-element vector unchanged", func() {
			want := make([]float32, openai.DefaultDimensions)
			for i := range want {
				want[i] = float32(i)
			}
			body, err := json.Marshal(map[string]any{
				"data": []map[string]any{{"embedding": want, "index": 0}},
			})
			Expect(err).NotTo(HaveOccurred())
			handler = respond(http.StatusOK, string(body))

			got, err := embedder.Embed(context.Background(), "sk-test", "question")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1536))
			Expect(got.Equal(want)).To(BeTrue())
		})

		It("accepts any 2xx status", func() {
			handler = respond(http.StatusNonAuthoritativeInfo, `{"data":[{"embedding":[0.25,0.75],"index":0}]}`)

			got, err := embedder.Embed(context.Background(), "sk-test", "question")
			Expect(err).NotTo(HaveOccurred())
			Expect([]float32(got)).To(Equal([]float32{0.25, 0.75}))
		})

		It("returns the first embedding when several are present", func() {
			handler = respond(http.StatusOK, `{"data":[{"embedding":[1,1],"index":0},{"embedding":[2,2],"index":1}]}`)

			got, err := embedder.Embed(context.Background(), "sk-test", "question")
			Expect(err).NotTo(HaveOccurred())
			Expect([]float32(got)).To(Equal([]float32{1, 1}))
		})

		DescribeTable("treats a response without embeddings as unexpected",
			func(body string) {
				handler = respond(http.StatusOK, body)

				_, err := embedder.Embed(context.Background(), "sk-test", "question")
				expectKind(err, coreerr.EmbeddingUnexpectedResponse)
			},
			Entry("empty data", `{"data":[]}`),
			Entry("missing data", `{}`),
			Entry("empty body", ``),
			Entry("malformed body", `{"data":[`),
			Entry("entry without embedding", `{"data":[{"index":0}]}`),
			Entry("null embedding", `{"data":[{"embedding":null}]}`),
			Entry("empty embedding", `{"data":[{"embedding":[],"index":0}]}`),
		)
	})

	Describe("error classification", func() {
		DescribeTable("maps status and error.code to a kind",
			func(status int, body string, kind coreerr.Kind) {
				handler = respond(status, body)

				_, err := embedder.Embed(context.Background(), "sk-test", "question")
				expectKind(err, kind)
			},
			Entry("401 with any body", 401, `{"error":{"code":"invalid_api_key"}}`, coreerr.EmbeddingKeyInvalid),
			Entry("401 without body", 401, ``, coreerr.EmbeddingKeyInvalid),
			Entry("403 with any body", 403, `{"error":{"code":"unsupported_country"}}`, coreerr.EmbeddingKeyForbidden),
			Entry("403 with garbage", 403, `<html>`, coreerr.EmbeddingKeyForbidden),
			Entry("429 rate limited", 429, `{"error":{"code":"rate_limit_exceeded"}}`, coreerr.EmbeddingTooManyRequests),
			Entry("429 quota exceeded", 429, `{"error":{"code":"quota_exceeded"}}`, coreerr.EmbeddingQuotaExceeded),
			Entry("429 unknown code", 429, `{"error":{"code":"something_else"}}`, coreerr.EmbeddingUnknown),
			Entry("429 null code", 429, `{"error":{"code":null}}`, coreerr.EmbeddingUnknown),
			Entry("429 numeric code", 429, `{"error":{"code":429}}`, coreerr.EmbeddingUnknown),
			Entry("429 unparseable body", 429, `not json`, coreerr.EmbeddingUnknown),
			Entry("429 empty body", 429, ``, coreerr.EmbeddingUnknown),
			Entry("400 context length", 400, `{"error":{"code":"context_length_exceeded"}}`, coreerr.EmbeddingContextLengthExceeded),
			Entry("400 other code", 400, `{"error":{"code":"invalid_request"}}`, coreerr.EmbeddingUnknown),
			Entry("400 missing error", 400, `{}`, coreerr.EmbeddingUnknown),
			Entry("404", 404, `{"error":{"code":"model_not_found"}}`, coreerr.EmbeddingModelNotFound),
			Entry("500", 500, `{"error":{"code":"server_error"}}`, coreerr.EmbeddingInternalServerError),
			Entry("502", 502, ``, coreerr.EmbeddingUnknown),
			Entry("503", 503, `{"error":{"code":"rate_limit_exceeded"}}`, coreerr.EmbeddingUnknown),
		)

		It("keeps the upstream status in the error chain", func() {
			handler = respond(http.StatusTooManyRequests, `{"error":{"code":"quota_exceeded"}}`)

			_, err := embedder.Embed(context.Background(), "sk-test", "question")
			status, ok := coreerr.UpstreamStatus(err)
			Expect(ok).To(BeTrue())
			Expect(status).To(Equal(http.StatusTooManyRequests))
			Expect(coreerr.StatusOf(err)).To(Equal(http.StatusTooManyRequests))
		})

		It("surfaces key failures as 400", func() {
			handler = respond(http.StatusUnauthorized, ``)

			_, err := embedder.Embed(context.Background(), "", "question")
			Expect(coreerr.StatusOf(err)).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("transport failures", func() {
		It("classifies a client timeout as EMBEDDING_TIMEOUT", func() {
			release := make(chan struct{})
			defer close(release)
			handler = func(_ http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}

			slow, err := openai.NewEmbedder(openai.EmbedderConfig{
				BaseURL: server.URL,
				Timeout: 20 * time.Millisecond,
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			_, err = slow.Embed(context.Background(), "sk-test", "question")
			expectKind(err, coreerr.EmbeddingTimeout)
			Expect(coreerr.StatusOf(err)).To(Equal(http.StatusGatewayTimeout))
		})

		It("classifies a refused connection as EMBEDDING_UNKNOWN", func() {
			down := httptest.NewServer(http.NotFoundHandler())
			url := down.URL
			down.Close()

			e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: url}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Embed(context.Background(), "sk-test", "question")
			expectKind(err, coreerr.EmbeddingUnknown)
		})
	})

	Describe("NewEmbedder", func() {
		It("defaults base URL and model", func() {
			e, err := openai.NewEmbedder(openai.EmbedderConfig{}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(e).NotTo(BeNil())
			Expect(e.Close()).To(Succeed())
		})
	})
})
