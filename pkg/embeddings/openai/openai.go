// Package openai implements pkg/embeddings' Embedder for OpenAI's embeddings API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/embeddings"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

const (
	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultEmbeddingModel is the model sent when none is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultDimensions is the vector length of DefaultEmbeddingModel.
	DefaultDimensions = 1536

	maxErrorBody = 64 << 10
)

// Errors classifies failed embedding responses. Codes are only consulted
// where a status is ambiguous; a code that is present but unknown falls back
// to EMBEDDING_UNKNOWN.
var Errors = coreerr.Table{
	Rules: []coreerr.Rule{
		{Status: http.StatusUnauthorized, Kind: coreerr.EmbeddingKeyInvalid},
		{Status: http.StatusForbidden, Kind: coreerr.EmbeddingKeyForbidden},
		{Status: http.StatusTooManyRequests, Code: "rate_limit_exceeded", Kind: coreerr.EmbeddingTooManyRequests},
		{Status: http.StatusTooManyRequests, Code: "quota_exceeded", Kind: coreerr.EmbeddingQuotaExceeded},
		{Status: http.StatusBadRequest, Code: "context_length_exceeded", Kind: coreerr.EmbeddingContextLengthExceeded},
		{Status: http.StatusNotFound, Kind: coreerr.EmbeddingModelNotFound},
		{Status: http.StatusInternalServerError, Kind: coreerr.EmbeddingInternalServerError},
	},
	Timeout:  coreerr.EmbeddingTimeout,
	Fallback: coreerr.EmbeddingUnknown,
}

// Embedder wraps OpenAI's embeddings API. The API key is supplied per call.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// BaseURL is the API URL without the /v1 suffix.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model. Defaults to DefaultEmbeddingModel.
	Model string

	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration

	// HTTPClient overrides the client used for requests.
	HTTPClient *http.Client
}

// NewEmbedder creates a new embedder using OpenAI's embeddings API.
func NewEmbedder(cfg EmbedderConfig, logger *slog.Logger) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Embedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     logger.With("component", "openai_embedder"),
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, apiKey, text string) (vector.Vector, error) {
	jsonBody, err := json.Marshal(embedRequest{Input: text, Model: e.model})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.EmbeddingUnknown, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.EmbeddingUnknown, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		classified := Errors.FromTransport(err)
		e.logger.Warn("embedding request failed",
			"kind", classified.Kind.String(),
			"error", err,
		)
		return nil, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		code := errorCode(body)
		classified := Errors.FromResponse(resp.StatusCode, code)
		e.logger.Warn("embedding provider returned error status",
			"status", resp.StatusCode,
			"code", code,
			"kind", classified.Kind.String(),
		)
		return nil, classified
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		if coreerr.IsTimeout(err) {
			return nil, coreerr.Wrap(coreerr.EmbeddingTimeout, err)
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("empty response body")
		}
		return nil, coreerr.Wrap(coreerr.EmbeddingUnexpectedResponse, fmt.Errorf("decoding response: %w", err))
	}

	if len(embedResp.Data) == 0 {
		e.logger.Warn("embedding provider returned no data")
		return nil, coreerr.Wrap(coreerr.EmbeddingUnexpectedResponse, errors.New("no embeddings returned"))
	}

	if len(embedResp.Data[0].Embedding) == 0 {
		e.logger.Warn("embedding provider returned an empty embedding")
		return nil, coreerr.Wrap(coreerr.EmbeddingUnexpectedResponse, errors.New("empty embedding returned"))
	}

	embedding := vector.Vector(embedResp.Data[0].Embedding)
	e.logger.Debug("embedded text",
		"model", e.model,
		"dimensions", len(embedding),
	)

	return embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
