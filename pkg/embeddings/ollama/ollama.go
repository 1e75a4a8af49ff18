// Package ollama implements pkg/embeddings' Embedder for Ollama's embedding API
package ollama

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
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeout applies when no timeout is configured. Local models can
	// take a while to load on first use.
	DefaultTimeout = 120 * time.Second
)

// Errors classifies failed Ollama responses. Ollama has no keys and no
// error codes, so only the status is consulted.
var Errors = coreerr.Table{
	Rules: []coreerr.Rule{
		{Status: http.StatusNotFound, Kind: coreerr.EmbeddingModelNotFound},
		{Status: http.StatusInternalServerError, Kind: coreerr.EmbeddingInternalServerError},
	},
	Timeout:  coreerr.EmbeddingTimeout,
	Fallback: coreerr.EmbeddingUnknown,
}

// Embedder wraps Ollama's embedding API.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// EmbedderConfig holds configuration for the Ollama embedder.
type EmbedderConfig struct {
	// BaseURL is the Ollama API URL (e.g., "http://localhost:11434").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the embedding model to use (e.g., "nomic-embed-text", "all-minilm").
	// Defaults to DefaultEmbeddingModel if empty.
	Model string

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// embedRequest is the request body for Ollama's embedding API.
type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// embedResponse is the response from Ollama's embedding API.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new embedder using Ollama's embedding API.
func NewEmbedder(cfg EmbedderConfig, logger *slog.Logger) (*Embedder, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Embedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "ollama_embedder"),
	}, nil
}

// Embed converts text into a vector embedding. Ollama needs no key, so
// apiKey is ignored.
func (e *Embedder) Embed(ctx context.Context, _ string, text string) (vector.Vector, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.EmbeddingUnknown, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.EmbeddingUnknown, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		classified := Errors.FromTransport(err)
		e.logger.Warn("ollama request failed", "kind", classified.Kind.String(), "error", err)
		return nil, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		classified := Errors.FromResponse(resp.StatusCode, "")
		e.logger.Warn("ollama returned error status",
			"status", resp.StatusCode,
			"kind", classified.Kind.String(),
			"body", string(body),
		)
		return nil, classified
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		if coreerr.IsTimeout(err) {
			return nil, coreerr.Wrap(coreerr.EmbeddingTimeout, err)
		}
		return nil, coreerr.Wrap(coreerr.EmbeddingUnexpectedResponse, fmt.Errorf("decoding response: %w", err))
	}

	if len(embedResp.Embeddings) == 0 || len(embedResp.Embeddings[0]) == 0 {
		return nil, coreerr.Wrap(coreerr.EmbeddingUnexpectedResponse, errors.New("no embeddings returned"))
	}

	return embedResp.Embeddings[0], nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
