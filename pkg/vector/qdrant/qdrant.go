// Package qdrant provides a vector.Driver over Qdrant's REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

const (
	// DefaultCollectionName is the collection used when none is configured.
	DefaultCollectionName = "chunks"

	// maxErrorBody bounds how much of an error response is kept for logging.
	maxErrorBody = 4096
)

// Driver implements vector.Driver using Qdrant's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// URL is the Qdrant server URL (e.g., "http://localhost:6333").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Timeout bounds each request. Zero leaves requests bounded only by the
	// caller's context.
	Timeout time.Duration

	// HTTPClient overrides the client used for requests. Timeout is ignored
	// when set.
	HTTPClient *http.Client
}

// NewDriver creates a new Qdrant vector driver. No request is made.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("qdrant URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: c.Timeout}
	}

	return &Driver{
		baseURL:        strings.TrimRight(c.URL, "/"),
		collectionName: collectionName,
		httpClient:     httpClient,
		logger:         logger.With("component", "qdrant"),
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does
// not exist yet.
func (d *Driver) EnsureCollection(ctx context.Context, dimensions uint) error {
	endpoint := d.collectionURL("")

	err := d.do(ctx, http.MethodGet, endpoint, nil, nil)
	if err == nil {
		return nil
	}

	if status, ok := coreerr.UpstreamStatus(err); !ok || status != http.StatusNotFound {
		return err
	}

	req := collectionRequest{
		Vectors: collectionVectors{Size: dimensions, Distance: "Cosine"},
	}
	if err := d.do(ctx, http.MethodPut, endpoint, req, nil); err != nil {
		return err
	}

	d.logger.Info("created qdrant collection",
		"collection", d.collectionName,
		"dimensions", dimensions,
	)
	return nil
}

// Search finds the topK chunks most similar to query.
func (d *Driver) Search(ctx context.Context, query vector.Vector, topK int) ([]vector.Chunk, error) {
	if err := vector.ValidateTopK(topK); err != nil {
		return nil, err
	}

	reqBody := searchRequest{
		Vector:      query,
		Top:         topK,
		WithPayload: true,
	}

	var resp searchResponse
	if err := d.do(ctx, http.MethodPost, d.collectionURL("/points/search"), reqBody, &resp); err != nil {
		return nil, err
	}

	hits := resp.hits()
	chunks := make([]vector.Chunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, hit.toChunk(query))
	}

	d.logger.Debug("searched qdrant",
		"top_k", topK,
		"results", len(chunks),
	)

	return chunks, nil
}

// Save upserts chunks in one request and waits for Qdrant to persist them.
// An empty slice still issues the request, with an empty points list.
func (d *Driver) Save(ctx context.Context, chunks []vector.Chunk) error {
	reqBody := upsertRequest{Points: make([]point, len(chunks))}
	for i, c := range chunks {
		reqBody.Points[i] = toPoint(c)
	}

	if err := d.do(ctx, http.MethodPut, d.collectionURL("/points?wait=true"), reqBody, nil); err != nil {
		return err
	}

	d.logger.Debug("saved chunks to qdrant",
		"count", len(chunks),
	)

	return nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

func (d *Driver) collectionURL(suffix string) string {
	return d.baseURL + "/collections/" + url.PathEscape(d.collectionName) + suffix
}

// do sends one JSON request and decodes the response into out, if non-nil.
// Every failure is returned as a classified *coreerr.Error.
func (d *Driver) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return coreerr.Wrap(coreerr.StoreUnknown, fmt.Errorf("marshaling request: %w", err))
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return coreerr.Wrap(coreerr.StoreUnknown, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		classified := vector.StoreErrors.FromTransport(err)
		d.logger.Warn("qdrant request failed",
			"method", method,
			"kind", classified.Kind.String(),
			"error", err,
		)
		return classified
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		classified := vector.StoreErrors.FromResponse(resp.StatusCode, "")
		d.logger.Warn("qdrant returned error status",
			"method", method,
			"status", resp.StatusCode,
			"kind", classified.Kind.String(),
			"body", string(errBody),
		)
		return classified
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// An empty body is an empty result, not a failure.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return vector.StoreErrors.FromTransport(fmt.Errorf("decoding response: %w", err))
	}

	return nil
}

var _ vector.Driver = (*Driver)(nil)
