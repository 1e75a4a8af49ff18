// Package retrieval composes an embeddings.Embedder and a vector.Driver into
// the two operations the chat backend needs: answering-side retrieval and
// chunk ingestion.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/embeddings"
	"github.com/papercomputeco/ragchat/pkg/eventstream"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

const defaultConcurrency = 4

// EventSink receives an event after every successful save.
type EventSink interface {
	Enqueue(event *eventstream.ChunksSavedEvent) bool
}

// Config is the configuration for a Retriever.
type Config struct {
	Embedder embeddings.Embedder
	Driver   vector.Driver

	// Events is optional. When nil no events are emitted.
	Events EventSink

	// Store describes the backing store in emitted events.
	Store eventstream.StoreMeta

	// Concurrency bounds parallel embedding calls during ingestion.
	// Defaults to 4.
	Concurrency int

	Logger *slog.Logger
}

// Retriever embeds text and talks to the vector store. It holds no mutable
// state and is safe for concurrent use.
type Retriever struct {
	embedder    embeddings.Embedder
	driver      vector.Driver
	events      EventSink
	store       eventstream.StoreMeta
	concurrency int
	logger      *slog.Logger
}

// New creates a Retriever.
func New(c Config) (*Retriever, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Driver == nil {
		return nil, errors.New("vector driver is required")
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Retriever{
		embedder:    c.Embedder,
		driver:      c.Driver,
		events:      c.Events,
		store:       c.Store,
		concurrency: concurrency,
		logger:      c.Logger.With("component", "retrieval"),
	}, nil
}

// Retrieve embeds question with apiKey and returns the topK most similar
// chunks. topK is validated before the embedding call.
func (r *Retriever) Retrieve(ctx context.Context, apiKey, question string, topK int) ([]vector.Chunk, error) {
	if err := vector.ValidateTopK(topK); err != nil {
		return nil, err
	}

	query, err := r.embedder.Embed(ctx, apiKey, question)
	if err != nil {
		return nil, err
	}

	chunks, err := r.driver.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieved chunks",
		"top_k", topK,
		"results", len(chunks),
		"dimensions", len(query),
	)
	return chunks, nil
}

// Document is a chunk to ingest, before it has a vector.
type Document struct {
	// ID is optional; a UUID is assigned when empty.
	ID         string
	Text       string
	DocumentID string
	URL        string
}

func (d Document) validate(i int) error {
	if strings.TrimSpace(d.Text) == "" {
		return coreerr.WithMessage(coreerr.BadRequest, fmt.Sprintf("chunks[%d]: text is required", i))
	}
	if strings.TrimSpace(d.DocumentID) == "" {
		return coreerr.WithMessage(coreerr.BadRequest, fmt.Sprintf("chunks[%d]: documentId is required", i))
	}
	return nil
}

// Ingest embeds every document, saves all of them with one upsert and
// returns the saved ids in input order. Nothing is saved if any embedding
// fails.
func (r *Retriever) Ingest(ctx context.Context, apiKey string, docs []Document) ([]string, error) {
	if len(docs) == 0 {
		return nil, coreerr.WithMessage(coreerr.BadRequest, "chunks are required")
	}
	for i, d := range docs {
		if err := d.validate(i); err != nil {
			return nil, err
		}
	}

	startedAt := time.Now()

	chunks := make([]vector.Chunk, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}

		g.Go(func() error {
			v, err := r.embedder.Embed(gctx, apiKey, d.Text)
			if err != nil {
				return err
			}
			chunks[i] = vector.Chunk{
				ID:         id,
				Text:       d.Text,
				DocumentID: d.DocumentID,
				URL:        d.URL,
				Vector:     v,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := r.driver.Save(ctx, chunks); err != nil {
		return nil, err
	}

	ids := make([]string, len(chunks))
	refs := make([]eventstream.ChunkRef, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		refs[i] = eventstream.ChunkRef{ID: c.ID, DocumentID: c.DocumentID, URL: c.URL}
	}

	r.logger.Info("ingested chunks", "count", len(chunks))

	if r.events != nil {
		r.events.Enqueue(eventstream.NewChunksSavedEvent(r.store, refs, startedAt, time.Now()))
	}

	return ids, nil
}
