// Package api provides the ragchat HTTP API: the chat endpoint that retrieves
// context for a question and the ingestion endpoint that stores chunks.
package api

import (
	"context"
	"time"

	"github.com/papercomputeco/ragchat/pkg/retrieval"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

// DefaultTopK is the number of chunks retrieved when a chat request does not
// say otherwise.
const DefaultTopK = 5

// Retriever is the retrieval layer the handlers depend on.
// *retrieval.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, apiKey, question string, topK int) ([]vector.Chunk, error)
	Ingest(ctx context.Context, apiKey string, docs []retrieval.Document) ([]string, error)
}

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// RequestTimeout bounds the work done for a single request. Zero leaves
	// requests unbounded.
	RequestTimeout time.Duration

	// DefaultTopK is used when a chat request has no topK. Defaults to
	// DefaultTopK.
	DefaultTopK int

	// Retriever is optional. Without it chat answers carry no sources and
	// ingestion is unavailable.
	Retriever Retriever
}
