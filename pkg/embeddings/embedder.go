// Package embeddings defines the text embedding contract.
package embeddings

import (
	"context"

	"github.com/papercomputeco/ragchat/pkg/vector"
)

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding with exactly one upstream
	// request. apiKey is forwarded as-is; an empty or wrong key surfaces as a
	// classified upstream failure. All errors are *coreerr.Error with an
	// embedding kind.
	Embed(ctx context.Context, apiKey, text string) (vector.Vector, error)

	// Close releases any resources held by the embedder.
	Close() error
}
