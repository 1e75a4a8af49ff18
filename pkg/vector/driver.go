// Package vector provides the chunk model and the Driver interface that every
// vector store backend implements.
package vector

import (
	"context"
	"slices"
)

// DefaultTopK is the number of results requested when the caller has no
// preference.
const DefaultTopK = 5

// Vector is an embedding. Backends and callers treat it as immutable once
// produced.
type Vector []float32

// Equal reports whether v and o hold exactly the same values, element-wise
// and without tolerance.
func (v Vector) Equal(o Vector) bool {
	return slices.Equal(v, o)
}

// Chunk is a unit of source text plus its embedding and provenance.
type Chunk struct {
	// ID is unique within a store. Saving a chunk with an existing ID
	// overwrites the stored point.
	ID string

	Text       string
	DocumentID string

	// URL is optional provenance; empty means absent.
	URL string

	// Vector is the chunk's embedding on Save. On Search results it is the
	// query vector that produced the match, not the stored vector.
	Vector Vector
}

// Driver handles similarity search and upsert of chunks against one backing
// vector store. All errors returned are *coreerr.Error with a store kind.
// Implementations hold no mutable state beyond their connection handle and
// are safe for concurrent use.
type Driver interface {
	// Search returns up to topK chunks ordered by similarity to query. topK
	// must be positive; otherwise a STORE_BAD_REQUEST error is returned
	// without touching the store. An empty result set is not an error.
	Search(ctx context.Context, query Vector, topK int) ([]Chunk, error)

	// Save upserts all chunks in a single request and returns once the store
	// has acknowledged persistence.
	Save(ctx context.Context, chunks []Chunk) error

	// Close releases any resources held by the driver.
	Close() error
}
