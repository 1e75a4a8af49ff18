package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/ragchat/pkg/embeddings"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	mu sync.Mutex

	Embeddings map[string]vector.Vector

	// Errors maps input text to the error Embed returns for it.
	Errors map[string]error

	// Keys records the api key of every call.
	Keys []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string]vector.Vector),
		Errors:     make(map[string]error),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, apiKey, text string) (vector.Vector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Keys = append(m.Keys, apiKey)

	if err, ok := m.Errors[text]; ok {
		return nil, err
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	// Return a default embedding for any text
	return vector.Vector{0.1, 0.2, 0.3}, nil
}

// Calls returns how many times Embed was invoked.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Keys)
}

func (m *MockEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*MockEmbedder)(nil)
