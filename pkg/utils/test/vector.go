package testutils

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/ragchat/pkg/vector"
)

// MockVectorDriver is an in-memory vector.Driver that keeps the latest chunk
// per id, so repeated saves of the same chunks leave the same state.
type MockVectorDriver struct {
	mu sync.Mutex

	points map[string]vector.Chunk
	order  []string

	// SearchErr and SaveErr, when set, are returned by the matching call.
	SearchErr error
	SaveErr   error

	SearchCalls int
	SaveCalls   int

	// LastQuery and LastTopK hold the arguments of the latest Search.
	LastQuery vector.Vector
	LastTopK  int
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		points: make(map[string]vector.Chunk),
	}
}

// Search returns stored chunks in insertion order, truncated to topK, each
// carrying the query vector.
func (m *MockVectorDriver) Search(_ context.Context, query vector.Vector, topK int) ([]vector.Chunk, error) {
	if err := vector.ValidateTopK(topK); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SearchCalls++
	m.LastQuery = query
	m.LastTopK = topK
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	results := make([]vector.Chunk, 0, min(topK, len(m.order)))
	for _, id := range m.order {
		if len(results) == topK {
			break
		}
		c := m.points[id]
		c.Vector = query
		results = append(results, c)
	}
	return results, nil
}

func (m *MockVectorDriver) Save(_ context.Context, chunks []vector.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}

	for _, c := range chunks {
		if _, ok := m.points[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		c.Vector = slices.Clone(c.Vector)
		m.points[c.ID] = c
	}
	return nil
}

// Points returns a copy of the stored chunks keyed by id.
func (m *MockVectorDriver) Points() map[string]vector.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]vector.Chunk, len(m.points))
	for id, c := range m.points {
		out[id] = c
	}
	return out
}

func (m *MockVectorDriver) Close() error {
	return nil
}

var _ vector.Driver = (*MockVectorDriver)(nil)
