package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeChunksSaved is emitted after a batch of chunks is persisted
	// in the vector store.
	EventTypeChunksSaved = "ragchat.chunks.saved"
)

// ChunksSavedEvent is a transport-neutral event payload for an ingested
// batch of chunks. Chunk text and vectors are not carried.
type ChunksSavedEvent struct {
	SchemaVersion int        `json:"schema_version"`
	EventType     string     `json:"event_type"`
	EventID       string     `json:"event_id"`
	EmittedAt     time.Time  `json:"emitted_at"`
	Store         StoreMeta  `json:"store"`
	Chunks        []ChunkRef `json:"chunks"`
	Request       IngestMeta `json:"request"`
}

// StoreMeta identifies the vector store the chunks were saved to.
type StoreMeta struct {
	Provider   string `json:"provider"`
	Collection string `json:"collection,omitempty"`
}

// ChunkRef identifies one saved chunk.
type ChunkRef struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	URL        string `json:"url,omitempty"`
}

// IngestMeta captures timing of the ingestion that produced the event.
type IngestMeta struct {
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// NewChunksSavedEvent builds a v1 event with a fresh id.
func NewChunksSavedEvent(store StoreMeta, chunks []ChunkRef, startedAt, completedAt time.Time) *ChunksSavedEvent {
	return &ChunksSavedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeChunksSaved,
		EventID:       uuid.NewString(),
		EmittedAt:     completedAt.UTC(),
		Store:         store,
		Chunks:        chunks,
		Request: IngestMeta{
			StartedAt:   startedAt.UTC(),
			CompletedAt: completedAt.UTC(),
			DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		},
	}
}
