package eventstream

import "context"

// Publisher publishes ingestion events to an event stream backend.
type Publisher interface {
	PublishChunksSaved(ctx context.Context, event *ChunksSavedEvent) error
	Close() error
}
