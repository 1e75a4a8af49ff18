// Package worker provides an asynchronous worker pool that publishes
// eventstream events off the request path.
//
// Publishing is best-effort: failures are logged and never reach the caller
// that produced the event.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/ragchat/pkg/eventstream"
)

var (
	defaultNumWorkers     uint = 2
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every event pulled off the queue.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds each publish (defaults to 10s).
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan *eventstream.ChunksSavedEvent
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.ChunksSavedEvent, c.QueueSize),
		logger: c.Logger.With("component", "event_pool"),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits an event for publishing. Returns false, dropping the
// event, if the queue is full.
func (p *Pool) Enqueue(event *eventstream.ChunksSavedEvent) bool {
	select {
	case p.queue <- event:
		p.logger.Debug("event queued", "event_id", event.EventID)
		return true
	default:
		p.logger.Error("event not queued, queue full, event dropped", "event_id", event.EventID)
		return false
	}
}

// Close signals workers to stop and waits for queued events to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for event := range p.queue {
		p.publish(event)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

func (p *Pool) publish(event *eventstream.ChunksSavedEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	if err := p.config.Publisher.PublishChunksSaved(ctx, event); err != nil {
		p.logger.Warn("failed to publish event",
			"event_id", event.EventID,
			"error", err,
		)
		return
	}

	p.logger.Debug("event published", "event_id", event.EventID, "chunks", len(event.Chunks))
}
