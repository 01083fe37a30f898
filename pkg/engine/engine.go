// Package engine implements the selective-memory core: admission of swept
// candidates into strength-scored units, decay and consolidation passes,
// explicit feedback, and scope-aware retrieval with conflict filtering.
//
// The engine owns no goroutines besides the embedding enrichment pool; every
// operation is synchronous over the storage driver so callers control
// scheduling.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/nop"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Engine wires the memory pipeline's write and read paths over a storage
// driver. Vector index, embedder, and publisher are optional collaborators;
// the engine degrades to lexical-only operation without them.
type Engine struct {
	storer    storage.Driver
	vectors   vector.Driver
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	pool      *enrichPool
	logger    *zap.Logger
	clock     func() time.Time
}

// Options configures an Engine.
type Options struct {
	// Storer is the storage backend. Required.
	Storer storage.Driver

	// Vectors is an optional ANN index mirroring unit embeddings.
	Vectors vector.Driver

	// Embedder optionally generates summary and query embeddings.
	Embedder embeddings.Embedder

	// Publisher receives lifecycle events. Defaults to the no-op publisher.
	Publisher eventstream.Publisher

	// Logger is the logger to use. Required.
	Logger *zap.Logger

	// Clock overrides the time source, for tests. Defaults to time.Now.
	Clock func() time.Time

	// EnrichWorkers and EnrichQueueSize tune the embedding pool.
	EnrichWorkers   uint
	EnrichQueueSize uint
}

// New creates an Engine and starts its enrichment pool when an embedder is
// configured.
func New(opts Options) (*Engine, error) {
	if opts.Storer == nil {
		return nil, fmt.Errorf("storage driver is required")
	}
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	publisher := opts.Publisher
	if publisher == nil {
		publisher = nop.NewPublisher()
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		storer:    opts.Storer,
		vectors:   opts.Vectors,
		embedder:  opts.Embedder,
		publisher: publisher,
		logger:    opts.Logger,
		clock:     clock,
	}

	if opts.Embedder != nil {
		e.pool = newEnrichPool(enrichConfig{
			storer:    opts.Storer,
			vectors:   opts.Vectors,
			embedder:  opts.Embedder,
			workers:   opts.EnrichWorkers,
			queueSize: opts.EnrichQueueSize,
			logger:    opts.Logger,
		})
	}

	return e, nil
}

// Close drains the enrichment pool. The storage driver and other
// collaborators are owned by the caller and stay open.
func (e *Engine) Close() error {
	if e.pool != nil {
		e.pool.close()
	}
	return nil
}

// publish emits a lifecycle event. Delivery failures are logged and
// swallowed; event delivery never fails a memory operation.
func (e *Engine) publish(ctx context.Context, event *eventstream.MemoryEvent) {
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish memory event",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}
