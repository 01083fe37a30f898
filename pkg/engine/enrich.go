package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

var (
	defaultEnrichWorkers   uint = 2
	defaultEnrichQueueSize uint = 256
)

// enrichJob asks the pool to embed a unit's summary and write it back.
type enrichJob struct {
	unitID  string
	summary string
	scope   string
}

type enrichConfig struct {
	storer    storage.Driver
	vectors   vector.Driver
	embedder  embeddings.Embedder
	workers   uint
	queueSize uint
	logger    *zap.Logger
}

// enrichPool generates summary embeddings off the write path. Enqueueing
// never blocks: when the queue is full the job is dropped and the unit
// simply stays lexical-only, which retrieval handles.
type enrichPool struct {
	config enrichConfig
	queue  chan enrichJob
	wg     sync.WaitGroup
	logger *zap.Logger
}

func newEnrichPool(c enrichConfig) *enrichPool {
	if c.workers == 0 {
		c.workers = defaultEnrichWorkers
	}
	if c.queueSize == 0 {
		c.queueSize = defaultEnrichQueueSize
	}

	p := &enrichPool{
		config: c,
		queue:  make(chan enrichJob, c.queueSize),
		logger: c.logger,
	}

	p.wg.Add(int(c.workers))
	for i := range c.workers {
		go p.worker(i)
	}

	return p
}

// enqueue submits a job. Returns false when the queue is full and the job
// was dropped.
func (p *enrichPool) enqueue(job enrichJob) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("enrichment queued", zap.String("unit_id", job.unitID))
		return true
	default:
		p.logger.Warn("enrichment queue full, dropping job",
			zap.String("unit_id", job.unitID),
		)
		return false
	}
}

// close stops the workers after draining in-flight jobs.
func (p *enrichPool) close() {
	close(p.queue)
	p.wg.Wait()
}

func (p *enrichPool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("enrichment worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.process(job)
	}

	p.logger.Debug("enrichment worker stopped", zap.Uint("worker_id", id))
}

// process embeds the summary and writes the vector back by unit id. Every
// failure is logged and swallowed: enrichment is best-effort and the unit
// remains fully usable without it.
func (p *enrichPool) process(job enrichJob) {
	ctx := context.Background()

	embedding, err := p.config.embedder.Embed(ctx, job.summary)
	if err != nil {
		p.logger.Warn("failed to generate embedding",
			zap.String("unit_id", job.unitID),
			zap.Error(err),
		)
		return
	}

	// SetEmbedding is a no-op when the unit was retired meanwhile.
	if err := p.config.storer.SetEmbedding(ctx, job.unitID, embedding); err != nil {
		p.logger.Warn("failed to store embedding",
			zap.String("unit_id", job.unitID),
			zap.Error(err),
		)
		return
	}

	if p.config.vectors != nil {
		doc := vector.Document{
			ID:        job.unitID,
			Scope:     job.scope,
			Embedding: embedding,
		}
		if err := p.config.vectors.Add(ctx, []vector.Document{doc}); err != nil {
			p.logger.Warn("failed to index embedding",
				zap.String("unit_id", job.unitID),
				zap.Error(err),
			)
			return
		}
	}

	p.logger.Debug("stored embedding",
		zap.String("unit_id", job.unitID),
		zap.Int("embedding_dim", len(embedding)),
	)
}
