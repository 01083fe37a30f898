package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/retrieval"
)

// RetrieveOptions scopes and shapes one retrieval call.
type RetrieveOptions struct {
	// SessionID attributes the retrieval log entries, when known.
	SessionID string

	// CurrentProject widens the pool with units scoped to this project.
	// User-level units are always eligible.
	CurrentProject string

	// Query ranks the pool by relevance. Empty means strongest-first.
	Query string

	// Limit caps the injection set. Zero means the full budget.
	Limit int
}

// RetrievalSet is the outcome of one retrieval call: the memories to
// inject, and the ones a conflict suppressed along with what beat them.
type RetrievalSet struct {
	Units      []memory.Unit          `json:"units"`
	Suppressed []retrieval.Suppressed `json:"suppressed,omitempty"`
}

// Retrieve ranks the scope-filtered pool against the query, applies the
// injection budget, and removes contradicting pairs. Surfaced units get
// their access time bumped and a retrieval log row each.
func (e *Engine) Retrieve(ctx context.Context, opts RetrieveOptions) (RetrievalSet, error) {
	limit := opts.Limit
	if limit <= 0 || limit > retrieval.MaxTotal {
		limit = retrieval.MaxTotal
	}

	pool, err := e.storer.ScopePool(ctx, opts.CurrentProject, retrieval.PoolSize(limit))
	if err != nil {
		return RetrievalSet{}, fmt.Errorf("loading scope pool: %w", err)
	}
	if len(pool) == 0 {
		return RetrievalSet{}, nil
	}

	refs := make([]*memory.Unit, len(pool))
	for i := range pool {
		refs[i] = &pool[i]
	}

	now := e.clock().UTC()

	ranked := retrieval.Rank(refs, opts.Query, e.queryEmbedding(ctx, opts.Query), now)
	budgeted := retrieval.Budget(ranked)
	if len(budgeted) > limit {
		budgeted = budgeted[:limit]
	}

	selected := make([]*memory.Unit, len(budgeted))
	scores := make(map[string]float64, len(budgeted))
	for i, s := range budgeted {
		selected[i] = s.Unit
		scores[s.Unit.ID] = s.Score
	}

	clean, suppressed := retrieval.FilterConflicts(selected)

	set := RetrievalSet{Suppressed: suppressed}
	ids := make([]string, 0, len(clean))
	logs := make([]memory.RetrievalLog, 0, len(clean))
	for _, unit := range clean {
		set.Units = append(set.Units, *unit.Clone())
		ids = append(ids, unit.ID)
		logs = append(logs, memory.RetrievalLog{
			ID:             uuid.NewString(),
			SessionID:      opts.SessionID,
			MemoryID:       unit.ID,
			Query:          opts.Query,
			Timestamp:      now,
			RelevanceScore: scores[unit.ID],
		})
	}

	// Bookkeeping failures degrade future scoring but never fail the read.
	if err := e.storer.LogRetrieval(ctx, logs); err != nil {
		e.logger.Warn("failed to log retrieval", zap.Error(err))
	}
	if err := e.storer.BumpAccess(ctx, ids, now); err != nil {
		e.logger.Warn("failed to bump access times", zap.Error(err))
	}

	e.logger.Debug("retrieval complete",
		zap.Int("pool", len(pool)),
		zap.Int("injected", len(set.Units)),
		zap.Int("suppressed", len(set.Suppressed)),
	)

	return set, nil
}

// queryEmbedding embeds the query when an embedder is configured. Failure
// or absence falls back to lexical-only ranking.
func (e *Engine) queryEmbedding(ctx context.Context, query string) []float32 {
	if e.embedder == nil || query == "" {
		return nil
	}

	embedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, ranking lexically", zap.Error(err))
		return nil
	}
	return embedding
}
