// Package search implements semantic search over memory embeddings,
// shared by the HTTP endpoint and the MCP search path.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Result is one semantic search hit joined with its memory unit.
type Result struct {
	ID             string                `json:"id"`
	Score          float32               `json:"score"`
	Summary        string                `json:"summary"`
	Classification memory.Classification `json:"classification"`
	Store          memory.StoreClass     `json:"store"`
	Status         memory.Status         `json:"status"`
	ProjectScope   string                `json:"project_scope,omitempty"`
	Strength       float64               `json:"strength"`
	Tags           []string              `json:"tags,omitempty"`
}

// Output is the response of a semantic search.
type Output struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Count   int      `json:"count"`
}

// Search embeds the query, finds the nearest memory embeddings, and joins
// the hits back to their stored units. Hits whose unit has been retired
// since embedding are dropped with a warning.
func Search(
	ctx context.Context,
	query string,
	topK int,
	embedder embeddings.Embedder,
	vectorDriver vector.Driver,
	storer storage.Driver,
	logger *zap.Logger,
) (*Output, error) {
	queryEmbedding, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := vectorDriver.Query(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		unit, err := storer.GetUnit(ctx, hit.ID)
		if err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			logger.Warn("failed to load unit for search hit",
				zap.String("id", hit.ID),
				zap.Error(err),
			)
			continue
		}

		results = append(results, Result{
			ID:             unit.ID,
			Score:          hit.Score,
			Summary:        unit.Summary,
			Classification: unit.Classification,
			Store:          unit.Store,
			Status:         unit.Status,
			ProjectScope:   unit.ProjectScope,
			Strength:       unit.Strength,
			Tags:           unit.Tags,
		})
	}

	return &Output{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}
