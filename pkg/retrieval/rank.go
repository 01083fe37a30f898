// Package retrieval ranks memory units against a query, applies the
// injection budget, and suppresses contradicting pairs before injection.
// All functions are pure over explicit pools; callers own storage access.
package retrieval

import (
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// Scored pairs a unit with its relevance score for a query.
type Scored struct {
	Unit  *memory.Unit `json:"unit"`
	Score float64      `json:"score"`
}

// PoolSize returns how many candidates ranking wants for a requested result
// limit. Bounded so small limits still rank against a meaningful pool and
// large limits do not drag the whole store through scoring.
func PoolSize(limit int) int {
	size := limit * 10
	if size < 50 {
		size = 50
	}
	if size > 200 {
		size = 200
	}
	return size
}

// Rank scores the pool against the query and returns it highest first. An
// empty query falls back to strength ordering. The query embedding is
// optional; units without embeddings are scored lexically either way.
func Rank(pool []*memory.Unit, query string, queryEmbedding []float32, now time.Time) []Scored {
	scored := make([]Scored, 0, len(pool))

	query = strings.TrimSpace(query)
	if query == "" {
		for _, unit := range pool {
			scored = append(scored, Scored{Unit: unit, Score: unit.Strength})
		}
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].Score != scored[j].Score {
				return scored[i].Score > scored[j].Score
			}
			return scored[i].Unit.CreatedAt.After(scored[j].Unit.CreatedAt)
		})
		return scored
	}

	queryWords := memory.WordSet(query)

	for _, unit := range pool {
		sim := textSimilarity(query, queryWords, queryEmbedding, unit)

		// Strength scales similarity rather than adding to it, so a weak
		// memory that matches well still beats a strong one that doesn't
		// match at all.
		score := sim * 2.0 * (0.5 + unit.Strength*0.5)
		score += 0.15 * float64(matchingTags(queryWords, unit.Tags))
		score += freshnessBonus(unit.AgeHours(now))

		scored = append(scored, Scored{Unit: unit, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Unit.Strength > scored[j].Unit.Strength
	})

	return scored
}

// textSimilarity blends lexical overlap with embedding similarity when both
// sides carry an embedding.
func textSimilarity(query string, queryWords map[string]struct{}, queryEmbedding []float32, unit *memory.Unit) float64 {
	jaccard := memory.JaccardSets(queryWords, memory.WordSet(unit.Summary))
	keyword := memory.KeywordHitRatio(query, unit.Summary)

	if len(queryEmbedding) > 0 && len(unit.Embedding) > 0 {
		cosine := memory.CosineNorm(queryEmbedding, unit.Embedding)
		return cosine*0.4 + jaccard*0.3 + keyword*0.3
	}

	return jaccard*0.5 + keyword*0.5
}

// matchingTags counts unit tags whose every token appears in the query.
func matchingTags(queryWords map[string]struct{}, tags []string) int {
	var n int
	for _, tag := range tags {
		tokens := memory.Tokenize(tag)
		if len(tokens) == 0 {
			continue
		}

		hit := true
		for _, tok := range tokens {
			if _, ok := queryWords[tok]; !ok {
				hit = false
				break
			}
		}
		if hit {
			n++
		}
	}
	return n
}

// freshnessBonus gives a small edge to units created within roughly the
// last hundred hours.
func freshnessBonus(ageHours float64) float64 {
	bonus := 0.05 - ageHours/2000
	if bonus < 0 {
		return 0
	}
	return bonus
}
