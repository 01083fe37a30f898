package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	// AdmissionPoolSize is how many of the strongest existing units new
	// candidates are compared against for deduplication, novelty, and
	// interference.
	AdmissionPoolSize = 200

	// DuplicateOverlap is the summary Jaccard at or above which a candidate
	// is treated as a repeat of an existing unit.
	DuplicateOverlap = 0.7

	// Interference counts only units on the same topic with different
	// content: similarity strictly inside (InterferenceLow, InterferenceHigh).
	// Above the band the candidate is a near-duplicate, below it unrelated.
	InterferenceLow  = 0.3
	InterferenceHigh = 0.8

	// interferencePenalty scales how hard interference cuts the initial
	// strength of a new unit.
	interferencePenalty = 0.2

	// initialUtility is the utility score of a unit that has never been
	// retrieved.
	initialUtility = 0.5
)

// ProcessOptions attaches session and project context to an admission batch.
type ProcessOptions struct {
	SessionID    string
	ProjectScope string
}

// ProcessCandidates scores each candidate against the pool of strongest
// existing units and persists the survivors as memory units. Candidates that
// duplicate an existing unit reinforce it instead of creating a new one.
// The returned slice holds only newly created units.
func (e *Engine) ProcessCandidates(ctx context.Context, candidates []memory.Candidate, opts ProcessOptions) ([]memory.Unit, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	pool, err := e.storer.StrongestPool(ctx, AdmissionPoolSize)
	if err != nil {
		return nil, fmt.Errorf("loading admission pool: %w", err)
	}

	poolSets := make([]map[string]struct{}, len(pool))
	for i := range pool {
		poolSets[i] = memory.WordSet(pool[i].Summary)
	}

	now := e.clock().UTC()
	created := make([]memory.Unit, 0, len(candidates))

	for _, cand := range candidates {
		candSet := memory.WordSet(cand.Summary)

		maxSim, nearest := 0.0, -1
		for i, set := range poolSets {
			if sim := memory.JaccardSets(candSet, set); sim > maxSim {
				maxSim, nearest = sim, i
			}
		}

		if maxSim >= DuplicateOverlap {
			// Repeat of something already known: reinforce the existing
			// unit rather than storing a copy.
			if err := e.storer.BumpFrequency(ctx, pool[nearest].ID, now); err != nil {
				e.logger.Warn("failed to reinforce duplicate",
					zap.String("unit_id", pool[nearest].ID),
					zap.Error(err),
				)
			}
			e.logger.Debug("candidate duplicates existing unit",
				zap.String("unit_id", pool[nearest].ID),
				zap.Float64("similarity", maxSim),
			)
			continue
		}

		unit := buildUnit(cand, opts, maxSim, interferenceAgainst(candSet, poolSets), now)

		if err := e.storer.CreateUnit(ctx, unit); err != nil {
			return created, fmt.Errorf("persisting unit: %w", err)
		}
		created = append(created, unit)

		e.publish(ctx, eventstream.NewMemoryEvent(eventstream.EventTypeMemoryCreated, &unit))

		if e.pool != nil {
			e.pool.enqueue(enrichJob{
				unitID:  unit.ID,
				summary: unit.Summary,
				scope:   unit.ProjectScope,
			})
		}

		e.logger.Debug("memory unit created",
			zap.String("unit_id", unit.ID),
			zap.String("classification", string(unit.Classification)),
			zap.String("store", string(unit.Store)),
			zap.Float64("strength", unit.Strength),
		)
	}

	return created, nil
}

// buildUnit scores a candidate into a persisted unit. Pure: the existing
// pool's influence arrives as precomputed maxSim and interference.
func buildUnit(cand memory.Candidate, opts ProcessOptions, maxSim, interference float64, now time.Time) memory.Unit {
	store := memory.StoreSTM
	if cand.Classification.AutoPromote() {
		store = memory.StoreLTM
	}

	features := memory.Features{
		Recency:      0,
		Frequency:    1,
		Importance:   cand.PreliminaryImportance,
		Utility:      initialUtility,
		Novelty:      1 - maxSim,
		Confidence:   cand.Confidence,
		Interference: 0,
	}

	// Interference does not enter the weighted blend at creation; it cuts
	// the initial strength directly and is recorded on the unit for later
	// passes to see.
	strength := features.Strength() * (1 - interference*interferencePenalty)
	features.Interference = interference

	unit := memory.Unit{
		ID:             memory.NewUnitID(),
		SessionID:      opts.SessionID,
		Store:          store,
		Classification: cand.Classification,
		Summary:        cand.Summary,
		SourceEventIDs: append([]string(nil), cand.SourceEventIDs...),
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
		Features:       features,
		Strength:       memory.Clamp01(strength),
		DecayRate:      store.DecayRate(),
		Tags:           append([]string(nil), cand.Tags...),
		Status:         memory.StatusActive,
		Version:        1,
	}

	if !cand.Classification.UserLevel() {
		unit.ProjectScope = opts.ProjectScope
	}

	return unit
}

// interferenceAgainst is the strongest same-topic-different-content overlap
// between the candidate and the pool, scaled to a penalty.
func interferenceAgainst(candSet map[string]struct{}, poolSets []map[string]struct{}) float64 {
	var max float64
	for _, set := range poolSets {
		sim := memory.JaccardSets(candSet, set)
		if sim > InterferenceLow && sim < InterferenceHigh {
			if v := sim * 0.5; v > max {
				max = v
			}
		}
	}
	return max
}
