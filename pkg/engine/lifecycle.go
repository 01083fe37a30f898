package engine

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// DecayResult summarizes one decay pass.
type DecayResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Decayed int `json:"decayed"`
	Skipped int `json:"skipped"`
}

// ConsolidationResult summarizes one consolidation pass.
type ConsolidationResult struct {
	Scanned  int `json:"scanned"`
	Promoted int `json:"promoted"`
	Cleaned  int `json:"cleaned"`
}

// ApplyDecay ages every active unit by the time elapsed since its last
// strength write. Units falling below the retention floor leave the active
// set. Pinned, forgotten, and already-decayed units are untouched. A
// malformed row never aborts the pass; it is logged and skipped.
func (e *Engine) ApplyDecay(ctx context.Context) (DecayResult, error) {
	var result DecayResult

	units, err := e.storer.ListUnits(ctx, storage.UnitQuery{Status: memory.StatusActive})
	if err != nil {
		return result, fmt.Errorf("listing active units: %w", err)
	}

	now := e.clock().UTC()

	for i := range units {
		unit := units[i]
		result.Scanned++

		hours := unit.HoursSinceUpdate(now)
		if hours < 0 {
			// Clock skew: a unit written in the future decays from now.
			hours = 0
		}

		decayed := unit.Strength * math.Exp(-unit.DecayRate*hours)

		unit.Strength = decayed
		unit.UpdatedAt = now
		if decayed < memory.DecayFloor {
			unit.Status = memory.StatusDecayed
		}

		if err := e.storer.UpdateUnit(ctx, unit); err != nil {
			e.logger.Warn("decay update failed, skipping unit",
				zap.String("unit_id", unit.ID),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}

		if unit.Status == memory.StatusDecayed {
			result.Decayed++
			e.publish(ctx, eventstream.NewMemoryEvent(eventstream.EventTypeMemoryDecayed, &unit))
		} else {
			result.Updated++
		}
	}

	e.logger.Info("decay pass complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("decayed", result.Decayed),
	)

	return result, nil
}

// RunConsolidation promotes qualifying short-term units to the long-term
// store: strength at or above the promotion threshold, frequency at or above
// the promotion count, or an auto-promoting classification. Promotion is
// checked first and wins; only units that did not promote are eligible for
// the weak-strength cleanup. Re-running the pass leaves already-promoted
// units unchanged.
func (e *Engine) RunConsolidation(ctx context.Context) (ConsolidationResult, error) {
	var result ConsolidationResult

	units, err := e.storer.ListUnits(ctx, storage.UnitQuery{
		Store:  memory.StoreSTM,
		Status: memory.StatusActive,
	})
	if err != nil {
		return result, fmt.Errorf("listing short-term units: %w", err)
	}

	now := e.clock().UTC()

	for i := range units {
		unit := units[i]
		result.Scanned++

		if promotable(&unit) {
			from := unit.Store
			unit.Store = memory.StoreLTM
			unit.DecayRate = memory.StoreLTM.DecayRate()
			unit.UpdatedAt = now

			if err := e.storer.UpdateUnit(ctx, unit); err != nil {
				e.logger.Warn("promotion failed, skipping unit",
					zap.String("unit_id", unit.ID),
					zap.Error(err),
				)
				continue
			}
			result.Promoted++

			event := eventstream.NewMemoryEvent(eventstream.EventTypeMemoryPromoted, &unit)
			event.Transition = &eventstream.StoreTransition{
				FromStore: string(from),
				ToStore:   string(unit.Store),
			}
			e.publish(ctx, event)
			continue
		}

		if unit.Strength < memory.DecayFloor {
			unit.Status = memory.StatusDecayed
			unit.UpdatedAt = now

			if err := e.storer.UpdateUnit(ctx, unit); err != nil {
				e.logger.Warn("cleanup failed, skipping unit",
					zap.String("unit_id", unit.ID),
					zap.Error(err),
				)
				continue
			}
			result.Cleaned++
			e.publish(ctx, eventstream.NewMemoryEvent(eventstream.EventTypeMemoryDecayed, &unit))
		}
	}

	e.logger.Info("consolidation pass complete",
		zap.Int("scanned", result.Scanned),
		zap.Int("promoted", result.Promoted),
		zap.Int("cleaned", result.Cleaned),
	)

	return result, nil
}

func promotable(unit *memory.Unit) bool {
	return unit.Strength >= memory.PromotionStrength ||
		unit.Features.Frequency >= memory.PromotionFrequency ||
		unit.Classification.AutoPromote()
}
