package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
)

// rememberBoost is how much explicit "remember" feedback raises importance.
const rememberBoost = 0.3

// AddFeedback applies an explicit user judgement to a unit: pin freezes it,
// forget retires it, remember boosts importance and forces the long-term
// store. The judgement is also persisted as a feedback row. An unknown
// memory id returns storage.NotFoundError.
func (e *Engine) AddFeedback(ctx context.Context, fbType memory.FeedbackType, memoryID, content string) error {
	if !fbType.Valid() {
		return fmt.Errorf("unknown feedback type %q", fbType)
	}

	unit, err := e.storer.GetUnit(ctx, memoryID)
	if err != nil {
		return err
	}

	now := e.clock().UTC()
	eventType := eventstream.EventTypeMemoryFeedback

	switch fbType {
	case memory.FeedbackPin:
		unit.Status = memory.StatusPinned

	case memory.FeedbackForget:
		unit.Status = memory.StatusForgotten
		eventType = eventstream.EventTypeMemorySuppressed

	case memory.FeedbackRemember:
		unit.Features.Importance = memory.Clamp01(unit.Features.Importance + rememberBoost)
		unit.Store = memory.StoreLTM
		unit.DecayRate = memory.StoreLTM.DecayRate()
		unit.Strength = unit.Features.Strength()
	}

	unit.UpdatedAt = now
	unit.LastAccessedAt = now

	if err := e.storer.UpdateUnit(ctx, unit); err != nil {
		return fmt.Errorf("applying feedback: %w", err)
	}

	fb := memory.Feedback{
		ID:        uuid.NewString(),
		MemoryID:  memoryID,
		Type:      fbType,
		Content:   content,
		Timestamp: now,
	}
	if err := e.storer.PutFeedback(ctx, fb); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}

	event := eventstream.NewMemoryEvent(eventType, &unit)
	event.Feedback = &eventstream.FeedbackMeta{
		Type:    string(fbType),
		Content: content,
	}
	e.publish(ctx, event)

	e.logger.Info("feedback applied",
		zap.String("unit_id", memoryID),
		zap.String("type", string(fbType)),
	)

	return nil
}
