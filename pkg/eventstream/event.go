package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeMemoryCreated is emitted after a new memory unit is persisted.
	EventTypeMemoryCreated = "engram.memory.created"

	// EventTypeMemoryPromoted is emitted when consolidation moves a unit
	// from the short-term to the long-term store.
	EventTypeMemoryPromoted = "engram.memory.promoted"

	// EventTypeMemoryDecayed is emitted when decay drops a unit below the
	// retention floor and it leaves the active set.
	EventTypeMemoryDecayed = "engram.memory.decayed"

	// EventTypeMemorySuppressed is emitted when corrective feedback suppresses
	// a unit.
	EventTypeMemorySuppressed = "engram.memory.suppressed"

	// EventTypeMemoryFeedback is emitted when feedback is recorded against a
	// unit without suppressing it.
	EventTypeMemoryFeedback = "engram.memory.feedback"
)

// MemoryEvent is a transport-neutral lifecycle event for a memory unit.
type MemoryEvent struct {
	SchemaVersion int              `json:"schema_version"`
	EventType     string           `json:"event_type"`
	EventID       string           `json:"event_id"`
	EmittedAt     time.Time        `json:"emitted_at"`
	Source        EventSource      `json:"source"`
	Memory        MemoryMeta       `json:"memory"`
	Transition    *StoreTransition `json:"transition,omitempty"`
	Feedback      *FeedbackMeta    `json:"feedback,omitempty"`
}

// EventSource identifies where the lifecycle change originated.
type EventSource struct {
	SessionID string `json:"session_id,omitempty"`
	Project   string `json:"project,omitempty"`
}

// MemoryMeta captures the state of the unit at emission time.
type MemoryMeta struct {
	MemoryID       string  `json:"memory_id"`
	Store          string  `json:"store"`
	Classification string  `json:"classification"`
	Summary        string  `json:"summary,omitempty"`
	Strength       float64 `json:"strength"`
	Status         string  `json:"status"`
}

// StoreTransition records a store move for promotion events.
type StoreTransition struct {
	FromStore string `json:"from_store"`
	ToStore   string `json:"to_store"`
}

// FeedbackMeta records the feedback that triggered the event.
type FeedbackMeta struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// NewMemoryEvent builds the envelope for a lifecycle event from the unit's
// current state. Callers attach Transition or Feedback metadata afterwards
// where the event type calls for it.
func NewMemoryEvent(eventType string, unit *memory.Unit) *MemoryEvent {
	return &MemoryEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source: EventSource{
			SessionID: unit.SessionID,
			Project:   unit.ProjectScope,
		},
		Memory: MemoryMeta{
			MemoryID:       unit.ID,
			Store:          string(unit.Store),
			Classification: string(unit.Classification),
			Summary:        unit.Summary,
			Strength:       unit.Strength,
			Status:         string(unit.Status),
		},
	}
}
