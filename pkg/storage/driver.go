// Package storage defines the persistence contract for sessions, events,
// memory units, feedback, and retrieval logs. Backends live in
// subpackages; callers depend only on Driver.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// UnitQuery narrows ListUnits. Zero-valued fields are ignored.
type UnitQuery struct {
	// Project keeps user-level units plus units scoped to this project.
	Project string

	Store          memory.StoreClass
	Status         memory.Status
	Classification memory.Classification

	// Tag keeps units carrying this tag.
	Tag string

	// Search keeps units whose summary contains this substring,
	// case-insensitive.
	Search string

	Limit  int
	Offset int

	// OrderByStrength sorts strongest first; the default order is newest
	// first.
	OrderByStrength bool
}

// StoreStats summarizes the contents of a store.
type StoreStats struct {
	Units            int                           `json:"units"`
	ByStore          map[memory.StoreClass]int     `json:"by_store"`
	ByStatus         map[memory.Status]int         `json:"by_status"`
	ByClassification map[memory.Classification]int `json:"by_classification"`
	Sessions         int                           `json:"sessions"`
	Events           int                           `json:"events"`
	Feedback         int                           `json:"feedback"`
	AvgStrength      float64                       `json:"avg_strength"`
}

// Driver is the persistence interface every backend implements. All
// methods take a context; mutations are atomic per call.
type Driver interface {
	// CreateSession persists a new session.
	CreateSession(ctx context.Context, session memory.Session) error

	// EndSession transitions a session to a terminal status.
	EndSession(ctx context.Context, id string, status memory.SessionStatus, endedAt time.Time) error

	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (memory.Session, error)

	// TouchWatermark advances the session's extraction watermark. The
	// watermark never moves backwards; a smaller value is a no-op.
	TouchWatermark(ctx context.Context, id string, watermark int) error

	// PutEvents appends captured events. Events are immutable; re-putting
	// an existing id is a no-op.
	PutEvents(ctx context.Context, events []memory.Event) error

	// ListEvents returns a session's events in capture order.
	ListEvents(ctx context.Context, sessionID string) ([]memory.Event, error)

	// CreateUnit persists a new memory unit.
	CreateUnit(ctx context.Context, unit memory.Unit) error

	// GetUnit retrieves a unit by id.
	GetUnit(ctx context.Context, id string) (memory.Unit, error)

	// UpdateUnit overwrites a unit's mutable fields and bumps its version.
	UpdateUnit(ctx context.Context, unit memory.Unit) error

	// DeleteUnit removes a unit permanently. The engine itself only
	// status-transitions; physical deletion is for operators.
	DeleteUnit(ctx context.Context, id string) error

	// ListUnits returns units matching the query.
	ListUnits(ctx context.Context, q UnitQuery) ([]memory.Unit, error)

	// StrongestPool returns active units ordered by strength descending.
	StrongestPool(ctx context.Context, limit int) ([]memory.Unit, error)

	// ScopePool returns active user-level units plus active units scoped
	// to the project, strongest first.
	ScopePool(ctx context.Context, project string, limit int) ([]memory.Unit, error)

	// BumpAccess stamps last_accessed_at on the given units.
	BumpAccess(ctx context.Context, ids []string, at time.Time) error

	// BumpFrequency increments a unit's frequency feature and stamps
	// last_accessed_at.
	BumpFrequency(ctx context.Context, id string, at time.Time) error

	// SetEmbedding attaches an embedding to a unit. Setting an embedding
	// on a missing unit is a no-op: the unit may have been retired while
	// the embedding was being computed.
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// PutFeedback records a user judgement about a unit.
	PutFeedback(ctx context.Context, fb memory.Feedback) error

	// ListFeedback returns feedback for a unit, oldest first.
	ListFeedback(ctx context.Context, memoryID string) ([]memory.Feedback, error)

	// LogRetrieval records the units surfaced by one retrieval call.
	LogRetrieval(ctx context.Context, entries []memory.RetrievalLog) error

	// MarkRetrievalUsed flags a logged retrieval as actually used and
	// optionally attaches free-form feedback.
	MarkRetrievalUsed(ctx context.Context, id string, feedback string) error

	// Stats summarizes the store contents.
	Stats(ctx context.Context) (StoreStats, error)

	// Close releases the backend's resources.
	Close() error
}
