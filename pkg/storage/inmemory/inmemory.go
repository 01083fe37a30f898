// Package inmemory is a map-backed storage driver. It backs tests and
// throwaway runs; nothing survives the process.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

// Driver implements storage.Driver with mutex-guarded maps. Units are
// deep-copied on the way in and out so callers never alias stored state.
type Driver struct {
	mu sync.RWMutex

	sessions   map[string]memory.Session
	events     map[string][]memory.Event
	eventIDs   map[string]struct{}
	units      map[string]*memory.Unit
	feedback   map[string][]memory.Feedback
	retrievals map[string]*memory.RetrievalLog
}

// NewDriver creates an empty in-memory store.
func NewDriver() *Driver {
	return &Driver{
		sessions:   make(map[string]memory.Session),
		events:     make(map[string][]memory.Event),
		eventIDs:   make(map[string]struct{}),
		units:      make(map[string]*memory.Unit),
		feedback:   make(map[string][]memory.Feedback),
		retrievals: make(map[string]*memory.RetrievalLog),
	}
}

// CreateSession persists a new session.
func (s *Driver) CreateSession(_ context.Context, session memory.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("session already exists: %s", session.ID)
	}

	s.sessions[session.ID] = session
	return nil
}

// EndSession transitions a session to a terminal status.
func (s *Driver) EndSession(_ context.Context, id string, status memory.SessionStatus, endedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return storage.NotFoundError{Kind: "session", ID: id}
	}

	session.Status = status
	session.EndedAt = &endedAt
	s.sessions[id] = session
	return nil
}

// GetSession retrieves a session by id.
func (s *Driver) GetSession(_ context.Context, id string) (memory.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return memory.Session{}, storage.NotFoundError{Kind: "session", ID: id}
	}
	return session, nil
}

// TouchWatermark advances the session's extraction watermark, never
// backwards.
func (s *Driver) TouchWatermark(_ context.Context, id string, watermark int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return storage.NotFoundError{Kind: "session", ID: id}
	}

	if watermark > session.MessageWatermark {
		session.MessageWatermark = watermark
		s.sessions[id] = session
	}
	return nil
}

// PutEvents appends events, skipping ids already stored.
func (s *Driver) PutEvents(_ context.Context, events []memory.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if _, ok := s.eventIDs[e.ID]; ok {
			continue
		}
		s.eventIDs[e.ID] = struct{}{}
		s.events[e.SessionID] = append(s.events[e.SessionID], e)
	}
	return nil
}

// ListEvents returns a session's events in capture order. An unknown
// session yields an empty slice.
func (s *Driver) ListEvents(_ context.Context, sessionID string) ([]memory.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]memory.Event(nil), s.events[sessionID]...), nil
}

// CreateUnit persists a new memory unit.
func (s *Driver) CreateUnit(_ context.Context, unit memory.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[unit.ID]; ok {
		return fmt.Errorf("unit already exists: %s", unit.ID)
	}

	stored := unit.Clone()
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.units[unit.ID] = stored
	return nil
}

// GetUnit retrieves a unit by id.
func (s *Driver) GetUnit(_ context.Context, id string) (memory.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, ok := s.units[id]
	if !ok {
		return memory.Unit{}, storage.NotFoundError{Kind: "unit", ID: id}
	}
	return *unit.Clone(), nil
}

// UpdateUnit overwrites a unit and bumps its version.
func (s *Driver) UpdateUnit(_ context.Context, unit memory.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.units[unit.ID]
	if !ok {
		return storage.NotFoundError{Kind: "unit", ID: unit.ID}
	}

	stored := unit.Clone()
	stored.Version = existing.Version + 1
	s.units[unit.ID] = stored
	return nil
}

// DeleteUnit removes a unit permanently.
func (s *Driver) DeleteUnit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.units[id]; !ok {
		return storage.NotFoundError{Kind: "unit", ID: id}
	}

	delete(s.units, id)
	return nil
}

// ListUnits returns units matching the query.
func (s *Driver) ListUnits(_ context.Context, q storage.UnitQuery) ([]memory.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []memory.Unit
	for _, u := range s.units {
		if !matches(u, q) {
			continue
		}
		matched = append(matched, *u.Clone())
	}

	if q.OrderByStrength {
		sortByStrength(matched)
	} else {
		sortByCreated(matched)
	}

	return window(matched, q.Offset, q.Limit), nil
}

// StrongestPool returns active units, strongest first.
func (s *Driver) StrongestPool(_ context.Context, limit int) ([]memory.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pool []memory.Unit
	for _, u := range s.units {
		if u.Status != memory.StatusActive {
			continue
		}
		pool = append(pool, *u.Clone())
	}

	sortByStrength(pool)
	return window(pool, 0, limit), nil
}

// ScopePool returns active user-level units plus active units scoped to
// the project, strongest first.
func (s *Driver) ScopePool(_ context.Context, project string, limit int) ([]memory.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pool []memory.Unit
	for _, u := range s.units {
		if u.Status != memory.StatusActive {
			continue
		}
		if u.ProjectScope != "" && u.ProjectScope != project {
			continue
		}
		pool = append(pool, *u.Clone())
	}

	sortByStrength(pool)
	return window(pool, 0, limit), nil
}

// BumpAccess stamps last_accessed_at on the given units. Unknown ids are
// skipped; the unit may have been retired since it was surfaced.
func (s *Driver) BumpAccess(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if u, ok := s.units[id]; ok {
			u.LastAccessedAt = at
		}
	}
	return nil
}

// BumpFrequency increments a unit's frequency feature.
func (s *Driver) BumpFrequency(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return storage.NotFoundError{Kind: "unit", ID: id}
	}

	u.Features.Frequency++
	u.LastAccessedAt = at
	return nil
}

// SetEmbedding attaches an embedding; a missing unit is a no-op.
func (s *Driver) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.units[id]
	if !ok {
		return nil
	}

	u.Embedding = append([]float32(nil), embedding...)
	return nil
}

// PutFeedback records a user judgement about a unit.
func (s *Driver) PutFeedback(_ context.Context, fb memory.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback[fb.MemoryID] = append(s.feedback[fb.MemoryID], fb)
	return nil
}

// ListFeedback returns feedback for a unit, oldest first.
func (s *Driver) ListFeedback(_ context.Context, memoryID string) ([]memory.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]memory.Feedback(nil), s.feedback[memoryID]...), nil
}

// LogRetrieval records the units surfaced by one retrieval call.
func (s *Driver) LogRetrieval(_ context.Context, entries []memory.RetrievalLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		e := entry
		s.retrievals[e.ID] = &e
	}
	return nil
}

// MarkRetrievalUsed flags a logged retrieval as used.
func (s *Driver) MarkRetrievalUsed(_ context.Context, id string, feedback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.retrievals[id]
	if !ok {
		return storage.NotFoundError{Kind: "retrieval", ID: id}
	}

	entry.WasUsed = true
	if feedback != "" {
		entry.UserFeedback = feedback
	}
	return nil
}

// Stats summarizes the store contents.
func (s *Driver) Stats(_ context.Context) (storage.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := storage.StoreStats{
		Units:            len(s.units),
		ByStore:          make(map[memory.StoreClass]int),
		ByStatus:         make(map[memory.Status]int),
		ByClassification: make(map[memory.Classification]int),
		Sessions:         len(s.sessions),
	}

	var strengthSum float64
	for _, u := range s.units {
		stats.ByStore[u.Store]++
		stats.ByStatus[u.Status]++
		stats.ByClassification[u.Classification]++
		strengthSum += u.Strength
	}
	if len(s.units) > 0 {
		stats.AvgStrength = strengthSum / float64(len(s.units))
	}

	for _, evs := range s.events {
		stats.Events += len(evs)
	}
	for _, fbs := range s.feedback {
		stats.Feedback += len(fbs)
	}

	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}

func matches(u *memory.Unit, q storage.UnitQuery) bool {
	if q.Project != "" && u.ProjectScope != "" && u.ProjectScope != q.Project {
		return false
	}
	if q.Store != "" && u.Store != q.Store {
		return false
	}
	if q.Status != "" && u.Status != q.Status {
		return false
	}
	if q.Classification != "" && u.Classification != q.Classification {
		return false
	}
	if q.Tag != "" && !hasTag(u.Tags, q.Tag) {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(u.Summary), strings.ToLower(q.Search)) {
		return false
	}
	return true
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortByStrength(units []memory.Unit) {
	sort.Slice(units, func(i, j int) bool {
		if units[i].Strength != units[j].Strength {
			return units[i].Strength > units[j].Strength
		}
		return units[i].CreatedAt.After(units[j].CreatedAt)
	})
}

func sortByCreated(units []memory.Unit) {
	sort.Slice(units, func(i, j int) bool {
		if !units[i].CreatedAt.Equal(units[j].CreatedAt) {
			return units[i].CreatedAt.After(units[j].CreatedAt)
		}
		return units[i].ID < units[j].ID
	})
}

func window(units []memory.Unit, offset, limit int) []memory.Unit {
	if offset >= len(units) {
		return nil
	}
	units = units[offset:]

	if limit > 0 && limit < len(units) {
		units = units[:limit]
	}
	return units
}
