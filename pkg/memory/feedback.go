package memory

import "time"

// FeedbackType is an explicit user judgement about a memory unit.
type FeedbackType string

const (
	// FeedbackPin freezes a unit: no further decay, never suppressed.
	FeedbackPin FeedbackType = "pin"

	// FeedbackForget retires a unit immediately.
	FeedbackForget FeedbackType = "forget"

	// FeedbackRemember boosts importance and forces the long-term store.
	FeedbackRemember FeedbackType = "remember"
)

// Valid reports whether t is a recognized feedback type.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackPin, FeedbackForget, FeedbackRemember:
		return true
	}
	return false
}

// Feedback is a persisted user judgement about a memory unit.
type Feedback struct {
	ID        string       `json:"id"`
	MemoryID  string       `json:"memory_id"`
	Type      FeedbackType `json:"type"`
	Content   string       `json:"content,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// RetrievalLog records one memory surfaced by a retrieval call, for later
// utility feedback.
type RetrievalLog struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	MemoryID       string    `json:"memory_id"`
	Query          string    `json:"query,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	WasUsed        bool      `json:"was_used"`
	UserFeedback   string    `json:"user_feedback,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
}
