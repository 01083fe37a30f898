// Package memory defines the domain model for the engram selective-memory
// engine: sessions and the hook events captured within them, the transient
// signals and candidates produced by the context sweep, and the durable,
// strength-scored memory units the engine keeps.
//
// Everything here is plain data. The pipeline packages (sweep, engine,
// retrieval) operate over these types; the storage drivers persist them.
package memory

import (
	"time"

	"github.com/google/uuid"
)

// HookType tags where in the agent lifecycle an event was captured.
type HookType string

const (
	HookUserPrompt   HookType = "UserPromptSubmit"
	HookPostToolUse  HookType = "PostToolUse"
	HookStop         HookType = "Stop"
	HookSessionStart HookType = "SessionStart"
	HookSessionEnd   HookType = "SessionEnd"
)

// SessionStatus is the lifecycle state of a captured session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session groups the events captured during one agent run. Memory units
// reference their originating session but outlive it.
type Session struct {
	ID        string         `json:"id"`
	Project   string         `json:"project,omitempty"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   *time.Time     `json:"ended_at,omitempty"`
	Status    SessionStatus  `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	// MessageWatermark is the index of the last event already swept for this
	// session, so incremental extraction never reprocesses old events.
	MessageWatermark int `json:"message_watermark"`
}

// NewSession creates an active session for the given project path.
func NewSession(project string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Project:   project,
		StartedAt: time.Now().UTC(),
		Status:    SessionActive,
	}
}

// Event is one captured conversational unit: a user prompt, an assistant
// stop, or a tool invocation with its output. Events are immutable once
// created; they are source material for extraction and are never mutated.
type Event struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	HookType   HookType       `json:"hook_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Content    string         `json:"content"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolInput  string         `json:"tool_input,omitempty"`
	ToolOutput string         `json:"tool_output,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(sessionID string, hook HookType, content string) Event {
	return Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		HookType:  hook,
		Timestamp: time.Now().UTC(),
		Content:   content,
	}
}

// IsTool reports whether the event carries tool execution output.
func (e Event) IsTool() bool {
	return e.HookType == HookPostToolUse
}

// Role identifies the author of a chunk of text. Chunks are tagged exactly
// once, during segmentation, and the tag travels with the chunk; nothing
// downstream re-detects roles from text prefixes.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Chunk is a segmented span of event text with its author role attached.
type Chunk struct {
	Text    string `json:"text"`
	Role    Role   `json:"role"`
	EventID string `json:"event_id"`
}
