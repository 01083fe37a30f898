// Package backfill imports historical Claude Code transcripts into the
// memory pipeline: JSONL entries become sessions and events, which run
// through the same sweep and admission paths as live capture.
package backfill

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// TranscriptMessage is the message field within a JSONL entry.
type TranscriptMessage struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content json.RawMessage `json:"content"`
}

// TranscriptBlock is a content block in a transcript message.
type TranscriptBlock struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Name    string `json:"name"`
	Content any    `json:"content"`
}

// TranscriptEntry is a single line in a Claude Code JSONL transcript.
type TranscriptEntry struct {
	Type       string             `json:"type"`
	UUID       string             `json:"uuid"`
	ParentUUID *string            `json:"parentUuid"`
	Timestamp  string             `json:"timestamp"`
	SessionID  string             `json:"sessionId"`
	Cwd        string             `json:"cwd"`
	Message    *TranscriptMessage `json:"message"`
}

// TextContent extracts the concatenated text from the entry's message.
// Content arrives either as a bare string or as a list of typed blocks.
func (e *TranscriptEntry) TextContent() string {
	if e.Message == nil || len(e.Message.Content) == 0 {
		return ""
	}

	var plain string
	if err := json.Unmarshal(e.Message.Content, &plain); err == nil {
		return plain
	}

	var blocks []TranscriptBlock
	if err := json.Unmarshal(e.Message.Content, &blocks); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, block := range blocks {
		switch block.Type {
		case "text":
			sb.WriteString(block.Text)
		case "tool_result":
			if text, ok := block.Content.(string); ok {
				sb.WriteString(text)
			}
		}
	}
	return sb.String()
}

// Time parses the entry timestamp, tolerating the two formats Claude Code
// has emitted. The zero time signals an unparseable stamp.
func (e *TranscriptEntry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05.000Z", e.Timestamp)
		if err != nil {
			return time.Time{}
		}
	}
	return t.UTC()
}

// Event converts the entry into a pipeline event. Returns false for entry
// types the pipeline has no use for (summaries, system chatter).
func (e *TranscriptEntry) Event() (memory.Event, bool) {
	var hook memory.HookType
	switch e.Type {
	case "user":
		hook = memory.HookUserPrompt
	case "assistant":
		hook = memory.HookStop
	case "tool_result", "tool_use":
		hook = memory.HookPostToolUse
	default:
		return memory.Event{}, false
	}

	content := e.TextContent()
	if content == "" {
		return memory.Event{}, false
	}

	event := memory.Event{
		ID:        e.UUID,
		SessionID: e.SessionID,
		HookType:  hook,
		Timestamp: e.Time(),
		Content:   content,
	}
	if event.ID == "" {
		event = memory.NewEvent(e.SessionID, hook, content)
		event.Timestamp = e.Time()
	}

	// Tool results carry their payload as output so the sweep's quality
	// gate sees them for what they are.
	if hook == memory.HookPostToolUse {
		event.ToolOutput = content
		event.Content = ""
	}

	return event, true
}

// ScanTranscriptDir finds all JSONL files under the given directory.
func ScanTranscriptDir(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ParseTranscript reads a JSONL file and returns its user, assistant, and
// tool entries. Streaming rewrites are deduplicated by entry UUID, keeping
// the last (most complete) version of each.
func ParseTranscript(path string) ([]TranscriptEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	byUUID := make(map[string]TranscriptEntry)
	var order []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scanner.Scan() {
		var entry TranscriptEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		switch entry.Type {
		case "user", "assistant", "tool_result", "tool_use":
		default:
			continue
		}

		id := entry.UUID
		if id == "" {
			id = entry.Timestamp + "/" + entry.Type
		}

		if _, seen := byUUID[id]; !seen {
			order = append(order, id)
		}
		byUUID[id] = entry
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	entries := make([]TranscriptEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, byUUID[id])
	}

	return entries, nil
}
