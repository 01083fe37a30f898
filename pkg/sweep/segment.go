package sweep

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/papercomputeco/engram/pkg/memory"
)

// turnPrefixRe matches transcript speaker labels at the start of a line.
var turnPrefixRe = regexp.MustCompile(`^(User|Human|Assistant|AI|Agent)\s*:\s*`)

var paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)

// segment breaks every event into role-tagged chunks. Roles are decided
// here and nowhere else: the event hook type sets the default, and
// embedded transcript labels override it per turn.
func (x *Extractor) segment(events []memory.Event) []memory.Chunk {
	var chunks []memory.Chunk
	for _, e := range events {
		chunks = append(chunks, x.segmentEvent(e)...)
	}
	return chunks
}

func (x *Extractor) segmentEvent(e memory.Event) []memory.Chunk {
	text := strings.TrimSpace(e.Content)
	if e.IsTool() && text == "" {
		text = strings.TrimSpace(e.ToolOutput)
	}
	if utf8.RuneCountInString(text) < x.cfg.MinEventLen {
		return nil
	}

	role := roleFor(e)

	// Tool output stays whole. Splitting a build log into sentences only
	// manufactures junk chunks.
	if role == memory.RoleTool {
		return []memory.Chunk{{Text: text, Role: role, EventID: e.ID}}
	}

	if turns := splitTurns(text, role); len(turns) >= 2 {
		return x.tag(turns, e.ID)
	}

	// Fenced blocks stay atomic so the code-density gate can see them
	// whole; splitting them manufactures prose-shaped slivers.
	if strings.Contains(text, "```") {
		return []memory.Chunk{{Text: text, Role: role, EventID: e.ID}}
	}

	if paragraphs := splitParagraphs(text); len(paragraphs) >= 2 {
		var out []memory.Chunk
		for _, p := range paragraphs {
			out = append(out, memory.Chunk{Text: p, Role: role})
		}
		return x.tag(out, e.ID)
	}

	if sentences := splitSentences(text); len(sentences) >= 2 {
		var out []memory.Chunk
		for _, s := range sentences {
			if utf8.RuneCountInString(s) < x.cfg.MinChunkLen {
				continue
			}
			out = append(out, memory.Chunk{Text: s, Role: role})
		}
		if len(out) > 0 {
			return x.tag(out, e.ID)
		}
	}

	return []memory.Chunk{{Text: text, Role: role, EventID: e.ID}}
}

func (x *Extractor) tag(chunks []memory.Chunk, eventID string) []memory.Chunk {
	kept := chunks[:0]
	for _, c := range chunks {
		if utf8.RuneCountInString(c.Text) < x.cfg.MinChunkLen {
			continue
		}
		c.EventID = eventID
		kept = append(kept, c)
	}
	return kept
}

func roleFor(e memory.Event) memory.Role {
	switch e.HookType {
	case memory.HookPostToolUse:
		return memory.RoleTool
	case memory.HookStop:
		return memory.RoleAssistant
	default:
		return memory.RoleUser
	}
}

// splitTurns parses "User:" / "Assistant:" style transcripts into one
// chunk per speaker turn. It returns nil unless at least two labeled
// turns are present, so prose that merely mentions "User:" once is left
// alone.
func splitTurns(text string, fallback memory.Role) []memory.Chunk {
	lines := strings.Split(text, "\n")

	var labeled int
	for _, line := range lines {
		if turnPrefixRe.MatchString(strings.TrimSpace(line)) {
			labeled++
		}
	}
	if labeled < 2 {
		return nil
	}

	var turns []memory.Chunk
	current := memory.Chunk{Role: fallback}

	flush := func() {
		current.Text = strings.TrimSpace(current.Text)
		if current.Text != "" {
			turns = append(turns, current)
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := turnPrefixRe.FindString(trimmed); m != "" {
			flush()
			current = memory.Chunk{
				Role: speakerRole(m),
				Text: strings.TrimPrefix(trimmed, m),
			}
			continue
		}
		if current.Text != "" {
			current.Text += "\n"
		}
		current.Text += line
	}
	flush()

	return turns
}

func speakerRole(label string) memory.Role {
	switch {
	case strings.HasPrefix(label, "User"), strings.HasPrefix(label, "Human"):
		return memory.RoleUser
	default:
		return memory.RoleAssistant
	}
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range paragraphBreakRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// splitSentences breaks prose on terminal punctuation followed by space
// or end of text, and on hard newlines. Abbreviations are not special
// cased; the chunk length floor absorbs the resulting slivers.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)

		boundary := false
		switch r {
		case '\n':
			boundary = true
		case '.', '!', '?':
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				boundary = true
			}
		}

		if boundary {
			if s := strings.TrimSpace(b.String()); s != "" {
				sentences = append(sentences, s)
			}
			b.Reset()
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
