package sweep

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/engram/pkg/lexicon"
	"github.com/papercomputeco/engram/pkg/memory"
)

// toolCandidates scans tool events for a failure and its resolution in
// the same output. Both must be present: an error alone is routine, and
// a fix with no visible error has no story to tell.
func (x *Extractor) toolCandidates(events []memory.Event) []memory.Candidate {
	var out []memory.Candidate
	for _, e := range events {
		if !e.IsTool() {
			continue
		}

		text := e.ToolOutput
		if text == "" {
			text = e.Content
		}
		if !lexicon.HasErrorIndicator(text) || !lexicon.HasResolutionIndicator(text) {
			continue
		}

		summary := resolutionLine(text, x.cfg.MinSummaryLen)
		if summary == "" {
			summary = condense(text, 200)
		}
		if e.ToolName != "" {
			summary = e.ToolName + ": " + summary
		}

		signals := []memory.Signal{{
			Kind:   memory.SignalBugfix,
			Weight: 0.7,
			Source: "tool:error-resolved",
		}}

		tags := []string{string(memory.ClassBugfix)}
		if e.ToolName != "" {
			tags = append(tags, strings.ToLower(e.ToolName))
		}
		sort.Strings(tags)

		out = append(out, memory.Candidate{
			Summary:               summary,
			Classification:        memory.ClassBugfix,
			SourceEventIDs:        []string{e.ID},
			Signals:               signals,
			PreliminaryImportance: preliminaryImportance(signals),
			ExtractionMethod:      memory.ExtractedByToolEvent,
			Confidence:            0.75,
			Tags:                  tags,
		})
	}
	return out
}

// resolutionLine returns the first line carrying a resolution phrase,
// or "" when none is long enough to stand as a summary.
func resolutionLine(text string, minLen int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !lexicon.HasResolutionIndicator(line) {
			continue
		}
		if utf8.RuneCountInString(line) >= minLen {
			return line
		}
	}
	return ""
}

// condense collapses whitespace runs and clips the result to max runes.
func condense(text string, max int) string {
	condensed := strings.Join(strings.Fields(text), " ")
	runes := []rune(condensed)
	if len(runes) <= max {
		return condensed
	}
	return string(runes[:max])
}

// conceptCandidates finds words that recur across enough distinct
// events to suggest a running theme. Counting covers user chunks only;
// tool output repeats vocabulary for mechanical reasons.
func (x *Extractor) conceptCandidates(events []memory.Event, chunks []memory.Chunk) []memory.Candidate {
	wordEvents := make(map[string]map[string]struct{})
	exemplar := make(map[string]string)

	for _, c := range chunks {
		if c.Role != memory.RoleUser {
			continue
		}

		for _, w := range memory.Tokenize(c.Text) {
			if utf8.RuneCountInString(w) < 5 || lexicon.Stopword(w) {
				continue
			}

			if wordEvents[w] == nil {
				wordEvents[w] = make(map[string]struct{})
			}
			wordEvents[w][c.EventID] = struct{}{}

			if utf8.RuneCountInString(c.Text) >= x.cfg.MinSummaryLen {
				if cur, ok := exemplar[w]; !ok || len(c.Text) < len(cur) {
					exemplar[w] = c.Text
				}
			}
		}
	}

	words := make([]string, 0, len(wordEvents))
	for w, ids := range wordEvents {
		if len(ids) >= x.cfg.MinConceptEvents {
			words = append(words, w)
		}
	}
	sort.Strings(words)

	var out []memory.Candidate
	for _, w := range words {
		summary := exemplar[w]
		if summary == "" || !AcceptQuality(summary) {
			continue
		}

		ids := make([]string, 0, len(wordEvents[w]))
		for id := range wordEvents[w] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		weight := 0.5 + 0.1*float64(len(ids)-x.cfg.MinConceptEvents)
		if weight > 0.8 {
			weight = 0.8
		}

		signals := []memory.Signal{{
			Kind:   memory.SignalRepetition,
			Weight: weight,
			Source: "repetition:" + w,
		}}

		tags := []string{string(memory.ClassSemantic), w}
		sort.Strings(tags)

		out = append(out, memory.Candidate{
			Summary:               summary,
			Classification:        memory.ClassSemantic,
			SourceEventIDs:        ids,
			Signals:               signals,
			PreliminaryImportance: preliminaryImportance(signals),
			ExtractionMethod:      memory.ExtractedByRepetition,
			Confidence:            0.5,
			Tags:                  tags,
		})
	}
	return out
}
