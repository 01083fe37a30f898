package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	correctionMaxLen   = 100
	correctionMaxRatio = 0.2

	repetitionMinOverlap = 0.4

	elaborationFactor = 2.5
	elaborationMinLen = 200
)

// Flow detects conversational-flow cues: a terse user push-back after a long
// assistant turn, near-repetition of recent user turns, and unusually long
// elaborations.
func Flow(chunk memory.Chunk, ctx FlowContext) []memory.Signal {
	if chunk.Role != memory.RoleUser {
		return nil
	}

	var signals []memory.Signal
	length := utf8.RuneCountInString(chunk.Text)

	if ctx.PrevAssistantLen > 0 &&
		length < correctionMaxLen &&
		float64(length) < float64(ctx.PrevAssistantLen)*correctionMaxRatio {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalCorrection,
			Weight: 0.7,
			Source: "flow:short-reply",
		})
	}

	if overlap := maxTrigramOverlap(chunk.Text, ctx.RecentUserTurns); overlap > repetitionMinOverlap {
		scaled := 0.5 + (overlap-repetitionMinOverlap)/(1-repetitionMinOverlap)*0.3
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalRepetition,
			Weight: scaled,
			Source: "flow:repetition",
		})
	}

	if ctx.MedianChunkLen > 0 &&
		float64(length) > ctx.MedianChunkLen*elaborationFactor &&
		length > elaborationMinLen {
		signals = append(signals, memory.Signal{
			Kind:   memory.SignalElaboration,
			Weight: 0.6,
			Source: "flow:elaboration",
		})
	}

	return signals
}

// maxTrigramOverlap returns the highest Jaccard overlap between the text's
// word trigrams and each prior turn's. Turns too short for trigrams fall
// back to whole-word overlap.
func maxTrigramOverlap(text string, turns []string) float64 {
	self := trigramSet(text)
	if len(self) == 0 {
		return 0
	}

	var best float64
	for _, turn := range turns {
		other := trigramSet(turn)
		if len(other) == 0 {
			continue
		}
		if j := jaccard(self, other); j > best {
			best = j
		}
	}
	return best
}

func trigramSet(text string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{})

	if len(words) < 3 {
		for _, w := range words {
			set[w] = struct{}{}
		}
		return set
	}

	for i := 0; i+3 <= len(words); i++ {
		set[words[i]+" "+words[i+1]+" "+words[i+2]] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	var inter int
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}

	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
