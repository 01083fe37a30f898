// Package analyzer detects language-agnostic importance signals in chunk
// text: typographic emphasis, conversational-flow cues, discourse markers,
// and meta references like stack traces and file paths.
//
// Detectors are pure functions; the only context they receive is an explicit
// FlowContext snapshot of the surrounding conversation. Weights are fixed
// constants tuned so that weak signals (code, paths, URLs, definitions)
// cannot clear the sweep's acceptance threshold on their own.
package analyzer

import "github.com/papercomputeco/engram/pkg/memory"

// FlowContext is the slice of conversation history the flow and meta
// detectors need. The sweep assembles one per chunk.
type FlowContext struct {
	// PrevAssistantLen is the rune length of the assistant turn immediately
	// before this chunk, 0 when there was none.
	PrevAssistantLen int

	// RecentUserTurns holds up to the last three user-authored chunks.
	RecentUserTurns []string

	// MedianChunkLen is the median rune length across the batch.
	MedianChunkLen float64

	// FollowsToolError marks a chunk arriving right after failed tool
	// output.
	FollowsToolError bool
}

// Analyze runs all four detectors over the chunk and returns every signal
// found.
func Analyze(chunk memory.Chunk, ctx FlowContext) []memory.Signal {
	var signals []memory.Signal
	signals = append(signals, Typography(chunk.Text)...)
	signals = append(signals, Flow(chunk, ctx)...)
	signals = append(signals, Discourse(chunk.Text)...)
	signals = append(signals, Meta(chunk.Text, ctx)...)
	return signals
}
