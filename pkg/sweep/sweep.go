// Package sweep turns raw session events into memory candidates. It
// segments event content into chunks, runs the phrase dictionary and the
// structural analyzer over each one, and keeps only chunks whose signals
// clear the configured threshold. Tool failures that resolve within the
// same event and concepts repeated across events produce candidates of
// their own.
package sweep

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/analyzer"
	"github.com/papercomputeco/engram/pkg/lexicon"
	"github.com/papercomputeco/engram/pkg/memory"
)

// Config tunes the sweep. Zero values fall back to the defaults below.
type Config struct {
	// SignalThreshold discards individual signals weighted below it.
	SignalThreshold float64

	// StructuralMultiplier scales structural signal weights before the
	// threshold is applied. 1.0 leaves them untouched.
	StructuralMultiplier float64

	// MinEventLen drops whole events shorter than this many runes.
	MinEventLen int

	// MinChunkLen drops individual sentences and paragraphs shorter than
	// this many runes.
	MinChunkLen int

	// MinConceptEvents is how many distinct events a word must appear in
	// before it becomes a recurring-concept candidate.
	MinConceptEvents int

	// MergeOverlap is the word overlap above which two candidates from
	// the same batch collapse into one.
	MergeOverlap float64

	// MinSummaryLen drops candidates whose summary, stripped of leading
	// symbols, is shorter than this many runes.
	MinSummaryLen int
}

// DefaultConfig returns the tuning the engine ships with.
func DefaultConfig() Config {
	return Config{
		SignalThreshold:      0.5,
		StructuralMultiplier: 1.0,
		MinEventLen:          20,
		MinChunkLen:          10,
		MinConceptEvents:     3,
		MergeOverlap:         0.7,
		MinSummaryLen:        20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SignalThreshold == 0 {
		c.SignalThreshold = def.SignalThreshold
	}
	if c.StructuralMultiplier == 0 {
		c.StructuralMultiplier = def.StructuralMultiplier
	}
	if c.MinEventLen == 0 {
		c.MinEventLen = def.MinEventLen
	}
	if c.MinChunkLen == 0 {
		c.MinChunkLen = def.MinChunkLen
	}
	if c.MinConceptEvents == 0 {
		c.MinConceptEvents = def.MinConceptEvents
	}
	if c.MergeOverlap == 0 {
		c.MergeOverlap = def.MergeOverlap
	}
	if c.MinSummaryLen == 0 {
		c.MinSummaryLen = def.MinSummaryLen
	}
	return c
}

// Extractor sweeps event batches for memory candidates.
type Extractor struct {
	cfg    Config
	logger *zap.Logger
}

// New returns an Extractor with the given tuning. A nil logger is
// replaced with a no-op one.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Extract sweeps the events in order and returns the merged, filtered
// candidates. An empty batch yields no candidates. Extract never fails;
// unusable content is simply skipped.
func (x *Extractor) Extract(events []memory.Event) []memory.Candidate {
	chunks := x.segment(events)

	var candidates []memory.Candidate

	median := medianRuneLen(chunks)
	var prevAssistantLen int
	var recentUsers []string
	followsToolError := false

	for _, chunk := range chunks {
		switch chunk.Role {
		case memory.RoleUser:
			flow := analyzer.FlowContext{
				PrevAssistantLen: prevAssistantLen,
				RecentUserTurns:  append([]string(nil), recentUsers...),
				MedianChunkLen:   median,
				FollowsToolError: followsToolError,
			}
			if cand, ok := x.evaluate(chunk, flow); ok {
				candidates = append(candidates, cand)
			}

			recentUsers = append(recentUsers, chunk.Text)
			if len(recentUsers) > 3 {
				recentUsers = recentUsers[len(recentUsers)-3:]
			}
			followsToolError = false

		case memory.RoleAssistant:
			prevAssistantLen = utf8.RuneCountInString(chunk.Text)
			followsToolError = false

		case memory.RoleTool:
			followsToolError = lexicon.HasErrorIndicator(chunk.Text)
		}
	}

	candidates = append(candidates, x.toolCandidates(events)...)
	candidates = append(candidates, x.conceptCandidates(events, chunks)...)

	candidates = x.mergeCandidates(candidates)
	candidates = x.filterFragments(candidates)

	if len(candidates) > 0 {
		x.logger.Debug("sweep complete",
			zap.Int("events", len(events)),
			zap.Int("chunks", len(chunks)),
			zap.Int("candidates", len(candidates)))
	}

	return candidates
}

// evaluate scores a single user chunk. The second return is false when
// the chunk produced no candidate.
func (x *Extractor) evaluate(chunk memory.Chunk, flow analyzer.FlowContext) (memory.Candidate, bool) {
	if !AcceptQuality(chunk.Text) {
		return memory.Candidate{}, false
	}

	signals := lexicon.MatchAll(chunk.Text)

	structural := analyzer.Analyze(chunk, flow)
	for i := range structural {
		structural[i].Weight = memory.Clamp01(structural[i].Weight * x.cfg.StructuralMultiplier)
	}
	signals = append(signals, structural...)

	kept := signals[:0]
	for _, s := range signals {
		if s.Weight >= x.cfg.SignalThreshold {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return memory.Candidate{}, false
	}

	class := classify(chunk.Text, kept)

	confidence := 0.5
	method := memory.ExtractedByStructure
	if hasPatternSignal(kept) {
		confidence = 0.75
		method = memory.ExtractedByPattern
	}

	return memory.Candidate{
		Summary:               strings.TrimSpace(chunk.Text),
		Classification:        class,
		SourceEventIDs:        []string{chunk.EventID},
		Signals:               kept,
		PreliminaryImportance: preliminaryImportance(kept),
		ExtractionMethod:      method,
		Confidence:            confidence,
		Tags:                  tagsFor(kept, class),
	}, true
}

// classify picks a classification for the chunk: dictionary phrases win,
// then the strongest surviving signal decides.
func classify(text string, signals []memory.Signal) memory.Classification {
	if class, ok := lexicon.Classify(text); ok {
		return class
	}

	switch dominant(signals).Kind {
	case memory.SignalBugfix, memory.SignalFollowsErr, memory.SignalStackTrace:
		return memory.ClassBugfix
	case memory.SignalLearning, memory.SignalCorrection:
		return memory.ClassLearning
	case memory.SignalConstraint:
		return memory.ClassConstraint
	case memory.SignalDecision:
		return memory.ClassDecision
	case memory.SignalPreference:
		return memory.ClassPreference
	case memory.SignalElaboration, memory.SignalList:
		return memory.ClassProcedural
	default:
		return memory.ClassSemantic
	}
}

func dominant(signals []memory.Signal) memory.Signal {
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Weight > best.Weight {
			best = s
		}
	}
	return best
}

// preliminaryImportance sums signal weights with geometric falloff so
// that piling up weak signals cannot outrank one strong signal. Weights
// are taken in descending order, each discounted by 0.7 more than the
// last, and the sum is clamped to 1.
func preliminaryImportance(signals []memory.Signal) float64 {
	weights := make([]float64, len(signals))
	for i, s := range signals {
		weights[i] = s.Weight
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(weights)))

	var sum float64
	discount := 1.0
	for _, w := range weights {
		sum += w * discount
		discount *= 0.7
	}
	return memory.Clamp01(sum)
}

func hasPatternSignal(signals []memory.Signal) bool {
	for _, s := range signals {
		if strings.HasPrefix(s.Source, "pattern:") {
			return true
		}
	}
	return false
}

// tagsFor derives a sorted tag set from the classification and the kinds
// of the surviving signals.
func tagsFor(signals []memory.Signal, class memory.Classification) []string {
	set := map[string]struct{}{string(class): {}}
	for _, s := range signals {
		set[string(s.Kind)] = struct{}{}
	}

	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func medianRuneLen(chunks []memory.Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}

	lens := make([]int, len(chunks))
	for i, c := range chunks {
		lens[i] = utf8.RuneCountInString(c.Text)
	}
	sort.Ints(lens)

	mid := len(lens) / 2
	if len(lens)%2 == 1 {
		return float64(lens[mid])
	}
	return float64(lens[mid-1]+lens[mid]) / 2
}

// stripLeadingSymbols removes markup and whitespace from the front of a
// summary so fragment length checks see real content.
func stripLeadingSymbols(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
