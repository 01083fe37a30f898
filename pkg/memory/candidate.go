package memory

// SignalKind names a class of importance detection. Pattern kinds mirror the
// lexicon category that fired; the rest come from the structural analyzer.
type SignalKind string

const (
	SignalRemember   SignalKind = "explicit-remember"
	SignalEmphasis   SignalKind = "emphasis"
	SignalCorrection SignalKind = "correction"
	SignalPreference SignalKind = "preference"
	SignalDecision   SignalKind = "decision"
	SignalConstraint SignalKind = "constraint"
	SignalBugfix     SignalKind = "bugfix"
	SignalLearning   SignalKind = "learning"
	SignalProcedural SignalKind = "procedural"

	SignalCaps        SignalKind = "caps"
	SignalExclamation SignalKind = "exclamation"
	SignalMarkdown    SignalKind = "markdown-emphasis"
	SignalQuote       SignalKind = "quote"
	SignalCode        SignalKind = "code"
	SignalRepetition  SignalKind = "repetition"
	SignalElaboration SignalKind = "elaboration"
	SignalContrast    SignalKind = "contrast"
	SignalList        SignalKind = "list"
	SignalDefinition  SignalKind = "definition"
	SignalFollowsErr  SignalKind = "follows-error"
	SignalFilePath    SignalKind = "filepath"
	SignalStackTrace  SignalKind = "stacktrace"
	SignalURL         SignalKind = "url"
)

// Signal is a transient importance detection: never persisted on its own,
// always attached to a candidate or consumed immediately.
type Signal struct {
	Kind   SignalKind `json:"kind"`
	Weight float64    `json:"weight"`

	// Source names the detector and, for pattern signals, the phrase that
	// matched (e.g. "pattern:remember this", "typography:caps").
	Source string `json:"source,omitempty"`
}

// ExtractionMethod records which sweep path produced a candidate.
type ExtractionMethod string

const (
	ExtractedByPattern    ExtractionMethod = "pattern"
	ExtractedByStructure  ExtractionMethod = "structural"
	ExtractedByToolEvent  ExtractionMethod = "tool"
	ExtractedByRepetition ExtractionMethod = "repetition"

	// ExtractedByRequest marks a memory stored on explicit request rather
	// than swept out of the event stream.
	ExtractedByRequest ExtractionMethod = "explicit"
)

// Candidate is a transient extraction result produced by the context sweep.
// It exists only within one sweep call; it either becomes a Unit or is
// discarded.
type Candidate struct {
	Summary               string           `json:"summary"`
	Classification        Classification   `json:"classification"`
	SourceEventIDs        []string         `json:"source_event_ids"`
	Signals               []Signal         `json:"signals"`
	PreliminaryImportance float64          `json:"preliminary_importance"`
	ExtractionMethod      ExtractionMethod `json:"extraction_method"`
	Confidence            float64          `json:"confidence"`
	Tags                  []string         `json:"tags,omitempty"`
}
