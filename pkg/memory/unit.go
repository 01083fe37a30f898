package memory

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Classification is one of the eight semantic tags a memory can carry. Each
// tag is statically bound to a scope: user-level tags are injectable across
// every project, project-level tags only where the project path matches.
type Classification string

const (
	ClassPreference Classification = "preference"
	ClassDecision   Classification = "decision"
	ClassConstraint Classification = "constraint"
	ClassBugfix     Classification = "bugfix"
	ClassLearning   Classification = "learning"
	ClassProcedural Classification = "procedural"
	ClassSemantic   Classification = "semantic"
	ClassEpisodic   Classification = "episodic"
)

// UserLevel reports whether the classification is user-scoped. User-level
// memories never carry a project scope.
func (c Classification) UserLevel() bool {
	switch c {
	case ClassConstraint, ClassPreference, ClassLearning, ClassProcedural:
		return true
	}
	return false
}

// AutoPromote reports whether new memories with this classification go
// straight to the long-term store and whether consolidation promotes
// existing short-term ones unconditionally.
func (c Classification) AutoPromote() bool {
	switch c {
	case ClassBugfix, ClassLearning, ClassDecision:
		return true
	}
	return false
}

// StoreClass distinguishes the short-term and long-term stores. The two
// differ only in decay rate and promotion eligibility.
type StoreClass string

const (
	StoreSTM StoreClass = "stm"
	StoreLTM StoreClass = "ltm"
)

// DecayRate returns the per-hour exponential decay constant for the store.
func (s StoreClass) DecayRate() float64 {
	if s == StoreLTM {
		return DecayRateLTM
	}
	return DecayRateSTM
}

// Status is the lifecycle state of a memory unit. Units are never physically
// deleted by the engine, only status-transitioned.
type Status string

const (
	StatusActive    Status = "active"
	StatusDecayed   Status = "decayed"
	StatusPinned    Status = "pinned"
	StatusForgotten Status = "forgotten"
)

// Lifecycle and scoring constants.
const (
	// DecayRateSTM and DecayRateLTM are per-hour decay constants fixed at
	// creation by store class and changed only on promotion.
	DecayRateSTM = 0.02
	DecayRateLTM = 0.002

	// DecayFloor is the strength below which an active unit transitions to
	// the decayed status.
	DecayFloor = 0.1

	// PromotionStrength and PromotionFrequency gate stm→ltm consolidation.
	PromotionStrength  = 0.7
	PromotionFrequency = 3

	// RecencyHorizonHours is the window over which the recency feature fades
	// from full weight to none.
	RecencyHorizonHours = 168
)

// Feature blend weights for strength. Interference is a penalty.
const (
	WeightRecency      = 0.20
	WeightFrequency    = 0.15
	WeightImportance   = 0.25
	WeightUtility      = 0.20
	WeightNovelty      = 0.10
	WeightConfidence   = 0.10
	WeightInterference = -0.10
)

// Features is the scored feature vector of a memory unit. All fields are in
// [0,1] except Frequency, which is a non-negative count.
type Features struct {
	Recency      float64 `json:"recency"`
	Frequency    float64 `json:"frequency"`
	Importance   float64 `json:"importance"`
	Utility      float64 `json:"utility"`
	Novelty      float64 `json:"novelty"`
	Confidence   float64 `json:"confidence"`
	Interference float64 `json:"interference"`
}

// Strength blends the feature vector into the unit's [0,1] survival score.
// Recency counts down over the horizon window; frequency saturates
// logarithmically; interference subtracts.
func (f Features) Strength() float64 {
	recency := 1 - math.Min(1, f.Recency/RecencyHorizonHours)
	frequency := math.Min(1, math.Log(f.Frequency+1)/math.Ln10)

	s := WeightRecency*recency +
		WeightFrequency*frequency +
		WeightImportance*f.Importance +
		WeightUtility*f.Utility +
		WeightNovelty*f.Novelty +
		WeightConfidence*f.Confidence +
		WeightInterference*f.Interference

	return Clamp01(s)
}

// Unit is the durable memory entity.
type Unit struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id,omitempty"`
	Store          StoreClass     `json:"store"`
	Classification Classification `json:"classification"`
	Summary        string         `json:"summary"`
	SourceEventIDs []string       `json:"source_event_ids,omitempty"`

	// ProjectScope is set iff the classification is project-level.
	ProjectScope string `json:"project_scope,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`

	Features  Features `json:"features"`
	Strength  float64  `json:"strength"`
	DecayRate float64  `json:"decay_rate"`
	Tags      []string `json:"tags,omitempty"`
	Status    Status   `json:"status"`
	Version   int      `json:"version"`

	// Embedding is optional similarity enrichment, attached asynchronously
	// after creation. Readers must treat it as possibly absent.
	Embedding []float32 `json:"embedding,omitempty"`
}

// NewUnitID returns a fresh memory unit id.
func NewUnitID() string {
	return uuid.NewString()
}

// AgeHours is the age of the unit at now, in hours.
func (u *Unit) AgeHours(now time.Time) float64 {
	return now.Sub(u.CreatedAt).Hours()
}

// HoursSinceUpdate is the elapsed time since the last strength write.
func (u *Unit) HoursSinceUpdate(now time.Time) float64 {
	return now.Sub(u.UpdatedAt).Hours()
}

// Clone returns a deep copy so callers can hand units across API boundaries
// without aliasing the stored slices.
func (u *Unit) Clone() *Unit {
	c := *u
	if u.SourceEventIDs != nil {
		c.SourceEventIDs = append([]string(nil), u.SourceEventIDs...)
	}
	if u.Tags != nil {
		c.Tags = append([]string(nil), u.Tags...)
	}
	if u.Embedding != nil {
		c.Embedding = append([]float32(nil), u.Embedding...)
	}
	return &c
}

// Clamp01 clamps v to the closed unit interval.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
