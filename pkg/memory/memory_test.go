package memory_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
)

func TestMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memory Suite")
}

var _ = Describe("Features strength", func() {
	It("stays within the unit interval for extreme inputs", func() {
		full := memory.Features{
			Recency:    0,
			Frequency:  100,
			Importance: 1,
			Utility:    1,
			Novelty:    1,
			Confidence: 1,
		}
		Expect(full.Strength()).To(BeNumerically("<=", 1))
		Expect(full.Strength()).To(BeNumerically(">=", 0))

		hostile := memory.Features{
			Recency:      1e6,
			Interference: 1,
		}
		Expect(hostile.Strength()).To(BeNumerically(">=", 0))
	})

	It("returns zero for an all-zero vector", func() {
		var zero memory.Features
		zero.Recency = memory.RecencyHorizonHours // fully aged, no recency credit
		Expect(zero.Strength()).To(BeZero())
	})

	It("decreases strictly as interference grows", func() {
		base := memory.Features{
			Recency:    0,
			Frequency:  1,
			Importance: 0.8,
			Utility:    0.5,
			Novelty:    0.9,
			Confidence: 0.75,
		}
		low := base
		low.Interference = 0.1
		high := base
		high.Interference = 0.6

		Expect(high.Strength()).To(BeNumerically("<", low.Strength()))
		Expect(low.Strength()).To(BeNumerically("<", base.Strength()))
	})

	It("gives fresh units full recency credit and aged units none", func() {
		fresh := memory.Features{Recency: 0}
		stale := memory.Features{Recency: memory.RecencyHorizonHours * 2}
		Expect(fresh.Strength() - stale.Strength()).To(BeNumerically("~", memory.WeightRecency, 1e-9))
	})
})

var _ = Describe("Classification scope", func() {
	It("keeps user-level classifications free of project scope", func() {
		for _, c := range []memory.Classification{
			memory.ClassConstraint,
			memory.ClassPreference,
			memory.ClassLearning,
			memory.ClassProcedural,
		} {
			Expect(c.UserLevel()).To(BeTrue(), string(c))
		}
	})

	It("treats the remaining classifications as project-level", func() {
		for _, c := range []memory.Classification{
			memory.ClassBugfix,
			memory.ClassDecision,
			memory.ClassSemantic,
			memory.ClassEpisodic,
		} {
			Expect(c.UserLevel()).To(BeFalse(), string(c))
		}
	})

	It("auto-promotes exactly bugfix, learning, and decision", func() {
		Expect(memory.ClassBugfix.AutoPromote()).To(BeTrue())
		Expect(memory.ClassLearning.AutoPromote()).To(BeTrue())
		Expect(memory.ClassDecision.AutoPromote()).To(BeTrue())

		Expect(memory.ClassPreference.AutoPromote()).To(BeFalse())
		Expect(memory.ClassConstraint.AutoPromote()).To(BeFalse())
		Expect(memory.ClassSemantic.AutoPromote()).To(BeFalse())
	})
})

var _ = Describe("Store class", func() {
	It("maps store classes to their decay rates", func() {
		Expect(memory.StoreSTM.DecayRate()).To(Equal(memory.DecayRateSTM))
		Expect(memory.StoreLTM.DecayRate()).To(Equal(memory.DecayRateLTM))
	})
})

var _ = Describe("Unit", func() {
	It("clones without aliasing slices", func() {
		u := &memory.Unit{
			ID:             memory.NewUnitID(),
			SourceEventIDs: []string{"e1", "e2"},
			Tags:           []string{"preference"},
			Embedding:      []float32{0.1, 0.2},
		}

		c := u.Clone()
		c.SourceEventIDs[0] = "mutated"
		c.Tags[0] = "mutated"
		c.Embedding[0] = 9

		Expect(u.SourceEventIDs[0]).To(Equal("e1"))
		Expect(u.Tags[0]).To(Equal("preference"))
		Expect(u.Embedding[0]).To(BeNumerically("~", 0.1, 1e-6))
	})

	It("computes age from creation time", func() {
		now := time.Now().UTC()
		u := &memory.Unit{CreatedAt: now.Add(-2 * time.Hour)}
		Expect(u.AgeHours(now)).To(BeNumerically("~", 2, 1e-6))
	})
})

var _ = Describe("Feedback types", func() {
	It("recognizes the three valid types", func() {
		Expect(memory.FeedbackPin.Valid()).To(BeTrue())
		Expect(memory.FeedbackForget.Valid()).To(BeTrue())
		Expect(memory.FeedbackRemember.Valid()).To(BeTrue())
		Expect(memory.FeedbackType("promote").Valid()).To(BeFalse())
	})
})
