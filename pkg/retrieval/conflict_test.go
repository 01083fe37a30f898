package retrieval_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/retrieval"
)

func conflictUnit(id, summary string, strength float64, created time.Time) *memory.Unit {
	return &memory.Unit{
		ID:        id,
		Store:     memory.StoreLTM,
		Summary:   summary,
		Strength:  strength,
		Status:    memory.StatusActive,
		CreatedAt: created,
	}
}

var _ = Describe("FilterConflicts", func() {
	var base time.Time

	BeforeEach(func() {
		base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	It("returns empty outputs for an empty input", func() {
		clean, suppressed := retrieval.FilterConflicts(nil)
		Expect(clean).To(BeEmpty())
		Expect(suppressed).To(BeEmpty())
	})

	It("keeps unrelated memories even with opposing polarity words", func() {
		units := []*memory.Unit{
			conflictUnit("a", "Never commit secrets to git", 0.8, base),
			conflictUnit("b", "Always run gofmt on save", 0.5, base),
		}

		clean, suppressed := retrieval.FilterConflicts(units)

		Expect(clean).To(HaveLen(2))
		Expect(suppressed).To(BeEmpty())
	})

	It("keeps overlapping memories that agree in polarity", func() {
		units := []*memory.Unit{
			conflictUnit("a", "Always use tabs for indentation", 0.8, base),
			conflictUnit("b", "Prefer tabs for indentation", 0.5, base),
		}

		clean, suppressed := retrieval.FilterConflicts(units)

		Expect(clean).To(HaveLen(2))
		Expect(suppressed).To(BeEmpty())
	})

	It("suppresses the weaker side of a contradiction", func() {
		stronger := conflictUnit("a", "Always use tabs", 0.8, base)
		weaker := conflictUnit("b", "Never use tabs", 0.5, base)

		clean, suppressed := retrieval.FilterConflicts([]*memory.Unit{stronger, weaker})

		Expect(clean).To(HaveLen(1))
		Expect(clean[0].ID).To(Equal("a"))
		Expect(suppressed).To(HaveLen(1))
		Expect(suppressed[0].Unit.ID).To(Equal("b"))
		Expect(suppressed[0].ConflictsWith).To(Equal("a"))
		Expect(suppressed[0].Reason).NotTo(BeEmpty())
	})

	It("breaks strength ties by suppressing the older memory", func() {
		older := conflictUnit("old", "The v1 endpoint is deprecated", 0.6, base.Add(-48*time.Hour))
		newer := conflictUnit("new", "The v1 endpoint is current", 0.6, base)

		clean, suppressed := retrieval.FilterConflicts([]*memory.Unit{older, newer})

		Expect(clean).To(HaveLen(1))
		Expect(clean[0].ID).To(Equal("new"))
		Expect(suppressed).To(HaveLen(1))
		Expect(suppressed[0].Unit.ID).To(Equal("old"))
		Expect(suppressed[0].ConflictsWith).To(Equal("new"))
	})

	It("detects the disable and enable group", func() {
		units := []*memory.Unit{
			conflictUnit("on", "Enable the request cache in production", 0.9, base),
			conflictUnit("off", "Disable the request cache in production", 0.4, base),
		}

		clean, suppressed := retrieval.FilterConflicts(units)

		Expect(clean).To(HaveLen(1))
		Expect(clean[0].ID).To(Equal("on"))
		Expect(suppressed[0].Unit.ID).To(Equal("off"))
	})

	It("suppresses every weaker unit that contradicts the same winner", func() {
		winner := conflictUnit("a", "Always use tabs", 0.9, base)
		loserOne := conflictUnit("b", "Never use tabs", 0.5, base)
		loserTwo := conflictUnit("c", "Avoid tabs use", 0.4, base)

		clean, suppressed := retrieval.FilterConflicts([]*memory.Unit{winner, loserOne, loserTwo})

		Expect(clean).To(HaveLen(1))
		Expect(clean[0].ID).To(Equal("a"))
		Expect(suppressed).To(HaveLen(2))
		Expect(suppressed[0].ConflictsWith).To(Equal("a"))
		Expect(suppressed[1].ConflictsWith).To(Equal("a"))
	})
})
