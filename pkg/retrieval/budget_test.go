package retrieval_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/retrieval"
)

func budgetScored(id string, store memory.StoreClass, score float64) retrieval.Scored {
	return retrieval.Scored{
		Unit:  &memory.Unit{ID: id, Store: store, Status: memory.StatusActive},
		Score: score,
	}
}

var _ = Describe("Budget", func() {
	It("returns empty for an empty ranking", func() {
		Expect(retrieval.Budget(nil)).To(BeEmpty())
	})

	It("takes everything when under both caps", func() {
		ranked := []retrieval.Scored{
			budgetScored("s1", memory.StoreSTM, 0.9),
			budgetScored("l1", memory.StoreLTM, 0.8),
			budgetScored("s2", memory.StoreSTM, 0.7),
		}

		selected := retrieval.Budget(ranked)

		Expect(scoredIDs(selected)).To(Equal([]string{"s1", "l1", "s2"}))
	})

	It("caps short-term units at three even when they outrank long-term ones", func() {
		ranked := []retrieval.Scored{
			budgetScored("s1", memory.StoreSTM, 0.9),
			budgetScored("s2", memory.StoreSTM, 0.8),
			budgetScored("s3", memory.StoreSTM, 0.7),
			budgetScored("s4", memory.StoreSTM, 0.6),
			budgetScored("l1", memory.StoreLTM, 0.5),
			budgetScored("l2", memory.StoreLTM, 0.4),
		}

		selected := retrieval.Budget(ranked)

		Expect(scoredIDs(selected)).To(Equal([]string{"s1", "s2", "s3", "l1", "l2"}))
	})

	It("fills with long-term units to seven total", func() {
		ranked := []retrieval.Scored{
			budgetScored("s1", memory.StoreSTM, 1.0),
			budgetScored("l1", memory.StoreLTM, 0.9),
			budgetScored("l2", memory.StoreLTM, 0.8),
			budgetScored("l3", memory.StoreLTM, 0.7),
			budgetScored("l4", memory.StoreLTM, 0.6),
			budgetScored("l5", memory.StoreLTM, 0.5),
			budgetScored("l6", memory.StoreLTM, 0.4),
			budgetScored("l7", memory.StoreLTM, 0.3),
		}

		selected := retrieval.Budget(ranked)

		Expect(selected).To(HaveLen(7))
		Expect(scoredIDs(selected)).To(Equal([]string{"s1", "l1", "l2", "l3", "l4", "l5", "l6"}))
	})

	It("preserves interleaved rank order across tiers", func() {
		ranked := []retrieval.Scored{
			budgetScored("l1", memory.StoreLTM, 1.0),
			budgetScored("s1", memory.StoreSTM, 0.9),
			budgetScored("l2", memory.StoreLTM, 0.8),
			budgetScored("s2", memory.StoreSTM, 0.7),
			budgetScored("s3", memory.StoreSTM, 0.6),
			budgetScored("s4", memory.StoreSTM, 0.5),
			budgetScored("l3", memory.StoreLTM, 0.4),
			budgetScored("l4", memory.StoreLTM, 0.3),
			budgetScored("l5", memory.StoreLTM, 0.2),
		}

		selected := retrieval.Budget(ranked)

		Expect(scoredIDs(selected)).To(Equal([]string{"l1", "s1", "l2", "s2", "s3", "l3", "l4"}))
	})

	It("returns at most three units when only short-term ones exist", func() {
		ranked := []retrieval.Scored{
			budgetScored("s1", memory.StoreSTM, 0.9),
			budgetScored("s2", memory.StoreSTM, 0.8),
			budgetScored("s3", memory.StoreSTM, 0.7),
			budgetScored("s4", memory.StoreSTM, 0.6),
			budgetScored("s5", memory.StoreSTM, 0.5),
		}

		selected := retrieval.Budget(ranked)

		Expect(scoredIDs(selected)).To(Equal([]string{"s1", "s2", "s3"}))
	})
})
