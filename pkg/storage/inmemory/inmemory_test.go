package inmemory_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
)

func TestInMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InMemory Storage Suite")
}

// testUnit builds an active short-term unit with deterministic fields.
func testUnit(id string, created time.Time) memory.Unit {
	return memory.Unit{
		ID:             id,
		Store:          memory.StoreSTM,
		Classification: memory.ClassSemantic,
		Summary:        "summary for " + id,
		CreatedAt:      created,
		UpdatedAt:      created,
		LastAccessedAt: created,
		Strength:       0.5,
		DecayRate:      memory.DecayRateSTM,
		Status:         memory.StatusActive,
		Version:        1,
	}
}

func unitIDs(units []memory.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.ID
	}
	return out
}

var _ = Describe("Driver", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
		base   time.Time
	)

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		ctx = context.Background()
		base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("sessions", func() {
		It("stores and retrieves a session", func() {
			session := memory.NewSession("/repo/alpha")
			session.Metadata = map[string]any{"agent": "cli"}

			Expect(driver.CreateSession(ctx, *session)).To(Succeed())

			got, err := driver.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Project).To(Equal("/repo/alpha"))
			Expect(got.Status).To(Equal(memory.SessionActive))
			Expect(got.Metadata).To(HaveKeyWithValue("agent", "cli"))
			Expect(got.EndedAt).To(BeNil())
		})

		It("rejects a duplicate session id", func() {
			session := memory.NewSession("")
			Expect(driver.CreateSession(ctx, *session)).To(Succeed())
			Expect(driver.CreateSession(ctx, *session)).To(HaveOccurred())
		})

		It("returns a not-found error for an unknown id", func() {
			_, err := driver.GetSession(ctx, "missing")
			Expect(err).To(HaveOccurred())
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("ends a session with a terminal status", func() {
			session := memory.NewSession("")
			Expect(driver.CreateSession(ctx, *session)).To(Succeed())

			endedAt := base.Add(time.Hour)
			Expect(driver.EndSession(ctx, session.ID, memory.SessionCompleted, endedAt)).To(Succeed())

			got, err := driver.GetSession(ctx, session.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(memory.SessionCompleted))
			Expect(got.EndedAt).NotTo(BeNil())
			Expect(*got.EndedAt).To(Equal(endedAt))
		})

		It("fails to end an unknown session", func() {
			err := driver.EndSession(ctx, "missing", memory.SessionAbandoned, base)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("watermarks", func() {
		var sessionID string

		BeforeEach(func() {
			session := memory.NewSession("")
			Expect(driver.CreateSession(ctx, *session)).To(Succeed())
			sessionID = session.ID
		})

		It("advances the watermark forward", func() {
			Expect(driver.TouchWatermark(ctx, sessionID, 5)).To(Succeed())

			got, err := driver.GetSession(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.MessageWatermark).To(Equal(5))
		})

		It("never moves the watermark backwards", func() {
			Expect(driver.TouchWatermark(ctx, sessionID, 5)).To(Succeed())
			Expect(driver.TouchWatermark(ctx, sessionID, 3)).To(Succeed())

			got, err := driver.GetSession(ctx, sessionID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.MessageWatermark).To(Equal(5))
		})

		It("fails for an unknown session", func() {
			err := driver.TouchWatermark(ctx, "missing", 1)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("events", func() {
		It("stores events and lists them in capture order", func() {
			e1 := memory.NewEvent("s1", memory.HookUserPrompt, "first")
			e2 := memory.NewEvent("s1", memory.HookStop, "second")
			e3 := memory.NewEvent("s1", memory.HookUserPrompt, "third")

			Expect(driver.PutEvents(ctx, []memory.Event{e1, e2, e3})).To(Succeed())

			events, err := driver.ListEvents(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(3))
			Expect(events[0].Content).To(Equal("first"))
			Expect(events[1].Content).To(Equal("second"))
			Expect(events[2].Content).To(Equal("third"))
		})

		It("skips events whose ids were already stored", func() {
			e1 := memory.NewEvent("s1", memory.HookUserPrompt, "once")
			Expect(driver.PutEvents(ctx, []memory.Event{e1})).To(Succeed())
			Expect(driver.PutEvents(ctx, []memory.Event{e1})).To(Succeed())

			events, err := driver.ListEvents(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
		})

		It("keeps sessions separate", func() {
			Expect(driver.PutEvents(ctx, []memory.Event{
				memory.NewEvent("s1", memory.HookUserPrompt, "a"),
				memory.NewEvent("s2", memory.HookUserPrompt, "b"),
			})).To(Succeed())

			events, err := driver.ListEvents(ctx, "s2")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Content).To(Equal("b"))
		})

		It("returns an empty list for an unknown session", func() {
			events, err := driver.ListEvents(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		})
	})

	Describe("units", func() {
		It("stores and retrieves a unit", func() {
			unit := testUnit("u1", base)
			unit.Tags = []string{"semantic", "cache"}
			unit.SourceEventIDs = []string{"e1", "e2"}
			unit.Embedding = []float32{0.1, 0.2, 0.3}

			Expect(driver.CreateUnit(ctx, unit)).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Summary).To(Equal("summary for u1"))
			Expect(got.Tags).To(Equal([]string{"semantic", "cache"}))
			Expect(got.SourceEventIDs).To(Equal([]string{"e1", "e2"}))
			Expect(got.Embedding).To(Equal([]float32{0.1, 0.2, 0.3}))
			Expect(got.Version).To(Equal(1))
		})

		It("defaults a zero version to one", func() {
			unit := testUnit("u1", base)
			unit.Version = 0
			Expect(driver.CreateUnit(ctx, unit)).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Version).To(Equal(1))
		})

		It("rejects a duplicate unit id", func() {
			Expect(driver.CreateUnit(ctx, testUnit("u1", base))).To(Succeed())
			Expect(driver.CreateUnit(ctx, testUnit("u1", base))).To(HaveOccurred())
		})

		It("does not alias stored state through returned units", func() {
			unit := testUnit("u1", base)
			unit.Tags = []string{"original"}
			Expect(driver.CreateUnit(ctx, unit)).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			got.Tags[0] = "mutated"

			again, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Tags).To(Equal([]string{"original"}))
		})

		It("bumps the version on every update", func() {
			Expect(driver.CreateUnit(ctx, testUnit("u1", base))).To(Succeed())

			updated := testUnit("u1", base)
			updated.Summary = "rewritten"
			Expect(driver.UpdateUnit(ctx, updated)).To(Succeed())
			Expect(driver.UpdateUnit(ctx, updated)).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Summary).To(Equal("rewritten"))
			Expect(got.Version).To(Equal(3))
		})

		It("fails to update an unknown unit", func() {
			err := driver.UpdateUnit(ctx, testUnit("missing", base))
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("deletes a unit", func() {
			Expect(driver.CreateUnit(ctx, testUnit("u1", base))).To(Succeed())
			Expect(driver.DeleteUnit(ctx, "u1")).To(Succeed())

			_, err := driver.GetUnit(ctx, "u1")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("fails to delete an unknown unit", func() {
			err := driver.DeleteUnit(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("queries", func() {
		BeforeEach(func() {
			a := testUnit("a", base)
			a.Classification = memory.ClassPreference
			a.Strength = 0.9
			a.Tags = []string{"preference"}
			a.Summary = "Prefers tabs for indentation"

			b := testUnit("b", base.Add(time.Hour))
			b.Store = memory.StoreLTM
			b.Classification = memory.ClassDecision
			b.ProjectScope = "/repo/alpha"
			b.Strength = 0.7
			b.Tags = []string{"decision", "api"}
			b.Summary = "Chose fiber for the HTTP layer"

			c := testUnit("c", base.Add(2*time.Hour))
			c.Classification = memory.ClassBugfix
			c.ProjectScope = "/repo/beta"
			c.Strength = 0.4
			c.Tags = []string{"bugfix"}
			c.Summary = "Fixed the flaky migration test"

			d := testUnit("d", base.Add(3*time.Hour))
			d.Store = memory.StoreLTM
			d.Strength = 0.2
			d.Status = memory.StatusDecayed
			d.Tags = []string{"semantic"}
			d.Summary = "Disk cache layout notes"

			for _, u := range []memory.Unit{a, b, c, d} {
				Expect(driver.CreateUnit(ctx, u)).To(Succeed())
			}
		})

		It("lists everything newest first by default", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"d", "c", "b", "a"}))
		})

		It("filters by store class", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{Store: memory.StoreSTM})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(ConsistOf("a", "c"))
		})

		It("filters by status", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{Status: memory.StatusDecayed})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"d"}))
		})

		It("filters by classification", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{Classification: memory.ClassDecision})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"b"}))
		})

		It("filters by tag", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{Tag: "api"})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"b"}))
		})

		It("searches summaries case-insensitively", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{Search: "FIBER"})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"b"}))
		})

		It("scopes by project, keeping user-level units", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{Project: "/repo/alpha"})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(ConsistOf("a", "b", "d"))
		})

		It("orders by strength when asked", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{OrderByStrength: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"a", "b", "c", "d"}))
		})

		It("pages with limit and offset", func() {
			units, err := driver.ListUnits(ctx, storage.UnitQuery{OrderByStrength: true, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"a", "b"}))

			units, err = driver.ListUnits(ctx, storage.UnitQuery{OrderByStrength: true, Limit: 2, Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"c", "d"}))

			units, err = driver.ListUnits(ctx, storage.UnitQuery{Limit: 2, Offset: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(units).To(BeEmpty())
		})

		It("ranks the strongest active units", func() {
			units, err := driver.StrongestPool(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"a", "b"}))
		})

		It("excludes non-active units from the strongest pool", func() {
			units, err := driver.StrongestPool(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"a", "b", "c"}))
		})

		It("pools user-level and project units together", func() {
			units, err := driver.ScopePool(ctx, "/repo/alpha", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(unitIDs(units)).To(Equal([]string{"a", "b"}))
		})
	})

	Describe("access bookkeeping", func() {
		BeforeEach(func() {
			Expect(driver.CreateUnit(ctx, testUnit("u1", base))).To(Succeed())
		})

		It("stamps last access on listed units and skips unknown ids", func() {
			at := base.Add(4 * time.Hour)
			Expect(driver.BumpAccess(ctx, []string{"u1", "missing"}, at)).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.LastAccessedAt).To(Equal(at))
		})

		It("increments frequency on each bump", func() {
			at := base.Add(time.Hour)
			Expect(driver.BumpFrequency(ctx, "u1", at)).To(Succeed())
			Expect(driver.BumpFrequency(ctx, "u1", at)).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Features.Frequency).To(BeNumerically("==", 2))
			Expect(got.LastAccessedAt).To(Equal(at))
		})

		It("fails to bump frequency for an unknown unit", func() {
			err := driver.BumpFrequency(ctx, "missing", base)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("attaches an embedding", func() {
			Expect(driver.SetEmbedding(ctx, "u1", []float32{1, 2, 3})).To(Succeed())

			got, err := driver.GetUnit(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Embedding).To(Equal([]float32{1, 2, 3}))
		})

		It("ignores embeddings for units retired in the meantime", func() {
			Expect(driver.SetEmbedding(ctx, "missing", []float32{1})).To(Succeed())
		})
	})

	Describe("feedback", func() {
		It("records and lists feedback oldest first", func() {
			fb1 := memory.Feedback{ID: "f1", MemoryID: "u1", Type: memory.FeedbackPin, Timestamp: base}
			fb2 := memory.Feedback{ID: "f2", MemoryID: "u1", Type: memory.FeedbackRemember, Content: "keep this", Timestamp: base.Add(time.Minute)}

			Expect(driver.PutFeedback(ctx, fb1)).To(Succeed())
			Expect(driver.PutFeedback(ctx, fb2)).To(Succeed())

			got, err := driver.ListFeedback(ctx, "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].Type).To(Equal(memory.FeedbackPin))
			Expect(got[1].Content).To(Equal("keep this"))
		})

		It("returns an empty list for a unit with no feedback", func() {
			got, err := driver.ListFeedback(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})

	Describe("retrieval logs", func() {
		It("records retrievals and marks them used", func() {
			entries := []memory.RetrievalLog{
				{ID: "r1", MemoryID: "u1", Query: "how do migrations run", Timestamp: base, RelevanceScore: 0.8},
				{ID: "r2", MemoryID: "u2", Query: "how do migrations run", Timestamp: base, RelevanceScore: 0.6},
			}
			Expect(driver.LogRetrieval(ctx, entries)).To(Succeed())

			Expect(driver.MarkRetrievalUsed(ctx, "r1", "useful")).To(Succeed())
		})

		It("fails to mark an unknown retrieval", func() {
			err := driver.MarkRetrievalUsed(ctx, "missing", "")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("stats", func() {
		It("summarizes the store", func() {
			session := memory.NewSession("")
			Expect(driver.CreateSession(ctx, *session)).To(Succeed())
			Expect(driver.PutEvents(ctx, []memory.Event{
				memory.NewEvent(session.ID, memory.HookUserPrompt, "a"),
				memory.NewEvent(session.ID, memory.HookStop, "b"),
				memory.NewEvent(session.ID, memory.HookUserPrompt, "c"),
			})).To(Succeed())

			strong := testUnit("u1", base)
			strong.Strength = 0.9
			weak := testUnit("u2", base)
			weak.Store = memory.StoreLTM
			weak.Classification = memory.ClassDecision
			weak.Strength = 0.3
			weak.Status = memory.StatusDecayed
			Expect(driver.CreateUnit(ctx, strong)).To(Succeed())
			Expect(driver.CreateUnit(ctx, weak)).To(Succeed())

			Expect(driver.PutFeedback(ctx, memory.Feedback{ID: "f1", MemoryID: "u1", Type: memory.FeedbackPin, Timestamp: base})).To(Succeed())

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Units).To(Equal(2))
			Expect(stats.Sessions).To(Equal(1))
			Expect(stats.Events).To(Equal(3))
			Expect(stats.Feedback).To(Equal(1))
			Expect(stats.ByStore[memory.StoreSTM]).To(Equal(1))
			Expect(stats.ByStore[memory.StoreLTM]).To(Equal(1))
			Expect(stats.ByStatus[memory.StatusActive]).To(Equal(1))
			Expect(stats.ByStatus[memory.StatusDecayed]).To(Equal(1))
			Expect(stats.ByClassification[memory.ClassDecision]).To(Equal(1))
			Expect(stats.AvgStrength).To(BeNumerically("~", 0.6, 1e-9))
		})
	})
})
