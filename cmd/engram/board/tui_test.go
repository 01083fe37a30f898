package boardcmder

import (
	"testing"
	"time"

	bubbletea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
)

func TestBoard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Board Suite")
}

var _ = Describe("Board TUI helpers", func() {
	Describe("clamp", func() {
		It("keeps values inside bounds", func() {
			Expect(clamp(-1, 5)).To(Equal(0))
			Expect(clamp(3, 5)).To(Equal(3))
			Expect(clamp(9, 5)).To(Equal(5))
		})
	})

	Describe("visibleRange", func() {
		It("returns the full range when everything fits", func() {
			start, end := visibleRange(3, 0, 10)
			Expect(start).To(Equal(0))
			Expect(end).To(Equal(3))
		})

		It("centers the window around the cursor", func() {
			start, end := visibleRange(100, 50, 10)
			Expect(end - start).To(Equal(10))
			Expect(start).To(BeNumerically("<=", 50))
			Expect(end).To(BeNumerically(">", 50))
		})

		It("pins the window at the tail", func() {
			start, end := visibleRange(20, 19, 10)
			Expect(start).To(Equal(10))
			Expect(end).To(Equal(20))
		})
	})

	Describe("formatAge", func() {
		It("uses minutes, hours, then days", func() {
			Expect(formatAge(time.Now().Add(-5 * time.Minute))).To(Equal("5m"))
			Expect(formatAge(time.Now().Add(-3 * time.Hour))).To(Equal("3h"))
			Expect(formatAge(time.Now().Add(-49 * time.Hour))).To(Equal("2d"))
		})
	})

	Describe("renderBar", func() {
		It("fills proportionally", func() {
			Expect(renderBar(1.0, 1.0, 4)).To(Equal("████"))
			Expect(renderBar(0.0, 1.0, 4)).To(Equal("░░░░"))
			Expect(renderBar(0.5, 1.0, 4)).To(Equal("██░░"))
		})
	})
})

var _ = Describe("Board model", func() {
	var model boardModel

	BeforeEach(func() {
		units := []memory.Unit{
			{ID: "u1", Summary: "first", Strength: 0.9, Status: memory.StatusActive, Store: memory.StoreLTM},
			{ID: "u2", Summary: "second", Strength: 0.5, Status: memory.StatusActive, Store: memory.StoreSTM},
			{ID: "u3", Summary: "third", Strength: 0.2, Status: memory.StatusDecayed, Store: memory.StoreSTM},
		}
		model = newBoardModel(inmemory.NewDriver(), nil, storage.UnitQuery{OrderByStrength: true}, units)
	})

	It("moves the cursor within bounds", func() {
		next, _ := model.moveCursor(1)
		m := next.(boardModel)
		Expect(m.cursor).To(Equal(1))

		next, _ = m.moveCursor(10)
		m = next.(boardModel)
		Expect(m.cursor).To(Equal(2))

		next, _ = m.moveCursor(-10)
		m = next.(boardModel)
		Expect(m.cursor).To(Equal(0))
	})

	It("drills into the detail view on enter", func() {
		next, _ := model.handleKey(bubbletea.KeyMsg{Type: bubbletea.KeyEnter})
		m := next.(boardModel)
		Expect(m.view).To(Equal(viewDetail))

		next, _ = m.handleKey(bubbletea.KeyMsg{Type: bubbletea.KeyEsc})
		m = next.(boardModel)
		Expect(m.view).To(Equal(viewList))
	})

	It("cycles the status filter", func() {
		next, cmd := model.cycleStatus()
		m := next.(boardModel)
		Expect(m.query.Status).To(Equal(memory.StatusActive))
		Expect(cmd).NotTo(BeNil())
	})

	It("cycles the sort order", func() {
		Expect(model.query.OrderByStrength).To(BeTrue())
		next, _ := model.cycleSort()
		m := next.(boardModel)
		Expect(m.query.OrderByStrength).To(BeFalse())
	})

	It("renders the unit list with the cursor row", func() {
		model.width = 120
		model.height = 30
		view := model.viewUnitList()
		Expect(view).To(ContainSubstring("engram board"))
		Expect(view).To(ContainSubstring("first"))
	})

	It("renders unit details", func() {
		model.view = viewDetail
		view := model.viewUnitDetail()
		Expect(view).To(ContainSubstring("u1"))
		Expect(view).To(ContainSubstring("first"))
	})
})
