package boardcmder

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/storage"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type boardView int

const (
	viewList boardView = iota
	viewDetail
)

type boardModel struct {
	storer storage.Driver
	engine *engine.Engine
	query  storage.UnitQuery

	units  []memory.Unit
	view   boardView
	cursor int
	width  int
	height int

	sortIndex   int
	statusIndex int
	storeIndex  int
	notice      string

	keys boardKeyMap
	help help.Model
}

var (
	boardTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	boardMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boardAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	boardSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	boardDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	boardHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	boardActiveStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	boardPinnedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	boardDecayedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	boardClassStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
)

var (
	sortOrder     = []string{"strength", "newest"}
	statusFilters = []memory.Status{"", memory.StatusActive, memory.StatusPinned, memory.StatusDecayed, memory.StatusForgotten}
	storeFilters  = []memory.StoreClass{"", memory.StoreSTM, memory.StoreLTM}
)

type boardKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Sort   key.Binding
	Status key.Binding
	Store  key.Binding
	Pin    key.Binding
	Forget key.Binding
	Reload key.Binding
	Quit   key.Binding
}

func (k boardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Enter, k.Back, k.Sort, k.Status, k.Store, k.Pin, k.Forget, k.Quit}
}

func (k boardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Enter, k.Back}, {k.Sort, k.Status, k.Store, k.Pin, k.Forget, k.Reload, k.Quit}}
}

func defaultKeyMap() boardKeyMap {
	return boardKeyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Enter:  key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "drill")),
		Back:   key.NewBinding(key.WithKeys("h", "esc"), key.WithHelp("h", "back")),
		Sort:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Status: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status")),
		Store:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "store")),
		Pin:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin")),
		Forget: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "forget")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type unitsLoadedMsg struct {
	units []memory.Unit
	err   error
}

type feedbackDoneMsg struct {
	action string
	err    error
}

func runBoardTUI(ctx context.Context, storer storage.Driver, eng *engine.Engine, query storage.UnitQuery) error {
	units, err := storer.ListUnits(ctx, query)
	if err != nil {
		return err
	}

	model := newBoardModel(storer, eng, query, units)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err = program.Run()
	return err
}

func newBoardModel(storer storage.Driver, eng *engine.Engine, query storage.UnitQuery, units []memory.Unit) boardModel {
	statusIndex := 0
	for i, status := range statusFilters {
		if status == query.Status {
			statusIndex = i
		}
	}

	storeIndex := 0
	for i, store := range storeFilters {
		if store == query.Store {
			storeIndex = i
		}
	}

	sortIndex := 0
	if !query.OrderByStrength {
		sortIndex = 1
	}

	return boardModel{
		storer:      storer,
		engine:      eng,
		query:       query,
		units:       units,
		view:        viewList,
		sortIndex:   sortIndex,
		statusIndex: statusIndex,
		storeIndex:  storeIndex,
		keys:        defaultKeyMap(),
		help:        help.New(),
	}
}

func (m boardModel) Init() bubbletea.Cmd {
	return nil
}

func (m boardModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case unitsLoadedMsg:
		if msg.err != nil {
			m.notice = "load failed: " + msg.err.Error()
			return m, nil
		}
		m.units = msg.units
		if m.cursor >= len(m.units) {
			m.cursor = clamp(m.cursor, len(m.units)-1)
		}
		return m, nil
	case feedbackDoneMsg:
		if msg.err != nil {
			m.notice = msg.action + " failed: " + msg.err.Error()
			return m, nil
		}
		m.notice = msg.action + " applied"
		return m, loadUnitsCmd(m.storer, m.query)
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m boardModel) View() string {
	switch m.view {
	case viewList:
		return m.viewUnitList()
	case viewDetail:
		return m.viewUnitDetail()
	}
	return m.viewUnitList()
}

func (m boardModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "enter":
		if m.view == viewList && len(m.units) > 0 {
			m.view = viewDetail
		}
	case "h", "esc":
		if m.view == viewDetail {
			m.view = viewList
		}
	case "s":
		return m.cycleSort()
	case "f":
		return m.cycleStatus()
	case "c":
		return m.cycleStore()
	case "p":
		return m.applyFeedback(memory.FeedbackPin, "pin")
	case "x":
		return m.applyFeedback(memory.FeedbackForget, "forget")
	case "r":
		return m, loadUnitsCmd(m.storer, m.query)
	}

	return m, nil
}

func (m boardModel) moveCursor(delta int) (bubbletea.Model, bubbletea.Cmd) {
	if len(m.units) == 0 {
		return m, nil
	}
	m.cursor = clamp(m.cursor+delta, len(m.units)-1)
	return m, nil
}

func (m boardModel) cycleSort() (bubbletea.Model, bubbletea.Cmd) {
	m.sortIndex = (m.sortIndex + 1) % len(sortOrder)
	m.query.OrderByStrength = m.sortIndex == 0
	return m, loadUnitsCmd(m.storer, m.query)
}

func (m boardModel) cycleStatus() (bubbletea.Model, bubbletea.Cmd) {
	m.statusIndex = (m.statusIndex + 1) % len(statusFilters)
	m.query.Status = statusFilters[m.statusIndex]
	m.cursor = 0
	return m, loadUnitsCmd(m.storer, m.query)
}

func (m boardModel) cycleStore() (bubbletea.Model, bubbletea.Cmd) {
	m.storeIndex = (m.storeIndex + 1) % len(storeFilters)
	m.query.Store = storeFilters[m.storeIndex]
	m.cursor = 0
	return m, loadUnitsCmd(m.storer, m.query)
}

func (m boardModel) applyFeedback(fb memory.FeedbackType, action string) (bubbletea.Model, bubbletea.Cmd) {
	if len(m.units) == 0 || m.cursor >= len(m.units) {
		return m, nil
	}
	unit := m.units[m.cursor]
	return m, feedbackCmd(m.engine, fb, unit.ID, action)
}

func (m boardModel) viewUnitList() string {
	headerLeft := boardTitleStyle.Render("engram board")
	headerRight := boardMutedStyle.Render(m.headerFilters())
	header := renderHeaderLine(m.width, headerLeft, headerRight)

	lines := make([]string, 0, len(m.units)+8)
	lines = append(lines, header, renderRule(m.width), "")

	if len(m.units) == 0 {
		lines = append(lines, boardMutedStyle.Render("no memories match the current filters"))
		lines = append(lines, "", m.viewFooter())
		return strings.Join(lines, "\n")
	}

	lines = append(lines, boardMutedStyle.Render("  class        store  status     strength          age      summary"))

	screenHeight := m.height
	if screenHeight <= 0 {
		screenHeight = 40
	}
	maxVisible := max(screenHeight-8, 5)
	start, end := visibleRange(len(m.units), m.cursor, maxVisible)

	for i := start; i < end; i++ {
		unit := m.units[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		summaryWidth := max(m.width-62, 20)
		line := fmt.Sprintf("%s %-12s %-6s %-10s %s %.2f  %7s  %s",
			cursor,
			truncateText(string(unit.Classification), 12),
			string(unit.Store),
			statusStyleFor(unit.Status).Render(fitCell(string(unit.Status), 10)),
			boardAccentStyle.Render(renderBar(unit.Strength, 1.0, 10)),
			unit.Strength,
			formatAge(unit.CreatedAt),
			truncateText(oneLine(unit.Summary), summaryWidth),
		)

		if i == m.cursor {
			line = boardHighlightStyle.Render(line)
		}

		lines = append(lines, line)
	}

	lines = append(lines, "")
	if m.notice != "" {
		lines = append(lines, boardAccentStyle.Render(m.notice))
	}
	lines = append(lines, m.viewFooter())

	return strings.Join(lines, "\n")
}

func (m boardModel) viewUnitDetail() string {
	if len(m.units) == 0 || m.cursor >= len(m.units) {
		return boardMutedStyle.Render("no memory selected")
	}
	unit := m.units[m.cursor]

	headerLeft := boardTitleStyle.Render("engram board › " + string(unit.Classification))
	headerRight := boardMutedStyle.Render(unit.ID)
	header := renderHeaderLine(m.width, headerLeft, headerRight)

	lines := make([]string, 0, 24)
	lines = append(lines, header, renderRule(m.width), "")

	lines = append(lines, boardSectionStyle.Render("memory"), renderRule(m.width))
	lines = append(lines, fmt.Sprintf("store: %-6s status: %s  strength: %.3f  decay: %.3f/h",
		string(unit.Store),
		statusStyleFor(unit.Status).Render(string(unit.Status)),
		unit.Strength,
		unit.DecayRate,
	))
	lines = append(lines, boardMutedStyle.Render(fmt.Sprintf("created %s  updated %s  accessed %s",
		unit.CreatedAt.Format("2006-01-02 15:04"),
		unit.UpdatedAt.Format("2006-01-02 15:04"),
		unit.LastAccessedAt.Format("2006-01-02 15:04"),
	)))
	if unit.ProjectScope != "" {
		lines = append(lines, boardMutedStyle.Render("project: "+unit.ProjectScope))
	}
	if unit.SessionID != "" {
		lines = append(lines, boardMutedStyle.Render("session: "+unit.SessionID))
	}
	if len(unit.Tags) > 0 {
		lines = append(lines, boardClassStyle.Render("tags: "+strings.Join(unit.Tags, ", ")))
	}

	lines = append(lines, "", boardSectionStyle.Render("features"), renderRule(m.width))
	f := unit.Features
	lines = append(lines, fmt.Sprintf("recency %s  frequency %s  importance %s",
		renderFeature(f.Recency), renderFeature(f.Frequency), renderFeature(f.Importance)))
	lines = append(lines, fmt.Sprintf("utility %s  novelty   %s  confidence %s",
		renderFeature(f.Utility), renderFeature(f.Novelty), renderFeature(f.Confidence)))
	lines = append(lines, fmt.Sprintf("interference %s", renderFeature(f.Interference)))

	lines = append(lines, "", boardSectionStyle.Render("summary"), renderRule(m.width))
	lines = append(lines, wrapText(unit.Summary, max(20, m.width-2))...)

	if len(unit.SourceEventIDs) > 0 {
		lines = append(lines, "", boardMutedStyle.Render(fmt.Sprintf("from %d source events", len(unit.SourceEventIDs))))
	}

	lines = append(lines, "")
	if m.notice != "" {
		lines = append(lines, boardAccentStyle.Render(m.notice))
	}
	lines = append(lines, m.viewFooter())

	return strings.Join(lines, "\n")
}

func (m boardModel) viewFooter() string {
	return boardMutedStyle.Render(m.help.View(m.keys))
}

func (m boardModel) headerFilters() string {
	status := "all"
	if m.query.Status != "" {
		status = string(m.query.Status)
	}
	store := "all"
	if m.query.Store != "" {
		store = string(m.query.Store)
	}
	return fmt.Sprintf("%d memories · sort: %s · status: %s · store: %s",
		len(m.units), sortOrder[m.sortIndex], status, store)
}

func loadUnitsCmd(storer storage.Driver, query storage.UnitQuery) bubbletea.Cmd {
	return func() bubbletea.Msg {
		units, err := storer.ListUnits(context.Background(), query)
		return unitsLoadedMsg{units: units, err: err}
	}
}

func feedbackCmd(eng *engine.Engine, fb memory.FeedbackType, unitID, action string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		err := eng.AddFeedback(context.Background(), fb, unitID, "")
		return feedbackDoneMsg{action: action, err: err}
	}
}

func statusStyleFor(status memory.Status) lipgloss.Style {
	switch status {
	case memory.StatusActive:
		return boardActiveStyle
	case memory.StatusPinned:
		return boardPinnedStyle
	case memory.StatusDecayed, memory.StatusForgotten:
		return boardDecayedStyle
	default:
		return boardMutedStyle
	}
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return upper
	}
	return value
}

func oneLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func truncateText(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}

func formatAge(created time.Time) string {
	if created.IsZero() {
		return "?"
	}
	age := time.Since(created)
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}

func renderBar(value, ceiling float64, width int) string {
	if ceiling <= 0 {
		return strings.Repeat("░", width)
	}
	ratio := value / ceiling
	filled := min(max(int(ratio*float64(width)), 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func renderFeature(value float64) string {
	return fmt.Sprintf("%s %.2f", renderBar(value, 1.0, 8), value)
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = 80
	}
	return boardDividerStyle.Render(strings.Repeat("─", lineWidth))
}

func fitCell(value string, width int) string {
	if width <= 0 {
		return value
	}
	if lipgloss.Width(value) > width {
		return truncateText(value, width)
	}
	return value + strings.Repeat(" ", width-lipgloss.Width(value))
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
