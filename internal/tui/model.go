package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
	"github.com/hylla/tidslinje/internal/interaction"
	"github.com/sahilm/fuzzy"
)

// Service is the application surface the chart view needs.
type Service interface {
	Chart(context.Context, app.ChartOptions) (*gantt.Chart, error)
	ListTasks(context.Context) ([]domain.Task, error)
	ListShifts(context.Context) ([]domain.RowShifts, error)
	Report(context.Context) (string, error)
}

type inputMode int

const (
	modeNone inputMode = iota
	modeLink
	modeSearch
	modeInfo
	modeReport
)

const (
	defaultCellsPerColumn = 6
	headerLines           = 2
	linesPerRow           = 2
	doubleClickWindow     = 400 * time.Millisecond
	progressStep          = 10
	arrowTolerance        = 4
)

type pressState struct {
	id    string
	moved bool
}

type clickState struct {
	id string
	at time.Time
}

// Model is the bubbletea model for the terminal chart.
type Model struct {
	svc    Service
	logger *log.Logger

	ready  bool
	width  int
	height int
	err    error
	status string
	help   help.Model
	keys   keyMap
	mode   inputMode

	chart          *gantt.Chart
	viewMode       domain.ViewMode
	cellsPerColumn int
	scrollX        int
	scrollY        int

	press     *pressState
	hoverID   string
	lastClick clickState
	linkFrom  string

	searchInput textinput.Model
	matches     []string
	matchIndex  int

	report     string
	detail     string
	pageOffset int
	markdown   *markdownRenderer

	copyText func(string) error
	now      func() time.Time
}

type loadedMsg struct {
	chart *gantt.Chart
	err   error
}

type refreshedMsg struct {
	tasks  []domain.Task
	shifts []domain.RowShifts
	err    error
}

type commitMsg struct {
	result interaction.CommitResult
	link   bool
}

type deleteMsg struct {
	plan *interaction.DeletePlan
	err  error
}

type reportMsg struct {
	markdown string
	err      error
}

type actionMsg struct {
	err    error
	status string
	reload bool
}

// NewModel constructs the chart model over svc.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	searchInput := textinput.New()
	searchInput.Prompt = "/ "
	searchInput.Placeholder = "task name"
	searchInput.CharLimit = 120
	m := Model{
		svc:            svc,
		logger:         log.New(io.Discard),
		status:         "loading...",
		help:           h,
		keys:           newKeyMap(),
		cellsPerColumn: defaultCellsPerColumn,
		searchInput:    searchInput,
		markdown:       &markdownRenderer{},
		copyText:       clipboard.WriteAll,
		now:            time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return m.loadChart
}

// Update routes one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "load failed"
			return m, nil
		}
		m.err = nil
		m.chart = msg.chart
		m.viewMode = msg.chart.ViewMode()
		m.status = "ready"
		m.clampScroll()
		return m, nil

	case refreshedMsg:
		if msg.err != nil {
			m.status = "reload failed: " + msg.err.Error()
			return m, nil
		}
		if m.chart == nil {
			return m, m.loadChart
		}
		if err := m.chart.Rebuild(msg.tasks, msg.shifts); err != nil {
			m.status = "rebuild failed: " + err.Error()
			return m, nil
		}
		m.clampScroll()
		return m, nil

	case commitMsg:
		if m.chart == nil {
			return m, nil
		}
		m.chart.Engine().Resolve(msg.result)
		if rejected := msg.result.Rejected(); len(rejected) > 0 {
			m.logger.Warn("changes rolled back", "action", string(msg.result.Action), "rejected", len(rejected))
		}
		m.status = commitStatus(msg)
		return m, m.reloadCmd()

	case deleteMsg:
		if m.chart == nil {
			return m, nil
		}
		m.chart.Engine().ResolveDelete(msg.plan, msg.err)
		if msg.err != nil {
			m.status = "delete failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "deleted " + msg.plan.Bar.Task.Name
		return m, m.reloadCmd()

	case reportMsg:
		if msg.err != nil {
			m.status = "report failed: " + msg.err.Error()
			return m, nil
		}
		m.report = msg.markdown
		m.pageOffset = 0
		m.mode = modeReport
		m.status = "report"
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		if msg.reload {
			return m, m.reloadCmd()
		}
		return m, nil

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		if m.mode == modeSearch {
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// View renders the frame.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready || m.chart == nil {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(muted)

	title := titleStyle.Render("tidslinje") + statusStyle.Render(" · "+string(m.chart.ViewMode())+" · "+m.statusLine())
	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	footer := helpBubble.View(m.keys)
	if m.mode == modeSearch {
		footer = m.searchInput.View() + statusStyle.Render(fmt.Sprintf("  %d match(es) • enter focus • tab next • esc cancel", len(m.matches)))
	}
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(footer)

	bodyHeight := max(0, m.height-headerLines-lipgloss.Height(helpLine))
	var body string
	switch m.mode {
	case modeReport:
		body = m.renderPage(m.report, bodyHeight)
	case modeInfo:
		body = m.renderPage(m.detail, bodyHeight)
	default:
		body = m.renderChart(m.width, bodyHeight)
	}
	content := strings.Join([]string{
		title,
		m.renderScale(m.width),
		fitLines(body, bodyHeight),
		helpLine,
	}, "\n")

	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeAllMotion
	v.AltScreen = true
	return v
}

func (m Model) loadChart() tea.Msg {
	if m.svc == nil {
		return loadedMsg{err: errors.New("tui service is required")}
	}
	chart, err := m.svc.Chart(context.Background(), app.ChartOptions{ViewMode: m.viewMode})
	return loadedMsg{chart: chart, err: err}
}

func (m Model) refresh() tea.Msg {
	ctx := context.Background()
	tasks, err := m.svc.ListTasks(ctx)
	if err != nil {
		return refreshedMsg{err: err}
	}
	shifts, err := m.svc.ListShifts(ctx)
	if err != nil {
		return refreshedMsg{err: err}
	}
	return refreshedMsg{tasks: tasks, shifts: shifts}
}

// reloadCmd rebuilds the chart in place so selection and focus survive.
func (m Model) reloadCmd() tea.Cmd {
	if m.chart == nil {
		return m.loadChart
	}
	return m.refresh
}

func (m Model) loadReport() tea.Msg {
	markdown, err := m.svc.Report(context.Background())
	return reportMsg{markdown: markdown, err: err}
}

func runCommit(plan *interaction.CommitPlan) tea.Cmd {
	return func() tea.Msg {
		return commitMsg{result: plan.Run(context.Background()), link: plan.IsLink()}
	}
}

func runDelete(plan *interaction.DeletePlan) tea.Cmd {
	return func() tea.Msg {
		return deleteMsg{plan: plan, err: plan.Run(context.Background())}
	}
}

func commitStatus(msg commitMsg) string {
	if msg.link {
		return "dependency linked"
	}
	action := string(msg.result.Action)
	accepted, rejected := len(msg.result.Accepted()), len(msg.result.Rejected())
	switch {
	case rejected > 0 && accepted == 0:
		return action + " rejected"
	case rejected > 0:
		return fmt.Sprintf("%s: %d saved, %d rolled back", action, accepted, rejected)
	default:
		return action + " saved"
	}
}

func (m Model) statusLine() string {
	e := m.chart.Engine()
	parts := []string{}
	if link := e.Link(); link.State != interaction.LinkIdle {
		target := "pick a target"
		if link.Candidate != "" {
			target = "→ " + m.taskName(link.Candidate)
		}
		parts = append(parts, "linking "+m.taskName(link.AnchorID)+" "+target)
	} else if a := e.Action(); a.Dragging() {
		parts = append(parts, "drag "+string(a))
	}
	for _, overlay := range m.chart.Snapshot().Moving {
		if overlay.NonWorking {
			parts = append(parts, "start falls in non-working time")
			break
		}
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return strings.Join(parts, " · ")
}

func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		if m.err != nil {
			m.chart = nil
			m.err = nil
		}
		return m, m.reloadCmd()
	}
	if m.chart == nil {
		return m, nil
	}
	e := m.chart.Engine()
	switch {
	case key.Matches(msg, m.keys.cancel):
		e.Cancel()
		e.Blur()
		e.ClearSelection()
		m.status = "ready"
	case key.Matches(msg, m.keys.focusNext):
		m.cycleFocus(1)
	case key.Matches(msg, m.keys.focusPrev):
		m.cycleFocus(-1)
	case key.Matches(msg, m.keys.scrollLeft):
		m.scrollX = max(0, m.scrollX-m.cellsPerColumn)
	case key.Matches(msg, m.keys.scrollRight):
		m.scrollX += m.cellsPerColumn
		m.clampScroll()
	case key.Matches(msg, m.keys.pageUp):
		m.scrollY -= m.visibleRows()
		m.clampScroll()
	case key.Matches(msg, m.keys.pageDown):
		m.scrollY += m.visibleRows()
		m.clampScroll()
	case key.Matches(msg, m.keys.selectBar):
		if id := e.FocusedID(); id != "" {
			e.Click(id)
		}
	case key.Matches(msg, m.keys.deleteBar):
		plan := e.KeyDown(interaction.KeyDelete)
		if plan == nil {
			m.status = "nothing to delete"
			return m, nil
		}
		m.status = "deleting " + plan.Bar.Task.Name
		return m, runDelete(plan)
	case key.Matches(msg, m.keys.moveEarlier):
		return m.nudge(interaction.HandleBody, -1)
	case key.Matches(msg, m.keys.moveLater):
		return m.nudge(interaction.HandleBody, 1)
	case key.Matches(msg, m.keys.progressDec):
		return m.nudge(interaction.HandleProgress, -1)
	case key.Matches(msg, m.keys.progressInc):
		return m.nudge(interaction.HandleProgress, 1)
	case key.Matches(msg, m.keys.collapse):
		return m.toggleCollapse()
	case key.Matches(msg, m.keys.link):
		return m.startLink()
	case key.Matches(msg, m.keys.search):
		m.mode = modeSearch
		m.matches = nil
		m.matchIndex = 0
		m.searchInput.SetValue("")
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.copyTask):
		return m, m.copyFocused()
	case key.Matches(msg, m.keys.viewMode):
		m.cycleViewMode()
	case key.Matches(msg, m.keys.taskInfo):
		m.openInfo()
	case key.Matches(msg, m.keys.report):
		m.status = "building report..."
		return m, m.loadReport
	}
	return m, nil
}

func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeLink:
		return m.handleLinkKey(msg)
	case modeSearch:
		return m.handleSearchKey(msg)
	default:
		switch {
		case key.Matches(msg, m.keys.cancel), key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.selectBar):
			m.mode = modeNone
			m.status = "ready"
		case key.Matches(msg, m.keys.focusNext):
			m.pageOffset++
		case key.Matches(msg, m.keys.focusPrev):
			m.pageOffset = max(0, m.pageOffset-1)
		}
		return m, nil
	}
}

func (m Model) handleLinkKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	e := m.chart.Engine()
	switch {
	case key.Matches(msg, m.keys.cancel):
		e.Cancel()
		m.mode = modeNone
		m.status = "link cancelled"
	case key.Matches(msg, m.keys.focusNext):
		m.cycleCandidate(1)
	case key.Matches(msg, m.keys.focusPrev):
		m.cycleCandidate(-1)
	case key.Matches(msg, m.keys.selectBar):
		m.mode = modeNone
		return m.finishLink(e.PointerUp(interaction.Point{}))
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.searchInput.Blur()
		m.status = "search cancelled"
		return m, nil
	case "enter":
		m.mode = modeNone
		m.searchInput.Blur()
		if len(m.matches) == 0 {
			m.status = "no matches"
			return m, nil
		}
		m.focus(m.matches[m.matchIndex])
		m.status = "found " + m.taskName(m.matches[m.matchIndex])
		return m, nil
	case "tab":
		if len(m.matches) > 0 {
			m.matchIndex = (m.matchIndex + 1) % len(m.matches)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.updateMatches()
	return m, cmd
}

// barOrder lists enabled bars top to bottom, then left to right.
func (m Model) barOrder() []bars.Bar {
	view := m.chart.Engine().View()
	out := view.Select(func(b bars.Bar) bool { return !b.Disabled() })
	slices.SortStableFunc(out, func(a, b bars.Bar) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		switch {
		case a.X1 < b.X1:
			return -1
		case a.X1 > b.X1:
			return 1
		default:
			return 0
		}
	})
	return out
}

func (m *Model) cycleFocus(delta int) {
	order := m.barOrder()
	if len(order) == 0 {
		return
	}
	idx := slices.IndexFunc(order, func(b bars.Bar) bool { return b.ID() == m.chart.Engine().FocusedID() })
	switch {
	case idx < 0 && delta > 0:
		idx = 0
	case idx < 0:
		idx = len(order) - 1
	default:
		idx = wrapIndex(idx, delta, len(order))
	}
	m.focus(order[idx].ID())
}

func (m *Model) focus(id string) {
	m.chart.Engine().Focus(id)
	m.ensureVisible(id)
}

func (m *Model) cycleCandidate(delta int) {
	e := m.chart.Engine()
	order := m.barOrder()
	if len(order) == 0 {
		return
	}
	link := e.Link()
	current := link.Candidate
	if current == "" {
		current = link.AnchorID
	}
	idx := slices.IndexFunc(order, func(b bars.Bar) bool { return b.ID() == current })
	if idx < 0 {
		idx = 0
	}
	for range order {
		idx = wrapIndex(idx, delta, len(order))
		next := order[idx]
		if next.ID() == link.AnchorID {
			continue
		}
		if link.Candidate != "" {
			e.Leave(link.Candidate)
		}
		e.PointerMove(interaction.Point{X: next.CenterX(), Y: next.MiddleY()})
		e.Enter(next.ID())
		m.ensureVisible(next.ID())
		if e.Link().Candidate == next.ID() {
			m.status = "target " + next.Task.Name
			return
		}
		m.status = next.Task.Name + " cannot depend on " + m.taskName(link.AnchorID)
		link = e.Link()
	}
}

// startLink anchors a dependency at the focused bar's bottom connector.
func (m Model) startLink() (tea.Model, tea.Cmd) {
	e := m.chart.Engine()
	bv, ok := m.focusedView()
	if !ok {
		m.status = "focus a task first"
		return m, nil
	}
	hp, ok := bv.Handles["bottom"]
	p := interaction.Point(hp)
	if !ok || !e.PointerDown(bv.ID(), interaction.HandleBottomConnector, p) {
		m.status = "task cannot be linked"
		return m, nil
	}
	e.PointerMove(p)
	m.mode = modeLink
	m.linkFrom = bv.ID()
	m.status = "link from " + bv.Task.Name + ": j/k pick • enter connect • esc cancel"
	return m, nil
}

func (m Model) finishLink(plan *interaction.CommitPlan) (tea.Model, tea.Cmd) {
	m.linkFrom = ""
	if plan == nil {
		m.status = "no valid link target"
		return m, nil
	}
	m.status = "linking..."
	return m, runCommit(plan)
}

// nudge replays a one-step drag on the focused bar: a snap step for moves,
// ten percent for progress.
func (m Model) nudge(handle interaction.Handle, direction float64) (tea.Model, tea.Cmd) {
	e := m.chart.Engine()
	bv, ok := m.focusedView()
	if !ok {
		m.status = "focus a task first"
		return m, nil
	}
	if m.chart.Layout().RTL {
		direction = -direction
	}
	origin := interaction.Point{X: bv.CenterX(), Y: bv.MiddleY()}
	delta := direction * e.XStep()
	if handle == interaction.HandleProgress {
		hp, ok := bv.Handles["progress"]
		if !ok {
			m.status = bv.Task.Name + " has no progress"
			return m, nil
		}
		origin = interaction.Point(hp)
		delta = direction * bv.Width() * progressStep / 100
	}
	if !e.PointerDown(bv.ID(), handle, origin) {
		m.status = bv.Task.Name + " cannot be changed"
		return m, nil
	}
	target := interaction.Point{X: origin.X + delta, Y: origin.Y}
	e.PointerMove(target)
	plan := e.PointerUp(target)
	if plan == nil {
		return m, nil
	}
	m.status = "saving..."
	return m, runCommit(plan)
}

func (m Model) toggleCollapse() (tea.Model, tea.Cmd) {
	b, ok := m.focusedBar()
	if !ok || b.Variant != bars.VariantProject {
		m.status = "focus a project first"
		return m, nil
	}
	m.chart.Engine().ExpanderClick(b.ID())
	return m, m.reloadCmd()
}

func (m *Model) cycleViewMode() {
	modes := domain.ViewModes()
	idx := slices.Index(modes, m.chart.ViewMode())
	next := modes[(idx+1)%len(modes)]
	if err := m.chart.SetViewMode(next); err != nil {
		m.status = "view mode: " + err.Error()
		return
	}
	m.viewMode = next
	m.scrollX = 0
	m.status = "view " + string(next)
}

func (m *Model) updateMatches() {
	order := m.barOrder()
	names := make([]string, len(order))
	for i, b := range order {
		names[i] = b.Task.Name
	}
	m.matches = m.matches[:0]
	m.matchIndex = 0
	for _, match := range fuzzy.Find(m.searchInput.Value(), names) {
		m.matches = append(m.matches, order[match.Index].ID())
	}
}

func (m Model) copyFocused() tea.Cmd {
	b, ok := m.focusedBar()
	if !ok {
		return func() tea.Msg { return actionMsg{status: "focus a task first"} }
	}
	text := taskSummary(b.Task)
	write := m.copyText
	return func() tea.Msg {
		if err := write(text); err != nil {
			return actionMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return actionMsg{status: "copied " + b.Task.Name}
	}
}

func taskSummary(t domain.Task) string {
	return fmt.Sprintf("%s [%s] %s → %s (%d%%)",
		t.Name, t.ID, t.Start.Format(time.DateTime), t.End.Format(time.DateTime), t.Progress)
}

func (m *Model) openInfo() {
	b, ok := m.focusedBar()
	if !ok {
		m.status = "focus a task first"
		return
	}
	m.detail = taskMarkdown(b, m.chart.Engine().View())
	m.pageOffset = 0
	m.mode = modeInfo
}

func taskMarkdown(b bars.Bar, view bars.Model) string {
	t := b.Task
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", t.Name)
	sb.WriteString("| field | value |\n| --- | --- |\n")
	fmt.Fprintf(&sb, "| id | %s |\n", t.ID)
	fmt.Fprintf(&sb, "| type | %s |\n", b.Variant)
	fmt.Fprintf(&sb, "| start | %s |\n", t.Start.Format(time.DateTime))
	fmt.Fprintf(&sb, "| end | %s |\n", t.End.Format(time.DateTime))
	fmt.Fprintf(&sb, "| progress | %d%% |\n", t.Progress)
	fmt.Fprintf(&sb, "| status | %s |\n", t.Status)
	fmt.Fprintf(&sb, "| row | %d |\n", b.Row)
	if t.Project != "" {
		fmt.Fprintf(&sb, "| project | %s |\n", t.Project)
	}
	if deps := view.DependencyIDs(t.ID); len(deps) > 0 {
		sb.WriteString("\n## Depends on\n\n")
		for _, id := range deps {
			name := id
			if dep, ok := view.ByID(id); ok {
				name = dep.Task.Name
			}
			fmt.Fprintf(&sb, "- %s\n", name)
		}
	}
	return sb.String()
}

func (m Model) renderPage(markdown string, height int) string {
	rendered := m.markdown.render(markdown, m.width-4)
	lines := strings.Split(rendered, "\n")
	offset := clamp(m.pageOffset, 0, max(0, len(lines)-height))
	return strings.Join(lines[offset:], "\n")
}

func (m Model) focusedBar() (bars.Bar, bool) {
	id := m.chart.Engine().FocusedID()
	if id == "" {
		return bars.Bar{}, false
	}
	return m.chart.Engine().View().ByID(id)
}

func (m Model) focusedView() (gantt.BarView, bool) {
	id := m.chart.Engine().FocusedID()
	if id == "" {
		return gantt.BarView{}, false
	}
	for _, bv := range m.chart.Snapshot().Bars {
		if bv.ID() == id {
			return bv, true
		}
	}
	return gantt.BarView{}, false
}

func (m Model) taskName(id string) string {
	if b, ok := m.chart.Engine().View().ByID(id); ok {
		return b.Task.Name
	}
	return id
}

func (m Model) visibleRows() int {
	return max(1, (m.height-headerLines-2)/linesPerRow)
}

func (m *Model) ensureVisible(id string) {
	b, ok := m.chart.Engine().View().ByID(id)
	if !ok {
		return
	}
	rows := m.visibleRows()
	switch {
	case b.Row < m.scrollY:
		m.scrollY = b.Row
	case b.Row >= m.scrollY+rows:
		m.scrollY = b.Row - rows + 1
	}
	if m.width > 0 {
		x1, x2 := m.cellOf(b.X1), m.cellOf(b.X2)
		switch {
		case x1 < m.scrollX:
			m.scrollX = x1
		case x2 >= m.scrollX+m.width:
			m.scrollX = max(0, x1-m.width/3)
		}
	}
	m.clampScroll()
}

func (m *Model) clampScroll() {
	if m.chart == nil {
		return
	}
	rows := m.chart.Engine().Model().RowCount()
	m.scrollY = clamp(m.scrollY, 0, max(0, rows-1))
	totalCells := m.chart.Axis().Len() * m.cellsPerColumn
	m.scrollX = clamp(m.scrollX, 0, max(0, totalCells-max(1, m.width)))
}

// wrapIndex steps current by delta within [0,total).
func wrapIndex(current, delta, total int) int {
	if total <= 0 {
		return 0
	}
	next := (current + delta) % total
	if next < 0 {
		next += total
	}
	return next
}

func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines pads or truncates content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		lines = lines[:maxLines]
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}
