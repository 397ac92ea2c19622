package tui

import (
	"fmt"
	"math"

	tea "charm.land/bubbletea/v2"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/interaction"
	"github.com/hylla/tidslinje/internal/timeline"
)

// Each grid row spans two terminal lines: the bar body and a track line
// carrying the progress and link handles.

func (m Model) cellWidth() float64 {
	return m.chart.Layout().ColumnWidth / float64(m.cellsPerColumn)
}

// cellOf is the absolute (unscrolled) cell column holding chart x.
func (m Model) cellOf(x float64) int {
	return int(math.Floor(x / m.cellWidth()))
}

// pointAt maps a terminal cell to a chart-local point plus its grid row and
// line within the row.
func (m Model) pointAt(x, y int) (interaction.Point, int, int, bool) {
	line := y - headerLines
	if m.chart == nil || line < 0 || x < 0 {
		return interaction.Point{}, 0, 0, false
	}
	layout := m.chart.Layout()
	row := line/linesPerRow + m.scrollY
	sub := line % linesPerRow
	barHeight := layout.BarHeight()
	top := timeline.RowToY(row, layout.RowHeight, barHeight)
	py := top + barHeight/2
	if sub == 1 {
		py = top + barHeight - 1
	}
	px := (float64(x+m.scrollX) + 0.5) * m.cellWidth()
	return interaction.Point{X: px, Y: py}, row, sub, true
}

// hitAt resolves the bar and handle under p. On a track line the link and
// progress handles win when their cell is pressed, and the returned point is
// the handle itself.
func (m Model) hitAt(p interaction.Point, row, sub int) (string, interaction.Handle, interaction.Point, bool) {
	if sub == 1 {
		cell := m.cellOf(p.X)
		for _, bv := range m.chart.Snapshot().Bars {
			if bv.Row != row || bv.Disabled() {
				continue
			}
			if hp, ok := bv.Handles["bottom"]; ok && m.cellOf(hp.X) == cell {
				return bv.ID(), interaction.HandleBottomConnector, interaction.Point(hp), true
			}
			if hp, ok := bv.Handles["progress"]; ok && m.cellOf(hp.X) == cell {
				return bv.ID(), interaction.HandleProgress, interaction.Point(hp), true
			}
		}
	}
	b, handle, ok := m.chart.HitBar(p)
	if !ok {
		return "", interaction.HandleBody, p, false
	}
	return b.ID(), handle, p, true
}

func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.chart == nil || m.help.ShowAll || msg.Button != tea.MouseLeft {
		return m, nil
	}
	if m.mode != modeNone && m.mode != modeLink {
		return m, nil
	}
	p, row, sub, ok := m.pointAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	e := m.chart.Engine()
	if m.mode == modeLink {
		if b, _, hit := m.chart.HitBar(p); hit {
			e.PointerMove(p)
			e.Enter(b.ID())
		}
		m.mode = modeNone
		return m.finishLink(e.PointerUp(p))
	}

	id, handle, hp, hit := m.hitAt(p, row, sub)
	if !hit {
		if a, ok := m.chart.HitArrow(p, arrowTolerance); ok {
			e.ArrowClick(a.FromID, a.ToID)
			m.status = fmt.Sprintf("dependency %s → %s", m.taskName(a.FromID), m.taskName(a.ToID))
			return m, nil
		}
		e.ClearSelection()
		e.Blur()
		return m, nil
	}
	e.Focus(id)
	m.press = &pressState{id: id}
	e.PointerDown(id, handle, hp)
	return m, nil
}

func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.chart == nil {
		return m, nil
	}
	p, _, _, ok := m.pointAt(msg.X, msg.Y)
	if !ok {
		return m, nil
	}
	e := m.chart.Engine()
	if m.press != nil || e.Link().State != interaction.LinkIdle {
		if e.PointerMove(p) && m.press != nil {
			m.press.moved = true
		}
	}
	m.updateHover(p)
	return m, nil
}

func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if m.chart == nil || m.press == nil {
		return m, nil
	}
	press := *m.press
	m.press = nil
	e := m.chart.Engine()
	p, _, _, ok := m.pointAt(msg.X, msg.Y)
	if !ok {
		e.Cancel()
		m.status = "gesture cancelled"
		return m, nil
	}
	linking := e.Link().State != interaction.LinkIdle
	plan := e.PointerUp(p)
	switch {
	case linking:
		return m.finishLink(plan)
	case plan != nil:
		m.status = "saving..."
		return m, runCommit(plan)
	case !press.moved:
		return m.click(press.id)
	}
	return m, nil
}

// click toggles the selection; a second click inside the window opens the
// task, or collapses it when it is a project.
func (m Model) click(id string) (tea.Model, tea.Cmd) {
	e := m.chart.Engine()
	now := m.now()
	if m.lastClick.id == id && now.Sub(m.lastClick.at) <= doubleClickWindow {
		m.lastClick = clickState{}
		if b, ok := e.View().ByID(id); ok && b.Variant == bars.VariantProject {
			e.ExpanderClick(id)
			return m, m.reloadCmd()
		}
		e.DoubleClick(id)
		m.openInfo()
		return m, nil
	}
	m.lastClick = clickState{id: id, at: now}
	e.Click(id)
	return m, nil
}

func (m *Model) updateHover(p interaction.Point) {
	e := m.chart.Engine()
	id := ""
	if b, _, ok := m.chart.HitBar(p); ok {
		id = b.ID()
	}
	if id == m.hoverID {
		return
	}
	if m.hoverID != "" {
		e.Leave(m.hoverID)
	}
	if id != "" {
		e.Enter(id)
	}
	m.hoverID = id
}

func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.chart == nil || m.help.ShowAll {
		return m, nil
	}
	if m.mode == modeReport || m.mode == modeInfo {
		switch msg.Button {
		case tea.MouseWheelUp:
			m.pageOffset = max(0, m.pageOffset-1)
		case tea.MouseWheelDown:
			m.pageOffset++
		}
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.scrollY--
	case tea.MouseWheelDown:
		m.scrollY++
	case tea.MouseWheelLeft:
		m.scrollX -= m.cellsPerColumn
	case tea.MouseWheelRight:
		m.scrollX += m.cellsPerColumn
	}
	m.clampScroll()
	return m, nil
}
