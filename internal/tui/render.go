package tui

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/hylla/tidslinje/internal/arrows"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
	"github.com/hylla/tidslinje/internal/highlight"
)

var (
	barText      = lipgloss.Color("#1f2328")
	warnColor    = lipgloss.Color("#e3b341")
	errorColor   = lipgloss.Color("#e5534b")
	arrowColor   = lipgloss.Color("245")
	hotColor     = lipgloss.Color("#f0883e")
	nowColor     = lipgloss.Color("#e5534b")
	offColor     = lipgloss.Color("237")
	labelColor   = lipgloss.Color("252")
	scaleColor   = lipgloss.Color("244")
	handleColor  = lipgloss.Color("111")
	blockedColor = lipgloss.Color("160")
)

type cell struct {
	r     rune
	style string
}

// canvas is a fixed grid of styled runes rendered run by run.
type canvas struct {
	width  int
	height int
	lines  [][]cell
	styles map[string]lipgloss.Style
}

func newCanvas(width, height int) *canvas {
	c := &canvas{
		width:  max(0, width),
		height: max(0, height),
		styles: map[string]lipgloss.Style{},
	}
	c.lines = make([][]cell, c.height)
	for y := range c.lines {
		c.lines[y] = make([]cell, c.width)
		for x := range c.lines[y] {
			c.lines[y][x] = cell{r: ' '}
		}
	}
	return c
}

func (c *canvas) define(name string, style lipgloss.Style) string {
	c.styles[name] = style
	return name
}

func (c *canvas) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

func (c *canvas) set(x, y int, r rune, style string) {
	if c.inside(x, y) {
		c.lines[y][x] = cell{r: r, style: style}
	}
}

// overlay replaces runes but keeps the existing cell styles.
func (c *canvas) overlay(x, y int, s string) {
	for _, r := range s {
		if c.inside(x, y) {
			c.lines[y][x].r = r
		}
		x++
	}
}

func (c *canvas) text(x, y int, s, style string) {
	for _, r := range s {
		c.set(x, y, r, style)
		x++
	}
}

func (c *canvas) empty(x, y int) bool {
	return c.inside(x, y) && c.lines[y][x].r == ' ' && c.lines[y][x].style == ""
}

func (c *canvas) render() string {
	out := make([]string, len(c.lines))
	for y, line := range c.lines {
		var sb strings.Builder
		var run []rune
		current := ""
		flush := func() {
			if len(run) == 0 {
				return
			}
			if style, ok := c.styles[current]; ok && current != "" {
				sb.WriteString(style.Render(string(run)))
			} else {
				sb.WriteString(string(run))
			}
			run = run[:0]
		}
		for _, cl := range line {
			if cl.style != current {
				flush()
				current = cl.style
			}
			run = append(run, cl.r)
		}
		flush()
		out[y] = strings.TrimRight(sb.String(), " ")
	}
	return strings.Join(out, "\n")
}

func (m Model) renderScale(width int) string {
	c := newCanvas(width, 1)
	style := c.define("scale", lipgloss.NewStyle().Foreground(scaleColor))
	snap := m.chart.Snapshot()
	for i, d := range snap.Dates {
		idx := i
		if snap.RTL {
			idx = len(snap.Dates) - 1 - i
		}
		x := idx*m.cellsPerColumn - m.scrollX
		label := bucketLabel(d, snap.ViewMode)
		if limit := m.cellsPerColumn - 1; len([]rune(label)) > limit {
			label = string([]rune(label)[:max(0, limit)])
		}
		c.text(x, 0, label, style)
	}
	return c.render()
}

func bucketLabel(d time.Time, mode domain.ViewMode) string {
	switch mode {
	case domain.ViewModeHour:
		return d.Format("15:04")
	case domain.ViewModeQuarterDay, domain.ViewModeHalfDay:
		return d.Format("02 15")
	case domain.ViewModeDay:
		return d.Format("02 Mon")
	case domain.ViewModeWeek:
		return d.Format("Jan 2")
	case domain.ViewModeMonth:
		return d.Format("Jan 06")
	case domain.ViewModeQuarterYear:
		return fmt.Sprintf("Q%d %02d", (int(d.Month())-1)/3+1, d.Year()%100)
	default:
		return d.Format("2006")
	}
}

// renderChart draws the visible rows: non-working periods, the current-time
// line, dependency arrows, bars, then the link rubber band on top.
func (m Model) renderChart(width, height int) string {
	snap := m.chart.Snapshot()
	c := newCanvas(width, height)
	sx := m.cellWidth()
	sy := snap.RowHeight / linesPerRow
	col := func(x float64) int { return int(math.Floor(x/sx)) - m.scrollX }
	line := func(y float64) int {
		return int(math.Floor(math.Max(y-1, 0)/sy)) - m.scrollY*linesPerRow
	}

	off := c.define("off", lipgloss.NewStyle().Foreground(offColor))
	for _, r := range snap.NonWorking {
		top := (r.Row - m.scrollY) * linesPerRow
		for x := col(r.X1); x < col(r.X2); x++ {
			c.set(x, top, '·', off)
			c.set(x, top+1, '·', off)
		}
	}
	if snap.ShowCurrent {
		now := c.define("now", lipgloss.NewStyle().Foreground(nowColor))
		x := col(snap.CurrentX)
		for y := range height {
			c.set(x, y, '┊', now)
		}
	}

	plain := c.define("arrow", lipgloss.NewStyle().Foreground(arrowColor))
	hot := c.define("arrow-hot", lipgloss.NewStyle().Foreground(hotColor).Bold(true))
	for _, a := range snap.Arrows {
		style := plain
		if a.Highlighted {
			style = hot
		}
		drawArrow(c, a, col, line, style)
	}

	warned := map[string]bool{}
	for _, overlay := range snap.Moving {
		if overlay.NonWorking {
			warned[overlay.Bar.ID()] = true
		}
	}
	for _, bv := range snap.Bars {
		m.drawBar(c, bv, snap, warned[bv.ID()])
	}

	if rb := snap.RubberBand; rb != nil {
		band := c.define("band", lipgloss.NewStyle().Foreground(hotColor))
		drawPath(c, col(rb.From.X), line(rb.From.Y), col(rb.To.X), line(rb.To.Y), '·', band, false)
		c.set(col(rb.To.X), line(rb.To.Y), '◎', band)
	}
	return c.render()
}

func drawArrow(c *canvas, a arrows.Arrow, col, line func(float64) int, style string) {
	if len(a.Points) < 2 {
		return
	}
	for i := 1; i < len(a.Points); i++ {
		from, to := a.Points[i-1], a.Points[i]
		drawPath(c, col(from.X), line(from.Y), col(to.X), line(to.Y), 0, style, true)
	}
	last, prev := a.Points[len(a.Points)-1], a.Points[len(a.Points)-2]
	head := '▶'
	if last.X < prev.X {
		head = '◀'
	}
	hx := col(last.X) - 1
	if head == '◀' {
		hx = col(last.X) + 1
	}
	c.set(hx, line(last.Y), head, style)
}

// drawPath draws an elbow from (x1,y1) to (x2,y2), horizontal first. A zero
// glyph picks box-drawing runes. Only blank cells are written when weak is set.
func drawPath(c *canvas, x1, y1, x2, y2 int, glyph rune, style string, weak bool) {
	put := func(x, y int, r rune) {
		if glyph != 0 {
			r = glyph
		}
		if !weak || c.empty(x, y) {
			c.set(x, y, r, style)
		}
	}
	step := 1
	if x2 < x1 {
		step = -1
	}
	for x := x1; x != x2; x += step {
		put(x, y1, '─')
	}
	step = 1
	if y2 < y1 {
		step = -1
	}
	for y := y1; y != y2; y += step {
		put(x2, y, '│')
	}
	put(x2, y2, '─')
}

func (m Model) drawBar(c *canvas, bv gantt.BarView, snap gantt.Snapshot, warned bool) {
	top := (bv.Row - m.scrollY) * linesPerRow
	if top < 0 || top >= c.height {
		return
	}
	sx := m.cellWidth()
	col := func(x float64) int { return int(math.Floor(x/sx)) - m.scrollX }
	body, progress := barStyles(bv, bv.ID() == snap.FocusedID, bv.ID() == snap.HoverID, warned)
	bodyKey := c.define("bar:"+bv.ID(), body)
	progressKey := c.define("progress:"+bv.ID(), progress)
	label := bv.Task.Name

	switch bv.Variant {
	case bars.VariantMilestone:
		x := col(bv.CenterX())
		c.set(x, top, '◆', c.define("milestone:"+bv.ID(), milestoneStyle(bv, body)))
		c.text(x+2, top, label, c.define("label", lipgloss.NewStyle().Foreground(labelColor)))
	default:
		x1 := col(bv.X1)
		x2 := max(x1, col(bv.X2-0.001))
		for x := x1; x <= x2; x++ {
			center := (float64(x+m.scrollX) + 0.5) * sx
			style := bodyKey
			if bv.ProgressWidth > 0 && center >= bv.ProgressX && center < bv.ProgressX+bv.ProgressWidth {
				style = progressKey
			}
			c.set(x, top, ' ', style)
		}
		if bv.Variant == bars.VariantProject {
			marker := "▾ "
			if bv.Task.HideChildren {
				marker = "▸ "
			}
			label = marker + label
		}
		if n := len([]rune(label)); n+2 <= x2-x1+1 {
			c.overlay(x1+1, top, label)
		} else {
			c.text(x2+2, top, label, c.define("label", lipgloss.NewStyle().Foreground(labelColor)))
		}
	}

	handle := c.define("handle", lipgloss.NewStyle().Foreground(handleColor))
	if hp, ok := bv.Handles["progress"]; ok && bv.ID() == snap.FocusedID {
		c.set(col(hp.X), top+1, '▲', handle)
	}
	if hp, ok := bv.Handles["bottom"]; ok && bv.Connector != highlight.ConnectorHidden {
		glyph, style := connectorGlyph(bv.Connector)
		c.set(col(hp.X), top+1, glyph, c.define("connector:"+bv.Connector.String(), style))
	}
}

func connectorGlyph(state highlight.Connector) (rune, lipgloss.Style) {
	style := lipgloss.NewStyle().Foreground(handleColor)
	switch state {
	case highlight.ConnectorAnchor:
		return '●', style.Foreground(hotColor)
	case highlight.ConnectorCandidate:
		return '◎', style.Foreground(hotColor).Bold(true)
	case highlight.ConnectorBlocked:
		return '×', style.Foreground(blockedColor)
	default:
		return '○', style
	}
}

// barStyles derives the body and progress styles from the bar colors and its
// overlay state.
func barStyles(bv gantt.BarView, focused, hovered, warned bool) (lipgloss.Style, lipgloss.Style) {
	colors := bv.Colors
	background, fill := colors.Background, colors.Progress
	if bv.Mask == highlight.MaskSelected {
		background, fill = colors.BackgroundSelected, colors.ProgressSelected
	}
	body := lipgloss.NewStyle().Foreground(barText).Background(colorOr(background, lipgloss.Color("250")))
	progress := body.Background(colorOr(fill, lipgloss.Color("105")))
	switch {
	case warned, bv.Mask == highlight.MaskWarn:
		body = body.Background(warnColor)
	case bv.Mask == highlight.MaskError:
		body = body.Background(errorColor)
	case bv.Mask == highlight.MaskPlain:
		body = body.Faint(true)
		progress = progress.Faint(true)
	}
	if bv.Provisional {
		body = body.Italic(true)
		progress = progress.Italic(true)
	}
	if bv.Disabled() {
		body = body.Faint(true).Strikethrough(true)
		progress = progress.Faint(true).Strikethrough(true)
	}
	if focused {
		body = body.Underline(true)
		progress = progress.Underline(true)
	}
	if hovered || focused {
		body = body.Bold(true)
		progress = progress.Bold(true)
	}
	return body, progress
}

func milestoneStyle(bv gantt.BarView, body lipgloss.Style) lipgloss.Style {
	fg := colorOr(bv.Colors.Background, warnColor)
	if bv.Mask == highlight.MaskSelected {
		fg = colorOr(bv.Colors.BackgroundSelected, fg)
	}
	return lipgloss.NewStyle().Foreground(fg).Bold(body.GetBold())
}

func colorOr(hex string, fallback color.Color) color.Color {
	if strings.TrimSpace(hex) == "" {
		return fallback
	}
	return lipgloss.Color(hex)
}
