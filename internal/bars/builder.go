package bars

import (
	"io"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/timeline"
)

// milestoneRotation is the diagonal factor of the diamond drawn for milestones.
const milestoneRotation = 1.414

// Layout carries the pixel parameters shared by every bar.
type Layout struct {
	ColumnWidth  float64 `json:"column_width"`
	RowHeight    float64 `json:"row_height"`
	BarFill      float64 `json:"bar_fill"`
	CornerRadius float64 `json:"corner_radius"`
	HandleWidth  float64 `json:"handle_width"`
	ArrowIndent  float64 `json:"arrow_indent"`
	RTL          bool    `json:"rtl"`
}

func DefaultLayout() Layout {
	return Layout{
		ColumnWidth:  60,
		RowHeight:    50,
		BarFill:      60,
		CornerRadius: 3,
		HandleWidth:  8,
		ArrowIndent:  20,
	}
}

// BarHeight is the share of the row height taken by a bar.
func (l Layout) BarHeight() float64 {
	return l.RowHeight * l.BarFill / 100
}

// Options configures Build.
type Options struct {
	Layout  Layout
	Palette Palette
	Logger  *log.Logger
}

// Model is an immutable set of bars built for one render pass.
type Model struct {
	bars  []Bar
	index map[string]int
	rows  int
}

// Build positions every task, then wires dependency edges in a second pass so
// forward references resolve.
func Build(rows []domain.Row, axis timeline.Axis, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := Model{index: map[string]int{}, rows: len(rows)}
	for rowIndex, row := range rows {
		for _, task := range row {
			if _, dup := m.index[task.ID]; dup {
				logger.Warn("duplicate task id skipped", "task_id", task.ID, "row", rowIndex)
				continue
			}
			m.index[task.ID] = len(m.bars)
			m.bars = append(m.bars, buildBar(task.Clone(), rowIndex, axis, opts))
		}
	}
	for _, bar := range m.bars {
		for _, dep := range bar.Task.Dependencies {
			parent, ok := m.index[dep]
			if !ok {
				logger.Debug("dependency dropped", "task_id", bar.ID(), "dependency_id", dep)
				continue
			}
			m.bars[parent].Children = append(m.bars[parent].Children, bar.ID())
		}
	}
	return m
}

func buildBar(task domain.Task, row int, axis timeline.Axis, opts Options) Bar {
	layout := opts.Layout
	barHeight := layout.BarHeight()
	bar := Bar{
		Task:         task,
		Row:          row,
		Y:            timeline.RowToY(row, layout.RowHeight, barHeight),
		Height:       barHeight,
		CornerRadius: layout.CornerRadius,
		HandleWidth:  layout.HandleWidth,
		Colors:       opts.Palette.Resolve(task),
	}
	toX := axis.TimeToX
	if layout.RTL {
		toX = axis.TimeToXRTL
	}

	switch task.Type {
	case domain.TaskTypeMilestone:
		center := toX(task.Start, layout.ColumnWidth)
		bar.Variant = VariantMilestone
		bar.X1 = center - barHeight/2
		bar.X2 = center + barHeight/2
		bar.Height = barHeight / milestoneRotation
		bar.Task.End = task.Start
		bar.Task.Progress = 0
		return bar
	case domain.TaskTypeProject:
		bar.Variant = VariantProject
	default:
		bar.Variant = VariantTask
	}

	if layout.RTL {
		bar.X1 = toX(task.End, layout.ColumnWidth)
		bar.X2 = toX(task.Start, layout.ColumnWidth)
	} else {
		bar.X1 = toX(task.Start, layout.ColumnWidth)
		bar.X2 = toX(task.End, layout.ColumnWidth)
	}
	if bar.Variant == VariantTask && bar.X2-bar.X1 < 2*layout.HandleWidth {
		bar.Variant = VariantSmallTask
		bar.X2 = bar.X1 + 2*layout.HandleWidth
	}
	bar.UpdateProgressGeometry(layout.RTL)
	return bar
}

// Bars returns the bars in build order.
func (m Model) Bars() []Bar {
	out := make([]Bar, len(m.bars))
	for i, b := range m.bars {
		out[i] = b.Clone()
	}
	return out
}

func (m Model) Len() int { return len(m.bars) }

// RowCount is the number of grid rows including empty ones.
func (m Model) RowCount() int { return m.rows }

func (m Model) ByID(id string) (Bar, bool) {
	idx, ok := m.index[id]
	if !ok {
		return Bar{}, false
	}
	return m.bars[idx].Clone(), true
}

// Children resolves the child bars of id.
func (m Model) Children(id string) []Bar {
	idx, ok := m.index[id]
	if !ok {
		return nil
	}
	out := make([]Bar, 0, len(m.bars[idx].Children))
	for _, childID := range m.bars[idx].Children {
		if child, ok := m.ByID(childID); ok {
			out = append(out, child)
		}
	}
	return out
}

// ChildIDs returns the ids of bars depending on id. The slice must not be modified.
func (m Model) ChildIDs(id string) []string {
	idx, ok := m.index[id]
	if !ok {
		return nil
	}
	return m.bars[idx].Children
}

// DependencyIDs returns the dependencies of id that resolve to a bar.
func (m Model) DependencyIDs(id string) []string {
	idx, ok := m.index[id]
	if !ok {
		return nil
	}
	var out []string
	for _, dep := range m.bars[idx].Task.Dependencies {
		if _, ok := m.index[dep]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// Select returns the bars matching keep, in build order.
func (m Model) Select(keep func(Bar) bool) []Bar {
	var out []Bar
	for _, b := range m.bars {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	return out
}

// At returns the topmost bar under a chart-local point.
func (m Model) At(x, y float64) (Bar, bool) {
	for i := len(m.bars) - 1; i >= 0; i-- {
		if m.bars[i].Contains(x, y) {
			return m.bars[i].Clone(), true
		}
	}
	return Bar{}, false
}

// WithOverrides returns a model where bars sharing an id with replacements are
// swapped for them. Edges are kept from the receiver.
func (m Model) WithOverrides(replacements []Bar) Model {
	if len(replacements) == 0 {
		return m
	}
	out := Model{bars: slices.Clone(m.bars), index: m.index, rows: m.rows}
	for _, r := range replacements {
		idx, ok := m.index[r.ID()]
		if !ok {
			continue
		}
		next := r.Clone()
		next.Children = m.bars[idx].Children
		out.bars[idx] = next
	}
	return out
}
