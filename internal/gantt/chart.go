// Package gantt composes the axis, bar model, interaction engine and
// non-working periods into one chart that renders as a Snapshot.
package gantt

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/arrows"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/highlight"
	"github.com/hylla/tidslinje/internal/interaction"
	"github.com/hylla/tidslinje/internal/schedule"
	"github.com/hylla/tidslinje/internal/timeline"
)

// Modes toggles the status-driven masks.
type Modes struct {
	Overdue        bool `json:"overdue" toml:"overdue"`
	BehindSchedule bool `json:"behind_schedule" toml:"behind_schedule"`
}

// Options configures a Chart.
type Options struct {
	Layout        bars.Layout
	Palette       bars.Palette
	Modes         Modes
	ViewMode      domain.ViewMode
	PreSteps      int
	TimeStep      time.Duration
	ShowAllArrows bool
	Batch         interaction.FieldFilter
	Callbacks     interaction.Callbacks
	Transform     interaction.Transform
	Now           func() time.Time
	Logger        *log.Logger
}

// DefaultOptions returns the stock chart options.
func DefaultOptions() Options {
	return Options{
		Layout:        bars.DefaultLayout(),
		Palette:       bars.DefaultPalette(),
		ViewMode:      domain.ViewModeDay,
		PreSteps:      1,
		TimeStep:      24 * time.Hour,
		ShowAllArrows: true,
	}
}

// Chart is a rendered timeline plus its interaction state.
type Chart struct {
	opts   Options
	logger *log.Logger

	tasks  []domain.Task
	shifts []domain.RowShifts
	axis   timeline.Axis
	rects  []schedule.Rect
	engine *interaction.Engine
}

// New builds a chart for tasks and shifts.
func New(tasks []domain.Task, shifts []domain.RowShifts, opts Options) (*Chart, error) {
	if opts.Layout == (bars.Layout{}) {
		opts.Layout = bars.DefaultLayout()
	}
	if opts.ViewMode == "" {
		opts.ViewMode = domain.ViewModeDay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Chart{opts: opts, logger: logger}
	if err := c.Rebuild(tasks, shifts); err != nil {
		return nil, err
	}
	return c, nil
}

// Rebuild replaces the source of truth and recomputes every derived layer.
// Provisional copies from earlier commits are discarded.
func (c *Chart) Rebuild(tasks []domain.Task, shifts []domain.RowShifts) error {
	visible := bars.RemoveHidden(tasks)
	start, end := timeline.DateRange(visible)
	if len(visible) == 0 {
		start = c.opts.Now()
		end = start
	}
	axis, err := timeline.SeedAxis(start, end, c.opts.ViewMode, c.opts.PreSteps)
	if err != nil {
		return fmt.Errorf("seed axis: %w", err)
	}
	rects, err := schedule.Rects(shifts, axis, c.opts.Layout.ColumnWidth, c.opts.Layout.RowHeight, c.opts.Layout.RTL)
	if err != nil {
		return fmt.Errorf("non-working periods: %w", err)
	}
	model := bars.Build(domain.GroupRows(visible), axis, bars.Options{
		Layout:  c.opts.Layout,
		Palette: c.opts.Palette,
		Logger:  c.logger,
	})

	c.tasks = tasks
	c.shifts = shifts
	c.axis = axis
	c.rects = rects
	if c.engine == nil {
		c.engine = interaction.New(model, axis, interaction.Config{
			Layout:    c.opts.Layout,
			TimeStep:  c.opts.TimeStep,
			Batch:     c.opts.Batch,
			Transform: c.opts.Transform,
			Callbacks: c.opts.Callbacks,
			Logger:    c.logger,
		})
	} else {
		c.engine.SetModel(model, axis)
	}
	c.logger.Debug("chart rebuilt", "tasks", len(visible), "rows", model.RowCount(), "buckets", axis.Len())
	return nil
}

// SetViewMode switches the bucket granularity and rebuilds.
func (c *Chart) SetViewMode(mode domain.ViewMode) error {
	c.opts.ViewMode = mode
	return c.Rebuild(c.tasks, c.shifts)
}

func (c *Chart) ViewMode() domain.ViewMode { return c.opts.ViewMode }

func (c *Chart) Layout() bars.Layout { return c.opts.Layout }

func (c *Chart) Axis() timeline.Axis { return c.axis }

// Engine exposes the interaction engine driving this chart.
func (c *Chart) Engine() *interaction.Engine { return c.engine }

// Tasks returns the source tasks of the last rebuild.
func (c *Chart) Tasks() []domain.Task { return c.tasks }

// HitBar returns the topmost bar and handle under a chart-local point.
func (c *Chart) HitBar(p interaction.Point) (bars.Bar, interaction.Handle, bool) {
	view := c.engine.View()
	for _, b := range view.Bars() {
		if !b.Disabled() {
			if h, ok := connectorAt(b, p); ok {
				return b, h, true
			}
		}
	}
	b, ok := view.At(p.X, p.Y)
	if !ok {
		return bars.Bar{}, interaction.HandleBody, false
	}
	return b, handleAt(b, p, c.opts.Layout.RTL), true
}

// HitArrow returns the dependency edge near p.
func (c *Chart) HitArrow(p interaction.Point, tolerance float64) (arrows.Arrow, bool) {
	return arrows.HitTest(c.arrows(c.engine.View(), highlight.Set{}), arrows.Point{X: p.X, Y: p.Y}, tolerance)
}

func (c *Chart) geometry() arrows.Geometry {
	return arrows.Geometry{
		RowHeight: c.opts.Layout.RowHeight,
		BarHeight: c.opts.Layout.BarHeight(),
		Indent:    c.opts.Layout.ArrowIndent,
		RTL:       c.opts.Layout.RTL,
	}
}

func (c *Chart) arrows(view bars.Model, selected highlight.Set) []arrows.Arrow {
	e := c.engine
	ctx := e.HighlightContext()
	resolver := highlight.NewResolver(view, ctx)
	action := e.Action()
	v := arrows.Visibility{
		ShowAll:    c.opts.ShowAllArrows,
		Projects:   []string{ctx.HoverProject, ctx.SelectedProject, resolver.SelectedItemProject()},
		Suppressed: action == interaction.ActionProgress || action == interaction.ActionEnd,
		Moving:     action == interaction.ActionMove,
	}
	return arrows.Collect(view, c.geometry(), v, selected)
}
