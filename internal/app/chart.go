package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
	"github.com/hylla/tidslinje/internal/interaction"
)

// ChartOptions overrides the configured chart for one request.
type ChartOptions struct {
	ViewMode domain.ViewMode
}

// Chart builds a chart whose engine persists through this service.
func (s *Service) Chart(ctx context.Context, opts ChartOptions) (*gantt.Chart, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	shifts, err := s.repo.ListShifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	chartOpts := s.chart
	if opts.ViewMode != "" {
		chartOpts.ViewMode = opts.ViewMode
	}
	chartOpts.Callbacks = s.Callbacks(ctx)
	chartOpts.Now = s.clock
	if chartOpts.Logger == nil {
		chartOpts.Logger = s.logger
	}
	return gantt.New(tasks, shifts, chartOpts)
}

// Callbacks maps engine hooks onto persistence. Hooks without a context of
// their own run under ctx.
func (s *Service) Callbacks(ctx context.Context) interaction.Callbacks {
	return interaction.Callbacks{
		OnDateChange: func(ctx context.Context, c interaction.Change) error {
			_, err := s.UpdateSchedule(ctx, c.Bar.ID(), c.Bar.Task.Start, c.Bar.Task.End, c.Bar.Row)
			return err
		},
		OnProgressChange: func(ctx context.Context, c interaction.Change) error {
			_, err := s.UpdateProgress(ctx, c.Bar.ID(), c.Bar.Task.Progress)
			return err
		},
		OnDelete: func(ctx context.Context, b bars.Bar) error {
			return s.DeleteTask(ctx, b.ID())
		},
		OnDependency: func(ctx context.Context, from, to bars.Bar) error {
			_, err := s.AddDependency(ctx, to.ID(), from.ID())
			return err
		},
		OnExpanderClick: func(b bars.Bar) {
			if _, err := s.ToggleCollapse(ctx, b.ID()); err != nil {
				s.logger.Warn("toggle collapse failed", "task_id", b.ID(), "err", err)
			}
		},
		OnCommitFailed: func(b bars.Bar) {
			s.logger.Warn("change rolled back", "task_id", b.ID())
		},
	}
}

// GestureRequest describes a headless drag: press on the handle for Action,
// move by (DX, DY) pixels, release.
type GestureRequest struct {
	TaskID   string          `json:"task_id"`
	Action   string          `json:"action"`
	DX       float64         `json:"dx"`
	DY       float64         `json:"dy"`
	ViewMode domain.ViewMode `json:"view_mode,omitempty"`
}

type GestureItem struct {
	TaskID   string      `json:"task_id"`
	Accepted bool        `json:"accepted"`
	Error    string      `json:"error,omitempty"`
	Task     domain.Task `json:"task"`
}

type GestureResult struct {
	Action string        `json:"action"`
	Items  []GestureItem `json:"items"`
}

// ApplyGesture replays a drag against a fresh chart and commits it.
func (s *Service) ApplyGesture(ctx context.Context, req GestureRequest) (GestureResult, error) {
	action, ok := interaction.ParseAction(req.Action)
	if !ok {
		return GestureResult{}, fmt.Errorf("%w: action %q", ErrInvalidGesture, req.Action)
	}
	if strings.TrimSpace(req.TaskID) == "" {
		return GestureResult{}, fmt.Errorf("%w: task_id is required", ErrInvalidGesture)
	}
	chart, err := s.Chart(ctx, ChartOptions{ViewMode: req.ViewMode})
	if err != nil {
		return GestureResult{}, err
	}
	engine := chart.Engine()
	bar, ok := engine.View().ByID(req.TaskID)
	if !ok {
		return GestureResult{}, fmt.Errorf("task %s: %w", req.TaskID, ErrNotFound)
	}

	handle := interaction.HandleFor(action)
	origin := pressPoint(bar, handle, chart.Layout().RTL)
	if !engine.PointerDown(bar.ID(), handle, origin) {
		return GestureResult{}, fmt.Errorf("%w: %s on %s", ErrGestureNotAllowed, action, bar.ID())
	}
	target := interaction.Point{X: origin.X + req.DX, Y: origin.Y + req.DY}
	engine.PointerMove(target)
	plan := engine.PointerUp(target)

	out := GestureResult{Action: string(action)}
	if plan == nil {
		return out, nil
	}
	result := engine.Commit(ctx, plan)
	for _, item := range result.Items {
		gi := GestureItem{TaskID: item.Change.Bar.ID(), Accepted: item.Accepted(), Task: item.Change.Bar.Task}
		if !item.Accepted() {
			gi.Error = item.Err.Error()
			gi.Task = item.Change.Original.Task
		}
		out.Items = append(out.Items, gi)
	}
	return out, nil
}

// pressPoint is where a pointer lands to grab handle on b.
func pressPoint(b bars.Bar, handle interaction.Handle, rtl bool) interaction.Point {
	y := b.MiddleY()
	switch handle {
	case interaction.HandleStart:
		return interaction.Point{X: b.X1, Y: y}
	case interaction.HandleEnd:
		return interaction.Point{X: b.X2, Y: y}
	case interaction.HandleProgress:
		x := b.ProgressX + b.ProgressWidth
		if rtl {
			x = b.ProgressX
		}
		return interaction.Point{X: x, Y: y}
	default:
		return interaction.Point{X: b.CenterX(), Y: y}
	}
}
