// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrConflict reports a well-formed request the current schedule refuses.
var ErrConflict = errors.New("conflict")

// ChartRequest selects how the chart is laid out.
type ChartRequest struct {
	ViewMode string `json:"view_mode,omitempty"`
}

// ArrowPath is one dependency arrow rendered as SVG path data.
type ArrowPath struct {
	FromID      string `json:"from_id"`
	ToID        string `json:"to_id"`
	Path        string `json:"path"`
	Head        string `json:"head"`
	Highlighted bool   `json:"highlighted"`
}

// ChartView is a chart snapshot plus ready-to-draw arrow paths.
type ChartView struct {
	gantt.Snapshot
	Paths []ArrowPath `json:"paths"`
}

// DependencyRequest makes TaskID depend on DependsOnID.
type DependencyRequest struct {
	TaskID      string `json:"task_id"`
	DependsOnID string `json:"depends_on_id"`
}

// ChartReader exposes the rendered chart.
type ChartReader interface {
	Chart(context.Context, ChartRequest) (ChartView, error)
}

// TaskService exposes task list and mutation operations.
type TaskService interface {
	ListTasks(context.Context) ([]domain.Task, error)
	CreateTask(context.Context, domain.TaskInput) (domain.Task, error)
	DeleteTask(context.Context, string) error
	AddDependency(context.Context, DependencyRequest) (domain.Task, error)
}

// GestureService replays pointer gestures against the chart.
type GestureService interface {
	ApplyGesture(context.Context, app.GestureRequest) (app.GestureResult, error)
}

// Service is every operation the transports serve.
type Service interface {
	ChartReader
	TaskService
	GestureService
}
