package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
)

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// Chart renders the stored schedule.
func (a *AppServiceAdapter) Chart(ctx context.Context, in ChartRequest) (ChartView, error) {
	if err := a.ready(); err != nil {
		return ChartView{}, err
	}
	opts := app.ChartOptions{}
	if raw := strings.TrimSpace(in.ViewMode); raw != "" {
		mode, err := domain.ParseViewMode(raw)
		if err != nil {
			return ChartView{}, fmt.Errorf("chart: %w", errors.Join(ErrInvalidRequest, err))
		}
		opts.ViewMode = mode
	}
	chart, err := a.service.Chart(ctx, opts)
	if err != nil {
		return ChartView{}, mapAppError("chart", err)
	}
	return NewChartView(chart.Snapshot()), nil
}

func (a *AppServiceAdapter) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	tasks, err := a.service.ListTasks(ctx)
	if err != nil {
		return nil, mapAppError("list tasks", err)
	}
	return tasks, nil
}

func (a *AppServiceAdapter) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	task, err := a.service.CreateTask(ctx, in)
	if err != nil {
		return domain.Task{}, mapAppError("create task", err)
	}
	return task, nil
}

func (a *AppServiceAdapter) DeleteTask(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("delete task: task id is required: %w", ErrInvalidRequest)
	}
	return mapAppError("delete task", a.service.DeleteTask(ctx, id))
}

func (a *AppServiceAdapter) AddDependency(ctx context.Context, in DependencyRequest) (domain.Task, error) {
	if err := a.ready(); err != nil {
		return domain.Task{}, err
	}
	taskID, dependsOn := strings.TrimSpace(in.TaskID), strings.TrimSpace(in.DependsOnID)
	if taskID == "" || dependsOn == "" {
		return domain.Task{}, fmt.Errorf("add dependency: task_id and depends_on_id are required: %w", ErrInvalidRequest)
	}
	task, err := a.service.AddDependency(ctx, taskID, dependsOn)
	if err != nil {
		return domain.Task{}, mapAppError("add dependency", err)
	}
	return task, nil
}

func (a *AppServiceAdapter) ApplyGesture(ctx context.Context, in app.GestureRequest) (app.GestureResult, error) {
	if err := a.ready(); err != nil {
		return app.GestureResult{}, err
	}
	result, err := a.service.ApplyGesture(ctx, in)
	if err != nil {
		return app.GestureResult{}, mapAppError("apply gesture", err)
	}
	return result, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return fmt.Errorf("app service adapter is not configured: %w", ErrInvalidRequest)
	}
	return nil
}

// NewChartView attaches SVG path data to snap.
func NewChartView(snap gantt.Snapshot) ChartView {
	view := ChartView{Snapshot: snap, Paths: make([]ArrowPath, 0, len(snap.Arrows))}
	for _, arrow := range snap.Arrows {
		view.Paths = append(view.Paths, ArrowPath{
			FromID:      arrow.FromID,
			ToID:        arrow.ToID,
			Path:        arrow.Path(),
			Head:        arrow.HeadPoints(),
			Highlighted: arrow.Highlighted,
		})
	}
	return view
}

// mapAppError maps app/domain errors into transport-layer error sentinels.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrDependencyCycle),
		errors.Is(err, app.ErrGestureNotAllowed):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidType),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidSchedule),
		errors.Is(err, domain.ErrInvalidProgress),
		errors.Is(err, domain.ErrInvalidRow),
		errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrInvalidViewMode),
		errors.Is(err, domain.ErrInvalidShift),
		errors.Is(err, domain.ErrSelfDependency),
		errors.Is(err, app.ErrInvalidGesture),
		errors.Is(err, app.ErrInvalidImport):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
