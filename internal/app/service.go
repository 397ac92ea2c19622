package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/gantt"
)

// IDGenerator returns unique identifiers for new tasks.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

type ServiceConfig struct {
	Chart  gantt.Options
	Logger *log.Logger
}

// Service is the application layer over a Repository.
type Service struct {
	repo   Repository
	idGen  IDGenerator
	clock  Clock
	chart  gantt.Options
	logger *log.Logger
}

func NewService(repo Repository, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	if cfg.Chart.Layout.ColumnWidth == 0 {
		cfg.Chart = gantt.DefaultOptions()
	}
	return &Service{
		repo:   repo,
		idGen:  idGen,
		clock:  clock,
		chart:  cfg.Chart,
		logger: cfg.Logger,
	}
}

// ListTasks returns every task ordered by row, display order and id.
func (s *Service) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(tasks, func(a, b domain.Task) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		if c := domain.CompareDisplayOrder(a, b); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return tasks, nil
}

// ListRows groups every task by grid row.
func (s *Service) ListRows(ctx context.Context) ([]domain.Row, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return domain.GroupRows(tasks), nil
}

func (s *Service) ListShifts(ctx context.Context) ([]domain.RowShifts, error) {
	return s.repo.ListShifts(ctx)
}

// SetShifts replaces every row's shift windows.
func (s *Service) SetShifts(ctx context.Context, rows []domain.RowShifts) error {
	for _, row := range rows {
		if row.Row < 0 {
			return fmt.Errorf("%w: shift row %d", domain.ErrInvalidRow, row.Row)
		}
		for _, shift := range row.Shifts {
			if err := shift.Validate(); err != nil {
				return err
			}
		}
	}
	return s.repo.ReplaceShifts(ctx, rows)
}

// CreateTask validates and stores a new task. An empty id is generated.
func (s *Service) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if strings.TrimSpace(in.ID) == "" {
		in.ID = s.idGen()
	}
	task, err := domain.NewTask(in, s.clock())
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.checkCycle(ctx, task); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.logger.Info("task created", "task_id", task.ID, "row", task.Row)
	return task, nil
}

// UpdateSchedule persists a new span and row.
func (s *Service) UpdateSchedule(ctx context.Context, id string, start, end time.Time, row int) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if !domain.RowAllowed(task.AllowedRows, row) {
		return domain.Task{}, fmt.Errorf("%w: row %d outside allowed windows", domain.ErrInvalidRow, row)
	}
	if err := task.Reschedule(start, end, row, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	s.logger.Debug("task rescheduled", "task_id", id, "start", task.Start, "end", task.End, "row", row)
	return task, nil
}

func (s *Service) UpdateProgress(ctx context.Context, id string, progress int) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.SetProgress(progress, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task and every dependency edge pointing at it.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.repo.GetTask(ctx, id); err != nil {
		return err
	}
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil {
		return err
	}
	now := s.clock()
	for _, task := range tasks {
		if !slices.Contains(task.Dependencies, id) {
			continue
		}
		task.Dependencies = slices.DeleteFunc(task.Dependencies, func(dep string) bool { return dep == id })
		task.UpdatedAt = now.UTC()
		if err := s.repo.UpdateTask(ctx, task); err != nil {
			return fmt.Errorf("detach dependency from %s: %w", task.ID, err)
		}
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// AddDependency makes childID depend on parentID.
func (s *Service) AddDependency(ctx context.Context, childID, parentID string) (domain.Task, error) {
	if strings.TrimSpace(childID) == strings.TrimSpace(parentID) {
		return domain.Task{}, domain.ErrSelfDependency
	}
	child, err := s.repo.GetTask(ctx, childID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.repo.GetTask(ctx, parentID); err != nil {
		return domain.Task{}, err
	}
	if err := child.AddDependency(parentID, s.clock()); err != nil {
		return domain.Task{}, err
	}
	if err := s.checkCycle(ctx, child); err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.UpdateTask(ctx, child); err != nil {
		return domain.Task{}, err
	}
	s.logger.Info("dependency added", "task_id", childID, "dependency_id", parentID)
	return child, nil
}

// ToggleCollapse flips whether a task's children are hidden.
func (s *Service) ToggleCollapse(ctx context.Context, id string) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.ToggleCollapse(s.clock())
	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// checkCycle rejects candidate when its dependencies lead back to it.
func (s *Service) checkCycle(ctx context.Context, candidate domain.Task) error {
	tasks, err := s.repo.ListTasks(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	graph := make(map[string][]string, len(tasks)+1)
	for _, task := range tasks {
		graph[task.ID] = task.Dependencies
	}
	graph[candidate.ID] = candidate.Dependencies
	if id, ok := findCycle(graph); ok {
		return fmt.Errorf("%w: through %s", ErrDependencyCycle, id)
	}
	return nil
}

// findCycle runs a colored DFS over id -> dependencies.
func findCycle(graph map[string][]string) (string, bool) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(graph))
	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		color[id] = grey
		for _, dep := range graph[id] {
			if _, known := graph[dep]; !known {
				continue
			}
			switch color[dep] {
			case grey:
				return dep, true
			case white:
				if hit, ok := visit(dep); ok {
					return hit, true
				}
			}
		}
		color[id] = black
		return "", false
	}
	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if color[id] == white {
			if hit, ok := visit(id); ok {
				return hit, true
			}
		}
	}
	return "", false
}
