package app

import (
	"context"

	"github.com/hylla/tidslinje/internal/domain"
)

// Repository persists tasks, their dependency edges and row shifts.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)
	DeleteTask(context.Context, string) error

	ReplaceShifts(context.Context, []domain.RowShifts) error
	ListShifts(context.Context) ([]domain.RowShifts, error)
}
