package common

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hylla/tidslinje/internal/adapters/storage/sqlite"
	"github.com/hylla/tidslinje/internal/app"
	"github.com/hylla/tidslinje/internal/domain"
)

var adapterNow = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// newTestAdapter builds an adapter over an in-memory repository.
func newTestAdapter(t *testing.T) *AppServiceAdapter {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	svc := app.NewService(repo, nil, func() time.Time { return adapterNow }, app.ServiceConfig{})
	return NewAppServiceAdapter(svc)
}

func TestAppServiceAdapterChartIncludesPaths(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)
	if _, err := adapter.CreateTask(ctx, domain.TaskInput{ID: "a", Name: "a", Start: adapterNow, End: adapterNow.AddDate(0, 0, 2)}); err != nil {
		t.Fatalf("CreateTask(a) error = %v", err)
	}
	if _, err := adapter.CreateTask(ctx, domain.TaskInput{ID: "b", Name: "b", Start: adapterNow.AddDate(0, 0, 3), End: adapterNow.AddDate(0, 0, 5), Row: 1}); err != nil {
		t.Fatalf("CreateTask(b) error = %v", err)
	}
	if _, err := adapter.AddDependency(ctx, DependencyRequest{TaskID: "b", DependsOnID: "a"}); err != nil {
		t.Fatalf("AddDependency() error = %v", err)
	}

	view, err := adapter.Chart(ctx, ChartRequest{ViewMode: "Day"})
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if len(view.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(view.Bars))
	}
	if len(view.Paths) != 1 || !strings.HasPrefix(view.Paths[0].Path, "M") {
		t.Fatalf("unexpected paths %#v", view.Paths)
	}
}

func TestAppServiceAdapterErrorMapping(t *testing.T) {
	ctx := context.Background()
	adapter := newTestAdapter(t)
	if _, err := adapter.CreateTask(ctx, domain.TaskInput{ID: "a", Name: "a", Start: adapterNow}); err != nil {
		t.Fatalf("CreateTask(a) error = %v", err)
	}
	if _, err := adapter.CreateTask(ctx, domain.TaskInput{ID: "b", Name: "b", Start: adapterNow, Dependencies: []string{"a"}}); err != nil {
		t.Fatalf("CreateTask(b) error = %v", err)
	}

	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "missing task", err: adapter.DeleteTask(ctx, "ghost"), want: ErrNotFound},
		{name: "blank id", err: adapter.DeleteTask(ctx, " "), want: ErrInvalidRequest},
		{name: "bad view mode", err: func() error { _, err := adapter.Chart(ctx, ChartRequest{ViewMode: "Decade"}); return err }(), want: ErrInvalidRequest},
		{name: "cycle", err: func() error {
			_, err := adapter.AddDependency(ctx, DependencyRequest{TaskID: "a", DependsOnID: "b"})
			return err
		}(), want: ErrConflict},
		{name: "invalid task", err: func() error { _, err := adapter.CreateTask(ctx, domain.TaskInput{ID: "c"}); return err }(), want: ErrInvalidRequest},
		{name: "invalid gesture", err: func() error {
			_, err := adapter.ApplyGesture(ctx, app.GestureRequest{TaskID: "a", Action: "spin"})
			return err
		}(), want: ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.want) {
				t.Fatalf("error = %v, want %v", tc.err, tc.want)
			}
		})
	}
}

func TestAppServiceAdapterNilService(t *testing.T) {
	var adapter *AppServiceAdapter
	if _, err := adapter.ListTasks(context.Background()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
