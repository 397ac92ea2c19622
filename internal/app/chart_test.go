package app

import (
	"context"
	"errors"
	"testing"

	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/interaction"
)

func TestApplyGestureMovePersists(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	mustCreate(t, svc, domain.TaskInput{ID: "t", Name: "t", Start: day(0), End: day(2)})

	result, err := svc.ApplyGesture(context.Background(), GestureRequest{TaskID: "t", Action: "move", DX: 120})
	if err != nil {
		t.Fatalf("ApplyGesture() error = %v", err)
	}
	if len(result.Items) != 1 || !result.Items[0].Accepted {
		t.Fatalf("unexpected result %#v", result)
	}
	stored := repo.tasks["t"]
	if !stored.Start.Equal(day(2)) || !stored.End.Equal(day(4)) {
		t.Fatalf("unexpected stored span %v - %v", stored.Start, stored.End)
	}
}

func TestApplyGestureRejectedRowKeepsTask(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	mustCreate(t, svc, domain.TaskInput{ID: "t", Name: "t", Start: day(0), End: day(2), Row: 2, AllowedRows: []domain.RowWindow{{Min: 2, Max: 2}, {Min: 4, Max: 4}}})
	mustCreate(t, svc, domain.TaskInput{ID: "filler", Name: "filler", Start: day(0), Row: 7})

	result, err := svc.ApplyGesture(context.Background(), GestureRequest{TaskID: "t", Action: "move", DY: 200})
	if err != nil {
		t.Fatalf("ApplyGesture() error = %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Accepted {
		t.Fatalf("expected rejection, got %#v", result)
	}
	if result.Items[0].Task.Row != 2 {
		t.Fatalf("expected original task in result, got row %d", result.Items[0].Task.Row)
	}
	if repo.tasks["t"].Row != 2 {
		t.Fatalf("expected stored row unchanged, got %d", repo.tasks["t"].Row)
	}
}

func TestApplyGestureProgress(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	mustCreate(t, svc, domain.TaskInput{ID: "t", Name: "t", Start: day(0), End: day(4)})

	if _, err := svc.ApplyGesture(context.Background(), GestureRequest{TaskID: "t", Action: "progress", DX: 120}); err != nil {
		t.Fatalf("ApplyGesture() error = %v", err)
	}
	if got := repo.tasks["t"].Progress; got != 50 {
		t.Fatalf("unexpected progress %d", got)
	}
}

func TestApplyGestureErrors(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()
	mustCreate(t, svc, domain.TaskInput{ID: "m", Type: domain.TaskTypeMilestone, Name: "m", Start: day(1)})

	if _, err := svc.ApplyGesture(ctx, GestureRequest{TaskID: "m", Action: "spin"}); !errors.Is(err, ErrInvalidGesture) {
		t.Fatalf("expected ErrInvalidGesture, got %v", err)
	}
	if _, err := svc.ApplyGesture(ctx, GestureRequest{TaskID: "nope", Action: "move"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ApplyGesture(ctx, GestureRequest{TaskID: "m", Action: "end", DX: 60}); !errors.Is(err, ErrGestureNotAllowed) {
		t.Fatalf("expected ErrGestureNotAllowed, got %v", err)
	}
	result, err := svc.ApplyGesture(ctx, GestureRequest{TaskID: "m", Action: "move", DX: 10})
	if err != nil || len(result.Items) != 0 {
		t.Fatalf("expected empty sub-step result, got %#v, %v", result, err)
	}
}

func TestCallbacksLinkDependency(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	mustCreate(t, svc, domain.TaskInput{ID: "a", Name: "a", Start: day(0), End: day(1)})
	mustCreate(t, svc, domain.TaskInput{ID: "b", Name: "b", Start: day(2), End: day(3), Row: 1})

	chart, err := svc.Chart(ctx, ChartOptions{})
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	e := chart.Engine()
	if !e.PointerDown("a", interaction.HandleBottomConnector, interaction.Point{}) {
		t.Fatal("expected link start")
	}
	e.PointerMove(interaction.Point{X: 150, Y: 75})
	e.Enter("b")
	plan := e.PointerUp(interaction.Point{X: 150, Y: 75})
	if !plan.IsLink() {
		t.Fatal("expected link plan")
	}
	plan.Run(ctx)
	if deps := repo.tasks["b"].Dependencies; len(deps) != 1 || deps[0] != "a" {
		t.Fatalf("unexpected dependencies %v", deps)
	}
}
