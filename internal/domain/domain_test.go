package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewTaskDefaultsAndNormalization(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task, err := NewTask(TaskInput{
		ID:           " t1 ",
		Name:         "  Pour foundation ",
		Start:        start,
		End:          start.Add(48 * time.Hour),
		Dependencies: []string{"a", " a ", "", "b"},
	}, now)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if task.ID != "t1" || task.Name != "Pour foundation" {
		t.Fatalf("unexpected trimmed values %q %q", task.ID, task.Name)
	}
	if task.Type != TaskTypeTask || task.Status != StatusPending {
		t.Fatalf("unexpected defaults type=%q status=%q", task.Type, task.Status)
	}
	if len(task.Dependencies) != 2 || task.Dependencies[0] != "a" || task.Dependencies[1] != "b" {
		t.Fatalf("unexpected dependencies %#v", task.Dependencies)
	}
}

func TestNewTaskMilestoneCollapsesSpan(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task, err := NewTask(TaskInput{
		ID:       "m1",
		Type:     TaskTypeMilestone,
		Name:     "Handover",
		Start:    start,
		End:      start.Add(time.Hour),
		Progress: 40,
	}, time.Now())
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if !task.End.Equal(task.Start) || task.Progress != 0 {
		t.Fatalf("expected collapsed milestone, got end=%v progress=%d", task.End, task.Progress)
	}
}

func TestNewTaskValidation(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		in   TaskInput
		want error
	}{
		{"missing id", TaskInput{Name: "x", Start: start}, ErrInvalidID},
		{"missing name", TaskInput{ID: "x", Start: start}, ErrInvalidName},
		{"bad type", TaskInput{ID: "x", Name: "x", Type: "epic", Start: start}, ErrInvalidType},
		{"bad status", TaskInput{ID: "x", Name: "x", Status: "blocked", Start: start}, ErrInvalidStatus},
		{"end before start", TaskInput{ID: "x", Name: "x", Start: start, End: start.Add(-time.Hour)}, ErrInvalidSchedule},
		{"progress", TaskInput{ID: "x", Name: "x", Start: start, Progress: 101}, ErrInvalidProgress},
		{"row", TaskInput{ID: "x", Name: "x", Start: start, Row: -1}, ErrInvalidRow},
		{"row too high", TaskInput{ID: "x", Name: "x", Start: start, Row: 1 << 40}, ErrInvalidRow},
		{"window", TaskInput{ID: "x", Name: "x", Start: start, AllowedRows: []RowWindow{{Min: 4, Max: 2}}}, ErrInvalidWindow},
		{"self dependency", TaskInput{ID: "x", Name: "x", Start: start, Dependencies: []string{"x"}}, ErrSelfDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTask(tc.in, time.Now()); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRowAllowed(t *testing.T) {
	windows := []RowWindow{{Min: 0, Max: 1}, {Min: 4, Max: 5}}
	for row, want := range map[int]bool{0: true, 1: true, 2: false, 3: false, 4: true, 5: true, 6: false} {
		if got := RowAllowed(windows, row); got != want {
			t.Fatalf("RowAllowed(%d) = %v, want %v", row, got, want)
		}
	}
	if !RowAllowed(nil, 99) {
		t.Fatal("expected no windows to allow every row")
	}
}

func TestTaskMutations(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	task, err := NewTask(TaskInput{ID: "t1", Name: "a", Start: start, End: start.Add(time.Hour)}, start)
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	later := start.Add(time.Minute)
	if err := task.Reschedule(start, start.Add(time.Hour), MaxRow+1, later); !errors.Is(err, ErrInvalidRow) {
		t.Fatalf("expected ErrInvalidRow for row past MaxRow, got %v", err)
	}
	if err := task.Reschedule(start.Add(time.Hour), start, 0, later); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule, got %v", err)
	}
	if err := task.Reschedule(start.Add(time.Hour), start.Add(3*time.Hour), 2, later); err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if task.Row != 2 || !task.UpdatedAt.Equal(later) {
		t.Fatalf("unexpected reschedule result %#v", task)
	}
	if err := task.SetProgress(-1, later); !errors.Is(err, ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}
	if err := task.AddDependency("t1", later); !errors.Is(err, ErrSelfDependency) {
		t.Fatalf("expected ErrSelfDependency, got %v", err)
	}
	_ = task.AddDependency("t0", later)
	_ = task.AddDependency("t0", later)
	if len(task.Dependencies) != 1 {
		t.Fatalf("expected deduplicated dependency, got %#v", task.Dependencies)
	}
}

func TestFieldValue(t *testing.T) {
	task := Task{ID: "t1", Project: "p1", Row: 3, Fields: map[string]string{"crew": "north"}}
	if v, ok := task.FieldValue("project"); !ok || v != "p1" {
		t.Fatalf("unexpected project field %q %v", v, ok)
	}
	if v, ok := task.FieldValue("row"); !ok || v != "3" {
		t.Fatalf("unexpected row field %q %v", v, ok)
	}
	if v, ok := task.FieldValue("crew"); !ok || v != "north" {
		t.Fatalf("unexpected custom field %q %v", v, ok)
	}
	if _, ok := task.FieldValue("missing"); ok {
		t.Fatal("expected missing field to report false")
	}
}

func TestGroupRowsKeepsLiteralIndexes(t *testing.T) {
	rows := GroupRows([]Task{
		{ID: "c", Row: 2, DisplayOrder: 0},
		{ID: "b", Row: 2, DisplayOrder: 1},
		{ID: "a", Row: 0},
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if len(rows[1]) != 0 {
		t.Fatalf("expected empty middle row, got %#v", rows[1])
	}
	if rows[2][0].ID != "b" || rows[2][1].ID != "c" {
		t.Fatalf("expected display order inside row, got %q %q", rows[2][0].ID, rows[2][1].ID)
	}
}

func TestParseViewModeAndClock(t *testing.T) {
	for raw, want := range map[string]ViewMode{"day": ViewModeDay, "quarter-day": ViewModeQuarterDay, "Half Day": ViewModeHalfDay, "quarteryear": ViewModeQuarterYear} {
		got, err := ParseViewMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseViewMode(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseViewMode("fortnight"); !errors.Is(err, ErrInvalidViewMode) {
		t.Fatalf("expected ErrInvalidViewMode, got %v", err)
	}
	if h, m, err := ParseClock("07:30"); err != nil || h != 7 || m != 30 {
		t.Fatalf("ParseClock() = %d %d %v", h, m, err)
	}
	if err := (Shift{Start: "25:00", Finish: "10:00"}).Validate(); !errors.Is(err, ErrInvalidShift) {
		t.Fatalf("expected ErrInvalidShift, got %v", err)
	}
}
