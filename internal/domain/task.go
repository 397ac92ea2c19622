package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

type TaskType string

const (
	TaskTypeTask      TaskType = "task"
	TaskTypeMilestone TaskType = "milestone"
	TaskTypeProject   TaskType = "project"
)

var validTaskTypes = []TaskType{TaskTypeTask, TaskTypeMilestone, TaskTypeProject}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusWarning    Status = "warning"
	StatusOverdue    Status = "overdue"
)

var validStatuses = []Status{StatusPending, StatusInProgress, StatusDone, StatusWarning, StatusOverdue}

// Styles holds per-task color overrides. Empty fields fall through to the palette.
type Styles struct {
	BackgroundColor         string `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	BackgroundSelectedColor string `json:"background_selected_color,omitempty" yaml:"background_selected_color,omitempty"`
	ProgressColor           string `json:"progress_color,omitempty" yaml:"progress_color,omitempty"`
	ProgressSelectedColor   string `json:"progress_selected_color,omitempty" yaml:"progress_selected_color,omitempty"`
}

// IsZero reports whether no override is set.
func (s Styles) IsZero() bool {
	return s == Styles{}
}

// RowWindow is an inclusive range of grid rows a task may be dragged into.
type RowWindow struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func (w RowWindow) Contains(row int) bool {
	return row >= w.Min && row <= w.Max
}

// RowAllowed reports whether row falls inside any window. No windows means every row is allowed.
func RowAllowed(windows []RowWindow, row int) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Contains(row) {
			return true
		}
	}
	return false
}

type Task struct {
	ID           string            `json:"id" yaml:"id"`
	Type         TaskType          `json:"type" yaml:"type"`
	Name         string            `json:"name" yaml:"name"`
	Start        time.Time         `json:"start" yaml:"start"`
	End          time.Time         `json:"end" yaml:"end"`
	Progress     int               `json:"progress" yaml:"progress"`
	Status       Status            `json:"status" yaml:"status"`
	Project      string            `json:"project,omitempty" yaml:"project,omitempty"`
	OrderKey     string            `json:"order_key,omitempty" yaml:"order_key,omitempty"`
	Row          int               `json:"row" yaml:"row"`
	DisplayOrder int               `json:"display_order,omitempty" yaml:"display_order,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Disabled     bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Info         bool              `json:"info,omitempty" yaml:"info,omitempty"`
	HideChildren bool              `json:"hide_children,omitempty" yaml:"hide_children,omitempty"`
	Overlapping  bool              `json:"overlapping,omitempty" yaml:"overlapping,omitempty"`
	Styles       Styles            `json:"styles,omitempty" yaml:"styles,omitempty"`
	AllowedRows  []RowWindow       `json:"allowed_rows,omitempty" yaml:"allowed_rows,omitempty"`
	Fields       map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" yaml:"updated_at"`
}

type TaskInput struct {
	ID           string            `json:"id" yaml:"id"`
	Type         TaskType          `json:"type" yaml:"type"`
	Name         string            `json:"name" yaml:"name"`
	Start        time.Time         `json:"start" yaml:"start"`
	End          time.Time         `json:"end" yaml:"end"`
	Progress     int               `json:"progress" yaml:"progress"`
	Status       Status            `json:"status" yaml:"status"`
	Project      string            `json:"project,omitempty" yaml:"project,omitempty"`
	OrderKey     string            `json:"order_key,omitempty" yaml:"order_key,omitempty"`
	Row          int               `json:"row" yaml:"row"`
	DisplayOrder int               `json:"display_order,omitempty" yaml:"display_order,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Disabled     bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Info         bool              `json:"info,omitempty" yaml:"info,omitempty"`
	HideChildren bool              `json:"hide_children,omitempty" yaml:"hide_children,omitempty"`
	Overlapping  bool              `json:"overlapping,omitempty" yaml:"overlapping,omitempty"`
	Styles       Styles            `json:"styles,omitempty" yaml:"styles,omitempty"`
	AllowedRows  []RowWindow       `json:"allowed_rows,omitempty" yaml:"allowed_rows,omitempty"`
	Fields       map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// MaxRow is the highest grid row a task may occupy. GroupRows allocates one
// slot per row up to the highest one present.
const MaxRow = 10_000

func NewTask(in TaskInput, now time.Time) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Project = strings.TrimSpace(in.Project)
	in.OrderKey = strings.TrimSpace(in.OrderKey)

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Name == "" {
		return Task{}, ErrInvalidName
	}
	if in.Type == "" {
		in.Type = TaskTypeTask
	}
	if !slices.Contains(validTaskTypes, in.Type) {
		return Task{}, ErrInvalidType
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !slices.Contains(validStatuses, in.Status) {
		return Task{}, ErrInvalidStatus
	}
	if in.Start.IsZero() {
		return Task{}, ErrInvalidSchedule
	}
	if in.Type == TaskTypeMilestone || in.End.IsZero() {
		in.End = in.Start
	}
	if in.End.Before(in.Start) {
		return Task{}, ErrInvalidSchedule
	}
	if in.Progress < 0 || in.Progress > 100 {
		return Task{}, ErrInvalidProgress
	}
	if in.Type == TaskTypeMilestone {
		in.Progress = 0
	}
	if in.Row < 0 || in.Row > MaxRow {
		return Task{}, ErrInvalidRow
	}
	for _, w := range in.AllowedRows {
		if w.Min < 0 || w.Max < w.Min {
			return Task{}, ErrInvalidWindow
		}
	}

	deps, err := normalizeDependencies(in.ID, in.Dependencies)
	if err != nil {
		return Task{}, err
	}

	return Task{
		ID:           in.ID,
		Type:         in.Type,
		Name:         in.Name,
		Start:        in.Start,
		End:          in.End,
		Progress:     in.Progress,
		Status:       in.Status,
		Project:      in.Project,
		OrderKey:     in.OrderKey,
		Row:          in.Row,
		DisplayOrder: in.DisplayOrder,
		Dependencies: deps,
		Disabled:     in.Disabled,
		Info:         in.Info,
		HideChildren: in.HideChildren,
		Overlapping:  in.Overlapping,
		Styles:       in.Styles,
		AllowedRows:  slices.Clone(in.AllowedRows),
		Fields:       cloneFields(in.Fields),
		CreatedAt:    now.UTC(),
		UpdatedAt:    now.UTC(),
	}, nil
}

// Reschedule moves the task to a new span and grid row.
func (t *Task) Reschedule(start, end time.Time, row int, now time.Time) error {
	if start.IsZero() || end.Before(start) {
		return ErrInvalidSchedule
	}
	if row < 0 || row > MaxRow {
		return ErrInvalidRow
	}
	if t.Type == TaskTypeMilestone {
		end = start
	}
	t.Start = start
	t.End = end
	t.Row = row
	t.UpdatedAt = now.UTC()
	return nil
}

func (t *Task) SetProgress(progress int, now time.Time) error {
	if progress < 0 || progress > 100 {
		return ErrInvalidProgress
	}
	if t.Type == TaskTypeMilestone {
		progress = 0
	}
	t.Progress = progress
	t.UpdatedAt = now.UTC()
	return nil
}

// AddDependency records dependsOn as a predecessor. Duplicates are ignored.
func (t *Task) AddDependency(dependsOn string, now time.Time) error {
	dependsOn = strings.TrimSpace(dependsOn)
	if dependsOn == "" {
		return ErrInvalidID
	}
	if dependsOn == t.ID {
		return ErrSelfDependency
	}
	if slices.Contains(t.Dependencies, dependsOn) {
		return nil
	}
	t.Dependencies = append(t.Dependencies, dependsOn)
	t.UpdatedAt = now.UTC()
	return nil
}

func (t *Task) ToggleCollapse(now time.Time) {
	t.HideChildren = !t.HideChildren
	t.UpdatedAt = now.UTC()
}

// FieldValue resolves a built-in attribute or a custom field by name.
func (t Task) FieldValue(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "id":
		return t.ID, true
	case "type":
		return string(t.Type), true
	case "name":
		return t.Name, true
	case "status":
		return string(t.Status), true
	case "project":
		return t.Project, true
	case "order_key":
		return t.OrderKey, true
	case "row":
		return strconv.Itoa(t.Row), true
	}
	v, ok := t.Fields[name]
	return v, ok
}

// Clone returns a deep copy safe to mutate.
func (t Task) Clone() Task {
	out := t
	out.Dependencies = slices.Clone(t.Dependencies)
	out.AllowedRows = slices.Clone(t.AllowedRows)
	out.Fields = cloneFields(t.Fields)
	return out
}

// Row groups tasks drawn on the same grid row.
type Row []Task

// GroupRows buckets tasks by their row index. Rows without tasks are kept empty
// so row indexes stay literal grid positions.
func GroupRows(tasks []Task) []Row {
	if len(tasks) == 0 {
		return nil
	}
	sorted := slices.Clone(tasks)
	slices.SortStableFunc(sorted, func(a, b Task) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return CompareDisplayOrder(a, b)
	})
	rows := make([]Row, sorted[len(sorted)-1].Row+1)
	for _, task := range sorted {
		rows[task.Row] = append(rows[task.Row], task)
	}
	return rows
}

// CompareDisplayOrder orders by display order; a zero order sorts last.
func CompareDisplayOrder(a, b Task) int {
	oa, ob := displayOrderKey(a.DisplayOrder), displayOrderKey(b.DisplayOrder)
	switch {
	case oa < ob:
		return -1
	case oa > ob:
		return 1
	default:
		return 0
	}
}

func displayOrderKey(order int) int {
	if order == 0 {
		return int(^uint(0) >> 1)
	}
	return order
}

func normalizeDependencies(id string, deps []string) ([]string, error) {
	out := make([]string, 0, len(deps))
	seen := map[string]struct{}{}
	for _, raw := range deps {
		dep := strings.TrimSpace(raw)
		if dep == "" {
			continue
		}
		if dep == id {
			return nil, ErrSelfDependency
		}
		if _, ok := seen[dep]; ok {
			continue
		}
		seen[dep] = struct{}{}
		out = append(out, dep)
	}
	return out, nil
}

func cloneFields(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
