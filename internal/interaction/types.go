// Package interaction turns pointer and keyboard events into bar changes.
//
// An Engine is owned by a single event loop and is not safe for concurrent
// use. CommitPlan and DeletePlan values returned by the engine carry copies of
// everything they need, so their Run methods may execute on another goroutine;
// their results are fed back through Engine.Resolve and Engine.ResolveDelete on
// the owning loop.
package interaction

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/bars"
)

var (
	// ErrRejected marks a change the persistence callback declined.
	ErrRejected = errors.New("change rejected")
	// ErrRowNotAllowed marks a move whose destination row is outside the task's windows.
	ErrRowNotAllowed = errors.New("destination row not allowed")
)

// Action tags the current gesture.
type Action string

const (
	ActionNone         Action = "none"
	ActionMouseEnter   Action = "mouseenter"
	ActionMove         Action = "move"
	ActionStart        Action = "start"
	ActionEnd          Action = "end"
	ActionProgress     Action = "progress"
	ActionSelect       Action = "select"
	ActionDelete       Action = "delete"
	ActionMoveFinished Action = "move-finished"
)

// Dragging reports whether the action edits geometry.
func (a Action) Dragging() bool {
	switch a {
	case ActionMove, ActionStart, ActionEnd, ActionProgress:
		return true
	default:
		return false
	}
}

// ParseAction accepts the drag action names.
func ParseAction(raw string) (Action, bool) {
	switch a := Action(strings.ToLower(strings.TrimSpace(raw))); a {
	case ActionMove, ActionStart, ActionEnd, ActionProgress:
		return a, true
	default:
		return "", false
	}
}

// Handle is the region of a bar a pointer press lands on.
type Handle int

const (
	HandleBody Handle = iota
	HandleStart
	HandleEnd
	HandleProgress
	HandleTopConnector
	HandleBottomConnector
)

// HandleFor maps a drag action to the handle that starts it.
func HandleFor(a Action) Handle {
	switch a {
	case ActionStart:
		return HandleStart
	case ActionEnd:
		return HandleEnd
	case ActionProgress:
		return HandleProgress
	default:
		return HandleBody
	}
}

// Key is a keyboard key relevant to the chart.
type Key string

const KeyDelete Key = "delete"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Transform converts screen coordinates into chart-local ones. It reports
// false when no rendering surface is available.
type Transform func(screen Point) (Point, bool)

// Change is one provisional bar offered for commit.
type Change struct {
	Bar      bars.Bar
	Original bars.Bar
	Children []bars.Bar
}

type (
	ChangeFunc     func(ctx context.Context, change Change) error
	DeleteFunc     func(ctx context.Context, bar bars.Bar) error
	DependencyFunc func(ctx context.Context, from, to bars.Bar) error
	BarFunc        func(bar bars.Bar)
	SelectFunc     func(bar bars.Bar, selected bool)
	PairFunc       func(from, to bars.Bar)
)

// Callbacks are the host hooks. Every field is optional; a nil date or
// progress hook disables the matching gestures.
type Callbacks struct {
	OnDateChange     ChangeFunc
	OnProgressChange ChangeFunc
	OnDelete         DeleteFunc
	OnDependency     DependencyFunc
	OnClick          BarFunc
	OnDoubleClick    BarFunc
	OnSelect         SelectFunc
	OnArrowClick     PairFunc
	OnExpanderClick  BarFunc
	// OnCommitFailed receives the pre-gesture snapshot of every rejected bar.
	OnCommitFailed BarFunc
}

// FieldFilter groups bars whose field equals Value into one batch move.
type FieldFilter struct {
	Field string `json:"field" toml:"field"`
	Value string `json:"value" toml:"value"`
}

func (f FieldFilter) Active() bool {
	return strings.TrimSpace(f.Field) != ""
}

func (f FieldFilter) Match(b bars.Bar) bool {
	if !f.Active() {
		return false
	}
	v, ok := b.Task.FieldValue(f.Field)
	return ok && v == f.Value
}

// Config configures an Engine.
type Config struct {
	Layout    bars.Layout
	TimeStep  time.Duration
	Batch     FieldFilter
	Transform Transform
	Callbacks Callbacks
	Logger    *log.Logger
}

// Gesture is the transient record of one interaction.
type Gesture struct {
	Action   Action
	Changed  []bars.Bar
	Original []bars.Bar
	Batch    bool
	Origin   Point
}

func (g Gesture) clone() Gesture {
	out := g
	out.Changed = cloneBars(g.Changed)
	out.Original = cloneBars(g.Original)
	return out
}

// LinkState is the dependency-linking sub-state.
type LinkState int

const (
	LinkIdle LinkState = iota
	LinkAnchoring
	LinkLinking
)

func (s LinkState) String() string {
	switch s {
	case LinkAnchoring:
		return "anchoring"
	case LinkLinking:
		return "linking"
	default:
		return "idle"
	}
}

// Link is the record of an in-progress dependency link.
type Link struct {
	State     LinkState
	AnchorID  string
	FromTop   bool
	Candidate string
	Pointer   Point
}

func cloneBars(in []bars.Bar) []bars.Bar {
	if in == nil {
		return nil
	}
	out := make([]bars.Bar, len(in))
	for i, b := range in {
		out[i] = b.Clone()
	}
	return out
}
