package interaction

import (
	"context"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/highlight"
	"github.com/hylla/tidslinje/internal/timeline"
)

const defaultTimeStep = 24 * time.Hour

// Engine is the gesture state machine over one bar model.
type Engine struct {
	cfg    Config
	logger *log.Logger

	model bars.Model
	axis  timeline.Axis
	xStep float64

	gesture Gesture
	link    Link
	// pending holds committed provisional bars until the next SetModel.
	pending map[string]bars.Bar

	hoverID      string
	hoverProject string
	selectedID   string
	focusedID    string
}

// New constructs an engine over model and axis.
func New(model bars.Model, axis timeline.Axis, cfg Config) *Engine {
	if cfg.TimeStep <= 0 {
		cfg.TimeStep = defaultTimeStep
	}
	if cfg.Layout == (bars.Layout{}) {
		cfg.Layout = bars.DefaultLayout()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	e := &Engine{
		cfg:     cfg,
		logger:  logger,
		gesture: Gesture{Action: ActionNone},
		pending: map[string]bars.Bar{},
	}
	e.SetModel(model, axis)
	return e
}

// SetModel swaps in a rebuilt model. Provisional copies of earlier commits are
// dropped; an active drag keeps its original snapshots.
func (e *Engine) SetModel(model bars.Model, axis timeline.Axis) {
	e.model = model
	e.axis = axis
	e.xStep = axis.XStep(e.cfg.TimeStep, e.cfg.Layout.ColumnWidth)
	clear(e.pending)
	if _, ok := model.ByID(e.selectedID); !ok {
		e.selectedID = ""
	}
	if _, ok := model.ByID(e.focusedID); !ok {
		e.focusedID = ""
	}
	if _, ok := model.ByID(e.hoverID); !ok {
		e.hoverID, e.hoverProject = "", ""
	}
	if e.link.State != LinkIdle {
		if _, ok := model.ByID(e.link.AnchorID); !ok {
			e.link = Link{}
		}
	}
}

// SetCallbacks replaces the host hooks.
func (e *Engine) SetCallbacks(cb Callbacks) { e.cfg.Callbacks = cb }

// SetBatch replaces the batch-move filter.
func (e *Engine) SetBatch(f FieldFilter) { e.cfg.Batch = f }

func (e *Engine) Action() Action { return e.gesture.Action }

// Gesture returns a copy of the current gesture record.
func (e *Engine) Gesture() Gesture { return e.gesture.clone() }

func (e *Engine) Link() Link { return e.link }

func (e *Engine) HoverID() string { return e.hoverID }

func (e *Engine) HoverProject() string { return e.hoverProject }

func (e *Engine) SelectedID() string { return e.selectedID }

func (e *Engine) FocusedID() string { return e.focusedID }

// XStep is the pixel width of one snap step.
func (e *Engine) XStep() float64 { return e.xStep }

func (e *Engine) Model() bars.Model { return e.model }

// Provisional returns the bars currently shown in place of their model copies:
// the bars of an active drag plus committed changes awaiting a rebuild.
func (e *Engine) Provisional() []bars.Bar {
	overlay := maps.Clone(e.pending)
	if e.gesture.Action.Dragging() {
		for _, b := range e.gesture.Changed {
			overlay[b.ID()] = b
		}
	}
	ids := slices.Sorted(maps.Keys(overlay))
	out := make([]bars.Bar, 0, len(ids))
	for _, id := range ids {
		out = append(out, overlay[id].Clone())
	}
	return out
}

// View is the model with provisional bars substituted.
func (e *Engine) View() bars.Model {
	return e.model.WithOverrides(e.Provisional())
}

func (e *Engine) bar(id string) (bars.Bar, bool) {
	return e.View().ByID(id)
}

func (e *Engine) local(screen Point) (Point, bool) {
	if e.cfg.Transform == nil {
		return screen, true
	}
	return e.cfg.Transform(screen)
}

func (e *Engine) geometry(origin Point) geometry {
	return geometry{
		xStep:     e.xStep,
		timeStep:  e.cfg.TimeStep,
		rowHeight: e.cfg.Layout.RowHeight,
		rowCount:  e.model.RowCount(),
		rtl:       e.cfg.Layout.RTL,
		origin:    origin,
	}
}

// Enter records the pointer entering a bar. While linking it picks the
// candidate instead.
func (e *Engine) Enter(id string) {
	if e.gesture.Action.Dragging() {
		return
	}
	b, ok := e.bar(id)
	if !ok || b.Disabled() {
		return
	}
	if e.link.State != LinkIdle {
		anchor, ok := e.bar(e.link.AnchorID)
		if ok && highlight.LinkAllowed(anchor, b, highlight.Closure(e.View(), anchor.ID())) {
			e.link.Candidate = id
		}
		return
	}
	e.gesture = Gesture{Action: ActionMouseEnter, Changed: []bars.Bar{b}, Original: []bars.Bar{b.Clone()}}
	e.hoverID = id
	e.hoverProject = b.Task.Project
}

// Leave records the pointer leaving a bar.
func (e *Engine) Leave(id string) {
	b, ok := e.bar(id)
	if !ok || b.Disabled() {
		return
	}
	if e.link.State != LinkIdle {
		if id != e.link.AnchorID && e.link.Candidate == id {
			e.link.Candidate = ""
		}
		return
	}
	if e.gesture.Action.Dragging() {
		return
	}
	if e.gesture.Action == ActionMouseEnter {
		e.gesture = Gesture{Action: ActionNone}
	}
	e.hoverID, e.hoverProject = "", ""
}

// PointerDown starts a drag or a dependency link on a bar handle. It reports
// whether a gesture started.
func (e *Engine) PointerDown(id string, handle Handle, screen Point) bool {
	p, ok := e.local(screen)
	if !ok {
		return false
	}
	b, ok := e.bar(id)
	if !ok || b.Disabled() {
		return false
	}

	var action Action
	switch handle {
	case HandleTopConnector, HandleBottomConnector:
		e.link = Link{State: LinkAnchoring, AnchorID: id, FromTop: handle == HandleTopConnector, Pointer: p}
		return true
	case HandleBody:
		action = ActionMove
	case HandleStart:
		action = ActionStart
	case HandleEnd:
		action = ActionEnd
	case HandleProgress:
		action = ActionProgress
	default:
		return false
	}
	if !e.hooked(action) {
		return false
	}
	if _, ok := gestureFor(b.Variant, action); !ok {
		return false
	}

	targets := []bars.Bar{b}
	batch := false
	if action == ActionMove && e.cfg.Batch.Match(b) {
		view := e.View()
		targets = view.Select(func(c bars.Bar) bool { return !c.Disabled() && e.cfg.Batch.Match(c) })
		batch = true
	}
	e.gesture = Gesture{
		Action:   action,
		Changed:  cloneBars(targets),
		Original: cloneBars(targets),
		Batch:    batch,
		Origin:   p,
	}
	e.logger.Debug("gesture started", "task_id", id, "action", string(action), "batch_size", len(targets))
	return true
}

func (e *Engine) hooked(a Action) bool {
	if a == ActionProgress {
		return e.cfg.Callbacks.OnProgressChange != nil
	}
	return e.cfg.Callbacks.OnDateChange != nil
}

// PointerMove updates the provisional bars, or the rubber band while linking.
// It reports whether anything visible changed.
func (e *Engine) PointerMove(screen Point) bool {
	p, ok := e.local(screen)
	if !ok {
		return false
	}
	if e.link.State != LinkIdle {
		e.link.Pointer = p
		e.link.State = LinkLinking
		return true
	}
	if !e.gesture.Action.Dragging() {
		return false
	}
	return e.apply(p)
}

func (e *Engine) apply(p Point) bool {
	g := e.geometry(e.gesture.Origin)
	changed := false
	for i, orig := range e.gesture.Original {
		fn, ok := gestureFor(orig.Variant, e.gesture.Action)
		if !ok {
			continue
		}
		next := fn(g, orig, p)
		if !sameGeometry(next, e.gesture.Changed[i]) {
			e.gesture.Changed[i] = next
			changed = true
		}
	}
	return changed
}

// PointerUp ends the gesture and returns the plan to commit, or nil when there
// is nothing to persist.
func (e *Engine) PointerUp(screen Point) *CommitPlan {
	if e.link.State != LinkIdle {
		return e.finishLink()
	}
	if !e.gesture.Action.Dragging() {
		return nil
	}
	if p, ok := e.local(screen); ok {
		e.apply(p)
	}
	action := e.gesture.Action
	plan := &CommitPlan{
		Action:    action,
		Batch:     e.gesture.Batch,
		callbacks: e.cfg.Callbacks,
		logger:    e.logger,
	}
	view := e.View()
	for i, b := range e.gesture.Changed {
		orig := e.gesture.Original[i]
		if !b.Diverges(orig) {
			continue
		}
		plan.Items = append(plan.Items, Change{Bar: b.Clone(), Original: orig.Clone(), Children: view.Children(b.ID())})
		e.pending[b.ID()] = b.Clone()
	}
	e.gesture.Action = ActionMoveFinished
	if len(plan.Items) == 0 {
		return nil
	}
	return plan
}

func (e *Engine) finishLink() *CommitPlan {
	link := e.link
	e.link = Link{}
	if link.State != LinkLinking || link.Candidate == "" || e.cfg.Callbacks.OnDependency == nil {
		return nil
	}
	from, ok := e.bar(link.AnchorID)
	if !ok {
		return nil
	}
	to, ok := e.bar(link.Candidate)
	if !ok || !highlight.LinkAllowed(from, to, highlight.Closure(e.View(), from.ID())) {
		return nil
	}
	return &CommitPlan{
		Action:    ActionNone,
		link:      &linkRequest{from: from, to: to},
		callbacks: e.cfg.Callbacks,
		logger:    e.logger,
	}
}

// Resolve applies the outcome of a plan: rejected bars snap back and are
// reported through OnCommitFailed.
func (e *Engine) Resolve(result CommitResult) {
	for _, item := range result.Items {
		if item.Accepted() {
			continue
		}
		id := item.Change.Original.ID()
		delete(e.pending, id)
		for i, b := range e.gesture.Changed {
			if b.ID() == id && i < len(e.gesture.Original) {
				e.gesture.Changed[i] = e.gesture.Original[i].Clone()
			}
		}
		if fn := e.cfg.Callbacks.OnCommitFailed; fn != nil {
			e.safely(func() { fn(item.Change.Original.Clone()) })
		}
	}
}

// Commit runs a plan on the calling goroutine and resolves it.
func (e *Engine) Commit(ctx context.Context, plan *CommitPlan) CommitResult {
	result := plan.Run(ctx)
	e.Resolve(result)
	return result
}

// Cancel abandons the current gesture without committing.
func (e *Engine) Cancel() {
	e.link = Link{}
	if e.gesture.Action.Dragging() || e.gesture.Action == ActionMouseEnter {
		e.gesture = Gesture{Action: ActionNone}
	}
}

// Focus marks a bar as keyboard focused and reports the selection change.
func (e *Engine) Focus(id string) {
	b, ok := e.bar(id)
	if !ok || b.Disabled() {
		return
	}
	prev := e.focusedID
	e.focusedID = id
	e.gesture = Gesture{Action: ActionSelect, Changed: []bars.Bar{b}, Original: []bars.Bar{b.Clone()}}
	fn := e.cfg.Callbacks.OnSelect
	if fn == nil {
		return
	}
	if prev != "" && prev != id {
		if old, ok := e.bar(prev); ok {
			e.safely(func() { fn(old, false) })
		}
	}
	e.safely(func() { fn(b, true) })
}

// Blur clears keyboard focus.
func (e *Engine) Blur() {
	prev := e.focusedID
	e.focusedID = ""
	if prev == "" || e.cfg.Callbacks.OnSelect == nil {
		return
	}
	if old, ok := e.bar(prev); ok {
		e.safely(func() { e.cfg.Callbacks.OnSelect(old, false) })
	}
}

// KeyDown returns a delete plan for the focused bar when key is Delete.
func (e *Engine) KeyDown(key Key) *DeletePlan {
	if key != KeyDelete || e.focusedID == "" || e.cfg.Callbacks.OnDelete == nil {
		return nil
	}
	b, ok := e.bar(e.focusedID)
	if !ok || b.Disabled() {
		return nil
	}
	return &DeletePlan{Bar: b, onDelete: e.cfg.Callbacks.OnDelete}
}

// ResolveDelete records the outcome of a delete plan.
func (e *Engine) ResolveDelete(plan *DeletePlan, err error) {
	if plan == nil {
		return
	}
	if err != nil {
		e.logger.Error("delete failed", "task_id", plan.Bar.ID(), "err", err)
		return
	}
	e.gesture = Gesture{Action: ActionDelete, Changed: []bars.Bar{plan.Bar.Clone()}, Original: []bars.Bar{plan.Bar.Clone()}}
	if e.focusedID == plan.Bar.ID() {
		e.focusedID = ""
	}
	if e.selectedID == plan.Bar.ID() {
		e.selectedID = ""
	}
}

// Delete runs the delete plan for key on the calling goroutine.
func (e *Engine) Delete(ctx context.Context, key Key) error {
	plan := e.KeyDown(key)
	if plan == nil {
		return nil
	}
	err := plan.Run(ctx)
	e.ResolveDelete(plan, err)
	return err
}

// Click toggles the selection. Clicking inside the selected closure clears it.
func (e *Engine) Click(id string) {
	b, ok := e.bar(id)
	if !ok || b.Disabled() {
		return
	}
	if fn := e.cfg.Callbacks.OnClick; fn != nil {
		e.safely(func() { fn(b) })
	}
	if e.selectedID != "" && highlight.Closure(e.View(), e.selectedID).Has(id) {
		e.selectedID = ""
		return
	}
	e.selectedID = id
}

func (e *Engine) DoubleClick(id string) {
	b, ok := e.bar(id)
	if !ok || b.Disabled() {
		return
	}
	if fn := e.cfg.Callbacks.OnDoubleClick; fn != nil {
		e.safely(func() { fn(b) })
	}
}

// ArrowClick reports a click on the edge from fromID to toID.
func (e *Engine) ArrowClick(fromID, toID string) {
	from, ok := e.bar(fromID)
	if !ok {
		return
	}
	to, ok := e.bar(toID)
	if !ok {
		return
	}
	if fn := e.cfg.Callbacks.OnArrowClick; fn != nil {
		e.safely(func() { fn(from, to) })
	}
}

// ExpanderClick reports a click on a project's collapse toggle.
func (e *Engine) ExpanderClick(id string) {
	b, ok := e.bar(id)
	if !ok {
		return
	}
	if fn := e.cfg.Callbacks.OnExpanderClick; fn != nil {
		e.safely(func() { fn(b) })
	}
}

// ClearSelection drops the selected bar.
func (e *Engine) ClearSelection() { e.selectedID = "" }

// safely runs a notification hook, logging a panic instead of propagating it.
func (e *Engine) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("callback panic", "panic", r)
		}
	}()
	fn()
}

// HighlightContext is the resolver input for the current state.
func (e *Engine) HighlightContext() highlight.Context {
	ctx := highlight.Context{
		HoverID:      e.hoverID,
		HoverProject: e.hoverProject,
		SelectedID:   e.selectedID,
		Suppressed:   e.gesture.Action == ActionProgress || e.gesture.Action == ActionEnd,
	}
	if e.link.State != LinkIdle {
		ctx.AnchorID = e.link.AnchorID
		ctx.CandidateID = e.link.Candidate
	}
	if b, ok := e.bar(e.selectedID); ok && b.Variant == bars.VariantProject {
		ctx.SelectedProject = b.Task.ID
	}
	return ctx
}
