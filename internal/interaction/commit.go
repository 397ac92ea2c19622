package interaction

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
)

// CommitPlan is the set of changes produced by one released gesture.
type CommitPlan struct {
	Action Action
	Batch  bool
	Items  []Change

	link      *linkRequest
	callbacks Callbacks
	logger    *log.Logger
}

type linkRequest struct {
	from bars.Bar
	to   bars.Bar
}

// ItemResult is the outcome of one committed change.
type ItemResult struct {
	Change Change
	Err    error
}

func (r ItemResult) Accepted() bool { return r.Err == nil }

// CommitResult collects the per-item outcomes of a plan, in plan order.
type CommitResult struct {
	Action Action
	Items  []ItemResult
}

// Rejected returns the pre-gesture snapshots of every declined item.
func (r CommitResult) Rejected() []bars.Bar {
	var out []bars.Bar
	for _, item := range r.Items {
		if !item.Accepted() {
			out = append(out, item.Change.Original.Clone())
		}
	}
	return out
}

// Accepted returns the provisional bars that were persisted.
func (r CommitResult) Accepted() []bars.Bar {
	var out []bars.Bar
	for _, item := range r.Items {
		if item.Accepted() {
			out = append(out, item.Change.Bar.Clone())
		}
	}
	return out
}

// IsLink reports whether the plan finishes a dependency link.
func (p *CommitPlan) IsLink() bool { return p != nil && p.link != nil }

// Run invokes the persistence hooks item by item. Items commit independently:
// a rejection does not stop later items.
func (p *CommitPlan) Run(ctx context.Context) CommitResult {
	if p == nil {
		return CommitResult{Action: ActionNone}
	}
	if p.link != nil {
		p.runLink(ctx)
		return CommitResult{Action: p.Action}
	}
	result := CommitResult{Action: p.Action, Items: make([]ItemResult, 0, len(p.Items))}
	for _, item := range p.Items {
		err := p.commit(ctx, item)
		if err != nil {
			p.logger.Warn("change rejected", "task_id", item.Bar.ID(), "action", string(p.Action), "err", err)
		}
		result.Items = append(result.Items, ItemResult{Change: item, Err: err})
	}
	return result
}

func (p *CommitPlan) commit(ctx context.Context, item Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch p.Action {
	case ActionProgress:
		if p.callbacks.OnProgressChange == nil {
			return nil
		}
		return guard(func() error { return p.callbacks.OnProgressChange(ctx, item) })
	default:
		if !domain.RowAllowed(item.Bar.Task.AllowedRows, item.Bar.Row) {
			return fmt.Errorf("%w: row %d", ErrRowNotAllowed, item.Bar.Row)
		}
		if p.callbacks.OnDateChange == nil {
			return nil
		}
		return guard(func() error { return p.callbacks.OnDateChange(ctx, item) })
	}
}

// runLink fires the dependency hook. Failures are logged only.
func (p *CommitPlan) runLink(ctx context.Context) {
	if p.callbacks.OnDependency == nil {
		return
	}
	err := guard(func() error { return p.callbacks.OnDependency(ctx, p.link.from, p.link.to) })
	if err != nil {
		p.logger.Warn("dependency link failed", "from_id", p.link.from.ID(), "to_id", p.link.to.ID(), "err", err)
	}
}

// DeletePlan deletes one focused bar.
type DeletePlan struct {
	Bar bars.Bar

	onDelete DeleteFunc
}

// Run invokes the delete hook.
func (p *DeletePlan) Run(ctx context.Context) error {
	if p == nil || p.onDelete == nil {
		return nil
	}
	return guard(func() error { return p.onDelete(ctx, p.Bar) })
}

// guard turns a panicking hook into a rejection.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: callback panic: %v", ErrRejected, r)
		}
	}()
	return fn()
}
