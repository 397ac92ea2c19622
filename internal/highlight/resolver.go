package highlight

import (
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
)

// Mask is the overlay drawn on top of a bar.
type Mask int

const (
	MaskNone Mask = iota
	MaskPlain
	MaskSelected
	MaskWarn
	MaskError
)

func (m Mask) String() string {
	switch m {
	case MaskPlain:
		return "mask"
	case MaskSelected:
		return "selected"
	case MaskWarn:
		return "warn"
	case MaskError:
		return "error"
	default:
		return "none"
	}
}

func (m Mask) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Connector is the state of a bar's dependency-link handles.
type Connector int

const (
	ConnectorHidden Connector = iota
	ConnectorIdle
	ConnectorAnchor
	ConnectorCandidate
	ConnectorBlocked
)

func (c Connector) String() string {
	switch c {
	case ConnectorIdle:
		return "idle"
	case ConnectorAnchor:
		return "anchor"
	case ConnectorCandidate:
		return "candidate"
	case ConnectorBlocked:
		return "blocked"
	default:
		return "hidden"
	}
}

func (c Connector) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Context is the interaction state the resolver reads.
type Context struct {
	HoverID            string
	HoverProject       string
	SelectedProject    string
	SelectedID         string
	AnchorID           string
	CandidateID        string
	OverdueMode        bool
	BehindScheduleMode bool
	// Suppressed hides every mask, used while progress or end handles are dragged.
	Suppressed bool
}

// Resolver classifies bars against one Context.
type Resolver struct {
	ctx             Context
	selected        Set
	chain           Set
	selectedProject string
	anchor          bars.Bar
	hasAnchor       bool
}

func NewResolver(m bars.Model, ctx Context) Resolver {
	r := Resolver{ctx: ctx, selected: Set{}, chain: Set{}}
	if ctx.SelectedID != "" {
		r.selected = Closure(m, ctx.SelectedID)
		if sel, ok := m.ByID(ctx.SelectedID); ok {
			r.selectedProject = sel.Task.Project
		}
	}
	if ctx.AnchorID != "" {
		r.chain = Closure(m, ctx.AnchorID)
		r.anchor, r.hasAnchor = m.ByID(ctx.AnchorID)
	}
	return r
}

// Selected is the closure of the selected bar.
func (r Resolver) Selected() Set { return r.selected }

// Chain is the closure of the link anchor.
func (r Resolver) Chain() Set { return r.chain }

// SelectedItemProject is the project of the selected bar, if any.
func (r Resolver) SelectedItemProject() string { return r.selectedProject }

// CrossProject reports whether b belongs to another project than the anchor
// while lacking an order key.
func (r Resolver) CrossProject(b bars.Bar) bool {
	if !r.hasAnchor {
		return false
	}
	return crossProject(r.anchor, b)
}

func crossProject(anchor, candidate bars.Bar) bool {
	return anchor.Task.Project != candidate.Task.Project && candidate.Task.OrderKey == ""
}

// LinkAllowed reports whether candidate may become the child of anchor given
// the anchor's closure.
func LinkAllowed(anchor, candidate bars.Bar, chain Set) bool {
	switch {
	case candidate.Disabled():
		return false
	case candidate.ID() == anchor.ID():
		return false
	case crossProject(anchor, candidate):
		return false
	case chain.Has(candidate.ID()):
		return false
	default:
		return true
	}
}

// Classify picks the overlay for b.
func (r Resolver) Classify(b bars.Bar) Mask {
	if r.ctx.Suppressed {
		return MaskNone
	}
	id := b.ID()
	task := b.Task
	overdue := r.ctx.OverdueMode && task.Status == domain.StatusOverdue
	behind := r.ctx.BehindScheduleMode && task.Status == domain.StatusWarning
	inChain := r.chain.Has(id)
	cross := r.CrossProject(b)
	overlapping := task.Overlapping && r.chain.Len() == 0
	inSelection := r.selected.Has(id)

	emphasized := r.ctx.HoverID == id ||
		sameProject(task, r.ctx.HoverProject) ||
		sameProject(task, r.ctx.SelectedProject) ||
		sameProject(task, r.selectedProject) ||
		inSelection || overlapping || inChain || cross || overdue || behind
	if !emphasized {
		return MaskNone
	}

	rowOK := domain.RowAllowed(task.AllowedRows, b.Row)
	switch {
	case overdue:
		return MaskError
	case behind:
		return MaskWarn
	case inChain || cross:
		return MaskError
	case overlapping:
		return MaskError
	case inSelection && rowOK:
		return MaskSelected
	case rowOK:
		return MaskPlain
	default:
		return MaskError
	}
}

// ConnectorState colors the link handles of b.
func (r Resolver) ConnectorState(b bars.Bar) Connector {
	switch {
	case b.Disabled():
		return ConnectorHidden
	case r.ctx.AnchorID == b.ID():
		return ConnectorAnchor
	case r.chain.Has(b.ID()) || r.CrossProject(b):
		return ConnectorBlocked
	case r.ctx.CandidateID == b.ID():
		return ConnectorCandidate
	default:
		return ConnectorIdle
	}
}

func sameProject(task domain.Task, project string) bool {
	return project != "" && task.Project == project
}
