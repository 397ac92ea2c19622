package gantt

import (
	"time"

	"github.com/hylla/tidslinje/internal/arrows"
	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/highlight"
	"github.com/hylla/tidslinje/internal/interaction"
	"github.com/hylla/tidslinje/internal/schedule"
)

const (
	connectorRadius = 4
	connectorOffset = 6
	connectorInset  = 3
)

// BarView is one bar with its overlay state.
type BarView struct {
	bars.Bar
	Mask         highlight.Mask          `json:"mask"`
	Connector    highlight.Connector     `json:"connector"`
	Capabilities bars.Capabilities       `json:"capabilities"`
	Provisional  bool                    `json:"provisional"`
	Handles      map[string]arrows.Point `json:"handles,omitempty"`
}

// RubberBand is the line drawn from the link anchor to the pointer.
type RubberBand struct {
	AnchorID string            `json:"anchor_id"`
	From     interaction.Point `json:"from"`
	To       interaction.Point `json:"to"`
	FromTop  bool              `json:"from_top"`
}

// MovingOverlay shadows a bar while it is dragged. NonWorking flags a start
// inside a non-working period on the destination row.
type MovingOverlay struct {
	Bar        bars.Bar `json:"bar"`
	NonWorking bool     `json:"non_working"`
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	ViewMode    domain.ViewMode    `json:"view_mode"`
	Dates       []time.Time        `json:"dates"`
	ColumnWidth float64            `json:"column_width"`
	RowHeight   float64            `json:"row_height"`
	Width       float64            `json:"width"`
	Height      float64            `json:"height"`
	RTL         bool               `json:"rtl"`
	Action      interaction.Action `json:"action"`
	Bars        []BarView          `json:"bars"`
	Arrows      []arrows.Arrow     `json:"arrows"`
	Highlighted []string           `json:"highlighted"`
	SelectedID  string             `json:"selected_id,omitempty"`
	FocusedID   string             `json:"focused_id,omitempty"`
	HoverID     string             `json:"hover_id,omitempty"`
	RubberBand  *RubberBand        `json:"rubber_band,omitempty"`
	Moving      []MovingOverlay    `json:"moving,omitempty"`
	NonWorking  []schedule.Rect    `json:"non_working,omitempty"`
	CurrentX    float64            `json:"current_x"`
	ShowCurrent bool               `json:"show_current"`
}

// Snapshot renders the current state.
func (c *Chart) Snapshot() Snapshot {
	e := c.engine
	view := e.View()
	ctx := e.HighlightContext()
	ctx.OverdueMode = c.opts.Modes.Overdue
	ctx.BehindScheduleMode = c.opts.Modes.BehindSchedule
	resolver := highlight.NewResolver(view, ctx)
	selected := resolver.Selected()

	provisional := map[string]struct{}{}
	for _, b := range e.Provisional() {
		provisional[b.ID()] = struct{}{}
	}

	layout := c.opts.Layout
	snap := Snapshot{
		ViewMode:    c.axis.Mode(),
		Dates:       c.axis.Dates(),
		ColumnWidth: layout.ColumnWidth,
		RowHeight:   layout.RowHeight,
		Width:       c.axis.Width(layout.ColumnWidth),
		Height:      float64(view.RowCount()) * layout.RowHeight,
		RTL:         layout.RTL,
		Action:      e.Action(),
		Highlighted: selected.IDs(),
		SelectedID:  e.SelectedID(),
		FocusedID:   e.FocusedID(),
		HoverID:     e.HoverID(),
		NonWorking:  c.rects,
	}
	for _, b := range view.Bars() {
		_, prov := provisional[b.ID()]
		snap.Bars = append(snap.Bars, BarView{
			Bar:          b,
			Mask:         resolver.Classify(b),
			Connector:    resolver.ConnectorState(b),
			Capabilities: b.Variant.Capabilities(),
			Provisional:  prov,
			Handles:      handles(b, layout.RTL),
		})
	}
	snap.Arrows = c.arrows(view, selected)

	if link := e.Link(); link.State == interaction.LinkLinking {
		if anchor, ok := view.ByID(link.AnchorID); ok {
			from := connectorPoint(anchor, link.FromTop)
			snap.RubberBand = &RubberBand{
				AnchorID: link.AnchorID,
				From:     interaction.Point{X: from.X, Y: from.Y},
				To:       link.Pointer,
				FromTop:  link.FromTop,
			}
		}
	}

	if g := e.Gesture(); g.Action == interaction.ActionMove {
		for _, b := range g.Changed {
			_, hit := schedule.Hit(c.rects, b.Row, b.X1)
			snap.Moving = append(snap.Moving, MovingOverlay{Bar: b, NonWorking: hit})
		}
	}

	snap.CurrentX, snap.ShowCurrent = c.axis.CurrentTimeX(c.opts.Now(), layout.ColumnWidth, layout.RTL)
	return snap
}

// connectorPoint is the center of a link handle.
func connectorPoint(b bars.Bar, top bool) arrows.Point {
	if top {
		return arrows.Point{X: b.X1 + connectorInset, Y: b.Y - connectorOffset}
	}
	return arrows.Point{X: b.X2 - connectorInset, Y: b.Y + b.Height + connectorOffset}
}

func handles(b bars.Bar, rtl bool) map[string]arrows.Point {
	caps := b.Variant.Capabilities()
	out := map[string]arrows.Point{}
	if b.Disabled() {
		return out
	}
	out["top"] = connectorPoint(b, true)
	out["bottom"] = connectorPoint(b, false)
	if caps.Resizable {
		out["start"] = arrows.Point{X: b.X1 + 1, Y: b.Y + 1}
		out["end"] = arrows.Point{X: b.X2 - b.HandleWidth - 1, Y: b.Y + 1}
	}
	if caps.HasProgress {
		out["progress"] = arrows.Point{X: progressHandleX(b, rtl), Y: b.Y + b.Height}
	}
	return out
}

func progressHandleX(b bars.Bar, rtl bool) float64 {
	if rtl {
		return b.ProgressX
	}
	return b.ProgressX + b.ProgressWidth
}

func connectorAt(b bars.Bar, p interaction.Point) (interaction.Handle, bool) {
	near := func(c arrows.Point) bool {
		dx, dy := p.X-c.X, p.Y-c.Y
		return dx*dx+dy*dy <= connectorRadius*connectorRadius
	}
	switch {
	case near(connectorPoint(b, true)):
		return interaction.HandleTopConnector, true
	case near(connectorPoint(b, false)):
		return interaction.HandleBottomConnector, true
	default:
		return interaction.HandleBody, false
	}
}

// handleAt picks the drag handle under p on a bar body.
func handleAt(b bars.Bar, p interaction.Point, rtl bool) interaction.Handle {
	caps := b.Variant.Capabilities()
	if caps.HasProgress {
		x := progressHandleX(b, rtl)
		if p.X >= x-5 && p.X <= x+5 && p.Y >= b.Y+b.Height-5 {
			return interaction.HandleProgress
		}
	}
	if caps.Resizable {
		if p.X <= b.X1+b.HandleWidth {
			return interaction.HandleStart
		}
		if p.X >= b.X2-b.HandleWidth {
			return interaction.HandleEnd
		}
	}
	return interaction.HandleBody
}
