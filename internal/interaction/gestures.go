package interaction

import (
	"math"
	"time"

	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/timeline"
)

// geometry is the snapping context of one drag.
type geometry struct {
	xStep     float64
	timeStep  time.Duration
	rowHeight float64
	rowCount  int
	rtl       bool
	origin    Point
}

// signedStep walks the axis backwards in right-to-left layouts.
func (g geometry) signedStep() float64 {
	if g.rtl {
		return -g.xStep
	}
	return g.xStep
}

func (g geometry) date(x, originX float64, origin time.Time) time.Time {
	return timeline.XToTime(x, originX, origin, g.signedStep(), g.timeStep)
}

type gestureFunc func(g geometry, orig bars.Bar, p Point) bars.Bar

var barGestures = map[Action]gestureFunc{
	ActionMove:     moveBar,
	ActionStart:    resizeStart,
	ActionEnd:      resizeEnd,
	ActionProgress: dragProgress,
}

// variantGestures is the dispatch table of supported drags per bar variant.
var variantGestures = map[bars.Variant]map[Action]gestureFunc{
	bars.VariantTask:      barGestures,
	bars.VariantSmallTask: barGestures,
	bars.VariantProject:   barGestures,
	bars.VariantMilestone: {ActionMove: moveMilestone},
}

func gestureFor(v bars.Variant, a Action) (gestureFunc, bool) {
	fn, ok := variantGestures[v][a]
	return fn, ok
}

func resizeStart(g geometry, orig bars.Bar, p Point) bars.Bar {
	if g.xStep <= 0 {
		return orig.Clone()
	}
	limit := orig.X2 - 2*orig.HandleWidth
	x := math.Min(p.X, limit)
	steps := math.Round((x - orig.X1) / g.xStep)
	x1 := orig.X1 + steps*g.xStep
	if x1 > limit {
		x1 = orig.X1 + math.Floor((limit-orig.X1)/g.xStep)*g.xStep
	}
	out := orig.Clone()
	out.X1 = x1
	if x1 != orig.X1 {
		if g.rtl {
			out.Task.End = g.date(x1, orig.X1, orig.Task.End)
		} else {
			out.Task.Start = g.date(x1, orig.X1, orig.Task.Start)
		}
		out.UpdateProgressGeometry(g.rtl)
	}
	return out
}

func resizeEnd(g geometry, orig bars.Bar, p Point) bars.Bar {
	if g.xStep <= 0 {
		return orig.Clone()
	}
	limit := orig.X1 + 2*orig.HandleWidth
	x := math.Max(p.X, limit)
	steps := math.Round((x - orig.X2) / g.xStep)
	x2 := orig.X2 + steps*g.xStep
	if x2 < limit {
		x2 = orig.X2 + math.Ceil((limit-orig.X2)/g.xStep)*g.xStep
	}
	out := orig.Clone()
	out.X2 = x2
	if x2 != orig.X2 {
		if g.rtl {
			out.Task.Start = g.date(x2, orig.X2, orig.Task.Start)
		} else {
			out.Task.End = g.date(x2, orig.X2, orig.Task.End)
		}
		out.UpdateProgressGeometry(g.rtl)
	}
	return out
}

// moveBar shifts the bar by whole steps measured from the press point, so the
// result never drifts away from the pointer.
func moveBar(g geometry, orig bars.Bar, p Point) bars.Bar {
	out := orig.Clone()
	if g.xStep > 0 {
		steps := math.Round((p.X - g.origin.X) / g.xStep)
		if steps != 0 {
			dx := steps * g.xStep
			out.X1 = orig.X1 + dx
			out.X2 = orig.X2 + dx
			out.Task.Start = g.date(out.X1, orig.X1, orig.Task.Start)
			out.Task.End = g.date(out.X2, orig.X2, orig.Task.End)
			out.UpdateProgressGeometry(g.rtl)
		}
	}
	if g.rowHeight > 0 {
		row := orig.Row + int(math.Round((p.Y-g.origin.Y)/g.rowHeight))
		row = max(0, min(row, max(g.rowCount-1, 0)))
		out.Row = row
		out.Y = orig.Y + float64(row-orig.Row)*g.rowHeight
	}
	return out
}

func moveMilestone(g geometry, orig bars.Bar, p Point) bars.Bar {
	out := moveBar(g, orig, p)
	out.Task.End = out.Task.Start
	out.Task.Progress = 0
	return out
}

func dragProgress(g geometry, orig bars.Bar, p Point) bars.Bar {
	out := orig.Clone()
	out.Task.Progress = progressAt(p.X, orig, g.rtl)
	if out.Task.Progress != orig.Task.Progress {
		out.UpdateProgressGeometry(g.rtl)
	}
	return out
}

// progressAt converts a pointer x into a rounded percentage of the bar span.
func progressAt(x float64, b bars.Bar, rtl bool) int {
	width := b.X2 - b.X1
	if width <= 0 {
		return b.Task.Progress
	}
	from := x - b.X1
	if rtl {
		from = b.X2 - x
	}
	pct := math.Round(from * 100 / width)
	return int(min(max(pct, 0), 100))
}

func sameGeometry(a, b bars.Bar) bool {
	return a.X1 == b.X1 && a.X2 == b.X2 && a.Y == b.Y && a.Row == b.Row && a.Task.Progress == b.Task.Progress
}
