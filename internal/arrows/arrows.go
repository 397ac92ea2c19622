// Package arrows routes dependency connectors between bars.
package arrows

import (
	"slices"
	"strconv"
	"strings"

	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/highlight"
)

// headSize is the half-width of the arrowhead triangle.
const headSize = 5.0

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Geometry holds the layout values the router needs.
type Geometry struct {
	RowHeight float64
	BarHeight float64
	Indent    float64
	RTL       bool
}

// Arrow is one routed connector from a parent bar to a child bar.
type Arrow struct {
	FromID      string   `json:"from_id"`
	ToID        string   `json:"to_id"`
	Points      []Point  `json:"points"`
	Head        [3]Point `json:"head"`
	Highlighted bool     `json:"highlighted"`
}

// Compute routes from.X2 (or from.X1 in right-to-left layouts) to the child.
func Compute(from, to bars.Bar, g Geometry) Arrow {
	a := Arrow{FromID: from.ID(), ToID: to.ID()}
	jog := 1.0
	if from.Row > to.Row {
		jog = -1
	}
	fromMiddleY := from.Y + g.BarHeight/2
	if g.RTL {
		a.Points, a.Head = routeRTL(from, to, g, fromMiddleY, jog)
	} else {
		a.Points, a.Head = routeLTR(from, to, g, fromMiddleY, jog)
	}
	return a
}

func routeLTR(from, to bars.Bar, g Geometry, fromMiddleY, jog float64) ([]Point, [3]Point) {
	toCenterX := to.CenterX()
	elbowX := from.X2 + g.Indent
	laneY := fromMiddleY + jog*g.RowHeight/2

	// Enter the child from the top when it sits below, from the bottom otherwise.
	targetY, baseY := to.Y, to.Y-headSize
	if fromMiddleY >= to.Y {
		targetY = to.Y + g.BarHeight
		baseY = targetY + headSize
	}
	points := []Point{
		{from.X2, fromMiddleY},
		{elbowX, fromMiddleY},
		{elbowX, laneY},
		{toCenterX, laneY},
		{toCenterX, targetY},
	}
	head := [3]Point{
		{toCenterX, targetY},
		{toCenterX - headSize, baseY},
		{toCenterX + headSize, baseY},
	}
	return points, head
}

func routeRTL(from, to bars.Bar, g Geometry, fromMiddleY, jog float64) ([]Point, [3]Point) {
	toMiddleY := to.Y + g.BarHeight/2
	elbowX := from.X1 - g.Indent
	laneY := fromMiddleY + jog*g.RowHeight/2

	points := []Point{
		{from.X1, fromMiddleY},
		{elbowX, fromMiddleY},
		{elbowX, laneY},
	}
	laneEndX := elbowX
	if from.X1-2*g.Indent <= to.X2 {
		laneEndX = to.X2 + g.Indent
		points = append(points, Point{laneEndX, laneY})
	}
	points = append(points,
		Point{laneEndX, toMiddleY},
		Point{to.X2, toMiddleY},
	)
	head := [3]Point{
		{to.X2, toMiddleY},
		{to.X2 + headSize, toMiddleY + headSize},
		{to.X2 + headSize, toMiddleY - headSize},
	}
	return points, head
}

// Path renders the connector as SVG path data.
func (a Arrow) Path() string {
	var b strings.Builder
	for i, p := range a.Points {
		if i == 0 {
			b.WriteString("M ")
		} else {
			b.WriteString(" L ")
		}
		b.WriteString(formatPoint(p, " "))
	}
	return b.String()
}

// HeadPoints renders the arrowhead as an SVG polygon points list.
func (a Arrow) HeadPoints() string {
	parts := make([]string, len(a.Head))
	for i, p := range a.Head {
		parts[i] = formatPoint(p, ",")
	}
	return strings.Join(parts, " ")
}

func formatPoint(p Point, sep string) string {
	return strconv.FormatFloat(p.X, 'f', -1, 64) + sep + strconv.FormatFloat(p.Y, 'f', -1, 64)
}

// Visibility decides which parents have their outgoing edges drawn.
type Visibility struct {
	ShowAll bool
	// Projects are the active project ids (hovered, selected, or the selected bar's project).
	Projects []string
	// Suppressed hides edges while progress or end handles are dragged.
	Suppressed bool
	Moving     bool
}

func (v Visibility) keep(parent bars.Bar) bool {
	if v.ShowAll {
		return true
	}
	if v.Suppressed {
		return false
	}
	active := slices.ContainsFunc(v.Projects, func(p string) bool { return p != "" })
	if !active && !v.Moving {
		return false
	}
	if parent.Task.Project == "" {
		return false
	}
	return slices.Contains(v.Projects, parent.Task.Project)
}

// Collect routes every visible parent to child edge. Edges leaving a
// highlighted parent are returned after the others so they draw on top.
func Collect(m bars.Model, g Geometry, v Visibility, highlighted highlight.Set) []Arrow {
	var normal, selected []Arrow
	for _, parent := range m.Bars() {
		if !v.keep(parent) {
			continue
		}
		for _, child := range m.Children(parent.ID()) {
			arrow := Compute(parent, child, g)
			if highlighted.Has(parent.ID()) {
				arrow.Highlighted = true
				selected = append(selected, arrow)
				continue
			}
			normal = append(normal, arrow)
		}
	}
	return append(normal, selected...)
}

// HitTest returns the arrow whose route passes within tolerance of p.
func HitTest(arrows []Arrow, p Point, tolerance float64) (Arrow, bool) {
	for i := len(arrows) - 1; i >= 0; i-- {
		pts := arrows[i].Points
		for j := 1; j < len(pts); j++ {
			if nearSegment(pts[j-1], pts[j], p, tolerance) {
				return arrows[i], true
			}
		}
	}
	return Arrow{}, false
}

// nearSegment handles axis-aligned segments only.
func nearSegment(a, b, p Point, tolerance float64) bool {
	minX, maxX := min(a.X, b.X)-tolerance, max(a.X, b.X)+tolerance
	minY, maxY := min(a.Y, b.Y)-tolerance, max(a.Y, b.Y)+tolerance
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}
