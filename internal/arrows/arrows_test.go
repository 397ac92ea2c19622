package arrows

import (
	"testing"
	"time"

	"github.com/hylla/tidslinje/internal/bars"
	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/highlight"
	"github.com/hylla/tidslinje/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var geometry = Geometry{RowHeight: 50, BarHeight: 30, Indent: 20}

func bar(id string, row int, x1, x2, y float64) bars.Bar {
	return bars.Bar{Task: domain.Task{ID: id}, Row: row, X1: x1, X2: x2, Y: y, Height: 30}
}

func TestComputeLeftToRightDownward(t *testing.T) {
	a := Compute(bar("a", 0, 60, 180, 10), bar("b", 1, 240, 300, 60), geometry)

	assert.Equal(t, "M 180 25 L 200 25 L 200 50 L 270 50 L 270 60", a.Path())
	assert.Equal(t, "270,60 265,55 275,55", a.HeadPoints())
	assert.Equal(t, "a", a.FromID)
	assert.Equal(t, "b", a.ToID)
}

func TestComputeLeftToRightUpward(t *testing.T) {
	a := Compute(bar("a", 1, 60, 180, 60), bar("b", 0, 240, 300, 10), geometry)

	require.Len(t, a.Points, 5)
	assert.Equal(t, Point{200, 50}, a.Points[2])
	assert.Equal(t, Point{270, 40}, a.Points[4])
	assert.Equal(t, [3]Point{{270, 40}, {265, 45}, {275, 45}}, a.Head)
}

func TestComputeRightToLeft(t *testing.T) {
	g := geometry
	g.RTL = true

	wide := Compute(bar("a", 0, 1020, 1140, 10), bar("b", 1, 900, 960, 60), g)
	assert.Equal(t, []Point{{1020, 25}, {1000, 25}, {1000, 50}, {1000, 75}, {960, 75}}, wide.Points)
	assert.Equal(t, [3]Point{{960, 75}, {965, 80}, {965, 70}}, wide.Head)

	tight := Compute(bar("a", 0, 1020, 1140, 10), bar("b", 1, 900, 1000, 60), g)
	assert.Equal(t, []Point{{1020, 25}, {1000, 25}, {1000, 50}, {1020, 50}, {1020, 75}, {1000, 75}}, tight.Points)
}

func buildModel(t *testing.T) bars.Model {
	t.Helper()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 10)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}
	axis, err := timeline.NewAxis(dates, domain.ViewModeDay)
	require.NoError(t, err)
	mk := func(id, project string, row int, deps ...string) domain.Task {
		return domain.Task{ID: id, Name: id, Project: project, Row: row, Start: start.AddDate(0, 0, row), End: start.AddDate(0, 0, row+1), Dependencies: deps}
	}
	tasks := []domain.Task{mk("a", "p", 0), mk("b", "p", 1, "a"), mk("c", "q", 2), mk("d", "q", 3, "c")}
	return bars.Build(domain.GroupRows(tasks), axis, bars.Options{Layout: bars.DefaultLayout(), Palette: bars.DefaultPalette()})
}

func edges(arrows []Arrow) []string {
	out := make([]string, len(arrows))
	for i, a := range arrows {
		out[i] = a.FromID + ">" + a.ToID
	}
	return out
}

func TestCollectDrawsHighlightedLast(t *testing.T) {
	m := buildModel(t)

	got := Collect(m, geometry, Visibility{ShowAll: true}, highlight.Set{"a": {}, "b": {}})

	assert.Equal(t, []string{"c>d", "a>b"}, edges(got))
	assert.True(t, got[1].Highlighted)
	assert.False(t, got[0].Highlighted)
}

func TestCollectVisibility(t *testing.T) {
	m := buildModel(t)

	assert.Equal(t, []string{"a>b"}, edges(Collect(m, geometry, Visibility{Projects: []string{"p"}}, nil)))
	assert.Empty(t, Collect(m, geometry, Visibility{Projects: []string{"p"}, Suppressed: true}, nil))
	assert.Empty(t, Collect(m, geometry, Visibility{}, nil))
	assert.Equal(t, []string{"c>d"}, edges(Collect(m, geometry, Visibility{Projects: []string{"", "q"}, Moving: true}, nil)))
}

func TestHitTest(t *testing.T) {
	a := Compute(bar("a", 0, 60, 180, 10), bar("b", 1, 240, 300, 60), geometry)

	got, ok := HitTest([]Arrow{a}, Point{230, 51}, 2)
	require.True(t, ok)
	assert.Equal(t, "b", got.ToID)

	_, ok = HitTest([]Arrow{a}, Point{100, 100}, 2)
	assert.False(t, ok)
}
