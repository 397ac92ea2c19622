package bars

import (
	"testing"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var axisStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testAxis(t *testing.T) timeline.Axis {
	t.Helper()
	dates := make([]time.Time, 20)
	for i := range dates {
		dates[i] = axisStart.AddDate(0, 0, i)
	}
	axis, err := timeline.NewAxis(dates, domain.ViewModeDay)
	require.NoError(t, err)
	return axis
}

func testOptions() Options {
	return Options{Layout: DefaultLayout(), Palette: DefaultPalette()}
}

func day(n int) time.Time { return axisStart.AddDate(0, 0, n) }

func task(id string, start, end time.Time, deps ...string) domain.Task {
	return domain.Task{ID: id, Type: domain.TaskTypeTask, Name: id, Start: start, End: end, Dependencies: deps}
}

func TestBuildPositionsTask(t *testing.T) {
	tk := task("a", day(1), day(3))
	tk.Progress = 50
	m := Build([]domain.Row{{}, {tk}}, testAxis(t), testOptions())

	bar, ok := m.ByID("a")
	require.True(t, ok)
	assert.Equal(t, VariantTask, bar.Variant)
	assert.Equal(t, 1, bar.Row)
	assert.InDelta(t, 60.0, bar.X1, 1e-9)
	assert.InDelta(t, 180.0, bar.X2, 1e-9)
	assert.InDelta(t, 60.0, bar.Y, 1e-9)
	assert.InDelta(t, 30.0, bar.Height, 1e-9)
	assert.InDelta(t, 60.0, bar.ProgressWidth, 1e-9)
	assert.InDelta(t, 60.0, bar.ProgressX, 1e-9)
	assert.Equal(t, 2, m.RowCount())
}

func TestBuildRTLMirrorsSpan(t *testing.T) {
	tk := task("a", day(1), day(3))
	tk.Progress = 50
	opts := testOptions()
	opts.Layout.RTL = true
	m := Build([]domain.Row{{tk}}, testAxis(t), opts)

	bar, _ := m.ByID("a")
	assert.InDelta(t, 1020.0, bar.X1, 1e-9)
	assert.InDelta(t, 1140.0, bar.X2, 1e-9)
	assert.InDelta(t, 1080.0, bar.ProgressX, 1e-9)
}

func TestBuildMilestone(t *testing.T) {
	ms := domain.Task{ID: "m", Type: domain.TaskTypeMilestone, Name: "m", Start: day(2), End: day(4), Progress: 30}
	m := Build([]domain.Row{{ms}}, testAxis(t), testOptions())

	bar, _ := m.ByID("m")
	layout := DefaultLayout()
	assert.Equal(t, VariantMilestone, bar.Variant)
	assert.InDelta(t, layout.BarHeight(), bar.X2-bar.X1, 1e-9)
	assert.InDelta(t, 120.0, bar.CenterX(), 1e-9)
	assert.InDelta(t, layout.BarHeight()/milestoneRotation, bar.Height, 1e-9)
	assert.True(t, bar.Task.End.Equal(bar.Task.Start))
	assert.Zero(t, bar.Task.Progress)
	assert.Zero(t, bar.ProgressWidth)
	assert.Empty(t, bar.Colors.Progress)
}

func TestBuildPromotesSmallTask(t *testing.T) {
	tk := task("s", day(1), day(1).Add(2*time.Hour))
	m := Build([]domain.Row{{tk}}, testAxis(t), testOptions())

	bar, _ := m.ByID("s")
	assert.Equal(t, VariantSmallTask, bar.Variant)
	assert.InDelta(t, 2*DefaultLayout().HandleWidth, bar.X2-bar.X1, 1e-9)
}

func TestBuildWiresDependenciesAfterAllBars(t *testing.T) {
	b := task("b", day(4), day(5), "a")
	c := task("c", day(5), day(6), "a", "ghost")
	a := task("a", day(1), day(3))
	m := Build([]domain.Row{{b}, {c}, {a}}, testAxis(t), testOptions())

	parent, _ := m.ByID("a")
	assert.Equal(t, []string{"b", "c"}, parent.Children)
	children := m.Children("a")
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0].ID())
	assert.Nil(t, m.Children("ghost"))
}

func TestBuildGroupedRowShareY(t *testing.T) {
	m := Build([]domain.Row{{task("a", day(1), day(2)), task("b", day(3), day(4))}}, testAxis(t), testOptions())

	a, _ := m.ByID("a")
	b, _ := m.ByID("b")
	assert.Equal(t, a.Y, b.Y)
	assert.Equal(t, 0, b.Row)
}

func TestBuildIsIdempotent(t *testing.T) {
	rows := []domain.Row{
		{task("a", day(1), day(3))},
		{task("b", day(2), day(2).Add(time.Hour), "a")},
		{{ID: "m", Type: domain.TaskTypeMilestone, Name: "m", Start: day(6)}},
	}
	first := Build(rows, testAxis(t), testOptions())
	second := Build(rows, testAxis(t), testOptions())

	assert.Equal(t, first.Bars(), second.Bars())
	for _, bar := range first.Bars() {
		assert.LessOrEqual(t, bar.X1, bar.X2, bar.ID())
	}
}

func TestPaletteResolvePrecedence(t *testing.T) {
	p := DefaultPalette()

	plain := p.Resolve(domain.Task{Type: domain.TaskTypeTask})
	assert.Equal(t, p.Defaults, plain)

	info := p.Resolve(domain.Task{Type: domain.TaskTypeProject, Info: true})
	assert.Equal(t, p.Info.Background, info.Background)

	project := p.Resolve(domain.Task{Type: domain.TaskTypeProject})
	assert.Equal(t, p.Project.Progress, project.Progress)

	styled := p.Resolve(domain.Task{Type: domain.TaskTypeProject, Styles: domain.Styles{BackgroundColor: "#000000"}})
	assert.Equal(t, "#000000", styled.Background)
	assert.Equal(t, p.Project.BackgroundSelected, styled.BackgroundSelected)
}

func TestRemoveHidden(t *testing.T) {
	project := domain.Task{ID: "p", Type: domain.TaskTypeProject, HideChildren: true}
	member := domain.Task{ID: "t1", Project: "p", Dependencies: []string{"t2"}}
	dependent := domain.Task{ID: "t2", Dependencies: []string{"t1"}}
	other := domain.Task{ID: "t3"}

	out := RemoveHidden([]domain.Task{project, member, dependent, other})

	ids := make([]string, 0, len(out))
	for _, tk := range out {
		ids = append(ids, tk.ID)
	}
	assert.Equal(t, []string{"p", "t3"}, ids)
}

func TestWithOverridesKeepsEdges(t *testing.T) {
	m := Build([]domain.Row{{task("a", day(1), day(3))}, {task("b", day(4), day(5), "a")}}, testAxis(t), testOptions())
	moved, _ := m.ByID("a")
	moved.X1 += 60
	moved.X2 += 60
	moved.Children = nil

	over := m.WithOverrides([]Bar{moved})

	got, _ := over.ByID("a")
	assert.InDelta(t, 120.0, got.X1, 1e-9)
	assert.Equal(t, []string{"b"}, got.Children)
	orig, _ := m.ByID("a")
	assert.InDelta(t, 60.0, orig.X1, 1e-9)
}

func TestVariantCapabilities(t *testing.T) {
	assert.False(t, VariantMilestone.Capabilities().Resizable)
	assert.True(t, VariantSmallTask.Capabilities().HasProgress)
	text, err := VariantSmallTask.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "small-task", string(text))
}
