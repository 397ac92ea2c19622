package bars

import "github.com/hylla/tidslinje/internal/domain"

// Colors is the resolved fill set for one bar.
type Colors struct {
	Background         string `json:"background" toml:"background"`
	BackgroundSelected string `json:"background_selected" toml:"background_selected"`
	Progress           string `json:"progress" toml:"progress"`
	ProgressSelected   string `json:"progress_selected" toml:"progress_selected"`
}

// Palette holds the type-specific color sets plus global fallbacks.
type Palette struct {
	Defaults  Colors `toml:"defaults"`
	Bar       Colors `toml:"bar"`
	Info      Colors `toml:"info"`
	Project   Colors `toml:"project"`
	Milestone Colors `toml:"milestone"`
}

func DefaultPalette() Palette {
	return Palette{
		Defaults: Colors{
			Background:         "#b8c2cc",
			BackgroundSelected: "#aeb8c2",
			Progress:           "#a3a3ff",
			ProgressSelected:   "#8282f5",
		},
		Info: Colors{
			Background:         "#d6e4f0",
			BackgroundSelected: "#c3d7ea",
			Progress:           "#5b9bd5",
			ProgressSelected:   "#3d85c6",
		},
		Project: Colors{
			Background:         "#fac465",
			BackgroundSelected: "#f7bb53",
			Progress:           "#7db59a",
			ProgressSelected:   "#59a985",
		},
		Milestone: Colors{
			Background:         "#f1c453",
			BackgroundSelected: "#f29e4c",
		},
	}
}

// Resolve applies task overrides over the type palette over the defaults.
func (p Palette) Resolve(task domain.Task) Colors {
	var base Colors
	switch {
	case task.Type == domain.TaskTypeMilestone:
		base = p.Milestone
	case task.Info:
		base = p.Info
	case task.Type == domain.TaskTypeProject:
		base = p.Project
	default:
		base = p.Bar
	}
	out := base.fill(p.Defaults)
	if task.Type == domain.TaskTypeMilestone {
		out.Progress, out.ProgressSelected = "", ""
	}
	return out.override(task.Styles)
}

func (c Colors) fill(defaults Colors) Colors {
	if c.Background == "" {
		c.Background = defaults.Background
	}
	if c.BackgroundSelected == "" {
		c.BackgroundSelected = defaults.BackgroundSelected
	}
	if c.Progress == "" {
		c.Progress = defaults.Progress
	}
	if c.ProgressSelected == "" {
		c.ProgressSelected = defaults.ProgressSelected
	}
	return c
}

func (c Colors) override(s domain.Styles) Colors {
	if s.BackgroundColor != "" {
		c.Background = s.BackgroundColor
	}
	if s.BackgroundSelectedColor != "" {
		c.BackgroundSelected = s.BackgroundSelectedColor
	}
	if s.ProgressColor != "" {
		c.Progress = s.ProgressColor
	}
	if s.ProgressSelectedColor != "" {
		c.ProgressSelected = s.ProgressSelectedColor
	}
	return c
}
