// Package bars turns tasks into positioned bars on a date axis.
package bars

import (
	"slices"

	"github.com/hylla/tidslinje/internal/domain"
)

// Bar is one positioned task. Children holds the ids of bars that list this
// bar as a dependency.
type Bar struct {
	Task          domain.Task `json:"task"`
	Variant       Variant     `json:"variant"`
	Row           int         `json:"row"`
	X1            float64     `json:"x1"`
	X2            float64     `json:"x2"`
	Y             float64     `json:"y"`
	Height        float64     `json:"height"`
	ProgressX     float64     `json:"progress_x"`
	ProgressWidth float64     `json:"progress_width"`
	CornerRadius  float64     `json:"corner_radius"`
	HandleWidth   float64     `json:"handle_width"`
	Colors        Colors      `json:"colors"`
	Children      []string    `json:"children,omitempty"`
}

func (b Bar) ID() string { return b.Task.ID }

func (b Bar) Width() float64 { return b.X2 - b.X1 }

func (b Bar) CenterX() float64 { return b.X1 + (b.X2-b.X1)/2 }

// MiddleY is the vertical center of the bar body.
func (b Bar) MiddleY() float64 { return b.Y + b.Height/2 }

func (b Bar) Disabled() bool { return b.Task.Disabled }

// Clone returns a copy whose slices and maps are not shared.
func (b Bar) Clone() Bar {
	out := b
	out.Task = b.Task.Clone()
	out.Children = slices.Clone(b.Children)
	return out
}

// Diverges reports whether any committed field differs from other.
func (b Bar) Diverges(other Bar) bool {
	return !b.Task.Start.Equal(other.Task.Start) ||
		!b.Task.End.Equal(other.Task.End) ||
		b.Task.Progress != other.Task.Progress ||
		b.Row != other.Row
}

// Contains reports whether a chart-local point lies on the bar body.
func (b Bar) Contains(x, y float64) bool {
	return x >= b.X1 && x <= b.X2 && y >= b.Y && y <= b.Y+b.Height
}

// UpdateProgressGeometry recomputes the progress handle from the span and progress.
func (b *Bar) UpdateProgressGeometry(rtl bool) {
	if b.Variant == VariantMilestone {
		b.ProgressX, b.ProgressWidth = 0, 0
		return
	}
	b.ProgressWidth, b.ProgressX = progressGeometry(b.X1, b.X2, b.Task.Progress, rtl)
}

func progressGeometry(x1, x2 float64, progress int, rtl bool) (float64, float64) {
	width := (x2 - x1) * float64(progress) * 0.01
	if rtl {
		return width, x2 - width
	}
	return width, x1
}
