// Package timeline maps between timestamps on a discrete date axis and chart pixels.
package timeline

import (
	"errors"
	"math"
	"slices"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
)

// ErrEmptyAxis is returned when an axis has fewer than two buckets.
var ErrEmptyAxis = errors.New("date axis needs at least two buckets")

// Axis is an ordered list of bucket start dates for one view mode.
type Axis struct {
	dates []time.Time
	mode  domain.ViewMode
	index map[int64]int
}

// NewAxis builds an axis from ascending bucket dates. Hour and Day axes get an
// exact bucket index.
func NewAxis(dates []time.Time, mode domain.ViewMode) (Axis, error) {
	if len(dates) < 2 {
		return Axis{}, ErrEmptyAxis
	}
	a := Axis{dates: slices.Clone(dates), mode: mode}
	if mode.Indexed() {
		a.index = make(map[int64]int, len(dates))
		for i, d := range a.dates {
			a.index[bucketKey(d, mode)] = i
		}
	}
	return a, nil
}

func (a Axis) Mode() domain.ViewMode { return a.mode }

func (a Axis) Len() int { return len(a.dates) }

// Dates returns a copy of the bucket dates.
func (a Axis) Dates() []time.Time { return slices.Clone(a.dates) }

func (a Axis) Start() time.Time {
	if len(a.dates) == 0 {
		return time.Time{}
	}
	return a.dates[0]
}

func (a Axis) End() time.Time {
	if len(a.dates) == 0 {
		return time.Time{}
	}
	return a.dates[len(a.dates)-1]
}

// Width is the pixel width of the full axis.
func (a Axis) Width(columnWidth float64) float64 {
	return float64(len(a.dates)) * columnWidth
}

// TimeToX locates the bucket holding t and interpolates inside it. Timestamps
// outside the axis clamp to its edges.
func (a Axis) TimeToX(t time.Time, columnWidth float64) float64 {
	n := len(a.dates)
	if n < 2 {
		return 0
	}
	if !t.After(a.dates[0]) {
		return 0
	}
	if !t.Before(a.dates[n-1]) {
		return float64(n-1) * columnWidth
	}
	idx := a.bucketIndex(t)
	if idx < 0 || idx >= n-1 {
		return float64(max(idx, 0)) * columnWidth
	}
	span := a.dates[idx+1].Sub(a.dates[idx])
	if span <= 0 {
		return float64(idx) * columnWidth
	}
	percent := float64(t.Sub(a.dates[idx])) / float64(span)
	return float64(idx)*columnWidth + percent*columnWidth
}

// TimeToXRTL mirrors TimeToX for right-to-left layouts.
func (a Axis) TimeToXRTL(t time.Time, columnWidth float64) float64 {
	return float64(len(a.dates)-1)*columnWidth - a.TimeToX(t, columnWidth) + columnWidth
}

func (a Axis) bucketIndex(t time.Time) int {
	if a.index != nil {
		if idx, ok := a.index[bucketKey(t, a.mode)]; ok {
			return idx
		}
	}
	return slices.IndexFunc(a.dates, func(d time.Time) bool { return !d.Before(t) }) - 1
}

// XStep is the pixel width of one snap step of timeStep.
func (a Axis) XStep(timeStep time.Duration, columnWidth float64) float64 {
	if len(a.dates) < 2 || timeStep <= 0 {
		return 0
	}
	first, second := a.dates[0], a.dates[1]
	delta := second.Sub(first) + zoneCorrection(first, second)
	if delta <= 0 {
		return 0
	}
	return float64(timeStep) * columnWidth / float64(delta)
}

// RowToY centers a bar of barHeight inside its row.
func RowToY(row int, rowHeight, barHeight float64) float64 {
	return float64(row)*rowHeight + (rowHeight-barHeight)/2
}

// RowAt returns the row index under a chart-local y coordinate.
func RowAt(y, rowHeight float64) int {
	if rowHeight <= 0 {
		return 0
	}
	return int(math.Floor(y / rowHeight))
}

// XToTime maps a pixel back to a timestamp relative to an anchor, snapped to
// whole steps. A negative xStep walks the axis backwards (right-to-left).
func XToTime(x, originX float64, origin time.Time, xStep float64, timeStep time.Duration) time.Time {
	if xStep == 0 {
		return origin
	}
	steps := math.Round((x - originX) / xStep)
	out := origin.Add(time.Duration(steps) * timeStep)
	return out.Add(zoneCorrection(out, origin))
}

// zoneCorrection is the shift that keeps wall-clock time stable when result and
// anchor sit on different sides of a zone offset change.
func zoneCorrection(result, anchor time.Time) time.Duration {
	_, resultOffset := result.Zone()
	_, anchorOffset := anchor.Zone()
	return time.Duration(anchorOffset-resultOffset) * time.Second
}

func bucketKey(t time.Time, mode domain.ViewMode) int64 {
	y, m, d := t.Date()
	if mode == domain.ViewModeHour {
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location()).Unix()
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).Unix()
}
