package timeline

import (
	"math"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
)

// Truncate returns the start of the bucket holding t.
func Truncate(t time.Time, mode domain.ViewMode) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch mode {
	case domain.ViewModeHour:
		return time.Date(y, m, d, t.Hour(), 0, 0, 0, loc)
	case domain.ViewModeQuarterDay:
		return time.Date(y, m, d, t.Hour()/6*6, 0, 0, 0, loc)
	case domain.ViewModeHalfDay:
		return time.Date(y, m, d, t.Hour()/12*12, 0, 0, 0, loc)
	case domain.ViewModeWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	case domain.ViewModeMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case domain.ViewModeQuarterYear:
		first := time.Month((int(m)-1)/3*3 + 1)
		return time.Date(y, first, 1, 0, 0, 0, 0, loc)
	case domain.ViewModeYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// Step advances t by n buckets of the view mode.
func Step(t time.Time, mode domain.ViewMode, n int) time.Time {
	switch mode {
	case domain.ViewModeHour:
		return t.Add(time.Duration(n) * time.Hour)
	case domain.ViewModeQuarterDay:
		return t.Add(time.Duration(n) * 6 * time.Hour)
	case domain.ViewModeHalfDay:
		return t.Add(time.Duration(n) * 12 * time.Hour)
	case domain.ViewModeWeek:
		return t.AddDate(0, 0, 7*n)
	case domain.ViewModeMonth:
		return t.AddDate(0, n, 0)
	case domain.ViewModeQuarterYear:
		return t.AddDate(0, 3*n, 0)
	case domain.ViewModeYear:
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// DateRange returns the earliest start and latest end across tasks.
func DateRange(tasks []domain.Task) (time.Time, time.Time) {
	var start, end time.Time
	for i, task := range tasks {
		if i == 0 || task.Start.Before(start) {
			start = task.Start
		}
		if i == 0 || task.End.After(end) {
			end = task.End
		}
	}
	return start, end
}

// SeedAxis emits one bucket per step between start and end, padded by
// preSteps buckets on both sides.
func SeedAxis(start, end time.Time, mode domain.ViewMode, preSteps int) (Axis, error) {
	if preSteps < 0 {
		preSteps = 0
	}
	if end.Before(start) {
		start, end = end, start
	}
	from := Step(Truncate(start, mode), mode, -preSteps)
	to := Step(Truncate(end, mode), mode, preSteps+1)
	dates := []time.Time{from}
	for d := Step(from, mode, 1); !d.After(to); d = Step(d, mode, 1) {
		dates = append(dates, d)
	}
	return NewAxis(dates, mode)
}

// CurrentTimeX places the "now" marker. It reports false for coarse view modes
// or when now is outside the axis.
func (a Axis) CurrentTimeX(now time.Time, columnWidth float64, rtl bool) (float64, bool) {
	if len(a.dates) < 2 || !a.mode.ShowsCurrentTime() {
		return 0, false
	}
	for i, d := range a.dates {
		bucketStart := Truncate(d, a.mode)
		bucketEnd := Step(bucketStart, a.mode, 1)
		if now.Before(bucketStart) || !now.Before(bucketEnd) {
			continue
		}
		progress := float64(now.Sub(bucketStart)) / float64(bucketEnd.Sub(bucketStart))
		x := float64(i)*columnWidth + progress*columnWidth
		if rtl {
			x = a.Width(columnWidth) - x
		}
		return x, true
	}
	return 0, false
}

// VisibleRange returns the bucket indexes intersecting a scrolled viewport.
func VisibleRange(scrollX, viewportWidth, columnWidth float64) (int, int) {
	if columnWidth <= 0 {
		return 0, 0
	}
	startIndex := int(math.Floor(scrollX / columnWidth))
	endIndex := int(math.Ceil((scrollX + viewportWidth) / columnWidth))
	return startIndex, endIndex
}
