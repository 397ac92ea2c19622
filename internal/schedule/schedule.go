// Package schedule derives non-working periods from per-row shift windows.
package schedule

import (
	"slices"
	"time"

	"github.com/hylla/tidslinje/internal/domain"
	"github.com/hylla/tidslinje/internal/timeline"
)

// Period is a closed non-working interval.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Periods lists the non-working intervals of every day between from and to,
// both inclusive.
func Periods(shifts []domain.Shift, from, to time.Time) ([]Period, error) {
	for _, s := range shifts {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	var nightShift *domain.Shift
	dayOff := false
	for i := range shifts {
		if shifts[i].NextDayEnd && nightShift == nil {
			nightShift = &shifts[i]
		}
		dayOff = dayOff || shifts[i].WithDayOff
	}

	var out []Period
	for d := startOfDay(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		dayEnd := endOfDay(d)
		switch {
		case !isWeekend(d) || dayOff:
			out = append(out, daily(shifts, d)...)
		case nightShift != nil && d.Weekday() == time.Saturday:
			out = append(out, Period{Start: clockOn(d, nightShift.Finish, 0), End: dayEnd})
		default:
			out = append(out, Period{Start: d, End: dayEnd})
		}
	}
	return out, nil
}

type edge struct {
	at    time.Time
	start bool
}

func daily(shifts []domain.Shift, d time.Time) []Period {
	edges := make([]edge, 0, 2*len(shifts))
	var nightEnd time.Time
	for _, s := range shifts {
		start := clockOn(d, s.Start, 0)
		end := clockOn(d, s.Finish, 0)
		if s.NextDayEnd {
			end = clockOn(d, s.Finish, 1)
			nightEnd = end
		}
		edges = append(edges, edge{at: start, start: true}, edge{at: end})
	}
	slices.SortStableFunc(edges, func(a, b edge) int { return a.at.Compare(b.at) })

	lastEnd := d
	if !nightEnd.IsZero() {
		// The previous evening's night shift runs into this morning.
		lastEnd = time.Date(d.Year(), d.Month(), d.Day(), nightEnd.Hour(), nightEnd.Minute(), 0, 0, d.Location())
	}
	dayEnd := endOfDay(d)

	var out []Period
	open := 0
	for _, e := range edges {
		if e.start {
			if open == 0 && e.at.After(lastEnd) {
				out = append(out, Period{Start: lastEnd, End: e.at})
			}
			open++
			continue
		}
		open--
		if open == 0 {
			lastEnd = e.at
		}
	}
	if lastEnd.Before(dayEnd) {
		out = append(out, Period{Start: lastEnd, End: dayEnd})
	}
	return out
}

// Rect is a non-working period positioned on one grid row.
type Rect struct {
	Row    int     `json:"row"`
	X1     float64 `json:"x1"`
	X2     float64 `json:"x2"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
}

// Rects positions the periods of every row on the axis. Rows with invalid
// shifts fail the whole call.
func Rects(rows []domain.RowShifts, axis timeline.Axis, columnWidth, rowHeight float64, rtl bool) ([]Rect, error) {
	var out []Rect
	for _, row := range rows {
		periods, err := Periods(row.Shifts, axis.Start(), axis.End())
		if err != nil {
			return nil, err
		}
		y := timeline.RowToY(row.Row, rowHeight, rowHeight)
		for _, p := range periods {
			var x1, x2 float64
			if rtl {
				x1, x2 = axis.TimeToXRTL(p.End, columnWidth), axis.TimeToXRTL(p.Start, columnWidth)
			} else {
				x1, x2 = axis.TimeToX(p.Start, columnWidth), axis.TimeToX(p.End, columnWidth)
			}
			if x2 <= x1 {
				continue
			}
			out = append(out, Rect{Row: row.Row, X1: x1, X2: x2, Y: y, Height: rowHeight})
		}
	}
	return out, nil
}

// Hit returns the rectangle on row whose span holds x, left edge inclusive.
func Hit(rects []Rect, row int, x float64) (Rect, bool) {
	for _, r := range rects {
		if r.Row == row && x >= r.X1 && x < r.X2 {
			return r, true
		}
	}
	return Rect{}, false
}

func isWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// clockOn places an "HH:MM" time on day d plus addDays. The clock is assumed valid.
func clockOn(d time.Time, clock string, addDays int) time.Time {
	h, m, _ := domain.ParseClock(clock)
	return time.Date(d.Year(), d.Month(), d.Day()+addDays, h, m, 0, 0, d.Location())
}
