package domain

import "strings"

// ViewMode selects the width of one date-axis bucket.
type ViewMode string

const (
	ViewModeHour        ViewMode = "Hour"
	ViewModeQuarterDay  ViewMode = "Quarter Day"
	ViewModeHalfDay     ViewMode = "Half Day"
	ViewModeDay         ViewMode = "Day"
	ViewModeWeek        ViewMode = "Week"
	ViewModeMonth       ViewMode = "Month"
	ViewModeQuarterYear ViewMode = "QuarterYear"
	ViewModeYear        ViewMode = "Year"
)

var viewModes = []ViewMode{
	ViewModeHour,
	ViewModeQuarterDay,
	ViewModeHalfDay,
	ViewModeDay,
	ViewModeWeek,
	ViewModeMonth,
	ViewModeQuarterYear,
	ViewModeYear,
}

// ViewModes lists every supported mode from finest to coarsest.
func ViewModes() []ViewMode {
	out := make([]ViewMode, len(viewModes))
	copy(out, viewModes)
	return out
}

// ParseViewMode accepts the canonical names plus compact spellings such as "quarter-day".
func ParseViewMode(raw string) (ViewMode, error) {
	norm := normalizeModeName(raw)
	for _, mode := range viewModes {
		if normalizeModeName(string(mode)) == norm {
			return mode, nil
		}
	}
	return "", ErrInvalidViewMode
}

// Indexed reports whether buckets are looked up through an exact index map.
func (m ViewMode) Indexed() bool {
	return m == ViewModeHour || m == ViewModeDay
}

// ShowsCurrentTime reports whether the current-time marker is drawn.
func (m ViewMode) ShowsCurrentTime() bool {
	switch m {
	case ViewModeHour, ViewModeQuarterDay, ViewModeHalfDay, ViewModeDay:
		return true
	default:
		return false
	}
}

func normalizeModeName(raw string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "_", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
}
