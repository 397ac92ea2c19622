package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Shift is one working window inside a day, expressed as wall-clock "HH:MM" times.
type Shift struct {
	Start      string `json:"start" yaml:"start" toml:"start"`
	Finish     string `json:"finish" yaml:"finish" toml:"finish"`
	WithDayOff bool   `json:"with_day_off,omitempty" yaml:"with_day_off,omitempty" toml:"with_day_off"`
	NextDayEnd bool   `json:"next_day_end,omitempty" yaml:"next_day_end,omitempty" toml:"next_day_end"`
}

func (s Shift) Validate() error {
	if _, _, err := ParseClock(s.Start); err != nil {
		return fmt.Errorf("%w: start %q", ErrInvalidShift, s.Start)
	}
	if _, _, err := ParseClock(s.Finish); err != nil {
		return fmt.Errorf("%w: finish %q", ErrInvalidShift, s.Finish)
	}
	return nil
}

// RowShifts binds the shift windows that apply to one grid row.
type RowShifts struct {
	Row    int     `json:"row" yaml:"row"`
	Shifts []Shift `json:"shifts" yaml:"shifts"`
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(raw string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, ErrInvalidShift
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, ErrInvalidShift
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidShift
	}
	return hour, minute, nil
}
