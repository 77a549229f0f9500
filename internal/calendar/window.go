package calendar

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// ClockTime is a time of day in minutes after midnight. It is written "HH:MM"
// in YAML and JSON.
type ClockTime int

// MustClock builds a ClockTime from hour and minute.
func MustClock(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// String formats the time as HH:MM.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "24:00" is accepted as end of day.
func (c *ClockTime) UnmarshalText(text []byte) error {
	var h, m int
	if _, err := fmt.Sscanf(string(text), "%d:%d", &h, &m); err != nil {
		return fmt.Errorf("clock time %q: want HH:MM", string(text))
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return fmt.Errorf("clock time %q out of range", string(text))
	}
	*c = MustClock(h, m)
	return nil
}

// Span is a concrete [Start, End) range produced by a DailyWindow.
type Span struct {
	Start time.Time
	End   time.Time
}

// DailyWindow is a time-of-day range repeated every day. A window whose End
// is not after its Start wraps past midnight (e.g. 22:00-07:00).
type DailyWindow struct {
	Start ClockTime `yaml:"start" json:"start"`
	End   ClockTime `yaml:"end" json:"end"`
}

// Contains reports whether the time of day of t falls inside the window.
func (w DailyWindow) Contains(t time.Time) bool {
	m := ClockTime(MinuteOfDay(t))
	if w.Start < w.End {
		return m >= w.Start && m < w.End
	}
	return m >= w.Start || m < w.End
}

// Occurrences returns the spans the window covers on the given day.
func (w DailyWindow) Occurrences(day time.Time) []Span {
	if w.Start < w.End {
		return []Span{{Start: AtMinute(day, int(w.Start)), End: AtMinute(day, int(w.End))}}
	}
	var out []Span
	if w.End > 0 {
		out = append(out, Span{Start: StartOfDay(day), End: AtMinute(day, int(w.End))})
	}
	if w.Start < minutesPerDay {
		out = append(out, Span{Start: AtMinute(day, int(w.Start)), End: AtMinute(day, minutesPerDay)})
	}
	return out
}

// Validate validates a single window.
func (w DailyWindow) Validate() error {
	if w.Start < 0 || w.Start > minutesPerDay || w.End < 0 || w.End > minutesPerDay {
		return fmt.Errorf("window %s-%s out of range", w.Start, w.End)
	}
	if w.Start == w.End {
		return fmt.Errorf("window %s-%s is empty", w.Start, w.End)
	}
	return nil
}
