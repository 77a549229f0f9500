package scheduling

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/calendar"
)

// Preferences is the scheduling policy. A value is treated as immutable for
// the whole of one scheduling pass.
type Preferences struct {
	DeepWorkWindows  []calendar.DailyWindow `yaml:"deep_work_windows" json:"deep_work_windows"`
	QuietHours       []calendar.DailyWindow `yaml:"quiet_hours" json:"quiet_hours"`
	WorkDayStartHour int                    `yaml:"work_day_start_hour" json:"work_day_start_hour"`
	WorkDayEndHour   int                    `yaml:"work_day_end_hour" json:"work_day_end_hour"`
	MinSlotDuration  time.Duration          `yaml:"min_slot_duration" json:"-"`
	MaxSlotDuration  time.Duration          `yaml:"max_slot_duration" json:"-"`
}

// DefaultPreferences returns the policy used when nothing is stored.
func DefaultPreferences() Preferences {
	return Preferences{
		DeepWorkWindows:  []calendar.DailyWindow{{Start: calendar.MustClock(9, 0), End: calendar.MustClock(12, 0)}},
		QuietHours:       []calendar.DailyWindow{{Start: calendar.MustClock(22, 0), End: calendar.MustClock(7, 0)}},
		WorkDayStartHour: 9,
		WorkDayEndHour:   18,
		MinSlotDuration:  15 * time.Minute,
		MaxSlotDuration:  2 * time.Hour,
	}
}

// Validate validates the preferences.
func (p *Preferences) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.WorkDayStartHour, validation.Min(0), validation.Max(23)),
		validation.Field(&p.WorkDayEndHour, validation.Min(1), validation.Max(24)),
		validation.Field(&p.MinSlotDuration, validation.Required, validation.Min(time.Minute)),
		validation.Field(&p.MaxSlotDuration, validation.Required),
	); err != nil {
		return err
	}
	if p.WorkDayStartHour >= p.WorkDayEndHour {
		return fmt.Errorf("work day start hour %d must be before end hour %d", p.WorkDayStartHour, p.WorkDayEndHour)
	}
	if p.MaxSlotDuration < p.MinSlotDuration {
		return fmt.Errorf("max slot duration %s is shorter than min slot duration %s", p.MaxSlotDuration, p.MinSlotDuration)
	}
	var errs []error
	for i, w := range p.DeepWorkWindows {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("deep_work_windows[%d]: %w", i, err))
		}
	}
	for i, w := range p.QuietHours {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("quiet_hours[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// InDeepWork reports whether t falls inside any deep-work window.
func (p Preferences) InDeepWork(t time.Time) bool {
	for _, w := range p.DeepWorkWindows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// QuietIntervals returns every quiet-hour occurrence overlapping rng, sorted by start.
func (p Preferences) QuietIntervals(rng Interval) []Interval {
	var out []Interval
	for _, day := range calendar.Days(rng.Start, rng.End) {
		for _, w := range p.QuietHours {
			for _, sp := range w.Occurrences(day) {
				if iv := (Interval{Start: sp.Start, End: sp.End}); iv.Overlaps(rng) {
					out = append(out, iv)
				}
			}
		}
	}
	sortByStart(out)
	return out
}

// PreferencesProvider supplies the current preferences snapshot.
type PreferencesProvider interface {
	Current() Preferences
}

// StaticPreferences is a PreferencesProvider that never changes.
type StaticPreferences Preferences

// Current returns the fixed preferences.
func (s StaticPreferences) Current() Preferences {
	return Preferences(s)
}
