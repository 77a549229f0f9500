package scheduling

import "github.com/starford/sowilo/internal/calendar"

// FreeWindows returns, day by day, the parts of the work day inside rng that no
// busy interval covers and that last at least prefs.MinSlotDuration.
//
// busy must be sorted by start (BusyIntervals guarantees this). Overlapping
// entries are fine; unsorted input does not panic but may yield windows that
// overlap busy time.
func FreeWindows(rng Interval, busy []Interval, prefs Preferences) []Interval {
	var out []Interval
	emit := func(iv Interval) {
		if iv.Valid() && iv.Duration() >= prefs.MinSlotDuration {
			out = append(out, iv)
		}
	}

	for _, day := range calendar.Days(rng.Start, rng.End) {
		workStart := laterOf(calendar.AtHour(day, prefs.WorkDayStartHour), rng.Start)
		workEnd := earlierOf(calendar.AtHour(day, prefs.WorkDayEndHour), rng.End)
		if !workStart.Before(workEnd) {
			continue
		}
		bound := Interval{Start: workStart, End: workEnd}

		cursor := workStart
		for _, b := range busy {
			if !b.Overlaps(bound) {
				continue
			}
			if cursor.Before(b.Start) {
				emit(Interval{Start: cursor, End: b.Start})
			}
			cursor = laterOf(cursor, b.End)
			if !cursor.Before(workEnd) {
				break
			}
		}
		if cursor.Before(workEnd) {
			emit(Interval{Start: cursor, End: workEnd})
		}
	}
	return out
}
