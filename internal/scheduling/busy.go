package scheduling

import (
	"slices"
	"time"
)

// BusyIntervals merges external calendar events and due, incomplete tasks into
// one list sorted ascending by start. Overlaps are kept: FreeWindows only needs
// the ordering to advance its cursor.
func BusyIntervals(rng Interval, external []Interval, scheduled []TaskRef, est Estimator) []Interval {
	out := make([]Interval, 0, len(external)+len(scheduled))
	for _, task := range scheduled {
		if task.IsCompleted || task.DueDate == nil || !rng.Contains(*task.DueDate) {
			continue
		}
		start := *task.DueDate
		out = append(out, Interval{Start: start, End: start.Add(est.Estimate(task))})
	}
	for _, ev := range external {
		if ev.Valid() && ev.Overlaps(rng) {
			out = append(out, ev)
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(ivs []Interval) {
	slices.SortStableFunc(ivs, func(a, b Interval) int {
		return a.Start.Compare(b.Start)
	})
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
