package scheduling

import "time"

// Candidates turns free windows into slots usable by task. A window must be at
// least required long and must start before deadline; the slot may still run
// past the deadline. Each slot starts at its window's start and lasts
// min(window, required, prefs.MaxSlotDuration).
func Candidates(windows []Interval, required time.Duration, deadline time.Time, task TaskRef, prefs Preferences, policy RankingPolicy, newID func() string) []TimeSlot {
	var out []TimeSlot
	for _, w := range windows {
		if w.Duration() < required || !w.Start.Before(deadline) {
			continue
		}
		d := min(w.Duration(), required, prefs.MaxSlotDuration)
		out = append(out, TimeSlot{
			ID:                 newID(),
			Start:              w.Start,
			End:                w.Start.Add(d),
			Duration:           d,
			TaskID:             task.ID,
			Priority:           task.Priority,
			IsDeepWork:         prefs.InDeepWork(w.Start),
			FragmentationScore: policy.FragmentationScore(w.Start, d),
		})
	}
	return out
}
