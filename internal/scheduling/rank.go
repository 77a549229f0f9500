package scheduling

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// deadlineBucket is the slack difference below which the deadline tier does not decide.
const deadlineBucket = time.Hour

// RankingPolicy holds the tunable constants of the fragmentation score.
type RankingPolicy struct {
	// PreferredHour is the hour of day slots are pulled towards.
	PreferredHour int
	// DurationWeight is divided by the slot length in seconds; longer slots score lower.
	DurationWeight float64
}

// DefaultRankingPolicy returns PreferredHour 10 and DurationWeight 1000.
func DefaultRankingPolicy() RankingPolicy {
	return RankingPolicy{PreferredHour: 10, DurationWeight: 1000}
}

// FragmentationScore is |hour(start) - PreferredHour| + DurationWeight / max(seconds(d), 1).
// Lower is better.
func (p RankingPolicy) FragmentationScore(start time.Time, d time.Duration) float64 {
	hourBias := math.Abs(float64(start.Hour() - p.PreferredHour))
	return hourBias + p.DurationWeight/math.Max(d.Seconds(), 1)
}

// Rank returns a copy of candidates ordered best-first:
//  1. higher priority;
//  2. earlier start, when the deadline slack of the two differs by more than an hour;
//  3. inside a deep-work window;
//  4. lower fragmentation score.
//
// Tier 2 keeps the larger slack on purpose: with a shared deadline a smaller
// slack means a later start, which would push work towards the deadline.
// Ties keep input order.
func Rank(candidates []TimeSlot, deadline time.Time) []TimeSlot {
	out := slices.Clone(candidates)
	slices.SortStableFunc(out, func(a, b TimeSlot) int {
		return compareSlots(a, b, deadline)
	})
	return out
}

func compareSlots(a, b TimeSlot, deadline time.Time) int {
	if a.Priority != b.Priority {
		return cmp.Compare(b.Priority, a.Priority)
	}

	slackA, slackB := deadline.Sub(a.Start), deadline.Sub(b.Start)
	if diff := slackA - slackB; diff > deadlineBucket || diff < -deadlineBucket {
		return cmp.Compare(slackB, slackA)
	}

	if a.IsDeepWork != b.IsDeepWork {
		if a.IsDeepWork {
			return -1
		}
		return 1
	}

	return cmp.Compare(a.FragmentationScore, b.FragmentationScore)
}
