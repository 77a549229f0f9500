// Package calendar holds the date arithmetic the scheduler needs, plus the
// repeating time-of-day windows used by preferences.
//
// All functions operate in the location of the times they are given.
package calendar

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

// Now returns the current wall-clock time.
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Used in tests and dry runs.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AtHour returns the instant at hour:00 on the day containing day.
// Hour 24 resolves to midnight of the following day.
func AtHour(day time.Time, hour int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
}

// AtMinute returns the instant minute minutes after midnight of the day containing day.
func AtMinute(day time.Time, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, minute, 0, 0, day.Location())
}

// MinuteOfDay returns the number of minutes elapsed since local midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Days returns the local midnight of every calendar day touched by [start, end).
// It returns nil when end is not after start.
func Days(start, end time.Time) []time.Time {
	if !end.After(start) {
		return nil
	}
	var out []time.Time
	for d := StartOfDay(start); d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
