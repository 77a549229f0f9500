// Package scheduling implements the smart time-slot engine: busy-interval
// aggregation, free-window discovery, candidate filtering, slot ranking and
// conflict-free batch placement.
package scheduling

import (
	"encoding/json"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Valid reports whether Start < End.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether t lies in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// IsZero reports whether both bounds are unset.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// TaskRef is the caller-supplied view of a task the engine needs. It is never mutated.
type TaskRef struct {
	ID          string
	Priority    int // 0..3
	NotesLength int // characters
	DueDate     *time.Time
	IsCompleted bool
}

// TimeSlot is a candidate placement for a task.
type TimeSlot struct {
	ID                 string
	Start              time.Time
	End                time.Time
	Duration           time.Duration
	TaskID             string
	Priority           int
	IsDeepWork         bool
	FragmentationScore float64
}

// Interval returns the slot's time range.
func (s TimeSlot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// MarshalJSON renders Duration as a Go duration string alongside whole minutes.
func (s TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                 string    `json:"id"`
		Start              time.Time `json:"start"`
		End                time.Time `json:"end"`
		Duration           string    `json:"duration"`
		DurationMinutes    int       `json:"duration_minutes"`
		TaskID             string    `json:"task_id,omitempty"`
		Priority           int       `json:"priority"`
		IsDeepWork         bool      `json:"is_deep_work"`
		FragmentationScore float64   `json:"fragmentation_score"`
	}{
		ID:                 s.ID,
		Start:              s.Start,
		End:                s.End,
		Duration:           s.Duration.String(),
		DurationMinutes:    int(s.Duration / time.Minute),
		TaskID:             s.TaskID,
		Priority:           s.Priority,
		IsDeepWork:         s.IsDeepWork,
		FragmentationScore: s.FragmentationScore,
	})
}

// Assignment is one committed placement produced by a batch.
type Assignment struct {
	TaskID string   `json:"task_id"`
	Slot   TimeSlot `json:"slot"`
}
