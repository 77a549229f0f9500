package scheduling

import (
	"testing"
	"time"
)

func TestBusyIntervals(t *testing.T) {
	rng := iv(0, 0, 23, 0)
	scheduled := []TaskRef{
		{ID: "late", Priority: 3, DueDate: ptr(at(15, 0))},
		{ID: "done", Priority: 3, DueDate: ptr(at(10, 0)), IsCompleted: true},
		{ID: "undated", Priority: 3},
		{ID: "outside", Priority: 3, DueDate: ptr(at(23, 30))},
		{ID: "early", Priority: 2, DueDate: ptr(at(9, 0))},
	}
	external := []Interval{
		iv(11, 0, 12, 0),
		// Overlaps "early" and is kept as is.
		iv(9, 15, 9, 45),
		// Empty and outside the range: both dropped.
		iv(13, 0, 13, 0),
		iv(23, 30, 23, 50),
	}

	got := BusyIntervals(rng, external, scheduled, HeuristicEstimator{})
	want := []Interval{
		iv(9, 0, 9, 30),
		iv(9, 15, 9, 45),
		iv(11, 0, 12, 0),
		iv(15, 0, 16, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d intervals %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Errorf("interval %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBusyIntervals_PartialOverlapWithRangeKept(t *testing.T) {
	rng := iv(9, 0, 18, 0)
	external := []Interval{iv(8, 0, 9, 30)}
	got := BusyIntervals(rng, external, nil, HeuristicEstimator{})
	if len(got) != 1 {
		t.Fatalf("got %v, want the straddling event", got)
	}
}

func TestBusyIntervals_UsesNotesLength(t *testing.T) {
	rng := iv(0, 0, 23, 0)
	got := BusyIntervals(rng, nil, []TaskRef{{ID: "a", Priority: 3, NotesLength: 500, DueDate: ptr(at(9, 0))}}, HeuristicEstimator{})
	if len(got) != 1 || got[0].Duration() != 2*time.Hour {
		t.Fatalf("got %v, want a single 2h interval", got)
	}
}
