package scheduling

import (
	"testing"
	"time"

	"github.com/starford/sowilo/internal/calendar"
)

func TestCandidates(t *testing.T) {
	prefs := workPrefs()
	prefs.MaxSlotDuration = 90 * time.Minute
	prefs.DeepWorkWindows = []calendar.DailyWindow{{Start: calendar.MustClock(9, 0), End: calendar.MustClock(12, 0)}}
	policy := DefaultRankingPolicy()
	task := TaskRef{ID: "t1", Priority: 2}

	windows := []Interval{
		iv(9, 0, 9, 20),  // too short for 30m
		iv(10, 0, 14, 0), // clipped to required
		iv(15, 0, 16, 0), // starts before deadline, may overrun
		iv(16, 0, 17, 0), // starts at deadline, rejected
	}
	got := Candidates(windows, 30*time.Minute, at(16, 0), task, prefs, policy, sequentialIDs())
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}

	first := got[0]
	if !first.Start.Equal(at(10, 0)) || first.Duration != 30*time.Minute || !first.End.Equal(at(10, 30)) {
		t.Errorf("first = %+v", first)
	}
	if first.TaskID != "t1" || first.Priority != 2 || first.ID != "slot-1" {
		t.Errorf("first identity = %+v", first)
	}
	if !first.IsDeepWork {
		t.Error("10:00 should be deep work")
	}
	if got[1].IsDeepWork {
		t.Error("15:00 should not be deep work")
	}
	wantScore := 0 + 1000.0/1800
	if first.FragmentationScore != wantScore {
		t.Errorf("score = %v, want %v", first.FragmentationScore, wantScore)
	}
}

func TestCandidates_ClipsToMaxSlot(t *testing.T) {
	prefs := workPrefs()
	prefs.MaxSlotDuration = time.Hour
	got := Candidates([]Interval{iv(9, 0, 18, 0)}, 3*time.Hour, at(18, 0), TaskRef{ID: "big", Priority: 3}, prefs, DefaultRankingPolicy(), sequentialIDs())
	if len(got) != 1 {
		t.Fatalf("got %v", got)
	}
	if got[0].Duration != time.Hour || got[0].End.Sub(got[0].Start) != got[0].Duration {
		t.Errorf("slot = %+v, want 1h clipped", got[0])
	}
}

func TestCandidates_WindowShorterThanRequiredRejectedEvenIfMaxIsSmaller(t *testing.T) {
	prefs := workPrefs()
	prefs.MaxSlotDuration = 30 * time.Minute
	got := Candidates([]Interval{iv(9, 0, 10, 0)}, 2*time.Hour, at(18, 0), TaskRef{ID: "x"}, prefs, DefaultRankingPolicy(), sequentialIDs())
	if len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}
