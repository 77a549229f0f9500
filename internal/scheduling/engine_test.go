package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/calendar"
)

type engineFixture struct {
	cal      *fakeCalendar
	tasks    *fakeTasks
	recorder *captureRecorder
	engine   *Engine
}

func newFixture(t *testing.T, now time.Time, cfg Config, prefs Preferences) *engineFixture {
	t.Helper()
	f := &engineFixture{
		cal:      &fakeCalendar{},
		tasks:    &fakeTasks{},
		recorder: &captureRecorder{},
	}
	f.engine = NewEngine(f.cal, f.tasks, StaticPreferences(prefs), cfg,
		WithClock(calendar.FixedClock(now)),
		WithIDGenerator(sequentialIDs()),
		WithRecorder(f.recorder),
		WithLogger(quietLogger()),
	)
	return f
}

// workDayConfig searches from 08:00 to 18:00 of the fixture day.
func workDayConfig() Config {
	cfg := DefaultConfig()
	cfg.SearchWindow = 10 * time.Hour
	return cfg
}

func TestSuggestSlots_LunchScenario(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.events = []Interval{iv(12, 0, 13, 0)}

	slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 3}, SuggestOptions{Deadline: at(18, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	top := slots[0]
	if !top.Start.Equal(at(9, 0)) || top.Duration != time.Hour {
		t.Errorf("top = %s/%v, want 09:00/1h", top.Start.Format("15:04"), top.Duration)
	}
	if !top.IsDeepWork {
		t.Error("top slot should be in the deep-work window")
	}
	if !slots[1].Start.Equal(at(13, 0)) {
		t.Errorf("second = %s, want 13:00", slots[1].Start.Format("15:04"))
	}
	if len(f.tasks.commits) != 0 {
		t.Error("SuggestSlots must not commit")
	}

	if len(f.recorder.generated) != 1 {
		t.Fatalf("recorded %d generation events, want 1", len(f.recorder.generated))
	}
	ev := f.recorder.generated[0]
	if ev.Priority != 3 || ev.SlotsFound != 2 || ev.RequiredDuration != time.Hour {
		t.Errorf("event = %+v", ev)
	}
}

func TestSuggestSlots_CapsSuggestions(t *testing.T) {
	f := newFixture(t, at(8, 0), DefaultConfig(), DefaultPreferences())

	slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 1}, SuggestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if got := f.recorder.generated[0].SlotsFound; got != 7 {
		t.Errorf("slots found = %d, want 7 (one per day)", got)
	}
}

func TestSuggestSlots_ExplicitRangeUsesClockZone(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, berlin)
	f := newFixture(t, now, DefaultConfig(), DefaultPreferences())

	rng := Interval{Start: now.UTC(), End: now.Add(24 * time.Hour).UTC()}
	slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 2},
		SuggestOptions{SearchRange: rng, Deadline: rng.End})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	top := slots[0]
	if want := time.Date(2026, 3, 2, 9, 0, 0, 0, berlin); !top.Start.Equal(want) {
		t.Errorf("start = %s, want 09:00 CET", top.Start.In(berlin).Format("15:04"))
	}
	if top.Start.Location() != berlin {
		t.Errorf("start location = %s, want CET", top.Start.Location())
	}
	if !top.IsDeepWork {
		t.Error("09:00 CET is inside the deep-work window")
	}
	if want := DefaultRankingPolicy().FragmentationScore(time.Date(2026, 3, 2, 9, 0, 0, 0, berlin), top.Duration); top.FragmentationScore != want {
		t.Errorf("score = %v, want %v", top.FragmentationScore, want)
	}
}

func TestSuggestSlots_RequiredDurationOverride(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.events = []Interval{iv(10, 0, 17, 0)}

	slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 1},
		SuggestOptions{RequiredDuration: 90 * time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("got %v, want none: no free window fits 90m", slots)
	}
}

func TestSuggestSlots_ExplicitRange(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())

	slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 2},
		SuggestOptions{SearchRange: iv(14, 0, 16, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || !slots[0].Start.Equal(at(14, 0)) {
		t.Errorf("got %v, want one slot at 14:00", slots)
	}
}

func TestSuggestSlots_ExcludesOwnBooking(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.tasks.scheduled = []TaskRef{{ID: "t1", Priority: 3, DueDate: ptr(at(9, 0))}}

	own, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 3}, SuggestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(own) == 0 || !own[0].Start.Equal(at(9, 0)) {
		t.Errorf("own booking should not block: got %v", own)
	}

	other, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t2", Priority: 3}, SuggestOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(other) == 0 || !other[0].Start.Equal(at(10, 0)) {
		t.Errorf("other task should start after t1: got %v", other)
	}
}

func TestSuggestSlots_QuietHours(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.WorkDayStartHour = 6
	prefs.WorkDayEndHour = 23
	cfg := DefaultConfig()
	cfg.SearchWindow = 19 * time.Hour

	for _, tt := range []struct {
		respect bool
		want    time.Time
	}{
		{false, at(6, 0)},
		{true, at(7, 0)},
	} {
		cfg.RespectQuietHours = tt.respect
		f := newFixture(t, at(5, 0), cfg, prefs)
		slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 2}, SuggestOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if len(slots) == 0 || !slots[0].Start.Equal(tt.want) {
			t.Errorf("respect=%v: got %v, want first slot at %s", tt.respect, slots, tt.want.Format("15:04"))
		}
	}
}

func TestSuggestSlots_DegradesOnSourceFailure(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.err = errors.New("calendar down")
	f.tasks.fetchErr = errors.New("db locked")

	slots, err := f.engine.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 2}, SuggestOptions{})
	if err != nil {
		t.Fatalf("source failures should degrade, got %v", err)
	}
	if len(slots) != 1 || !slots[0].Start.Equal(at(9, 0)) {
		t.Errorf("got %v, want the whole work day free", slots)
	}
}

func TestSuggestSlots_NilCalendar(t *testing.T) {
	e := NewEngine(nil, &fakeTasks{}, StaticPreferences(DefaultPreferences()), workDayConfig(),
		WithClock(calendar.FixedClock(at(8, 0))), WithLogger(quietLogger()))
	slots, err := e.SuggestSlots(context.Background(), TaskRef{ID: "t1", Priority: 2}, SuggestOptions{})
	if err != nil || len(slots) != 1 {
		t.Fatalf("got %v, %v", slots, err)
	}
}

func TestAutoSchedule(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.events = []Interval{iv(12, 0, 13, 0)}

	slot, err := f.engine.AutoSchedule(context.Background(), TaskRef{ID: "t1", Priority: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !slot.Start.Equal(at(9, 0)) {
		t.Errorf("slot = %s, want 09:00", slot.Start.Format("15:04"))
	}
	if got := f.tasks.commits["t1"]; !got.Equal(at(9, 0)) {
		t.Errorf("committed %s, want 09:00", got)
	}
	if len(f.recorder.scheduled) != 1 {
		t.Fatalf("recorded %d schedule events, want 1", len(f.recorder.scheduled))
	}
	ev := f.recorder.scheduled[0]
	if ev.TaskID != "t1" || ev.Priority != 3 || !ev.SlotStart.Equal(at(9, 0)) || !ev.IsDeepWork {
		t.Errorf("event = %+v", ev)
	}
}

func TestAutoSchedule_NoSlot(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.events = []Interval{iv(8, 0, 18, 0)}

	_, err := f.engine.AutoSchedule(context.Background(), TaskRef{ID: "t1", Priority: 3})
	if !errors.Is(err, apperr.ErrNoSlotAvailable) {
		t.Fatalf("err = %v, want ErrNoSlotAvailable", err)
	}
	if len(f.tasks.commits) != 0 || len(f.recorder.scheduled) != 0 {
		t.Error("nothing should be committed")
	}
}

func TestAutoSchedule_Cancelled(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.AutoSchedule(ctx, TaskRef{ID: "t1", Priority: 3})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(f.tasks.commits) != 0 {
		t.Error("cancelled request must not commit")
	}
}

func TestAutoSchedule_CommitError(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.tasks.commitErr = apperr.ErrNotFound

	_, err := f.engine.AutoSchedule(context.Background(), TaskRef{ID: "ghost", Priority: 3})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want wrapped ErrNotFound", err)
	}
	if len(f.recorder.scheduled) != 0 {
		t.Error("failed commit must not be reported")
	}
}

func TestAutoScheduleBatch_NoOverlap(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.events = []Interval{iv(12, 0, 13, 0)}

	tasks := []TaskRef{{ID: "a", Priority: 3}, {ID: "b", Priority: 3}}
	got, err := f.engine.AutoScheduleBatch(context.Background(), tasks)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d assignments, want 2", len(got))
	}
	if got[0].TaskID != "a" || got[1].TaskID != "b" {
		t.Errorf("order = %s, %s", got[0].TaskID, got[1].TaskID)
	}
	if got[0].Slot.Interval().Overlaps(got[1].Slot.Interval()) {
		t.Errorf("assignments overlap: %v and %v", got[0].Slot.Interval(), got[1].Slot.Interval())
	}
	if !got[0].Slot.Start.Equal(at(9, 0)) || !got[1].Slot.Start.Equal(at(10, 0)) {
		t.Errorf("starts = %s, %s", got[0].Slot.Start.Format("15:04"), got[1].Slot.Start.Format("15:04"))
	}
}

func TestAutoScheduleBatch_PriorityOrderAndDistinctDurations(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	tasks := []TaskRef{
		{ID: "low", Priority: 1},
		{ID: "long", Priority: 2, NotesLength: 1000},
		{ID: "high", Priority: 3},
		{ID: "mid", Priority: 2, DueDate: ptr(at(17, 0))},
	}

	got, err := f.engine.AutoScheduleBatch(context.Background(), tasks)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"high", "mid", "long", "low"}
	for i, id := range wantOrder {
		if got[i].TaskID != id {
			t.Fatalf("assignment %d = %s, want %s", i, got[i].TaskID, id)
		}
		if f.tasks.order[i] != id {
			t.Fatalf("commit %d = %s, want %s", i, f.tasks.order[i], id)
		}
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if got[i].Slot.Interval().Overlaps(got[j].Slot.Interval()) {
				t.Errorf("%s %v overlaps %s %v", got[i].TaskID, got[i].Slot.Interval(), got[j].TaskID, got[j].Slot.Interval())
			}
		}
	}
}

func TestAutoScheduleBatch_MovedTaskFreesOldSlot(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	// "a" currently sits at 15:00; the batch moves it and its old hour is free again.
	f.tasks.scheduled = []TaskRef{{ID: "a", Priority: 3, DueDate: ptr(at(15, 0))}}
	f.cal.events = []Interval{iv(8, 0, 15, 0), iv(17, 0, 18, 0)}

	got, err := f.engine.AutoScheduleBatch(context.Background(), []TaskRef{
		{ID: "a", Priority: 3},
		{ID: "b", Priority: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !got[0].Slot.Start.Equal(at(15, 0)) || !got[1].Slot.Start.Equal(at(16, 0)) {
		t.Errorf("starts = %s, %s, want 15:00, 16:00",
			got[0].Slot.Start.Format("15:04"), got[1].Slot.Start.Format("15:04"))
	}
}

func TestAutoScheduleBatch_FailFast(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	f.cal.events = []Interval{iv(9, 0, 17, 0)}

	got, err := f.engine.AutoScheduleBatch(context.Background(), []TaskRef{
		{ID: "a", Priority: 3},
		{ID: "b", Priority: 3},
		{ID: "c", Priority: 1},
	})
	if !errors.Is(err, apperr.ErrNoSlotAvailable) {
		t.Fatalf("err = %v, want ErrNoSlotAvailable", err)
	}
	if len(got) != 1 || got[0].TaskID != "a" || !got[0].Slot.Start.Equal(at(17, 0)) {
		t.Fatalf("got %+v, want only a at 17:00", got)
	}
	if len(f.tasks.commits) != 1 {
		t.Errorf("commits = %v, want only a (no rollback, no further tasks)", f.tasks.commits)
	}
}

func TestAutoScheduleBatch_Empty(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	got, err := f.engine.AutoScheduleBatch(context.Background(), nil)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestAutoScheduleBatch_Cancelled(t *testing.T) {
	f := newFixture(t, at(8, 0), workDayConfig(), DefaultPreferences())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := f.engine.AutoScheduleBatch(ctx, []TaskRef{{ID: "a", Priority: 3}})
	if !errors.Is(err, context.Canceled) || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestOrderForBatch(t *testing.T) {
	in := []TaskRef{
		{ID: "p1", Priority: 1},
		{ID: "p3-late", Priority: 3, DueDate: ptr(at(15, 0))},
		{ID: "p3-none", Priority: 3},
		{ID: "p3-early", Priority: 3, DueDate: ptr(at(9, 0))},
		{ID: "p3-none-2", Priority: 3},
	}
	got := OrderForBatch(in)
	want := []string{"p3-early", "p3-late", "p3-none", "p3-none-2", "p1"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order[%d] = %s, want %s (full: %v)", i, got[i].ID, id, got)
		}
	}
	if in[0].ID != "p1" {
		t.Error("OrderForBatch mutated its input")
	}
}
