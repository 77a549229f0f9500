package taskservice_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/store"
	"github.com/starford/sowilo/internal/taskservice"
	"github.com/starford/sowilo/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) PublishTaskEvent(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "task."+kind+":"+id)
}

func (r *recordingNotifier) PublishCalendarEvent(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "event."+kind+":"+id)
}

func (r *recordingNotifier) has(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == want {
			return true
		}
	}
	return false
}

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func TestTaskLifecycle(t *testing.T) {
	n := &recordingNotifier{}
	svc, _ := testutil.TestService(t, n)
	ctx := context.Background()

	created, err := svc.CreateTask(ctx, taskservice.TaskInput{Title: "  Write report  ", Priority: models.PriorityHigh})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if created.ID == "" || created.Title != "Write report" || created.Version != 1 {
		t.Errorf("created = %+v", created)
	}
	if !created.CreatedAt.Equal(testutil.Monday) {
		t.Errorf("created_at = %v, want clock time", created.CreatedAt)
	}

	updated, err := svc.UpdateTask(ctx, created.ID, taskservice.TaskInput{Title: "Write final report", Notes: "with charts", Priority: 2}, 1)
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Version != 2 || updated.Notes != "with charts" || updated.Priority != 2 {
		t.Errorf("updated = %+v", updated)
	}

	_, err = svc.UpdateTask(ctx, created.ID, taskservice.TaskInput{Title: "lost update"}, 1)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}

	done, err := svc.CompleteTask(ctx, created.ID)
	if err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	if !done.IsCompleted() {
		t.Error("task should be completed")
	}
	again, err := svc.CompleteTask(ctx, created.ID)
	if err != nil || again.Version != done.Version {
		t.Errorf("second complete = %+v, %v; want no-op", again, err)
	}

	if err := svc.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := svc.GetTask(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}

	for _, want := range []string{"task.created:", "task.updated:", "task.completed:", "task.deleted:"} {
		if !n.has(want + created.ID) {
			t.Errorf("missing notification %s%s in %v", want, created.ID, n.events)
		}
	}
}

func TestStatusAndChangeFeed(t *testing.T) {
	svc, _ := testutil.TestService(t, nil)
	ctx := context.Background()

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.TotalTasks != 0 || st.LastModifiedAt != nil || !st.ServerTime.Equal(testutil.Monday) {
		t.Errorf("empty status = %+v", st)
	}

	keep, err := svc.CreateTask(ctx, taskservice.TaskInput{Title: "keep"})
	if err != nil {
		t.Fatal(err)
	}
	drop, err := svc.CreateTask(ctx, taskservice.TaskInput{Title: "drop"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteTask(ctx, drop.ID); err != nil {
		t.Fatal(err)
	}

	st, err = svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.TotalTasks != 1 || st.LastModifiedAt == nil || !st.LastModifiedAt.Equal(testutil.Monday) {
		t.Errorf("status = %+v", st)
	}

	since := testutil.Monday
	changed, total, err := svc.ListTasks(ctx, store.TaskFilter{ModifiedSince: &since})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if total != 2 || len(changed) != 2 {
		t.Fatalf("changes = %d, want 2", total)
	}
	ids := map[string]bool{}
	for _, task := range changed {
		ids[task.ID] = task.IsDeleted
	}
	if deleted, ok := ids[drop.ID]; !ok || !deleted {
		t.Errorf("deleted task missing from change feed: %v", ids)
	}
	if deleted, ok := ids[keep.ID]; !ok || deleted {
		t.Errorf("live task missing from change feed: %v", ids)
	}
}

func TestCreateTaskValidation(t *testing.T) {
	svc, _ := testutil.TestService(t, nil)
	ctx := context.Background()

	tests := []taskservice.TaskInput{
		{Title: ""},
		{Title: "   "},
		{Title: "x", Priority: 4},
		{Title: "x", Priority: -1},
	}
	for _, in := range tests {
		if _, err := svc.CreateTask(ctx, in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("CreateTask(%+v) err = %v, want ErrInvalidInput", in, err)
		}
	}

	if _, err := svc.CreateTask(ctx, taskservice.TaskInput{ID: "fixed", Title: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateTask(ctx, taskservice.TaskInput{ID: "fixed", Title: "two"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate id err = %v, want ErrAlreadyExists", err)
	}
}

func TestEvents(t *testing.T) {
	n := &recordingNotifier{}
	svc, _ := testutil.TestService(t, n)
	ctx := context.Background()

	if _, err := svc.CreateEvent(ctx, taskservice.EventInput{Title: "bad", StartsAt: at(10, 0), EndsAt: at(10, 0)}); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty event err = %v", err)
	}

	e, err := svc.CreateEvent(ctx, taskservice.EventInput{ID: "lunch", Title: "Lunch", StartsAt: at(12, 0), EndsAt: at(13, 0)})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if e.ID != "lunch" || !e.StartsAt.Equal(at(12, 0)) {
		t.Errorf("event = %+v", e)
	}

	list, err := svc.ListEvents(ctx, at(0, 0), at(23, 0))
	if err != nil || len(list) != 1 {
		t.Fatalf("ListEvents = %v, %v", list, err)
	}
	if _, err := svc.ListEvents(ctx, at(10, 0), at(9, 0)); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("inverted range err = %v", err)
	}

	if err := svc.DeleteEvent(ctx, "lunch"); err != nil {
		t.Fatal(err)
	}
	if !n.has("event.created:lunch") || !n.has("event.deleted:lunch") {
		t.Errorf("notifications = %v", n.events)
	}
}

func TestSuggestUsesStoredEvents(t *testing.T) {
	svc, _ := testutil.TestService(t, nil)
	ctx := context.Background()

	task, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "deep dive", Priority: 3})
	_, _ = svc.CreateEvent(ctx, taskservice.EventInput{Title: "morning", StartsAt: at(9, 0), EndsAt: at(11, 0)})

	slots, err := svc.Suggest(ctx, task.ID, scheduling.SuggestOptions{SearchRange: scheduling.Interval{Start: at(8, 0), End: at(18, 0)}})
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(slots) != 1 || !slots[0].Start.Equal(at(11, 0)) || slots[0].TaskID != task.ID {
		t.Fatalf("slots = %+v, want one at 11:00", slots)
	}

	got, _ := svc.GetTask(ctx, task.ID)
	if got.DueDate != nil {
		t.Error("Suggest must not commit")
	}

	bad := scheduling.SuggestOptions{SearchRange: scheduling.Interval{Start: at(18, 0), End: at(8, 0)}}
	if _, err := svc.Suggest(ctx, task.ID, bad); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("inverted range err = %v", err)
	}
	if _, err := svc.Suggest(ctx, "missing", scheduling.SuggestOptions{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing task err = %v", err)
	}
}

func TestAutoScheduleCommitsDueDate(t *testing.T) {
	n := &recordingNotifier{}
	svc, _ := testutil.TestService(t, n)
	ctx := context.Background()

	task, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "plan", Priority: 3})
	updated, slot, err := svc.AutoSchedule(ctx, task.ID)
	if err != nil {
		t.Fatalf("AutoSchedule: %v", err)
	}
	if !slot.Start.Equal(at(9, 0)) {
		t.Errorf("slot = %s, want 09:00 (clock is 08:00)", slot.Start)
	}
	if updated.DueDate == nil || !updated.DueDate.Equal(slot.Start) || updated.Version != 2 {
		t.Errorf("task = %+v", updated)
	}
	if !n.has("task.scheduled:" + task.ID) {
		t.Errorf("notifications = %v", n.events)
	}

	done, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "done"})
	_, _ = svc.CompleteTask(ctx, done.ID)
	if _, _, err := svc.AutoSchedule(ctx, done.ID); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("completed task err = %v, want ErrInvalidInput", err)
	}
}

func TestAutoScheduleBatchAndBacklog(t *testing.T) {
	svc, db := testutil.TestService(t, nil)
	ctx := context.Background()

	a, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "a", Priority: 3})
	b, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "b", Priority: 3})

	got, err := svc.AutoScheduleBatch(ctx, []string{a.ID, b.ID, a.ID})
	if err != nil {
		t.Fatalf("AutoScheduleBatch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("assignments = %d, want 2 (duplicates collapsed)", len(got))
	}
	if got[0].Slot.Interval().Overlaps(got[1].Slot.Interval()) {
		t.Errorf("batch overlaps: %v / %v", got[0].Slot.Interval(), got[1].Slot.Interval())
	}

	if _, err := svc.AutoScheduleBatch(ctx, nil); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty batch err = %v", err)
	}

	c, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "c", Priority: 1})
	backlog, err := svc.ScheduleBacklog(ctx)
	if err != nil {
		t.Fatalf("ScheduleBacklog: %v", err)
	}
	if len(backlog) != 1 || backlog[0].TaskID != c.ID {
		t.Fatalf("backlog = %+v, want only c", backlog)
	}
	// c must avoid the hours already taken by a and b.
	for _, prev := range got {
		if backlog[0].Slot.Interval().Overlaps(prev.Slot.Interval()) {
			t.Errorf("backlog slot %v overlaps %v", backlog[0].Slot.Interval(), prev.Slot.Interval())
		}
	}

	scheduled := false
	rest, _, _ := db.ListTasks(ctx, store.TaskFilter{Scheduled: &scheduled})
	if len(rest) != 0 {
		t.Errorf("unscheduled after backlog run: %v", rest)
	}

	empty, err := svc.ScheduleBacklog(ctx)
	if err != nil || len(empty) != 0 {
		t.Errorf("second backlog run = %v, %v", empty, err)
	}
}

func TestEstimate(t *testing.T) {
	svc, _ := testutil.TestService(t, nil)
	ctx := context.Background()
	task, _ := svc.CreateTask(ctx, taskservice.TaskInput{Title: "x", Priority: 2, Notes: strings.Repeat("a", 500)})

	d, err := svc.Estimate(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if d != time.Hour {
		t.Errorf("estimate = %v, want 1h (30m doubled by 500 chars of notes)", d)
	}
}
