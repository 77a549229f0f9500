package taskservice

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/store"
)

// StoreCalendar exposes stored calendar events as a scheduling.CalendarSource.
type StoreCalendar struct {
	Store store.Store
}

// BusyPeriods implements scheduling.CalendarSource.
func (c StoreCalendar) BusyPeriods(ctx context.Context, rng scheduling.Interval) ([]scheduling.Interval, error) {
	events, err := c.Store.EventsBetween(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.Interval, 0, len(events))
	for _, e := range events {
		out = append(out, scheduling.Interval{Start: e.StartsAt, End: e.EndsAt})
	}
	return out, nil
}

// StoreTasks exposes the task table as a scheduling.TaskStore. Commits are
// announced through Notifier when one is set.
type StoreTasks struct {
	Store    store.Store
	Clock    calendar.Clock
	Notifier Notifier
}

// ScheduledTasks implements scheduling.TaskStore.
func (t StoreTasks) ScheduledTasks(ctx context.Context, rng scheduling.Interval) ([]scheduling.TaskRef, error) {
	tasks, err := t.Store.ScheduledTasks(ctx, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.TaskRef, len(tasks))
	for i, task := range tasks {
		out[i] = ToRef(task)
	}
	return out, nil
}

// Commit implements scheduling.TaskStore.
func (t StoreTasks) Commit(ctx context.Context, taskID string, start time.Time) error {
	now := time.Now()
	if t.Clock != nil {
		now = t.Clock.Now()
	}
	if err := t.Store.SetDueDate(ctx, taskID, start, now); err != nil {
		return err
	}
	if t.Notifier != nil {
		t.Notifier.PublishTaskEvent(sse.KindScheduled, taskID)
	}
	return nil
}

// ToRef converts a stored task into the engine's read-only view.
func ToRef(t models.Task) scheduling.TaskRef {
	return scheduling.TaskRef{
		ID:          t.ID,
		Priority:    t.Priority,
		NotesLength: utf8.RuneCountInString(t.Notes),
		DueDate:     t.DueDate,
		IsCompleted: t.IsCompleted(),
	}
}

var (
	_ scheduling.CalendarSource = StoreCalendar{}
	_ scheduling.TaskStore      = StoreTasks{}
)
