package scheduling

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/sowilo/internal/telemetry"
)

// day is a Monday; all fixtures are placed on it unless stated otherwise.
var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func iv(h1, m1, h2, m2 int) Interval {
	return Interval{Start: at(h1, m1), End: at(h2, m2)}
}

func ptr[T any](v T) *T { return &v }

func sequentialIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("slot-%d", n)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type fakeCalendar struct {
	events []Interval
	err    error
}

func (f *fakeCalendar) BusyPeriods(_ context.Context, _ Interval) ([]Interval, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeTasks struct {
	mu        sync.Mutex
	scheduled []TaskRef
	fetchErr  error
	commitErr error
	commits   map[string]time.Time
	order     []string
}

func (f *fakeTasks) ScheduledTasks(_ context.Context, rng Interval) ([]TaskRef, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []TaskRef
	for _, t := range f.scheduled {
		if t.DueDate != nil && rng.Contains(*t.DueDate) && !t.IsCompleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) Commit(_ context.Context, taskID string, start time.Time) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commits == nil {
		f.commits = make(map[string]time.Time)
	}
	f.commits[taskID] = start
	f.order = append(f.order, taskID)
	return nil
}

type captureRecorder struct {
	mu        sync.Mutex
	generated []telemetry.SlotsGenerated
	scheduled []telemetry.TaskAutoScheduled
}

func (c *captureRecorder) SlotsGenerated(e telemetry.SlotsGenerated) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generated = append(c.generated, e)
}

func (c *captureRecorder) TaskAutoScheduled(e telemetry.TaskAutoScheduled) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduled = append(c.scheduled, e)
}
