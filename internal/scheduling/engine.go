package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/telemetry"
)

// CalendarSource supplies externally owned busy periods (calendar events).
type CalendarSource interface {
	BusyPeriods(ctx context.Context, rng Interval) ([]Interval, error)
}

// TaskStore supplies already scheduled tasks and persists commitments.
type TaskStore interface {
	// ScheduledTasks returns incomplete tasks whose due date falls in rng.
	ScheduledTasks(ctx context.Context, rng Interval) ([]TaskRef, error)
	// Commit records start as the task's due date.
	Commit(ctx context.Context, taskID string, start time.Time) error
}

// Config holds engine tuning.
type Config struct {
	// SearchWindow is the default search range length measured from now.
	SearchWindow time.Duration
	// MaxSuggestions caps the number of slots SuggestSlots returns.
	MaxSuggestions int
	// Policy tunes the fragmentation score.
	Policy RankingPolicy
	// RespectQuietHours folds quiet hours into the busy intervals.
	RespectQuietHours bool
}

// DefaultConfig returns a 7 day search window and 3 suggestions.
func DefaultConfig() Config {
	return Config{
		SearchWindow:   7 * 24 * time.Hour,
		MaxSuggestions: 3,
		Policy:         DefaultRankingPolicy(),
	}
}

// SuggestOptions overrides the defaults of a suggestion request. Zero values
// mean "use the default".
type SuggestOptions struct {
	RequiredDuration time.Duration
	Deadline         time.Time
	SearchRange      Interval
}

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithEstimator replaces the default HeuristicEstimator.
func WithEstimator(est Estimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(r telemetry.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock sets the clock used to resolve "now".
func WithClock(c calendar.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the generator for slot ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine runs the scheduling pipeline against injected collaborators. It keeps
// no mutable state between calls, so independent requests may run concurrently.
type Engine struct {
	calendar  CalendarSource
	tasks     TaskStore
	prefs     PreferencesProvider
	estimator Estimator
	recorder  telemetry.Recorder
	clock     calendar.Clock
	newID     func() string
	logger    *slog.Logger
	cfg       Config
}

// NewEngine creates an engine. cal may be nil when there is no calendar source.
func NewEngine(cal CalendarSource, tasks TaskStore, prefs PreferencesProvider, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.SearchWindow <= 0 {
		cfg.SearchWindow = def.SearchWindow
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if cfg.Policy == (RankingPolicy{}) {
		cfg.Policy = def.Policy
	}

	e := &Engine{
		calendar:  cal,
		tasks:     tasks,
		prefs:     prefs,
		estimator: HeuristicEstimator{},
		recorder:  telemetry.Nop{},
		clock:     calendar.SystemClock{},
		newID:     uuid.NewString,
		logger:    slog.Default(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "scheduler"))
	return e
}

// Estimate returns the estimator's duration for task.
func (e *Engine) Estimate(task TaskRef) time.Duration {
	return e.estimator.Estimate(task)
}

// request is a suggestion request with every default resolved.
type request struct {
	rng      Interval
	deadline time.Time
	required time.Duration
}

// resolve fills in defaults. Caller-supplied times are moved into the clock's
// zone, which defines work day bounds and hour of day.
func (e *Engine) resolve(task TaskRef, opts SuggestOptions) request {
	now := e.clock.Now()
	loc := now.Location()

	req := request{rng: opts.SearchRange, deadline: opts.Deadline, required: opts.RequiredDuration}
	if req.rng.IsZero() {
		req.rng = Interval{Start: now, End: now.Add(e.cfg.SearchWindow)}
	}
	req.rng = Interval{Start: req.rng.Start.In(loc), End: req.rng.End.In(loc)}
	if req.deadline.IsZero() {
		req.deadline = req.rng.End
	}
	req.deadline = req.deadline.In(loc)
	if req.required <= 0 {
		req.required = e.estimator.Estimate(task)
	}
	return req
}

// busySnapshot is the state of both busy sources for one request or batch.
type busySnapshot struct {
	external  []Interval
	scheduled []TaskRef
}

// fetch loads both busy sources once. Source failures degrade to an empty
// contribution; only cancellation is returned.
func (e *Engine) fetch(ctx context.Context, rng Interval) (busySnapshot, error) {
	var snap busySnapshot

	if e.calendar != nil {
		events, err := e.calendar.BusyPeriods(ctx, rng)
		if err != nil {
			e.logger.Warn("calendar unavailable, ignoring external events", slog.String("error", err.Error()))
		} else {
			snap.external = events
		}
	}

	tasks, err := e.tasks.ScheduledTasks(ctx, rng)
	if err != nil {
		e.logger.Warn("scheduled task fetch failed, busy time may be under-counted", slog.String("error", err.Error()))
	} else {
		snap.scheduled = tasks
	}

	return snap, ctx.Err()
}

// rank runs the pure part of the pipeline for one task. extra carries
// intervals committed earlier in the same batch.
func (e *Engine) rank(task TaskRef, req request, prefs Preferences, snap busySnapshot, extra []Interval) []TimeSlot {
	scheduled := make([]TaskRef, 0, len(snap.scheduled))
	for _, t := range snap.scheduled {
		if t.ID != task.ID {
			scheduled = append(scheduled, t)
		}
	}

	external := append([]Interval(nil), snap.external...)
	external = append(external, extra...)
	if e.cfg.RespectQuietHours {
		external = append(external, prefs.QuietIntervals(req.rng)...)
	}

	busy := BusyIntervals(req.rng, external, scheduled, e.estimator)
	windows := FreeWindows(req.rng, busy, prefs)
	candidates := Candidates(windows, req.required, req.deadline, task, prefs, e.cfg.Policy, e.newID)
	ranked := Rank(candidates, req.deadline)

	e.recorder.SlotsGenerated(telemetry.SlotsGenerated{
		Priority:         task.Priority,
		SlotsFound:       len(ranked),
		RequiredDuration: req.required,
	})
	e.logger.Debug("slots generated",
		slog.String("task_id", task.ID),
		slog.Int("busy", len(busy)),
		slog.Int("windows", len(windows)),
		slog.Int("candidates", len(ranked)),
		slog.Duration("required", req.required))
	return ranked
}

// SuggestSlots returns up to MaxSuggestions ranked slots for task, best first.
func (e *Engine) SuggestSlots(ctx context.Context, task TaskRef, opts SuggestOptions) ([]TimeSlot, error) {
	prefs := e.prefs.Current()
	req := e.resolve(task, opts)

	snap, err := e.fetch(ctx, req.rng)
	if err != nil {
		return nil, err
	}

	ranked := e.rank(task, req, prefs, snap, nil)
	if len(ranked) > e.cfg.MaxSuggestions {
		ranked = ranked[:e.cfg.MaxSuggestions]
	}
	return ranked, nil
}

// AutoSchedule commits task to its best slot in the default search range.
func (e *Engine) AutoSchedule(ctx context.Context, task TaskRef) (TimeSlot, error) {
	prefs := e.prefs.Current()
	req := e.resolve(task, SuggestOptions{})

	snap, err := e.fetch(ctx, req.rng)
	if err != nil {
		return TimeSlot{}, err
	}

	ranked := e.rank(task, req, prefs, snap, nil)
	if len(ranked) == 0 {
		return TimeSlot{}, fmt.Errorf("task %s: %w", task.ID, apperr.ErrNoSlotAvailable)
	}
	slot := ranked[0]
	if err := e.commit(ctx, task, slot); err != nil {
		return TimeSlot{}, err
	}
	return slot, nil
}

// AutoScheduleBatch places tasks one at a time, highest priority first, so that
// no placement overlaps an earlier one from the same batch. It stops at the
// first task without a slot and returns the assignments committed so far
// together with an error wrapping apperr.ErrNoSlotAvailable. Earlier commits
// are not rolled back.
func (e *Engine) AutoScheduleBatch(ctx context.Context, tasks []TaskRef) ([]Assignment, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	prefs := e.prefs.Current()
	now := e.clock.Now()
	rng := Interval{Start: now, End: now.Add(e.cfg.SearchWindow)}

	snap, err := e.fetch(ctx, rng)
	if err != nil {
		return nil, err
	}

	var (
		out       []Assignment
		committed []Interval
		moved     = make(map[string]struct{}, len(tasks))
	)
	for _, task := range OrderForBatch(tasks) {
		// Tasks placed earlier in this batch are represented by their new slot.
		current := busySnapshot{external: snap.external}
		for _, t := range snap.scheduled {
			if _, ok := moved[t.ID]; !ok {
				current.scheduled = append(current.scheduled, t)
			}
		}

		req := e.resolve(task, SuggestOptions{SearchRange: rng})
		ranked := e.rank(task, req, prefs, current, committed)
		if len(ranked) == 0 {
			e.logger.Warn("batch aborted, no slot available",
				slog.String("task_id", task.ID),
				slog.Int("committed", len(out)),
				slog.Int("remaining", len(tasks)-len(out)))
			return out, fmt.Errorf("task %s: %w", task.ID, apperr.ErrNoSlotAvailable)
		}

		slot := ranked[0]
		if err := e.commit(ctx, task, slot); err != nil {
			return out, err
		}
		committed = append(committed, slot.Interval())
		moved[task.ID] = struct{}{}
		out = append(out, Assignment{TaskID: task.ID, Slot: slot})
	}
	return out, nil
}

// commit persists slot as the task's due date. It is the only mutating step
// and refuses to run once ctx is done.
func (e *Engine) commit(ctx context.Context, task TaskRef, slot TimeSlot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.tasks.Commit(ctx, task.ID, slot.Start); err != nil {
		return fmt.Errorf("commit task %s: %w", task.ID, err)
	}

	e.logger.Info("task auto-scheduled",
		slog.String("task_id", task.ID),
		slog.Int("priority", task.Priority),
		slog.Time("slot_start", slot.Start),
		slog.Duration("duration", slot.Duration),
		slog.Bool("deep_work", slot.IsDeepWork))
	e.recorder.TaskAutoScheduled(telemetry.TaskAutoScheduled{
		TaskID:     task.ID,
		Priority:   task.Priority,
		SlotStart:  slot.Start,
		IsDeepWork: slot.IsDeepWork,
	})
	return nil
}
