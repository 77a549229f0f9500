// Package taskservice coordinates the task store and the scheduling engine.
package taskservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/store"
)

// Notifier is told about every persisted change. *sse.Broker implements it.
type Notifier interface {
	PublishTaskEvent(kind, id string)
	PublishCalendarEvent(kind, id string)
}

type nopNotifier struct{}

func (nopNotifier) PublishTaskEvent(string, string)     {}
func (nopNotifier) PublishCalendarEvent(string, string) {}

// Option is a functional option for the Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps.
func WithClock(c calendar.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notify = n
		}
	}
}

// WithIDGenerator sets the generator for task and event ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service exposes task CRUD and the scheduling operations.
type Service struct {
	store  store.Store
	engine *scheduling.Engine
	clock  calendar.Clock
	notify Notifier
	newID  func() string
	logger *slog.Logger
}

// NewService creates a new task service.
func NewService(st store.Store, engine *scheduling.Engine, opts ...Option) *Service {
	s := &Service{
		store:  st,
		engine: engine,
		clock:  calendar.SystemClock{},
		notify: nopNotifier{},
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TaskInput carries the caller-owned fields of a task.
type TaskInput struct {
	ID       string     `json:"id,omitempty"`
	Title    string     `json:"title"`
	Notes    string     `json:"notes,omitempty"`
	Priority int        `json:"priority"`
	DueDate  *time.Time `json:"due_date,omitempty"`
}

// Validate validates the task input.
func (in TaskInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&in.Priority, validation.Min(models.PriorityNone), validation.Max(models.PriorityHigh)),
	)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

// CreateTask stores a new task. A missing id is generated.
func (s *Service) CreateTask(ctx context.Context, in TaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	now := s.clock.Now()
	t := models.Task{
		ID:         in.ID,
		Title:      in.Title,
		Notes:      in.Notes,
		Priority:   in.Priority,
		DueDate:    in.DueDate,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if t.ID == "" {
		t.ID = s.newID()
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	s.notify.PublishTaskEvent(sse.KindCreated, t.ID)
	return s.store.GetTask(ctx, t.ID)
}

// GetTask returns a task by id.
func (s *Service) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.store.GetTask(ctx, id)
}

// UpdateTask replaces the caller-owned fields of a task when version matches
// the stored version, and fails with apperr.ErrConflict otherwise.
func (s *Service) UpdateTask(ctx context.Context, id string, in TaskInput, version int64) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *current
	next.Title = in.Title
	next.Notes = in.Notes
	next.Priority = in.Priority
	next.DueDate = in.DueDate
	next.ModifiedAt = s.clock.Now()

	updated, err := s.store.UpdateTask(ctx, next, version)
	if err != nil {
		return nil, err
	}
	s.notify.PublishTaskEvent(sse.KindUpdated, id)
	return updated, nil
}

// CompleteTask marks a task done. Completing a completed task is a no-op.
func (s *Service) CompleteTask(ctx context.Context, id string) (*models.Task, error) {
	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.IsCompleted() {
		return current, nil
	}
	now := s.clock.Now()
	next := *current
	next.CompletedAt = &now
	next.ModifiedAt = now

	updated, err := s.store.UpdateTask(ctx, next, current.Version)
	if err != nil {
		return nil, err
	}
	s.notify.PublishTaskEvent(sse.KindCompleted, id)
	return updated, nil
}

// DeleteTask soft-deletes a task.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id, s.clock.Now()); err != nil {
		return err
	}
	s.notify.PublishTaskEvent(sse.KindDeleted, id)
	return nil
}

// ListTasks returns a page of tasks and the total count.
func (s *Service) ListTasks(ctx context.Context, f store.TaskFilter) ([]models.Task, int, error) {
	tasks, total, err := s.store.ListTasks(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(tasks), total, nil
}

// SyncStatus tells a client whether it has fallen behind. ServerTime is the
// cursor to pass as ModifiedSince on the next pull.
type SyncStatus struct {
	TotalTasks     int        `json:"total_tasks"`
	LastModifiedAt *time.Time `json:"last_modified_at"`
	ServerTime     time.Time  `json:"server_time"`
}

// Now returns the service clock's time in UTC.
func (s *Service) Now() time.Time {
	return s.clock.Now().UTC()
}

// Status reports the live task count and the latest modification.
func (s *Service) Status(ctx context.Context) (*SyncStatus, error) {
	now := s.Now()
	st, err := s.store.TaskStats(ctx)
	if err != nil {
		return nil, err
	}
	return &SyncStatus{TotalTasks: st.Total, LastModifiedAt: st.LastModified, ServerTime: now}, nil
}

// EventInput carries the fields of a new calendar event.
type EventInput struct {
	ID       string    `json:"id,omitempty"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Source   string    `json:"source,omitempty"`
}

// Validate validates the event input.
func (in EventInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.StartsAt, validation.Required),
		validation.Field(&in.EndsAt, validation.Required),
	); err != nil {
		return err
	}
	if !in.EndsAt.After(in.StartsAt) {
		return errors.New("ends_at must be after starts_at")
	}
	return nil
}

// CreateEvent stores a calendar event that blocks its time range.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (*models.Event, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	e := models.Event{
		ID:        in.ID,
		Title:     in.Title,
		StartsAt:  in.StartsAt,
		EndsAt:    in.EndsAt,
		Source:    in.Source,
		UpdatedAt: s.clock.Now(),
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	s.notify.PublishCalendarEvent(sse.KindCreated, e.ID)
	return s.store.GetEvent(ctx, e.ID)
}

// GetEvent returns a calendar event by id.
func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListEvents returns events overlapping [start, end).
func (s *Service) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	if !end.After(start) {
		return nil, invalid(errors.New("end must be after start"))
	}
	events, err := s.store.EventsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(events), nil
}

// DeleteEvent removes a calendar event.
func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.notify.PublishCalendarEvent(sse.KindDeleted, id)
	return nil
}

// schedulable loads a task and rejects completed ones.
func (s *Service) schedulable(ctx context.Context, id string) (*models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsCompleted() {
		return nil, fmt.Errorf("task %s is completed: %w", id, apperr.ErrInvalidInput)
	}
	return t, nil
}

// Estimate returns the engine's duration estimate for a task.
func (s *Service) Estimate(ctx context.Context, id string) (time.Duration, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return 0, err
	}
	return s.engine.Estimate(ToRef(*t)), nil
}

// Suggest returns ranked slot suggestions for a task without committing anything.
func (s *Service) Suggest(ctx context.Context, id string, opts scheduling.SuggestOptions) ([]scheduling.TimeSlot, error) {
	if opts.RequiredDuration < 0 {
		return nil, fmt.Errorf("negative duration: %w", apperr.ErrInvalidInput)
	}
	if !opts.SearchRange.IsZero() && !opts.SearchRange.Valid() {
		return nil, fmt.Errorf("search range end must be after start: %w", apperr.ErrInvalidInput)
	}
	t, err := s.schedulable(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := s.engine.SuggestSlots(ctx, ToRef(*t), opts)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(slots), nil
}

// AutoSchedule commits a task to its best slot and returns the updated task.
func (s *Service) AutoSchedule(ctx context.Context, id string) (*models.Task, scheduling.TimeSlot, error) {
	t, err := s.schedulable(ctx, id)
	if err != nil {
		return nil, scheduling.TimeSlot{}, err
	}
	slot, err := s.engine.AutoSchedule(ctx, ToRef(*t))
	if err != nil {
		return nil, scheduling.TimeSlot{}, err
	}
	updated, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, slot, err
	}
	return updated, slot, nil
}

// AutoScheduleBatch schedules the given tasks without overlaps. Duplicate ids
// are scheduled once. On failure the assignments committed so far are
// returned with the error.
func (s *Service) AutoScheduleBatch(ctx context.Context, ids []string) ([]scheduling.Assignment, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no task ids: %w", apperr.ErrInvalidInput)
	}
	refs := make([]scheduling.TaskRef, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		t, err := s.schedulable(ctx, id)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ToRef(*t))
	}
	return s.runBatch(ctx, refs)
}

// ScheduleBacklog schedules every incomplete task that has no due date.
func (s *Service) ScheduleBacklog(ctx context.Context) ([]scheduling.Assignment, error) {
	tasks, err := s.store.UnscheduledTasks(ctx)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	refs := make([]scheduling.TaskRef, len(tasks))
	for i, t := range tasks {
		refs[i] = ToRef(t)
	}
	return s.runBatch(ctx, refs)
}

func (s *Service) runBatch(ctx context.Context, refs []scheduling.TaskRef) ([]scheduling.Assignment, error) {
	started := s.clock.Now()
	out, err := s.engine.AutoScheduleBatch(ctx, refs)
	attrs := []any{
		slog.Int("requested", len(refs)),
		slog.Int("assigned", len(out)),
		slog.Duration("elapsed", s.clock.Now().Sub(started)),
	}
	if err != nil {
		s.logger.Warn("batch schedule incomplete", append(attrs, slog.String("error", err.Error()))...)
		return nonNilSlice(out), err
	}
	s.logger.Info("batch scheduled", attrs...)
	return nonNilSlice(out), nil
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(context.Context) error {
	return s.store.Ping()
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
