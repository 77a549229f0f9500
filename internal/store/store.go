package store

import (
	"context"
	"time"

	"github.com/starford/sowilo/internal/models"
)

// Status filters tasks by completion state.
type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
	StatusAll       Status = "all"
)

// TaskFilter narrows ListTasks. Zero value lists open tasks.
//
// With ModifiedSince set the listing becomes a change feed: tasks modified at
// or after that instant, deleted ones included, newest first. Status then
// defaults to all.
type TaskFilter struct {
	Status        Status
	Scheduled     *bool
	ModifiedSince *time.Time
	Limit         int
	Offset        int
}

// TaskStats summarizes the task table.
type TaskStats struct {
	// Total counts tasks that are not deleted.
	Total int
	// LastModified is the newest modification of any task, deleted or not.
	LastModified *time.Time
}

// Store defines task and event persistence. Consumers depend on this
// interface rather than on *DB.
type Store interface {
	CreateTask(ctx context.Context, t models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	UpdateTask(ctx context.Context, t models.Task, expectedVersion int64) (*models.Task, error)
	DeleteTask(ctx context.Context, id string, now time.Time) error
	ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, int, error)
	TaskStats(ctx context.Context) (TaskStats, error)
	SetDueDate(ctx context.Context, id string, due, now time.Time) error
	ScheduledTasks(ctx context.Context, start, end time.Time) ([]models.Task, error)
	UnscheduledTasks(ctx context.Context) ([]models.Task, error)

	CreateEvent(ctx context.Context, e models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	EventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error)

	Ping() error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
