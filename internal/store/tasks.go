package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

const taskColumns = `id, title, notes, priority, due_at, completed_at, is_deleted, version, created_at, modified_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (models.Task, error) {
	var (
		t                 models.Task
		due, completed    sql.NullInt64
		created, modified int64
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Notes, &t.Priority, &due, &completed,
		&t.IsDeleted, &t.Version, &created, &modified); err != nil {
		return models.Task{}, err
	}
	t.DueDate = fromNullUnix(due)
	t.CompletedAt = fromNullUnix(completed)
	t.CreatedAt = fromUnix(created)
	t.ModifiedAt = fromUnix(modified)
	return t, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique)
}

// CreateTask inserts a new task with version 1.
func (db *DB) CreateTask(ctx context.Context, t models.Task) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, 0, 1, ?, ?)
	`, t.ID, t.Title, t.Notes, t.Priority, nullUnix(t.DueDate), nullUnix(t.CompletedAt),
		unix(t.CreatedAt), unix(t.ModifiedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("task %s: %w", t.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create task: %w", err)
	}
	return nil
}

// GetTask returns a task that has not been deleted.
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND is_deleted = 0`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get task: %w", err)
	}
	return &t, nil
}

// UpdateTask overwrites the mutable fields of t when the stored version equals
// expectedVersion, then bumps the version.
func (db *DB) UpdateTask(ctx context.Context, t models.Task, expectedVersion int64) (*models.Task, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE tasks SET
			title        = ?,
			notes        = ?,
			priority     = ?,
			due_at       = ?,
			completed_at = ?,
			version      = version + 1,
			modified_at  = ?
		WHERE id = ? AND version = ? AND is_deleted = 0
	`, t.Title, t.Notes, t.Priority, nullUnix(t.DueDate), nullUnix(t.CompletedAt),
		unix(t.ModifiedAt), t.ID, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("store: update task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := db.GetTask(ctx, t.ID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("task %s: version %d is stale: %w", t.ID, expectedVersion, apperr.ErrConflict)
	}
	return db.GetTask(ctx, t.ID)
}

// DeleteTask marks a task deleted. Deleted tasks are invisible to every other query.
func (db *DB) DeleteTask(ctx context.Context, id string, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE tasks SET is_deleted = 1, version = version + 1, modified_at = ?
		WHERE id = ? AND is_deleted = 0
	`, unix(now), id)
	if err != nil {
		return fmt.Errorf("store: delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// SetDueDate stores due as the task's due date regardless of its version.
func (db *DB) SetDueDate(ctx context.Context, id string, due, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE tasks SET due_at = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND is_deleted = 0
	`, unix(due), unix(now), id)
	if err != nil {
		return fmt.Errorf("store: set due date: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// ListTasks returns a page of tasks and the total number matching f. Tasks
// are ordered by due date with unscheduled tasks last, then by priority.
// Change feeds (ModifiedSince set) are ordered by modification, newest first.
func (db *DB) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, int, error) {
	var (
		where []string
		args  []any
		order = "due_at IS NULL, due_at, priority DESC, created_at, id"
	)
	status := f.Status
	if f.ModifiedSince != nil {
		where = append(where, "modified_at >= ?")
		args = append(args, unix(*f.ModifiedSince))
		order = "modified_at DESC, id"
		if status == "" {
			status = StatusAll
		}
	} else {
		where = append(where, "is_deleted = 0")
	}
	switch status {
	case StatusCompleted:
		where = append(where, "completed_at IS NOT NULL")
	case StatusAll:
	default:
		where = append(where, "completed_at IS NULL")
	}
	if f.Scheduled != nil {
		if *f.Scheduled {
			where = append(where, "due_at IS NOT NULL")
		} else {
			where = append(where, "due_at IS NULL")
		}
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count tasks: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE `+cond+`
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list tasks: %w", err)
	}
	defer rows.Close()

	out, err := collectTasks(rows)
	return out, total, err
}

// TaskStats counts live tasks and finds the latest modification.
func (db *DB) TaskStats(ctx context.Context) (TaskStats, error) {
	var (
		st   TaskStats
		last sql.NullInt64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT coalesce(sum(is_deleted = 0), 0), max(modified_at) FROM tasks
	`).Scan(&st.Total, &last)
	if err != nil {
		return TaskStats{}, fmt.Errorf("store: task stats: %w", err)
	}
	st.LastModified = fromNullUnix(last)
	return st, nil
}

// ScheduledTasks returns incomplete tasks whose due date lies in [start, end).
func (db *DB) ScheduledTasks(ctx context.Context, start, end time.Time) ([]models.Task, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_deleted = 0 AND completed_at IS NULL
		  AND due_at >= ? AND due_at < ?
		ORDER BY due_at, id
	`, unix(start), unix(end))
	if err != nil {
		return nil, fmt.Errorf("store: scheduled tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UnscheduledTasks returns every incomplete task without a due date.
func (db *DB) UnscheduledTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE is_deleted = 0 AND completed_at IS NULL AND due_at IS NULL
		ORDER BY priority DESC, created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: unscheduled tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
