package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
)

// CreateEvent inserts a calendar event.
func (db *DB) CreateEvent(ctx context.Context, e models.Event) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO events (id, title, starts_at, ends_at, source, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.Title, unix(e.StartsAt), unix(e.EndsAt), e.Source, unix(e.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("event %s: %w", e.ID, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("store: create event: %w", err)
	}
	return nil
}

// GetEvent returns a single event.
func (db *DB) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var (
		e                   models.Event
		start, end, updated int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, title, starts_at, ends_at, source, updated_at FROM events WHERE id = ?
	`, id).Scan(&e.ID, &e.Title, &start, &end, &e.Source, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get event: %w", err)
	}
	e.StartsAt, e.EndsAt, e.UpdatedAt = fromUnix(start), fromUnix(end), fromUnix(updated)
	return &e, nil
}

// DeleteEvent removes an event.
func (db *DB) DeleteEvent(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// EventsBetween returns events overlapping [start, end), ordered by start.
func (db *DB) EventsBetween(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, starts_at, ends_at, source, updated_at FROM events
		WHERE starts_at < ? AND ends_at > ?
		ORDER BY starts_at, id
	`, unix(end), unix(start))
	if err != nil {
		return nil, fmt.Errorf("store: events between: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var (
			e          models.Event
			s, en, upd int64
		)
		if err := rows.Scan(&e.ID, &e.Title, &s, &en, &e.Source, &upd); err != nil {
			return nil, err
		}
		e.StartsAt, e.EndsAt, e.UpdatedAt = fromUnix(s), fromUnix(en), fromUnix(upd)
		out = append(out, e)
	}
	return out, rows.Err()
}
