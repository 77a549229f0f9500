// Package testutil provides shared test helpers for databases and services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/store"
	"github.com/starford/sowilo/internal/taskservice"
)

// Monday is the fixed "now" used by service fixtures: 2026-03-02 08:00 UTC.
var Monday = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "sowilo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// DiscardLogger returns a logger that writes nowhere.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestService wires a task service over a temporary database with the clock
// frozen at Monday and default preferences.
func TestService(t *testing.T, notifier taskservice.Notifier) (*taskservice.Service, *store.DB) {
	t.Helper()
	db := TestDB(t)
	clock := calendar.FixedClock(Monday)
	logger := DiscardLogger()

	engine := scheduling.NewEngine(
		taskservice.StoreCalendar{Store: db},
		taskservice.StoreTasks{Store: db, Clock: clock, Notifier: notifier},
		scheduling.StaticPreferences(scheduling.DefaultPreferences()),
		scheduling.DefaultConfig(),
		scheduling.WithClock(clock),
		scheduling.WithLogger(logger),
	)
	svc := taskservice.NewService(db, engine,
		taskservice.WithClock(clock),
		taskservice.WithNotifier(notifier),
		taskservice.WithLogger(logger),
	)
	return svc, db
}
