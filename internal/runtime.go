package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/sowilo/internal/calendar"
	"github.com/starford/sowilo/internal/prefs"
	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/sse"
	"github.com/starford/sowilo/internal/store"
	"github.com/starford/sowilo/internal/taskservice"
	"github.com/starford/sowilo/internal/telemetry"
)

// runtime holds the components shared by the server, the MCP server and the
// CLI commands.
type runtime struct {
	cfg       *Config
	logger    *slog.Logger
	loc       *time.Location
	db        *store.DB
	prefs     *prefs.Provider
	collector *telemetry.Collector
	svc       *taskservice.Service
}

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(level slog.Level, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// open wires store, preferences, engine and service. broker may be nil.
func (app *application) open(logger *slog.Logger, broker *sse.Broker) (*runtime, error) {
	cfg := app.config
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Preferences.Path), 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("create preferences dir: %w", err)
	}
	pp, err := prefs.Open(cfg.Preferences.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	clock := app.clock
	if clock == nil {
		clock = calendar.SystemClock{Location: loc}
	}

	collector := telemetry.NewCollector()
	recorders := []telemetry.Recorder{collector}
	var notifier taskservice.Notifier
	if broker != nil {
		recorders = append(recorders, telemetry.NewStreamRecorder(broker))
		notifier = broker
	}

	engine := scheduling.NewEngine(
		taskservice.StoreCalendar{Store: db},
		taskservice.StoreTasks{Store: db, Clock: clock, Notifier: notifier},
		pp,
		cfg.Scheduler.EngineConfig(),
		scheduling.WithClock(clock),
		scheduling.WithLogger(logger),
		scheduling.WithRecorder(telemetry.NewMulti(logger, recorders...)),
	)
	svc := taskservice.NewService(db, engine,
		taskservice.WithClock(clock),
		taskservice.WithNotifier(notifier),
		taskservice.WithLogger(logger),
	)

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		loc:       loc,
		db:        db,
		prefs:     pp,
		collector: collector,
		svc:       svc,
	}, nil
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}
