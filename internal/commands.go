package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/sowilo/internal/scheduling"
	"github.com/starford/sowilo/internal/taskfile"
)

// cli opens the runtime for a one-shot command. Logs go to stderr so the
// command output stays machine readable.
func cli(opts []Option) (*application, *runtime, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(app.config.App.LogLevel, os.Stderr)
	rt, err := app.open(logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return app, rt, nil
}

func (app *application) print(v any) error {
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Suggest prints the ranked slots for one task. A zero duration uses the estimate.
func Suggest(ctx context.Context, taskID string, duration time.Duration, opts ...Option) error {
	app, rt, err := cli(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	slots, err := rt.svc.Suggest(ctx, taskID, scheduling.SuggestOptions{RequiredDuration: duration})
	if err != nil {
		return fmt.Errorf("suggest %s: %w", taskID, err)
	}
	return app.print(slots)
}

// Schedule commits the given tasks, or the whole backlog when ids is empty,
// and prints the assignments. Assignments made before a failure are printed
// too.
func Schedule(ctx context.Context, ids []string, opts ...Option) error {
	app, rt, err := cli(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	var out []scheduling.Assignment
	if len(ids) == 0 {
		out, err = rt.svc.ScheduleBacklog(ctx)
	} else {
		out, err = rt.svc.AutoScheduleBatch(ctx, ids)
	}
	if printErr := app.print(out); printErr != nil {
		return printErr
	}
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	return nil
}

// Import creates tasks from Markdown task files and directories.
func Import(ctx context.Context, paths []string, opts ...Option) error {
	app, rt, err := cli(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	files, err := taskfile.Collect(paths...)
	if err != nil {
		return err
	}
	rep, err := taskfile.Import(ctx, rt.svc, files, rt.loc, rt.logger)
	if err != nil {
		return err
	}

	failed := make(map[string]string, len(rep.Failed))
	for path, ferr := range rep.Failed {
		failed[path] = ferr.Error()
	}
	if err := app.print(map[string]any{
		"created": rep.Created,
		"skipped": rep.Skipped,
		"failed":  failed,
	}); err != nil {
		return err
	}
	rt.logger.Info("import finished",
		slog.Int("files", len(files)),
		slog.Int("created", rep.Created),
		slog.Int("failed", len(rep.Failed)))
	if len(rep.Failed) > 0 {
		return fmt.Errorf("import: %d of %d files failed", len(rep.Failed), len(files))
	}
	return nil
}
