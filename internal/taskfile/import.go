package taskfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/sowilo/internal/apperr"
	"github.com/starford/sowilo/internal/models"
	"github.com/starford/sowilo/internal/taskservice"
)

// Creator is the part of the task service the importer needs.
type Creator interface {
	CreateTask(ctx context.Context, in taskservice.TaskInput) (*models.Task, error)
	CompleteTask(ctx context.Context, id string) (*models.Task, error)
}

var _ Creator = (*taskservice.Service)(nil)

// Report summarises an import run.
type Report struct {
	Created int
	Skipped int
	Failed  map[string]error
}

// Collect expands paths into the Markdown files they name. Directories are
// walked recursively; hidden entries are skipped.
func Collect(paths ...string) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return out, nil
}

// Import parses each file and creates its task. Files whose id already exists
// are skipped; parse and store failures are recorded per file and do not stop
// the run. Only cancellation aborts.
func Import(ctx context.Context, c Creator, files []string, loc *time.Location, logger *slog.Logger) (Report, error) {
	rep := Report{Failed: make(map[string]error)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		err := importFile(ctx, c, path, loc)
		switch {
		case err == nil:
			rep.Created++
			logger.Debug("task imported", slog.String("file", path))
		case errors.Is(err, apperr.ErrAlreadyExists):
			rep.Skipped++
			logger.Info("task already exists, skipped", slog.String("file", path))
		default:
			rep.Failed[path] = err
			logger.Warn("task import failed", slog.String("file", path), slog.String("error", err.Error()))
		}
	}
	return rep, nil
}

func importFile(ctx context.Context, c Creator, path string, loc *time.Location) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	t, err := Parse(data, loc)
	if err != nil {
		return err
	}
	created, err := c.CreateTask(ctx, t.Input())
	if err != nil {
		return err
	}
	if t.Completed {
		if _, err := c.CompleteTask(ctx, created.ID); err != nil {
			return fmt.Errorf("complete %s: %w", created.ID, err)
		}
	}
	return nil
}
