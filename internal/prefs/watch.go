package prefs

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sowilo/internal/scheduling"
)

const reloadDebounce = 200 * time.Millisecond

// ChangeCallback is called after a watcher-driven reload changed the snapshot.
type ChangeCallback func(p scheduling.Preferences)

// Watch reloads the preferences file whenever it changes on disk until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file by rename are picked up. Invalid files are logged and ignored.
func (p *Provider) Watch(ctx context.Context, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(p.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.Info("prefs watcher: started", slog.String("path", target))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("prefs watcher: stopped")
			return nil

		case <-reloadCh:
			changed, err := p.Reload()
			if err != nil {
				logger.Warn("prefs watcher: reload failed, keeping previous preferences",
					slog.String("path", target),
					slog.String("error", err.Error()))
				continue
			}
			if !changed {
				continue
			}
			logger.Info("prefs watcher: reloaded", slog.String("checksum", p.Checksum()))
			if cb != nil {
				cb(p.Current())
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("prefs watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
