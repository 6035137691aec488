package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"tooldeck/internal/infra/telemetry"
)

const configDriftDebounce = 500 * time.Millisecond

// watchConfigDrift warns when the active config file changes on disk. The
// catalogue and dispatch limits are fixed at startup, so a changed file only
// takes effect after a restart.
func watchConfigDrift(ctx context.Context, path string, logger *zap.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which would drop
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("config watcher add failed", zap.String("path", path), zap.Error(err))
		return
	}

	target := filepath.Base(path)
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.Errors:
			if err != nil {
				logger.Warn("config watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(configDriftDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(configDriftDebounce)
		case <-timerChan(timer):
			timer = nil
			logger.Warn("config file changed on disk, restart to apply",
				telemetry.EventField(telemetry.EventConfigDrift),
				zap.String("path", path),
			)
		}
	}
}

func timerChan(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
