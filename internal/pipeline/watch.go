package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"demoreel/internal/logging"
)

// WatchDebounce is how long the scenario file must stay quiet before a
// change triggers a re-run. Editors often write a file several times per save.
const WatchDebounce = 500 * time.Millisecond

// Watch calls fn once, then again after every change to the file at path,
// until ctx ends. Failures of fn are logged and watching continues. The
// parent directory is watched so editors that save by rename are seen.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(context.Context) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	logger = logging.NewComponentLogger(logger, "watch")
	run := func() {
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(logger, "scenario run failed; waiting for changes", "watch_run_failed",
				logging.String("path", abs),
				logging.Error(err),
			)
		}
	}

	logger.Info("watching scenario", logging.String(logging.FieldEventType, "watch_start"), logging.String("path", abs))
	run()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped", logging.String(logging.FieldEventType, "watch_stop"))
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(WatchDebounce)
			} else {
				timer.Reset(WatchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			logger.Info("scenario changed; re-running",
				logging.String(logging.FieldEventType, "watch_rerun"),
				logging.String("path", abs),
			)
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			logger.Warn("watcher error", logging.Error(err))
		}
	}
}
