package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay debounces bursts of writes (editors often write a file in
// several steps or replace it via rename).
const reloadDelay = 100 * time.Millisecond

// Watch reloads filename whenever it changes until ctx is cancelled.
// Each reload decodes into a fresh target from newTarget; onReload is
// called only for configurations that parse and validate. The parent
// directory is watched so atomic replace-by-rename is seen too.
func Watch[T any](ctx context.Context, filename string, newTarget func() *T, logger *slog.Logger, onReload func(*T)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(filename)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("config watcher: started", slog.String("file", abs))

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("config watcher: stopped")
			return nil

		case <-fire:
			fire = nil
			target := newTarget()
			if err := Load(abs, target); err != nil {
				logger.Warn("config watcher: reload rejected", slog.String("error", err.Error()))
				continue
			}
			logger.Info("config watcher: reloaded", slog.String("file", abs))
			onReload(target)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
