package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads the settings file on change and passes every valid result to onChange.
// It blocks until the context is canceled. Invalid files are logged and skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}

	defer func() {
		_ = watcher.Close()
	}()

	// Editors often replace the file, so the directory is watched instead.
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch settings directory: %w", err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}

			timer = time.NewTimer(reloadDebounce)
			pending = timer.C
		case <-pending:
			pending = nil

			cfg, err := Load(path)
			if err != nil {
				logger.ErrorKV(ctx, "Settings reload failed", "path", path, "error", err)
				continue
			}

			logger.InfoKV(ctx, "Settings reloaded", "path", path)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnKV(ctx, "Settings watcher error", "error", err)
		}
	}
}
