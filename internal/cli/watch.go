package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 200 * time.Millisecond

// WatchConfig reloads the configuration at path whenever it changes and
// passes every valid version to onReload. Invalid versions are logged and
// skipped, so the previous configuration stays in effect.
//
// The parent directory is watched rather than the file, because editors
// often save by renaming a temporary file over the original.
// WatchConfig blocks until ctx is done.
func WatchConfig(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onReload func(*domain.Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}
	logger.Info("Watching configuration for changes", "path", abs)

	var timer *time.Timer
	var pending <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("Config file changed", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			cfg, err := LoadConfig(abs)
			if err != nil {
				logger.Error("Reload failed, keeping previous configuration", "path", abs, "err", err)
				continue
			}
			logger.Info("Configuration reloaded", "path", abs, "states", cfg.States.Len())
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Config watcher error", "err", err)
		}
	}
}
