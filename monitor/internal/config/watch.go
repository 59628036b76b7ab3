package config

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events one editor save produces
// (write+chmod, or create+write on atomic saves) into a single reload.
const reloadDebounce = 200 * time.Millisecond

// Watch monitors the monitor config file and calls onChange with the newly
// loaded Config after each change that parses and validates. It runs until
// ctx is cancelled.
//
// Failed reloads (bad YAML, or engine bounds rejected by validation) are
// logged and dropped; the previous config stays active. The reload log
// distinguishes monitor-section from engine-section changes: appliers can
// pick up a new server endpoint in place, but new engine parameters only
// take effect for sessions started afterwards.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	// Seed the section diff from the file as it is now. If it is unreadable
	// here, the first successful reload reports both sections as changed.
	prev, _ := Load(path)

	slog.Info("config: watching for changes", "path", path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pending = time.After(reloadDebounce)

		case <-pending:
			pending = nil

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}

			slog.Info("config: reloaded",
				"path", path,
				"sources", len(cfg.Monitor.Sources),
				"window_width", cfg.Engine.WindowWidth,
				"monitor_changed", prev == nil || !reflect.DeepEqual(cfg.Monitor, prev.Monitor),
				"engine_changed", prev == nil || cfg.Engine != prev.Engine,
			)
			prev = cfg
			onChange(cfg)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
