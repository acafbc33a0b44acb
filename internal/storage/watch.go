package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"feedfloat/internal/ui/preferences"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// WatchSettings calls onChange with freshly loaded settings whenever the file
// at configPath is written by another program. It stops when ctx is done.
func WatchSettings(ctx context.Context, configPath string, onChange func(preferences.Settings)) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go watchLoop(ctx, watcher, configPath, onChange)
	slog.Debug("watching settings file", "path", configPath)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, configPath string, onChange func(preferences.Settings)) {
	var (
		mu       sync.Mutex
		debounce *time.Timer
	)
	defer func() {
		mu.Lock()
		if debounce != nil {
			debounce.Stop()
		}
		mu.Unlock()
		_ = watcher.Close()
	}()

	reload := func() {
		settings, err := LoadSettingsFile(configPath)
		if err != nil {
			slog.Warn("reload settings", "path", configPath, "error", err)
			return
		}
		onChange(settings)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			mu.Lock()
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, reload)
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("settings watcher error", "error", err)
		}
	}
}
