package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DachengChen/floatwords/applog"
)

// WatchFile signals on the returned channel whenever path is created,
// written, renamed or removed. Bursts are coalesced into one signal per
// debounce window. The parent directory is watched so editors that replace
// the file atomically are picked up. The channel closes when ctx is done.
func WatchFile(ctx context.Context, path string, debounce time.Duration) (<-chan struct{}, error) {
	if path == "" {
		return nil, errors.New("provider: watch path required")
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("provider: ensure %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("provider: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				applog.Warn("watcher close", "err", err)
			}
		})
	}
	if err := watcher.Add(dir); err != nil {
		closeWatcher()
		return nil, fmt.Errorf("provider: watch %s: %w", dir, err)
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		defer closeWatcher()

		timer := time.NewTimer(time.Hour)
		timer.Stop()
		pending := false

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				applog.Warn("texts watcher error", "err", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(evt.Name) != path {
					continue
				}
				if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				if !pending {
					pending = true
					timer.Reset(debounce)
				}
			case <-timer.C:
				pending = false
				select {
				case changes <- struct{}{}:
				default:
					// A signal is already queued; one reload covers both.
				}
			}
		}
	}()

	return changes, nil
}

// Reload re-prepares l every time its texts file changes, until ctx is done.
func (l *Local) Reload(ctx context.Context, debounce time.Duration) error {
	if l.path == "" {
		return nil
	}
	changes, err := WatchFile(ctx, l.path, debounce)
	if err != nil {
		return err
	}
	for range changes {
		applog.Info("texts file changed, reloading", "path", l.path)
		l.Prepare()
	}
	return nil
}
