package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/DachengChen/floatwords/applog"
)

// Watch reports which known keys changed on disk. Changes within one
// debounce window arrive as a single sorted batch. The channel closes when
// ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) (<-chan []string, error) {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("settings: create watcher: %w", err)
	}
	// fsnotify is not recursive, so watch every directory a known key lives in.
	dirs := map[string]bool{s.basePath: true}
	for _, k := range AllKeys {
		dirs[filepath.Join(s.basePath, filepath.Dir(filepath.FromSlash(k)))] = true
	}
	for dir := range dirs {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("settings: ensure %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("settings: watch %s: %w", dir, err)
		}
	}

	out := make(chan []string, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		timer := time.NewTimer(time.Hour)
		timer.Stop()
		pending := map[string]bool{}

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				applog.Warn("settings watcher error", "err", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				key, ok := s.keyForPath(evt.Name)
				if !ok {
					continue
				}
				if len(pending) == 0 {
					timer.Reset(debounce)
				}
				pending[key] = true
			case <-timer.C:
				keys := make([]string, 0, len(pending))
				for k := range pending {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				pending = map[string]bool{}
				select {
				case out <- keys:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *Store) keyForPath(name string) (string, bool) {
	rel, err := filepath.Rel(s.basePath, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	key := filepath.ToSlash(rel)
	return key, IsKnown(key)
}
