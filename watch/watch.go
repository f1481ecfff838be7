// Package watch reports file changes below a directory, batched per burst of activity.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of events to settle.
const DefaultDebounce = 100 * time.Millisecond

// Handler is called with the sorted, de-duplicated list of changed paths.
type Handler func(paths []string)

// Watcher watches a directory tree recursively.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   log.Logger
}

// New ...
func New(root string, debounce time.Duration, logger log.Logger) Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return Watcher{root: root, debounce: debounce, logger: logger}
}

// Run blocks until ctx is done, calling handler after each burst of changes.
// The handler is never called concurrently with itself.
func (w Watcher) Run(ctx context.Context, handler Handler) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			w.logger.Warnf("Failed to close file watcher: %s", err)
		}
	}()

	if err := addRecursive(fsw, w.root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.root, err)
	}
	w.logger.Debugf("Watching %s", w.root)

	changed := map[string]bool{}
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isRelevant(event) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(fsw, event.Name); err != nil {
						w.logger.Warnf("Failed to watch new directory %s: %s", event.Name, err)
					}
				}
			}

			changed[event.Name] = true
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("File watcher error: %s", err)
		case <-timer.C:
			if len(changed) == 0 {
				continue
			}
			paths := make([]string, 0, len(changed))
			for pth := range changed {
				paths = append(paths, pth)
			}
			sort.Strings(paths)
			changed = map[string]bool{}

			handler(paths)
		}
	}
}

func isRelevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(pth string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && pth != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(pth)
	})
}
