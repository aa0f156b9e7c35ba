// Package watcher provides filesystem watching for watch mode: change
// events expire the affected scan-cache scopes and trigger a debounced
// re-validation instead of waiting for TTL expiry.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/verity/pkg/verity/fscache"
	"github.com/jamesainslie/verity/pkg/verity/logging"
)

var logger = logging.Get("watcher")

// DefaultDebounce batches bursts of events (an editor save, a git
// checkout) into one re-validation.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches directories for changes and invalidates cache scopes.
type Watcher struct {
	cache    *fscache.Cache
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu     sync.RWMutex
	paths  map[string]bool
	closed bool
}

// New creates a watcher that expires entries in the given cache.
func New(cache *fscache.Cache) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		cache:    cache,
		fsw:      fsw,
		debounce: DefaultDebounce,
		paths:    make(map[string]bool),
	}, nil
}

// Watch starts watching a path recursively. Watches cover the root and
// all subdirectories; symlinks are not followed to avoid loops.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil // Only watch directories
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		logger.Warn("failed to watch directory", "path", path, "error", err)
		return nil
	}
	w.paths[path] = true
	return nil
}

// Run processes events until the context is cancelled. Each event expires
// the cache scopes containing the changed path; after a quiet period of
// the debounce interval, onChange fires once for the burst.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
			if onChange != nil {
				if timer == nil {
					timer = time.NewTimer(w.debounce)
					timerC = timer.C
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(w.debounce)
				}
			}

		case <-timerC:
			onChange()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", "error", err)
		}
	}
}

// handleEvent expires affected cache scopes and tracks new directories.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	logger.Debug("filesystem event", "op", event.Op.String(), "path", event.Name)

	w.cache.InvalidateContaining(event.Name)

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = w.addWatch(event.Name)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}
