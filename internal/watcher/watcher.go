// Package watcher watches a directory tree and reports batches of changed
// files after a quiet period.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jmylchreest/smellmark/internal/logger"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 100 * time.Millisecond

// Filter reports whether a changed path is of interest.
type Filter func(path string) bool

// Handler receives a debounced batch of changed paths, sorted and
// deduplicated. Handler errors are logged and do not stop the watcher.
type Handler func(ctx context.Context, paths []string) error

// Watcher watches a directory tree recursively.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	filter   Filter
	handler  Handler
}

// New creates a watcher for root. A zero debounce uses DefaultDebounce and a
// nil filter accepts every file.
func New(root string, debounce time.Duration, filter Filter, handler Handler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		root:     filepath.Clean(root),
		debounce: debounce,
		filter:   filter,
		handler:  handler,
	}
	if err := w.addRecursive(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive watches dir and every directory below it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		logger.Debug("watching directory", "path", path)
		return nil
	})
}

// Run delivers batches to the handler until ctx is done, then closes the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(event, pending) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			logger.Debug("watcher batch", "count", len(paths))
			if err := w.handler(ctx, paths); err != nil {
				logger.Warn("watch handler failed", "error", err)
			}
		}
	}
}

// handleEvent records a relevant event and reports whether it was queued.
func (w *Watcher) handleEvent(event fsnotify.Event, pending map[string]struct{}) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return false
	}
	if info.IsDir() {
		if !event.Has(fsnotify.Create) {
			return false
		}
		if err := w.addRecursive(event.Name); err != nil {
			logger.Warn("watching new directory failed", "path", event.Name, "error", err)
		}
		// Files written before the watch was attached produce no events.
		return w.queueExisting(event.Name, pending)
	}
	if !info.Mode().IsRegular() || !w.filter(event.Name) {
		return false
	}

	pending[event.Name] = struct{}{}
	return true
}

// queueExisting records every selected file below dir and reports whether
// any was queued.
func (w *Watcher) queueExisting(dir string, pending map[string]struct{}) bool {
	queued := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && w.filter(path) {
			pending[path] = struct{}{}
			queued = true
		}
		return nil
	})
	if err != nil {
		logger.Warn("scanning new directory failed", "path", dir, "error", err)
	}
	return queued
}
