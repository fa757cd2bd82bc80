package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const settleDelay = 100 * time.Millisecond

// watcher calls publish for every file once, then again whenever it changes.
// Parent directories are watched so files replaced by editors are still
// seen.
type watcher struct {
	files   map[string]string // absolute path to the name given by the user
	publish func(name string) error
	logger  *slog.Logger
}

func newWatcher(names []string, publish func(name string) error, logger *slog.Logger) (*watcher, error) {
	w := &watcher{files: make(map[string]string, len(names)), publish: publish, logger: logger}
	for _, name := range names {
		abs, err := filepath.Abs(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		w.files[abs] = name
	}
	return w, nil
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dirs := make(map[string]bool)
	for abs := range w.files {
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	for _, name := range w.files {
		w.emit(name)
	}

	pending := make(map[string]bool)
	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name, watched := w.files[event.Name]
			if !watched || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pending[name] = true
			settle.Reset(settleDelay)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-settle.C:
			for name := range pending {
				w.emit(name)
			}
			clear(pending)
		}
	}
}

func (w *watcher) emit(name string) {
	if err := w.publish(name); err != nil {
		w.logger.Warn("failed to publish file", "file", name, "error", err)
	}
}
