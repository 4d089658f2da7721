package fixtures

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher drops cached fixtures as soon as their file changes on disk, so
// fixture edits made while a long suite is running are picked up by the
// next scenario even if the fixture pattern does not cover them.
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// NewWatcher watches the store root and every directory below it.
func NewWatcher(store *Store) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fixtures: create watcher: %w", err)
	}

	root := filepath.FromSlash(store.Key("."))
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
	if walkErr != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("fixtures: watch %s: %w", root, walkErr)
	}

	return &Watcher{store: store, watcher: fw}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.store.logger.Warn("Fixture watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if isDir(event.Name) {
			if err := w.watcher.Add(event.Name); err != nil {
				w.store.logger.Warn("Fixture watcher could not add directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	key := w.store.Key(event.Name)
	if w.store.invalidateKey(key) {
		w.store.logger.Debug("Fixture changed on disk", "key", key, "op", event.Op.String())
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
