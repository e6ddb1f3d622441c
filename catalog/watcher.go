package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"paroles/logger"
)

const defaultDebounce = 2 * time.Second

// Watcher re-runs a directory sync whenever the library tree settles
// after filesystem changes. fsnotify does not recurse, so song folders
// are watched individually and new ones are added as they appear.
type Watcher struct {
	manager  Manager
	root     string
	debounce time.Duration
	fs       *fsnotify.Watcher

	// OnReport, when set, receives the report of every completed sync.
	OnReport func(*SyncReport)
}

// NewWatcher prepares a watcher over the library root and its existing
// song folders.
func NewWatcher(m Manager, root string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create library watcher: %w", err)
	}
	if err := fs.Add(root); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	w := &Watcher{manager: m, root: root, debounce: debounce, fs: fs}

	entries, err := os.ReadDir(root)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to read library %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || w.ignored(filepath.Join(root, entry.Name())) {
			continue
		}
		if err := fs.Add(filepath.Join(root, entry.Name())); err != nil {
			logger.Warn("could not watch song folder",
				logger.String("dir", entry.Name()), logger.ErrorField(err))
		}
	}
	return w, nil
}

// Run blocks until the context is canceled, syncing after each quiet
// period that follows a change.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastEvent time.Time
	dirty := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.fs.Add(event.Name); err != nil {
						logger.Warn("could not watch new folder",
							logger.String("dir", event.Name), logger.ErrorField(err))
					}
				}
			}
			dirty = true
			lastEvent = time.Now()

		case <-ticker.C:
			if !dirty || time.Since(lastEvent) < w.debounce {
				continue
			}
			dirty = false
			report, err := w.manager.SyncDirectory(ctx, w.root)
			if err != nil {
				logger.Error("sync after change failed", logger.ErrorField(err))
				continue
			}
			if w.OnReport != nil {
				w.OnReport(report)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("library watch error", logger.ErrorField(err))
		}
	}
}

// Close releases the underlying filesystem watches.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// ignored filters hidden and reserved paths, including anything inside
// a hidden or reserved folder.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") || strings.HasPrefix(part, "_") {
			return true
		}
	}
	return false
}
