// Package filewatcher watches the corpus directory so the chunk store can
// be reloaded when ingestion output changes.
package filewatcher

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/0xcro3dile/docqa-go/internal/domain/ports"
)

// MatchFunc selects the paths whose events are reported.
type MatchFunc func(path string) bool

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
	match   MatchFunc
	logger  *slog.Logger
}

// NewFSNotifyWatcher creates a new file watcher. A nil match reports every path.
func NewFSNotifyWatcher(match MatchFunc, logger *slog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if match == nil {
		match = func(string) bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FSNotifyWatcher{watcher: w, match: match, logger: logger}, nil
}

// Watch starts monitoring the directory and emits events.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.match(event.Name) {
					continue
				}

				op, ok := operation(event.Op)
				if !ok {
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.WarnContext(ctx, "file watcher error", "dir", dir, "error", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

// operation maps an fsnotify op. A rename is reported as a delete of the
// old name; the new name arrives as its own create.
func operation(op fsnotify.Op) (ports.FileOperation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return ports.FileCreated, true
	case op.Has(fsnotify.Write):
		return ports.FileModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ports.FileDeleted, true
	default:
		return 0, false
	}
}
