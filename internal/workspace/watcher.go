package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/noticeflow/internal/logger"
)

// Watcher reports new files dropped into the input root.
// Existing files are emitted once on start, then filesystem events take
// over, so a restart never misses inputs that arrived while it was down.
type Watcher struct {
	root string
	fsw  *fsnotify.Watcher
}

// NewWatcher creates a watcher over the layout's input root.
func NewWatcher(l *Layout) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(l.Input()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching input root: %w", err)
	}
	return &Watcher{root: l.Input(), fsw: fsw}, nil
}

// Watch streams paths of files to ingest until ctx is cancelled.
// The channel is closed when watching stops.
func (w *Watcher) Watch(ctx context.Context) <-chan string {
	paths := make(chan string)

	go func() {
		defer close(paths)

		// Drain whatever is already sitting in the input root.
		entries, err := os.ReadDir(w.root)
		if err != nil {
			logger.Warn("scanning input root: %v", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case paths <- filepath.Join(w.root, entry.Name()):
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				info, err := os.Stat(event.Name)
				if err != nil || info.IsDir() {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case paths <- event.Name:
				}

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("input watcher: %v", err)
			}
		}
	}()

	return paths
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
