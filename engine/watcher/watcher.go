// Package watcher signals edits of the kernel program file so the frame loop can rebuild it.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ProgramWatcher watches a single program file and reports debounced changes.
type ProgramWatcher interface {
	// Start begins watching. The watch runs until ctx is cancelled or Stop is called.
	//
	// Parameters:
	//   - ctx: the context bounding the watch goroutine
	//
	// Returns:
	//   - error: an error if the directory of the file cannot be watched
	Start(ctx context.Context) error

	// Changes returns the channel receiving the file path after each burst of edits.
	// At most one change is buffered; the receiver re-reads the file anyway.
	Changes() <-chan string

	// Stop closes the underlying watcher.
	Stop() error
}

// programWatcher is the implementation of the ProgramWatcher interface.
type programWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	changes  chan string
	debounce time.Duration
	logger   *zap.Logger
	stopOnce sync.Once
}

var _ ProgramWatcher = &programWatcher{}

// NewProgramWatcher creates a watcher for the program file at path.
//
// Parameters:
//   - path: the program file, watched through its parent directory so editor renames are seen
//   - options: ProgramWatcherBuilderOption functions
//
// Returns:
//   - ProgramWatcher: the watcher, not yet started
//   - error: an error if the fsnotify watcher cannot be created
func NewProgramWatcher(path string, options ...ProgramWatcherBuilderOption) (ProgramWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &programWatcher{
		path:     abs,
		watcher:  fw,
		changes:  make(chan string, 1),
		debounce: 250 * time.Millisecond,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		opt(w)
	}
	return w, nil
}

func (w *programWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}
	w.logger.Info("watching program for changes", zap.String("path", w.path))

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	go func() {
		defer debounceTimer.Stop()
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if w.shouldProcessEvent(event) {
					w.logger.Debug("program change detected",
						zap.String("file", event.Name),
						zap.String("op", event.Op.String()))
					debounceTimer.Reset(w.debounce)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("watcher error", zap.Error(err))

			case <-debounceTimer.C:
				select {
				case w.changes <- w.path:
				default:
				}

			case <-ctx.Done():
				w.logger.Debug("stopping program watcher")
				_ = w.Stop()
				return
			}
		}
	}()
	return nil
}

func (w *programWatcher) Changes() <-chan string {
	return w.changes
}

func (w *programWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// shouldProcessEvent accepts writes, creates and renames of the watched file only.
func (w *programWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Clean(event.Name) == w.path
}
