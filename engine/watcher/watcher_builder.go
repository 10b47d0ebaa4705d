package watcher

import (
	"time"

	"go.uber.org/zap"
)

// ProgramWatcherBuilderOption is a functional option for configuring a programWatcher.
type ProgramWatcherBuilderOption func(*programWatcher)

// WithDebounce sets the quiet period after the last event before a change is reported.
//
// Parameters:
//   - d: the debounce period, ignored when not positive
//
// Returns:
//   - ProgramWatcherBuilderOption: option function to apply
func WithDebounce(d time.Duration) ProgramWatcherBuilderOption {
	return func(w *programWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for watch events and errors.
func WithLogger(logger *zap.Logger) ProgramWatcherBuilderOption {
	return func(w *programWatcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}
