package frame

import (
	"time"

	"go.uber.org/zap"
)

// PipelineBuilderOption is a function that configures the frame pipeline.
type PipelineBuilderOption func(*pipeline)

// WithLogger sets the logger skipped frames are reported to.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - PipelineBuilderOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) PipelineBuilderOption {
	return func(p *pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNow replaces the wall clock used to measure compute time.
//
// Parameters:
//   - now: the time source
//
// Returns:
//   - PipelineBuilderOption: a function that applies the time source option
func WithNow(now func() time.Time) PipelineBuilderOption {
	return func(p *pipeline) {
		if now != nil {
			p.now = now
		}
	}
}
