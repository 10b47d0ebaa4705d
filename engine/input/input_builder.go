package input

import "go.uber.org/zap"

// InputRouterBuilderOption is a functional option for configuring an inputRouter.
type InputRouterBuilderOption func(*inputRouter)

// WithLogger sets the logger used for toggle and reset diagnostics.
//
// Parameters:
//   - logger: the zap logger (nil keeps the no-op logger)
//
// Returns:
//   - InputRouterBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) InputRouterBuilderOption {
	return func(r *inputRouter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithForce overrides the pan and zoom rate. Values <= 0 keep Force.
//
// Parameters:
//   - force: units per second applied by pan and zoom keys
//
// Returns:
//   - InputRouterBuilderOption: option function to apply
func WithForce(force float32) InputRouterBuilderOption {
	return func(r *inputRouter) {
		if force > 0 {
			r.force = force
		}
	}
}
