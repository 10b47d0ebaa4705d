package compute

import (
	"runtime"

	"go.uber.org/zap"
)

// deviceOptions collects construction settings shared by the compute backends.
// Each backend reads only the fields it understands.
type deviceOptions struct {
	workers    int
	bandHeight int
	preferCPU  bool
	logger     *zap.Logger
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		workers:    runtime.NumCPU(),
		bandHeight: defaultBandHeight,
		logger:     zap.NewNop(),
	}
}

// DeviceBuilderOption is a function that configures a compute device.
type DeviceBuilderOption func(*deviceOptions)

// WithWorkers sets the number of pool workers the software device fans row bands out to.
// The default is runtime.NumCPU().
//
// Parameters:
//   - n: the worker count, must be at least 1
//
// Returns:
//   - DeviceBuilderOption: a function that applies the worker count option
func WithWorkers(n int) DeviceBuilderOption {
	return func(o *deviceOptions) {
		o.workers = n
	}
}

// WithBandHeight sets how many rows one software pool task evaluates.
//
// Parameters:
//   - rows: the band height, values below 1 fall back to the default
//
// Returns:
//   - DeviceBuilderOption: a function that applies the band height option
func WithBandHeight(rows int) DeviceBuilderOption {
	return func(o *deviceOptions) {
		o.bandHeight = rows
	}
}

// WithPreferCPU makes the OpenCL backend pick the platform's first CPU device instead of its first device.
//
// Parameters:
//   - prefer: true to select a CPU device when the platform has one
//
// Returns:
//   - DeviceBuilderOption: a function that applies the device preference option
func WithPreferCPU(prefer bool) DeviceBuilderOption {
	return func(o *deviceOptions) {
		o.preferCPU = prefer
	}
}

// WithLogger sets the logger used for device lifecycle messages.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option
func WithLogger(logger *zap.Logger) DeviceBuilderOption {
	return func(o *deviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
