package renderer

import "go.uber.org/zap"

// ComputeDeviceBuilderOption is a functional option applied to the wgpu compute device.
type ComputeDeviceBuilderOption func(*wgpuComputeDevice)

// WithComputeLogger sets the logger used for build and rebuild messages.
// Renderer.NewComputeDevice passes the renderer's logger by default.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - ComputeDeviceBuilderOption: a function that applies the logger option
func WithComputeLogger(logger *zap.Logger) ComputeDeviceBuilderOption {
	return func(d *wgpuComputeDevice) {
		if logger != nil {
			d.logger = logger
		}
	}
}
