package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/frame"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frac/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets the window providing events, the time source and the framebuffer size.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the GPU renderer. It becomes the display, creates the shared image textures
// and provides the wgpu compute device.
//
// Parameters:
//   - r: the renderer created for the window's surface
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithDisplay replaces the display surface, e.g. with a frame.HeadlessDisplay.
// Shared images are then host-only and the wgpu backend is unavailable.
//
// Parameters:
//   - d: the display
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDisplay(d frame.Display) EngineBuilderOption {
	return func(e *engine) {
		e.display = d
	}
}

// WithDevice supplies a ready compute device instead of building one from the program.
func WithDevice(d compute.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithBackend selects the compute backend: BackendWGPU (default), BackendSoftware or BackendOpenCL.
//
// Parameters:
//   - name: the backend name
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(name string) EngineBuilderOption {
	return func(e *engine) {
		e.backend = name
	}
}

// WithProgram sets the kernel program the compute device is built from.
//
// Parameters:
//   - prog: the loaded program; its Path is watched when hot reload is enabled
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProgram(prog *program.Program) EngineBuilderOption {
	return func(e *engine) {
		e.prog = prog
	}
}

// WithDeviceOptions passes options through to the software and OpenCL devices.
func WithDeviceOptions(options ...compute.DeviceBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.deviceOptions = append(e.deviceOptions, options...)
	}
}

// WithHotReload rebuilds the program when its file changes.
//
// Parameters:
//   - enabled: true to watch the program file
//   - debounce: the quiet period before a change is applied, 0 keeps the default
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithHotReload(enabled bool, debounce time.Duration) EngineBuilderOption {
	return func(e *engine) {
		e.hotReload = enabled
		if debounce > 0 {
			e.debounce = debounce
		}
	}
}

// WithOverlay sets the initial visibility of the control panel overlay.
func WithOverlay(visible bool) EngineBuilderOption {
	return func(e *engine) {
		e.overlayVisible = visible
	}
}

// WithLogger sets the logger shared by the engine and its components.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the frame loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameDuration(fps)
	}
}

// withSleep replaces time.Sleep in the frame limiter, for tests.
func withSleep(sleep func(time.Duration)) EngineBuilderOption {
	return func(e *engine) {
		e.sleep = sleep
	}
}
