// Package engine wires the window, the display, the compute device and the frame pipeline together
// and drives the interactive frame loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frac/engine/clock"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/frame"
	"github.com/Carmen-Shannon/oxy-frac/engine/input"
	"github.com/Carmen-Shannon/oxy-frac/engine/panel"
	"github.com/Carmen-Shannon/oxy-frac/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"github.com/Carmen-Shannon/oxy-frac/engine/view"
	"github.com/Carmen-Shannon/oxy-frac/engine/watcher"
	"github.com/Carmen-Shannon/oxy-frac/engine/window"
	"go.uber.org/zap"
)

// Compute backend names accepted by WithBackend.
const (
	BackendWGPU     = "wgpu"
	BackendSoftware = "software"
	BackendOpenCL   = "opencl"
)

// engine implements the Engine interface. It is the application context: every piece of per-run state
// the frame loop mutates lives here and is handed to the components that need it.
type engine struct {
	window   window.Window
	renderer renderer.Renderer
	display  frame.Display
	device   compute.Device
	prog     *program.Program

	backend       string
	deviceOptions []compute.DeviceBuilderOption
	logger        *zap.Logger

	params   *view.Parameters
	panel    panel.ControlPanel
	clock    clock.FrameClock
	router   input.InputRouter
	pipeline frame.Pipeline

	profiler         *profiler.Profiler
	profilingEnabled bool

	hotReload bool
	debounce  time.Duration
	watcher   watcher.ProgramWatcher
	cancel    context.CancelFunc

	overlayVisible   bool
	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
	sleep            func(time.Duration)

	quitOnce     sync.Once
	shutdownOnce sync.Once
}

// Engine is the main entry point for the viewer.
// It owns the window, the display, the compute device and the frame pipeline, and runs the frame loop.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// View returns the view parameters the kernels read each frame.
	//
	// Returns:
	//   - *view.Parameters: the live parameters, mutated by the input router and the animation step
	View() *view.Parameters

	// Pipeline returns the frame pipeline.
	Pipeline() frame.Pipeline

	// Device returns the compute device running the kernels.
	Device() compute.Device

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the frame loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Step runs one iteration of the frame loop: clock, animation, frame, profiler, events,
	// input drain and program reload.
	//
	// Returns:
	//   - bool: false once the loop should exit (window closed or Esc drained)
	Step() bool

	// Run primes the shared images, runs the frame loop until the window closes or Esc is pressed
	// and shuts down. Must be called on the goroutine that created the window.
	//
	// Returns:
	//   - error: nil on a regular exit
	Run() error

	// Quit asks the frame loop to exit after the current iteration.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Shutdown drains the compute queue and releases the device, the display and the window.
	// Run calls it on exit; it is safe to call more than once.
	Shutdown()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine from the provided options.
// A window is required. The display is the renderer unless WithDisplay supplies one; the compute
// device is built from the program for the selected backend unless WithDevice supplies one.
// The engine takes ownership of everything it is given and releases it on Shutdown.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: an error if a required part is missing or the device, images or pipeline cannot be created
func NewEngine(options ...EngineBuilderOption) (Engine, error) {
	e := &engine{
		backend:        BackendWGPU,
		logger:         zap.NewNop(),
		overlayVisible: true,
		debounce:       250 * time.Millisecond,
		sleep:          time.Sleep,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		return nil, errors.New("engine: a window is required")
	}
	if e.display == nil {
		if e.renderer == nil {
			return nil, errors.New("engine: a renderer or a display is required")
		}
		e.display = e.renderer
	}

	if e.device == nil {
		dev, err := e.newDevice()
		if err != nil {
			return nil, err
		}
		e.device = dev
	}

	target, cp, err := e.newSharedImages(e.window.Width(), e.window.Height())
	if err != nil {
		e.device.Close()
		return nil, err
	}

	e.pipeline, err = frame.NewPipeline(e.device, e.display, target, cp, frame.WithLogger(e.logger.Named("frame")))
	if err != nil {
		e.device.Close()
		return nil, err
	}

	e.params = view.New()
	e.panel = panel.NewControlPanel(panel.WithVisible(e.overlayVisible), panel.WithLogger(e.logger.Named("panel")))
	e.panel.SetDeviceName(e.device.Name())
	e.clock = clock.NewFrameClock(clock.WithTimeSource(e.window.Time))
	e.router = input.NewInputRouter(e.params, e.panel, input.WithLogger(e.logger.Named("input")))
	e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger.Named("profiler")))

	e.wireWindow()

	if e.hotReload && e.prog != nil && e.prog.Path != "" {
		if err := e.startWatcher(); err != nil {
			e.logger.Warn("program hot reload disabled", zap.Error(err))
		}
	}

	e.logger.Info("engine ready",
		zap.String("backend", e.backend),
		zap.String("device", e.device.Name()),
		zap.Int("width", target.Extent().Width),
		zap.Int("height", target.Extent().Height))
	return e, nil
}

// newDevice builds the compute device for the configured backend.
func (e *engine) newDevice() (compute.Device, error) {
	if e.prog == nil {
		return nil, errors.New("engine: a program is required to build the compute device")
	}
	opts := append([]compute.DeviceBuilderOption{compute.WithLogger(e.logger.Named("compute"))}, e.deviceOptions...)

	switch strings.ToLower(e.backend) {
	case BackendWGPU:
		if e.renderer == nil {
			return nil, errors.New("engine: the wgpu backend needs a renderer")
		}
		return e.renderer.NewComputeDevice(e.prog, renderer.WithComputeLogger(e.logger.Named("compute")))
	case BackendSoftware:
		return compute.NewCPUDevice(e.prog, opts...)
	case BackendOpenCL:
		return compute.NewOpenCLDevice(e.prog, opts...)
	default:
		return nil, fmt.Errorf("engine: unknown backend %q", e.backend)
	}
}

// newSharedImages creates the target and copy images, on the renderer when there is one.
func (e *engine) newSharedImages(width, height int) (*shared.Image, *shared.Image, error) {
	create := shared.NewImage
	if e.renderer != nil {
		create = e.renderer.CreateSharedImage
	}
	target, err := create("target", width, height)
	if err != nil {
		return nil, nil, fmt.Errorf("create target image: %w", err)
	}
	cp, err := create("copy", width, height)
	if err != nil {
		return nil, nil, fmt.Errorf("create copy image: %w", err)
	}
	return target, cp, nil
}

// wireWindow routes window callbacks into the input router and the renderer.
func (e *engine) wireWindow() {
	e.window.SetKeyCallback(e.router.Key)
	e.window.SetCursorPosCallback(e.router.CursorMoved)
	e.window.SetMouseButtonCallback(e.router.MouseButton)
	e.window.SetResizeCallback(func(width, height int) {
		if e.renderer != nil && width > 0 && height > 0 {
			e.renderer.Resize(width, height)
		}
	})
	e.router.SetQuitCallback(e.Quit)
	e.router.SetCursorCaptureCallback(e.window.SetCursorCaptured)
}

func (e *engine) startWatcher() error {
	w, err := watcher.NewProgramWatcher(e.prog.Path,
		watcher.WithDebounce(e.debounce),
		watcher.WithLogger(e.logger.Named("watcher")))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx); err != nil {
		cancel()
		_ = w.Stop()
		return err
	}
	e.watcher = w
	e.cancel = cancel
	return nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) View() *view.Parameters {
	return e.params
}

func (e *engine) Pipeline() frame.Pipeline {
	return e.pipeline
}

func (e *engine) Device() compute.Device {
	return e.device
}

func (e *engine) Run() error {
	defer e.Shutdown()

	if err := e.pipeline.Compute(e.params); err != nil {
		e.logger.Warn("priming compute pass failed", zap.Error(err))
	}

	for {
		start := time.Now()
		if !e.Step() {
			return nil
		}
		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
				e.sleep(remaining)
			}
		}
	}
}

func (e *engine) Step() bool {
	if !e.running() {
		return false
	}

	e.clock.Advance()
	dt := float32(e.clock.DeltaTime())
	e.params.Animate(dt)

	if err := e.pipeline.RenderFrame(e.params, e.panel, e.clock); err != nil && !errors.Is(err, frame.ErrFrameSkipped) {
		e.logger.Warn("display phase failed", zap.Error(err))
	}
	e.panel.ResetInputFlags()

	if e.profilingEnabled {
		e.profiler.Tick(e.pipeline.Stats())
	}

	e.window.PollEvents()
	e.router.Drain(dt)
	e.reloadProgram()

	return e.running()
}

func (e *engine) running() bool {
	return e.window.IsRunning() && !e.router.QuitRequested()
}

// reloadProgram rebuilds the device program when the watcher reported a change.
// A rejected program leaves the previous one active.
func (e *engine) reloadProgram() {
	if e.watcher == nil {
		return
	}
	select {
	case path := <-e.watcher.Changes():
		next, err := e.prog.Reload()
		if err != nil {
			e.logger.Warn("program reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		if err := e.device.Rebuild(next.Source); err != nil {
			e.logger.Warn("program rebuild rejected, keeping previous program", zap.String("path", path), zap.Error(err))
			return
		}
		e.prog = next
		e.logger.Info("program rebuilt", zap.String("path", path))
	default:
	}
}

// Quit asks the window to close. Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.window.RequestClose()
	})
}

func (e *engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		if e.cancel != nil {
			e.cancel()
		}
		if e.watcher != nil {
			_ = e.watcher.Stop()
		}
		if err := e.device.Finish(); err != nil {
			e.logger.Warn("compute queue drain failed", zap.Error(err))
		}
		e.device.Close()
		if e.renderer != nil {
			e.renderer.Close()
		}
		if err := e.window.Close(); err != nil {
			e.logger.Warn("window close failed", zap.Error(err))
		}
		st := e.pipeline.Stats()
		e.logger.Info("engine stopped", zap.Uint64("frames", st.Frames), zap.Uint64("skipped", st.Skipped))
	})
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the frame loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
