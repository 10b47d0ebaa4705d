// Command oxy-frac is an interactive fractal viewer. Each frame the fractal is evaluated by a compute
// kernel into a shared image that the display samples onto the window.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-frac/config"
	"github.com/Carmen-Shannon/oxy-frac/engine"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/logger"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frac/engine/window"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-frac:", err)
		os.Exit(1)
	}
}

// parseFlags loads the config file named by -config and applies the flags that were set on top of it.
func parseFlags(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("oxy-frac", flag.ContinueOnError)
	path := fs.String("config", "", "YAML config file")
	title := fs.String("title", "", "window title")
	width := fs.Int("width", 0, "window width in pixels")
	height := fs.Int("height", 0, "window height in pixels")
	backend := fs.String("backend", "", "compute backend: wgpu, software or opencl")
	prog := fs.String("program", "", "kernel program path (.wgsl or .cl)")
	workers := fs.Int("workers", 0, "software device worker count")
	preferCPU := fs.Bool("prefer-cpu", false, "prefer an OpenCL CPU device")
	present := fs.String("present", "", "present mode: vsync or uncapped")
	frameLimit := fs.Float64("frame-limit", 0, "frame rate cap, 0 for uncapped")
	softwareAdapter := fs.Bool("software-adapter", false, "force the wgpu fallback adapter")
	overlay := fs.Bool("overlay", true, "show the control panel at startup")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn or error")
	profiling := fs.Bool("profile", false, "log frame and memory statistics every second")
	hotReload := fs.Bool("hot-reload", true, "rebuild the program when its file changes")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			cfg.Window.Title = *title
		case "width":
			cfg.Window.Width = *width
		case "height":
			cfg.Window.Height = *height
		case "backend":
			cfg.Compute.Backend = *backend
		case "program":
			cfg.Compute.Program = *prog
		case "workers":
			cfg.Compute.Workers = *workers
		case "prefer-cpu":
			cfg.Compute.PreferCPU = *preferCPU
		case "present":
			cfg.Display.PresentMode = *present
		case "frame-limit":
			cfg.Display.FrameLimit = *frameLimit
		case "software-adapter":
			cfg.Display.ForceSoftware = *softwareAdapter
		case "overlay":
			cfg.Display.Overlay = *overlay
		case "log-level":
			cfg.Log.Level = *logLevel
		case "profile":
			cfg.Profiling = *profiling
		case "hot-reload":
			cfg.HotReload.Enabled = *hotReload
		}
	})
	return cfg, cfg.Validate()
}

func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Environment: cfg.Log.Environment,
		LogLevel:    cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
	})
	defer func() { _ = log.Sync() }()

	presentMode, err := renderer.ParsePresentMode(cfg.Display.PresentMode)
	if err != nil {
		return err
	}

	prog, err := program.Load(cfg.ProgramPath())
	if err != nil {
		return err
	}

	clearColor, err := cfg.ClearRGBA()
	if err != nil {
		return err
	}

	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithMinSize(cfg.Window.MinWidth, cfg.Window.MinHeight),
		window.WithResizable(cfg.Window.Resizable),
	)
	if err != nil {
		return err
	}

	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(cfg.Display.ForceSoftware),
		renderer.WithClearColor(clearColor),
		renderer.WithLogger(log.Named("renderer")),
	)
	if err != nil {
		_ = win.Close()
		return err
	}
	log.Info("display adapter", zap.String("adapter", r.AdapterName()), zap.Stringer("present_mode", presentMode))

	var deviceOptions []compute.DeviceBuilderOption
	if cfg.Compute.Workers > 0 {
		deviceOptions = append(deviceOptions, compute.WithWorkers(cfg.Compute.Workers))
	}
	deviceOptions = append(deviceOptions, compute.WithPreferCPU(cfg.Compute.PreferCPU))

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithBackend(cfg.Compute.Backend),
		engine.WithProgram(prog),
		engine.WithDeviceOptions(deviceOptions...),
		engine.WithLogger(log),
		engine.WithProfiling(cfg.Profiling),
		engine.WithRenderFrameLimit(cfg.Display.FrameLimit),
		engine.WithHotReload(cfg.HotReload.Enabled, cfg.HotReload.Debounce),
		engine.WithOverlay(cfg.Display.Overlay),
	)
	if err != nil {
		var compileErr *compute.CompileError
		if errors.As(err, &compileErr) {
			log.Error("program build failed", zap.String("program", prog.Path), zap.String("build_log", compileErr.Log))
		}
		r.Close()
		_ = win.Close()
		return err
	}
	return eng.Run()
}
