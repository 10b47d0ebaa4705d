// Package config loads the viewer configuration from a YAML file on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendWGPU     = "wgpu"
	BackendSoftware = "software"
	BackendOpenCL   = "opencl"
)

// Config holds every setting of the viewer.
type Config struct {
	Window struct {
		Title     string `yaml:"title"`
		Width     int    `yaml:"width"`
		Height    int    `yaml:"height"`
		MinWidth  int    `yaml:"min_width"`
		MinHeight int    `yaml:"min_height"`
		Resizable bool   `yaml:"resizable"`
	} `yaml:"window"`

	Compute struct {
		// Backend is one of wgpu, software or opencl.
		Backend string `yaml:"backend"`
		// Program is the kernel program path, relative paths resolve against the executable.
		Program string `yaml:"program"`
		// Workers sizes the software device worker pool. 0 uses GOMAXPROCS.
		Workers int `yaml:"workers"`
		// PreferCPU picks an OpenCL CPU device over a GPU.
		PreferCPU bool `yaml:"prefer_cpu"`
	} `yaml:"compute"`

	Display struct {
		PresentMode string `yaml:"present_mode"`
		// FrameLimit caps the frame rate, 0 is uncapped.
		FrameLimit    float64 `yaml:"frame_limit"`
		ForceSoftware bool    `yaml:"force_software_adapter"`
		Overlay       bool    `yaml:"overlay"`
		// ClearColor fills the surface around the image, as #rrggbb.
		ClearColor string `yaml:"clear_color"`
	} `yaml:"display"`

	Log struct {
		Level       string `yaml:"level"`
		Environment string `yaml:"environment"`
		Encoding    string `yaml:"encoding"`
	} `yaml:"log"`

	Profiling bool `yaml:"profiling"`

	HotReload struct {
		Enabled  bool          `yaml:"enabled"`
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"hot_reload"`
}

// Default program paths per kernel dialect.
const (
	DefaultWGSLProgram   = "assets/programs/fractal.wgsl"
	DefaultOpenCLProgram = "assets/programs/fractal.cl"
)

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	var c Config
	c.Window.Title = "oxy-frac"
	c.Window.Width = 1920
	c.Window.Height = 1080
	c.Window.MinWidth = 320
	c.Window.MinHeight = 240
	c.Window.Resizable = true
	c.Compute.Backend = BackendWGPU
	c.Compute.Program = DefaultWGSLProgram
	c.Display.PresentMode = "vsync"
	c.Display.Overlay = true
	c.Display.ClearColor = "#000000"
	c.Log.Level = "info"
	c.Log.Environment = "development"
	c.HotReload.Enabled = true
	c.HotReload.Debounce = 250 * time.Millisecond
	return c
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
//
// Parameters:
//   - path: the config file path, may be empty
//
// Returns:
//   - Config: the merged configuration
//   - error: an error if the file cannot be read, parsed or fails validation
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	switch strings.ToLower(c.Compute.Backend) {
	case BackendWGPU, BackendSoftware, BackendOpenCL:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q, want %s, %s or %s", c.Compute.Backend, BackendWGPU, BackendSoftware, BackendOpenCL))
	}
	if c.Compute.Program == "" {
		errs = append(errs, errors.New("program path is empty"))
	}
	if c.Window.MinWidth < 0 || c.Window.MinHeight < 0 {
		errs = append(errs, fmt.Errorf("window minimum size %dx%d must not be negative", c.Window.MinWidth, c.Window.MinHeight))
	}
	if _, err := c.ClearRGBA(); err != nil {
		errs = append(errs, err)
	}
	if c.Compute.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Compute.Workers))
	}
	if c.Display.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame limit %v must not be negative", c.Display.FrameLimit))
	}
	return errors.Join(errs...)
}

// ProgramPath returns the program to load for the selected backend. The OpenCL backend
// swaps the default WGSL program for the default OpenCL one; explicit paths are kept.
func (c Config) ProgramPath() string {
	if strings.EqualFold(c.Compute.Backend, BackendOpenCL) && c.Compute.Program == DefaultWGSLProgram {
		return DefaultOpenCLProgram
	}
	return c.Compute.Program
}

// ClearRGBA parses Display.ClearColor. The leading # is optional.
func (c Config) ClearRGBA() (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(c.Display.ClearColor), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("clear color %q must be #rrggbb", c.Display.ClearColor)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("clear color %q must be #rrggbb", c.Display.ClearColor)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
