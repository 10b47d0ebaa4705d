package config

import (
	"os"
	"path/filepath"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oxy-frac.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
window:
  width: 800
  height: 600
compute:
  backend: software
  workers: 4
  min_width: 200
  resizable: false
display:
  present_mode: uncapped
  frame_limit: 120
  clear_color: "#102030"
hot_reload:
  debounce: 1s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, 200, cfg.Window.MinWidth)
	assert.Equal(t, 240, cfg.Window.MinHeight)
	assert.False(t, cfg.Window.Resizable)
	assert.Equal(t, "oxy-frac", cfg.Window.Title)
	assert.Equal(t, BackendSoftware, cfg.Compute.Backend)
	assert.Equal(t, 4, cfg.Compute.Workers)
	assert.Equal(t, "assets/programs/fractal.wgsl", cfg.Compute.Program)
	assert.Equal(t, "uncapped", cfg.Display.PresentMode)
	assert.Equal(t, 120.0, cfg.Display.FrameLimit)
	assert.True(t, cfg.Display.Overlay)
	assert.Equal(t, time.Second, cfg.HotReload.Debounce)

	bg, err := cfg.ClearRGBA()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, bg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "window: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "compute:\n  backend: vulkan\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "vulkan"`)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"size", func(c *Config) { c.Window.Width = 0 }, "window size"},
		{"program", func(c *Config) { c.Compute.Program = "" }, "program path"},
		{"workers", func(c *Config) { c.Compute.Workers = -1 }, "workers"},
		{"frame limit", func(c *Config) { c.Display.FrameLimit = -5 }, "frame limit"},
		{"min size", func(c *Config) { c.Window.MinHeight = -1 }, "minimum size"},
		{"clear color length", func(c *Config) { c.Display.ClearColor = "#fff" }, "clear color"},
		{"clear color digits", func(c *Config) { c.Display.ClearColor = "#zz0000" }, "clear color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestProgramPath(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, DefaultWGSLProgram, cfg.ProgramPath())

	cfg.Compute.Backend = BackendOpenCL
	assert.Equal(t, DefaultOpenCLProgram, cfg.ProgramPath())

	cfg.Compute.Program = "kernels/custom.cl"
	assert.Equal(t, "kernels/custom.cl", cfg.ProgramPath())
}

func TestClearRGBADefault(t *testing.T) {
	bg, err := Defaults().ClearRGBA()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{A: 0xff}, bg)

	cfg := Defaults()
	cfg.Display.ClearColor = "ff8000"
	bg, err = cfg.ClearRGBA()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x80, A: 0xff}, bg)
}
