package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-frac/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy-frac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compute:\n  backend: opencl\n  workers: 2\nprofiling: true\n"), 0o644))

	cfg, err := parseFlags([]string{"-config", path, "-backend", "software", "-width", "640", "-profile=false"})
	require.NoError(t, err)
	assert.Equal(t, config.BackendSoftware, cfg.Compute.Backend)
	assert.Equal(t, 2, cfg.Compute.Workers, "unset flags keep the file value")
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 1080, cfg.Window.Height)
	assert.False(t, cfg.Profiling)
}

func TestFlagsWithoutConfigUseDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestInvalidFlags(t *testing.T) {
	_, err := parseFlags([]string{"-backend", "metal"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-frame-limit", "-1"})
	assert.Error(t, err)
}
