//go:build !opencl

package compute

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCLUnavailableWithoutTag(t *testing.T) {
	d, err := NewOpenCLDevice(program.FromSource("__kernel void fractal() {}", program.LanguageOpenCL))
	assert.Nil(t, d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPlatformFound)
	assert.NotErrorIs(t, err, ErrNoDeviceFound)
	assert.Contains(t, err.Error(), "-tags opencl")
}
