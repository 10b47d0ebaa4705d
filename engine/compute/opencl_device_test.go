//go:build opencl

package compute

import (
	"testing"

	"github.com/jgillich/go-opencl/cl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectDeviceTakesFirstDevice(t *testing.T) {
	platforms, err := cl.GetPlatforms()
	if err != nil || len(platforms) == 0 {
		t.Skip("no OpenCL platform available")
	}
	all, err := platforms[0].GetDevices(cl.DeviceTypeAll)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	device, err := selectDevice(platforms[0], false)
	require.NoError(t, err)
	assert.Equal(t, all[0].Name(), device.Name())

	cpus, err := platforms[0].GetDevices(cl.DeviceTypeCPU)
	device, serr := selectDevice(platforms[0], true)
	require.NoError(t, serr)
	if err == nil && len(cpus) > 0 {
		assert.Equal(t, cpus[0].Name(), device.Name())
	} else {
		assert.Equal(t, all[0].Name(), device.Name())
	}
}
