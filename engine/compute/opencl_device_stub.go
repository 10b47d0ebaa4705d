//go:build !opencl

package compute

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-frac/engine/program"
)

// NewOpenCLDevice is unavailable in builds without the opencl tag.
//
// Returns:
//   - error: an *InitError of kind NoPlatformFound explaining how to enable the backend
func NewOpenCLDevice(_ *program.Program, _ ...DeviceBuilderOption) (Device, error) {
	return nil, &InitError{Kind: NoPlatformFound, Err: errors.New("built without OpenCL support, rebuild with -tags opencl")}
}
