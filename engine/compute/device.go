// Package compute defines the compute device abstraction that runs the fractal and smoothing kernels,
// together with its software and OpenCL backends. The wgpu backend lives in the renderer package
// because it shares the display's GPU device.
package compute

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
)

// Kernel names every device must provide.
const (
	KernelFractal = program.KernelFractal
	KernelSmooth  = program.KernelSmooth
)

// Device owns a compute context, its queue and a compiled program.
// All methods are called from the frame loop goroutine.
type Device interface {
	// Name returns a human readable backend and device name.
	//
	// Returns:
	//   - string: the device name shown in the control panel
	Name() string

	// Invoke runs a kernel over a 2D index space and waits for it to complete.
	// The fractal kernel takes (image *shared.Image, offsetX, offsetY, scale float32).
	// The smooth kernel takes (src, dst *shared.Image) with src != dst.
	//
	// Parameters:
	//   - kernel: KernelFractal or KernelSmooth
	//   - extent: the index space, which must lie inside every image argument
	//   - args: the kernel arguments
	//
	// Returns:
	//   - error: ErrUnknownKernel, ErrKernelArgs or a *RuntimeTransferError
	Invoke(kernel string, extent common.Extent, args ...any) error

	// CopyImageRegion copies a region between two acquired images on the device.
	//
	// Parameters:
	//   - src: the source image
	//   - dst: the destination image
	//   - origin: the top-left corner of the region in both images
	//   - extent: the region size
	//
	// Returns:
	//   - error: a *RuntimeTransferError if the copy cannot be performed
	CopyImageRegion(src, dst *shared.Image, origin common.Origin, extent common.Extent) error

	// Acquire transfers an image from the display to the compute device.
	//
	// Parameters:
	//   - img: the shared image
	//
	// Returns:
	//   - error: a *RuntimeTransferError if the image is already compute-owned or the transfer fails
	Acquire(img *shared.Image) error

	// Release hands an acquired image back to the display once all queued work on it is ordered before.
	//
	// Parameters:
	//   - img: the shared image
	//
	// Returns:
	//   - error: a *RuntimeTransferError if the image is not compute-owned or the transfer fails
	Release(img *shared.Image) error

	// Finish drains the compute queue.
	//
	// Returns:
	//   - error: a *RuntimeTransferError if the queue cannot be drained
	Finish() error

	// Rebuild recompiles the program from new source. On failure the previous program stays active.
	//
	// Parameters:
	//   - source: the new program source, in the device's language
	//
	// Returns:
	//   - error: a *CompileError carrying the build log
	Rebuild(source string) error

	// Close releases every device resource. The device must not be used afterwards.
	Close()
}

// FractalArgs unpacks the fractal kernel arguments (image, offsetX, offsetY, scale).
// Backends use it to validate Invoke calls the same way.
func FractalArgs(args []any) (img *shared.Image, offsetX, offsetY, scale float32, err error) {
	if len(args) != 4 {
		return nil, 0, 0, 0, fmt.Errorf("%s: want 4 arguments, got %d: %w", KernelFractal, len(args), ErrKernelArgs)
	}
	img, ok := args[0].(*shared.Image)
	if !ok || img == nil {
		return nil, 0, 0, 0, fmt.Errorf("%s: argument 0 must be *shared.Image: %w", KernelFractal, ErrKernelArgs)
	}
	var floats [3]float32
	for i := range floats {
		f, ok := args[i+1].(float32)
		if !ok {
			return nil, 0, 0, 0, fmt.Errorf("%s: argument %d must be float32, got %T: %w", KernelFractal, i+1, args[i+1], ErrKernelArgs)
		}
		floats[i] = f
	}
	return img, floats[0], floats[1], floats[2], nil
}

// SmoothArgs unpacks (src, dst) and rejects aliasing.
func SmoothArgs(args []any) (src, dst *shared.Image, err error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s: want 2 arguments, got %d: %w", KernelSmooth, len(args), ErrKernelArgs)
	}
	src, ok1 := args[0].(*shared.Image)
	dst, ok2 := args[1].(*shared.Image)
	if !ok1 || !ok2 || src == nil || dst == nil {
		return nil, nil, fmt.Errorf("%s: arguments must be *shared.Image: %w", KernelSmooth, ErrKernelArgs)
	}
	if src == dst {
		return nil, nil, fmt.Errorf("%s: source and destination must differ: %w", KernelSmooth, ErrKernelArgs)
	}
	return src, dst, nil
}

// CheckRegion verifies that img is compute-owned and covers the region.
// Failures are *RuntimeTransferError values tagged with op.
func CheckRegion(op string, img *shared.Image, origin common.Origin, extent common.Extent) error {
	if img.Owner() != shared.OwnerCompute {
		return &RuntimeTransferError{Op: op, Image: img.Label(), Err: fmt.Errorf("not acquired: %w", shared.ErrOwnership)}
	}
	if !img.Contains(origin, extent) {
		e := img.Extent()
		return &RuntimeTransferError{Op: op, Image: img.Label(), Err: fmt.Errorf("region %v+%v outside %dx%d image", origin, extent, e.Width, e.Height)}
	}
	return nil
}
