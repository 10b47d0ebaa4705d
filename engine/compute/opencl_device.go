//go:build opencl

package compute

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"github.com/jgillich/go-opencl/cl"
	"go.uber.org/zap"
)

// openCLDevice runs the kernels of an OpenCL C program. Each shared image is mirrored by a
// uchar4 device buffer; Release reads the buffer back into the image's host pixels.
type openCLDevice struct {
	mu sync.Mutex

	logger *zap.Logger
	name   string

	device  *cl.Device
	context *cl.Context
	queue   *cl.CommandQueue

	prog      *program.Program
	clProgram *cl.Program
	kernels   map[string]*cl.Kernel

	buffers map[*shared.Image]*cl.MemObject
	written map[*shared.Image]bool
	closed  bool
}

var _ Device = &openCLDevice{}

// NewOpenCLDevice selects the first platform and its first device of any type, creates a context and
// queue and builds the program. WithPreferCPU picks the first CPU device instead when the platform has one.
//
// Parameters:
//   - prog: an OpenCL C program declaring fractal and smooth kernels
//   - options: DeviceBuilderOption functions
//
// Returns:
//   - Device: the OpenCL device
//   - error: an *InitError describing the failing stage
func NewOpenCLDevice(prog *program.Program, options ...DeviceBuilderOption) (Device, error) {
	opts := defaultDeviceOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if prog == nil {
		return nil, compileInitError(&CompileError{Log: "no program"})
	}

	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms"
		}
		return nil, &InitError{Kind: NoPlatformFound, Err: fmt.Errorf("%s: %w", msg, err)}
	}
	if len(platforms) == 0 {
		return nil, &InitError{Kind: NoPlatformFound, Err: errors.New("no OpenCL platforms available")}
	}

	device, err := selectDevice(platforms[0], opts.preferCPU)
	if err != nil {
		return nil, &InitError{Kind: NoDeviceFound, Err: err}
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, &InitError{Kind: ContextCreation, Err: fmt.Errorf("creating OpenCL context: %w", err)}
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, &InitError{Kind: ContextCreation, Err: fmt.Errorf("creating OpenCL command queue: %w", err)}
	}

	d := &openCLDevice{
		logger:  opts.logger,
		name:    "opencl: " + device.Name(),
		device:  device,
		context: context,
		queue:   queue,
		buffers: make(map[*shared.Image]*cl.MemObject),
		written: make(map[*shared.Image]bool),
	}
	clProgram, kernels, cerr := d.build(prog)
	if cerr != nil {
		queue.Release()
		context.Release()
		return nil, compileInitError(cerr)
	}
	d.prog, d.clProgram, d.kernels = prog, clProgram, kernels
	d.logger.Info("opencl compute device ready",
		zap.String("device", device.Name()),
		zap.String("program", prog.Name()),
	)
	return d, nil
}

// selectDevice returns the first device of the platform, or its first CPU device when preferCPU is set
// and one exists.
func selectDevice(platform *cl.Platform, preferCPU bool) (*cl.Device, error) {
	if preferCPU {
		if devices, err := platform.GetDevices(cl.DeviceTypeCPU); err == nil && len(devices) > 0 {
			return devices[0], nil
		}
	}
	devices, err := platform.GetDevices(cl.DeviceTypeAll)
	if err != nil && err != cl.ErrDeviceNotFound {
		return nil, fmt.Errorf("listing devices of platform %s: %w", platform.Name(), err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("platform %s exposes no device", platform.Name())
	}
	return devices[0], nil
}

// build compiles the program and creates both kernels. Partial objects are released on failure.
func (d *openCLDevice) build(prog *program.Program) (*cl.Program, map[string]*cl.Kernel, *CompileError) {
	if prog.Language != program.LanguageOpenCL {
		return nil, nil, &CompileError{Program: prog.Name(), Log: fmt.Sprintf("%s source given to the OpenCL backend", prog.Language)}
	}
	if err := prog.Require(KernelFractal, KernelSmooth); err != nil {
		return nil, nil, &CompileError{Program: prog.Name(), Log: err.Error()}
	}
	clProgram, err := d.context.CreateProgramWithSource([]string{prog.Source})
	if err != nil {
		return nil, nil, &CompileError{Program: prog.Name(), Log: err.Error()}
	}
	if err := clProgram.BuildProgram([]*cl.Device{d.device}, ""); err != nil {
		clProgram.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, nil, &CompileError{Program: prog.Name(), Log: string(buildErr)}
		}
		return nil, nil, &CompileError{Program: prog.Name(), Log: err.Error()}
	}
	kernels := make(map[string]*cl.Kernel, 2)
	for _, name := range []string{KernelFractal, KernelSmooth} {
		k, err := clProgram.CreateKernel(prog.Language.EntryPoint(name))
		if err != nil {
			for _, made := range kernels {
				made.Release()
			}
			clProgram.Release()
			return nil, nil, &CompileError{Program: prog.Name(), Log: fmt.Sprintf("creating kernel %s: %v", name, err)}
		}
		kernels[name] = k
	}
	return clProgram, kernels, nil
}

func (d *openCLDevice) Name() string {
	return d.name
}

func (d *openCLDevice) Invoke(kernel string, extent common.Extent, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "enqueue", Err: errDeviceClosed}
	}
	k, ok := d.kernels[kernel]
	if !ok {
		return fmt.Errorf("%s: %w", kernel, ErrUnknownKernel)
	}

	origin := common.Origin{}
	switch kernel {
	case KernelFractal:
		img, offsetX, offsetY, scale, err := FractalArgs(args)
		if err != nil {
			return err
		}
		if err := CheckRegion("enqueue", img, origin, extent); err != nil {
			return err
		}
		if err := k.SetArgs(d.buffers[img], int32(img.Extent().Width), int32(extent.Width), int32(extent.Height), offsetX, offsetY, scale); err != nil {
			return &RuntimeTransferError{Op: "enqueue", Image: img.Label(), Err: fmt.Errorf("setting %s arguments: %w", kernel, err)}
		}
		d.written[img] = true
	case KernelSmooth:
		src, dst, err := SmoothArgs(args)
		if err != nil {
			return err
		}
		if err := CheckRegion("enqueue", src, origin, extent); err != nil {
			return err
		}
		if err := CheckRegion("enqueue", dst, origin, extent); err != nil {
			return err
		}
		if err := k.SetArgs(d.buffers[src], d.buffers[dst], int32(src.Extent().Width), int32(extent.Width), int32(extent.Height)); err != nil {
			return &RuntimeTransferError{Op: "enqueue", Image: dst.Label(), Err: fmt.Errorf("setting %s arguments: %w", kernel, err)}
		}
		d.written[dst] = true
	}

	if _, err := d.queue.EnqueueNDRangeKernel(k, nil, []int{extent.Width, extent.Height}, nil, nil); err != nil {
		return &RuntimeTransferError{Op: "enqueue", Err: fmt.Errorf("enqueueing %s: %w", kernel, err)}
	}
	if err := d.queue.Finish(); err != nil {
		return &RuntimeTransferError{Op: "enqueue", Err: fmt.Errorf("waiting for %s: %w", kernel, err)}
	}
	return nil
}

func (d *openCLDevice) CopyImageRegion(src, dst *shared.Image, origin common.Origin, extent common.Extent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "copy", Err: errDeviceClosed}
	}
	if err := CheckRegion("copy", src, origin, extent); err != nil {
		return err
	}
	if err := CheckRegion("copy", dst, origin, extent); err != nil {
		return err
	}
	srcBuf, dstBuf := d.buffers[src], d.buffers[dst]
	if srcBuf == nil || dstBuf == nil {
		return &RuntimeTransferError{Op: "copy", Image: dst.Label(), Err: errors.New("image not acquired by this device")}
	}
	for _, span := range copySpans(src.Extent().Width, dst.Extent().Width, origin, extent) {
		if _, err := d.queue.EnqueueCopyBuffer(srcBuf, dstBuf, span.srcOffset, span.dstOffset, span.size, nil); err != nil {
			return &RuntimeTransferError{Op: "copy", Image: dst.Label(), Err: fmt.Errorf("copying device buffer: %w", err)}
		}
	}
	d.written[dst] = true
	return nil
}

func (d *openCLDevice) Acquire(img *shared.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: errDeviceClosed}
	}
	if err := img.BeginCompute(); err != nil {
		return &RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: err}
	}
	if _, ok := d.buffers[img]; !ok {
		e := img.Extent()
		buf, err := d.context.CreateEmptyBuffer(cl.MemReadWrite, e.Area()*4)
		if err != nil {
			_ = img.EndCompute(false)
			return &RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: fmt.Errorf("allocating device buffer: %w", err)}
		}
		d.buffers[img] = buf
		if err := d.upload(img); err != nil {
			_ = img.EndCompute(false)
			return &RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: err}
		}
	}
	d.written[img] = false
	return nil
}

func (d *openCLDevice) Release(img *shared.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	published := d.written[img]
	if published && !d.closed {
		if err := d.readBack(img); err != nil {
			return &RuntimeTransferError{Op: "release", Image: img.Label(), Err: err}
		}
	}
	if err := img.EndCompute(published); err != nil {
		return &RuntimeTransferError{Op: "release", Image: img.Label(), Err: err}
	}
	delete(d.written, img)
	return nil
}

// readBack blocks until the device buffer of img is copied into its host pixels.
func (d *openCLDevice) readBack(img *shared.Image) error {
	pix := img.Host().Pix
	if _, err := d.queue.EnqueueReadBuffer(d.buffers[img], true, 0, len(pix), unsafe.Pointer(&pix[0]), nil); err != nil {
		return fmt.Errorf("reading device buffer: %w", err)
	}
	return nil
}

// upload blocks until the host pixels of img are copied into its device buffer.
func (d *openCLDevice) upload(img *shared.Image) error {
	pix := img.Host().Pix
	if _, err := d.queue.EnqueueWriteBuffer(d.buffers[img], true, 0, len(pix), unsafe.Pointer(&pix[0]), nil); err != nil {
		return fmt.Errorf("writing device buffer: %w", err)
	}
	return nil
}

func (d *openCLDevice) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "finish", Err: errDeviceClosed}
	}
	if err := d.queue.Finish(); err != nil {
		return &RuntimeTransferError{Op: "finish", Err: err}
	}
	return nil
}

func (d *openCLDevice) Rebuild(source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := &program.Program{Path: d.prog.Path, Source: source, Language: d.prog.Language}
	clProgram, kernels, cerr := d.build(next)
	if cerr != nil {
		d.logger.Warn("program rebuild failed, keeping previous program", zap.String("program", next.Name()), zap.String("log", cerr.Log))
		return cerr
	}
	d.releaseProgram()
	d.prog, d.clProgram, d.kernels = next, clProgram, kernels
	d.logger.Info("program rebuilt", zap.String("program", next.Name()))
	return nil
}

func (d *openCLDevice) releaseProgram() {
	for _, k := range d.kernels {
		k.Release()
	}
	d.kernels = nil
	if d.clProgram != nil {
		d.clProgram.Release()
		d.clProgram = nil
	}
}

func (d *openCLDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for img, buf := range d.buffers {
		buf.Release()
		delete(d.buffers, img)
	}
	d.releaseProgram()
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.context != nil {
		d.context.Release()
		d.context = nil
	}
}
