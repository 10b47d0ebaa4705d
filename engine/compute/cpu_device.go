package compute

import (
	"errors"
	"fmt"
	"image/draw"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"go.uber.org/zap"
)

// defaultBandHeight is the number of rows each pool task evaluates.
const defaultBandHeight = 16

// errDeviceClosed is wrapped by every call made after Close.
var errDeviceClosed = errors.New("device closed")

// cpuDevice evaluates the kernels in Go, splitting the index space into row bands
// that run on a reusable worker pool. Images are host-resident.
type cpuDevice struct {
	mu sync.Mutex

	workers    int
	bandHeight int
	logger     *zap.Logger

	pool    worker.DynamicWorkerPool
	prog    *program.Program
	written map[*shared.Image]bool
	closed  bool
}

var _ Device = &cpuDevice{}

// NewCPUDevice creates the software compute device. Compilation validates that the program
// declares the fractal and smooth entry points; the kernels themselves run as Go code.
//
// Parameters:
//   - prog: the program whose entry points are checked
//   - options: DeviceBuilderOption functions
//
// Returns:
//   - Device: the software device
//   - error: an *InitError of kind NoDeviceFound for a non-positive worker count or Compile for a bad program
func NewCPUDevice(prog *program.Program, options ...DeviceBuilderOption) (Device, error) {
	opts := defaultDeviceOptions()
	for _, opt := range options {
		opt(&opts)
	}
	d := &cpuDevice{
		workers:    opts.workers,
		bandHeight: opts.bandHeight,
		logger:     opts.logger,
		written:    make(map[*shared.Image]bool),
	}
	if d.workers < 1 {
		return nil, &InitError{Kind: NoDeviceFound, Err: fmt.Errorf("software device needs at least one worker, got %d", d.workers)}
	}
	if d.bandHeight < 1 {
		d.bandHeight = defaultBandHeight
	}
	if prog == nil {
		return nil, compileInitError(&CompileError{Log: "no program"})
	}
	if err := prog.Require(KernelFractal, KernelSmooth); err != nil {
		return nil, compileInitError(&CompileError{Program: prog.Name(), Log: err.Error()})
	}
	d.prog = prog
	d.pool = worker.NewDynamicWorkerPool(d.workers, d.workers*4, time.Second)
	d.logger.Info("software compute device ready",
		zap.Int("workers", d.workers),
		zap.Int("band_height", d.bandHeight),
		zap.String("program", prog.Name()),
	)
	return d, nil
}

func (d *cpuDevice) Name() string {
	return fmt.Sprintf("software (%d workers)", d.workers)
}

func (d *cpuDevice) Invoke(kernel string, extent common.Extent, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "enqueue", Err: errDeviceClosed}
	}
	if !slices.Contains(d.prog.EntryPoints(), d.prog.Language.EntryPoint(kernel)) {
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
		dst := img.Host()
		d.fanOut(extent.Height, func(y0, y1 int) {
			FractalRows(dst, extent, y0, y1, offsetX, offsetY, scale)
		})
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
		s, t := src.Host(), dst.Host()
		d.fanOut(extent.Height, func(y0, y1 int) {
			SmoothRows(s, t, extent, y0, y1)
		})
		d.written[dst] = true
	default:
		return fmt.Errorf("%s has no software implementation: %w", kernel, ErrUnknownKernel)
	}
	return nil
}

// fanOut splits rows into bands, submits one pool task per band and blocks until all bands finished.
func (d *cpuDevice) fanOut(rows int, band func(y0, y1 int)) {
	var wg sync.WaitGroup
	id := 0
	for y0 := 0; y0 < rows; y0 += d.bandHeight {
		y1 := min(y0+d.bandHeight, rows)
		wg.Add(1)
		lo, hi := y0, y1
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				band(lo, hi)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}

func (d *cpuDevice) CopyImageRegion(src, dst *shared.Image, origin common.Origin, extent common.Extent) error {
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
	r := extent.Rect(origin)
	draw.Draw(dst.Host(), r, src.Host(), r.Min, draw.Src)
	d.written[dst] = true
	return nil
}

func (d *cpuDevice) Acquire(img *shared.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: errDeviceClosed}
	}
	if err := img.BeginCompute(); err != nil {
		return &RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: err}
	}
	d.written[img] = false
	return nil
}

func (d *cpuDevice) Release(img *shared.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	published := d.written[img]
	if err := img.EndCompute(published); err != nil {
		return &RuntimeTransferError{Op: "release", Image: img.Label(), Err: err}
	}
	delete(d.written, img)
	return nil
}

func (d *cpuDevice) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &RuntimeTransferError{Op: "finish", Err: errDeviceClosed}
	}
	return nil
}

func (d *cpuDevice) Rebuild(source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := &program.Program{Path: d.prog.Path, Source: source, Language: d.prog.Language}
	if err := next.Require(KernelFractal, KernelSmooth); err != nil {
		d.logger.Warn("program rebuild rejected, keeping previous program", zap.String("program", next.Name()), zap.Error(err))
		return &CompileError{Program: next.Name(), Log: err.Error()}
	}
	d.prog = next
	d.logger.Info("program rebuilt", zap.String("program", next.Name()))
	return nil
}

func (d *cpuDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.pool.Stop()
}
