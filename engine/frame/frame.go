// Package frame runs the per-frame protocol that hands the shared images from the display to the
// compute device, evaluates the kernels, hands the images back and draws the result.
package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/clock"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/panel"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"github.com/Carmen-Shannon/oxy-frac/engine/view"
	"go.uber.org/zap"
)

// ErrFrameSkipped wraps every compute-phase failure. Nothing is drawn for a skipped frame
// and every image is display-owned again when RenderFrame returns.
var ErrFrameSkipped = errors.New("frame skipped")

// Stats summarizes the frames rendered so far.
type Stats struct {
	// Frames counts presented frames.
	Frames uint64
	// Skipped counts frames dropped because the compute phase failed.
	Skipped uint64
	// ComputeTime accumulates the time spent between acquire and the compute queue drain.
	ComputeTime time.Duration
	// LastCompute is the compute time of the most recent successful frame.
	LastCompute time.Duration
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	device  compute.Device
	display Display
	target  *shared.Image
	copy    *shared.Image
	logger  *zap.Logger
	now     func() time.Time
	stats   Stats
}

// Pipeline executes the strictly ordered frame protocol between a compute device and a display.
type Pipeline interface {
	// RenderFrame runs one frame: display finish, acquire, fractal, optional smoothing and copy-back,
	// release, compute finish, then the display phase with the overlay when the panel is visible.
	//
	// Parameters:
	//   - params: the view parameters read by the kernels
	//   - p: the control panel drawn as overlay, may be nil
	//   - c: the frame clock read by the overlay
	//
	// Returns:
	//   - error: ErrFrameSkipped wrapping the cause for compute-phase failures, a display error otherwise
	RenderFrame(params *view.Parameters, p panel.ControlPanel, c clock.FrameClock) error

	// Compute runs only the compute phase, leaving the images display-owned with fresh pixels.
	// The engine uses it to prime the images before the first presented frame.
	//
	// Parameters:
	//   - params: the view parameters read by the kernels
	//
	// Returns:
	//   - error: ErrFrameSkipped wrapping the cause on failure
	Compute(params *view.Parameters) error

	// Target returns the image the display samples.
	Target() *shared.Image

	// Stats returns a snapshot of the frame counters.
	Stats() Stats
}

var _ Pipeline = &pipeline{}

// NewPipeline wires a compute device and a display around the target and copy images.
//
// Parameters:
//   - device: the compute device running the kernels
//   - display: the display surface
//   - target: the image the fractal is written to and the display samples
//   - cp: the scratch image the smoothing kernel writes
//   - options: PipelineBuilderOption functions
//
// Returns:
//   - Pipeline: the frame pipeline
//   - error: an error if the images are missing, aliased or differ in size
func NewPipeline(device compute.Device, display Display, target, cp *shared.Image, options ...PipelineBuilderOption) (Pipeline, error) {
	if target == nil || cp == nil {
		return nil, errors.New("frame pipeline: target and copy images are required")
	}
	if target == cp {
		return nil, errors.New("frame pipeline: target and copy must be distinct images")
	}
	if target.Extent() != cp.Extent() {
		return nil, fmt.Errorf("frame pipeline: target %v and copy %v differ in size", target.Extent(), cp.Extent())
	}
	p := &pipeline{
		device:  device,
		display: display,
		target:  target,
		copy:    cp,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

func (p *pipeline) RenderFrame(params *view.Parameters, cp panel.ControlPanel, c clock.FrameClock) error {
	if err := p.display.Finish(); err != nil {
		return p.skip(fmt.Errorf("display finish: %w", err))
	}
	if err := p.Compute(params); err != nil {
		return err
	}

	if err := p.display.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	if err := p.drawFrame(params, cp, c); err != nil {
		p.display.AbortFrame()
		return err
	}
	if err := p.display.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	p.stats.Frames++
	return nil
}

// drawFrame records the image and overlay draws and ends the frame. The caller aborts the frame on error.
func (p *pipeline) drawFrame(params *view.Parameters, cp panel.ControlPanel, c clock.FrameClock) error {
	if err := p.display.DrawImage(p.target); err != nil {
		return fmt.Errorf("draw image: %w", err)
	}
	if cp != nil && cp.Visible() {
		if err := p.display.DrawOverlay(cp.Render(c, params)); err != nil {
			return fmt.Errorf("draw overlay: %w", err)
		}
	}
	if err := p.display.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

func (p *pipeline) Compute(params *view.Parameters) error {
	start := p.now()

	var acquired []*shared.Image
	for _, img := range []*shared.Image{p.target, p.copy} {
		if err := p.device.Acquire(img); err != nil {
			p.releaseAll(acquired)
			return p.skip(err)
		}
		acquired = append(acquired, img)
	}

	err := p.runKernels(params)
	if relErr := p.releaseAll(acquired); err == nil {
		err = relErr
	}
	if err == nil {
		err = p.device.Finish()
	}
	if err != nil {
		return p.skip(err)
	}

	p.stats.LastCompute = p.now().Sub(start)
	p.stats.ComputeTime += p.stats.LastCompute
	return nil
}

// runKernels evaluates the fractal into target and, when filtering, smooths it into copy and copies it back.
func (p *pipeline) runKernels(params *view.Parameters) error {
	extent := p.target.Extent()
	if err := p.device.Invoke(compute.KernelFractal, extent, p.target, params.OffsetX, params.OffsetY, params.Scale); err != nil {
		return err
	}
	if !params.FilterEnabled {
		return nil
	}
	if err := p.device.Invoke(compute.KernelSmooth, extent, p.target, p.copy); err != nil {
		return err
	}
	return p.device.CopyImageRegion(p.copy, p.target, common.Origin{}, extent)
}

// releaseAll releases every image in order and returns the first failure.
func (p *pipeline) releaseAll(images []*shared.Image) error {
	var first error
	for _, img := range images {
		if err := p.device.Release(img); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *pipeline) skip(cause error) error {
	p.stats.Skipped++
	p.logger.Warn("frame skipped", zap.Uint64("skipped", p.stats.Skipped), zap.Error(cause))
	return fmt.Errorf("%w: %w", ErrFrameSkipped, cause)
}

func (p *pipeline) Target() *shared.Image {
	return p.target
}

func (p *pipeline) Stats() Stats {
	return p.stats
}
