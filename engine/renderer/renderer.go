// Package renderer is the display surface of the frame pipeline. It owns the wgpu device, the swapchain,
// the textures backing the shared images and the quad pipelines that sample them onto the screen.
// The wgpu compute device shares the renderer's device and lives here as well.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/frame"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"github.com/Carmen-Shannon/oxy-frac/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	logger      *zap.Logger

	// images holds the textures created for shared images, released on Close.
	images  []*gpuImage
	overlay *gpuImage

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	clearColor           color.Color
}

// Renderer is the GPU display surface. It implements frame.Display and creates the resources the frame
// pipeline shares with the compute device.
type Renderer interface {
	frame.Display

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window. Shared images keep their size and are stretched.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode changes the present mode and reconfigures the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// CreateSharedImage creates a display-owned shared image backed by a storage-capable texture.
	//
	// Parameters:
	//   - label: a debug name such as "target"
	//   - width: image width in pixels
	//   - height: image height in pixels
	//
	// Returns:
	//   - *shared.Image: the image, with its texture attached as the handle
	//   - error: an error if the image or its texture could not be created
	CreateSharedImage(label string, width, height int) (*shared.Image, error)

	// NewComputeDevice creates a compute device that runs WGSL kernels on the renderer's GPU device and
	// writes the shared image textures directly.
	//
	// Parameters:
	//   - prog: a WGSL program declaring the fractal and smooth entry points
	//   - options: ComputeDeviceBuilderOption functions
	//
	// Returns:
	//   - compute.Device: the device
	//   - error: a *compute.InitError of kind Compile when the program does not build
	NewComputeDevice(prog *program.Program, options ...ComputeDeviceBuilderOption) (compute.Device, error)

	// AdapterName returns a readable name of the GPU adapter in use.
	AdapterName() string

	// Close releases every texture and GPU object owned by the renderer.
	Close()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the window's surface. Adapter and device failures panic.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - window: the window providing the surface descriptor and framebuffer size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the surface pipelines could not be created
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		logger:      zap.NewNop(),
		clearColor:  color.Black,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, r.logger)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.SetClearColor(toWGPUColor(r.clearColor))

	if err := r.backend.ConfigureSurface(window.Width(), window.Height()); err != nil {
		r.backend.Release()
		return nil, fmt.Errorf("configure surface: %w", err)
	}
	return r, nil
}

func toWGPUColor(c color.Color) wgpu.Color {
	n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return wgpu.Color{
		R: float64(n.R) / 0xffff,
		G: float64(n.G) / 0xffff,
		B: float64(n.B) / 0xffff,
		A: float64(n.A) / 0xffff,
	}
}

func (r *renderer) Resize(width, height int) {
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		r.logger.Error("surface reconfiguration failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		return
	}
	r.logger.Debug("surface resized", zap.Int("width", width), zap.Int("height", height))
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
	e := r.backend.SurfaceExtent()
	r.Resize(e.Width, e.Height)
}

func (r *renderer) AdapterName() string {
	return r.backend.AdapterName()
}

func (r *renderer) CreateSharedImage(label string, width, height int) (*shared.Image, error) {
	img, err := shared.NewImage(label, width, height)
	if err != nil {
		return nil, err
	}
	g, err := r.backend.CreateImageTexture(label, img.Extent(), true)
	if err != nil {
		return nil, err
	}
	img.SetHandle(g)

	r.mu.Lock()
	r.images = append(r.images, g)
	r.mu.Unlock()
	return img, nil
}

// textureOf returns the texture attached to img by CreateSharedImage.
func textureOf(img *shared.Image) (*gpuImage, error) {
	g, ok := img.Handle().(*gpuImage)
	if !ok || g == nil {
		return nil, fmt.Errorf("shared image %q has no display texture", img.Label())
	}
	return g, nil
}

func (r *renderer) Finish() error {
	r.backend.WaitIdle()
	return nil
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawImage(img *shared.Image) error {
	g, err := textureOf(img)
	if err != nil {
		return err
	}
	dirty, err := img.TakeDirty()
	if err != nil {
		return err
	}
	if dirty {
		if err := r.backend.WriteImageTexture(g, common.StagingFromRGBA(img.Host())); err != nil {
			return err
		}
	}
	return r.backend.DrawQuad(pipelineImage, g, FullViewport)
}

func (r *renderer) DrawOverlay(panel *image.RGBA) error {
	if panel == nil {
		return errors.New("draw overlay: nil panel")
	}
	b := panel.Bounds()
	extent := common.Extent{Width: b.Dx(), Height: b.Dy()}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlay == nil || r.overlay.extent != extent {
		if r.overlay != nil {
			r.backend.WaitIdle()
			r.overlay.release()
			r.overlay = nil
		}
		g, err := r.backend.CreateImageTexture("overlay", extent, false)
		if err != nil {
			return err
		}
		r.overlay = g
	}
	if err := r.backend.WriteImageTexture(r.overlay, common.StagingFromRGBA(panel)); err != nil {
		return err
	}
	rect := PixelRect(common.Origin{X: b.Min.X, Y: b.Min.Y}, extent, r.backend.SurfaceExtent())
	return r.backend.DrawQuad(pipelineOverlay, r.overlay, rect)
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() error {
	r.backend.Present()
	return nil
}

func (r *renderer) AbortFrame() {
	r.backend.AbortFrame()
}

func (r *renderer) NewComputeDevice(prog *program.Program, options ...ComputeDeviceBuilderOption) (compute.Device, error) {
	return newWGPUComputeDevice(r.backend, prog, append([]ComputeDeviceBuilderOption{WithComputeLogger(r.logger)}, options...)...)
}

func (r *renderer) Close() {
	r.backend.WaitIdle()

	r.mu.Lock()
	for _, g := range r.images {
		g.release()
	}
	r.images = nil
	if r.overlay != nil {
		r.overlay.release()
		r.overlay = nil
	}
	r.mu.Unlock()

	r.backend.Release()
}
