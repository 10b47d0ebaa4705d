package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

//go:embed assets/quad.wgsl
var quadShaderBody string

// Pipeline keys of the two quad pipelines.
const (
	pipelineImage   = "image"
	pipelineOverlay = "overlay"
)

// imageTextureFormat is the format of every shared image texture. It supports storage writes from WGSL.
const imageTextureFormat = wgpu.TextureFormatRGBA8Unorm

// gpuImage is the display-side resource behind a shared image or the overlay: a texture, its view,
// the quad placement uniform and the bind group sampling it.
type gpuImage struct {
	label   string
	extent  common.Extent
	texture *wgpu.Texture
	view    *wgpu.TextureView
	rect    *wgpu.Buffer
	group   *wgpu.BindGroup
}

func (g *gpuImage) release() {
	if g.group != nil {
		g.group.Release()
	}
	if g.rect != nil {
		g.rect.Release()
	}
	if g.view != nil {
		g.view.Release()
	}
	if g.texture != nil {
		g.texture.Release()
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *zap.Logger

	fallbackAdapter bool

	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	surfaceExtent common.Extent
	presentMode   wgpu.PresentMode
	clearColor    wgpu.Color

	quadModule shader.Module
	quadShader *wgpu.ShaderModule
	sampler    *wgpu.Sampler
	pipelines  map[string]pipeline.Pipeline

	// Frame state between BeginFrame and Present.
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue

	// AdapterName returns a readable name of the selected adapter.
	AdapterName() string

	// SurfaceExtent returns the size the surface was last configured with.
	SurfaceExtent() common.Extent

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized. The quad pipelines
	// are created on first configuration, once the surface format is known.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if the quad pipelines could not be created
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// It takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the surface is cleared to at BeginFrame.
	SetClearColor(c wgpu.Color)

	// CreateImageTexture creates a sampled RGBA8 texture with its quad bind group.
	//
	// Parameters:
	//   - label: the texture label
	//   - extent: the texture size
	//   - storage: true to allow compute shaders to write the texture
	//
	// Returns:
	//   - *gpuImage: the texture resources
	//   - error: an error if any resource could not be created
	CreateImageTexture(label string, extent common.Extent, storage bool) (*gpuImage, error)

	// WriteImageTexture uploads tightly packed RGBA pixels to the whole texture.
	//
	// Parameters:
	//   - g: the destination texture
	//   - staging: the pixels, sized like the texture
	//
	// Returns:
	//   - error: an error if the staging size does not match
	WriteImageTexture(g *gpuImage, staging common.TextureStagingData) error

	// WaitIdle blocks until all submitted GPU work has completed.
	WaitIdle()

	// BeginFrame acquires the next surface texture and opens the render pass.
	//
	// Returns:
	//   - error: an error if the surface texture or encoder could not be obtained
	BeginFrame() error

	// DrawQuad draws a textured quad with one of the quad pipelines inside the open render pass.
	//
	// Parameters:
	//   - pipelineKey: "image" or "overlay"
	//   - g: the texture to sample
	//   - rect: the quad placement
	//
	// Returns:
	//   - error: an error if no frame is open or the pipeline is unknown
	DrawQuad(pipelineKey string, g *gpuImage, rect GPUQuadRect) error

	// EndFrame ends the render pass and submits the frame's command buffer.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	EndFrame() error

	// Present presents the acquired surface texture and releases the frame references.
	Present()

	// AbortFrame ends an open render pass, drops the unsubmitted encoder and releases the surface
	// texture without presenting it.
	AbortFrame()

	// Release frees the pipelines, sampler and device objects.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, logger *zap.Logger) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:              &sync.Mutex{},
		logger:          logger,
		fallbackAdapter: forceFallbackAdapter,
		instance:        wgpu.CreateInstance(nil),
		presentMode:     wgpu.PresentModeFifo,
		clearColor:      wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		pipelines:       make(map[string]pipeline.Pipeline, 2),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	w.quadModule, err = shader.NewModule("quad", GPUQuadRectSource+"\n"+quadShaderBody)
	if err != nil {
		panic(err)
	}
	w.sampler, err = d.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Image Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}

	logger.Info("wgpu device ready", zap.Bool("fallback_adapter", forceFallbackAdapter))
	return w
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) AdapterName() string {
	if b.fallbackAdapter {
		return "wgpu (fallback adapter)"
	}
	return "wgpu"
}

func (b *wgpuRendererBackendImpl) SurfaceExtent() common.Extent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceExtent
}

// pickSurfaceFormat prefers a linear 8-bit format so the image bytes reach the screen unchanged.
func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	return formats[0]
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		// minimized; keep the previous configuration
		return nil
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	format := pickSurfaceFormat(capabilities.Formats)
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceExtent = common.Extent{Width: width, Height: height}

	if len(b.pipelines) > 0 && format == b.surfaceFormat {
		return nil
	}
	b.surfaceFormat = format
	return b.registerQuadPipelines()
}

// registerQuadPipelines (re)creates the image and overlay pipelines for the current surface format.
func (b *wgpuRendererBackendImpl) registerQuadPipelines() error {
	for key, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, key)
	}
	if b.quadShader == nil {
		sm, err := createShaderModule(b.device, b.quadModule)
		if err != nil {
			return err
		}
		b.quadShader = sm
	}

	image := pipeline.NewPipeline(pipelineImage, pipeline.PipelineTypeRender, b.quadModule,
		pipeline.WithVertexEntry("vs_main"),
		pipeline.WithFragmentEntry("fs_main"),
	)
	overlay := pipeline.NewPipeline(pipelineOverlay, pipeline.PipelineTypeRender, b.quadModule,
		pipeline.WithVertexEntry("vs_main"),
		pipeline.WithFragmentEntry("fs_main"),
		pipeline.WithBlendState(&pipeline.AlphaBlend),
	)
	for _, p := range []pipeline.Pipeline{image, overlay} {
		if err := registerRenderPipeline(b.device, p, b.quadShader, b.surfaceFormat); err != nil {
			return err
		}
		b.pipelines[p.PipelineKey()] = p
	}
	return nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SetClearColor(c wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearColor = c
}

func (b *wgpuRendererBackendImpl) CreateImageTexture(label string, extent common.Extent, storage bool) (*gpuImage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if extent.Empty() {
		return nil, fmt.Errorf("image texture %q: invalid size %dx%d", label, extent.Width, extent.Height)
	}
	quad, ok := b.pipelines[pipelineImage]
	if !ok {
		return nil, errors.New("image texture: surface not configured")
	}

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if storage {
		usage |= wgpu.TextureUsageStorageBinding | wgpu.TextureUsageCopySrc
	}

	g := &gpuImage{label: label, extent: extent}
	var err error
	g.texture, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(extent.Width),
			Height:             uint32(extent.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        imageTextureFormat,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("image texture %q: %w", label, err)
	}
	if g.view, err = g.texture.CreateView(nil); err != nil {
		g.release()
		return nil, fmt.Errorf("image texture %q: view: %w", label, err)
	}

	full := FullViewport
	g.rect, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " rect",
		Size:  uint64(full.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		g.release()
		return nil, fmt.Errorf("image texture %q: rect buffer: %w", label, err)
	}
	b.queue.WriteBuffer(g.rect, 0, full.Marshal())

	g.group, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label + " quad",
		Layout: quad.BindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: g.view},
			{Binding: 1, Sampler: b.sampler},
			{Binding: 2, Buffer: g.rect, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		g.release()
		return nil, fmt.Errorf("image texture %q: bind group: %w", label, err)
	}
	return g, nil
}

func (b *wgpuRendererBackendImpl) WriteImageTexture(g *gpuImage, staging common.TextureStagingData) error {
	w, h := uint32(g.extent.Width), uint32(g.extent.Height)
	if staging.Width != w || staging.Height != h || len(staging.Pixels) < int(w*h*4) {
		return fmt.Errorf("upload %q: %dx%d pixels for a %dx%d texture", g.label, staging.Width, staging.Height, w, h)
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  g.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) WaitIdle() {
	b.device.Poll(true, nil)
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: b.clearColor,
		}},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) DrawQuad(pipelineKey string, g *gpuImage, rect GPUQuadRect) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw outside of a frame")
	}
	p, ok := b.pipelines[pipelineKey]
	if !ok {
		return fmt.Errorf("unknown quad pipeline %q", pipelineKey)
	}
	b.queue.WriteBuffer(g.rect, 0, rect.Marshal())
	b.framePass.SetPipeline(p.Pipeline().(*wgpu.RenderPipeline))
	b.framePass.SetBindGroup(0, g.group, nil)
	b.framePass.Draw(6, 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("end frame without a frame")
	}
	b.framePass.End()
	b.framePass.Release()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameSurface()
		return err
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.releaseFrameSurface()
}

func (b *wgpuRendererBackendImpl) AbortFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass != nil {
		b.framePass.End()
		b.framePass.Release()
		b.framePass = nil
	}
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	b.releaseFrameSurface()
}

func (b *wgpuRendererBackendImpl) releaseFrameSurface() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, key)
	}
	if b.quadShader != nil {
		b.quadShader.Release()
		b.quadShader = nil
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	b.queue.Release()
	b.device.Release()
	b.adapter.Release()
	b.surface.Release()
	b.instance.Release()
}
