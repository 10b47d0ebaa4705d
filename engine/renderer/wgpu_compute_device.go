package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

var errComputeClosed = errors.New("device closed")

// bindingRole says which resource a kernel binding receives.
type bindingRole int

const (
	roleParams bindingRole = iota
	roleSource
	roleDestination
)

// bindingRoleOf classifies a reflected layout entry: the uniform buffer takes the fractal parameters,
// a sampled texture takes the source image and a storage texture the destination image.
func bindingRoleOf(e wgpu.BindGroupLayoutEntry) (bindingRole, error) {
	switch {
	case e.Buffer.Type == wgpu.BufferBindingTypeUniform:
		return roleParams, nil
	case e.StorageTexture != (wgpu.StorageTextureBindingLayout{}):
		return roleDestination, nil
	case e.Texture != (wgpu.TextureBindingLayout{}):
		return roleSource, nil
	default:
		return 0, fmt.Errorf("binding %d: unsupported resource type for a kernel", e.Binding)
	}
}

// workgroupCount covers extent with workgroups of size wg.
func workgroupCount(extent common.Extent, wg [3]uint32) [3]uint32 {
	x, y := max(wg[0], 1), max(wg[1], 1)
	return [3]uint32{
		(uint32(extent.Width) + x - 1) / x,
		(uint32(extent.Height) + y - 1) / y,
		1,
	}
}

type bindGroupKey struct {
	kernel   string
	src, dst *gpuImage
}

// kernelSet is everything built from one program source.
type kernelSet struct {
	prog      *program.Program
	module    shader.Module
	sm        *wgpu.ShaderModule
	pipelines map[string]pipeline.Pipeline
}

func (k *kernelSet) release() {
	for _, p := range k.pipelines {
		p.Release()
	}
	if k.sm != nil {
		k.sm.Release()
	}
}

// wgpuComputeDevice runs the kernels as WGSL compute pipelines on the display's device. Shared images are the
// display textures themselves, so nothing is staged through host memory. Work is recorded into one encoder
// per acquisition and submitted on Release; queue order puts it before the display's next submission.
type wgpuComputeDevice struct {
	mu sync.Mutex

	backend wgpuRendererBackend
	logger  *zap.Logger

	kernels    *kernelSet
	params     *wgpu.Buffer
	bindGroups map[bindGroupKey]*wgpu.BindGroup

	encoder *wgpu.CommandEncoder
	// paramsRecorded is set once a fractal pass using the params buffer is recorded but not yet submitted.
	paramsRecorded bool
	closed         bool
}

var _ compute.Device = &wgpuComputeDevice{}

func newWGPUComputeDevice(backend wgpuRendererBackend, prog *program.Program, options ...ComputeDeviceBuilderOption) (compute.Device, error) {
	d := &wgpuComputeDevice{
		backend:    backend,
		logger:     zap.NewNop(),
		bindGroups: make(map[bindGroupKey]*wgpu.BindGroup),
	}
	for _, opt := range options {
		opt(d)
	}
	if prog == nil {
		return nil, &compute.InitError{Kind: compute.Compile, Err: &compute.CompileError{Log: "no program"}}
	}

	params := GPUFractalParams{}
	buf, err := backend.Device().CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Fractal Params",
		Size:  uint64(params.Size()),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &compute.InitError{Kind: compute.ContextCreation, Err: err}
	}
	d.params = buf

	kernels, cerr := d.build(prog)
	if cerr != nil {
		buf.Release()
		return nil, &compute.InitError{Kind: compute.Compile, Err: cerr}
	}
	d.kernels = kernels
	d.logger.Info("wgpu compute device ready", zap.String("program", prog.Name()))
	return d, nil
}

// build compiles prog into a shader module and one compute pipeline per kernel.
func (d *wgpuComputeDevice) build(prog *program.Program) (*kernelSet, *compute.CompileError) {
	fail := func(format string, args ...any) *compute.CompileError {
		return &compute.CompileError{Program: prog.Name(), Log: fmt.Sprintf(format, args...)}
	}
	if prog.Language != program.LanguageWGSL {
		return nil, fail("%s source given to the wgpu backend", prog.Language)
	}
	if err := prog.Require(compute.KernelFractal, compute.KernelSmooth); err != nil {
		return nil, fail("%v", err)
	}
	module, err := shader.NewModuleFromProgram(prog)
	if err != nil {
		return nil, fail("%v", err)
	}

	// The params uniform must match GPUFractalParams byte for byte.
	params := GPUFractalParams{}
	fractal, _ := module.EntryPoint(prog.Language.EntryPoint(compute.KernelFractal))
	for _, e := range fractal.Layouts[0].Entries {
		if e.Buffer.Type == wgpu.BufferBindingTypeUniform && e.Buffer.MinBindingSize != uint64(params.Size()) {
			return nil, fail("fractal params uniform is %d bytes, want %d:\n%s", e.Buffer.MinBindingSize, params.Size(), GPUFractalParamsSource)
		}
	}

	sm, err := createShaderModule(d.backend.Device(), module)
	if err != nil {
		return nil, fail("%v", err)
	}
	set := &kernelSet{prog: prog, module: module, sm: sm, pipelines: make(map[string]pipeline.Pipeline, 2)}
	for _, kernel := range []string{compute.KernelFractal, compute.KernelSmooth} {
		p := pipeline.NewPipeline(kernel, pipeline.PipelineTypeCompute, module,
			pipeline.WithComputeEntry(prog.Language.EntryPoint(kernel)),
		)
		if n := len(p.Layouts()); n != 1 {
			set.release()
			return nil, fail("kernel %s uses %d bind groups, want exactly group 0", kernel, n)
		}
		for _, e := range p.Layouts()[0].Entries {
			if _, err := bindingRoleOf(e); err != nil {
				set.release()
				return nil, fail("kernel %s: %v", kernel, err)
			}
		}
		if err := registerComputePipeline(d.backend.Device(), p, sm); err != nil {
			set.release()
			return nil, fail("%v", err)
		}
		set.pipelines[kernel] = p
	}
	return set, nil
}

func (d *wgpuComputeDevice) Name() string {
	return d.backend.AdapterName() + " compute"
}

// ensureEncoder opens the command encoder for the current acquisition.
func (d *wgpuComputeDevice) ensureEncoder() error {
	if d.encoder != nil {
		return nil
	}
	enc, err := d.backend.Device().CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	d.encoder = enc
	return nil
}

// flush submits the recorded work, if any.
func (d *wgpuComputeDevice) flush() error {
	if d.encoder == nil {
		return nil
	}
	enc := d.encoder
	d.encoder = nil
	d.paramsRecorded = false
	defer enc.Release()
	cb, err := enc.Finish(nil)
	if err != nil {
		return err
	}
	d.backend.Queue().Submit(cb)
	cb.Release()
	return nil
}

func (d *wgpuComputeDevice) bindGroup(kernel string, p pipeline.Pipeline, src, dst *gpuImage) (*wgpu.BindGroup, error) {
	key := bindGroupKey{kernel: kernel, src: src, dst: dst}
	if bg, ok := d.bindGroups[key]; ok {
		return bg, nil
	}
	layout := p.Layouts()[0]
	entries := make([]wgpu.BindGroupEntry, 0, len(layout.Entries))
	for _, e := range layout.Entries {
		role, err := bindingRoleOf(e)
		if err != nil {
			return nil, err
		}
		switch role {
		case roleParams:
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, Buffer: d.params, Offset: 0, Size: wgpu.WholeSize})
		case roleSource:
			if src == nil {
				return nil, fmt.Errorf("binding %d needs a source image", e.Binding)
			}
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, TextureView: src.view})
		case roleDestination:
			entries = append(entries, wgpu.BindGroupEntry{Binding: e.Binding, TextureView: dst.view})
		}
	}
	bg, err := d.backend.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   kernel,
		Layout:  p.BindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	d.bindGroups[key] = bg
	return bg, nil
}

func (d *wgpuComputeDevice) Invoke(kernel string, extent common.Extent, args ...any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &compute.RuntimeTransferError{Op: "enqueue", Err: errComputeClosed}
	}
	p, ok := d.kernels.pipelines[kernel]
	if !ok {
		return fmt.Errorf("%s: %w", kernel, compute.ErrUnknownKernel)
	}

	origin := common.Origin{}
	var src, dst *gpuImage
	var label string
	switch kernel {
	case compute.KernelFractal:
		img, offsetX, offsetY, scale, err := compute.FractalArgs(args)
		if err != nil {
			return err
		}
		if err := compute.CheckRegion("enqueue", img, origin, extent); err != nil {
			return err
		}
		if dst, err = textureOf(img); err != nil {
			return &compute.RuntimeTransferError{Op: "enqueue", Image: img.Label(), Err: err}
		}
		label = img.Label()
		if d.paramsRecorded {
			// a second fractal pass would observe the later params write
			if err := d.flush(); err != nil {
				return &compute.RuntimeTransferError{Op: "enqueue", Image: label, Err: err}
			}
		}
		params := GPUFractalParams{Offset: [2]float32{offsetX, offsetY}, Scale: scale}
		d.backend.Queue().WriteBuffer(d.params, 0, params.Marshal())
		d.paramsRecorded = true
	case compute.KernelSmooth:
		s, t, err := compute.SmoothArgs(args)
		if err != nil {
			return err
		}
		for _, img := range []*shared.Image{s, t} {
			if err := compute.CheckRegion("enqueue", img, origin, extent); err != nil {
				return err
			}
		}
		if src, err = textureOf(s); err != nil {
			return &compute.RuntimeTransferError{Op: "enqueue", Image: s.Label(), Err: err}
		}
		if dst, err = textureOf(t); err != nil {
			return &compute.RuntimeTransferError{Op: "enqueue", Image: t.Label(), Err: err}
		}
		label = t.Label()
	default:
		return fmt.Errorf("%s: %w", kernel, compute.ErrUnknownKernel)
	}

	bg, err := d.bindGroup(kernel, p, src, dst)
	if err != nil {
		return &compute.RuntimeTransferError{Op: "enqueue", Image: label, Err: err}
	}
	if err := d.ensureEncoder(); err != nil {
		return &compute.RuntimeTransferError{Op: "enqueue", Image: label, Err: err}
	}
	ep, _ := d.kernels.module.EntryPoint(p.EntryPoint(shader.StageCompute))
	groups := workgroupCount(extent, ep.WorkgroupSize)

	pass := d.encoder.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	pass.End()
	pass.Release()
	return nil
}

func (d *wgpuComputeDevice) CopyImageRegion(src, dst *shared.Image, origin common.Origin, extent common.Extent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &compute.RuntimeTransferError{Op: "copy", Err: errComputeClosed}
	}
	for _, img := range []*shared.Image{src, dst} {
		if err := compute.CheckRegion("copy", img, origin, extent); err != nil {
			return err
		}
	}
	s, err := textureOf(src)
	if err != nil {
		return &compute.RuntimeTransferError{Op: "copy", Image: src.Label(), Err: err}
	}
	t, err := textureOf(dst)
	if err != nil {
		return &compute.RuntimeTransferError{Op: "copy", Image: dst.Label(), Err: err}
	}
	if err := d.ensureEncoder(); err != nil {
		return &compute.RuntimeTransferError{Op: "copy", Image: dst.Label(), Err: err}
	}
	o := wgpu.Origin3D{X: uint32(origin.X), Y: uint32(origin.Y)}
	d.encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.texture, MipLevel: 0, Origin: o, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: t.texture, MipLevel: 0, Origin: o, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: uint32(extent.Width), Height: uint32(extent.Height), DepthOrArrayLayers: 1},
	)
	return nil
}

func (d *wgpuComputeDevice) Acquire(img *shared.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &compute.RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: errComputeClosed}
	}
	if _, err := textureOf(img); err != nil {
		return &compute.RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: err}
	}
	if err := img.BeginCompute(); err != nil {
		return &compute.RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: err}
	}
	if err := d.ensureEncoder(); err != nil {
		_ = img.EndCompute(false)
		return &compute.RuntimeTransferError{Op: "acquire", Image: img.Label(), Err: err}
	}
	return nil
}

func (d *wgpuComputeDevice) Release(img *shared.Image) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if img.Owner() != shared.OwnerCompute {
		return &compute.RuntimeTransferError{Op: "release", Image: img.Label(), Err: fmt.Errorf("not acquired: %w", shared.ErrOwnership)}
	}
	flushErr := d.flush()
	// the texture was written in place, there are no host pixels to publish
	if err := img.EndCompute(false); err != nil {
		return &compute.RuntimeTransferError{Op: "release", Image: img.Label(), Err: err}
	}
	if flushErr != nil {
		return &compute.RuntimeTransferError{Op: "release", Image: img.Label(), Err: flushErr}
	}
	return nil
}

func (d *wgpuComputeDevice) Finish() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return &compute.RuntimeTransferError{Op: "finish", Err: errComputeClosed}
	}
	if err := d.flush(); err != nil {
		return &compute.RuntimeTransferError{Op: "finish", Err: err}
	}
	d.backend.WaitIdle()
	return nil
}

func (d *wgpuComputeDevice) Rebuild(source string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errComputeClosed
	}
	prev := d.kernels.prog
	next := &program.Program{Path: prev.Path, Source: source, Language: prev.Language}
	kernels, cerr := d.build(next)
	if cerr != nil {
		d.logger.Warn("program rebuild rejected, keeping previous program", zap.String("program", next.Name()), zap.String("log", cerr.Log))
		return cerr
	}

	// recorded work references the old pipelines
	if err := d.flush(); err != nil {
		kernels.release()
		return &compute.CompileError{Program: next.Name(), Log: err.Error()}
	}
	d.backend.WaitIdle()
	d.releaseBindGroups()
	d.kernels.release()
	d.kernels = kernels
	d.logger.Info("program rebuilt", zap.String("program", next.Name()))
	return nil
}

func (d *wgpuComputeDevice) releaseBindGroups() {
	for key, bg := range d.bindGroups {
		bg.Release()
		delete(d.bindGroups, key)
	}
}

func (d *wgpuComputeDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	d.releaseBindGroups()
	d.kernels.release()
	d.params.Release()
}
