package pipeline

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment entry points.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeCompute:
		return "compute"
	case PipelineTypeRender:
		return "render"
	default:
		return fmt.Sprintf("pipeline(%d)", int(t))
	}
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string

	// module provides the source and the reflected bind group layouts for every entry point.
	module shader.Module

	vertexEntry, fragmentEntry, computeEntry string

	renderPipeline  *wgpu.RenderPipeline
	computePipeline *wgpu.ComputePipeline

	// bindGroupLayouts are indexed by group number and created by the backend from Layouts().
	bindGroupLayouts []*wgpu.BindGroupLayout

	// The following only apply to render pipelines.

	cullMode   wgpu.CullMode
	topology   wgpu.PrimitiveTopology
	frontFace  wgpu.FrontFace
	writeMask  wgpu.ColorWriteMask
	blendState *wgpu.BlendState
}

// Pipeline describes a GPU pipeline built from a reflected shader module: which entry points it uses,
// the fixed-function state for render pipelines, and the created GPU objects once the backend registers it.
type Pipeline interface {
	// Type returns the type of the pipeline.
	//
	// Returns:
	//   - PipelineType: render or compute
	Type() PipelineType

	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Module returns the shader module the pipeline's entry points come from.
	//
	// Returns:
	//   - shader.Module: the reflected module
	Module() shader.Module

	// EntryPoint returns the entry point name bound to the given stage, or "" when the stage is unused.
	//
	// Parameters:
	//   - stage: the shader stage
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint(stage shader.Stage) string

	// Validate checks that every configured entry point exists in the module with the expected stage
	// and that the entry points match the pipeline type.
	//
	// Returns:
	//   - error: a description of the first mismatch, or nil
	Validate() error

	// Layouts returns the bind group layouts for all entry points of the pipeline, merged by group.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: descriptors indexed by group number; unused groups are empty
	Layouts() []wgpu.BindGroupLayoutDescriptor

	// Pipeline returns the underlying pipeline object, either *wgpu.RenderPipeline or *wgpu.ComputePipeline.
	//
	// Returns:
	//   - any: the underlying pipeline object, nil until registered
	Pipeline() any

	// BindGroupLayout returns the created layout for a group, or nil.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout, or nil when out of range or not registered
	BindGroupLayout(group int) *wgpu.BindGroupLayout

	// SetBindGroupLayouts stores the created layouts, indexed by group.
	//
	// Parameters:
	//   - layouts: the created layouts
	SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout)

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state, or nil when the target is written without blending.
	BlendState() *wgpu.BlendState

	// SetRenderPipeline sets the render pipeline.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline to set
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline sets the compute pipeline.
	//
	// Parameters:
	//   - p: the WebGPU compute pipeline to set
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Release frees the GPU pipeline and layouts. The descriptor part stays usable.
	Release()
}

var _ Pipeline = &pipeline{}

// AlphaBlend is the straight alpha "source over" blend used for overlays.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// NewPipeline is the entry point to create a new Pipeline. Render pipelines default to an unblended
// triangle list with no culling.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - pipelineType: the type of pipeline to create (render or compute)
//   - module: the shader module providing the entry points
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified type and configuration
func NewPipeline(pipelineKey string, pipelineType PipelineType, module shader.Module, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		pipelineType: pipelineType,
		module:       module,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Module() shader.Module {
	return p.module
}

func (p *pipeline) EntryPoint(stage shader.Stage) string {
	switch stage {
	case shader.StageVertex:
		return p.vertexEntry
	case shader.StageFragment:
		return p.fragmentEntry
	case shader.StageCompute:
		return p.computeEntry
	default:
		return ""
	}
}

func (p *pipeline) entryNames() []string {
	var names []string
	for _, n := range []string{p.computeEntry, p.vertexEntry, p.fragmentEntry} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (p *pipeline) Validate() error {
	if p.module == nil {
		return fmt.Errorf("pipeline %q: no shader module", p.pipelineKey)
	}
	var want []shader.Stage
	switch p.pipelineType {
	case PipelineTypeCompute:
		if p.vertexEntry != "" || p.fragmentEntry != "" {
			return fmt.Errorf("pipeline %q: compute pipeline with render entry points", p.pipelineKey)
		}
		want = []shader.Stage{shader.StageCompute}
	case PipelineTypeRender:
		if p.computeEntry != "" {
			return fmt.Errorf("pipeline %q: render pipeline with a compute entry point", p.pipelineKey)
		}
		want = []shader.Stage{shader.StageVertex, shader.StageFragment}
	default:
		return fmt.Errorf("pipeline %q: unknown type %s", p.pipelineKey, p.pipelineType)
	}
	for _, stage := range want {
		name := p.EntryPoint(stage)
		if name == "" {
			return fmt.Errorf("pipeline %q: missing %s entry point", p.pipelineKey, stage)
		}
		ep, ok := p.module.EntryPoint(name)
		if !ok {
			return fmt.Errorf("pipeline %q: module %q has no entry point %q", p.pipelineKey, p.module.Key(), name)
		}
		if ep.Stage != stage {
			return fmt.Errorf("pipeline %q: entry point %q is a %s entry point, want %s", p.pipelineKey, name, ep.Stage, stage)
		}
	}
	return nil
}

func (p *pipeline) Layouts() []wgpu.BindGroupLayoutDescriptor {
	if p.module == nil {
		return nil
	}
	merged := p.module.MergedLayouts(p.entryNames()...)
	if len(merged) == 0 {
		return nil
	}
	groups := slices.Sorted(maps.Keys(merged))
	out := make([]wgpu.BindGroupLayoutDescriptor, groups[len(groups)-1]+1)
	for i := range out {
		if desc, ok := merged[i]; ok {
			out[i] = desc
		} else {
			out[i] = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s group %d (empty)", p.pipelineKey, i)}
		}
	}
	return out
}

func (p *pipeline) Pipeline() any {
	switch p.pipelineType {
	case PipelineTypeRender:
		return p.renderPipeline
	case PipelineTypeCompute:
		return p.computePipeline
	default:
		return nil
	}
}

func (p *pipeline) BindGroupLayout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.bindGroupLayouts) {
		return nil
	}
	return p.bindGroupLayouts[group]
}

func (p *pipeline) SetBindGroupLayouts(layouts []*wgpu.BindGroupLayout) {
	p.bindGroupLayouts = layouts
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.computePipeline = cp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.computePipeline != nil {
		p.computePipeline.Release()
		p.computePipeline = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
}
