package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// createShaderModule compiles a reflected module on the device.
func createShaderModule(device *wgpu.Device, m shader.Module) (*wgpu.ShaderModule, error) {
	sm, err := device.CreateShaderModule(m.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("shader module %q: %w", m.Key(), err)
	}
	return sm, nil
}

// createPipelineLayout creates one bind group layout per group of p, stores them on p and returns the pipeline layout.
func createPipelineLayout(device *wgpu.Device, p pipeline.Pipeline) (*wgpu.PipelineLayout, error) {
	descs := p.Layouts()
	layouts := make([]*wgpu.BindGroupLayout, len(descs))
	for g := range descs {
		layout, err := device.CreateBindGroupLayout(&descs[g])
		if err != nil {
			for _, made := range layouts[:g] {
				made.Release()
			}
			return nil, fmt.Errorf("pipeline %q: bind group layout %d: %w", p.PipelineKey(), g, err)
		}
		layouts[g] = layout
	}
	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		for _, made := range layouts {
			made.Release()
		}
		return nil, fmt.Errorf("pipeline %q: layout: %w", p.PipelineKey(), err)
	}
	p.SetBindGroupLayouts(layouts)
	return pipelineLayout, nil
}

// registerRenderPipeline creates the GPU render pipeline for p drawing into targets of the given format.
// The quad pipelines have no vertex buffers, no depth and a single sample.
func registerRenderPipeline(device *wgpu.Device, p pipeline.Pipeline, sm *wgpu.ShaderModule, format wgpu.TextureFormat) error {
	if err := p.Validate(); err != nil {
		return err
	}
	layout, err := createPipelineLayout(device, p)
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     sm,
			EntryPoint: p.EntryPoint(shader.StageVertex),
		},
		Fragment: &wgpu.FragmentState{
			Module:     sm,
			EntryPoint: p.EntryPoint(shader.StageFragment),
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: p.WriteMask(),
				Blend:     p.BlendState(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Release()
		return fmt.Errorf("pipeline %q: %w", p.PipelineKey(), err)
	}
	p.SetRenderPipeline(created)
	return nil
}

// registerComputePipeline creates the GPU compute pipeline for p.
func registerComputePipeline(device *wgpu.Device, p pipeline.Pipeline, sm *wgpu.ShaderModule) error {
	if err := p.Validate(); err != nil {
		return err
	}
	layout, err := createPipelineLayout(device, p)
	if err != nil {
		return err
	}
	defer layout.Release()

	created, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     sm,
			EntryPoint: p.EntryPoint(shader.StageCompute),
		},
	})
	if err != nil {
		p.Release()
		return fmt.Errorf("pipeline %q: %w", p.PipelineKey(), err)
	}
	p.SetComputePipeline(created)
	return nil
}
