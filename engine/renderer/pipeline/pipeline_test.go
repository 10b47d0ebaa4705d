package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = `
@group(0) @binding(0) var<uniform> scale: f32;
@group(2) @binding(0) var outImage: texture_storage_2d<rgba8unorm, write>;
@group(0) @binding(1) var image: texture_2d<f32>;
@group(0) @binding(2) var imageSampler: sampler;

struct VertexOut {
    @builtin(position) position: vec4<f32>,
}

@compute @workgroup_size(8, 8)
fn kernel_main(@builtin(global_invocation_id) id: vec3<u32>) {
    textureStore(outImage, vec2<i32>(id.xy), vec4<f32>(scale));
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOut {
    var out: VertexOut;
    out.position = vec4<f32>(scale);
    return out;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return textureSample(image, imageSampler, vec2<f32>(0.0));
}
`

func newTestModule(t *testing.T) shader.Module {
	t.Helper()
	m, err := shader.NewModule("test", testSource)
	require.NoError(t, err)
	return m
}

func TestRenderDefaults(t *testing.T) {
	p := NewPipeline("quad", PipelineTypeRender, newTestModule(t),
		WithVertexEntry("vs_main"), WithFragmentEntry("fs_main"))

	assert.Equal(t, PipelineTypeRender, p.Type())
	assert.Equal(t, "quad", p.PipelineKey())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskAll, p.WriteMask())
	assert.Nil(t, p.BlendState())
	assert.Equal(t, "vs_main", p.EntryPoint(shader.StageVertex))
	assert.Equal(t, "", p.EntryPoint(shader.StageCompute))
	assert.NoError(t, p.Validate())

	blended := NewPipeline("overlay", PipelineTypeRender, newTestModule(t), WithBlendState(&AlphaBlend))
	require.NotNil(t, blended.BlendState())
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, blended.BlendState().Color.SrcFactor)
}

func TestRenderLayoutsMergeStages(t *testing.T) {
	p := NewPipeline("quad", PipelineTypeRender, newTestModule(t),
		WithVertexEntry("vs_main"), WithFragmentEntry("fs_main"))

	layouts := p.Layouts()
	require.Len(t, layouts, 1)
	entries := layouts[0].Entries
	require.Len(t, entries, 3)
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex, entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[1].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[2].Visibility)
}

func TestComputeLayoutsFillGaps(t *testing.T) {
	p := NewPipeline("kernel", PipelineTypeCompute, newTestModule(t), WithComputeEntry("kernel_main"))
	require.NoError(t, p.Validate())

	layouts := p.Layouts()
	require.Len(t, layouts, 3)
	assert.Len(t, layouts[0].Entries, 1)
	assert.Empty(t, layouts[1].Entries)
	assert.Len(t, layouts[2].Entries, 1)
	assert.Equal(t, wgpu.ShaderStageCompute, layouts[2].Entries[0].Visibility)

	assert.Nil(t, p.Pipeline().(*wgpu.ComputePipeline))
	assert.Nil(t, p.BindGroupLayout(0))
	assert.Nil(t, p.BindGroupLayout(-1))
}

func TestValidate(t *testing.T) {
	m := newTestModule(t)
	tests := []struct {
		name string
		p    Pipeline
		want string
	}{
		{"no module", NewPipeline("a", PipelineTypeCompute, nil, WithComputeEntry("kernel_main")), "no shader module"},
		{"missing fragment", NewPipeline("b", PipelineTypeRender, m, WithVertexEntry("vs_main")), "missing fragment entry point"},
		{"unknown entry", NewPipeline("c", PipelineTypeCompute, m, WithComputeEntry("nope")), `no entry point "nope"`},
		{"wrong stage", NewPipeline("d", PipelineTypeCompute, m, WithComputeEntry("vs_main")), "is a vertex entry point"},
		{"mixed", NewPipeline("e", PipelineTypeCompute, m, WithComputeEntry("kernel_main"), WithVertexEntry("vs_main")), "render entry points"},
		{"render with compute", NewPipeline("f", PipelineTypeRender, m, WithComputeEntry("kernel_main")), "compute entry point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReleaseWithoutGPUObjects(t *testing.T) {
	p := NewPipeline("kernel", PipelineTypeCompute, newTestModule(t), WithComputeEntry("kernel_main"))
	p.SetBindGroupLayouts([]*wgpu.BindGroupLayout{nil})
	assert.NotPanics(t, p.Release)
	assert.Nil(t, p.BindGroupLayout(0))
}
