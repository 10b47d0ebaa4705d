package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kernelsWGSL = `
struct FractalParams {
    offset: vec2<f32>,
    scale: f32,
    _pad: f32,
}

@group(0) @binding(0) var<uniform> params: FractalParams;
@group(0) @binding(1) var outImage: texture_storage_2d<rgba8unorm, write>;
@group(0) @binding(2) var srcImage: texture_2d<f32>;
@group(0) @binding(3) var dstImage: texture_storage_2d<rgba8unorm, write>;

fn plane(id: vec2<u32>) -> vec2<f32> {
    return params.offset * params.scale;
}

// @compute @workgroup_size(1) fn commented() {}

@compute @workgroup_size(8, 8)
fn fractal_main(@builtin(global_invocation_id) id: vec3<u32>) {
    let c = plane(id.xy);
    if (true) { textureStore(outImage, vec2<i32>(id.xy), vec4<f32>(c, 0.0, 1.0)); }
}

@compute @workgroup_size(16)
fn smooth_main(@builtin(global_invocation_id) id: vec3<u32>) {
    let p = textureLoad(srcImage, vec2<i32>(id.xy), 0);
    textureStore(dstImage, vec2<i32>(id.xy), p);
}
`

const quadWGSL = `
struct VertexOut {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@group(0) @binding(0) var image: texture_2d<f32>;
@group(0) @binding(1) var imageSampler: sampler;

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> VertexOut {
    var out: VertexOut;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return textureSample(image, imageSampler, in.uv);
}
`

func TestComputeEntryPoints(t *testing.T) {
	m, err := NewModule("kernels", kernelsWGSL)
	require.NoError(t, err)
	assert.Equal(t, []string{"fractal_main", "smooth_main"}, m.EntryPoints())
	assert.Equal(t, kernelsWGSL, m.Descriptor().WGSLDescriptor.Code)
	assert.Equal(t, "kernels", m.Descriptor().Label)

	fractal, ok := m.EntryPoint("fractal_main")
	require.True(t, ok)
	assert.Equal(t, StageCompute, fractal.Stage)
	assert.Equal(t, [3]uint32{8, 8, 1}, fractal.WorkgroupSize)

	entries := fractal.Layouts[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, uint64(16), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageCompute, entries[0].Visibility)
	assert.Equal(t, uint32(1), entries[1].Binding)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, entries[1].StorageTexture.Format)
	assert.Equal(t, wgpu.StorageTextureAccessWriteOnly, entries[1].StorageTexture.Access)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[1].StorageTexture.ViewDimension)

	binding, ok := fractal.Binding(0, "outImage")
	assert.True(t, ok)
	assert.Equal(t, 1, binding)
	_, ok = fractal.Binding(0, "srcImage")
	assert.False(t, ok)
}

func TestSmoothLayoutExcludesFractalBindings(t *testing.T) {
	m, err := NewModule("kernels", kernelsWGSL)
	require.NoError(t, err)

	smooth, ok := m.EntryPoint("smooth_main")
	require.True(t, ok)
	assert.Equal(t, [3]uint32{16, 1, 1}, smooth.WorkgroupSize)

	entries := smooth.Layouts[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(2), entries[0].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[0].Texture.ViewDimension)
	assert.Equal(t, uint32(3), entries[1].Binding)
}

func TestRenderEntryPointsMerge(t *testing.T) {
	m, err := NewModule("quad", quadWGSL)
	require.NoError(t, err)
	assert.Equal(t, []string{"vs_main", "fs_main"}, m.EntryPoints())

	vs, _ := m.EntryPoint("vs_main")
	assert.Equal(t, StageVertex, vs.Stage)
	assert.Empty(t, vs.Layouts)
	assert.Equal(t, [3]uint32{}, vs.WorkgroupSize)

	merged := m.MergedLayouts("vs_main", "fs_main")
	entries := merged[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[0].Visibility)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[1].Sampler.Type)
}

func TestNoEntryPoints(t *testing.T) {
	_, err := NewModule("empty", "fn helper() -> f32 { return 1.0; }")
	assert.Error(t, err)
}

func TestWorkgroupSizeDefaults(t *testing.T) {
	assert.Equal(t, [3]uint32{1, 1, 1}, parseWorkgroupSize("@compute"))
	assert.Equal(t, [3]uint32{4, 2, 3}, parseWorkgroupSize("@compute @workgroup_size(4, 2, 3)"))
}
