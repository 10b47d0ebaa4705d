package renderer

import (
	"encoding/binary"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frac/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func float32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestFractalParamsMarshal(t *testing.T) {
	p := GPUFractalParams{Offset: [2]float32{-0.75, 0.25}, Scale: 3}
	buf := p.Marshal()
	require.Len(t, buf, 16)
	assert.Equal(t, 16, p.Size())
	assert.Equal(t, float32(-0.75), float32At(buf, 0))
	assert.Equal(t, float32(0.25), float32At(buf, 4))
	assert.Equal(t, float32(3), float32At(buf, 8))
	assert.Equal(t, float32(0), float32At(buf, 12))
}

func TestPixelRect(t *testing.T) {
	surface := common.Extent{Width: 200, Height: 100}

	full := PixelRect(common.Origin{}, surface, surface)
	assert.Equal(t, FullViewport, full)

	panel := PixelRect(common.Origin{}, common.Extent{Width: 50, Height: 25}, surface)
	assert.Equal(t, [2]float32{-1, 1}, panel.TopLeft)
	assert.InDelta(t, -0.5, panel.BottomRight[0], 1e-6)
	assert.InDelta(t, 0.5, panel.BottomRight[1], 1e-6)

	buf := panel.Marshal()
	assert.Equal(t, float32(-1), float32At(buf, 0))
	assert.Equal(t, float32(1), float32At(buf, 4))

	assert.Equal(t, FullViewport, PixelRect(common.Origin{}, surface, common.Extent{}))
}

func TestParsePresentMode(t *testing.T) {
	tests := []struct {
		in   string
		want PresentMode
	}{
		{"vsync", PresentModeVSync},
		{"VSync", PresentModeVSync},
		{"fifo", PresentModeVSync},
		{" uncapped ", PresentModeUncapped},
		{"immediate", PresentModeUncapped},
	}
	for _, tt := range tests {
		got, err := ParsePresentMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParsePresentMode("mailbox")
	assert.Error(t, err)
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
}

func TestToWGPUColor(t *testing.T) {
	c := toWGPUColor(color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	assert.InDelta(t, 1.0, c.R, 1e-9)
	assert.InDelta(t, 0.0, c.G, 1e-9)
	assert.InDelta(t, 0.2, c.B, 1e-9)
	assert.InDelta(t, 1.0, c.A, 1e-9)
}

func TestPickSurfaceFormat(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm,
		pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm}))
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb,
		pickSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb}))
}

func TestWorkgroupCount(t *testing.T) {
	assert.Equal(t, [3]uint32{3, 2, 1}, workgroupCount(common.Extent{Width: 17, Height: 16}, [3]uint32{8, 8, 1}))
	assert.Equal(t, [3]uint32{17, 16, 1}, workgroupCount(common.Extent{Width: 17, Height: 16}, [3]uint32{}))
}

func loadAssetProgram(t *testing.T) *program.Program {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "assets", "programs", "fractal.wgsl"))
	require.NoError(t, err)
	prog, err := program.Load(path)
	require.NoError(t, err)
	return prog
}

func TestFractalProgramBindings(t *testing.T) {
	prog := loadAssetProgram(t)
	require.NoError(t, prog.Require(compute.KernelFractal, compute.KernelSmooth))
	module, err := shader.NewModuleFromProgram(prog)
	require.NoError(t, err)

	roles := map[string][]bindingRole{
		compute.KernelFractal: {roleParams, roleDestination},
		compute.KernelSmooth:  {roleSource, roleDestination},
	}
	for kernel, want := range roles {
		p := pipeline.NewPipeline(kernel, pipeline.PipelineTypeCompute, module,
			pipeline.WithComputeEntry(prog.Language.EntryPoint(kernel)))
		require.NoError(t, p.Validate(), kernel)
		layouts := p.Layouts()
		require.Len(t, layouts, 1, kernel)

		var got []bindingRole
		for _, e := range layouts[0].Entries {
			role, err := bindingRoleOf(e)
			require.NoError(t, err)
			got = append(got, role)
		}
		assert.Equal(t, want, got, kernel)
	}

	fractal, _ := module.EntryPoint("fractal_main")
	params := GPUFractalParams{}
	assert.Equal(t, uint64(params.Size()), fractal.Layouts[0].Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, [3]uint32{8, 8, 1}, fractal.WorkgroupSize)
}

func TestQuadShaderLayout(t *testing.T) {
	module, err := shader.NewModule("quad", GPUQuadRectSource+"\n"+quadShaderBody)
	require.NoError(t, err)

	p := pipeline.NewPipeline(pipelineImage, pipeline.PipelineTypeRender, module,
		pipeline.WithVertexEntry("vs_main"), pipeline.WithFragmentEntry("fs_main"))
	require.NoError(t, p.Validate())

	layouts := p.Layouts()
	require.Len(t, layouts, 1)
	entries := layouts[0].Entries
	require.Len(t, entries, 3)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[0].Visibility)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[1].Sampler.Type)
	assert.Equal(t, wgpu.ShaderStageVertex, entries[2].Visibility)
	rect := GPUQuadRect{}
	assert.Equal(t, uint64(rect.Size()), entries[2].Buffer.MinBindingSize)

	_, err = bindingRoleOf(entries[1])
	assert.Error(t, err, "samplers are not kernel resources")
}

func TestWithClearColorReachesBackendColor(t *testing.T) {
	r := &renderer{clearColor: color.Black}
	WithClearColor(color.RGBA{R: 0xff, G: 0x80, A: 0xff})(r)

	c := toWGPUColor(r.clearColor)
	assert.InDelta(t, 1.0, c.R, 1e-9)
	assert.InDelta(t, float64(0x8080)/0xffff, c.G, 1e-9)
	assert.InDelta(t, 0.0, c.B, 1e-9)
	assert.InDelta(t, 1.0, c.A, 1e-9)
}
