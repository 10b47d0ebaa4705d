package program

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWGSL = `
// @compute @workgroup_size(1) fn commented() {}
/* @compute fn alsoCommented() { /* nested */ } */
@group(0) @binding(0) var<uniform> params: Params;

@compute @workgroup_size(8, 8)
fn fractal_main(@builtin(global_invocation_id) id: vec3<u32>) {}

@compute
@workgroup_size(8, 8)
fn smooth_main(@builtin(global_invocation_id) id: vec3<u32>) {}

fn helper() -> f32 { return 1.0; }
`

const testOpenCL = `
// __kernel void commented(void) {}
__kernel void fractal(__write_only image2d_t out, float2 offset, float scale) {}
kernel void smooth(__read_only image2d_t src, __write_only image2d_t dst) {}
float helper(float x) { return x; }
`

func TestEntryPointsWGSL(t *testing.T) {
	p := FromSource(testWGSL, LanguageWGSL)
	assert.Equal(t, []string{"fractal_main", "smooth_main"}, p.EntryPoints())
	assert.NoError(t, p.Require(KernelFractal, KernelSmooth))
}

func TestEntryPointsOpenCL(t *testing.T) {
	p := FromSource(testOpenCL, LanguageOpenCL)
	assert.Equal(t, []string{"fractal", "smooth"}, p.EntryPoints())
	assert.NoError(t, p.Require(KernelFractal, KernelSmooth))
}

func TestRequireMissing(t *testing.T) {
	p := FromSource("@compute @workgroup_size(1) fn fractal_main() {}", LanguageWGSL)
	err := p.Require(KernelFractal, KernelSmooth)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingEntryPoint)
	assert.Contains(t, err.Error(), "smooth_main")

	// bare kernel names are not WGSL entry points
	p = FromSource("@compute fn fractal() {}\n@compute fn smooth() {}", LanguageWGSL)
	assert.ErrorIs(t, p.Require(KernelFractal), ErrMissingEntryPoint)
}

func TestLanguageEntryPoint(t *testing.T) {
	assert.Equal(t, "smooth_main", LanguageWGSL.EntryPoint(KernelSmooth))
	assert.Equal(t, "smooth", LanguageOpenCL.EntryPoint(KernelSmooth))
}

func TestStripCommentsNested(t *testing.T) {
	got := StripComments("a /* b /* c */ d */ e // f\ng")
	assert.Equal(t, "a  e \ng\n", got)
}

func TestLanguageForPath(t *testing.T) {
	lang, err := LanguageForPath("shaders/fractal.wgsl")
	require.NoError(t, err)
	assert.Equal(t, LanguageWGSL, lang)

	lang, err = LanguageForPath("kernels/FRACTAL.CL")
	require.NoError(t, err)
	assert.Equal(t, LanguageOpenCL, lang)

	_, err = LanguageForPath("kernels/fractal.glsl")
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x.wgsl")
	got, err := ResolvePath(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, got)

	got, err = ResolvePath("kernels/fractal.cl")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "fractal.cl", filepath.Base(got))
}

func TestLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fractal.cl")
	require.NoError(t, os.WriteFile(path, []byte(testOpenCL), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, LanguageOpenCL, p.Language)
	assert.Equal(t, "fractal.cl", p.Name())

	require.NoError(t, os.WriteFile(path, []byte("__kernel void fractal() {}"), 0o644))
	next, err := p.Reload()
	require.NoError(t, err)
	assert.Equal(t, []string{"fractal"}, next.EntryPoints())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.wgsl"))
	assert.Error(t, err)
}

func TestReloadInMemory(t *testing.T) {
	_, err := FromSource(testWGSL, LanguageWGSL).Reload()
	assert.Error(t, err)
}
