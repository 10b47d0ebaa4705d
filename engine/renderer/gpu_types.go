package renderer

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-frac/common"
)

// GPUFractalParamsSource is the canonical WGSL definition of the FractalParams struct that fractal programs
// bind as their uniform. Matches GPUFractalParams layout exactly (16 bytes).
//
//go:embed assets/fractal_params.wgsl
var GPUFractalParamsSource string

// GPUFractalParams is the uniform consumed by the fractal entry point.
// Size: 16 bytes (vec2<f32> + f32 + pad).
type GPUFractalParams struct {
	Offset [2]float32 // offset 0: pan in plane units
	Scale  float32    // offset 8: zoom factor
	_      float32    // offset 12: pad to 16
}

// Size returns the size of the GPUFractalParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUFractalParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFractalParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUFractalParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Offset[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Offset[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Scale))
	return buf
}

// GPUQuadRectSource is the canonical WGSL definition of the QuadRect struct. It is prepended to the quad shader.
//
//go:embed assets/quad_rect.wgsl
var GPUQuadRectSource string

// GPUQuadRect positions a textured quad in normalized device coordinates.
// Size: 16 bytes (two vec2<f32>).
type GPUQuadRect struct {
	TopLeft     [2]float32 // offset 0
	BottomRight [2]float32 // offset 8
}

// FullViewport covers the whole surface.
var FullViewport = GPUQuadRect{TopLeft: [2]float32{-1, 1}, BottomRight: [2]float32{1, -1}}

// PixelRect places a pixel rectangle on a surface whose origin is the top-left corner.
//
// Parameters:
//   - origin: the rectangle's top-left corner in surface pixels
//   - extent: the rectangle size in surface pixels
//   - surface: the surface size in pixels
//
// Returns:
//   - GPUQuadRect: the rectangle in normalized device coordinates
func PixelRect(origin common.Origin, extent, surface common.Extent) GPUQuadRect {
	if surface.Empty() {
		return FullViewport
	}
	sw, sh := float32(surface.Width), float32(surface.Height)
	x0 := float32(origin.X)
	y0 := float32(origin.Y)
	x1 := x0 + float32(extent.Width)
	y1 := y0 + float32(extent.Height)
	return GPUQuadRect{
		TopLeft:     [2]float32{2*x0/sw - 1, 1 - 2*y0/sh},
		BottomRight: [2]float32{2*x1/sw - 1, 1 - 2*y1/sh},
	}
}

// Size returns the size of the GPUQuadRect struct in bytes.
func (g *GPUQuadRect) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUQuadRect struct into a byte buffer suitable for GPU upload.
func (g *GPUQuadRect) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.TopLeft[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.TopLeft[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.BottomRight[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.BottomRight[1]))
	return buf
}
