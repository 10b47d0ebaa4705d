package compute

import (
	"image"
	"math"

	"github.com/Carmen-Shannon/oxy-frac/common"
)

const (
	// MaxIterations bounds the escape-time iteration.
	MaxIterations = 256
	// BailoutRadiusSquared is |z|^2 beyond which a point has escaped (radius 16).
	BailoutRadiusSquared = 256.0
	// MinScale is the smallest magnitude the zoom factor is allowed to reach inside the kernel.
	MinScale = 1e-6
)

// paletteShift holds the per-channel phase of the cosine palette.
var paletteShift = [3]float64{0, 0.6, 1.0}

// GuardScale replaces a near-zero scale with MinScale carrying the same sign.
func GuardScale(scale float32) float64 {
	s := float64(scale)
	if math.Abs(s) < MinScale {
		return math.Copysign(MinScale, s)
	}
	return s
}

// PlanePoint maps the center of pixel (x, y) in a w x h image to the complex plane.
func PlanePoint(x, y, w, h int, offsetX, offsetY float32, scale float64) (float64, float64) {
	fw, fh := float64(w), float64(h)
	k := 1.5 / scale
	re := (2*(float64(x)+0.5)-fw)/fh*k - 0.5 + float64(offsetX)
	im := (2*(float64(y)+0.5)-fh)/fh*k + float64(offsetY)
	return re, im
}

// Escape iterates z = z^2 + c from zero and returns the iteration index at which |z|^2 exceeded
// the bailout together with that |z|^2. escaped is false for interior points.
func Escape(cr, ci float64) (iter int, mag2 float64, escaped bool) {
	var zr, zi float64
	for i := range MaxIterations {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		mag2 = zr*zr + zi*zi
		if mag2 > BailoutRadiusSquared {
			return i, mag2, true
		}
	}
	return MaxIterations, mag2, false
}

// Shade converts an escape result into an RGBA color with smooth iteration coloring.
func Shade(iter int, mag2 float64, escaped bool) [4]uint8 {
	if !escaped {
		return [4]uint8{0, 0, 0, 255}
	}
	logZ := 0.5 * math.Log(mag2)
	nu := float64(iter) + 1 - math.Log2(logZ)
	var px [4]uint8
	for c, shift := range paletteShift {
		v := 0.5 + 0.5*math.Cos(3+0.15*nu+shift)
		px[c] = uint8(math.Round(math.Min(1, math.Max(0, v)) * 255))
	}
	px[3] = 255
	return px
}

// FractalRows evaluates the fractal for rows [y0, y1) of the index space into dst.
//
// Parameters:
//   - dst: the destination image, at least extent in size
//   - extent: the full index space, which defines the plane mapping
//   - y0: first row, inclusive
//   - y1: last row, exclusive
//   - offsetX: horizontal pan
//   - offsetY: vertical pan
//   - scale: zoom factor, guarded against zero
func FractalRows(dst *image.RGBA, extent common.Extent, y0, y1 int, offsetX, offsetY, scale float32) {
	s := GuardScale(scale)
	for y := y0; y < y1; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := range extent.Width {
			cr, ci := PlanePoint(x, y, extent.Width, extent.Height, offsetX, offsetY, s)
			px := Shade(Escape(cr, ci))
			copy(row[x*4:x*4+4], px[:])
		}
	}
}

// gaussian3 is the separable-equivalent 3x3 kernel [1 2 1; 2 4 2; 1 2 1] with weights summing to 16.
var gaussian3 = [3][3]int{{1, 2, 1}, {2, 4, 2}, {1, 2, 1}}

// SmoothRows applies the 3x3 Gaussian to rows [y0, y1) of src and writes dst.
// Edges clamp. Color channels round to nearest and alpha is copied from the center texel.
//
// Parameters:
//   - src: the image read
//   - dst: the image written, distinct from src
//   - extent: the filtered region, anchored at the origin
//   - y0: first row, inclusive
//   - y1: last row, exclusive
func SmoothRows(src, dst *image.RGBA, extent common.Extent, y0, y1 int) {
	w, h := extent.Width, extent.Height
	for y := y0; y < y1; y++ {
		for x := range w {
			var sum [3]int
			for ky := -1; ky <= 1; ky++ {
				sy := min(max(y+ky, 0), h-1)
				for kx := -1; kx <= 1; kx++ {
					sx := min(max(x+kx, 0), w-1)
					weight := gaussian3[ky+1][kx+1]
					i := sy*src.Stride + sx*4
					for c := range sum {
						sum[c] += weight * int(src.Pix[i+c])
					}
				}
			}
			o := y*dst.Stride + x*4
			for c := range sum {
				dst.Pix[o+c] = uint8((sum[c] + 8) / 16)
			}
			dst.Pix[o+3] = src.Pix[y*src.Stride+x*4+3]
		}
	}
}
