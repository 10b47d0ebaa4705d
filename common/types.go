// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "image"

// Extent is the size of a 2D image region or kernel index space in pixels.
type Extent struct {
	// Width is the number of columns.
	Width int
	// Height is the number of rows.
	Height int
}

// Origin is the top-left corner of a 2D image region in pixels.
type Origin struct {
	X int
	Y int
}

// Area returns the number of pixels covered by the extent.
func (e Extent) Area() int {
	return e.Width * e.Height
}

// Empty reports whether the extent covers no pixels.
func (e Extent) Empty() bool {
	return e.Width <= 0 || e.Height <= 0
}

// Rect converts the region at origin o with extent e into an image.Rectangle.
//
// Parameters:
//   - o: the top-left corner of the region
//
// Returns:
//   - image.Rectangle: the half-open rectangle covering the region
func (e Extent) Rect(o Origin) image.Rectangle {
	return image.Rect(o.X, o.Y, o.X+e.Width, o.Y+e.Height)
}

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
// The display surface uses it to move host pixels (software and OpenCL images, the overlay panel) into GPU textures.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// StagingFromRGBA wraps an RGBA image as staging data without copying its pixels.
// The image must be tightly packed (Stride == 4*Width), which holds for images created by image.NewRGBA.
//
// Parameters:
//   - img: the source image
//
// Returns:
//   - TextureStagingData: staging data sharing the image's pixel slice
func StagingFromRGBA(img *image.RGBA) TextureStagingData {
	b := img.Bounds()
	return TextureStagingData{
		Pixels: img.Pix,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
	}
}
