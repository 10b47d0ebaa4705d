package compute

import "github.com/Carmen-Shannon/oxy-frac/common"

// byteSpan is one contiguous copy between two packed RGBA8 buffers.
type byteSpan struct {
	srcOffset, dstOffset, size int
}

// copySpans lists the buffer copies that move the region at origin with extent between two packed
// RGBA8 images of the given widths. A region spanning full rows of equally wide images is one span.
func copySpans(srcWidth, dstWidth int, origin common.Origin, extent common.Extent) []byteSpan {
	if extent.Width <= 0 || extent.Height <= 0 {
		return nil
	}
	if origin.X == 0 && extent.Width == srcWidth && srcWidth == dstWidth {
		offset := origin.Y * srcWidth * 4
		return []byteSpan{{srcOffset: offset, dstOffset: offset, size: extent.Area() * 4}}
	}
	spans := make([]byteSpan, 0, extent.Height)
	for y := origin.Y; y < origin.Y+extent.Height; y++ {
		spans = append(spans, byteSpan{
			srcOffset: (y*srcWidth + origin.X) * 4,
			dstOffset: (y*dstWidth + origin.X) * 4,
			size:      extent.Width * 4,
		})
	}
	return spans
}
