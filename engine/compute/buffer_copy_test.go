package compute

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/stretchr/testify/assert"
)

func TestCopySpansFullRowsIsOneCopy(t *testing.T) {
	spans := copySpans(64, 64, common.Origin{}, common.Extent{Width: 64, Height: 48})
	assert.Equal(t, []byteSpan{{srcOffset: 0, dstOffset: 0, size: 64 * 48 * 4}}, spans)

	spans = copySpans(64, 64, common.Origin{Y: 10}, common.Extent{Width: 64, Height: 5})
	assert.Equal(t, []byteSpan{{srcOffset: 10 * 64 * 4, dstOffset: 10 * 64 * 4, size: 64 * 5 * 4}}, spans)
}

func TestCopySpansSubRegionIsPerRow(t *testing.T) {
	spans := copySpans(10, 10, common.Origin{X: 2, Y: 3}, common.Extent{Width: 4, Height: 2})
	assert.Equal(t, []byteSpan{
		{srcOffset: (3*10 + 2) * 4, dstOffset: (3*10 + 2) * 4, size: 16},
		{srcOffset: (4*10 + 2) * 4, dstOffset: (4*10 + 2) * 4, size: 16},
	}, spans)
}

func TestCopySpansDifferentWidths(t *testing.T) {
	spans := copySpans(8, 12, common.Origin{}, common.Extent{Width: 8, Height: 2})
	assert.Equal(t, []byteSpan{
		{srcOffset: 0, dstOffset: 0, size: 32},
		{srcOffset: 32, dstOffset: 48, size: 32},
	}, spans)
}

func TestCopySpansEmptyRegion(t *testing.T) {
	assert.Empty(t, copySpans(8, 8, common.Origin{}, common.Extent{Width: 0, Height: 4}))
}
