package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a time source that yields the given samples in order and then repeats the last one.
func scripted(samples ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := samples[min(i, len(samples)-1)]
		i++
		return v
	}
}

func TestAdvance(t *testing.T) {
	c := NewFrameClock(WithTimeSource(scripted(1.0, 1.5, 1.75)))
	assert.Equal(t, 0.0, c.DeltaTime())

	c.Advance()
	assert.InDelta(t, 0.5, c.DeltaTime(), 1e-12)
	assert.InDelta(t, 2.0, c.FPS(), 1e-12)

	c.Advance()
	assert.InDelta(t, 0.25, c.DeltaTime(), 1e-12)
	assert.InDelta(t, 4.0, c.FPS(), 1e-12)
	assert.Equal(t, 1.75, c.Now())
}

func TestZeroDeltaFPS(t *testing.T) {
	c := NewFrameClock(WithTimeSource(scripted(3.0, 3.0)))
	c.Advance()
	require.Equal(t, 0.0, c.DeltaTime())
	assert.Equal(t, 0.0, c.FPS())
}

func TestMonotonic(t *testing.T) {
	c := NewFrameClock(WithTimeSource(scripted(5.0, 4.0, 6.0)))
	c.Advance()
	assert.Equal(t, 5.0, c.Now())
	assert.Equal(t, 0.0, c.DeltaTime())

	c.Advance()
	assert.Equal(t, 6.0, c.Now())
	assert.InDelta(t, 1.0, c.DeltaTime(), 1e-12)
}

func TestDefaultSource(t *testing.T) {
	c := NewFrameClock()
	c.Advance()
	assert.GreaterOrEqual(t, c.DeltaTime(), 0.0)
}
