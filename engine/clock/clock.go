// Package clock derives per-frame delta time and frame rate from a wall-clock time source.
package clock

import "time"

// FrameClock tracks the time of the previous and current frame.
type FrameClock interface {
	// Advance shifts the current sample into the previous one and samples the time source.
	Advance()

	// DeltaTime returns the seconds elapsed between the previous and current sample.
	//
	// Returns:
	//   - float64: current minus previous, never negative
	DeltaTime() float64

	// FPS returns the instantaneous frame rate 1/DeltaTime.
	// A zero delta yields 0 instead of dividing by zero.
	//
	// Returns:
	//   - float64: frames per second, or 0 when DeltaTime is 0
	FPS() float64

	// Now returns the current sample in seconds.
	//
	// Returns:
	//   - float64: the most recent time source reading
	Now() float64
}

type frameClock struct {
	previous float64
	current  float64
	source   func() float64
}

var _ FrameClock = &frameClock{}

// NewFrameClock creates a FrameClock and takes its first sample so the first Advance yields a real delta.
// The default time source is monotonic process time in seconds.
//
// Parameters:
//   - options: functional options for clock configuration
//
// Returns:
//   - FrameClock: the new clock
func NewFrameClock(options ...FrameClockBuilderOption) FrameClock {
	start := time.Now()
	c := &frameClock{
		source: func() float64 { return time.Since(start).Seconds() },
	}
	for _, opt := range options {
		opt(c)
	}
	c.current = c.source()
	c.previous = c.current
	return c
}

func (c *frameClock) Advance() {
	c.previous = c.current
	now := c.source()
	if now < c.current {
		now = c.current
	}
	c.current = now
}

func (c *frameClock) DeltaTime() float64 {
	return c.current - c.previous
}

func (c *frameClock) FPS() float64 {
	dt := c.DeltaTime()
	if dt <= 0 {
		return 0
	}
	return 1 / dt
}

func (c *frameClock) Now() float64 {
	return c.current
}
