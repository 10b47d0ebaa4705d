package clock

// FrameClockBuilderOption is a functional option for configuring a frameClock.
type FrameClockBuilderOption func(*frameClock)

// WithTimeSource replaces the wall-clock source. The function must return seconds.
// The engine passes glfw.GetTime; tests pass a scripted source.
//
// Parameters:
//   - source: function returning the current time in seconds
//
// Returns:
//   - FrameClockBuilderOption: option function to apply
func WithTimeSource(source func() float64) FrameClockBuilderOption {
	return func(c *frameClock) {
		if source != nil {
			c.source = source
		}
	}
}
