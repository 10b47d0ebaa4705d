// Package view holds the pan, zoom, filter and animation state shared between the input layer and the frame pipeline.
package view

// Default values restored by Reset.
const (
	DefaultScale          float32 = 1
	DefaultAnimationSpeed float32 = 1

	// MinAnimationSpeed is the floor applied when the speed is stepped down.
	MinAnimationSpeed float32 = 0.1

	// AnimationSpeedStep is the amount one speed key press adds or removes.
	AnimationSpeedStep float32 = 0.2
)

// Parameters is the mutable view record read by the fractal kernel each frame.
// The model does not clamp Scale or AnimationSpeed; the kernels guard a near-zero scale.
type Parameters struct {
	// OffsetX pans the parameter plane horizontally.
	OffsetX float32
	// OffsetY pans the parameter plane vertically.
	OffsetY float32
	// Scale zooms the parameter plane; larger values zoom in.
	Scale float32
	// FilterEnabled runs the smoothing kernel after the fractal kernel.
	FilterEnabled bool
	// Animating advances AnimationTime and drives Scale from it.
	Animating bool
	// AnimationTime accumulates dt*AnimationSpeed while animating.
	AnimationTime float32
	// AnimationSpeed scales the animation clock.
	AnimationSpeed float32
}

// Defaults returns the startup parameters {0, 0, 1, false, false, 0, 1}.
//
// Returns:
//   - Parameters: a fresh record holding the default values
func Defaults() Parameters {
	return Parameters{
		Scale:          DefaultScale,
		AnimationSpeed: DefaultAnimationSpeed,
	}
}

// New allocates a Parameters record initialized to Defaults.
//
// Returns:
//   - *Parameters: the new record
func New() *Parameters {
	p := Defaults()
	return &p
}

// Reset restores every field to its default value.
func (p *Parameters) Reset() {
	*p = Defaults()
}

// Animate runs the per-frame animation step. It is a no-op while Animating is false.
//
// Parameters:
//   - dt: the frame delta time in seconds
func (p *Parameters) Animate(dt float32) {
	if !p.Animating {
		return
	}
	p.AnimationTime += dt * p.AnimationSpeed
	p.Scale = 1 + p.AnimationTime
}

// SlowDown steps AnimationSpeed down by AnimationSpeedStep, never below MinAnimationSpeed.
func (p *Parameters) SlowDown() {
	p.AnimationSpeed = max(MinAnimationSpeed, p.AnimationSpeed-AnimationSpeedStep)
}

// SpeedUp steps AnimationSpeed up by AnimationSpeedStep. There is no ceiling.
func (p *Parameters) SpeedUp() {
	p.AnimationSpeed += AnimationSpeedStep
}
