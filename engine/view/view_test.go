package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	p := Defaults()
	assert.Equal(t, Parameters{Scale: 1, AnimationSpeed: 1}, p)
}

func TestReset(t *testing.T) {
	p := &Parameters{
		OffsetX:        -4.5,
		OffsetY:        12,
		Scale:          -3,
		FilterEnabled:  true,
		Animating:      true,
		AnimationTime:  99,
		AnimationSpeed: 0.1,
	}
	p.Reset()
	assert.Equal(t, Defaults(), *p)
}

func TestAnimatePaused(t *testing.T) {
	for _, dt := range []float32{0, 0.016, 1, 250} {
		p := New()
		p.Scale = 7
		p.AnimationTime = 2
		p.Animate(dt)
		assert.Equal(t, float32(7), p.Scale, "dt=%v", dt)
		assert.Equal(t, float32(2), p.AnimationTime, "dt=%v", dt)
	}
}

func TestAnimateRunning(t *testing.T) {
	p := New()
	p.Animating = true
	p.AnimationSpeed = 2
	p.Animate(0.5)
	assert.InDelta(t, 1.0, p.AnimationTime, 1e-6)
	assert.InDelta(t, 2.0, p.Scale, 1e-6)

	p.Animate(0.25)
	assert.InDelta(t, 1.5, p.AnimationTime, 1e-6)
	assert.InDelta(t, 2.5, p.Scale, 1e-6)
}

func TestSlowDownFloor(t *testing.T) {
	p := New()
	p.AnimationSpeed = 0.2
	p.SlowDown()
	assert.InDelta(t, 0.1, p.AnimationSpeed, 1e-6)
	p.SlowDown()
	assert.InDelta(t, 0.1, p.AnimationSpeed, 1e-6)
}

func TestSpeedUpNoCeiling(t *testing.T) {
	p := New()
	for range 100 {
		p.SpeedUp()
	}
	assert.InDelta(t, 21.0, p.AnimationSpeed, 1e-3)
}
