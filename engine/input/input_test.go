package input

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/panel"
	"github.com/Carmen-Shannon/oxy-frac/engine/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() (InputRouter, *view.Parameters, panel.ControlPanel) {
	params := view.New()
	p := panel.NewControlPanel()
	return NewInputRouter(params, p), params, p
}

func press(r InputRouter, key int) {
	r.Key(key, common.ActionPress, 0)
}

func TestPanAcrossFrames(t *testing.T) {
	r, params, _ := newRouter()
	for range 3 {
		press(r, common.KeyD)
		r.Drain(0.1)
	}
	assert.InDelta(t, 3.0, params.OffsetX, 1e-5)
}

func TestKeyDeltas(t *testing.T) {
	const dt = 0.05
	step := Force * dt

	tests := []struct {
		name string
		key  int
		want view.Parameters
	}{
		{"W zooms in", common.KeyW, view.Parameters{Scale: 1 + step, AnimationSpeed: 1}},
		{"generic press zooms in", common.KeyGenericPress, view.Parameters{Scale: 1 + step, AnimationSpeed: 1}},
		{"S zooms out", common.KeyS, view.Parameters{Scale: 1 - step, AnimationSpeed: 1}},
		{"Down zooms out", common.KeyDown, view.Parameters{Scale: 1 - step, AnimationSpeed: 1}},
		{"D pans right", common.KeyD, view.Parameters{OffsetX: step, Scale: 1, AnimationSpeed: 1}},
		{"Right pans right", common.KeyRight, view.Parameters{OffsetX: step, Scale: 1, AnimationSpeed: 1}},
		{"A pans left", common.KeyA, view.Parameters{OffsetX: -step, Scale: 1, AnimationSpeed: 1}},
		{"Left pans left", common.KeyLeft, view.Parameters{OffsetX: -step, Scale: 1, AnimationSpeed: 1}},
		{"E pans up", common.KeyE, view.Parameters{OffsetY: step, Scale: 1, AnimationSpeed: 1}},
		{"Q pans down", common.KeyQ, view.Parameters{OffsetY: -step, Scale: 1, AnimationSpeed: 1}},
		{"F toggles filter", common.KeyF, view.Parameters{Scale: 1, FilterEnabled: true, AnimationSpeed: 1}},
		{"P toggles animation", common.KeyP, view.Parameters{Scale: 1, Animating: true, AnimationSpeed: 1}},
		{"] speeds up", common.KeyRightBracket, view.Parameters{Scale: 1, AnimationSpeed: 1.2}},
		{"[ slows down", common.KeyLeftBracket, view.Parameters{Scale: 1, AnimationSpeed: 0.8}},
		{"Up is unbound", common.KeyUp, view.Defaults()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, params, _ := newRouter()
			press(r, tt.key)
			require.Equal(t, 1, r.Drain(dt))
			assert.InDelta(t, tt.want.OffsetX, params.OffsetX, 1e-6)
			assert.InDelta(t, tt.want.OffsetY, params.OffsetY, 1e-6)
			assert.InDelta(t, tt.want.Scale, params.Scale, 1e-6)
			assert.InDelta(t, tt.want.AnimationSpeed, params.AnimationSpeed, 1e-6)
			assert.Equal(t, tt.want.FilterEnabled, params.FilterEnabled)
			assert.Equal(t, tt.want.Animating, params.Animating)
		})
	}
}

func TestQueuedUntilDrain(t *testing.T) {
	r, params, _ := newRouter()
	press(r, common.KeyW)
	press(r, common.KeyF)
	assert.Equal(t, 2, r.Pending())
	assert.Equal(t, view.Defaults(), *params)

	r.Drain(0.1)
	assert.Equal(t, 0, r.Pending())
	assert.True(t, params.FilterEnabled)
}

func TestRepeatAndReleaseIgnored(t *testing.T) {
	r, params, _ := newRouter()
	r.Key(common.KeyD, common.ActionRepeat, 0)
	r.Key(common.KeyD, common.ActionRelease, 0)
	r.Drain(1)
	assert.Equal(t, view.Defaults(), *params)
}

func TestResetAfterMutations(t *testing.T) {
	r, params, _ := newRouter()
	for _, k := range []int{common.KeyD, common.KeyE, common.KeyW, common.KeyF, common.KeyP, common.KeyLeftBracket} {
		press(r, k)
	}
	r.Drain(0.3)
	params.AnimationTime = 4
	require.NotEqual(t, view.Defaults(), *params)

	press(r, common.KeyR)
	r.Drain(0.3)
	assert.Equal(t, view.Defaults(), *params)
}

func TestSpeedFloor(t *testing.T) {
	r, params, _ := newRouter()
	params.AnimationSpeed = 0.2
	press(r, common.KeyLeftBracket)
	r.Drain(0.016)
	assert.InDelta(t, 0.1, params.AnimationSpeed, 1e-6)
}

func TestPanelToggles(t *testing.T) {
	r, _, p := newRouter()
	var captures []bool
	r.SetCursorCaptureCallback(func(captured bool) { captures = append(captures, captured) })

	press(r, common.KeySpace)
	press(r, common.KeyTab)
	r.Drain(0.016)
	assert.True(t, p.CursorCaptured())
	assert.False(t, p.Visible())

	press(r, common.KeySpace)
	press(r, common.KeyTab)
	r.Drain(0.016)
	assert.False(t, p.CursorCaptured())
	assert.True(t, p.Visible())
	assert.Equal(t, []bool{true, false}, captures)
}

func TestEscRequestsQuit(t *testing.T) {
	r, _, _ := newRouter()
	quits := 0
	r.SetQuitCallback(func() { quits++ })

	assert.False(t, r.QuitRequested())
	press(r, common.KeyEsc)
	r.Drain(0.016)
	assert.True(t, r.QuitRequested())
	assert.Equal(t, 1, quits)
}

func TestPointerAndButtons(t *testing.T) {
	r, _, p := newRouter()
	r.CursorMoved(100, 200)
	r.CursorMoved(110, 190)
	r.MouseButton(common.MouseButtonRight, common.ActionPress, 0)
	r.Drain(0.016)

	x, y := p.Cursor()
	px, py := p.PreviousCursor()
	assert.Equal(t, [4]float64{110, 190, 100, 200}, [4]float64{x, y, px, py})
	assert.False(t, p.MouseDown(), "right button is not routed")

	r.MouseButton(common.MouseButtonLeft, common.ActionPress, 0)
	r.Drain(0.016)
	assert.True(t, p.MouseDown())
	assert.Equal(t, 1, p.Clicks())

	r.MouseButton(common.MouseButtonLeft, common.ActionRelease, 0)
	r.Drain(0.016)
	assert.False(t, p.MouseDown())
}

func TestWithForce(t *testing.T) {
	params := view.New()
	r := NewInputRouter(params, panel.NewControlPanel(), WithForce(2))
	press(r, common.KeyE)
	r.Drain(0.5)
	assert.InDelta(t, 1.0, params.OffsetY, 1e-6)
}
