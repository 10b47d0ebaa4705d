package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/compute"
	"github.com/Carmen-Shannon/oxy-frac/engine/frame"
	"github.com/Carmen-Shannon/oxy-frac/engine/program"
	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgram = `
@compute @workgroup_size(8, 8) fn fractal_main() {}
@compute @workgroup_size(8, 8) fn smooth_main() {}
`

// fakeWindow replays scripted input, one batch per PollEvents call, and advances time by 0.1s per sample.
type fakeWindow struct {
	width, height int
	ticks         int
	running       bool
	closed        bool
	captured      bool
	batches       [][]func(w *fakeWindow)

	onKey         func(key, action, mods int)
	onCursorPos   func(x, y float64)
	onMouseButton func(button, action, mods int)
	onResize      func(width, height int)
}

func newFakeWindow(w, h int) *fakeWindow {
	return &fakeWindow{width: w, height: h, running: true}
}

func press(key int) func(w *fakeWindow) {
	return func(w *fakeWindow) { w.onKey(key, common.ActionPress, 0) }
}

func (w *fakeWindow) SetKeyCallback(cb func(key, action, mods int)) { w.onKey = cb }
func (w *fakeWindow) SetCursorPosCallback(cb func(x, y float64)) { w.onCursorPos = cb }
func (w *fakeWindow) SetMouseButtonCallback(cb func(button, action, mods int)) { w.onMouseButton = cb }
func (w *fakeWindow) SetResizeCallback(cb func(width, height int)) { w.onResize = cb }
func (w *fakeWindow) SetCursorCaptured(captured bool) { w.captured = captured }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool { return w.running }
func (w *fakeWindow) RequestClose() { w.running = false }
func (w *fakeWindow) Close() error { w.closed = true; return nil }
func (w *fakeWindow) Width() int { return w.width }
func (w *fakeWindow) Height() int { return w.height }

func (w *fakeWindow) Time() float64 {
	t := float64(w.ticks) / 10
	w.ticks++
	return t
}

func (w *fakeWindow) PollEvents() bool {
	if len(w.batches) > 0 {
		batch := w.batches[0]
		w.batches = w.batches[1:]
		for _, ev := range batch {
			ev(w)
		}
	}
	return w.running
}

// countingDevice wraps a device and records Finish and Close.
type countingDevice struct {
	compute.Device
	finished, closed int
	rebuilt          []string
	rebuildErr       error
}

func (d *countingDevice) Finish() error {
	d.finished++
	return d.Device.Finish()
}

func (d *countingDevice) Close() {
	d.closed++
	d.Device.Close()
}

func (d *countingDevice) Rebuild(source string) error {
	d.rebuilt = append(d.rebuilt, source)
	return d.rebuildErr
}

func newSoftwareEngine(t *testing.T, win *fakeWindow, options ...EngineBuilderOption) (Engine, frame.HeadlessDisplay) {
	t.Helper()
	display := frame.NewHeadlessDisplay(win.width, win.height)
	opts := append([]EngineBuilderOption{
		WithWindow(win),
		WithDisplay(display),
		WithBackend(BackendSoftware),
		WithProgram(program.FromSource(testProgram, program.LanguageWGSL)),
		WithDeviceOptions(compute.WithWorkers(2)),
		withSleep(func(time.Duration) {}),
	}, options...)
	e, err := NewEngine(opts...)
	require.NoError(t, err)
	return e, display
}

func TestNewEngineRequiresParts(t *testing.T) {
	_, err := NewEngine()
	assert.ErrorContains(t, err, "window is required")

	_, err = NewEngine(WithWindow(newFakeWindow(8, 8)))
	assert.ErrorContains(t, err, "renderer or a display")

	_, err = NewEngine(WithWindow(newFakeWindow(8, 8)), WithDisplay(frame.NewHeadlessDisplay(8, 8)), WithBackend(BackendSoftware))
	assert.ErrorContains(t, err, "program is required")

	_, err = NewEngine(WithWindow(newFakeWindow(8, 8)), WithDisplay(frame.NewHeadlessDisplay(8, 8)),
		WithProgram(program.FromSource(testProgram, program.LanguageWGSL)))
	assert.ErrorContains(t, err, "wgpu backend needs a renderer")

	_, err = NewEngine(WithWindow(newFakeWindow(8, 8)), WithDisplay(frame.NewHeadlessDisplay(8, 8)),
		WithBackend("vulkan"), WithProgram(program.FromSource(testProgram, program.LanguageWGSL)))
	assert.ErrorContains(t, err, `unknown backend "vulkan"`)
}

func TestKeyPansAcrossFrames(t *testing.T) {
	win := newFakeWindow(32, 24)
	win.batches = [][]func(*fakeWindow){
		{press(common.KeyD)},
		{press(common.KeyD)},
		{press(common.KeyD)},
	}
	e, display := newSoftwareEngine(t, win)
	defer e.Shutdown()

	for i := 0; i < 3; i++ {
		require.True(t, e.Step())
	}
	assert.InDelta(t, 3.0, e.View().OffsetX, 1e-5)
	assert.Equal(t, 3, display.Presented())
	assert.Equal(t, uint64(3), e.Pipeline().Stats().Frames)
}

func TestEscExitsAndShutsDown(t *testing.T) {
	win := newFakeWindow(16, 16)
	win.batches = [][]func(*fakeWindow){
		nil,
		{press(common.KeyEsc)},
	}
	e, display := newSoftwareEngine(t, win)

	require.NoError(t, e.Run())
	assert.Equal(t, 2, display.Presented())
	assert.False(t, win.running)
	assert.True(t, win.closed)

	// Shutdown is idempotent.
	e.Shutdown()
}

func TestShutdownDrainsBeforeClose(t *testing.T) {
	win := newFakeWindow(16, 16)
	dev, err := compute.NewCPUDevice(program.FromSource(testProgram, program.LanguageWGSL))
	require.NoError(t, err)
	counting := &countingDevice{Device: dev}

	e, _ := newSoftwareEngine(t, win, WithDevice(counting))
	win.running = false
	require.NoError(t, e.Run())

	assert.Equal(t, 1, counting.closed)
	assert.GreaterOrEqual(t, counting.finished, 1)
	assert.True(t, win.closed)
}

func TestSpaceCapturesCursorAndTabHidesOverlay(t *testing.T) {
	win := newFakeWindow(16, 16)
	win.batches = [][]func(*fakeWindow){
		{press(common.KeySpace), press(common.KeyTab)},
	}
	e, _ := newSoftwareEngine(t, win)
	defer e.Shutdown()

	require.True(t, e.Step())
	assert.True(t, win.captured)
	assert.False(t, e.(*engine).panel.Visible())
}

func TestFrameLimitSleepsRemainder(t *testing.T) {
	win := newFakeWindow(8, 8)
	win.batches = [][]func(*fakeWindow){nil, {press(common.KeyEsc)}}
	var slept []time.Duration
	e, _ := newSoftwareEngine(t, win, WithRenderFrameLimit(10), withSleep(func(d time.Duration) { slept = append(slept, d) }))

	require.NoError(t, e.Run())
	require.Len(t, slept, 1)
	assert.LessOrEqual(t, slept[0], 100*time.Millisecond)
	assert.Equal(t, time.Duration(0), frameDuration(0))
	assert.Equal(t, 50*time.Millisecond, frameDuration(20))
}

func TestProgramReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fractal.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testProgram), 0o644))
	prog, err := program.Load(path)
	require.NoError(t, err)

	dev, err := compute.NewCPUDevice(prog)
	require.NoError(t, err)
	counting := &countingDevice{Device: dev, rebuildErr: errors.New("compile failed")}

	win := newFakeWindow(8, 8)
	e, _ := newSoftwareEngine(t, win, WithDevice(counting), WithProgram(prog),
		WithHotReload(true, 20*time.Millisecond))
	defer e.Shutdown()
	eng := e.(*engine)
	require.NotNil(t, eng.watcher)

	edited := testProgram + "// edited\n"
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	require.Eventually(t, func() bool {
		e.Step()
		return len(counting.rebuilt) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, edited, counting.rebuilt[0])
	assert.Equal(t, testProgram, eng.prog.Source, "rejected rebuild keeps the previous program")

	counting.rebuildErr = nil
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))
	require.Eventually(t, func() bool {
		e.Step()
		return eng.prog.Source == edited
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHostImagesWithoutRenderer(t *testing.T) {
	win := newFakeWindow(12, 10)
	e, _ := newSoftwareEngine(t, win)
	defer e.Shutdown()

	target := e.Pipeline().Target()
	assert.Equal(t, common.Extent{Width: 12, Height: 10}, target.Extent())
	assert.Equal(t, shared.OwnerDisplay, target.Owner())
	assert.Nil(t, target.Handle())
	assert.Equal(t, "software", e.(*engine).backend)
}
