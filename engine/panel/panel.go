package panel

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/Carmen-Shannon/oxy-frac/engine/clock"
	"github.com/Carmen-Shannon/oxy-frac/engine/view"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// Width is the overlay panel width in pixels.
	Width = 280

	padding    = 6
	lineHeight = 15
	separator  = "--"
)

var (
	backgroundColor = color.RGBA{R: 0, G: 0, B: 0, A: 176}
	textColor       = image.NewUniform(color.RGBA{R: 235, G: 235, B: 235, A: 255})
	ruleColor       = image.NewUniform(color.RGBA{R: 110, G: 110, B: 110, A: 255})
)

// controlPanel is the implementation of the ControlPanel interface.
type controlPanel struct {
	logger *zap.Logger

	title      string
	deviceName string

	cursorX, cursorY                 float64
	previousCursorX, previousCursorY float64

	cursorCaptured bool
	mouseDown      bool
	clicked        bool
	clicks         int
	overlayVisible bool

	canvas *image.RGBA
}

// ControlPanel is the diagnostics overlay. It owns the pointer and overlay state mutated by the input router
// and renders the frame clock and view parameters as read-only text.
type ControlPanel interface {
	// MoveCursor records a new pointer position and shifts the old one into the previous position.
	//
	// Parameters:
	//   - x: the new cursor x in window coordinates
	//   - y: the new cursor y in window coordinates
	MoveCursor(x, y float64)

	// Cursor returns the most recent pointer position.
	//
	// Returns:
	//   - float64: cursor x
	//   - float64: cursor y
	Cursor() (float64, float64)

	// PreviousCursor returns the pointer position before the most recent move.
	//
	// Returns:
	//   - float64: previous cursor x
	//   - float64: previous cursor y
	PreviousCursor() (float64, float64)

	// Press marks a left button press edge: sets MouseDown and records a click.
	Press()

	// ReleaseButton marks a left button release edge and clears MouseDown.
	ReleaseButton()

	// MouseDown reports whether the left button is held.
	//
	// Returns:
	//   - bool: true between a press edge and the following release edge
	MouseDown() bool

	// Clicked reports whether at least one press edge has been recorded.
	//
	// Returns:
	//   - bool: the sticky click flag
	Clicked() bool

	// Clicks returns the number of press edges recorded.
	//
	// Returns:
	//   - int: the click counter
	Clicks() int

	// ToggleCursorCapture flips the cursor capture mode.
	//
	// Returns:
	//   - bool: the new capture state
	ToggleCursorCapture() bool

	// CursorCaptured reports whether the cursor is captured by the window.
	//
	// Returns:
	//   - bool: true when captured
	CursorCaptured() bool

	// SetVisible shows or hides the overlay.
	//
	// Parameters:
	//   - visible: the new visibility
	SetVisible(visible bool)

	// Visible reports whether the overlay is drawn.
	//
	// Returns:
	//   - bool: true when visible
	Visible() bool

	// SetDeviceName sets the compute device name shown on the panel.
	//
	// Parameters:
	//   - name: the device name
	SetDeviceName(name string)

	// ResetInputFlags is the per-frame input flag reset hook. It currently does nothing;
	// the click flag is sticky.
	ResetInputFlags()

	// Lines formats the panel text for the given clock and view parameters.
	//
	// Parameters:
	//   - c: the frame clock to report
	//   - v: the view parameters to report
	//
	// Returns:
	//   - []string: one entry per panel row; separator rows are "--"
	Lines(c clock.FrameClock, v *view.Parameters) []string

	// Render rasterizes the panel into an RGBA image with premultiplied alpha.
	// The returned image is reused across calls and is only valid until the next call.
	//
	// Parameters:
	//   - c: the frame clock to report
	//   - v: the view parameters to report
	//
	// Returns:
	//   - *image.RGBA: the rendered panel
	Render(c clock.FrameClock, v *view.Parameters) *image.RGBA
}

var _ ControlPanel = &controlPanel{}

// NewControlPanel creates a visible ControlPanel with the cursor released.
//
// Parameters:
//   - options: functional options for panel configuration
//
// Returns:
//   - ControlPanel: the new panel
func NewControlPanel(options ...ControlPanelBuilderOption) ControlPanel {
	p := &controlPanel{
		logger:         zap.NewNop(),
		title:          "Control Window",
		overlayVisible: true,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *controlPanel) MoveCursor(x, y float64) {
	p.previousCursorX, p.previousCursorY = p.cursorX, p.cursorY
	p.cursorX, p.cursorY = x, y
}

func (p *controlPanel) Cursor() (float64, float64) {
	return p.cursorX, p.cursorY
}

func (p *controlPanel) PreviousCursor() (float64, float64) {
	return p.previousCursorX, p.previousCursorY
}

func (p *controlPanel) Press() {
	p.mouseDown = true
	p.clicked = true
	p.clicks++
	p.logger.Debug("left button pressed",
		zap.Float64("x", p.cursorX),
		zap.Float64("y", p.cursorY),
		zap.Int("clicks", p.clicks))
}

func (p *controlPanel) ReleaseButton() {
	p.mouseDown = false
}

func (p *controlPanel) MouseDown() bool {
	return p.mouseDown
}

func (p *controlPanel) Clicked() bool {
	return p.clicked
}

func (p *controlPanel) Clicks() int {
	return p.clicks
}

func (p *controlPanel) ToggleCursorCapture() bool {
	p.cursorCaptured = !p.cursorCaptured
	return p.cursorCaptured
}

func (p *controlPanel) CursorCaptured() bool {
	return p.cursorCaptured
}

func (p *controlPanel) SetVisible(visible bool) {
	p.overlayVisible = visible
}

func (p *controlPanel) Visible() bool {
	return p.overlayVisible
}

func (p *controlPanel) SetDeviceName(name string) {
	p.deviceName = name
}

func (p *controlPanel) ResetInputFlags() {}

func (p *controlPanel) Lines(c clock.FrameClock, v *view.Parameters) []string {
	lines := []string{
		p.title,
		fmt.Sprintf("DeltaTime: %f", c.DeltaTime()),
		fmt.Sprintf("FPS: %.2f", c.FPS()),
		separator,
		"Animation stuff",
		fmt.Sprintf("Animation time: %.2f", v.AnimationTime),
		fmt.Sprintf("Animation speed: %.1f", v.AnimationSpeed),
		fmt.Sprintf("Animating: %s  Filter: %s", onOff(v.Animating), onOff(v.FilterEnabled)),
		separator,
		"Mouse cursor stuff:",
		fmt.Sprintf("Cursor_x: %f", p.cursorX),
		fmt.Sprintf("Cursor_y: %f", p.cursorY),
		fmt.Sprintf("Clicks: %d", p.clicks),
	}
	if p.deviceName != "" {
		lines = append(lines, separator, "Device: "+p.deviceName)
	}
	return lines
}

func (p *controlPanel) Render(c clock.FrameClock, v *view.Parameters) *image.RGBA {
	lines := p.Lines(c, v)
	height := len(lines)*lineHeight + 2*padding
	if p.canvas == nil || p.canvas.Bounds().Dy() != height {
		p.canvas = image.NewRGBA(image.Rect(0, 0, Width, height))
	}
	draw.Draw(p.canvas, p.canvas.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  p.canvas,
		Src:  textColor,
		Face: basicfont.Face7x13,
	}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for i, line := range lines {
		top := padding + i*lineHeight
		if line == separator {
			rule := image.Rect(padding, top+lineHeight/2, Width-padding, top+lineHeight/2+1)
			draw.Draw(p.canvas, rule, ruleColor, image.Point{}, draw.Over)
			continue
		}
		d.Dot = fixed.P(padding, top+ascent)
		d.DrawString(line)
	}
	return p.canvas
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
