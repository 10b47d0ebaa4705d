package frame

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/Carmen-Shannon/oxy-frac/engine/shared"
)

// Display is the rasterization side of the frame: it samples the shared image onto the surface,
// composites the overlay and presents.
type Display interface {
	// Finish flushes and waits for all display work submitted so far.
	Finish() error

	// BeginFrame acquires the next surface image.
	BeginFrame() error

	// DrawImage samples img across the whole viewport. img must be display-owned.
	DrawImage(img *shared.Image) error

	// DrawOverlay composites the rendered control panel at the top-left corner.
	DrawOverlay(panel *image.RGBA) error

	// EndFrame submits the recorded draw work.
	EndFrame() error

	// Present shows the finished surface image.
	Present() error

	// AbortFrame drops a frame that failed after BeginFrame without presenting it, so the next
	// BeginFrame can acquire a new surface image. It is a no-op when no frame is open.
	AbortFrame()
}

// headlessDisplay composites frames into an in-memory RGBA image.
type headlessDisplay struct {
	frame    *image.RGBA
	inFrame  bool
	frames   int
	uploaded int
}

// HeadlessDisplay is a Display without a window, used by the snapshot tool and tests.
type HeadlessDisplay interface {
	Display

	// Frame returns the last presented frame. It is overwritten by the next frame.
	Frame() *image.RGBA

	// Presented returns the number of presented frames.
	Presented() int

	// Uploads returns how many times a dirty shared image was copied into the frame.
	Uploads() int
}

var _ HeadlessDisplay = &headlessDisplay{}

// NewHeadlessDisplay creates a headless display with a w x h frame.
//
// Parameters:
//   - w: frame width in pixels
//   - h: frame height in pixels
//
// Returns:
//   - HeadlessDisplay: the display
func NewHeadlessDisplay(w, h int) HeadlessDisplay {
	return &headlessDisplay{frame: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (d *headlessDisplay) Finish() error {
	return nil
}

func (d *headlessDisplay) BeginFrame() error {
	if d.inFrame {
		return fmt.Errorf("headless display: frame already begun")
	}
	d.inFrame = true
	draw.Draw(d.frame, d.frame.Bounds(), image.Black, image.Point{}, draw.Src)
	return nil
}

func (d *headlessDisplay) DrawImage(img *shared.Image) error {
	dirty, err := img.TakeDirty()
	if err != nil {
		return err
	}
	if dirty {
		d.uploaded++
	}
	draw.Draw(d.frame, d.frame.Bounds(), img.Host(), image.Point{}, draw.Src)
	return nil
}

func (d *headlessDisplay) DrawOverlay(panel *image.RGBA) error {
	draw.Draw(d.frame, panel.Bounds(), panel, image.Point{}, draw.Over)
	return nil
}

func (d *headlessDisplay) EndFrame() error {
	if !d.inFrame {
		return fmt.Errorf("headless display: no frame begun")
	}
	d.inFrame = false
	return nil
}

func (d *headlessDisplay) Present() error {
	d.frames++
	return nil
}

func (d *headlessDisplay) AbortFrame() {
	d.inFrame = false
}

func (d *headlessDisplay) Frame() *image.RGBA {
	return d.frame
}

func (d *headlessDisplay) Presented() int {
	return d.frames
}

func (d *headlessDisplay) Uploads() int {
	return d.uploaded
}
