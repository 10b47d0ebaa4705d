package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window provides platform windowing and raw input events.
// Callbacks are invoked from PollEvents on the goroutine that created the window.
type Window interface {
	// SetKeyCallback sets the callback for key events.
	//
	// Parameters:
	//   - callback: function receiving the key code, the action (press, release, repeat) and the modifier bits
	SetKeyCallback(callback func(key, action, mods int))

	// SetCursorPosCallback sets the callback for pointer movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in window coordinates
	SetCursorPosCallback(callback func(x, y float64))

	// SetMouseButtonCallback sets the callback for mouse button events.
	//
	// Parameters:
	//   - callback: function receiving the button, the action and the modifier bits
	SetMouseButtonCallback(callback func(button, action, mods int))

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetCursorCaptured hides and locks the cursor to the window, or restores it.
	//
	// Parameters:
	//   - captured: true to capture the cursor
	SetCursorCaptured(captured bool)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true until the window was asked to close.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose marks the window for closing. IsRunning reports false afterwards.
	RequestClose()

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// PollEvents processes pending window events without blocking, dispatching the callbacks.
	//
	// Returns:
	//   - bool: IsRunning after the events were processed
	PollEvents() bool

	// Time returns the seconds elapsed since the window system was initialized.
	//
	// Returns:
	//   - float64: monotonic time in seconds
	Time() float64

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// minWidth and minHeight bound resizing from below.
	minWidth, minHeight int

	// width and height are the current framebuffer size in pixels.
	width, height int

	// resizable allows the user to resize the window.
	resizable bool

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	onKey         func(key, action, mods int)
	onCursorPos   func(x, y float64)
	onMouseButton func(button, action, mods int)
	onResize      func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window
//   - error: an error if the window system or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-frac",
		minWidth:  320,
		minHeight: 240,
		width:     1920,
		height:    1080,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", w.width, w.height)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetKeyCallback(callback func(key, action, mods int)) {
	w.onKey = callback
}

func (w *engineWindow) SetCursorPosCallback(callback func(x, y float64)) {
	w.onCursorPos = callback
}

func (w *engineWindow) SetMouseButtonCallback(callback func(button, action, mods int)) {
	w.onMouseButton = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetCursorCaptured(captured bool) {
	platformSetCursorCaptured(w, captured)
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) PollEvents() bool {
	return platformProcessMessages(w)
}

func (w *engineWindow) Time() float64 {
	return platformTime()
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
