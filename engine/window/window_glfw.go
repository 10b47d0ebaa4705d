package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the platform half of engineWindow.
type glfwWindow struct {
	handle  *glfw.Window
	running bool
}

// glfwOf returns the platform window, or false before creation and after Close.
func glfwOf(w *engineWindow) (*glfwWindow, bool) {
	gw, ok := w.internalWindow.(*glfwWindow)
	return gw, ok && gw != nil
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

// newPlatformWindow opens the GLFW window and installs the callbacks. The callbacks only forward
// raw events to the engineWindow hooks; no key has a built-in meaning here.
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// No client API: the surface is created by wgpu.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfwBool(w.resizable))

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	handle.SetSizeLimits(w.minWidth, w.minHeight, glfw.DontCare, glfw.DontCare)
	w.internalWindow = &glfwWindow{handle: handle, running: true}

	handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		if w.onKey != nil {
			w.onKey(int(key), int(action), int(mods))
		}
	})
	handle.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if w.onMouseButton != nil {
			w.onMouseButton(int(button), int(action), int(mods))
		}
	})
	handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onCursorPos != nil {
			w.onCursorPos(x, y)
		}
	})

	// Sizes are tracked in framebuffer pixels, which differ from screen coordinates on high-DPI displays.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, fbw, fbh int) {
		w.width, w.height = fbw, fbh
		if w.onResize != nil {
			w.onResize(fbw, fbh)
		}
	})
	w.width, w.height = handle.GetFramebufferSize()
	return nil
}

// platformGetSurfaceDescriptor asks the wgpuglfw bridge for the native surface of the window.
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := glfwOf(w)
	if !ok {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.handle)
}

// platformSetCursorCaptured switches between the disabled (hidden, unbounded) and normal cursor modes.
//
// Reference: https://www.glfw.org/docs/latest/input_guide.html#cursor_mode
func platformSetCursorCaptured(w *engineWindow, captured bool) {
	gw, ok := glfwOf(w)
	if !ok {
		return
	}
	mode := glfw.CursorNormal
	if captured {
		mode = glfw.CursorDisabled
	}
	gw.handle.SetInputMode(glfw.CursorMode, mode)
}

// platformIsRunningCheck is false once a close was requested by the user or by RequestClose.
func platformIsRunningCheck(w *engineWindow) bool {
	gw, ok := glfwOf(w)
	return ok && gw.running && !gw.handle.ShouldClose()
}

func platformRequestClose(w *engineWindow) {
	if gw, ok := glfwOf(w); ok {
		gw.running = false
		gw.handle.SetShouldClose(true)
	}
}

// platformCloseWindow destroys the window and terminates GLFW.
func platformCloseWindow(w *engineWindow) error {
	gw, ok := glfwOf(w)
	if !ok {
		return errors.New("window is not initialized")
	}
	gw.running = false
	gw.handle.Destroy()
	glfw.Terminate()
	w.internalWindow = nil
	return nil
}

// platformProcessMessages dispatches pending events without blocking.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}

// platformTime returns the GLFW timer.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#GetTime
func platformTime() float64 {
	return glfw.GetTime()
}
