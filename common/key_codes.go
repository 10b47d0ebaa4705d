package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW            = 87  // W key (ASCII)
	KeyA            = 65  // A key (ASCII)
	KeyS            = 83  // S key (ASCII)
	KeyD            = 68  // D key (ASCII)
	KeyQ            = 81  // Q key (ASCII)
	KeyE            = 69  // E key (ASCII)
	KeyF            = 70  // F key (ASCII)
	KeyP            = 80  // P key (ASCII)
	KeyR            = 82  // R key (ASCII)
	KeyLeftBracket  = 91  // [ key (ASCII)
	KeyRightBracket = 93  // ] key (ASCII)
	KeySpace        = 32  // Spacebar (ASCII)
	KeyEsc          = 256 // Escape key (GLFW)
	KeyTab          = 258 // Tab key (GLFW)
	KeyRight        = 262 // Right arrow (GLFW)
	KeyLeft         = 263 // Left arrow (GLFW)
	KeyDown         = 264 // Down arrow (GLFW)
	KeyUp           = 265 // Up arrow (GLFW)
)

// KeyGenericPress is the key code equal to GLFW's Press action value. The zoom-in binding
// also matches it so key events that report the action in place of the key still zoom.
const KeyGenericPress = 1

// Key actions reported alongside a key code. They match glfw.Action.
const (
	ActionRelease = 0
	ActionPress   = 1
	ActionRepeat  = 2
)

// Mouse buttons. They match glfw.MouseButton.
const (
	MouseButtonLeft   = 0
	MouseButtonRight  = 1
	MouseButtonMiddle = 2
)
