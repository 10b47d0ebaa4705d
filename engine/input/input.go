// Package input maps raw window events to view parameter and control panel mutations.
//
// Window callbacks only enqueue events. The frame loop drains the queue once per frame at the
// event-poll point, so the compute stage never observes a half-applied mutation.
package input

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frac/common"
	"github.com/Carmen-Shannon/oxy-frac/engine/panel"
	"github.com/Carmen-Shannon/oxy-frac/engine/view"
	"go.uber.org/zap"
)

// Force is the rate applied to pan and zoom keys, in units per second.
const Force float32 = 10.0

// EventKind identifies the raw event carried by an Event.
type EventKind int

const (
	// EventKey is a keyboard key action.
	EventKey EventKind = iota
	// EventCursor is an absolute pointer move.
	EventCursor
	// EventButton is a mouse button action.
	EventButton
)

// Event is one queued raw input event.
type Event struct {
	Kind EventKind

	// Key, Action and Mods are set for EventKey. Action is also set for EventButton.
	Key    int
	Action int
	Mods   int

	// Button is set for EventButton.
	Button int

	// X and Y are set for EventCursor.
	X, Y float64
}

type inputRouter struct {
	mu    sync.Mutex
	queue []Event

	params *view.Parameters
	panel  panel.ControlPanel
	logger *zap.Logger

	force         float32
	quitRequested bool

	onQuit          func()
	onCursorCapture func(captured bool)
}

// InputRouter queues raw events and applies them to the view parameters and control panel when drained.
type InputRouter interface {
	// Key enqueues a key event. Suitable as a window key callback.
	//
	// Parameters:
	//   - key: the key code (see common.Key*)
	//   - action: common.ActionPress, ActionRelease or ActionRepeat
	//   - mods: modifier bit set, recorded but unused by the mapping
	Key(key, action, mods int)

	// CursorMoved enqueues an absolute pointer move.
	//
	// Parameters:
	//   - x: cursor x in window coordinates
	//   - y: cursor y in window coordinates
	CursorMoved(x, y float64)

	// MouseButton enqueues a mouse button edge.
	//
	// Parameters:
	//   - button: common.MouseButton*
	//   - action: common.ActionPress or ActionRelease
	//   - mods: modifier bit set, unused
	MouseButton(button, action, mods int)

	// Pending returns the number of queued events.
	//
	// Returns:
	//   - int: queue length
	Pending() int

	// Drain applies all queued events in arrival order and empties the queue.
	//
	// Parameters:
	//   - dt: the current frame delta time in seconds, scaling pan and zoom deltas
	//
	// Returns:
	//   - int: the number of events applied
	Drain(dt float32) int

	// QuitRequested reports whether an Esc press has been drained.
	//
	// Returns:
	//   - bool: true once quit was requested
	QuitRequested() bool

	// SetQuitCallback sets the function called when an Esc press is drained.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetQuitCallback(callback func())

	// SetCursorCaptureCallback sets the function called when Space toggles cursor capture.
	//
	// Parameters:
	//   - callback: function receiving the new capture state
	SetCursorCaptureCallback(callback func(captured bool))
}

var _ InputRouter = &inputRouter{}

// NewInputRouter creates an InputRouter that mutates params and p.
//
// Parameters:
//   - params: the view parameters owned by the application context
//   - p: the control panel owned by the application context
//   - options: functional options for router configuration
//
// Returns:
//   - InputRouter: the new router
func NewInputRouter(params *view.Parameters, p panel.ControlPanel, options ...InputRouterBuilderOption) InputRouter {
	r := &inputRouter{
		params: params,
		panel:  p,
		logger: zap.NewNop(),
		force:  Force,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *inputRouter) enqueue(e Event) {
	r.mu.Lock()
	r.queue = append(r.queue, e)
	r.mu.Unlock()
}

func (r *inputRouter) Key(key, action, mods int) {
	r.enqueue(Event{Kind: EventKey, Key: key, Action: action, Mods: mods})
}

func (r *inputRouter) CursorMoved(x, y float64) {
	r.enqueue(Event{Kind: EventCursor, X: x, Y: y})
}

func (r *inputRouter) MouseButton(button, action, mods int) {
	r.enqueue(Event{Kind: EventButton, Button: button, Action: action, Mods: mods})
}

func (r *inputRouter) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

func (r *inputRouter) Drain(dt float32) int {
	r.mu.Lock()
	events := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, e := range events {
		switch e.Kind {
		case EventKey:
			r.applyKey(e, dt)
		case EventCursor:
			r.panel.MoveCursor(e.X, e.Y)
		case EventButton:
			r.applyButton(e)
		}
	}
	return len(events)
}

func (r *inputRouter) QuitRequested() bool {
	return r.quitRequested
}

func (r *inputRouter) SetQuitCallback(callback func()) {
	r.onQuit = callback
}

func (r *inputRouter) SetCursorCaptureCallback(callback func(captured bool)) {
	r.onCursorCapture = callback
}

// applyKey implements the keyboard command surface. Only press edges act; repeats and releases are ignored.
func (r *inputRouter) applyKey(e Event, dt float32) {
	if e.Action != common.ActionPress {
		return
	}
	p := r.params
	step := r.force * dt

	switch e.Key {
	case common.KeyW, common.KeyGenericPress:
		p.Scale += step
	case common.KeyS, common.KeyDown:
		p.Scale -= step
	case common.KeyD, common.KeyRight:
		p.OffsetX += step
	case common.KeyA, common.KeyLeft:
		p.OffsetX -= step
	case common.KeyE:
		p.OffsetY += step
	case common.KeyQ:
		p.OffsetY -= step
	case common.KeyF:
		r.logger.Debug("filter toggled", zap.Bool("enabled", common.Toggle(&p.FilterEnabled)))
	case common.KeyR:
		p.Reset()
		r.logger.Debug("view reset")
	case common.KeyP:
		r.logger.Debug("animation toggled", zap.Bool("animating", common.Toggle(&p.Animating)))
	case common.KeyLeftBracket:
		p.SlowDown()
	case common.KeyRightBracket:
		p.SpeedUp()
	case common.KeySpace:
		captured := r.panel.ToggleCursorCapture()
		if r.onCursorCapture != nil {
			r.onCursorCapture(captured)
		}
	case common.KeyTab:
		r.panel.SetVisible(!r.panel.Visible())
	case common.KeyEsc:
		r.quitRequested = true
		if r.onQuit != nil {
			r.onQuit()
		}
	}
}

func (r *inputRouter) applyButton(e Event) {
	if e.Button != common.MouseButtonLeft {
		return
	}
	switch e.Action {
	case common.ActionPress:
		r.panel.Press()
	case common.ActionRelease:
		r.panel.ReleaseButton()
	}
}
