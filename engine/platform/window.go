package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spectralab/spectra/engine/core"
)

// KeyState is the set of camera-control keys currently held down for a window.
type KeyState struct {
	Forward, Backward, Left, Right, Up, Down bool
}

// Window wraps one native window. The renderer owns the surface and swapchain
// created against it; the window only reports events and its framebuffer size.
type Window struct {
	ID     uint32
	Handle *glfw.Window

	Keys KeyState

	// Cursor deltas accumulated since the last ConsumeCursorDelta call.
	cursorDX, cursorDY float64
	lastCursorX        float64
	lastCursorY        float64
	cursorSeen         bool
}

// FramebufferExtent returns the current framebuffer size in pixels. Both are
// zero while the window is minimized.
func (w *Window) FramebufferExtent() (uint32, uint32) {
	width, height := w.Handle.GetFramebufferSize()
	return uint32(width), uint32(height)
}

// CreateSurface creates a Vulkan surface for this window against the instance.
func (w *Window) CreateSurface(instance interface{}) (uintptr, error) {
	return w.Handle.CreateWindowSurface(instance, nil)
}

// RequiredInstanceExtensions returns the instance extensions the windowing
// layer needs for surface creation.
func (w *Window) RequiredInstanceExtensions() []string {
	return w.Handle.GetRequiredInstanceExtensions()
}

// ShouldClose reports whether a close has been requested.
func (w *Window) ShouldClose() bool {
	return w.Handle.ShouldClose()
}

// ConsumeCursorDelta returns and clears the accumulated mouse movement.
func (w *Window) ConsumeCursorDelta() (float64, float64) {
	dx, dy := w.cursorDX, w.cursorDY
	w.cursorDX, w.cursorDY = 0, 0
	return dx, dy
}

func (w *Window) onFramebufferSize(_ *glfw.Window, width, height int) {
	context := core.EventContext{}
	context.Data.U32[0] = w.ID
	context.Data.U32[1] = uint32(width)
	context.Data.U32[2] = uint32(height)
	core.EventFire(core.EVENT_CODE_WINDOW_RESIZED, context)
}

func (w *Window) onClose(_ *glfw.Window) {
	context := core.EventContext{}
	context.Data.U32[0] = w.ID
	core.EventFire(core.EVENT_CODE_WINDOW_CLOSED, context)
}

func (w *Window) onRefresh(_ *glfw.Window) {
	context := core.EventContext{}
	context.Data.U32[0] = w.ID
	core.EventFire(core.EVENT_CODE_WINDOW_REDRAW, context)
}

func (w *Window) onKey(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	pressed := action != glfw.Release
	switch key {
	case glfw.KeyW:
		w.Keys.Forward = pressed
	case glfw.KeyS:
		w.Keys.Backward = pressed
	case glfw.KeyA:
		w.Keys.Left = pressed
	case glfw.KeyD:
		w.Keys.Right = pressed
	case glfw.KeySpace:
		w.Keys.Up = pressed
	case glfw.KeyLeftShift:
		w.Keys.Down = pressed
	case glfw.KeyEscape:
		if action == glfw.Press {
			core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, core.EventContext{})
		}
	}
}

func (w *Window) onCursorPos(_ *glfw.Window, xpos, ypos float64) {
	if w.cursorSeen {
		w.cursorDX += xpos - w.lastCursorX
		w.cursorDY += ypos - w.lastCursorY
	}
	w.lastCursorX = xpos
	w.lastCursorY = ypos
	w.cursorSeen = true
}
