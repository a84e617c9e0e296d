package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spectralab/spectra/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the GLFW lifetime and every open window. All of its methods
// must be called from the main thread.
type Platform struct {
	windows    []*Window
	nextWindow uint32
}

func New() *Platform {
	return &Platform{}
}

func (p *Platform) Startup() error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}
	if !glfw.VulkanSupported() {
		return fmt.Errorf("glfw reports no Vulkan loader available")
	}
	return nil
}

func (p *Platform) Shutdown() error {
	for _, w := range p.windows {
		if w.Handle != nil {
			w.Handle.Destroy()
			w.Handle = nil
		}
	}
	p.windows = nil
	glfw.Terminate()
	return nil
}


// OpenWindow creates a visible window configured for Vulkan rendering and
// wires its callbacks into the core event system.
func (p *Platform) OpenWindow(title string, width, height uint32) (*Window, error) {
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	handle, err := glfw.CreateWindow(int(width), int(height), title, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		return nil, err
	}

	window := &Window{
		ID:     p.nextWindow,
		Handle: handle,
	}
	p.nextWindow++
	p.windows = append(p.windows, window)

	handle.SetFramebufferSizeCallback(window.onFramebufferSize)
	handle.SetCloseCallback(window.onClose)
	handle.SetRefreshCallback(window.onRefresh)
	handle.SetKeyCallback(window.onKey)
	handle.SetCursorPosCallback(window.onCursorPos)
	handle.Show()

	return window, nil
}

// Windows returns the currently open windows.
func (p *Platform) Windows() []*Window {
	return p.windows
}

// PumpMessages processes pending window events, dispatching callbacks.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}
