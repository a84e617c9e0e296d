package renderer

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/config"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/platform"
	"github.com/spectralab/spectra/engine/renderer/vulkan"
	"github.com/spectralab/spectra/engine/scene"
)

// SharedResources are the GPU objects every window renders with: meshes,
// textures with their descriptor sets, and the shader stages. They are
// immutable after upload, so concurrent read-only use across windows is safe.
// Owned by the application, destroyed after every window renderer.
type SharedResources struct {
	Meshes         []*vulkan.Mesh
	Textures       []*vulkan.Texture
	DescriptorSets []vk.DescriptorSet
	Descriptors    *vulkan.DescriptorState
	VertexShader   *vulkan.ShaderModule
	FragmentShader *vulkan.ShaderModule
}

// WindowRenderer owns everything tied to one window's surface: swapchain,
// render pass, framebuffers, pipeline, frame slots and per-mesh instance
// buffers. It drives the surface state machine and absorbs the transient
// per-frame errors; only fatal errors escape RenderFrame.
type WindowRenderer struct {
	context *vulkan.Context
	window  *platform.Window
	scene   *scene.Scene
	shared  *SharedResources

	surface      vk.Surface
	swapchain    *vulkan.Swapchain
	renderPass   *vulkan.RenderPass
	framebuffers *vulkan.Framebuffers
	prepass      *vulkan.Pipeline
	pipeline     *vulkan.Pipeline
	frameLoop    *vulkan.FrameLoop

	instanceBuffers map[uint32]*vulkan.InstanceBuffer

	surfaceState  vulkan.SurfaceState
	pendingWidth  uint32
	pendingHeight uint32

	samples        vk.SampleCountFlagBits
	framesInFlight uint32
	vsync          bool
}

func NewWindowRenderer(
	context *vulkan.Context,
	window *platform.Window,
	sceneState *scene.Scene,
	shared *SharedResources,
	cfg config.RendererConfig,
) (*WindowRenderer, error) {
	r := &WindowRenderer{
		context:         context,
		window:          window,
		scene:           sceneState,
		shared:          shared,
		instanceBuffers: make(map[uint32]*vulkan.InstanceBuffer),
		framesInFlight:  uint32(cfg.FramesInFlight),
		vsync:           cfg.VSync,
	}

	surfacePtr, err := window.CreateSurface(context.Instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create window surface: %w", err)
	}
	r.surface = vk.SurfaceFromPointer(surfacePtr)

	r.samples = context.Device.ClampSampleCount(uint32(cfg.Samples))

	width, height := window.FramebufferExtent()
	r.swapchain, err = vulkan.NewSwapchain(context, r.surface, width, height, r.vsync, r.samples, r.framesInFlight)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	if err := r.buildRenderTargets(); err != nil {
		r.Destroy()
		return nil, err
	}

	r.frameLoop, err = vulkan.NewFrameLoop(context, r.framesInFlight)
	if err != nil {
		r.Destroy()
		return nil, err
	}

	r.scene.OnResize(width, height)
	r.surfaceState = vulkan.SurfaceValid
	return r, nil
}

// buildRenderTargets creates the render pass, framebuffers and pipeline for
// the current swapchain. The pipeline is rebuilt only when the render pass
// key (attachment formats or sample count) changed; a plain resize reuses it.
func (r *WindowRenderer) buildRenderTargets() error {
	key := vulkan.RenderPassKey{
		ColorFormat: r.swapchain.ImageFormat.Format,
		DepthFormat: r.context.Device.DepthFormat,
		SampleCount: r.samples,
	}

	if r.renderPass == nil || r.renderPass.Key != key {
		if r.pipeline != nil {
			r.pipeline.Destroy(r.context)
			r.pipeline = nil
		}
		if r.prepass != nil {
			r.prepass.Destroy(r.context)
			r.prepass = nil
		}
		if r.renderPass != nil {
			r.renderPass.Destroy(r.context)
		}
		renderPass, err := vulkan.NewRenderPass(r.context, key)
		if err != nil {
			return err
		}
		r.renderPass = renderPass
	}

	framebuffers, err := vulkan.NewFramebuffers(r.context, r.renderPass, r.swapchain)
	if err != nil {
		return err
	}
	r.framebuffers = framebuffers

	if r.pipeline == nil {
		prepass, err := vulkan.NewGraphicsPipeline(r.context, r.pipelineConfig(vulkan.PipelineDepthPrepass))
		if err != nil {
			return err
		}
		r.prepass = prepass

		pipeline, err := vulkan.NewGraphicsPipeline(r.context, r.pipelineConfig(vulkan.PipelineOpaque))
		if err != nil {
			return err
		}
		r.pipeline = pipeline
	}
	return nil
}

// pipelineConfig is shared by the depth prepass and opaque variants; the kind
// selects the depth compare and whether color writes are masked.
func (r *WindowRenderer) pipelineConfig(kind vulkan.PipelineKind) *vulkan.PipelineConfig {
	return &vulkan.PipelineConfig{
		RenderPass: r.renderPass,
		Kind:       kind,
		Stages: []vk.PipelineShaderStageCreateInfo{
			r.shared.VertexShader.StageInfo,
			r.shared.FragmentShader.StageInfo,
		},
		Attributes:           vulkan.MeshVertexAttributes(),
		DescriptorSetLayouts: []vk.DescriptorSetLayout{r.shared.Descriptors.Layout},
		PushConstantSize:     scene.PushConstantBlockSize,
		Viewport: vk.Viewport{
			Width:    float32(r.swapchain.Extent.Width),
			Height:   float32(r.swapchain.Extent.Height),
			MaxDepth: 1,
		},
		Scissor: vk.Rect2D{Extent: r.swapchain.Extent},
	}
}

// OnResize feeds a framebuffer size change into the surface state machine.
// Zero extents park the renderer until the window is restored.
func (r *WindowRenderer) OnResize(width, height uint32) {
	r.pendingWidth, r.pendingHeight = width, height
	r.surfaceState = vulkan.NextSurfaceState(r.surfaceState, vulkan.SurfaceEventResized, width, height)
}

// WindowID identifies the platform window this renderer draws to.
func (r *WindowRenderer) WindowID() uint32 {
	return r.window.ID
}

// Window returns the platform window.
func (r *WindowRenderer) Window() *platform.Window {
	return r.window
}

func (r *WindowRenderer) markStale() {
	width, height := r.window.FramebufferExtent()
	r.pendingWidth, r.pendingHeight = width, height
	r.surfaceState = vulkan.NextSurfaceState(r.surfaceState, vulkan.SurfaceEventOutOfDate, width, height)
}

// recreate rebuilds the swapchain and its dependents at the pending extent.
// All frame slots referencing the old swapchain are drained first.
func (r *WindowRenderer) recreate() error {
	r.context.WaitIdle()

	if r.framebuffers != nil {
		r.framebuffers.Destroy(r.context)
		r.framebuffers = nil
	}
	if err := r.swapchain.Recreate(r.context, r.surface, r.pendingWidth, r.pendingHeight); err != nil {
		return err
	}
	if err := r.buildRenderTargets(); err != nil {
		return err
	}

	r.scene.OnResize(r.swapchain.Extent.Width, r.swapchain.Extent.Height)
	r.surfaceState = vulkan.NextSurfaceState(r.surfaceState, vulkan.SurfaceEventRecreated, r.pendingWidth, r.pendingHeight)
	core.LogDebug("window %d: swapchain recreated at %dx%d", r.window.ID, r.swapchain.Extent.Width, r.swapchain.Extent.Height)
	return nil
}

// RenderFrame runs one iteration of the per-window frame protocol. Transient
// swapchain errors are absorbed here; fatal errors (device lost, fence
// timeout) propagate to the application driver.
func (r *WindowRenderer) RenderFrame(dt float64) error {
	switch r.surfaceState {
	case vulkan.SurfaceZeroExtent:
		// Minimized; rendering is parked without touching the device.
		return nil
	case vulkan.SurfaceStale:
		if err := r.recreate(); err != nil {
			return err
		}
	}

	cursorDX, cursorDY := r.window.ConsumeCursorDelta()
	r.scene.Update(dt, r.window.Keys, cursorDX, cursorDY)

	slot, imageIndex, err := r.frameLoop.BeginFrame(r.context, r.swapchain)
	if err != nil {
		if errors.Is(err, vulkan.ErrSwapchainStale) {
			r.markStale()
			return nil
		}
		return err
	}

	slotIndex := vulkan.SlotIndexFor(r.frameLoop.FrameCounter, r.framesInFlight)
	if err := r.writeInstances(slotIndex); err != nil {
		return err
	}

	r.recordDraws(slot, imageIndex, slotIndex)

	if err := r.frameLoop.EndFrame(r.context, r.swapchain, slot, imageIndex); err != nil {
		if errors.Is(err, vulkan.ErrSwapchainStale) {
			// The frame was consumed; recreation happens before the next one.
			r.markStale()
			return nil
		}
		return err
	}
	return nil
}

// writeInstances rewrites the current slot's instance buffers from the scene
// transforms. Safe to write: the slot's fence wait in BeginFrame guarantees
// the GPU is done with this slot's buffers.
func (r *WindowRenderer) writeInstances(slotIndex uint32) error {
	for _, meshIndex := range r.scene.MeshIndices() {
		transforms := r.scene.TransformsFor(meshIndex)
		buffer, ok := r.instanceBuffers[meshIndex]
		if !ok {
			created, err := vulkan.NewInstanceBuffer(r.context, r.framesInFlight, uint32(len(transforms)))
			if err != nil {
				return err
			}
			buffer = created
			r.instanceBuffers[meshIndex] = buffer
		}
		if err := buffer.Write(r.context, slotIndex, transforms); err != nil {
			return err
		}
	}
	return nil
}

func (r *WindowRenderer) recordDraws(slot *vulkan.FrameSlot, imageIndex, slotIndex uint32) {
	commandBuffer := slot.CommandBuffer
	extent := r.swapchain.Extent

	r.renderPass.Begin(commandBuffer, r.framebuffers.Handles[imageIndex], extent)

	viewport := vk.Viewport{
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{{Extent: extent}})

	// Depth prepass first, color writes masked; the opaque pass then shades
	// only the fragments that survived.
	r.drawMeshes(commandBuffer, r.prepass, slotIndex)
	r.drawMeshes(commandBuffer, r.pipeline, slotIndex)

	r.renderPass.End(commandBuffer)
}

func (r *WindowRenderer) drawMeshes(commandBuffer *vulkan.CommandBuffer, pipeline *vulkan.Pipeline, slotIndex uint32) {
	pipeline.Bind(commandBuffer)

	viewProjection := r.scene.Camera.ViewProjection()
	pushStages := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

	for _, meshIndex := range r.scene.MeshIndices() {
		mesh := r.shared.Meshes[meshIndex]
		transforms := r.scene.TransformsFor(meshIndex)
		if len(transforms) == 0 {
			continue
		}

		block := scene.NewPushConstantBlock(viewProjection, r.scene.Light, mesh.MaterialIndex)
		data := block.Bytes()
		vk.CmdPushConstants(commandBuffer.Handle, pipeline.Layout, pushStages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))

		if int(mesh.MaterialIndex) < len(r.shared.DescriptorSets) {
			vk.CmdBindDescriptorSets(
				commandBuffer.Handle,
				vk.PipelineBindPointGraphics,
				pipeline.Layout,
				0, 1,
				[]vk.DescriptorSet{r.shared.DescriptorSets[mesh.MaterialIndex]},
				0, nil)
		}

		mesh.Draw(commandBuffer, r.instanceBuffers[meshIndex].Slot(slotIndex), uint32(len(transforms)))
	}
}

// Destroy drains the device and releases everything this window owns, in
// reverse acquisition order, finishing with the surface.
func (r *WindowRenderer) Destroy() {
	r.context.WaitIdle()

	if r.frameLoop != nil {
		r.frameLoop.Destroy(r.context)
		r.frameLoop = nil
	}
	for _, buffer := range r.instanceBuffers {
		buffer.Destroy(r.context)
	}
	r.instanceBuffers = nil
	if r.framebuffers != nil {
		r.framebuffers.Destroy(r.context)
		r.framebuffers = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy(r.context)
		r.pipeline = nil
	}
	if r.prepass != nil {
		r.prepass.Destroy(r.context)
		r.prepass = nil
	}
	if r.renderPass != nil {
		r.renderPass.Destroy(r.context)
		r.renderPass = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy(r.context)
		r.swapchain = nil
	}
	if r.surface != vk.NullSurface {
		vk.DestroySurface(r.context.Instance, r.surface, r.context.Allocator)
		r.surface = vk.NullSurface
	}
}
