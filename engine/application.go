package engine

import (
	"errors"
	"fmt"
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/assets"
	"github.com/spectralab/spectra/engine/assets/loaders"
	"github.com/spectralab/spectra/engine/config"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/platform"
	"github.com/spectralab/spectra/engine/renderer"
	"github.com/spectralab/spectra/engine/renderer/vulkan"
	"github.com/spectralab/spectra/engine/resources"
	"github.com/spectralab/spectra/engine/scene"
)

const maxTextures = 64

// Application wires the platform, the GPU context and one renderer per
// window into a single-threaded cooperative loop: window events and per-frame
// rendering interleave on the main thread, while the GPU runs submitted work
// asynchronously behind the frame-slot fences.
type Application struct {
	game *Game
	cfg  *config.Config

	platform     *platform.Platform
	context      *vulkan.Context
	uploader     *vulkan.Uploader
	assetManager *assets.AssetManager
	imageLoader  loaders.ImageLoader

	shared         *renderer.SharedResources
	textureSources []string

	scenes    map[uint32]*scene.Scene
	renderers map[uint32]*renderer.WindowRenderer
	order     []uint32

	clock     *core.Clock
	lastTime  float64
	isRunning bool

	// Set by the asset watcher goroutine, consumed by the main loop.
	reloadPending atomic.Bool
}

func New(game *Game) (*Application, error) {
	if game.Config == nil {
		game.Config = config.Default()
	}
	if err := game.Config.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(game.Config.LogLevel)

	return &Application{
		game:      game,
		cfg:       game.Config,
		platform:  platform.New(),
		scenes:    make(map[uint32]*scene.Scene),
		renderers: make(map[uint32]*renderer.WindowRenderer),
		clock:     core.NewClock(),
	}, nil
}

// Initialize brings up the platform, the device, the shared resources and a
// renderer per configured window, then runs the game's setup hook.
func (a *Application) Initialize() error {
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, a.onQuit)
	core.EventRegister(core.EVENT_CODE_WINDOW_RESIZED, a.onResized)
	core.EventRegister(core.EVENT_CODE_WINDOW_CLOSED, a.onWindowClosed)
	core.EventRegister(core.EVENT_CODE_WINDOW_REDRAW, a.onRedraw)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, a.onAssetChanged)

	if err := a.platform.Startup(); err != nil {
		return err
	}

	for _, windowConfig := range a.cfg.Windows {
		if _, err := a.platform.OpenWindow(windowConfig.Title, windowConfig.Width, windowConfig.Height); err != nil {
			return err
		}
	}
	windows := a.platform.Windows()

	context, err := vulkan.NewContext(a.cfg.Name, a.cfg.Renderer.Validation, windows[0].RequiredInstanceExtensions())
	if err != nil {
		return err
	}
	a.context = context

	// Device selection needs a presentation surface; probe with the first
	// window, then let each renderer create its own.
	probePtr, err := windows[0].CreateSurface(context.Instance)
	if err != nil {
		return err
	}
	probeSurface := vk.SurfaceFromPointer(probePtr)
	if err := context.InitDevice(probeSurface); err != nil {
		vk.DestroySurface(context.Instance, probeSurface, context.Allocator)
		return err
	}
	vk.DestroySurface(context.Instance, probeSurface, context.Allocator)

	a.uploader = vulkan.NewUploader(context)

	descriptors, err := vulkan.NewDescriptorState(context, maxTextures)
	if err != nil {
		return err
	}

	vertexShader, err := vulkan.NewShaderModule(context, "assets/shaders/mesh.vert.spv", vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	fragmentShader, err := vulkan.NewShaderModule(context, "assets/shaders/mesh.frag.spv", vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}

	a.shared = &renderer.SharedResources{
		Descriptors:    descriptors,
		VertexShader:   vertexShader,
		FragmentShader: fragmentShader,
	}

	a.assetManager, err = assets.NewAssetManager(a.cfg.Assets.Root)
	if err != nil {
		return err
	}

	for _, window := range windows {
		width, height := window.FramebufferExtent()
		sceneState := scene.NewScene(a.cfg.Camera, width, height)
		windowRenderer, err := renderer.NewWindowRenderer(context, window, sceneState, a.shared, a.cfg.Renderer)
		if err != nil {
			return err
		}
		a.scenes[window.ID] = sceneState
		a.renderers[window.ID] = windowRenderer
		a.order = append(a.order, window.ID)
	}

	if a.game.FnSetup != nil {
		if err := a.game.FnSetup(a); err != nil {
			return err
		}
	}

	a.isRunning = true
	return nil
}

// Assets exposes the asset manager to the game's setup hook.
func (a *Application) Assets() *assets.AssetManager {
	return a.assetManager
}

// Scene returns the scene rendered into the given window.
func (a *Application) Scene(windowID uint32) *scene.Scene {
	return a.scenes[windowID]
}

// WindowIDs lists the open windows in creation order.
func (a *Application) WindowIDs() []uint32 {
	return append([]uint32(nil), a.order...)
}

// AddMesh uploads geometry to the GPU and registers it as a shared mesh.
// Returns the mesh index used by scene instances.
func (a *Application) AddMesh(data *resources.MeshData) (uint32, error) {
	mesh, err := vulkan.NewMesh(a.context, a.uploader, data)
	if err != nil {
		return 0, err
	}
	a.shared.Meshes = append(a.shared.Meshes, mesh)
	return uint32(len(a.shared.Meshes) - 1), nil
}

// AddTexture uploads image data, generates its mip chain and allocates the
// descriptor set meshes reference through their material index.
func (a *Application) AddTexture(data *resources.ImageData, sourcePath string) (uint32, error) {
	if len(a.shared.Textures) >= maxTextures {
		return 0, fmt.Errorf("texture limit of %d reached", maxTextures)
	}
	texture, err := vulkan.NewTexture(a.context, a.uploader, data)
	if err != nil {
		return 0, err
	}
	set, err := a.shared.Descriptors.AllocateTextureSet(a.context, texture)
	if err != nil {
		texture.Destroy(a.context)
		return 0, err
	}
	a.shared.Textures = append(a.shared.Textures, texture)
	a.shared.DescriptorSets = append(a.shared.DescriptorSets, set)
	a.textureSources = append(a.textureSources, sourcePath)
	return uint32(len(a.shared.Textures) - 1), nil
}

// LoadModel loads a GLTF file, uploads every primitive and its base color
// textures, and returns the index of the first mesh added.
func (a *Application) LoadModel(relative string) (uint32, error) {
	meshes, materials, err := a.assetManager.LoadModel(relative)
	if err != nil {
		return 0, err
	}

	materialBase := uint32(len(a.shared.Textures))
	for _, material := range materials {
		if material.TexturePath == "" {
			return 0, fmt.Errorf("material %s has no base color texture", material.Name)
		}
		imageData, err := a.imageLoader.Load(material.TexturePath)
		if err != nil {
			return 0, err
		}
		if _, err := a.AddTexture(imageData, material.TexturePath); err != nil {
			return 0, err
		}
	}

	meshBase := uint32(len(a.shared.Meshes))
	for i := range meshes {
		meshes[i].MaterialIndex += materialBase
		if _, err := a.AddMesh(&meshes[i]); err != nil {
			return 0, err
		}
	}
	return meshBase, nil
}

// Run drives the cooperative loop: pump window events, run the game update,
// render every window, until quit is requested or the last window closes.
func (a *Application) Run() error {
	a.clock.Start()
	a.clock.Update()
	a.lastTime = a.clock.Elapsed()

	for a.isRunning {
		a.platform.PumpMessages()

		a.clock.Update()
		now := a.clock.Elapsed()
		dt := now - a.lastTime
		a.lastTime = now

		if a.reloadPending.CompareAndSwap(true, false) {
			if err := a.reloadTextures(); err != nil {
				core.LogError("texture reload failed: %s", err.Error())
			}
		}

		if a.game.FnUpdate != nil {
			if err := a.game.FnUpdate(a, dt); err != nil {
				return err
			}
		}

		for _, id := range a.WindowIDs() {
			windowRenderer, ok := a.renderers[id]
			if !ok {
				continue
			}
			if windowRenderer.Window().ShouldClose() {
				a.closeWindow(id)
				continue
			}
			if err := windowRenderer.RenderFrame(dt); err != nil {
				if errors.Is(err, vulkan.ErrDeviceLost) {
					core.LogError("device lost; shutting down")
					a.isRunning = false
					break
				}
				// Fatal for this window only; the rest keep rendering.
				core.LogError("window %d rendering failed: %s", id, err.Error())
				a.closeWindow(id)
			}
		}

		if len(a.renderers) == 0 {
			a.isRunning = false
		}
	}
	return nil
}

// closeWindow tears down one window's renderer without touching the others.
func (a *Application) closeWindow(id uint32) {
	windowRenderer, ok := a.renderers[id]
	if !ok {
		return
	}
	core.LogInfo("closing window %d", id)
	windowRenderer.Destroy()
	delete(a.renderers, id)
	delete(a.scenes, id)
	for i, other := range a.order {
		if other == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// reloadTextures re-decodes every texture from its source file and rebinds
// the descriptor sets. Meshes keep their material indices.
func (a *Application) reloadTextures() error {
	a.context.WaitIdle()

	if err := a.shared.Descriptors.Reset(a.context); err != nil {
		return err
	}
	a.shared.DescriptorSets = a.shared.DescriptorSets[:0]

	for i, texture := range a.shared.Textures {
		source := a.textureSources[i]
		if source != "" {
			imageData, err := a.imageLoader.Load(source)
			if err != nil {
				core.LogWarn("keeping stale texture %s: %s", texture.Name, err.Error())
			} else {
				replacement, err := vulkan.NewTexture(a.context, a.uploader, imageData)
				if err != nil {
					return err
				}
				texture.Destroy(a.context)
				a.shared.Textures[i] = replacement
				texture = replacement
			}
		}
		set, err := a.shared.Descriptors.AllocateTextureSet(a.context, texture)
		if err != nil {
			return err
		}
		a.shared.DescriptorSets = append(a.shared.DescriptorSets, set)
	}
	core.LogInfo("textures reloaded")
	return nil
}

// Shutdown releases everything in reverse acquisition order: window
// renderers, shared GPU resources, then the context and the platform.
func (a *Application) Shutdown() error {
	a.isRunning = false
	if a.context != nil {
		a.context.WaitIdle()
	}

	for _, id := range a.WindowIDs() {
		a.closeWindow(id)
	}

	if a.assetManager != nil {
		a.assetManager.Shutdown()
	}

	if a.shared != nil {
		for _, mesh := range a.shared.Meshes {
			mesh.Destroy(a.context)
		}
		for _, texture := range a.shared.Textures {
			texture.Destroy(a.context)
		}
		if a.shared.VertexShader != nil {
			a.shared.VertexShader.Destroy(a.context)
		}
		if a.shared.FragmentShader != nil {
			a.shared.FragmentShader.Destroy(a.context)
		}
		if a.shared.Descriptors != nil {
			a.shared.Descriptors.Destroy(a.context)
		}
		a.shared = nil
	}

	if a.uploader != nil {
		a.uploader.Destroy()
		a.uploader = nil
	}
	if a.context != nil {
		a.context.Destroy()
		a.context = nil
	}

	core.EventUnregisterAll(core.EVENT_CODE_APPLICATION_QUIT)
	core.EventUnregisterAll(core.EVENT_CODE_WINDOW_RESIZED)
	core.EventUnregisterAll(core.EVENT_CODE_WINDOW_CLOSED)
	core.EventUnregisterAll(core.EVENT_CODE_WINDOW_REDRAW)
	core.EventUnregisterAll(core.EVENT_CODE_ASSET_CHANGED)
	return a.platform.Shutdown()
}

func (a *Application) onQuit(_ core.SystemEventCode, _ core.EventContext) {
	a.isRunning = false
}

func (a *Application) onResized(_ core.SystemEventCode, context core.EventContext) {
	id := context.Data.U32[0]
	width, height := context.Data.U32[1], context.Data.U32[2]
	if windowRenderer, ok := a.renderers[id]; ok {
		windowRenderer.OnResize(width, height)
	}
}

// onRedraw fires from inside the event pump while the OS drives an
// interactive move or resize and the regular loop is blocked in PumpMessages.
// Rendering one frame here keeps the window content tracking the drag.
func (a *Application) onRedraw(_ core.SystemEventCode, context core.EventContext) {
	id := context.Data.U32[0]
	windowRenderer, ok := a.renderers[id]
	if !ok || !a.isRunning {
		return
	}
	if err := windowRenderer.RenderFrame(0); err != nil {
		core.LogWarn("window %d redraw failed: %s", id, err.Error())
	}
}

func (a *Application) onWindowClosed(_ core.SystemEventCode, context core.EventContext) {
	// Deferred to the loop; destroying mid-dispatch would pull resources out
	// from under the current iteration.
	core.LogDebug("window %d close requested", context.Data.U32[0])
}

// onAssetChanged runs on the asset watcher goroutine; only the atomic flag
// crosses to the main loop.
func (a *Application) onAssetChanged(_ core.SystemEventCode, _ core.EventContext) {
	a.reloadPending.Store(true)
}
