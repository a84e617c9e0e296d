package vulkan

import (
	"fmt"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spectralab/spectra/engine/core"
	"github.com/spectralab/spectra/engine/resources"
)

// SurfaceState tracks whether a window's swapchain can be rendered to.
type SurfaceState int

const (
	// SurfaceValid means acquire/present may proceed.
	SurfaceValid SurfaceState = iota
	// SurfaceStale means the swapchain no longer matches the surface and must
	// be recreated before the next frame.
	SurfaceStale
	// SurfaceZeroExtent means the window is minimized; rendering is parked
	// until a nonzero resize arrives. No recreation is attempted while parked.
	SurfaceZeroExtent
)

// SurfaceEvent is an input to the surface state machine.
type SurfaceEvent int

const (
	// SurfaceEventResized carries a new framebuffer extent.
	SurfaceEventResized SurfaceEvent = iota
	// SurfaceEventOutOfDate is raised when acquire or present reports the
	// swapchain stale.
	SurfaceEventOutOfDate
	// SurfaceEventRecreated is raised after a successful swapchain rebuild.
	SurfaceEventRecreated
)

// NextSurfaceState advances the state machine. A zero extent always parks,
// whether it arrives as a resize or alongside an out-of-date report; a parked
// surface only leaves through a nonzero resize. Stale at zero extent would
// drive a recreation the swapchain cannot satisfy.
func NextSurfaceState(current SurfaceState, event SurfaceEvent, width, height uint32) SurfaceState {
	switch event {
	case SurfaceEventResized:
		if width == 0 || height == 0 {
			return SurfaceZeroExtent
		}
		return SurfaceStale
	case SurfaceEventOutOfDate:
		if current == SurfaceZeroExtent || width == 0 || height == 0 {
			return SurfaceZeroExtent
		}
		return SurfaceStale
	case SurfaceEventRecreated:
		return SurfaceValid
	}
	return current
}

// Swapchain owns the presentation images for one window surface plus the
// depth attachment and, above one sample, the multisampled color target.
type Swapchain struct {
	ID                uuid.UUID
	Handle            vk.Swapchain
	ImageFormat       vk.SurfaceFormat
	Extent            vk.Extent2D
	ImageCount        uint32
	Images            []vk.Image
	ImageViews        []vk.ImageView
	DepthAttachment   *Image
	ColorAttachment   *Image
	SampleCount       vk.SampleCountFlagBits
	MaxFramesInFlight uint32

	vsync bool
}

func NewSwapchain(context *Context, surface vk.Surface, width, height uint32, vsync bool, samples vk.SampleCountFlagBits, framesInFlight uint32) (*Swapchain, error) {
	swapchain := &Swapchain{
		SampleCount:       samples,
		MaxFramesInFlight: framesInFlight,
		vsync:             vsync,
	}
	if err := swapchain.create(context, surface, width, height, vk.NullSwapchain); err != nil {
		return nil, err
	}
	swapchain.ID = context.Registry.Register(resources.KindSwapchain)
	return swapchain, nil
}

// Recreate rebuilds the swapchain and its attachments for a new extent. The
// caller must ensure the device is idle for this surface first. The old
// swapchain is handed to the create info so in-flight presents retire cleanly.
func (s *Swapchain) Recreate(context *Context, surface vk.Surface, width, height uint32) error {
	old := s.Handle
	s.destroyAttachments(context)
	if err := s.create(context, surface, width, height, old); err != nil {
		return err
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, old, context.Allocator)
	}
	return nil
}

func (s *Swapchain) create(context *Context, surface vk.Surface, width, height uint32, oldSwapchain vk.Swapchain) error {
	device := context.Device
	if err := DeviceQuerySwapchainSupport(device.PhysicalDevice, surface, &device.SwapchainSupport); err != nil {
		return err
	}
	support := device.SwapchainSupport

	s.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		format.Deref()
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			s.ImageFormat = format
			break
		}
	}
	s.ImageFormat.Deref()

	// FIFO is the only mode every driver must support; mailbox is preferred when
	// vsync is off because it never tears.
	presentMode := vk.PresentModeFifo
	if !s.vsync {
		for _, mode := range support.PresentModes {
			if mode == vk.PresentModeMailbox {
				presentMode = mode
				break
			}
		}
	}

	capabilities := support.Capabilities
	extent := vk.Extent2D{Width: width, Height: height}
	if capabilities.CurrentExtent.Width != vk.MaxUint32 {
		extent = capabilities.CurrentExtent
	}
	extent.Width = clampU32(extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	extent.Height = clampU32(extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return fmt.Errorf("cannot create swapchain with zero extent")
	}
	s.Extent = extent

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      s.ImageFormat.Format,
		ImageColorSpace:  s.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create swapchain: %s", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	s.Handle = handle

	var actualCount uint32
	vk.GetSwapchainImages(device.LogicalDevice, s.Handle, &actualCount, nil)
	s.Images = make([]vk.Image, actualCount)
	vk.GetSwapchainImages(device.LogicalDevice, s.Handle, &actualCount, s.Images)
	s.ImageCount = actualCount

	s.ImageViews = make([]vk.ImageView, actualCount)
	for i := range s.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    s.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   s.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, context.Allocator, &view); res != vk.Success {
			err := fmt.Errorf("failed to create swapchain image view: %s", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		s.ImageViews[i] = view
	}

	if device.DepthFormat == vk.FormatUndefined {
		if !DeviceDetectDepthFormat(device) {
			return fmt.Errorf("no supported depth format found")
		}
	}
	depth, err := NewImage(context, &ImageConfig{
		Width:       extent.Width,
		Height:      extent.Height,
		Format:      device.DepthFormat,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Samples:     s.SampleCount,
		CreateView:  true,
		ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
	if err != nil {
		return err
	}
	s.DepthAttachment = depth

	if s.SampleCount > vk.SampleCount1Bit {
		color, err := NewImage(context, &ImageConfig{
			Width:  extent.Width,
			Height: extent.Height,
			Format: s.ImageFormat.Format,
			Tiling: vk.ImageTilingOptimal,
			Usage: vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit |
				vk.ImageUsageColorAttachmentBit),
			MemoryFlags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
			Samples:     s.SampleCount,
			CreateView:  true,
			ViewAspect:  vk.ImageAspectFlags(vk.ImageAspectColorBit),
		})
		if err != nil {
			return err
		}
		s.ColorAttachment = color
	}

	core.LogDebug("swapchain created: %dx%d, %d images, %d samples", extent.Width, extent.Height, actualCount, s.SampleCount)
	return nil
}

func (s *Swapchain) destroyAttachments(context *Context) {
	if s.ColorAttachment != nil {
		s.ColorAttachment.Destroy(context)
		s.ColorAttachment = nil
	}
	if s.DepthAttachment != nil {
		s.DepthAttachment.Destroy(context)
		s.DepthAttachment = nil
	}
	for _, view := range s.ImageViews {
		vk.DestroyImageView(context.Device.LogicalDevice, view, context.Allocator)
	}
	s.ImageViews = nil
	s.Images = nil
}

func (s *Swapchain) Destroy(context *Context) {
	s.destroyAttachments(context)
	if s.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = vk.NullSwapchain
	}
	if err := context.Registry.Release(s.ID); err != nil {
		core.LogWarn(err.Error())
	}
}

// AcquireNextImageIndex returns the next presentable image. An out-of-date
// surface is reported as ErrSwapchainStale so the caller can rebuild; a
// suboptimal acquire still yields a usable image and is rendered as-is.
func (s *Swapchain) AcquireNextImageIndex(context *Context, timeoutNs uint64, imageAvailableSemaphore vk.Semaphore, fence vk.Fence) (uint32, error) {
	var imageIndex uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, s.Handle, timeoutNs, imageAvailableSemaphore, fence, &imageIndex)
	switch result {
	case vk.Success, vk.SuboptimalKhr:
		return imageIndex, nil
	case vk.ErrorOutOfDateKhr:
		return 0, ErrSwapchainStale
	case vk.ErrorDeviceLost:
		return 0, ErrDeviceLost
	default:
		err := fmt.Errorf("failed to acquire swapchain image: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return 0, err
	}
}

// Present queues the image for presentation. Both out-of-date and suboptimal
// results mark the swapchain stale; the frame was still consumed.
func (s *Swapchain) Present(context *Context, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, imageIndex uint32) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.QueuePresent(presentQueue, &presentInfo)
	switch result {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDateKhr, vk.SuboptimalKhr:
		return ErrSwapchainStale
	case vk.ErrorDeviceLost:
		return ErrDeviceLost
	default:
		err := fmt.Errorf("failed to present swapchain image: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}
}

func clampU32(value, min, max uint32) uint32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
