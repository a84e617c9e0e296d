package vulkan

import "errors"

var (
	// ErrOutOfDeviceMemory marks an allocation failure during uploads. The
	// uploader shrinks its staging pool and retries once before surfacing
	// it; callers seeing it may defer the upload.
	ErrOutOfDeviceMemory = errors.New("out of device memory")

	// ErrSwapchainStale is returned by acquire/present when the swapchain no
	// longer matches the surface. It is absorbed by the render loop, which
	// recreates the swapchain and skips the frame.
	ErrSwapchainStale = errors.New("swapchain is stale")

	// ErrDeviceLost is fatal for the affected window's rendering.
	ErrDeviceLost = errors.New("device lost")

	// ErrFenceTimeout means a frame fence did not signal within the bounded
	// wait. Treated the same as a lost device.
	ErrFenceTimeout = errors.New("fence wait timed out")
)
