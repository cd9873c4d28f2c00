// Package gpuctx holds the device context the engine's core subsystems
// are built on top of.
//
// The device context (instance, physical device, logical device, queues,
// surface, swapchain) is an external collaborator: some host application
// creates it (window, instance, surface) and hands the engine a
// DeviceContext. This package only stores and exposes those handles, the
// way gviegas-neo3's engine/internal/ctxt package exposes a process-wide
// driver.GPU/driver.Limits pair.
package gpuctx

import (
	"log/slog"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// QueueRole identifies the role a given vk.Queue was retrieved for. A
// single physical queue may serve more than one role.
type QueueRole int

const (
	Graphics QueueRole = iota
	Present
	Compute
	Transfer
)

// Limits carries the device limits the engine consults when validating
// resource creation requests (image size, array layers, and so on).
type Limits struct {
	MaxImageDimension2D uint32
	MaxImageDimension3D uint32
	MaxImageArrayLayers uint32
	MaxSamplerAnisotropy float32
	MinUniformBufferOffsetAlignment uint64
	NonCoherentAtomSize             uint64
}

// DeviceContext is the external collaborator providing access to the
// underlying Vulkan objects. The host application is responsible for
// instance/device/surface/swapchain creation and for calling Recreate on
// resize; the engine only ever reads from it.
type DeviceContext struct {
	Instance       vk.Instance
	PhysicalDevice vk.PhysicalDevice
	Device         vk.Device

	Queues map[QueueRole]vk.Queue
	// QueueFamilies gives the family index backing each queue in Queues.
	QueueFamilies map[QueueRole]uint32

	Surface   vk.Surface
	Swapchain vk.Swapchain

	SwapchainFormat vk.Format
	SwapchainExtent vk.Extent2D
	SwapchainViews  []vk.ImageView
	SwapchainImages []vk.Image

	DeviceLimits Limits

	Logger *slog.Logger

	mu sync.RWMutex
}

// Queue returns the queue for the given role, and ok is false if no
// queue was retrieved for that role (e.g. no dedicated transfer queue).
func (c *DeviceContext) Queue(role QueueRole) (q vk.Queue, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok = c.Queues[role]
	return
}

// QueueFamily returns the queue family index backing role.
func (c *DeviceContext) QueueFamily(role QueueRole) (fam uint32, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fam, ok = c.QueueFamilies[role]
	return
}

// CurrentExtent returns the swapchain's current extent.
func (c *DeviceContext) CurrentExtent() vk.Extent2D {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.SwapchainExtent
}

// SwapchainImageView returns the image view for the swapchain image at
// the given index, modulo the number of swapchain images.
func (c *DeviceContext) SwapchainImageView(index int) vk.ImageView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.SwapchainViews) == 0 {
		return vk.NullHandle
	}
	return c.SwapchainViews[index%len(c.SwapchainViews)]
}

// SwapchainImage returns the swapchain image at the given index, modulo
// the number of swapchain images.
func (c *DeviceContext) SwapchainImage(index int) vk.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.SwapchainImages) == 0 {
		return vk.NullHandle
	}
	return c.SwapchainImages[index%len(c.SwapchainImages)]
}

// SwapchainImageCount returns the number of swapchain images.
func (c *DeviceContext) SwapchainImageCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.SwapchainImages)
}

// Recreate replaces the swapchain-derived state after a resize. The host
// application is responsible for actually recreating the vk.Swapchain
// and its image views before calling this.
func (c *DeviceContext) Recreate(swapchain vk.Swapchain, format vk.Format, extent vk.Extent2D, images []vk.Image, views []vk.ImageView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Swapchain = swapchain
	c.SwapchainFormat = format
	c.SwapchainExtent = extent
	c.SwapchainImages = images
	c.SwapchainViews = views
}

func (c *DeviceContext) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Log returns the logger the engine should use for messages associated
// with this device context.
func (c *DeviceContext) Log() *slog.Logger { return c.log() }
