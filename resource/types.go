// Package resource implements the GPU resource lifecycle half of the
// transfer engine: RAII wrappers for buffers, images, image views and
// samplers, created through an Allocator.
//
// Every owning wrapper (ManagedBuffer, ManagedImage, ManagedSampler) is
// move-only: copying is not possible in Go without reflection tricks, so
// the contract is enforced by convention (value receivers return a
// "moved-from" zero value is not modeled; instead Destroy is idempotent
// and callers are expected to pass these types by pointer, mirroring
// gviegas-neo3's pattern of interface values backed by driver-internal
// structs with explicit Destroy methods).
package resource

import vk "github.com/vulkan-go/vulkan"

// Usage is a semantic bitset describing how a buffer or image will be
// used. The allocator translates it into the underlying Vulkan usage
// flags.
type Usage uint32

const (
	UsageVertex Usage = 1 << iota
	UsageIndex
	UsageUniform
	UsageStorage
	UsageStagingSrc
	UsageStagingDst
	UsageIndirect
	UsageTransferSrc
	UsageTransferDst

	UsageColorRT
	UsageDepthStencil
	UsageSampled
	UsageInputAttachment
)

// MemoryMode selects the memory heap a resource is allocated from.
type MemoryMode int

const (
	// GpuOnly is device-local memory, not host-visible.
	GpuOnly MemoryMode = iota
	// CpuToGpu is host-visible memory optimized for CPU writes.
	CpuToGpu
	// GpuToCpu is host-visible memory optimized for CPU reads (readback).
	GpuToCpu
)

// bufferUsageFlags translates a buffer Usage bitset into vk.BufferUsageFlags.
func bufferUsageFlags(u Usage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlagBits
	if u&UsageVertex != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	if u&UsageIndex != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u&UsageUniform != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u&UsageStorage != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if u&UsageIndirect != 0 {
		f |= vk.BufferUsageIndirectBufferBit
	}
	if u&(UsageStagingSrc|UsageTransferSrc) != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	if u&(UsageStagingDst|UsageTransferDst) != 0 {
		f |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(f)
}

// imageUsageFlags translates an image Usage bitset into vk.ImageUsageFlags.
func imageUsageFlags(u Usage) vk.ImageUsageFlags {
	var f vk.ImageUsageFlagBits
	if u&UsageColorRT != 0 {
		f |= vk.ImageUsageColorAttachmentBit
	}
	if u&UsageDepthStencil != 0 {
		f |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if u&UsageSampled != 0 {
		f |= vk.ImageUsageSampledBit
	}
	if u&UsageStorage != 0 {
		f |= vk.ImageUsageStorageBit
	}
	if u&UsageInputAttachment != 0 {
		f |= vk.ImageUsageInputAttachmentBit
	}
	if u&UsageTransferSrc != 0 {
		f |= vk.ImageUsageTransferSrcBit
	}
	if u&UsageTransferDst != 0 {
		f |= vk.ImageUsageTransferDstBit
	}
	return vk.ImageUsageFlags(f)
}

// memoryPropertyFlags translates a MemoryMode into the preferred
// vk.MemoryPropertyFlags.
func memoryPropertyFlags(m MemoryMode) vk.MemoryPropertyFlags {
	switch m {
	case CpuToGpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	case GpuToCpu:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit)
	default:
		return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
}

// Extent3D describes an image's dimensions.
type Extent3D struct {
	Width, Height, Depth int
}

// ImageDesc describes the parameters of an image to be created.
type ImageDesc struct {
	Extent     Extent3D
	MipLevels  int
	ArrayLayers int
	Format     vk.Format
	Samples    int
	Tiling     vk.ImageTiling
	Usage      Usage
	Cube       bool
}

// AspectMask selects which aspect(s) of an image a view or barrier
// addresses.
type AspectMask uint32

const (
	AspectColor AspectMask = 1 << iota
	AspectDepth
	AspectStencil
)

func (a AspectMask) vk() vk.ImageAspectFlags {
	var f vk.ImageAspectFlagBits
	if a&AspectColor != 0 {
		f |= vk.ImageAspectColorBit
	}
	if a&AspectDepth != 0 {
		f |= vk.ImageAspectDepthBit
	}
	if a&AspectStencil != 0 {
		f |= vk.ImageAspectStencilBit
	}
	return vk.ImageAspectFlags(f)
}
