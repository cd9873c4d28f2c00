package resource

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
)

const prefix = "resource: "

func newErr(reason string) error { return ferrors.New(ferrors.InvalidArgument, prefix, reason) }

// Allocator creates buffers, images, image views and samplers, each
// returned as a move-only owning handle with a Destroy method that
// releases the underlying device resource exactly once.
//
// Grounded on engine/texture.go's makeViews/New2D: the allocator is
// responsible both for the raw allocation and for the default view
// whose type is inferred from the image description (2D / array / cube),
// and driver/core.go's GPU.NewBuffer/NewImage/NewSampler contracts.
type Allocator struct {
	ctx *gpuctx.DeviceContext
}

// NewAllocator creates an Allocator bound to ctx. ctx must not be nil.
func NewAllocator(ctx *gpuctx.DeviceContext) (*Allocator, error) {
	if ctx == nil {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "nil device context")
	}
	return &Allocator{ctx: ctx}, nil
}

func (a *Allocator) initialized() bool { return a != nil && a.ctx != nil && a.ctx.Device != vk.NullHandle }

// findMemoryType selects a memory type index satisfying typeBits and the
// requested properties.
func (a *Allocator) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(a.ctx.PhysicalDevice, &memProps)
	memProps.Deref()
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		memProps.MemoryTypes[i].Deref()
		if memProps.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, ferrors.New(ferrors.DeviceError, prefix, "no suitable memory type")
}

// CreateBuffer creates a buffer of the given size and usage. size must be
// greater than zero and the allocator must be initialized.
func (a *Allocator) CreateBuffer(size int64, usage Usage, mode MemoryMode, debugName string) (*ManagedBuffer, error) {
	if size <= 0 {
		return nil, newErr("buffer size must be > 0")
	}
	if !a.initialized() {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "allocator not initialized")
	}

	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if res := vk.CreateBuffer(a.ctx.Device, &info, nil, &buf); res != vk.Success {
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateBuffer failed: %v", res))
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.ctx.Device, buf, &req)
	req.Deref()

	props := memoryPropertyFlags(mode)
	typeIdx, err := a.findMemoryType(req.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(a.ctx.Device, buf, nil)
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(a.ctx.Device, &allocInfo, nil, &mem); res != vk.Success {
		vk.DestroyBuffer(a.ctx.Device, buf, nil)
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("AllocateMemory failed: %v", res))
	}
	if res := vk.BindBufferMemory(a.ctx.Device, buf, mem, 0); res != vk.Success {
		vk.FreeMemory(a.ctx.Device, mem, nil)
		vk.DestroyBuffer(a.ctx.Device, buf, nil)
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("BindBufferMemory failed: %v", res))
	}

	var mapped unsafe.Pointer
	if mode != GpuOnly {
		var p unsafe.Pointer
		if res := vk.MapMemory(a.ctx.Device, mem, 0, vk.DeviceSize(size), 0, &p); res != vk.Success {
			vk.FreeMemory(a.ctx.Device, mem, nil)
			vk.DestroyBuffer(a.ctx.Device, buf, nil)
			return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("MapMemory failed: %v", res))
		}
		mapped = p
	}

	mb := &ManagedBuffer{
		alloc:     a,
		handle:    buf,
		memory:    mem,
		size:      size,
		mode:      mode,
		mapped:    mapped,
		debugName: debugName,
	}
	mb.armFinalizer()
	return mb, nil
}

// CreateImage creates an image plus a default view whose view type is
// inferred from desc (2D, 2D array, 3D, or cube). The returned handle
// owns both the image and the default view.
func (a *Allocator) CreateImage(desc ImageDesc, aspect AspectMask) (*ManagedImage, error) {
	if !a.initialized() {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "allocator not initialized")
	}
	switch {
	case desc.Extent.Width < 1 || desc.Extent.Height < 1:
		return nil, newErr("invalid image extent")
	case desc.MipLevels < 1:
		return nil, newErr("invalid mip level count")
	case desc.ArrayLayers < 1:
		return nil, newErr("invalid array layer count")
	case desc.Samples < 1:
		return nil, newErr("invalid sample count")
	}

	imgType := vk.ImageType2d
	if desc.Extent.Depth > 1 {
		imgType = vk.ImageType3d
	}

	var flags vk.ImageCreateFlags
	if desc.Cube {
		flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: imgType,
		Format:    desc.Format,
		Extent: vk.Extent3D{
			Width:  uint32(desc.Extent.Width),
			Height: uint32(desc.Extent.Height),
			Depth:  uint32(max(1, desc.Extent.Depth)),
		},
		MipLevels:     uint32(desc.MipLevels),
		ArrayLayers:   uint32(desc.ArrayLayers),
		Samples:       sampleCountFlag(desc.Samples),
		Tiling:        desc.Tiling,
		Usage:         imageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var img vk.Image
	if res := vk.CreateImage(a.ctx.Device, &info, nil, &img); res != vk.Success {
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateImage failed: %v", res))
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.ctx.Device, img, &req)
	req.Deref()

	typeIdx, err := a.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(a.ctx.Device, img, nil)
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: typeIdx,
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(a.ctx.Device, &allocInfo, nil, &mem); res != vk.Success {
		vk.DestroyImage(a.ctx.Device, img, nil)
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("AllocateMemory failed: %v", res))
	}
	if res := vk.BindImageMemory(a.ctx.Device, img, mem, 0); res != vk.Success {
		vk.FreeMemory(a.ctx.Device, mem, nil)
		vk.DestroyImage(a.ctx.Device, img, nil)
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("BindImageMemory failed: %v", res))
	}

	viewType := inferViewType(desc)
	view, err := a.createViewRaw(img, desc.Format, aspect, 0, desc.MipLevels, 0, desc.ArrayLayers, viewType)
	if err != nil {
		vk.FreeMemory(a.ctx.Device, mem, nil)
		vk.DestroyImage(a.ctx.Device, img, nil)
		return nil, err
	}

	return &ManagedImage{
		alloc:      a,
		handle:     img,
		memory:     mem,
		view:       view,
		ownsImage:  true,
		format:     desc.Format,
		extent:     desc.Extent,
		mipLevels:  desc.MipLevels,
		layers:     desc.ArrayLayers,
	}, nil
}

// inferViewType chooses the view type matching the image description.
func inferViewType(desc ImageDesc) vk.ImageViewType {
	switch {
	case desc.Cube && desc.ArrayLayers > 6:
		return vk.ImageViewTypeCubeArray
	case desc.Cube:
		return vk.ImageViewTypeCube
	case desc.Extent.Depth > 1:
		return vk.ImageViewType3d
	case desc.ArrayLayers > 1:
		return vk.ImageViewType2dArray
	default:
		return vk.ImageViewType2d
	}
}

func sampleCountFlag(samples int) vk.SampleCountFlagBits {
	switch samples {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	case 16:
		return vk.SampleCount16Bit
	default:
		return vk.SampleCount1Bit
	}
}

func (a *Allocator) createViewRaw(img vk.Image, format vk.Format, aspect AspectMask, baseMip, levelCount, baseLayer, layerCount int, viewType vk.ImageViewType) (vk.ImageView, error) {
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect.vk(),
			BaseMipLevel:   uint32(baseMip),
			LevelCount:     uint32(levelCount),
			BaseArrayLayer: uint32(baseLayer),
			LayerCount:     uint32(layerCount),
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(a.ctx.Device, &info, nil, &view); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateImageView failed: %v", res))
	}
	return view, nil
}

// CreateImageView creates an additional, non-owning-of-image view into
// baseImage. Dropping the returned handle destroys only the view.
func (a *Allocator) CreateImageView(baseImage *ManagedImage, aspect AspectMask, baseMip, levelCount, baseLayer, layerCount int, viewType vk.ImageViewType, debugName string) (*ManagedImage, error) {
	if !a.initialized() {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "allocator not initialized")
	}
	if baseImage == nil || baseImage.handle == vk.NullHandle {
		return nil, newErr("nil base image")
	}
	view, err := a.createViewRaw(baseImage.handle, baseImage.format, aspect, baseMip, levelCount, baseLayer, layerCount, viewType)
	if err != nil {
		return nil, err
	}
	return &ManagedImage{
		alloc:     a,
		handle:    baseImage.handle,
		view:      view,
		ownsImage: false,
		format:    baseImage.format,
		extent:    baseImage.extent,
		mipLevels: levelCount,
		layers:    layerCount,
		debugName: debugName,
	}, nil
}

// CreateSampler creates a sampler. Anisotropy is enabled iff
// maxAnisotropy > 1; border color is opaque black; coordinates are
// normalized; max LOD is unclamped.
func (a *Allocator) CreateSampler(magFilter, minFilter vk.Filter, mipmapMode vk.SamplerMipmapMode, addressMode vk.SamplerAddressMode, maxAnisotropy float32, debugName string) (*ManagedSampler, error) {
	if !a.initialized() {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "allocator not initialized")
	}
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               magFilter,
		MinFilter:               minFilter,
		MipmapMode:              mipmapMode,
		AddressModeU:            addressMode,
		AddressModeV:            addressMode,
		AddressModeW:            addressMode,
		AnisotropyEnable:        vkBool(maxAnisotropy > 1),
		MaxAnisotropy:           maxAnisotropy,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		MinLod:                  0,
		MaxLod:                  vk.LodClampNone,
	}
	var s vk.Sampler
	if res := vk.CreateSampler(a.ctx.Device, &info, nil, &s); res != vk.Success {
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateSampler failed: %v", res))
	}
	return &ManagedSampler{alloc: a, handle: s, debugName: debugName}, nil
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
