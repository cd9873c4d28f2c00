package transfer

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
	"github.com/Shanyu-Yun/RenderV2/resource"
)

// layoutTransition describes the access/stage pair a layout is expected
// to be used with, so transitionImageLayout can build the correct
// pipeline barrier without the caller spelling out every mask by hand.
// Grounded on gviegas-neo3's driver/vk/image.go transition tables.
type layoutTransition struct {
	access vk.AccessFlagBits
	stage  vk.PipelineStageFlagBits
}

func transitionInfo(layout vk.ImageLayout) layoutTransition {
	switch layout {
	case vk.ImageLayoutUndefined:
		return layoutTransition{0, vk.PipelineStageTopOfPipeBit}
	case vk.ImageLayoutGeneral:
		return layoutTransition{vk.AccessFlagBits(vk.AccessShaderReadBit | vk.AccessShaderWriteBit), vk.PipelineStageComputeShaderBit}
	case vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{vk.AccessFlagBits(vk.AccessTransferWriteBit), vk.PipelineStageTransferBit}
	case vk.ImageLayoutTransferSrcOptimal:
		return layoutTransition{vk.AccessFlagBits(vk.AccessTransferReadBit), vk.PipelineStageTransferBit}
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{vk.AccessFlagBits(vk.AccessShaderReadBit), vk.PipelineStageFragmentShaderBit}
	case vk.ImageLayoutColorAttachmentOptimal:
		return layoutTransition{vk.AccessFlagBits(vk.AccessColorAttachmentWriteBit), vk.PipelineStageColorAttachmentOutputBit}
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return layoutTransition{vk.AccessFlagBits(vk.AccessDepthStencilAttachmentWriteBit), vk.PipelineStageEarlyFragmentTestsBit}
	case vk.ImageLayoutPresentSrc:
		return layoutTransition{0, vk.PipelineStageBottomOfPipeBit}
	default:
		return layoutTransition{0, vk.PipelineStageTopOfPipeBit}
	}
}

func beginOneShot(dev vk.Device, cmd vk.CommandBuffer) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if res := vk.BeginCommandBuffer(cmd, &info); res != vk.Success {
		return ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("BeginCommandBuffer failed: %v", res))
	}
	return nil
}

func endOneShot(cmd vk.CommandBuffer) error {
	if res := vk.EndCommandBuffer(cmd); res != vk.Success {
		return ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("EndCommandBuffer failed: %v", res))
	}
	return nil
}

// transitionImageLayout records a pipeline barrier moving img's
// subresource range from oldLayout to newLayout, deriving access masks
// and pipeline stages from the fixed transitionInfo table.
func transitionImageLayout(cmd vk.CommandBuffer, img vk.Image, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout, baseMip, mipCount, baseLayer, layerCount uint32) {
	src := transitionInfo(oldLayout)
	dst := transitionInfo(newLayout)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       vk.AccessFlags(src.access),
		DstAccessMask:       vk.AccessFlags(dst.access),
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(src.stage), vk.PipelineStageFlags(dst.stage), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// UploadToBuffer copies data into dst, staging through a host-visible
// buffer and a transfer queue submission when dst is device-local, or
// writing directly (returning an already-complete token) when dst is
// host-visible.
func (w *Worker) UploadToBuffer(dst *resource.ManagedBuffer, data []byte, dstOffset int64) (TransferToken, error) {
	if dstOffset >= dst.Size() || int64(len(data)) > dst.Size()-dstOffset {
		return TransferToken{}, ferrors.New(ferrors.OutOfRange, prefix, "upload range exceeds buffer size")
	}

	if dst.Mode() != resource.GpuOnly {
		if err := writeToHostVisible(dst, data, dstOffset); err != nil {
			return TransferToken{}, err
		}
		return completedToken(), nil
	}

	w.mu.Lock()
	idx, err := w.staging.acquire(int64(len(data)))
	if err != nil {
		w.mu.Unlock()
		return TransferToken{}, err
	}
	stageBuf := w.staging.bufferAt(idx)
	w.mu.Unlock()

	if err := writeToHostVisible(stageBuf, data, 0); err != nil {
		w.mu.Lock()
		w.staging.release(idx)
		w.mu.Unlock()
		return TransferToken{}, err
	}

	cmd, err := w.allocCmd(w.transferPool)
	if err != nil {
		return TransferToken{}, err
	}
	if err := beginOneShot(w.eng.ctx.Device, cmd); err != nil {
		return TransferToken{}, err
	}
	region := vk.BufferCopy{SrcOffset: 0, DstOffset: vk.DeviceSize(dstOffset), Size: vk.DeviceSize(len(data))}
	vk.CmdCopyBuffer(cmd, stageBuf.Handle(), dst.Handle(), 1, []vk.BufferCopy{region})
	if err := endOneShot(cmd); err != nil {
		return TransferToken{}, err
	}

	queue, _ := w.eng.ctx.Queue(gpuctx.Transfer)
	return w.submit(w.transferPool, queue, cmd, []int{idx})
}

// UploadToImage stages data into dst and copies it to the given mip
// level/layer range, transitioning dst from Undefined to
// TransferDstOptimal before the copy and to finalLayout afterward. The
// whole command list is submitted on the graphics queue: finalLayout is
// typically ShaderReadOnlyOptimal, and the barrier into it targets the
// fragment shader stage, which only a graphics-capable queue can
// guarantee.
func (w *Worker) UploadToImage(dst *resource.ManagedImage, data []byte, aspect vk.ImageAspectFlags, mipLevel, baseLayer, layerCount int, finalLayout vk.ImageLayout) (TransferToken, error) {
	w.mu.Lock()
	idx, err := w.staging.acquire(int64(len(data)))
	if err != nil {
		w.mu.Unlock()
		return TransferToken{}, err
	}
	stageBuf := w.staging.bufferAt(idx)
	w.mu.Unlock()

	if err := writeToHostVisible(stageBuf, data, 0); err != nil {
		w.mu.Lock()
		w.staging.release(idx)
		w.mu.Unlock()
		return TransferToken{}, err
	}

	cmd, err := w.allocCmd(w.graphicsPool)
	if err != nil {
		return TransferToken{}, err
	}
	if err := beginOneShot(w.eng.ctx.Device, cmd); err != nil {
		return TransferToken{}, err
	}

	extent := dst.Extent()
	mipExtent := vk.Extent3D{
		Width:  uint32(max(1, extent.Width>>uint(mipLevel))),
		Height: uint32(max(1, extent.Height>>uint(mipLevel))),
		Depth:  uint32(max(1, extent.Depth>>uint(mipLevel))),
	}

	transitionImageLayout(cmd, dst.Handle(), aspect, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, uint32(mipLevel), 1, uint32(baseLayer), uint32(layerCount))

	region := vk.BufferImageCopy{
		BufferOffset: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspect,
			MipLevel:       uint32(mipLevel),
			BaseArrayLayer: uint32(baseLayer),
			LayerCount:     uint32(layerCount),
		},
		ImageExtent: mipExtent,
	}
	vk.CmdCopyBufferToImage(cmd, stageBuf.Handle(), dst.Handle(), vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	if finalLayout != vk.ImageLayoutTransferDstOptimal {
		transitionImageLayout(cmd, dst.Handle(), aspect, vk.ImageLayoutTransferDstOptimal, finalLayout, uint32(mipLevel), 1, uint32(baseLayer), uint32(layerCount))
	}

	if err := endOneShot(cmd); err != nil {
		return TransferToken{}, err
	}

	queue, _ := w.eng.ctx.Queue(gpuctx.Graphics)
	return w.submit(w.graphicsPool, queue, cmd, []int{idx})
}

// CopyBuffer records a buffer-to-buffer copy on this worker's transfer
// queue.
func (w *Worker) CopyBuffer(src, dst *resource.ManagedBuffer, size, srcOffset, dstOffset int64) (TransferToken, error) {
	if srcOffset+size > src.Size() || dstOffset+size > dst.Size() {
		return TransferToken{}, ferrors.New(ferrors.OutOfRange, prefix, "copy range exceeds buffer size")
	}
	cmd, err := w.allocCmd(w.transferPool)
	if err != nil {
		return TransferToken{}, err
	}
	if err := beginOneShot(w.eng.ctx.Device, cmd); err != nil {
		return TransferToken{}, err
	}
	region := vk.BufferCopy{SrcOffset: vk.DeviceSize(srcOffset), DstOffset: vk.DeviceSize(dstOffset), Size: vk.DeviceSize(size)}
	vk.CmdCopyBuffer(cmd, src.Handle(), dst.Handle(), 1, []vk.BufferCopy{region})
	if err := endOneShot(cmd); err != nil {
		return TransferToken{}, err
	}
	queue, _ := w.eng.ctx.Queue(gpuctx.Transfer)
	return w.submit(w.transferPool, queue, cmd, nil)
}

// CopyBufferToImage records a direct buffer-to-image copy without
// staging, for callers that already hold data in a device-visible
// buffer. The caller is responsible for any layout transitions around
// this call.
func (w *Worker) CopyBufferToImage(src *resource.ManagedBuffer, dst *resource.ManagedImage, aspect vk.ImageAspectFlags, mipLevel, baseLayer, layerCount int, layout vk.ImageLayout) (TransferToken, error) {
	cmd, err := w.allocCmd(w.transferPool)
	if err != nil {
		return TransferToken{}, err
	}
	if err := beginOneShot(w.eng.ctx.Device, cmd); err != nil {
		return TransferToken{}, err
	}
	extent := dst.Extent()
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     aspect,
			MipLevel:       uint32(mipLevel),
			BaseArrayLayer: uint32(baseLayer),
			LayerCount:     uint32(layerCount),
		},
		ImageExtent: vk.Extent3D{Width: uint32(extent.Width), Height: uint32(extent.Height), Depth: uint32(max(1, extent.Depth))},
	}
	vk.CmdCopyBufferToImage(cmd, src.Handle(), dst.Handle(), layout, 1, []vk.BufferImageCopy{region})
	if err := endOneShot(cmd); err != nil {
		return TransferToken{}, err
	}
	queue, _ := w.eng.ctx.Queue(gpuctx.Transfer)
	return w.submit(w.transferPool, queue, cmd, nil)
}

// WriteToUniformBuffer writes data into a persistently mapped uniform
// buffer directly, without a queue submission, and returns an
// already-completed token. dst must be host-visible: a GpuOnly buffer is
// rejected with InvalidArgument.
func (w *Worker) WriteToUniformBuffer(dst *resource.ManagedBuffer, data []byte, dstOffset int64) (TransferToken, error) {
	if dst.Mode() == resource.GpuOnly {
		return TransferToken{}, ferrors.New(ferrors.InvalidArgument, prefix, "uniform buffer must be host-visible")
	}
	if err := writeToHostVisible(dst, data, dstOffset); err != nil {
		return TransferToken{}, err
	}
	return completedToken(), nil
}

// TransitionImageLayout submits a one-shot command buffer that
// transitions img's whole subresource range (every mip level and array
// layer) from oldLayout to newLayout. Transitions whose newLayout is a
// graphics-queue layout (color/depth attachment, present) are submitted
// on the graphics queue; every other transition goes through the
// transfer queue.
func (w *Worker) TransitionImageLayout(img *resource.ManagedImage, aspect vk.ImageAspectFlags, oldLayout, newLayout vk.ImageLayout) (TransferToken, error) {
	pool := w.transferPool
	role := gpuctx.Transfer
	switch newLayout {
	case vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutDepthStencilAttachmentOptimal, vk.ImageLayoutPresentSrc:
		pool = w.graphicsPool
		role = gpuctx.Graphics
	}

	cmd, err := w.allocCmd(pool)
	if err != nil {
		return TransferToken{}, err
	}
	if err := beginOneShot(w.eng.ctx.Device, cmd); err != nil {
		return TransferToken{}, err
	}
	transitionImageLayout(cmd, img.Handle(), aspect, oldLayout, newLayout, 0, uint32(img.MipLevels()), 0, uint32(img.Layers()))
	if err := endOneShot(cmd); err != nil {
		return TransferToken{}, err
	}

	queue, ok := w.eng.ctx.Queue(role)
	if !ok {
		queue, _ = w.eng.ctx.Queue(gpuctx.Graphics)
	}
	return w.submit(pool, queue, cmd, nil)
}

// supportsLinearBlit reports whether the physical device advertises
// linear sampled-filter blit support for format in its optimal tiling
// features.
func (w *Worker) supportsLinearBlit(format vk.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(w.eng.ctx.PhysicalDevice, format, &props)
	props.Deref()
	return vk.FormatFeatureFlagBits(props.OptimalTilingFeatures)&vk.FormatFeatureSampledImageFilterLinearBit != 0
}

// GenerateMipmaps blits img's base level down through its remaining mip
// levels, one blit per level transition, finishing with every level in
// finalLayout. It requires the physical device to support linear
// sampled-filter blits for img's format, and fails with UnsupportedFormat
// (leaving img's layout untouched) otherwise.
func (w *Worker) GenerateMipmaps(img *resource.ManagedImage, aspect vk.ImageAspectFlags, finalLayout vk.ImageLayout) (TransferToken, error) {
	if !w.supportsLinearBlit(img.Format()) {
		return TransferToken{}, ferrors.New(ferrors.UnsupportedFormat, prefix, "format does not support linear sampled-filter blits")
	}

	levels := img.MipLevels()
	if levels < 2 {
		return w.TransitionImageLayout(img, aspect, vk.ImageLayoutTransferDstOptimal, finalLayout)
	}

	cmd, err := w.allocCmd(w.graphicsPool)
	if err != nil {
		return TransferToken{}, err
	}
	if err := beginOneShot(w.eng.ctx.Device, cmd); err != nil {
		return TransferToken{}, err
	}

	extent := img.Extent()
	layers := uint32(img.Layers())
	mw, mh := int32(extent.Width), int32(extent.Height)

	for level := 1; level < levels; level++ {
		transitionImageLayout(cmd, img.Handle(), aspect, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, uint32(level-1), 1, 0, layers)

		nw, nh := mw, mh
		if nw > 1 {
			nw /= 2
		}
		if nh > 1 {
			nh /= 2
		}

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: uint32(level - 1), LayerCount: layers},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: uint32(level), LayerCount: layers},
		}
		blit.SrcOffsets[1] = vk.Offset3D{X: mw, Y: mh, Z: 1}
		blit.DstOffsets[1] = vk.Offset3D{X: nw, Y: nh, Z: 1}

		vk.CmdBlitImage(cmd, img.Handle(), vk.ImageLayoutTransferSrcOptimal, img.Handle(), vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{blit}, vk.FilterLinear)

		transitionImageLayout(cmd, img.Handle(), aspect, vk.ImageLayoutTransferSrcOptimal, finalLayout, uint32(level-1), 1, 0, layers)
		mw, mh = nw, nh
	}
	transitionImageLayout(cmd, img.Handle(), aspect, vk.ImageLayoutTransferDstOptimal, finalLayout, uint32(levels-1), 1, 0, layers)

	if err := endOneShot(cmd); err != nil {
		return TransferToken{}, err
	}
	queue, _ := w.eng.ctx.Queue(gpuctx.Graphics)
	return w.submit(w.graphicsPool, queue, cmd, nil)
}
