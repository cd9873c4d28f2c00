package frame

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
	"github.com/Shanyu-Yun/RenderV2/material"
	"github.com/Shanyu-Yun/RenderV2/rescache"
	"github.com/Shanyu-Yun/RenderV2/resource"
	"github.com/Shanyu-Yun/RenderV2/scenegraph"
	"github.com/Shanyu-Yun/RenderV2/shaderrefl"
	"github.com/Shanyu-Yun/RenderV2/transfer"
)

// MaterialCache is the optional by-id material registry a draw callback
// may consult; the core itself never populates it.
type MaterialCache map[string]*material.PBRMaterial

// DrawContext carries everything a pass's draw callback needs to bind
// descriptors and issue draw calls. The callback owns writing descriptor
// updates, binding vertex/index buffers, and recording the draw calls
// themselves.
type DrawContext struct {
	Cmd            vk.CommandBuffer
	FrameSlot      int
	PipelineLayout vk.PipelineLayout
	PerFrame       *PerFrameResources
	Scene          *scenegraph.Scene
	Cache          *rescache.Cache
	Materials      MaterialCache
}

// DrawCallback records a pass's draw calls. Registered per pass name.
type DrawCallback func(ctx *DrawContext) error

// Frame orchestrates per-frame command recording across a declared
// PassSequence: it owns the per-frame resource slots, the pipeline
// cache, and the registered draw callbacks, and implements the
// barrier/dynamic-rendering recording loop.
//
// Grounded on gviegas-neo3's engine/renderer.go Renderer type (the
// per-frame-in-flight resource indexing and pass-iteration shape).
type Frame struct {
	ctx     *gpuctx.DeviceContext
	alloc   *resource.Allocator
	worker  *transfer.Worker
	layouts *shaderrefl.LayoutCache
	pool    *shaderrefl.PoolRing
	shaders *rescache.ShaderCache
	pipes   *PipelineCache

	passes         *PassSequence
	framesInFlight int
	perFrame       []*PerFrameResources
	callbacks      map[string]DrawCallback

	depthTransitioned map[string]bool
}

// Config bundles the collaborators and topology a Frame is built from.
type Config struct {
	Ctx            *gpuctx.DeviceContext
	Alloc          *resource.Allocator
	Worker         *transfer.Worker
	Layouts        *shaderrefl.LayoutCache
	Pool           *shaderrefl.PoolRing
	Shaders        *rescache.ShaderCache
	Passes         *PassSequence
	FramesInFlight int
}

// New builds a Frame orchestrator: it allocates per-frame camera/light
// uniform buffers and descriptor sets for the first pass's shader
// prefix (shared by every pass), and a pipeline cache ready to build the default graphics pipeline per
// pass on first use.
func New(cfg Config) (*Frame, error) {
	if cfg.Ctx == nil || cfg.Alloc == nil || cfg.Worker == nil || cfg.Layouts == nil || cfg.Pool == nil || cfg.Shaders == nil {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "nil collaborator in frame.Config")
	}
	if cfg.Passes == nil || len(cfg.Passes.Passes()) == 0 {
		return nil, ferrors.New(ferrors.InvalidArgument, prefix, "pass sequence must not be empty")
	}
	if cfg.FramesInFlight < 1 {
		return nil, ferrors.New(ferrors.InvalidArgument, prefix, "framesInFlight must be >= 1")
	}

	f := &Frame{
		ctx:               cfg.Ctx,
		alloc:             cfg.Alloc,
		worker:            cfg.Worker,
		layouts:           cfg.Layouts,
		pool:              cfg.Pool,
		shaders:           cfg.Shaders,
		pipes:             NewPipelineCache(cfg.Ctx),
		passes:            cfg.Passes,
		framesInFlight:    cfg.FramesInFlight,
		callbacks:         map[string]DrawCallback{},
		depthTransitioned: map[string]bool{},
	}

	// Per-frame resources are built against the first pass's shader
	// prefix: a single frame slot's camera/light buffers and descriptor
	// sets are shared across every pass that reads them, matching the
	// per-frame (not per-pass) indexing the orchestrator exposes.
	prefixName := cfg.Passes.Passes()[0].ShaderPrefix
	for slot := 0; slot < cfg.FramesInFlight; slot++ {
		pf, err := newPerFrameResources(cfg.Alloc, cfg.Layouts, cfg.Pool, prefixName, slot)
		if err != nil {
			f.destroyPerFrame()
			return nil, err
		}
		f.perFrame = append(f.perFrame, pf)
	}

	return f, nil
}

func (f *Frame) destroyPerFrame() {
	for _, pf := range f.perFrame {
		pf.Destroy()
	}
	f.perFrame = nil
}

// RegisterDrawCallback binds cb to the pass named passName. Registering
// under an unknown pass name is an error.
func (f *Frame) RegisterDrawCallback(passName string, cb DrawCallback) error {
	if _, ok := f.passes.ByName(passName); !ok {
		return ferrors.New(ferrors.InvalidArgument, prefix, "unknown pass "+passName)
	}
	f.callbacks[passName] = cb
	return nil
}

// PerFrameResources returns the resource slot for frameIndex mod
// framesInFlight.
func (f *Frame) PerFrameResources(frameIndex int) *PerFrameResources {
	return f.perFrame[frameIndex%f.framesInFlight]
}

// RecordFrame records one frame's command list: it builds and uploads
// the camera/light uniform buffers, then iterates the pass sequence in
// declared order, issuing attachment barriers, dynamic rendering, and
// each pass's registered draw callback.
//
// cmd must already be in the recording state (vkBeginCommandBuffer
// already called by the caller); RecordFrame does not begin or end the
// command buffer itself.
func (f *Frame) RecordFrame(cmd vk.CommandBuffer, frameIndex int, scene *scenegraph.Scene, cache *rescache.Cache, materials MaterialCache) error {
	slot := frameIndex % f.framesInFlight
	pf := f.perFrame[slot]

	var cam *scenegraph.Camera
	if camNode := scene.ActiveCamera(); camNode != nil {
		cam = camNode.Camera
	}
	camUBO := scenegraph.BuildCameraUBO(cam)
	lightUBO := scenegraph.BuildLightUBO(scenegraph.SceneLights(scene))

	camToken, err := f.worker.UploadToBuffer(pf.CameraBuffer, structBytes(&camUBO), 0)
	if err != nil {
		return ferrors.Wrap(ferrors.DeviceError, prefix, "uploading camera UBO", err)
	}
	lightToken, err := f.worker.UploadToBuffer(pf.LightBuffer, structBytes(&lightUBO), 0)
	if err != nil {
		return ferrors.Wrap(ferrors.DeviceError, prefix, "uploading light UBO", err)
	}
	if err := camToken.Wait(0); err != nil {
		return ferrors.Wrap(ferrors.DeviceError, prefix, "waiting on camera UBO upload", err)
	}
	camToken.Release()
	if err := lightToken.Wait(0); err != nil {
		return ferrors.Wrap(ferrors.DeviceError, prefix, "waiting on light UBO upload", err)
	}
	lightToken.Release()

	for _, pass := range f.passes.Passes() {
		if err := f.recordPass(cmd, pass, slot, pf, scene, cache, materials); err != nil {
			return err
		}
	}
	return nil
}

func (f *Frame) recordPass(cmd vk.CommandBuffer, pass *PassDesc, slot int, pf *PerFrameResources, scene *scenegraph.Scene, cache *rescache.Cache, materials MaterialCache) error {
	prog, ok := f.shaders.Lookup("", pass.ShaderPrefix)
	if !ok {
		return ferrors.New(ferrors.NotFound, prefix, "no shader program registered under "+pass.ShaderPrefix)
	}
	entry, err := f.pipes.GetOrCreate(pass, prog)
	if err != nil {
		return err
	}

	extent := pass.RenderExtent
	if extent.Width == 0 && extent.Height == 0 {
		extent = f.ctx.CurrentExtent()
	}

	colorAttachments := make([]vk.RenderingAttachmentInfo, len(pass.Resources.ColorOutputs))
	for i, a := range pass.Resources.ColorOutputs {
		view, isSwapchain, err := f.resolveColorView(a, slot, cache)
		if err != nil {
			return err
		}
		if isSwapchain {
			f.swapchainBarrier(cmd, slot, vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal)
		}
		colorAttachments[i] = vk.RenderingAttachmentInfo{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      a.LoadOp,
			StoreOp:     a.StoreOp,
			ClearValue:  a.ClearValue,
		}
	}

	renderingInfo := vk.RenderingInfo{
		SType: vk.StructureTypeRenderingInfo,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		LayerCount:          1,
		ColorAttachmentCount: uint32(len(colorAttachments)),
		PColorAttachments:    colorAttachments,
	}

	if depth := pass.Resources.DepthStencilOutput; depth != nil {
		tex, err := cache.LoadTexture(depth.ResourceName)
		if err != nil {
			return err
		}
		view := tex.Image.View()
		if !f.depthTransitioned[depth.ResourceName] {
			tok, err := f.worker.TransitionImageLayout(tex.Image, vk.ImageAspectFlags(vk.ImageAspectDepthBit), vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
			if err != nil {
				return ferrors.Wrap(ferrors.DeviceError, prefix, "transitioning depth attachment "+depth.ResourceName, err)
			}
			if err := tok.Wait(0); err != nil {
				return ferrors.Wrap(ferrors.DeviceError, prefix, "waiting on depth attachment transition", err)
			}
			tok.Release()
			f.depthTransitioned[depth.ResourceName] = true
		}
		depthAttachment := vk.RenderingAttachmentInfo{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   view,
			ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			LoadOp:      depth.LoadOp,
			StoreOp:     depth.StoreOp,
			ClearValue:  depth.ClearValue,
		}
		renderingInfo.PDepthAttachment = &depthAttachment
	}

	vk.CmdBeginRendering(cmd, &renderingInfo)

	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width: float32(extent.Width), Height: float32(extent.Height),
		MinDepth: 0, MaxDepth: 1,
	}
	scissor := vk.Rect2D{Offset: vk.Offset2D{X: 0, Y: 0}, Extent: extent}
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{scissor})

	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, entry.Pipeline)

	if cb, ok := f.callbacks[pass.Name]; ok {
		dctx := &DrawContext{
			Cmd:            cmd,
			FrameSlot:      slot,
			PipelineLayout: entry.Layout,
			PerFrame:       pf,
			Scene:          scene,
			Cache:          cache,
			Materials:      materials,
		}
		if err := cb(dctx); err != nil {
			vk.CmdEndRendering(cmd)
			return ferrors.Wrap(ferrors.DeviceError, prefix, fmt.Sprintf("draw callback for pass %q", pass.Name), err)
		}
	}

	vk.CmdEndRendering(cmd)

	for _, a := range pass.Resources.ColorOutputs {
		if a.ResourceName == SwapchainAttachment {
			f.swapchainBarrier(cmd, slot, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc)
		}
	}
	return nil
}

// swapchainBarrier issues the explicit layout transition around the
// swapchain image used by the current frame slot.
func (f *Frame) swapchainBarrier(cmd vk.CommandBuffer, slot int, oldLayout, newLayout vk.ImageLayout) {
	img := f.ctx.SwapchainImage(slot)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	switch newLayout {
	case vk.ImageLayoutColorAttachmentOptimal:
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	case vk.ImageLayoutPresentSrc:
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessColorAttachmentWriteBit)
		vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit), vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	}
}

// resolveColorView resolves a as a swapchain-relative view (reporting
// isSwapchain) or a resource-cache texture view.
func (f *Frame) resolveColorView(a Attachment, slot int, cache *rescache.Cache) (view vk.ImageView, isSwapchain bool, err error) {
	if a.ResourceName == SwapchainAttachment {
		return f.ctx.SwapchainImageView(slot), true, nil
	}
	tex, err := cache.LoadTexture(a.ResourceName)
	if err != nil {
		return vk.NullHandle, false, err
	}
	return tex.Image.View(), false, nil
}

// OnResize waits for the device to go idle, lets the caller recreate the
// swapchain (recreate is expected to call gpuctx.DeviceContext.Recreate
// before returning), and rebuilds cached pipelines if the swapchain
// format changed.
func (f *Frame) OnResize(recreate func() error) error {
	if res := vk.DeviceWaitIdle(f.ctx.Device); res != vk.Success {
		return ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("DeviceWaitIdle failed: %v", res))
	}
	prevFormat := f.ctx.SwapchainFormat
	if err := recreate(); err != nil {
		return ferrors.Wrap(ferrors.DeviceError, prefix, "recreating swapchain", err)
	}
	if f.ctx.SwapchainFormat != prevFormat {
		f.pipes.Cleanup()
	}
	return nil
}

// Destroy releases per-frame resources and every cached pipeline.
func (f *Frame) Destroy() {
	f.destroyPerFrame()
	f.pipes.Cleanup()
}
