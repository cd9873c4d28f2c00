package frame

import (
	"fmt"
	"strconv"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
	"github.com/Shanyu-Yun/RenderV2/meshgen"
	"github.com/Shanyu-Yun/RenderV2/rescache"
	"github.com/Shanyu-Yun/RenderV2/shaderrefl"
)

// pipelineKey identifies a cached pipeline+layout pair: the shader prefix
// plus the formats of the pass's color outputs and depth output, per the
// documented cache key.
type pipelineKey struct {
	shaderPrefix string
	colorFormats string
	depthFormat  vk.Format
	hasDepth     bool
}

func buildPipelineKey(shaderPrefix string, colorFormats []vk.Format, depthFormat vk.Format, hasDepth bool) pipelineKey {
	s := ""
	for i, f := range colorFormats {
		if i > 0 {
			s += ","
		}
		s += strconv.Itoa(int(f))
	}
	return pipelineKey{shaderPrefix: shaderPrefix, colorFormats: s, depthFormat: depthFormat, hasDepth: hasDepth}
}

// PipelineEntry is a cached graphics pipeline and the layout it was built
// against.
type PipelineEntry struct {
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout
}

// PipelineCache builds and reuses graphics pipelines keyed by shader
// prefix and attachment formats: pipelines and layouts cached under a key
// are reused across frames and passes that share it.
//
// Grounded on driver/core.go's CmdBuffer.SetPipeline vocabulary, adapted
// to dynamic rendering: instead of a classic RenderPass/Framebuf pair the
// pipeline is built against a vk.PipelineRenderingCreateInfo naming the
// color/depth formats directly.
type PipelineCache struct {
	ctx *gpuctx.DeviceContext

	mu      sync.Mutex
	entries map[pipelineKey]*PipelineEntry
}

// NewPipelineCache creates a pipeline cache bound to ctx.
func NewPipelineCache(ctx *gpuctx.DeviceContext) *PipelineCache {
	return &PipelineCache{ctx: ctx, entries: map[pipelineKey]*PipelineEntry{}}
}

// GetOrCreate returns the cached pipeline for pass's shader prefix and
// attachment formats, building a fresh one (and its pipeline layout) from
// prog's reflected descriptor schemas and shader modules if this exact
// key has not been seen before.
func (c *PipelineCache) GetOrCreate(pass *PassDesc, prog *rescache.ShaderProgram) (*PipelineEntry, error) {
	colorFormats := pass.colorFormats()
	depthFormat, hasDepth := pass.depthFormat()
	key := buildPipelineKey(pass.ShaderPrefix, colorFormats, depthFormat, hasDepth)

	c.mu.Lock()
	if existing, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	layout, err := c.buildPipelineLayout(prog)
	if err != nil {
		return nil, err
	}
	pipeline, err := c.buildGraphicsPipeline(prog, layout, colorFormats, depthFormat, hasDepth)
	if err != nil {
		vk.DestroyPipelineLayout(c.ctx.Device, layout, nil)
		return nil, err
	}

	entry := &PipelineEntry{Pipeline: pipeline, Layout: layout}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[key]; ok {
		vk.DestroyPipeline(c.ctx.Device, pipeline, nil)
		vk.DestroyPipelineLayout(c.ctx.Device, layout, nil)
		return existing, nil
	}
	c.entries[key] = entry
	return entry, nil
}

func (c *PipelineCache) buildPipelineLayout(prog *rescache.ShaderProgram) (vk.PipelineLayout, error) {
	maxSet := -1
	for idx := range prog.Sets {
		if int(idx) > maxSet {
			maxSet = int(idx)
		}
	}
	layouts := make([]vk.DescriptorSetLayout, maxSet+1)
	for idx, schema := range prog.Sets {
		layouts[idx] = schema.Layout
	}
	info := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(c.ctx.Device, &info, nil, &layout); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreatePipelineLayout failed: %v", res))
	}
	return layout, nil
}

// vertexBinding and vertexAttributes describe the fixed vertex layout
// every mesh pipeline in the core consumes: one binding at index 0
// strided by sizeof(meshgen.Vertex), position at location 1, normal at
// location 2, texCoord at location 3, color at location 0.
func vertexBinding() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(meshgen.Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func vertexAttributes() []vk.VertexInputAttributeDescription {
	var v meshgen.Vertex
	return []vk.VertexInputAttributeDescription{
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Position))},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(v.Normal))},
		{Location: 3, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: uint32(unsafe.Offsetof(v.TexCoord))},
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: uint32(unsafe.Offsetof(v.Color))},
	}
}

func (c *PipelineCache) buildGraphicsPipeline(prog *rescache.ShaderProgram, layout vk.PipelineLayout, colorFormats []vk.Format, depthFormat vk.Format, hasDepth bool) (vk.Pipeline, error) {
	vertMod, ok := prog.Modules[shaderrefl.StageVertex]
	if !ok {
		return vk.NullHandle, ferrors.New(ferrors.InvalidArgument, prefix, "shader program has no vertex module")
	}
	fragMod, ok := prog.Modules[shaderrefl.StageFragment]
	if !ok {
		return vk.NullHandle, ferrors.New(ferrors.InvalidArgument, prefix, "shader program has no fragment module")
	}

	entryPoint := "main\x00"
	stages := []vk.PipelineShaderStageCreateInfo{
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageVertexBit, Module: vertMod, PName: entryPoint},
		{SType: vk.StructureTypePipelineShaderStageCreateInfo, Stage: vk.ShaderStageFragmentBit, Module: fragMod, PName: entryPoint},
	}

	binding := vertexBinding()
	attrs := vertexAttributes()
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: vk.PrimitiveTopologyTriangleList,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterization := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(vk.CullModeBackBit),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.True,
		DepthWriteEnable: vk.True,
		DepthCompareOp:   vk.CompareOpLess,
	}
	if !hasDepth {
		depthStencil.DepthTestEnable = vk.False
		depthStencil.DepthWriteEnable = vk.False
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(colorFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable: vk.False,
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
				vk.ColorComponentBBit | vk.ColorComponentABit),
		}
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    uint32(len(colorFormats)),
		PColorAttachmentFormats: colorFormats,
	}
	if hasDepth {
		renderingInfo.DepthAttachmentFormat = depthFormat
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafe.Pointer(&renderingInfo),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterization,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(c.ctx.Device, vk.NullHandle, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateGraphicsPipelines failed: %v", res))
	}
	return pipelines[0], nil
}

// Cleanup destroys every cached pipeline and layout.
func (c *PipelineCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		vk.DestroyPipeline(c.ctx.Device, e.Pipeline, nil)
		vk.DestroyPipelineLayout(c.ctx.Device, e.Layout, nil)
	}
	c.entries = map[pipelineKey]*PipelineEntry{}
}
