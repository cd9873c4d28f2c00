package frame

import (
	"testing"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/require"

	"github.com/Shanyu-Yun/RenderV2/meshgen"
)

func TestBuildPipelineKeyDistinguishesColorFormats(t *testing.T) {
	a := buildPipelineKey("lit", []vk.Format{vk.FormatR8g8b8a8Unorm}, 0, false)
	b := buildPipelineKey("lit", []vk.Format{vk.FormatR16g16b16a16Sfloat}, 0, false)
	require.NotEqual(t, a, b)
}

func TestBuildPipelineKeyDistinguishesShaderPrefix(t *testing.T) {
	a := buildPipelineKey("lit", []vk.Format{vk.FormatR8g8b8a8Unorm}, 0, false)
	b := buildPipelineKey("unlit", []vk.Format{vk.FormatR8g8b8a8Unorm}, 0, false)
	require.NotEqual(t, a, b)
}

func TestBuildPipelineKeyDistinguishesDepthPresence(t *testing.T) {
	withDepth := buildPipelineKey("lit", []vk.Format{vk.FormatR8g8b8a8Unorm}, vk.FormatD32Sfloat, true)
	withoutDepth := buildPipelineKey("lit", []vk.Format{vk.FormatR8g8b8a8Unorm}, 0, false)
	require.NotEqual(t, withDepth, withoutDepth)
}

func TestBuildPipelineKeyStableForIdenticalInputs(t *testing.T) {
	a := buildPipelineKey("lit", []vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatR16g16b16a16Sfloat}, vk.FormatD32Sfloat, true)
	b := buildPipelineKey("lit", []vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatR16g16b16a16Sfloat}, vk.FormatD32Sfloat, true)
	require.Equal(t, a, b)
}

func TestVertexBindingMatchesVertexStride(t *testing.T) {
	binding := vertexBinding()
	require.Equal(t, uint32(0), binding.Binding)
	require.Equal(t, uint32(unsafe.Sizeof(meshgen.Vertex{})), binding.Stride)
	require.Equal(t, vk.VertexInputRateVertex, binding.InputRate)
}

func TestVertexAttributesMatchFixedLayout(t *testing.T) {
	attrs := vertexAttributes()
	require.Len(t, attrs, 4)

	byLocation := map[uint32]vk.VertexInputAttributeDescription{}
	for _, a := range attrs {
		byLocation[a.Location] = a
	}

	require.Equal(t, vk.FormatR32g32b32a32Sfloat, byLocation[0].Format, "color is loc0")
	require.Equal(t, vk.FormatR32g32b32Sfloat, byLocation[1].Format, "position is loc1")
	require.Equal(t, vk.FormatR32g32b32Sfloat, byLocation[2].Format, "normal is loc2")
	require.Equal(t, vk.FormatR32g32Sfloat, byLocation[3].Format, "texCoord is loc3")

	var v meshgen.Vertex
	require.Equal(t, uint32(unsafe.Offsetof(v.Position)), byLocation[1].Offset)
	require.Equal(t, uint32(unsafe.Offsetof(v.Normal)), byLocation[2].Offset)
	require.Equal(t, uint32(unsafe.Offsetof(v.TexCoord)), byLocation[3].Offset)
	require.Equal(t, uint32(unsafe.Offsetof(v.Color)), byLocation[0].Offset)
}
