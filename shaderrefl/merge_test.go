package shaderrefl

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/require"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

func binding(name string, b uint32, t vk.DescriptorType, count uint32, stages vk.ShaderStageFlagBits) DescriptorBindingInfo {
	return DescriptorBindingInfo{Name: name, Binding: b, DescriptorType: t, DescriptorCount: count, StageFlags: vk.ShaderStageFlags(stages)}
}

func TestMergeModulesCombinesStageFlags(t *testing.T) {
	vert := &ModuleReflection{Stage: StageVertex, Sets: map[uint32][]DescriptorBindingInfo{
		0: {binding("camera", 0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageVertexBit)},
	}}
	frag := &ModuleReflection{Stage: StageFragment, Sets: map[uint32][]DescriptorBindingInfo{
		0: {binding("camera", 0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageFragmentBit)},
	}}

	merged, err := MergeModules(vert, frag)
	require.NoError(t, err)
	require.Len(t, merged[0], 1)
	got := merged[0][0]
	require.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit), got.StageFlags)
}

func TestMergeModulesAppendsUnmatchedBindings(t *testing.T) {
	vert := &ModuleReflection{Stage: StageVertex, Sets: map[uint32][]DescriptorBindingInfo{
		0: {binding("camera", 0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageVertexBit)},
	}}
	frag := &ModuleReflection{Stage: StageFragment, Sets: map[uint32][]DescriptorBindingInfo{
		0: {binding("albedo", 1, vk.DescriptorTypeCombinedImageSampler, 1, vk.ShaderStageFragmentBit)},
	}}

	merged, err := MergeModules(vert, frag)
	require.NoError(t, err)
	require.Len(t, merged[0], 2)
	require.Equal(t, uint32(0), merged[0][0].Binding)
	require.Equal(t, uint32(1), merged[0][1].Binding)
}

func TestMergeModulesRejectsDescriptorCountMismatch(t *testing.T) {
	vert := &ModuleReflection{Stage: StageVertex, Sets: map[uint32][]DescriptorBindingInfo{
		0: {binding("lights", 0, vk.DescriptorTypeUniformBuffer, 4, vk.ShaderStageVertexBit)},
	}}
	frag := &ModuleReflection{Stage: StageFragment, Sets: map[uint32][]DescriptorBindingInfo{
		0: {binding("lights", 0, vk.DescriptorTypeUniformBuffer, 8, vk.ShaderStageFragmentBit)},
	}}

	_, err := MergeModules(vert, frag)
	require.Error(t, err)
	kind, ok := ferrors.KindOf(err)
	require.True(t, ok)
	require.Equal(t, ferrors.IncompatibleSchema, kind)
}

func TestStructuralKeyIgnoresNames(t *testing.T) {
	a := []DescriptorBindingInfo{binding("foo", 0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageVertexBit)}
	b := []DescriptorBindingInfo{binding("bar", 0, vk.DescriptorTypeUniformBuffer, 1, vk.ShaderStageVertexBit)}
	require.Equal(t, structuralKey(0, a), structuralKey(0, b))
}
