package shaderrefl

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/require"
)

func schemaWithBinding(count uint32) *DescriptorSetSchema {
	return &DescriptorSetSchema{
		SetIndex: 0,
		Bindings: []DescriptorBindingInfo{
			{Name: "lights", Binding: 0, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: count},
		},
	}
}

func TestWriterTruncatesOverlongArrayToLastEntries(t *testing.T) {
	w := Begin(nil, schemaWithBinding(2), 0)
	infos := []vk.DescriptorBufferInfo{
		{Offset: 0}, {Offset: 1}, {Offset: 2}, {Offset: 3},
	}
	err := w.WriteBuffer("lights", infos)
	require.NoError(t, err)
	got := w.pending[0].buffers
	require.Len(t, got, 2)
	require.EqualValues(t, 2, got[0].Offset)
	require.EqualValues(t, 3, got[1].Offset)
}

func TestWriterRejectsPartialArrayWrite(t *testing.T) {
	w := Begin(nil, schemaWithBinding(4), 0)
	err := w.WriteBuffer("lights", []vk.DescriptorBufferInfo{{Offset: 0}, {Offset: 1}})
	require.Error(t, err)
}

func TestWriterAcceptsFullArrayWrite(t *testing.T) {
	w := Begin(nil, schemaWithBinding(4), 0)
	err := w.WriteBuffer("lights", make([]vk.DescriptorBufferInfo, 4))
	require.NoError(t, err)
}

func TestWriterRejectsUnknownBindingName(t *testing.T) {
	w := Begin(nil, schemaWithBinding(1), 0)
	err := w.WriteBuffer("missing", []vk.DescriptorBufferInfo{{}})
	require.Error(t, err)
}

func TestWriterLatestCallReplacesPriorValue(t *testing.T) {
	w := Begin(nil, schemaWithBinding(1), 0)
	require.NoError(t, w.WriteBuffer("lights", []vk.DescriptorBufferInfo{{Offset: 10}}))
	require.NoError(t, w.WriteBuffer("lights", []vk.DescriptorBufferInfo{{Offset: 20}}))
	require.Len(t, w.pending, 1)
	require.EqualValues(t, 20, w.pending[0].buffers[0].Offset)
}
