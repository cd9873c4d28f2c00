package frame

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/require"
)

func TestPassSequenceRejectsDuplicateNames(t *testing.T) {
	seq := NewPassSequence()
	require.NoError(t, seq.Add(PassDesc{Name: "opaque", ShaderPrefix: "lit"}))
	err := seq.Add(PassDesc{Name: "opaque", ShaderPrefix: "unlit"})
	require.Error(t, err)
}

func TestPassSequenceRejectsEmptyName(t *testing.T) {
	seq := NewPassSequence()
	require.Error(t, seq.Add(PassDesc{ShaderPrefix: "lit"}))
}

func TestPassSequencePreservesDeclaredOrder(t *testing.T) {
	seq := NewPassSequence()
	require.NoError(t, seq.Add(PassDesc{Name: "shadow", ShaderPrefix: "depth"}))
	require.NoError(t, seq.Add(PassDesc{Name: "opaque", ShaderPrefix: "lit"}))
	require.NoError(t, seq.Add(PassDesc{Name: "ui", ShaderPrefix: "unlit"}))

	passes := seq.Passes()
	require.Len(t, passes, 3)
	require.Equal(t, "shadow", passes[0].Name)
	require.Equal(t, "opaque", passes[1].Name)
	require.Equal(t, "ui", passes[2].Name)
}

func TestPassSequenceByName(t *testing.T) {
	seq := NewPassSequence()
	require.NoError(t, seq.Add(PassDesc{Name: "opaque", ShaderPrefix: "lit"}))

	found, ok := seq.ByName("opaque")
	require.True(t, ok)
	require.Equal(t, "lit", found.ShaderPrefix)

	_, ok = seq.ByName("missing")
	require.False(t, ok)
}

func TestPassDescColorFormats(t *testing.T) {
	desc := PassDesc{
		Resources: PassResources{
			ColorOutputs: []Attachment{
				{Format: vk.FormatR8g8b8a8Unorm},
				{Format: vk.FormatR16g16b16a16Sfloat},
			},
		},
	}
	require.Equal(t, []vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatR16g16b16a16Sfloat}, desc.colorFormats())
}

func TestPassDescDepthFormat(t *testing.T) {
	noDepth := PassDesc{}
	_, ok := noDepth.depthFormat()
	require.False(t, ok)

	withDepth := PassDesc{Resources: PassResources{DepthStencilOutput: &Attachment{Format: vk.FormatD32Sfloat}}}
	format, ok := withDepth.depthFormat()
	require.True(t, ok)
	require.Equal(t, vk.FormatD32Sfloat, format)
}
