package shaderrefl

import (
	"encoding/binary"
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/require"
)

// buildSPIRV assembles a minimal, hand-rolled SPIR-V word stream
// declaring one uniform-buffer variable named "ubo" at
// (set=0, binding=0), enough to exercise ReflectModule without a real
// shader compiler.
func buildSPIRV(t *testing.T) []byte {
	t.Helper()

	const (
		structTypeID uint32 = 10
		ptrTypeID    uint32 = 11
		varID        uint32 = 12
	)

	var words []uint32
	instr := func(opcode uint32, operands ...uint32) {
		words = append(words, (uint32(1+len(operands))<<16)|opcode)
		words = append(words, operands...)
	}

	// OpName %varID "ubo"
	instr(opName, varID, encodeLiteralWord(t, "ubo"))
	// OpDecorate %varID Binding 0
	instr(opDecorate, varID, decorationBinding, 0)
	// OpDecorate %varID DescriptorSet 0
	instr(opDecorate, varID, decorationDescriptorSet, 0)
	// OpTypeStruct %structTypeID
	instr(opTypeStruct, structTypeID)
	// OpTypePointer %ptrTypeID Uniform %structTypeID
	instr(opTypePointer, ptrTypeID, storageClassUniform, structTypeID)
	// OpVariable %ptrTypeID %varID Uniform
	instr(opVariable, ptrTypeID, varID, storageClassUniform)

	header := []uint32{spirvMagic, 0x00010000, 0, varID + 1, 0}
	all := append(header, words...)

	buf := make([]byte, len(all)*4)
	for i, w := range all {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	return buf
}

func encodeLiteralWord(t *testing.T, s string) uint32 {
	t.Helper()
	b := make([]byte, 4)
	copy(b, s) // trailing bytes stay zero, acting as the null terminator
	return binary.LittleEndian.Uint32(b)
}

func TestReflectModuleFindsUniformBinding(t *testing.T) {
	bytecode := buildSPIRV(t)
	refl, err := ReflectModule(bytecode, StageVertex)
	require.NoError(t, err)
	require.Len(t, refl.Sets[0], 1)
	b := refl.Sets[0][0]
	require.Equal(t, "ubo", b.Name)
	require.EqualValues(t, 0, b.Binding)
	require.Equal(t, vk.DescriptorTypeUniformBuffer, b.DescriptorType)
	require.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit), b.StageFlags)
}

func TestReflectModuleRejectsBadMagic(t *testing.T) {
	bytecode := buildSPIRV(t)
	binary.LittleEndian.PutUint32(bytecode[0:], 0)
	_, err := ReflectModule(bytecode, StageVertex)
	require.Error(t, err)
}

func TestReflectModuleRejectsUnalignedLength(t *testing.T) {
	_, err := ReflectModule(make([]byte, 21), StageVertex)
	require.Error(t, err)
}
