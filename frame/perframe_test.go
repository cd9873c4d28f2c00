package frame

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/Shanyu-Yun/RenderV2/scenegraph"
)

func TestStructBytesLengthMatchesSizeof(t *testing.T) {
	ubo := scenegraph.BuildCameraUBO(nil)
	b := structBytes(&ubo)
	require.Len(t, b, int(unsafe.Sizeof(ubo)))
}

func TestStructBytesReflectsFieldValues(t *testing.T) {
	ubo := scenegraph.BuildLightUBO(nil)
	ubo.Count = 7
	b := structBytes(&ubo)

	// Count sits at a fixed, non-zero offset after the Lights array; a
	// round trip through the byte slice must observe the field the Go
	// struct sees.
	var roundTrip scenegraph.LightUBO
	copy(structBytes(&roundTrip), b)
	require.Equal(t, uint32(7), roundTrip.Count)
}
