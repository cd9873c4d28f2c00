package resource

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestBufferUsageFlags(t *testing.T) {
	f := bufferUsageFlags(UsageVertex | UsageTransferDst)
	if f&vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit) == 0 {
		t.Error("expected vertex buffer bit")
	}
	if f&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) == 0 {
		t.Error("expected transfer dst bit")
	}
	if f&vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit) != 0 {
		t.Error("did not expect index buffer bit")
	}
}

func TestImageUsageFlags(t *testing.T) {
	f := imageUsageFlags(UsageColorRT | UsageSampled)
	if f&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) == 0 {
		t.Error("expected color attachment bit")
	}
	if f&vk.ImageUsageFlags(vk.ImageUsageSampledBit) == 0 {
		t.Error("expected sampled bit")
	}
}

func TestInferViewType(t *testing.T) {
	cases := []struct {
		desc ImageDesc
		want vk.ImageViewType
	}{
		{ImageDesc{ArrayLayers: 1}, vk.ImageViewType2d},
		{ImageDesc{ArrayLayers: 4}, vk.ImageViewType2dArray},
		{ImageDesc{ArrayLayers: 6, Cube: true}, vk.ImageViewTypeCube},
		{ImageDesc{ArrayLayers: 12, Cube: true}, vk.ImageViewTypeCubeArray},
		{ImageDesc{Extent: Extent3D{Depth: 4}, ArrayLayers: 1}, vk.ImageViewType3d},
	}
	for _, c := range cases {
		if got := inferViewType(c.desc); got != c.want {
			t.Errorf("inferViewType(%+v) = %v, want %v", c.desc, got, c.want)
		}
	}
}

func TestSampleCountFlag(t *testing.T) {
	if sampleCountFlag(1) != vk.SampleCount1Bit {
		t.Error("expected 1 sample")
	}
	if sampleCountFlag(4) != vk.SampleCount4Bit {
		t.Error("expected 4 samples")
	}
	if sampleCountFlag(3) != vk.SampleCount1Bit {
		t.Error("expected fallback to 1 sample for unsupported count")
	}
}

func TestCreateBufferRejectsZeroSize(t *testing.T) {
	a := &Allocator{}
	if _, err := a.CreateBuffer(0, UsageVertex, GpuOnly, "zero"); err == nil {
		t.Fatal("expected error for zero-sized buffer")
	}
}
