package frame

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/resource"
	"github.com/Shanyu-Yun/RenderV2/scenegraph"
	"github.com/Shanyu-Yun/RenderV2/shaderrefl"
)

// PerFrameResources is one in-flight frame's GPU-local camera/light
// uniform buffers plus the descriptor sets bound to them, matched 1:1 by
// set index to the schemas registered under a pass's shader prefix.
type PerFrameResources struct {
	CameraBuffer *resource.ManagedBuffer
	LightBuffer  *resource.ManagedBuffer
	Schemas      map[uint32]*shaderrefl.DescriptorSetSchema
	Sets         map[uint32]vk.DescriptorSet
}

// Destroy releases the per-frame uniform buffers. Descriptor sets are
// owned by the pool ring they were allocated from and are not released
// individually.
func (r *PerFrameResources) Destroy() {
	if r == nil {
		return
	}
	r.CameraBuffer.Destroy()
	r.LightBuffer.Destroy()
}

func newPerFrameResources(alloc *resource.Allocator, layouts *shaderrefl.LayoutCache, pool *shaderrefl.PoolRing, shaderPrefix string, slot int) (*PerFrameResources, error) {
	camSize := int64(unsafe.Sizeof(scenegraph.CameraUBO{}))
	lightSize := int64(unsafe.Sizeof(scenegraph.LightUBO{}))

	camBuf, err := alloc.CreateBuffer(camSize, resource.UsageUniform|resource.UsageTransferDst, resource.GpuOnly, "frame.camera")
	if err != nil {
		return nil, err
	}
	lightBuf, err := alloc.CreateBuffer(lightSize, resource.UsageUniform|resource.UsageTransferDst, resource.GpuOnly, "frame.light")
	if err != nil {
		camBuf.Destroy()
		return nil, err
	}

	indices := layouts.SchemaSetIndices(shaderPrefix)
	if len(indices) == 0 {
		camBuf.Destroy()
		lightBuf.Destroy()
		return nil, ferrors.New(ferrors.NotFound, prefix, "no descriptor schemas registered under shader prefix "+shaderPrefix)
	}

	schemas := map[uint32]*shaderrefl.DescriptorSetSchema{}
	sets := map[uint32]vk.DescriptorSet{}
	for _, idx := range indices {
		schema, ok := layouts.Lookup(shaderPrefix, idx)
		if !ok {
			camBuf.Destroy()
			lightBuf.Destroy()
			return nil, ferrors.New(ferrors.NotFound, prefix, "schema vanished for set during allocation")
		}
		allocated, err := pool.Allocate(schema, 1)
		if err != nil {
			camBuf.Destroy()
			lightBuf.Destroy()
			return nil, err
		}
		schemas[idx] = schema
		sets[idx] = allocated[0]
	}

	return &PerFrameResources{CameraBuffer: camBuf, LightBuffer: lightBuf, Schemas: schemas, Sets: sets}, nil
}

// structBytes reinterprets a pointer to a fixed-size struct as its raw
// byte representation, for uploading GPU-layout structs (CameraUBO,
// LightUBO) without a manual field-by-field pack step.
func structBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}
