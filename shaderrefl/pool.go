package shaderrefl

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
)

// PoolRingConfig sizes the descriptor pools created by a PoolRing.
type PoolRingConfig struct {
	MaxSetsPerPool int
	// PerTypeBudget is the max descriptor count of each vk.DescriptorType
	// a single pool reserves.
	PerTypeBudget int
}

// DefaultPoolRingConfig matches the "generous for a mixed workload"
// sizing: 1024 sets per pool, 1024 descriptors of each type.
func DefaultPoolRingConfig() PoolRingConfig {
	return PoolRingConfig{MaxSetsPerPool: 1024, PerTypeBudget: 1024}
}

var ringDescriptorTypes = []vk.DescriptorType{
	vk.DescriptorTypeUniformBuffer,
	vk.DescriptorTypeStorageBuffer,
	vk.DescriptorTypeCombinedImageSampler,
	vk.DescriptorTypeSampledImage,
	vk.DescriptorTypeSampler,
	vk.DescriptorTypeStorageImage,
}

// PoolRing maintains a ring of descriptor pools: a current pool that
// allocations are drawn from, a free list of emptied pools ready for
// reuse, and a set of in-use pools that ResetPools reclaims in bulk.
//
// Grounded on cogentcore-core vgpu/varset.go's descriptor pool sizing
// constants and engine/internal/shader/desc.go's per-heap descriptor
// count vocabulary, generalized to a reusable ring instead of one pool
// per run.
type PoolRing struct {
	ctx *gpuctx.DeviceContext
	cfg PoolRingConfig

	current vk.DescriptorPool
	inUse   []vk.DescriptorPool
	free    []vk.DescriptorPool
}

// NewPoolRing creates a PoolRing bound to ctx.
func NewPoolRing(ctx *gpuctx.DeviceContext, cfg PoolRingConfig) (*PoolRing, error) {
	if ctx == nil {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "nil device context")
	}
	return &PoolRing{ctx: ctx, cfg: cfg}, nil
}

func (r *PoolRing) createPool() (vk.DescriptorPool, error) {
	sizes := make([]vk.DescriptorPoolSize, len(ringDescriptorTypes))
	for i, t := range ringDescriptorTypes {
		sizes[i] = vk.DescriptorPoolSize{Type: t, DescriptorCount: uint32(r.cfg.PerTypeBudget)}
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       uint32(r.cfg.MaxSetsPerPool),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(r.ctx.Device, &info, nil, &pool); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateDescriptorPool failed: %v", res))
	}
	return pool, nil
}

// Allocate allocates count descriptor sets against schema's layout. On
// exhaustion of the current pool it draws a pool from the free list or
// creates a fresh one, then retries once.
func (r *PoolRing) Allocate(schema *DescriptorSetSchema, count int) ([]vk.DescriptorSet, error) {
	if r.current == vk.NullHandle {
		pool, err := r.acquirePool()
		if err != nil {
			return nil, err
		}
		r.current = pool
	}

	sets, err := r.allocateFrom(r.current, schema, count)
	if err == nil {
		return sets, nil
	}

	pool, aerr := r.acquirePool()
	if aerr != nil {
		return nil, aerr
	}
	r.inUse = append(r.inUse, r.current)
	r.current = pool
	return r.allocateFrom(r.current, schema, count)
}

func (r *PoolRing) acquirePool() (vk.DescriptorPool, error) {
	if n := len(r.free); n > 0 {
		pool := r.free[n-1]
		r.free = r.free[:n-1]
		return pool, nil
	}
	return r.createPool()
}

func (r *PoolRing) allocateFrom(pool vk.DescriptorPool, schema *DescriptorSetSchema, count int) ([]vk.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = schema.Layout
	}
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}
	sets := make([]vk.DescriptorSet, count)
	if res := vk.AllocateDescriptorSets(r.ctx.Device, &info, &sets[0]); res != vk.Success {
		return nil, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("AllocateDescriptorSets failed: %v", res))
	}
	return sets, nil
}

// ResetPools returns the current pool and every in-use pool to the free
// list without destroying them, and resets each pool's allocations.
func (r *PoolRing) ResetPools() {
	all := append(r.inUse, r.current)
	r.inUse = nil
	r.current = vk.NullHandle
	for _, pool := range all {
		if pool == vk.NullHandle {
			continue
		}
		vk.ResetDescriptorPool(r.ctx.Device, pool, 0)
		r.free = append(r.free, pool)
	}
}

// Cleanup destroys every pool this ring has ever created.
func (r *PoolRing) Cleanup() {
	all := append(append(r.inUse, r.free...), r.current)
	r.inUse, r.free = nil, nil
	r.current = vk.NullHandle
	for _, pool := range all {
		if pool != vk.NullHandle {
			vk.DestroyDescriptorPool(r.ctx.Device, pool, nil)
		}
	}
}
