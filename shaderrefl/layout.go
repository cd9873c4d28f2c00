package shaderrefl

import (
	"fmt"
	"sort"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/gpuctx"
)

// DescriptorSetSchema is a cached descriptor set
// layout plus the binding metadata needed to resolve writes by name.
type DescriptorSetSchema struct {
	SetIndex uint32
	Bindings []DescriptorBindingInfo
	Layout   vk.DescriptorSetLayout

	key string
}

// bindingByName returns the binding info for name, or false if no
// binding with that name exists in this schema.
func (s *DescriptorSetSchema) bindingByName(name string) (DescriptorBindingInfo, bool) {
	for _, b := range s.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return DescriptorBindingInfo{}, false
}

// structuralKey builds the identity a set's bindings are cached under:
// (setIndex, sorted sequence of {binding, type, count, stageFlags}).
// Names never participate in identity.
func structuralKey(setIndex uint32, bindings []DescriptorBindingInfo) string {
	key := fmt.Sprintf("%d", setIndex)
	for _, b := range bindings {
		key += fmt.Sprintf("|%d:%d:%d:%d", b.Binding, b.DescriptorType, b.DescriptorCount, b.StageFlags)
	}
	return key
}

type nameKey struct {
	schemaName string
	setIndex   uint32
}

// LayoutCache deduplicates descriptor set layouts by structural identity
// and additionally exposes name-keyed lookups for rendering code that
// refers to schemas by a logical name (e.g. "material", "frame")
// instead of a structural signature.
//
// Grounded on gviegas-neo3's engine/internal/shader/layout.go (the
// per-heap layout struct caching idea), generalized to reflection-driven
// schemas instead of the four fixed heaps that package hard-codes.
type LayoutCache struct {
	ctx *gpuctx.DeviceContext

	mu        sync.Mutex
	byKey     map[string]*DescriptorSetSchema
	byName    map[nameKey]*DescriptorSetSchema
}

// NewLayoutCache creates a layout cache bound to ctx.
func NewLayoutCache(ctx *gpuctx.DeviceContext) (*LayoutCache, error) {
	if ctx == nil {
		return nil, ferrors.New(ferrors.NotInitialized, prefix, "nil device context")
	}
	return &LayoutCache{
		ctx:    ctx,
		byKey:  map[string]*DescriptorSetSchema{},
		byName: map[nameKey]*DescriptorSetSchema{},
	}, nil
}

// GetOrCreate returns the cached schema for (setIndex, bindings),
// creating and caching a new vk.DescriptorSetLayout if this exact
// structural key has not been seen before.
func (c *LayoutCache) GetOrCreate(setIndex uint32, bindings []DescriptorBindingInfo) (*DescriptorSetSchema, error) {
	key := structuralKey(setIndex, bindings)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byKey[key]; ok {
		return existing, nil
	}

	layout, err := c.createLayout(bindings)
	if err != nil {
		return nil, err
	}
	schema := &DescriptorSetSchema{SetIndex: setIndex, Bindings: bindings, Layout: layout, key: key}
	c.byKey[key] = schema
	return schema, nil
}

// RegisterNamed associates schemaName/setIndex with the schema for
// (setIndex, bindings). If that (schemaName, setIndex) pair was already
// registered with a structurally different set of bindings, this fails
// with a schema structure mismatch error; if registered with an
// identical structure, the existing schema is returned unchanged.
func (c *LayoutCache) RegisterNamed(schemaName string, setIndex uint32, bindings []DescriptorBindingInfo) (*DescriptorSetSchema, error) {
	key := structuralKey(setIndex, bindings)
	nk := nameKey{schemaName: schemaName, setIndex: setIndex}

	c.mu.Lock()
	if existing, ok := c.byName[nk]; ok {
		if existing.key != key {
			c.mu.Unlock()
			return nil, ferrors.New(ferrors.IncompatibleSchema, prefix,
				fmt.Sprintf("schema structure mismatch for %q set %d", schemaName, setIndex))
		}
		c.mu.Unlock()
		return existing, nil
	}
	c.mu.Unlock()

	schema, err := c.GetOrCreate(setIndex, bindings)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byName[nk]; ok {
		if existing.key != key {
			return nil, ferrors.New(ferrors.IncompatibleSchema, prefix,
				fmt.Sprintf("schema structure mismatch for %q set %d", schemaName, setIndex))
		}
		return existing, nil
	}
	c.byName[nk] = schema
	return schema, nil
}

// Lookup returns the schema registered under (schemaName, setIndex), if
// any.
func (c *LayoutCache) Lookup(schemaName string, setIndex uint32) (*DescriptorSetSchema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.byName[nameKey{schemaName: schemaName, setIndex: setIndex}]
	return s, ok
}

// SchemaSetIndices returns every set index registered under schemaName,
// sorted ascending.
func (c *LayoutCache) SchemaSetIndices(schemaName string) []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var indices []uint32
	for nk := range c.byName {
		if nk.schemaName == schemaName {
			indices = append(indices, nk.setIndex)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices
}

func (c *LayoutCache) createLayout(bindings []DescriptorBindingInfo) (vk.DescriptorSetLayout, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.DescriptorType,
			DescriptorCount: b.DescriptorCount,
			StageFlags:      b.StageFlags,
		}
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(c.ctx.Device, &info, nil, &layout); res != vk.Success {
		return vk.NullHandle, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("CreateDescriptorSetLayout failed: %v", res))
	}
	return layout, nil
}

// Cleanup destroys every cached vk.DescriptorSetLayout.
func (c *LayoutCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.byKey {
		if s.Layout != vk.NullHandle {
			vk.DestroyDescriptorSetLayout(c.ctx.Device, s.Layout, nil)
			s.Layout = vk.NullHandle
		}
	}
	c.byKey = map[string]*DescriptorSetSchema{}
	c.byName = map[nameKey]*DescriptorSetSchema{}
}
