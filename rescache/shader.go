package rescache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/shaderrefl"
)

// ShaderProgram is a reflected, merged vertex+fragment(+compute) program:
// its per-set descriptor schemas, registered against the layout cache
// under name, plus a created vk.ShaderModule per stage. Pipeline
// construction reads Modules directly rather than re-reading bytecode.
type ShaderProgram struct {
	Name    string
	Sets    map[uint32]*shaderrefl.DescriptorSetSchema
	Modules map[shaderrefl.Stage]vk.ShaderModule

	device vk.Device
}

// Destroy destroys every vk.ShaderModule the program created. Safe to
// call once a program is no longer bound by any pipeline.
func (p *ShaderProgram) Destroy() {
	for _, mod := range p.Modules {
		vk.DestroyShaderModule(p.device, mod, nil)
	}
	p.Modules = nil
}

// ShaderCache loads shader programs from a directory of `<name>.{vert,
// frag,comp}.spv` files, reflects and merges them, creates a
// vk.ShaderModule per stage, and registers their descriptor-set schemas
// against a shared layout cache.
type ShaderCache struct {
	device  vk.Device
	layouts *shaderrefl.LayoutCache
	cache   *entryCache[*ShaderProgram]

	// byName stores programs under their bare name, in addition to the
	// normalized-id key entryCache already maintains: lookups try this
	// map first and fall back to the normalized id.
	mu     sync.Mutex
	byName map[string]*ShaderProgram
}

// NewShaderCache creates a shader cache that creates shader modules
// against device and registers descriptor set layouts against layouts.
func NewShaderCache(device vk.Device, layouts *shaderrefl.LayoutCache) *ShaderCache {
	return &ShaderCache{device: device, layouts: layouts, cache: newEntryCache[*ShaderProgram](), byName: map[string]*ShaderProgram{}}
}

// Load reads `<name>.vert.spv`, `<name>.frag.spv`, and, if includeCompute,
// `<name>.comp.spv` from directory, reflects and merges them, registers
// the merged schemas under name, and stores the result under both the
// normalized directory/name id and the bare name.
func (c *ShaderCache) Load(directory, name string, includeCompute bool) (*ShaderProgram, error) {
	c.mu.Lock()
	if prog, ok := c.byName[name]; ok {
		c.mu.Unlock()
		return prog, nil
	}
	c.mu.Unlock()

	id, err := normalize(filepath.Join(directory, name))
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "normalizing shader path", err)
	}

	return c.cache.loadSync(id, func() (*ShaderProgram, error) {
		prog, err := c.loadProgram(directory, name, includeCompute)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byName[name] = prog
		c.mu.Unlock()
		return prog, nil
	})
}

// Lookup tries the bare name first, falling back to the normalized id of
// directory/name.
func (c *ShaderCache) Lookup(directory, name string) (*ShaderProgram, bool) {
	c.mu.Lock()
	prog, ok := c.byName[name]
	c.mu.Unlock()
	if ok {
		return prog, true
	}
	id, err := normalize(filepath.Join(directory, name))
	if err != nil {
		return nil, false
	}
	return c.cache.get(id)
}

func (c *ShaderCache) loadProgram(directory, name string, includeCompute bool) (*ShaderProgram, error) {
	vertBytes, err := readSPIRV(directory, name, "vert")
	if err != nil {
		return nil, err
	}
	fragBytes, err := readSPIRV(directory, name, "frag")
	if err != nil {
		return nil, err
	}

	bytecode := map[shaderrefl.Stage][]byte{
		shaderrefl.StageVertex:   vertBytes,
		shaderrefl.StageFragment: fragBytes,
	}
	modules := []*shaderrefl.ModuleReflection{}
	vertMod, err := shaderrefl.ReflectModule(vertBytes, shaderrefl.StageVertex)
	if err != nil {
		return nil, err
	}
	modules = append(modules, vertMod)

	fragMod, err := shaderrefl.ReflectModule(fragBytes, shaderrefl.StageFragment)
	if err != nil {
		return nil, err
	}
	modules = append(modules, fragMod)

	if includeCompute {
		compBytes, err := readSPIRV(directory, name, "comp")
		if err != nil {
			return nil, err
		}
		compMod, err := shaderrefl.ReflectModule(compBytes, shaderrefl.StageCompute)
		if err != nil {
			return nil, err
		}
		modules = append(modules, compMod)
		bytecode[shaderrefl.StageCompute] = compBytes
	}

	mergedSets, err := shaderrefl.MergeModules(modules...)
	if err != nil {
		return nil, err
	}

	prog := &ShaderProgram{
		Name:    name,
		Sets:    map[uint32]*shaderrefl.DescriptorSetSchema{},
		Modules: map[shaderrefl.Stage]vk.ShaderModule{},
		device:  c.device,
	}
	for stage, bytes := range bytecode {
		mod, err := createShaderModule(c.device, bytes)
		if err != nil {
			prog.Destroy()
			return nil, err
		}
		prog.Modules[stage] = mod
	}
	for setIndex, bindings := range mergedSets {
		schema, err := c.layouts.RegisterNamed(name, setIndex, bindings)
		if err != nil {
			prog.Destroy()
			return nil, err
		}
		prog.Sets[setIndex] = schema
	}
	return prog, nil
}

// createShaderModule wraps raw SPIR-V bytecode in a vk.ShaderModule.
func createShaderModule(device vk.Device, code []byte) (vk.ShaderModule, error) {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    repackSPIRV(code),
	}
	var mod vk.ShaderModule
	if res := vk.CreateShaderModule(device, &info, nil, &mod); res != vk.Success {
		return vk.NullShaderModule, ferrors.New(ferrors.DeviceError, prefix, fmt.Sprintf("vkCreateShaderModule failed: %d", res))
	}
	return mod, nil
}

// repackSPIRV reinterprets a byte slice as the uint32 words vk.ShaderModuleCreateInfo
// expects; code is pre-validated to be a multiple of 4 bytes by readSPIRV.
func repackSPIRV(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) | uint32(code[i*4+1])<<8 | uint32(code[i*4+2])<<16 | uint32(code[i*4+3])<<24
	}
	return words
}

func readSPIRV(directory, name, stage string) ([]byte, error) {
	path := filepath.Join(directory, fmt.Sprintf("%s.%s.spv", name, stage))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "reading shader bytecode "+path, err)
	}
	if len(data)%4 != 0 {
		return nil, ferrors.New(ferrors.FileSystem, prefix, "shader bytecode "+path+" is not a multiple of 4 bytes")
	}
	return data, nil
}
