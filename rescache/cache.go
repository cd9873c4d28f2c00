package rescache

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/meshgen"
	"github.com/Shanyu-Yun/RenderV2/resource"
	"github.com/Shanyu-Yun/RenderV2/shaderrefl"
	"github.com/Shanyu-Yun/RenderV2/transfer"
)

const (
	// DefaultCubeID is the never-removable id of the built-in unit cube.
	DefaultCubeID = "default_cube"
	// DefaultWhiteID is the never-removable id of the built-in 4x4 white
	// texture.
	DefaultWhiteID = "default_white"
)

// Cache is the central mesh/texture/shader-program resource cache: three
// parallel caches sharing one normalization scheme, primed at
// construction with a default cube mesh and a default white texture that
// can never be unloaded.
type Cache struct {
	Meshes  *MeshCache
	Textures *TextureCache
	Shaders *ShaderCache
}

// New creates a primed Cache. alloc and worker back mesh/texture uploads;
// device creates shader modules; layouts is the shared descriptor-set
// layout cache shader loads register against.
func New(alloc *resource.Allocator, worker *transfer.Worker, device vk.Device, layouts *shaderrefl.LayoutCache) (*Cache, error) {
	meshes := NewMeshCache(alloc, worker)
	textures := NewTextureCache(alloc, worker)
	shaders := NewShaderCache(device, layouts)

	cube, err := meshes.Upload(meshgen.DefaultCube())
	if err != nil {
		return nil, ferrors.Wrap(ferrors.DeviceError, prefix, "uploading default cube", err)
	}
	meshes.cache.put(DefaultCubeID, cube)

	white, err := textures.Upload(DefaultWhiteID, whiteTexture())
	if err != nil {
		return nil, ferrors.Wrap(ferrors.DeviceError, prefix, "uploading default white texture", err)
	}
	textures.cache.put(DefaultWhiteID, white)

	return &Cache{Meshes: meshes, Textures: textures, Shaders: shaders}, nil
}

// LoadMesh loads (or returns the cached) mesh at path. DefaultCubeID is
// always resolvable without touching the filesystem.
func (c *Cache) LoadMesh(path string) (*MeshHandle, error) {
	if path == DefaultCubeID {
		h, _ := c.Meshes.cache.get(DefaultCubeID)
		return h, nil
	}
	return c.Meshes.Load(path)
}

// LoadTexture loads (or returns the cached) texture at path.
// DefaultWhiteID is always resolvable without touching the filesystem.
func (c *Cache) LoadTexture(path string) (*TextureHandle, error) {
	if path == DefaultWhiteID {
		h, _ := c.Textures.cache.get(DefaultWhiteID)
		return h, nil
	}
	return c.Textures.Load(path)
}

// UnloadMesh removes path from the mesh cache. The default cube can never
// be unloaded.
func (c *Cache) UnloadMesh(path string) bool {
	if path == DefaultCubeID {
		return false
	}
	return c.Meshes.Unload(path)
}

// UnloadTexture removes path from the texture cache. The default white
// texture can never be unloaded.
func (c *Cache) UnloadTexture(path string) bool {
	if path == DefaultWhiteID {
		return false
	}
	return c.Textures.Unload(path)
}
