package rescache

import (
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/meshgen"
	"github.com/Shanyu-Yun/RenderV2/resource"
	"github.com/Shanyu-Yun/RenderV2/transfer"
)

// MeshHandle is an uploaded mesh: a vertex and index buffer pair ready to
// bind and draw.
type MeshHandle struct {
	DebugName   string
	Vertex      *resource.ManagedBuffer
	Index       *resource.ManagedBuffer
	IndexCount  uint32
}

// Destroy releases the underlying vertex and index buffers. Safe to call
// more than once.
func (h *MeshHandle) Destroy() {
	if h == nil {
		return
	}
	h.Vertex.Destroy()
	h.Index.Destroy()
}

// MeshCache loads mesh files (.obj, .stl) and uploads them to GPU-only
// vertex/index buffers, deduplicated by normalized path.
type MeshCache struct {
	alloc  *resource.Allocator
	worker *transfer.Worker
	cache  *entryCache[*MeshHandle]
}

// NewMeshCache creates a mesh cache that uploads through worker, using
// alloc to create the device-local vertex/index buffers.
func NewMeshCache(alloc *resource.Allocator, worker *transfer.Worker) *MeshCache {
	return &MeshCache{alloc: alloc, worker: worker, cache: newEntryCache[*MeshHandle]()}
}

// Upload uploads already-parsed mesh data under data.DebugName, without
// touching the cache's id-keyed map. Used for procedural meshes such as
// the default cube, which the owning Cache primes directly.
func (c *MeshCache) Upload(data *meshgen.MeshData) (*MeshHandle, error) {
	return c.upload(data)
}

// Load loads and uploads the mesh file at path (.obj or .stl, by
// extension), returning the cached handle if already loaded.
func (c *MeshCache) Load(path string) (*MeshHandle, error) {
	id, err := normalize(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "normalizing mesh path", err)
	}
	return c.cache.loadSync(id, func() (*MeshHandle, error) {
		data, err := parseMeshFile(id)
		if err != nil {
			return nil, err
		}
		return c.upload(data)
	})
}

// LoadAsync behaves like Load but returns immediately; the result is
// published on the returned channel once the load (and upload) completes.
// Concurrent loads of the same path are coalesced into one load.
func (c *MeshCache) LoadAsync(path string) <-chan loadResult[*MeshHandle] {
	id, err := normalize(path)
	if err != nil {
		ch := make(chan loadResult[*MeshHandle], 1)
		ch <- loadResult[*MeshHandle]{id: path, err: ferrors.Wrap(ferrors.FileSystem, prefix, "normalizing mesh path", err)}
		close(ch)
		return ch
	}
	return c.cache.loadAsync(id, func() (*MeshHandle, error) {
		data, err := parseMeshFile(id)
		if err != nil {
			return nil, err
		}
		return c.upload(data)
	})
}

// Unload evicts the entry at path, reporting whether one was present. It
// does not destroy the underlying handle: callers that need the GPU
// resource released must Destroy it themselves once no longer in use.
func (c *MeshCache) Unload(path string) bool {
	id, err := normalize(path)
	if err != nil {
		return false
	}
	return c.cache.unload(id)
}

func (c *MeshCache) upload(data *meshgen.MeshData) (*MeshHandle, error) {
	if !data.Valid() {
		return nil, ferrors.New(ferrors.InvalidArgument, prefix, "mesh has no vertices")
	}

	vertexBytes := vertexData(data.Vertices)
	vbuf, err := c.alloc.CreateBuffer(int64(len(vertexBytes)), resource.UsageVertex|resource.UsageTransferDst, resource.GpuOnly, data.DebugName+".vertex")
	if err != nil {
		return nil, err
	}
	tok, err := c.worker.UploadToBuffer(vbuf, vertexBytes, 0)
	if err != nil {
		vbuf.Destroy()
		return nil, err
	}
	if err := tok.Wait(0); err != nil {
		vbuf.Destroy()
		return nil, err
	}
	tok.Release()

	indexBytes := indexData(data.Indices)
	ibuf, err := c.alloc.CreateBuffer(int64(len(indexBytes)), resource.UsageIndex|resource.UsageTransferDst, resource.GpuOnly, data.DebugName+".index")
	if err != nil {
		vbuf.Destroy()
		return nil, err
	}
	tok, err = c.worker.UploadToBuffer(ibuf, indexBytes, 0)
	if err != nil {
		vbuf.Destroy()
		ibuf.Destroy()
		return nil, err
	}
	if err := tok.Wait(0); err != nil {
		vbuf.Destroy()
		ibuf.Destroy()
		return nil, err
	}
	tok.Release()

	return &MeshHandle{DebugName: data.DebugName, Vertex: vbuf, Index: ibuf, IndexCount: uint32(len(data.Indices))}, nil
}

func vertexData(vertices []meshgen.Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	const stride = int(unsafe.Sizeof(meshgen.Vertex{}))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*stride)
}

func indexData(indices []uint32) []byte {
	if len(indices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
}

func parseMeshFile(path string) (*meshgen.MeshData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "opening mesh file "+path, err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return meshgen.ParseOBJ(f, name)
	case ".stl":
		return meshgen.ParseSTL(f, name)
	default:
		return nil, ferrors.New(ferrors.UnsupportedFormat, prefix, "unrecognized mesh extension for "+path)
	}
}
