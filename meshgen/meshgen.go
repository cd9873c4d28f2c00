// Package meshgen builds MeshData for procedural primitives and parses
// it from .obj/.stl files. Every mesh is fully triangulated: polygons
// with more than three vertices are fanned.
//
// Grounded on gviegas-neo3's gltf package for the "parse into a plain
// data struct, let the caller decide how to upload it" shape, and on
// engine/mesh.go's PrimitiveData for the fixed vertex attribute layout
// this package targets (position/normal/texCoord, plus a per-vertex
// color channel the core's fixed pipeline layout also carries).
package meshgen

import "github.com/go-gl/mathgl/mgl32"

// Vertex is the fixed attribute layout every mesh pipeline in the core
// consumes.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
	Color    mgl32.Vec4
}

// MeshData is triangulated geometry ready for upload.
type MeshData struct {
	DebugName string
	Vertices  []Vertex
	Indices   []uint32
}

// Valid reports whether the mesh has at least one vertex.
func (m *MeshData) Valid() bool { return len(m.Vertices) > 0 }

var white = mgl32.Vec4{1, 1, 1, 1}

// CreateCube builds a 24-vertex, 36-index cube with edge length size
// (extents [-size/2, size/2] on every axis), with correct per-face
// normals and UVs and the given uniform vertex color.
func CreateCube(size float32, color mgl32.Vec4) *MeshData {
	half := size / 2
	faces := []struct {
		normal mgl32.Vec3
		// corners in counter-clockwise order when viewed from outside
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
	}
	uvs := [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	mesh := &MeshData{DebugName: "default_cube"}
	for _, f := range faces {
		base := uint32(len(mesh.Vertices))
		for i, c := range f.corners {
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: c.Mul(half),
				Normal:   f.normal,
				TexCoord: uvs[i],
				Color:    color,
			})
		}
		mesh.Indices = append(mesh.Indices,
			base, base+1, base+2,
			base, base+2, base+3,
		)
	}
	return mesh
}

// DefaultCube returns the engine's built-in 24-vertex, 36-index unit
// cube with a white vertex color, matching the cache's default_cube
// resource.
func DefaultCube() *MeshData { return CreateCube(1, white) }

// CreateSphere builds a UV sphere of the given radius with segs
// longitude divisions and rings latitude divisions. Normals equal the
// normalized position (a unit sphere scaled by r).
func CreateSphere(r float32, segs, rings int) *MeshData {
	if segs < 3 {
		segs = 3
	}
	if rings < 2 {
		rings = 2
	}
	mesh := &MeshData{DebugName: "sphere"}

	for ring := 0; ring <= rings; ring++ {
		v := float32(ring) / float32(rings)
		phi := v * pi
		y := cos(phi)
		sinPhi := sin(phi)
		for seg := 0; seg <= segs; seg++ {
			u := float32(seg) / float32(segs)
			theta := u * 2 * pi
			x := sinPhi * cos(theta)
			z := sinPhi * sin(theta)
			pos := mgl32.Vec3{x, y, z}
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position: pos.Mul(r),
				Normal:   pos,
				TexCoord: mgl32.Vec2{u, v},
				Color:    white,
			})
		}
	}

	stride := segs + 1
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segs; seg++ {
			a := uint32(ring*stride + seg)
			b := a + uint32(stride)
			mesh.Indices = append(mesh.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return mesh
}
