package meshgen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateCubeHasExpectedCounts(t *testing.T) {
	cube := CreateCube(1, white)
	require.Len(t, cube.Vertices, 24)
	require.Len(t, cube.Indices, 36)
	require.True(t, cube.Valid())
}

func TestCreateCubeExtentsAreHalfSize(t *testing.T) {
	const size = float32(2)
	cube := CreateCube(size, white)

	min, max := cube.Vertices[0].Position, cube.Vertices[0].Position
	for _, v := range cube.Vertices {
		for axis := 0; axis < 3; axis++ {
			if v.Position[axis] < min[axis] {
				min[axis] = v.Position[axis]
			}
			if v.Position[axis] > max[axis] {
				max[axis] = v.Position[axis]
			}
		}
	}

	for axis := 0; axis < 3; axis++ {
		require.InDelta(t, -size/2, min[axis], 1e-6)
		require.InDelta(t, size/2, max[axis], 1e-6)
	}
}

func TestCreateSphereVertexCount(t *testing.T) {
	sphere := CreateSphere(1, 8, 4)
	require.Len(t, sphere.Vertices, (4+1)*(8+1))
}

func TestCreateSphereNormalsAreUnitLength(t *testing.T) {
	sphere := CreateSphere(2, 12, 6)
	for _, v := range sphere.Vertices {
		n := v.Normal.Len()
		require.InDelta(t, 1.0, n, 1e-4)
	}
}

const triangleOBJ = `
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 1.0 1.0 0.0
v 0.0 1.0 0.0
vn 0 0 1
f 1//1 2//1 3//1 4//1
`

func TestParseOBJFanTriangulatesQuad(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(triangleOBJ), "quad")
	require.NoError(t, err)
	require.Len(t, mesh.Indices, 6)
}

func TestParseOBJRejectsEmptyStream(t *testing.T) {
	_, err := ParseOBJ(strings.NewReader(""), "empty")
	require.Error(t, err)
}

const asciiSTL = `solid cube
facet normal 0 0 1
outer loop
vertex 0 0 0
vertex 1 0 0
vertex 1 1 0
endloop
endfacet
endsolid cube
`

func TestParseSTLDetectsASCII(t *testing.T) {
	mesh, err := ParseSTL(strings.NewReader(asciiSTL), "cube")
	require.NoError(t, err)
	require.Len(t, mesh.Vertices, 3)
	require.Len(t, mesh.Indices, 3)
}

func TestParseSTLRejectsShortBinaryBuffer(t *testing.T) {
	_, err := ParseSTL(bytes.NewReader(make([]byte, 10)), "short")
	require.Error(t, err)
}
