package rescache

import (
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/Shanyu-Yun/RenderV2/meshgen"
)

func TestVertexDataLength(t *testing.T) {
	mesh := meshgen.DefaultCube()
	data := vertexData(mesh.Vertices)
	require.Len(t, data, len(mesh.Vertices)*int(unsafe.Sizeof(meshgen.Vertex{})))
}

func TestIndexDataLength(t *testing.T) {
	mesh := meshgen.DefaultCube()
	data := indexData(mesh.Indices)
	require.Len(t, data, len(mesh.Indices)*4)
}

func TestVertexDataEmptyIsNil(t *testing.T) {
	require.Nil(t, vertexData(nil))
	require.Nil(t, indexData(nil))
}

func TestParseMeshFileDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	content := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mesh, err := parseMeshFile(path)
	require.NoError(t, err)
	require.Len(t, mesh.Vertices, 3)
}

func TestParseMeshFileRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.xyz")
	require.NoError(t, os.WriteFile(path, []byte("irrelevant"), 0o644))

	_, err := parseMeshFile(path)
	require.Error(t, err)
}
