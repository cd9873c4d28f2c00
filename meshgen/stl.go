package meshgen

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

// ParseSTL parses an STL stream, auto-detecting binary vs ASCII by its
// first 5 bytes: the literal "solid" marks ASCII, anything else is
// treated as binary.
func ParseSTL(r io.Reader, debugName string) (*MeshData, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, objPrefix, "reading stl stream", err)
	}

	if len(data) >= 5 && string(data[:5]) == "solid" {
		return parseASCIISTL(bytes.NewReader(data), debugName)
	}
	return parseBinarySTL(data, debugName)
}

func parseBinarySTL(data []byte, debugName string) (*MeshData, error) {
	if len(data) < 84 {
		return nil, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "binary stl too short")
	}
	count := binary.LittleEndian.Uint32(data[80:84])
	mesh := &MeshData{DebugName: debugName}
	offset := 84
	for i := uint32(0); i < count; i++ {
		if offset+50 > len(data) {
			return nil, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "binary stl truncated triangle data")
		}
		normal := readVec3F32(data[offset:])
		base := uint32(len(mesh.Vertices))
		for v := 0; v < 3; v++ {
			pos := readVec3F32(data[offset+12+v*12:])
			mesh.Vertices = append(mesh.Vertices, Vertex{Position: pos, Normal: normal, Color: white})
		}
		mesh.Indices = append(mesh.Indices, base, base+1, base+2)
		offset += 50
	}
	if !mesh.Valid() {
		return nil, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "binary stl contains no triangles")
	}
	return mesh, nil
}

func readVec3F32(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func parseASCIISTL(r io.Reader, debugName string) (*MeshData, error) {
	mesh := &MeshData{DebugName: debugName}
	scanner := bufio.NewScanner(r)
	var normal mgl32.Vec3
	var verts []mgl32.Vec3

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "facet":
			if len(fields) >= 5 && fields[1] == "normal" {
				normal = mustVec3(fields[2:5])
			}
			verts = verts[:0]
		case "vertex":
			if len(fields) >= 4 {
				verts = append(verts, mustVec3(fields[1:4]))
			}
		case "endfacet":
			if len(verts) == 3 {
				base := uint32(len(mesh.Vertices))
				for _, v := range verts {
					mesh.Vertices = append(mesh.Vertices, Vertex{Position: v, Normal: normal, Color: white})
				}
				mesh.Indices = append(mesh.Indices, base, base+1, base+2)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, objPrefix, "reading ascii stl", err)
	}
	if !mesh.Valid() {
		return nil, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "ascii stl contains no triangles")
	}
	return mesh, nil
}

func mustVec3(fields []string) mgl32.Vec3 {
	var v mgl32.Vec3
	for i := 0; i < 3 && i < len(fields); i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			continue
		}
		v[i] = float32(f)
	}
	return v
}
