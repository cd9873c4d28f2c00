package meshgen

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
)

const objPrefix = "meshgen: "

// objIndex is a single v[/vt][/vn] face reference, 1-based as written in
// the file, 0 meaning absent.
type objIndex struct {
	v, vt, vn int
}

// ParseOBJ parses a Wavefront .obj stream into triangulated MeshData.
// Polygons with more than three vertices are fanned around their first
// vertex. Only v/vn/vt/f records are interpreted; anything else is
// ignored.
func ParseOBJ(r io.Reader, debugName string) (*MeshData, error) {
	var positions []mgl32.Vec3
	var normals []mgl32.Vec3
	var texCoords []mgl32.Vec2
	var faces [][]objIndex

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, err
			}
			positions = append(positions, v)
		case "vn":
			v, err := parseVec3(fields[1:])
			if err != nil {
				return nil, err
			}
			normals = append(normals, v)
		case "vt":
			v, err := parseVec2(fields[1:])
			if err != nil {
				return nil, err
			}
			texCoords = append(texCoords, v)
		case "f":
			face := make([]objIndex, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				idx, err := parseFaceIndex(tok)
				if err != nil {
					return nil, err
				}
				face = append(face, idx)
			}
			if len(face) < 3 {
				return nil, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "face with fewer than 3 vertices")
			}
			faces = append(faces, face)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, objPrefix, "reading obj stream", err)
	}

	mesh := &MeshData{DebugName: debugName}
	resolve := func(idx objIndex) (Vertex, error) {
		v, err := at(positions, idx.v, objPrefix, "vertex")
		if err != nil {
			return Vertex{}, err
		}
		vert := Vertex{Position: v, Color: white}
		if idx.vn != 0 {
			n, err := at(normals, idx.vn, objPrefix, "normal")
			if err != nil {
				return Vertex{}, err
			}
			vert.Normal = n
		}
		if idx.vt != 0 {
			uv, err := at(texCoords, idx.vt, objPrefix, "texCoord")
			if err != nil {
				return Vertex{}, err
			}
			vert.TexCoord = uv
		}
		return vert, nil
	}

	for _, face := range faces {
		// Fan triangulation: (0,1,2), (0,2,3), ...
		first, err := resolve(face[0])
		if err != nil {
			return nil, err
		}
		firstIdx := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, first)

		prev, err := resolve(face[1])
		if err != nil {
			return nil, err
		}
		prevIdx := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices, prev)

		for i := 2; i < len(face); i++ {
			cur, err := resolve(face[i])
			if err != nil {
				return nil, err
			}
			curIdx := uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, cur)
			mesh.Indices = append(mesh.Indices, firstIdx, prevIdx, curIdx)
			prevIdx = curIdx
		}
	}

	if !mesh.Valid() {
		return nil, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "obj stream contains no geometry")
	}
	return mesh, nil
}

func parseVec3(fields []string) (mgl32.Vec3, error) {
	if len(fields) < 3 {
		return mgl32.Vec3{}, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "expected 3 components")
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return mgl32.Vec3{}, ferrors.Wrap(ferrors.UnsupportedFormat, objPrefix, "parsing float", err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseVec2(fields []string) (mgl32.Vec2, error) {
	if len(fields) < 2 {
		return mgl32.Vec2{}, ferrors.New(ferrors.UnsupportedFormat, objPrefix, "expected 2 components")
	}
	var v mgl32.Vec2
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return mgl32.Vec2{}, ferrors.Wrap(ferrors.UnsupportedFormat, objPrefix, "parsing float", err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

// parseFaceIndex parses one v[/vt][/vn] token. A missing vt between two
// slashes ("v//vn") is allowed.
func parseFaceIndex(tok string) (objIndex, error) {
	parts := strings.Split(tok, "/")
	idx := objIndex{}
	var err error
	if idx.v, err = strconv.Atoi(parts[0]); err != nil {
		return objIndex{}, ferrors.Wrap(ferrors.UnsupportedFormat, objPrefix, "parsing face index", err)
	}
	if len(parts) > 1 && parts[1] != "" {
		if idx.vt, err = strconv.Atoi(parts[1]); err != nil {
			return objIndex{}, ferrors.Wrap(ferrors.UnsupportedFormat, objPrefix, "parsing face texCoord index", err)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if idx.vn, err = strconv.Atoi(parts[2]); err != nil {
			return objIndex{}, ferrors.Wrap(ferrors.UnsupportedFormat, objPrefix, "parsing face normal index", err)
		}
	}
	return idx, nil
}

// at resolves a 1-based (possibly negative, relative-to-end) obj index
// into a slice element.
func at[T any](s []T, i int, prefix, kind string) (T, error) {
	var zero T
	n := len(s)
	switch {
	case i > 0 && i <= n:
		return s[i-1], nil
	case i < 0 && -i <= n:
		return s[n+i], nil
	default:
		return zero, ferrors.New(ferrors.OutOfRange, prefix, fmt.Sprintf("%s index %d out of range", kind, i))
	}
}
