package scenegraph

import "github.com/go-gl/mathgl/mgl32"

// LightType selects the kind of light a Light describes.
type LightType uint32

const (
	// PointLightType is an omnidirectional, positional light.
	PointLightType LightType = iota
	// DirectionalLightType is a directionless-position light.
	DirectionalLightType
	// SpotLightType is a directional, positional conical light.
	SpotLightType
)

// MaxLights bounds the number of lights a LightUBO carries; extra lights
// in a scene are silently clamped out by BuildLightUBO.
const MaxLights = 16

// Light describes one light source; which fields are meaningful depends
// on Type.
type Light struct {
	Type      LightType
	Color     mgl32.Vec3
	Intensity float32
	Direction mgl32.Vec3
	Position  mgl32.Vec3
	Range     float32
	InnerCone float32
	OuterCone float32
}

// gpuLight is one packed light entry: position.xyz + range,
// direction.xyz + type, color.rgb + intensity, innerCone, outerCone,
// plus two pad floats to round the entry to 16-byte multiples.
type gpuLight struct {
	PositionRange  mgl32.Vec4
	DirectionType  mgl32.Vec4
	ColorIntensity mgl32.Vec4
	InnerCone      float32
	OuterCone      float32
	pad0           float32
	pad1           float32
}

// LightUBO is the GPU-facing light array: up to MaxLights packed
// entries, an active count, and 12 bytes of trailing pad to keep the
// struct 16-byte aligned.
type LightUBO struct {
	Lights [MaxLights]gpuLight
	Count  uint32
	pad    [3]uint32
}

// BuildLightUBO packs lights into a LightUBO, clamping to MaxLights (any
// lights beyond the first MaxLights are dropped).
func BuildLightUBO(lights []*Light) LightUBO {
	var ubo LightUBO
	n := len(lights)
	if n > MaxLights {
		n = MaxLights
	}
	for i := 0; i < n; i++ {
		l := lights[i]
		ubo.Lights[i] = gpuLight{
			PositionRange:  mgl32.Vec4{l.Position[0], l.Position[1], l.Position[2], l.Range},
			DirectionType:  mgl32.Vec4{l.Direction[0], l.Direction[1], l.Direction[2], float32(l.Type)},
			ColorIntensity: mgl32.Vec4{l.Color[0], l.Color[1], l.Color[2], l.Intensity},
			InnerCone:      l.InnerCone,
			OuterCone:      l.OuterCone,
		}
	}
	ubo.Count = uint32(n)
	return ubo
}

// SceneLights collects the Light component of every LightNode in s, in
// insertion order.
func SceneLights(s *Scene) []*Light {
	nodes := s.Lights()
	out := make([]*Light, 0, len(nodes))
	for _, n := range nodes {
		if n.Light != nil {
			out = append(out, n.Light)
		}
	}
	return out
}
