package scenegraph

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestBuildLightUBOCountsLights(t *testing.T) {
	lights := []*Light{
		{Type: PointLightType, Color: mgl32.Vec3{1, 0, 0}, Intensity: 2},
		{Type: DirectionalLightType, Color: mgl32.Vec3{0, 1, 0}, Intensity: 1},
	}
	ubo := BuildLightUBO(lights)
	require.Equal(t, uint32(2), ubo.Count)
	require.Equal(t, float32(2), ubo.Lights[0].ColorIntensity[3])
}

func TestBuildLightUBOClampsToMax(t *testing.T) {
	lights := make([]*Light, MaxLights+5)
	for i := range lights {
		lights[i] = &Light{Type: PointLightType}
	}
	ubo := BuildLightUBO(lights)
	require.Equal(t, uint32(MaxLights), ubo.Count)
}

func TestSceneLightsCollectsOnlyLightComponents(t *testing.T) {
	s := NewScene()
	n := s.AddNode(LightNode, DefaultTransform())
	n.Light = &Light{Type: PointLightType}
	s.AddNode(LightNode, DefaultTransform()) // Light left nil: should be skipped.

	lights := SceneLights(s)
	require.Len(t, lights, 1)
}
