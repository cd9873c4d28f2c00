package scenegraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddNodeAssignsMonotonicIDs(t *testing.T) {
	s := NewScene()
	a := s.AddNode(Renderable, DefaultTransform())
	b := s.AddNode(Renderable, DefaultTransform())
	require.Equal(t, NodeID(1), a.ID)
	require.Equal(t, NodeID(2), b.ID)
}

func TestRemoveNodeDoesNotReuseID(t *testing.T) {
	s := NewScene()
	a := s.AddNode(Renderable, DefaultTransform())
	require.True(t, s.RemoveNode(a.ID))
	b := s.AddNode(Renderable, DefaultTransform())
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, NodeID(2), b.ID)
}

func TestRemoveNodeReportsAbsence(t *testing.T) {
	s := NewScene()
	require.False(t, s.RemoveNode(NodeID(99)))
}

func TestFirstCameraBecomesActive(t *testing.T) {
	s := NewScene()
	require.Nil(t, s.ActiveCamera())
	cam := s.AddNode(CameraNode, DefaultTransform())
	require.Equal(t, cam, s.ActiveCamera())

	second := s.AddNode(CameraNode, DefaultTransform())
	require.Equal(t, cam, s.ActiveCamera())
	require.NotEqual(t, second.ID, s.ActiveCamera().ID)
}

func TestSetActiveCameraRejectsNonCameraNode(t *testing.T) {
	s := NewScene()
	renderable := s.AddNode(Renderable, DefaultTransform())
	require.False(t, s.SetActiveCamera(renderable.ID))
}

func TestSetActiveCameraSwitches(t *testing.T) {
	s := NewScene()
	s.AddNode(CameraNode, DefaultTransform())
	second := s.AddNode(CameraNode, DefaultTransform())
	require.True(t, s.SetActiveCamera(second.ID))
	require.Equal(t, second.ID, s.ActiveCamera().ID)
}

func TestRemovingActiveCameraClearsIt(t *testing.T) {
	s := NewScene()
	cam := s.AddNode(CameraNode, DefaultTransform())
	s.RemoveNode(cam.ID)
	require.Nil(t, s.ActiveCamera())
}

func TestLightsFiltersByType(t *testing.T) {
	s := NewScene()
	s.AddNode(Renderable, DefaultTransform())
	s.AddNode(LightNode, DefaultTransform())
	s.AddNode(LightNode, DefaultTransform())
	require.Len(t, s.Lights(), 2)
}

func TestDefaultTransformMatrixIsIdentity(t *testing.T) {
	m := DefaultTransform().Matrix()
	require.InDelta(t, 1.0, m[0], 1e-6)
	require.InDelta(t, 1.0, m[5], 1e-6)
	require.InDelta(t, 1.0, m[10], 1e-6)
	require.InDelta(t, 1.0, m[15], 1e-6)
}
