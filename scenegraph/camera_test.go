package scenegraph

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestBuildCameraUBONilYieldsIdentity(t *testing.T) {
	ubo := BuildCameraUBO(nil)
	require.Equal(t, mgl32.Ident4(), ubo.View)
	require.Equal(t, mgl32.Ident4(), ubo.Projection)
}

func TestBuildCameraUBOPopulatesViewPos(t *testing.T) {
	cam := DefaultCamera(16.0 / 9.0)
	ubo := BuildCameraUBO(&cam)
	require.Equal(t, cam.Position[0], ubo.ViewPos[0])
	require.Equal(t, cam.Position[1], ubo.ViewPos[1])
	require.Equal(t, cam.Position[2], ubo.ViewPos[2])
	require.Equal(t, float32(1), ubo.ViewPos[3])
}

func TestCameraViewLooksAtTarget(t *testing.T) {
	cam := DefaultCamera(1.0)
	view := cam.View()
	// The target, transformed by the view matrix, lands on the -Z axis.
	transformed := view.Mul4x1(mgl32.Vec4{cam.Target[0], cam.Target[1], cam.Target[2], 1})
	require.InDelta(t, 0, transformed[0], 1e-4)
	require.InDelta(t, 0, transformed[1], 1e-4)
	require.Less(t, transformed[2], float32(0))
}
