package scenegraph

import "github.com/go-gl/mathgl/mgl32"

// Camera is a right-handed perspective camera with clip-space depth
// range [0,1].
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3
	FovY     float32
	Aspect   float32
	Near     float32
	Far      float32
}

// DefaultCamera returns a camera at (0,0,5) looking down -Z toward the
// origin with a 60-degree vertical field of view.
func DefaultCamera(aspect float32) Camera {
	return Camera{
		Position: mgl32.Vec3{0, 0, 5},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     mgl32.DegToRad(60),
		Aspect:   aspect,
		Near:     0.1,
		Far:      1000,
	}
}

// View returns the look-at view matrix for the camera.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

// Projection returns the perspective projection matrix for the camera,
// using Vulkan's [0,1] clip-space depth range.
func (c *Camera) Projection() mgl32.Mat4 {
	return vulkanClipAdjust(mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far))
}

// vulkanClipAdjust remaps an OpenGL-convention perspective matrix
// (y up, depth [-1,1]) to Vulkan's depth range [0,1] by replacing the Z
// row with (Z row + W row) / 2. The Y axis is left unchanged.
func vulkanClipAdjust(p mgl32.Mat4) mgl32.Mat4 {
	p[10] = (p[10] + p[11]) / 2
	p[14] = (p[14] + p[15]) / 2
	return p
}

// CameraUBO is the GPU-facing, 16-byte aligned camera uniform layout:
// view matrix, projection matrix, view position (padded to vec4).
type CameraUBO struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	ViewPos    mgl32.Vec4
}

// BuildCameraUBO returns the identity CameraUBO when cam is nil (no
// active camera), otherwise the populated uniform layout.
func BuildCameraUBO(cam *Camera) CameraUBO {
	if cam == nil {
		return CameraUBO{View: mgl32.Ident4(), Projection: mgl32.Ident4()}
	}
	return CameraUBO{
		View:       cam.View(),
		Projection: cam.Projection(),
		ViewPos:    mgl32.Vec4{cam.Position[0], cam.Position[1], cam.Position[2], 1},
	}
}
