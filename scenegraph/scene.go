// Package scenegraph implements the flat scene graph: nodes identified by
// monotonically assigned ids, optional camera/light/renderable
// components, and the GPU-facing camera/light uniform buffer builders.
//
// Grounded on gviegas-neo3's node/scene packages for the id-over-pointer
// addressing style, generalized from their parent/child tree into the
// flat node list this model specifies; math throughout uses
// github.com/go-gl/mathgl, the pack's own camera/transform math library
// (Gekko3D-gekko's voxelrt/rt/core).
package scenegraph

import "github.com/go-gl/mathgl/mgl32"

// NodeID identifies a SceneNode within a Scene. Zero is never a valid id.
type NodeID uint32

// NodeType classifies the optional component a SceneNode carries.
type NodeType int

const (
	// Renderable carries no camera/light component.
	Renderable NodeType = iota
	// CameraNode carries a Camera component.
	CameraNode
	// LightNode carries a Light component.
	LightNode
)

// Transform is a node's local position/rotation/scale.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// DefaultTransform returns the identity transform: zero position,
// identity rotation, unit scale.
func DefaultTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}, Rotation: mgl32.QuatIdent()}
}

// Matrix composes the transform into a world matrix: scale, then
// rotate, then translate.
func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
}

// SceneNode is one entry in a Scene: a stable id, a transform, and at
// most one of Camera/Light populated (selected by Type).
type SceneNode struct {
	ID        NodeID
	Type      NodeType
	Transform Transform
	Camera    *Camera
	Light     *Light
}

// Scene is a flat, ordered collection of nodes with a monotonically
// increasing id counter (ids are never reused) and an active-camera id
// (0 means none; the first camera added becomes active automatically).
type Scene struct {
	nodes        []*SceneNode
	byID         map[NodeID]*SceneNode
	nextID       NodeID
	activeCamera NodeID
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{byID: map[NodeID]*SceneNode{}, nextID: 1}
}

// AddNode inserts a new node with the given type and transform, returning
// its assigned id. If typ is CameraNode and no active camera is set yet,
// the new node becomes active.
func (s *Scene) AddNode(typ NodeType, transform Transform) *SceneNode {
	n := &SceneNode{ID: s.nextID, Type: typ, Transform: transform}
	s.nextID++
	s.nodes = append(s.nodes, n)
	s.byID[n.ID] = n
	if typ == CameraNode && s.activeCamera == 0 {
		s.activeCamera = n.ID
	}
	return n
}

// RemoveNode removes the node with the given id, reporting whether one
// was present. Removing the active camera clears the active-camera id;
// it is not reassigned automatically.
func (s *Scene) RemoveNode(id NodeID) bool {
	n, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, v := range s.nodes {
		if v == n {
			s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)
			break
		}
	}
	if s.activeCamera == id {
		s.activeCamera = 0
	}
	return true
}

// Node returns the node with the given id, or nil if absent.
func (s *Scene) Node(id NodeID) *SceneNode { return s.byID[id] }

// Nodes returns the scene's nodes in insertion order. The returned slice
// must not be mutated.
func (s *Scene) Nodes() []*SceneNode { return s.nodes }

// ActiveCamera returns the node carrying the active camera, or nil if
// none is set.
func (s *Scene) ActiveCamera() *SceneNode {
	if s.activeCamera == 0 {
		return nil
	}
	return s.byID[s.activeCamera]
}

// SetActiveCamera sets the active camera to id, which must refer to a
// CameraNode already in the scene; reports whether the assignment took
// effect.
func (s *Scene) SetActiveCamera(id NodeID) bool {
	n, ok := s.byID[id]
	if !ok || n.Type != CameraNode {
		return false
	}
	s.activeCamera = id
	return true
}

// Lights returns every LightNode in the scene, in insertion order.
func (s *Scene) Lights() []*SceneNode {
	var out []*SceneNode
	for _, n := range s.nodes {
		if n.Type == LightNode {
			out = append(out, n)
		}
	}
	return out
}
