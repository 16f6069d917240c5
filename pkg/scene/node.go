package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Skin binds mesh vertices to joint nodes.
type Skin struct {
	Name                string
	JointIndices        []int
	Joints              []*Node // resolved during assembly
	InverseBindMatrices []math.Mat4
	SkeletonIndex       int // -1 if unset
	Skeleton            *Node
}

// Camera is a projection attached to a node.
type Camera struct {
	Name         string
	Orthographic bool

	YFov        float32
	AspectRatio float32 // 0 means use the viewport
	ZNear       float32
	ZFar        float32 // +Inf for an infinite perspective

	XMag, YMag float32
}

// Projection returns the projection matrix. viewportAspect is used when the
// camera does not fix its own aspect ratio.
func (c *Camera) Projection(viewportAspect float32) math.Mat4 {
	if c.Orthographic {
		return math.Orthographic(c.XMag, c.YMag, c.ZNear, c.ZFar)
	}
	aspect := c.AspectRatio
	if aspect == 0 {
		aspect = viewportAspect
	}
	return math.Perspective(c.YFov, aspect, c.ZNear, c.ZFar)
}

// Infinite reports whether a perspective camera has no far plane.
func (c *Camera) Infinite() bool {
	return !c.Orthographic && math32.IsInf(c.ZFar, 1)
}

// Node is one element of the assembled hierarchy.
type Node struct {
	Name  string
	Index int // document index, -1 for a synthesized root

	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3

	Local math.Mat4
	World math.Mat4

	Mesh    *Mesh
	Skin    *Skin
	Camera  *Camera
	Weights []float32

	// ChildIndices are the validated document indices of the children.
	ChildIndices []int

	Parent   *Node
	Children []*Node
}

// NewNode returns a node with an identity transform.
func NewNode(name string, index int) *Node {
	return &Node{
		Name:     name,
		Index:    index,
		Rotation: math.QuatIdentity(),
		Scale:    math.Vec3{X: 1, Y: 1, Z: 1},
		Local:    math.Identity(),
		World:    math.Identity(),
	}
}

// SetTRS replaces the local transform.
func (n *Node) SetTRS(t math.Vec3, r math.Quat, s math.Vec3) {
	n.Translation, n.Rotation, n.Scale = t, r, s
	n.Local = math.FromTRS(t, r, s)
}

// AddChild attaches c under n.
func (n *Node) AddChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// UpdateWorld recomputes world matrices for n and its descendants.
func (n *Node) UpdateWorld() {
	parent := math.Identity()
	if n.Parent != nil {
		parent = n.Parent.World
	}
	n.updateWorld(parent)
}

func (n *Node) updateWorld(parent math.Mat4) {
	n.World = parent.Mul(n.Local)
	for _, c := range n.Children {
		c.updateWorld(n.World)
	}
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the first node named name in the subtree, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the subtree.
func (n *Node) Count() int {
	count := 0
	n.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
