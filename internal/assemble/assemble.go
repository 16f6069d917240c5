// Package assemble links decoded nodes into a single-rooted hierarchy and
// collects the final import result.
package assemble

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/decode"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Stage is the name used for warnings raised during assembly.
const Stage = "assemble"

// RootName names the synthesized root.
const RootName = "root"

// Output is the assembled scene.
type Output struct {
	Root  *scene.Node
	Clips []*scene.Clip
}

// Assemble builds the hierarchy from completed stages. Buffers are released
// once the hierarchy no longer needs them.
func Assemble(s *decode.Stages) *Output {
	c := s.Context()
	nodes := s.Nodes.Get()
	a := &assembler{c: c, nodes: nodes, parent: make([]int, len(nodes))}
	for i := range a.parent {
		a.parent[i] = -1
	}

	a.link()
	roots := a.roots()

	var root *scene.Node
	if len(roots) == 1 {
		root = roots[0]
	} else {
		root = scene.NewNode(RootName, -1)
		for _, r := range roots {
			root.AddChild(r)
		}
	}
	root.UpdateWorld()

	a.resolveSkins(s.Skins.Get())

	clips := make([]*scene.Clip, 0, len(s.Clips.Get()))
	for _, clip := range s.Clips.Get() {
		if clip != nil {
			clips = append(clips, clip)
		}
	}

	for _, b := range s.Buffers.Get() {
		if b != nil {
			b.Release()
		}
	}

	c.Log.Debug("scene assembled",
		zap.Int("nodes", root.Count()),
		zap.Int("clips", len(clips)),
		zap.Int("warnings", c.Warnings.Len()))
	return &Output{Root: root, Clips: clips}
}

type assembler struct {
	c      *decode.Context
	nodes  []*scene.Node
	parent []int
}

// link attaches children to parents. A node claimed by a second parent, or
// a link that would close a cycle, is dropped with a warning.
func (a *assembler) link() {
	for i, n := range a.nodes {
		if n == nil {
			continue
		}
		for _, ci := range n.ChildIndices {
			child := a.nodes[ci]
			if child == nil {
				continue
			}
			if a.parent[ci] != -1 {
				a.c.Warnings.Addf(gltf.KindInvalidData, Stage, ci,
					"node has parents %d and %d, keeping %d", a.parent[ci], i, a.parent[ci])
				continue
			}
			if a.isAncestor(ci, i) {
				a.c.Warnings.Addf(gltf.KindInvalidData, Stage, i, "child %d would create a cycle", ci)
				continue
			}
			a.parent[ci] = i
			n.AddChild(child)
		}
	}
}

// isAncestor reports whether node x is node y or one of y's ancestors.
func (a *assembler) isAncestor(x, y int) bool {
	for ; y != -1; y = a.parent[y] {
		if y == x {
			return true
		}
	}
	return false
}

// roots returns the top-level nodes: the default scene's nodes when the
// document names a valid one, otherwise every node without a parent.
func (a *assembler) roots() []*scene.Node {
	doc := a.c.Doc
	var out []*scene.Node

	if doc.Scene != nil && *doc.Scene >= 0 && *doc.Scene < len(doc.Scenes) {
		seen := make(map[int]bool)
		for _, ni := range doc.Scenes[*doc.Scene].Nodes {
			if ni < 0 || ni >= len(a.nodes) {
				a.c.Warnings.Addf(gltf.KindIndexOutOfRange, Stage, *doc.Scene, "scene node %d outside [0, %d)", ni, len(a.nodes))
				continue
			}
			n := a.nodes[ni]
			if n == nil || seen[ni] {
				continue
			}
			if a.parent[ni] != -1 {
				a.c.Warnings.Addf(gltf.KindInvalidData, Stage, ni, "scene root node also has parent %d", a.parent[ni])
				continue
			}
			seen[ni] = true
			out = append(out, n)
		}
		return out
	}
	if doc.Scene != nil {
		a.c.Warnings.Addf(gltf.KindIndexOutOfRange, Stage, *doc.Scene, "default scene outside [0, %d)", len(doc.Scenes))
	}

	for i, n := range a.nodes {
		if n != nil && a.parent[i] == -1 {
			out = append(out, n)
		}
	}
	return out
}

func (a *assembler) resolveSkins(skins []*scene.Skin) {
	for _, sk := range skins {
		if sk == nil {
			continue
		}
		sk.Joints = make([]*scene.Node, len(sk.JointIndices))
		for j, ni := range sk.JointIndices {
			if ni >= 0 {
				sk.Joints[j] = a.nodes[ni]
			}
		}
		if sk.SkeletonIndex >= 0 {
			sk.Skeleton = a.nodes[sk.SkeletonIndex]
		}
	}
}
