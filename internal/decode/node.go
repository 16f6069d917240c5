package decode

import (
	"context"
	"slices"

	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// decodeNodes decodes the camera list and then every node. Hierarchy links
// are validated here and resolved during assembly.
func (s *Stages) decodeNodes(ctx context.Context, report task.Progress) error {
	c := s.c

	cameras := make([]*scene.Camera, len(c.Doc.Cameras))
	for i, cam := range c.Doc.Cameras {
		cameras[i] = s.camera(i, cam)
	}
	if err := s.Cameras.Set(cameras); err != nil {
		return err
	}

	meshes, skins := s.Meshes.Get(), s.Skins.Get()
	out := make([]*scene.Node, len(c.Doc.Nodes))
	step := progress(report, len(out))
	for i, n := range c.Doc.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.node(i, n, meshes, skins, cameras)
		step(i)
	}
	return s.Nodes.Set(out)
}

func (s *Stages) camera(i int, cam gltf.Camera) *scene.Camera {
	c := s.c
	out := &scene.Camera{Name: defaultName(cam.Name, "camera", i)}
	switch {
	case cam.Type == "perspective" && cam.Perspective != nil:
		p := cam.Perspective
		out.YFov, out.ZNear = p.YFov, p.ZNear
		out.ZFar = math32.Inf(1)
		if p.ZFar != nil {
			out.ZFar = *p.ZFar
		}
		if p.AspectRatio != nil {
			out.AspectRatio = *p.AspectRatio
		}
	case cam.Type == "orthographic" && cam.Orthographic != nil:
		o := cam.Orthographic
		out.Orthographic = true
		out.XMag, out.YMag = o.XMag, o.YMag
		out.ZNear, out.ZFar = o.ZNear, o.ZFar
	default:
		c.warnf(gltf.KindInvalidData, StageNode, i, "camera %d: type %q has no matching projection", i, cam.Type)
		return nil
	}
	return out
}

func (s *Stages) node(i int, n gltf.Node, meshes []*scene.Mesh, skins []*scene.Skin, cameras []*scene.Camera) *scene.Node {
	c := s.c
	out := scene.NewNode(defaultName(n.Name, "node", i), i)

	if n.Matrix != nil {
		m := math.Mat4(*n.Matrix)
		t, r, sc := m.Decompose()
		out.Translation, out.Rotation, out.Scale = t, r, sc
		out.Local = m
	} else {
		t, r, sc := out.Translation, out.Rotation, out.Scale
		if n.Translation != nil {
			t = math.V3(*n.Translation)
		}
		if n.Rotation != nil {
			r = math.Q(*n.Rotation).Normalize()
		}
		if n.Scale != nil {
			sc = math.V3(*n.Scale)
		}
		out.SetTRS(t, r, sc)
	}

	out.Mesh = lookupOpt(c, StageNode, i, "mesh", n.Mesh, meshes)
	out.Skin = lookupOpt(c, StageNode, i, "skin", n.Skin, skins)
	out.Camera = lookupOpt(c, StageNode, i, "camera", n.Camera, cameras)

	switch {
	case n.Weights != nil:
		out.Weights = slices.Clone(n.Weights)
	case out.Mesh != nil:
		out.Weights = slices.Clone(out.Mesh.Weights)
	}

	for _, child := range n.Children {
		if child == i {
			c.warnf(gltf.KindInvalidData, StageNode, i, "node lists itself as a child")
			continue
		}
		if c.index(StageNode, i, "child", child, len(c.Doc.Nodes)) {
			out.ChildIndices = append(out.ChildIndices, child)
		}
	}
	return out
}
