package decode

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

func (s *Stages) decodeMeshes(ctx context.Context, report task.Progress) error {
	c := s.c
	out := make([]*scene.Mesh, len(c.Doc.Meshes))
	step := progress(report, len(out))

	for i, m := range c.Doc.Meshes {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.mesh(i, m)
		step(i)
	}
	return s.Meshes.Set(out)
}

func (s *Stages) mesh(i int, m gltf.Mesh) *scene.Mesh {
	out := &scene.Mesh{
		Name:    defaultName(m.Name, "mesh", i),
		Weights: slices.Clone(m.Weights),
	}
	for _, p := range m.Primitives {
		if prim, ok := s.primitive(i, p); ok {
			out.Primitives = append(out.Primitives, prim)
		}
	}
	return out
}

// semantic splits an attribute name such as TEXCOORD_1 into its base and
// set number. Names without a set number report set 0.
func semantic(name string) (string, int) {
	base, num, ok := strings.Cut(name, "_")
	if !ok || base == "" {
		return name, 0
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return name, 0
	}
	return base, n
}

// grow extends s so that index n is valid.
func grow[T any](s []T, n int) []T {
	for len(s) <= n {
		var zero T
		s = append(s, zero)
	}
	return s
}

func (s *Stages) primitive(mi int, p gltf.Primitive) (scene.Primitive, bool) {
	c := s.c
	accessors := s.Accessors.Get()
	out := scene.Primitive{
		Mode:       gltf.ModeTriangles,
		Attributes: make(map[string]*scene.Accessor, len(p.Attributes)),
		Bounds:     math.EmptyBox(),
	}

	if p.Mode != nil {
		if *p.Mode < gltf.ModePoints || *p.Mode > gltf.ModeTriangleFan {
			c.warnf(gltf.KindInvalidData, StageMesh, mi, "unknown primitive mode %d", *p.Mode)
			return out, false
		}
		out.Mode = *p.Mode
	}

	if p.Extensions != nil && p.Extensions.Draco != nil {
		out.Compressed = s.draco(mi, p.Extensions.Draco)
	}

	for _, name := range slices.Sorted(maps.Keys(p.Attributes)) {
		acc := lookup(c, StageMesh, mi, name, p.Attributes[name], accessors)
		if acc == nil {
			continue
		}
		out.Attributes[name] = acc
	}

	pos := out.Attributes["POSITION"]
	if pos == nil {
		if out.Compressed == nil {
			c.warnf(gltf.KindInvalidData, StageMesh, mi, "primitive has no POSITION attribute")
			return out, false
		}
		out.Material = lookupOpt(c, StageMesh, mi, "material", p.Material, s.Materials.Get())
		return out, true
	}
	if pos.Type != gltf.Vec3 || pos.ComponentType != gltf.Float {
		c.warnf(gltf.KindInvalidData, StageMesh, mi, "POSITION must be float VEC3, got %s %s", pos.ComponentType, pos.Type)
		return out, false
	}
	out.Positions = pos.Vec3s()
	for _, v := range out.Positions {
		out.Bounds.Expand(v)
	}
	n := len(out.Positions)

	for _, name := range slices.Sorted(maps.Keys(out.Attributes)) {
		acc := out.Attributes[name]
		if name == "POSITION" {
			continue
		}
		if acc.Count != n {
			c.warnf(gltf.KindInvalidData, StageMesh, mi, "%s has %d elements, POSITION has %d", name, acc.Count, n)
			delete(out.Attributes, name)
			continue
		}
		if !s.attribute(mi, &out, name, acc, len(p.Attributes)) {
			delete(out.Attributes, name)
		}
	}

	if p.Indices != nil {
		acc := lookup(c, StageMesh, mi, "indices", *p.Indices, accessors)
		if acc == nil {
			return out, false
		}
		idx, ok := acc.Uints()
		if !ok || acc.Type != gltf.Scalar {
			c.warnf(gltf.KindInvalidData, StageMesh, mi, "indices must be unsigned SCALAR, got %s %s", acc.ComponentType, acc.Type)
			return out, false
		}
		for _, v := range idx {
			if int64(v) >= int64(n) {
				c.warnf(gltf.KindIndexOutOfRange, StageMesh, mi, "vertex index %d outside [0, %d)", v, n)
				return out, false
			}
		}
		out.Indices = idx
	}

	for t, target := range p.Targets {
		mt, ok := s.morphTarget(mi, t, target, n, accessors)
		if !ok {
			return out, false
		}
		out.Targets = append(out.Targets, mt)
	}

	out.Material = lookupOpt(c, StageMesh, mi, "material", p.Material, s.Materials.Get())

	if out.Normals == nil && c.Settings.GenerateNormals && out.Mode == gltf.ModeTriangles {
		out.Normals = smoothNormals(out.Positions, out.Indices)
	}
	return out, true
}

// attribute stores a known semantic on the primitive. Application-specific
// and unknown semantics are kept only in Attributes. Set numbers must be
// below sets, the primitive's attribute count.
func (s *Stages) attribute(mi int, out *scene.Primitive, name string, acc *scene.Accessor, sets int) bool {
	c := s.c
	bad := func() bool {
		c.warnf(gltf.KindInvalidData, StageMesh, mi, "%s has unsupported layout %s %s", name, acc.ComponentType, acc.Type)
		return false
	}
	base, set := semantic(name)
	switch base {
	case "TEXCOORD", "COLOR", "JOINTS", "WEIGHTS":
		if set >= sets {
			c.warnf(gltf.KindInvalidData, StageMesh, mi, "%s: set %d exceeds %d attributes", name, set, sets)
			return true
		}
	}
	switch base {
	case "NORMAL":
		if acc.Type != gltf.Vec3 || acc.ComponentType != gltf.Float {
			return bad()
		}
		out.Normals = acc.Vec3s()
	case "TANGENT":
		if acc.Type != gltf.Vec4 || acc.ComponentType != gltf.Float {
			return bad()
		}
		out.Tangents = acc.Vec4s()
	case "TEXCOORD":
		if acc.Type != gltf.Vec2 {
			return bad()
		}
		out.TexCoords = grow(out.TexCoords, set)
		out.TexCoords[set] = acc.Vec2s()
	case "COLOR":
		if acc.Type != gltf.Vec3 && acc.Type != gltf.Vec4 {
			return bad()
		}
		out.Colors = grow(out.Colors, set)
		out.Colors[set] = acc.Vec4s()
	case "JOINTS":
		u, ok := acc.Uints()
		if !ok || acc.Type != gltf.Vec4 || acc.ComponentType == gltf.UnsignedInt {
			return bad()
		}
		joints := make([][4]uint16, acc.Count)
		for v := range joints {
			for k := range 4 {
				joints[v][k] = uint16(u[v*4+k])
			}
		}
		out.Joints = grow(out.Joints, set)
		out.Joints[set] = joints
	case "WEIGHTS":
		if acc.Type != gltf.Vec4 {
			return bad()
		}
		out.Weights = grow(out.Weights, set)
		out.Weights[set] = acc.Vec4s()
	}
	return true
}

func (s *Stages) morphTarget(mi, t int, target map[string]int, n int, accessors []*scene.Accessor) (scene.MorphTarget, bool) {
	c := s.c
	var mt scene.MorphTarget
	for _, name := range slices.Sorted(maps.Keys(target)) {
		acc := lookup(c, StageMesh, mi, "targets["+strconv.Itoa(t)+"]."+name, target[name], accessors)
		if acc == nil {
			return mt, false
		}
		if acc.Type != gltf.Vec3 || acc.Count != n {
			c.warnf(gltf.KindInvalidData, StageMesh, mi, "morph target %d %s must be VEC3 with %d elements", t, name, n)
			return mt, false
		}
		switch name {
		case "POSITION":
			mt.Positions = acc.Vec3s()
		case "NORMAL":
			mt.Normals = acc.Vec3s()
		case "TANGENT":
			mt.Tangents = acc.Vec3s()
		}
	}
	return mt, true
}

// draco copies the compressed payload for a host codec.
func (s *Stages) draco(mi int, d *gltf.DracoCompression) *scene.CompressedPayload {
	c := s.c
	view := lookup(c, StageMesh, mi, "KHR_draco_mesh_compression.bufferView", d.BufferView, s.BufferViews.Get())
	if view == nil {
		return nil
	}
	data, err := view.Bytes()
	if err != nil {
		c.warnf(gltf.KindInvalidData, StageMesh, mi, "%v", err)
		return nil
	}
	return &scene.CompressedPayload{
		Extension:  gltf.ExtDraco,
		Data:       bytes.Clone(data),
		Attributes: maps.Clone(d.Attributes),
	}
}

// smoothNormals averages area-weighted face normals per vertex.
func smoothNormals(pos []math.Vec3, indices []uint32) []math.Vec3 {
	normals := make([]math.Vec3, len(pos))
	tri := func(a, b, c int) {
		n := pos[b].Sub(pos[a]).Cross(pos[c].Sub(pos[a]))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}
	if indices != nil {
		for i := 0; i+2 < len(indices); i += 3 {
			tri(int(indices[i]), int(indices[i+1]), int(indices[i+2]))
		}
	} else {
		for i := 0; i+2 < len(pos); i += 3 {
			tri(i, i+1, i+2)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}
