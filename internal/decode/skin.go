package decode

import (
	"context"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

func (s *Stages) decodeSkins(ctx context.Context, report task.Progress) error {
	c := s.c
	accessors := s.Accessors.Get()
	out := make([]*scene.Skin, len(c.Doc.Skins))
	step := progress(report, len(out))

	for i, sk := range c.Doc.Skins {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.skin(i, sk, accessors)
		step(i)
	}
	return s.Skins.Set(out)
}

func (s *Stages) skin(i int, sk gltf.Skin, accessors []*scene.Accessor) *scene.Skin {
	c := s.c
	nodes := len(c.Doc.Nodes)
	out := &scene.Skin{
		Name:          defaultName(sk.Name, "skin", i),
		JointIndices:  make([]int, len(sk.Joints)),
		SkeletonIndex: -1,
	}
	// Invalid joints keep their slot so vertex joint indices stay aligned.
	for j, n := range sk.Joints {
		out.JointIndices[j] = -1
		if c.index(StageSkin, i, "joint", n, nodes) {
			out.JointIndices[j] = n
		}
	}
	if sk.Skeleton != nil && c.index(StageSkin, i, "skeleton", *sk.Skeleton, nodes) {
		out.SkeletonIndex = *sk.Skeleton
	}

	out.InverseBindMatrices = make([]math.Mat4, len(sk.Joints))
	for j := range out.InverseBindMatrices {
		out.InverseBindMatrices[j] = math.Identity()
	}
	if sk.InverseBindMatrices != nil {
		acc := lookup(c, StageSkin, i, "inverseBindMatrices", *sk.InverseBindMatrices, accessors)
		switch {
		case acc == nil:
		case acc.Type != gltf.Mat4 || acc.ComponentType != gltf.Float:
			c.warnf(gltf.KindInvalidData, StageSkin, i, "inverseBindMatrices must be float MAT4, got %s %s", acc.ComponentType, acc.Type)
		case acc.Count < len(sk.Joints):
			c.warnf(gltf.KindInvalidData, StageSkin, i, "%d inverse bind matrices for %d joints", acc.Count, len(sk.Joints))
		default:
			copy(out.InverseBindMatrices, acc.Mat4s())
		}
	}
	return out
}
