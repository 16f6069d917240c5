package decode

import (
	"context"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

func (s *Stages) decodeTextures(ctx context.Context, report task.Progress) error {
	c := s.c
	images := s.Images.Get()
	out := make([]*scene.Texture, len(c.Doc.Textures))
	step := progress(report, len(out))

	for i, t := range c.Doc.Textures {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.texture(i, t, images)
		step(i)
	}
	return s.Textures.Set(out)
}

func (s *Stages) texture(i int, t gltf.Texture, images []*scene.Image) *scene.Texture {
	c := s.c
	source := t.Source
	if t.Extensions != nil && t.Extensions.BasisU != nil && t.Extensions.BasisU.Source != nil {
		source = t.Extensions.BasisU.Source
	}
	if source == nil {
		c.warnf(gltf.KindInvalidData, StageTexture, i, "texture has no source")
		return nil
	}
	img := lookup(c, StageTexture, i, "source", *source, images)
	if img == nil {
		return nil
	}

	out := &scene.Texture{
		Name:    defaultName(t.Name, "texture", i),
		Image:   img,
		Sampler: scene.DefaultSampler(),
	}
	if t.Sampler != nil && c.index(StageTexture, i, "sampler", *t.Sampler, len(c.Doc.Samplers)) {
		sm := c.Doc.Samplers[*t.Sampler]
		out.Sampler.MagFilter = sm.MagFilter
		out.Sampler.MinFilter = sm.MinFilter
		if sm.WrapS != 0 {
			out.Sampler.WrapS = sm.WrapS
		}
		if sm.WrapT != 0 {
			out.Sampler.WrapT = sm.WrapT
		}
	}
	return out
}
