package decode

import (
	"context"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

func (s *Stages) decodeMaterials(ctx context.Context, report task.Progress) error {
	c := s.c
	textures := s.Textures.Get()
	out := make([]*scene.Material, len(c.Doc.Materials))
	step := progress(report, len(out))

	for i, m := range c.Doc.Materials {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.material(i, m, textures)
		step(i)
	}
	return s.Materials.Set(out)
}

func (s *Stages) material(i int, m gltf.Material, textures []*scene.Texture) *scene.Material {
	c := s.c
	out := scene.DefaultMaterial(defaultName(m.Name, "material", i))
	ref := func(field string, info *gltf.TextureInfo) *scene.TextureRef {
		return textureRef(c, i, field, info, textures)
	}

	switch {
	case m.Extensions != nil && m.Extensions.SpecularGlossiness != nil:
		sg := m.Extensions.SpecularGlossiness
		out.Workflow = scene.SpecularGlossiness
		out.SpecularFactor = [3]float32{1, 1, 1}
		out.GlossinessFactor = 1
		if sg.DiffuseFactor != nil {
			out.BaseColorFactor = *sg.DiffuseFactor
		}
		if sg.SpecularFactor != nil {
			out.SpecularFactor = *sg.SpecularFactor
		}
		if sg.GlossinessFactor != nil {
			out.GlossinessFactor = *sg.GlossinessFactor
		}
		out.BaseColorTexture = ref("diffuseTexture", sg.DiffuseTexture)
		out.SpecularGlossinessTexture = ref("specularGlossinessTexture", sg.SpecularGlossinessTexture)

	default:
		if m.Extensions != nil && m.Extensions.Unlit != nil {
			out.Workflow = scene.Unlit
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				out.BaseColorFactor = *pbr.BaseColorFactor
			}
			if pbr.MetallicFactor != nil {
				out.MetallicFactor = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				out.RoughnessFactor = *pbr.RoughnessFactor
			}
			out.BaseColorTexture = ref("baseColorTexture", pbr.BaseColorTexture)
			out.MetallicRoughnessTexture = ref("metallicRoughnessTexture", pbr.MetallicRoughnessTexture)
		}
	}

	out.NormalTexture = ref("normalTexture", m.NormalTexture)
	out.OcclusionTexture = ref("occlusionTexture", m.OcclusionTexture)
	out.EmissiveTexture = ref("emissiveTexture", m.EmissiveTexture)
	if m.EmissiveFactor != nil {
		out.EmissiveFactor = *m.EmissiveFactor
	}

	switch m.AlphaMode {
	case "", "OPAQUE":
	case "MASK":
		out.AlphaMode = scene.AlphaMask
	case "BLEND":
		out.AlphaMode = scene.AlphaBlend
	default:
		c.warnf(gltf.KindInvalidData, StageMaterial, i, "unknown alphaMode %q", m.AlphaMode)
	}
	if m.AlphaCutoff != nil {
		out.AlphaCutoff = *m.AlphaCutoff
	}
	out.DoubleSided = m.DoubleSided
	out.Shader = c.Settings.Shaders.Select(out.Workflow, out.AlphaMode)
	return out
}

// textureRef resolves a material texture reference. An invalid index yields
// nil and exactly one warning.
func textureRef(c *Context, owner int, field string, info *gltf.TextureInfo, textures []*scene.Texture) *scene.TextureRef {
	if info == nil {
		return nil
	}
	tex := lookup(c, StageMaterial, owner, field+".index", info.Index, textures)
	if tex == nil {
		return nil
	}
	out := &scene.TextureRef{
		Texture:  tex,
		TexCoord: info.TexCoord,
		Scale:    1,
		Strength: 1,
	}
	if info.Scale != nil {
		out.Scale = *info.Scale
	}
	if info.Strength != nil {
		out.Strength = *info.Strength
	}
	if info.Extensions != nil && info.Extensions.Transform != nil {
		t := info.Extensions.Transform
		tr := &scene.TextureTransform{Rotation: t.Rotation, Scale: [2]float32{1, 1}, TexCoord: -1}
		if t.Offset != nil {
			tr.Offset = *t.Offset
		}
		if t.Scale != nil {
			tr.Scale = *t.Scale
		}
		if t.TexCoord != nil {
			tr.TexCoord = *t.TexCoord
			out.TexCoord = *t.TexCoord
		}
		out.Transform = tr
	}
	return out
}
