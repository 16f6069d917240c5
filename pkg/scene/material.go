package scene

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// Image is a decoded image source. Data is an owned copy that outlives the
// import's buffers.
type Image struct {
	Name     string
	Data     []byte
	MimeType string
	Path     string // set when loaded from a sibling file
	Width    int
	Height   int

	// NeedsCodec marks formats (KTX2, Basis) that a host plugin must decode.
	NeedsCodec bool
}

// Sampler holds filtering and wrapping, with glTF defaults filled in.
type Sampler struct {
	MagFilter int // 0 means unset
	MinFilter int // 0 means unset
	WrapS     int
	WrapT     int
}

// DefaultSampler repeats in both directions with unset filters.
func DefaultSampler() Sampler {
	return Sampler{WrapS: gltf.WrapRepeat, WrapT: gltf.WrapRepeat}
}

// Texture pairs an image with its sampler. Handle is set by the host.
type Texture struct {
	Name    string
	Image   *Image
	Sampler Sampler
	Handle  any
}

// TextureTransform is a KHR_texture_transform applied to UVs.
type TextureTransform struct {
	Offset   [2]float32
	Rotation float32
	Scale    [2]float32
	TexCoord int // -1 keeps the reference's own set
}

// Matrix returns the 3x3 column-major UV transform T * R * S.
func (t TextureTransform) Matrix() [9]float32 {
	s, c := math32.Sincos(t.Rotation)
	return [9]float32{
		c * t.Scale[0], -s * t.Scale[0], 0,
		s * t.Scale[1], c * t.Scale[1], 0,
		t.Offset[0], t.Offset[1], 1,
	}
}

// TextureRef is a material's use of a texture.
type TextureRef struct {
	Texture   *Texture
	TexCoord  int
	Scale     float32 // normal textures
	Strength  float32 // occlusion textures
	Transform *TextureTransform
}

// AlphaMode selects how alpha is applied.
type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaMask:
		return "MASK"
	case AlphaBlend:
		return "BLEND"
	default:
		return "OPAQUE"
	}
}

// Workflow is the shading model of a material.
type Workflow int

const (
	MetallicRoughness Workflow = iota
	SpecularGlossiness
	Unlit
)

// ShaderSet names the host shader used for each workflow and blend state.
// It is chosen per import.
type ShaderSet struct {
	MetallicRoughness       string `yaml:"metallic_roughness"`
	MetallicRoughnessBlend  string `yaml:"metallic_roughness_blend"`
	SpecularGlossiness      string `yaml:"specular_glossiness"`
	SpecularGlossinessBlend string `yaml:"specular_glossiness_blend"`
	Unlit                   string `yaml:"unlit"`
}

// DefaultShaderSet returns the stock shader names.
func DefaultShaderSet() ShaderSet {
	return ShaderSet{
		MetallicRoughness:       "GLTF/Standard (Metallic)",
		MetallicRoughnessBlend:  "GLTF/Standard Transparent (Metallic)",
		SpecularGlossiness:      "GLTF/Standard (Specular)",
		SpecularGlossinessBlend: "GLTF/Standard Transparent (Specular)",
		Unlit:                   "GLTF/Unlit",
	}
}

// Select returns the shader for a workflow and alpha mode.
func (s ShaderSet) Select(w Workflow, mode AlphaMode) string {
	blend := mode == AlphaBlend
	switch w {
	case SpecularGlossiness:
		if blend {
			return s.SpecularGlossinessBlend
		}
		return s.SpecularGlossiness
	case Unlit:
		return s.Unlit
	default:
		if blend {
			return s.MetallicRoughnessBlend
		}
		return s.MetallicRoughness
	}
}

// Material is a fully resolved material record. For the specular-glossiness
// workflow BaseColor* holds the diffuse factor and texture.
type Material struct {
	Name     string
	Workflow Workflow
	Shader   string

	BaseColorFactor  [4]float32
	BaseColorTexture *TextureRef

	MetallicFactor           float32
	RoughnessFactor          float32
	MetallicRoughnessTexture *TextureRef

	SpecularFactor            [3]float32
	GlossinessFactor          float32
	SpecularGlossinessTexture *TextureRef

	NormalTexture    *TextureRef
	OcclusionTexture *TextureRef
	EmissiveTexture  *TextureRef
	EmissiveFactor   [3]float32

	AlphaMode   AlphaMode
	AlphaCutoff float32
	DoubleSided bool

	Handle any
}

// DefaultMaterial returns the glTF default material.
func DefaultMaterial(name string) *Material {
	return &Material{
		Name:            name,
		BaseColorFactor: [4]float32{1, 1, 1, 1},
		MetallicFactor:  1,
		RoughnessFactor: 1,
		AlphaCutoff:     0.5,
	}
}
