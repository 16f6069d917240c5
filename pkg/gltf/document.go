package gltf

// ComponentType is the numeric type of one accessor component.
type ComponentType int

// Component types as they appear in the document.
const (
	Byte          ComponentType = 5120
	UnsignedByte  ComponentType = 5121
	Short         ComponentType = 5122
	UnsignedShort ComponentType = 5123
	UnsignedInt   ComponentType = 5125
	Float         ComponentType = 5126
)

// Size returns the component size in bytes, or 0 for unknown types.
func (c ComponentType) Size() int {
	switch c {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort:
		return 2
	case UnsignedInt, Float:
		return 4
	default:
		return 0
	}
}

func (c ComponentType) String() string {
	switch c {
	case Byte:
		return "BYTE"
	case UnsignedByte:
		return "UNSIGNED_BYTE"
	case Short:
		return "SHORT"
	case UnsignedShort:
		return "UNSIGNED_SHORT"
	case UnsignedInt:
		return "UNSIGNED_INT"
	case Float:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

// AccessorType is the element shape of an accessor.
type AccessorType string

// Accessor element types.
const (
	Scalar AccessorType = "SCALAR"
	Vec2   AccessorType = "VEC2"
	Vec3   AccessorType = "VEC3"
	Vec4   AccessorType = "VEC4"
	Mat2   AccessorType = "MAT2"
	Mat3   AccessorType = "MAT3"
	Mat4   AccessorType = "MAT4"
)

// Components returns the number of components per element, or 0.
func (t AccessorType) Components() int {
	switch t {
	case Scalar:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4, Mat2:
		return 4
	case Mat3:
		return 9
	case Mat4:
		return 16
	default:
		return 0
	}
}

// Columns returns the number of matrix columns (1 for vectors).
func (t AccessorType) Columns() int {
	switch t {
	case Mat2:
		return 2
	case Mat3:
		return 3
	case Mat4:
		return 4
	default:
		return 1
	}
}

// Primitive topology modes.
const (
	ModePoints        = 0
	ModeLines         = 1
	ModeLineLoop      = 2
	ModeLineStrip     = 3
	ModeTriangles     = 4
	ModeTriangleStrip = 5
	ModeTriangleFan   = 6
)

// Sampler filter and wrap values.
const (
	FilterNearest              = 9728
	FilterLinear               = 9729
	FilterNearestMipmapNearest = 9984
	FilterLinearMipmapNearest  = 9985
	FilterNearestMipmapLinear  = 9986
	FilterLinearMipmapLinear   = 9987

	WrapClampToEdge    = 33071
	WrapMirroredRepeat = 33648
	WrapRepeat         = 10497
)

// Document is a parsed glTF scene description. Optional indices are
// pointers; required ones are plain ints.
type Document struct {
	Asset              Asset        `json:"asset"`
	ExtensionsUsed     []string     `json:"extensionsUsed,omitempty"`
	ExtensionsRequired []string     `json:"extensionsRequired,omitempty"`
	Scene              *int         `json:"scene,omitempty"`
	Scenes             []Scene      `json:"scenes,omitempty"`
	Nodes              []Node       `json:"nodes,omitempty"`
	Meshes             []Mesh       `json:"meshes,omitempty"`
	Materials          []Material   `json:"materials,omitempty"`
	Textures           []Texture    `json:"textures,omitempty"`
	Images             []Image      `json:"images,omitempty"`
	Samplers           []Sampler    `json:"samplers,omitempty"`
	Accessors          []Accessor   `json:"accessors,omitempty"`
	BufferViews        []BufferView `json:"bufferViews,omitempty"`
	Buffers            []Buffer     `json:"buffers,omitempty"`
	Skins              []Skin       `json:"skins,omitempty"`
	Animations         []Animation  `json:"animations,omitempty"`
	Cameras            []Camera     `json:"cameras,omitempty"`
}

// Asset carries document metadata.
type Asset struct {
	Version    string `json:"version"`
	MinVersion string `json:"minVersion,omitempty"`
	Generator  string `json:"generator,omitempty"`
	Copyright  string `json:"copyright,omitempty"`
}

// Scene lists root nodes.
type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Buffer points at raw bytes. A missing URI in a GLB refers to the BIN chunk.
type Buffer struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// BufferView is a byte range within a buffer.
type BufferView struct {
	Name       string `json:"name,omitempty"`
	Buffer     int    `json:"buffer"`
	ByteOffset int    `json:"byteOffset,omitempty"`
	ByteLength int    `json:"byteLength"`
	ByteStride int    `json:"byteStride,omitempty"`
	Target     int    `json:"target,omitempty"`
}

// Accessor describes how to read typed elements from a buffer view.
type Accessor struct {
	Name          string        `json:"name,omitempty"`
	BufferView    *int          `json:"bufferView,omitempty"`
	ByteOffset    int           `json:"byteOffset,omitempty"`
	ComponentType ComponentType `json:"componentType"`
	Normalized    bool          `json:"normalized,omitempty"`
	Count         int           `json:"count"`
	Type          AccessorType  `json:"type"`
	Min           []float64     `json:"min,omitempty"`
	Max           []float64     `json:"max,omitempty"`
	Sparse        *Sparse       `json:"sparse,omitempty"`
}

// Sparse overrides a subset of accessor elements.
type Sparse struct {
	Count   int           `json:"count"`
	Indices SparseIndices `json:"indices"`
	Values  SparseValues  `json:"values"`
}

// SparseIndices locates the element indices being replaced.
type SparseIndices struct {
	BufferView    int           `json:"bufferView"`
	ByteOffset    int           `json:"byteOffset,omitempty"`
	ComponentType ComponentType `json:"componentType"`
}

// SparseValues locates the replacement elements.
type SparseValues struct {
	BufferView int `json:"bufferView"`
	ByteOffset int `json:"byteOffset,omitempty"`
}

// Image is an image source: a URI, or a buffer view plus MIME type.
type Image struct {
	Name       string `json:"name,omitempty"`
	URI        string `json:"uri,omitempty"`
	MimeType   string `json:"mimeType,omitempty"`
	BufferView *int   `json:"bufferView,omitempty"`
}

// Sampler holds texture filtering and wrapping. Zero means unset.
type Sampler struct {
	Name      string `json:"name,omitempty"`
	MagFilter int    `json:"magFilter,omitempty"`
	MinFilter int    `json:"minFilter,omitempty"`
	WrapS     int    `json:"wrapS,omitempty"`
	WrapT     int    `json:"wrapT,omitempty"`
}

// Texture pairs an image with a sampler.
type Texture struct {
	Name       string             `json:"name,omitempty"`
	Sampler    *int               `json:"sampler,omitempty"`
	Source     *int               `json:"source,omitempty"`
	Extensions *TextureExtensions `json:"extensions,omitempty"`
}

// TextureExtensions lists recognised texture extensions.
type TextureExtensions struct {
	BasisU *TextureSource `json:"KHR_texture_basisu,omitempty"`
}

// TextureSource is an alternate image source for a texture.
type TextureSource struct {
	Source *int `json:"source,omitempty"`
}

// TextureInfo references a texture from a material. Scale applies to
// normal textures and Strength to occlusion textures.
type TextureInfo struct {
	Index      int                    `json:"index"`
	TexCoord   int                    `json:"texCoord,omitempty"`
	Scale      *float32               `json:"scale,omitempty"`
	Strength   *float32               `json:"strength,omitempty"`
	Extensions *TextureInfoExtensions `json:"extensions,omitempty"`
}

// TextureInfoExtensions lists recognised texture reference extensions.
type TextureInfoExtensions struct {
	Transform *TextureTransform `json:"KHR_texture_transform,omitempty"`
}

// TextureTransform is KHR_texture_transform.
type TextureTransform struct {
	Offset   *[2]float32 `json:"offset,omitempty"`
	Rotation float32     `json:"rotation,omitempty"`
	Scale    *[2]float32 `json:"scale,omitempty"`
	TexCoord *int        `json:"texCoord,omitempty"`
}

// Material describes surface shading.
type Material struct {
	Name                 string                `json:"name,omitempty"`
	PBRMetallicRoughness *PBRMetallicRoughness `json:"pbrMetallicRoughness,omitempty"`
	NormalTexture        *TextureInfo          `json:"normalTexture,omitempty"`
	OcclusionTexture     *TextureInfo          `json:"occlusionTexture,omitempty"`
	EmissiveTexture      *TextureInfo          `json:"emissiveTexture,omitempty"`
	EmissiveFactor       *[3]float32           `json:"emissiveFactor,omitempty"`
	AlphaMode            string                `json:"alphaMode,omitempty"`
	AlphaCutoff          *float32              `json:"alphaCutoff,omitempty"`
	DoubleSided          bool                  `json:"doubleSided,omitempty"`
	Extensions           *MaterialExtensions   `json:"extensions,omitempty"`
}

// PBRMetallicRoughness is the core material model.
type PBRMetallicRoughness struct {
	BaseColorFactor          *[4]float32  `json:"baseColorFactor,omitempty"`
	BaseColorTexture         *TextureInfo `json:"baseColorTexture,omitempty"`
	MetallicFactor           *float32     `json:"metallicFactor,omitempty"`
	RoughnessFactor          *float32     `json:"roughnessFactor,omitempty"`
	MetallicRoughnessTexture *TextureInfo `json:"metallicRoughnessTexture,omitempty"`
}

// MaterialExtensions lists recognised material extensions.
type MaterialExtensions struct {
	SpecularGlossiness *PBRSpecularGlossiness `json:"KHR_materials_pbrSpecularGlossiness,omitempty"`
	Unlit              *struct{}              `json:"KHR_materials_unlit,omitempty"`
}

// PBRSpecularGlossiness is KHR_materials_pbrSpecularGlossiness.
type PBRSpecularGlossiness struct {
	DiffuseFactor             *[4]float32  `json:"diffuseFactor,omitempty"`
	DiffuseTexture            *TextureInfo `json:"diffuseTexture,omitempty"`
	SpecularFactor            *[3]float32  `json:"specularFactor,omitempty"`
	GlossinessFactor          *float32     `json:"glossinessFactor,omitempty"`
	SpecularGlossinessTexture *TextureInfo `json:"specularGlossinessTexture,omitempty"`
}

// Mesh is a set of primitives drawn together.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
	Weights    []float32   `json:"weights,omitempty"`
}

// Primitive is one draw call worth of geometry.
type Primitive struct {
	Attributes map[string]int       `json:"attributes"`
	Indices    *int                 `json:"indices,omitempty"`
	Material   *int                 `json:"material,omitempty"`
	Mode       *int                 `json:"mode,omitempty"`
	Targets    []map[string]int     `json:"targets,omitempty"`
	Extensions *PrimitiveExtensions `json:"extensions,omitempty"`
}

// PrimitiveExtensions lists recognised primitive extensions.
type PrimitiveExtensions struct {
	Draco *DracoCompression `json:"KHR_draco_mesh_compression,omitempty"`
}

// DracoCompression is KHR_draco_mesh_compression.
type DracoCompression struct {
	BufferView int            `json:"bufferView"`
	Attributes map[string]int `json:"attributes"`
}

// Skin binds a mesh to a joint hierarchy.
type Skin struct {
	Name                string `json:"name,omitempty"`
	InverseBindMatrices *int   `json:"inverseBindMatrices,omitempty"`
	Skeleton            *int   `json:"skeleton,omitempty"`
	Joints              []int  `json:"joints"`
}

// Node is an element of the scene hierarchy.
type Node struct {
	Name        string       `json:"name,omitempty"`
	Children    []int        `json:"children,omitempty"`
	Mesh        *int         `json:"mesh,omitempty"`
	Skin        *int         `json:"skin,omitempty"`
	Camera      *int         `json:"camera,omitempty"`
	Matrix      *[16]float32 `json:"matrix,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"`
	Scale       *[3]float32  `json:"scale,omitempty"`
	Weights     []float32    `json:"weights,omitempty"`
}

// Animation is a set of channels sharing a timeline.
type Animation struct {
	Name     string             `json:"name,omitempty"`
	Channels []Channel          `json:"channels"`
	Samplers []AnimationSampler `json:"samplers"`
}

// Channel animates one property of one node.
type Channel struct {
	Sampler int           `json:"sampler"`
	Target  ChannelTarget `json:"target"`
}

// ChannelTarget names the animated node and property.
type ChannelTarget struct {
	Node *int   `json:"node,omitempty"`
	Path string `json:"path"`
}

// AnimationSampler pairs keyframe times with output values.
type AnimationSampler struct {
	Input         int    `json:"input"`
	Output        int    `json:"output"`
	Interpolation string `json:"interpolation,omitempty"`
}

// Camera is a perspective or orthographic projection.
type Camera struct {
	Name         string        `json:"name,omitempty"`
	Type         string        `json:"type"`
	Perspective  *Perspective  `json:"perspective,omitempty"`
	Orthographic *Orthographic `json:"orthographic,omitempty"`
}

// Perspective projection parameters. A nil ZFar means infinite.
type Perspective struct {
	AspectRatio *float32 `json:"aspectRatio,omitempty"`
	YFov        float32  `json:"yfov"`
	ZFar        *float32 `json:"zfar,omitempty"`
	ZNear       float32  `json:"znear"`
}

// Orthographic projection parameters.
type Orthographic struct {
	XMag  float32 `json:"xmag"`
	YMag  float32 `json:"ymag"`
	ZFar  float32 `json:"zfar"`
	ZNear float32 `json:"znear"`
}
