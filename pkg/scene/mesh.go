package scene

import "github.com/Faultbox/midgard-gltf/pkg/math"

// MorphTarget holds per-vertex displacements.
type MorphTarget struct {
	Positions []math.Vec3
	Normals   []math.Vec3
	Tangents  []math.Vec3
}

// CompressedPayload is geometry a host codec must decode (Draco).
type CompressedPayload struct {
	Extension  string
	Data       []byte
	Attributes map[string]int
}

// Primitive is decoded geometry for one draw call. Attribute sets are
// indexed by their number (TEXCOORD_0 is TexCoords[0]).
type Primitive struct {
	Mode      int
	Positions []math.Vec3
	Normals   []math.Vec3
	Tangents  [][4]float32
	TexCoords [][][2]float32
	Colors    [][][4]float32
	Joints    [][][4]uint16
	Weights   [][][4]float32
	Indices   []uint32

	Material *Material
	Targets  []MorphTarget
	Bounds   math.Box3

	// Attributes keeps every resolved attribute accessor by semantic,
	// including application-specific ones ("_FOO").
	Attributes map[string]*Accessor

	Compressed *CompressedPayload
}

// VertexCount returns the number of vertices.
func (p *Primitive) VertexCount() int { return len(p.Positions) }

// Mesh is a list of primitives. Handle is set by the host.
type Mesh struct {
	Name       string
	Primitives []Primitive
	Weights    []float32
	Handle     any
}

// Bounds returns the union of all primitive bounds.
func (m *Mesh) Bounds() math.Box3 {
	b := math.EmptyBox()
	for i := range m.Primitives {
		pb := m.Primitives[i].Bounds
		if pb.IsEmpty() {
			continue
		}
		b.Expand(pb.Min)
		b.Expand(pb.Max)
	}
	return b
}
