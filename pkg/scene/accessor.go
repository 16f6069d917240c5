package scene

import (
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Accessor is a decoded typed array. Exactly one of the value slices is set,
// matching ComponentType, with Count*Type.Components() entries.
type Accessor struct {
	Name          string
	ComponentType gltf.ComponentType
	Type          gltf.AccessorType
	Count         int
	Normalized    bool
	Min, Max      []float64

	Int8    []int8
	Uint8   []uint8
	Int16   []int16
	Uint16  []uint16
	Uint32  []uint32
	Float32 []float32
}

// Components returns the number of components per element.
func (a *Accessor) Components() int { return a.Type.Components() }

// Len returns the total number of components.
func (a *Accessor) Len() int { return a.Count * a.Components() }

// Floats converts every component to float32. Integer components are
// mapped to [0,1] or [-1,1] when the accessor is normalized and converted
// numerically otherwise. Float data is returned as is, not copied.
func (a *Accessor) Floats() []float32 {
	if a.Float32 != nil {
		return a.Float32
	}
	out := make([]float32, a.Len())
	switch {
	case a.Int8 != nil:
		for i, v := range a.Int8 {
			out[i] = float32(v)
			if a.Normalized {
				out[i] = max(float32(v)/127, -1)
			}
		}
	case a.Uint8 != nil:
		for i, v := range a.Uint8 {
			out[i] = float32(v)
			if a.Normalized {
				out[i] = float32(v) / 255
			}
		}
	case a.Int16 != nil:
		for i, v := range a.Int16 {
			out[i] = float32(v)
			if a.Normalized {
				out[i] = max(float32(v)/32767, -1)
			}
		}
	case a.Uint16 != nil:
		for i, v := range a.Uint16 {
			out[i] = float32(v)
			if a.Normalized {
				out[i] = float32(v) / 65535
			}
		}
	case a.Uint32 != nil:
		for i, v := range a.Uint32 {
			out[i] = float32(v)
		}
	}
	return out
}

// Uints widens unsigned integer components to uint32. It reports false
// for signed or float accessors.
func (a *Accessor) Uints() ([]uint32, bool) {
	switch {
	case a.Uint32 != nil:
		return a.Uint32, true
	case a.Uint16 != nil:
		out := make([]uint32, len(a.Uint16))
		for i, v := range a.Uint16 {
			out[i] = uint32(v)
		}
		return out, true
	case a.Uint8 != nil:
		out := make([]uint32, len(a.Uint8))
		for i, v := range a.Uint8 {
			out[i] = uint32(v)
		}
		return out, true
	}
	return nil, false
}

// Vec2s returns the elements of a VEC2 accessor.
func (a *Accessor) Vec2s() [][2]float32 {
	if a.Type != gltf.Vec2 {
		return nil
	}
	f := a.Floats()
	out := make([][2]float32, a.Count)
	for i := range out {
		out[i] = [2]float32{f[i*2], f[i*2+1]}
	}
	return out
}

// Vec3s returns the elements of a VEC3 accessor.
func (a *Accessor) Vec3s() []math.Vec3 {
	if a.Type != gltf.Vec3 {
		return nil
	}
	f := a.Floats()
	out := make([]math.Vec3, a.Count)
	for i := range out {
		out[i] = math.Vec3{X: f[i*3], Y: f[i*3+1], Z: f[i*3+2]}
	}
	return out
}

// Vec4s returns the elements of a VEC4 accessor. VEC3 colors are widened
// with an alpha of 1.
func (a *Accessor) Vec4s() [][4]float32 {
	f := a.Floats()
	out := make([][4]float32, a.Count)
	switch a.Type {
	case gltf.Vec4:
		for i := range out {
			out[i] = [4]float32{f[i*4], f[i*4+1], f[i*4+2], f[i*4+3]}
		}
	case gltf.Vec3:
		for i := range out {
			out[i] = [4]float32{f[i*3], f[i*3+1], f[i*3+2], 1}
		}
	default:
		return nil
	}
	return out
}

// Mat4s returns the elements of a MAT4 accessor.
func (a *Accessor) Mat4s() []math.Mat4 {
	if a.Type != gltf.Mat4 {
		return nil
	}
	f := a.Floats()
	out := make([]math.Mat4, a.Count)
	for i := range out {
		copy(out[i][:], f[i*16:i*16+16])
	}
	return out
}
