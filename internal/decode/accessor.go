package decode

import (
	"context"
	"encoding/binary"
	gomath "math"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// maxZeroComponents caps accessors without a buffer view.
const maxZeroComponents = 1 << 26

func (s *Stages) decodeAccessors(ctx context.Context, report task.Progress) error {
	c := s.c
	views := s.BufferViews.Get()
	out := make([]*scene.Accessor, len(c.Doc.Accessors))
	step := progress(report, len(out))

	for i, a := range c.Doc.Accessors {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.accessor(i, a, views)
		step(i)
	}
	return s.Accessors.Set(out)
}

// layout describes how the elements of an accessor sit in memory.
type layout struct {
	size    int // component size
	comps   int // components per element
	rows    int // components per column
	colSize int // bytes per column, padded for matrices
	elem    int // bytes per element
}

func layoutOf(ct gltf.ComponentType, t gltf.AccessorType) (layout, bool) {
	size, comps := ct.Size(), t.Components()
	if size == 0 || comps == 0 {
		return layout{}, false
	}
	cols := t.Columns()
	rows := comps / cols
	colSize := rows * size
	if cols > 1 {
		// Matrix columns start on 4-byte boundaries.
		colSize = (colSize + 3) &^ 3
	}
	return layout{size: size, comps: comps, rows: rows, colSize: colSize, elem: colSize * cols}, true
}

func (s *Stages) accessor(i int, a gltf.Accessor, views []*scene.BufferView) *scene.Accessor {
	c := s.c
	l, ok := layoutOf(a.ComponentType, a.Type)
	if !ok {
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "unsupported layout %s %s", a.ComponentType, a.Type)
		return nil
	}
	if a.Count < 0 {
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "negative count %d", a.Count)
		return nil
	}

	out := &scene.Accessor{
		Name:          a.Name,
		ComponentType: a.ComponentType,
		Type:          a.Type,
		Count:         a.Count,
		Normalized:    a.Normalized,
		Min:           a.Min,
		Max:           a.Max,
	}

	if a.BufferView == nil {
		if a.Count > maxZeroComponents/l.comps {
			c.warnf(gltf.KindInvalidData, StageAccessor, i, "count %d too large without a buffer view", a.Count)
			return nil
		}
		allocate(out, a.Count*l.comps)
	} else {
		view := lookup(c, StageAccessor, i, "bufferView", *a.BufferView, views)
		if view == nil {
			return nil
		}
		data, err := view.Bytes()
		if err != nil {
			c.warnf(gltf.KindInvalidData, StageAccessor, i, "%v", err)
			return nil
		}
		stride := view.Stride
		if stride == 0 {
			stride = l.elem
		}
		if stride < l.elem {
			c.warnf(gltf.KindInvalidData, StageAccessor, i, "stride %d smaller than element size %d", stride, l.elem)
			return nil
		}
		if !fits(a.ByteOffset, stride, l.elem, a.Count, len(data)) {
			c.warnf(gltf.KindInvalidData, StageAccessor, i,
				"%d elements at offset %d with stride %d exceed %d bytes", a.Count, a.ByteOffset, stride, len(data))
			return nil
		}
		allocate(out, a.Count*l.comps)
		for e := 0; e < a.Count; e++ {
			readElement(out, l, e, data[a.ByteOffset+e*stride:])
		}
	}

	if a.Sparse != nil && !s.applySparse(i, out, l, a.Sparse, views) {
		return nil
	}
	return out
}

// fits reports whether count elements of elem bytes, stride apart from
// offset, lie within n bytes.
func fits(offset, stride, elem, count, n int) bool {
	if offset < 0 || offset > n || stride <= 0 {
		return false
	}
	if count == 0 {
		return true
	}
	// Bound count before multiplying so huge counts cannot overflow.
	if count-1 > (n-offset)/stride {
		return false
	}
	return offset+stride*(count-1)+elem <= n
}

func (s *Stages) applySparse(i int, out *scene.Accessor, l layout, sp *gltf.Sparse, views []*scene.BufferView) bool {
	c := s.c
	if sp.Count < 0 || sp.Count > out.Count {
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "sparse count %d exceeds %d", sp.Count, out.Count)
		return false
	}
	if sp.Count == 0 {
		return true
	}

	iv := lookup(c, StageAccessor, i, "sparse.indices.bufferView", sp.Indices.BufferView, views)
	vv := lookup(c, StageAccessor, i, "sparse.values.bufferView", sp.Values.BufferView, views)
	if iv == nil || vv == nil {
		return false
	}
	idxData, err := iv.Bytes()
	if err != nil {
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "%v", err)
		return false
	}
	valData, err := vv.Bytes()
	if err != nil {
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "%v", err)
		return false
	}

	idxSize := sp.Indices.ComponentType.Size()
	switch sp.Indices.ComponentType {
	case gltf.UnsignedByte, gltf.UnsignedShort, gltf.UnsignedInt:
	default:
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "sparse indices must be unsigned, got %s", sp.Indices.ComponentType)
		return false
	}
	if !fits(sp.Indices.ByteOffset, idxSize, idxSize, sp.Count, len(idxData)) ||
		!fits(sp.Values.ByteOffset, l.elem, l.elem, sp.Count, len(valData)) {
		c.warnf(gltf.KindInvalidData, StageAccessor, i, "sparse data exceeds its buffer views")
		return false
	}

	for k := 0; k < sp.Count; k++ {
		b := idxData[sp.Indices.ByteOffset+k*idxSize:]
		var target uint32
		switch idxSize {
		case 1:
			target = uint32(b[0])
		case 2:
			target = uint32(binary.LittleEndian.Uint16(b))
		default:
			target = binary.LittleEndian.Uint32(b)
		}
		if int64(target) >= int64(out.Count) {
			c.warnf(gltf.KindInvalidData, StageAccessor, i, "sparse index %d outside [0, %d)", target, out.Count)
			return false
		}
		readElement(out, l, int(target), valData[sp.Values.ByteOffset+k*l.elem:])
	}
	return true
}

func allocate(a *scene.Accessor, n int) {
	switch a.ComponentType {
	case gltf.Byte:
		a.Int8 = make([]int8, n)
	case gltf.UnsignedByte:
		a.Uint8 = make([]uint8, n)
	case gltf.Short:
		a.Int16 = make([]int16, n)
	case gltf.UnsignedShort:
		a.Uint16 = make([]uint16, n)
	case gltf.UnsignedInt:
		a.Uint32 = make([]uint32, n)
	case gltf.Float:
		a.Float32 = make([]float32, n)
	}
}

// readElement decodes element e from src, which starts at the element.
func readElement(a *scene.Accessor, l layout, e int, src []byte) {
	dst := e * l.comps
	for k := 0; k < l.comps; k++ {
		col, row := k/l.rows, k%l.rows
		b := src[col*l.colSize+row*l.size:]
		switch a.ComponentType {
		case gltf.Byte:
			a.Int8[dst+k] = int8(b[0])
		case gltf.UnsignedByte:
			a.Uint8[dst+k] = b[0]
		case gltf.Short:
			a.Int16[dst+k] = int16(binary.LittleEndian.Uint16(b))
		case gltf.UnsignedShort:
			a.Uint16[dst+k] = binary.LittleEndian.Uint16(b)
		case gltf.UnsignedInt:
			a.Uint32[dst+k] = binary.LittleEndian.Uint32(b)
		case gltf.Float:
			a.Float32[dst+k] = gomath.Float32frombits(binary.LittleEndian.Uint32(b))
		}
	}
}
