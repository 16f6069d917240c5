package decode

import (
	"context"
	"errors"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

func (s *Stages) decodeBuffers(ctx context.Context, report task.Progress) error {
	c := s.c
	out := make([]*scene.Buffer, len(c.Doc.Buffers))
	step := progress(report, len(out))

	for i, b := range c.Doc.Buffers {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := s.loadBuffer(i, b)
		if err != nil {
			if gltf.IsFormatError(err) {
				return err
			}
			step(i)
			continue
		}
		if b.ByteLength < 0 || len(data) < b.ByteLength {
			c.warnf(gltf.KindInvalidData, StageBuffer, i, "byteLength %d exceeds %d available bytes", b.ByteLength, len(data))
			step(i)
			continue
		}
		out[i] = scene.NewBuffer(b.Name, data[:b.ByteLength])
		step(i)
	}
	return s.Buffers.Set(out)
}

// loadBuffer returns the bytes of buffer i. Recoverable problems are
// recorded as warnings before the error is returned.
func (s *Stages) loadBuffer(i int, b gltf.Buffer) ([]byte, error) {
	c := s.c
	switch {
	case b.URI == "":
		// Only the first buffer of a GLB may refer to the BIN chunk.
		if i != 0 || c.Container == nil {
			c.warnf(gltf.KindInvalidData, StageBuffer, i, "buffer has no uri")
			return nil, gltf.ErrInvalidData
		}
		data, err := c.Container.Bin()
		if err != nil {
			return nil, err
		}
		if data == nil {
			c.warnf(gltf.KindIO, StageBuffer, i, "no BIN chunk present")
			return nil, gltf.ErrIO
		}
		return data, nil

	case encoding.IsDataURI(b.URI):
		data, _, err := encoding.DecodeDataURI(b.URI)
		if err != nil {
			c.warnf(gltf.KindInvalidData, StageBuffer, i, "%v", err)
			return nil, err
		}
		return data, nil

	default:
		data, err := c.Assets.Load(b.URI)
		if err != nil {
			c.warnf(gltf.KindIO, StageBuffer, i, "%v", err)
			return nil, errors.Join(gltf.ErrIO, err)
		}
		return data, nil
	}
}

func (s *Stages) decodeBufferViews(ctx context.Context, report task.Progress) error {
	c := s.c
	buffers := s.Buffers.Get()
	out := make([]*scene.BufferView, len(c.Doc.BufferViews))
	step := progress(report, len(out))

	for i, v := range c.Doc.BufferViews {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.bufferView(i, v, buffers)
		step(i)
	}
	return s.BufferViews.Set(out)
}

func (s *Stages) bufferView(i int, v gltf.BufferView, buffers []*scene.Buffer) *scene.BufferView {
	c := s.c
	buf := lookup(c, StageBufferView, i, "buffer", v.Buffer, buffers)
	if buf == nil {
		return nil
	}
	if v.ByteOffset < 0 || v.ByteLength < 0 || v.ByteOffset > buf.Len()-v.ByteLength {
		c.warnf(gltf.KindInvalidData, StageBufferView, i,
			"range [%d, %d) outside buffer %d of %d bytes", v.ByteOffset, v.ByteOffset+v.ByteLength, v.Buffer, buf.Len())
		return nil
	}
	if v.ByteStride != 0 && (v.ByteStride < 4 || v.ByteStride > 252) {
		c.warnf(gltf.KindInvalidData, StageBufferView, i, "byteStride %d outside [4, 252]", v.ByteStride)
		return nil
	}
	return &scene.BufferView{
		Name:   v.Name,
		Buffer: buf,
		Offset: v.ByteOffset,
		Length: v.ByteLength,
		Stride: v.ByteStride,
		Target: v.Target,
	}
}
