package decode

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// MimeKTX2 is the media type of KTX2 containers, the carrier for Basis
// Universal textures.
const MimeKTX2 = "image/ktx2"

var ktx2Magic = []byte{0xAB, 'K', 'T', 'X', ' ', '2', '0', 0xBB, '\r', '\n', 0x1A, '\n'}

func init() {
	filetype.AddMatcher(filetype.NewType("ktx2", MimeKTX2), func(buf []byte) bool {
		return bytes.HasPrefix(buf, ktx2Magic)
	})
}

func (s *Stages) decodeImages(ctx context.Context, report task.Progress) error {
	c := s.c
	views := s.BufferViews.Get()
	out := make([]*scene.Image, len(c.Doc.Images))
	step := progress(report, len(out))

	for i, img := range c.Doc.Images {
		if err := ctx.Err(); err != nil {
			return err
		}
		out[i] = s.image(i, img, views)
		step(i)
	}
	return s.Images.Set(out)
}

func (s *Stages) image(i int, img gltf.Image, views []*scene.BufferView) *scene.Image {
	c := s.c
	out := &scene.Image{Name: img.Name, MimeType: img.MimeType}

	switch {
	case img.URI != "" && !encoding.IsDataURI(img.URI):
		data, err := c.Assets.Load(img.URI)
		if err == nil {
			out.Data = data
			out.Path = c.Assets.Locate(img.URI)
			break
		}
		c.warnf(gltf.KindIO, StageImage, i, "%v", err)
		if img.BufferView == nil {
			return nil
		}
		if out.Data = s.imageView(i, *img.BufferView, views); out.Data == nil {
			return nil
		}

	case img.URI != "":
		data, mime, err := encoding.DecodeDataURI(img.URI)
		if err != nil {
			c.warnf(gltf.KindInvalidData, StageImage, i, "%v", err)
			return nil
		}
		out.Data = data
		if out.MimeType == "" {
			out.MimeType = mime
		}

	case img.BufferView != nil:
		if out.Data = s.imageView(i, *img.BufferView, views); out.Data == nil {
			return nil
		}

	default:
		c.warnf(gltf.KindInvalidData, StageImage, i, "image has neither uri nor bufferView")
		return nil
	}

	if out.MimeType == "" || out.MimeType == "application/octet-stream" {
		if kind, err := filetype.Match(out.Data); err == nil && kind != filetype.Unknown {
			out.MimeType = kind.MIME.Value
		}
	}
	if out.MimeType == MimeKTX2 || bytes.HasPrefix(out.Data, ktx2Magic) {
		out.MimeType = MimeKTX2
		out.NeedsCodec = true
		return out
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Data)); err == nil {
		out.Width, out.Height = cfg.Width, cfg.Height
	} else {
		c.Log.Debug("image dimensions unavailable",
			zap.Int("image", i), zap.String("mime", out.MimeType), zap.Error(err))
	}
	return out
}

// imageView copies the bytes of a buffer view so the image outlives the
// import's buffers.
func (s *Stages) imageView(i, v int, views []*scene.BufferView) []byte {
	c := s.c
	view := lookup(c, StageImage, i, "bufferView", v, views)
	if view == nil {
		return nil
	}
	data, err := view.Bytes()
	if err != nil {
		c.warnf(gltf.KindInvalidData, StageImage, i, "%v", err)
		return nil
	}
	return bytes.Clone(data)
}
