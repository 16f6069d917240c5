package gltf

import (
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/midgard-gltf/pkg/encoding"
)

// GLB framing constants.
const (
	Magic           uint32 = 0x46546C67 // "glTF"
	ContainerV2     uint32 = 2
	HeaderSize             = 12
	ChunkHeaderSize        = 8
	ChunkJSON       uint32 = 0x4E4F534A // "JSON"
	ChunkBIN        uint32 = 0x004E4942 // "BIN\0"
)

// Header is the fixed 12-byte GLB header.
type Header struct {
	Magic   uint32
	Version uint32
	Length  uint32
}

// Container is the framing of one import input: the JSON text and, for GLB,
// where the optional binary chunk begins.
type Container struct {
	JSON []byte

	// BinChunkOffset is the byte offset of the second chunk header.
	// Zero means the input has no binary chunk (text variant).
	BinChunkOffset int

	raw []byte
}

// ReadHeader validates the GLB header.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, formatErr("header", ErrTruncated)
	}
	h := Header{
		Magic:   binary.LittleEndian.Uint32(data[0:4]),
		Version: binary.LittleEndian.Uint32(data[4:8]),
		Length:  binary.LittleEndian.Uint32(data[8:12]),
	}
	if h.Magic != Magic {
		return Header{}, formatErr("header", ErrInvalidMagic)
	}
	if h.Version != ContainerV2 {
		return Header{}, formatErr("header", fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version))
	}
	return h, nil
}

// ReadContainer parses a GLB file. The JSON chunk is decoded immediately;
// the binary chunk is only located.
func ReadContainer(data []byte) (*Container, error) {
	if _, err := ReadHeader(data); err != nil {
		return nil, err
	}
	if len(data) < HeaderSize+ChunkHeaderSize {
		return nil, formatErr("JSON chunk header", ErrTruncated)
	}

	chunkLength := int(binary.LittleEndian.Uint32(data[12:16]))
	chunkType := binary.LittleEndian.Uint32(data[16:20])
	if chunkType != ChunkJSON {
		return nil, formatErr("JSON chunk header", fmt.Errorf("%w: 0x%08X", ErrUnexpectedChunk, chunkType))
	}

	start := HeaderSize + ChunkHeaderSize
	if chunkLength < 0 || len(data)-start < chunkLength {
		return nil, formatErr("JSON chunk", fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, chunkLength, len(data)-start))
	}

	text, err := encoding.UTF8Text(data[start : start+chunkLength])
	if err != nil {
		return nil, formatErr("JSON chunk", err)
	}

	return &Container{
		JSON:           text,
		BinChunkOffset: chunkLength + HeaderSize + ChunkHeaderSize,
		raw:            data,
	}, nil
}

// ReadText wraps a plain .gltf document. There is no binary chunk.
func ReadText(data []byte) (*Container, error) {
	text, err := encoding.UTF8Text(data)
	if err != nil {
		return nil, formatErr("document", err)
	}
	return &Container{JSON: text}, nil
}

// Bin reads the binary chunk. It returns nil when the input has none.
func (c *Container) Bin() ([]byte, error) {
	if c.BinChunkOffset == 0 || c.BinChunkOffset >= len(c.raw) {
		return nil, nil
	}
	off := c.BinChunkOffset
	if len(c.raw)-off < ChunkHeaderSize {
		return nil, formatErr("BIN chunk header", ErrTruncated)
	}
	length := int(binary.LittleEndian.Uint32(c.raw[off : off+4]))
	chunkType := binary.LittleEndian.Uint32(c.raw[off+4 : off+8])
	if chunkType != ChunkBIN {
		return nil, formatErr("BIN chunk header", fmt.Errorf("%w: 0x%08X", ErrUnexpectedChunk, chunkType))
	}
	start := off + ChunkHeaderSize
	if length < 0 || len(c.raw)-start < length {
		return nil, formatErr("BIN chunk", fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, length, len(c.raw)-start))
	}
	return c.raw[start : start+length], nil
}
