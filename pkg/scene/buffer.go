// Package scene holds the decoded, index-resolved records an import produces.
package scene

import (
	"fmt"
	"sync"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// Buffer owns raw bytes until Release is called.
type Buffer struct {
	Name string

	mu       sync.RWMutex
	data     []byte
	size     int
	released bool
}

// NewBuffer wraps data. The buffer takes ownership of the slice.
func NewBuffer(name string, data []byte) *Buffer {
	return &Buffer{Name: name, data: data, size: len(data)}
}

// Len returns the byte length, which stays valid after release.
func (b *Buffer) Len() int { return b.size }

// Slice returns data[offset:offset+length] without copying.
func (b *Buffer) Slice(offset, length int) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return nil, gltf.ErrReleased
	}
	if offset < 0 || length < 0 || offset > len(b.data)-length {
		return nil, fmt.Errorf("%w: range [%d, %d) outside buffer of %d bytes",
			gltf.ErrInvalidData, offset, offset+length, len(b.data))
	}
	return b.data[offset : offset+length : offset+length], nil
}

// Release drops the bytes. Later reads fail with gltf.ErrReleased.
func (b *Buffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = nil
	b.released = true
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.released
}

// BufferView is a non-owning byte range within a Buffer.
type BufferView struct {
	Name   string
	Buffer *Buffer
	Offset int
	Length int
	Stride int // 0 means tightly packed
	Target int
}

// Bytes returns the viewed range. It fails once the buffer is released.
func (v *BufferView) Bytes() ([]byte, error) {
	return v.Buffer.Slice(v.Offset, v.Length)
}
