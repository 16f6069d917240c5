package importer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// Format is the container format of a source.
type Format int

const (
	// FormatAuto detects the format from the data: GLB when the input
	// starts with the GLB magic, glTF text otherwise.
	FormatAuto Format = iota
	FormatGLB
	FormatGLTF
)

func (f Format) String() string {
	switch f {
	case FormatGLB:
		return "glb"
	case FormatGLTF:
		return "gltf"
	default:
		return "auto"
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb":
		return FormatGLB
	case ".gltf":
		return FormatGLTF
	default:
		return FormatAuto
	}
}

// Source is one import input. Relative resource URIs resolve against Dir.
type Source struct {
	data   []byte
	path   string
	dir    string
	format Format
}

// GLB returns a source for an in-memory binary container. External
// resources, if any, resolve against the importer's search paths only.
func GLB(data []byte) Source {
	return Source{data: data, format: FormatGLB}
}

// GLTF returns a source for in-memory glTF JSON text. dir is the directory
// external resources are resolved against; it may be empty.
func GLTF(text []byte, dir string) Source {
	return Source{data: text, dir: dir, format: FormatGLTF}
}

// File returns a source read from path. External resources resolve against
// the file's directory.
func File(path string, format Format) Source {
	return Source{path: path, dir: filepath.Dir(path), format: format}
}

// Dir returns the directory external resources resolve against.
func (s Source) Dir() string { return s.dir }

func (s Source) String() string {
	if s.path != "" {
		return s.path
	}
	return fmt.Sprintf("<%s, %d bytes>", s.format, len(s.data))
}

// read returns the container framing of the source.
func (s Source) read() (*gltf.Container, error) {
	data := s.data
	if s.path != "" {
		var err error
		if data, err = os.ReadFile(s.path); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
	}

	format := s.format
	if format == FormatAuto {
		format = detect(data)
	}
	if format == FormatGLB {
		return gltf.ReadContainer(data)
	}
	return gltf.ReadText(data)
}

func detect(data []byte) Format {
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltf.Magic {
		return FormatGLB
	}
	if trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf"); len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatGLTF
	}
	// Neither JSON nor GLB; the container reader reports the framing error.
	return FormatGLB
}
