// Package gltf reads glTF 2.0 scene descriptions and GLB containers.
package gltf

import (
	"errors"
	"fmt"
)

// Container and document errors. These are always wrapped in a *FormatError.
var (
	ErrInvalidMagic       = errors.New("invalid GLB magic: expected 'glTF'")
	ErrUnsupportedVersion = errors.New("unsupported glTF version")
	ErrTruncated          = errors.New("truncated GLB data")
	ErrUnexpectedChunk    = errors.New("unexpected GLB chunk type")
	ErrMalformedJSON      = errors.New("malformed JSON scene description")
	ErrMissingField       = errors.New("required field missing")
)

// Warning classes. A Warning unwraps to exactly one of these.
var (
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrUnsupportedExtension = errors.New("unsupported required extension")
	ErrCodecRequired        = errors.New("extension requires an external codec")
	ErrIO                   = errors.New("resource unavailable")
	ErrInvalidData          = errors.New("invalid entity data")
)

// ErrReleased is returned when bytes are read from a buffer after release.
var ErrReleased = errors.New("buffer already released")

// FormatError reports container framing corruption or a missing required
// field. It is fatal to the import that produced it.
type FormatError struct {
	Where string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Where == "" {
		return "gltf: " + e.Err.Error()
	}
	return fmt.Sprintf("gltf: %s: %v", e.Where, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(where string, err error) error {
	return &FormatError{Where: where, Err: err}
}

// IsFormatError reports whether err is, or wraps, a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
