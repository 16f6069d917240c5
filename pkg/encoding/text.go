// Package encoding provides text and URI helpers for glTF documents.
package encoding

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// URI errors.
var (
	ErrNotDataURI        = errors.New("not a data URI")
	ErrMalformedDataURI  = errors.New("malformed data URI")
	ErrUnsupportedScheme = errors.New("unsupported URI scheme")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// UTF8Text decodes UTF-8 text, dropping a leading byte order mark.
// Invalid sequences are replaced with U+FFFD.
func UTF8Text(data []byte) ([]byte, error) {
	decoder := unicode.UTF8BOM.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("decoding UTF-8 text: %w", err)
	}
	return result, nil
}

// HasBOM reports whether data starts with a UTF-8 byte order mark.
func HasBOM(data []byte) bool {
	return bytes.HasPrefix(data, utf8BOM)
}

// IsDataURI reports whether uri embeds its payload.
func IsDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// DecodeDataURI decodes "data:[<mediatype>][;base64],<payload>".
// It returns the payload and its media type (empty if not declared).
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", ErrNotDataURI
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: missing ','", ErrMalformedDataURI)
	}

	mediaType, isBase64 := header, false
	if strings.HasSuffix(header, ";base64") {
		mediaType = strings.TrimSuffix(header, ";base64")
		isBase64 = true
	}
	// Parameters such as ";charset=" are not part of the media type.
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}

	if !isBase64 {
		text, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
		}
		return []byte(text), mediaType, nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some exporters drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
		}
	}
	return data, mediaType, nil
}

// RelativePath turns a URI reference into a slash-separated relative path.
// Percent escapes are decoded. Absolute URIs with a scheme are rejected.
func RelativePath(uri string) (string, error) {
	uri = strings.ReplaceAll(uri, "\\", "/")
	u, err := url.Parse(uri)
	if err != nil {
		// Unescaped spaces and similar are common in exported files.
		return NormalizePath(uri), nil
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
	return NormalizePath(u.Path), nil
}

// NormalizePath converts backslashes to slashes and cleans the result.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}
