package gltf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// requiredFields lists, per object path, the keys that must be present.
// A "[]" suffix iterates over an array.
var requiredFields = []struct {
	path string
	keys []string
}{
	{"", []string{"asset"}},
	{"asset", []string{"version"}},
	{"buffers[]", []string{"byteLength"}},
	{"bufferViews[]", []string{"buffer", "byteLength"}},
	{"accessors[]", []string{"componentType", "count", "type"}},
	{"accessors[].sparse", []string{"count", "indices", "values"}},
	{"accessors[].sparse.indices", []string{"bufferView", "componentType"}},
	{"accessors[].sparse.values", []string{"bufferView"}},
	{"meshes[]", []string{"primitives"}},
	{"meshes[].primitives[]", []string{"attributes"}},
	{"meshes[].primitives[].extensions.KHR_draco_mesh_compression", []string{"bufferView", "attributes"}},
	{"materials[].pbrMetallicRoughness.baseColorTexture", []string{"index"}},
	{"materials[].pbrMetallicRoughness.metallicRoughnessTexture", []string{"index"}},
	{"materials[].normalTexture", []string{"index"}},
	{"materials[].occlusionTexture", []string{"index"}},
	{"materials[].emissiveTexture", []string{"index"}},
	{"materials[].extensions.KHR_materials_pbrSpecularGlossiness.diffuseTexture", []string{"index"}},
	{"materials[].extensions.KHR_materials_pbrSpecularGlossiness.specularGlossinessTexture", []string{"index"}},
	{"skins[]", []string{"joints"}},
	{"animations[]", []string{"channels", "samplers"}},
	{"animations[].channels[]", []string{"sampler", "target"}},
	{"animations[].channels[].target", []string{"path"}},
	{"animations[].samplers[]", []string{"input", "output"}},
	{"cameras[]", []string{"type"}},
	{"cameras[].perspective", []string{"yfov", "znear"}},
	{"cameras[].orthographic", []string{"xmag", "ymag", "zfar", "znear"}},
}

// Parse decodes a JSON scene description. Unknown fields are ignored.
// A missing required field or an unsupported asset version is a *FormatError.
func Parse(text []byte) (*Document, error) {
	var tree map[string]any
	if err := json.Unmarshal(text, &tree); err != nil {
		return nil, formatErr("document", fmt.Errorf("%w: %v", ErrMalformedJSON, err))
	}
	if tree == nil {
		return nil, formatErr("document", fmt.Errorf("%w: not an object", ErrMalformedJSON))
	}
	for _, rf := range requiredFields {
		if where := findMissing(tree, rf.path, rf.keys); where != "" {
			return nil, formatErr(where, ErrMissingField)
		}
	}

	var doc Document
	if err := json.Unmarshal(text, &doc); err != nil {
		return nil, formatErr("document", fmt.Errorf("%w: %v", ErrMalformedJSON, err))
	}

	major, _, _ := strings.Cut(doc.Asset.Version, ".")
	if major != "2" {
		return nil, formatErr("asset.version", fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Asset.Version))
	}
	return &doc, nil
}

// findMissing walks path through tree and returns the location of the first
// absent key, or "" if every object on the path has all keys.
func findMissing(tree map[string]any, path string, keys []string) string {
	var segments []string
	if path != "" {
		segments = strings.Split(path, ".")
	}
	return walkMissing(tree, "", segments, keys)
}

func walkMissing(node any, where string, segments []string, keys []string) string {
	if len(segments) == 0 {
		obj, ok := node.(map[string]any)
		if !ok {
			return ""
		}
		for _, k := range keys {
			if _, ok := obj[k]; !ok {
				return join(where, k)
			}
		}
		return ""
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	seg := segments[0]
	name, isArray := strings.CutSuffix(seg, "[]")
	child, ok := obj[name]
	if !ok {
		return ""
	}
	if !isArray {
		return walkMissing(child, join(where, name), segments[1:], keys)
	}
	items, ok := child.([]any)
	if !ok {
		return ""
	}
	for i, item := range items {
		if w := walkMissing(item, join(where, name)+"["+strconv.Itoa(i)+"]", segments[1:], keys); w != "" {
			return w
		}
	}
	return ""
}

func join(where, key string) string {
	if where == "" {
		return key
	}
	return where + "." + key
}
