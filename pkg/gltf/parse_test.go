package gltf

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestParse_Minimal(t *testing.T) {
	doc, err := Parse([]byte(`{"asset":{"version":"2.0"},"buffers":[],"meshes":[],"nodes":[]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Asset.Version != "2.0" {
		t.Errorf("expected version 2.0, got %s", doc.Asset.Version)
	}
	if len(doc.Nodes) != 0 || len(doc.Meshes) != 0 {
		t.Error("expected empty arrays")
	}
	if doc.Scene != nil {
		t.Error("expected no default scene")
	}
}

func TestParse_IgnoresUnknownFields(t *testing.T) {
	text := `{
		"asset": {"version": "2.0", "futureField": 7},
		"somethingNew": {"a": [1, 2, 3]},
		"nodes": [{"name": "a", "mystery": true}]
	}`
	doc, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Nodes) != 1 || doc.Nodes[0].Name != "a" {
		t.Errorf("unexpected nodes %+v", doc.Nodes)
	}
}

func TestParse_FullDocument(t *testing.T) {
	text := `{
		"asset": {"version": "2.0", "generator": "test"},
		"scene": 0,
		"scenes": [{"nodes": [0]}],
		"nodes": [{"mesh": 0, "children": [1], "translation": [1, 2, 3]}, {"camera": 0}],
		"cameras": [{"type": "perspective", "perspective": {"yfov": 0.8, "znear": 0.1}}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
		"materials": [{"pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}, "alphaMode": "BLEND"}],
		"textures": [{"source": 0, "sampler": 0}],
		"samplers": [{"wrapS": 33071}],
		"images": [{"uri": "a.png"}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
		],
		"bufferViews": [{"buffer": 0, "byteLength": 36}, {"buffer": 0, "byteOffset": 36, "byteLength": 6}],
		"buffers": [{"byteLength": 42}]
	}`
	doc, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if doc.Scene == nil || *doc.Scene != 0 {
		t.Error("expected default scene 0")
	}
	if *doc.Nodes[0].Translation != [3]float32{1, 2, 3} {
		t.Errorf("unexpected translation %v", *doc.Nodes[0].Translation)
	}
	if doc.Accessors[0].ComponentType != Float || doc.Accessors[0].Type != Vec3 {
		t.Errorf("unexpected accessor %+v", doc.Accessors[0])
	}
	if doc.Accessors[1].ComponentType.Size() != 2 {
		t.Errorf("expected 2-byte indices")
	}
	if doc.Materials[0].AlphaMode != "BLEND" {
		t.Errorf("expected BLEND, got %s", doc.Materials[0].AlphaMode)
	}
	if doc.Cameras[0].Perspective.ZFar != nil {
		t.Error("expected infinite perspective")
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		where string
	}{
		{"no asset", `{}`, "asset"},
		{"no version", `{"asset":{}}`, "asset.version"},
		{"buffer length", `{"asset":{"version":"2.0"},"buffers":[{"uri":"a.bin"}]}`, "buffers[0].byteLength"},
		{"view buffer", `{"asset":{"version":"2.0"},"bufferViews":[{"byteLength":4}]}`, "bufferViews[0].buffer"},
		{"accessor type", `{"asset":{"version":"2.0"},"accessors":[{"componentType":5126,"count":1}]}`, "accessors[0].type"},
		{"primitive attributes", `{"asset":{"version":"2.0"},"meshes":[{"primitives":[{}]}]}`, "meshes[0].primitives[0].attributes"},
		{"texture index", `{"asset":{"version":"2.0"},"materials":[{},{"normalTexture":{}}]}`, "materials[1].normalTexture.index"},
		{"channel path", `{"asset":{"version":"2.0"},"animations":[{"samplers":[],"channels":[{"sampler":0,"target":{}}]}]}`, "animations[0].channels[0].target.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.text))
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("expected ErrMissingField, got %v", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FormatError, got %T", err)
			}
			if fe.Where != tt.where {
				t.Errorf("expected location %q, got %q", tt.where, fe.Where)
			}
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"asset":`))
	if !errors.Is(err, ErrMalformedJSON) {
		t.Errorf("expected ErrMalformedJSON, got %v", err)
	}
}

func TestParse_UnsupportedAssetVersion(t *testing.T) {
	_, err := Parse([]byte(`{"asset":{"version":"1.0"}}`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestCheckExtensions(t *testing.T) {
	doc := &Document{ExtensionsRequired: []string{
		ExtSpecularGlossiness,
		ExtDraco,
		"EXT_totally_made_up",
	}}
	w := NewWarnings(zap.NewNop())

	CheckExtensions(doc, w)

	if w.Count(KindUnsupportedExtension) != 1 {
		t.Errorf("expected 1 unsupported extension warning, got %d", w.Count(KindUnsupportedExtension))
	}
	if w.Count(KindCodecRequired) != 1 {
		t.Errorf("expected 1 codec warning, got %d", w.Count(KindCodecRequired))
	}
	for _, wr := range w.List() {
		if wr.Kind == KindUnsupportedExtension && !strings.Contains(wr.Error(), "EXT_totally_made_up") {
			t.Errorf("warning should name the extension: %v", wr)
		}
	}
}

func TestWarnings_ErrAndUnwrap(t *testing.T) {
	w := NewWarnings(nil)
	if w.Err() != nil {
		t.Error("expected nil error with no warnings")
	}

	w.Addf(KindIndexOutOfRange, "material", 2, "baseColorTexture %d >= %d", 3, 3)
	w.Addf(KindIO, "image", 0, "missing file")

	if w.Len() != 2 {
		t.Fatalf("expected 2 warnings, got %d", w.Len())
	}
	err := w.Err()
	if !errors.Is(err, ErrIndexOutOfRange) || !errors.Is(err, ErrIO) {
		t.Errorf("combined error should match both kinds: %v", err)
	}
	if errors.Is(w.List()[0], ErrIO) {
		t.Error("index warning must not match ErrIO")
	}
}
