package gltf

import "fmt"

// Extension names handled by this decoder.
const (
	ExtSpecularGlossiness = "KHR_materials_pbrSpecularGlossiness"
	ExtUnlit              = "KHR_materials_unlit"
	ExtTextureTransform   = "KHR_texture_transform"
	ExtMeshQuantization   = "KHR_mesh_quantization"
	ExtDraco              = "KHR_draco_mesh_compression"
	ExtBasisU             = "KHR_texture_basisu"
)

// extensionSupport tells whether a recognised extension is decoded here or
// only carried through for an external codec.
var extensionSupport = map[string]bool{
	ExtSpecularGlossiness: true,
	ExtUnlit:              true,
	ExtTextureTransform:   true,
	ExtMeshQuantization:   true,
	ExtDraco:              false,
	ExtBasisU:             false,
}

// IsRecognized reports whether name is an extension this decoder knows.
func IsRecognized(name string) bool {
	_, ok := extensionSupport[name]
	return ok
}

// CheckExtensions records a warning for every required extension that is
// either unknown or needs a codec this decoder does not have. It never fails.
func CheckExtensions(doc *Document, warnings *Warnings) {
	for _, name := range doc.ExtensionsRequired {
		decoded, known := extensionSupport[name]
		switch {
		case !known:
			warnings.Add(KindUnsupportedExtension, "extensions", -1, fmt.Errorf("%s", name))
		case !decoded:
			warnings.Add(KindCodecRequired, "extensions", -1, fmt.Errorf("%s: payload is passed through undecoded", name))
		}
	}
}
