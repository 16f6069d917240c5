// Package decode resolves the arrays of a glTF document into scene records,
// one stage per array kind.
package decode

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/assets"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

// Stage names.
const (
	StageBuffer     = "buffer"
	StageBufferView = "bufferView"
	StageAccessor   = "accessor"
	StageImage      = "image"
	StageSkin       = "skin"
	StageTexture    = "texture"
	StageMaterial   = "material"
	StageMesh       = "mesh"
	StageNode       = "node"
	StageAnimation  = "animation"
)

// Host builds engine objects from decoded records. Every method runs on the
// goroutine driving the import.
type Host interface {
	CreateTexture(p task.Primary, tex *scene.Texture) error
	CreateMaterial(p task.Primary, mat *scene.Material) error
	CreateMesh(p task.Primary, mesh *scene.Mesh) error
}

// Settings are the per-import decoding options.
type Settings struct {
	GenerateNormals bool
	Shaders         scene.ShaderSet
}

// Context is the read-only input shared by all stages of one import.
type Context struct {
	Doc       *gltf.Document
	Container *gltf.Container
	Assets    *assets.Manager
	Warnings  *gltf.Warnings
	Settings  Settings
	Host      Host // optional
	Log       *zap.Logger
}

// Stages holds the result slot of every stage. Each slot is written once by
// its stage's background phase.
type Stages struct {
	c *Context

	Buffers     task.Slot[[]*scene.Buffer]
	BufferViews task.Slot[[]*scene.BufferView]
	Accessors   task.Slot[[]*scene.Accessor]
	Images      task.Slot[[]*scene.Image]
	Skins       task.Slot[[]*scene.Skin]
	Textures    task.Slot[[]*scene.Texture]
	Materials   task.Slot[[]*scene.Material]
	Meshes      task.Slot[[]*scene.Mesh]
	Cameras     task.Slot[[]*scene.Camera]
	Nodes       task.Slot[[]*scene.Node]
	Clips       task.Slot[[]*scene.Clip]
}

// NewStages prepares empty result slots for c.
func NewStages(c *Context) *Stages {
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	if c.Warnings == nil {
		c.Warnings = gltf.NewWarnings(c.Log)
	}
	if c.Assets == nil {
		c.Assets = assets.NewManager()
	}
	return &Stages{c: c}
}

// Definition declares one stage: its upstream stages and its two phases.
type Definition struct {
	Name       string
	Upstream   []string
	Background task.Background
	Foreground task.Foreground
}

// Definitions returns the stage DAG in declaration order.
func (s *Stages) Definitions() []Definition {
	defs := []Definition{
		{Name: StageBuffer, Background: s.decodeBuffers},
		{Name: StageBufferView, Upstream: []string{StageBuffer}, Background: s.decodeBufferViews},
		{Name: StageAccessor, Upstream: []string{StageBufferView}, Background: s.decodeAccessors},
		{Name: StageImage, Upstream: []string{StageBufferView, StageAccessor}, Background: s.decodeImages},
		{Name: StageSkin, Upstream: []string{StageAccessor}, Background: s.decodeSkins},
		{Name: StageTexture, Upstream: []string{StageImage}, Background: s.decodeTextures},
		{Name: StageMaterial, Upstream: []string{StageTexture}, Background: s.decodeMaterials},
		{Name: StageMesh, Upstream: []string{StageAccessor, StageBufferView, StageMaterial}, Background: s.decodeMeshes},
		{Name: StageNode, Upstream: []string{StageMesh, StageSkin}, Background: s.decodeNodes},
		{Name: StageAnimation, Upstream: []string{StageAccessor, StageNode}, Background: s.decodeAnimations},
	}
	if s.c.Host != nil {
		for i := range defs {
			switch defs[i].Name {
			case StageTexture:
				defs[i].Foreground = s.createTextures
			case StageMaterial:
				defs[i].Foreground = s.createMaterials
			case StageMesh:
				defs[i].Foreground = s.createMeshes
			}
		}
	}
	return defs
}

// Context returns the shared input.
func (s *Stages) Context() *Context { return s.c }

func (c *Context) warnf(kind gltf.Kind, stage string, index int, format string, args ...any) {
	c.Warnings.Addf(kind, stage, index, format, args...)
}

// index validates i against an array of n elements. Out-of-range values
// record one warning and report false.
func (c *Context) index(stage string, owner int, field string, i, n int) bool {
	if i < 0 || i >= n {
		c.warnf(gltf.KindIndexOutOfRange, stage, owner, "%s %d outside [0, %d)", field, i, n)
		return false
	}
	return true
}

// lookup resolves a required index into items. The result is nil when the
// index is out of range or the referenced entity failed to decode.
func lookup[T any](c *Context, stage string, owner int, field string, i int, items []*T) *T {
	if !c.index(stage, owner, field, i, len(items)) {
		return nil
	}
	return items[i]
}

// lookupOpt resolves an optional index; nil pointers resolve to nil quietly.
func lookupOpt[T any](c *Context, stage string, owner int, field string, i *int, items []*T) *T {
	if i == nil {
		return nil
	}
	return lookup(c, stage, owner, field, *i, items)
}

// progress returns a reporter for n elements of a stage.
func progress(report task.Progress, n int) func(i int) {
	return func(i int) {
		if n > 0 {
			report(float64(i+1) / float64(n))
		}
	}
}

func defaultName(name, prefix string, i int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("%s%d", prefix, i)
}
