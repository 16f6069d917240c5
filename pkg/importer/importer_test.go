package importer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	gomath "math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

const minimal = `{"asset": {"version": "2.0"}, "buffers": [], "meshes": [], "nodes": []}`

func floatBytes(vals ...float32) []byte {
	var b []byte
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint32(b, gomath.Float32bits(v))
	}
	return b
}

// buildGLB frames text and bin as a GLB container, padding both chunks.
func buildGLB(text string, bin []byte) []byte {
	j := []byte(text)
	for len(j)%4 != 0 {
		j = append(j, ' ')
	}
	b := append([]byte{}, bin...)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}

	total := gltf.HeaderSize + gltf.ChunkHeaderSize + len(j)
	if bin != nil {
		total += gltf.ChunkHeaderSize + len(b)
	}
	var out []byte
	out = binary.LittleEndian.AppendUint32(out, gltf.Magic)
	out = binary.LittleEndian.AppendUint32(out, gltf.ContainerV2)
	out = binary.LittleEndian.AppendUint32(out, uint32(total))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(j)))
	out = binary.LittleEndian.AppendUint32(out, gltf.ChunkJSON)
	out = append(out, j...)
	if bin != nil {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(b)))
		out = binary.LittleEndian.AppendUint32(out, gltf.ChunkBIN)
		out = append(out, b...)
	}
	return out
}

// triangleGLB is a textured triangle with one animation.
func triangleGLB() []byte {
	bin := floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0)       // positions
	bin = append(bin, floatBytes(0, 1)...)             // times
	bin = append(bin, floatBytes(0, 0, 0, 0, 3, 0)...) // translations
	text := fmt.Sprintf(`{
		"asset": {"version": "2.0", "generator": "test"},
		"scene": 0,
		"scenes": [{"nodes": [0]}],
		"buffers": [{"byteLength": %d}],
		"bufferViews": [
			{"buffer": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 8},
			{"buffer": 0, "byteOffset": 44, "byteLength": 24}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 2, "type": "SCALAR"},
			{"bufferView": 2, "componentType": 5126, "count": 2, "type": "VEC3"}
		],
		"images": [{"uri": "data:image/png;base64,AAAA"}],
		"textures": [{"source": 0}],
		"materials": [{"name": "paint", "pbrMetallicRoughness": {"baseColorTexture": {"index": 0}}}],
		"meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}],
		"nodes": [{"name": "body", "mesh": 0}],
		"animations": [{
			"name": "lift",
			"channels": [{"sampler": 0, "target": {"node": 0, "path": "translation"}}],
			"samplers": [{"input": 1, "output": 2}]
		}]
	}`, len(bin))
	return buildGLB(text, bin)
}

type recordingHost struct {
	stages    []string
	textures  []*scene.Texture
	materials []*scene.Material
	meshes    []*scene.Mesh
	fail      error
}

func (h *recordingHost) CreateTexture(p task.Primary, tex *scene.Texture) error {
	h.stages = append(h.stages, p.Stage())
	h.textures = append(h.textures, tex)
	tex.Handle = len(h.textures)
	return nil
}

func (h *recordingHost) CreateMaterial(p task.Primary, mat *scene.Material) error {
	h.stages = append(h.stages, p.Stage())
	h.materials = append(h.materials, mat)
	return nil
}

func (h *recordingHost) CreateMesh(p task.Primary, mesh *scene.Mesh) error {
	h.stages = append(h.stages, p.Stage())
	h.meshes = append(h.meshes, mesh)
	return h.fail
}

func TestLoadCorruptMagic(t *testing.T) {
	data := buildGLB(minimal, nil)
	data[0] = 'x'

	calls := 0
	res, err := New().Load(context.Background(), GLB(data), func(r *Result, err error) {
		calls++
		assert.Nil(t, r)
		assert.Error(t, err)
	})

	require.Error(t, err)
	assert.True(t, gltf.IsFormatError(err))
	assert.ErrorIs(t, err, gltf.ErrInvalidMagic)
	assert.Nil(t, res)
	assert.Equal(t, 1, calls)
}

func TestLoadMinimal(t *testing.T) {
	for _, src := range []Source{GLTF([]byte(minimal), ""), GLB(buildGLB(minimal, nil))} {
		res, err := New().Load(context.Background(), src, nil)
		require.NoError(t, err, src.String())
		require.NotNil(t, res.Root)
		assert.Empty(t, res.Root.Children)
		assert.NotNil(t, res.Clips)
		assert.Empty(t, res.Clips)
		assert.Empty(t, res.Warnings)
	}
}

func TestLoadMissingRequiredField(t *testing.T) {
	_, err := New().Load(context.Background(), GLTF([]byte(`{
		"asset": {"version": "2.0"},
		"materials": [{"normalTexture": {"texCoord": 1}}]
	}`), ""), nil)

	var fe *gltf.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "materials[0].normalTexture.index", fe.Where)
	assert.ErrorIs(t, err, gltf.ErrMissingField)
}

func TestLoadWithHost(t *testing.T) {
	host := &recordingHost{}
	var fractions []float64
	im := New(WithHost(host), WithProgress(func(f float64) { fractions = append(fractions, f) }))

	res, err := im.Load(context.Background(), GLB(triangleGLB()), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"texture", "material", "mesh"}, host.stages)
	require.Len(t, host.meshes, 1)
	assert.Same(t, host.materials[0], host.meshes[0].Primitives[0].Material)
	assert.Equal(t, 1, host.materials[0].BaseColorTexture.Texture.Handle)

	assert.Equal(t, "body", res.Root.Name)
	assert.Equal(t, "tri", res.Root.Mesh.Name)
	require.Len(t, res.Clips, 1)
	assert.Equal(t, "lift", res.Clips[0].Name)
	assert.Equal(t, float32(1), res.Clips[0].Duration)
	assert.Equal(t, "test", res.Document.Asset.Generator)

	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
}

func TestLoadHostErrorIsFatal(t *testing.T) {
	boom := errors.New("out of video memory")
	host := &recordingHost{fail: boom}

	var got error
	res, err := New(WithHost(host)).Load(context.Background(), GLB(triangleGLB()), func(_ *Result, err error) {
		got = err
	})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, got, boom)
}

func TestLoadAsyncPump(t *testing.T) {
	host := &recordingHost{}
	var fractions []float64
	finished := 0

	job, err := New(WithHost(host), WithSettings(Settings{Workers: 2, Shaders: scene.DefaultShaderSet()})).
		LoadAsync(context.Background(), GLB(triangleGLB()),
			func(r *Result, err error) {
				finished++
				assert.NoError(t, err)
				assert.NotNil(t, r)
			},
			func(f float64) { fractions = append(fractions, f) })
	require.NoError(t, err)

	for !job.Pump() {
		runtime.Gosched()
	}
	assert.True(t, job.Done())
	assert.Equal(t, 1, finished)

	res, err := job.Result()
	require.NoError(t, err)
	assert.Equal(t, "body", res.Root.Name)
	assert.Equal(t, []string{"texture", "material", "mesh"}, host.stages)

	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	assert.Equal(t, 1.0, job.Progress())

	// Further pumping is a no-op.
	assert.True(t, job.Pump())
	assert.Equal(t, 1, finished)
}

func TestLoadAsyncStageProgress(t *testing.T) {
	perStage := map[string][]float64{}
	im := New(
		WithHost(&recordingHost{}),
		WithSettings(Settings{Workers: 2, Shaders: scene.DefaultShaderSet()}),
		WithStageProgress(func(stage string, f float64) { perStage[stage] = append(perStage[stage], f) }),
	)

	job, err := im.LoadAsync(context.Background(), GLB(triangleGLB()), nil, nil)
	require.NoError(t, err)
	_, err = job.Wait(context.Background())
	require.NoError(t, err)

	stages := []string{"buffer", "bufferView", "accessor", "image", "skin",
		"texture", "material", "mesh", "node", "animation"}
	require.Len(t, perStage, len(stages))
	for _, name := range stages {
		vals := perStage[name]
		require.NotEmpty(t, vals, "no progress for %s", name)
		ones := 0
		for i, v := range vals {
			if v == 1 {
				ones++
			}
			if i > 0 {
				assert.GreaterOrEqual(t, v, vals[i-1], "%s progress decreased: %v", name, vals)
			}
		}
		assert.Equal(t, 1, ones, "%s should reach 1.0 exactly once: %v", name, vals)
		assert.Equal(t, 1.0, vals[len(vals)-1], name)
	}
	// Background decoding fills the first half of a stage with a host phase.
	assert.Contains(t, perStage["mesh"], 0.5)
}

func TestLoadAsyncMode(t *testing.T) {
	im := New(WithSettings(Settings{Mode: Async, Shaders: scene.DefaultShaderSet()}))
	res, err := im.Load(context.Background(), GLB(triangleGLB()), nil)
	require.NoError(t, err)
	assert.Equal(t, math.Vec3{X: 0.5, Y: 0.5}, res.Root.Mesh.Bounds().Center())
}

func TestLoadAsyncCorrupt(t *testing.T) {
	calls := 0
	job, err := New().LoadAsync(context.Background(), GLB([]byte("junk")), func(r *Result, err error) {
		calls++
	}, nil)
	assert.Nil(t, job)
	assert.True(t, gltf.IsFormatError(err))
	assert.Equal(t, 1, calls)
}

func TestLoadFileWithExternalResources(t *testing.T) {
	dir := t.TempDir()
	bin := floatBytes(0, 0, 0, 2, 0, 0, 0, 2, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tri.bin"), bin, 0644))
	text := `{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "tri.bin", "byteLength": 36}],
		"bufferViews": [{"buffer": 0, "byteLength": 36}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"images": [{"uri": "shared/albedo.png"}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		"nodes": [{"mesh": 0}, {"name": "light"}]
	}`
	path := filepath.Join(dir, "tri.gltf")
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))

	shared := fstest.MapFS{"shared/albedo.png": {Data: []byte{1, 2, 3}}}
	res, err := New(WithFS("shared", shared)).Load(context.Background(), File(path, FormatAuto), nil)
	require.NoError(t, err)

	// Two parentless nodes are adopted by a synthesized root.
	assert.Equal(t, "root", res.Root.Name)
	require.Len(t, res.Root.Children, 2)
	mesh := res.Root.Children[0].Mesh
	require.NotNil(t, mesh)
	assert.Equal(t, math.Vec3{X: 2, Y: 2}, mesh.Bounds().Max)
	assert.Empty(t, res.Warnings)
}

func TestLoadExtensionWarnings(t *testing.T) {
	res, err := New().Load(context.Background(), GLTF([]byte(`{
		"asset": {"version": "2.0"},
		"extensionsUsed": ["EXT_unknown", "KHR_draco_mesh_compression"],
		"extensionsRequired": ["EXT_unknown", "KHR_draco_mesh_compression"]
	}`), ""), nil)
	require.NoError(t, err)

	kinds := map[gltf.Kind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[gltf.KindUnsupportedExtension])
	assert.Equal(t, 1, kinds[gltf.KindCodecRequired])
	assert.ErrorIs(t, res.Warnings[0], gltf.ErrUnsupportedExtension)
}

func TestLoadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := New().Load(ctx, GLB(triangleGLB()), nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gltfimport.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import:\n  mode: async\n  workers: 3\n  generate_normals: true\n"), 0644))

	im, err := FromConfigFile(path)
	require.NoError(t, err)
	s := im.Settings()
	assert.Equal(t, Async, s.Mode)
	assert.Equal(t, 3, s.Workers)
	assert.True(t, s.GenerateNormals)
	assert.Equal(t, scene.DefaultShaderSet(), s.Shaders)

	require.NoError(t, os.WriteFile(path, []byte("import:\n  mode: turbo\n"), 0644))
	_, err = FromConfigFile(path)
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatGLB, detect(buildGLB(minimal, nil)))
	assert.Equal(t, FormatGLTF, detect([]byte("\xef\xbb\xbf  {}")))
	assert.Equal(t, FormatGLB, FormatFromPath("a/b.GLB"))
	assert.Equal(t, FormatAuto, FormatFromPath("a/b.obj"))
}
