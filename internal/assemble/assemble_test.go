package assemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-gltf/internal/decode"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

func decodeText(t *testing.T, text string) *decode.Stages {
	t.Helper()
	doc, err := gltf.Parse([]byte(text))
	require.NoError(t, err)
	s := decode.NewStages(&decode.Context{Doc: doc})
	for _, def := range s.Definitions() {
		require.NoError(t, def.Background(context.Background(), func(float64) {}), def.Name)
	}
	return s
}

func TestMinimalScene(t *testing.T) {
	s := decodeText(t, `{"asset": {"version": "2.0"}, "buffers": [], "meshes": [], "nodes": []}`)
	out := Assemble(s)

	require.NotNil(t, out.Root)
	assert.Equal(t, RootName, out.Root.Name)
	assert.Equal(t, -1, out.Root.Index)
	assert.Empty(t, out.Root.Children)
	assert.NotNil(t, out.Clips)
	assert.Empty(t, out.Clips)
}

func TestSingleRootIsKept(t *testing.T) {
	s := decodeText(t, `{
		"asset": {"version": "2.0"},
		"nodes": [
			{"name": "hips", "children": [1], "translation": [0, 1, 0]},
			{"name": "spine", "translation": [0, 2, 0]}
		]
	}`)
	out := Assemble(s)

	assert.Equal(t, "hips", out.Root.Name)
	spine := out.Root.Find("spine")
	require.NotNil(t, spine)
	assert.Equal(t, math.Vec3{Y: 3}, spine.World.Translation())
}

func TestDefaultSceneSelectsRoots(t *testing.T) {
	s := decodeText(t, `{
		"asset": {"version": "2.0"},
		"scene": 1,
		"scenes": [{"nodes": [0]}, {"nodes": [1, 2, 7]}],
		"nodes": [{"name": "a"}, {"name": "b"}, {"name": "c"}]
	}`)
	out := Assemble(s)

	assert.Equal(t, RootName, out.Root.Name)
	require.Len(t, out.Root.Children, 2)
	assert.Equal(t, "b", out.Root.Children[0].Name)
	assert.Equal(t, "c", out.Root.Children[1].Name)
	assert.Nil(t, out.Root.Find("a"))
	assert.Equal(t, 1, s.Context().Warnings.Count(gltf.KindIndexOutOfRange))
}

func TestMultipleParentsAndCycles(t *testing.T) {
	s := decodeText(t, `{
		"asset": {"version": "2.0"},
		"nodes": [
			{"name": "a", "children": [2]},
			{"name": "b", "children": [2]},
			{"name": "c", "children": [0]}
		]
	}`)
	out := Assemble(s)

	// a owns c; b's claim on c and c's claim on a are both dropped.
	assert.Equal(t, 2, s.Context().Warnings.Count(gltf.KindInvalidData))
	assert.Equal(t, RootName, out.Root.Name)
	assert.Equal(t, 3, out.Root.Count()-1)
	assert.Equal(t, "a", out.Root.Find("c").Parent.Name)
}

func TestSkinsResolvedAndBuffersReleased(t *testing.T) {
	s := decodeText(t, `{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "data:application/octet-stream;base64,AAAAAA==", "byteLength": 4}],
		"nodes": [{"name": "root", "children": [1], "skin": 0}, {"name": "bone"}],
		"skins": [{"joints": [1], "skeleton": 0}]
	}`)
	out := Assemble(s)

	skin := out.Root.Skin
	require.NotNil(t, skin)
	require.Len(t, skin.Joints, 1)
	assert.Equal(t, "bone", skin.Joints[0].Name)
	assert.Same(t, out.Root, skin.Skeleton)

	for _, b := range s.Buffers.Get() {
		assert.True(t, b.Released())
	}
}
