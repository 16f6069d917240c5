package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-gltf/internal/decode"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/task"
)

const cube = `{
	"asset": {"version": "2.0"},
	"nodes": [{"name": "a", "children": [1]}, {"name": "b"}],
	"materials": [{"name": "m"}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"accessors": [{"componentType": 5126, "count": 3, "type": "VEC3"}]
}`

func newStages(t *testing.T, text string) *decode.Stages {
	t.Helper()
	doc, err := gltf.Parse([]byte(text))
	require.NoError(t, err)
	return decode.NewStages(&decode.Context{Doc: doc})
}

func assertDependencyOrder(t *testing.T, g *task.Graph) {
	t.Helper()
	for _, tk := range g.Tasks() {
		assert.Equal(t, task.Completed, tk.State(), tk.Name())
		for _, up := range tk.WaitFor() {
			assert.False(t, tk.StartedAt().Before(up.CompletedAt()),
				"%s started before %s completed", tk.Name(), up.Name())
		}
	}
}

func TestRunSync(t *testing.T) {
	var fractions []float64
	e, err := New(newStages(t, cube), Options{
		OnProgress: func(f float64) { fractions = append(fractions, f) },
	})
	require.NoError(t, err)
	assert.Equal(t, 10, e.Graph().Len())

	require.NoError(t, e.Run(context.Background()))
	assertDependencyOrder(t, e.Graph())

	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	assert.InDelta(t, 1.0, fractions[len(fractions)-1], 1e-9)
	assert.InDelta(t, 1.0, e.Progress(), 1e-9)

	nodes := e.Stages().Nodes.Get()
	require.Len(t, nodes, 2)
	assert.Equal(t, []int{1}, nodes[0].ChildIndices)
	assert.Len(t, e.Stages().Meshes.Get()[0].Primitives, 1)
}

func TestRunAsync(t *testing.T) {
	var fractions []float64
	e, err := New(newStages(t, cube), Options{
		Workers:    2,
		OnProgress: func(f float64) { fractions = append(fractions, f) },
	})
	require.NoError(t, err)

	run, err := e.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, run.Wait(context.Background()))
	assert.True(t, run.Done())

	assertDependencyOrder(t, e.Graph())
	require.NotEmpty(t, fractions)
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	assert.InDelta(t, 1.0, fractions[len(fractions)-1], 1e-9)
}

func TestRunCancelled(t *testing.T) {
	e, err := New(newStages(t, cube), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Run(ctx), context.Canceled)
	assert.False(t, e.Stages().Nodes.IsSet())
}

func TestOverall(t *testing.T) {
	o := NewOverall([]string{"a", "b"})

	v, ok := o.Update("a", 0.5)
	assert.True(t, ok)
	assert.InDelta(t, 0.25, v, 1e-9)

	_, ok = o.Update("a", 0.4)
	assert.False(t, ok, "progress never goes backwards")

	_, ok = o.Update("missing", 1)
	assert.False(t, ok)

	o.Update("a", 1)
	v, ok = o.Update("b", 1)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	assert.Equal(t, 1.0, o.Fraction())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("async")
	require.NoError(t, err)
	assert.Equal(t, Async, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Sync, m)

	_, err = ParseMode("parallel")
	assert.Error(t, err)
}
