package dag

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGraph(t *testing.T, ids ...string) *Graph {
	t.Helper()
	g := New()
	for _, id := range ids {
		g.AddNode(id)
	}
	return g
}

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode("isr")
	g.AddNode("isr")
	g.AddNode("calibrate")
	assert.Len(t, g.nodes, 2)
	assert.Equal(t, []string{"isr", "calibrate"}, g.order)
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := newGraph(t, "isr", "calibrate")
		require.NoError(t, g.AddEdge("isr", "calibrate", "postISRCCD"))
		require.NoError(t, g.AddEdge("isr", "calibrate", "postISRCCD"))
		require.NoError(t, g.AddEdge("isr", "calibrate", "background"))

		deps, err := g.Dependencies("calibrate")
		require.NoError(t, err)
		assert.Equal(t, []string{"isr"}, deps)

		dependents, err := g.Dependents("isr")
		require.NoError(t, err)
		assert.Equal(t, []string{"calibrate"}, dependents)

		assert.Equal(t, []string{"background", "postISRCCD"}, g.EdgeLabels("isr", "calibrate"))
		assert.Nil(t, g.EdgeLabels("calibrate", "isr"))
	})

	t.Run("error cases", func(t *testing.T) {
		g := newGraph(t, "a", "b")
		assert.ErrorContains(t, g.AddEdge("dne", "a", ""), "source node not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne", ""), "destination node not found")
		assert.ErrorContains(t, g.AddEdge("a", "a", ""), "self-referential edge")

		_, err := g.Dependencies("dne")
		assert.ErrorContains(t, err, "node not found")
		_, err = g.Dependents("dne")
		assert.ErrorContains(t, err, "node not found")
	})
}

func TestDetectCycles(t *testing.T) {
	t.Run("empty graph has no cycles", func(t *testing.T) {
		assert.NoError(t, New().DetectCycles())
	})

	t.Run("valid dag has no cycles", func(t *testing.T) {
		g := newGraph(t, "a", "b", "c", "d")
		require.NoError(t, g.AddEdge("a", "b", ""))
		require.NoError(t, g.AddEdge("b", "c", ""))
		require.NoError(t, g.AddEdge("a", "c", ""))
		require.NoError(t, g.AddEdge("c", "d", ""))
		assert.NoError(t, g.DetectCycles())
	})

	t.Run("cycle path is reported", func(t *testing.T) {
		g := newGraph(t, "a", "b", "c")
		require.NoError(t, g.AddEdge("a", "b", ""))
		require.NoError(t, g.AddEdge("b", "c", ""))
		require.NoError(t, g.AddEdge("c", "a", ""))
		assert.EqualError(t, g.DetectCycles(), "cycle detected: a -> b -> c -> a")
	})

	t.Run("cycle in a disjoint component is detected", func(t *testing.T) {
		g := newGraph(t, "a", "b", "x", "y", "z")
		require.NoError(t, g.AddEdge("a", "b", ""))
		require.NoError(t, g.AddEdge("x", "y", ""))
		require.NoError(t, g.AddEdge("y", "z", ""))
		require.NoError(t, g.AddEdge("z", "y", ""))
		assert.EqualError(t, g.DetectCycles(), "cycle detected: y -> z -> y")
	})
}

func TestTopologicalOrder(t *testing.T) {
	g := newGraph(t, "measure", "isr", "calibrate", "standalone")
	require.NoError(t, g.AddEdge("isr", "calibrate", "postISRCCD"))
	require.NoError(t, g.AddEdge("calibrate", "measure", "calexp"))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"isr", "calibrate", "measure", "standalone"}, order)

	require.NoError(t, g.AddEdge("measure", "isr", "feedback"))
	_, err = g.TopologicalOrder()
	assert.ErrorContains(t, err, "cycle detected")
}

func TestConcurrentAccess(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.AddNode(id)
		}()
	}
	wg.Wait()

	for _, pair := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, g.AddEdge(pair[0], pair[1], ""))
			assert.NoError(t, g.DetectCycles())
		}()
	}
	wg.Wait()
	assert.NoError(t, g.DetectCycles())
}
