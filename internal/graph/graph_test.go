package graph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

func TestBuildLayers_Chain(t *testing.T) {
	t.Parallel()

	g := New[string]()
	added, err := g.AddConstraint("app", "database")
	require.NoError(t, err)
	require.True(t, added)
	added, err = g.AddConstraint("database", "network")
	require.NoError(t, err)
	require.True(t, added)

	require.Equal(t, [][]string{{"network"}, {"database"}, {"app"}}, g.BuildLayers())
}

func TestBuildLayers_Diamond(t *testing.T) {
	t.Parallel()

	g := New[string]()
	for _, edge := range [][2]string{
		{"mid", "leaf_a"},
		{"mid", "leaf_b"},
		{"top", "mid"},
		{"top", "leaf_b"},
	} {
		_, err := g.AddConstraint(edge[0], edge[1])
		require.NoError(t, err)
	}

	require.Equal(t, [][]string{{"leaf_a", "leaf_b"}, {"mid"}, {"top"}}, g.BuildLayers())
}

func TestBuildLayers_IsolatedNodesLandInFirstLayer(t *testing.T) {
	t.Parallel()

	g := New[string]()
	g.AddNode("standalone")
	_, err := g.AddConstraint("b", "a")
	require.NoError(t, err)

	layers := g.BuildLayers()
	require.Len(t, layers, 2)
	require.ElementsMatch(t, []string{"a", "standalone"}, layers[0])
	require.Equal(t, []string{"b"}, layers[1])
}

func TestBuildLayers_EmptyGraph(t *testing.T) {
	t.Parallel()

	require.Empty(t, New[int]().BuildLayers())
}

func TestAddConstraint_RejectsSelfLoop(t *testing.T) {
	t.Parallel()

	g := New[string]()
	_, err := g.AddConstraint("a", "a")

	var circular *haberrors.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	require.False(t, g.HasNode("a"))
}

func TestAddConstraint_RejectsCycleWithoutMutation(t *testing.T) {
	t.Parallel()

	g := New[string]()
	_, err := g.AddConstraint("a", "b")
	require.NoError(t, err)
	_, err = g.AddConstraint("b", "c")
	require.NoError(t, err)

	before := g.BuildLayers()
	nodes := g.Nodes()

	added, err := g.AddConstraint("c", "a")
	require.False(t, added)

	var circular *haberrors.CircularDependencyError
	require.ErrorAs(t, err, &circular)
	require.Equal(t, "c", circular.Parent)
	require.Equal(t, "a", circular.Child)

	require.Equal(t, before, g.BuildLayers())
	require.Equal(t, nodes, g.Nodes())
	require.Empty(t, g.Dependencies("c"))
}

func TestAddConstraint_DuplicateIsNoop(t *testing.T) {
	t.Parallel()

	once := New[string]()
	_, err := once.AddConstraint("a", "b")
	require.NoError(t, err)

	twice := New[string]()
	added, err := twice.AddConstraint("a", "b")
	require.NoError(t, err)
	require.True(t, added)
	added, err = twice.AddConstraint("a", "b")
	require.NoError(t, err)
	require.False(t, added)

	require.Equal(t, once.BuildLayers(), twice.BuildLayers())
	require.Equal(t, []string{"b"}, twice.Dependencies("a"))
}

func TestAddConstraint_ImpliedEdgeIsNoop(t *testing.T) {
	t.Parallel()

	g := New[string]()
	_, err := g.AddConstraint("a", "b")
	require.NoError(t, err)
	_, err = g.AddConstraint("b", "c")
	require.NoError(t, err)

	added, err := g.AddConstraint("a", "c")
	require.NoError(t, err)
	require.False(t, added)
	require.True(t, g.HasConstraint("a", "c"))
	require.False(t, g.HasConstraint("c", "a"))
}

func TestBuildLayers_DependenciesAlwaysRankLower(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		g := New[int]()
		type edge struct{ parent, child int }
		var edges []edge

		// Parents always have a larger id than children, so the edge set is acyclic.
		for i := 0; i < 40; i++ {
			a, b := rng.Intn(15), rng.Intn(15)
			if a == b {
				continue
			}
			parent, child := max(a, b), min(a, b)
			_, err := g.AddConstraint(parent, child)
			require.NoError(t, err, fmt.Sprintf("round %d edge %d->%d", round, parent, child))
			edges = append(edges, edge{parent, child})
		}

		index := make(map[int]int)
		for i, layer := range g.BuildLayers() {
			for _, id := range layer {
				index[id] = i
			}
		}
		for _, e := range edges {
			require.Less(t, index[e.child], index[e.parent])
		}
	}
}
