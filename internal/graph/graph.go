// Package graph implements the dependency graph used to order targets into stages.
//
// An edge parent -> child means parent depends on child: child has to finish
// before parent may start. Cycles are rejected when the edge is inserted, so a
// graph value is always acyclic.
package graph

import (
	"cmp"
	"fmt"
	"slices"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

// DependencyGraph is a directed acyclic graph over opaque node identifiers.
type DependencyGraph[K cmp.Ordered] struct {
	nodes    []K
	outgoing map[K][]K
}

// New creates an empty graph.
func New[K cmp.Ordered]() *DependencyGraph[K] {
	return &DependencyGraph[K]{outgoing: make(map[K][]K)}
}

// AddNode registers a node without any edges. Adding an existing node is a no-op.
func (g *DependencyGraph[K]) AddNode(id K) {
	if g.outgoing == nil {
		g.outgoing = make(map[K][]K)
	}
	if _, exists := g.outgoing[id]; exists {
		return
	}
	g.outgoing[id] = nil
	g.nodes = append(g.nodes, id)
}

// HasNode reports whether id is a member of the graph.
func (g *DependencyGraph[K]) HasNode(id K) bool {
	if g == nil {
		return false
	}
	_, ok := g.outgoing[id]
	return ok
}

// AddConstraint records that parent depends on child.
//
// It returns false when the edge is already implied by an existing path, and a
// CircularDependencyError when child already (transitively) depends on parent.
// A rejected insertion leaves the graph untouched.
func (g *DependencyGraph[K]) AddConstraint(parent, child K) (bool, error) {
	if parent == child || g.reachable(child, parent) {
		return false, haberrors.NewCircularDependencyError(fmt.Sprint(parent), fmt.Sprint(child))
	}

	g.AddNode(parent)
	g.AddNode(child)

	if g.reachable(parent, child) {
		return false, nil
	}

	g.outgoing[parent] = append(g.outgoing[parent], child)
	return true, nil
}

// HasConstraint reports whether parent depends on child, directly or through other nodes.
func (g *DependencyGraph[K]) HasConstraint(parent, child K) bool {
	if parent == child {
		return false
	}
	return g.reachable(parent, child)
}

// reachable performs a depth-first search from start through dependency edges.
func (g *DependencyGraph[K]) reachable(start, goal K) bool {
	if g == nil || g.outgoing == nil {
		return false
	}
	visited := make(map[K]bool)
	stack := []K{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true
		for _, dep := range g.outgoing[node] {
			if dep == goal {
				return true
			}
			if !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// Nodes returns every node in insertion order.
func (g *DependencyGraph[K]) Nodes() []K {
	if g == nil {
		return nil
	}
	return slices.Clone(g.nodes)
}

// Dependencies returns the direct dependencies of id, sorted.
func (g *DependencyGraph[K]) Dependencies(id K) []K {
	if g == nil {
		return nil
	}
	deps := slices.Clone(g.outgoing[id])
	slices.Sort(deps)
	return deps
}

// Ranks computes the rank of every node: zero for nodes without dependencies,
// otherwise one more than the highest rank among its dependencies.
func (g *DependencyGraph[K]) Ranks() map[K]int {
	ranks := make(map[K]int, len(g.nodes))
	var rank func(K) int
	rank = func(id K) int {
		if r, ok := ranks[id]; ok {
			return r
		}
		r := 0
		for _, dep := range g.outgoing[id] {
			r = max(r, rank(dep)+1)
		}
		ranks[id] = r
		return r
	}
	for _, id := range g.nodes {
		rank(id)
	}
	return ranks
}

// BuildLayers groups nodes by rank, lowest rank first. Every dependency of a
// node lands in a strictly earlier layer than the node itself. Nodes within a
// layer are sorted.
func (g *DependencyGraph[K]) BuildLayers() [][]K {
	if g == nil || len(g.nodes) == 0 {
		return nil
	}

	ranks := g.Ranks()
	height := 0
	for _, r := range ranks {
		height = max(height, r+1)
	}

	layers := make([][]K, height)
	for _, id := range g.nodes {
		r := ranks[id]
		layers[r] = append(layers[r], id)
	}
	for _, layer := range layers {
		slices.Sort(layer)
	}
	return layers
}
