// Package graph provides the directed-graph machinery shared by the task
// hierarchy and dependency structures.
package graph

import (
	"slices"
	"sort"
)

// DiGraph is a simple directed graph over int64 node ids. The zero value is
// not usable; create one with New. Methods that return node slices sort them
// so callers iterate deterministically.
type DiGraph struct {
	successors   map[int64]map[int64]struct{}
	predecessors map[int64]map[int64]struct{}
}

func New() *DiGraph {
	return &DiGraph{
		successors:   make(map[int64]map[int64]struct{}),
		predecessors: make(map[int64]map[int64]struct{}),
	}
}

// AddNode adds a node with no edges. Adding an existing node is a no-op;
// the return value reports whether the node was newly added.
func (g *DiGraph) AddNode(n int64) bool {
	if _, ok := g.successors[n]; ok {
		return false
	}
	g.successors[n] = make(map[int64]struct{})
	g.predecessors[n] = make(map[int64]struct{})
	return true
}

// RemoveNode removes a node and all edges touching it.
func (g *DiGraph) RemoveNode(n int64) {
	for succ := range g.successors[n] {
		delete(g.predecessors[succ], n)
	}
	for pred := range g.predecessors[n] {
		delete(g.successors[pred], n)
	}
	delete(g.successors, n)
	delete(g.predecessors, n)
}

func (g *DiGraph) HasNode(n int64) bool {
	_, ok := g.successors[n]
	return ok
}

func (g *DiGraph) Len() int {
	return len(g.successors)
}

// Nodes returns every node in ascending order.
func (g *DiGraph) Nodes() []int64 {
	nodes := make([]int64, 0, len(g.successors))
	for n := range g.successors {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	return nodes
}

// AddEdge adds a source -> target edge. Both nodes must already exist.
func (g *DiGraph) AddEdge(source, target int64) {
	g.successors[source][target] = struct{}{}
	g.predecessors[target][source] = struct{}{}
}

func (g *DiGraph) RemoveEdge(source, target int64) {
	delete(g.successors[source], target)
	delete(g.predecessors[target], source)
}

func (g *DiGraph) HasEdge(source, target int64) bool {
	_, ok := g.successors[source][target]
	return ok
}

// Edges returns every edge ordered by source then target.
func (g *DiGraph) Edges() [][2]int64 {
	var edges [][2]int64
	for source, targets := range g.successors {
		for target := range targets {
			edges = append(edges, [2]int64{source, target})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

func (g *DiGraph) Successors(n int64) []int64 {
	return sortedKeys(g.successors[n])
}

func (g *DiGraph) Predecessors(n int64) []int64 {
	return sortedKeys(g.predecessors[n])
}

func (g *DiGraph) OutDegree(n int64) int {
	return len(g.successors[n])
}

func (g *DiGraph) InDegree(n int64) int {
	return len(g.predecessors[n])
}

// Roots returns the nodes with no predecessors.
func (g *DiGraph) Roots() []int64 {
	var roots []int64
	for n, preds := range g.predecessors {
		if len(preds) == 0 {
			roots = append(roots, n)
		}
	}
	slices.Sort(roots)
	return roots
}

// Leaves returns the nodes with no successors.
func (g *DiGraph) Leaves() []int64 {
	var leaves []int64
	for n, succs := range g.successors {
		if len(succs) == 0 {
			leaves = append(leaves, n)
		}
	}
	slices.Sort(leaves)
	return leaves
}

// HasPath reports whether target is reachable from source by following
// edges forward. A node is always reachable from itself.
func (g *DiGraph) HasPath(source, target int64) bool {
	if source == target {
		return g.HasNode(source)
	}
	_, ok := g.Descendants(source)[target]
	return ok
}

// Descendants returns every node reachable from n, excluding n itself.
func (g *DiGraph) Descendants(n int64) map[int64]struct{} {
	return g.reachable(n, g.successors)
}

// Ancestors returns every node that can reach n, excluding n itself.
func (g *DiGraph) Ancestors(n int64) map[int64]struct{} {
	return g.reachable(n, g.predecessors)
}

func (g *DiGraph) reachable(start int64, adjacency map[int64]map[int64]struct{}) map[int64]struct{} {
	visited := make(map[int64]struct{})
	queue := make([]int64, 0, len(adjacency[start]))
	for next := range adjacency[start] {
		queue = append(queue, next)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if _, ok := visited[n]; ok {
			continue
		}
		visited[n] = struct{}{}
		for next := range adjacency[n] {
			queue = append(queue, next)
		}
	}
	return visited
}

// ConnectingPath returns one shortest path from source to target, both
// endpoints included, or nil when no path exists. Neighbor expansion is in
// ascending order, so the returned path is stable.
func (g *DiGraph) ConnectingPath(source, target int64) []int64 {
	if !g.HasNode(source) || !g.HasNode(target) {
		return nil
	}
	if source == target {
		return []int64{source}
	}

	parent := map[int64]int64{source: source}
	queue := []int64{source}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, next := range g.Successors(n) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = n
			if next == target {
				path := []int64{target}
				for cur := n; cur != source; cur = parent[cur] {
					path = append(path, cur)
				}
				path = append(path, source)
				slices.Reverse(path)
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// TopologicalGroups partitions the nodes of an acyclic graph into layers:
// each node lands in the lowest layer strictly greater than all of its
// predecessors' layers. Layer zero holds the roots. The result is only
// meaningful when the graph is acyclic.
func (g *DiGraph) TopologicalGroups() [][]int64 {
	groupOf := make(map[int64]int, len(g.successors))
	queue := g.Roots()
	for _, n := range queue {
		groupOf[n] = 0
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		minSuccessorGroup := groupOf[n] + 1
		for _, succ := range g.Successors(n) {
			if existing, ok := groupOf[succ]; ok && existing >= minSuccessorGroup {
				continue
			}
			groupOf[succ] = minSuccessorGroup
			queue = append(queue, succ)
		}
	}

	maxGroup := -1
	for _, group := range groupOf {
		if group > maxGroup {
			maxGroup = group
		}
	}
	groups := make([][]int64, maxGroup+1)
	for n, group := range groupOf {
		groups[group] = append(groups[group], n)
	}
	for _, group := range groups {
		slices.Sort(group)
	}
	return groups
}

// HasCycle reports whether the graph contains a directed cycle.
func (g *DiGraph) HasCycle() bool {
	inDegree := make(map[int64]int, len(g.successors))
	for n := range g.successors {
		inDegree[n] = len(g.predecessors[n])
	}

	var queue []int64
	for n, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, n)
		}
	}

	processed := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		processed++
		for succ := range g.successors[n] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}
	return processed < len(inDegree)
}

// Components returns the weakly connected components of the graph, each
// sorted by node, ordered by their smallest node.
func (g *DiGraph) Components() [][]int64 {
	visited := make(map[int64]struct{})
	var components [][]int64
	for _, start := range g.Nodes() {
		if _, ok := visited[start]; ok {
			continue
		}
		component := []int64{}
		queue := []int64{start}
		visited[start] = struct{}{}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			component = append(component, n)
			for neighbour := range g.successors[n] {
				if _, ok := visited[neighbour]; !ok {
					visited[neighbour] = struct{}{}
					queue = append(queue, neighbour)
				}
			}
			for neighbour := range g.predecessors[n] {
				if _, ok := visited[neighbour]; !ok {
					visited[neighbour] = struct{}{}
					queue = append(queue, neighbour)
				}
			}
		}
		slices.Sort(component)
		components = append(components, component)
	}
	return components
}

// Clone returns a deep copy of the graph.
func (g *DiGraph) Clone() *DiGraph {
	clone := New()
	for n := range g.successors {
		clone.AddNode(n)
	}
	for source, targets := range g.successors {
		for target := range targets {
			clone.AddEdge(source, target)
		}
	}
	return clone
}

func sortedKeys(set map[int64]struct{}) []int64 {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
