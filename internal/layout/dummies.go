package layout

import "github.com/ldi/trellis/internal/graph"

// Dummy nodes use negative ids. Task uids are positive, so the two can
// share a graph without colliding.
func isDummy(n int64) bool {
	return n < 0
}

// insertDummies splits every edge spanning more than one layer into a
// chain of dummy nodes, one per intermediate layer, so that all edges in
// the returned graph connect adjacent layers.
func insertDummies(g *graph.DiGraph, layers [][]int64) (*graph.DiGraph, [][]int64) {
	layerOf := make(map[int64]int)
	layered := make([][]int64, len(layers))
	for i, layer := range layers {
		layered[i] = append([]int64(nil), layer...)
		for _, n := range layer {
			layerOf[n] = i
		}
	}

	working := g.Clone()
	nextDummy := int64(-1)
	for _, edge := range g.Edges() {
		source, target := edge[0], edge[1]
		if layerOf[target]-layerOf[source] <= 1 {
			continue
		}
		working.RemoveEdge(source, target)
		prev := source
		for i := layerOf[source] + 1; i < layerOf[target]; i++ {
			dummy := nextDummy
			nextDummy--
			working.AddNode(dummy)
			working.AddEdge(prev, dummy)
			layered[i] = append(layered[i], dummy)
			prev = dummy
		}
		working.AddEdge(prev, target)
	}
	return working, layered
}
