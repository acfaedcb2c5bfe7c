package layout

import (
	"sort"

	"github.com/ldi/trellis/internal/graph"
)

// orderLayers permutes the nodes within each layer to reduce edge
// crossings. Alternating median sorting passes settle the broad shape,
// then adjacent swaps squeeze out remaining crossings one at a time.
func orderLayers(g *graph.DiGraph, layers [][]int64) [][]int64 {
	ordered := make([][]int64, len(layers))
	for i, layer := range layers {
		ordered[i] = append([]int64(nil), layer...)
	}
	if len(ordered) < 2 {
		return ordered
	}

	for i := 0; i < orderingIterations; i++ {
		if i%2 == 0 {
			medianPassDown(g, ordered)
		} else {
			medianPassUp(g, ordered)
		}
	}
	transpose(g, ordered)
	return ordered
}

// medianPassDown reorders each layer after the first by the median index
// of its nodes' predecessors in the layer above.
func medianPassDown(g *graph.DiGraph, ordered [][]int64) {
	for i := 1; i < len(ordered); i++ {
		sortByMedian(ordered[i], ordered[i-1], g.Predecessors)
	}
}

// medianPassUp mirrors medianPassDown, working from the bottom layer up
// using successor positions.
func medianPassUp(g *graph.DiGraph, ordered [][]int64) {
	for i := len(ordered) - 2; i >= 0; i-- {
		sortByMedian(ordered[i], ordered[i+1], g.Successors)
	}
}

func sortByMedian(layer, fixed []int64, neighbours func(int64) []int64) {
	index := make(map[int64]int, len(fixed))
	for i, n := range fixed {
		index[n] = i
	}

	medians := make(map[int64]float64, len(layer))
	for i, n := range layer {
		// Nodes with no neighbours in the fixed layer hold their place
		medians[n] = float64(i)
		var idxs []int
		for _, neighbour := range neighbours(n) {
			if idx, ok := index[neighbour]; ok {
				idxs = append(idxs, idx)
			}
		}
		if len(idxs) == 0 {
			continue
		}
		sort.Ints(idxs)
		mid := len(idxs) / 2
		if len(idxs)%2 == 1 {
			medians[n] = float64(idxs[mid])
		} else {
			medians[n] = float64(idxs[mid-1]+idxs[mid]) / 2
		}
	}
	sort.SliceStable(layer, func(a, b int) bool {
		return medians[layer[a]] < medians[layer[b]]
	})
}

// transpose swaps adjacent nodes within a layer whenever doing so lowers
// the number of crossings with the neighbouring layers, repeating until no
// swap helps.
func transpose(g *graph.DiGraph, ordered [][]int64) {
	improved := true
	for improved {
		improved = false
		for i := range ordered {
			layer := ordered[i]
			for j := 0; j+1 < len(layer); j++ {
				before := crossingsAround(g, ordered, i)
				layer[j], layer[j+1] = layer[j+1], layer[j]
				after := crossingsAround(g, ordered, i)
				if after < before {
					improved = true
					continue
				}
				layer[j], layer[j+1] = layer[j+1], layer[j]
			}
		}
	}
}

// crossingsAround counts the crossings between layer i and both of its
// neighbouring layers.
func crossingsAround(g *graph.DiGraph, ordered [][]int64, i int) int {
	crossings := 0
	if i > 0 {
		crossings += interLayerCrossings(g, ordered[i-1], ordered[i])
	}
	if i+1 < len(ordered) {
		crossings += interLayerCrossings(g, ordered[i], ordered[i+1])
	}
	return crossings
}

// interLayerCrossings counts the pairs of edges between two adjacent
// layers that intersect, given the current node order of each layer.
func interLayerCrossings(g *graph.DiGraph, upper, lower []int64) int {
	upperIndex := make(map[int64]int, len(upper))
	for i, n := range upper {
		upperIndex[n] = i
	}
	lowerIndex := make(map[int64]int, len(lower))
	for i, n := range lower {
		lowerIndex[n] = i
	}

	var edges [][2]int
	for _, source := range upper {
		for _, target := range g.Successors(source) {
			if targetIdx, ok := lowerIndex[target]; ok {
				edges = append(edges, [2]int{upperIndex[source], targetIdx})
			}
		}
	}

	crossings := 0
	for a := 0; a < len(edges); a++ {
		for b := a + 1; b < len(edges); b++ {
			if edgesIntersect(edges[a], edges[b]) {
				crossings++
			}
		}
	}
	return crossings
}

func edgesIntersect(a, b [2]int) bool {
	return (a[0] < b[0] && a[1] > b[1]) || (a[0] > b[0] && a[1] < b[1])
}
