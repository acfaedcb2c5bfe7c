package layout

import (
	"math"
	"sort"

	"github.com/ldi/trellis/internal/graph"
)

// intraLayerPositions assigns each node a position along its layer using
// the priority method: nodes repeatedly move towards the average position
// of their neighbours in the adjacent layer, pushing lower-priority
// neighbours aside but never crossing higher-priority ones.
//
// Highly connected nodes carry high priority so they settle near their
// neighbours, and dummy nodes outrank everything to keep the long edges
// they stand in for as straight as possible.
func intraLayerPositions(g *graph.DiGraph, ordered [][]int64) map[int64]float64 {
	positions := evenSpacing(ordered)

	// Priority -1 marks a dummy node and beats every real priority.
	up := make(map[int64]int, len(positions))
	down := make(map[int64]int, len(positions))
	for n := range positions {
		if isDummy(n) {
			up[n], down[n] = -1, -1
			continue
		}
		up[n], down[n] = g.InDegree(n), g.OutDegree(n)
	}

	for it := 0; it < priorityIterations; it++ {
		for i := 1; i < len(ordered); i++ {
			layer := ordered[i]
			index := layerIndex(layer)
			for _, n := range byPriorityDesc(layer, up) {
				preds := g.Predecessors(n)
				if len(preds) == 0 {
					continue
				}
				moveNode(n, average(preds, positions), layer, index, positions, up)
			}
		}

		for i := len(ordered) - 2; i >= 0; i-- {
			layer := ordered[i]
			index := layerIndex(layer)
			for _, n := range byPriorityAsc(layer, down) {
				succs := g.Successors(n)
				if len(succs) == 0 {
					continue
				}
				moveNode(n, average(succs, positions), layer, index, positions, down)
			}
		}
	}
	return positions
}

// evenSpacing spreads each layer's nodes evenly around zero, leaving room
// for the priority method to shuffle them.
func evenSpacing(ordered [][]int64) map[int64]float64 {
	positions := make(map[int64]float64)
	separation := startingSeparationRatio * minNodeSeparation
	for _, layer := range ordered {
		offset := float64(len(layer)-1) / 2
		for i, n := range layer {
			positions[n] = (float64(i) - offset) * separation
		}
	}
	return positions
}

func layerIndex(layer []int64) map[int64]int {
	index := make(map[int64]int, len(layer))
	for i, n := range layer {
		index[n] = i
	}
	return index
}

// priorityLess reports whether a is strictly lower priority than b, with
// -1 counting as the highest priority of all.
func priorityLess(a, b int) bool {
	return a != -1 && (b == -1 || a < b)
}

func byPriorityDesc(layer []int64, priorities map[int64]int) []int64 {
	nodes := append([]int64(nil), layer...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return priorityLess(priorities[nodes[j]], priorities[nodes[i]])
	})
	return nodes
}

func byPriorityAsc(layer []int64, priorities map[int64]int) []int64 {
	nodes := append([]int64(nil), layer...)
	sort.SliceStable(nodes, func(i, j int) bool {
		return priorityLess(priorities[nodes[i]], priorities[nodes[j]])
	})
	return nodes
}

func average(nodes []int64, positions map[int64]float64) float64 {
	sum := 0.0
	for _, n := range nodes {
		sum += positions[n]
	}
	return sum / float64(len(nodes))
}

func moveNode(n int64, ideal float64, layer []int64, index map[int64]int, positions map[int64]float64, priorities map[int64]int) {
	switch current := positions[n]; {
	case current < ideal:
		shiftRight(n, ideal, layer, index, positions, priorities)
	case current > ideal:
		shiftLeft(n, ideal, layer, index, positions, priorities)
	}
}

func shiftLeft(n int64, threshold float64, layer []int64, index map[int64]int, positions map[int64]float64, priorities map[int64]int) {
	if index[n] == 0 {
		if positions[n] > threshold {
			positions[n] = threshold
		}
		return
	}
	left := layer[index[n]-1]
	if priorityLess(priorities[left], priorities[n]) {
		shiftLeft(left, threshold-minNodeSeparation, layer, index, positions, priorities)
	}
	positions[n] = math.Max(threshold, positions[left]+minNodeSeparation)
}

func shiftRight(n int64, threshold float64, layer []int64, index map[int64]int, positions map[int64]float64, priorities map[int64]int) {
	if index[n] == len(layer)-1 {
		if positions[n] < threshold {
			positions[n] = threshold
		}
		return
	}
	right := layer[index[n]+1]
	if priorityLess(priorities[right], priorities[n]) {
		shiftRight(right, threshold+minNodeSeparation, layer, index, positions, priorities)
	}
	positions[n] = math.Min(threshold, positions[right]-minNodeSeparation)
}

// adjustComponents pulls disconnected components of the graph back beside
// one another. They drift apart during positioning, since nothing ties
// their coordinates together.
func adjustComponents(g *graph.DiGraph, positions map[int64]float64) map[int64]float64 {
	components := g.Components()

	type span struct {
		nodes    []int64
		min, max float64
	}
	spans := make([]span, 0, len(components))
	for _, component := range components {
		s := span{nodes: component, min: math.Inf(1), max: math.Inf(-1)}
		for _, n := range component {
			s.min = math.Min(s.min, positions[n])
			s.max = math.Max(s.max, positions[n])
		}
		spans = append(spans, s)
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].min < spans[j].min })

	adjusted := make(map[int64]float64, len(positions))
	previousMax := 0.0
	for _, s := range spans {
		targetMin := previousMax + minComponentSeparation
		offset := targetMin - s.min
		for _, n := range s.nodes {
			adjusted[n] = positions[n] + offset
		}
		previousMax = targetMin + (s.max - s.min)
	}
	return adjusted
}

// layerPositions spaces the layers evenly along the other axis. The
// spacing tracks the widest layer but never drops below
// minLayerSeparation, so single-node layers still end up clearly apart.
func layerPositions(positions map[int64]float64, ordered [][]int64) []float64 {
	if len(ordered) == 0 {
		return nil
	}
	if len(ordered) == 1 {
		return []float64{0}
	}

	maxWidth := 0.0
	for _, layer := range ordered {
		min, max := math.Inf(1), math.Inf(-1)
		for _, n := range layer {
			min = math.Min(min, positions[n])
			max = math.Max(max, positions[n])
		}
		maxWidth = math.Max(maxWidth, max-min)
	}

	separation := maxWidth / float64(len(ordered)-1)
	if separation < minLayerSeparation {
		separation = minLayerSeparation
	}
	layerPos := make([]float64, len(ordered))
	for i := range layerPos {
		layerPos[i] = float64(i) * separation
	}
	return layerPos
}
