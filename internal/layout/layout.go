// Package layout computes plane coordinates for task graphs using a
// layered drawing approach: tasks are assigned to layers by longest path
// from a root, long edges are split with dummy nodes, each layer is
// reordered to reduce edge crossings, and positions within a layer are
// refined with the priority method.
package layout

import "github.com/ldi/trellis/internal/graph"

// Orientation controls which axis the layers run along.
type Orientation string

const (
	// OrientationVertical stacks layers top to bottom.
	OrientationVertical Orientation = "vertical"
	// OrientationHorizontal runs layers left to right.
	OrientationHorizontal Orientation = "horizontal"
)

// ParseOrientation maps a string onto an Orientation.
func ParseOrientation(s string) (Orientation, bool) {
	switch Orientation(s) {
	case OrientationVertical:
		return OrientationVertical, true
	case OrientationHorizontal:
		return OrientationHorizontal, true
	}
	return "", false
}

// Point is a node position on the drawing plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const (
	minNodeSeparation       = 1.0
	startingSeparationRatio = 3.0
	priorityIterations      = 20
	orderingIterations      = 8
	minComponentSeparation  = 2.0
	minLayerSeparation      = 3.0
)

// Positions returns coordinates for every node of g. Adjacent layers are
// always at least minLayerSeparation apart, so graphs whose layers are all
// narrow still spread out instead of collapsing onto a single point.
func Positions(g *graph.DiGraph, orientation Orientation) map[int64]Point {
	positions := make(map[int64]Point, g.Len())
	if g.Len() == 0 {
		return positions
	}

	layers := g.TopologicalGroups()
	working, layered := insertDummies(g, layers)
	ordered := orderLayers(working, layered)

	intra := intraLayerPositions(working, ordered)
	intra = adjustComponents(working, intra)
	layerPos := layerPositions(intra, ordered)

	for i, layer := range ordered {
		for _, n := range layer {
			if isDummy(n) {
				continue
			}
			switch orientation {
			case OrientationHorizontal:
				positions[n] = Point{X: layerPos[i], Y: intra[n]}
			default:
				positions[n] = Point{X: intra[n], Y: layerPos[i]}
			}
		}
	}
	return positions
}
