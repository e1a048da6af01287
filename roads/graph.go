// Package roads maintains the two road representations (the cell-granular
// graph used by grid-snap tools and the Bezier segment network used by
// freeform drawing) plus the compressed adjacency view used by pathfinding.
package roads

import (
	"github.com/citygrid/citygrid/grid"
)

// CellGraph maps road cells (flat grid index) to their road neighbours.
// Edges are symmetric: every neighbour entry is itself a key. The graph is
// the cell-level projection of the segment store at all times.
type CellGraph struct {
	Edges map[int][]int
	// Dirty is set on every mutation; the CSR view rebuilds lazily.
	Dirty bool
}

// NewCellGraph creates an empty road cell graph.
func NewCellGraph() *CellGraph {
	return &CellGraph{Edges: make(map[int][]int), Dirty: true}
}

// AddRoad marks (x, y) as a road of the given type on the world grid and
// connects it to adjacent road cells.
func (cg *CellGraph) AddRoad(g *grid.WorldGrid, x, y int, rt grid.RoadType) {
	cell := g.Get(x, y)
	if cell == nil || cell.Type == grid.CellWater {
		return
	}
	cell.Type = grid.CellRoad
	cell.Road = rt

	idx := grid.Index(x, y)
	if _, ok := cg.Edges[idx]; !ok {
		cg.Edges[idx] = nil
	}
	nb, n := grid.Neighbors4(x, y)
	for i := 0; i < n; i++ {
		nc := g.Get(nb[i][0], nb[i][1])
		if nc == nil || nc.Type != grid.CellRoad {
			continue
		}
		nidx := grid.Index(nb[i][0], nb[i][1])
		cg.connect(idx, nidx)
	}
	cg.Dirty = true
}

// RemoveRoad restores (x, y) to grass and disconnects it from the graph.
func (cg *CellGraph) RemoveRoad(g *grid.WorldGrid, x, y int) {
	cell := g.Get(x, y)
	if cell == nil || cell.Type != grid.CellRoad {
		return
	}
	cell.Type = grid.CellGrass
	cell.Road = grid.RoadNone

	idx := grid.Index(x, y)
	for _, nidx := range cg.Edges[idx] {
		cg.Edges[nidx] = removeInt(cg.Edges[nidx], idx)
	}
	delete(cg.Edges, idx)
	cg.Dirty = true
}

// HasNode reports whether the flat index is a road graph node.
func (cg *CellGraph) HasNode(idx int) bool {
	_, ok := cg.Edges[idx]
	return ok
}

// NodeCount returns the number of road cells in the graph.
func (cg *CellGraph) NodeCount() int {
	return len(cg.Edges)
}

func (cg *CellGraph) connect(a, b int) {
	if !containsInt(cg.Edges[a], b) {
		cg.Edges[a] = append(cg.Edges[a], b)
	}
	if !containsInt(cg.Edges[b], a) {
		cg.Edges[b] = append(cg.Edges[b], a)
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
