package roads

import "github.com/citygrid/citygrid/grid"

// CSR is a compressed-sparse-row adjacency view of the road cell graph,
// rebuilt when the graph is dirty and never mutated directly. Pathfinding
// traverses it instead of the map-backed graph for cache locality.
type CSR struct {
	// Nodes holds the grid (x, y) of each CSR node.
	Nodes [][2]int
	// Offsets[i]..Offsets[i+1] indexes Edges for node i.
	Offsets []int32
	// Edges holds neighbour node indices.
	Edges []int32

	// nodeIndex maps flat grid index to CSR node index.
	nodeIndex map[int]int32
}

// NewCSR creates an empty view.
func NewCSR() *CSR {
	return &CSR{nodeIndex: make(map[int]int32)}
}

// RebuildFrom recomputes offsets and neighbour arrays from the cell graph
// in O(V+E) and clears the graph's dirty flag.
func (c *CSR) RebuildFrom(cg *CellGraph) {
	n := len(cg.Edges)
	c.Nodes = c.Nodes[:0]
	c.Offsets = c.Offsets[:0]
	c.Edges = c.Edges[:0]
	c.nodeIndex = make(map[int]int32, n)

	// Deterministic node ordering: scan the grid row-major so rebuilds of
	// the same graph are bit-identical.
	for idx := 0; idx < grid.Width*grid.Height; idx++ {
		if _, ok := cg.Edges[idx]; !ok {
			continue
		}
		c.nodeIndex[idx] = int32(len(c.Nodes))
		c.Nodes = append(c.Nodes, [2]int{idx % grid.Width, idx / grid.Width})
	}

	c.Offsets = append(c.Offsets, 0)
	for _, node := range c.Nodes {
		idx := grid.Index(node[0], node[1])
		// Neighbour order follows grid.Neighbors4 so traversal is stable.
		nb, cnt := grid.Neighbors4(node[0], node[1])
		for i := 0; i < cnt; i++ {
			nidx := grid.Index(nb[i][0], nb[i][1])
			if !containsInt(cg.Edges[idx], nidx) {
				continue
			}
			c.Edges = append(c.Edges, c.nodeIndex[nidx])
		}
		c.Offsets = append(c.Offsets, int32(len(c.Edges)))
	}
	cg.Dirty = false
}

// Neighbours returns the neighbour slice of node i.
func (c *CSR) Neighbours(i int32) []int32 {
	return c.Edges[c.Offsets[i]:c.Offsets[i+1]]
}

// NodeCount returns the number of nodes.
func (c *CSR) NodeCount() int {
	return len(c.Nodes)
}

// EdgeCount returns the number of directed edges.
func (c *CSR) EdgeCount() int {
	return len(c.Edges)
}

// NodeAt returns the CSR node index for a grid cell, or -1 when the cell is
// not a road.
func (c *CSR) NodeAt(x, y int) int32 {
	i, ok := c.nodeIndex[grid.Index(x, y)]
	if !ok {
		return -1
	}
	return i
}
