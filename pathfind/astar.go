// Package pathfind answers shortest-path queries over the compressed road
// graph under a strict per-tick budget.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/roads"
)

// astarNode is a node in the A* open set.
type astarNode struct {
	node  int32
	f, h  float32
	index int
}

// nodeHeap implements heap.Interface keyed on F, tie-broken on lower H.
type nodeHeap []*astarNode

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].h < h[j].h
}
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*h = old[0 : n-1]
	return node
}

// AStar runs searches over a CSR view. Scratch buffers are reused between
// searches; an AStar value is not safe for concurrent use.
type AStar struct {
	openHeap nodeHeap
	closed   []uint64 // bitset sized to node count
	gScore   []float32
	cameFrom []int32
}

// NewAStar creates a planner with empty scratch space.
func NewAStar() *AStar {
	return &AStar{}
}

func (a *AStar) resize(n int) {
	words := (n + 63) / 64
	if cap(a.gScore) < n {
		a.closed = make([]uint64, words)
		a.gScore = make([]float32, n)
		a.cameFrom = make([]int32, n)
	}
	a.closed = a.closed[:words]
	a.gScore = a.gScore[:n]
	a.cameFrom = a.cameFrom[:n]
	for i := range a.closed {
		a.closed[i] = 0
	}
	for i := 0; i < n; i++ {
		a.gScore[i] = float32(math.Inf(1))
		a.cameFrom[i] = -1
	}
	a.openHeap = a.openHeap[:0]
}

// FindPath computes the cheapest route between two CSR nodes. It returns
// the ordered sequence of grid cells from source to goal inclusive, or nil
// when no route exists.
func (a *AStar) FindPath(csr *roads.CSR, start, goal int32) [][2]int {
	n := csr.NodeCount()
	if n == 0 || start < 0 || goal < 0 {
		return nil
	}
	if start == goal {
		return [][2]int{csr.Nodes[start]}
	}
	a.resize(n)

	gx, gy := csr.Nodes[goal][0], csr.Nodes[goal][1]

	a.gScore[start] = 0
	h0 := heuristic(csr.Nodes[start][0], csr.Nodes[start][1], gx, gy)
	heap.Push(&a.openHeap, &astarNode{node: start, f: h0, h: h0})

	for a.openHeap.Len() > 0 {
		current := heap.Pop(&a.openHeap).(*astarNode)
		cur := current.node
		if cur == goal {
			return a.reconstruct(csr, start, goal)
		}
		if a.closed[cur/64]&(1<<(uint(cur)%64)) != 0 {
			continue
		}
		a.closed[cur/64] |= 1 << (uint(cur) % 64)

		cx, cy := csr.Nodes[cur][0], csr.Nodes[cur][1]
		for _, nb := range csr.Neighbours(cur) {
			if a.closed[nb/64]&(1<<(uint(nb)%64)) != 0 {
				continue
			}
			nx, ny := csr.Nodes[nb][0], csr.Nodes[nb][1]
			moveCost := heuristic(cx, cy, nx, ny) // unit grid steps
			tentativeG := a.gScore[cur] + moveCost
			if tentativeG >= a.gScore[nb] {
				continue
			}
			a.cameFrom[nb] = cur
			a.gScore[nb] = tentativeG
			h := heuristic(nx, ny, gx, gy)
			heap.Push(&a.openHeap, &astarNode{node: nb, f: tentativeG + h, h: h})
		}
	}
	return nil
}

// heuristic is the Euclidean distance on cell coordinates; admissible and
// monotone for unit-cost 4-connected moves.
func heuristic(x1, y1, x2, y2 int) float32 {
	dx := float32(x2 - x1)
	dy := float32(y2 - y1)
	return float32(math.Sqrt(float64(dx*dx + dy*dy)))
}

func (a *AStar) reconstruct(csr *roads.CSR, start, goal int32) [][2]int {
	var rev []int32
	for cur := goal; cur != -1; cur = a.cameFrom[cur] {
		rev = append(rev, cur)
		if cur == start {
			break
		}
	}
	path := make([][2]int, len(rev))
	for i := range rev {
		path[i] = csr.Nodes[rev[len(rev)-1-i]]
	}
	return path
}

// NearestRoad snaps a grid cell to the closest road cell within SnapRadius,
// searching outward ring by ring. Returns false when no road is in range.
func NearestRoad(csr *roads.CSR, x, y, radius int) (int, int, bool) {
	if csr.NodeAt(x, y) >= 0 {
		return x, y, true
	}
	for r := 1; r <= radius; r++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if abs(dx) != r && abs(dy) != r {
					continue
				}
				nx, ny := x+dx, y+dy
				if !grid.InBounds(nx, ny) {
					continue
				}
				if csr.NodeAt(nx, ny) >= 0 {
					return nx, ny, true
				}
			}
		}
	}
	return 0, 0, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
