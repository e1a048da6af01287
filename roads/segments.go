package roads

import (
	"math"

	"github.com/citygrid/citygrid/grid"
)

// Vec2 is a world-space point.
type Vec2 struct {
	X, Y float32
}

// SegmentNodeID and SegmentID are stable ids into the segment store's
// dense tables. Cross-references between nodes, segments, and grid cells
// are always ids, never pointers.
type (
	SegmentNodeID uint32
	SegmentID     uint32
)

// SegmentNode anchors segment endpoints. A node lists exactly the segments
// whose start or end node id equals its own id.
type SegmentNode struct {
	ID        SegmentNodeID
	Pos       Vec2
	Connected []SegmentID
	Alive     bool
}

// Segment is a cubic Bezier road piece between two nodes, rasterised onto
// the cell grid.
type Segment struct {
	ID              SegmentID
	StartNode       SegmentNodeID
	EndNode         SegmentNodeID
	P0, P1, P2, P3  Vec2
	RoadType        grid.RoadType
	ArcLength       float32
	RasterizedCells [][2]int
	Alive           bool
}

// Evaluate returns the Bezier point at parameter t in [0,1].
func (s *Segment) Evaluate(t float32) Vec2 {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Vec2{
		X: b0*s.P0.X + b1*s.P1.X + b2*s.P2.X + b3*s.P3.X,
		Y: b0*s.P0.Y + b1*s.P1.Y + b2*s.P2.Y + b3*s.P3.Y,
	}
}

// ComputeArcLength approximates the curve length by uniform sampling.
func (s *Segment) ComputeArcLength() float32 {
	const samples = 16
	var length float32
	prev := s.Evaluate(0)
	for i := 1; i <= samples; i++ {
		p := s.Evaluate(float32(i) / samples)
		dx, dy := p.X-prev.X, p.Y-prev.Y
		length += float32(math.Sqrt(float64(dx*dx + dy*dy)))
		prev = p
	}
	return length
}

// SegmentStore owns all segments and segment nodes in dense tables with
// tombstones. Removed slots stay allocated so cached ids never alias a new
// record.
type SegmentStore struct {
	Nodes    []SegmentNode
	Segments []Segment
}

// NewSegmentStore creates an empty store.
func NewSegmentStore() *SegmentStore {
	return &SegmentStore{}
}

// Node returns the node for id, or nil if it was never created or removed.
func (st *SegmentStore) Node(id SegmentNodeID) *SegmentNode {
	if int(id) >= len(st.Nodes) || !st.Nodes[id].Alive {
		return nil
	}
	return &st.Nodes[id]
}

// Segment returns the segment for id, or nil if absent.
func (st *SegmentStore) Segment(id SegmentID) *Segment {
	if int(id) >= len(st.Segments) || !st.Segments[id].Alive {
		return nil
	}
	return &st.Segments[id]
}

// SegmentCount returns the number of live segments.
func (st *SegmentStore) SegmentCount() int {
	n := 0
	for i := range st.Segments {
		if st.Segments[i].Alive {
			n++
		}
	}
	return n
}

// FindOrCreateNode returns an existing node within snapDist of pos, or
// creates a new one.
func (st *SegmentStore) FindOrCreateNode(pos Vec2, snapDist float32) SegmentNodeID {
	d2 := snapDist * snapDist
	for i := range st.Nodes {
		n := &st.Nodes[i]
		if !n.Alive {
			continue
		}
		dx, dy := n.Pos.X-pos.X, n.Pos.Y-pos.Y
		if dx*dx+dy*dy <= d2 {
			return n.ID
		}
	}
	id := SegmentNodeID(len(st.Nodes))
	st.Nodes = append(st.Nodes, SegmentNode{ID: id, Pos: pos, Alive: true})
	return id
}

// AddSegment creates a segment between two existing nodes, rasterises it
// onto the grid, and mirrors the road cells into the cell graph. The CSR
// cache is invalidated through the graph's dirty flag.
func (st *SegmentStore) AddSegment(start, end SegmentNodeID, p0, p1, p2, p3 Vec2, rt grid.RoadType, g *grid.WorldGrid, cg *CellGraph) SegmentID {
	id := SegmentID(len(st.Segments))
	seg := Segment{
		ID:        id,
		StartNode: start,
		EndNode:   end,
		P0:        p0, P1: p1, P2: p2, P3: p3,
		RoadType: rt,
		Alive:    true,
	}
	seg.ArcLength = seg.ComputeArcLength()
	seg.RasterizedCells = rasterize(&seg, g, cg)

	if n := st.Node(start); n != nil {
		n.Connected = append(n.Connected, id)
	}
	if n := st.Node(end); n != nil {
		n.Connected = append(n.Connected, id)
	}
	st.Segments = append(st.Segments, seg)
	return id
}

// AddStraightSegment places a straight road between two world points,
// snapping endpoints to nearby nodes. Returns the segment id and its
// rasterised cells.
func (st *SegmentStore) AddStraightSegment(from, to Vec2, rt grid.RoadType, snapDist float32, g *grid.WorldGrid, cg *CellGraph) (SegmentID, [][2]int) {
	start := st.FindOrCreateNode(from, snapDist)
	end := st.FindOrCreateNode(to, snapDist)
	p1 := Vec2{X: from.X + (to.X-from.X)/3, Y: from.Y + (to.Y-from.Y)/3}
	p2 := Vec2{X: from.X + (to.X-from.X)*2/3, Y: from.Y + (to.Y-from.Y)*2/3}
	id := st.AddSegment(start, end, from, p1, p2, to, rt, g, cg)
	return id, st.Segments[id].RasterizedCells
}

// AddCurvedSegment places a curved road with explicit control handles.
func (st *SegmentStore) AddCurvedSegment(from, c1, c2, to Vec2, rt grid.RoadType, snapDist float32, g *grid.WorldGrid, cg *CellGraph) SegmentID {
	start := st.FindOrCreateNode(from, snapDist)
	end := st.FindOrCreateNode(to, snapDist)
	return st.AddSegment(start, end, from, c1, c2, to, rt, g, cg)
}

// RemoveSegment tombstones the segment, restores its cells to grass unless
// another live segment still covers them, and disconnects its nodes.
func (st *SegmentStore) RemoveSegment(id SegmentID, g *grid.WorldGrid, cg *CellGraph) {
	seg := st.Segment(id)
	if seg == nil {
		return
	}
	seg.Alive = false

	for _, c := range seg.RasterizedCells {
		if !st.coveredByOther(id, c[0], c[1]) {
			cg.RemoveRoad(g, c[0], c[1])
		}
	}

	for i := range st.Nodes {
		n := &st.Nodes[i]
		if !n.Alive {
			continue
		}
		n.Connected = removeSegID(n.Connected, id)
		if len(n.Connected) == 0 && (seg.StartNode == n.ID || seg.EndNode == n.ID) {
			n.Alive = false
		}
	}
}

// RasterizeAll re-stamps every live segment onto the grid. Used after load,
// when only control points are persisted.
func (st *SegmentStore) RasterizeAll(g *grid.WorldGrid, cg *CellGraph) {
	for i := range st.Segments {
		seg := &st.Segments[i]
		if !seg.Alive {
			continue
		}
		seg.RasterizedCells = rasterize(seg, g, cg)
	}
}

// CoversCell reports whether any live segment rasterises onto (x, y).
func (st *SegmentStore) CoversCell(x, y int) bool {
	for i := range st.Segments {
		seg := &st.Segments[i]
		if !seg.Alive {
			continue
		}
		for _, c := range seg.RasterizedCells {
			if c[0] == x && c[1] == y {
				return true
			}
		}
	}
	return false
}

func (st *SegmentStore) coveredByOther(except SegmentID, x, y int) bool {
	for i := range st.Segments {
		seg := &st.Segments[i]
		if !seg.Alive || seg.ID == except {
			continue
		}
		for _, c := range seg.RasterizedCells {
			if c[0] == x && c[1] == y {
				return true
			}
		}
	}
	return false
}

// rasterize samples the Bezier at sub-cell spacing and stamps each crossed
// cell as road, returning the covered cells in stamp order without
// duplicates.
func rasterize(seg *Segment, g *grid.WorldGrid, cg *CellGraph) [][2]int {
	steps := int(seg.ArcLength/(g.CellSize*0.5)) + 2
	seen := make(map[[2]int]struct{}, steps)
	var cells [][2]int
	for i := 0; i <= steps; i++ {
		p := seg.Evaluate(float32(i) / float32(steps))
		gx, gy := g.WorldToGrid(p.X, p.Y)
		if !grid.InBounds(gx, gy) {
			continue
		}
		key := [2]int{gx, gy}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cg.AddRoad(g, gx, gy, seg.RoadType)
		cells = append(cells, key)
	}
	return cells
}

func removeSegID(s []SegmentID, v SegmentID) []SegmentID {
	for i, x := range s {
		if x == v {
			s[i] = s[len(s)-1]
			return s[:len(s)-1]
		}
	}
	return s
}
