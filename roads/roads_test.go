package roads

import (
	"testing"

	"github.com/citygrid/citygrid/grid"
)

func newTestGrid() (*grid.WorldGrid, *CellGraph) {
	return grid.NewWorldGrid(16), NewCellGraph()
}

func TestBezierEvaluateEndpoints(t *testing.T) {
	seg := Segment{
		P0: Vec2{0, 0}, P1: Vec2{100, 0}, P2: Vec2{200, 100}, P3: Vec2{300, 100},
	}
	start := seg.Evaluate(0)
	end := seg.Evaluate(1)
	if start != seg.P0 {
		t.Errorf("Evaluate(0) = %v, want %v", start, seg.P0)
	}
	if end != seg.P3 {
		t.Errorf("Evaluate(1) = %v, want %v", end, seg.P3)
	}
}

func TestArcLengthStraightLine(t *testing.T) {
	seg := Segment{
		P0: Vec2{0, 0}, P1: Vec2{100, 0}, P2: Vec2{200, 0}, P3: Vec2{300, 0},
	}
	l := seg.ComputeArcLength()
	if l < 299 || l > 301 {
		t.Errorf("arc length = %f, want ~300", l)
	}
}

func TestAddStraightSegmentRasterises(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()

	from := Vec2{10*16 + 8, 10*16 + 8}
	to := Vec2{20*16 + 8, 10*16 + 8}
	id, cells := st.AddStraightSegment(from, to, grid.RoadLocal, 8, g, cg)

	if len(cells) == 0 {
		t.Fatal("no cells rasterised")
	}
	for _, c := range cells {
		cell := g.Get(c[0], c[1])
		if cell.Type != grid.CellRoad || cell.Road != grid.RoadLocal {
			t.Errorf("cell %v not a local road", c)
		}
		if !cg.HasNode(grid.Index(c[0], c[1])) {
			t.Errorf("cell %v missing from cell graph", c)
		}
	}
	if st.Segment(id) == nil {
		t.Fatal("segment not stored")
	}
	if !cg.Dirty {
		t.Error("graph not marked dirty")
	}

	// Every road cell on the grid must be covered by the segment store.
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if g.Get(x, y).Type == grid.CellRoad && !st.CoversCell(x, y) {
				t.Errorf("road cell (%d,%d) not covered by any segment", x, y)
			}
		}
	}
}

func TestRemoveSegmentRestoresGrass(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()

	id, cells := st.AddStraightSegment(Vec2{168, 168}, Vec2{328, 168}, grid.RoadLocal, 8, g, cg)
	st.RemoveSegment(id, g, cg)

	for _, c := range cells {
		cell := g.Get(c[0], c[1])
		if cell.Type != grid.CellGrass || cell.Road != grid.RoadNone {
			t.Errorf("cell %v not restored to grass", c)
		}
	}
	if cg.NodeCount() != 0 {
		t.Errorf("cell graph still has %d nodes", cg.NodeCount())
	}
	if st.Segment(id) != nil {
		t.Error("removed segment still live")
	}
}

func TestRemoveKeepsSharedCells(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()

	// Two segments crossing at (15,10)-ish: horizontal then vertical.
	a, _ := st.AddStraightSegment(Vec2{168, 168}, Vec2{328, 168}, grid.RoadLocal, 4, g, cg)
	_, bCells := st.AddStraightSegment(Vec2{15*16 + 8, 5*16 + 8}, Vec2{15*16 + 8, 15*16 + 8}, grid.RoadLocal, 4, g, cg)

	st.RemoveSegment(a, g, cg)

	// Cells of the surviving segment must remain roads.
	for _, c := range bCells {
		if g.Get(c[0], c[1]).Type != grid.CellRoad {
			t.Errorf("shared/survivor cell %v lost its road", c)
		}
	}
}

func TestGraphSymmetry(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()
	st.AddStraightSegment(Vec2{168, 168}, Vec2{328, 168}, grid.RoadLocal, 8, g, cg)

	for node, nbs := range cg.Edges {
		for _, nb := range nbs {
			if !containsInt(cg.Edges[nb], node) {
				t.Errorf("edge %d->%d not symmetric", node, nb)
			}
		}
	}
}

func TestNodeConnectivityInvariant(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()
	st.AddStraightSegment(Vec2{168, 168}, Vec2{328, 168}, grid.RoadLocal, 8, g, cg)
	st.AddStraightSegment(Vec2{328, 168}, Vec2{328, 328}, grid.RoadLocal, 8, g, cg)

	for i := range st.Nodes {
		n := &st.Nodes[i]
		if !n.Alive {
			continue
		}
		for _, sid := range n.Connected {
			seg := st.Segment(sid)
			if seg == nil {
				t.Fatalf("node %d lists dead segment %d", n.ID, sid)
			}
			if seg.StartNode != n.ID && seg.EndNode != n.ID {
				t.Errorf("node %d lists segment %d that does not touch it", n.ID, sid)
			}
		}
	}

	// Shared endpoint should have been snapped to one node with 2 segments.
	shared := 0
	for i := range st.Nodes {
		if st.Nodes[i].Alive && len(st.Nodes[i].Connected) == 2 {
			shared++
		}
	}
	if shared != 1 {
		t.Errorf("expected exactly one shared node, got %d", shared)
	}
}

func TestCSRRebuild(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()
	st.AddStraightSegment(Vec2{168, 168}, Vec2{328, 168}, grid.RoadLocal, 8, g, cg)

	csr := NewCSR()
	csr.RebuildFrom(cg)

	if cg.Dirty {
		t.Error("rebuild must clear the dirty flag")
	}
	if csr.NodeCount() != cg.NodeCount() {
		t.Fatalf("node count %d != graph %d", csr.NodeCount(), cg.NodeCount())
	}
	if len(csr.Offsets) != csr.NodeCount()+1 {
		t.Fatalf("offsets length %d, want n+1", len(csr.Offsets))
	}
	for i := 1; i < len(csr.Offsets); i++ {
		if csr.Offsets[i] < csr.Offsets[i-1] {
			t.Fatal("offsets not monotone")
		}
	}

	// Edge count must match the graph's directed edge total.
	total := 0
	for _, nbs := range cg.Edges {
		total += len(nbs)
	}
	if csr.EdgeCount() != total {
		t.Errorf("edge count %d, want %d", csr.EdgeCount(), total)
	}

	// Every CSR edge must exist in the graph.
	for i := int32(0); i < int32(csr.NodeCount()); i++ {
		from := grid.Index(csr.Nodes[i][0], csr.Nodes[i][1])
		for _, j := range csr.Neighbours(i) {
			to := grid.Index(csr.Nodes[j][0], csr.Nodes[j][1])
			if !containsInt(cg.Edges[from], to) {
				t.Errorf("CSR edge %d->%d missing from graph", from, to)
			}
		}
	}
}

func TestCSRDeterministicRebuild(t *testing.T) {
	g, cg := newTestGrid()
	st := NewSegmentStore()
	st.AddStraightSegment(Vec2{168, 168}, Vec2{328, 168}, grid.RoadLocal, 8, g, cg)
	st.AddStraightSegment(Vec2{328, 168}, Vec2{328, 328}, grid.RoadAvenue, 8, g, cg)

	a, b := NewCSR(), NewCSR()
	a.RebuildFrom(cg)
	cg.Dirty = true
	b.RebuildFrom(cg)

	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		t.Fatal("rebuilds disagree in size")
	}
	for i := range a.Nodes {
		if a.Nodes[i] != b.Nodes[i] {
			t.Fatalf("node order differs at %d", i)
		}
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			t.Fatalf("edge order differs at %d", i)
		}
	}
}
