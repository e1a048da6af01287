package pathfind

import (
	"testing"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/roads"
)

// buildGridCity lays a dense Manhattan road grid, a horizontal and
// vertical street every `spacing` cells, and returns the CSR view.
func buildGridCity(t *testing.T, spacing int) (*grid.WorldGrid, *roads.CellGraph, *roads.CSR) {
	t.Helper()
	g := grid.NewWorldGrid(16)
	cg := roads.NewCellGraph()
	for y := 8; y < 120; y += spacing {
		for x := 8; x < 120; x++ {
			cg.AddRoad(g, x, y, grid.RoadLocal)
		}
	}
	for x := 8; x < 120; x += spacing {
		for y := 8; y < 120; y++ {
			cg.AddRoad(g, x, y, grid.RoadLocal)
		}
	}
	csr := roads.NewCSR()
	csr.RebuildFrom(cg)
	return g, cg, csr
}

func TestAStarStraightLine(t *testing.T) {
	g := grid.NewWorldGrid(16)
	cg := roads.NewCellGraph()
	for x := 10; x <= 20; x++ {
		cg.AddRoad(g, x, 10, grid.RoadLocal)
	}
	csr := roads.NewCSR()
	csr.RebuildFrom(cg)

	a := NewAStar()
	path := a.FindPath(csr, csr.NodeAt(10, 10), csr.NodeAt(20, 10))
	if path == nil {
		t.Fatal("no path found")
	}
	if len(path) != 11 {
		t.Fatalf("path length %d, want 11", len(path))
	}
	if path[0] != [2]int{10, 10} || path[len(path)-1] != [2]int{20, 10} {
		t.Errorf("endpoints wrong: %v .. %v", path[0], path[len(path)-1])
	}
}

func TestAStarNoPath(t *testing.T) {
	g := grid.NewWorldGrid(16)
	cg := roads.NewCellGraph()
	cg.AddRoad(g, 10, 10, grid.RoadLocal)
	cg.AddRoad(g, 50, 50, grid.RoadLocal)
	csr := roads.NewCSR()
	csr.RebuildFrom(cg)

	a := NewAStar()
	if path := a.FindPath(csr, csr.NodeAt(10, 10), csr.NodeAt(50, 50)); path != nil {
		t.Errorf("expected no path, got %v", path)
	}
}

func TestAStarSameCell(t *testing.T) {
	g := grid.NewWorldGrid(16)
	cg := roads.NewCellGraph()
	cg.AddRoad(g, 10, 10, grid.RoadLocal)
	csr := roads.NewCSR()
	csr.RebuildFrom(cg)

	a := NewAStar()
	path := a.FindPath(csr, csr.NodeAt(10, 10), csr.NodeAt(10, 10))
	if len(path) != 1 {
		t.Fatalf("same-cell path length %d, want 1", len(path))
	}
}

// TestAStarAgreesWithBFSCost cross-checks the CSR search against a
// breadth-first search on the underlying cell graph: equal path cost,
// paths may differ by tie-breaks.
func TestAStarAgreesWithBFSCost(t *testing.T) {
	_, cg, csr := buildGridCity(t, 8)

	bfs := func(from, to int) int {
		if from == to {
			return 0
		}
		dist := map[int]int{from: 0}
		queue := []int{from}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range cg.Edges[cur] {
				if _, seen := dist[nb]; seen {
					continue
				}
				dist[nb] = dist[cur] + 1
				if nb == to {
					return dist[nb]
				}
				queue = append(queue, nb)
			}
		}
		return -1
	}

	a := NewAStar()
	pairs := [][4]int{
		{8, 8, 119, 112},
		{16, 8, 8, 64},
		{8, 16, 112, 8},
	}
	for _, p := range pairs {
		path := a.FindPath(csr, csr.NodeAt(p[0], p[1]), csr.NodeAt(p[2], p[3]))
		if path == nil {
			t.Fatalf("no path for %v", p)
		}
		want := bfs(grid.Index(p[0], p[1]), grid.Index(p[2], p[3]))
		if len(path)-1 != want {
			t.Errorf("pair %v: A* cost %d, BFS cost %d", p, len(path)-1, want)
		}
	}
}

func TestNearestRoadSnap(t *testing.T) {
	g := grid.NewWorldGrid(16)
	cg := roads.NewCellGraph()
	for x := 10; x <= 20; x++ {
		cg.AddRoad(g, x, 10, grid.RoadLocal)
	}
	csr := roads.NewCSR()
	csr.RebuildFrom(cg)

	x, y, ok := NearestRoad(csr, 12, 13, 5)
	if !ok || y != 10 || x != 12 {
		t.Errorf("snap = (%d,%d,%v), want (12,10,true)", x, y, ok)
	}

	if _, _, ok := NearestRoad(csr, 100, 100, 5); ok {
		t.Error("snap should fail beyond the radius")
	}
}

func TestServiceBudget(t *testing.T) {
	_, _, csr := buildGridCity(t, 8)

	svc := NewService(64, 5)
	for i := 0; i < 500; i++ {
		svc.Enqueue(Request{Requester: uint32(i + 1), FromX: 8, FromY: 8, ToX: 112, ToY: 112})
	}

	total := 0
	ticks := 0
	for svc.QueueLen() > 0 {
		ticks++
		results := svc.Drain(csr)
		if len(results) > 64 {
			t.Fatalf("tick %d solved %d requests, budget is 64", ticks, len(results))
		}
		total += len(results)
		if ticks == 1 && len(results) != 64 {
			t.Fatalf("first tick solved %d, want 64", len(results))
		}
	}
	if total != 500 {
		t.Errorf("solved %d requests, want 500 (none lost)", total)
	}
	if ticks != 8 {
		t.Errorf("drained in %d ticks, want 8", ticks)
	}
}

func TestServiceCoalescesDuplicates(t *testing.T) {
	_, _, csr := buildGridCity(t, 8)
	svc := NewService(64, 5)

	svc.Enqueue(Request{Requester: 7, FromX: 8, FromY: 8, ToX: 16, ToY: 8})
	svc.Enqueue(Request{Requester: 7, FromX: 8, FromY: 8, ToX: 24, ToY: 8})
	if svc.QueueLen() != 1 {
		t.Fatalf("queue length %d, want 1 after coalescing", svc.QueueLen())
	}

	results := svc.Drain(csr)
	if len(results) != 1 || !results[0].Found {
		t.Fatalf("unexpected results %v", results)
	}

	// After draining, the requester may enqueue again.
	svc.Enqueue(Request{Requester: 7, FromX: 8, FromY: 8, ToX: 16, ToY: 8})
	if svc.QueueLen() != 1 {
		t.Error("requester blocked after its request was answered")
	}
}

func TestServiceNoPathOutcome(t *testing.T) {
	g := grid.NewWorldGrid(16)
	cg := roads.NewCellGraph()
	cg.AddRoad(g, 10, 10, grid.RoadLocal)
	csr := roads.NewCSR()
	csr.RebuildFrom(cg)

	svc := NewService(64, 5)
	svc.Enqueue(Request{Requester: 1, FromX: 10, FromY: 10, ToX: 200, ToY: 200})
	results := svc.Drain(csr)
	if len(results) != 1 || results[0].Found {
		t.Errorf("expected NoPathFound, got %v", results)
	}
}
