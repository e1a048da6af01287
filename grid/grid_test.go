package grid

import "testing"

func TestCoordinateRoundtrip(t *testing.T) {
	g := NewWorldGrid(16)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			wx, wy := g.GridToWorld(x, y)
			gx, gy := g.WorldToGrid(wx, wy)
			if gx != x || gy != y {
				t.Fatalf("roundtrip (%d,%d) -> (%f,%f) -> (%d,%d)", x, y, wx, wy, gx, gy)
			}
		}
	}
}

func TestWorldToGridNegative(t *testing.T) {
	g := NewWorldGrid(16)
	gx, gy := g.WorldToGrid(-1, -17)
	if gx != -1 || gy != -2 {
		t.Errorf("expected (-1,-2), got (%d,%d)", gx, gy)
	}
	if InBounds(gx, gy) {
		t.Error("negative indices must be out of bounds")
	}
}

func TestInBoundsMatchesIndexRange(t *testing.T) {
	cases := []struct {
		x, y int
		want bool
	}{
		{0, 0, true},
		{Width - 1, Height - 1, true},
		{Width, 0, false},
		{0, Height, false},
		{-1, 0, false},
		{0, -1, false},
	}
	for _, tc := range cases {
		if got := InBounds(tc.x, tc.y); got != tc.want {
			t.Errorf("InBounds(%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
		if tc.want {
			idx := Index(tc.x, tc.y)
			if idx < 0 || idx >= Width*Height {
				t.Errorf("Index(%d,%d) = %d out of range", tc.x, tc.y, idx)
			}
		}
	}
}

func TestNeighbors4Counts(t *testing.T) {
	cases := []struct {
		name string
		x, y int
		want int
	}{
		{"corner", 0, 0, 2},
		{"corner far", Width - 1, Height - 1, 2},
		{"edge", 10, 0, 3},
		{"interior", 100, 100, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nb, n := Neighbors4(tc.x, tc.y)
			if n != tc.want {
				t.Fatalf("count = %d, want %d", n, tc.want)
			}
			seen := map[[2]int]bool{}
			for i := 0; i < n; i++ {
				p := nb[i]
				if seen[p] {
					t.Errorf("duplicate neighbour %v", p)
				}
				seen[p] = true
				dx, dy := p[0]-tc.x, p[1]-tc.y
				if dx*dx+dy*dy != 1 {
					t.Errorf("%v is not 4-connected to (%d,%d)", p, tc.x, tc.y)
				}
				if !InBounds(p[0], p[1]) {
					t.Errorf("%v out of bounds", p)
				}
			}
		})
	}
}

func TestNeighbors4NoAlloc(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		Neighbors4(100, 100)
	})
	if allocs != 0 {
		t.Errorf("Neighbors4 allocated %v times per run", allocs)
	}
}

func TestGetOutOfBoundsIsNil(t *testing.T) {
	g := NewWorldGrid(16)
	if g.Get(-1, 0) != nil || g.Get(Width, 0) != nil {
		t.Error("out-of-bounds Get must return nil")
	}
}

func TestCoverageStampCircular(t *testing.T) {
	c := NewCoverageGrid()
	c.Stamp(100, 100, 5, CoverageHealth)

	if !c.Has(100, 100, CoverageHealth) {
		t.Error("center not covered")
	}
	if !c.Has(103, 104, CoverageHealth) { // 9+16=25 <= 25
		t.Error("cell on radius boundary not covered")
	}
	if c.Has(104, 104, CoverageHealth) { // 16+16=32 > 25
		t.Error("cell outside radius covered")
	}
	if c.Has(100, 100, CoveragePolice) {
		t.Error("unrelated bit set")
	}
}

func TestCoverageCount(t *testing.T) {
	if Count(0) != 0 {
		t.Error("empty flags should count 0")
	}
	if Count(CoverageHealth|CoveragePark|CoveragePostal) != 3 {
		t.Error("expected 3 categories")
	}
	if Count(0xFF) != CoverageCategories {
		t.Errorf("expected %d categories", CoverageCategories)
	}
}

func TestGridU8Saturation(t *testing.T) {
	g := NewGridU8()
	g.Set(1, 1, 250)
	g.AddClamped(1, 1, 10)
	if g.Get(1, 1) != 255 {
		t.Errorf("expected saturation at 255, got %d", g.Get(1, 1))
	}
}
