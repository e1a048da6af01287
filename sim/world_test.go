package sim

import (
	"testing"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/config"
	"github.com/citygrid/citygrid/grid"
)

func TestEmptyWorldConstruction(t *testing.T) {
	tc := NewTestCity(t)
	w := tc.World

	if len(w.Grid.Cells) != grid.Width*grid.Height {
		t.Fatalf("cell count = %d, want %d", len(w.Grid.Cells), grid.Width*grid.Height)
	}
	for i := range w.Grid.Cells {
		c := &w.Grid.Cells[i]
		if c.Type != grid.CellGrass || c.Elevation != 0 || c.Zone != grid.ZoneNone {
			t.Fatalf("cell %d not blank: %+v", i, *c)
		}
	}
	if w.CitizenCount() != 0 || w.CompressedCount() != 0 {
		t.Errorf("expected zero entities, got %d full + %d compressed",
			w.CitizenCount(), w.CompressedCount())
	}
	if w.Budget.Treasury != w.Cfg.World.StartingMoney {
		t.Errorf("treasury = %.0f, want %.0f", w.Budget.Treasury, w.Cfg.World.StartingMoney)
	}
	if w.Clock.Tick != 0 {
		t.Errorf("tick = %d, want 0", w.Clock.Tick)
	}

	tc.Tick(100)
	if w.CitizenCount() != 0 {
		t.Errorf("citizens appeared in an empty world: %d", w.CitizenCount())
	}
	if w.Budget.Treasury != w.Cfg.World.StartingMoney {
		t.Errorf("treasury drifted to %.2f with nothing to pay for", w.Budget.Treasury)
	}
	tc.AssertTicksAtLeast(100)
}

func TestNewGameIsIdempotent(t *testing.T) {
	tc := NewTestCity(t).
		WithRoad(10, 10, 30, 10, grid.RoadLocal).
		WithBuilding(12, 11, grid.ZoneResidentialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{Age: 30, HomeX: 12, HomeY: 11}, &id)
	w.Weather.Raining = true
	w.Waste.LandfillTons = 12
	w.Budget.Spend(100)
	tc.Tick(5)

	check := func(label string) {
		t.Helper()
		if n := w.CitizenCount() + w.CompressedCount(); n != 0 {
			t.Errorf("%s: %d citizen entities survived", label, n)
		}
		if w.Clock.Tick != 0 {
			t.Errorf("%s: tick = %d", label, w.Clock.Tick)
		}
		if w.Budget.Treasury != w.Cfg.World.StartingMoney {
			t.Errorf("%s: treasury = %.2f", label, w.Budget.Treasury)
		}
		if w.Segments.SegmentCount() != 0 {
			t.Errorf("%s: %d road segments survived", label, w.Segments.SegmentCount())
		}
		for i := range w.Grid.Cells {
			c := &w.Grid.Cells[i]
			if c.Type != grid.CellGrass || c.Zone != grid.ZoneNone || c.Building != 0 {
				t.Fatalf("%s: cell %d not blank: %+v", label, i, *c)
			}
		}
		if w.Weather.Raining {
			t.Errorf("%s: weather still raining", label)
		}
		if w.Waste.LandfillTons != 0 {
			t.Errorf("%s: landfill not emptied", label)
		}
		if w.History.UndoDepth() != 0 {
			t.Errorf("%s: action history survived", label)
		}
		// Every registered extension is back at its default, so the
		// registry elides all of them.
		if m := w.Registry.SaveAll(); len(m) != 0 {
			t.Errorf("%s: registry still carries %d non-default entries", label, len(m))
		}
	}

	w.NewGame()
	check("first new game")
	w.NewGame()
	check("second new game")

	// A fresh city is fully playable after the reset.
	tc.Tick(10)
	tc.AssertTicksAtLeast(10)
}

func TestCoordinateRoundtripThroughWorld(t *testing.T) {
	tc := NewTestCity(t)
	g := tc.World.Grid
	for _, p := range [][2]int{{0, 0}, {255, 255}, {128, 17}, {1, 254}} {
		wx, wy := g.GridToWorld(p[0], p[1])
		gx, gy := g.WorldToGrid(wx, wy)
		if gx != p[0] || gy != p[1] {
			t.Errorf("roundtrip (%d,%d) -> (%d,%d)", p[0], p[1], gx, gy)
		}
	}
}

func TestEvictBuildingAbortsWorkCommute(t *testing.T) {
	tc := NewTestCity(t).
		WithRoad(10, 10, 20, 10, grid.RoadLocal).
		WithBuilding(12, 11, grid.ZoneResidentialLow).
		WithBuilding(18, 11, grid.ZoneCommercialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{
		Age: 30, HomeX: 12, HomeY: 11, WorkX: 18, WorkY: 11, HasWork: true,
	}, &id)
	e, ok := w.CitizenByID(id)
	if !ok {
		t.Fatal("citizen not registered")
	}

	work := w.workMap.Get(e)
	jobID := work.Building
	if jobID == 0 {
		t.Fatal("work building not resolved")
	}
	w.Buildings.RemoveBuilding(w.Grid, jobID)
	w.evictBuilding(jobID)

	if work.Valid {
		t.Error("work reference still valid after demolition")
	}
	if st := w.stateMap.Get(e); st.State != components.AtHome {
		t.Errorf("state = %d, want AtHome after workplace demolition", st.State)
	}
}

func TestReferenceMapTelAviv(t *testing.T) {
	if testing.Short() {
		t.Skip("reference map generation is slow")
	}
	w, err := NewTelAviv(config.Default())
	if err != nil {
		t.Fatalf("NewTelAviv: %v", err)
	}
	defer w.Close()

	water := 0
	for i := range w.Grid.Cells {
		if w.Grid.Cells[i].Type == grid.CellWater {
			water++
		}
	}
	if water == 0 {
		t.Error("reference map has no coastline")
	}
	if w.roadCellCount() == 0 {
		t.Error("reference map has no roads")
	}
	if len(w.Buildings.Buildings) == 0 {
		t.Error("reference map has no buildings")
	}
	if got := w.CitizenCount(); got < 5000 {
		t.Errorf("population = %d, want thousands", got)
	}
	if w.History.UndoDepth() != 0 {
		t.Error("map generation leaked into undo history")
	}

	// Every road cell must trace back to a segment or the road slot
	// contract breaks on save.
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			if w.Grid.Get(x, y).Type == grid.CellRoad && !w.Segments.CoversCell(x, y) {
				t.Fatalf("road cell (%d,%d) not covered by any segment", x, y)
			}
		}
	}
}
