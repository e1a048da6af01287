package sim

import (
	"testing"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/pathfind"
)

func TestCommuteCycle(t *testing.T) {
	tc := NewTestCity(t).
		WithRoad(10, 10, 20, 10, grid.RoadLocal).
		WithBuilding(12, 11, grid.ZoneResidentialLow).
		WithBuilding(18, 11, grid.ZoneCommercialLow)
	w := tc.World

	// Keep migration out of the picture so occupancy stays attributable
	// to the one citizen under test.
	w.Cfg.Immigration.HappinessThreshold = 1000

	var id uint32
	tc.WithCitizen(CitizenSpec{
		Age: 30, HomeX: 12, HomeY: 11, WorkX: 18, WorkY: 11, HasWork: true,
	}, &id)

	e, ok := w.CitizenByID(id)
	if !ok {
		t.Fatal("citizen not registered")
	}
	home := w.homeMap.Get(e)
	work := w.workMap.Get(e)
	if home.Building == 0 || work.Building == 0 {
		t.Fatal("home or work building not resolved from cells")
	}

	tc.Tick(1000)

	st := w.stateMap.Get(e)
	if st == nil {
		t.Fatal("citizen entity lost during simulation")
	}
	if !st.EverWorked {
		t.Errorf("citizen never reached Working in 1000 ticks (state %d)", st.State)
	}
	if hb := w.Buildings.Building(home.Building); hb == nil || hb.Occupants != 1 {
		t.Errorf("home occupancy inconsistent with one resident")
	}
	if wb := w.Buildings.Building(work.Building); wb == nil || wb.Occupants != 1 {
		t.Errorf("work occupancy inconsistent with one employee")
	}
}

func TestPathBudgetPerTick(t *testing.T) {
	tc := NewTestCity(t)
	w := tc.World

	// Dense road grid so every request has a route.
	for y := 10; y <= 60; y += 5 {
		tc.WithRoad(10, y, 60, y, grid.RoadLocal)
	}
	for x := 10; x <= 60; x += 5 {
		tc.WithRoad(x, 10, x, 60, grid.RoadLocal)
	}

	for i := 0; i < 500; i++ {
		w.Paths.Enqueue(pathfind.Request{
			Requester: uint32(i + 1),
			FromX:     10 + i%50, FromY: 10,
			ToX: 10 + i%50, ToY: 60,
		})
	}
	if w.Paths.QueueLen() != 500 {
		t.Fatalf("queue = %d, want 500", w.Paths.QueueLen())
	}

	budget := w.Cfg.Pathfinding.BudgetPerTick
	if budget != 64 {
		t.Fatalf("default path budget = %d, want 64", budget)
	}
	remaining := 500
	ticks := 0
	for remaining > 0 {
		tc.Tick(1)
		ticks++
		want := remaining - budget
		if want < 0 {
			want = 0
		}
		if got := w.Paths.QueueLen(); got != want {
			t.Fatalf("tick %d: queue = %d, want %d", ticks, got, want)
		}
		remaining = want
		if ticks > 10 {
			t.Fatal("budget drain did not converge")
		}
	}
	if ticks != 8 {
		t.Errorf("drained in %d ticks, want 8", ticks)
	}
}
