package sim

import (
	"testing"

	"github.com/citygrid/citygrid/config"
	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/roads"
)

// TestCity is a builder for simulation tests: each With* call mutates the
// world directly (no cost, no history entry) so scenarios state their
// preconditions without going through the command layer.
type TestCity struct {
	T     *testing.T
	World *World
}

// NewTestCity creates a fresh empty world on default config. The worker
// pool is shut down when the test ends.
func NewTestCity(t *testing.T) *TestCity {
	t.Helper()
	w, err := NewWorld(config.Default())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	t.Cleanup(w.Close)
	return &TestCity{T: t, World: w}
}

// WithRoad lays a straight road between two cells.
func (tc *TestCity) WithRoad(x1, y1, x2, y2 int, rt grid.RoadType) *TestCity {
	tc.T.Helper()
	w := tc.World
	fx, fy := w.Grid.GridToWorld(x1, y1)
	tx, ty := w.Grid.GridToWorld(x2, y2)
	snap := float32(w.Cfg.Pathfinding.SnapRadius) * w.Grid.CellSize
	w.Segments.AddStraightSegment(
		roads.Vec2{X: fx, Y: fy}, roads.Vec2{X: tx, Y: ty},
		rt, snap, w.Grid, w.CellGraph)
	return tc
}

// WithZone zones a rectangle of cells.
func (tc *TestCity) WithZone(x, y, width, height int, zone grid.ZoneType) *TestCity {
	tc.T.Helper()
	for dy := 0; dy < height; dy++ {
		for dx := 0; dx < width; dx++ {
			c := tc.World.Grid.Get(x+dx, y+dy)
			if c == nil {
				tc.T.Fatalf("WithZone: cell %d,%d out of bounds", x+dx, y+dy)
			}
			c.Zone = zone
		}
	}
	return tc
}

// WithBuilding grows a building on the cell, zoning it first.
func (tc *TestCity) WithBuilding(x, y int, zone grid.ZoneType) *TestCity {
	tc.T.Helper()
	c := tc.World.Grid.Get(x, y)
	if c == nil {
		tc.T.Fatalf("WithBuilding: cell %d,%d out of bounds", x, y)
	}
	c.Zone = zone
	if id := tc.World.Buildings.AddBuilding(tc.World.Grid, x, y, zone); id == 0 {
		tc.T.Fatalf("WithBuilding: cell %d,%d already occupied", x, y)
	}
	return tc
}

// WithCitizen spawns a citizen and hands the spec id back through out when
// non-nil. Home and work buildings are resolved from the cells when grown
// buildings exist there.
func (tc *TestCity) WithCitizen(spec CitizenSpec, out *uint32) *TestCity {
	tc.T.Helper()
	w := tc.World
	if c := w.Grid.Get(spec.HomeX, spec.HomeY); c != nil && spec.HomeBld == 0 {
		spec.HomeBld = uint32(c.Building)
	}
	if spec.HasWork && spec.WorkBld == 0 {
		if c := w.Grid.Get(spec.WorkX, spec.WorkY); c != nil {
			spec.WorkBld = uint32(c.Building)
		}
	}
	id := w.SpawnCitizen(spec)
	if out != nil {
		*out = id
	}
	return tc
}

// WithService places a service building.
func (tc *TestCity) WithService(x, y int, kind ServiceKind) *TestCity {
	tc.T.Helper()
	tc.World.Buildings.AddService(x, y, kind)
	tc.World.Coverage.Dirty = true
	return tc
}

// WithUtility places a utility source.
func (tc *TestCity) WithUtility(x, y int, kind UtilityKind) *TestCity {
	tc.T.Helper()
	tc.World.Buildings.AddUtility(x, y, kind)
	return tc
}

// WithBudget sets the treasury.
func (tc *TestCity) WithBudget(amount float64) *TestCity {
	tc.World.Budget.Treasury = amount
	return tc
}

// Tick advances the world by n ticks.
func (tc *TestCity) Tick(n int) *TestCity {
	tc.World.TickN(n)
	return tc
}

// AssertHasRoad fails the test unless the cell surface is road.
func (tc *TestCity) AssertHasRoad(x, y int) *TestCity {
	tc.T.Helper()
	c := tc.World.Grid.Get(x, y)
	if c == nil || c.Type != grid.CellRoad {
		tc.T.Errorf("expected road at %d,%d", x, y)
	}
	return tc
}

// AssertNoRoad fails the test if the cell surface is road.
func (tc *TestCity) AssertNoRoad(x, y int) *TestCity {
	tc.T.Helper()
	c := tc.World.Grid.Get(x, y)
	if c != nil && c.Type == grid.CellRoad {
		tc.T.Errorf("expected no road at %d,%d", x, y)
	}
	return tc
}

// AssertZone fails the test unless the cell carries the zone.
func (tc *TestCity) AssertZone(x, y int, zone grid.ZoneType) *TestCity {
	tc.T.Helper()
	c := tc.World.Grid.Get(x, y)
	if c == nil || c.Zone != zone {
		tc.T.Errorf("expected zone %d at %d,%d", zone, x, y)
	}
	return tc
}

// AssertBudgetAbove fails the test unless the treasury exceeds the amount.
func (tc *TestCity) AssertBudgetAbove(amount float64) *TestCity {
	tc.T.Helper()
	if tc.World.Budget.Treasury <= amount {
		tc.T.Errorf("treasury %.2f not above %.2f", tc.World.Budget.Treasury, amount)
	}
	return tc
}

// AssertTicksAtLeast fails the test unless the clock has reached n ticks.
func (tc *TestCity) AssertTicksAtLeast(n uint64) *TestCity {
	tc.T.Helper()
	if tc.World.Clock.Tick < n {
		tc.T.Errorf("clock at tick %d, expected at least %d", tc.World.Clock.Tick, n)
	}
	return tc
}
