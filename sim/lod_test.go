package sim

import (
	"testing"
	"time"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/grid"
)

func TestFullAbstractFullIsLossless(t *testing.T) {
	tc := NewTestCity(t).WithBuilding(50, 50, grid.ZoneResidentialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{
		Age: 33, Education: 3, Salary: 4200, HomeX: 50, HomeY: 50,
		Happiness:   77,
		Personality: components.Personality{Ambition: 0.7, Sociability: 0.2, Materialism: 0.4, Resilience: 0.9},
	}, &id)
	e, _ := w.CitizenByID(id)

	w.needsMap.Get(e).Hunger = 60
	w.stateMap.Get(e).State = components.Working
	before := *w.detailsMap.Get(e)
	needsBefore := *w.needsMap.Get(e)
	persBefore := *w.persMap.Get(e)
	famBefore := w.famMap.Get(e)
	homeBefore := *w.homeMap.Get(e)

	lod := w.lodMap.Get(e)
	lod.Tier = components.LodAbstract
	lod.Tier = components.LodFull

	if got := *w.detailsMap.Get(e); got != before {
		t.Errorf("details changed: %+v != %+v", got, before)
	}
	if got := *w.needsMap.Get(e); got != needsBefore {
		t.Errorf("needs changed: %+v != %+v", got, needsBefore)
	}
	if got := *w.persMap.Get(e); got != persBefore {
		t.Errorf("personality changed: %+v != %+v", got, persBefore)
	}
	if got := *w.homeMap.Get(e); got != homeBefore {
		t.Errorf("home changed: %+v != %+v", got, homeBefore)
	}
	if got := w.famMap.Get(e); got.Partner != famBefore.Partner || got.Parent != famBefore.Parent {
		t.Errorf("family links changed")
	}
	if st := w.stateMap.Get(e); st.State != components.Working {
		t.Errorf("state changed to %d", st.State)
	}
	if e2, ok := w.CitizenByID(id); !ok || e2 != e {
		t.Error("identity lost across tier change")
	}
}

func TestCompressRoundtripKeepsSnapshotFields(t *testing.T) {
	tc := NewTestCity(t).WithBuilding(70, 90, grid.ZoneResidentialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{Age: 48, HomeX: 70, HomeY: 90, Happiness: 64}, &id)
	e, _ := w.CitizenByID(id)
	w.stateMap.Get(e).State = components.AtLeisure
	w.velMap.Get(e).X = 3.5

	w.compressCitizen(e)
	if w.lodMap.Get(e).Tier != components.LodCompressed {
		t.Fatal("tier not Compressed")
	}
	cc := w.compMap.Get(e)
	if cc == nil {
		t.Fatal("no compressed record")
	}
	if cc.HomeX != 70 || cc.HomeY != 90 || cc.Age != 48 || cc.Happiness != 64 || cc.State != components.AtLeisure {
		t.Fatalf("snapshot = %+v", *cc)
	}
	if w.detailsMap.Get(e) != nil {
		t.Error("full components survived compression")
	}
	if _, ok := w.CitizenByID(id); ok {
		t.Error("compressed citizen still resolvable by old id")
	}

	w.decompressCitizen(e)
	details := w.detailsMap.Get(e)
	if details == nil {
		t.Fatal("decompression produced no details")
	}
	if details.Age != 48 || details.Happiness != 64 {
		t.Errorf("snapshot fields lost: age %d happiness %.0f", details.Age, details.Happiness)
	}
	if st := w.stateMap.Get(e); st.State != components.AtLeisure {
		t.Errorf("state = %d, want AtLeisure", st.State)
	}
	if home := w.homeMap.Get(e); home.GridX != 70 || home.GridY != 90 {
		t.Errorf("home = (%d,%d), want (70,90)", home.GridX, home.GridY)
	}
	// Derived state resets.
	if vel := w.velMap.Get(e); vel.X != 0 || vel.Y != 0 {
		t.Errorf("velocity not reset: %+v", *vel)
	}
	if path := w.pathMap.Get(e); len(path.Waypoints) != 0 {
		t.Error("path cache not reset")
	}
}

func TestCompressionSkipsCommuters(t *testing.T) {
	tc := NewTestCity(t).
		WithRoad(10, 10, 200, 10, grid.RoadLocal).
		WithBuilding(12, 11, grid.ZoneResidentialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{Age: 30, HomeX: 12, HomeY: 11}, &id)
	e, _ := w.CitizenByID(id)
	w.stateMap.Get(e).State = components.CommutingToShop

	// Observer far away from the citizen: it would compress if idle.
	w.Observe(w.Grid.GridToWorld(250, 250))

	if w.compMap.Get(e) != nil {
		t.Error("commuting citizen was compressed")
	}
}

func TestObserveReclassifiesWithoutTicking(t *testing.T) {
	tc := NewTestCity(t).WithBuilding(10, 10, grid.ZoneResidentialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{Age: 30, HomeX: 10, HomeY: 10}, &id)
	e, _ := w.CitizenByID(id)

	// Far observer compresses the idle citizen with no tick in between.
	w.Observe(w.Grid.GridToWorld(250, 250))
	if w.compMap.Get(e) == nil {
		t.Fatal("distant idle citizen not compressed by observe")
	}

	// Moving the observer back over the home cell revives it, again
	// without ticking.
	w.Observe(w.Grid.GridToWorld(10, 10))
	if w.compMap.Get(e) != nil {
		t.Fatal("citizen still compressed with the observer on top of it")
	}
	if w.detailsMap.Get(e) == nil {
		t.Fatal("revived citizen has no detail components")
	}

	// The observer pass also rebuilds the spatial index.
	wx, wy := w.Grid.GridToWorld(10, 10)
	found := w.Spatial.QueryRadiusInto(nil, wx, wy, float32(w.Cfg.World.CellSize)*2,
		func(q ecsEntity) (float32, float32, bool) {
			p := w.posMap.Get(q)
			if p == nil {
				return 0, 0, false
			}
			return p.X, p.Y, true
		})
	if len(found) == 0 {
		t.Error("spatial index empty at the citizen's position after observe")
	}
}

func TestDynamicCapStaysInBounds(t *testing.T) {
	tc := NewTestCity(t)
	p := tc.World.Perf
	cfg := tc.World.Cfg.Population

	// Sustained slow frames shrink toward the floor.
	for i := 0; i < 10000; i++ {
		p.Observe(500 * time.Millisecond)
	}
	if p.Cap != cfg.FloorCap {
		t.Errorf("cap = %d, want floor %d", p.Cap, cfg.FloorCap)
	}

	// Sustained fast frames grow toward the ceiling.
	for i := 0; i < 100000; i++ {
		p.Observe(time.Millisecond)
	}
	if p.Cap != cfg.CeilingCap {
		t.Errorf("cap = %d, want ceiling %d", p.Cap, cfg.CeilingCap)
	}
}

func TestEnforceCapVirtualizesOverflow(t *testing.T) {
	tc := NewTestCity(t).WithBuilding(40, 40, grid.ZoneResidentialHigh)
	w := tc.World

	for i := 0; i < 30; i++ {
		var id uint32
		tc.WithCitizen(CitizenSpec{Age: uint8(20 + i), HomeX: 40, HomeY: 40}, &id)
		e, _ := w.CitizenByID(id)
		w.compressCitizen(e)
	}
	before := w.CompressedCount()
	if before != 30 {
		t.Fatalf("compressed = %d, want 30", before)
	}

	w.Perf.Cap = 10
	w.enforceCap()

	real := w.CitizenCount() + w.CompressedCount()
	if real > 10 {
		t.Errorf("real entities = %d, want <= 10", real)
	}
	if got := w.VirtualPop.Total(); got != 20 {
		t.Errorf("virtual = %d, want 20", got)
	}
}
