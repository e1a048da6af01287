package sim

import (
	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/config"
	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/logging"
	"github.com/citygrid/citygrid/roads"
)

// NewEmptyWorld creates a blank grass world with default resources and no
// entities.
func NewEmptyWorld(cfg *config.Config) (*World, error) {
	return NewWorld(cfg)
}

// NewTelAviv builds the reference map: a coastal strip on the west edge, an
// avenue grid through the city core, zoned blocks, scattered services and
// utilities, and an initial population of about ten thousand. Generation is
// deterministic in the config seed.
func NewTelAviv(cfg *config.Config) (*World, error) {
	w, err := NewWorld(cfg)
	if err != nil {
		return nil, err
	}

	generateTerrain(w)
	layoutRoads(w)
	layoutZones(w)
	placeCivics(w)
	growInitialBuildings(w)
	seedPopulation(w, 10000)

	// Construction above is terraforming, not player edits.
	w.History.Clear()

	logging.Logf("map: reference city ready (%d buildings, %d citizens, %d road cells)",
		len(w.Buildings.Buildings), w.CitizenCount(), w.roadCellCount())
	return w, nil
}

// generateTerrain fills elevation from fractal noise and floods the west
// edge: the coastline wanders with the noise so the shore is not a straight
// column.
func generateTerrain(w *World) {
	noise := newPerlinNoise(w.Cfg.World.Seed)
	for y := 0; y < grid.Height; y++ {
		shore := 18 + int(noise.fractal2D(0.5, float64(y)*0.035, 3)*10)
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			e := noise.fractal2D(float64(x)*0.02, float64(y)*0.02, 4)
			c.Elevation = float32((e + 1) / 2)
			if x < shore {
				c.Type = grid.CellWater
				c.Elevation = 0
			}
		}
	}
}

// layoutRoads lays the avenue grid: north-south avenues every 24 cells and
// east-west locals every 12, clipped to dry land, plus one highway along
// the east edge.
func layoutRoads(w *World) {
	snap := float32(w.Cfg.Pathfinding.SnapRadius) * w.Grid.CellSize

	firstDry := func(y int) int {
		for x := 0; x < grid.Width; x++ {
			if w.Grid.Get(x, y).Type != grid.CellWater {
				return x
			}
		}
		return grid.Width
	}

	for x := 36; x < 228; x += 24 {
		fx, fy := w.Grid.GridToWorld(x, 8)
		tx, ty := w.Grid.GridToWorld(x, 248)
		w.Segments.AddStraightSegment(
			roads.Vec2{X: fx, Y: fy}, roads.Vec2{X: tx, Y: ty},
			grid.RoadAvenue, snap, w.Grid, w.CellGraph)
	}
	for y := 8; y < 252; y += 12 {
		start := firstDry(y) + 2
		if start >= 224 {
			continue
		}
		fx, fy := w.Grid.GridToWorld(start, y)
		tx, ty := w.Grid.GridToWorld(228, y)
		w.Segments.AddStraightSegment(
			roads.Vec2{X: fx, Y: fy}, roads.Vec2{X: tx, Y: ty},
			grid.RoadLocal, snap, w.Grid, w.CellGraph)
	}
	fx, fy := w.Grid.GridToWorld(240, 8)
	tx, ty := w.Grid.GridToWorld(240, 248)
	w.Segments.AddStraightSegment(
		roads.Vec2{X: fx, Y: fy}, roads.Vec2{X: tx, Y: ty},
		grid.RoadHighway, snap, w.Grid, w.CellGraph)
}

// layoutZones zones the blocks between roads: residential near the coast,
// commercial through the centre, industrial by the highway.
func layoutZones(w *World) {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			if c.Type != grid.CellGrass || !w.nearRoad(x, y, 2) {
				continue
			}
			switch {
			case x < 90:
				c.Zone = grid.ZoneResidentialMedium
			case x < 120:
				c.Zone = grid.ZoneResidentialHigh
			case x < 150:
				c.Zone = grid.ZoneCommercialHigh
			case x < 180:
				c.Zone = grid.ZoneMixedUse
			case x < 210:
				c.Zone = grid.ZoneOffice
			default:
				c.Zone = grid.ZoneIndustrial
			}
		}
	}
}

// placeCivics scatters one of each service per city quarter plus utilities
// spaced to cover the built-up area.
func placeCivics(w *World) {
	quarter := []struct{ x, y int }{
		{70, 70}, {170, 70}, {70, 190}, {170, 190},
	}
	for qi, q := range quarter {
		for k := ServiceHealth; k < serviceKindCount; k++ {
			x := q.x + int(k)*5
			y := q.y + qi%2*3
			if c := w.Grid.Get(x, y); c != nil && c.Type == grid.CellGrass {
				w.Buildings.AddService(x, y, k)
			}
		}
	}
	for _, p := range []struct {
		x, y int
		kind UtilityKind
	}{
		{100, 60, UtilityPower}, {100, 200, UtilityPower}, {200, 130, UtilityPower},
		{60, 120, UtilityWater}, {150, 90, UtilityWater}, {150, 180, UtilityWater},
	} {
		if c := w.Grid.Get(p.x, p.y); c != nil && c.Type == grid.CellGrass {
			w.Buildings.AddUtility(p.x, p.y, p.kind)
		}
	}
	w.Coverage.Dirty = true
}

// growInitialBuildings develops a deterministic fraction of zoned cells so
// the reference city starts with homes and jobs instead of bare zoning.
func growInitialBuildings(w *World) {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			if c.Type != grid.CellGrass || c.Zone == grid.ZoneNone || c.Building != 0 {
				continue
			}
			h := TickHash(w.Cfg.World.Seed, uint64(grid.Index(x, y)), 0x7E1A)
			if hashUnit(h) < 0.35 {
				w.Buildings.AddBuilding(w.Grid, x, y, c.Zone)
			}
		}
	}
}

// seedPopulation spawns up to n citizens into available housing, employing
// as many as job capacity allows.
func seedPopulation(w *World, n int) {
	for i := 0; i < n; i++ {
		home := w.Buildings.FindHome()
		if home == nil {
			logging.Logf("map: housing exhausted after %d citizens", i)
			return
		}
		h := TickHash(w.Cfg.World.Seed, uint64(i), 0x5EED)
		spec := CitizenSpec{
			Age:         uint8(5 + hashRange(h, 70)),
			Gender:      components.Gender(hashRange(splitmix64(h), 2)),
			Education:   uint8(hashRange(splitmix64(h^0xED), 4)),
			HomeX:       home.X,
			HomeY:       home.Y,
			HomeBld:     home.ID,
			Happiness:   float32(50 + hashRange(splitmix64(h^0x4A), 25)),
			Personality: personalityFromHash(splitmix64(h ^ 0x9E)),
		}
		if spec.Age >= 18 {
			if job := w.Buildings.FindJob(); job != nil {
				spec.HasWork = true
				spec.WorkX, spec.WorkY, spec.WorkBld = job.X, job.Y, job.ID
			}
		}
		w.SpawnCitizen(spec)
	}
}
