package sim

import (
	"github.com/citygrid/citygrid/grid"
)

// utilitiesSystem floods power and water flags outward from live sources.
// Wear shrinks the effective radius, so an aged water network slowly
// strands its outskirts.
func utilitiesSystem(w *World) {
	for i := range w.Grid.Cells {
		w.Grid.Cells[i].HasPower = false
		w.Grid.Cells[i].HasWater = false
	}
	for i := range w.Buildings.Utilities {
		u := &w.Buildings.Utilities[i]
		if !u.Alive {
			continue
		}
		var radius int
		switch u.Kind {
		case UtilityPower:
			radius = w.Cfg.Utilities.PowerRadius
		case UtilityWater:
			radius = w.Cfg.Utilities.WaterRadius
		}
		radius -= int(u.Wear * float32(radius))
		if radius < 1 {
			radius = 1
		}
		r2 := radius * radius
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy > r2 {
					continue
				}
				c := w.Grid.Get(u.X+dx, u.Y+dy)
				if c == nil {
					continue
				}
				switch u.Kind {
				case UtilityPower:
					c.HasPower = true
				case UtilityWater:
					c.HasWater = true
				}
			}
		}
	}
}

// pipeAgingSystem wears utility infrastructure down over time. Cold snaps
// crack pipes faster.
func pipeAgingSystem(w *World) {
	rate := float32(w.Cfg.Utilities.PipeAgingRate)
	if w.Weather.ColdSnap {
		rate *= 3
	}
	for i := range w.Buildings.Utilities {
		u := &w.Buildings.Utilities[i]
		if !u.Alive {
			continue
		}
		u.Wear += rate
		if u.Wear > 0.9 {
			u.Wear = 0.9
		}
	}
}

// coverageSystem is the sole owner of the coverage bitflag grid: it clears
// and restamps every category from the live service buildings.
func coverageSystem(w *World) {
	w.Coverage.Clear()
	for i := range w.Buildings.Services {
		s := &w.Buildings.Services[i]
		if !s.Alive {
			continue
		}
		w.Coverage.Stamp(s.X, s.Y, w.serviceRadius(s.Kind), s.Kind.CoverageBit())
	}
	w.Coverage.Dirty = false
}

func (w *World) serviceRadius(k ServiceKind) int {
	cfg := &w.Cfg.Services
	switch k {
	case ServiceHealth:
		return cfg.HealthRadius
	case ServiceEducation:
		return cfg.EducationRadius
	case ServicePolice:
		return cfg.PoliceRadius
	case ServiceFire:
		return cfg.FireRadius
	case ServicePark:
		return cfg.ParkRadius
	case ServiceEntertainment:
		return cfg.EntertainmentRadius
	case ServiceTelecom:
		return cfg.TelecomRadius
	case ServicePostal:
		return cfg.PostalRadius
	}
	return 8
}

// pollutionSystem recomputes emissions from industry and traffic. The grid
// is rebuilt from sources each run rather than accumulated, so bulldozing
// a factory actually cleans the air.
func pollutionSystem(w *World) {
	w.Pollution.Clear()
	industrial := w.Cfg.Environment.IndustrialPollution
	trafficCoef := w.Cfg.Environment.TrafficPollution

	for i := range w.Buildings.Buildings {
		b := &w.Buildings.Buildings[i]
		if !b.Alive || b.Zone != grid.ZoneIndustrial {
			continue
		}
		stampFalloff(w.Pollution, b.X, b.Y, 8, uint8(industrial))
	}

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			t := w.Traffic.Get(x, y)
			if t == 0 {
				continue
			}
			add := float64(t) / 256 * trafficCoef
			if add > 255 {
				add = 255
			}
			w.Pollution.AddClamped(x, y, uint8(add))
		}
	}

	// Rain scrubs particulates.
	if w.Weather.Raining {
		for i, v := range w.Pollution.Cells {
			w.Pollution.Cells[i] = v - v/4
		}
	}
}

// stampFalloff writes a value that decays linearly with distance from the
// center.
func stampFalloff(g *grid.GridU8, cx, cy, radius int, peak uint8) {
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > r2 {
				continue
			}
			frac := 1 - float32(d2)/float32(r2)
			g.AddClamped(cx+dx, cy+dy, uint8(float32(peak)*frac))
		}
	}
}

// landValueSystem derives land value from coverage, pollution, and water
// proximity. Parks raise value through the coverage term.
func landValueSystem(w *World) {
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			v := 80
			v += grid.Count(w.Coverage.Get(x, y)) * 12
			v -= int(w.Pollution.Get(x, y)) / 2
			v -= int(w.Crime.Get(x, y)) / 3
			if c := w.Grid.Get(x, y); c != nil && c.Type == grid.CellWater {
				v = 0
			} else if w.nearWater(x, y) {
				v += 30
			}
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			w.LandValue.Set(x, y, uint8(v))
		}
	}
}

func (w *World) nearWater(x, y int) bool {
	for dy := -3; dy <= 3; dy++ {
		for dx := -3; dx <= 3; dx++ {
			if c := w.Grid.Get(x+dx, y+dy); c != nil && c.Type == grid.CellWater {
				return true
			}
		}
	}
	return false
}

// crimeSystem computes crime pressure from land value and density, cut
// multiplicatively by police and education coverage. Modifiers clamp to
// the configured bound so stacked interactions cannot zero a grid out.
func crimeSystem(w *World) {
	base := w.Cfg.Environment.CrimeBase
	eduCut := w.Cfg.Environment.EducationCrimeCut
	clampBound := w.Cfg.Environment.ModifierClamp

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			if c == nil || c.Building == 0 {
				w.Crime.Set(x, y, 0)
				continue
			}
			v := base + float64(255-w.LandValue.Get(x, y))/4

			mod := 1.0
			if w.Coverage.Has(x, y, ServicePolice.CoverageBit()) {
				mod *= 0.5
			}
			if w.Coverage.Has(x, y, ServiceEducation.CoverageBit()) {
				mod *= eduCut
			}
			mod = clampModifier(mod, clampBound)

			v *= mod
			if v > 255 {
				v = 255
			}
			w.Crime.Set(x, y, uint8(v))
		}
	}
}

// clampModifier bounds a multiplicative interaction to [1/bound, bound].
func clampModifier(mod, bound float64) float64 {
	if bound <= 1 {
		return mod
	}
	if mod > bound {
		return bound
	}
	if mod < 1/bound {
		return 1 / bound
	}
	return mod
}

// wellbeingSystem writes the health and education level grids. Parks
// amplify health coverage; libraries (education coverage) amplify the
// education grid, both through clamped multiplicative modifiers.
func wellbeingSystem(w *World) {
	parkBoost := w.Cfg.Environment.ParkHealthBoost
	libAmp := w.Cfg.Environment.LibraryEducationAmp
	clampBound := w.Cfg.Environment.ModifierClamp

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			health := 60.0
			if w.Coverage.Has(x, y, ServiceHealth.CoverageBit()) {
				health += 80
			}
			mod := 1.0
			if w.Coverage.Has(x, y, ServicePark.CoverageBit()) {
				mod *= parkBoost
			}
			health = health * clampModifier(mod, clampBound)
			health -= float64(w.Pollution.Get(x, y)) / 3
			w.HealthGrid.Set(x, y, clampU8(health))

			edu := 20.0
			if w.Coverage.Has(x, y, ServiceEducation.CoverageBit()) {
				edu = 120 * clampModifier(libAmp, clampBound)
			}
			w.EduGrid.Set(x, y, clampU8(edu))
		}
	}
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// heatIslandSystem accumulates urban heat from roads and buildings,
// relative to the current air temperature.
func heatIslandSystem(w *World) {
	roadHeat := w.Cfg.Environment.UhiRoadHeat
	buildingHeat := w.Cfg.Environment.UhiBuildingHeat
	ambient := (w.Weather.Temperature - 10) * 2
	if ambient < 0 {
		ambient = 0
	}

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			v := ambient
			if c.Type == grid.CellRoad {
				v += roadHeat
			}
			if c.Building != 0 {
				v += buildingHeat
			}
			if w.Coverage.Has(x, y, ServicePark.CoverageBit()) {
				v *= 0.7 // tree shade
			}
			w.Heat.Set(x, y, float32(v))
		}
	}
}

// stormwaterSystem tracks runoff: paved cells shed rain into the grid,
// green cells absorb it between storms.
func stormwaterSystem(w *World) {
	runoff := w.Cfg.Environment.StormwaterRunoff

	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			v := float64(w.Stormwater.Get(x, y))
			paved := c.Type == grid.CellRoad || c.Building != 0
			if w.Weather.Raining && paved {
				v += runoff * w.Weather.RainIntensity * 10
			} else if !paved {
				v -= 20 // soil absorption
			} else {
				v -= 5 // drains
			}
			if v < 0 {
				v = 0
			}
			w.Stormwater.Set(x, y, float32(v))
		}
	}
}
