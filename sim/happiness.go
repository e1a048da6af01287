package sim

import (
	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/grid"
)

// hapSnapshot is the read-only input for one citizen's happiness
// reduction.
type hapSnapshot struct {
	Entity     ecsEntity
	HomeX      int
	HomeY      int
	Deficit    float32
	Resilience float32
}

// happinessSystem recomputes the per-citizen happiness reduction from the
// data grids at the home cell, service coverage, utilities, and the needs
// deficit, clamped to [0,100]. The grid reads are side-effect free so the
// compute phase runs on the worker pool; results land in a second pass.
func happinessSystem(w *World) {
	w.hapSnapshots = w.hapSnapshots[:0]

	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, _, _, needs, _, _ := query.Get()
		entity := query.Entity()
		if lod := w.lodMap.Get(entity); lod != nil && lod.Tier == components.LodAbstract {
			continue
		}
		home := w.homeMap.Get(entity)
		if home == nil {
			continue
		}
		resilience := float32(0.5)
		if pers := w.persMap.Get(entity); pers != nil {
			resilience = pers.Resilience
		}
		w.hapSnapshots = append(w.hapSnapshots, hapSnapshot{
			Entity:     entity,
			HomeX:      home.GridX,
			HomeY:      home.GridY,
			Deficit:    needs.Deficit(),
			Resilience: resilience,
		})
	}

	n := len(w.hapSnapshots)
	if n == 0 {
		return
	}

	results := make([]float32, n)
	w.pool.run(n, func(start, end, _ int) {
		for i := start; i < end; i++ {
			results[i] = w.computeHappiness(&w.hapSnapshots[i])
		}
	})

	for i := 0; i < n; i++ {
		if details := w.detailsMap.Get(w.hapSnapshots[i].Entity); details != nil {
			details.Happiness = results[i]
		}
	}
}

// computeHappiness is the pure reduction for one citizen.
func (w *World) computeHappiness(s *hapSnapshot) float32 {
	cfg := &w.Cfg.Happiness
	x, y := s.HomeX, s.HomeY

	h := cfg.Base
	h += float64(grid.Count(w.Coverage.Get(x, y))) * cfg.CoverageBonus
	h -= float64(w.Pollution.Get(x, y)) / 25 * cfg.PollutionPenalty
	h += float64(w.LandValue.Get(x, y)) / 50 * cfg.LandValueBonus
	h -= float64(w.Traffic.Get(x, y)) / 25 * cfg.TrafficPenalty

	if c := w.Grid.Get(x, y); c != nil {
		switch {
		case c.HasPower && c.HasWater:
			h += cfg.PowerBonus + cfg.WaterBonus
		case c.HasPower:
			h += cfg.PowerBonus
		case c.HasWater:
			h += cfg.WaterBonus
		default:
			h -= cfg.NoUtilityPenalty
		}
	}

	// Needs deficit weighs heavier on low-resilience citizens.
	weight := cfg.NeedsWeight * (1.5 - float64(s.Resilience))
	h -= float64(s.Deficit) * weight

	if h < 0 {
		h = 0
	}
	if h > 100 {
		h = 100
	}
	return float32(h)
}
