package sim

import (
	"github.com/citygrid/citygrid/components"
)

// needsSystem decays and restores the five need scalars based on what the
// citizen is currently doing. Commutes restore nothing, which is the
// pressure that makes long-distance housing miserable.
func needsSystem(w *World) {
	cfg := &w.Cfg.Needs

	query := w.citizenFilter.Query()
	for query.Next() {
		pos, _, state, _, needs, _, _ := query.Get()
		entity := query.Entity()
		if lod := w.lodMap.Get(entity); lod != nil && lod.Tier == components.LodAbstract {
			continue
		}

		needs.Hunger = clampNeed(needs.Hunger - float32(cfg.HungerDecay))
		needs.Energy = clampNeed(needs.Energy - float32(cfg.EnergyDecay))
		needs.Social = clampNeed(needs.Social - float32(cfg.SocialDecay))
		needs.Fun = clampNeed(needs.Fun - float32(cfg.FunDecay))

		switch state.State {
		case components.AtHome:
			needs.Energy = clampNeed(needs.Energy + float32(cfg.EnergyRestore))
			needs.Hunger = clampNeed(needs.Hunger + float32(cfg.HungerRestore)*0.5)
		case components.Shopping:
			needs.Hunger = clampNeed(needs.Hunger + float32(cfg.HungerRestore))
		case components.AtLeisure:
			needs.Fun = clampNeed(needs.Fun + float32(cfg.FunRestore))
			needs.Social = clampNeed(needs.Social + float32(cfg.SocialRestore))
		case components.Working:
			needs.Social = clampNeed(needs.Social + float32(cfg.SocialRestore)*0.3)
		case components.AtSchool:
			needs.Social = clampNeed(needs.Social + float32(cfg.SocialRestore)*0.5)
		}

		// Comfort tracks utilities at the current cell.
		x, y := w.Grid.WorldToGrid(pos.X, pos.Y)
		if c := w.Grid.Get(x, y); c != nil && c.HasPower && c.HasWater {
			needs.Comfort = clampNeed(needs.Comfort + float32(cfg.ComfortUtility))
		} else {
			needs.Comfort = clampNeed(needs.Comfort - float32(cfg.ComfortDecay))
		}
	}
}
