package sim

import (
	"encoding/binary"
	"math"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/logging"
)

// Budget is the city treasury plus the running daily tallies shown in
// telemetry. Spending validation happens in the command layer; systems
// credit and debit through the helpers so the tallies stay consistent.
type Budget struct {
	Treasury     float64
	DailyIncome  float64
	DailyExpense float64
}

// CanAfford reports whether a cost can be paid.
func (b *Budget) CanAfford(cost float64) bool {
	return cost <= b.Treasury
}

// Spend debits the treasury. Callers validate affordability first; a
// negative balance from a forced debit is tolerated but logged.
func (b *Budget) Spend(amount float64) {
	b.Treasury -= amount
	b.DailyExpense += amount
	if b.Treasury < 0 {
		logging.LogOncef("treasury-negative", "budget: treasury went negative (%.2f)", b.Treasury)
	}
}

// Credit adds income to the treasury.
func (b *Budget) Credit(amount float64) {
	b.Treasury += amount
	b.DailyIncome += amount
}

// Encode packs the budget for the "budget" save slot.
func (b *Budget) Encode() []byte {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(b.Treasury))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(b.DailyIncome))
	binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(b.DailyExpense))
	return buf
}

// Decode restores the budget from its save slot.
func (b *Budget) Decode(data []byte) bool {
	if len(data) < 24 {
		return false
	}
	b.Treasury = math.Float64frombits(binary.LittleEndian.Uint64(data[0:]))
	b.DailyIncome = math.Float64frombits(binary.LittleEndian.Uint64(data[8:]))
	b.DailyExpense = math.Float64frombits(binary.LittleEndian.Uint64(data[16:]))
	return true
}

// Demand tracks zoning pressure per sector in [0,1]. High residential
// demand with available zoned cells drives building growth; demand reacts
// to vacancy and unemployment.
type Demand struct {
	Residential float32
	Commercial  float32
	Industrial  float32
}

// Encode packs demand for the "demand" save slot.
func (d *Demand) Encode() []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(d.Residential))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(d.Commercial))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(d.Industrial))
	return buf
}

// Decode restores demand from its save slot.
func (d *Demand) Decode(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	d.Residential = math.Float32frombits(binary.LittleEndian.Uint32(data[0:]))
	d.Commercial = math.Float32frombits(binary.LittleEndian.Uint32(data[4:]))
	d.Industrial = math.Float32frombits(binary.LittleEndian.Uint32(data[8:]))
	return true
}

// taxSystem collects daily income tax from employed citizens and pays the
// road and service upkeep. Runs once per game day.
func taxSystem(w *World) {
	var collected float64
	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, state, details, _, _, _ := query.Get()
		if state.EverWorked && details.Salary > 0 {
			// Daily share of the monthly salary.
			daily := float64(details.Salary) / 30
			tax := daily * w.Cfg.Economy.TaxRate
			collected += tax
			details.Savings += float32(daily * (1 - w.Cfg.Economy.TaxRate))
		}
	}
	w.Budget.Credit(collected)

	upkeep := float64(w.roadCellCount())*0.02 +
		float64(len(w.Buildings.Services))*5 +
		float64(len(w.Buildings.Utilities))*8
	w.Budget.Spend(upkeep)

	logging.Logf("economy: day %d tax=%.2f upkeep=%.2f treasury=%.2f",
		w.Clock.Day(), collected, upkeep, w.Budget.Treasury)
	w.Budget.DailyIncome = 0
	w.Budget.DailyExpense = 0
}

// demandSystem recomputes zoning pressure from occupancy and employment.
func demandSystem(w *World) {
	var resCap, resOcc, jobCap, jobOcc int
	for i := range w.Buildings.Buildings {
		b := &w.Buildings.Buildings[i]
		if !b.Alive {
			continue
		}
		if b.Zone.IsResidential() {
			resCap += int(b.Capacity)
			resOcc += int(b.Occupants)
		}
		if b.Zone.IsJobZone() {
			jobCap += int(b.Capacity)
			jobOcc += int(b.Occupants)
		}
	}

	rate := float32(w.Cfg.Economy.DemandGrowthRate)
	// Low vacancy pushes demand up, high vacancy releases it.
	w.Demand.Residential = clamp01(w.Demand.Residential + rate*demandSignal(resOcc, resCap))
	commercialSignal := demandSignal(jobOcc, jobCap)
	w.Demand.Commercial = clamp01(w.Demand.Commercial + rate*commercialSignal)
	w.Demand.Industrial = clamp01(w.Demand.Industrial + rate*commercialSignal*0.8)
}

// demandSignal is positive when occupancy is tight, negative when vacant.
func demandSignal(occupied, capacity int) float32 {
	if capacity == 0 {
		return 1 // nothing built yet, unmet demand
	}
	occupancy := float32(occupied) / float32(capacity)
	return (occupancy - 0.7) * 2
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// growthSystem turns demand into construction: zoned, road-adjacent,
// powered cells sprout buildings when sector demand is high.
func growthSystem(w *World) {
	h := TickHash(w.Cfg.World.Seed, w.Clock.Tick, 0x67726F77)
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			if c.Zone == grid.ZoneNone || c.Type != grid.CellGrass || c.Building != 0 {
				continue
			}
			var demand float32
			switch {
			case c.Zone.IsResidential():
				demand = w.Demand.Residential
			case c.Zone == grid.ZoneIndustrial:
				demand = w.Demand.Industrial
			default:
				demand = w.Demand.Commercial
			}
			h = splitmix64(h)
			if hashUnit(h) > w.Cfg.Economy.BuildGrowthChance*float64(demand) {
				continue
			}
			if !w.nearRoad(x, y, 2) {
				continue
			}
			if w.Buildings.AddBuilding(w.Grid, x, y, c.Zone) != 0 {
				w.Telemetry.RecordBuildingGrown()
			}
		}
	}
}

// nearRoad reports whether any cell within r cells is a road.
func (w *World) nearRoad(x, y, r int) bool {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c := w.Grid.Get(x+dx, y+dy)
			if c != nil && c.Type == grid.CellRoad {
				return true
			}
		}
	}
	return false
}

// roadCellCount counts rasterised road cells for upkeep.
func (w *World) roadCellCount() int {
	n := 0
	for i := range w.Grid.Cells {
		if w.Grid.Cells[i].Type == grid.CellRoad {
			n++
		}
	}
	return n
}
