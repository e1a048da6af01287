package sim

import (
	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/logging"
	"github.com/citygrid/citygrid/telemetry"
)

// statsSystem aggregates the window snapshot: population tiers, happiness
// distribution, economy, and infrastructure load.
func statsSystem(w *World) {
	stats := telemetry.WindowStats{
		Day:                w.Clock.Day(),
		SimHour:            w.Clock.Hour(),
		RealCitizens:       w.CitizenCount(),
		CompressedCitizens: w.CompressedCount(),
		VirtualCitizens:    w.VirtualPop.Total(),
		Treasury:           w.Budget.Treasury,
		DemandResidential:  float64(w.Demand.Residential),
		DemandCommercial:   float64(w.Demand.Commercial),
		DemandIndustrial:   float64(w.Demand.Industrial),
		QueueLen:           w.Paths.QueueLen(),
		RoadCells:          w.roadCellCount(),
		EntityCap:          w.Perf.Cap,
		AvgTickMs:          w.Perf.SmoothedMs(),
	}

	happiness := make([]float64, 0, stats.RealCitizens)
	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, _, details, _, _, _ := query.Get()
		happiness = append(happiness, float64(details.Happiness))
	}
	stats.Summarize(happiness)

	var trafficSum uint64
	for _, v := range w.Traffic.Cells {
		trafficSum += uint64(v)
	}
	stats.TrafficMean = float64(trafficSum) / float64(grid.Width*grid.Height)

	w.Telemetry.Snapshot(int64(w.Clock.Tick), stats)
}

// telemetrySystem logs the latest window so long headless runs leave a
// trail even without CSV output enabled.
func telemetrySystem(w *World) {
	s := w.Telemetry.Latest()
	logging.Logf("tick %d: pop=%d/%d/%d happiness=%.1f treasury=%.0f queue=%d cap=%d",
		s.WindowEndTick, s.RealCitizens, s.CompressedCitizens, s.VirtualCitizens,
		s.HappinessMean, s.Treasury, s.QueueLen, s.EntityCap)
}
