// Package telemetry aggregates simulation metrics into windowed records
// and writes them as CSV for offline analysis.
package telemetry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated city statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	Day             int     `csv:"day"`
	SimHour         float64 `csv:"hour"`

	// Population at window end
	RealCitizens       int `csv:"real_citizens"`
	CompressedCitizens int `csv:"compressed_citizens"`
	VirtualCitizens    int `csv:"virtual_citizens"`

	// Events during window
	PathsSolved      int `csv:"paths_solved"`
	PathsFailed      int `csv:"paths_failed"`
	CommutesFinished int `csv:"commutes_finished"`
	BuildingsGrown   int `csv:"buildings_grown"`
	Arrivals         int `csv:"arrivals"`
	Departures       int `csv:"departures"`

	// Happiness distribution (sampled at window end)
	HappinessMean float64 `csv:"happiness_mean"`
	HappinessStd  float64 `csv:"happiness_std"`
	HappinessP10  float64 `csv:"happiness_p10"`
	HappinessP50  float64 `csv:"happiness_p50"`
	HappinessP90  float64 `csv:"happiness_p90"`

	// Economy
	Treasury          float64 `csv:"treasury"`
	DemandResidential float64 `csv:"demand_res"`
	DemandCommercial  float64 `csv:"demand_com"`
	DemandIndustrial  float64 `csv:"demand_ind"`

	// Infrastructure load
	TrafficMean  float64 `csv:"traffic_mean"`
	QueueLen     int     `csv:"path_queue"`
	RoadCells    int     `csv:"road_cells"`
	EntityCap    int     `csv:"entity_cap"`
	AvgTickMs    float64 `csv:"avg_tick_ms"`
}

// Summarize fills the happiness distribution fields from raw samples.
func (w *WindowStats) Summarize(happiness []float64) {
	if len(happiness) == 0 {
		return
	}
	w.HappinessMean = stat.Mean(happiness, nil)
	w.HappinessStd = stat.StdDev(happiness, nil)

	sorted := append([]float64(nil), happiness...)
	sort.Float64s(sorted)
	w.HappinessP10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	w.HappinessP50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	w.HappinessP90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
}

// RunningStats is a numerically stable (Welford) running mean/variance used
// for district aggregates where storing samples is too expensive.
type RunningStats struct {
	n    int64
	mean float64
	m2   float64
}

// Push folds one sample into the aggregate.
func (r *RunningStats) Push(v float64) {
	r.n++
	delta := v - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (v - r.mean)
}

// Count returns the number of samples pushed.
func (r *RunningStats) Count() int64 { return r.n }

// Mean returns the running mean, zero before any sample.
func (r *RunningStats) Mean() float64 { return r.mean }

// StdDev returns the running sample standard deviation.
func (r *RunningStats) StdDev() float64 {
	if r.n < 2 {
		return 0
	}
	return math.Sqrt(r.m2 / float64(r.n-1))
}
