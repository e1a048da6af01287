package telemetry

import "time"

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
}

// PerfCollector tracks tick timing over a rolling window. Its averaged
// tick duration feeds the dynamic entity-cap controller.
type PerfCollector struct {
	windowSize  int
	samples     []PerfSample
	writeIndex  int
	sampleCount int
}

// NewPerfCollector creates a performance collector averaging over
// windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]PerfSample, windowSize),
	}
}

// RecordTick adds one tick duration to the rolling window.
func (p *PerfCollector) RecordTick(d time.Duration) {
	p.samples[p.writeIndex] = PerfSample{TickDuration: d}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated timing statistics.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration
	TicksPerSecond  float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{}
	}

	var total, minTick, maxTick time.Duration
	for i := 0; i < p.sampleCount; i++ {
		d := p.samples[i].TickDuration
		total += d
		if i == 0 || d < minTick {
			minTick = d
		}
		if d > maxTick {
			maxTick = d
		}
	}
	avg := total / time.Duration(p.sampleCount)

	var tps float64
	if avg > 0 {
		tps = float64(time.Second) / float64(avg)
	}
	return PerfStats{
		AvgTickDuration: avg,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		TicksPerSecond:  tps,
	}
}

// PerfStatsCSV is the flattened CSV row for perf.csv.
type PerfStatsCSV struct {
	WindowEnd  int64   `csv:"window_end"`
	AvgTickUs  int64   `csv:"avg_tick_us"`
	MinTickUs  int64   `csv:"min_tick_us"`
	MaxTickUs  int64   `csv:"max_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
}

// ToCSV converts the stats to a CSV row tagged with the window end tick.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgTickUs:   s.AvgTickDuration.Microseconds(),
		MinTickUs:   s.MinTickDuration.Microseconds(),
		MaxTickUs:   s.MaxTickDuration.Microseconds(),
		TicksPerSec: s.TicksPerSecond,
	}
}
