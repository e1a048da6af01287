package telemetry

import "github.com/citygrid/citygrid/config"

// Collector accumulates events within time windows and produces
// WindowStats. The simulation calls the Record hooks as events happen and
// Snapshot once per window; counters reset at each snapshot.
type Collector struct {
	windowTicks     int64
	windowStartTick int64

	// Event counters for the current window.
	pathsSolved      int
	pathsFailed      int
	commutesFinished int
	buildingsGrown   int
	arrivals         int
	departures       int

	history []WindowStats
}

// NewCollector creates a collector from the telemetry configuration.
func NewCollector(cfg *config.TelemetryConfig) *Collector {
	wt := int64(cfg.WindowTicks)
	if wt < 1 {
		wt = 100
	}
	return &Collector{windowTicks: wt}
}

// RecordPathSolved counts one successful path result.
func (c *Collector) RecordPathSolved() { c.pathsSolved++ }

// RecordPathFailed counts one NoPathFound result.
func (c *Collector) RecordPathFailed() { c.pathsFailed++ }

// RecordCommuteFinished counts one completed commute.
func (c *Collector) RecordCommuteFinished() { c.commutesFinished++ }

// RecordBuildingGrown counts one zoned-growth construction.
func (c *Collector) RecordBuildingGrown() { c.buildingsGrown++ }

// RecordArrival counts one immigrant.
func (c *Collector) RecordArrival() { c.arrivals++ }

// RecordDeparture counts one emigrant.
func (c *Collector) RecordDeparture() { c.departures++ }

// Snapshot finalizes the current window into the given partially filled
// stats record, appends it to the in-memory history, and resets the
// counters.
func (c *Collector) Snapshot(tick int64, stats WindowStats) WindowStats {
	stats.WindowStartTick = c.windowStartTick
	stats.WindowEndTick = tick
	stats.PathsSolved = c.pathsSolved
	stats.PathsFailed = c.pathsFailed
	stats.CommutesFinished = c.commutesFinished
	stats.BuildingsGrown = c.buildingsGrown
	stats.Arrivals = c.arrivals
	stats.Departures = c.departures

	c.pathsSolved = 0
	c.pathsFailed = 0
	c.commutesFinished = 0
	c.buildingsGrown = 0
	c.arrivals = 0
	c.departures = 0
	c.windowStartTick = tick

	c.history = append(c.history, stats)
	return stats
}

// History returns all snapshots taken so far.
func (c *Collector) History() []WindowStats {
	return c.history
}

// Latest returns the most recent snapshot, or a zero record.
func (c *Collector) Latest() WindowStats {
	if len(c.history) == 0 {
		return WindowStats{}
	}
	return c.history[len(c.history)-1]
}
