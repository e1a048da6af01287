package sim

import (
	"time"

	"github.com/citygrid/citygrid/config"
	"github.com/citygrid/citygrid/telemetry"
)

// PerfController owns the dynamic real-entity cap. The cap breathes with
// measured tick time: sustained slow ticks shrink it, headroom grows it,
// and it always stays inside the configured floor and ceiling.
type PerfController struct {
	cfg       *config.PopulationConfig
	Collector *telemetry.PerfCollector

	Cap   int
	emaMs float64
}

// NewPerfController starts the cap at the configured default.
func NewPerfController(cfg *config.PopulationConfig) *PerfController {
	return &PerfController{
		cfg:       cfg,
		Collector: telemetry.NewPerfCollector(60),
		Cap:       cfg.DefaultCap,
		emaMs:     cfg.TargetFrameMs,
	}
}

// Observe folds one tick duration into the smoothed sample and adjusts the
// cap. Adjustment steps are small fractions so the cap moves monotonically
// toward its target instead of oscillating.
func (p *PerfController) Observe(d time.Duration) {
	p.Collector.RecordTick(d)

	ms := float64(d) / float64(time.Millisecond)
	alpha := p.cfg.FrameSmoothing
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	p.emaMs = p.emaMs*(1-alpha) + ms*alpha

	target := p.cfg.TargetFrameMs
	switch {
	case p.emaMs > target*1.2:
		p.Cap -= p.Cap / 20
	case p.emaMs < target*0.8:
		p.Cap += p.Cap / 50
	}
	if p.Cap < p.cfg.FloorCap {
		p.Cap = p.cfg.FloorCap
	}
	if p.Cap > p.cfg.CeilingCap {
		p.Cap = p.cfg.CeilingCap
	}
}

// SmoothedMs returns the EMA tick time in milliseconds.
func (p *PerfController) SmoothedMs() float64 {
	return p.emaMs
}

// perfSystem closes the timing loop for the tick that is ending.
func perfSystem(w *World) {
	if w.lastTickStart.IsZero() {
		return
	}
	w.Perf.Observe(time.Since(w.lastTickStart))
}
