package sim

import (
	"errors"
	"testing"

	"github.com/citygrid/citygrid/config"
)

func TestSchedulerWriterBeforeReader(t *testing.T) {
	sched, err := NewScheduler([]System{
		{Name: "reader", Phase: PhaseEcon, Cadence: 1, Reads: []string{"demand"}},
		{Name: "writer", Phase: PhaseEcon, Cadence: 1, Writes: []string{"demand"}},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	got := sched.Systems()
	if got[0] != "writer" || got[1] != "reader" {
		t.Errorf("order = %v, want writer before reader", got)
	}
}

func TestSchedulerPhasesAreBarriers(t *testing.T) {
	// A motion system writing what an input system reads still runs later:
	// phases override resource edges.
	sched, err := NewScheduler([]System{
		{Name: "late", Phase: PhaseMotion, Cadence: 1, Writes: []string{"x"}},
		{Name: "early", Phase: PhaseInput, Cadence: 1, Reads: []string{"x"}},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	got := sched.Systems()
	if got[0] != "early" || got[1] != "late" {
		t.Errorf("order = %v, want phase order kept", got)
	}
}

func TestSchedulerStableForUnconstrained(t *testing.T) {
	sched, err := NewScheduler([]System{
		{Name: "a", Phase: PhaseEcon, Cadence: 1},
		{Name: "b", Phase: PhaseEcon, Cadence: 1},
		{Name: "c", Phase: PhaseEcon, Cadence: 1},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	got := sched.Systems()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want declaration order %v", got, want)
		}
	}
}

func TestSchedulerCycleFailsConstruction(t *testing.T) {
	_, err := NewScheduler([]System{
		{Name: "a", Phase: PhaseEcon, Cadence: 1, Reads: []string{"y"}, Writes: []string{"x"}},
		{Name: "b", Phase: PhaseEcon, Cadence: 1, Reads: []string{"x"}, Writes: []string{"y"}},
	})
	if !errors.Is(err, ErrScheduleCycle) {
		t.Fatalf("err = %v, want ErrScheduleCycle", err)
	}
}

func TestSchedulerSelfEdgeIsNotACycle(t *testing.T) {
	_, err := NewScheduler([]System{
		{Name: "inplace", Phase: PhaseEcon, Cadence: 1, Reads: []string{"x"}, Writes: []string{"x"}},
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
}

func TestSchedulerRejectsZeroCadence(t *testing.T) {
	_, err := NewScheduler([]System{
		{Name: "bad", Phase: PhaseEcon, Cadence: 0},
	})
	if err == nil {
		t.Fatal("expected error for cadence 0")
	}
}

func TestSchedulerCadenceGating(t *testing.T) {
	var ran []string
	mk := func(name string, cadence int) System {
		return System{
			Name: name, Phase: PhaseEcon, Cadence: cadence,
			Run: func(*World) { ran = append(ran, name) },
		}
	}
	sched, err := NewScheduler([]System{mk("every", 1), mk("fifth", 5)})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	counts := map[string]int{}
	for tick := uint64(0); tick < 10; tick++ {
		ran = ran[:0]
		sched.Tick(nil, tick)
		for _, n := range ran {
			counts[n]++
		}
		wantFifth := tick%5 == 0
		gotFifth := false
		for _, n := range ran {
			if n == "fifth" {
				gotFifth = true
			}
		}
		if gotFifth != wantFifth {
			t.Errorf("tick %d: fifth ran = %v, want %v", tick, gotFifth, wantFifth)
		}
	}
	if counts["every"] != 10 {
		t.Errorf("every ran %d times, want 10", counts["every"])
	}
	if counts["fifth"] != 2 {
		t.Errorf("fifth ran %d times, want 2 (ticks 0 and 5)", counts["fifth"])
	}
}

func TestWorldScheduleBuilds(t *testing.T) {
	tc := NewTestCity(t)
	systems := tc.World.ScheduledSystems()
	if len(systems) == 0 {
		t.Fatal("empty schedule")
	}
	// The command drain must be first: every edit lands before any
	// simulation system observes the tick.
	if systems[0] != "commands" {
		t.Errorf("first system = %q, want commands", systems[0])
	}
	// Pathfinding consumes the queue the state machine fills.
	idxOf := func(name string) int {
		for i, n := range systems {
			if n == name {
				return i
			}
		}
		t.Fatalf("system %q not scheduled", name)
		return -1
	}
	if idxOf("statemachine") > idxOf("pathfinding") {
		t.Error("statemachine must run before pathfinding")
	}
	if idxOf("pathfinding") > idxOf("movement") {
		t.Error("pathfinding must run before movement")
	}
	// Econ chain: demand feeds growth, growth changes the housing stock
	// immigration reads, immigration adds the citizens taxes collect from.
	if idxOf("demand") > idxOf("growth") {
		t.Error("demand must run before growth")
	}
	if idxOf("growth") > idxOf("immigration") {
		t.Error("growth must run before immigration")
	}
	if idxOf("immigration") > idxOf("taxes") {
		t.Error("immigration must run before taxes")
	}
}

func TestWorldConstructionSucceeds(t *testing.T) {
	w, err := NewWorld(config.Default())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	w.Close()
}
