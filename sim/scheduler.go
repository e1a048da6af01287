package sim

import (
	"errors"
	"fmt"
)

// Phase is a fixed barrier in the tick. Systems in a later phase always run
// after every system in an earlier phase.
type Phase uint8

const (
	PhaseInput Phase = iota
	PhaseEcon
	PhasePlanning
	PhaseMotion
	PhaseEnvironment
	PhaseHappiness
	PhaseAggregate
	PhaseSubsystems
	PhaseHousekeeping
	phaseCount
)

var phaseNames = [...]string{
	"Input", "Econ", "Planning", "Motion", "Environment",
	"Happiness", "Aggregate", "Subsystems", "Housekeeping",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// System describes one schedulable unit of work. Reads and Writes are
// resource names; within a phase a system that writes a resource is ordered
// before every system that reads it.
type System struct {
	Name    string
	Phase   Phase
	Cadence int // run when tick % Cadence == 0; 1 = every tick
	Reads   []string
	Writes  []string
	Run     func(w *World)
}

// ErrScheduleCycle is returned when the declared read/write sets of a phase
// cannot be ordered.
var ErrScheduleCycle = errors.New("sim: system dependency cycle")

// Scheduler holds the validated, topologically ordered system list. The
// order is computed once at construction so a conflicting declaration fails
// world creation instead of surfacing as a mid-game ordering bug.
type Scheduler struct {
	ordered []System
}

// NewScheduler validates and orders the given systems. Within each phase,
// writers run before readers of the same resource; among unconstrained
// systems declaration order is kept, so the result is deterministic.
func NewScheduler(systems []System) (*Scheduler, error) {
	byPhase := make([][]System, phaseCount)
	for _, s := range systems {
		if s.Cadence <= 0 {
			return nil, fmt.Errorf("sim: system %q has cadence %d", s.Name, s.Cadence)
		}
		if s.Phase >= phaseCount {
			return nil, fmt.Errorf("sim: system %q has unknown phase %d", s.Name, s.Phase)
		}
		byPhase[s.Phase] = append(byPhase[s.Phase], s)
	}

	sched := &Scheduler{ordered: make([]System, 0, len(systems))}
	for p, group := range byPhase {
		sorted, err := orderPhase(group)
		if err != nil {
			return nil, fmt.Errorf("%w in phase %s", err, Phase(p))
		}
		sched.ordered = append(sched.ordered, sorted...)
	}
	return sched, nil
}

// orderPhase is a stable Kahn sort: edges go writer -> reader per shared
// resource. Self-edges (a system reading what it writes) are ignored.
func orderPhase(group []System) ([]System, error) {
	n := len(group)
	if n <= 1 {
		return group, nil
	}

	writers := make(map[string][]int)
	for i, s := range group {
		for _, res := range s.Writes {
			writers[res] = append(writers[res], i)
		}
	}

	adj := make([][]int, n)
	indeg := make([]int, n)
	seen := make(map[[2]int]struct{})
	for i, s := range group {
		for _, res := range s.Reads {
			for _, w := range writers[res] {
				if w == i {
					continue
				}
				edge := [2]int{w, i}
				if _, dup := seen[edge]; dup {
					continue
				}
				seen[edge] = struct{}{}
				adj[w] = append(adj[w], i)
				indeg[i]++
			}
		}
	}

	var out []System
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	for len(ready) > 0 {
		// Lowest declaration index first keeps the order stable.
		next := ready[0]
		for _, c := range ready[1:] {
			if c < next {
				next = c
			}
		}
		for k, c := range ready {
			if c == next {
				ready = append(ready[:k], ready[k+1:]...)
				break
			}
		}
		out = append(out, group[next])
		for _, m := range adj[next] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	if len(out) != n {
		var stuck []string
		for i := range group {
			if indeg[i] > 0 {
				stuck = append(stuck, group[i].Name)
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrScheduleCycle, stuck)
	}
	return out, nil
}

// Tick runs every system whose cadence divides the given tick, in schedule
// order. Tick 0 runs everything, so a fresh world starts from a fully
// initialized state.
func (s *Scheduler) Tick(w *World, tick uint64) {
	for i := range s.ordered {
		sys := &s.ordered[i]
		if tick%uint64(sys.Cadence) != 0 {
			continue
		}
		sys.Run(w)
	}
}

// Systems returns the scheduled names in execution order, for tests and
// diagnostics.
func (s *Scheduler) Systems() []string {
	names := make([]string, len(s.ordered))
	for i := range s.ordered {
		names[i] = s.ordered[i].Name
	}
	return names
}
