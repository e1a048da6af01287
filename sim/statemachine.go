package sim

import (
	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/pathfind"
)

// Activity durations in ticks.
const (
	shoppingDuration = 45
	leisureDuration  = 60
	schoolOutHour    = 15.0
	workStartHour    = 8.0
	workEndHour      = 17.0
	schoolStartHour  = 8.0
	sleepHour        = 22.0
)

// Need thresholds that trigger errands.
const (
	hungerErrandBelow = 35
	funErrandBelow    = 30
)

// stateMachineSystem advances every real citizen through the daily cycle.
// Commute states are entered optimistically: the path request goes into
// the queue and PathPending holds the citizen in place until the result
// lands. Arrival flags set by the movement integrator are consumed here.
func stateMachineSystem(w *World) {
	hour := w.Clock.Hour()

	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, state, details, needs, path, timer := query.Get()
		entity := query.Entity()

		// Arrivals first: a commute that finished last tick becomes the
		// destination activity now.
		if state.Arrived {
			state.Arrived = false
			next := state.State.ArrivalState()
			state.State = next
			path.Clear()
			w.Telemetry.RecordCommuteFinished()
			switch next {
			case components.Working:
				state.EverWorked = true
			case components.Shopping:
				timer.Remaining = shoppingDuration
			case components.AtLeisure:
				timer.Remaining = leisureDuration
			}
			continue
		}

		if state.PathPending || state.State.IsCommuting() {
			continue
		}

		// Timed activities run out before new decisions.
		if timer.Remaining > 0 {
			timer.Remaining--
			if timer.Remaining > 0 {
				continue
			}
			w.startCommute(entity, state, components.CommutingHome)
			continue
		}

		home := w.homeMap.Get(entity)
		work := w.workMap.Get(entity)
		if home == nil {
			continue
		}

		switch state.State {
		case components.AtHome:
			switch {
			case details.Age < 18 && details.Age >= 6 && hour >= schoolStartHour && hour < schoolOutHour:
				w.startCommute(entity, state, components.CommutingToSchool)
			case work != nil && work.Valid && hour >= workStartHour && hour < workEndHour:
				w.startCommute(entity, state, components.CommutingToWork)
			case needs.Hunger < hungerErrandBelow && hour >= 7 && hour < sleepHour:
				w.startCommute(entity, state, components.CommutingToShop)
			case needs.Fun < funErrandBelow && hour >= 9 && hour < sleepHour:
				w.startCommute(entity, state, components.CommutingToLeisure)
			}

		case components.Working:
			if hour >= workEndHour || hour < workStartHour {
				w.startCommute(entity, state, components.CommutingHome)
			}

		case components.AtSchool:
			if hour >= schoolOutHour {
				w.startCommute(entity, state, components.CommutingHome)
			}

		case components.Shopping, components.AtLeisure:
			// Covered by the activity timer; nothing to decide here.
		}
	}
}

// startCommute resolves the destination cell for the given commute state
// and enqueues the path request. The state changes immediately; movement
// waits for the path to arrive.
func (w *World) startCommute(entity ecsEntity, state *components.CitizenStateComp, commute components.CitizenState) {
	home := w.homeMap.Get(entity)
	work := w.workMap.Get(entity)
	details := w.detailsMap.Get(entity)
	pos := w.posMap.Get(entity)
	if home == nil || details == nil || pos == nil {
		return
	}

	fromX, fromY := w.Grid.WorldToGrid(pos.X, pos.Y)
	var toX, toY int
	switch commute {
	case components.CommutingHome:
		toX, toY = home.GridX, home.GridY
	case components.CommutingToWork:
		if work == nil || !work.Valid {
			return
		}
		toX, toY = work.GridX, work.GridY
	case components.CommutingToShop:
		ok := false
		toX, toY, ok = w.nearestShop(home.GridX, home.GridY)
		if !ok {
			return
		}
	case components.CommutingToLeisure:
		ok := false
		toX, toY, ok = w.nearestService(home.GridX, home.GridY, ServicePark, ServiceEntertainment)
		if !ok {
			return
		}
	case components.CommutingToSchool:
		ok := false
		toX, toY, ok = w.nearestService(home.GridX, home.GridY, ServiceEducation)
		if !ok {
			return
		}
	default:
		return
	}

	if fromX == toX && fromY == toY {
		// Already there; take the arrival shortcut.
		state.State = commute
		state.Arrived = true
		return
	}

	state.State = commute
	state.PathPending = true
	w.Paths.Enqueue(pathfind.Request{
		Requester: details.ID,
		FromX:     fromX, FromY: fromY,
		ToX: toX, ToY: toY,
	})
}

// nearestShop finds the closest cell holding a live job-zone building,
// which doubles as the errand destination for shopping trips.
func (w *World) nearestShop(cx, cy int) (int, int, bool) {
	best := -1
	bestX, bestY := 0, 0
	for i := range w.Buildings.Buildings {
		b := &w.Buildings.Buildings[i]
		if !b.Alive || !b.Zone.IsJobZone() {
			continue
		}
		d := (b.X-cx)*(b.X-cx) + (b.Y-cy)*(b.Y-cy)
		if best == -1 || d < best {
			best = d
			bestX, bestY = b.X, b.Y
		}
	}
	return bestX, bestY, best >= 0
}

// nearestService finds the closest live service building of any of the
// given kinds.
func (w *World) nearestService(cx, cy int, kinds ...ServiceKind) (int, int, bool) {
	best := -1
	bestX, bestY := 0, 0
	for i := range w.Buildings.Services {
		s := &w.Buildings.Services[i]
		if !s.Alive {
			continue
		}
		match := false
		for _, k := range kinds {
			if s.Kind == k {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		d := (s.X-cx)*(s.X-cx) + (s.Y-cy)*(s.Y-cy)
		if best == -1 || d < best {
			best = d
			bestX, bestY = s.X, s.Y
		}
	}
	return bestX, bestY, best >= 0
}

// pathfindingSystem rebuilds the CSR snapshot when the road graph changed,
// then drains the request queue under the per-tick budget and installs
// results. A failed path sends the citizen home with a comfort penalty
// instead of leaving it stuck mid-commute.
func pathfindingSystem(w *World) {
	if w.CellGraph.Dirty {
		w.Csr.RebuildFrom(w.CellGraph)
	}

	for _, res := range w.Paths.Drain(w.Csr) {
		entity, ok := w.citizensByID[res.Requester]
		if !ok {
			continue // despawned or compressed while queued
		}
		state := w.stateMap.Get(entity)
		if state == nil {
			continue
		}
		state.PathPending = false

		if res.Found {
			w.Telemetry.RecordPathSolved()
		} else {
			w.Telemetry.RecordPathFailed()
		}

		if !res.Found {
			// UnreachablePath: abort the trip where it started.
			state.State = components.AtHome
			if needs := w.needsMap.Get(entity); needs != nil {
				needs.Comfort = clampNeed(needs.Comfort - float32(w.Cfg.Needs.UnreachablePenalty))
			}
			continue
		}

		if path := w.pathMap.Get(entity); path != nil {
			path.Waypoints = append(path.Waypoints[:0], res.Path...)
			path.Cursor = 0
		}
	}
}

func clampNeed(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
