package sim

import (
	"math"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/grid"
)

// moveSnapshot captures the read-only state one commuting citizen needs
// for a movement step. Waypoints alias the live PathCache slice; the
// compute phase never mutates it, only the apply phase advances cursors.
type moveSnapshot struct {
	Entity    ecsEntity
	Pos       components.Position
	Waypoints [][2]int
	Cursor    int
}

// moveIntent is the computed outcome applied single-threaded afterwards.
type moveIntent struct {
	NewPos  components.Position
	NewVel  components.Velocity
	Cursor  int
	Arrived bool
}

// movementSystem integrates commuting citizens along their cached
// waypoints. Speed depends on the road type under the citizen; the final
// waypoint sets the Arrived flag the state machine consumes next tick.
// Snapshot, parallel compute, and serial apply follow the worker-pool
// pattern so no ECS mutation happens off the main goroutine.
func movementSystem(w *World) {
	w.moveSnapshots = w.moveSnapshots[:0]

	query := w.citizenFilter.Query()
	for query.Next() {
		pos, _, state, _, _, path, _ := query.Get()
		if !state.State.IsCommuting() || state.PathPending || len(path.Waypoints) == 0 {
			continue
		}
		entity := query.Entity()
		if lod := w.lodMap.Get(entity); lod != nil && lod.Tier == components.LodAbstract {
			// Abstract citizens skip integration and teleport on arrival.
			state.Arrived = true
			path.Clear()
			continue
		}
		w.moveSnapshots = append(w.moveSnapshots, moveSnapshot{
			Entity:    entity,
			Pos:       *pos,
			Waypoints: path.Waypoints,
			Cursor:    path.Cursor,
		})
	}

	n := len(w.moveSnapshots)
	if n == 0 {
		return
	}
	if cap(w.moveIntents) < n {
		w.moveIntents = make([]moveIntent, n)
	}
	w.moveIntents = w.moveIntents[:n]

	w.pool.run(n, func(start, end, _ int) {
		for i := start; i < end; i++ {
			w.moveIntents[i] = w.stepCitizen(&w.moveSnapshots[i])
		}
	})

	for i := 0; i < n; i++ {
		snap := &w.moveSnapshots[i]
		intent := &w.moveIntents[i]
		if pos := w.posMap.Get(snap.Entity); pos != nil {
			*pos = intent.NewPos
		}
		if vel := w.velMap.Get(snap.Entity); vel != nil {
			*vel = intent.NewVel
		}
		if path := w.pathMap.Get(snap.Entity); path != nil {
			path.Cursor = intent.Cursor
		}
		if state := w.stateMap.Get(snap.Entity); state != nil && intent.Arrived {
			state.Arrived = true
		}
	}
}

// stepCitizen advances one citizen by one tick worth of travel. Leftover
// speed carries across waypoints so short hops do not cap velocity.
func (w *World) stepCitizen(snap *moveSnapshot) moveIntent {
	pos := snap.Pos
	cursor := snap.Cursor

	cx, cy := w.Grid.WorldToGrid(pos.X, pos.Y)
	speed := w.cellSpeed(cx, cy)
	remaining := speed

	var vel components.Velocity
	arrived := false
	for remaining > 0 {
		if cursor >= len(snap.Waypoints) {
			arrived = true
			break
		}
		wp := snap.Waypoints[cursor]
		tx, ty := w.Grid.GridToWorld(wp[0], wp[1])
		dx := tx - pos.X
		dy := ty - pos.Y
		dist := float32(math.Sqrt(float64(dx*dx + dy*dy)))

		if dist <= float32(w.Cfg.Movement.ArrivalEpsilon) {
			cursor++
			continue
		}
		if dist <= remaining {
			pos.X, pos.Y = tx, ty
			remaining -= dist
			cursor++
			continue
		}
		inv := remaining / dist
		vel.X = dx * inv
		vel.Y = dy * inv
		pos.X += vel.X
		pos.Y += vel.Y
		remaining = 0
	}
	if cursor >= len(snap.Waypoints) {
		arrived = true
	}

	return moveIntent{NewPos: pos, NewVel: vel, Cursor: cursor, Arrived: arrived}
}

// cellSpeed returns world units per tick at a cell, scaled by road class.
func (w *World) cellSpeed(x, y int) float32 {
	base := float32(w.Cfg.Movement.BaseSpeed)
	c := w.Grid.Get(x, y)
	if c == nil || c.Type != grid.CellRoad {
		return base * 0.5 // off-road walking
	}
	switch c.Road {
	case grid.RoadAvenue:
		return base * float32(w.Cfg.Movement.AvenueFactor)
	case grid.RoadHighway:
		return base * float32(w.Cfg.Movement.HighwayFactor)
	}
	return base
}

// trafficSystem decays the congestion grid and stamps the cells under
// currently commuting citizens.
func trafficSystem(w *World) {
	// Exponential-ish decay keeps old congestion from pinning forever.
	for i, v := range w.Traffic.Cells {
		if v > 0 {
			w.Traffic.Cells[i] = v - (v>>3 + 1)
		}
	}

	query := w.citizenFilter.Query()
	for query.Next() {
		pos, _, state, _, _, _, _ := query.Get()
		if !state.State.IsCommuting() || state.PathPending {
			continue
		}
		x, y := w.Grid.WorldToGrid(pos.X, pos.Y)
		w.Traffic.Add(x, y, 16)
	}
}
