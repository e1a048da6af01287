package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/logging"
)

// lodSystem governs the three-tier level of detail:
//
//   - classify real citizens by distance to the observer (Full near,
//     Abstract mid, Compressed far);
//   - compress and decompress entities crossing the Compressed boundary;
//   - enforce the dynamic entity cap by moving the overflow between real
//     entities and the virtual population.
//
// Full to Abstract and back changes only the tier tag, so it is lossless.
// Compression packs the citizen into the fixed snapshot record; derived
// state (velocity, path, needs) is intentionally dropped and rebuilt on
// decompression.
func lodSystem(w *World) {
	if w.Observer.Active {
		w.classifyByObserver()
	}
	w.enforceCap()
}

func (w *World) classifyByObserver() {
	cellSize := float32(w.Cfg.World.CellSize)
	fullR := float32(w.Cfg.Lod.FullRadius) * cellSize
	abstractR := float32(w.Cfg.Lod.AbstractRadius) * cellSize
	fullR2 := fullR * fullR
	abstractR2 := abstractR * abstractR

	// Real citizens first: retier, and collect far ones for compression.
	var toCompress []ecs.Entity
	query := w.citizenFilter.Query()
	for query.Next() {
		pos, _, state, _, _, _, _ := query.Get()
		entity := query.Entity()
		lod := w.lodMap.Get(entity)
		if lod == nil {
			continue
		}
		dx := pos.X - w.Observer.X
		dy := pos.Y - w.Observer.Y
		d2 := dx*dx + dy*dy
		switch {
		case d2 <= fullR2:
			lod.Tier = components.LodFull
		case d2 <= abstractR2:
			lod.Tier = components.LodAbstract
		default:
			// Never compress mid-commute; the path solver may still hold
			// a queued request for this citizen.
			if !state.State.IsCommuting() && !state.PathPending {
				toCompress = append(toCompress, entity)
			}
		}
	}
	for _, e := range toCompress {
		w.compressCitizen(e)
	}

	// Compressed citizens that drifted back into range come alive again.
	var toExpand []ecs.Entity
	cq := w.compFilter.Query()
	for cq.Next() {
		cc := cq.Get()
		wx, wy := w.Grid.GridToWorld(int(cc.HomeX), int(cc.HomeY))
		dx := wx - w.Observer.X
		dy := wy - w.Observer.Y
		if dx*dx+dy*dy <= abstractR2 {
			toExpand = append(toExpand, cq.Entity())
		}
	}
	for _, e := range toExpand {
		w.decompressCitizen(e)
	}
}

// compressCitizen swaps a real citizen's component set for the packed
// snapshot. Home cell, state, age, and happiness survive; everything else
// is derived state.
func (w *World) compressCitizen(e ecs.Entity) {
	details := w.detailsMap.Get(e)
	state := w.stateMap.Get(e)
	home := w.homeMap.Get(e)
	if details == nil || state == nil || home == nil {
		return
	}
	cc := components.CompressedCitizen{
		HomeX:     uint8(home.GridX),
		HomeY:     uint8(home.GridY),
		State:     state.State,
		Age:       details.Age,
		Happiness: details.Happiness,
	}
	delete(w.citizensByID, details.ID)

	w.citizenMapper.Remove(e)
	w.homeMap.Remove(e)
	w.workMap.Remove(e)
	w.persMap.Remove(e)
	w.famMap.Remove(e)
	w.compMap.Add(e, &cc)
	if lod := w.lodMap.Get(e); lod != nil {
		lod.Tier = components.LodCompressed
	}
}

// decompressCitizen rebuilds a live citizen from its packed snapshot. A
// fresh stable id is minted; defaults fill the dropped derived state.
func (w *World) decompressCitizen(e ecs.Entity) {
	cc := w.compMap.Get(e)
	if cc == nil {
		return
	}
	snapshot := *cc
	w.compMap.Remove(e)

	w.nextID++
	id := w.nextID

	wx, wy := w.Grid.GridToWorld(int(snapshot.HomeX), int(snapshot.HomeY))
	pos := components.Position{X: wx, Y: wy}
	vel := components.Velocity{}
	state := components.CitizenStateComp{State: snapshot.State}
	if state.State.IsCommuting() {
		// The route is gone; restart the activity from home.
		state.State = components.AtHome
	}
	details := components.CitizenDetails{
		ID: id, Age: snapshot.Age, Happiness: snapshot.Happiness, Health: 80,
	}
	needs := components.DefaultNeeds()
	path := components.PathCache{}
	timer := components.ActivityTimer{}
	w.citizenMapper.Add(e, &pos, &vel, &state, &details, &needs, &path, &timer)

	home := components.HomeLocation{GridX: int(snapshot.HomeX), GridY: int(snapshot.HomeY)}
	work := components.WorkLocation{}
	pers := personalityFromHash(splitmix64(uint64(id)))
	fam := components.Family{}
	w.homeMap.Add(e, &home)
	w.workMap.Add(e, &work)
	w.persMap.Add(e, &pers)
	w.famMap.Add(e, &fam)
	if lod := w.lodMap.Get(e); lod != nil {
		lod.Tier = components.LodAbstract
	}

	w.citizensByID[id] = e
}

// enforceCap keeps the real entity count at or below the dynamic cap by
// virtualizing the overflow, and refills from the virtual population when
// there is headroom.
func (w *World) enforceCap() {
	limit := w.Perf.Cap
	real := w.CitizenCount() + w.CompressedCount()

	if real > limit {
		// Virtualize compressed citizens first; they carry the least state.
		excess := real - limit
		var victims []ecs.Entity
		cq := w.compFilter.Query()
		for cq.Next() {
			if len(victims) >= excess {
				break
			}
			victims = append(victims, cq.Entity())
		}
		for _, e := range victims {
			cc := w.compMap.Get(e)
			if cc == nil {
				continue
			}
			w.VirtualPop.Absorb(int(cc.HomeX), int(cc.HomeY), cc.Age, cc.Happiness, false, 0)
			w.ecsWorld.RemoveEntity(e)
		}
		if len(victims) > 0 {
			logging.Logf("lod: virtualized %d citizens (cap %d)", len(victims), limit)
		}
		return
	}

	// Headroom: materialize from the busiest district, bounded per run so
	// a cap jump does not stall one tick.
	headroom := limit - real
	if headroom > 256 {
		headroom = 256
	}
	spawned := 0
	for i := 0; i < headroom; i++ {
		district := w.VirtualPop.BusiestDistrict()
		if district < 0 {
			break
		}
		h := TickHash(w.Cfg.World.Seed, w.Clock.Tick, uint64(0x6C6F64+i))
		age, happiness, employed, education, ok := w.VirtualPop.Release(district, h)
		if !ok {
			break
		}
		home := w.Buildings.FindHome()
		if home == nil || DistrictIndex(home.X, home.Y) != district {
			// Fall back to the district's center cell when housing there
			// is full.
			cx := (district%DistrictsPerAxis)*DistrictCells + DistrictCells/2
			cy := (district/DistrictsPerAxis)*DistrictCells + DistrictCells/2
			spec := CitizenSpec{Age: age, Happiness: happiness, Education: education, HomeX: cx, HomeY: cy}
			w.SpawnCitizen(spec)
		} else {
			spec := CitizenSpec{Age: age, Happiness: happiness, Education: education,
				HomeX: home.X, HomeY: home.Y, HomeBld: home.ID}
			if employed {
				if job := w.Buildings.FindJob(); job != nil {
					spec.HasWork = true
					spec.WorkX, spec.WorkY, spec.WorkBld = job.X, job.Y, job.ID
				}
			}
			w.SpawnCitizen(spec)
		}
		spawned++
	}
	if spawned > 0 {
		logging.Logf("lod: materialized %d citizens from districts", spawned)
	}
}
