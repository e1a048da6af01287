package sim

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/logging"
)

// CitizenSpec is the spawn-time description of one citizen. Zero values
// get sensible defaults.
type CitizenSpec struct {
	Age         uint8
	Gender      components.Gender
	Education   uint8
	Salary      float32
	HomeX       int
	HomeY       int
	HomeBld     uint32
	WorkX       int
	WorkY       int
	WorkBld     uint32
	HasWork     bool
	Happiness   float32
	Personality components.Personality
}

// SpawnCitizen creates a full-detail citizen entity at its home cell and
// returns its stable id. Building occupancy is updated when the home or
// work references a live building.
func (w *World) SpawnCitizen(spec CitizenSpec) uint32 {
	w.nextID++
	id := w.nextID

	if spec.Happiness == 0 {
		spec.Happiness = 60
	}
	if spec.Salary == 0 && spec.HasWork {
		spec.Salary = 2000 + float32(spec.Education)*800
	}

	wx, wy := w.Grid.GridToWorld(spec.HomeX, spec.HomeY)
	pos := components.Position{X: wx, Y: wy}
	vel := components.Velocity{}
	state := components.CitizenStateComp{State: components.AtHome}
	details := components.CitizenDetails{
		ID: id, Age: spec.Age, Gender: spec.Gender, Education: spec.Education,
		Happiness: spec.Happiness, Health: 80, Salary: spec.Salary,
	}
	needs := components.DefaultNeeds()
	path := components.PathCache{}
	timer := components.ActivityTimer{}

	entity := w.citizenMapper.NewEntity(&pos, &vel, &state, &details, &needs, &path, &timer)

	home := components.HomeLocation{GridX: spec.HomeX, GridY: spec.HomeY, Building: spec.HomeBld}
	work := components.WorkLocation{GridX: spec.WorkX, GridY: spec.WorkY, Building: spec.WorkBld, Valid: spec.HasWork}
	pers := spec.Personality
	fam := components.Family{}
	lod := components.Lod{Tier: components.LodFull}
	mark := components.Citizen{}
	w.homeMap.Add(entity, &home)
	w.workMap.Add(entity, &work)
	w.persMap.Add(entity, &pers)
	w.famMap.Add(entity, &fam)
	w.lodMap.Add(entity, &lod)
	w.markMap.Add(entity, &mark)

	w.citizensByID[id] = entity

	if b := w.Buildings.Building(spec.HomeBld); b != nil {
		b.Occupants++
	}
	if spec.HasWork {
		if b := w.Buildings.Building(spec.WorkBld); b != nil {
			b.Occupants++
		}
	}
	return id
}

// DespawnCitizen removes a citizen entity and releases its building
// occupancy. Works on both real and compressed citizens.
func (w *World) DespawnCitizen(e ecs.Entity) {
	if details := w.detailsMap.Get(e); details != nil {
		delete(w.citizensByID, details.ID)
	}
	if home := w.homeMap.Get(e); home != nil {
		if b := w.Buildings.Building(home.Building); b != nil && b.Occupants > 0 {
			b.Occupants--
		}
	}
	if work := w.workMap.Get(e); work != nil && work.Valid {
		if b := w.Buildings.Building(work.Building); b != nil && b.Occupants > 0 {
			b.Occupants--
		}
	}
	w.ecsWorld.RemoveEntity(e)
}

// immigrationSystem runs daily: a happy city with spare housing attracts
// newcomers, an unhappy one loses residents from the back of the filter.
func immigrationSystem(w *World) {
	avg := w.averageHappiness()
	cfg := w.Cfg.Immigration

	if avg >= cfg.HappinessThreshold || w.CitizenCount() == 0 {
		arrivals := 0
		for i := 0; i < cfg.ArrivalsPerWave; i++ {
			home := w.Buildings.FindHome()
			if home == nil {
				break
			}
			h := TickHash(w.Cfg.World.Seed, w.Clock.Tick, uint64(0x696D6D+i))
			spec := CitizenSpec{
				Age:       uint8(18 + hashRange(h, 45)),
				Gender:    components.Gender(hashRange(splitmix64(h), 2)),
				Education: uint8(hashRange(splitmix64(h^0xED), 4)),
				HomeX:     home.X, HomeY: home.Y, HomeBld: home.ID,
				Personality: personalityFromHash(splitmix64(h ^ 0x9E)),
			}
			if job := w.Buildings.FindJob(); job != nil {
				spec.HasWork = true
				spec.WorkX, spec.WorkY, spec.WorkBld = job.X, job.Y, job.ID
			}
			w.SpawnCitizen(spec)
			w.Telemetry.RecordArrival()
			arrivals++
		}
		if arrivals > 0 {
			logging.Logf("immigration: %d arrivals (avg happiness %.1f)", arrivals, avg)
		}
		return
	}

	// Emigration wave under sustained unhappiness.
	var leavers []ecs.Entity
	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, _, details, _, _, _ := query.Get()
		if details.Happiness < 30 && len(leavers) < cfg.DeparturesPerWave {
			leavers = append(leavers, query.Entity())
		}
	}
	for _, e := range leavers {
		w.DespawnCitizen(e)
		w.Telemetry.RecordDeparture()
	}
	if len(leavers) > 0 {
		logging.Logf("immigration: %d departures (avg happiness %.1f)", len(leavers), avg)
	}
}

// personalityFromHash derives four stable traits from one hash.
func personalityFromHash(h uint64) components.Personality {
	return components.Personality{
		Ambition:    float32(hashUnit(h)),
		Sociability: float32(hashUnit(splitmix64(h ^ 1))),
		Materialism: float32(hashUnit(splitmix64(h ^ 2))),
		Resilience:  float32(hashUnit(splitmix64(h ^ 3))),
	}
}

// averageHappiness covers real citizens plus the virtual population's
// district averages, weighted by count.
func (w *World) averageHappiness() float64 {
	var sum float64
	n := 0
	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, _, details, _, _, _ := query.Get()
		sum += float64(details.Happiness)
		n++
	}
	vTotal, vAvg := w.VirtualPop.Aggregate()
	sum += vAvg * float64(vTotal)
	n += vTotal
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
