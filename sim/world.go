package sim

import (
	"fmt"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/config"
	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/logging"
	"github.com/citygrid/citygrid/pathfind"
	"github.com/citygrid/citygrid/roads"
	"github.com/citygrid/citygrid/save"
	"github.com/citygrid/citygrid/telemetry"
)

// ecsEntity keeps system files free of a direct ecs import when they only
// pass entities through.
type ecsEntity = ecs.Entity

// Observer is the point of interest that drives level-of-detail
// classification. Inactive means every citizen is simulated at full
// detail up to the population cap.
type Observer struct {
	X, Y   float32
	Active bool
}

// World holds the complete simulation state: the ECS world with its
// mappers, all shared resources, and the validated scheduler.
type World struct {
	Cfg *config.Config

	ecsWorld *ecs.World

	// Hot-loop component set for full-detail citizens.
	citizenMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.CitizenStateComp,
		components.CitizenDetails,
		components.Needs,
		components.PathCache,
		components.ActivityTimer,
	]
	citizenFilter *ecs.Filter7[
		components.Position,
		components.Velocity,
		components.CitizenStateComp,
		components.CitizenDetails,
		components.Needs,
		components.PathCache,
		components.ActivityTimer,
	]

	// Individual component mappers for lookups and LOD transitions.
	posMap     *ecs.Map1[components.Position]
	velMap     *ecs.Map1[components.Velocity]
	stateMap   *ecs.Map1[components.CitizenStateComp]
	detailsMap *ecs.Map1[components.CitizenDetails]
	needsMap   *ecs.Map1[components.Needs]
	pathMap    *ecs.Map1[components.PathCache]
	homeMap    *ecs.Map1[components.HomeLocation]
	workMap    *ecs.Map1[components.WorkLocation]
	persMap    *ecs.Map1[components.Personality]
	famMap     *ecs.Map1[components.Family]
	lodMap     *ecs.Map1[components.Lod]
	compMap    *ecs.Map1[components.CompressedCitizen]
	markMap    *ecs.Map1[components.Citizen]

	compFilter *ecs.Filter1[components.CompressedCitizen]

	// World structure.
	Grid      *grid.WorldGrid
	CellGraph *roads.CellGraph
	Segments  *roads.SegmentStore
	Csr       *roads.CSR
	Paths     *pathfind.Service

	// Data grids.
	Coverage   *grid.CoverageGrid
	Pollution  *grid.GridU8
	LandValue  *grid.GridU8
	Crime      *grid.GridU8
	HealthGrid *grid.GridU8
	EduGrid    *grid.GridU8
	Heat       *grid.GridF32
	Stormwater *grid.GridF32
	Traffic    *grid.GridU16

	// Shared state.
	Clock      *Clock
	Budget     *Budget
	Demand     *Demand
	Weather    *Weather
	Waste      *WasteState
	Water      *WaterSupplyState
	Disasters  *DisasterState
	Buildings  *BuildingStore
	Registry   *save.Registry
	History    *History
	VirtualPop *VirtualPopulation
	Perf       *PerfController
	Observer   Observer
	Spatial    *SpatialGrid
	Telemetry  *telemetry.Collector

	scheduler *Scheduler
	pool      *workerPool

	citizensByID map[uint32]ecs.Entity
	nextID       uint32

	// Movement scratch, reused across ticks.
	moveSnapshots []moveSnapshot
	moveIntents   []moveIntent
	hapSnapshots  []hapSnapshot

	lastTickStart time.Time
}

// NewWorld creates an empty world from the given configuration. Schedule
// validation happens here, so a system declaration conflict fails world
// creation with ErrScheduleCycle instead of misordering ticks.
func NewWorld(cfg *config.Config) (*World, error) {
	ecsWorld := ecs.NewWorld()
	cellSize := float32(cfg.World.CellSize)

	w := &World{
		Cfg:      cfg,
		ecsWorld: ecsWorld,
		citizenMapper: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.CitizenStateComp,
			components.CitizenDetails,
			components.Needs,
			components.PathCache,
			components.ActivityTimer,
		](ecsWorld),
		citizenFilter: ecs.NewFilter7[
			components.Position,
			components.Velocity,
			components.CitizenStateComp,
			components.CitizenDetails,
			components.Needs,
			components.PathCache,
			components.ActivityTimer,
		](ecsWorld),
		posMap:     ecs.NewMap1[components.Position](ecsWorld),
		velMap:     ecs.NewMap1[components.Velocity](ecsWorld),
		stateMap:   ecs.NewMap1[components.CitizenStateComp](ecsWorld),
		detailsMap: ecs.NewMap1[components.CitizenDetails](ecsWorld),
		needsMap:   ecs.NewMap1[components.Needs](ecsWorld),
		pathMap:    ecs.NewMap1[components.PathCache](ecsWorld),
		homeMap:    ecs.NewMap1[components.HomeLocation](ecsWorld),
		workMap:    ecs.NewMap1[components.WorkLocation](ecsWorld),
		persMap:    ecs.NewMap1[components.Personality](ecsWorld),
		famMap:     ecs.NewMap1[components.Family](ecsWorld),
		lodMap:     ecs.NewMap1[components.Lod](ecsWorld),
		compMap:    ecs.NewMap1[components.CompressedCitizen](ecsWorld),
		markMap:    ecs.NewMap1[components.Citizen](ecsWorld),
		compFilter: ecs.NewFilter1[components.CompressedCitizen](ecsWorld),

		Grid:      grid.NewWorldGrid(cellSize),
		CellGraph: roads.NewCellGraph(),
		Segments:  roads.NewSegmentStore(),
		Csr:       roads.NewCSR(),
		Paths:     pathfind.NewService(cfg.Pathfinding.BudgetPerTick, cfg.Pathfinding.SnapRadius),

		Coverage:   grid.NewCoverageGrid(),
		Pollution:  grid.NewGridU8(),
		LandValue:  grid.NewGridU8(),
		Crime:      grid.NewGridU8(),
		HealthGrid: grid.NewGridU8(),
		EduGrid:    grid.NewGridU8(),
		Heat:       grid.NewGridF32(),
		Stormwater: grid.NewGridF32(),
		Traffic:    grid.NewGridU16(),

		Clock:      &Clock{TicksPerDay: cfg.World.TicksPerDay},
		Budget:     &Budget{Treasury: cfg.World.StartingMoney},
		Demand:     &Demand{Residential: 0.5, Commercial: 0.3, Industrial: 0.3},
		Weather:    &Weather{},
		Waste:      &WasteState{},
		Water:      &WaterSupplyState{},
		Disasters:  &DisasterState{},
		Buildings:  NewBuildingStore(),
		Registry:   save.NewRegistry(),
		History:    NewHistory(),
		VirtualPop: NewVirtualPopulation(),
		Perf:       NewPerfController(&cfg.Population),

		Spatial: NewSpatialGrid(
			float32(grid.Width)*cellSize,
			float32(grid.Height)*cellSize,
			cellSize*8,
		),
		Telemetry: telemetry.NewCollector(&cfg.Telemetry),

		pool:         newWorkerPool(),
		citizensByID: make(map[uint32]ecs.Entity),
	}
	w.Weather.Reset()

	// Extension registrations. Failing registration here is a programming
	// error (fixed keys), so errors only surface through the log.
	w.Registry.Register("config", w.Cfg)
	w.Registry.Register("weather", w.Weather)
	w.Registry.Register("waste", w.Waste)
	w.Registry.Register("water_supply", w.Water)
	w.Registry.Register("disasters", w.Disasters)
	w.Registry.Register("virtual_population", w.VirtualPop)

	sched, err := NewScheduler(w.systems())
	if err != nil {
		return nil, fmt.Errorf("sim: building schedule: %w", err)
	}
	w.scheduler = sched

	w.pool.start()
	return w, nil
}

// systems declares the full schedule: every system with its phase,
// cadence, and resource contract.
func (w *World) systems() []System {
	return []System{
		{Name: "commands", Phase: PhaseInput, Cadence: 1,
			Reads: []string{"budget"}, Writes: []string{"grid", "roads", "buildings", "budget", "history"},
			Run: commandSystem},

		{Name: "taxes", Phase: PhaseEcon, Cadence: 1440,
			Reads: []string{"citizens"}, Writes: []string{"budget"},
			Run: taxSystem},
		// Demand samples the previous window's occupancy, so its only
		// in-tick edge is demand before growth.
		{Name: "demand", Phase: PhaseEcon, Cadence: 100,
			Writes: []string{"demand"},
			Run:    demandSystem},
		{Name: "growth", Phase: PhaseEcon, Cadence: 100,
			Reads: []string{"demand", "grid"}, Writes: []string{"buildings"},
			Run: growthSystem},
		{Name: "immigration", Phase: PhaseEcon, Cadence: 1440,
			Reads: []string{"stats", "buildings"}, Writes: []string{"citizens"},
			Run: immigrationSystem},

		{Name: "statemachine", Phase: PhasePlanning, Cadence: 1,
			Reads: []string{"grid", "buildings"}, Writes: []string{"citizens", "pathqueue"},
			Run: stateMachineSystem},
		{Name: "pathfinding", Phase: PhasePlanning, Cadence: 1,
			Reads: []string{"pathqueue", "roads"}, Writes: []string{"csr", "citizens"},
			Run: pathfindingSystem},

		{Name: "movement", Phase: PhaseMotion, Cadence: 1,
			Reads: []string{"grid"}, Writes: []string{"citizens"},
			Run: movementSystem},
		{Name: "traffic", Phase: PhaseMotion, Cadence: 5,
			Reads: []string{"citizens"}, Writes: []string{"traffic"},
			Run: trafficSystem},

		{Name: "weather", Phase: PhaseEnvironment, Cadence: 100,
			Writes: []string{"weather"},
			Run:    weatherSystem},
		{Name: "utilities", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"buildings"}, Writes: []string{"utilities"},
			Run: utilitiesSystem},
		{Name: "pipe_aging", Phase: PhaseEnvironment, Cadence: 500,
			Writes: []string{"buildings"},
			Run:    pipeAgingSystem},
		{Name: "coverage", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"buildings"}, Writes: []string{"coverage"},
			Run: coverageSystem},
		{Name: "pollution", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"traffic", "buildings"}, Writes: []string{"pollution"},
			Run: pollutionSystem},
		{Name: "landvalue", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"pollution", "coverage"}, Writes: []string{"landvalue"},
			Run: landValueSystem},
		{Name: "crime", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"landvalue", "coverage"}, Writes: []string{"crime"},
			Run: crimeSystem},
		{Name: "wellbeing", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"coverage", "pollution"}, Writes: []string{"wellbeing"},
			Run: wellbeingSystem},
		{Name: "heat_island", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"grid", "weather"}, Writes: []string{"heat"},
			Run: heatIslandSystem},
		{Name: "stormwater", Phase: PhaseEnvironment, Cadence: 100,
			Reads: []string{"grid", "weather"}, Writes: []string{"stormwater"},
			Run: stormwaterSystem},

		{Name: "needs", Phase: PhaseHappiness, Cadence: 10,
			Reads: []string{"utilities"}, Writes: []string{"needs"},
			Run: needsSystem},
		{Name: "happiness", Phase: PhaseHappiness, Cadence: 10,
			Reads: []string{"needs", "coverage", "pollution", "landvalue", "traffic"}, Writes: []string{"citizens"},
			Run: happinessSystem},

		{Name: "districts", Phase: PhaseAggregate, Cadence: 10,
			Reads: []string{"citizens"}, Writes: []string{"districts"},
			Run: districtSystem},
		{Name: "stats", Phase: PhaseAggregate, Cadence: 100,
			Reads: []string{"citizens", "districts", "budget", "demand"}, Writes: []string{"stats"},
			Run: statsSystem},

		{Name: "lod", Phase: PhaseSubsystems, Cadence: 20,
			Reads: []string{"spatial"}, Writes: []string{"citizens", "districts"},
			Run: lodSystem},
		{Name: "waste", Phase: PhaseSubsystems, Cadence: 500,
			Reads: []string{"stats"}, Writes: []string{"waste"},
			Run: wasteSystem},
		{Name: "water_supply", Phase: PhaseSubsystems, Cadence: 100,
			Reads: []string{"weather"}, Writes: []string{"water"},
			Run: waterSupplySystem},
		{Name: "disasters", Phase: PhaseSubsystems, Cadence: 1440,
			Reads: []string{"water", "coverage"}, Writes: []string{"buildings", "citizens"},
			Run: disasterSystem},

		{Name: "spatial_index", Phase: PhaseHousekeeping, Cadence: 1,
			Reads: []string{"citizens"}, Writes: []string{"spatial"},
			Run: spatialIndexSystem},
		{Name: "perf", Phase: PhaseHousekeeping, Cadence: 1,
			Writes: []string{"perf"},
			Run:    perfSystem},
		{Name: "telemetry", Phase: PhaseHousekeeping, Cadence: 100,
			Reads: []string{"stats", "perf"},
			Run:   telemetrySystem},
	}
}

// Tick advances the world by exactly one tick. Systems run in phase order;
// each system only runs when its cadence divides the current tick.
func (w *World) Tick() {
	w.lastTickStart = time.Now()
	w.scheduler.Tick(w, w.Clock.Tick)
	w.Clock.Tick++
}

// TickN advances the world by n ticks.
func (w *World) TickN(n int) {
	for i := 0; i < n; i++ {
		w.Tick()
	}
}

// Observe sets the level-of-detail point of interest in world coordinates
// and runs the observer pass immediately: citizens are re-tiered around
// the new point, then the spatial index is rebuilt so revived citizens
// are queryable. Callable any number of times between ticks; ordering
// matches the in-tick lod and spatial_index systems.
func (w *World) Observe(x, y float32) {
	w.Observer = Observer{X: x, Y: y, Active: true}
	w.classifyByObserver()
	spatialIndexSystem(w)
}

// ClearObserver returns the world to observer-less full simulation.
func (w *World) ClearObserver() {
	w.Observer = Observer{}
}

// NewGame returns the world to a blank city as one event: all citizen
// entities removed, terrain and road structures replaced, shared state
// reinstalled at its defaults, and every registered extension reset.
// Calling it twice is indistinguishable from calling it once.
func (w *World) NewGame() {
	w.despawnAllCitizens()

	cellSize := float32(w.Cfg.World.CellSize)
	w.Grid = grid.NewWorldGrid(cellSize)
	w.CellGraph = roads.NewCellGraph()
	w.Segments = roads.NewSegmentStore()
	w.Csr = roads.NewCSR()
	w.Paths = pathfind.NewService(w.Cfg.Pathfinding.BudgetPerTick, w.Cfg.Pathfinding.SnapRadius)
	w.Buildings = NewBuildingStore()

	w.Coverage = grid.NewCoverageGrid()
	w.Pollution.Clear()
	w.LandValue.Clear()
	w.Crime.Clear()
	w.HealthGrid.Clear()
	w.EduGrid.Clear()
	w.Heat.Fill(0)
	w.Stormwater.Fill(0)
	w.Traffic.Clear()
	w.Spatial.Clear()

	*w.Clock = Clock{TicksPerDay: w.Cfg.World.TicksPerDay}
	*w.Budget = Budget{Treasury: w.Cfg.World.StartingMoney}
	*w.Demand = Demand{Residential: 0.5, Commercial: 0.3, Industrial: 0.3}

	// Registered extensions (weather, waste, water, disasters, virtual
	// population, config) go back to their defaults in place; the registry
	// keeps the same pointers.
	w.Registry.ResetAll()
	w.History.Clear()
	w.Observer = Observer{}

	logging.Logf("world: new game")
}

// Close stops the worker pool. The world must not be ticked afterwards.
func (w *World) Close() {
	w.pool.stop()
}

// ScheduledSystems exposes the execution order for tests and diagnostics.
func (w *World) ScheduledSystems() []string {
	return w.scheduler.Systems()
}

// CitizenCount returns the number of real (full or abstract tier) citizen
// entities.
func (w *World) CitizenCount() int {
	n := 0
	query := w.citizenFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// CompressedCount returns the number of compressed-tier citizen entities.
func (w *World) CompressedCount() int {
	n := 0
	query := w.compFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// CitizenByID resolves a stable citizen id to its live entity.
func (w *World) CitizenByID(id uint32) (ecs.Entity, bool) {
	e, ok := w.citizensByID[id]
	return e, ok
}

// evictBuilding clears home and work references pointing at a removed
// building so citizens re-plan instead of commuting into a ruin.
func (w *World) evictBuilding(id uint32) {
	query := w.citizenFilter.Query()
	var orphans []ecs.Entity
	for query.Next() {
		orphans = append(orphans, query.Entity())
	}
	for _, e := range orphans {
		if home := w.homeMap.Get(e); home != nil && home.Building == id {
			home.Building = 0
		}
		if work := w.workMap.Get(e); work != nil && work.Building == id {
			work.Valid = false
			work.Building = 0
			if st := w.stateMap.Get(e); st != nil && (st.State == components.Working || st.State == components.CommutingToWork) {
				st.State = components.AtHome
				st.Arrived = false
				st.PathPending = false
				if pc := w.pathMap.Get(e); pc != nil {
					pc.Clear()
				}
			}
		}
	}
	logging.Logf("world: building %d evicted from citizen references", id)
}
