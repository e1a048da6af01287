// Package config provides configuration loading and access for the simulation.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation tuning parameters. Every balancing
// coefficient that is not part of a hard contract lives here so that
// subsystems read tuning inputs from one place. The config is itself
// registered in the save registry under the key "config".
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Economy     EconomyConfig     `yaml:"economy"`
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Movement    MovementConfig    `yaml:"movement"`
	Needs       NeedsConfig       `yaml:"needs"`
	Happiness   HappinessConfig   `yaml:"happiness"`
	Lod         LodConfig         `yaml:"lod"`
	Population  PopulationConfig  `yaml:"population"`
	Immigration ImmigrationConfig `yaml:"immigration"`
	Services    ServicesConfig    `yaml:"services"`
	Utilities   UtilitiesConfig   `yaml:"utilities"`
	Environment EnvironmentConfig `yaml:"environment"`
	Weather     WeatherConfig     `yaml:"weather"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// WorldConfig holds world dimensions and clock parameters.
type WorldConfig struct {
	CellSize      float64 `yaml:"cell_size"`      // world units per grid cell
	TicksPerDay   int     `yaml:"ticks_per_day"`  // game-clock day length
	StartingMoney float64 `yaml:"starting_money"` // treasury at world creation
	Seed          int64   `yaml:"seed"`           // terrain generation seed
}

// EconomyConfig holds budget and zoning-demand parameters.
type EconomyConfig struct {
	TaxRate           float64 `yaml:"tax_rate"`            // fraction of salary collected daily
	RoadCost          float64 `yaml:"road_cost"`           // per rasterised cell
	ZoneCost          float64 `yaml:"zone_cost"`           // per zoned cell
	ServiceCost       float64 `yaml:"service_cost"`        // per service building
	UtilityCost       float64 `yaml:"utility_cost"`        // per utility source
	BulldozeRefund    float64 `yaml:"bulldoze_refund"`     // fraction of cost refunded
	DemandGrowthRate  float64 `yaml:"demand_growth_rate"`  // demand response to vacancy
	BuildGrowthChance float64 `yaml:"build_growth_chance"` // per-slow-tick chance a zoned cell grows
}

// PathfindingConfig holds the admission control and snapping parameters.
type PathfindingConfig struct {
	BudgetPerTick int `yaml:"budget_per_tick"` // max requests solved per tick
	SnapRadius    int `yaml:"snap_radius"`     // cells searched for nearest road
}

// MovementConfig holds the movement integrator parameters.
type MovementConfig struct {
	BaseSpeed      float64 `yaml:"base_speed"`      // world units per tick on a local road
	AvenueFactor   float64 `yaml:"avenue_factor"`   // speed multiplier on avenues
	HighwayFactor  float64 `yaml:"highway_factor"`  // speed multiplier on highways
	ArrivalEpsilon float64 `yaml:"arrival_epsilon"` // waypoint arrival distance
}

// NeedsConfig holds per-interval decay and restore rates.
type NeedsConfig struct {
	HungerDecay        float64 `yaml:"hunger_decay"`
	HungerRestore      float64 `yaml:"hunger_restore"`
	EnergyDecay        float64 `yaml:"energy_decay"`
	EnergyRestore      float64 `yaml:"energy_restore"`
	SocialDecay        float64 `yaml:"social_decay"`
	SocialRestore      float64 `yaml:"social_restore"`
	FunDecay           float64 `yaml:"fun_decay"`
	FunRestore         float64 `yaml:"fun_restore"`
	ComfortUtility     float64 `yaml:"comfort_utility"`     // comfort gain when power+water present
	ComfortDecay       float64 `yaml:"comfort_decay"`       // comfort loss without utilities
	UnreachablePenalty float64 `yaml:"unreachable_penalty"` // comfort hit on failed path
}

// HappinessConfig holds the weights of the per-citizen reduction.
type HappinessConfig struct {
	Base             float64 `yaml:"base"`
	CoverageBonus    float64 `yaml:"coverage_bonus"`     // per covered service category
	PollutionPenalty float64 `yaml:"pollution_penalty"`  // per 25 pollution
	LandValueBonus   float64 `yaml:"land_value_bonus"`   // per 50 land value
	TrafficPenalty   float64 `yaml:"traffic_penalty"`    // per 25 traffic density
	NeedsWeight      float64 `yaml:"needs_weight"`       // deficit scaling
	PowerBonus       float64 `yaml:"power_bonus"`
	WaterBonus       float64 `yaml:"water_bonus"`
	NoUtilityPenalty float64 `yaml:"no_utility_penalty"`
}

// LodConfig holds level-of-detail classification distances in cells.
type LodConfig struct {
	FullRadius     float64 `yaml:"full_radius"`     // camera distance for Full tier
	AbstractRadius float64 `yaml:"abstract_radius"` // camera distance for Abstract tier
}

// PopulationConfig holds the dynamic real-entity cap parameters.
type PopulationConfig struct {
	DefaultCap     int     `yaml:"default_cap"`     // cap at steady 60 fps
	FloorCap       int     `yaml:"floor_cap"`       // hard lower bound
	CeilingCap     int     `yaml:"ceiling_cap"`     // hard upper bound
	TargetFrameMs  float64 `yaml:"target_frame_ms"` // frame time at which cap rests at default
	FrameSmoothing float64 `yaml:"frame_smoothing"` // EMA factor for frame-time samples
}

// ImmigrationConfig holds migration balancing.
type ImmigrationConfig struct {
	HappinessThreshold float64 `yaml:"happiness_threshold"` // avg happiness needed for inflow
	ArrivalsPerWave    int     `yaml:"arrivals_per_wave"`
	DeparturesPerWave  int     `yaml:"departures_per_wave"`
}

// ServicesConfig holds coverage stamp radii per category, in cells.
type ServicesConfig struct {
	HealthRadius        int `yaml:"health_radius"`
	EducationRadius     int `yaml:"education_radius"`
	PoliceRadius        int `yaml:"police_radius"`
	FireRadius          int `yaml:"fire_radius"`
	ParkRadius          int `yaml:"park_radius"`
	EntertainmentRadius int `yaml:"entertainment_radius"`
	TelecomRadius       int `yaml:"telecom_radius"`
	PostalRadius        int `yaml:"postal_radius"`
}

// UtilitiesConfig holds utility propagation parameters.
type UtilitiesConfig struct {
	PowerRadius   int     `yaml:"power_radius"`
	WaterRadius   int     `yaml:"water_radius"`
	PipeAgingRate float64 `yaml:"pipe_aging_rate"` // wear per aging interval
}

// EnvironmentConfig holds data-grid balancing coefficients, including the
// minor-subsystem tuning inputs (composting, drought, cold snap) that are
// deliberately config-level rather than contract-level.
type EnvironmentConfig struct {
	IndustrialPollution float64 `yaml:"industrial_pollution"`
	TrafficPollution    float64 `yaml:"traffic_pollution"`
	CrimeBase           float64 `yaml:"crime_base"`
	EducationCrimeCut   float64 `yaml:"education_crime_cut"`   // multiplicative modifier
	ParkHealthBoost     float64 `yaml:"park_health_boost"`     // multiplicative modifier
	LibraryEducationAmp float64 `yaml:"library_education_amp"` // multiplicative modifier
	ModifierClamp       float64 `yaml:"modifier_clamp"`        // bound on interaction modifiers
	UhiRoadHeat         float64 `yaml:"uhi_road_heat"`
	UhiBuildingHeat     float64 `yaml:"uhi_building_heat"`
	StormwaterRunoff    float64 `yaml:"stormwater_runoff"`
	CompostingYield     float64 `yaml:"composting_yield"`
	DroughtIndexRate    float64 `yaml:"drought_index_rate"`
	ColdSnapThreshold   float64 `yaml:"cold_snap_threshold"`
}

// WeatherConfig holds the weather subsystem tuning.
type WeatherConfig struct {
	BaseTemperature float64 `yaml:"base_temperature"`
	SeasonalSwing   float64 `yaml:"seasonal_swing"`
	RainChance      float64 `yaml:"rain_chance"`
}

// TelemetryConfig controls CSV stats output.
type TelemetryConfig struct {
	OutputDir      string `yaml:"output_dir"`
	WindowTicks    int    `yaml:"window_ticks"`
	PerfWindowSize int    `yaml:"perf_window_size"`
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		// The embedded defaults are part of the build; failing to parse
		// them is a programming error.
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load reads the defaults and overlays values from the given YAML file.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// WriteYAML saves the current configuration to a file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshaling: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Encode serializes the config for the save registry. Returns nil when the
// config equals the embedded defaults so the registry elides it.
func (c *Config) Encode() []byte {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}
	def, _ := yaml.Marshal(Default())
	if bytes.Equal(data, def) {
		return nil
	}
	return data
}

// Decode restores the config from save-registry bytes.
func (c *Config) Decode(data []byte) error {
	next := Default()
	if err := yaml.Unmarshal(data, next); err != nil {
		return fmt.Errorf("config: decoding saved config: %w", err)
	}
	*c = *next
	return nil
}

// Reset restores the embedded defaults.
func (c *Config) Reset() {
	*c = *Default()
}
