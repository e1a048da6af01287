// Package components defines ECS components for the simulation.
package components

// CitizenState is the discrete state of the citizen state machine.
// Discriminants are fixed 0..9 and stable across save versions.
type CitizenState uint8

const (
	AtHome CitizenState = iota
	CommutingToWork
	Working
	CommutingHome
	CommutingToShop
	Shopping
	CommutingToLeisure
	AtLeisure
	CommutingToSchool
	AtSchool
)

// IsCommuting reports whether the state is one of the Commuting* states.
func (s CitizenState) IsCommuting() bool {
	switch s {
	case CommutingToWork, CommutingHome, CommutingToShop, CommutingToLeisure, CommutingToSchool:
		return true
	}
	return false
}

// ArrivalState returns the at-destination state a commute transitions into
// when the last waypoint is consumed.
func (s CitizenState) ArrivalState() CitizenState {
	switch s {
	case CommutingToWork:
		return Working
	case CommutingHome:
		return AtHome
	case CommutingToShop:
		return Shopping
	case CommutingToLeisure:
		return AtLeisure
	case CommutingToSchool:
		return AtSchool
	}
	return s
}

// Citizen is the marker component for citizen entities.
type Citizen struct{}

// CitizenStateComp holds the state machine state plus per-commute flags.
type CitizenStateComp struct {
	State CitizenState
	// Arrived is set by the movement integrator when the final waypoint is
	// consumed; the state machine transitions on it next tick.
	Arrived bool
	// PathPending is set while a path request sits in the pathfinding queue.
	PathPending bool
	// EverWorked records that the citizen has reached the Working state at
	// least once.
	EverWorked bool
}

// Gender of a citizen.
type Gender uint8

const (
	GenderFemale Gender = 0
	GenderMale   Gender = 1
)

// CitizenDetails holds demographic and economic state. ID is the stable
// per-citizen identifier used for path requests and family links; it never
// changes across LOD transitions or saves.
type CitizenDetails struct {
	ID        uint32
	Age       uint8
	Gender    Gender
	Education uint8   // 0=none, 1=elementary, 2=high school, 3=university
	Happiness float32 // 0..100
	Health    float32 // 0..100
	Salary    float32 // monthly income
	Savings   float32 // accumulated wealth
}

// Personality holds four fixed traits in [0,1].
type Personality struct {
	Ambition    float32
	Sociability float32
	Materialism float32
	Resilience  float32
}

// Needs are Sims-style satisfaction scalars; 100 = fully satisfied,
// 0 = critical. All five clamp to [0,100].
type Needs struct {
	Hunger  float32
	Energy  float32
	Social  float32
	Fun     float32
	Comfort float32
}

// DefaultNeeds returns the spawn-time needs values.
func DefaultNeeds() Needs {
	return Needs{Hunger: 80, Energy: 80, Social: 70, Fun: 70, Comfort: 60}
}

// Deficit returns the average shortfall below full satisfaction.
func (n *Needs) Deficit() float32 {
	return (500 - n.Hunger - n.Energy - n.Social - n.Fun - n.Comfort) / 5
}

// Family links a citizen to partner, parent, and children by entity-stable
// citizen ids (0 = none).
type Family struct {
	Partner  uint32
	Parent   uint32
	Children []uint32
}

// HomeLocation is the citizen's home cell plus the building reference.
type HomeLocation struct {
	GridX, GridY int
	Building     uint32
}

// WorkLocation is the citizen's workplace; Valid is false for unemployed.
type WorkLocation struct {
	GridX, GridY int
	Building     uint32
	Valid        bool
}

// PathCache holds the current route as road cells plus a cursor.
type PathCache struct {
	Waypoints [][2]int
	Cursor    int
}

// Clear drops the cached route.
func (p *PathCache) Clear() {
	p.Waypoints = p.Waypoints[:0]
	p.Cursor = 0
}

// ActivityTimer counts down ticks remaining in an at-destination state.
type ActivityTimer struct {
	Remaining int32
}

// LodTier classifies how much simulation a citizen receives.
type LodTier uint8

const (
	// LodFull citizens get pathfinding, movement, and per-citizen
	// reductions every cadence.
	LodFull LodTier = iota
	// LodAbstract citizens keep all components but expensive systems skip
	// them until they re-enter the camera's region of interest.
	LodAbstract
	// LodCompressed citizens carry only a packed snapshot.
	LodCompressed
)

// Lod is the per-citizen tier component.
type Lod struct {
	Tier LodTier
}

// CompressedCitizen is the fixed 8-byte packed record that replaces live
// simulation for Compressed-tier citizens: home cell, state, age, and
// happiness survive compression; per-frame derived state does not.
type CompressedCitizen struct {
	HomeX     uint8
	HomeY     uint8
	State     CitizenState
	Age       uint8
	Happiness float32
}
