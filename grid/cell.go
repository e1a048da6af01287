// Package grid owns the fixed 256x256 cell array, its coordinate math, and
// the per-cell data grids consumed by the simulation systems.
package grid

// Width and Height are fixed for the life of a world.
const (
	Width  = 256
	Height = 256
)

// CellType is the surface kind of a cell. Discriminants are stable across
// save versions.
type CellType uint8

const (
	CellGrass CellType = 0
	CellWater CellType = 1
	CellRoad  CellType = 2
)

// ZoneType is the zoning designation of a cell. Discriminants are stable
// across save versions.
type ZoneType uint8

const (
	ZoneNone ZoneType = iota
	ZoneResidentialLow
	ZoneResidentialMedium
	ZoneResidentialHigh
	ZoneCommercialLow
	ZoneCommercialHigh
	ZoneIndustrial
	ZoneOffice
	ZoneMixedUse
)

// IsResidential reports whether the zone houses citizens.
func (z ZoneType) IsResidential() bool {
	return z == ZoneResidentialLow || z == ZoneResidentialMedium ||
		z == ZoneResidentialHigh || z == ZoneMixedUse
}

// IsJobZone reports whether the zone provides workplaces.
func (z ZoneType) IsJobZone() bool {
	return z == ZoneCommercialLow || z == ZoneCommercialHigh ||
		z == ZoneIndustrial || z == ZoneOffice || z == ZoneMixedUse
}

// RoadType tags a road-bearing cell. Meaningful only when the cell surface
// is CellRoad.
type RoadType uint8

const (
	RoadNone    RoadType = 0
	RoadLocal   RoadType = 1
	RoadAvenue  RoadType = 2
	RoadHighway RoadType = 3
)

// BuildingRef is a weak back-reference from a cell to a building, service,
// or utility entity. Zero means no building. The cell does not own the
// referenced record; it is a lookup key into the owning store.
type BuildingRef uint32

// Cell is one grid square. Created once at world initialisation, mutated by
// player edits and grid-stamping subsystems, never destroyed while the
// world exists.
type Cell struct {
	Elevation float32 // [0,1]
	Type      CellType
	Zone      ZoneType
	Road      RoadType
	HasPower  bool
	HasWater  bool
	Building  BuildingRef
}
