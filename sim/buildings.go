package sim

import (
	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/logging"
	"github.com/citygrid/citygrid/save"
)

// ServiceKind is the category of a service building. The order matches the
// coverage bit layout.
type ServiceKind uint8

const (
	ServiceHealth ServiceKind = iota
	ServiceEducation
	ServicePolice
	ServiceFire
	ServicePark
	ServiceEntertainment
	ServiceTelecom
	ServicePostal
	serviceKindCount
)

var serviceNames = [...]string{
	"health", "education", "police", "fire",
	"park", "entertainment", "telecom", "postal",
}

func (k ServiceKind) String() string {
	if int(k) < len(serviceNames) {
		return serviceNames[k]
	}
	return "unknown"
}

// CoverageBit returns the coverage-grid flag for this category.
func (k ServiceKind) CoverageBit() uint8 {
	return 1 << uint8(k)
}

// UtilityKind is the type of a utility source.
type UtilityKind uint8

const (
	UtilityPower UtilityKind = iota
	UtilityWater
)

// Building is one grown structure on a zoned cell. IDs are stable and
// never reused within a session; dead entries stay as tombstones.
type Building struct {
	ID        uint32
	X, Y      int
	Zone      grid.ZoneType
	Capacity  uint16
	Occupants uint16
	Level     uint8
	Alive     bool
}

// ServiceBuilding provides coverage of one category around its cell.
type ServiceBuilding struct {
	ID    uint32
	X, Y  int
	Kind  ServiceKind
	Alive bool
}

// UtilitySource provides power or water around its cell. Wear accumulates
// with pipe aging and reduces the effective radius.
type UtilitySource struct {
	ID    uint32
	X, Y  int
	Kind  UtilityKind
	Wear  float32
	Alive bool
}

// BuildingStore owns all placed structures. Iteration is over dense slices
// so system order is deterministic.
type BuildingStore struct {
	seq       uint32
	Buildings []Building
	Services  []ServiceBuilding
	Utilities []UtilitySource

	byID map[uint32]int // building index by id
}

// NewBuildingStore creates an empty store.
func NewBuildingStore() *BuildingStore {
	return &BuildingStore{byID: make(map[uint32]int)}
}

// capacityFor maps a zone to the dwelling or job capacity of one building.
func capacityFor(z grid.ZoneType) uint16 {
	switch z {
	case grid.ZoneResidentialLow:
		return 4
	case grid.ZoneResidentialMedium:
		return 12
	case grid.ZoneResidentialHigh:
		return 40
	case grid.ZoneCommercialLow:
		return 8
	case grid.ZoneCommercialHigh:
		return 24
	case grid.ZoneIndustrial:
		return 16
	case grid.ZoneOffice:
		return 30
	case grid.ZoneMixedUse:
		return 20
	}
	return 0
}

// AddBuilding grows a structure on a zoned cell and back-references it from
// the grid.
func (s *BuildingStore) AddBuilding(g *grid.WorldGrid, x, y int, zone grid.ZoneType) uint32 {
	c := g.Get(x, y)
	if c == nil || c.Building != 0 {
		return 0
	}
	s.seq++
	b := Building{
		ID: s.seq, X: x, Y: y, Zone: zone,
		Capacity: capacityFor(zone), Level: 1, Alive: true,
	}
	s.byID[b.ID] = len(s.Buildings)
	s.Buildings = append(s.Buildings, b)
	c.Building = grid.BuildingRef(b.ID)
	return b.ID
}

// Building returns the live building with the given id, or nil.
func (s *BuildingStore) Building(id uint32) *Building {
	idx, ok := s.byID[id]
	if !ok || !s.Buildings[idx].Alive {
		return nil
	}
	return &s.Buildings[idx]
}

// RemoveBuilding tombstones a building and clears the cell back-reference.
func (s *BuildingStore) RemoveBuilding(g *grid.WorldGrid, id uint32) bool {
	b := s.Building(id)
	if b == nil {
		return false
	}
	b.Alive = false
	if c := g.Get(b.X, b.Y); c != nil && c.Building == grid.BuildingRef(id) {
		c.Building = 0
	}
	return true
}

// AddService places a service building. Coverage is restamped by the
// coverage system on its next run.
func (s *BuildingStore) AddService(x, y int, kind ServiceKind) uint32 {
	s.seq++
	s.Services = append(s.Services, ServiceBuilding{ID: s.seq, X: x, Y: y, Kind: kind, Alive: true})
	return s.seq
}

// RemoveService tombstones a service building by id.
func (s *BuildingStore) RemoveService(id uint32) bool {
	for i := range s.Services {
		if s.Services[i].ID == id && s.Services[i].Alive {
			s.Services[i].Alive = false
			return true
		}
	}
	return false
}

// AddUtility places a power plant or water tower.
func (s *BuildingStore) AddUtility(x, y int, kind UtilityKind) uint32 {
	s.seq++
	s.Utilities = append(s.Utilities, UtilitySource{ID: s.seq, X: x, Y: y, Kind: kind, Alive: true})
	return s.seq
}

// RemoveUtility tombstones a utility source by id.
func (s *BuildingStore) RemoveUtility(id uint32) bool {
	for i := range s.Utilities {
		if s.Utilities[i].ID == id && s.Utilities[i].Alive {
			s.Utilities[i].Alive = false
			return true
		}
	}
	return false
}

// FindHome picks the first live residential building with spare capacity,
// scanning in id order for determinism.
func (s *BuildingStore) FindHome() *Building {
	for i := range s.Buildings {
		b := &s.Buildings[i]
		if b.Alive && b.Zone.IsResidential() && b.Occupants < b.Capacity {
			return b
		}
	}
	return nil
}

// FindJob picks the first live job-zone building with spare capacity.
func (s *BuildingStore) FindJob() *Building {
	for i := range s.Buildings {
		b := &s.Buildings[i]
		if b.Alive && b.Zone.IsJobZone() && b.Occupants < b.Capacity {
			return b
		}
	}
	return nil
}

// Slot codecs. Each store section writes a compact little-endian record
// list using the shared writer in package save.

// EncodeBuildings packs live buildings for the "buildings" slot.
func (s *BuildingStore) EncodeBuildings() []byte {
	recs := make([]save.BuildingRec, 0, len(s.Buildings))
	for i := range s.Buildings {
		b := &s.Buildings[i]
		if !b.Alive {
			continue
		}
		recs = append(recs, save.BuildingRec{
			ID: b.ID, X: uint16(b.X), Y: uint16(b.Y),
			Zone: uint8(b.Zone), Capacity: b.Capacity, Occupants: b.Occupants, Level: b.Level,
		})
	}
	return save.EncodeBuildings(recs)
}

// DecodeBuildings restores the buildings section, rebuilding the grid
// back-references.
func (s *BuildingStore) DecodeBuildings(g *grid.WorldGrid, data []byte) bool {
	recs, err := save.DecodeBuildings(data)
	if err != nil {
		logging.Logf("buildings: %v", err)
		return false
	}
	s.Buildings = s.Buildings[:0]
	for _, r := range recs {
		b := Building{
			ID: r.ID, X: int(r.X), Y: int(r.Y), Zone: grid.ZoneType(r.Zone),
			Capacity: r.Capacity, Occupants: r.Occupants, Level: r.Level, Alive: true,
		}
		s.byID[b.ID] = len(s.Buildings)
		s.Buildings = append(s.Buildings, b)
		if c := g.Get(b.X, b.Y); c != nil {
			c.Building = grid.BuildingRef(b.ID)
		}
		if b.ID > s.seq {
			s.seq = b.ID
		}
	}
	return true
}

// EncodeServices packs live service buildings for the
// "service_buildings" slot.
func (s *BuildingStore) EncodeServices() []byte {
	recs := make([]save.PointRec, 0, len(s.Services))
	for i := range s.Services {
		sv := &s.Services[i]
		if !sv.Alive {
			continue
		}
		recs = append(recs, save.PointRec{ID: sv.ID, X: uint16(sv.X), Y: uint16(sv.Y), Kind: uint8(sv.Kind)})
	}
	return save.EncodePoints(recs)
}

// DecodeServices restores the service-building section.
func (s *BuildingStore) DecodeServices(data []byte) bool {
	recs, err := save.DecodePoints(data)
	if err != nil {
		logging.Logf("services: %v", err)
		return false
	}
	s.Services = s.Services[:0]
	for _, r := range recs {
		s.Services = append(s.Services, ServiceBuilding{
			ID: r.ID, X: int(r.X), Y: int(r.Y), Kind: ServiceKind(r.Kind), Alive: true,
		})
		if r.ID > s.seq {
			s.seq = r.ID
		}
	}
	return true
}

// EncodeUtilities packs live utility sources for the
// "utility_sources" slot.
func (s *BuildingStore) EncodeUtilities() []byte {
	recs := make([]save.PointRec, 0, len(s.Utilities))
	for i := range s.Utilities {
		u := &s.Utilities[i]
		if !u.Alive {
			continue
		}
		recs = append(recs, save.PointRec{ID: u.ID, X: uint16(u.X), Y: uint16(u.Y), Kind: uint8(u.Kind), Wear: u.Wear})
	}
	return save.EncodePoints(recs)
}

// DecodeUtilities restores the utility-source section.
func (s *BuildingStore) DecodeUtilities(data []byte) bool {
	recs, err := save.DecodePoints(data)
	if err != nil {
		logging.Logf("utilities: %v", err)
		return false
	}
	s.Utilities = s.Utilities[:0]
	for _, r := range recs {
		s.Utilities = append(s.Utilities, UtilitySource{
			ID: r.ID, X: int(r.X), Y: int(r.Y), Kind: UtilityKind(r.Kind), Wear: r.Wear, Alive: true,
		})
		if r.ID > s.seq {
			s.seq = r.ID
		}
	}
	return true
}
