package sim

import (
	"errors"
	"fmt"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/roads"
)

// Validation failures surfaced by the command layer.
var (
	ErrInsufficientFunds  = errors.New("sim: insufficient funds")
	ErrPlacementConflict  = errors.New("sim: placement conflict")
	ErrNothingToUndo      = errors.New("sim: nothing to undo")
	ErrNothingToRedo      = errors.New("sim: nothing to redo")
	ErrActionTargetLost   = errors.New("sim: action target no longer exists")
)

// Action is one undoable world edit. Apply mutates the world including the
// treasury; Invert, called only after a successful Apply, returns the
// action that exactly restores the previous state (funds included).
type Action interface {
	Name() string
	Apply(w *World) error
	Invert() Action
}

// BuildRoadAction places one Bezier segment and pays for it.
type BuildRoadAction struct {
	From, To roads.Vec2
	C1, C2   roads.Vec2
	Curved   bool
	Road     grid.RoadType
	Cost     float64

	segID roads.SegmentID
}

func (a *BuildRoadAction) Name() string { return "build_road" }

func (a *BuildRoadAction) Apply(w *World) error {
	snap := float32(w.Cfg.Pathfinding.SnapRadius) * float32(w.Cfg.World.CellSize)
	if a.Curved {
		a.segID = w.Segments.AddCurvedSegment(a.From, a.C1, a.C2, a.To, a.Road, snap, w.Grid, w.CellGraph)
	} else {
		a.segID, _ = w.Segments.AddStraightSegment(a.From, a.To, a.Road, snap, w.Grid, w.CellGraph)
	}
	w.Budget.Spend(a.Cost)
	return nil
}

func (a *BuildRoadAction) Invert() Action {
	return &RemoveRoadAction{SegID: a.segID, Refund: a.Cost}
}

// RemoveRoadAction removes a segment. Refund is the exact amount returned
// to the treasury; for undo it equals the build cost, for bulldozing the
// command layer sets the partial refund.
type RemoveRoadAction struct {
	SegID  roads.SegmentID
	Refund float64

	// Captured on Apply for re-creation by Invert.
	from, to, c1, c2 roads.Vec2
	road             grid.RoadType
}

func (a *RemoveRoadAction) Name() string { return "remove_road" }

func (a *RemoveRoadAction) Apply(w *World) error {
	seg := w.Segments.Segment(a.SegID)
	if seg == nil {
		return fmt.Errorf("%w: segment %d", ErrActionTargetLost, a.SegID)
	}
	a.from, a.to = seg.P0, seg.P3
	a.c1, a.c2 = seg.P1, seg.P2
	a.road = seg.RoadType
	w.Segments.RemoveSegment(a.SegID, w.Grid, w.CellGraph)
	w.Budget.Credit(a.Refund)
	return nil
}

func (a *RemoveRoadAction) Invert() Action {
	return &BuildRoadAction{
		From: a.from, To: a.to, C1: a.c1, C2: a.c2,
		Curved: true, Road: a.road, Cost: a.Refund,
	}
}

// PlaceGridRoadAction stamps a road on a single cell, bypassing the
// segment store. Used for cell-precise edits such as road drags.
type PlaceGridRoadAction struct {
	X, Y int
	Road grid.RoadType
	Cost float64
}

func (a *PlaceGridRoadAction) Name() string { return "place_grid_road" }

func (a *PlaceGridRoadAction) Apply(w *World) error {
	c := w.Grid.Get(a.X, a.Y)
	if c == nil || c.Type == grid.CellWater {
		return fmt.Errorf("%w: cell %d,%d", ErrPlacementConflict, a.X, a.Y)
	}
	w.CellGraph.AddRoad(w.Grid, a.X, a.Y, a.Road)
	w.Budget.Spend(a.Cost)
	return nil
}

func (a *PlaceGridRoadAction) Invert() Action {
	return &removeGridRoadAction{x: a.X, y: a.Y, road: a.Road, refund: a.Cost}
}

// removeGridRoadAction is the internal inverse of a cell road placement.
type removeGridRoadAction struct {
	x, y   int
	road   grid.RoadType
	refund float64
}

func (a *removeGridRoadAction) Name() string { return "remove_grid_road" }

func (a *removeGridRoadAction) Apply(w *World) error {
	w.CellGraph.RemoveRoad(w.Grid, a.x, a.y)
	w.Budget.Credit(a.refund)
	return nil
}

func (a *removeGridRoadAction) Invert() Action {
	return &PlaceGridRoadAction{X: a.x, Y: a.y, Road: a.road, Cost: a.refund}
}

// ZoneAction assigns a zone to a rectangle of cells and pays per cell
// actually changed. Previous zones are captured for inversion.
type ZoneAction struct {
	X, Y, W, H int
	Zone       grid.ZoneType
	CostPer    float64

	prev    []grid.ZoneType
	cells   [][2]int
	charged float64
}

func (a *ZoneAction) Name() string { return "zone" }

func (a *ZoneAction) Apply(w *World) error {
	a.prev = a.prev[:0]
	a.cells = a.cells[:0]
	for y := a.Y; y < a.Y+a.H; y++ {
		for x := a.X; x < a.X+a.W; x++ {
			c := w.Grid.Get(x, y)
			if c == nil || c.Type != grid.CellGrass || c.Zone == a.Zone {
				continue
			}
			a.prev = append(a.prev, c.Zone)
			a.cells = append(a.cells, [2]int{x, y})
			c.Zone = a.Zone
		}
	}
	a.charged = float64(len(a.cells)) * a.CostPer
	w.Budget.Spend(a.charged)
	return nil
}

func (a *ZoneAction) Invert() Action {
	return &unzoneAction{cells: a.cells, prev: a.prev, refund: a.charged}
}

// unzoneAction is the internal inverse of ZoneAction.
type unzoneAction struct {
	cells  [][2]int
	prev   []grid.ZoneType
	now    []grid.ZoneType
	refund float64
}

func (a *unzoneAction) Name() string { return "unzone" }

func (a *unzoneAction) Apply(w *World) error {
	a.now = a.now[:0]
	for i, cell := range a.cells {
		c := w.Grid.Get(cell[0], cell[1])
		if c == nil {
			a.now = append(a.now, grid.ZoneNone)
			continue
		}
		a.now = append(a.now, c.Zone)
		c.Zone = a.prev[i]
	}
	w.Budget.Credit(a.refund)
	return nil
}

func (a *unzoneAction) Invert() Action {
	return &rezoneAction{cells: a.cells, zones: a.now, cost: a.refund}
}

// rezoneAction restores the zones an unzone removed (redo support).
type rezoneAction struct {
	cells [][2]int
	zones []grid.ZoneType
	prev  []grid.ZoneType
	cost  float64
}

func (a *rezoneAction) Name() string { return "rezone" }

func (a *rezoneAction) Apply(w *World) error {
	a.prev = a.prev[:0]
	for i, cell := range a.cells {
		c := w.Grid.Get(cell[0], cell[1])
		if c == nil {
			a.prev = append(a.prev, grid.ZoneNone)
			continue
		}
		a.prev = append(a.prev, c.Zone)
		c.Zone = a.zones[i]
	}
	w.Budget.Spend(a.cost)
	return nil
}

func (a *rezoneAction) Invert() Action {
	return &unzoneAction{cells: a.cells, prev: a.prev, refund: a.cost}
}

// PlaceServiceAction places one service building.
type PlaceServiceAction struct {
	X, Y int
	Kind ServiceKind
	Cost float64

	id uint32
}

func (a *PlaceServiceAction) Name() string { return "place_service" }

func (a *PlaceServiceAction) Apply(w *World) error {
	a.id = w.Buildings.AddService(a.X, a.Y, a.Kind)
	w.Coverage.Dirty = true
	w.Budget.Spend(a.Cost)
	return nil
}

func (a *PlaceServiceAction) Invert() Action {
	return &RemoveServiceAction{ID: a.id, Refund: a.Cost}
}

// RemoveServiceAction removes a service building by id.
type RemoveServiceAction struct {
	ID     uint32
	Refund float64

	x, y int
	kind ServiceKind
}

func (a *RemoveServiceAction) Name() string { return "remove_service" }

func (a *RemoveServiceAction) Apply(w *World) error {
	for i := range w.Buildings.Services {
		s := &w.Buildings.Services[i]
		if s.ID == a.ID && s.Alive {
			a.x, a.y, a.kind = s.X, s.Y, s.Kind
			s.Alive = false
			w.Coverage.Dirty = true
			w.Budget.Credit(a.Refund)
			return nil
		}
	}
	return fmt.Errorf("%w: service %d", ErrActionTargetLost, a.ID)
}

func (a *RemoveServiceAction) Invert() Action {
	return &PlaceServiceAction{X: a.x, Y: a.y, Kind: a.kind, Cost: a.Refund}
}

// PlaceUtilityAction places one utility source.
type PlaceUtilityAction struct {
	X, Y int
	Kind UtilityKind
	Cost float64

	id uint32
}

func (a *PlaceUtilityAction) Name() string { return "place_utility" }

func (a *PlaceUtilityAction) Apply(w *World) error {
	a.id = w.Buildings.AddUtility(a.X, a.Y, a.Kind)
	w.Budget.Spend(a.Cost)
	return nil
}

func (a *PlaceUtilityAction) Invert() Action {
	return &RemoveUtilityAction{ID: a.id, Refund: a.Cost}
}

// RemoveUtilityAction removes a utility source by id.
type RemoveUtilityAction struct {
	ID     uint32
	Refund float64

	x, y int
	kind UtilityKind
}

func (a *RemoveUtilityAction) Name() string { return "remove_utility" }

func (a *RemoveUtilityAction) Apply(w *World) error {
	for i := range w.Buildings.Utilities {
		u := &w.Buildings.Utilities[i]
		if u.ID == a.ID && u.Alive {
			a.x, a.y, a.kind = u.X, u.Y, u.Kind
			u.Alive = false
			w.Budget.Credit(a.Refund)
			return nil
		}
	}
	return fmt.Errorf("%w: utility %d", ErrActionTargetLost, a.ID)
}

func (a *RemoveUtilityAction) Invert() Action {
	return &PlaceUtilityAction{X: a.x, Y: a.y, Kind: a.kind, Cost: a.Refund}
}

// DemolishBuildingAction removes a grown building. No refund: growth was
// free. Invert re-creates an empty building of the same zone at the same
// cell; occupants evicted by the demolition find new homes on their own.
type DemolishBuildingAction struct {
	ID uint32

	x, y int
	zone grid.ZoneType
}

func (a *DemolishBuildingAction) Name() string { return "demolish_building" }

func (a *DemolishBuildingAction) Apply(w *World) error {
	b := w.Buildings.Building(a.ID)
	if b == nil {
		return fmt.Errorf("%w: building %d", ErrActionTargetLost, a.ID)
	}
	a.x, a.y, a.zone = b.X, b.Y, b.Zone
	w.Buildings.RemoveBuilding(w.Grid, a.ID)
	w.evictBuilding(a.ID)
	return nil
}

func (a *DemolishBuildingAction) Invert() Action {
	return &rebuildBuildingAction{x: a.x, y: a.y, zone: a.zone}
}

// rebuildBuildingAction is the internal inverse of a demolition.
type rebuildBuildingAction struct {
	x, y int
	zone grid.ZoneType

	id uint32
}

func (a *rebuildBuildingAction) Name() string { return "rebuild_building" }

func (a *rebuildBuildingAction) Apply(w *World) error {
	a.id = w.Buildings.AddBuilding(w.Grid, a.x, a.y, a.zone)
	if a.id == 0 {
		return fmt.Errorf("%w: cell %d,%d occupied", ErrPlacementConflict, a.x, a.y)
	}
	return nil
}

func (a *rebuildBuildingAction) Invert() Action {
	return &DemolishBuildingAction{ID: a.id}
}

// SetTaxRateAction changes the tax rate; trivially invertible.
type SetTaxRateAction struct {
	Old, New float64
}

func (a *SetTaxRateAction) Name() string { return "set_tax_rate" }

func (a *SetTaxRateAction) Apply(w *World) error {
	a.Old = w.Cfg.Economy.TaxRate
	w.Cfg.Economy.TaxRate = a.New
	return nil
}

func (a *SetTaxRateAction) Invert() Action {
	return &SetTaxRateAction{New: a.Old}
}

// CompositeAction groups several edits into one history entry, applied in
// order and inverted in reverse.
type CompositeAction struct {
	Label   string
	Actions []Action

	applied int
}

func (a *CompositeAction) Name() string {
	if a.Label != "" {
		return a.Label
	}
	return "composite"
}

func (a *CompositeAction) Apply(w *World) error {
	a.applied = 0
	for _, sub := range a.Actions {
		if err := sub.Apply(w); err != nil {
			// Roll back the part that succeeded so a failed composite
			// leaves no half-applied edit.
			for i := a.applied - 1; i >= 0; i-- {
				a.Actions[i].Invert().Apply(w) //nolint:errcheck
			}
			a.applied = 0
			return fmt.Errorf("composite %s: %w", sub.Name(), err)
		}
		a.applied++
	}
	return nil
}

func (a *CompositeAction) Invert() Action {
	inv := &CompositeAction{Label: a.Label, Actions: make([]Action, 0, len(a.Actions))}
	for i := len(a.Actions) - 1; i >= 0; i-- {
		inv.Actions = append(inv.Actions, a.Actions[i].Invert())
	}
	return inv
}
