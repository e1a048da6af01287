package sim

import (
	"fmt"
	"math"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/roads"
)

// Player-facing edits. Each command validates funds and placement, then
// applies through the history so every accepted edit is undoable. Commands
// called between ticks apply immediately; interactive frontends can instead
// enqueue actions on w.History for the next Input phase.

// BuildRoad lays a straight road between two world-space points.
func (w *World) BuildRoad(from, to roads.Vec2, rt grid.RoadType) error {
	cost := w.roadCost(from, from, to, to)
	if err := w.checkRoadPlacement(from, to, cost); err != nil {
		return err
	}
	return w.History.Do(w, &BuildRoadAction{
		From: from, To: to, Road: rt, Cost: cost,
	})
}

// BuildCurvedRoad lays a cubic Bezier road with explicit control points.
func (w *World) BuildCurvedRoad(from, c1, c2, to roads.Vec2, rt grid.RoadType) error {
	cost := w.roadCost(from, c1, c2, to)
	if err := w.checkRoadPlacement(from, to, cost); err != nil {
		return err
	}
	return w.History.Do(w, &BuildRoadAction{
		From: from, To: to, C1: c1, C2: c2, Curved: true, Road: rt, Cost: cost,
	})
}

// PlaceGridRoad stamps a road onto one cell for the given price, without
// going through the segment store. Cell-precise drags build a composite of
// these so a whole drag undoes as one step.
func (w *World) PlaceGridRoad(x, y int, rt grid.RoadType, cost float64) error {
	c := w.Grid.Get(x, y)
	if c == nil || c.Type == grid.CellWater {
		return fmt.Errorf("%w: cell %d,%d not roadable", ErrPlacementConflict, x, y)
	}
	if !w.Budget.CanAfford(cost) {
		return fmt.Errorf("%w: road cell costs %.0f", ErrInsufficientFunds, cost)
	}
	return w.History.Do(w, &PlaceGridRoadAction{X: x, Y: y, Road: rt, Cost: cost})
}

// ZoneArea zones a rectangle of grass cells. Cells already carrying the
// zone, water, and road cells are skipped without charge.
func (w *World) ZoneArea(x, y, width, height int, zone grid.ZoneType) error {
	if width <= 0 || height <= 0 || w.Grid.Get(x, y) == nil || w.Grid.Get(x+width-1, y+height-1) == nil {
		return fmt.Errorf("%w: zone rect %d,%d %dx%d out of bounds", ErrPlacementConflict, x, y, width, height)
	}
	worst := float64(width*height) * w.Cfg.Economy.ZoneCost
	if !w.Budget.CanAfford(worst) {
		return fmt.Errorf("%w: zoning needs up to %.0f", ErrInsufficientFunds, worst)
	}
	return w.History.Do(w, &ZoneAction{
		X: x, Y: y, W: width, H: height, Zone: zone, CostPer: w.Cfg.Economy.ZoneCost,
	})
}

// PlaceService places a service building on a buildable cell.
func (w *World) PlaceService(x, y int, kind ServiceKind) error {
	if err := w.checkBuildableCell(x, y, w.Cfg.Economy.ServiceCost); err != nil {
		return err
	}
	return w.History.Do(w, &PlaceServiceAction{
		X: x, Y: y, Kind: kind, Cost: w.Cfg.Economy.ServiceCost,
	})
}

// PlaceUtility places a power plant or water tower on a buildable cell.
func (w *World) PlaceUtility(x, y int, kind UtilityKind) error {
	if err := w.checkBuildableCell(x, y, w.Cfg.Economy.UtilityCost); err != nil {
		return err
	}
	return w.History.Do(w, &PlaceUtilityAction{
		X: x, Y: y, Kind: kind, Cost: w.Cfg.Economy.UtilityCost,
	})
}

// SetTaxRate changes the daily tax rate, clamped to [0,1].
func (w *World) SetTaxRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("sim: tax rate %.2f outside [0,1]", rate)
	}
	return w.History.Do(w, &SetTaxRateAction{New: rate})
}

// Bulldoze removes whatever occupies the cell: a service, a utility, a
// grown building, or the road segment covering it. Services and utilities
// refund a fraction of their cost; grown buildings refund nothing.
func (w *World) Bulldoze(x, y int) error {
	frac := w.Cfg.Economy.BulldozeRefund
	if id, ok := w.serviceAt(x, y); ok {
		return w.History.Do(w, &RemoveServiceAction{
			ID: id, Refund: w.Cfg.Economy.ServiceCost * frac,
		})
	}
	if id, ok := w.utilityAt(x, y); ok {
		return w.History.Do(w, &RemoveUtilityAction{
			ID: id, Refund: w.Cfg.Economy.UtilityCost * frac,
		})
	}
	c := w.Grid.Get(x, y)
	if c == nil {
		return fmt.Errorf("%w: cell %d,%d out of bounds", ErrPlacementConflict, x, y)
	}
	if c.Building != 0 {
		return w.History.Do(w, &DemolishBuildingAction{ID: uint32(c.Building)})
	}
	if c.Type == grid.CellRoad {
		if seg := w.segmentAt(x, y); seg != nil {
			refund := float64(len(seg.RasterizedCells)) * w.Cfg.Economy.RoadCost * frac
			return w.History.Do(w, &RemoveRoadAction{SegID: seg.ID, Refund: refund})
		}
	}
	return fmt.Errorf("%w: nothing to bulldoze at %d,%d", ErrPlacementConflict, x, y)
}

// Undo reverts the most recent accepted command.
func (w *World) Undo() error { return w.History.Undo(w) }

// Redo reapplies the most recently undone command.
func (w *World) Redo() error { return w.History.Redo(w) }

// roadCost estimates the charge for a segment before it exists by sampling
// the curve length and pricing per covered cell.
func (w *World) roadCost(p0, p1, p2, p3 roads.Vec2) float64 {
	probe := roads.Segment{P0: p0, P1: p1, P2: p2, P3: p3}
	cells := math.Ceil(float64(probe.ComputeArcLength())/w.Cfg.World.CellSize) + 1
	return cells * w.Cfg.Economy.RoadCost
}

func (w *World) checkRoadPlacement(from, to roads.Vec2, cost float64) error {
	for _, p := range []roads.Vec2{from, to} {
		x, y := w.Grid.WorldToGrid(p.X, p.Y)
		c := w.Grid.Get(x, y)
		if c == nil {
			return fmt.Errorf("%w: road endpoint %.0f,%.0f out of bounds", ErrPlacementConflict, p.X, p.Y)
		}
		if c.Type == grid.CellWater {
			return fmt.Errorf("%w: road endpoint on water at %d,%d", ErrPlacementConflict, x, y)
		}
	}
	if !w.Budget.CanAfford(cost) {
		return fmt.Errorf("%w: road costs %.0f", ErrInsufficientFunds, cost)
	}
	return nil
}

func (w *World) checkBuildableCell(x, y int, cost float64) error {
	c := w.Grid.Get(x, y)
	if c == nil || c.Type != grid.CellGrass || c.Building != 0 {
		return fmt.Errorf("%w: cell %d,%d not buildable", ErrPlacementConflict, x, y)
	}
	if _, ok := w.serviceAt(x, y); ok {
		return fmt.Errorf("%w: cell %d,%d already holds a service", ErrPlacementConflict, x, y)
	}
	if _, ok := w.utilityAt(x, y); ok {
		return fmt.Errorf("%w: cell %d,%d already holds a utility", ErrPlacementConflict, x, y)
	}
	if !w.Budget.CanAfford(cost) {
		return fmt.Errorf("%w: placement costs %.0f", ErrInsufficientFunds, cost)
	}
	return nil
}

func (w *World) serviceAt(x, y int) (uint32, bool) {
	for i := range w.Buildings.Services {
		s := &w.Buildings.Services[i]
		if s.Alive && s.X == x && s.Y == y {
			return s.ID, true
		}
	}
	return 0, false
}

func (w *World) utilityAt(x, y int) (uint32, bool) {
	for i := range w.Buildings.Utilities {
		u := &w.Buildings.Utilities[i]
		if u.Alive && u.X == x && u.Y == y {
			return u.ID, true
		}
	}
	return 0, false
}

func (w *World) segmentAt(x, y int) *roads.Segment {
	for i := range w.Segments.Segments {
		seg := &w.Segments.Segments[i]
		if !seg.Alive {
			continue
		}
		for _, c := range seg.RasterizedCells {
			if c[0] == x && c[1] == y {
				return seg
			}
		}
	}
	return nil
}
