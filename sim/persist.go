package sim

import (
	"fmt"
	"io"

	"github.com/mlange-42/ark/ecs"

	"github.com/citygrid/citygrid/components"
	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/logging"
	"github.com/citygrid/citygrid/roads"
	"github.com/citygrid/citygrid/save"
)

// SaveEnvelope captures the whole world into a save envelope: the fixed
// slots positionally, then every registered extension.
func (w *World) SaveEnvelope() *save.Envelope {
	e := save.NewEnvelope()
	e.Slots["grid"] = w.encodeGrid()
	e.Slots["roads"] = w.encodeRoadCells()
	e.Slots["clock"] = w.Clock.Encode()
	e.Slots["budget"] = w.Budget.Encode()
	e.Slots["demand"] = w.Demand.Encode()
	e.Slots["buildings"] = w.Buildings.EncodeBuildings()
	e.Slots["citizens"] = w.encodeCitizens()
	e.Slots["utility_sources"] = w.Buildings.EncodeUtilities()
	e.Slots["service_buildings"] = w.Buildings.EncodeServices()
	e.Slots["road_segments"] = w.encodeSegments()
	e.Extensions = w.Registry.SaveAll()
	return e
}

// LoadEnvelope replaces the current world state with the envelope's.
// Slot order matters: the grid first, then roads and segments so raster
// state lands on restored cells, then stores and citizens that reference
// both. Undo history does not survive a load.
func (w *World) LoadEnvelope(e *save.Envelope) error {
	if err := w.decodeGrid(e.Slots["grid"]); err != nil {
		return err
	}
	w.decodeSegments(e.Slots["road_segments"])
	w.decodeRoadCells(e.Slots["roads"])

	if data := e.Slots["clock"]; len(data) > 0 && !w.Clock.Decode(data) {
		logging.Logf("load: clock slot malformed, keeping current clock")
	}
	if data := e.Slots["budget"]; len(data) > 0 && !w.Budget.Decode(data) {
		logging.Logf("load: budget slot malformed, keeping current budget")
	}
	if data := e.Slots["demand"]; len(data) > 0 && !w.Demand.Decode(data) {
		logging.Logf("load: demand slot malformed, keeping current demand")
	}

	w.Buildings.DecodeBuildings(w.Grid, e.Slots["buildings"])
	w.Buildings.DecodeServices(e.Slots["service_buildings"])
	w.Buildings.DecodeUtilities(e.Slots["utility_sources"])

	if err := w.decodeCitizens(e.Slots["citizens"]); err != nil {
		return err
	}

	w.Registry.LoadAll(e.Extensions)
	w.History.Clear()
	w.Coverage.Dirty = true
	w.CellGraph.Dirty = true
	return nil
}

// Save writes the world to the stream as a version-1 envelope.
func (w *World) Save(out io.Writer) error {
	_, err := w.SaveEnvelope().WriteTo(out)
	return err
}

// Load reads an envelope from the stream and installs it.
func (w *World) Load(in io.Reader) error {
	e, err := save.ReadEnvelope(in)
	if err != nil {
		return err
	}
	return w.LoadEnvelope(e)
}

// SaveSlot writes the world to a new save slot under dir and returns the
// slot id.
func (w *World) SaveSlot(dir string) (string, error) {
	id := save.NewSlotID()
	if err := save.WriteSlot(dir, id, w.SaveEnvelope()); err != nil {
		return "", err
	}
	return id, nil
}

// LoadSlot restores the world from a save slot under dir.
func (w *World) LoadSlot(dir, id string) error {
	e, err := save.ReadSlot(dir, id)
	if err != nil {
		return err
	}
	return w.LoadEnvelope(e)
}

func (w *World) encodeGrid() []byte {
	cells := make([]save.SaveCell, len(w.Grid.Cells))
	for i := range w.Grid.Cells {
		c := &w.Grid.Cells[i]
		cells[i] = save.SaveCell{
			Elevation: c.Elevation,
			Type:      uint8(c.Type),
			Zone:      uint8(c.Zone),
			Road:      uint8(c.Road),
			Power:     boolByte(c.HasPower),
			Water:     boolByte(c.HasWater),
		}
	}
	return save.EncodeCells(grid.Width, grid.Height, cells)
}

func (w *World) decodeGrid(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	width, height, cells, err := save.DecodeCells(data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if width != grid.Width || height != grid.Height {
		return fmt.Errorf("load: grid %dx%d does not match world %dx%d",
			width, height, grid.Width, grid.Height)
	}
	for i := range cells {
		sc := &cells[i]
		w.Grid.Cells[i] = grid.Cell{
			Elevation: sc.Elevation,
			Type:      grid.CellType(sc.Type),
			Zone:      grid.ZoneType(sc.Zone),
			Road:      grid.RoadType(sc.Road),
			HasPower:  sc.Power != 0,
			HasWater:  sc.Water != 0,
		}
	}
	return nil
}

// encodeRoadCells persists road cells that no segment covers, such as
// roads stamped directly onto the cell graph. Segment-covered cells are
// re-rasterised from control points on load.
func (w *World) encodeRoadCells() []byte {
	var recs []save.PointRec
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			c := w.Grid.Get(x, y)
			if c.Type != grid.CellRoad || w.Segments.CoversCell(x, y) {
				continue
			}
			recs = append(recs, save.PointRec{X: uint16(x), Y: uint16(y), Kind: uint8(c.Road)})
		}
	}
	if len(recs) == 0 {
		return nil
	}
	return save.EncodePoints(recs)
}

func (w *World) decodeRoadCells(data []byte) {
	if len(data) == 0 {
		return
	}
	recs, err := save.DecodePoints(data)
	if err != nil {
		logging.Logf("load: roads slot: %v", err)
		return
	}
	for _, r := range recs {
		w.CellGraph.AddRoad(w.Grid, int(r.X), int(r.Y), grid.RoadType(r.Kind))
	}
}

func (w *World) encodeSegments() []byte {
	var nodes []save.NodeRec
	for i := range w.Segments.Nodes {
		n := &w.Segments.Nodes[i]
		if !n.Alive {
			continue
		}
		nodes = append(nodes, save.NodeRec{ID: uint32(n.ID), X: n.Pos.X, Y: n.Pos.Y})
	}
	var segs []save.SegmentRec
	for i := range w.Segments.Segments {
		s := &w.Segments.Segments[i]
		if !s.Alive {
			continue
		}
		segs = append(segs, save.SegmentRec{
			ID: uint32(s.ID), Start: uint32(s.StartNode), End: uint32(s.EndNode),
			P: [8]float32{
				s.P0.X, s.P0.Y, s.P1.X, s.P1.Y,
				s.P2.X, s.P2.Y, s.P3.X, s.P3.Y,
			},
			Road: uint8(s.RoadType),
		})
	}
	if len(nodes) == 0 && len(segs) == 0 {
		return nil
	}
	return save.EncodeSegments(nodes, segs)
}

// decodeSegments rebuilds the segment store's dense tables at their saved
// ids, leaving dead gaps for removed entries so persisted cross-references
// stay valid, then re-rasterises every live segment.
func (w *World) decodeSegments(data []byte) {
	w.Segments.Nodes = w.Segments.Nodes[:0]
	w.Segments.Segments = w.Segments.Segments[:0]
	if len(data) == 0 {
		return
	}
	nodes, segs, err := save.DecodeSegments(data)
	if err != nil {
		logging.Logf("load: %v", err)
		return
	}

	maxNode := uint32(0)
	for _, n := range nodes {
		if n.ID >= maxNode {
			maxNode = n.ID + 1
		}
	}
	w.Segments.Nodes = make([]roads.SegmentNode, maxNode)
	for i := range w.Segments.Nodes {
		w.Segments.Nodes[i].ID = roads.SegmentNodeID(i)
	}
	for _, n := range nodes {
		w.Segments.Nodes[n.ID] = roads.SegmentNode{
			ID: roads.SegmentNodeID(n.ID), Pos: roads.Vec2{X: n.X, Y: n.Y}, Alive: true,
		}
	}

	maxSeg := uint32(0)
	for _, s := range segs {
		if s.ID >= maxSeg {
			maxSeg = s.ID + 1
		}
	}
	w.Segments.Segments = make([]roads.Segment, maxSeg)
	for i := range w.Segments.Segments {
		w.Segments.Segments[i].ID = roads.SegmentID(i)
	}
	for _, s := range segs {
		seg := roads.Segment{
			ID:        roads.SegmentID(s.ID),
			StartNode: roads.SegmentNodeID(s.Start),
			EndNode:   roads.SegmentNodeID(s.End),
			P0:        roads.Vec2{X: s.P[0], Y: s.P[1]},
			P1:        roads.Vec2{X: s.P[2], Y: s.P[3]},
			P2:        roads.Vec2{X: s.P[4], Y: s.P[5]},
			P3:        roads.Vec2{X: s.P[6], Y: s.P[7]},
			RoadType:  grid.RoadType(s.Road),
			Alive:     true,
		}
		seg.ArcLength = seg.ComputeArcLength()
		w.Segments.Segments[s.ID] = seg
		if n := w.Segments.Node(seg.StartNode); n != nil {
			n.Connected = append(n.Connected, seg.ID)
		}
		if n := w.Segments.Node(seg.EndNode); n != nil && seg.EndNode != seg.StartNode {
			n.Connected = append(n.Connected, seg.ID)
		}
	}

	w.Segments.RasterizeAll(w.Grid, w.CellGraph)
}

// encodeCitizens writes every citizen entity. Compressed-tier citizens are
// written from their packed record; on load they come back as full
// entities and the next LOD pass re-tiers them.
func (w *World) encodeCitizens() []byte {
	var recs []save.SaveCitizen

	query := w.citizenFilter.Query()
	for query.Next() {
		pos, vel, state, details, _, path, _ := query.Get()
		e := query.Entity()
		home := w.homeMap.Get(e)
		work := w.workMap.Get(e)

		rec := save.SaveCitizen{
			Age:       details.Age,
			Happiness: details.Happiness,
			Education: details.Education,
			State:     uint8(state.State),
			Cursor:    uint16(path.Cursor),
			VelX:      vel.X, VelY: vel.Y,
			PosX: pos.X, PosY: pos.Y,
		}
		if home != nil {
			rec.HomeX, rec.HomeY = uint16(home.GridX), uint16(home.GridY)
		}
		if work != nil && work.Valid {
			rec.HasWork = true
			rec.WorkX, rec.WorkY = uint16(work.GridX), uint16(work.GridY)
		}
		if len(path.Waypoints) > 0 {
			rec.Waypoints = make([][2]uint16, len(path.Waypoints))
			for i, wp := range path.Waypoints {
				rec.Waypoints[i] = [2]uint16{uint16(wp[0]), uint16(wp[1])}
			}
		}
		recs = append(recs, rec)
	}

	comp := w.compFilter.Query()
	for comp.Next() {
		c := comp.Get()
		hx, hy := int(c.HomeX), int(c.HomeY)
		px, py := w.Grid.GridToWorld(hx, hy)
		recs = append(recs, save.SaveCitizen{
			Age:       c.Age,
			Happiness: c.Happiness,
			State:     uint8(c.State),
			HomeX:     uint16(hx), HomeY: uint16(hy),
			PosX: px, PosY: py,
		})
	}

	if len(recs) == 0 {
		return nil
	}
	return save.EncodeCitizens(recs)
}

func (w *World) decodeCitizens(data []byte) error {
	w.despawnAllCitizens()
	if len(data) == 0 {
		return nil
	}
	recs, err := save.DecodeCitizens(data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	for i := range recs {
		r := &recs[i]
		spec := CitizenSpec{
			Age:       r.Age,
			Education: r.Education,
			Happiness: r.Happiness,
			HomeX:     int(r.HomeX), HomeY: int(r.HomeY),
			WorkX: int(r.WorkX), WorkY: int(r.WorkY),
			HasWork: r.HasWork,
		}
		id := w.SpawnCitizen(spec)
		e, _ := w.CitizenByID(id)

		// The buildings slot already carries occupancy, so home and work
		// references are attached without re-incrementing the counters.
		if home := w.homeMap.Get(e); home != nil {
			if c := w.Grid.Get(int(r.HomeX), int(r.HomeY)); c != nil {
				home.Building = uint32(c.Building)
			}
		}
		if r.HasWork {
			if work := w.workMap.Get(e); work != nil {
				if c := w.Grid.Get(int(r.WorkX), int(r.WorkY)); c != nil {
					work.Building = uint32(c.Building)
				}
			}
		}

		if pos := w.posMap.Get(e); pos != nil {
			pos.X, pos.Y = r.PosX, r.PosY
		}
		if vel := w.velMap.Get(e); vel != nil {
			vel.X, vel.Y = r.VelX, r.VelY
		}
		if state := w.stateMap.Get(e); state != nil {
			state.State = components.CitizenState(r.State)
		}
		if len(r.Waypoints) > 0 {
			if path := w.pathMap.Get(e); path != nil {
				path.Waypoints = make([][2]int, len(r.Waypoints))
				for j, wp := range r.Waypoints {
					path.Waypoints[j] = [2]int{int(wp[0]), int(wp[1])}
				}
				path.Cursor = int(r.Cursor)
			}
		}
	}
	return nil
}

func (w *World) despawnAllCitizens() {
	var all []ecs.Entity
	query := w.citizenFilter.Query()
	for query.Next() {
		all = append(all, query.Entity())
	}
	comp := w.compFilter.Query()
	for comp.Next() {
		all = append(all, comp.Entity())
	}
	for _, e := range all {
		w.ecsWorld.RemoveEntity(e)
	}
	w.citizensByID = make(map[uint32]ecs.Entity)
	w.nextID = 0
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
