package save

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SaveCell is the per-cell record stored in the "grid" slot. The live Cell
// type carries derived fields (coverage, building refs) that are rebuilt
// on load, so the wire record only keeps the authored state.
type SaveCell struct {
	Elevation float32
	Type      uint8
	Zone      uint8
	Road      uint8
	Power     uint8
	Water     uint8
}

// SaveCitizen is the wire form of one full-detail citizen.
type SaveCitizen struct {
	Age       uint8
	Happiness float32
	Education uint8
	State     uint8
	HomeX     uint16
	HomeY     uint16
	HasWork   bool
	WorkX     uint16
	WorkY     uint16
	Waypoints [][2]uint16
	Cursor    uint16
	VelX      float32
	VelY      float32
	PosX      float32
	PosY      float32
}

// EncodeCells packs the grid slot: u16 width, u16 height, then each cell
// row-major.
func EncodeCells(width, height int, cells []SaveCell) []byte {
	b := newWriter(4 + len(cells)*9)
	b.u16(uint16(width))
	b.u16(uint16(height))
	for i := range cells {
		c := &cells[i]
		b.f32(c.Elevation)
		b.u8(c.Type)
		b.u8(c.Zone)
		b.u8(c.Road)
		b.u8(c.Power)
		b.u8(c.Water)
	}
	return b.bytes()
}

// DecodeCells unpacks a grid slot written by EncodeCells.
func DecodeCells(data []byte) (width, height int, cells []SaveCell, err error) {
	r := reader{buf: data}
	w := r.u16()
	h := r.u16()
	n := int(w) * int(h)
	cells = make([]SaveCell, n)
	for i := 0; i < n; i++ {
		cells[i] = SaveCell{
			Elevation: r.f32(),
			Type:      r.u8(),
			Zone:      r.u8(),
			Road:      r.u8(),
			Power:     r.u8(),
			Water:     r.u8(),
		}
	}
	if r.err != nil {
		return 0, 0, nil, fmt.Errorf("save: grid slot: %w", r.err)
	}
	return int(w), int(h), cells, nil
}

// EncodeCitizens packs the citizens slot: u32 count then one record per
// full-detail citizen.
func EncodeCitizens(cs []SaveCitizen) []byte {
	b := newWriter(4 + len(cs)*36)
	b.u32(uint32(len(cs)))
	for i := range cs {
		c := &cs[i]
		b.u8(c.Age)
		b.f32(c.Happiness)
		b.u8(c.Education)
		b.u8(c.State)
		b.u16(c.HomeX)
		b.u16(c.HomeY)
		if c.HasWork {
			b.u8(1)
			b.u16(c.WorkX)
			b.u16(c.WorkY)
		} else {
			b.u8(0)
		}
		b.u16(uint16(len(c.Waypoints)))
		for _, wp := range c.Waypoints {
			b.u16(wp[0])
			b.u16(wp[1])
		}
		b.u16(c.Cursor)
		b.f32(c.VelX)
		b.f32(c.VelY)
		b.f32(c.PosX)
		b.f32(c.PosY)
	}
	return b.bytes()
}

// DecodeCitizens unpacks a citizens slot written by EncodeCitizens.
func DecodeCitizens(data []byte) ([]SaveCitizen, error) {
	r := reader{buf: data}
	n := r.u32()
	cs := make([]SaveCitizen, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		var c SaveCitizen
		c.Age = r.u8()
		c.Happiness = r.f32()
		c.Education = r.u8()
		c.State = r.u8()
		c.HomeX = r.u16()
		c.HomeY = r.u16()
		if r.u8() != 0 {
			c.HasWork = true
			c.WorkX = r.u16()
			c.WorkY = r.u16()
		}
		wn := r.u16()
		if wn > 0 {
			c.Waypoints = make([][2]uint16, wn)
			for j := range c.Waypoints {
				c.Waypoints[j][0] = r.u16()
				c.Waypoints[j][1] = r.u16()
			}
		}
		c.Cursor = r.u16()
		c.VelX = r.f32()
		c.VelY = r.f32()
		c.PosX = r.f32()
		c.PosY = r.f32()
		cs = append(cs, c)
	}
	if r.err != nil {
		return nil, fmt.Errorf("save: citizens slot: %w", r.err)
	}
	return cs, nil
}

// writer is a little-endian append buffer.
type writer struct {
	buf []byte
}

func newWriter(capHint int) *writer {
	return &writer{buf: make([]byte, 0, capHint)}
}

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// reader is the matching little-endian cursor. The first short read sets
// err and every later read returns zero, so callers check err once.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("short read at offset %d (want %d, have %d)", r.pos, n, len(r.buf)-r.pos)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

// BuildingRec is the wire form of one grown building.
type BuildingRec struct {
	ID        uint32
	X, Y      uint16
	Zone      uint8
	Capacity  uint16
	Occupants uint16
	Level     uint8
}

// EncodeBuildings packs the buildings slot: u32 count then fixed records.
func EncodeBuildings(recs []BuildingRec) []byte {
	b := newWriter(4 + len(recs)*14)
	b.u32(uint32(len(recs)))
	for i := range recs {
		r := &recs[i]
		b.u32(r.ID)
		b.u16(r.X)
		b.u16(r.Y)
		b.u8(r.Zone)
		b.u16(r.Capacity)
		b.u16(r.Occupants)
		b.u8(r.Level)
	}
	return b.bytes()
}

// DecodeBuildings unpacks a buildings slot.
func DecodeBuildings(data []byte) ([]BuildingRec, error) {
	r := reader{buf: data}
	n := r.u32()
	recs := make([]BuildingRec, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		recs = append(recs, BuildingRec{
			ID: r.u32(), X: r.u16(), Y: r.u16(),
			Zone: r.u8(), Capacity: r.u16(), Occupants: r.u16(), Level: r.u8(),
		})
	}
	if r.err != nil {
		return nil, fmt.Errorf("save: buildings slot: %w", r.err)
	}
	return recs, nil
}

// PointRec is the shared wire form for service buildings and utility
// sources: an id, a cell, a kind discriminant, and a wear scalar that
// services leave at zero.
type PointRec struct {
	ID   uint32
	X, Y uint16
	Kind uint8
	Wear float32
}

// EncodePoints packs a point-record slot: u32 count then fixed records.
func EncodePoints(recs []PointRec) []byte {
	b := newWriter(4 + len(recs)*13)
	b.u32(uint32(len(recs)))
	for i := range recs {
		r := &recs[i]
		b.u32(r.ID)
		b.u16(r.X)
		b.u16(r.Y)
		b.u8(r.Kind)
		b.f32(r.Wear)
	}
	return b.bytes()
}

// DecodePoints unpacks a point-record slot.
func DecodePoints(data []byte) ([]PointRec, error) {
	r := reader{buf: data}
	n := r.u32()
	recs := make([]PointRec, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		recs = append(recs, PointRec{
			ID: r.u32(), X: r.u16(), Y: r.u16(), Kind: r.u8(), Wear: r.f32(),
		})
	}
	if r.err != nil {
		return nil, fmt.Errorf("save: point slot: %w", r.err)
	}
	return recs, nil
}

// NodeRec is the wire form of one segment endpoint node.
type NodeRec struct {
	ID   uint32
	X, Y float32
}

// SegmentRec is the wire form of one Bezier road segment. Control points
// are world coordinates; arc length and rasterised cells are derived on
// load.
type SegmentRec struct {
	ID         uint32
	Start, End uint32
	P          [8]float32 // p0x,p0y,p1x,p1y,p2x,p2y,p3x,p3y
	Road       uint8
}

// EncodeSegments packs the road_segments slot: node list then segment list.
func EncodeSegments(nodes []NodeRec, segs []SegmentRec) []byte {
	b := newWriter(8 + len(nodes)*12 + len(segs)*45)
	b.u32(uint32(len(nodes)))
	for i := range nodes {
		n := &nodes[i]
		b.u32(n.ID)
		b.f32(n.X)
		b.f32(n.Y)
	}
	b.u32(uint32(len(segs)))
	for i := range segs {
		s := &segs[i]
		b.u32(s.ID)
		b.u32(s.Start)
		b.u32(s.End)
		for _, v := range s.P {
			b.f32(v)
		}
		b.u8(s.Road)
	}
	return b.bytes()
}

// DecodeSegments unpacks a road_segments slot.
func DecodeSegments(data []byte) ([]NodeRec, []SegmentRec, error) {
	r := reader{buf: data}
	nn := r.u32()
	nodes := make([]NodeRec, 0, nn)
	for i := uint32(0); i < nn && r.err == nil; i++ {
		nodes = append(nodes, NodeRec{ID: r.u32(), X: r.f32(), Y: r.f32()})
	}
	sn := r.u32()
	segs := make([]SegmentRec, 0, sn)
	for i := uint32(0); i < sn && r.err == nil; i++ {
		var s SegmentRec
		s.ID = r.u32()
		s.Start = r.u32()
		s.End = r.u32()
		for j := range s.P {
			s.P[j] = r.f32()
		}
		s.Road = r.u8()
		segs = append(segs, s)
	}
	if r.err != nil {
		return nil, nil, fmt.Errorf("save: road_segments slot: %w", r.err)
	}
	return nodes, segs, nil
}
