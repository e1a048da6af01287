package grid

import (
	"math"

	"github.com/citygrid/citygrid/logging"
)

// WorldGrid is the single mutable cell array. Only Input-phase edit
// application and grid-stamping subsystems write it, sequentially.
type WorldGrid struct {
	Cells    []Cell
	CellSize float32
}

// NewWorldGrid creates a blank grass grid with the given cell size in
// world units.
func NewWorldGrid(cellSize float32) *WorldGrid {
	return &WorldGrid{
		Cells:    make([]Cell, Width*Height),
		CellSize: cellSize,
	}
}

// Index maps grid coordinates to the flat cell index: y*Width + x.
func Index(x, y int) int {
	return y*Width + x
}

// InBounds reports whether (x, y) addresses a cell.
func InBounds(x, y int) bool {
	return x >= 0 && x < Width && y >= 0 && y < Height
}

// Get returns the cell at (x, y), or nil when out of bounds. Out-of-bounds
// access is a call-site defect: it is logged once and the operation becomes
// a no-op for the caller.
func (g *WorldGrid) Get(x, y int) *Cell {
	if !InBounds(x, y) {
		logging.LogOncef("grid-oob", "grid: out-of-bounds access (%d,%d)", x, y)
		return nil
	}
	return &g.Cells[Index(x, y)]
}

// GridToWorld returns the center of cell (x, y) in world units.
func (g *WorldGrid) GridToWorld(x, y int) (float32, float32) {
	return (float32(x) + 0.5) * g.CellSize, (float32(y) + 0.5) * g.CellSize
}

// WorldToGrid floors world coordinates to grid coordinates. Negative inputs
// yield negative indices; the caller must check bounds.
func (g *WorldGrid) WorldToGrid(wx, wy float32) (int, int) {
	return int(math.Floor(float64(wx / g.CellSize))), int(math.Floor(float64(wy / g.CellSize)))
}

// Neighbors4 fills a fixed array with the in-bounds 4-connected neighbours
// of (x, y) and returns how many entries are valid. It performs no
// allocation.
func Neighbors4(x, y int) ([4][2]int, int) {
	var out [4][2]int
	n := 0
	if InBounds(x-1, y) {
		out[n] = [2]int{x - 1, y}
		n++
	}
	if InBounds(x+1, y) {
		out[n] = [2]int{x + 1, y}
		n++
	}
	if InBounds(x, y-1) {
		out[n] = [2]int{x, y - 1}
		n++
	}
	if InBounds(x, y+1) {
		out[n] = [2]int{x, y + 1}
		n++
	}
	return out, n
}
