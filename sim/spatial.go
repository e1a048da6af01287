package sim

import (
	"github.com/mlange-42/ark/ecs"
)

// SpatialGrid provides O(1) citizen neighbor lookups using a cell-based
// bucket grid over world space. Rebuilt every tick after movement; used by
// the observer classification and disaster radius queries.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	width    float32
	height   float32
	cells    [][]ecs.Entity
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := int(width/cellSize) + 1
	rows := int(height/cellSize) + 1

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert adds an entity to the grid at the given world position.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	idx := g.cellIndex(x, y)
	if idx >= 0 && idx < len(g.cells) {
		g.cells[idx] = append(g.cells[idx], e)
	}
}

// QueryRadiusInto appends entities within radius of (x,y) to dst and
// returns the updated slice. Reuse dst across calls to avoid allocations.
// The world is bounded, not toroidal, so out-of-range buckets are skipped.
func (g *SpatialGrid) QueryRadiusInto(dst []ecs.Entity, x, y, radius float32, pos func(ecs.Entity) (float32, float32, bool)) []ecs.Entity {
	cellRadius := int(radius/g.cellSize) + 1
	centerCol := int(x / g.cellSize)
	centerRow := int(y / g.cellSize)
	radiusSq := radius * radius

	for dc := -cellRadius; dc <= cellRadius; dc++ {
		col := centerCol + dc
		if col < 0 || col >= g.cols {
			continue
		}
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			row := centerRow + dr
			if row < 0 || row >= g.rows {
				continue
			}
			for _, e := range g.cells[row*g.cols+col] {
				px, py, ok := pos(e)
				if !ok {
					continue
				}
				dx, dy := px-x, py-y
				if dx*dx+dy*dy <= radiusSq {
					dst = append(dst, e)
				}
			}
		}
	}
	return dst
}

func (g *SpatialGrid) cellIndex(x, y float32) int {
	col := int(x / g.cellSize)
	row := int(y / g.cellSize)
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return -1
	}
	return row*g.cols + col
}

// spatialIndexSystem rebuilds the citizen bucket grid from current
// positions.
func spatialIndexSystem(w *World) {
	w.Spatial.Clear()
	query := w.citizenFilter.Query()
	for query.Next() {
		pos, _, _, _, _, _, _ := query.Get()
		w.Spatial.Insert(query.Entity(), pos.X, pos.Y)
	}
}
