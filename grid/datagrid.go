package grid

// Data grids share the cell grid's dimensions and are each cleared or
// updated as a unit by exactly one owning system.

// GridU8 is a W*H byte grid (pollution, crime, land value, health,
// education level).
type GridU8 struct {
	Cells []uint8
}

// NewGridU8 allocates a zeroed byte grid.
func NewGridU8() *GridU8 {
	return &GridU8{Cells: make([]uint8, Width*Height)}
}

// Get returns the value at (x, y), zero when out of bounds.
func (g *GridU8) Get(x, y int) uint8 {
	if !InBounds(x, y) {
		return 0
	}
	return g.Cells[Index(x, y)]
}

// Set writes the value at (x, y); out of bounds is a no-op.
func (g *GridU8) Set(x, y int, v uint8) {
	if !InBounds(x, y) {
		return
	}
	g.Cells[Index(x, y)] = v
}

// AddClamped adds d to the value at (x, y), saturating at 255.
func (g *GridU8) AddClamped(x, y int, d uint8) {
	if !InBounds(x, y) {
		return
	}
	i := Index(x, y)
	v := uint16(g.Cells[i]) + uint16(d)
	if v > 255 {
		v = 255
	}
	g.Cells[i] = uint8(v)
}

// Clear zeroes the whole grid.
func (g *GridU8) Clear() {
	for i := range g.Cells {
		g.Cells[i] = 0
	}
}

// GridU16 is a W*H uint16 grid (traffic density).
type GridU16 struct {
	Cells []uint16
}

// NewGridU16 allocates a zeroed uint16 grid.
func NewGridU16() *GridU16 {
	return &GridU16{Cells: make([]uint16, Width*Height)}
}

// Get returns the value at (x, y), zero when out of bounds.
func (g *GridU16) Get(x, y int) uint16 {
	if !InBounds(x, y) {
		return 0
	}
	return g.Cells[Index(x, y)]
}

// Add increments the value at (x, y), saturating at 65535.
func (g *GridU16) Add(x, y int, d uint16) {
	if !InBounds(x, y) {
		return
	}
	i := Index(x, y)
	v := uint32(g.Cells[i]) + uint32(d)
	if v > 65535 {
		v = 65535
	}
	g.Cells[i] = uint16(v)
}

// Clear zeroes the whole grid.
func (g *GridU16) Clear() {
	for i := range g.Cells {
		g.Cells[i] = 0
	}
}

// GridF32 is a W*H float grid (urban heat island, stormwater runoff).
type GridF32 struct {
	Cells []float32
}

// NewGridF32 allocates a zeroed float grid.
func NewGridF32() *GridF32 {
	return &GridF32{Cells: make([]float32, Width*Height)}
}

// Get returns the value at (x, y), zero when out of bounds.
func (g *GridF32) Get(x, y int) float32 {
	if !InBounds(x, y) {
		return 0
	}
	return g.Cells[Index(x, y)]
}

// Set writes the value at (x, y); out of bounds is a no-op.
func (g *GridF32) Set(x, y int, v float32) {
	if !InBounds(x, y) {
		return
	}
	g.Cells[Index(x, y)] = v
}

// Fill sets every cell to v.
func (g *GridF32) Fill(v float32) {
	for i := range g.Cells {
		g.Cells[i] = v
	}
}
