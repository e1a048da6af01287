package grid

// Service coverage bitflags, one bit per category, packed into a single
// byte per cell. Bit positions are stable across save versions.
const (
	CoverageHealth        uint8 = 1 << 0
	CoverageEducation     uint8 = 1 << 1
	CoveragePolice        uint8 = 1 << 2
	CoverageFire          uint8 = 1 << 3
	CoveragePark          uint8 = 1 << 4
	CoverageEntertainment uint8 = 1 << 5
	CoverageTelecom       uint8 = 1 << 6
	CoveragePostal        uint8 = 1 << 7
)

// CoverageCategories is the number of service coverage bits.
const CoverageCategories = 8

// CoverageGrid holds per-cell service coverage flags, precomputed by the
// coverage owner system whenever service placements change. One byte per
// cell is 8x less memory than eight separate bool grids.
type CoverageGrid struct {
	Flags []uint8
	Dirty bool
}

// NewCoverageGrid allocates an empty coverage grid marked dirty so the
// owner recomputes it on the first pass.
func NewCoverageGrid() *CoverageGrid {
	return &CoverageGrid{
		Flags: make([]uint8, Width*Height),
		Dirty: true,
	}
}

// Clear resets all flags.
func (c *CoverageGrid) Clear() {
	for i := range c.Flags {
		c.Flags[i] = 0
	}
}

// Get returns the flag byte at (x, y), zero when out of bounds.
func (c *CoverageGrid) Get(x, y int) uint8 {
	if !InBounds(x, y) {
		return 0
	}
	return c.Flags[Index(x, y)]
}

// Has reports whether the given coverage bit is set at (x, y).
func (c *CoverageGrid) Has(x, y int, bit uint8) bool {
	return c.Get(x, y)&bit != 0
}

// Stamp sets the given bit on every cell within radius of (cx, cy), using a
// radius-squared test for a circular footprint.
func (c *CoverageGrid) Stamp(cx, cy, radius int, bit uint8) {
	r2 := radius * radius
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if !InBounds(x, y) {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r2 {
				c.Flags[Index(x, y)] |= bit
			}
		}
	}
}

// Count returns how many of the coverage bits are set in flags.
func Count(flags uint8) int {
	n := 0
	for b := 0; b < CoverageCategories; b++ {
		if flags&(1<<b) != 0 {
			n++
		}
	}
	return n
}
