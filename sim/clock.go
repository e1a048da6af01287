// Package sim contains the simulation core: the world state, the phase
// scheduler, and every system that runs under it.
package sim

import "encoding/binary"

// Clock tracks simulation time. Tick is the only authoritative counter;
// day and hour are derived from it and TicksPerDay.
type Clock struct {
	Tick        uint64
	TicksPerDay int
}

// Day returns the zero-based game day.
func (c *Clock) Day() int {
	return int(c.Tick / uint64(c.TicksPerDay))
}

// Hour returns the fractional hour of day in [0,24).
func (c *Clock) Hour() float64 {
	t := c.Tick % uint64(c.TicksPerDay)
	return float64(t) / float64(c.TicksPerDay) * 24
}

// Season returns 0..3 (four seasons per 90-day year quarter).
func (c *Clock) Season() int {
	return (c.Day() / 90) % 4
}

// Encode packs the clock for the "clock" save slot.
func (c *Clock) Encode() []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint64(buf[0:], c.Tick)
	binary.LittleEndian.PutUint32(buf[8:], uint32(c.TicksPerDay))
	return buf
}

// Decode restores the clock from its save slot.
func (c *Clock) Decode(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	c.Tick = binary.LittleEndian.Uint64(data)
	if tpd := int(binary.LittleEndian.Uint32(data[8:])); tpd > 0 {
		c.TicksPerDay = tpd
	}
	return true
}

// splitmix64 is the finalizer used to derive per-tick random streams.
// Identical inputs always give identical outputs, which keeps replays and
// saves deterministic regardless of how many systems draw randomness.
func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// TickHash mixes the world seed, tick, and a per-system salt into one
// 64-bit value.
func TickHash(seed int64, tick uint64, salt uint64) uint64 {
	return splitmix64(uint64(seed) ^ splitmix64(tick^splitmix64(salt)))
}

// hashUnit maps a hash to [0,1).
func hashUnit(h uint64) float64 {
	return float64(h>>11) / float64(uint64(1)<<53)
}

// hashRange maps a hash to [0,n).
func hashRange(h uint64, n int) int {
	if n <= 0 {
		return 0
	}
	return int(h % uint64(n))
}
