package sim

import (
	"encoding/binary"
	"math"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/telemetry"
)

// District geometry: a 4x4 grid of 64x64-cell districts over the map.
const (
	DistrictsPerAxis = 4
	DistrictCells    = grid.Width / DistrictsPerAxis
	DistrictCount    = DistrictsPerAxis * DistrictsPerAxis
)

// ageBrackets splits citizens into child, adult, middle-aged, senior.
var ageBracketBounds = [3]uint8{18, 40, 65}

// District aggregates the virtual citizens living in one map quadrant
// plus the rolling averages sampled from real citizens there.
type District struct {
	Virtual    int
	AgeCounts  [4]int
	Employed   int
	Happiness  telemetry.RunningStats
	education  float64
	eduSamples int
}

// VirtualPopulation holds the statistical population beyond the real
// entity cap. Citizens move between real and virtual representation
// without the city totals changing. Registered under
// "virtual_population".
type VirtualPopulation struct {
	Districts [DistrictCount]District
}

// NewVirtualPopulation creates an empty virtual population.
func NewVirtualPopulation() *VirtualPopulation {
	return &VirtualPopulation{}
}

// DistrictIndex maps a cell to its district.
func DistrictIndex(x, y int) int {
	dx := x / DistrictCells
	dy := y / DistrictCells
	if dx < 0 {
		dx = 0
	}
	if dx >= DistrictsPerAxis {
		dx = DistrictsPerAxis - 1
	}
	if dy < 0 {
		dy = 0
	}
	if dy >= DistrictsPerAxis {
		dy = DistrictsPerAxis - 1
	}
	return dy*DistrictsPerAxis + dx
}

func ageBracket(age uint8) int {
	for i, bound := range ageBracketBounds {
		if age < bound {
			return i
		}
	}
	return 3
}

// Total returns the number of virtual citizens across all districts.
func (vp *VirtualPopulation) Total() int {
	n := 0
	for i := range vp.Districts {
		n += vp.Districts[i].Virtual
	}
	return n
}

// Aggregate returns the virtual total and its mean happiness.
func (vp *VirtualPopulation) Aggregate() (int, float64) {
	total := 0
	var sum float64
	for i := range vp.Districts {
		d := &vp.Districts[i]
		total += d.Virtual
		sum += d.Happiness.Mean() * float64(d.Virtual)
	}
	if total == 0 {
		return 0, 0
	}
	return total, sum / float64(total)
}

// Absorb converts one real citizen into district statistics.
func (vp *VirtualPopulation) Absorb(homeX, homeY int, age uint8, happiness float32, employed bool, education uint8) {
	d := &vp.Districts[DistrictIndex(homeX, homeY)]
	d.Virtual++
	d.AgeCounts[ageBracket(age)]++
	if employed {
		d.Employed++
	}
	d.Happiness.Push(float64(happiness))
	d.education += float64(education)
	d.eduSamples++
}

// Release draws one citizen's worth of statistics back out of a district,
// returning plausible demographics for materialization. Returns false when
// the district is empty.
func (vp *VirtualPopulation) Release(district int, h uint64) (age uint8, happiness float32, employed bool, education uint8, ok bool) {
	if district < 0 || district >= DistrictCount {
		return 0, 0, false, 0, false
	}
	d := &vp.Districts[district]
	if d.Virtual <= 0 {
		return 0, 0, false, 0, false
	}

	// Sample an age bracket proportional to the stored distribution.
	pick := hashRange(h, d.Virtual)
	bracket := 3
	for i := range d.AgeCounts {
		if pick < d.AgeCounts[i] {
			bracket = i
			break
		}
		pick -= d.AgeCounts[i]
	}
	switch bracket {
	case 0:
		age = uint8(6 + hashRange(splitmix64(h), 12))
	case 1:
		age = uint8(18 + hashRange(splitmix64(h), 22))
	case 2:
		age = uint8(40 + hashRange(splitmix64(h), 25))
	default:
		age = uint8(65 + hashRange(splitmix64(h), 20))
	}

	employed = hashRange(splitmix64(h^0xE), d.Virtual) < d.Employed
	happiness = float32(d.Happiness.Mean())
	if d.eduSamples > 0 {
		education = uint8(d.education/float64(d.eduSamples) + 0.5)
	}

	d.Virtual--
	d.AgeCounts[bracket]--
	if employed && d.Employed > 0 {
		d.Employed--
	}
	return age, happiness, employed, education, true
}

// BusiestDistrict returns the district index with the most virtual
// citizens, or -1 when empty.
func (vp *VirtualPopulation) BusiestDistrict() int {
	best, bestN := -1, 0
	for i := range vp.Districts {
		if vp.Districts[i].Virtual > bestN {
			best, bestN = i, vp.Districts[i].Virtual
		}
	}
	return best
}

// Encode implements save.Saveable under the "virtual_population" key.
func (vp *VirtualPopulation) Encode() []byte {
	if vp.Total() == 0 {
		return nil
	}
	buf := make([]byte, 0, DistrictCount*44)
	for i := range vp.Districts {
		d := &vp.Districts[i]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d.Virtual))
		for _, c := range d.AgeCounts {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(c))
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d.Employed))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(d.Happiness.Mean()))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(d.eduSamples))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(d.education))
	}
	return buf
}

// Decode implements save.Saveable. Happiness variance does not survive a
// save; the mean is reseeded as a single sample.
func (vp *VirtualPopulation) Decode(data []byte) error {
	const per = 44
	if len(data) < DistrictCount*per {
		return errShortPayload("virtual_population", len(data))
	}
	off := 0
	u32 := func() int {
		v := binary.LittleEndian.Uint32(data[off:])
		off += 4
		return int(v)
	}
	f64 := func() float64 {
		v := math.Float64frombits(binary.LittleEndian.Uint64(data[off:]))
		off += 8
		return v
	}
	for i := range vp.Districts {
		d := &vp.Districts[i]
		*d = District{}
		d.Virtual = u32()
		for j := range d.AgeCounts {
			d.AgeCounts[j] = u32()
		}
		d.Employed = u32()
		mean := f64()
		if d.Virtual > 0 {
			d.Happiness.Push(mean)
		}
		d.eduSamples = u32()
		d.education = f64()
	}
	return nil
}

// Reset implements save.Saveable.
func (vp *VirtualPopulation) Reset() {
	*vp = VirtualPopulation{}
}

// districtSystem refreshes district rolling averages from the real
// citizens living there, so later virtualization draws from fresh
// statistics.
func districtSystem(w *World) {
	query := w.citizenFilter.Query()
	for query.Next() {
		_, _, _, details, _, _, _ := query.Get()
		home := w.homeMap.Get(query.Entity())
		if home == nil {
			continue
		}
		d := &w.VirtualPop.Districts[DistrictIndex(home.GridX, home.GridY)]
		d.Happiness.Push(float64(details.Happiness))
	}
}
