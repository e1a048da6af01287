package sim

import (
	"encoding/binary"
	"math"

	"github.com/citygrid/citygrid/logging"
)

// The minor subsystems keep their whole state in small registry-backed
// structs. None of them touch the fixed save slots; they exist to exercise
// the extension mechanism the same way future gameplay systems will.

// WasteState tracks landfill load and composting diversion. Registered
// under "waste".
type WasteState struct {
	LandfillTons  float64
	CompostedTons float64
}

func (s *WasteState) Encode() []byte {
	if s.LandfillTons == 0 && s.CompostedTons == 0 {
		return nil
	}
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(s.LandfillTons))
	binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(s.CompostedTons))
	return buf
}

func (s *WasteState) Decode(data []byte) error {
	if len(data) < 16 {
		return errShortPayload("waste", len(data))
	}
	s.LandfillTons = math.Float64frombits(binary.LittleEndian.Uint64(data[0:]))
	s.CompostedTons = math.Float64frombits(binary.LittleEndian.Uint64(data[8:]))
	return nil
}

func (s *WasteState) Reset() { *s = WasteState{} }

// wasteSystem accrues garbage with population and diverts a config-tuned
// share to compost.
func wasteSystem(w *World) {
	pop := float64(w.CitizenCount() + w.VirtualPop.Total())
	produced := pop * 0.001
	composted := produced * w.Cfg.Environment.CompostingYield
	w.Waste.LandfillTons += produced - composted
	w.Waste.CompostedTons += composted
}

// WaterSupplyState tracks the drought index in [0,1]. Registered under
// "water_supply".
type WaterSupplyState struct {
	DroughtIndex float64
}

func (s *WaterSupplyState) Encode() []byte {
	if s.DroughtIndex == 0 {
		return nil
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(s.DroughtIndex))
	return buf
}

func (s *WaterSupplyState) Decode(data []byte) error {
	if len(data) < 8 {
		return errShortPayload("water_supply", len(data))
	}
	s.DroughtIndex = math.Float64frombits(binary.LittleEndian.Uint64(data))
	return nil
}

func (s *WaterSupplyState) Reset() { *s = WaterSupplyState{} }

// waterSupplySystem dries the city out between rains and recovers during
// them.
func waterSupplySystem(w *World) {
	rate := w.Cfg.Environment.DroughtIndexRate
	if w.Weather.Raining {
		w.Water.DroughtIndex -= rate * 4 * w.Weather.RainIntensity
	} else {
		w.Water.DroughtIndex += rate
	}
	if w.Water.DroughtIndex < 0 {
		w.Water.DroughtIndex = 0
	}
	if w.Water.DroughtIndex > 1 {
		w.Water.DroughtIndex = 1
	}
}

// DisasterState records fires started and buildings lost. Registered under
// "disasters".
type DisasterState struct {
	FiresStarted  uint32
	BuildingsLost uint32
}

func (s *DisasterState) Encode() []byte {
	if s.FiresStarted == 0 && s.BuildingsLost == 0 {
		return nil
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], s.FiresStarted)
	binary.LittleEndian.PutUint32(buf[4:], s.BuildingsLost)
	return buf
}

func (s *DisasterState) Decode(data []byte) error {
	if len(data) < 8 {
		return errShortPayload("disasters", len(data))
	}
	s.FiresStarted = binary.LittleEndian.Uint32(data[0:])
	s.BuildingsLost = binary.LittleEndian.Uint32(data[4:])
	return nil
}

func (s *DisasterState) Reset() { *s = DisasterState{} }

// disasterSystem rolls for a fire once per day. Drought raises the odds;
// fire coverage saves the building.
func disasterSystem(w *World) {
	h := TickHash(w.Cfg.World.Seed, w.Clock.Tick, 0x66697265)
	chance := 0.002 + 0.02*w.Water.DroughtIndex
	if hashUnit(h) >= chance {
		return
	}

	// Pick a victim among live buildings, deterministic for the tick.
	live := make([]int, 0, len(w.Buildings.Buildings))
	for i := range w.Buildings.Buildings {
		if w.Buildings.Buildings[i].Alive {
			live = append(live, i)
		}
	}
	if len(live) == 0 {
		return
	}
	b := &w.Buildings.Buildings[live[hashRange(splitmix64(h), len(live))]]
	w.Disasters.FiresStarted++

	if w.Coverage.Has(b.X, b.Y, ServiceFire.CoverageBit()) {
		logging.Logf("disasters: fire at (%d,%d) contained by fire coverage", b.X, b.Y)
		return
	}
	w.Disasters.BuildingsLost++
	w.Buildings.RemoveBuilding(w.Grid, b.ID)
	w.evictBuilding(b.ID)
	logging.Logf("disasters: building %d at (%d,%d) burned down", b.ID, b.X, b.Y)
}
