package sim

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/citygrid/citygrid/grid"
	"github.com/citygrid/citygrid/save"
)

// probeExt is the minimal extension resource from the save contract:
// a u32 and a string.
type probeExt struct {
	ValueA uint32
	ValueB string
}

func (p *probeExt) Encode() []byte {
	if p.ValueA == 0 && p.ValueB == "" {
		return nil
	}
	buf := binary.LittleEndian.AppendUint32(nil, p.ValueA)
	return append(buf, p.ValueB...)
}

func (p *probeExt) Decode(data []byte) error {
	if len(data) < 4 {
		return errShortPayload("test", len(data))
	}
	p.ValueA = binary.LittleEndian.Uint32(data)
	p.ValueB = string(data[4:])
	return nil
}

func (p *probeExt) Reset() { *p = probeExt{} }

func TestExtensionRegistryRoundtrip(t *testing.T) {
	reg := save.NewRegistry()
	probe := &probeExt{}
	if err := reg.Register("test", probe); err != nil {
		t.Fatalf("Register: %v", err)
	}

	probe.ValueA = 42
	probe.ValueB = "rt"
	kvs := reg.SaveAll()
	if len(kvs) != 1 || kvs[0].Key != "test" {
		t.Fatalf("SaveAll = %v, want exactly the test key", kvs)
	}

	probe.ValueA = 0
	probe.ValueB = ""
	reg.LoadAll(kvs)
	if probe.ValueA != 42 || probe.ValueB != "rt" {
		t.Errorf("restored {%d,%q}, want {42,\"rt\"}", probe.ValueA, probe.ValueB)
	}

	reg.ResetAll()
	if probe.ValueA != 0 || probe.ValueB != "" {
		t.Errorf("reset left {%d,%q}", probe.ValueA, probe.ValueB)
	}
}

func TestWorldSaveLoadRoundtrip(t *testing.T) {
	tc := NewTestCity(t).
		WithRoad(10, 10, 40, 10, grid.RoadAvenue).
		WithBuilding(12, 11, grid.ZoneResidentialLow).
		WithBuilding(18, 11, grid.ZoneCommercialLow).
		WithService(20, 20, ServicePolice).
		WithUtility(25, 25, UtilityPower).
		WithBudget(31337)
	w := tc.World
	w.Cfg.Immigration.HappinessThreshold = 1000

	var id uint32
	tc.WithCitizen(CitizenSpec{
		Age: 41, Education: 2, HomeX: 12, HomeY: 11,
		WorkX: 18, WorkY: 11, HasWork: true,
	}, &id)
	tc.Tick(50)

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	savedTick := w.Clock.Tick
	savedTreasury := w.Budget.Treasury
	savedRoadCells := w.roadCellCount()
	savedSegments := w.Segments.SegmentCount()

	// Load into a fresh world.
	tc2 := NewTestCity(t)
	w2 := tc2.World
	if err := w2.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if w2.Clock.Tick != savedTick {
		t.Errorf("tick = %d, want %d", w2.Clock.Tick, savedTick)
	}
	if w2.Budget.Treasury != savedTreasury {
		t.Errorf("treasury = %.2f, want %.2f", w2.Budget.Treasury, savedTreasury)
	}
	if got := w2.roadCellCount(); got != savedRoadCells {
		t.Errorf("road cells = %d, want %d", got, savedRoadCells)
	}
	if got := w2.Segments.SegmentCount(); got != savedSegments {
		t.Errorf("segments = %d, want %d", got, savedSegments)
	}
	if got := w2.CitizenCount(); got != 1 {
		t.Fatalf("citizens = %d, want 1", got)
	}
	if len(w2.Buildings.Services) != 1 || w2.Buildings.Services[0].Kind != ServicePolice {
		t.Errorf("service buildings not restored")
	}
	if len(w2.Buildings.Utilities) != 1 || w2.Buildings.Utilities[0].Kind != UtilityPower {
		t.Errorf("utility sources not restored")
	}

	// The restored citizen keeps its demographics and home/work cells.
	query := w2.citizenFilter.Query()
	found := false
	for query.Next() {
		_, _, _, details, _, _, _ := query.Get()
		e := query.Entity()
		if details.Age != 41 || details.Education != 2 {
			t.Errorf("demographics lost: age %d edu %d", details.Age, details.Education)
		}
		home := w2.homeMap.Get(e)
		if home.GridX != 12 || home.GridY != 11 {
			t.Errorf("home = (%d,%d), want (12,11)", home.GridX, home.GridY)
		}
		if home.Building == 0 {
			t.Error("home building reference not relinked")
		}
		found = true
	}
	if !found {
		t.Fatal("no citizen in restored world")
	}

	// Loading must clear undo history: inverses reference pre-load state.
	if w2.History.UndoDepth() != 0 || w2.History.RedoDepth() != 0 {
		t.Error("history survived a load")
	}
}

func TestLoadIgnoresUnknownExtension(t *testing.T) {
	tc := NewTestCity(t).WithBudget(12345)
	w := tc.World

	env := w.SaveEnvelope()
	env.Extensions = append(env.Extensions, save.KV{
		Key: "from_the_future", Data: []byte{1, 2, 3, 4},
	})
	var buf bytes.Buffer
	if _, err := env.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	tc2 := NewTestCity(t)
	if err := tc2.World.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load with unknown extension: %v", err)
	}
	if tc2.World.Budget.Treasury != 12345 {
		t.Errorf("treasury = %.0f, want 12345", tc2.World.Budget.Treasury)
	}
}

func TestSaveSkipsDefaultExtensions(t *testing.T) {
	tc := NewTestCity(t)
	env := tc.World.SaveEnvelope()
	for _, kv := range env.Extensions {
		if kv.Key == "weather" {
			t.Errorf("default weather was encoded anyway")
		}
	}

	tc.World.Weather.Raining = true
	tc.World.Weather.RainIntensity = 0.5
	env = tc.World.SaveEnvelope()
	found := false
	for _, kv := range env.Extensions {
		if kv.Key == "weather" {
			found = true
		}
	}
	if !found {
		t.Error("non-default weather missing from extensions")
	}
}

func TestCompressedCitizensSurviveSave(t *testing.T) {
	tc := NewTestCity(t).WithBuilding(120, 120, grid.ZoneResidentialLow)
	w := tc.World

	var id uint32
	tc.WithCitizen(CitizenSpec{Age: 55, HomeX: 120, HomeY: 120, Happiness: 72}, &id)
	e, _ := w.CitizenByID(id)
	w.compressCitizen(e)
	if w.CompressedCount() != 1 {
		t.Fatal("compression failed")
	}

	var buf bytes.Buffer
	if err := w.Save(&buf); err != nil {
		t.Fatalf("Save: %v", err)
	}
	tc2 := NewTestCity(t)
	if err := tc2.World.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tc2.World.CitizenCount(); got != 1 {
		t.Fatalf("restored citizens = %d, want 1", got)
	}
	query := tc2.World.citizenFilter.Query()
	for query.Next() {
		_, _, _, details, _, _, _ := query.Get()
		if details.Age != 55 || details.Happiness != 72 {
			t.Errorf("compressed snapshot lost: age %d happiness %.0f",
				details.Age, details.Happiness)
		}
	}
}
