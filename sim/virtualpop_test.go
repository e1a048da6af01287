package sim

import (
	"testing"
)

func TestDistrictIndexCoversMap(t *testing.T) {
	cases := []struct {
		x, y int
		want int
	}{
		{0, 0, 0},
		{63, 63, 0},
		{64, 0, 1},
		{255, 0, 3},
		{0, 64, 4},
		{255, 255, 15},
		{-5, 10, 0},
		{999, 999, 15},
	}
	for _, c := range cases {
		if got := DistrictIndex(c.x, c.y); got != c.want {
			t.Errorf("DistrictIndex(%d,%d) = %d, want %d", c.x, c.y, got, c.want)
		}
	}
}

func TestAbsorbReleaseConservesCounts(t *testing.T) {
	vp := NewVirtualPopulation()

	ages := []uint8{7, 25, 45, 70, 30, 16}
	for i, age := range ages {
		vp.Absorb(10, 10, age, 60, i%2 == 0, 2)
	}
	if got := vp.Total(); got != len(ages) {
		t.Fatalf("total = %d, want %d", got, len(ages))
	}

	d := &vp.Districts[DistrictIndex(10, 10)]
	bracketSum := 0
	for _, n := range d.AgeCounts {
		bracketSum += n
	}
	if bracketSum != d.Virtual {
		t.Errorf("age brackets sum to %d, virtual is %d", bracketSum, d.Virtual)
	}

	// Draining the district returns exactly as many citizens as went in.
	h := splitmix64(0xABCD)
	released := 0
	for {
		_, _, _, _, ok := vp.Release(DistrictIndex(10, 10), h)
		if !ok {
			break
		}
		released++
		h = splitmix64(h)
	}
	if released != len(ages) {
		t.Errorf("released %d, want %d", released, len(ages))
	}
	if vp.Total() != 0 {
		t.Errorf("total after drain = %d, want 0", vp.Total())
	}
	bracketSum = 0
	for _, n := range d.AgeCounts {
		bracketSum += n
	}
	if bracketSum != 0 {
		t.Errorf("age brackets not drained: %v", d.AgeCounts)
	}
}

func TestReleaseEmptyDistrict(t *testing.T) {
	vp := NewVirtualPopulation()
	if _, _, _, _, ok := vp.Release(3, 0x1234); ok {
		t.Error("release from empty district reported ok")
	}
	if _, _, _, _, ok := vp.Release(-1, 0x1234); ok {
		t.Error("release from invalid district reported ok")
	}
	if _, _, _, _, ok := vp.Release(DistrictCount, 0x1234); ok {
		t.Error("release past last district reported ok")
	}
}

func TestReleaseAgeMatchesBracket(t *testing.T) {
	vp := NewVirtualPopulation()
	vp.Absorb(0, 0, 70, 50, false, 0)

	age, _, _, _, ok := vp.Release(0, 0x55)
	if !ok {
		t.Fatal("release failed")
	}
	if age < 65 {
		t.Errorf("released age %d from a senior-only district", age)
	}
}

func TestBusiestDistrict(t *testing.T) {
	vp := NewVirtualPopulation()
	if got := vp.BusiestDistrict(); got != -1 {
		t.Fatalf("empty population busiest = %d, want -1", got)
	}
	vp.Absorb(10, 10, 30, 60, false, 0)
	vp.Absorb(100, 100, 30, 60, false, 0)
	vp.Absorb(100, 100, 40, 60, false, 0)
	if got, want := vp.BusiestDistrict(), DistrictIndex(100, 100); got != want {
		t.Errorf("busiest = %d, want %d", got, want)
	}
}

func TestVirtualPopulationSaveRoundtrip(t *testing.T) {
	vp := NewVirtualPopulation()
	vp.Absorb(10, 10, 25, 72, true, 3)
	vp.Absorb(10, 10, 8, 80, false, 0)
	vp.Absorb(200, 200, 66, 40, false, 1)

	data := vp.Encode()
	if data == nil {
		t.Fatal("non-empty population encoded to nil")
	}

	restored := NewVirtualPopulation()
	if err := restored.Decode(data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if restored.Total() != vp.Total() {
		t.Errorf("total = %d, want %d", restored.Total(), vp.Total())
	}
	for i := range vp.Districts {
		a, b := &vp.Districts[i], &restored.Districts[i]
		if a.Virtual != b.Virtual || a.AgeCounts != b.AgeCounts || a.Employed != b.Employed {
			t.Errorf("district %d mismatch: %+v vs %+v", i, *a, *b)
		}
	}

	restored.Reset()
	if restored.Total() != 0 {
		t.Errorf("total after reset = %d", restored.Total())
	}
}

func TestEmptyPopulationEncodesNil(t *testing.T) {
	vp := NewVirtualPopulation()
	if data := vp.Encode(); data != nil {
		t.Errorf("empty population encoded %d bytes", len(data))
	}
}
