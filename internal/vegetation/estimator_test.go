package vegetation

import (
	"errors"
	"testing"

	"demforge/internal/dem"
	"demforge/internal/safesize"
)

func alpine(t *testing.T) Biome {
	t.Helper()
	b, err := Lookup("Alpine")
	if err != nil {
		t.Fatalf("lookup alpine: %v", err)
	}
	return b
}

func TestLookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"alpine", "ALPINE", " Temperate ", "boreal", "Mediterranean"} {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("%q: unexpected error: %v", name, err)
		}
	}
	if _, err := Lookup("lunar"); err == nil {
		t.Fatal("expected error for unknown biome")
	}
}

func TestNorthFaceDenserThanSouthFace(t *testing.T) {
	// Alpine, 1000 m montane elevation, 10 degree slope, neutral drainage:
	// the north face must come out strictly denser than the south face.
	b := alpine(t)
	north := DensityFromFactors(1000, 10, 0, 0.5, b)
	south := DensityFromFactors(1000, 10, 180, 0.5, b)
	if north <= south {
		t.Fatalf("north %d should exceed south %d", north, south)
	}
}

func TestEastWestAspectNeutral(t *testing.T) {
	b := alpine(t)
	east := DensityFromFactors(1000, 10, 90, 0.5, b)
	west := DensityFromFactors(1000, 10, 270, 0.5, b)
	if east != west {
		t.Fatalf("east %d and west %d should match", east, west)
	}
}

func TestDensityZeroBeyondSlopeLimit(t *testing.T) {
	b := alpine(t)
	for _, elev := range []float64{200, 1000, 2000, 3000} {
		for _, aspect := range []float64{0, 90, 180, 270} {
			for _, drainage := range []float64{0, 0.5, 1} {
				if d := DensityFromFactors(elev, b.MaxSlopeDeg+1, aspect, drainage, b); d != 0 {
					t.Fatalf("elev=%v aspect=%v drainage=%v: expected 0, got %d", elev, aspect, drainage, d)
				}
			}
		}
	}
}

func TestDensityMonotoneAboveTreeLine(t *testing.T) {
	b := alpine(t)
	prev := DensityFromFactors(b.TreeLine, 10, 90, 0.5, b)
	for e := b.TreeLine + 50; e <= b.MaxElevation+200; e += 50 {
		d := DensityFromFactors(e, 10, 90, 0.5, b)
		if d > prev {
			t.Fatalf("elevation %v: density %d rose above %d", e, d, prev)
		}
		prev = d
	}
}

func TestDensityZeroOutsideElevationRange(t *testing.T) {
	b := alpine(t)
	if d := DensityFromFactors(b.MaxElevation+100, 5, 0, 0.5, b); d != 0 {
		t.Fatalf("above range: expected 0, got %d", d)
	}
}

func TestDrainageBonusRaisesValleyDensity(t *testing.T) {
	b := alpine(t)
	valley := DensityFromFactors(2400, 10, 90, 1.0, b)
	ridge := DensityFromFactors(2400, 10, 90, 0.0, b)
	if valley <= ridge {
		t.Fatalf("valley %d should exceed ridge %d", valley, ridge)
	}
}

func TestDensityAtNoDataIsZero(t *testing.T) {
	g := &dem.Grid{
		Res:  dem.Resolution{Class: dem.ClassCustom, Width: 2, Height: 2},
		Data: []int16{dem.NoData, 500, 500, 500},
	}
	if d := DensityAt(g, 0, 0, alpine(t)); d != 0 {
		t.Fatalf("NoData pixel: expected 0, got %d", d)
	}
}

func TestDensityMapDimensionsAndDeterminism(t *testing.T) {
	size := 12
	data := make([]int16, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			data[y*size+x] = int16(400 + 60*x + 25*y)
		}
	}
	g := &dem.Grid{
		Res:  dem.Resolution{Class: dem.ClassCustom, Width: size, Height: size},
		Data: data,
	}
	b := alpine(t)

	one, err := DensityMap(g, b, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	many, err := DensityMap(g, b, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(one) != size*size {
		t.Fatalf("expected %d entries, got %d", size*size, len(one))
	}
	for i := range one {
		if one[i] != many[i] {
			t.Fatalf("pixel %d: %d != %d across worker counts", i, one[i], many[i])
		}
	}
}

func TestDensityMapRejectsOverflowingDimensions(t *testing.T) {
	g := &dem.Grid{
		Res: dem.Resolution{Class: dem.ClassCustom, Width: 1 << 32, Height: 1 << 32},
	}
	if _, err := DensityMap(g, alpine(t), 1); !errors.Is(err, safesize.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestDensityClampBeforeScaling(t *testing.T) {
	// Strong north-face and drainage bonuses can push the raw product above
	// 1; the byte must saturate rather than wrap.
	b := alpine(t)
	d := DensityFromFactors(200, 0, 0, 1.0, b)
	if d != 255 {
		t.Fatalf("expected saturation at 255, got %d", d)
	}
}
