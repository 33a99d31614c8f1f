package dem

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func encodeBE(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.BigEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return raw
}

func encodeLE(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return raw
}

func TestResolveResolutionClasses(t *testing.T) {
	cases := []struct {
		name    string
		byteLen int64
		class   Class
		width   int
	}{
		{"N48E011.hgt", 3601 * 3601 * 2, ClassSRTM1, 3601},
		{"N48E011.hgt", 1201 * 1201 * 2, ClassSRTM3, 1201},
		{"N00E000_0004x0002.hgt", 16, ClassCustom, 4},
	}
	for _, tc := range cases {
		res, err := ResolveResolution(tc.name, tc.byteLen)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if res.Class != tc.class || res.Width != tc.width {
			t.Fatalf("%s: got %v %dx%d", tc.name, res.Class, res.Width, res.Height)
		}
	}
}

func TestResolveResolutionRejectsMismatch(t *testing.T) {
	if _, err := ResolveResolution("tile_0004x0004.hgt", 16); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestResolveResolutionRejectsUnknown(t *testing.T) {
	if _, err := ResolveResolution("mystery.hgt", 1000); !errors.Is(err, ErrUnknownSize) {
		t.Fatalf("expected ErrUnknownSize, got %v", err)
	}
}

func TestPixelPitchPerClass(t *testing.T) {
	if p := (Resolution{Class: ClassSRTM1}).PixelPitch(); p != 30 {
		t.Fatalf("SRTM-1 pitch: got %v", p)
	}
	if p := (Resolution{Class: ClassSRTM3}).PixelPitch(); p != 90 {
		t.Fatalf("SRTM-3 pitch: got %v", p)
	}
	if p := (Resolution{Class: ClassCustom}).PixelPitch(); p != 30 {
		t.Fatalf("custom pitch fallback: got %v", p)
	}
}

func TestDecodeNormalizesVoidsAndRange(t *testing.T) {
	raw := encodeBE([]int16{120, -32768, 7000, -5})
	grid, err := Decode(raw, Resolution{Class: ClassSRTM1, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []int16{120, 0, MaxElevation, 0}
	for i, w := range want {
		if grid.Data[i] != w {
			t.Fatalf("sample %d: expected %d, got %d", i, w, grid.Data[i])
		}
	}
	if grid.NoDataCount != 1 {
		t.Fatalf("expected 1 void, got %d", grid.NoDataCount)
	}
	if grid.MinElev != 120 || grid.MaxElev != MaxElevation {
		t.Fatalf("range: got %d..%d", grid.MinElev, grid.MaxElev)
	}
}

func TestDecodeCustomLittleEndianNoVoids(t *testing.T) {
	raw := encodeLE([]int16{100, -32768, 300, 400})
	grid, err := Decode(raw, Resolution{Class: ClassCustom, Width: 2, Height: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Custom grids have no void marker; negatives clamp to zero instead.
	if grid.NoDataCount != 0 {
		t.Fatalf("expected no voids, got %d", grid.NoDataCount)
	}
	if grid.Data[1] != 0 {
		t.Fatalf("expected clamp to 0, got %d", grid.Data[1])
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	if _, err := Decode(make([]byte, 6), Resolution{Class: ClassCustom, Width: 2, Height: 2}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}
}

func TestReadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "N10E020_0002x0002.hgt")
	if err := os.WriteFile(path, encodeLE([]int16{10, 20, 30, 40}), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	grid, err := ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grid.Width() != 2 || grid.Height() != 2 {
		t.Fatalf("dimensions: got %dx%d", grid.Width(), grid.Height())
	}
	if grid.MinElev != 10 || grid.MaxElev != 40 {
		t.Fatalf("range: got %d..%d", grid.MinElev, grid.MaxElev)
	}
}

func TestSampleExactAtIntegerCoordinates(t *testing.T) {
	grid := &Grid{
		Res:  Resolution{Class: ClassCustom, Width: 3, Height: 3},
		Data: []int16{1, 2, 3, 4, 5, 6, 7, 8, 9},
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			got := grid.Sample(float64(x), float64(y))
			want := float64(grid.Data[y*3+x])
			if got != want {
				t.Fatalf("(%d,%d): expected %v, got %v", x, y, want, got)
			}
		}
	}
}

func TestSampleInterpolatesMidpoints(t *testing.T) {
	grid := &Grid{
		Res:  Resolution{Class: ClassCustom, Width: 2, Height: 2},
		Data: []int16{0, 100, 200, 300},
	}
	if got := grid.Sample(0.5, 0); got != 50 {
		t.Fatalf("horizontal midpoint: got %v", got)
	}
	if got := grid.Sample(0, 0.5); got != 100 {
		t.Fatalf("vertical midpoint: got %v", got)
	}
	if got := grid.Sample(0.5, 0.5); math.Abs(got-150) > 1e-9 {
		t.Fatalf("center: got %v", got)
	}
}

func TestSampleClampsAtEdges(t *testing.T) {
	grid := &Grid{
		Res:  Resolution{Class: ClassCustom, Width: 2, Height: 2},
		Data: []int16{0, 100, 200, 300},
	}
	if got := grid.Sample(1.5, 1.5); got != 300 {
		t.Fatalf("beyond corner: expected edge clamp to 300, got %v", got)
	}
	if got := grid.Sample(-0.5, 0); got != 0 {
		t.Fatalf("before origin: expected 0, got %v", got)
	}
	if got := grid.Sample(0, -0.5); got != 0 {
		t.Fatalf("above origin: expected 0, got %v", got)
	}
	// Well past the right edge on the last row; an unclamped x1 would index
	// past the end of the buffer here.
	if got := grid.Sample(2.5, 1); got != 300 {
		t.Fatalf("past right edge: expected 300, got %v", got)
	}
	if got := grid.Sample(-0.5, 1.5); got != 200 {
		t.Fatalf("mixed under/over: expected 200, got %v", got)
	}
}

func TestGeoBounds(t *testing.T) {
	cases := []struct {
		name   string
		ok     bool
		bounds Bounds
	}{
		{"N49E004.hgt", true, Bounds{South: 49, North: 50, West: 4, East: 5}},
		{"S33W070.hgt", true, Bounds{South: -34, North: -33, West: -71, East: -70}},
		{"tile_0004x0004.hgt", false, Bounds{}},
	}
	for _, tc := range cases {
		b, ok := GeoBounds(tc.name)
		if ok != tc.ok {
			t.Fatalf("%s: ok=%v", tc.name, ok)
		}
		if ok && b != tc.bounds {
			t.Fatalf("%s: got %+v", tc.name, b)
		}
	}
}
