// Package dem loads SRTM HGT elevation tiles into immutable grids and provides
// the sampling primitives the enhancement pipeline reads them through.
package dem

import "fmt"

// MaxElevation is the ceiling every sample is clamped to, in meters.
const MaxElevation = 6000

// NoData is the sentinel valid samples never take after normalization.
// SRTM voids (-32768 big-endian) are rewritten to it on load.
const NoData int16 = 0

// Class identifies a recognized resolution class.
type Class int

const (
	ClassUnknown Class = iota
	ClassSRTM1         // 1 arc-second, 3601x3601
	ClassSRTM3         // 3 arc-seconds, 1201x1201
	ClassCustom        // dimensions parsed from a WIDTHxHEIGHT filename token
)

const (
	srtm1Dim = 3601
	srtm3Dim = 1201
)

func (c Class) String() string {
	switch c {
	case ClassSRTM1:
		return "SRTM-1"
	case ClassSRTM3:
		return "SRTM-3"
	case ClassCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Resolution tags a grid with its class and dimensions and carries the
// physical pixel pitch those imply.
type Resolution struct {
	Class  Class
	Width  int
	Height int
}

// PixelPitch returns the ground distance covered by one pixel in meters.
// Custom grids have no intrinsic pitch; the SRTM-1 30 m figure is assumed.
func (r Resolution) PixelPitch() float64 {
	switch r.Class {
	case ClassSRTM1:
		return 30
	case ClassSRTM3:
		return 90
	default:
		return 30
	}
}

// Grid is an immutable-after-load rectangle of elevation samples in meters.
type Grid struct {
	Res         Resolution
	Data        []int16
	MinElev     int16 // valid-sample minimum, 0 when the grid has no valid samples
	MaxElev     int16 // valid-sample maximum, 0 when the grid has no valid samples
	NoDataCount int
}

// Width returns the number of samples per row.
func (g *Grid) Width() int { return g.Res.Width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.Res.Height }

// At returns the sample at integer coordinates, clamped to the grid bounds.
func (g *Grid) At(x, y int) int16 {
	if x < 0 {
		x = 0
	} else if x >= g.Res.Width {
		x = g.Res.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.Res.Height {
		y = g.Res.Height - 1
	}
	return g.Data[y*g.Res.Width+x]
}

// Sample interpolates the four integer-indexed neighbors around a fractional
// coordinate. Neighbors beyond an edge clamp to the edge; there is no
// wraparound or extrapolation. At integer coordinates the result is exact.
func (g *Grid) Sample(x, y float64) float64 {
	// Clamp the coordinate itself, not just the derived indices, so the
	// blend weights stay in [0,1] and never extrapolate past an edge.
	if x < 0 {
		x = 0
	} else if x > float64(g.Res.Width-1) {
		x = float64(g.Res.Width - 1)
	}
	if y < 0 {
		y = 0
	} else if y > float64(g.Res.Height-1) {
		y = float64(g.Res.Height - 1)
	}

	x1 := int(x)
	y1 := int(y)
	x2 := x1 + 1
	y2 := y1 + 1

	if x2 >= g.Res.Width {
		x2 = g.Res.Width - 1
	}
	if y2 >= g.Res.Height {
		y2 = g.Res.Height - 1
	}

	fx := x - float64(x1)
	fy := y - float64(y1)

	p1 := float64(g.Data[y1*g.Res.Width+x1])
	p2 := float64(g.Data[y1*g.Res.Width+x2])
	p3 := float64(g.Data[y2*g.Res.Width+x1])
	p4 := float64(g.Data[y2*g.Res.Width+x2])

	i1 := p1*(1-fx) + p2*fx
	i2 := p3*(1-fx) + p4*fx
	return i1*(1-fy) + i2*fy
}

func (g *Grid) String() string {
	return fmt.Sprintf("%dx%d %s grid", g.Res.Width, g.Res.Height, g.Res.Class)
}
