// Package terrain computes local derivatives of an elevation grid and the
// detail-enhanced upscale built on top of them.
package terrain

import (
	"math"

	"demforge/internal/dem"
)

// DrainageRadius is the neighborhood half-width the drainage estimate
// averages over. Three pixels spans a hillslope hollow at both SRTM pitches.
const DrainageRadius = 3

// Slope returns the terrain slope angle in degrees at a pixel, from Sobel 3x3
// gradients over the grid's physical pitch. Boundary pixels return 0.
func Slope(g *dem.Grid, x, y int) float64 {
	if x <= 0 || x >= g.Width()-1 || y <= 0 || y >= g.Height()-1 {
		return 0
	}
	gx, gy := sobel(g, x, y)
	return math.Atan(math.Hypot(gx, gy)) * 180 / math.Pi
}

// Aspect returns the compass direction of steepest descent in degrees:
// 0 = north, 90 = east, in [0, 360). Flat and boundary pixels report north;
// that is the documented edge policy, not an error.
func Aspect(g *dem.Grid, x, y int) float64 {
	if x <= 0 || x >= g.Width()-1 || y <= 0 || y >= g.Height()-1 {
		return 0
	}
	gx, gy := sobel(g, x, y)
	if gx == 0 && gy == 0 {
		return 0
	}
	// Row index grows southward, so +gy points the descent north.
	deg := math.Atan2(-gx, gy) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// sobel returns the east and south elevation gradients in meters per meter.
func sobel(g *dem.Grid, x, y int) (gx, gy float64) {
	z := func(dx, dy int) float64 { return float64(g.At(x+dx, y+dy)) }
	pitch := g.Res.PixelPitch()

	gx = (z(1, -1) + 2*z(1, 0) + z(1, 1) - z(-1, -1) - 2*z(-1, 0) - z(-1, 1)) / (8 * pitch)
	gy = (z(-1, 1) + 2*z(0, 1) + z(1, 1) - z(-1, -1) - 2*z(0, -1) - z(1, -1)) / (8 * pitch)
	return gx, gy
}

// drainageScale maps the mean relief difference onto [0,1]: a center sitting
// 100 m below its neighborhood saturates at 1, a ridge 100 m above at 0.
const drainageScale = 100

// Drainage estimates whether a pixel sits in a valley (toward 1) or on a
// ridge (toward 0). It averages the signed elevation difference between the
// neighborhood and the pixel over DrainageRadius; 0.5 is flat/neutral.
func Drainage(g *dem.Grid, x, y int) float64 {
	center := float64(g.At(x, y))
	sum := 0.0
	count := 0
	for dy := -DrainageRadius; dy <= DrainageRadius; dy++ {
		for dx := -DrainageRadius; dx <= DrainageRadius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			sum += float64(g.At(x+dx, y+dy)) - center
			count++
		}
	}
	mean := sum / float64(count)
	return clamp01(0.5 + mean/(2*drainageScale))
}

// LocalSlope is the normalized 0..1 steepness the detail synthesizer keys
// from: central differences over twice the pixel pitch, magnitude divided by
// 100, clamped. Distinct from Slope, which reports an angle.
func LocalSlope(g *dem.Grid, x, y float64) float64 {
	ix := int(x)
	iy := int(y)
	if ix <= 0 || ix >= g.Width()-1 || iy <= 0 || iy >= g.Height()-1 {
		return 0
	}

	dist := 2 * g.Res.PixelPitch()
	dx := float64(g.At(ix+1, iy)-g.At(ix-1, iy)) / dist
	dy := float64(g.At(ix, iy+1)-g.At(ix, iy-1)) / dist

	slope := math.Sqrt(dx*dx+dy*dy) / 100
	if slope > 1 {
		slope = 1
	}
	return slope
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
