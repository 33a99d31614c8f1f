package vegetation

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"demforge/internal/dem"
	"demforge/internal/safesize"
	"demforge/internal/terrain"
)

// Elevation factor endpoints shared between adjacent bands so the piecewise
// function stays continuous: dense lowland forest near 100%, tapering to zero
// above the grass line.
const (
	floorFactor = 1.0
	treeFactor  = 0.8
	bushFactor  = 0.4
	grassFactor = 0.15
)

// DensityAt estimates vegetation density at a pixel as a 0..255 byte. NoData
// samples score zero. Pure per pixel; safe to evaluate in parallel.
func DensityAt(g *dem.Grid, x, y int, b Biome) uint8 {
	sample := g.At(x, y)
	if sample == dem.NoData {
		return 0
	}
	return DensityFromFactors(
		float64(sample),
		terrain.Slope(g, x, y),
		terrain.Aspect(g, x, y),
		terrain.Drainage(g, x, y),
		b,
	)
}

// DensityFromFactors combines precomputed terrain factors into a density
// byte. Split out so the factor pipeline is testable without building grids.
func DensityFromFactors(elevation, slopeDeg, aspectDeg, drainage float64, b Biome) uint8 {
	density := elevationFactor(elevation, b) *
		slopeFactor(slopeDeg, b) *
		aspectFactor(aspectDeg, b) *
		(1 + drainage*b.DrainageBonus)
	if density < 0 {
		density = 0
	} else if density > 1 {
		density = 1
	}
	return uint8(density * 255)
}

func elevationFactor(e float64, b Biome) float64 {
	switch {
	case e < b.MinElevation || e > b.MaxElevation:
		return 0
	case e <= b.TreeLine:
		return lerpBand(e, b.MinElevation, b.TreeLine, floorFactor, treeFactor)
	case e <= b.BushLine:
		return lerpBand(e, b.TreeLine, b.BushLine, treeFactor, bushFactor)
	case e <= b.GrassLine:
		return lerpBand(e, b.BushLine, b.GrassLine, bushFactor, grassFactor)
	default:
		return lerpBand(e, b.GrassLine, b.MaxElevation, grassFactor, 0)
	}
}

func lerpBand(v, lo, hi, from, to float64) float64 {
	if hi <= lo {
		return to
	}
	t := (v - lo) / (hi - lo)
	return from + t*(to-from)
}

// slopeFactor is 1 on gentle ground, decays linearly to 0.2 approaching the
// biome's slope limit and cuts to 0 beyond it.
func slopeFactor(s float64, b Biome) float64 {
	const gentle = 30
	switch {
	case s > b.MaxSlopeDeg:
		return 0
	case s <= gentle:
		return 1
	case b.MaxSlopeDeg <= gentle:
		return 1
	default:
		return lerpBand(s, gentle, b.MaxSlopeDeg, 1, 0.2)
	}
}

// aspectFactor applies the documented moisture asymmetry: south-facing arcs
// (135..225 degrees) lose AspectModifier, north-facing arcs (315..45) gain
// it, east and west faces are neutral.
func aspectFactor(a float64, b Biome) float64 {
	switch {
	case a >= 135 && a <= 225:
		return 1 - b.AspectModifier
	case a >= 315 || a <= 45:
		return 1 + b.AspectModifier
	default:
		return 1
	}
}

// DensityMap estimates density for every pixel of a grid at its source
// resolution. The displacement output is upscaled; density deliberately is
// not, so material masks keep a stable mapping onto the source samples.
func DensityMap(g *dem.Grid, b Biome, workers int) ([]uint8, error) {
	pixels, err := safesize.Pixels(uint64(g.Width()), uint64(g.Height()))
	if err != nil {
		return nil, fmt.Errorf("density map for %s: %w", g, err)
	}
	out := make([]uint8, pixels)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > g.Height() {
		workers = g.Height()
	}
	if workers < 1 {
		workers = 1
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	rowsPerTask := (g.Height() + workers - 1) / workers
	for start := 0; start < g.Height(); start += rowsPerTask {
		end := start + rowsPerTask
		if end > g.Height() {
			end = g.Height()
		}
		start, end := start, end
		eg.Go(func() error {
			for y := start; y < end; y++ {
				for x := 0; x < g.Width(); x++ {
					out[y*g.Width()+x] = DensityAt(g, x, y, b)
				}
			}
			return nil
		})
	}
	_ = eg.Wait() // workers cannot fail; Wait only joins them
	return out, nil
}
