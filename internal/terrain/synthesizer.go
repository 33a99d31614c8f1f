package terrain

import (
	"fmt"
	"log"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"demforge/internal/dem"
	"demforge/internal/noise"
	"demforge/internal/safesize"
)

// Params drives one detail-enhancement pass. Shared read-only across workers.
type Params struct {
	ScaleFactor int     // upscaling multiplier, >= 1
	Intensity   float64 // noise amplitude in meters
	Seed        int32
	Field       noise.Field // nil selects the lattice field
	Workers     int         // row-level parallelism, <= 0 picks from GOMAXPROCS
	Quiet       bool
}

// Enhanced is the upscaled, detail-enhanced elevation buffer. It is owned by
// the worker that produced it until handed to the encoder.
type Enhanced struct {
	Width  int
	Height int
	Data   []int16
}

// Noise octave groups. Three frequency bands approximate how real relief
// decomposes: broad undulation, hill-scale texture, surface roughness.
const (
	largeFeatureScale  = 0.005
	mediumFeatureScale = 0.02
	fineFeatureScale   = 0.08

	largeFeatureWeight  = 0.5
	mediumFeatureWeight = 0.3
	fineFeatureWeight   = 0.2

	mediumSeedOffset = 100
	fineSeedOffset   = 200
)

// Enhance upscales a grid by ScaleFactor and layers procedurally synthesized
// relief on top. Output is deterministic for a fixed grid, params and seed,
// independent of Workers: every pixel reads only immutable inputs.
func Enhance(g *dem.Grid, p Params) (*Enhanced, error) {
	if p.ScaleFactor < 1 {
		return nil, fmt.Errorf("scale factor %d: must be at least 1", p.ScaleFactor)
	}

	newWidth, err := safesize.Mul(uint64(g.Width()), uint64(p.ScaleFactor))
	if err != nil {
		return nil, fmt.Errorf("enhance %s by %d: %w", g, p.ScaleFactor, err)
	}
	newHeight, err := safesize.Mul(uint64(g.Height()), uint64(p.ScaleFactor))
	if err != nil {
		return nil, fmt.Errorf("enhance %s by %d: %w", g, p.ScaleFactor, err)
	}
	pixels, err := safesize.Pixels(newWidth, newHeight)
	if err != nil {
		return nil, fmt.Errorf("enhance %s by %d: %w", g, p.ScaleFactor, err)
	}

	field := p.Field
	if field == nil {
		field, _ = noise.NewField("value")
	}

	out := &Enhanced{
		Width:  int(newWidth),
		Height: int(newHeight),
		Data:   make([]int16, pixels),
	}

	if !p.Quiet {
		log.Printf("generating %dx%d detailed heightmap (intensity %.1f)", out.Width, out.Height, p.Intensity)
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > out.Height {
		workers = out.Height
	}
	if workers < 1 {
		workers = 1
	}

	var eg errgroup.Group
	eg.SetLimit(workers)
	rowsPerTask := (out.Height + workers - 1) / workers
	for start := 0; start < out.Height; start += rowsPerTask {
		end := start + rowsPerTask
		if end > out.Height {
			end = out.Height
		}
		start, end := start, end
		eg.Go(func() error {
			enhanceRows(g, p, field, out, start, end)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func enhanceRows(g *dem.Grid, p Params, field noise.Field, out *Enhanced, startRow, endRow int) {
	scale := float64(p.ScaleFactor)
	// Source coordinates never exceed the last sample; bilinear lookup is
	// exact there, which keeps a scale-1 zero-intensity pass an identity.
	maxSrcX := float64(g.Width() - 1)
	maxSrcY := float64(g.Height() - 1)

	for y := startRow; y < endRow; y++ {
		fy := float64(y)
		for x := 0; x < out.Width; x++ {
			srcX := float64(x) / scale
			srcY := fy / scale
			if srcX > maxSrcX {
				srcX = maxSrcX
			}
			if srcY > maxSrcY {
				srcY = maxSrcY
			}

			base := g.Sample(srcX, srcY)

			large := field.Fractal(float64(x)*largeFeatureScale, fy*largeFeatureScale, 3, 0.5, p.Seed)
			medium := field.Fractal(float64(x)*mediumFeatureScale, fy*mediumFeatureScale, 4, 0.6, p.Seed+mediumSeedOffset)
			fine := field.Fractal(float64(x)*fineFeatureScale, fy*fineFeatureScale, 2, 0.4, p.Seed+fineSeedOffset)
			combined := large*largeFeatureWeight + medium*mediumFeatureWeight + fine*fineFeatureWeight

			// Steep terrain carries more visible erosion detail.
			slopeMultiplier := 0.3 + LocalSlope(g, srcX, srcY)*0.7

			detail := combined * p.Intensity * slopeMultiplier * heightFactor(base)

			// Stay in floating point until the final store; rounding earlier
			// reintroduces terracing.
			final := base + detail
			if final < 0 {
				final = 0
			} else if final > dem.MaxElevation {
				final = dem.MaxElevation
			}
			out.Data[y*out.Width+x] = int16(math.Floor(final + 0.5))
		}
	}
}

// heightFactor scales detail by altitude band: erosion reads differently on
// coastal plains, forested hills, bare mountain rock and glaciated peaks.
func heightFactor(elevation float64) float64 {
	switch {
	case elevation < 100:
		return 0.5
	case elevation < 500:
		return 0.7
	case elevation < 1500:
		return 1.0
	case elevation < 3000:
		return 0.8
	default:
		return 0.3
	}
}
