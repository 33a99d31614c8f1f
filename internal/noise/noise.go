// Package noise provides the seeded scalar fields the detail synthesizer draws
// sub-pixel relief from. The default field is a hashed value-noise lattice;
// perlin and simplex fields are available as alternate sources.
package noise

import "math"

// Value evaluates the lattice hash at an integer point. The arithmetic wraps
// at 32 bits on purpose; the constants and the wrap together are the
// determinism contract, so the same seed reproduces the same field anywhere.
// Output is in (-1, 1].
func Value(x, y, seed int32) float64 {
	n := x + y*57 + seed*131
	n = (n << 13) ^ n
	return 1.0 - float64((n*(n*n*15731+789221)+1376312589)&0x7fffffff)/1073741824.0
}

// At evaluates the lattice at a fractional point by bilinearly interpolating
// the four surrounding lattice values. Interpolation here is load-bearing:
// truncating to the nearest lattice point quantizes the field and leaves
// visible terracing in the synthesized terrain.
func At(x, y float64, seed int32) float64 {
	x0 := int32(math.Floor(x))
	y0 := int32(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := Value(x0, y0, seed)
	v10 := Value(x0+1, y0, seed)
	v01 := Value(x0, y0+1, seed)
	v11 := Value(x0+1, y0+1, seed)

	v0 := v00*(1-fx) + v10*fx
	v1 := v01*(1-fx) + v11*fx
	return v0*(1-fy) + v1*fy
}

// Fractal sums octaves of the lattice field, doubling frequency and scaling
// amplitude by persistence each octave, normalized by the amplitude sum so
// the result stays in roughly [-1, 1] for any octave count. Each octave uses
// its own seed offset so octaves decorrelate.
func Fractal(x, y float64, octaves int, persistence, scale float64, seed int32) float64 {
	total := 0.0
	frequency := scale
	amplitude := 1.0
	maxAmplitude := 0.0

	for i := 0; i < octaves; i++ {
		total += At(x*frequency, y*frequency, seed+int32(i)) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	if maxAmplitude == 0 {
		return 0
	}
	return total / maxAmplitude
}
