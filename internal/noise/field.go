package noise

import (
	"fmt"
	"sync"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Field is a fractal scalar field in roughly [-1, 1]. Implementations must be
// deterministic for a seed and safe for concurrent evaluation.
type Field interface {
	Fractal(x, y float64, octaves int, persistence float64, seed int32) float64
}

// NewField returns the field for a configured source name. The empty name and
// "value" select the lattice field, the default and the one existing outputs
// were produced with.
func NewField(source string) (Field, error) {
	switch source {
	case "", "value":
		return valueField{}, nil
	case "perlin":
		return &perlinField{}, nil
	case "simplex":
		return &simplexField{}, nil
	default:
		return nil, fmt.Errorf("unknown noise source %q", source)
	}
}

type valueField struct{}

func (valueField) Fractal(x, y float64, octaves int, persistence float64, seed int32) float64 {
	return Fractal(x, y, octaves, persistence, 1.0, seed)
}

// perlinField sums seeded perlin octaves. Generators are cached per seed
// because building the permutation tables dominates a single evaluation;
// evaluation itself only reads them.
type perlinField struct {
	mu    sync.Mutex
	cache map[int32]*perlin.Perlin
}

func (f *perlinField) generator(seed int32) *perlin.Perlin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[int32]*perlin.Perlin)
	}
	p, ok := f.cache[seed]
	if !ok {
		p = perlin.NewPerlin(2, 2, 3, int64(seed))
		f.cache[seed] = p
	}
	return p
}

func (f *perlinField) Fractal(x, y float64, octaves int, persistence float64, seed int32) float64 {
	p := f.generator(seed)
	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxAmplitude := 0.0
	for i := 0; i < octaves; i++ {
		total += p.Noise2D(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	if maxAmplitude == 0 {
		return 0
	}
	return total / maxAmplitude
}

type simplexField struct {
	mu    sync.Mutex
	cache map[int32]opensimplex.Noise
}

func (f *simplexField) generator(seed int32) opensimplex.Noise {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache == nil {
		f.cache = make(map[int32]opensimplex.Noise)
	}
	n, ok := f.cache[seed]
	if !ok {
		n = opensimplex.New(int64(seed))
		f.cache[seed] = n
	}
	return n
}

func (f *simplexField) Fractal(x, y float64, octaves int, persistence float64, seed int32) float64 {
	n := f.generator(seed)
	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxAmplitude := 0.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	if maxAmplitude == 0 {
		return 0
	}
	return total / maxAmplitude
}
