// Package vegetation estimates per-pixel vegetation density from terrain
// derivatives and biome parameter sets.
package vegetation

import (
	"fmt"
	"strings"
)

// Biome describes how vegetation density responds to elevation, slope, aspect
// and drainage for one terrain archetype. Records are immutable.
type Biome struct {
	Name string

	// Elevation bands in meters. Density holds through the tree line, then
	// tapers through bush and grass cover toward bare ground at MaxElevation.
	MinElevation float64
	TreeLine     float64
	BushLine     float64
	GrassLine    float64
	MaxElevation float64

	MaxSlopeDeg    float64 // no growth on slopes steeper than this
	AspectModifier float64 // moisture asymmetry between north and south faces
	DrainageBonus  float64 // extra density in valley bottoms
}

var biomes = []Biome{
	{
		Name:           "alpine",
		MinElevation:   0,
		TreeLine:       1800,
		BushLine:       2200,
		GrassLine:      2600,
		MaxElevation:   3200,
		MaxSlopeDeg:    55,
		AspectModifier: 0.2,
		DrainageBonus:  0.3,
	},
	{
		Name:           "temperate",
		MinElevation:   0,
		TreeLine:       1200,
		BushLine:       1600,
		GrassLine:      2000,
		MaxElevation:   2600,
		MaxSlopeDeg:    50,
		AspectModifier: 0.15,
		DrainageBonus:  0.4,
	},
	{
		Name:           "boreal",
		MinElevation:   0,
		TreeLine:       900,
		BushLine:       1300,
		GrassLine:      1700,
		MaxElevation:   2200,
		MaxSlopeDeg:    45,
		AspectModifier: 0.1,
		DrainageBonus:  0.35,
	},
	{
		Name:           "mediterranean",
		MinElevation:   0,
		TreeLine:       1500,
		BushLine:       2000,
		GrassLine:      2400,
		MaxElevation:   3000,
		MaxSlopeDeg:    60,
		AspectModifier: 0.3,
		DrainageBonus:  0.5,
	},
}

// Lookup resolves a biome by case-insensitive name.
func Lookup(name string) (Biome, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, b := range biomes {
		if b.Name == needle {
			return b, nil
		}
	}
	return Biome{}, fmt.Errorf("unknown biome %q", name)
}

// Names lists the available biomes for help output and validation messages.
func Names() []string {
	out := make([]string, len(biomes))
	for i, b := range biomes {
		out[i] = b.Name
	}
	return out
}
