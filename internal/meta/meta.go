// Package meta writes the sidecar metadata files downstream displacement
// setups (Blender, Unity) read for precise world scaling.
package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"demforge/internal/dem"
)

// Format selects the sidecar encoding.
type Format int

const (
	FormatNone Format = iota
	FormatJSON
	FormatTXT
)

// ParseFormat resolves a configured metadata format name.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "", "none":
		return FormatNone, nil
	case "json":
		return FormatJSON, nil
	case "txt":
		return FormatTXT, nil
	default:
		return FormatNone, fmt.Errorf("unknown metadata format %q", name)
	}
}

// Sidecar carries everything a consumer needs to scale the output rasters
// back into meters.
type Sidecar struct {
	SourceFile string
	OutputFile string

	Width  int
	Height int

	// Effective range is what the encoder normalized against; the original
	// range is the file's own span before any override.
	EffectiveMin int
	EffectiveMax int
	OriginalMin  int
	OriginalMax  int

	PixelPitchMeters float64
	ScaleFactor      int

	Bounds *dem.Bounds // nil when the filename carries no tile prefix
}

type jsonSidecar struct {
	SourceFile string         `json:"source_file"`
	OutputFile string         `json:"output_file"`
	Dimensions jsonDimensions `json:"dimensions"`
	Elevation  jsonElevation  `json:"elevation"`
	Scaling    jsonScaling    `json:"scaling"`
	Geographic *jsonGeo       `json:"geographic,omitempty"`
}

type jsonDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type jsonElevation struct {
	MinMeters   int `json:"min_meters"`
	MaxMeters   int `json:"max_meters"`
	RangeMeters int `json:"range_meters"`
	OriginalMin int `json:"original_min"`
	OriginalMax int `json:"original_max"`
}

type jsonScaling struct {
	PixelPitchMeters float64       `json:"pixel_pitch_meters"`
	ScaleFactor      int           `json:"scale_factor"`
	WorldSizeMeters  jsonWorldSize `json:"world_size_meters"`
}

type jsonWorldSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type jsonGeo struct {
	Bounds jsonBounds `json:"bounds"`
	Center jsonCenter `json:"center"`
}

type jsonBounds struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

type jsonCenter struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Write emits the sidecar next to the output raster, deriving the sidecar
// path from the output path's extension. FormatNone writes nothing.
func Write(format Format, s Sidecar) error {
	var path string
	switch format {
	case FormatNone:
		return nil
	case FormatJSON:
		path = sidecarPath(s.OutputFile, ".json")
	case FormatTXT:
		path = sidecarPath(s.OutputFile, ".txt")
	}

	var payload []byte
	var err error
	if format == FormatJSON {
		payload, err = json.MarshalIndent(toJSON(s), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal sidecar for %s: %w", s.OutputFile, err)
		}
		payload = append(payload, '\n')
	} else {
		payload = []byte(toTXT(s))
	}

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}

func sidecarPath(outputFile, ext string) string {
	if i := strings.LastIndexByte(outputFile, '.'); i > strings.LastIndexByte(outputFile, '/') {
		return outputFile[:i] + ext
	}
	return outputFile + ext
}

func toJSON(s Sidecar) jsonSidecar {
	out := jsonSidecar{
		SourceFile: s.SourceFile,
		OutputFile: s.OutputFile,
		Dimensions: jsonDimensions{Width: s.Width, Height: s.Height},
		Elevation: jsonElevation{
			MinMeters:   s.EffectiveMin,
			MaxMeters:   s.EffectiveMax,
			RangeMeters: s.EffectiveMax - s.EffectiveMin,
			OriginalMin: s.OriginalMin,
			OriginalMax: s.OriginalMax,
		},
		Scaling: jsonScaling{
			PixelPitchMeters: s.PixelPitchMeters,
			ScaleFactor:      s.ScaleFactor,
			WorldSizeMeters: jsonWorldSize{
				Width:  float64(s.Width) * s.PixelPitchMeters,
				Height: float64(s.Height) * s.PixelPitchMeters,
			},
		},
	}
	if s.Bounds != nil {
		out.Geographic = &jsonGeo{
			Bounds: jsonBounds{
				South: s.Bounds.South,
				North: s.Bounds.North,
				West:  s.Bounds.West,
				East:  s.Bounds.East,
			},
			Center: jsonCenter{
				Latitude:  s.Bounds.CenterLat(),
				Longitude: s.Bounds.CenterLon(),
			},
		}
	}
	return out
}

func toTXT(s Sidecar) string {
	var b strings.Builder
	fmt.Fprintf(&b, "demforge metadata\n")
	fmt.Fprintf(&b, "=================\n\n")
	fmt.Fprintf(&b, "Source File: %s\n", s.SourceFile)
	fmt.Fprintf(&b, "Output File: %s\n", s.OutputFile)
	fmt.Fprintf(&b, "\nImage Dimensions:\n")
	fmt.Fprintf(&b, "  Width:  %d pixels\n", s.Width)
	fmt.Fprintf(&b, "  Height: %d pixels\n", s.Height)
	fmt.Fprintf(&b, "\nElevation Data:\n")
	fmt.Fprintf(&b, "  Effective Range: %d - %d meters\n", s.EffectiveMin, s.EffectiveMax)
	fmt.Fprintf(&b, "  Original Range:  %d - %d meters\n", s.OriginalMin, s.OriginalMax)
	fmt.Fprintf(&b, "  Total Range:     %d meters\n", s.EffectiveMax-s.EffectiveMin)
	fmt.Fprintf(&b, "\nDisplacement Scaling:\n")
	fmt.Fprintf(&b, "  Pixel Pitch: %.6f meters/pixel\n", s.PixelPitchMeters)
	fmt.Fprintf(&b, "  World Size:  %.2f x %.2f meters\n",
		float64(s.Width)*s.PixelPitchMeters, float64(s.Height)*s.PixelPitchMeters)
	fmt.Fprintf(&b, "  Scale Factor: %d\n", s.ScaleFactor)
	if s.Bounds != nil {
		fmt.Fprintf(&b, "\nGeographic Coordinates:\n")
		fmt.Fprintf(&b, "  Bounds: %.6f to %.6f lat, %.6f to %.6f lon\n",
			s.Bounds.South, s.Bounds.North, s.Bounds.West, s.Bounds.East)
		fmt.Fprintf(&b, "  Center: %.6f, %.6f\n", s.Bounds.CenterLat(), s.Bounds.CenterLon())
	}
	return b.String()
}
