// Package encode serializes the pipeline's numeric buffers: normalized PNG
// displacement maps, vegetation density masks and raw 16-bit heightmaps for
// game-engine import.
package encode

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"demforge/internal/dem"
)

// Curve selects the elevation-to-pixel mapping curve.
type Curve int

const (
	CurveLinear Curve = iota
	CurveLog          // log10(1+9x), lifts low-lying detail
)

// ParseCurve resolves a configured curve name.
func ParseCurve(name string) (Curve, error) {
	switch name {
	case "", "linear":
		return CurveLinear, nil
	case "log":
		return CurveLog, nil
	default:
		return CurveLinear, fmt.Errorf("unknown curve %q", name)
	}
}

// Options fixes an encoder's output formats for a whole batch.
type Options struct {
	Bits16      bool  // 16-bit grayscale instead of 8-bit
	AlphaNoData bool  // transparent NoData pixels
	Raw16       bool  // additionally emit a raw little-endian 16-bit heightmap
	Zstd        bool  // compress the raw heightmap
	Curve       Curve
	Gamma       float64 // 1 disables gamma correction
}

// Encoder normalizes elevation buffers against a fixed range and writes them
// out. One encoder serves all workers of a batch; it holds no mutable state.
type Encoder struct {
	opts Options
	min  float64
	max  float64
}

// New builds an encoder for the effective elevation range. A degenerate
// range maps every sample to the midpoint rather than failing the batch.
func New(opts Options, minElev, maxElev int) *Encoder {
	if opts.Gamma == 0 {
		opts.Gamma = 1
	}
	return &Encoder{opts: opts, min: float64(minElev), max: float64(maxElev)}
}

// Normalize maps an elevation onto [0,1] over the encoder's range with the
// configured curve and gamma applied.
func (e *Encoder) Normalize(elevation float64) float64 {
	v := 0.5
	if e.max > e.min {
		c := elevation
		if c < e.min {
			c = e.min
		} else if c > e.max {
			c = e.max
		}
		v = (c - e.min) / (e.max - e.min)
	}
	return applyCurve(v, e.opts.Curve, e.opts.Gamma)
}

func applyCurve(v float64, curve Curve, gamma float64) float64 {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}

	if curve == CurveLog {
		if v > 0 {
			v = math.Log10(1 + v*9)
		} else {
			v = 0
		}
	}

	if gamma != 1 {
		v = math.Pow(v, 1/gamma)
	}

	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return v
}

// WriteHeightmap encodes an elevation buffer as a PNG at path. NoData pixels
// (the sentinel value) become transparent when AlphaNoData is set.
func (e *Encoder) WriteHeightmap(path string, data []int16, width, height int) error {
	if len(data) != width*height {
		return fmt.Errorf("write %s: %dx%d needs %d samples, got %d", path, width, height, width*height, len(data))
	}

	var img image.Image
	switch {
	case e.opts.Bits16 && e.opts.AlphaNoData:
		out := image.NewNRGBA64(image.Rect(0, 0, width, height))
		for i, s := range data {
			y := uint16(e.Normalize(float64(s)) * 65535)
			a := uint16(65535)
			if s == dem.NoData {
				a = 0
			}
			out.SetNRGBA64(i%width, i/width, color.NRGBA64{R: y, G: y, B: y, A: a})
		}
		img = out
	case e.opts.Bits16:
		out := image.NewGray16(image.Rect(0, 0, width, height))
		for i, s := range data {
			out.SetGray16(i%width, i/width, color.Gray16{Y: uint16(e.Normalize(float64(s)) * 65535)})
		}
		img = out
	case e.opts.AlphaNoData:
		out := image.NewNRGBA(image.Rect(0, 0, width, height))
		for i, s := range data {
			y := uint8(e.Normalize(float64(s)) * 255)
			a := uint8(255)
			if s == dem.NoData {
				a = 0
			}
			out.SetNRGBA(i%width, i/width, color.NRGBA{R: y, G: y, B: y, A: a})
		}
		img = out
	default:
		out := image.NewGray(image.Rect(0, 0, width, height))
		for i, s := range data {
			out.SetGray(i%width, i/width, color.Gray{Y: uint8(e.Normalize(float64(s)) * 255)})
		}
		img = out
	}

	return writePNG(path, img)
}

// WriteDensity encodes a vegetation density buffer as an 8-bit grayscale PNG.
func (e *Encoder) WriteDensity(path string, data []uint8, width, height int) error {
	if len(data) != width*height {
		return fmt.Errorf("write %s: %dx%d needs %d samples, got %d", path, width, height, width*height, len(data))
	}
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, data)
	return writePNG(path, img)
}

// WriteRaw16 emits the elevation buffer as raw little-endian 16-bit samples,
// the layout game-engine heightmap importers read, optionally zstd-framed.
func (e *Encoder) WriteRaw16(path string, data []int16, width, height int) error {
	if len(data) != width*height {
		return fmt.Errorf("write %s: %dx%d needs %d samples, got %d", path, width, height, width*height, len(data))
	}

	raw := make([]byte, len(data)*2)
	for i, s := range data {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if e.opts.Zstd {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("zstd writer for %s: %w", path, err)
		}
		if _, err := zw.Write(raw); err != nil {
			zw.Close()
			f.Close()
			return fmt.Errorf("write %s: %w", path, err)
		}
		if err := zw.Close(); err != nil {
			f.Close()
			return fmt.Errorf("finish %s: %w", path, err)
		}
	} else if _, err := f.Write(raw); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
