package dem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"demforge/internal/safesize"
)

var (
	// ErrUnknownSize reports a file whose byte length matches no resolution
	// class and whose name carries no usable WIDTHxHEIGHT token.
	ErrUnknownSize = errors.New("unknown HGT size")

	// ErrSizeMismatch reports a parsed dimension token that disagrees with
	// the file's byte length.
	ErrSizeMismatch = errors.New("filesize mismatch")
)

const (
	srtm1Bytes = srtm1Dim * srtm1Dim * 2
	srtm3Bytes = srtm3Dim * srtm3Dim * 2

	noDataRaw = -32768 // SRTM void marker after byte-order normalization
	maxCustom = 65536
)

var sizeToken = regexp.MustCompile(`([0-9]{1,5})[xX]([0-9]{1,5})`)

// ResolveResolution determines the resolution class for a file from its byte
// length, falling back to a WIDTHxHEIGHT token embedded in the filename for
// custom grids. The token is validated against the byte length.
func ResolveResolution(name string, byteLen int64) (Resolution, error) {
	switch byteLen {
	case srtm1Bytes:
		return Resolution{Class: ClassSRTM1, Width: srtm1Dim, Height: srtm1Dim}, nil
	case srtm3Bytes:
		return Resolution{Class: ClassSRTM3, Width: srtm3Dim, Height: srtm3Dim}, nil
	}

	m := sizeToken.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return Resolution{}, fmt.Errorf("%w: %s is %d bytes and has no WIDTHxHEIGHT token", ErrUnknownSize, name, byteLen)
	}
	width, _ := strconv.Atoi(m[1])
	height, _ := strconv.Atoi(m[2])
	if width <= 0 || width > maxCustom || height <= 0 || height > maxCustom {
		return Resolution{}, fmt.Errorf("%w: %s parsed implausible dimensions %dx%d", ErrUnknownSize, name, width, height)
	}

	expected, err := safesize.Mul3(uint64(width), uint64(height), 2)
	if err != nil {
		return Resolution{}, fmt.Errorf("%s: %dx%d: %w", name, width, height, err)
	}
	if expected != uint64(byteLen) {
		return Resolution{}, fmt.Errorf("%w: %s expected %d bytes (%dx%d), got %d",
			ErrSizeMismatch, name, expected, width, height, byteLen)
	}
	return Resolution{Class: ClassCustom, Width: width, Height: height}, nil
}

// ReadFile loads an HGT tile, normalizes byte order and NoData voids, clamps
// samples to [0, MaxElevation] and records the valid-sample range.
func ReadFile(path string) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	res, err := ResolveResolution(path, int64(len(raw)))
	if err != nil {
		return nil, err
	}
	return Decode(raw, res)
}

// Decode normalizes a raw sample buffer into a Grid. SRTM tiles are stored
// big-endian; custom grids are taken as little-endian, the layout the rest of
// the toolchain emits.
func Decode(raw []byte, res Resolution) (*Grid, error) {
	pixels, err := safesize.Pixels(uint64(res.Width), uint64(res.Height))
	if err != nil {
		return nil, err
	}
	if len(raw) != pixels*2 {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d",
			ErrSizeMismatch, res.Width, res.Height, pixels*2, len(raw))
	}

	srtm := res.Class == ClassSRTM1 || res.Class == ClassSRTM3
	grid := &Grid{
		Res:     res,
		Data:    make([]int16, pixels),
		MinElev: MaxElevation + 1,
		MaxElev: 0,
	}

	for i := 0; i < pixels; i++ {
		var v int16
		if srtm {
			v = int16(binary.BigEndian.Uint16(raw[i*2:]))
		} else {
			v = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}

		// Void detection applies to SRTM tiles only; custom grids have no
		// defined void marker.
		if srtm && v == noDataRaw {
			grid.Data[i] = NoData
			grid.NoDataCount++
			continue
		}

		if v < 0 {
			v = 0
		} else if v > MaxElevation {
			v = MaxElevation
		}
		grid.Data[i] = v

		if v != NoData {
			if v < grid.MinElev {
				grid.MinElev = v
			}
			if v > grid.MaxElev {
				grid.MaxElev = v
			}
		}
	}

	if grid.MinElev > grid.MaxElev {
		// All samples were NoData or zero; collapse to an empty range.
		grid.MinElev = 0
		grid.MaxElev = 0
	}
	return grid, nil
}

// Bounds is a one-degree geographic cell parsed from an SRTM tile name.
type Bounds struct {
	South, North float64
	West, East   float64
}

// CenterLat returns the latitude midpoint of the cell.
func (b Bounds) CenterLat() float64 { return (b.South + b.North) / 2 }

// CenterLon returns the longitude midpoint of the cell.
func (b Bounds) CenterLon() float64 { return (b.West + b.East) / 2 }

var tileName = regexp.MustCompile(`^([NS])([0-9]{2})([EW])([0-9]{3})`)

// GeoBounds parses an SRTM tile prefix such as N49E004 into geographic
// bounds. The second return is false for names without such a prefix, which
// is not an error: custom grids carry no location.
func GeoBounds(path string) (Bounds, bool) {
	m := tileName.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return Bounds{}, false
	}
	lat, _ := strconv.Atoi(m[2])
	lon, _ := strconv.Atoi(m[4])
	if lat > 90 || lon > 180 {
		return Bounds{}, false
	}

	var b Bounds
	if m[1] == "N" {
		b.South = float64(lat)
		b.North = float64(lat + 1)
	} else {
		b.South = -float64(lat + 1)
		b.North = -float64(lat)
	}
	if m[3] == "E" {
		b.West = float64(lon)
		b.East = float64(lon + 1)
	} else {
		b.West = -float64(lon + 1)
		b.East = -float64(lon)
	}
	return b, true
}
