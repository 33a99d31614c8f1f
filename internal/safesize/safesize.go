// Package safesize guards the size arithmetic behind every buffer allocation.
// Scale factors and custom grid dimensions are user-controlled, so naive
// multiplication can silently wrap and corrupt allocation sizes.
package safesize

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrOverflow reports a dimension product that does not fit in a uint64.
var ErrOverflow = errors.New("size overflow")

// Mul returns a*b or ErrOverflow instead of wrapping.
func Mul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d x %d", ErrOverflow, a, b)
	}
	return lo, nil
}

// Mul3 returns a*b*c or ErrOverflow instead of wrapping.
func Mul3(a, b, c uint64) (uint64, error) {
	ab, err := Mul(a, b)
	if err != nil {
		return 0, err
	}
	return Mul(ab, c)
}

// Pixels validates a width x height pixel count and returns it as an int.
// The int conversion is part of the contract: a count that exceeds the
// platform int range is as unusable as a wrapped one.
func Pixels(width, height uint64) (int, error) {
	n, err := Mul(width, height)
	if err != nil {
		return 0, err
	}
	if n > uint64(maxInt) {
		return 0, fmt.Errorf("%w: %d pixels exceeds addressable range", ErrOverflow, n)
	}
	return int(n), nil
}

const maxInt = int(^uint(0) >> 1)
