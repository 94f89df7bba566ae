// Package safe provides helpers for safe numeric conversions with overflow checks.
package safe

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a conversion or sum does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// Uint32 converts signed or unsigned integers to uint32 with range validation.
func Uint32[T ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](v T) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: value %d out of uint32 range", ErrOverflow, v)
	}
	return uint32(v), nil
}

// Uint64 converts signed or unsigned integers to uint64 while guarding against negatives.
func Uint64[T ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](v T) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: value %d out of uint64 range", ErrOverflow, v)
	}
	return uint64(v), nil
}

// Int64 converts an unsigned satoshi amount to the signed form btcd APIs expect.
func Int64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: value %d out of int64 range", ErrOverflow, v)
	}
	return int64(v), nil
}

// Add returns a + b or ErrOverflow when the sum wraps.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return sum, nil
}

// Mul returns a * b or ErrOverflow when the product wraps.
func Mul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	p := a * b
	if p/b != a {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, b)
	}
	return p, nil
}
