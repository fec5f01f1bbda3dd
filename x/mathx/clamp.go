package mathx

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// RoundInt32 rounds f to the nearest integer and saturates to int32.
// NaN maps to 0.
func RoundInt32[F constraints.Float](f F) int32 {
	x := float64(f)
	if math.IsNaN(x) {
		return 0
	}
	return int32(Clamp(math.Round(x), math.MinInt32, math.MaxInt32))
}
