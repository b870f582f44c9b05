// Package mathx provides small generic numeric helpers shared across the
// daemon.
package mathx

import "golang.org/x/exp/constraints"

// Number is any built-in integer or float type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Clamp limits v to the range [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to the range [0, 1].
func Clamp01[T constraints.Float](v T) T {
	return Clamp(v, 0, 1)
}

// Abs returns the absolute value of v.
func Abs[T Number](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

// Lerp interpolates linearly from a to b by fraction f.
// f is not clamped; callers pass values in [0, 1].
func Lerp[T constraints.Float](a, b, f T) T {
	return a + (b-a)*f
}
