package math

import "golang.org/x/exp/constraints"

// Clamp bounds f to [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Wrap folds v into [0, n). A zero n yields 0.
func Wrap[T constraints.Unsigned](v, n T) T {
	if n == 0 {
		return 0
	}
	return v % n
}
