// Package mathx holds generic range helpers shared by config normalisation
// and the supervisor state.
package mathx

import "golang.org/x/exp/constraints"

func Min[T constraints.Ordered](a, b T) T {
	if b < a {
		return b
	}
	return a
}

func Max[T constraints.Ordered](a, b T) T {
	if b > a {
		return b
	}
	return a
}

// Clamp bounds v to the closed range between lo and hi. The bounds may be
// given in either order.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	lo, hi = Min(lo, hi), Max(lo, hi)
	return Max(lo, Min(v, hi))
}
