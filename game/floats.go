package game

import "golang.org/x/exp/constraints"

// Convert copies xs into a new slice of another float type.
func Convert[To, From constraints.Float](xs []From) []To {
	out := make([]To, len(xs))
	for i, x := range xs {
		out[i] = To(x)
	}
	return out
}

// Normalize scales xs in place so it sums to one. It reports false and leaves
// xs untouched when the sum is not positive.
func Normalize[F constraints.Float](xs []F) bool {
	var sum F
	for _, x := range xs {
		sum += x
	}
	if !(sum > 0) {
		return false
	}
	for i := range xs {
		xs[i] /= sum
	}
	return true
}

// Argmax returns the index of the largest element, preferring the lowest index on ties.
func Argmax[F constraints.Float](xs []F) int {
	if len(xs) == 0 {
		panic("cannot take argmax of an empty slice")
	}
	best := 0
	for i, x := range xs[1:] {
		if x > xs[best] {
			best = i + 1
		}
	}
	return best
}

// OneHot returns a distribution over size actions with all mass on action.
func OneHot[F constraints.Float](size, action int) []F {
	out := make([]F, size)
	out[action] = 1
	return out
}
