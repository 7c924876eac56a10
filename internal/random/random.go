package random

import "math/rand"

// Source abstracts the randomness used by bidding and retention so that a
// run can be replayed deterministically from a seed.
type Source interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewSeeded returns a Source backed by math/rand with the given seed.
func NewSeeded(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Between returns a random int in [lo, hi] inclusive.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Pick returns a random element of items. It panics on an empty slice, which
// callers guard against.
func Pick[T any](src Source, items []T) T {
	return items[src.Intn(len(items))]
}

// PickWeighted returns the index of a weighted random choice over weights.
// Non-positive weights are treated as zero. If all weights are zero the
// choice degrades to uniform.
func PickWeighted(src Source, weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return src.Intn(len(weights))
	}
	target := src.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		target -= w
		if target < 0 {
			return i
		}
	}
	return len(weights) - 1
}
