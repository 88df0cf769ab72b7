package seq

import (
	"cmp"
	"iter"
	"slices"

	"golang.org/x/exp/constraints"
)

type Int interface {
	constraints.Signed
}

type Uint interface {
	constraints.Unsigned
}

type Float interface {
	constraints.Float
}

// Returns [0, 1, ..., n-1]
func SeqN[T Int | Uint](n T) []T {
	seq := make([]T, 0, int(n))
	var index T = 0
	for range int(n) {
		seq = append(seq, index)
		index++
	}
	return seq
}

// Returns the elements of s at the given indices
func Pick[T any](s []T, indices []int) []T {
	picked := make([]T, len(indices))
	for i, ind := range indices {
		picked[i] = s[ind]
	}
	return picked
}

// Sorted unique copy of s
func Uniq[T cmp.Ordered](s []T) []T {
	uniq := slices.Clone(s)
	slices.Sort(uniq)
	return slices.Compact(uniq)
}

// Returns elements of a that are not in b, keeping the order of a
func Without[T comparable](a, b []T) []T {
	ret := make([]T, 0, len(a))
	for _, e := range a {
		if !slices.Contains(b, e) {
			ret = append(ret, e)
		}
	}
	return ret
}

func MinInd[I any, T cmp.Ordered](it iter.Seq2[I, T]) (I, T, bool) {
	var set bool
	var current_min T
	var current_min_ind I
	for i, v := range it {
		if !set || v < current_min {
			current_min_ind = i
			current_min = v
			set = true
		}
	}
	return current_min_ind, current_min, set
}
