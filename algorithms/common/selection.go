package common

import "slices"

// TopKIndices returns the indices of the k largest values, in ascending index order.
//
// Equal values rank by position (earlier first), so the result is fully deterministic.
// The selection runs in expected O(n) using quickselect instead of sorting the whole
// slice; only the k winners are sorted afterwards.
func TopKIndices(values []float64, k int) []int {
	n := len(values)
	if k <= 0 || n == 0 {
		return []int{}
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	if k < n {
		before := func(a, b int) bool {
			if values[a] != values[b] {
				return values[a] > values[b]
			}
			return a < b
		}
		selectK(idx, k, before)
		idx = idx[:k]
	}

	slices.Sort(idx)
	return idx
}

// selectK rearranges idx so that its first k entries are the k highest ranked
func selectK(idx []int, k int, before func(a, b int) bool) {
	lo, hi := 0, len(idx)-1
	target := k - 1

	for lo < hi {
		p := partition(idx, lo, hi, before)
		switch {
		case p == target:
			return
		case p < target:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition is a Lomuto partition around a median-of-three pivot
func partition(idx []int, lo, hi int, before func(a, b int) bool) int {
	mid := lo + (hi-lo)/2
	if before(idx[mid], idx[lo]) {
		idx[mid], idx[lo] = idx[lo], idx[mid]
	}
	if before(idx[hi], idx[lo]) {
		idx[hi], idx[lo] = idx[lo], idx[hi]
	}
	if before(idx[hi], idx[mid]) {
		idx[hi], idx[mid] = idx[mid], idx[hi]
	}
	idx[mid], idx[hi] = idx[hi], idx[mid]

	pivot := idx[hi]
	store := lo
	for i := lo; i < hi; i++ {
		if before(idx[i], pivot) {
			idx[i], idx[store] = idx[store], idx[i]
			store++
		}
	}
	idx[store], idx[hi] = idx[hi], idx[store]

	return store
}
