package slice

import "slices"

// Difference returns the elements of left which are not present in right, in the order of left.
func Difference[T comparable](left, right []T) []T {
	var diff []T

	for _, value := range left {
		if !slices.Contains(right, value) {
			diff = append(diff, value)
		}
	}

	return diff
}

// Filter returns the elements of values accepted by keep.
func Filter[T any](values []T, keep func(T) bool) []T {
	var kept []T

	for _, value := range values {
		if keep(value) {
			kept = append(kept, value)
		}
	}

	return kept
}
