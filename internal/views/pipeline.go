package views

import "sort"

// The steps below compose into the read pipelines of the assembler. None of
// them mutates its input and every slice-returning step returns a non-nil
// slice so empty results encode as [] rather than null.

// Filter keeps the items for which keep returns true.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// IndexBy builds a lookup table keyed by key. Later items win on duplicate keys.
func IndexBy[T any, K comparable](items []T, key func(T) K) map[K]T {
	out := make(map[K]T, len(items))
	for _, item := range items {
		out[key(item)] = item
	}
	return out
}

// JoinOrdered resolves keys against index and returns the matches in the
// order of keys. Keys without a match are dropped. This is how stored
// reference sequences regain their order after an unordered batch lookup.
func JoinOrdered[K comparable, V any](keys []K, index map[K]V) []V {
	out := make([]V, 0, len(keys))
	for _, key := range keys {
		if v, ok := index[key]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Reverse returns a reversed copy of items.
func Reverse[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}

// Project maps every item through fn.
func Project[T, P any](items []T, fn func(T) P) []P {
	out := make([]P, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

// GroupBy buckets items by key, preserving relative order inside a bucket.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		out[k] = append(out[k], item)
	}
	return out
}

// SortStableBy returns a copy of items sorted by less, keeping the input order
// of equal elements.
func SortStableBy[T any](items []T, less func(a, b T) bool) []T {
	out := append(make([]T, 0, len(items)), items...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Unique returns keys with duplicates removed, keeping first occurrences.
func Unique[K comparable](keys []K) []K {
	seen := make(map[K]struct{}, len(keys))
	out := make([]K, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
