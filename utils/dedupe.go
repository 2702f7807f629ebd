// utils/dedupe.go
package utils

// DedupeBy collapses items to one per key. The surviving value is the last one
// seen for its key; output order follows the first occurrence of each key.
func DedupeBy[T any, K comparable](items []T, key func(T) K) []T {
	index := make(map[K]int, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}
