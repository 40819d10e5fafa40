// Package dtype defines the element kinds used for typed memory access.
//
// A Kind is resolved once at the call boundary from the Go type of a slice:
//
//	kind, ok := dtype.KindOf([]float32{1, 2})   // Float32, true
//	size := kind.Size()                         // 4
//
// Untyped lists ([]int, []uint, []any of numbers) resolve to Generic and are
// stored as 8-byte floats.
package dtype
