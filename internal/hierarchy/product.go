// SPDX-License-Identifier: Apache-2.0

package hierarchy

import "math"

// Dimension is one key of a cross product together with its candidates.
type Dimension[T any] struct {
	Key    string
	Values []T
}

// Scalar wraps a single value as a one-candidate dimension.
func Scalar[T any](key string, v T) Dimension[T] {
	return Dimension[T]{Key: key, Values: []T{v}}
}

// Dimensions builds dimensions from a key/value mapping, visiting keys in the
// given order. A []any value is taken as the candidate list; anything else is
// treated as a scalar.
func Dimensions(keys []string, m map[string]any) []Dimension[any] {
	dims := make([]Dimension[any], 0, len(keys))
	for _, k := range keys {
		if list, ok := m[k].([]any); ok {
			dims = append(dims, Dimension[any]{Key: k, Values: list})
			continue
		}
		dims = append(dims, Scalar(k, m[k]))
	}
	return dims
}

// ProductSize returns the number of combinations Product would produce,
// saturating at math.MaxInt.
func ProductSize[T any](dims []Dimension[T]) int {
	size := 1
	for _, d := range dims {
		n := len(d.Values)
		if n == 0 {
			return 0
		}
		if size > math.MaxInt/n {
			return math.MaxInt
		}
		size *= n
	}
	return size
}

// Product enumerates every combination that picks one candidate per
// dimension. The first dimension is the outermost loop and the last one
// varies fastest. With no dimensions the result is a single empty
// combination; an empty candidate list yields no combinations.
func Product[T any](dims []Dimension[T]) []map[string]T {
	out := make([]map[string]T, 0, min(ProductSize(dims), 1024))
	cur := make([]T, len(dims))

	var walk func(i int)
	walk = func(i int) {
		if i == len(dims) {
			combo := make(map[string]T, len(dims))
			for j, d := range dims {
				combo[d.Key] = cur[j]
			}
			out = append(out, combo)
			return
		}
		for _, v := range dims[i].Values {
			cur[i] = v
			walk(i + 1)
		}
	}
	walk(0)
	return out
}
