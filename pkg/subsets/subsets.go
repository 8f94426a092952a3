/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package subsets implements a lazy, bit-pattern enumerator over the
// non-empty subsets of a bounded list, per spec.md §4.C / §9.
package subsets

// MaxElements is the hard cap on the number of elements considered: beyond
// this, only the first MaxElements are enumerated over. 31 keeps 1<<n within
// a native int on every supported platform and bounds the exponential blowup
// the control loop must never rely on exhausting.
const MaxElements = 31

// Enumerator lazily yields every non-empty subset of L with cardinality <= m,
// exactly once, in a deterministic (ascending bit-pattern) order. If L has
// more than MaxElements elements, only the first MaxElements are considered.
type Enumerator[T any] struct {
	elems   []T
	maxSize int
	next    int
	limit   int
}

// New returns an Enumerator over l, bounded to subsets of cardinality <= m,
// with the hard MaxElements cap on how many of l's elements are considered.
func New[T any](l []T, m int) *Enumerator[T] {
	return NewBounded(l, m, MaxElements)
}

// NewBounded is New with an explicit, caller-supplied cap on the number of
// elements considered (spec.md §6 maxConsideredNodes), itself never allowed
// to exceed MaxElements. A cap <= 0 falls back to MaxElements.
func NewBounded[T any](l []T, m, maxElements int) *Enumerator[T] {
	if maxElements <= 0 || maxElements > MaxElements {
		maxElements = MaxElements
	}
	elems := l
	if len(elems) > maxElements {
		elems = elems[:maxElements]
	}
	return &Enumerator[T]{
		elems:   elems,
		maxSize: m,
		next:    1, // bit pattern 0 is the empty subset; skip it
		limit:   1 << len(elems),
	}
}

// Next returns the next subset and true, or (nil, false) once exhausted.
func (e *Enumerator[T]) Next() ([]T, bool) {
	for e.next < e.limit {
		pattern := e.next
		e.next++
		if popcount(pattern) > e.maxSize {
			continue
		}
		return e.decode(pattern), true
	}
	return nil, false
}

// All drains the enumerator into a slice. Intended for small searches and
// tests; CapacitySolver's eviction search also drains it this way.
func (e *Enumerator[T]) All() [][]T {
	var out [][]T
	for {
		s, ok := e.Next()
		if !ok {
			return out
		}
		out = append(out, s)
	}
}

func (e *Enumerator[T]) decode(pattern int) []T {
	out := make([]T, 0, popcount(pattern))
	for i := 0; i < len(e.elems); i++ {
		if pattern&(1<<i) != 0 {
			out = append(out, e.elems[i])
		}
	}
	return out
}

func popcount(n int) int {
	c := 0
	for n != 0 {
		n &= n - 1
		c++
	}
	return c
}
