// Package index implements an exact, in-memory nearest-neighbour index over
// fixed-dimension float32 vectors keyed by caller-supplied integer ids.
//
// The index is built once in bulk and then queried. Build publishes a fresh
// immutable snapshot atomically, so Search never blocks and never observes a
// partially written index.
package index

import (
	"container/heap"
	"fmt"
	"sync/atomic"
)

// Hit is a single search result
type Hit struct {
	ID       int64
	Distance float32 // squared Euclidean distance, lower is closer
}

// Index is an exhaustive (flat) squared-L2 index. The zero value is an empty
// index that has never been built.
type Index struct {
	state atomic.Pointer[snapshot]
}

// snapshot is the published, read-only state of a built index. Row o of data
// is data[o*dim:(o+1)*dim] and belongs to ids[o].
type snapshot struct {
	dim  int
	data []float32
	ids  []int64
}

// New creates an empty index
func New() *Index {
	return &Index{}
}

// Build replaces the index contents with vectors, where vectors[o] is stored
// under ids[o]. Ids are not checked for uniqueness. On error the previously
// built state, if any, stays in place.
func (x *Index) Build(vectors [][]float32, ids []int64) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("%w: %d vectors, %d ids", ErrLengthMismatch, len(vectors), len(ids))
	}
	if len(vectors) == 0 {
		return ErrEmptyInput
	}

	dim := len(vectors[0])
	if dim == 0 {
		return &DimensionError{Expected: 1, Actual: 0, Ordinal: 0}
	}
	for o, v := range vectors {
		if len(v) != dim {
			return &DimensionError{Expected: dim, Actual: len(v), Ordinal: o}
		}
	}

	s := &snapshot{
		dim:  dim,
		data: make([]float32, 0, dim*len(vectors)),
		ids:  make([]int64, len(ids)),
	}
	for _, v := range vectors {
		s.data = append(s.data, v...)
	}
	copy(s.ids, ids)

	x.state.Store(s)
	return nil
}

// Search returns the min(topK, Len()) stored vectors closest to query,
// ascending by distance. Equal distances keep insertion order.
func (x *Index) Search(query []float32, topK int) ([]Hit, error) {
	s := x.state.Load()
	if s == nil {
		return nil, ErrIndexNotBuilt
	}
	if topK < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != s.dim {
		return nil, &DimensionError{Expected: s.dim, Actual: len(query), Ordinal: -1}
	}

	n := len(s.ids)
	k := min(topK, n)

	q := make(candidateQueue, 0, k)
	heap.Init(&q)
	for o := 0; o < n; o++ {
		row := s.data[o*s.dim : (o+1)*s.dim]
		q.offer(candidate{ordinal: o, distance: SquaredL2(query, row)}, k)
	}

	best := q.drain()
	hits := make([]Hit, len(best))
	for i, c := range best {
		hits[i] = Hit{ID: s.ids[c.ordinal], Distance: c.distance}
	}
	return hits, nil
}

// Len returns the number of stored vectors, 0 if never built
func (x *Index) Len() int {
	if s := x.state.Load(); s != nil {
		return len(s.ids)
	}
	return 0
}

// Dimension returns the vector length fixed by the last build, 0 if never built
func (x *Index) Dimension() int {
	if s := x.state.Load(); s != nil {
		return s.dim
	}
	return 0
}

// Built reports whether a build has succeeded
func (x *Index) Built() bool {
	return x.state.Load() != nil
}

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both must have the same length.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
