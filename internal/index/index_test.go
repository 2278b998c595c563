package index

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildIndex(t *testing.T, vectors [][]float32, ids []int64) *Index {
	t.Helper()
	idx := New()
	require.NoError(t, idx.Build(vectors, ids))
	return idx
}

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, float32(25), SquaredL2([]float32{0, 0}, []float32{3, 4}))
	assert.Equal(t, float32(0), SquaredL2([]float32{1, 2, 3}, []float32{1, 2, 3}))
	assert.InDelta(t, 0.5, SquaredL2([]float32{0.5, 0}, []float32{0, 0.5}), 1e-6)
}

func TestSearchReturnsCallerIDs(t *testing.T) {
	idx := buildIndex(t,
		[][]float32{{0, 0}, {1, 1}, {10, 10}},
		[]int64{101, 102, 103},
	)

	hits, err := idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 101, Distance: 0}, {ID: 102, Distance: 2}}, hits)
}

func TestSearchOrdersByDistance(t *testing.T) {
	idx := buildIndex(t,
		[][]float32{{5, 5}, {1, 0}, {3, 0}, {0, 2}},
		[]int64{1, 2, 3, 4},
	)

	hits, err := idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []int64{2, 4, 3, 1}, ids)
	assert.Equal(t, []float32{1, 4, 9, 50}, []float32{hits[0].Distance, hits[1].Distance, hits[2].Distance, hits[3].Distance})
}

func TestSearchClampsTopK(t *testing.T) {
	idx := buildIndex(t,
		[][]float32{{2}, {0}, {1}},
		[]int64{7, 8, 9},
	)

	hits, err := idx.Search([]float32{0}, 50)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 8, Distance: 0}, {ID: 9, Distance: 1}, {ID: 7, Distance: 4}}, hits)
}

func TestSearchBreaksTiesByInsertionOrder(t *testing.T) {
	idx := buildIndex(t,
		[][]float32{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {0, 0}},
		[]int64{40, 30, 20, 10, 99},
	)

	hits, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 99, Distance: 0}, {ID: 40, Distance: 1}, {ID: 30, Distance: 1}}, hits)

	hits, err = idx.Search([]float32{0, 0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{99, 40, 30, 20, 10}, []int64{hits[0].ID, hits[1].ID, hits[2].ID, hits[3].ID, hits[4].ID})
}

func TestSearchIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vectors, ids := randomVectors(rng, 200, 8)
	idx := buildIndex(t, vectors, ids)

	query := vectors[17]
	first, err := idx.Search(query, 10)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := idx.Search(query, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearchMatchesExhaustiveSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vectors, ids := randomVectors(rng, 300, 16)
	idx := buildIndex(t, vectors, ids)

	query := make([]float32, 16)
	for i := range query {
		query[i] = rng.Float32()
	}

	type scored struct {
		ordinal int
		dist    float32
	}
	all := make([]scored, len(vectors))
	for o, v := range vectors {
		all[o] = scored{ordinal: o, dist: SquaredL2(query, v)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].dist < all[j].dist })

	hits, err := idx.Search(query, 25)
	require.NoError(t, err)
	require.Len(t, hits, 25)
	for i, h := range hits {
		assert.Equal(t, ids[all[i].ordinal], h.ID)
		assert.Equal(t, all[i].dist, h.Distance)
		if i > 0 {
			assert.LessOrEqual(t, hits[i-1].Distance, h.Distance)
		}
	}
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		ids     []int64
		want    error
	}{
		{"empty", [][]float32{}, []int64{}, ErrEmptyInput},
		{"nil", nil, nil, ErrEmptyInput},
		{"more ids", [][]float32{{1}}, []int64{1, 2}, ErrLengthMismatch},
		{"more vectors", [][]float32{{1}, {2}}, []int64{1}, ErrLengthMismatch},
		{"ragged", [][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8}}, []int64{1, 2, 3}, ErrDimensionMismatch},
		{"zero length", [][]float32{{}, {}}, []int64{1, 2}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := New()
			err := idx.Build(tt.vectors, tt.ids)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, idx.Built())
		})
	}
}

func TestBuildDimensionErrorDetails(t *testing.T) {
	err := New().Build([][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8}}, []int64{1, 2, 3})

	var dimErr *DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
	assert.Equal(t, 2, dimErr.Ordinal)
}

func TestSearchGuards(t *testing.T) {
	_, err := New().Search([]float32{1}, 1)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)

	var zero Index
	_, err = zero.Search([]float32{1}, 1)
	assert.ErrorIs(t, err, ErrIndexNotBuilt)

	idx := buildIndex(t, [][]float32{{1, 2, 3}}, []int64{1})

	_, err = idx.Search([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Search([]float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestRebuildReplacesState(t *testing.T) {
	idx := buildIndex(t, [][]float32{{0, 0}, {1, 1}}, []int64{1, 2})
	require.NoError(t, idx.Build([][]float32{{0, 0, 0}, {5, 5, 5}, {9, 9, 9}}, []int64{10, 20, 30}))

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dimension())

	hits, err := idx.Search([]float32{0, 0, 0}, 10)
	require.NoError(t, err)
	for _, h := range hits {
		assert.Contains(t, []int64{10, 20, 30}, h.ID)
	}

	_, err = idx.Search([]float32{0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFailedRebuildKeepsPreviousState(t *testing.T) {
	idx := buildIndex(t, [][]float32{{0, 0}, {1, 1}}, []int64{1, 2})

	err := idx.Build([][]float32{{1, 1, 1}, {2, 2}}, []int64{5, 6})
	require.ErrorIs(t, err, ErrDimensionMismatch)

	hits, err := idx.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 2, Distance: 0}}, hits)
}

func TestBuildCopiesInput(t *testing.T) {
	vectors := [][]float32{{0, 0}, {4, 4}}
	ids := []int64{1, 2}
	idx := buildIndex(t, vectors, ids)

	vectors[0][0] = 100
	ids[0] = 77

	hits, err := idx.Search([]float32{0, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 1, Distance: 0}}, hits)
}

func TestDuplicateIDsAreAccepted(t *testing.T) {
	idx := buildIndex(t, [][]float32{{0}, {1}}, []int64{5, 5})

	hits, err := idx.Search([]float32{0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 5, Distance: 0}, {ID: 5, Distance: 1}}, hits)
}

func TestConcurrentSearchDuringRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	setA, idsA := randomVectors(rng, 100, 4)
	setB, _ := randomVectors(rng, 100, 4)
	idsB := make([]int64, len(setB))
	for i := range idsB {
		idsB[i] = int64(1000 + i)
	}

	idx := buildIndex(t, setA, idsA)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				hits, err := idx.Search([]float32{0.5, 0.5, 0.5, 0.5}, 5)
				if err != nil {
					t.Error(err)
					return
				}
				// every result set comes from exactly one build
				fromB := hits[0].ID >= 1000
				for _, h := range hits {
					if (h.ID >= 1000) != fromB {
						t.Errorf("mixed snapshot: %v", hits)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			require.NoError(t, idx.Build(setB, idsB))
		} else {
			require.NoError(t, idx.Build(setA, idsA))
		}
	}
	wg.Wait()
}

func randomVectors(rng *rand.Rand, n, dim int) ([][]float32, []int64) {
	vectors := make([][]float32, n)
	ids := make([]int64, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
		ids[i] = int64(i + 1)
	}
	return vectors, ids
}

func BenchmarkSearch(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	vectors, ids := randomVectors(rng, 10000, 384)
	idx := New()
	if err := idx.Build(vectors, ids); err != nil {
		b.Fatal(err)
	}
	query := vectors[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Search(query, 5); err != nil {
			b.Fatal(err)
		}
	}
}
