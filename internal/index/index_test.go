package index

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight/finrag-go/internal/adapters/store"
)

func TestCosine_Symmetric(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2}
	b := []float32{0.1, 0.9, -0.4}

	assert.InDelta(t, Cosine(a, b), Cosine(b, a), 1e-12)
}

func TestCosine_SelfSimilarityIsOne(t *testing.T) {
	a := []float32{2, -1, 0.5}

	assert.InDelta(t, 1.0, Cosine(a, a), 1e-9)
}

func TestCosine_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	a := []float32{1, 2, 3}

	assert.Equal(t, 0.0, Cosine(zero, a))
	assert.Equal(t, 0.0, Cosine(a, zero))
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestCosine_MismatchedLengths(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestCosine_Orthogonal(t *testing.T) {
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-12)
}

func TestIndex_SearchRanksByScore(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	_, err := x.Insert(ctx, "opposite", []float32{-1, 0})
	require.NoError(t, err)
	_, err = x.Insert(ctx, "close", []float32{0.9, 0.1})
	require.NoError(t, err)
	_, err = x.Insert(ctx, "exact", []float32{1, 0})
	require.NoError(t, err)

	results, err := x.Search(ctx, []float32{1, 0}, 10, -1)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].Unit.Text)
	assert.Equal(t, "close", results[1].Unit.Text)
	assert.Equal(t, "opposite", results[2].Unit.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestIndex_SearchHonorsKAndThreshold(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	vectors := [][]float32{{1, 0}, {0.8, 0.6}, {0.6, 0.8}, {0, 1}, {-1, 0}}
	for _, v := range vectors {
		_, err := x.Insert(ctx, "unit", v)
		require.NoError(t, err)
	}

	const k, threshold = 2, 0.5
	results, err := x.Search(ctx, []float32{1, 0}, k, threshold)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(results), k)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float64(threshold))
	}
}

func TestIndex_SearchTiesPreferNewest(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	_, err := x.Insert(ctx, "older", []float32{1, 0})
	require.NoError(t, err)
	_, err = x.Insert(ctx, "newer", []float32{1, 0})
	require.NoError(t, err)

	results, err := x.Search(ctx, []float32{1, 0}, 2, -1)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "newer", results[0].Unit.Text)
	assert.Equal(t, "older", results[1].Unit.Text)
}

func TestIndex_SearchNothingClearsThreshold(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	_, err := x.Insert(ctx, "weak match", []float32{0.3, 0.95})
	require.NoError(t, err)

	results, err := x.Search(ctx, []float32{1, 0}, 5, 0.45)
	require.NoError(t, err)

	assert.Empty(t, results)
}

func TestIndex_SearchZeroK(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	_, err := x.Insert(ctx, "unit", []float32{1, 0})
	require.NoError(t, err)

	results, err := x.Search(ctx, []float32{1, 0}, 0, -1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_DeleteRemovesFromSearch(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	id, err := x.Insert(ctx, "doomed", []float32{1, 0})
	require.NoError(t, err)

	require.NoError(t, x.Delete(ctx, id))

	units, err := x.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, units)

	results, err := x.Search(ctx, []float32{1, 0}, 5, -1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_RejectsMismatchedDimensions(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	_, err := x.Insert(ctx, "three dims", []float32{1, 0, 0})
	require.NoError(t, err)

	_, err = x.Insert(ctx, "two dims", []float32{1, 0})
	assert.Error(t, err)
}

func TestIndex_ScoreWithinBounds(t *testing.T) {
	ctx := context.Background()
	x := New(store.NewMemoryStore())

	vectors := [][]float32{{1, 2, 3}, {-4, 5, -6}, {0.001, 0, 0}, {7, 7, 7}}
	for _, v := range vectors {
		_, err := x.Insert(ctx, "unit", v)
		require.NoError(t, err)
	}

	results, err := x.Search(ctx, []float32{1, -1, 2}, 10, -1)
	require.NoError(t, err)

	for _, r := range results {
		assert.LessOrEqual(t, math.Abs(r.Score), 1.0+1e-9)
	}
}
