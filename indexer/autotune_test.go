package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func autotunedIndex(t *testing.T) (*Index, *Matrix, *Matrix, TuneOptions) {
	t.Helper()
	const n, dim, nTest = 400, 8, 20
	data := randomData(t, n, dim, 40)
	queries := randomData(t, nTest, dim, 41)
	opts := TuneOptions{
		K:        5,
		TreesMax: 8,
		DepthMin: 2,
		DepthMax: 4,
		VotesMax: 3,
		Density:  1,
		Seed:     7,
	}
	idx := New(data)
	require.NoError(t, idx.Autotune(queries, opts))
	return idx, data, queries, opts
}

func TestAutotuneValidation(t *testing.T) {
	data := randomData(t, 50, 4, 42)
	queries := randomData(t, 5, 4, 43)
	idx := New(data)

	err := idx.Autotune(queries, TuneOptions{K: 51, TreesMax: 4, DepthMin: 1, DepthMax: 2, VotesMax: 2, Density: 1})
	assert.Error(t, err, "k larger than the dataset")

	err = idx.Autotune(queries, TuneOptions{K: 5, TreesMax: 4, DepthMin: 3, DepthMax: 2, VotesMax: 2, Density: 1})
	assert.Error(t, err, "inverted depth range")

	wrongDim := randomData(t, 5, 3, 44)
	err = idx.Autotune(wrongDim, TuneOptions{K: 5, TreesMax: 4, DepthMin: 1, DepthMax: 2, VotesMax: 2, Density: 1})
	assert.Error(t, err, "query dimension mismatch")

	err = idx.Autotune(nil, TuneOptions{})
	assert.Error(t, err, "nil queries")
}

func TestParetoFrontier(t *testing.T) {
	idx, _, _, _ := autotunedIndex(t)

	list := idx.OptimalParameterList()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, list[i].EstimatedQueryTime, list[i-1].EstimatedQueryTime,
			"estimated query time must ascend along the frontier")
		assert.Greater(t, list[i].EstimatedRecall, list[i-1].EstimatedRecall,
			"estimated recall must strictly increase along the frontier")
	}

	first := idx.OptimalParameters(0)
	assert.False(t, first.IsZero())
	assert.Equal(t, list[0], first)

	assert.True(t, idx.OptimalParameters(1.1).IsZero(), "impossible target must return the empty record")

	if len(list) >= 2 {
		lo := idx.OptimalParameters(list[0].EstimatedRecall)
		hi := idx.OptimalParameters(list[len(list)-1].EstimatedRecall)
		assert.LessOrEqual(t, lo.EstimatedQueryTime, hi.EstimatedQueryTime)
		assert.LessOrEqual(t, lo.EstimatedRecall, hi.EstimatedRecall)
	}
}

// The replayed estimate at full depth, all trees and vote threshold one
// must equal a direct recall measurement: the candidate sets are identical
// and every true neighbor among the candidates survives the exact top-k.
func TestRecallEstimateMatchesMeasurement(t *testing.T) {
	idx, _, queries, opts := autotunedIndex(t)

	estimated := idx.tuner.recall(opts.TreesMax, opts.DepthMax, 1)

	var direct float64
	for i := 0; i < queries.N(); i++ {
		q := queries.Row(i)
		exact := idx.ExactKNN(q, opts.K)
		approx := idx.Query(q, opts.K, 1)
		in := map[int32]bool{}
		for _, e := range exact {
			in[e] = true
		}
		hits := 0
		for _, a := range approx {
			if a >= 0 && in[a] {
				hits++
			}
		}
		direct += float64(hits) / float64(opts.K)
	}
	direct /= float64(queries.N())

	assert.InDelta(t, direct, estimated, 1e-9)
}

func TestSubsetMatchesReducedTraversal(t *testing.T) {
	idx, _, queries, opts := autotunedIndex(t)

	list := idx.OptimalParameterList()
	require.NotEmpty(t, list)
	target := list[len(list)-1].EstimatedRecall
	par := idx.OptimalParameters(target)
	require.False(t, par.IsZero())

	sub := idx.Subset(target)
	require.False(t, sub.IsEmpty())
	assert.Equal(t, par.Trees, sub.NTrees())
	assert.Equal(t, par.Depth, sub.Depth())
	assert.Equal(t, par.Votes, sub.VoteThreshold())

	// the subset shares storage: its traversal must match voting on the
	// parent at the reduced depth and tree count
	bufs := idx.scratch.Get().(*queryBufs)
	defer idx.scratch.Put(bufs)
	expected := make([]int32, opts.K)
	got := make([]int32, opts.K)
	for i := 0; i < queries.N(); i++ {
		q := queries.Row(i)
		idx.projectQuery(q, bufs.proj)
		elected := idx.vote(bufs.proj, par.Votes, par.Trees, par.Depth, bufs)
		idx.exactKNN(q, opts.K, elected, expected, nil, bufs)

		sub.QueryInto(q, opts.K, par.Votes, got, nil)
		for j := 0; j < opts.K; j++ {
			require.Equal(t, expected[j], got[j], "query %d slot %d", i, j)
		}

		tuned := sub.QueryTuned(q)
		require.Len(t, tuned, opts.K)
		for j := 0; j < opts.K; j++ {
			assert.Equal(t, expected[j], tuned[j])
		}
	}
}

func TestSubsetUnreachableTarget(t *testing.T) {
	idx, _, queries, opts := autotunedIndex(t)

	sub := idx.Subset(1.5)
	assert.True(t, sub.IsEmpty())
	out := sub.Query(queries.Row(0), opts.K, 1)
	for _, v := range out {
		assert.Equal(t, int32(-1), v)
	}
	tuned := sub.QueryTuned(queries.Row(0))
	require.Len(t, tuned, opts.K)
	for _, v := range tuned {
		assert.Equal(t, int32(-1), v)
	}
}

func TestDeleteExtraTrees(t *testing.T) {
	idx, _, queries, _ := autotunedIndex(t)

	list := idx.OptimalParameterList()
	require.NotEmpty(t, list)
	target := list[0].EstimatedRecall
	par := idx.OptimalParameters(target)
	sub := idx.Subset(target)

	idx.DeleteExtraTrees(target)
	assert.Equal(t, par.Trees, idx.NTrees())
	assert.Equal(t, par.Depth, idx.Depth())
	assert.Equal(t, par.Votes, idx.VoteThreshold())

	for i := 0; i < queries.N(); i++ {
		want := sub.QueryTuned(queries.Row(i))
		got := idx.QueryTuned(queries.Row(i))
		require.Equal(t, want, got, "query %d", i)
	}
}

func TestAutotuneSparse(t *testing.T) {
	const n, dim, nTest = 300, 8, 10
	data := randomData(t, n, dim, 50)
	queries := randomData(t, nTest, dim, 51)
	idx := New(data)
	err := idx.Autotune(queries, TuneOptions{
		K: 3, TreesMax: 5, DepthMin: 2, DepthMax: 3, VotesMax: 2, Density: 0.4, Seed: 3,
	})
	require.NoError(t, err)
	list := idx.OptimalParameterList()
	require.NotEmpty(t, list)

	sub := idx.Subset(list[0].EstimatedRecall)
	require.False(t, sub.IsEmpty())
	out := sub.QueryTuned(queries.Row(0))
	assert.Len(t, out, 3)
}

func TestDefaultTuneOptions(t *testing.T) {
	o := DefaultTuneOptions(60000, 784)
	assert.Equal(t, 10, o.K)
	assert.GreaterOrEqual(t, o.DepthMax, o.DepthMin)
	assert.Positive(t, o.VotesMax)
	assert.InDelta(t, 1/28.0, float64(o.Density), 1e-6)
	assert.NoError(t, o.validate(60000))
}
