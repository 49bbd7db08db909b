package indexer

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// countElected replays vote counting for one test query against its exact
// neighbor set. For every depth in [depthMin, depth] it walks the trees in
// order and, for each (vote threshold v, tree count t) pair, accumulates
// into recalls the number of exact neighbors with at least v votes after t
// trees, and into csSizes the matching candidate-set size. exact must be
// sorted ascending.
func (ix *Index) countElected(q []float32, exact []int32, votesMax, depthMin int, recalls, csSizes []*mat.Dense, bufs *queryBufs) {
	ix.projectQuery(q, bufs.proj)

	nDepths := ix.depth - depthMin + 1
	// leafAt[t*nDepths + i] is the leaf tree t reaches at depth depthMin+i
	leafAt := make([]int32, ix.nTrees*nDepths)
	ix.pool.parallelFor(ix.nTrees, func(t int) {
		col := ix.splits[t*ix.splitStride:]
		base := t * ix.rowStride
		node := 0
		for d := 0; d < ix.depth; d++ {
			if proj := bufs.proj[base+d]; proj <= col[node] {
				node = 2*node + 1
			} else {
				node = 2*node + 2
			}
			if d >= depthMin-1 {
				leafAt[t*nDepths+d-depthMin+1] = int32(node - (1 << (d + 1)) + 1)
			}
		}
	})

	votes := bufs.votes
	recCol := make([]float64, votesMax)
	csCol := make([]float64, votesMax)
	for depthCrnt := depthMin; depthCrnt <= ix.depth; depthCrnt++ {
		starts := ix.leafStartsAll[depthCrnt]
		rec := recalls[depthCrnt-depthMin]
		cs := csSizes[depthCrnt-depthMin]
		for v := range recCol {
			recCol[v] = 0
			csCol[v] = 0
		}

		for t := 0; t < ix.nTrees; t++ {
			leaf := leafAt[t*nDepths+depthCrnt-depthMin]
			for _, di := range ix.treeLeaves[t][starts[leaf]:starts[leaf+1]] {
				votes[di]++
				if v := int(votes[di]); v <= votesMax {
					csCol[v-1]++
					if containsSorted(exact, di) {
						recCol[v-1]++
					}
				}
			}
			for v := 0; v < votesMax; v++ {
				rec.Set(v, t, rec.At(v, t)+recCol[v])
				cs.Set(v, t, cs.At(v, t)+csCol[v])
			}
		}

		for t := 0; t < ix.nTrees; t++ {
			leaf := leafAt[t*nDepths+depthCrnt-depthMin]
			for _, di := range ix.treeLeaves[t][starts[leaf]:starts[leaf+1]] {
				votes[di] = 0
			}
		}
	}
}

// computeExact brute-forces the true k nearest neighbors of every test
// query, each result sorted ascending for the membership tests above.
func (ix *Index) computeExact(queries *Matrix, k int) [][]int32 {
	all := make([]int32, ix.nSamples)
	for i := range all {
		all[i] = int32(i)
	}
	out := make([][]int32, queries.N())
	ix.pool.parallelFor(queries.N(), func(i int) {
		bufs := ix.scratch.Get().(*queryBufs)
		defer ix.scratch.Put(bufs)
		res := make([]int32, k)
		ix.exactKNN(queries.Row(i), k, all, res, nil, bufs)
		sort.Slice(res, func(a, b int) bool { return res[a] < res[b] })
		out[i] = res
	})
	return out
}

func containsSorted(sorted []int32, x int32) bool {
	i := sort.Search(len(sorted), func(j int) bool { return sorted[j] >= x })
	return i < len(sorted) && sorted[i] == x
}
