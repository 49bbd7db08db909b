package indexer

import (
	"math"
	"sort"
	"time"

	"github.com/ic-timon/mrpt/simd"
)

// exact distance loops below this candidate count are cheaper serial
const exactParallelThreshold = 2048

// QueryTimings is the wall-clock breakdown of one query, in seconds.
type QueryTimings struct {
	Projection float64
	Voting     float64
	Exact      float64
}

// Query returns the k approximate nearest neighbors of q by squared
// Euclidean distance. A point becomes a candidate for the exact comparison
// once votesRequired trees route the query into a leaf containing it. Slots
// beyond the number of elected candidates hold -1.
func (ix *Index) Query(q []float32, k, votesRequired int) []int32 {
	if k <= 0 {
		return nil
	}
	out := make([]int32, k)
	ix.QueryInto(q, k, votesRequired, out, nil)
	return out
}

// QueryInto is Query with caller-owned buffers. out must have length at
// least k; outDist, when non-nil, receives the Euclidean distances (square
// roots) in the same positions. Returns the candidate set size.
func (ix *Index) QueryInto(q []float32, k, votesRequired int, out []int32, outDist []float32) int {
	return ix.queryTimed(q, k, votesRequired, out, outDist, nil)
}

// QueryTimed is QueryInto with a per-phase timing breakdown, used by the
// bench drivers.
func (ix *Index) QueryTimed(q []float32, k, votesRequired int, out []int32, outDist []float32, tm *QueryTimings) int {
	return ix.queryTimed(q, k, votesRequired, out, outDist, tm)
}

// QueryTuned queries with the k and vote threshold the autotuner selected.
// Returns nil until a target recall has been chosen via Subset,
// DeleteExtraTrees or GrowAutotuned.
func (ix *Index) QueryTuned(q []float32) []int32 {
	if ix.recallLevel < 0 || ix.k <= 0 {
		return nil
	}
	out := make([]int32, ix.k)
	ix.queryTimed(q, ix.k, ix.votes, out, nil, nil)
	return out
}

func (ix *Index) queryTimed(q []float32, k, votesRequired int, out []int32, outDist []float32, tm *QueryTimings) int {
	if k <= 0 {
		return 0
	}
	if ix.IsEmpty() || len(q) != ix.dim || votesRequired <= 0 {
		fillSentinels(out[:k], outDist, 0)
		return 0
	}

	bufs := ix.scratch.Get().(*queryBufs)
	defer ix.scratch.Put(bufs)

	var t0 time.Time
	if tm != nil {
		t0 = time.Now()
	}
	ix.projectQuery(q, bufs.proj)
	if tm != nil {
		t1 := time.Now()
		tm.Projection = t1.Sub(t0).Seconds()
		t0 = t1
	}

	elected := ix.vote(bufs.proj, votesRequired, ix.nTrees, ix.depth, bufs)
	if tm != nil {
		t1 := time.Now()
		tm.Voting = t1.Sub(t0).Seconds()
		t0 = t1
	}

	ix.exactKNN(q, k, elected, out, outDist, bufs)
	if tm != nil {
		tm.Exact = time.Since(t0).Seconds()
	}
	return len(elected)
}

// projectQuery projects q onto every random vector the current traversal
// uses. With a subset index the per-tree blocks keep the grown stride, so
// only the first depth rows of each block are evaluated.
func (ix *Index) projectQuery(q []float32, proj []float32) {
	for t := 0; t < ix.nTrees; t++ {
		base := t * ix.rowStride
		for d := 0; d < ix.depth; d++ {
			proj[base+d] = ix.rmRow(base+d, q)
		}
	}
}

// vote descends the first nTrees trees to their leaves at depthCrnt and
// accumulates votes per dataset index. Candidates enter the returned slice
// in the order they reach votesRequired; the slice aliases bufs and is
// valid until the next use of bufs.
func (ix *Index) vote(proj []float32, votesRequired, nTrees, depthCrnt int, bufs *queryBufs) []int32 {
	leaves := bufs.leaves[:nTrees]
	ix.pool.parallelFor(nTrees, func(t int) {
		col := ix.splits[t*ix.splitStride:]
		base := t * ix.rowStride
		node := 0
		for d := 0; d < depthCrnt; d++ {
			if proj[base+d] <= col[node] {
				node = 2*node + 1
			} else {
				node = 2*node + 2
			}
		}
		leaves[t] = int32(node - (1 << depthCrnt) + 1)
	})

	starts := ix.leafStartsAll[depthCrnt]
	votes := bufs.votes
	elected := bufs.elected[:0]
	// the accumulation must stay sequential across trees: election order is
	// the order in which candidates first reach the threshold
	for t := 0; t < nTrees; t++ {
		leaf := leaves[t]
		for _, di := range ix.treeLeaves[t][starts[leaf]:starts[leaf+1]] {
			votes[di]++
			if votes[di] == int32(votesRequired) {
				elected = append(elected, di)
			}
		}
	}
	// restore the all-zero counter invariant
	for t := 0; t < nTrees; t++ {
		leaf := leaves[t]
		for _, di := range ix.treeLeaves[t][starts[leaf]:starts[leaf+1]] {
			votes[di] = 0
		}
	}
	bufs.elected = elected
	return elected
}

// exactKNN writes the k candidates nearest to q into out, with -1 in any
// slot beyond the candidate count. Ties in distance keep election order.
func (ix *Index) exactKNN(q []float32, k int, candidates []int32, out []int32, outDist []float32, bufs *queryBufs) {
	nc := len(candidates)
	if nc == 0 {
		fillSentinels(out[:k], outDist, 0)
		return
	}
	dists := bufs.ensureDists(nc)
	if nc >= exactParallelThreshold {
		ix.pool.parallelFor(nc, func(i int) {
			dists[i] = simd.SquaredDistance(ix.data.Row(int(candidates[i])), q)
		})
	} else {
		for i, c := range candidates {
			dists[i] = simd.SquaredDistance(ix.data.Row(int(c)), q)
		}
	}

	if k == 1 {
		best := 0
		for i := 1; i < nc; i++ {
			if dists[i] < dists[best] {
				best = i
			}
		}
		out[0] = candidates[best]
		if outDist != nil {
			outDist[0] = float32(math.Sqrt(float64(dists[best])))
		}
		return
	}

	order := bufs.ensureOrder(nc)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dists[order[a]] < dists[order[b]]
	})

	n := k
	if nc < n {
		n = nc
	}
	for i := 0; i < n; i++ {
		out[i] = candidates[order[i]]
		if outDist != nil {
			outDist[i] = float32(math.Sqrt(float64(dists[order[i]])))
		}
	}
	fillSentinels(out[:k], outDist, n)
}

// ExactKNN brute-forces the true k nearest neighbors of q over the whole
// dataset. Usable on an ungrown index; the bench drivers use it to build
// ground truth.
func (ix *Index) ExactKNN(q []float32, k int) []int32 {
	if k <= 0 {
		return nil
	}
	all := make([]int32, ix.nSamples)
	for i := range all {
		all[i] = int32(i)
	}
	out := make([]int32, k)
	bufs := ix.scratch.Get().(*queryBufs)
	defer ix.scratch.Put(bufs)
	ix.exactKNN(q, k, all, out, nil, bufs)
	return out
}

func fillSentinels(out []int32, outDist []float32, from int) {
	for i := from; i < len(out); i++ {
		out[i] = -1
	}
	if outDist != nil {
		for i := from; i < len(out); i++ {
			outDist[i] = -1
		}
	}
}
