package indexer

import (
	"fmt"
	"sync"
)

// Index is a collection of random projection trees sharing one random
// matrix. Grow builds it; Autotune additionally profiles it so Subset and
// OptimalParameters can be used.
//
// The trees are flat: split points live in a single slice, column-major by
// (node, tree), and each tree's leaves are the segments of one permutation
// of the dataset indices, delimited by the precomputed leaf layout.
type Index struct {
	data     *Matrix
	nSamples int
	dim      int

	nTrees  int
	depth   int // traversal depth; at most the grown depth
	density float32

	// rowStride is the random-matrix rows per tree block and splitStride
	// the split-point slots per tree column. Both are fixed by the grown
	// depth; Subset keeps them so that sliced storage stays addressable.
	rowStride   int
	splitStride int

	splits        []float32
	treeLeaves    [][]int32
	leafStartsAll [][]int32

	dense  *denseMatrix
	sparse *sparseMatrix

	pool    *workerPool
	scratch *sync.Pool

	// autotuning state
	tuner       *tuner
	k           int
	votes       int
	recallLevel float64 // < 0 until a target recall has been chosen
}

// New creates an index over data. The matrix is borrowed, not copied, and
// must stay alive and unmodified for the lifetime of the index. The index
// is empty until Grow or Autotune is called.
func New(data *Matrix) *Index {
	ix := &Index{
		data:        data,
		nSamples:    data.N(),
		dim:         data.Dim(),
		pool:        newWorkerPool(0),
		recallLevel: -1,
	}
	ix.resetScratch()
	return ix
}

// SetWorkers caps the parallelism of construction and queries. n <= 0
// restores the default (all CPUs). Not safe concurrently with queries.
func (ix *Index) SetWorkers(n int) {
	ix.pool = newWorkerPool(n)
}

// Grow builds trees of the given depth over the dataset. density picks the
// random matrix variant: 1 for dense, (0, 1) for sparse. A nonzero seed
// makes the index reproducible.
func (ix *Index) Grow(trees, depth int, density float32, seed int64) error {
	switch {
	case trees <= 0:
		return fmt.Errorf("indexer: trees = %d must be positive", trees)
	case depth <= 0 || depth > 30:
		return fmt.Errorf("indexer: depth = %d out of range [1, 30]", depth)
	case density <= 0 || density > 1:
		return fmt.Errorf("indexer: density = %v out of range (0, 1]", density)
	}
	var dense *denseMatrix
	var sparse *sparseMatrix
	if density < 1 {
		sparse = buildSparseRandom(trees*depth, ix.dim, density, seed)
	} else {
		dense = buildDenseRandom(trees*depth, ix.dim, seed)
	}
	ix.dense, ix.sparse = dense, sparse
	ix.growTrees(trees, depth, density)
	return nil
}

// growTrees builds the tree structures against the already-built random
// matrix. Each tree is built end-to-end by one worker from its own
// projection block.
func (ix *Index) growTrees(trees, depth int, density float32) {
	ix.nTrees = trees
	ix.depth = depth
	ix.density = density
	ix.rowStride = depth
	ix.splitStride = 1 << (depth + 1)
	ix.splits = make([]float32, trees*ix.splitStride)
	ix.treeLeaves = make([][]int32, trees)
	ix.leafStartsAll = countFirstLeafIndicesAll(ix.nSamples, depth)

	ix.pool.parallelFor(trees, func(t int) {
		ix.buildTree(t)
	})

	ix.tuner = nil
	ix.k = 0
	ix.votes = 0
	ix.recallLevel = -1
	ix.resetScratch()
}

// buildTree projects the dataset onto one tree's block of random vectors
// and recursively median-splits the index permutation.
func (ix *Index) buildTree(t int) {
	n := ix.nSamples
	proj := make([]float32, ix.depth*n)
	for l := 0; l < ix.depth; l++ {
		r := t*ix.rowStride + l
		out := proj[l*n : (l+1)*n]
		for j := 0; j < n; j++ {
			out[j] = ix.rmRow(r, ix.data.Row(j))
		}
	}

	indices := make([]int32, n)
	for j := range indices {
		indices[j] = int32(j)
	}
	ix.treeLeaves[t] = indices
	growSubtree(indices, 0, 0, ix.depth, proj, n, ix.splits[t*ix.splitStride:(t+1)*ix.splitStride])
}

// IsEmpty reports whether the index can serve queries. A Subset that could
// not meet its target recall is empty; its Query returns sentinels.
func (ix *Index) IsEmpty() bool { return ix.nTrees == 0 }

// NTrees returns the number of trees.
func (ix *Index) NTrees() int { return ix.nTrees }

// Depth returns the traversal depth.
func (ix *Index) Depth() int { return ix.depth }

// VoteThreshold returns the vote count chosen by the autotuner, or 0.
func (ix *Index) VoteThreshold() int { return ix.votes }

// NPoints returns the dataset size.
func (ix *Index) NPoints() int { return ix.nSamples }

// Dim returns the dataset dimension.
func (ix *Index) Dim() int { return ix.dim }

// SplitPoint returns the split threshold of a heap node of one tree.
func (ix *Index) SplitPoint(tree, node int) float32 {
	return ix.splits[tree*ix.splitStride+node]
}

// LeafSize returns the number of dataset points in one leaf. Leaf sizes are
// determined by the dataset size alone, so they are equal across trees.
func (ix *Index) LeafSize(leaf int) int {
	starts := ix.leafStartsAll[ix.depth]
	return int(starts[leaf+1] - starts[leaf])
}

// LeafPoint returns the i-th dataset index stored in one leaf of one tree.
func (ix *Index) LeafPoint(tree, leaf, i int) int {
	starts := ix.leafStartsAll[ix.depth]
	return int(ix.treeLeaves[tree][int(starts[leaf])+i])
}
