package indexer

import "sync"

// queryBufs holds the per-query scratch: the projected query, the per-tree
// leaf slots, the vote counters and the election list. Concurrent queries
// each take their own set from the index's scratch pool; votes is all-zero
// between uses.
type queryBufs struct {
	proj    []float32
	leaves  []int32
	votes   []int32
	elected []int32
	dists   []float32
	order   []int
}

func (ix *Index) newQueryBufs() *queryBufs {
	maxLeaf := 1
	if ix.depth > 0 {
		maxLeaf = ix.nSamples/(1<<ix.depth) + 1
	}
	return &queryBufs{
		proj:    make([]float32, ix.nTrees*ix.rowStride),
		leaves:  make([]int32, ix.nTrees),
		votes:   make([]int32, ix.nSamples),
		elected: make([]int32, 0, ix.nTrees*maxLeaf),
	}
}

// resetScratch rebuilds the scratch pool after the index shape changes.
func (ix *Index) resetScratch() {
	ix.scratch = &sync.Pool{New: func() any { return ix.newQueryBufs() }}
}

func (b *queryBufs) ensureDists(n int) []float32 {
	if cap(b.dists) < n {
		b.dists = make([]float32, n)
	}
	b.dists = b.dists[:n]
	return b.dists
}

func (b *queryBufs) ensureOrder(n int) []int {
	if cap(b.order) < n {
		b.order = make([]int, n)
	}
	b.order = b.order[:n]
	return b.order
}
