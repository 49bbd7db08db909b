package indexer

import (
	"runtime"
	"sync"
)

// workerPool bounds the fork-join parallelism of index construction, tree
// descent and exact search. All loops it runs are write-disjoint; callers
// provide the synchronization-free partitioning.
type workerPool struct {
	workers int
}

func newWorkerPool(workers int) *workerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &workerPool{workers: workers}
}

// parallelFor runs f(i) for i in [0, n), chunked across the pool's workers,
// and waits for completion. With one worker (or a tiny n) it runs inline.
func (p *workerPool) parallelFor(n int, f func(i int)) {
	workers := p.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				f(i)
			}
		}(lo, hi)
	}
	wg.Wait()
}
