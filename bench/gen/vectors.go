// Package gen creates synthetic datasets and ground truth for the bench
// drivers.
package gen

import (
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/ic-timon/mrpt/indexer"
)

// Normal returns an n × dim row-major matrix of N(0,1) entries.
func Normal(n, dim int, seed int64) []float32 {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	data := make([]float32, n*dim)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return data
}

// Uniform returns an n × dim row-major matrix of entries uniform in [0, 1).
func Uniform(n, dim int, seed int64) []float32 {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	data := make([]float32, n*dim)
	for i := range data {
		data[i] = float32(rng.Float64())
	}
	return data
}

// GroundTruth brute-forces the true k nearest neighbors of every query.
func GroundTruth(data, queries *indexer.Matrix, k int) [][]int32 {
	idx := indexer.New(data)
	out := make([][]int32, queries.N())
	workers := runtime.NumCPU()
	if workers > queries.N() {
		workers = queries.N()
	}
	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				out[i] = idx.ExactKNN(queries.Row(i), k)
			}
		}()
	}
	for i := 0; i < queries.N(); i++ {
		next <- i
	}
	close(next)
	wg.Wait()
	return out
}
