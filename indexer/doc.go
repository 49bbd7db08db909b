// Package indexer implements a multiple random projection trees (MRPT)
// index for approximate nearest-neighbor search, with an autotuner that
// picks the cheapest (trees, depth, votes) configuration meeting a target
// recall.
//
// Quick start:
//
//	data, _ := indexer.NewMatrix(train, n, dim)
//	idx := indexer.New(data)
//	idx.Grow(32, 8, 1, 42)
//	nn := idx.Query(q, 10, 2)
//
// Autotuned:
//
//	queries, _ := indexer.NewMatrix(test, nTest, dim)
//	idx.Autotune(queries, indexer.TuneOptions{K: 10, TreesMax: 50, DepthMin: 5, DepthMax: 9, VotesMax: 10, Density: 1, Seed: 42})
//	fast := idx.Subset(0.9)
//	nn := fast.QueryTuned(q)
package indexer
