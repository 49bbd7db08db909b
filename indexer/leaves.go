package indexer

// countLeafSizes appends the leaf sizes of a median-split tree over n points
// at the given depth. When a range has an odd size, the extra point goes to
// the left branch.
func countLeafSizes(n, level, treeDepth int, out []int32) []int32 {
	if level == treeDepth {
		return append(out, int32(n))
	}
	out = countLeafSizes(n-n/2, level+1, treeDepth, out)
	return countLeafSizes(n/2, level+1, treeDepth, out)
}

// countFirstLeafIndices returns the prefix sums of the leaf sizes at depth:
// 2^depth + 1 entries, starting at 0 and ending at n.
func countFirstLeafIndices(n, depth int) []int32 {
	sizes := countLeafSizes(n, 0, depth, make([]int32, 0, 1<<depth))
	starts := make([]int32, len(sizes)+1)
	for i, s := range sizes {
		starts[i+1] = starts[i] + s
	}
	return starts
}

// countFirstLeafIndicesAll returns countFirstLeafIndices for every depth in
// [0, depthMax].
func countFirstLeafIndicesAll(n, depthMax int) [][]int32 {
	all := make([][]int32, depthMax+1)
	for d := 0; d <= depthMax; d++ {
		all[d] = countFirstLeafIndices(n, d)
	}
	return all
}
