package indexer

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"
)

// With votesRequired = 1 the candidate set is the union of the reached
// leaves: no duplicates, bounded by trees * ceil(n/2^depth), and the output
// is the exact k nearest of that union.
func TestQueryElectsLeafUnion(t *testing.T) {
	const n, dim, trees, depth = 200, 4, 5, 3
	data := randomData(t, n, dim, 6)
	ix := New(data)
	if err := ix.Grow(trees, depth, 1, 11); err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewPCG(6, 6))
	for trial := 0; trial < 10; trial++ {
		q := make([]float32, dim)
		for i := range q {
			q[i] = float32(rng.NormFloat64())
		}
		out := make([]int32, n)
		dists := make([]float32, n)
		nElected := ix.QueryInto(q, n, 1, out, dists)

		maxLeaf := (n + (1 << depth) - 1) / (1 << depth)
		if nElected > trees*maxLeaf {
			t.Fatalf("trial %d: %d elected, bound %d", trial, nElected, trees*maxLeaf)
		}
		seen := map[int32]bool{}
		for i := 0; i < nElected; i++ {
			if out[i] < 0 {
				t.Fatalf("trial %d: sentinel inside the first %d slots", trial, nElected)
			}
			if seen[out[i]] {
				t.Fatalf("trial %d: candidate %d elected twice", trial, out[i])
			}
			seen[out[i]] = true
		}
		for i := nElected; i < n; i++ {
			if out[i] != -1 || dists[i] != -1 {
				t.Fatalf("trial %d: slot %d not sentinel", trial, i)
			}
		}
		// distances are sorted square roots of exact squared distances
		for i := 0; i < nElected; i++ {
			var want float64
			row := data.Row(int(out[i]))
			for j := range q {
				d := float64(row[j]) - float64(q[j])
				want += d * d
			}
			if diff := math.Abs(float64(dists[i]) - math.Sqrt(want)); diff > 1e-4 {
				t.Fatalf("trial %d: distance %d = %g, want %g", trial, i, dists[i], math.Sqrt(want))
			}
			if i > 0 && dists[i] < dists[i-1] {
				t.Fatalf("trial %d: distances not sorted at %d", trial, i)
			}
		}
	}
}

// Candidate sets with votesRequired = 1 stay within the leaf-size bound for
// every query.
func TestCandidateSetBound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	const n, dim, trees, depth = 1000, 4, 10, 5
	data := randomData(t, n, dim, 7)
	ix := New(data)
	if err := ix.Grow(trees, depth, 1, 13); err != nil {
		t.Fatal(err)
	}
	bound := trees * (n/(1<<depth) + 1)
	out := make([]int32, 10)
	for i := 0; i < 100; i++ {
		nElected := ix.QueryInto(data.Row(i), 10, 1, out, nil)
		if nElected > bound {
			t.Fatalf("query %d: %d elected, bound %d", i, nElected, bound)
		}
	}
}

func TestQueryUnderElected(t *testing.T) {
	const n, dim, trees, depth = 100, 3, 4, 2
	data := randomData(t, n, dim, 8)
	ix := New(data)
	if err := ix.Grow(trees, depth, 1, 5); err != nil {
		t.Fatal(err)
	}

	// a threshold above the tree count can never be reached
	out := make([]int32, 5)
	dists := make([]float32, 5)
	nElected := ix.QueryInto(data.Row(0), 5, trees+1, out, dists)
	if nElected != 0 {
		t.Fatalf("%d elected with votesRequired > trees", nElected)
	}
	for i := range out {
		if out[i] != -1 || dists[i] != -1 {
			t.Fatalf("slot %d: (%d, %g), want sentinels", i, out[i], dists[i])
		}
	}
}

func TestQueryK1(t *testing.T) {
	const n, dim = 150, 5
	data := randomData(t, n, dim, 9)
	ix := New(data)
	if err := ix.Grow(6, 3, 1, 21); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		q := data.Row(i)
		got := ix.Query(q, 1, 1)
		// the query point itself is always in its own leaf in every tree
		if got[0] != int32(i) {
			t.Errorf("query %d: nearest = %d, want itself", i, got[0])
		}
	}
}

func TestQueryOnEmptyIndex(t *testing.T) {
	data := randomData(t, 10, 2, 10)
	ix := New(data)
	out := ix.Query([]float32{0, 0}, 3, 1)
	for i, v := range out {
		if v != -1 {
			t.Errorf("slot %d = %d, want -1", i, v)
		}
	}
	if got := ix.QueryTuned([]float32{0, 0}); got != nil {
		t.Errorf("QueryTuned on untuned index = %v, want nil", got)
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	data := randomData(t, 20, 4, 11)
	ix := New(data)
	if err := ix.Grow(2, 2, 1, 3); err != nil {
		t.Fatal(err)
	}
	out := ix.Query([]float32{1, 2}, 2, 1)
	if out[0] != -1 || out[1] != -1 {
		t.Errorf("mismatched query dimension: got %v, want sentinels", out)
	}
}

func TestExactKNNBruteForce(t *testing.T) {
	const n, dim, k = 80, 4, 7
	data := randomData(t, n, dim, 12)
	ix := New(data)
	q := data.Row(3)

	got := ix.ExactKNN(q, k)

	type cand struct {
		idx  int
		dist float64
	}
	cands := make([]cand, n)
	for i := 0; i < n; i++ {
		var d float64
		row := data.Row(i)
		for j := range q {
			diff := float64(row[j]) - float64(q[j])
			d += diff * diff
		}
		cands[i] = cand{i, d}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
	for i := 0; i < k; i++ {
		if int(got[i]) != cands[i].idx {
			t.Errorf("rank %d: got %d want %d", i, got[i], cands[i].idx)
		}
	}
}

func TestConcurrentQueries(t *testing.T) {
	const n, dim = 300, 6
	data := randomData(t, n, dim, 13)
	ix := New(data)
	if err := ix.Grow(8, 4, 1, 77); err != nil {
		t.Fatal(err)
	}
	want := make([][]int32, 50)
	for i := range want {
		want[i] = ix.Query(data.Row(i), 5, 2)
	}
	done := make(chan bool)
	for w := 0; w < 4; w++ {
		go func() {
			ok := true
			for i := range want {
				got := ix.Query(data.Row(i), 5, 2)
				for j := range got {
					if got[j] != want[i][j] {
						ok = false
					}
				}
			}
			done <- ok
		}()
	}
	for w := 0; w < 4; w++ {
		if !<-done {
			t.Fatal("concurrent query result diverged")
		}
	}
}
