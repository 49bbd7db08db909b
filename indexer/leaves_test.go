package indexer

import "testing"

func TestCountLeafSizes(t *testing.T) {
	cases := []struct {
		n, depth int
		want     []int32
	}{
		{1, 0, []int32{1}},
		{2, 1, []int32{1, 1}},
		{3, 1, []int32{2, 1}},
		{11, 3, []int32{2, 1, 2, 1, 2, 1, 1, 1}},
		{8, 3, []int32{1, 1, 1, 1, 1, 1, 1, 1}},
		{5, 3, []int32{1, 1, 1, 0, 1, 0, 1, 0}},
	}
	for _, c := range cases {
		got := countLeafSizes(c.n, 0, c.depth, nil)
		if len(got) != len(c.want) {
			t.Fatalf("n=%d depth=%d: got %d leaves, want %d", c.n, c.depth, len(got), len(c.want))
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("n=%d depth=%d: leaf %d = %d, want %d", c.n, c.depth, i, got[i], c.want[i])
			}
		}
	}
}

func TestLeafSizeInvariants(t *testing.T) {
	for _, n := range []int{1, 2, 7, 11, 64, 100, 1000, 4097} {
		for depth := 0; depth <= 6; depth++ {
			sizes := countLeafSizes(n, 0, depth, nil)
			if len(sizes) != 1<<depth {
				t.Fatalf("n=%d depth=%d: %d leaves, want %d", n, depth, len(sizes), 1<<depth)
			}
			var sum int32
			for _, s := range sizes {
				sum += s
			}
			if int(sum) != n {
				t.Errorf("n=%d depth=%d: leaf sizes sum to %d", n, depth, sum)
			}
			// odd splits put the extra point left, so the left sibling is
			// never smaller
			for i := 0; i < len(sizes); i += 2 {
				if i+1 < len(sizes) && sizes[i] < sizes[i+1] {
					t.Errorf("n=%d depth=%d: leaf %d (%d) smaller than right sibling (%d)", n, depth, i, sizes[i], sizes[i+1])
				}
			}

			starts := countFirstLeafIndices(n, depth)
			if len(starts) != (1<<depth)+1 {
				t.Fatalf("n=%d depth=%d: %d starts", n, depth, len(starts))
			}
			if starts[0] != 0 || int(starts[len(starts)-1]) != n {
				t.Errorf("n=%d depth=%d: starts span [%d, %d]", n, depth, starts[0], starts[len(starts)-1])
			}
			for i, s := range sizes {
				if starts[i+1]-starts[i] != s {
					t.Errorf("n=%d depth=%d: start diff %d != size %d at leaf %d", n, depth, starts[i+1]-starts[i], s, i)
				}
			}
		}
	}
}

func TestCountFirstLeafIndicesAll(t *testing.T) {
	all := countFirstLeafIndicesAll(37, 5)
	if len(all) != 6 {
		t.Fatalf("got %d depth levels, want 6", len(all))
	}
	for d, starts := range all {
		if len(starts) != (1<<d)+1 {
			t.Errorf("depth %d: %d entries, want %d", d, len(starts), (1<<d)+1)
		}
		if int(starts[len(starts)-1]) != 37 {
			t.Errorf("depth %d: last entry %d, want 37", d, starts[len(starts)-1])
		}
	}
}
