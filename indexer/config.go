package indexer

import (
	"fmt"
	"io"
	"math"
)

// Params is one operating point of the index: a tree count, a traversal
// depth and a vote threshold, with the autotuner's estimates attached.
type Params struct {
	Trees int
	Depth int
	Votes int

	EstimatedQueryTime float64
	EstimatedRecall    float64
}

// IsZero reports whether p is the empty record returned when no operating
// point meets a target recall.
func (p Params) IsZero() bool { return p.Trees == 0 }

// TuneOptions configures Autotune. Zero fields are filled by OrDefault.
type TuneOptions struct {
	K        int     // neighbors the tuned index is optimized for
	TreesMax int     // trees grown before pruning
	DepthMin int     // shallowest depth evaluated
	DepthMax int     // depth grown; deepest depth evaluated
	VotesMax int     // largest vote threshold evaluated
	Density  float32 // expected ratio of nonzeros in the random matrix
	Seed     int64   // random matrix seed; 0 means nondeterministic

	// TimingLog, when non-nil, receives the profiler's raw exact-search
	// timings (one "k size seconds" line per grid point).
	TimingLog io.Writer
}

// DefaultTuneOptions returns the defaults for an n × dim dataset: depths
// spanning log2(n)-4 down five levels, density 1/sqrt(dim).
func DefaultTuneOptions(n, dim int) TuneOptions {
	return TuneOptions{}.OrDefault(n, dim)
}

// OrDefault fills zero fields from the dataset shape.
func (o TuneOptions) OrDefault(n, dim int) TuneOptions {
	if o.K <= 0 {
		o.K = 10
	}
	if o.TreesMax <= 0 {
		o.TreesMax = 100
		if o.TreesMax > n {
			o.TreesMax = n
		}
	}
	if o.DepthMax <= 0 {
		o.DepthMax = int(math.Log2(float64(n))) - 4
		if o.DepthMax < 1 {
			o.DepthMax = 1
		}
	}
	if o.DepthMin <= 0 {
		o.DepthMin = o.DepthMax - 5
		if o.DepthMin < 1 {
			o.DepthMin = 1
		}
	}
	if o.VotesMax <= 0 {
		o.VotesMax = o.TreesMax / 10
		if o.VotesMax < 1 {
			o.VotesMax = 1
		}
	}
	if o.Density <= 0 {
		o.Density = float32(1 / math.Sqrt(float64(dim)))
	}
	return o
}

// validate reports the first configuration error for an n-point dataset.
func (o TuneOptions) validate(n int) error {
	switch {
	case o.K <= 0 || o.K > n:
		return fmt.Errorf("indexer: k = %d out of range [1, %d]", o.K, n)
	case o.TreesMax <= 0:
		return fmt.Errorf("indexer: trees_max = %d must be positive", o.TreesMax)
	case o.DepthMin <= 0 || o.DepthMin > o.DepthMax:
		return fmt.Errorf("indexer: depth range [%d, %d] invalid", o.DepthMin, o.DepthMax)
	case o.DepthMax > 30:
		return fmt.Errorf("indexer: depth_max = %d too large", o.DepthMax)
	case o.VotesMax <= 0 || o.VotesMax > o.TreesMax:
		return fmt.Errorf("indexer: votes_max = %d out of range [1, %d]", o.VotesMax, o.TreesMax)
	case o.Density <= 0 || o.Density > 1:
		return fmt.Errorf("indexer: density = %v out of range (0, 1]", o.Density)
	}
	return nil
}
