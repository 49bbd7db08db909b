package indexer

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// tuner holds the autotuning artifacts: measured recall and candidate-set
// size per (votes, trees) pair at each depth, the fitted timing models and
// the Pareto-ordered parameter store.
type tuner struct {
	k        int
	treesMax int
	depthMin int
	depthMax int
	votesMax int
	nTest    int

	recalls []*mat.Dense // (votesMax × treesMax), indexed depth-depthMin
	csSizes []*mat.Dense

	betaProjection tsFit
	betaExact      tsFit
	betaVoting     [][]voteFit // ascending vote buckets per depth

	pars    []Params // all feasible triples, estimated query time ascending
	optPars []Params // Pareto frontier: strictly increasing recall
}

func (tn *tuner) recall(t, d, v int) float64 {
	return tn.recalls[d-tn.depthMin].At(v-1, t-1)
}

func (tn *tuner) csSize(t, d, v int) float64 {
	return tn.csSizes[d-tn.depthMin].At(v-1, t-1)
}

func (tn *tuner) projectionTime(t, d int) float64 {
	return tn.betaProjection.predict(float64(t * d))
}

// votingTime looks up the smallest fitted bucket at least v, or the largest
// bucket when v exceeds them all: piecewise constant in v, linear in t.
func (tn *tuner) votingTime(t, d, v int) float64 {
	fits := tn.betaVoting[d-tn.depthMin]
	if v <= 0 || len(fits) == 0 {
		return 0
	}
	for _, f := range fits {
		if v <= f.votes {
			return f.fit.predict(float64(t))
		}
	}
	return fits[len(fits)-1].fit.predict(float64(t))
}

func (tn *tuner) exactTime(t, d, v int) float64 {
	return tn.betaExact.predict(tn.csSize(t, d, v))
}

func (tn *tuner) queryTime(t, d, v int) float64 {
	return tn.projectionTime(t, d) + tn.votingTime(t, d, v) + tn.exactTime(t, d, v)
}

// buildParams estimates every feasible (trees, depth, votes) triple, orders
// the set by estimated query time and extracts the Pareto frontier.
func (tn *tuner) buildParams() {
	var pars []Params
	for d := tn.depthMin; d <= tn.depthMax; d++ {
		for t := 1; t <= tn.treesMax; t++ {
			vMax := tn.votesMax
			if t < vMax {
				vMax = t
			}
			for v := 1; v <= vMax; v++ {
				pars = append(pars, Params{
					Trees:              t,
					Depth:              d,
					Votes:              v,
					EstimatedQueryTime: tn.queryTime(t, d, v),
					EstimatedRecall:    tn.recall(t, d, v),
				})
			}
		}
	}
	sort.SliceStable(pars, func(i, j int) bool {
		return pars[i].EstimatedQueryTime < pars[j].EstimatedQueryTime
	})
	tn.pars = pars

	tn.optPars = tn.optPars[:0]
	best := -1.0
	for _, p := range pars {
		if p.EstimatedRecall > best {
			tn.optPars = append(tn.optPars, p)
			best = p.EstimatedRecall
		}
	}
}

// Autotune grows a maximum-size index (TreesMax trees of depth DepthMax)
// and derives, from a single replay over the test queries, an estimated
// recall and query time for every feasible (trees, depth, votes) triple.
// Afterwards OptimalParameters, Subset and DeleteExtraTrees are available.
func (ix *Index) Autotune(queries *Matrix, o TuneOptions) error {
	if queries == nil || queries.N() == 0 {
		return fmt.Errorf("indexer: autotune needs test queries")
	}
	if queries.Dim() != ix.dim {
		return fmt.Errorf("indexer: query dimension %d does not match data dimension %d", queries.Dim(), ix.dim)
	}
	o = o.OrDefault(ix.nSamples, ix.dim)
	if err := o.validate(ix.nSamples); err != nil {
		return err
	}
	if err := ix.Grow(o.TreesMax, o.DepthMax, o.Density, o.Seed); err != nil {
		return err
	}

	nDepths := o.DepthMax - o.DepthMin + 1
	tn := &tuner{
		k:        o.K,
		treesMax: o.TreesMax,
		depthMin: o.DepthMin,
		depthMax: o.DepthMax,
		votesMax: o.VotesMax,
		nTest:    queries.N(),
		recalls:  make([]*mat.Dense, nDepths),
		csSizes:  make([]*mat.Dense, nDepths),
	}
	for i := range tn.recalls {
		tn.recalls[i] = mat.NewDense(o.VotesMax, o.TreesMax, nil)
		tn.csSizes[i] = mat.NewDense(o.VotesMax, o.TreesMax, nil)
	}

	exact := ix.computeExact(queries, o.K)
	bufs := ix.scratch.Get().(*queryBufs)
	for i := 0; i < queries.N(); i++ {
		ix.countElected(queries.Row(i), exact[i], o.VotesMax, o.DepthMin, tn.recalls, tn.csSizes, bufs)
	}
	ix.scratch.Put(bufs)

	for i := range tn.recalls {
		tn.recalls[i].Scale(1/float64(o.K*queries.N()), tn.recalls[i])
		tn.csSizes[i].Scale(1/float64(queries.N()), tn.csSizes[i])
	}

	ix.tuner = tn
	ix.k = o.K
	ix.fitTimes(queries, o)
	tn.buildParams()
	return nil
}

// GrowAutotuned autotunes and prunes the index in place to the cheapest
// operating point meeting targetRecall.
func (ix *Index) GrowAutotuned(targetRecall float64, queries *Matrix, o TuneOptions) error {
	if targetRecall < 0 || targetRecall > 1 {
		return fmt.Errorf("indexer: target recall %v out of range [0, 1]", targetRecall)
	}
	if err := ix.Autotune(queries, o); err != nil {
		return err
	}
	ix.DeleteExtraTrees(targetRecall)
	return nil
}

// OptimalParameters returns the smallest-estimated-latency operating point
// whose estimated recall reaches targetRecall (within 1e-4), or the zero
// Params when the index cannot reach it.
func (ix *Index) OptimalParameters(targetRecall float64) Params {
	if ix.tuner == nil {
		return Params{}
	}
	tr := targetRecall - 1e-4
	for _, p := range ix.tuner.optPars {
		if p.EstimatedRecall > tr {
			return p
		}
	}
	return Params{}
}

// OptimalParameterList returns a copy of the Pareto frontier, estimated
// query time ascending and estimated recall strictly increasing.
func (ix *Index) OptimalParameterList() []Params {
	if ix.tuner == nil {
		return nil
	}
	out := make([]Params, len(ix.tuner.optPars))
	copy(out, ix.tuner.optPars)
	return out
}

// Subset returns a new index at the cheapest operating point meeting
// targetRecall, sharing the receiver's storage: the leaf permutations are
// truncated to the chosen tree count, the split-point and random-matrix
// blocks keep the grown strides so the shared slices stay addressable, and
// traversal stops at the chosen depth. The returned index is empty when the
// target is unreachable; its Query returns sentinels.
func (ix *Index) Subset(targetRecall float64) *Index {
	sub := &Index{
		data:        ix.data,
		nSamples:    ix.nSamples,
		dim:         ix.dim,
		density:     ix.density,
		pool:        ix.pool,
		tuner:       ix.tuner,
		k:           ix.k,
		recallLevel: targetRecall,
	}
	par := ix.OptimalParameters(targetRecall)
	if par.IsZero() {
		sub.resetScratch()
		return sub
	}
	sub.nTrees = par.Trees
	sub.depth = par.Depth
	sub.votes = par.Votes
	sub.rowStride = ix.rowStride
	sub.splitStride = ix.splitStride
	sub.splits = ix.splits[:par.Trees*ix.splitStride]
	sub.treeLeaves = ix.treeLeaves[:par.Trees]
	sub.leafStartsAll = ix.leafStartsAll
	sub.dense = ix.dense
	sub.sparse = ix.sparse
	sub.resetScratch()
	return sub
}

// DeleteExtraTrees prunes the receiver in place to the cheapest operating
// point meeting targetRecall, re-slicing its own storage. When the target
// is unreachable the structure is left as grown but the tuned vote count
// stays zero, so QueryTuned returns sentinels.
func (ix *Index) DeleteExtraTrees(targetRecall float64) {
	ix.recallLevel = targetRecall
	par := ix.OptimalParameters(targetRecall)
	if par.IsZero() {
		return
	}
	ix.nTrees = par.Trees
	ix.depth = par.Depth
	ix.votes = par.Votes
	ix.splits = ix.splits[:par.Trees*ix.splitStride]
	ix.treeLeaves = ix.treeLeaves[:par.Trees]
	ix.resetScratch()
}
