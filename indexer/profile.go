package indexer

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// tsFit is an affine model y = intercept + slope*x fitted by Theil–Sen.
type tsFit struct {
	intercept float64
	slope     float64
}

func (f tsFit) predict(x float64) float64 { return f.intercept + f.slope*x }

// voteFit is the voting-time model for one vote-threshold bucket.
type voteFit struct {
	votes int
	fit   tsFit
}

// fitTheilSen fits a line with the median of all pairwise slopes and the
// median residual as intercept. The estimator is chosen over least squares
// for robustness against scheduler spikes in the timing samples; pairs with
// equal x are skipped.
func fitTheilSen(xs, ys []float64) tsFit {
	slopes := make([]float64, 0, len(xs)*(len(xs)-1))
	for i := range xs {
		for j := range xs {
			if i == j || xs[i] == xs[j] {
				continue
			}
			slopes = append(slopes, (ys[j]-ys[i])/(xs[j]-xs[i]))
		}
	}
	if len(slopes) == 0 {
		return tsFit{}
	}
	sort.Float64s(slopes)
	slope := stat.Quantile(0.5, stat.Empirical, slopes, nil)

	residuals := make([]float64, len(xs))
	for i := range xs {
		residuals[i] = ys[i] - slope*xs[i]
	}
	sort.Float64s(residuals)
	return tsFit{intercept: stat.Quantile(0.5, stat.Empirical, residuals, nil), slope: slope}
}

// testedTreeCounts is the profiler's tree-count grid: a fixed ladder plus
// up to ten evenly spaced counts, clipped to treesMax.
func testedTreeCounts(treesMax int) []int {
	out := []int{}
	seen := map[int]bool{}
	add := func(t int) {
		if t >= 1 && t <= treesMax && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, t := range []int{1, 2, 3, 4, 5, 7, 10, 15, 20, 25, 30, 40, 50} {
		add(t)
	}
	nTested := 10
	if treesMax < nTested {
		nTested = treesMax
	}
	incr := treesMax / nTested
	for i := 1; i <= nTested; i++ {
		add(i * incr)
	}
	sort.Ints(out)
	return out
}

// testedVoteThresholds is the grid of vote thresholds the voting model is
// fitted at: every threshold up to five, then evenly spaced ones.
func testedVoteThresholds(votesMax int) []int {
	out := []int{}
	for v := 1; v <= 5 && v <= votesMax; v++ {
		out = append(out, v)
	}
	nVotes := 5
	if votesMax < nVotes {
		nVotes = votesMax
	}
	inc := votesMax / nVotes
	for i := 1; i <= nVotes; i++ {
		if v := i * inc; v > 5 {
			out = append(out, v)
		}
	}
	return out
}

// testedCandidateSizes is the grid of candidate-set sizes the exact-search
// model is fitted at, clipped to the dataset size.
func testedCandidateSizes(n int) []int {
	out := []int{}
	seen := map[int]bool{}
	add := func(s int) {
		if s >= 1 && s <= n && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range []int{1, 2, 5, 10, 20, 50, 100, 200, 300, 400, 500} {
		add(s)
	}
	sMax := n / 20
	nTested := 20
	incr := sMax / nTested
	for i := 1; i <= nTested; i++ {
		add(i * incr)
	}
	sort.Ints(out)
	return out
}

// fitTimes measures projection, voting and exact-search timings at the
// grids above and fits the three Theil–Sen models the autotuner predicts
// query times with. The fits are stored on ix.tuner, which must be set.
func (ix *Index) fitTimes(queries *Matrix, o TuneOptions) {
	tn := ix.tuner
	rng := rand.New(newRandSource(o.Seed))
	trees := testedTreeCounts(o.TreesMax)

	bufs := ix.scratch.Get().(*queryBufs)
	defer ix.scratch.Put(bufs)

	// projection model: time R·q for representative matrix shapes
	var projX, projY []float64
	q0 := queries.Row(0)
	for d := o.DepthMin; d <= o.DepthMax; d++ {
		for _, t := range trees {
			rows := t * d
			tmp := make([]float32, rows)
			if o.Density < 1 {
				sm := buildSparseRandom(rows, ix.dim, o.Density, 0)
				start := time.Now()
				for r := range tmp {
					tmp[r] = sm.projectRow(r, q0)
				}
				projY = append(projY, time.Since(start).Seconds())
			} else {
				dm := buildDenseRandom(rows, ix.dim, 0)
				start := time.Now()
				for r := range tmp {
					tmp[r] = dm.projectRow(r, q0)
				}
				projY = append(projY, time.Since(start).Seconds())
			}
			projX = append(projX, float64(rows))
		}
	}
	tn.betaProjection = fitTheilSen(projX, projY)

	// voting model: one fit per (depth, vote-threshold bucket), linear in
	// the tree count
	thresholds := testedVoteThresholds(o.VotesMax)
	tn.betaVoting = make([][]voteFit, o.DepthMax-o.DepthMin+1)
	for d := o.DepthMin; d <= o.DepthMax; d++ {
		fits := make([]voteFit, 0, len(thresholds))
		for _, v := range thresholds {
			var vx, vy []float64
			for _, t := range trees {
				qi := queries.Row(rng.IntN(queries.N()))
				ix.projectQuery(qi, bufs.proj)
				start := time.Now()
				ix.vote(bufs.proj, v, t, d, bufs)
				vy = append(vy, time.Since(start).Seconds())
				vx = append(vx, float64(t))
			}
			fits = append(fits, voteFit{votes: v, fit: fitTheilSen(vx, vy)})
		}
		tn.betaVoting[d-o.DepthMin] = fits
	}

	// exact model: mean search time over random candidate sets per size
	sizes := testedCandidateSizes(ix.nSamples)
	const nSim = 100
	out := make([]int32, o.K)
	var cand []int32
	var exX, exY []float64
	for _, s := range sizes {
		if cap(cand) < s {
			cand = make([]int32, s)
		}
		var mean float64
		for m := 0; m < nSim; m++ {
			qi := queries.Row(rng.IntN(queries.N()))
			c := cand[:s]
			for j := range c {
				c[j] = int32(rng.IntN(ix.nSamples))
			}
			start := time.Now()
			ix.exactKNN(qi, o.K, c, out, nil, bufs)
			mean += time.Since(start).Seconds()
		}
		mean /= nSim
		exX = append(exX, float64(s))
		exY = append(exY, mean)
		if o.TimingLog != nil {
			fmt.Fprintf(o.TimingLog, "%d %d %g\n", o.K, s, mean)
		}
	}
	tn.betaExact = fitTheilSen(exX, exY)
}
