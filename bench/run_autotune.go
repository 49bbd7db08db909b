package main

import (
	"fmt"
	"log"
	"time"

	"github.com/ic-timon/mrpt/bench/gen"
	"github.com/ic-timon/mrpt/bench/metrics"
	"github.com/ic-timon/mrpt/indexer"
)

// runAutotune grows and tunes a maximum-size index once, then sweeps target
// recalls 0.01..0.99, measuring each Subset projection against the exact
// ground truth.
func runAutotune(train, test *indexer.Matrix, a cliArgs, seed int64, resultPath string) error {
	idx := newIndex(train, a.Parallel)

	before := metrics.Take()
	buildStart := time.Now()
	err := idx.Autotune(test, indexer.TuneOptions{
		K:        a.K,
		TreesMax: a.TreesMax,
		DepthMin: a.DepthMin,
		DepthMax: a.DepthMax,
		VotesMax: a.VotesMax,
		Density:  float32(a.Density),
		Seed:     seed,
	})
	if err != nil {
		return err
	}
	buildDur := time.Since(buildStart)
	after := metrics.Take()
	allocRate, gcs := metrics.Diff(before, after)
	log.Printf("autotune: built in %v, heap %d MB, %.0f MB/s alloc, %d GCs, %d Pareto points",
		buildDur, after.HeapSys/(1<<20), allocRate/(1<<20), gcs, len(idx.OptimalParameterList()))

	truth := gen.GroundTruth(train, test, a.K)

	var rows []metrics.AutotuneRow
	for target := 1; target <= 99; target++ {
		tr := float64(target) / 100
		sub := idx.Subset(tr)
		if sub.IsEmpty() {
			continue
		}
		par := idx.OptimalParameters(tr)

		durations := make([]time.Duration, test.N())
		var phases metrics.PhaseTotals
		var recallSum float64
		out := make([]int32, a.K)
		var tm indexer.QueryTimings
		for i := 0; i < test.N(); i++ {
			start := time.Now()
			sub.QueryTimed(test.Row(i), a.K, par.Votes, out, nil, &tm)
			durations[i] = time.Since(start)
			phases.Add(tm.Projection, tm.Voting, tm.Exact)
			recallSum += metrics.Recall(out, truth[i])
		}
		stats := metrics.LatencyStatsFromDurations(durations)
		projS, voteS, exactS := phases.Means()
		row := metrics.AutotuneRow{
			K:              a.K,
			TargetRecall:   tr,
			Trees:          par.Trees,
			Depth:          par.Depth,
			Votes:          par.Votes,
			Density:        a.Density,
			EstRecall:      par.EstimatedRecall,
			EstQTimeUs:     par.EstimatedQueryTime * 1e6,
			MeasuredRecall: recallSum / float64(test.N()),
			AvgQueryUs:     stats.AvgMs * 1e3,
			P99QueryUs:     stats.P99Ms * 1e3,
			ProjectionUs:   projS * 1e6,
			VotingUs:       voteS * 1e6,
			ExactUs:        exactS * 1e6,
		}
		rows = append(rows, row)
		fmt.Printf("%d %d %d %g %d %.4f %.4f %.2f\n",
			a.K, par.Trees, par.Depth, a.Density, par.Votes,
			row.EstRecall, row.MeasuredRecall, row.AvgQueryUs)
	}
	return metrics.WriteAutotuneCSV(rows, resultPath)
}
