package main

import (
	"fmt"
	"log"
	"time"

	"github.com/ic-timon/mrpt/bench/gen"
	"github.com/ic-timon/mrpt/bench/metrics"
	"github.com/ic-timon/mrpt/indexer"
)

// runTiming grows a fixed-parameter index and sweeps the vote threshold,
// measuring latency and recall at each point.
func runTiming(train, test *indexer.Matrix, a cliArgs, seed int64, resultPath string) error {
	idx := newIndex(train, a.Parallel)

	buildStart := time.Now()
	if err := idx.Grow(a.TreesMax, a.DepthMax, float32(a.Density), seed); err != nil {
		return err
	}
	log.Printf("timing: grew %d trees of depth %d in %v", a.TreesMax, a.DepthMax, time.Since(buildStart))

	truth := gen.GroundTruth(train, test, a.K)

	var rows []metrics.TimingRow
	out := make([]int32, a.K)
	for v := 1; v <= a.VotesMax && v <= a.TreesMax; v++ {
		durations := make([]time.Duration, test.N())
		var recallSum float64
		sweepStart := time.Now()
		for i := 0; i < test.N(); i++ {
			start := time.Now()
			idx.QueryInto(test.Row(i), a.K, v, out, nil)
			durations[i] = time.Since(start)
			recallSum += metrics.Recall(out, truth[i])
		}
		elapsed := time.Since(sweepStart).Seconds()
		stats := metrics.LatencyStatsFromDurations(durations)
		row := metrics.TimingRow{
			K:              a.K,
			Trees:          a.TreesMax,
			Depth:          a.DepthMax,
			Votes:          v,
			Density:        a.Density,
			MeasuredRecall: recallSum / float64(test.N()),
			AvgQueryUs:     stats.AvgMs * 1e3,
			P99QueryUs:     stats.P99Ms * 1e3,
			QPS:            float64(test.N()) / elapsed,
		}
		rows = append(rows, row)
		fmt.Printf("%d %d %d %g %d %.4f %.2f\n",
			a.K, a.TreesMax, a.DepthMax, a.Density, v, row.MeasuredRecall, row.AvgQueryUs)
	}
	return metrics.WriteTimingCSV(rows, resultPath)
}
