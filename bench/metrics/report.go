package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LatencyStats summarizes a set of query latencies.
type LatencyStats struct {
	P50Ms float64
	P95Ms float64
	P99Ms float64
	AvgMs float64
	N     int
}

// Percentile returns the p-th percentile (0-100) of a sorted slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// LatencyStatsFromDurations computes P50/P95/P99 and the mean.
func LatencyStatsFromDurations(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	ms := make([]float64, len(durations))
	var sum float64
	for i, d := range durations {
		ms[i] = float64(d.Nanoseconds()) / 1e6
		sum += ms[i]
	}
	sort.Float64s(ms)
	return LatencyStats{
		P50Ms: Percentile(ms, 50),
		P95Ms: Percentile(ms, 95),
		P99Ms: Percentile(ms, 99),
		AvgMs: sum / float64(len(ms)),
		N:     len(ms),
	}
}

// Recall returns the fraction of exact neighbors present in the approximate
// result. Sentinel slots (-1) never match.
func Recall(approx, exact []int32) float64 {
	if len(exact) == 0 {
		return 0
	}
	in := make(map[int32]bool, len(exact))
	for _, e := range exact {
		in[e] = true
	}
	hits := 0
	for _, a := range approx {
		if a >= 0 && in[a] {
			hits++
		}
	}
	return float64(hits) / float64(len(exact))
}

// AutotuneRow is one target-recall operating point of the autotune run.
type AutotuneRow struct {
	K              int
	TargetRecall   float64
	Trees          int
	Depth          int
	Votes          int
	Density        float64
	EstRecall      float64
	EstQTimeUs     float64
	MeasuredRecall float64
	AvgQueryUs     float64
	P99QueryUs     float64
	ProjectionUs   float64
	VotingUs       float64
	ExactUs        float64
}

// TimingRow is one vote-threshold operating point of the fixed-parameter
// timing run.
type TimingRow struct {
	K              int
	Trees          int
	Depth          int
	Votes          int
	Density        float64
	MeasuredRecall float64
	AvgQueryUs     float64
	P99QueryUs     float64
	QPS            float64
}

// WriteAutotuneCSV writes the autotune report.
func WriteAutotuneCSV(rows []AutotuneRow, path string) error {
	return writeCSV(path, []string{
		"K", "TargetRecall", "Trees", "Depth", "Votes", "Density",
		"EstRecall", "EstQTimeUs", "MeasuredRecall",
		"AvgQueryUs", "P99QueryUs", "ProjectionUs", "VotingUs", "ExactUs",
	}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			fmt.Sprintf("%d", r.K),
			fmt.Sprintf("%.2f", r.TargetRecall),
			fmt.Sprintf("%d", r.Trees),
			fmt.Sprintf("%d", r.Depth),
			fmt.Sprintf("%d", r.Votes),
			fmt.Sprintf("%g", r.Density),
			fmt.Sprintf("%.4f", r.EstRecall),
			fmt.Sprintf("%.2f", r.EstQTimeUs),
			fmt.Sprintf("%.4f", r.MeasuredRecall),
			fmt.Sprintf("%.2f", r.AvgQueryUs),
			fmt.Sprintf("%.2f", r.P99QueryUs),
			fmt.Sprintf("%.2f", r.ProjectionUs),
			fmt.Sprintf("%.2f", r.VotingUs),
			fmt.Sprintf("%.2f", r.ExactUs),
		}
	})
}

// WriteTimingCSV writes the fixed-parameter timing report.
func WriteTimingCSV(rows []TimingRow, path string) error {
	return writeCSV(path, []string{
		"K", "Trees", "Depth", "Votes", "Density",
		"MeasuredRecall", "AvgQueryUs", "P99QueryUs", "QPS",
	}, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			fmt.Sprintf("%d", r.K),
			fmt.Sprintf("%d", r.Trees),
			fmt.Sprintf("%d", r.Depth),
			fmt.Sprintf("%d", r.Votes),
			fmt.Sprintf("%g", r.Density),
			fmt.Sprintf("%.4f", r.MeasuredRecall),
			fmt.Sprintf("%.2f", r.AvgQueryUs),
			fmt.Sprintf("%.2f", r.P99QueryUs),
			fmt.Sprintf("%.2f", r.QPS),
		}
	})
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
