// Package metrics provides runtime metrics, latency statistics and CSV
// result reports for the bench drivers.
package metrics

import (
	"runtime"
	"runtime/debug"
	"time"
)

// Snapshot is a point-in-time view of the runtime.
type Snapshot struct {
	TS           time.Time
	HeapAlloc    uint64
	HeapSys      uint64
	HeapReleased uint64
	NumGC        uint32
	NumGoroutine int
}

// Take collects the current runtime metrics.
func Take() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Snapshot{
		TS:           time.Now(),
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		HeapReleased: m.HeapReleased,
		NumGC:        m.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
}

// GC forces a collection and returns freed memory to the OS, for clean
// before/after snapshots.
func GC() {
	runtime.GC()
	debug.FreeOSMemory()
}

// Diff returns the allocation rate (bytes/s) and GC count between two
// snapshots.
func Diff(before, after Snapshot) (allocRateBps float64, gcDelta uint32) {
	elapsed := after.TS.Sub(before.TS).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	allocDelta := int64(after.HeapAlloc) - int64(before.HeapAlloc)
	if allocDelta < 0 {
		allocDelta = 0
	}
	allocRateBps = float64(allocDelta) / elapsed
	if after.NumGC >= before.NumGC {
		gcDelta = after.NumGC - before.NumGC
	}
	return allocRateBps, gcDelta
}

// PhaseTotals accumulates the per-phase query timing breakdown.
type PhaseTotals struct {
	Projection float64
	Voting     float64
	Exact      float64
	N          int
}

// Add accumulates one query's breakdown.
func (p *PhaseTotals) Add(projection, voting, exact float64) {
	p.Projection += projection
	p.Voting += voting
	p.Exact += exact
	p.N++
}

// Means returns the mean seconds per phase.
func (p *PhaseTotals) Means() (projection, voting, exact float64) {
	if p.N == 0 {
		return 0, 0, 0
	}
	n := float64(p.N)
	return p.Projection / n, p.Voting / n, p.Exact / n
}
