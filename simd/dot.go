// Package simd provides the float32 kernels used by the index: dot products
// for random projections and squared Euclidean distances for the exact
// search step. Dot is delegated to vek, which dispatches to AVX2/AVX-512 at
// runtime; SquaredDistance is a pure-Go unrolled loop. A pure-Go reference
// of Dot is kept for the tests.
package simd

import (
	"github.com/viterin/vek/vek32"
)

// Dot computes the dot product of two float32 vectors of equal length.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return vek32.Dot(a, b)
}

// dotGo is the pure Go reference (4-way unroll), used by tests.
func dotGo(a, b []float32) float32 {
	var s0, s1 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		s0 += a[i+0]*b[i+0] + a[i+1]*b[i+1]
		s1 += a[i+2]*b[i+2] + a[i+3]*b[i+3]
	}
	for ; i < len(a); i++ {
		s0 += a[i] * b[i]
	}
	return s0 + s1
}
