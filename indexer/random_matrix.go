package indexer

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ic-timon/mrpt/simd"
)

// denseMatrix is a row-major dense random projection matrix.
type denseMatrix struct {
	rows, cols int
	data       []float32
}

// sparseMatrix is a CSR random projection matrix. Rows are stored in order;
// rowStart has rows+1 entries.
type sparseMatrix struct {
	rows, cols int
	rowStart   []int32
	colIdx     []int32
	vals       []float32
}

// newRandSource returns a source seeded by seed, or nondeterministically
// when seed is 0.
func newRandSource(seed int64) rand.Source {
	if seed == 0 {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.NewPCG(uint64(seed), uint64(seed))
}

// buildDenseRandom builds a rows × cols matrix with N(0,1) entries, filled
// row-major from a single seeded stream.
func buildDenseRandom(rows, cols int, seed int64) *denseMatrix {
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: newRandSource(seed)}
	data := make([]float32, rows*cols)
	for i := range data {
		data[i] = float32(norm.Rand())
	}
	return &denseMatrix{rows: rows, cols: cols, data: data}
}

// buildSparseRandom builds a rows × cols CSR matrix where each entry is
// included with probability density and drawn from N(0,1). The uniform and
// normal draws share one stream, so the matrix is deterministic given a
// nonzero seed.
func buildSparseRandom(rows, cols int, density float32, seed int64) *sparseMatrix {
	src := newRandSource(seed)
	uni := rand.New(src)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	m := &sparseMatrix{
		rows:     rows,
		cols:     cols,
		rowStart: make([]int32, 1, rows+1),
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if uni.Float64() > float64(density) {
				continue
			}
			m.colIdx = append(m.colIdx, int32(c))
			m.vals = append(m.vals, float32(norm.Rand()))
		}
		m.rowStart = append(m.rowStart, int32(len(m.vals)))
	}
	return m
}

// rmTriplet is one nonzero of a sparse matrix under (re)construction.
type rmTriplet struct {
	row, col int32
	val      float32
}

// newSparseFromTriplets compresses triplets into CSR form. Triplets are
// grouped by row; the within-row order of the input is preserved.
func newSparseFromTriplets(rows, cols int, triplets []rmTriplet) *sparseMatrix {
	counts := make([]int32, rows+1)
	for _, t := range triplets {
		counts[t.row+1]++
	}
	for r := 0; r < rows; r++ {
		counts[r+1] += counts[r]
	}
	m := &sparseMatrix{
		rows:     rows,
		cols:     cols,
		rowStart: counts,
		colIdx:   make([]int32, len(triplets)),
		vals:     make([]float32, len(triplets)),
	}
	next := make([]int32, rows)
	copy(next, counts[:rows])
	for _, t := range triplets {
		i := next[t.row]
		next[t.row]++
		m.colIdx[i] = t.col
		m.vals[i] = t.val
	}
	return m
}

func (m *denseMatrix) projectRow(r int, q []float32) float32 {
	return simd.Dot(m.data[r*m.cols:(r+1)*m.cols], q)
}

func (m *sparseMatrix) projectRow(r int, q []float32) float32 {
	var sum float32
	for i := m.rowStart[r]; i < m.rowStart[r+1]; i++ {
		sum += m.vals[i] * q[m.colIdx[i]]
	}
	return sum
}

// nnz returns the number of stored nonzeros.
func (m *sparseMatrix) nnz() int { return len(m.vals) }

// rmRow projects q onto row r of the index's random matrix.
func (ix *Index) rmRow(r int, q []float32) float32 {
	if ix.sparse != nil {
		return ix.sparse.projectRow(r, q)
	}
	return ix.dense.projectRow(r, q)
}
