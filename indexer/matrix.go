package indexer

import "fmt"

// Matrix is a read-only view of an n × dim float32 matrix, row-major. The
// index borrows it for its entire lifetime and never modifies it.
type Matrix struct {
	data []float32
	n    int
	dim  int
}

// NewMatrix wraps data as an n × dim matrix without copying.
func NewMatrix(data []float32, n, dim int) (*Matrix, error) {
	if n <= 0 || dim <= 0 {
		return nil, fmt.Errorf("indexer: invalid matrix shape %d x %d", n, dim)
	}
	if len(data) != n*dim {
		return nil, fmt.Errorf("indexer: data length %d does not match %d x %d", len(data), n, dim)
	}
	return &Matrix{data: data, n: n, dim: dim}, nil
}

// MatrixFromRows copies rows into a new matrix. All rows must have the same
// length.
func MatrixFromRows(rows [][]float32) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("indexer: empty matrix")
	}
	dim := len(rows[0])
	data := make([]float32, 0, len(rows)*dim)
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("indexer: row %d has length %d, want %d", i, len(r), dim)
		}
		data = append(data, r...)
	}
	return &Matrix{data: data, n: len(rows), dim: dim}, nil
}

// Row returns the i-th row. The slice aliases the matrix storage.
func (m *Matrix) Row(i int) []float32 {
	return m.data[i*m.dim : (i+1)*m.dim]
}

// N returns the number of rows.
func (m *Matrix) N() int { return m.n }

// Dim returns the number of columns.
func (m *Matrix) Dim() int { return m.dim }
