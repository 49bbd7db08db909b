package store

import (
	"fmt"
	"os"
)

// MatrixStore provides read-only access to a float32 matrix.
type MatrixStore interface {
	// Data returns the full matrix, row-major. The slice is valid until
	// Close is called. Caller must not modify it.
	Data() []float32
	// Close releases resources (e.g. unmaps the file).
	Close() error
}

// HeapStore is a MatrixStore holding the matrix in heap memory.
type HeapStore struct {
	data []float32
}

// Data returns the matrix.
func (s *HeapStore) Data() []float32 { return s.data }

// Close releases the backing slice.
func (s *HeapStore) Close() error {
	s.data = nil
	return nil
}

// ReadMatrix reads an n × dim matrix file into heap memory.
func ReadMatrix(path string, n, dim int) (*HeapStore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	want := ExpectedSize(n, dim)
	if int64(len(b)) < want {
		return nil, fmt.Errorf("store: %s is %d bytes, want at least %d for %d x %d", path, len(b), want, n, dim)
	}
	data := make([]float32, n*dim)
	copy(data, float32View(b[:want]))
	return &HeapStore{data: data}, nil
}

// OpenMatrix opens an n × dim matrix file, mmap-backed when mmapped is true.
func OpenMatrix(path string, n, dim int, mmapped bool) (MatrixStore, error) {
	if mmapped {
		return OpenMmap(path, n, dim)
	}
	return ReadMatrix(path, n, dim)
}
