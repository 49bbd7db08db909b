package store

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// MmapStore is a MatrixStore backed by an mmap'd file.
type MmapStore struct {
	f    *os.File
	m    mmap.MMap
	data []float32
}

// OpenMmap maps an n × dim matrix file read-only.
func OpenMmap(path string, n, dim int) (*MmapStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	want := ExpectedSize(n, dim)
	if int64(len(m)) < want {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("store: %s is %d bytes, want at least %d for %d x %d", path, len(m), want, n, dim)
	}
	return &MmapStore{f: f, m: m, data: float32View(m[:want])}, nil
}

// Data returns the mapped matrix. Valid until Close.
func (s *MmapStore) Data() []float32 { return s.data }

// Close unmaps the file and closes it.
func (s *MmapStore) Close() error {
	s.data = nil
	if s.m != nil {
		if err := s.m.Unmap(); err != nil {
			return err
		}
		s.m = nil
	}
	if s.f != nil {
		err := s.f.Close()
		s.f = nil
		return err
	}
	return nil
}
