package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"
)

// ExpectedSize returns the byte size of an n × dim float32 matrix file.
func ExpectedSize(n, dim int) int64 {
	return int64(n) * int64(dim) * 4
}

// float32View reinterprets a byte slice as a float32 slice without copying.
// The byte slice must be 4-byte aligned, which mmap and heap allocations
// both guarantee.
func float32View(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// WriteMatrix writes an n × dim float32 matrix to path in the raw format.
// len(data) must be n*dim.
func WriteMatrix(path string, data []float32, n, dim int) error {
	if len(data) != n*dim {
		return fmt.Errorf("store: data length %d does not match %d x %d", len(data), n, dim)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, data); err != nil {
		return err
	}
	return f.Sync()
}
