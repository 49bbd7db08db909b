// Package store reads and writes the raw float32 matrix files used as
// datasets by the index and the bench drivers. A matrix file is headerless:
// n rows of dim float32 values each, row-major. WriteMatrix writes
// little-endian; the readers reinterpret the bytes in host order. It
// can be loaded into heap memory or mapped read-only with mmap; the mmap
// path is for datasets too large to copy.
package store
