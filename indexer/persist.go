package indexer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// diskTriplet is one sparse random-matrix nonzero on disk.
type diskTriplet struct {
	Row, Col int32
	Val      float32
}

// Save writes the index to path: tree count, depth and density, the
// split-point block column-major, the per-tree leaf permutations, then the
// random matrix (triplets when sparse, row-major when dense). A subset
// index saves compacted, with the random-matrix blocks repacked to its own
// depth.
func (ix *Index) Save(path string) error {
	if ix.IsEmpty() {
		return fmt.Errorf("indexer: cannot save an empty index")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, int32(ix.nTrees)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int32(ix.depth)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, ix.density); err != nil {
		return err
	}

	nArray := 1 << (ix.depth + 1)
	for t := 0; t < ix.nTrees; t++ {
		col := ix.splits[t*ix.splitStride : t*ix.splitStride+nArray]
		if err := binary.Write(w, binary.LittleEndian, col); err != nil {
			return err
		}
	}

	for t := 0; t < ix.nTrees; t++ {
		leaves := ix.treeLeaves[t]
		if err := binary.Write(w, binary.LittleEndian, int32(len(leaves))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, leaves); err != nil {
			return err
		}
	}

	if ix.density < 1 {
		var triplets []diskTriplet
		for t := 0; t < ix.nTrees; t++ {
			for d := 0; d < ix.depth; d++ {
				r := t*ix.rowStride + d
				packed := int32(t*ix.depth + d)
				for i := ix.sparse.rowStart[r]; i < ix.sparse.rowStart[r+1]; i++ {
					triplets = append(triplets, diskTriplet{Row: packed, Col: ix.sparse.colIdx[i], Val: ix.sparse.vals[i]})
				}
			}
		}
		if err := binary.Write(w, binary.LittleEndian, int32(len(triplets))); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, triplets); err != nil {
			return err
		}
	} else {
		for t := 0; t < ix.nTrees; t++ {
			for d := 0; d < ix.depth; d++ {
				r := t*ix.rowStride + d
				row := ix.dense.data[r*ix.dim : (r+1)*ix.dim]
				if err := binary.Write(w, binary.LittleEndian, row); err != nil {
					return err
				}
			}
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads an index saved by Save. The receiver must be bound to the same
// dataset the saved index was grown over; on any error it is left
// unchanged.
func (ix *Index) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var trees, depth int32
	var density float32
	if err := binary.Read(r, binary.LittleEndian, &trees); err != nil {
		return fmt.Errorf("indexer: reading header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &depth); err != nil {
		return fmt.Errorf("indexer: reading header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &density); err != nil {
		return fmt.Errorf("indexer: reading header: %w", err)
	}
	if trees <= 0 || depth <= 0 || depth > 30 || density <= 0 || density > 1 {
		return fmt.Errorf("indexer: %s: invalid header (trees=%d depth=%d density=%v)", path, trees, depth, density)
	}

	nArray := 1 << (depth + 1)
	splits := make([]float32, int(trees)*nArray)
	if err := binary.Read(r, binary.LittleEndian, splits); err != nil {
		return fmt.Errorf("indexer: reading split points: %w", err)
	}

	treeLeaves := make([][]int32, trees)
	for t := range treeLeaves {
		var sz int32
		if err := binary.Read(r, binary.LittleEndian, &sz); err != nil {
			return fmt.Errorf("indexer: reading tree %d: %w", t, err)
		}
		if int(sz) != ix.nSamples {
			return fmt.Errorf("indexer: %s: tree %d has %d leaf indices, dataset has %d points", path, t, sz, ix.nSamples)
		}
		leaves := make([]int32, sz)
		if err := binary.Read(r, binary.LittleEndian, leaves); err != nil {
			return fmt.Errorf("indexer: reading tree %d: %w", t, err)
		}
		treeLeaves[t] = leaves
	}

	rows := int(trees) * int(depth)
	var dense *denseMatrix
	var sparse *sparseMatrix
	if density < 1 {
		var nnz int32
		if err := binary.Read(r, binary.LittleEndian, &nnz); err != nil {
			return fmt.Errorf("indexer: reading random matrix: %w", err)
		}
		if nnz < 0 || int(nnz) > rows*ix.dim {
			return fmt.Errorf("indexer: %s: invalid nonzero count %d", path, nnz)
		}
		disk := make([]diskTriplet, nnz)
		if err := binary.Read(r, binary.LittleEndian, disk); err != nil {
			return fmt.Errorf("indexer: reading random matrix: %w", err)
		}
		triplets := make([]rmTriplet, nnz)
		for i, d := range disk {
			if d.Row < 0 || int(d.Row) >= rows || d.Col < 0 || int(d.Col) >= ix.dim {
				return fmt.Errorf("indexer: %s: nonzero %d out of bounds (%d, %d)", path, i, d.Row, d.Col)
			}
			triplets[i] = rmTriplet{row: d.Row, col: d.Col, val: d.Val}
		}
		sparse = newSparseFromTriplets(rows, ix.dim, triplets)
	} else {
		data := make([]float32, rows*ix.dim)
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return fmt.Errorf("indexer: reading random matrix: %w", err)
		}
		dense = &denseMatrix{rows: rows, cols: ix.dim, data: data}
	}

	ix.nTrees = int(trees)
	ix.depth = int(depth)
	ix.density = density
	ix.rowStride = int(depth)
	ix.splitStride = nArray
	ix.splits = splits
	ix.treeLeaves = treeLeaves
	ix.leafStartsAll = countFirstLeafIndicesAll(ix.nSamples, int(depth))
	ix.dense = dense
	ix.sparse = sparse
	ix.tuner = nil
	ix.k = 0
	ix.votes = 0
	ix.recallLevel = -1
	ix.resetScratch()
	return nil
}
