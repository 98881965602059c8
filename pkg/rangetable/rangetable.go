// Package rangetable implements the compact index structure the name
// file uses to map a string id to an (offset, length) range inside a
// single concatenated byte blob: a two-level structure that keeps a
// cumulative offset per block of entries plus one length byte per entry,
// giving O(1) lookup in O(N/blockSize) extra space.
package rangetable

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BlockSize is the number of entries sharing one cumulative-offset anchor.
// Matches the block size used below; a different downstream reader could
// pick a different constant, but it must be baked into both sides.
const BlockSize = 16

// RangeTable maps an entry index to its (offset, length) inside a blob.
type RangeTable struct {
	numEntries uint32
	blockBase  []uint32 // cumulative offset at the start of each block
	lengths    []uint8  // per-entry length, clamped to [0,255]
}

// Build constructs a RangeTable over the given per-entry lengths, which
// must already be clamped to [0,255] by the caller.
func Build(lengths []uint8) *RangeTable {
	numBlocks := (len(lengths) + BlockSize - 1) / BlockSize
	if numBlocks == 0 {
		numBlocks = 0
	}
	rt := &RangeTable{
		numEntries: uint32(len(lengths)),
		blockBase:  make([]uint32, numBlocks+1),
		lengths:    append([]uint8(nil), lengths...),
	}
	var offset uint32
	for b := 0; b < numBlocks; b++ {
		rt.blockBase[b] = offset
		start := b * BlockSize
		end := start + BlockSize
		if end > len(lengths) {
			end = len(lengths)
		}
		for _, l := range lengths[start:end] {
			offset += uint32(l)
		}
	}
	if numBlocks > 0 {
		rt.blockBase[numBlocks] = offset
	}
	return rt
}

// NumEntries returns the number of indexed entries.
func (rt *RangeTable) NumEntries() int { return int(rt.numEntries) }

// Range returns the (offset, length) of entry i inside the blob.
func (rt *RangeTable) Range(i int) (offset uint32, length uint32, err error) {
	if i < 0 || uint32(i) >= rt.numEntries {
		return 0, 0, fmt.Errorf("rangetable: index %d out of range [0,%d)", i, rt.numEntries)
	}
	block := i / BlockSize
	within := i % BlockSize
	offset = rt.blockBase[block]
	base := block * BlockSize
	for k := 0; k < within; k++ {
		offset += uint32(rt.lengths[base+k])
	}
	return offset, uint32(rt.lengths[i]), nil
}

// WriteTo serializes the table: numEntries, numBlocks, blockBase[],
// lengths[] (the last block zero-padded to BlockSize so decode doesn't
// need to special-case a partial final block).
func (rt *RangeTable) WriteTo(w io.Writer) (int64, error) {
	numBlocks := uint32(0)
	if len(rt.blockBase) > 0 {
		numBlocks = uint32(len(rt.blockBase) - 1)
	}
	if err := binary.Write(w, binary.LittleEndian, rt.numEntries); err != nil {
		return 0, fmt.Errorf("write numEntries: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, numBlocks); err != nil {
		return 4, fmt.Errorf("write numBlocks: %w", err)
	}
	for _, b := range rt.blockBase[:numBlocks] {
		if err := binary.Write(w, binary.LittleEndian, b); err != nil {
			return 0, fmt.Errorf("write blockBase: %w", err)
		}
	}
	padded := make([]uint8, int(numBlocks)*BlockSize)
	copy(padded, rt.lengths)
	if len(padded) > 0 {
		if _, err := w.Write(padded); err != nil {
			return 0, fmt.Errorf("write lengths: %w", err)
		}
	}
	return int64(8 + int(numBlocks)*4 + len(padded)), nil
}

// ReadFrom deserializes a table previously written by WriteTo.
func ReadFrom(r io.Reader) (*RangeTable, error) {
	var numEntries, numBlocks uint32
	if err := binary.Read(r, binary.LittleEndian, &numEntries); err != nil {
		return nil, fmt.Errorf("read numEntries: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &numBlocks); err != nil {
		return nil, fmt.Errorf("read numBlocks: %w", err)
	}
	blockBase := make([]uint32, numBlocks)
	for i := range blockBase {
		if err := binary.Read(r, binary.LittleEndian, &blockBase[i]); err != nil {
			return nil, fmt.Errorf("read blockBase[%d]: %w", i, err)
		}
	}
	lengths := make([]uint8, int(numBlocks)*BlockSize)
	if len(lengths) > 0 {
		if _, err := io.ReadFull(r, lengths); err != nil {
			return nil, fmt.Errorf("read lengths: %w", err)
		}
	}
	return &RangeTable{
		numEntries: numEntries,
		blockBase:  blockBase,
		lengths:    lengths[:numEntries],
	}, nil
}
