// Package copyengine implements spec.md §4.6: moving cells from source
// tiles into user-provided output buffers for fixed- and variable-sized
// attributes, honoring buffer capacity and the incomplete-query contract.
// Grounded on the teacher's copyChunkToOutput/copyOverlapRecursive style
// (internal/layout/layout.go) of byte-range copies with explicit bounds
// checks, generalized from "whole chunk" to "cell range with buffer
// capacity accounting".
package copyengine

import (
	"encoding/binary"
	"fmt"

	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
)

// CellRange is spec.md §3's OverlappingCellRange: a contiguous run of
// cells to copy from one source tile, or — when Tile is nil — a run to
// fill with the attribute's fill value.
type CellRange struct {
	Tile       *overlap.Tile
	Start, End uint64 // half-open [Start, End)
}

// Buffer is one user-provided output buffer: Data is the caller's backing
// array (its length is the buffer's capacity) and Size tracks how many
// bytes have been written so far, mirroring TileDB's in/out buffer-size
// convention (spec.md §6: "read updates buffer sizes to bytes written").
type Buffer struct {
	Data []byte
	Size uint64
}

func (b *Buffer) remaining() uint64 { return uint64(len(b.Data)) - b.Size }

// Status reports whether a copy stopped because it ran out of buffer
// space mid-range (spec.md §7's IncompleteQuery status, not an error).
type Status int

const (
	Complete Status = iota
	Incomplete
)

// CopyFixed copies ranges of a fixed-size attribute (attrID) into buf,
// cellSize bytes per cell, stopping at the exact cell boundary that would
// overflow buf and reporting Incomplete (spec.md §4.6: "stop at the exact
// cell boundary"). fill is written, one copy per cell, for ranges with a
// nil Tile.
func CopyFixed(ranges []CellRange, attrID schema.AttrID, cellSize uint64, fill []byte, buf *Buffer) (Status, error) {
	for ri, r := range ranges {
		n := r.End - r.Start
		need := n * cellSize
		if need > buf.remaining() {
			fitCells := buf.remaining() / cellSize
			if fitCells > 0 {
				if err := copyFixedCells(r.Tile, attrID, r.Start, r.Start+fitCells, cellSize, fill, buf); err != nil {
					return Incomplete, fmt.Errorf("copyengine: range %d: %w", ri, err)
				}
			}
			return Incomplete, nil
		}
		if err := copyFixedCells(r.Tile, attrID, r.Start, r.End, cellSize, fill, buf); err != nil {
			return Incomplete, fmt.Errorf("copyengine: range %d: %w", ri, err)
		}
	}
	return Complete, nil
}

func copyFixedCells(ot *overlap.Tile, attrID schema.AttrID, start, end uint64, cellSize uint64, fill []byte, buf *Buffer) error {
	n := end - start
	if ot == nil {
		for i := uint64(0); i < n; i++ {
			copy(buf.Data[buf.Size:], fill)
			buf.Size += cellSize
		}
		return nil
	}
	pair, ok := ot.AttrTiles[attrID]
	if !ok || pair.Fixed == nil {
		return fmt.Errorf("no fixed tile loaded for attribute %d", attrID)
	}
	src := pair.Fixed.Bytes[start*cellSize : end*cellSize]
	copy(buf.Data[buf.Size:], src)
	buf.Size += uint64(len(src))
	return nil
}

// CopyVar copies ranges of a variable-size attribute (attrID) into an
// offsets buffer and a values buffer. Per cell it emits the *running*
// output-relative offset into valBuf (not the source offset — spec.md
// §4.6/§6), then the cell's raw bytes. It stops at the previous cell
// boundary, reporting Incomplete, if either buffer would overflow on the
// next cell. fill is one value emitted per cell for ranges with a nil
// Tile.
func CopyVar(ranges []CellRange, attrID schema.AttrID, fill []byte, offBuf, valBuf *Buffer) (Status, error) {
	for ri, r := range ranges {
		for pos := r.Start; pos < r.End; pos++ {
			cellBytes, err := varCellBytes(r.Tile, attrID, pos, fill)
			if err != nil {
				return Incomplete, fmt.Errorf("copyengine: range %d cell %d: %w", ri, pos, err)
			}
			if offBuf.remaining() < 8 || valBuf.remaining() < uint64(len(cellBytes)) {
				return Incomplete, nil
			}
			binary.LittleEndian.PutUint64(offBuf.Data[offBuf.Size:], valBuf.Size)
			offBuf.Size += 8
			copy(valBuf.Data[valBuf.Size:], cellBytes)
			valBuf.Size += uint64(len(cellBytes))
		}
	}
	return Complete, nil
}

func varCellBytes(ot *overlap.Tile, attrID schema.AttrID, pos uint64, fill []byte) ([]byte, error) {
	if ot == nil {
		return fill, nil
	}
	pair, ok := ot.AttrTiles[attrID]
	if !ok || pair.Var == nil {
		return nil, fmt.Errorf("no var tile loaded for attribute %d", attrID)
	}
	return pair.Var.CellBytes(pos), nil
}
