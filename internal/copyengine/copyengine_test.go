package copyengine

import (
	"bytes"
	"testing"

	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/tile"
)

func fixedOverlapTile(attrID schema.AttrID, cellSize uint64, values []byte) *overlap.Tile {
	t := &tile.Tile{CellSize: cellSize, Cells: uint64(len(values)) / cellSize, Bytes: values}
	return &overlap.Tile{AttrTiles: map[schema.AttrID]tile.Pair{attrID: {Fixed: t}}}
}

func TestCopyFixedComplete(t *testing.T) {
	attrID := schema.AttrID(0)
	ot := fixedOverlapTile(attrID, 4, []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0})
	buf := &Buffer{Data: make([]byte, 12)}

	status, err := CopyFixed([]CellRange{{Tile: ot, Start: 0, End: 3}}, attrID, 4, []byte{0xff, 0xff, 0xff, 0xff}, buf)
	if err != nil {
		t.Fatalf("CopyFixed failed: %v", err)
	}
	if status != Complete {
		t.Fatalf("status = %v, want Complete", status)
	}
	if buf.Size != 12 {
		t.Errorf("Size = %d, want 12", buf.Size)
	}
	if !bytes.Equal(buf.Data, []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}) {
		t.Errorf("Data = %v", buf.Data)
	}
}

func TestCopyFixedIncomplete(t *testing.T) {
	attrID := schema.AttrID(0)
	ot := fixedOverlapTile(attrID, 4, []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0})
	buf := &Buffer{Data: make([]byte, 9)} // room for 2 cells, not 3

	status, err := CopyFixed([]CellRange{{Tile: ot, Start: 0, End: 3}}, attrID, 4, nil, buf)
	if err != nil {
		t.Fatalf("CopyFixed failed: %v", err)
	}
	if status != Incomplete {
		t.Fatalf("status = %v, want Incomplete", status)
	}
	if buf.Size != 8 {
		t.Errorf("Size = %d, want 8 (2 cells)", buf.Size)
	}
}

func TestCopyFixedFill(t *testing.T) {
	buf := &Buffer{Data: make([]byte, 8)}
	status, err := CopyFixed([]CellRange{{Tile: nil, Start: 0, End: 2}}, 0, 4, []byte{0xff, 0xff, 0xff, 0xff}, buf)
	if err != nil {
		t.Fatalf("CopyFixed failed: %v", err)
	}
	if status != Complete {
		t.Fatalf("status = %v, want Complete", status)
	}
	want := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(buf.Data, want) {
		t.Errorf("Data = %v, want %v", buf.Data, want)
	}
}

func varOverlapTile(attrID schema.AttrID, offsets []uint64, values []byte) *overlap.Tile {
	vt := &tile.VarTile{Offsets: offsets, Values: values}
	return &overlap.Tile{AttrTiles: map[schema.AttrID]tile.Pair{attrID: {Var: vt}}}
}

func TestCopyVarComplete(t *testing.T) {
	attrID := schema.AttrID(0)
	ot := varOverlapTile(attrID, []uint64{0, 3, 7}, []byte("abcdefg"))
	offBuf := &Buffer{Data: make([]byte, 16)}
	valBuf := &Buffer{Data: make([]byte, 7)}

	status, err := CopyVar([]CellRange{{Tile: ot, Start: 0, End: 2}}, attrID, nil, offBuf, valBuf)
	if err != nil {
		t.Fatalf("CopyVar failed: %v", err)
	}
	if status != Complete {
		t.Fatalf("status = %v, want Complete", status)
	}
	if !bytes.Equal(valBuf.Data, []byte("abcdefg")) {
		t.Errorf("values = %q", valBuf.Data)
	}
	// offsets are output-relative: 0, then 3
	wantOff := []byte{0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(offBuf.Data, wantOff) {
		t.Errorf("offsets = %v, want %v", offBuf.Data, wantOff)
	}
}

func TestCopyVarIncompleteOnValues(t *testing.T) {
	attrID := schema.AttrID(0)
	ot := varOverlapTile(attrID, []uint64{0, 3, 7}, []byte("abcdefg"))
	offBuf := &Buffer{Data: make([]byte, 16)}
	valBuf := &Buffer{Data: make([]byte, 5)} // fits cell 0 (3 bytes) but not cell 1 (4 bytes)

	status, err := CopyVar([]CellRange{{Tile: ot, Start: 0, End: 2}}, attrID, nil, offBuf, valBuf)
	if err != nil {
		t.Fatalf("CopyVar failed: %v", err)
	}
	if status != Incomplete {
		t.Fatalf("status = %v, want Incomplete", status)
	}
	if valBuf.Size != 3 {
		t.Errorf("valBuf.Size = %d, want 3", valBuf.Size)
	}
	if offBuf.Size != 8 {
		t.Errorf("offBuf.Size = %d, want 8 (one cell emitted)", offBuf.Size)
	}
}
