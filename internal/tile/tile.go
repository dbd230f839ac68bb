// Package tile implements the typed in-memory cell buffers the read path
// copies from. spec.md §4.2: "A typed buffer with current size and
// capacity, and for variable-sized attributes a pair (offsets-tile,
// values-tile) where the offsets tile stores absolute byte offsets within
// the values tile." No compression lives here — the storage manager
// decompresses before a tile is handed to the copy engine.
package tile

import (
	"encoding/binary"
	"fmt"

	"github.com/arrayengine/mdarray/internal/schema"
)

// Tile is a fixed-size-attribute cell buffer: Cells cells of CellSize
// bytes each, packed contiguously.
type Tile struct {
	CellSize uint64
	Cells    uint64
	Bytes    []byte
	Fill     []byte
}

// NewTile allocates a zeroed fixed tile for numCells cells of the given
// attribute, per the teacher's init_tile step of allocating before a
// storage read populates the buffer.
func NewTile(attr schema.AttrInfo, numCells uint64) (*Tile, error) {
	if attr.VarSize {
		return nil, fmt.Errorf("tile: attribute %q is variable-sized", attr.Name)
	}
	return &Tile{
		CellSize: attr.CellSize,
		Cells:    numCells,
		Bytes:    make([]byte, attr.CellSize*numCells),
		Fill:     attr.FillValue,
	}, nil
}

// Load copies decoded, uncompressed bytes into the tile. len(data) must
// equal CellSize*Cells.
func (t *Tile) Load(data []byte) error {
	if uint64(len(data)) != t.CellSize*t.Cells {
		return fmt.Errorf("tile: expected %d bytes, got %d", t.CellSize*t.Cells, len(data))
	}
	copy(t.Bytes, data)
	return nil
}

// CellBytes returns the raw bytes for cell pos.
func (t *Tile) CellBytes(pos uint64) []byte {
	return t.Bytes[pos*t.CellSize : (pos+1)*t.CellSize]
}

// VarTile is a variable-size-attribute cell buffer: Offsets holds Cells+1
// absolute byte offsets into Values (the last entry is the total size of
// Values), per spec.md §4.2/§4.6.
type VarTile struct {
	Offsets []uint64
	Values  []byte
	Fill    []byte
}

// NewVarTile allocates an empty var tile for numCells cells; Load fills it
// in from decoded offsets+values bytes.
func NewVarTile(attr schema.AttrInfo, numCells uint64) (*VarTile, error) {
	if !attr.VarSize {
		return nil, fmt.Errorf("tile: attribute %q is fixed-sized", attr.Name)
	}
	return &VarTile{
		Offsets: make([]uint64, numCells+1),
		Fill:    attr.FillValue,
	}, nil
}

// Load decodes an offsets-tile blob (numCells+1 little-endian uint64s) and
// a values-tile blob (raw bytes) into the VarTile.
func (t *VarTile) Load(offsetsData, valuesData []byte) error {
	n := len(t.Offsets)
	if len(offsetsData) != n*8 {
		return fmt.Errorf("tile: expected %d offset bytes, got %d", n*8, len(offsetsData))
	}
	for i := 0; i < n; i++ {
		t.Offsets[i] = binary.LittleEndian.Uint64(offsetsData[i*8:])
	}
	if t.Offsets[n-1] != uint64(len(valuesData)) {
		return fmt.Errorf("tile: last offset %d does not match values length %d", t.Offsets[n-1], len(valuesData))
	}
	t.Values = valuesData
	return nil
}

// Cells returns the number of cells in the tile.
func (t *VarTile) Cells() uint64 {
	if len(t.Offsets) == 0 {
		return 0
	}
	return uint64(len(t.Offsets)) - 1
}

// CellBytes returns the raw value bytes for cell pos.
func (t *VarTile) CellBytes(pos uint64) []byte {
	return t.Values[t.Offsets[pos]:t.Offsets[pos+1]]
}

// CellSize returns the byte size of cell pos's value.
func (t *VarTile) CellSize(pos uint64) uint64 {
	return t.Offsets[pos+1] - t.Offsets[pos]
}

// Pair holds the (offsets-tile, values-tile) pair referenced by
// spec.md's TilePair: for a fixed-size attribute only Fixed is populated,
// for a variable-size attribute only Var is populated.
type Pair struct {
	Fixed *Tile
	Var   *VarTile
}
