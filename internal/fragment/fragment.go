// Package fragment defines the fragment metadata contract the read path
// depends on (tile MBRs, per-attribute tile byte offsets/sizes, and
// fragment ordering). spec.md names this an external collaborator; this
// package gives it a concrete shape plus a reference, bbolt-backed
// implementation (see bolt.go) modeled on the teacher library's B-tree tile
// index (internal/btree/v1_chunk.go, v2_chunk.go) generalized from "file
// byte offset of an HDF5 chunk" to "on-disk location of an array tile".
package fragment

import (
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/schema"
)

// Location is the on-disk position and size of one (attribute, tile) blob.
// Size is the size as stored (possibly compressed); the storage manager,
// not this package, knows how to decode it.
type Location struct {
	Offset uint64
	Size   uint64
	// Codec identifies the compression codec the storage manager must
	// apply to decode the blob at Offset/Size (storage.Codec values).
	// Unlike the teacher's FilterMask (a bitmask of skipped pipeline
	// stages), this module's reference tiles carry exactly one codec, so
	// a single id is enough.
	Codec uint8
}

// Metadata is the per-fragment contract the reader depends on. Index order
// across a query's fragment list is the fragment ordering of spec.md §3:
// index i < j implies fragment i is older than fragment j.
type Metadata interface {
	// Index is this fragment's position in write order (its "fragment
	// index" elsewhere in the spec): larger means newer.
	Index() int
	URI() string
	DimNum() int
	NumTiles() uint64

	// Sparse reports whether this fragment was written as a sparse write:
	// its tiles hold point coordinates plus per-point attribute values in
	// write order, rather than a dense cell range. A dense array schema can
	// still accept sparse-written fragments (spec.md §4.4's "coordinate
	// interleaving"); this flag is what lets the dense read path tell the
	// two fragment shapes apart.
	Sparse() bool

	// MBRBytes returns the tile's minimum bounding rectangle, encoded the
	// same way schema.ArraySchema.DomainBytes is (native-endian, DimNum*2
	// values of the domain's width). Use fragment.MBR[T] to decode it.
	MBRBytes(tileIdx uint64) ([]byte, bool)

	// TileLocation returns where an attribute's tile is stored on disk.
	// ok is false if the tile was never written (e.g. attribute added
	// after the fragment).
	TileLocation(attrID schema.AttrID, tileIdx uint64) (Location, bool)
}

// MBR decodes a fragment's tile MBR as coordinate type T.
func MBR[T coord.Coord](m Metadata, tileIdx uint64) (coord.Rect[T], bool) {
	raw, ok := m.MBRBytes(tileIdx)
	if !ok {
		return nil, false
	}
	return coord.FromBytes[T](raw, m.DimNum()*2), true
}

// InMemory is a Metadata implementation backed entirely by Go slices/maps.
// It is the fast path used throughout the test suite and is a legitimate
// standalone implementation for small arrays; larger/persisted deployments
// should prefer the bbolt-backed Bolt type in bolt.go.
type InMemory struct {
	index   int
	uri     string
	dimNum  int
	sparse  bool
	mbrs    [][]byte
	tiles   map[schema.AttrID]map[uint64]Location
}

// NewInMemory creates an in-memory fragment with numTiles tiles, none of
// which have MBRs or tile locations set yet; use SetMBR/SetTile to
// populate it (typically from a test fixture).
func NewInMemory(index int, uri string, dimNum int, numTiles uint64) *InMemory {
	return &InMemory{
		index:  index,
		uri:    uri,
		dimNum: dimNum,
		mbrs:   make([][]byte, numTiles),
		tiles:  make(map[schema.AttrID]map[uint64]Location),
	}
}

func (f *InMemory) Index() int       { return f.index }
func (f *InMemory) URI() string      { return f.uri }
func (f *InMemory) DimNum() int      { return f.dimNum }
func (f *InMemory) NumTiles() uint64 { return uint64(len(f.mbrs)) }
func (f *InMemory) Sparse() bool     { return f.sparse }

// SetSparse marks this fragment as sparse-written; see Metadata.Sparse.
func (f *InMemory) SetSparse(v bool) { f.sparse = v }

func (f *InMemory) MBRBytes(tileIdx uint64) ([]byte, bool) {
	if tileIdx >= uint64(len(f.mbrs)) || f.mbrs[tileIdx] == nil {
		return nil, false
	}
	return f.mbrs[tileIdx], true
}

func (f *InMemory) TileLocation(attrID schema.AttrID, tileIdx uint64) (Location, bool) {
	byTile, ok := f.tiles[attrID]
	if !ok {
		return Location{}, false
	}
	loc, ok := byTile[tileIdx]
	return loc, ok
}

// SetMBR sets tile tileIdx's minimum bounding rectangle.
func (f *InMemory) SetMBR(tileIdx uint64, mbr []byte) {
	f.mbrs[tileIdx] = mbr
}

// SetTile records where an attribute's tile data lives.
func (f *InMemory) SetTile(attrID schema.AttrID, tileIdx uint64, loc Location) {
	byTile, ok := f.tiles[attrID]
	if !ok {
		byTile = make(map[uint64]Location)
		f.tiles[attrID] = byTile
	}
	byTile[tileIdx] = loc
}
