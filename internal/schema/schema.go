// Package schema defines the array schema metadata contract the read path
// depends on. spec.md names this an external collaborator ("array schema
// metadata... provided, not specified here"); this package gives it a
// concrete, minimal shape — dimensions, domain, tile extent, attribute
// list — modeled on the struct-based metadata messages of the teacher
// library (internal/message/datatype.go, internal/message/layout.go),
// trimmed to what the read path actually consumes.
package schema

import (
	"fmt"

	"github.com/arrayengine/mdarray/internal/coord"
)

// Order is a cell or tile iteration order.
type Order int

const (
	RowMajor Order = iota
	ColMajor
	GlobalOrder
)

func (o Order) String() string {
	switch o {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "col-major"
	case GlobalOrder:
		return "global"
	default:
		return "unknown"
	}
}

// DomainKind identifies the concrete Go type backing an array's coordinate
// domain. The reader dispatches its generic dense/sparse read paths on this
// value (spec.md §9: "monomorphize per array on dispatch from the
// orchestrator").
type DomainKind int

const (
	KindInt32 DomainKind = iota
	KindInt64
	KindFloat32
	KindFloat64
)

func (k DomainKind) size() int {
	switch k {
	case KindInt32, KindFloat32:
		return 4
	case KindInt64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// AttrID identifies an attribute by a small integer instead of by name,
// per spec.md §9's design note ("replace [the string map] with a compact
// mapping attribute-id -> tile-pair ... removes string hashing on hot
// paths"). CoordsAttrID is the reserved id for the coordinates attribute.
type AttrID int32

const CoordsAttrID AttrID = -1

// AttrInfo describes one attribute's storage shape.
type AttrInfo struct {
	ID       AttrID
	Name     string
	VarSize  bool
	CellSize uint64 // fixed attrs: bytes per cell. var attrs: bytes per offset entry (always 8).
	Nullable bool

	// FillValue holds the bytes written for a cell with no contributing
	// fragment: one CellSize-byte value for fixed attrs, one
	// variable-length value for var attrs.
	FillValue []byte
}

// ArraySchema is the contract the read path depends on for array
// metadata. A concrete implementation is normally sourced from the array's
// persisted schema file, which is out of this module's scope; Schema below
// is a reference, in-memory implementation used by the reference storage
// manager and by tests.
type ArraySchema interface {
	DimNum() int
	DomainKind() DomainKind
	DomainBytes() []byte     // dim_num (min,max) pairs, native-endian, DomainKind width
	TileExtentBytes() []byte // dim_num values, native-endian, DomainKind width
	Dense() bool
	TileOrder() Order
	CellOrder() Order
	Attributes() []AttrInfo
	Attribute(id AttrID) (AttrInfo, bool)
}

// Domain decodes a schema's domain as T, the caller-chosen concrete
// coordinate type. The caller must pass the T matching s.DomainKind(),
// which the orchestrator guarantees by constructing T from DomainKind
// before calling into generic code (see query.Reader.Read's type switch).
func Domain[T coord.Coord](s ArraySchema) coord.Rect[T] {
	return coord.FromBytes[T](s.DomainBytes(), s.DimNum()*2)
}

// TileExtent decodes a schema's tile extent as T.
func TileExtent[T coord.Coord](s ArraySchema) []T {
	return coord.FromBytes[T](s.TileExtentBytes(), s.DimNum())
}

// TileExtentsUint64 returns the tile extents as cell counts, independent of
// T, for layers that only need cardinalities (linearization, tile count).
func TileExtentsUint64[T coord.Coord](s ArraySchema) []uint64 {
	ext := TileExtent[T](s)
	out := make([]uint64, len(ext))
	for i, v := range ext {
		out[i] = uint64(v)
	}
	return out
}

// Schema is a reference, in-memory ArraySchema implementation.
type Schema struct {
	dimNum     int
	kind       DomainKind
	domain     []byte
	tileExtent []byte
	dense      bool
	tileOrder  Order
	cellOrder  Order
	attrs      []AttrInfo
	byID       map[AttrID]int
}

// New builds a Schema from a domain/tile-extent pair of concrete type T.
// The domain must hold exactly 2*len(tileExtent) values (min,max per dim).
func New[T coord.Coord](domain coord.Rect[T], tileExtent []T, dense bool, tileOrder, cellOrder Order, attrs []AttrInfo) (*Schema, error) {
	dimNum := len(tileExtent)
	if domain.DimNum() != dimNum {
		return nil, fmt.Errorf("schema: domain has %d dims, tile extent has %d", domain.DimNum(), dimNum)
	}
	if dimNum == 0 {
		return nil, fmt.Errorf("schema: dim_num must be > 0")
	}
	if len(attrs) == 0 {
		return nil, fmt.Errorf("schema: at least one attribute is required")
	}

	kind, err := kindOf[T]()
	if err != nil {
		return nil, err
	}

	s := &Schema{
		dimNum:     dimNum,
		kind:       kind,
		domain:     coord.AsBytes([]T(domain)),
		tileExtent: coord.AsBytes(tileExtent),
		dense:      dense,
		tileOrder:  tileOrder,
		cellOrder:  cellOrder,
		attrs:      append([]AttrInfo(nil), attrs...),
		byID:       make(map[AttrID]int, len(attrs)),
	}
	for i, a := range s.attrs {
		if _, dup := s.byID[a.ID]; dup {
			return nil, fmt.Errorf("schema: duplicate attribute id %d", a.ID)
		}
		s.byID[a.ID] = i
	}
	return s, nil
}

// KindOf reports the DomainKind a concrete coordinate type T decodes to, so
// that callers building a subarray or domain from a caller-supplied T (the
// query package's SetSubarray) can check it against a schema's DomainKind
// before doing anything else with it.
func KindOf[T coord.Coord]() (DomainKind, error) {
	return kindOf[T]()
}

func kindOf[T coord.Coord]() (DomainKind, error) {
	var zero T
	switch any(zero).(type) {
	case int32:
		return KindInt32, nil
	case int64:
		return KindInt64, nil
	case float32:
		return KindFloat32, nil
	case float64:
		return KindFloat64, nil
	default:
		return 0, fmt.Errorf("schema: unsupported domain type %T", zero)
	}
}

func (s *Schema) DimNum() int             { return s.dimNum }
func (s *Schema) DomainKind() DomainKind  { return s.kind }
func (s *Schema) DomainBytes() []byte     { return s.domain }
func (s *Schema) TileExtentBytes() []byte { return s.tileExtent }
func (s *Schema) Dense() bool             { return s.dense }
func (s *Schema) TileOrder() Order        { return s.tileOrder }
func (s *Schema) CellOrder() Order        { return s.cellOrder }

func (s *Schema) Attributes() []AttrInfo { return s.attrs }

func (s *Schema) Attribute(id AttrID) (AttrInfo, bool) {
	i, ok := s.byID[id]
	if !ok {
		return AttrInfo{}, false
	}
	return s.attrs[i], true
}
