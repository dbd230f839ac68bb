package query

import "github.com/arrayengine/mdarray/internal/schema"

// AttrBuffer is one attribute's output buffer pair, supplied by the caller
// and mutated in place: Values/Offsets are sized to their full capacity by
// the caller, and ValuesSize/OffsetsSize report how many bytes the most
// recent Read call actually wrote (spec.md §6: "read updates buffer sizes
// to bytes written"). Set AttrID to schema.CoordsAttrID for the
// coordinates buffer; it must not be VarSize.
type AttrBuffer struct {
	AttrID  schema.AttrID
	VarSize bool

	Values     []byte
	ValuesSize uint64

	Offsets     []byte // only used when VarSize
	OffsetsSize uint64
}
