// Package storage defines the storage manager contract the read path
// depends on for raw tile I/O and decompression (spec.md §1: "the storage
// manager (raw tile I/O, decompression, filesystem abstraction)" is an
// external collaborator, named but not specified). This package gives it a
// concrete shape plus two reference implementations: Mem (in-process, used
// by most tests) and File (one flat data file per fragment, with tiles
// located through fragment.Metadata.TileLocation).
package storage

import (
	"context"

	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
)

// Request identifies one (fragment, attribute, tile) blob to fetch and
// decode.
type Request struct {
	Frag     fragment.Metadata
	AttrID   schema.AttrID
	TileIdx  uint64
	VarSize  bool
	NumCells uint64 // geometric cell count of the tile's region; exact for a dense tile, an upper bound for a sparse one. Mem and File do not read it.
}

// Result is the decoded bytes for one Request. For a fixed-size attribute
// Fixed holds the tile's cells packed at CellSize bytes each; for a
// variable-size attribute Offsets holds 8*(cells+1) bytes and Values holds
// the value bytes.
type Result struct {
	Fixed   []byte
	Offsets []byte
	Values  []byte
	Err     error
}

// Manager is the contract query.Reader depends on. Per spec.md §5, the
// reader batches every tile it needs for a partition into one ReadTiles
// call and must not assume any particular per-request completion order;
// implementations are free to parallelize internally (both reference
// implementations do, via golang.org/x/sync/errgroup).
type Manager interface {
	ReadTiles(ctx context.Context, reqs []Request) ([]Result, error)
}
