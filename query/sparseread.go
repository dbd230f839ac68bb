package query

import (
	"context"
	"fmt"

	"github.com/arrayengine/mdarray/internal/copyengine"
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/dense"
	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/sparse"
)

// sparseRead implements spec.md §4.5 for one partition: enumerate
// overlapping tiles (including the coordinates tile, always needed for a
// sparse array), materialize per-cell coordinates, deduplicate with
// newest-fragment precedence, sort into the requested layout, coalesce
// into contiguous ranges, and copy each requested attribute plus the
// coordinates themselves through the copy engine.
func sparseRead[T coord.Coord](ctx context.Context, r *Reader, subarray coord.Rect[T]) (Status, error) {
	s := r.schema
	domain := schema.Domain[T](s)
	tileExtent := schema.TileExtent[T](s)
	tilesPerDim := dense.TilesPerDim(domain, tileExtent)
	colMajorTiles := s.TileOrder() == schema.ColMajor

	attrIDs := append(r.attrIDsForBuffers(), schema.CoordsAttrID)
	ots, err := overlap.Compute[T](r.frags, subarray, attrIDs)
	if err != nil {
		return 0, fmt.Errorf("sparse read: %w", err)
	}
	if err := readAllTiles[T](ctx, r, ots, attrIDs, domain, tileExtent, tilesPerDim, colMajorTiles, false); err != nil {
		return 0, err
	}

	coords, err := sparse.MaterializeCoords[T](ots, subarray.DimNum(), subarray)
	if err != nil {
		return 0, fmt.Errorf("sparse read: %w", err)
	}
	sparse.Dedup(coords)
	sparse.Sort(coords, r.layout, domain, tileExtent, s.CellOrder())
	ranges := sparse.CoalesceCellRanges[T](coords)

	status := StatusComplete
	for _, attrID := range r.attrIDsForBuffers() {
		info, ok := s.Attribute(attrID)
		if !ok {
			return 0, fmt.Errorf("sparse read: %w: unknown attribute %d", ErrInvalidArgument, attrID)
		}
		lb := r.live[attrID]
		var st copyengine.Status
		if info.VarSize {
			st, err = copyengine.CopyVar(ranges, attrID, info.FillValue, lb.offsets, lb.values)
		} else {
			st, err = copyengine.CopyFixed(ranges, attrID, info.CellSize, info.FillValue, lb.values)
		}
		if err != nil {
			return 0, fmt.Errorf("sparse read: %w", err)
		}
		if st == copyengine.Incomplete {
			status = StatusIncomplete
		}
	}

	if r.coordsBuf != nil {
		st, err := copyengine.CopyFixed(ranges, schema.CoordsAttrID, coordsCellSize(r), nil, r.live[schema.CoordsAttrID].values)
		if err != nil {
			return 0, fmt.Errorf("sparse read: %w", err)
		}
		if st == copyengine.Incomplete {
			status = StatusIncomplete
		}
	}

	return status, nil
}
