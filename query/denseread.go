package query

import (
	"context"
	"fmt"

	"github.com/arrayengine/mdarray/internal/copyengine"
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/dense"
	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/sparse"
)

// denseRead implements spec.md §4.4 for one partition: enumerate every
// global tile overlapping subarray (including tiles no fragment ever
// wrote to), decompose the query's and each fragment's region within the
// tile into linear ranges under the array's native cell order, merge them
// with newest-fragment precedence, convert to OverlappingCellRanges, and
// copy each requested attribute through the copy engine. Coordinates, if
// requested, are synthesized separately (see DESIGN.md's "Dense coordinate
// order vs. attribute-value order" note on why the two orderings can diverge
// when the caller requests a layout other than the schema's native
// order).
func denseRead[T coord.Coord](ctx context.Context, r *Reader, subarray coord.Rect[T]) (Status, error) {
	s := r.schema
	domain := schema.Domain[T](s)
	tileExtent := schema.TileExtent[T](s)
	tilesPerDim := dense.TilesPerDim(domain, tileExtent)
	tileOrder := s.TileOrder()
	cellOrder := s.CellOrder()
	colMajorTiles := tileOrder == schema.ColMajor

	attrIDs := r.attrIDsForBuffers()
	ots, err := overlap.Compute[T](r.frags, subarray, attrIDs)
	if err != nil {
		return 0, fmt.Errorf("dense read: %w", err)
	}
	if err := readAllTiles[T](ctx, r, ots, attrIDs, domain, tileExtent, tilesPerDim, colMajorTiles, true); err != nil {
		return 0, err
	}

	byTile := make(map[uint64][]*overlap.Tile, len(ots))
	for _, t := range ots {
		byTile[t.TileIdx] = append(byTile[t.TileIdx], t)
	}
	lookup := func(fragIdx int, tileIdx uint64) *overlap.Tile {
		for _, t := range byTile[tileIdx] {
			if t.FragmentIdx == fragIdx {
				return t
			}
		}
		return nil
	}

	tileCoordsList := dense.EnumerateTileCoords[T](domain, tileExtent, subarray, colMajorTiles)

	var ranges []copyengine.CellRange
	for _, tc := range tileCoordsList {
		tileIdx := dense.GlobalTileIndex(tc, tilesPerDim, colMajorTiles)
		tileDom := dense.TileDomain(domain, tileExtent, tc)
		extentsLocal := dense.TileExtentsLocal(tileDom)

		loQ, hiQ, ok := dense.BoxLocal(tileDom, subarray)
		if !ok {
			continue
		}
		queryRanges := dense.DecomposeBox(extentsLocal, cellOrder, loQ, hiQ)

		type fragDecomp struct {
			idx    int
			ranges []dense.LocalRange
		}
		var decomps []fragDecomp
		var sparseOTs []*overlap.Tile
		for _, t := range byTile[tileIdx] {
			if r.frags[t.FragmentIdx].Sparse() {
				// A sparse-written fragment's MBR is only the bounding box of
				// the points it wrote, not a claim that it covers every cell
				// in that box, so it never contributes a dense decomposition.
				// Its points become coordinate overrides instead (see below).
				sparseOTs = append(sparseOTs, t)
				continue
			}
			mbr, ok2 := fragment.MBR[T](r.frags[t.FragmentIdx], t.TileIdx)
			if !ok2 {
				continue
			}
			loF, hiF, ok3 := dense.BoxLocal(tileDom, mbr)
			if !ok3 {
				continue
			}
			decomps = append(decomps, fragDecomp{idx: t.FragmentIdx, ranges: dense.DecomposeBox(extentsLocal, cellOrder, loF, hiF)})
		}

		var overrides []dense.SparseOverride
		if len(sparseOTs) > 0 {
			scs, err := sparse.MaterializeCoords[T](sparseOTs, s.DimNum(), subarray)
			if err != nil {
				return 0, fmt.Errorf("dense read: %w", err)
			}
			for _, c := range scs {
				local := make([]T, len(c.Coord))
				for d := range c.Coord {
					local[d] = c.Coord[d] - tileDom.Min(d)
				}
				var pos uint64
				if cellOrder == schema.ColMajor {
					pos = coord.LinearizeColMajor[T](local, extentsLocal)
				} else {
					pos = coord.LinearizeRowMajor[T](local, extentsLocal)
				}
				overrides = append(overrides, dense.SparseOverride{
					FragmentIdx: c.Tile.FragmentIdx,
					Pos:         pos,
					Tile:        c.Tile,
					TilePos:     c.Pos,
				})
			}
		}

		for _, qr := range queryRanges {
			var frParams []dense.FragmentRanges
			for _, fd := range decomps {
				clipped := dense.ClipRanges(fd.ranges, qr.Start, qr.End)
				if len(clipped) == 0 {
					continue
				}
				frParams = append(frParams, dense.FragmentRanges{FragmentIdx: fd.idx, Ranges: clipped})
			}
			merged := dense.MergeRanges[T](tc, qr.Start, qr.End, frParams)
			if len(overrides) > 0 {
				merged = dense.InterleaveCoords[T](merged, overrides)
			}
			cellRanges, err := dense.ToOverlappingCellRanges[T](merged, tilesPerDim, tileOrder, lookup)
			if err != nil {
				return 0, fmt.Errorf("dense read: %w", err)
			}
			ranges = append(ranges, cellRanges...)
		}
	}

	status := StatusComplete
	for _, attrID := range attrIDs {
		info, ok := s.Attribute(attrID)
		if !ok {
			return 0, fmt.Errorf("dense read: %w: unknown attribute %d", ErrInvalidArgument, attrID)
		}
		lb := r.live[attrID]
		var st copyengine.Status
		if info.VarSize {
			st, err = copyengine.CopyVar(ranges, attrID, info.FillValue, lb.offsets, lb.values)
		} else {
			st, err = copyengine.CopyFixed(ranges, attrID, info.CellSize, info.FillValue, lb.values)
		}
		if err != nil {
			return 0, fmt.Errorf("dense read: %w", err)
		}
		if st == copyengine.Incomplete {
			status = StatusIncomplete
		}
	}

	if r.coordsBuf != nil {
		if fillDenseCoords[T](r, subarray, r.layout) == StatusIncomplete {
			status = StatusIncomplete
		}
	}

	return status, nil
}

// fillDenseCoords synthesizes coordinates for a dense read's subarray
// (spec.md §4.4's closing paragraph) and copies as many as fit the
// coordinates buffer, reporting StatusIncomplete if it does not all fit.
func fillDenseCoords[T coord.Coord](r *Reader, subarray coord.Rect[T], layout schema.Order) Status {
	coords := dense.FillCoords(subarray, layout)
	raw := coord.AsBytes(coords)
	buf := r.live[schema.CoordsAttrID].values
	n := copy(buf.Data[buf.Size:], raw)
	buf.Size += uint64(n)
	if uint64(n) < uint64(len(raw)) {
		return StatusIncomplete
	}
	return StatusComplete
}
