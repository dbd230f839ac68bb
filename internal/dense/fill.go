package dense

import (
	"fmt"

	"github.com/arrayengine/mdarray/internal/copyengine"
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
)

// TileLookup resolves the *overlap.Tile that was built for a given
// (fragment, global tile index) pair, or nil if none was — the latter can
// only happen for a bug in the caller, since MergeRanges only ever
// attributes a position to a fragment whose overlapping tile was already
// enumerated for this global tile.
type TileLookup func(fragmentIdx int, tileIdx uint64) *overlap.Tile

// ToOverlappingCellRanges maps spec.md §4.4's "conversion to overlapping
// cell ranges" step: FragmentIdx == -1 becomes a nil-tile (fill) range;
// otherwise the global tile's linearized [Start,End) is translated to the
// tile-local range of the resolved fragment tile, which — because a global
// tile's local linearization is identical across every fragment that
// shares it (all fragments tile the domain the same way) — is simply the
// same [Start,End) pair against that tile.
func ToOverlappingCellRanges[T coord.Coord](ranges []CellRange[T], tilesPerDim []uint64, tileOrder schema.Order, lookup TileLookup) ([]copyengine.CellRange, error) {
	colMajor := tileOrder == schema.ColMajor
	out := make([]copyengine.CellRange, 0, len(ranges))
	for _, r := range ranges {
		if r.SparseTile != nil {
			out = append(out, copyengine.CellRange{Tile: r.SparseTile, Start: r.SparsePos, End: r.SparsePos + 1})
			continue
		}
		if r.FragmentIdx < 0 {
			out = append(out, copyengine.CellRange{Tile: nil, Start: r.Start, End: r.End})
			continue
		}
		tileIdx := GlobalTileIndex(r.TileCoords, tilesPerDim, colMajor)
		ot := lookup(r.FragmentIdx, tileIdx)
		if ot == nil {
			return nil, fmt.Errorf("dense: no overlapping tile for fragment %d tile %d", r.FragmentIdx, tileIdx)
		}
		out = append(out, copyengine.CellRange{Tile: ot, Start: r.Start, End: r.End})
	}
	return out, nil
}

// FillCoords synthesizes coordinate values for a dense read's requested
// subarray, per spec.md §4.4's closing paragraph: a row- or column-major
// slab fill over the subarray, independent of which fragment contributed
// each cell's attribute values (a dense read always knows every cell's
// coordinate — only the attribute values may be missing).
func FillCoords[T coord.Coord](subarray coord.Rect[T], layout schema.Order) []T {
	dimNum := subarray.DimNum()
	start := make([]T, dimNum)
	for d := 0; d < dimNum; d++ {
		start[d] = subarray.Min(d)
	}
	num := subarray.NumCells()
	dst := make([]T, num*uint64(dimNum))
	if layout == schema.ColMajor {
		coord.FillSlabColMajor(start, num, subarray, dst)
	} else {
		coord.FillSlabRowMajor(start, num, subarray, dst)
	}
	return dst
}
