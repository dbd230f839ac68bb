package dense

import (
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/overlap"
)

// SparseOverride is one coordinate from an older/newer sparse fragment
// that lands inside a dense global tile's position range, per spec.md
// §4.4's "coordinate interleaving" paragraph.
type SparseOverride struct {
	FragmentIdx int
	Pos         uint64 // position within the global tile's linearization
	Tile        *overlap.Tile
	TilePos     uint64 // the coordinate's position within Tile (sparse tile-local)
}

// InterleaveCoords applies spec.md §4.4's coordinate interleaving: a
// SparseOverride at position p replaces the dense range covering p when
// its fragment is newer than that range's fragment, splitting the range
// into up to two surviving sub-ranges around a single-cell sparse-attributed
// range. Overrides whose fragment is not newer than the covering range are
// dropped (this module's resolution of spec.md §9's open question:
// "assumes no" — an older sparse coordinate never invalidates a dense
// cell). ranges must be sorted and contiguous, as produced by MergeRanges.
func InterleaveCoords[T coord.Coord](ranges []CellRange[T], overrides []SparseOverride) []CellRange[T] {
	out := ranges
	for _, ov := range overrides {
		out = applyOverride(out, ov)
	}
	return out
}

func applyOverride[T coord.Coord](ranges []CellRange[T], ov SparseOverride) []CellRange[T] {
	for i, r := range ranges {
		if ov.Pos < r.Start || ov.Pos >= r.End {
			continue
		}
		if ov.FragmentIdx <= r.FragmentIdx {
			return ranges // older or same-age fragment: dense cell wins
		}

		replacement := make([]CellRange[T], 0, 3)
		if ov.Pos > r.Start {
			before := r
			before.End = ov.Pos
			replacement = append(replacement, before)
		}
		replacement = append(replacement, CellRange[T]{
			FragmentIdx: ov.FragmentIdx,
			TileCoords:  r.TileCoords,
			Start:       ov.Pos,
			End:         ov.Pos + 1,
			SparseTile:  ov.Tile,
			SparsePos:   ov.TilePos,
		})
		if ov.Pos+1 < r.End {
			after := r
			after.Start = ov.Pos + 1
			replacement = append(replacement, after)
		}

		out := make([]CellRange[T], 0, len(ranges)-1+len(replacement))
		out = append(out, ranges[:i]...)
		out = append(out, replacement...)
		out = append(out, ranges[i+1:]...)
		return out
	}
	return ranges
}
