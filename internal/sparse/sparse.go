// Package sparse implements the sparse coordinate pipeline of spec.md
// §4.5: materialize cell coordinates from overlapping tiles, deduplicate
// with newer-fragment precedence, sort into the requested layout, and
// coalesce into contiguous cell ranges for the copy engine. Grounded on
// the teacher's B-tree entry sort/scan pattern (internal/btree/v2_chunk.go:
// entries are collected, sorted by key, then walked in order), generalized
// from btree keys to coordinate tuples.
package sparse

import (
	"fmt"
	"sort"

	"github.com/arrayengine/mdarray/internal/copyengine"
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/dense"
	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
)

// Coords is spec.md §3's OverlappingCoords: one cell's coordinates within a
// sparse overlapping tile, plus an optional cached global-tile-coordinates
// value used by global-order sort. Valid is cleared by Dedup for a
// coordinate that lost deduplication; callers must skip invalid entries
// from that point on (CoalesceCellRanges does; Sort orders invalid entries
// along with valid ones).
type Coords[T coord.Coord] struct {
	Tile       *overlap.Tile
	Coord      []T
	TileCoords []T
	Pos        uint64
	Valid      bool
}

// MaterializeCoords implements spec.md §4.5 step 3: for every overlapping
// tile, produce a Coords entry for each cell whose coordinates lie in
// subarray (every cell, with no check, when the tile's overlap is full).
func MaterializeCoords[T coord.Coord](ots []*overlap.Tile, dimNum int, subarray coord.Rect[T]) ([]*Coords[T], error) {
	var out []*Coords[T]
	for _, ot := range ots {
		pair, ok := ot.AttrTiles[schema.CoordsAttrID]
		if !ok || pair.Fixed == nil {
			return nil, fmt.Errorf("sparse: no coordinates tile loaded for fragment %d tile %d", ot.FragmentIdx, ot.TileIdx)
		}
		numCells := pair.Fixed.Cells
		for pos := uint64(0); pos < numCells; pos++ {
			c := coord.FromBytes[T](pair.Fixed.CellBytes(pos), dimNum)
			if !ot.FullOverlap && !pointInRect(c, subarray) {
				continue
			}
			out = append(out, &Coords[T]{
				Tile:  ot,
				Coord: append([]T(nil), c...),
				Pos:   pos,
				Valid: true,
			})
		}
	}
	return out, nil
}

func pointInRect[T coord.Coord](pt []T, r coord.Rect[T]) bool {
	for d := 0; d < len(pt); d++ {
		if pt[d] < r.Min(d) || pt[d] > r.Max(d) {
			return false
		}
	}
	return true
}

// Dedup implements spec.md §4.5 step 4: group coordinates by coordinate
// value and keep only the one from the largest fragment index, marking the
// rest Valid=false. It is stable (ties between entries from the same
// fragment cannot happen — a fragment never writes the same coordinate
// twice within one overlapping-tile set) and total (every input coordinate
// is classified, per §8 property 3).
func Dedup[T coord.Coord](coords []*Coords[T]) {
	groups := make(map[string][]*Coords[T])
	var order []string
	for _, c := range coords {
		key := string(coord.AsBytes(c.Coord))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], c)
	}
	for _, key := range order {
		g := groups[key]
		best := g[0]
		for _, c := range g[1:] {
			if c.Tile.FragmentIdx > best.Tile.FragmentIdx {
				best.Valid = false
				best = c
			} else {
				c.Valid = false
			}
		}
	}
}

// Sort implements spec.md §4.5 step 5: order valid coordinates into the
// requested layout. For GlobalOrder, sort by global-tile coordinates first
// (row-major across the tile grid), then by in-tile position under
// cellOrder; row/col-major sort directly by the coordinate tuple.
func Sort[T coord.Coord](coords []*Coords[T], layout schema.Order, domain coord.Rect[T], tileExtent []T, cellOrder schema.Order) {
	if layout == schema.GlobalOrder {
		for _, c := range coords {
			if c.TileCoords == nil {
				c.TileCoords = dense.TileCoords(domain, tileExtent, c.Coord)
			}
		}
	}
	sort.SliceStable(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if layout == schema.GlobalOrder {
			if cmp := compare(a.TileCoords, b.TileCoords, schema.RowMajor); cmp != 0 {
				return cmp < 0
			}
			return compare(a.Coord, b.Coord, cellOrder) < 0
		}
		return compare(a.Coord, b.Coord, layout) < 0
	})
}

// compare returns -1, 0, or 1 comparing coordinate tuples a and b under
// order: row-major compares the first dimension most significant,
// column-major the last.
func compare[T coord.Coord](a, b []T, order schema.Order) int {
	dimNum := len(a)
	if order == schema.ColMajor {
		for d := dimNum - 1; d >= 0; d-- {
			if c := cmpT(a[d], b[d]); c != 0 {
				return c
			}
		}
		return 0
	}
	for d := 0; d < dimNum; d++ {
		if c := cmpT(a[d], b[d]); c != 0 {
			return c
		}
	}
	return 0
}

func cmpT[T coord.Coord](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CoalesceCellRanges implements spec.md §4.5 step 6: scan sorted, valid
// coordinates and coalesce maximal runs that share a source tile and whose
// in-tile positions are strictly consecutive into a single
// copyengine.CellRange.
func CoalesceCellRanges[T coord.Coord](sorted []*Coords[T]) []copyengine.CellRange {
	var out []copyengine.CellRange
	var open *copyengine.CellRange
	var openTile *overlap.Tile

	flush := func() {
		if open != nil {
			out = append(out, *open)
			open = nil
		}
	}

	for _, c := range sorted {
		if !c.Valid {
			continue
		}
		if open != nil && openTile == c.Tile && open.End == c.Pos {
			open.End++
			continue
		}
		flush()
		open = &copyengine.CellRange{Tile: c.Tile, Start: c.Pos, End: c.Pos + 1}
		openTile = c.Tile
	}
	flush()
	return out
}
