// Package overlap implements the overlap planner of spec.md §4.3: for a
// query subarray, enumerate the tiles of every fragment that intersect it,
// and classify each intersection as full or partial.
package overlap

import (
	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/tile"
)

// Tile records one fragment tile that intersects the query subarray.
// FragmentIdx is the tile's position in the fragment list passed to
// Compute — by convention that list is ordered oldest-to-newest, so larger
// FragmentIdx means newer, matching spec.md's "largest fragment index
// wins" precedence rule everywhere it appears.
type Tile struct {
	FragmentIdx int
	TileIdx     uint64
	FullOverlap bool
	AttrTiles   map[schema.AttrID]tile.Pair
}

// Compute enumerates the overlapping tiles of every fragment, in
// fragment-outer/tile-inner order (spec.md §4.3's required output order).
// attrs is the set of attributes the query needs tiles for (not
// necessarily every attribute in the schema); include schema.CoordsAttrID
// to also reserve a coordinates tile slot.
func Compute[T coord.Coord](frags []fragment.Metadata, subarray coord.Rect[T], attrs []schema.AttrID) ([]*Tile, error) {
	var out []*Tile

	for fragIdx, frag := range frags {
		numTiles := frag.NumTiles()
		for tileIdx := uint64(0); tileIdx < numTiles; tileIdx++ {
			mbr, ok := fragment.MBR[T](frag, tileIdx)
			if !ok {
				continue
			}
			overlaps, subarrayContainsMBR := coord.Overlap(subarray, mbr)
			if !overlaps {
				continue
			}

			ot := &Tile{
				FragmentIdx: fragIdx,
				TileIdx:     tileIdx,
				FullOverlap: subarrayContainsMBR,
				AttrTiles:   make(map[schema.AttrID]tile.Pair, len(attrs)),
			}
			for _, id := range attrs {
				ot.AttrTiles[id] = tile.Pair{}
			}
			out = append(out, ot)
		}
	}

	return out, nil
}
