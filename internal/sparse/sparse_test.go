package sparse

import (
	"testing"

	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/overlap"
	"github.com/arrayengine/mdarray/internal/schema"
	"github.com/arrayengine/mdarray/internal/tile"
)

func makeCoordsTile(fragIdx int, dimNum int, coords [][]int32) *overlap.Tile {
	buf := make([]byte, 0, len(coords)*dimNum*4)
	for _, c := range coords {
		buf = append(buf, coord.AsBytes(c)...)
	}
	ct := &tile.Tile{CellSize: uint64(dimNum) * 4, Cells: uint64(len(coords)), Bytes: buf}
	return &overlap.Tile{
		FragmentIdx: fragIdx,
		FullOverlap: true,
		AttrTiles:   map[schema.AttrID]tile.Pair{schema.CoordsAttrID: {Fixed: ct}},
	}
}

// TestDedupAndCoalesceE4 mirrors spec.md's seed scenario E4: frag0 writes
// (2,2)=5; frag1 writes (2,2)=9 and (3,3)=7. After dedup only the frag1
// copy of (2,2) survives; after sort (row-major) the order is (2,2),(3,3).
func TestDedupAndCoalesceE4(t *testing.T) {
	frag0Tile := makeCoordsTile(0, 2, [][]int32{{2, 2}})
	frag1Tile := makeCoordsTile(1, 2, [][]int32{{2, 2}, {3, 3}})

	all := []*Coords[int32]{
		{Tile: frag0Tile, Coord: []int32{2, 2}, Pos: 0, Valid: true},
		{Tile: frag1Tile, Coord: []int32{2, 2}, Pos: 0, Valid: true},
		{Tile: frag1Tile, Coord: []int32{3, 3}, Pos: 1, Valid: true},
	}

	Dedup(all)

	validCount := 0
	for _, c := range all {
		if c.Valid {
			validCount++
		}
	}
	if validCount != 2 {
		t.Fatalf("expected 2 valid coords after dedup, got %d", validCount)
	}
	if all[0].Valid {
		t.Errorf("frag0's (2,2) should have lost dedup to frag1's")
	}
	if !all[1].Valid || !all[2].Valid {
		t.Errorf("frag1's coords should remain valid")
	}

	domain := coord.Rect[int32]{1, 4, 1, 4}
	Sort(all, schema.RowMajor, domain, []int32{4, 4}, schema.RowMajor)

	var got [][2]int32
	for _, c := range all {
		if c.Valid {
			got = append(got, [2]int32{c.Coord[0], c.Coord[1]})
		}
	}
	want := [][2]int32{{2, 2}, {3, 3}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("sorted coords = %v, want %v", got, want)
	}
}

func TestCoalesceCellRangesConsecutive(t *testing.T) {
	tile := makeCoordsTile(0, 1, [][]int32{{0}, {1}, {2}})
	coords := []*Coords[int32]{
		{Tile: tile, Coord: []int32{0}, Pos: 0, Valid: true},
		{Tile: tile, Coord: []int32{1}, Pos: 1, Valid: true},
		{Tile: tile, Coord: []int32{2}, Pos: 2, Valid: true},
	}
	ranges := CoalesceCellRanges(coords)
	if len(ranges) != 1 {
		t.Fatalf("expected 1 coalesced range, got %d: %+v", len(ranges), ranges)
	}
	if ranges[0].Start != 0 || ranges[0].End != 3 {
		t.Errorf("range = %+v, want {0,3}", ranges[0])
	}
}

func TestCoalesceCellRangesNonConsecutive(t *testing.T) {
	tile := makeCoordsTile(0, 1, [][]int32{{0}, {5}})
	coords := []*Coords[int32]{
		{Tile: tile, Coord: []int32{0}, Pos: 0, Valid: true},
		{Tile: tile, Coord: []int32{5}, Pos: 5, Valid: true},
	}
	ranges := CoalesceCellRanges(coords)
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d: %+v", len(ranges), ranges)
	}
}

func TestCoalesceCellRangesSkipsInvalid(t *testing.T) {
	tile := makeCoordsTile(0, 1, [][]int32{{0}, {1}})
	coords := []*Coords[int32]{
		{Tile: tile, Coord: []int32{0}, Pos: 0, Valid: false},
		{Tile: tile, Coord: []int32{1}, Pos: 1, Valid: true},
	}
	ranges := CoalesceCellRanges(coords)
	if len(ranges) != 1 || ranges[0].Start != 1 || ranges[0].End != 2 {
		t.Errorf("ranges = %+v, want [{1,2}]", ranges)
	}
}
