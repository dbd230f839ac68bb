package dense

import (
	"reflect"
	"testing"

	"github.com/arrayengine/mdarray/internal/schema"
)

func TestDecomposeBoxRowMajorFullRow(t *testing.T) {
	extents := []uint64{3, 4}
	got := DecomposeBox(extents, schema.RowMajor, []uint64{1, 0}, []uint64{1, 3})
	want := []LocalRange{{Start: 4, End: 8}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecomposeBoxRowMajorSubRow(t *testing.T) {
	extents := []uint64{2, 3}
	got := DecomposeBox(extents, schema.RowMajor, []uint64{0, 1}, []uint64{1, 2})
	want := []LocalRange{{Start: 1, End: 3}, {Start: 4, End: 6}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecomposeBoxColMajor(t *testing.T) {
	extents := []uint64{3, 4}
	got := DecomposeBox(extents, schema.ColMajor, []uint64{0, 2}, []uint64{2, 2})
	// col-major: dim0 fastest, stride[1]=3; fixing dim1=2 gives a contiguous
	// run over dim0 in [0,2].
	want := []LocalRange{{Start: 6, End: 9}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestMergeRangesE2 mirrors spec.md's seed scenario E2: two fragments
// overlapping the full global-tile range, newer fragment wins everywhere
// it writes, older fragment elsewhere.
func TestMergeRangesE2(t *testing.T) {
	frag0 := FragmentRanges{FragmentIdx: 0, Ranges: []LocalRange{{Start: 0, End: 10}}}
	frag1 := FragmentRanges{FragmentIdx: 1, Ranges: []LocalRange{{Start: 3, End: 6}}}

	got := MergeRanges[int32]([]int32{0}, 0, 10, []FragmentRanges{frag0, frag1})
	want := []CellRange[int32]{
		{FragmentIdx: 0, TileCoords: []int32{0}, Start: 0, End: 3},
		{FragmentIdx: 1, TileCoords: []int32{0}, Start: 3, End: 6},
		{FragmentIdx: 0, TileCoords: []int32{0}, Start: 6, End: 10},
	}
	assertRanges(t, got, want)
}

// TestMergeRangesE3 mirrors E3: a hole with no contributing fragment.
func TestMergeRangesE3(t *testing.T) {
	frag0 := FragmentRanges{FragmentIdx: 0, Ranges: []LocalRange{{Start: 0, End: 3}}}

	got := MergeRanges[int32]([]int32{0}, 0, 5, []FragmentRanges{frag0})
	want := []CellRange[int32]{
		{FragmentIdx: 0, TileCoords: []int32{0}, Start: 0, End: 3},
		{FragmentIdx: -1, TileCoords: []int32{0}, Start: 3, End: 5},
	}
	assertRanges(t, got, want)
}

// TestMergeRangesNoOverlapNoGaps asserts spec.md §8 property 1 directly:
// the union of emitted ranges is exactly [start,end) with no gaps/overlaps,
// across a less trivial three-fragment scenario.
func TestMergeRangesNoOverlapNoGaps(t *testing.T) {
	frags := []FragmentRanges{
		{FragmentIdx: 0, Ranges: []LocalRange{{Start: 0, End: 20}}},
		{FragmentIdx: 1, Ranges: []LocalRange{{Start: 5, End: 8}, {Start: 12, End: 15}}},
		{FragmentIdx: 2, Ranges: []LocalRange{{Start: 6, End: 7}}},
	}
	got := MergeRanges[int32]([]int32{0}, 0, 20, frags)

	var pos uint64
	for _, r := range got {
		if r.Start != pos {
			t.Fatalf("gap or overlap at %d: range starts at %d", pos, r.Start)
		}
		if r.Start >= r.End {
			t.Fatalf("empty or inverted range %+v", r)
		}
		pos = r.End
	}
	if pos != 20 {
		t.Fatalf("coverage ends at %d, want 20", pos)
	}

	// position 6 (fragment 2's only cell) must be attributed to fragment 2,
	// the newest.
	for _, p := range []uint64{6} {
		found := false
		for _, r := range got {
			if p >= r.Start && p < r.End {
				if r.FragmentIdx != 2 {
					t.Errorf("position %d attributed to fragment %d, want 2", p, r.FragmentIdx)
				}
				found = true
			}
		}
		if !found {
			t.Fatalf("position %d not covered by any emitted range", p)
		}
	}
}

func assertRanges(t *testing.T, got, want []CellRange[int32]) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d ranges, want %d: got=%+v want=%+v", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i].FragmentIdx != want[i].FragmentIdx || got[i].Start != want[i].Start || got[i].End != want[i].End {
			t.Errorf("range %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
