package overlap

import (
	"testing"

	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
)

func TestComputeFragmentOuterTileInnerOrder(t *testing.T) {
	frag0 := fragment.NewInMemory(0, "frag0", 1, 2)
	frag0.SetMBR(0, coord.AsBytes([]int32{1, 5}))
	frag0.SetMBR(1, coord.AsBytes([]int32{6, 10}))

	frag1 := fragment.NewInMemory(1, "frag1", 1, 2)
	frag1.SetMBR(0, coord.AsBytes([]int32{1, 5}))
	frag1.SetMBR(1, coord.AsBytes([]int32{6, 10}))

	subarray := coord.Rect[int32]{1, 10}
	ots, err := Compute[int32]([]fragment.Metadata{frag0, frag1}, subarray, []schema.AttrID{0})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(ots) != 4 {
		t.Fatalf("len(ots) = %d, want 4", len(ots))
	}
	want := []struct {
		fragIdx int
		tileIdx uint64
	}{
		{0, 0}, {0, 1}, {1, 0}, {1, 1},
	}
	for i, w := range want {
		if ots[i].FragmentIdx != w.fragIdx || ots[i].TileIdx != w.tileIdx {
			t.Errorf("ots[%d] = (frag %d, tile %d), want (frag %d, tile %d)", i, ots[i].FragmentIdx, ots[i].TileIdx, w.fragIdx, w.tileIdx)
		}
	}
	for _, ot := range ots {
		if !ot.FullOverlap {
			t.Errorf("ot(frag %d, tile %d).FullOverlap = false, want true", ot.FragmentIdx, ot.TileIdx)
		}
		if _, ok := ot.AttrTiles[0]; !ok {
			t.Errorf("ot(frag %d, tile %d) missing reserved attribute slot", ot.FragmentIdx, ot.TileIdx)
		}
	}
}

func TestComputeSkipsUnsetMBRAndNonOverlapping(t *testing.T) {
	frag0 := fragment.NewInMemory(0, "frag0", 1, 3)
	frag0.SetMBR(0, coord.AsBytes([]int32{1, 5}))
	// tile 1's MBR is never set.
	frag0.SetMBR(2, coord.AsBytes([]int32{11, 15}))

	subarray := coord.Rect[int32]{1, 5}
	ots, err := Compute[int32]([]fragment.Metadata{frag0}, subarray, []schema.AttrID{schema.CoordsAttrID})
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(ots) != 1 {
		t.Fatalf("len(ots) = %d, want 1", len(ots))
	}
	if ots[0].TileIdx != 0 {
		t.Errorf("TileIdx = %d, want 0", ots[0].TileIdx)
	}
}

func TestComputePartialOverlapNotFull(t *testing.T) {
	frag0 := fragment.NewInMemory(0, "frag0", 1, 1)
	frag0.SetMBR(0, coord.AsBytes([]int32{1, 10}))

	subarray := coord.Rect[int32]{5, 7}
	ots, err := Compute[int32]([]fragment.Metadata{frag0}, subarray, nil)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(ots) != 1 {
		t.Fatalf("len(ots) = %d, want 1", len(ots))
	}
	if ots[0].FullOverlap {
		t.Errorf("FullOverlap = true, want false: subarray [5,7] does not contain MBR [1,10]")
	}
}
