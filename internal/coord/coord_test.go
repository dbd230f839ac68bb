package coord

import (
	"reflect"
	"testing"
)

func TestOverlap(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Rect[int32]
		overlaps   bool
		aContainsB bool
	}{
		{"disjoint", Rect[int32]{0, 4}, Rect[int32]{5, 9}, false, false},
		{"touching", Rect[int32]{0, 4}, Rect[int32]{4, 9}, true, false},
		{"contains", Rect[int32]{0, 9}, Rect[int32]{2, 5}, true, true},
		{"equal", Rect[int32]{0, 9}, Rect[int32]{0, 9}, true, true},
		{"2d-partial", Rect[int32]{0, 9, 0, 9}, Rect[int32]{5, 15, 5, 15}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overlaps, contains := Overlap(tt.a, tt.b)
			if overlaps != tt.overlaps || contains != tt.aContainsB {
				t.Errorf("Overlap(%v, %v) = (%v, %v), want (%v, %v)",
					tt.a, tt.b, overlaps, contains, tt.overlaps, tt.aContainsB)
			}
		})
	}
}

func TestLinearizeRowMajorRoundTrip(t *testing.T) {
	extents := []uint64{3, 4}
	for pos := uint64(0); pos < 12; pos++ {
		local := DelinearizeRowMajor[int32](pos, extents)
		got := LinearizeRowMajor(local, extents)
		if got != pos {
			t.Errorf("pos=%d delinearized to %v, relinearized to %d", pos, local, got)
		}
	}
}

func TestLinearizeColMajorRoundTrip(t *testing.T) {
	extents := []uint64{3, 4}
	for pos := uint64(0); pos < 12; pos++ {
		local := DelinearizeColMajor[int32](pos, extents)
		got := LinearizeColMajor(local, extents)
		if got != pos {
			t.Errorf("pos=%d delinearized to %v, relinearized to %d", pos, local, got)
		}
	}
}

func TestFillSlabRowMajor(t *testing.T) {
	domain := Rect[int32]{1, 10, 1, 10}
	dst := make([]int32, 3*2)
	FillSlabRowMajor([]int32{3, 1}, 3, domain, dst)

	want := []int32{3, 1, 3, 2, 3, 3}
	if !reflect.DeepEqual(dst, want) {
		t.Errorf("FillSlabRowMajor = %v, want %v", dst, want)
	}
}

func TestFillSlabRowMajorWraps(t *testing.T) {
	domain := Rect[int32]{1, 2, 1, 2}
	dst := make([]int32, 3*2)
	FillSlabRowMajor([]int32{1, 2}, 3, domain, dst)

	want := []int32{1, 2, 2, 1, 2, 2}
	if !reflect.DeepEqual(dst, want) {
		t.Errorf("FillSlabRowMajor wrap = %v, want %v", dst, want)
	}
}

func TestFillSlabColMajor(t *testing.T) {
	domain := Rect[int32]{1, 10, 1, 10}
	dst := make([]int32, 3*2)
	FillSlabColMajor([]int32{3, 1}, 3, domain, dst)

	want := []int32{3, 1, 4, 1, 5, 1}
	if !reflect.DeepEqual(dst, want) {
		t.Errorf("FillSlabColMajor = %v, want %v", dst, want)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	vec := []int64{1, -2, 3, 4}
	buf := AsBytes(vec)
	got := FromBytes[int64](buf, len(vec))
	if !reflect.DeepEqual(got, vec) {
		t.Errorf("FromBytes(AsBytes(%v)) = %v", vec, got)
	}
}
