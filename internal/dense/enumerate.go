package dense

import "github.com/arrayengine/mdarray/internal/coord"

// EnumerateTileCoords lists the tile-grid coordinates of every global tile
// that overlaps subarray, in tile order (row- or column-major over the tile
// grid). The orchestrator drives its per-tile merge loop off this list so
// that tiles with no fragment ever written to them still contribute a
// fully-filled range.
func EnumerateTileCoords[T coord.Coord](domain coord.Rect[T], tileExtent []T, subarray coord.Rect[T], colMajor bool) [][]T {
	dimNum := domain.DimNum()
	lo := make([]uint64, dimNum)
	hi := make([]uint64, dimNum)
	for d := 0; d < dimNum; d++ {
		lo[d] = uint64(subarray.Min(d)-domain.Min(d)) / uint64(tileExtent[d])
		hi[d] = uint64(subarray.Max(d)-domain.Min(d)) / uint64(tileExtent[d])
	}

	var dimsOrder []int
	if colMajor {
		for d := dimNum - 1; d >= 0; d-- {
			dimsOrder = append(dimsOrder, d)
		}
	} else {
		for d := 0; d < dimNum; d++ {
			dimsOrder = append(dimsOrder, d)
		}
	}

	cur := make([]uint64, dimNum)
	var out [][]T
	var recurse func(i int)
	recurse = func(i int) {
		if i == len(dimsOrder) {
			tc := make([]T, dimNum)
			for d := 0; d < dimNum; d++ {
				tc[d] = T(cur[d])
			}
			out = append(out, tc)
			return
		}
		d := dimsOrder[i]
		for v := lo[d]; v <= hi[d]; v++ {
			cur[d] = v
			recurse(i + 1)
		}
	}
	recurse(0)
	return out
}
