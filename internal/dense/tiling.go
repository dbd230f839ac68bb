package dense

import (
	"github.com/arrayengine/mdarray/internal/coord"
)

// TilesPerDim returns, for each dimension, the number of tiles the domain
// is divided into given the tile extent (the last tile in a dimension may
// be partial if the domain doesn't divide evenly).
func TilesPerDim[T coord.Coord](domain coord.Rect[T], tileExtent []T) []uint64 {
	dimNum := domain.DimNum()
	out := make([]uint64, dimNum)
	for d := 0; d < dimNum; d++ {
		extent := domain.Extent(d)
		te := uint64(tileExtent[d])
		out[d] = (extent + te - 1) / te
	}
	return out
}

// TileCoords returns the tile-grid coordinates (one per dimension) of the
// global tile containing domain coordinate pt.
func TileCoords[T coord.Coord](domain coord.Rect[T], tileExtent []T, pt []T) []T {
	dimNum := domain.DimNum()
	out := make([]T, dimNum)
	for d := 0; d < dimNum; d++ {
		out[d] = T((uint64(pt[d]-domain.Min(d))) / uint64(tileExtent[d]))
	}
	return out
}

// TileDomain returns the global tile's extent in domain coordinates,
// clipped to the array domain at the edges (spec.md §4.4's global tile),
// given its tile-grid coordinates.
func TileDomain[T coord.Coord](domain coord.Rect[T], tileExtent []T, tileCoords []T) coord.Rect[T] {
	dimNum := domain.DimNum()
	out := make(coord.Rect[T], 2*dimNum)
	for d := 0; d < dimNum; d++ {
		lo := domain.Min(d) + T(uint64(tileCoords[d])*uint64(tileExtent[d]))
		hi := lo + tileExtent[d] - 1
		if hi > domain.Max(d) {
			hi = domain.Max(d)
		}
		out[2*d] = lo
		out[2*d+1] = hi
	}
	return out
}

// TileExtentsLocal returns the clipped tile's per-dimension cell count
// (its local extents, used for linearization within the tile).
func TileExtentsLocal[T coord.Coord](tileDom coord.Rect[T]) []uint64 {
	dimNum := tileDom.DimNum()
	out := make([]uint64, dimNum)
	for d := 0; d < dimNum; d++ {
		out[d] = tileDom.Extent(d)
	}
	return out
}

// GlobalTileIndex linearizes tile-grid coordinates into a single tile
// index, consistent with the schema's tile order — this is the value
// fragment.Metadata's per-tile MBR/location tables are keyed by.
func GlobalTileIndex[T coord.Coord](tileCoords []T, tilesPerDim []uint64, colMajor bool) uint64 {
	local := make([]uint64, len(tileCoords))
	for i, v := range tileCoords {
		local[i] = uint64(v)
	}
	if colMajor {
		return linearizeColMajorU64(local, tilesPerDim)
	}
	return linearizeRowMajorU64(local, tilesPerDim)
}

// BoxLocal intersects clip with tileDom and expresses the intersection as
// inclusive 0-based local coordinates within the tile (lo, hi), or
// ok=false if they don't intersect.
func BoxLocal[T coord.Coord](tileDom coord.Rect[T], clip coord.Rect[T]) (lo, hi []uint64, ok bool) {
	dimNum := tileDom.DimNum()
	lo = make([]uint64, dimNum)
	hi = make([]uint64, dimNum)
	for d := 0; d < dimNum; d++ {
		min := tileDom.Min(d)
		if clip.Min(d) > min {
			min = clip.Min(d)
		}
		max := tileDom.Max(d)
		if clip.Max(d) < max {
			max = clip.Max(d)
		}
		if min > max {
			return nil, nil, false
		}
		lo[d] = uint64(min - tileDom.Min(d))
		hi[d] = uint64(max - tileDom.Min(d))
	}
	return lo, hi, true
}
