// Package coord provides coordinate arithmetic shared by every layer of the
// read path: tile/cell linearization, hyper-rectangle overlap tests, and
// row/column-major slab fill. All functions are generic over the array's
// domain type.
package coord

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

// Coord is the set of Go types usable as an array's coordinate domain type.
type Coord interface {
	constraints.Integer | constraints.Float
}

// Rect is a hyper-rectangle in coordinate space: [min0,max0, min1,max1, ...],
// one inclusive (min,max) pair per dimension.
type Rect[T Coord] []T

// DimNum returns the number of dimensions described by the rectangle.
func (r Rect[T]) DimNum() int {
	return len(r) / 2
}

// Min returns the inclusive lower bound of dimension d.
func (r Rect[T]) Min(d int) T { return r[2*d] }

// Max returns the inclusive upper bound of dimension d.
func (r Rect[T]) Max(d int) T { return r[2*d+1] }

// Extent returns the number of coordinates spanned by dimension d.
func (r Rect[T]) Extent(d int) uint64 {
	return uint64(r.Max(d)-r.Min(d)) + 1
}

// NumCells returns the total number of cells the rectangle spans.
func (r Rect[T]) NumCells() uint64 {
	n := uint64(1)
	for d := 0; d < r.DimNum(); d++ {
		n *= r.Extent(d)
	}
	return n
}

// Overlap reports whether hyper-rectangles a and b intersect, and whether a
// fully contains b. Both must describe the same number of dimensions.
func Overlap[T Coord](a, b Rect[T]) (overlaps bool, aContainsB bool) {
	dimNum := a.DimNum()
	overlaps = true
	aContainsB = true
	for d := 0; d < dimNum; d++ {
		if a.Max(d) < b.Min(d) || a.Min(d) > b.Max(d) {
			overlaps = false
			aContainsB = false
			return
		}
		if b.Min(d) < a.Min(d) || b.Max(d) > a.Max(d) {
			aContainsB = false
		}
	}
	return
}

// LinearizeRowMajor converts a coordinate local to a tile (0-based, one
// value per dimension) into a linear cell position, advancing the last
// dimension fastest.
func LinearizeRowMajor[T Coord](local []T, extents []uint64) uint64 {
	dimNum := len(local)
	pos := uint64(0)
	stride := uint64(1)
	for d := dimNum - 1; d >= 0; d-- {
		pos += uint64(local[d]) * stride
		stride *= extents[d]
	}
	return pos
}

// LinearizeColMajor is LinearizeRowMajor with the fastest-varying dimension
// first instead of last.
func LinearizeColMajor[T Coord](local []T, extents []uint64) uint64 {
	dimNum := len(local)
	pos := uint64(0)
	stride := uint64(1)
	for d := 0; d < dimNum; d++ {
		pos += uint64(local[d]) * stride
		stride *= extents[d]
	}
	return pos
}

// DelinearizeRowMajor is the inverse of LinearizeRowMajor.
func DelinearizeRowMajor[T Coord](pos uint64, extents []uint64) []T {
	dimNum := len(extents)
	out := make([]T, dimNum)
	for d := dimNum - 1; d >= 0; d-- {
		out[d] = T(pos % extents[d])
		pos /= extents[d]
	}
	return out
}

// DelinearizeColMajor is the inverse of LinearizeColMajor.
func DelinearizeColMajor[T Coord](pos uint64, extents []uint64) []T {
	dimNum := len(extents)
	out := make([]T, dimNum)
	for d := 0; d < dimNum; d++ {
		out[d] = T(pos % extents[d])
		pos /= extents[d]
	}
	return out
}

// FillSlabRowMajor writes num consecutive row-major coordinates, starting at
// start, into dst (one vector of dimNum values of type T per cell,
// contiguous). Overflow at a dimension boundary propagates into the next
// slower-varying dimension using domain as the wrap bound for each
// dimension: past domain.Max(d) the coordinate wraps to domain.Min(d).
func FillSlabRowMajor[T Coord](start []T, num uint64, domain Rect[T], dst []T) {
	dimNum := len(start)
	cur := make([]T, dimNum)
	copy(cur, start)

	for i := uint64(0); i < num; i++ {
		copy(dst[uint64(dimNum)*i:], cur)

		for d := dimNum - 1; d >= 0; d-- {
			if cur[d] < domain.Max(d) {
				cur[d]++
				break
			}
			cur[d] = domain.Min(d)
		}
	}
}

// FillSlabColMajor is FillSlabRowMajor advancing the first dimension
// fastest instead of the last.
func FillSlabColMajor[T Coord](start []T, num uint64, domain Rect[T], dst []T) {
	dimNum := len(start)
	cur := make([]T, dimNum)
	copy(cur, start)

	for i := uint64(0); i < num; i++ {
		copy(dst[uint64(dimNum)*i:], cur)

		for d := 0; d < dimNum; d++ {
			if cur[d] < domain.Max(d) {
				cur[d]++
				break
			}
			cur[d] = domain.Min(d)
		}
	}
}

// SizeOf returns the byte width of one value of type T, the same width
// AsBytes/FromBytes use to reinterpret a coordinate vector.
func SizeOf[T Coord]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// AsBytes reinterprets a coordinate vector as its raw native-endian byte
// representation without copying, mirroring the direct-memory fast path the
// teacher library uses for same-endianness numeric conversions
// (internal/dtype/convert.go's canDirectCopy/directCopy).
func AsBytes[T Coord](vec []T) []byte {
	if len(vec) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vec[0])), len(vec)*size)
}

// FromBytes reinterprets raw bytes as a coordinate vector of n values of
// type T, without copying. buf must hold at least n*sizeof(T) bytes and be
// aligned for T (true for buffers obtained from tile.Tile, which are always
// allocated as []byte via make, satisfying Go's minimum alignment
// guarantees for the numeric kinds Coord allows).
func FromBytes[T Coord](buf []byte, n int) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), n)
}
