// Package partition implements spec.md §4.7: splitting a user subarray
// into partitions that are each guaranteed to fit in the user's output
// buffers, and the ReadState cursor that drives successive submissions.
// Grounded on other_examples/scigolib-hdf5__chunk_coordinator.go's
// recursive dimension bookkeeping style, repurposed from "enumerate every
// chunk of a dataset" to "recursively bisect a subarray until every
// attribute's estimated result size fits its buffer".
package partition

import (
	"fmt"

	"github.com/arrayengine/mdarray/internal/coord"
	"github.com/arrayengine/mdarray/internal/fragment"
	"github.com/arrayengine/mdarray/internal/schema"
)

// AttrBudget is one attribute's buffer capacity, in bytes, against which a
// partition's estimated result size is checked. For a variable-size
// attribute both OffsetsCap and ValuesCap are populated; for a fixed-size
// attribute only FixedCap is.
type AttrBudget struct {
	ID         schema.AttrID
	VarSize    bool
	CellSize   uint64 // fixed: bytes per cell. var: bytes per offset entry (8).
	FixedCap   uint64
	OffsetsCap uint64
	ValuesCap  uint64
}

// fragmentSizeEstimate upper-bounds, per attribute, the byte size a
// subarray's result would occupy — computed from fragment metadata
// (spec.md §4.7: "estimating per-partition result size from fragment
// metadata (upper-bound cell counts x cell sizes; for variable-sized
// attributes an upper bound from stored tile sizes)"). Fixed attributes
// are bounded by numCells*cellSize. Variable attributes are estimated by
// the sum of every overlapping fragment tile's stored size (Location.Size).
// That sum bounds the result only when a tile stores at least as many
// bytes as its values decode to; a compressed tile can decode to more than
// it stores, and then the estimate is too low. The copy engine still stops
// at the buffer's end and reports Incomplete in that case.
type fragmentSizeEstimate[T coord.Coord] struct {
	frags []fragment.Metadata
}

// ComputeSubarrayPartitions implements spec.md §4.7's concrete bisection
// policy: recursively bisect subarray along its longest-extent dimension
// (ties broken by lowest dimension index, per SPEC_FULL.md's resolution of
// the §4.7/§9 open question), estimating each candidate partition's
// per-attribute size from frags. A partition is accepted once every
// attribute's estimate fits its budget; an empty partition (zero cells) is
// dropped; a singleton-cell partition that still exceeds some budget
// returns ErrBufferTooSmall, since no further bisection can help.
func ComputeSubarrayPartitions[T coord.Coord](subarray coord.Rect[T], frags []fragment.Metadata, budgets []AttrBudget) ([]coord.Rect[T], error) {
	est := &fragmentSizeEstimate[T]{frags: frags}

	var out []coord.Rect[T]
	var recurse func(r coord.Rect[T]) error
	recurse = func(r coord.Rect[T]) error {
		if r.NumCells() == 0 {
			return nil
		}
		fits, err := fits(est, r, budgets)
		if err != nil {
			return err
		}
		if fits {
			out = append(out, r)
			return nil
		}
		if r.NumCells() == 1 {
			return fmt.Errorf("partition: %w: single cell exceeds buffer capacity", ErrBufferTooSmall)
		}

		d, lo, hi := longestDim(r)
		mid := lo + (hi-lo)/2

		left := append(coord.Rect[T]{}, r...)
		left[2*d+1] = mid
		right := append(coord.Rect[T]{}, r...)
		right[2*d] = mid + 1

		if err := recurse(left); err != nil {
			return err
		}
		return recurse(right)
	}

	if err := recurse(subarray); err != nil {
		return nil, err
	}
	return out, nil
}

func longestDim[T coord.Coord](r coord.Rect[T]) (dim int, lo, hi T) {
	best := -1
	var bestExtent uint64
	for d := 0; d < r.DimNum(); d++ {
		e := r.Extent(d)
		if e > bestExtent {
			bestExtent = e
			best = d
		}
	}
	return best, r.Min(best), r.Max(best)
}

func fits[T coord.Coord](est *fragmentSizeEstimate[T], r coord.Rect[T], budgets []AttrBudget) (bool, error) {
	numCells := r.NumCells()
	for _, b := range budgets {
		if b.VarSize {
			// One 8-byte output-relative offset per cell (copyengine.CopyVar's
			// output format), not the numCells+1 header format tile.VarTile
			// uses for a decoded input tile.
			offsetsNeed := numCells * 8
			if offsetsNeed > b.OffsetsCap {
				return false, nil
			}
			valuesNeed := est.estimateVarBytes(r, b)
			if valuesNeed > b.ValuesCap {
				return false, nil
			}
			continue
		}
		if numCells*b.CellSize > b.FixedCap {
			return false, nil
		}
	}
	return true, nil
}

// estimateVarBytes estimates a variable-size attribute's values size for
// subarray r by summing the stored (possibly compressed) size of every
// fragment tile overlapping r, for the attribute identified by b.ID. It
// does not decode tiles, so for a tile whose decoded values are larger
// than its stored size the estimate is below the real values size.
func (e *fragmentSizeEstimate[T]) estimateVarBytes(r coord.Rect[T], b AttrBudget) uint64 {
	var total uint64
	for _, frag := range e.frags {
		numTiles := frag.NumTiles()
		for tileIdx := uint64(0); tileIdx < numTiles; tileIdx++ {
			mbr, ok := fragment.MBR[T](frag, tileIdx)
			if !ok {
				continue
			}
			overlaps, _ := coord.Overlap(r, mbr)
			if !overlaps {
				continue
			}
			if loc, ok := frag.TileLocation(b.ID, tileIdx); ok {
				total += loc.Size
			}
		}
	}
	return total
}

// CheckResetBufferSizes implements spec.md §4.7's buffer-size reset rule:
// each new size must be >= the corresponding initial size, since
// partitions were computed against the initial sizes.
func CheckResetBufferSizes(initial, next []uint64) error {
	if len(initial) != len(next) {
		return fmt.Errorf("partition: %w: buffer count changed on reset", ErrInvalidReset)
	}
	for i := range initial {
		if next[i] < initial[i] {
			return fmt.Errorf("partition: %w: buffer %d shrank from %d to %d", ErrInvalidReset, i, initial[i], next[i])
		}
	}
	return nil
}
