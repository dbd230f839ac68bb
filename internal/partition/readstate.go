package partition

import (
	"fmt"

	"github.com/arrayengine/mdarray/internal/coord"
)

// State is one of the four states spec.md §4.7 names for a ReadState.
type State int

const (
	Uninitialized State = iota
	Initialized
	InProgress
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case InProgress:
		return "in-progress"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// ReadState is spec.md §3's ReadState: an ordered list of subarray
// partitions plus the index of the next one to execute, exposed as an
// explicit struct threaded through the orchestrator rather than hidden
// behind closures (spec.md §9: "ReadState as a mutable cursor... eases
// testability").
type ReadState[T coord.Coord] struct {
	partitions []coord.Rect[T]
	idx        int
	state      State
}

// Init transitions Uninitialized -> Initialized, storing the partitions
// computed by ComputeSubarrayPartitions.
func (rs *ReadState[T]) Init(partitions []coord.Rect[T]) {
	rs.partitions = partitions
	rs.idx = 0
	rs.state = Initialized
}

// Reset transitions any state back to Uninitialized, per spec.md §4.7
// ("Any state -> Uninitialized on finalize() or schema/subarray/layout
// change").
func (rs *ReadState[T]) Reset() {
	rs.partitions = nil
	rs.idx = 0
	rs.state = Uninitialized
}

// State reports the current state.
func (rs *ReadState[T]) State() State { return rs.state }

// Current returns the partition the next Read() call should execute, and
// whether one exists (false once Done).
func (rs *ReadState[T]) Current() (coord.Rect[T], bool) {
	if rs.idx >= len(rs.partitions) {
		return nil, false
	}
	if rs.state == Initialized {
		rs.state = InProgress
	}
	return rs.partitions[rs.idx], true
}

// Advance moves the cursor past the current partition, per spec.md §4.7
// ("idx advances after each successful partition"). It transitions to
// Done once every partition has been consumed.
func (rs *ReadState[T]) Advance() {
	rs.idx++
	if rs.idx >= len(rs.partitions) {
		rs.state = Done
	}
}

// Done reports whether every partition has been processed.
func (rs *ReadState[T]) Done() bool {
	return rs.state == Done || (rs.partitions != nil && rs.idx >= len(rs.partitions))
}

// NumPartitions returns the total partition count, for diagnostics.
func (rs *ReadState[T]) NumPartitions() int { return len(rs.partitions) }

// Index returns the index of the next partition to execute.
func (rs *ReadState[T]) Index() int { return rs.idx }

// RequireState returns an error unless the cursor is currently in one of
// the given states — used by the orchestrator to enforce spec.md §4.7's
// transition table before accepting an operation.
func (rs *ReadState[T]) RequireState(allowed ...State) error {
	for _, s := range allowed {
		if rs.state == s {
			return nil
		}
	}
	return fmt.Errorf("partition: invalid state %s for this operation", rs.state)
}
