// Package query is the reader orchestrator of spec.md §4.8: the top-level
// Reader composes coordinate math, the overlap planner, the dense range
// merger, the sparse coordinate pipeline, and the copy engine into the
// public read path described by spec.md §6. Grounded on the teacher's
// top-level types (hdf5.Dataset, hdf5.File): thin structs that hold
// references to lower-layer state and expose a small, validated public
// API, with sentinel errors wrapped by fmt.Errorf as they cross layers
// (go-hdf5/errors.go).
package query

import "errors"

// Error kinds, one sentinel per spec.md §7 fatal error kind. IncompleteQuery
// is deliberately not among them — spec.md calls it out as a status, not an
// error, so it is reported as Status returned alongside a nil error (see
// Status in reader.go).
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOutOfDomain       = errors.New("subarray not contained in array domain")
	ErrBufferTooSmall    = errors.New("buffer too small")
	ErrTypeMismatch      = errors.New("coordinate type mismatch with schema domain type")
	ErrIOError           = errors.New("storage I/O error")
	ErrInternalInvariant = errors.New("internal invariant violated")
)
