package partition

import "errors"

// ErrBufferTooSmall is returned when a single cell cannot fit the
// provided buffers, so no amount of further bisection can make progress
// (spec.md §7's BufferTooSmall).
var ErrBufferTooSmall = errors.New("buffer too small")

// ErrInvalidReset is returned when a mid-query buffer-size reset violates
// spec.md §4.7's monotonicity rule (new size < initial size).
var ErrInvalidReset = errors.New("invalid buffer reset")
