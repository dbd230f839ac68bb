package dense

// ClipRanges intersects each of ranges (sorted, disjoint, ascending — the
// shape DecomposeBox produces) with [start, end), dropping any resulting
// empty span. Used by the orchestrator to restrict a fragment's
// tile-wide decomposition down to the one query sub-range currently being
// merged.
func ClipRanges(ranges []LocalRange, start, end uint64) []LocalRange {
	var out []LocalRange
	for _, r := range ranges {
		s, e := r.Start, r.End
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		if s < e {
			out = append(out, LocalRange{Start: s, End: e})
		}
	}
	return out
}
