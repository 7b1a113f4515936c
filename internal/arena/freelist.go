package arena

import (
	"slices"
	"sort"
)

// interval is a half-open [start, end) byte span within the arena,
// aligned to the mapping granularity.
type interval struct {
	start uint64
	end   uint64
}

// freeList is the set of freed-but-untrimmed intervals, sorted by start.
// Intervals are pairwise-disjoint and never adjacent: adjacency is
// coalesced away on insert.
type freeList struct {
	intervals []interval
}

// insert adds [lo, hi) to the set, merging it with every interval it
// overlaps or directly touches, and returns the merged interval.
func (f *freeList) insert(lo, hi uint64) interval {
	// First interval that could touch [lo, hi): its end reaches lo.
	i := sort.Search(len(f.intervals), func(k int) bool {
		return f.intervals[k].end >= lo
	})

	// Absorb every interval starting at or before hi.
	j := i
	for j < len(f.intervals) && f.intervals[j].start <= hi {
		if f.intervals[j].start < lo {
			lo = f.intervals[j].start
		}
		if f.intervals[j].end > hi {
			hi = f.intervals[j].end
		}
		j++
	}

	merged := interval{start: lo, end: hi}
	if i == j {
		f.intervals = slices.Insert(f.intervals, i, merged)
	} else {
		f.intervals[i] = merged
		f.intervals = append(f.intervals[:i+1], f.intervals[j:]...)
	}
	return merged
}

// popEndingAt removes the interval whose end equals mark, if any, and
// returns its start. Intervals are sorted and disjoint with ends bounded by
// the watermark, so only the last interval can qualify.
func (f *freeList) popEndingAt(mark uint64) (uint64, bool) {
	n := len(f.intervals)
	if n == 0 || f.intervals[n-1].end != mark {
		return 0, false
	}
	lo := f.intervals[n-1].start
	f.intervals = f.intervals[:n-1]
	return lo, true
}

// totalBytes returns the sum of all interval lengths.
func (f *freeList) totalBytes() uint64 {
	var total uint64
	for _, iv := range f.intervals {
		total += iv.end - iv.start
	}
	return total
}

// len returns the number of recorded intervals.
func (f *freeList) len() int {
	return len(f.intervals)
}
