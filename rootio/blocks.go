// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "sort"

// freeSegment is one disjoint, half-open [start, stop) free interval of the
// TFree map (spec.md §3, §4.5). The teacher's original block/blocks pair
// (file.go:440-476) modeled the same idea with inclusive bounds; this type
// generalizes it to the allocate/release policy spec.md actually specifies.
type freeSegment struct {
	start, stop int64
}

func (s freeSegment) size() int64 { return s.stop - s.start }

// FreeList is the free-space map of spec.md §4.5: a sorted, disjoint,
// non-adjacent list of free byte ranges plus the file's logical end.
type FreeList struct {
	segs []freeSegment
	end  int64

	// selfLoc/selfLen describe the on-disk location and current
	// serialized length of the free-list's own Key record, when known.
	// Allocate's second policy step only applies while the map's own
	// record sits at end-of-file.
	selfLoc  int64
	selfLen  int64
	haveSelf bool
}

// NewFreeList returns a free-space map for a file whose logical end is
// currently at end and which otherwise has no free intervals.
func NewFreeList(end int64) *FreeList {
	return &FreeList{end: end}
}

// End reports the file's current logical end-of-file offset.
func (f *FreeList) End() int64 { return f.end }

// SetEnd forces the logical end-of-file marker, used when restoring a map
// parsed from disk.
func (f *FreeList) SetEnd(end int64) { f.end = end }

// Segments returns the free map's intervals in sorted order, for tests
// that check the invariants of spec.md §8.2.
func (f *FreeList) Segments() []freeSegment {
	out := make([]freeSegment, len(f.segs))
	copy(out, f.segs)
	return out
}

// SetSelf records where the free-list's own Key currently lives and how
// long its current serialized form is.
func (f *FreeList) SetSelf(loc, length int64) {
	f.selfLoc, f.selfLen, f.haveSelf = loc, length, true
}

// ClearSelf forgets the record's location, e.g. while it is being
// relocated and transiently has no on-disk home.
func (f *FreeList) ClearSelf() { f.haveSelf = false }

// Self reports the record's current on-disk location, when known. An
// Allocate that found the record at end-of-file may have displaced it
// since the last flush (spec.md §4.5 step 2).
func (f *FreeList) Self() (int64, bool) {
	if !f.haveSelf {
		return 0, false
	}
	return f.selfLoc, true
}

func (f *FreeList) selfAtEnd() bool {
	return f.haveSelf && f.selfLoc+f.selfLen == f.end
}

// Allocate places a new n-byte record and returns its location, following
// spec.md §4.5:
//  1. first-fit over intervals exactly n bytes, or strictly larger than n;
//  2. otherwise, if the map's own record sits at end-of-file, take over the
//     map's current location and push the map (and file end) forward by n;
//  3. otherwise, append at the current end and push it forward by n.
//
// When dryRun is true, the location that would have been chosen is
// returned without mutating any state.
func (f *FreeList) Allocate(n int64, dryRun bool) int64 {
	if n <= 0 {
		return f.end
	}

	// Step 1: exact match first (shrinks the map itself the most).
	for i, s := range f.segs {
		if s.size() == n {
			loc := s.start
			if !dryRun {
				f.segs = append(f.segs[:i], f.segs[i+1:]...)
			}
			return loc
		}
	}
	// Strictly larger than n: first fit.
	for i, s := range f.segs {
		if s.size() > n {
			loc := s.start
			if !dryRun {
				f.segs[i].start += n
			}
			return loc
		}
	}

	// Step 2: the map's own record is at EOF; displace it forward.
	if f.selfAtEnd() {
		loc := f.selfLoc
		if !dryRun {
			f.end += n
			f.selfLoc += n
		}
		return loc
	}

	// Step 3: append at end.
	loc := f.end
	if !dryRun {
		f.end += n
	}
	return loc
}

// Release frees the interval [start, stop), per spec.md §4.5:
//  1. error if it overlaps any already-free interval;
//  2. merge with an adjacent neighbor on either side;
//  3. if the freed interval now abuts the file's logical end, collapse it
//     into a smaller end-of-file marker instead of keeping it as a
//     separate free interval (this is how the map "stays at end-of-file
//     whenever feasible", the tie-break spec.md §4.5 calls out).
func (f *FreeList) Release(start, stop int64) error {
	if stop <= start {
		return &AllocationError{Start: start, Stop: stop, Msg: "empty or inverted interval"}
	}
	idx := sort.Search(len(f.segs), func(i int) bool { return f.segs[i].start >= start })
	// Check overlap against the segment immediately before and at idx.
	if idx > 0 {
		prev := f.segs[idx-1]
		if prev.stop > start {
			return &AllocationError{Start: start, Stop: stop, Msg: "overlaps an already-free interval"}
		}
	}
	if idx < len(f.segs) {
		next := f.segs[idx]
		if next.start < stop {
			return &AllocationError{Start: start, Stop: stop, Msg: "overlaps an already-free interval"}
		}
	}

	seg := freeSegment{start, stop}
	// Merge with neighbor before.
	if idx > 0 && f.segs[idx-1].stop == seg.start {
		idx--
		seg.start = f.segs[idx].start
		f.segs = append(f.segs[:idx], f.segs[idx+1:]...)
	}
	// Merge with neighbor after (re-scan, idx may have shifted).
	at := sort.Search(len(f.segs), func(i int) bool { return f.segs[i].start >= seg.start })
	if at < len(f.segs) && f.segs[at].start == seg.stop {
		seg.stop = f.segs[at].stop
		f.segs = append(f.segs[:at], f.segs[at+1:]...)
	}

	if seg.stop == f.end {
		f.end = seg.start
		return nil
	}

	insertAt := sort.Search(len(f.segs), func(i int) bool { return f.segs[i].start >= seg.start })
	f.segs = append(f.segs, freeSegment{})
	copy(f.segs[insertAt+1:], f.segs[insertAt:])
	f.segs[insertAt] = seg
	return nil
}

// sizeof returns the serialized length of the free-space map record
// itself: a 4-byte entry count, then per interval a 2-byte version plus
// two seeks (4 bytes each in small form, 8 in big form), including the
// trailing file-end marker (a segment whose "stop" is the sentinel,
// always present so a reader knows free space continues unbounded past
// the current end). flushFreeList cross-checks its own WBuffer output
// against this for every write, per spec.md §4.5.
func (f *FreeList) sizeof() int32 {
	n := int32(4 + freeEntrySize(f.end))
	for _, s := range f.segs {
		n += int32(freeEntrySize(s.stop))
	}
	return n
}

func freeEntrySize(stop int64) int {
	if stop >= kStartBigFile {
		return 18
	}
	return 10
}
