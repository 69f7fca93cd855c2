// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"reflect"
	"testing"
)

func TestFreeListAllocateAppendsAtEnd(t *testing.T) {
	fl := NewFreeList(100)
	loc := fl.Allocate(50, false)
	if loc != 100 {
		t.Errorf("Allocate(50) = %d, want 100", loc)
	}
	if fl.End() != 150 {
		t.Errorf("End() = %d, want 150", fl.End())
	}
}

func TestFreeListAllocateReleaseRestoresState(t *testing.T) {
	fl := NewFreeList(100)
	loc := fl.Allocate(40, false)
	if err := fl.Release(loc, loc+40); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if fl.End() != 100 {
		t.Errorf("End() after release = %d, want 100", fl.End())
	}
	if len(fl.Segments()) != 0 {
		t.Errorf("Segments() after release = %v, want none", fl.Segments())
	}
}

func TestFreeListExactFitPreferred(t *testing.T) {
	fl := NewFreeList(1000)
	if err := fl.Release(100, 150); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := fl.Release(200, 260); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if loc := fl.Allocate(60, false); loc != 200 {
		t.Errorf("Allocate(60) = %d, want the exact-fit slot at 200", loc)
	}
	if loc := fl.Allocate(50, false); loc != 100 {
		t.Errorf("Allocate(50) = %d, want the exact-fit slot at 100", loc)
	}
	if got := fl.Segments(); len(got) != 0 {
		t.Errorf("Segments() = %v, want none after both exact fits", got)
	}
}

func TestFreeListFirstFitLarger(t *testing.T) {
	fl := NewFreeList(1000)
	if err := fl.Release(100, 180); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if loc := fl.Allocate(50, false); loc != 100 {
		t.Errorf("Allocate(50) = %d, want 100", loc)
	}
	want := []freeSegment{{150, 180}}
	if got := fl.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
}

func TestFreeListDryRunDoesNotMutate(t *testing.T) {
	fl := NewFreeList(500)
	if err := fl.Release(100, 160); err != nil {
		t.Fatalf("Release: %v", err)
	}
	before := fl.Segments()
	if loc := fl.Allocate(30, true); loc != 100 {
		t.Errorf("dry-run Allocate(30) = %d, want 100", loc)
	}
	if got := fl.Segments(); !reflect.DeepEqual(got, before) {
		t.Errorf("dry run mutated segments: %v -> %v", before, got)
	}
	if fl.End() != 500 {
		t.Errorf("dry run mutated end: %d", fl.End())
	}
}

func TestFreeListReleaseMergesNeighbors(t *testing.T) {
	fl := NewFreeList(1000)
	for _, iv := range [][2]int64{{100, 150}, {200, 250}, {150, 200}} {
		if err := fl.Release(iv[0], iv[1]); err != nil {
			t.Fatalf("Release(%d,%d): %v", iv[0], iv[1], err)
		}
	}
	want := []freeSegment{{100, 250}}
	if got := fl.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %v, want %v", got, want)
	}
}

func TestFreeListReleaseOverlapRejected(t *testing.T) {
	fl := NewFreeList(1000)
	if err := fl.Release(100, 200); err != nil {
		t.Fatalf("Release: %v", err)
	}
	err := fl.Release(150, 250)
	if err == nil {
		t.Fatal("overlapping Release: got nil error, want AllocationError")
	}
	if _, ok := err.(*AllocationError); !ok {
		t.Errorf("overlapping Release error = %T, want *AllocationError", err)
	}
}

func TestFreeListReleaseAtEndCollapses(t *testing.T) {
	fl := NewFreeList(300)
	if err := fl.Release(250, 300); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if fl.End() != 250 {
		t.Errorf("End() = %d, want 250", fl.End())
	}
	if len(fl.Segments()) != 0 {
		t.Errorf("Segments() = %v, want none", fl.Segments())
	}
}

func TestFreeListSelfAtEndDisplaced(t *testing.T) {
	fl := NewFreeList(100)
	fl.SetSelf(80, 20)
	loc := fl.Allocate(30, false)
	if loc != 80 {
		t.Errorf("Allocate(30) with self at end = %d, want the record's slot 80", loc)
	}
	if fl.End() != 130 {
		t.Errorf("End() = %d, want 130", fl.End())
	}
	self, ok := fl.Self()
	if !ok || self != 110 {
		t.Errorf("Self() = (%d, %v), want (110, true)", self, ok)
	}
}

func TestFreeListSizeof(t *testing.T) {
	fl := NewFreeList(500)
	if got := fl.sizeof(); got != 4+10 {
		t.Errorf("sizeof() with no segments = %d, want 14", got)
	}
	if err := fl.Release(100, 150); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := fl.sizeof(); got != 4+10+10 {
		t.Errorf("sizeof() with one small segment = %d, want 24", got)
	}
	fl.SetEnd(kStartBigFile + 10)
	if got := fl.sizeof(); got != 4+10+18 {
		t.Errorf("sizeof() with big end = %d, want 32", got)
	}
}

func TestFreeListSegmentsSortedDisjoint(t *testing.T) {
	fl := NewFreeList(10000)
	for _, iv := range [][2]int64{{500, 600}, {100, 200}, {300, 400}, {700, 800}} {
		if err := fl.Release(iv[0], iv[1]); err != nil {
			t.Fatalf("Release(%d,%d): %v", iv[0], iv[1], err)
		}
	}
	segs := fl.Segments()
	for i := 1; i < len(segs); i++ {
		if segs[i-1].stop >= segs[i].start {
			t.Errorf("segments not sorted/disjoint/non-adjacent: %v", segs)
		}
	}
}
