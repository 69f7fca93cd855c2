// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// fillH1 distributes counts over h's bins: counts[i] unit-weight fills
// into bin i+1's center.
func fillH1(h *H1, counts []int) {
	lo, hi, n := h.Axis().Min(), h.Axis().Max(), h.Axis().NBins()
	width := (hi - lo) / float64(n)
	for i, c := range counts {
		x := lo + (float64(i)+0.5)*width
		for j := 0; j < c; j++ {
			h.Fill(x, 1)
		}
	}
}

// TestSmallFileOneHistogram writes a single 10-bin histogram and reads
// it back from a fresh handle: one key, 39 entries, under 2 KiB on disk.
func TestSmallFileOneHistogram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hist.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	h := NewH1("h", "test", 10, 0.0, 10.0)
	fillH1(h, []int{3, 1, 4, 1, 5, 9, 2, 6, 5, 3})
	if _, err := f.Put("h", "test", h); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Size() >= 2048 {
		t.Errorf("file is %d bytes, want < 2 KiB", fi.Size())
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	if got, want := rf.dir.keyNames(), []string{"h;1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	obj, err := rf.Get("h")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, ok := obj.(*H1)
	if !ok {
		t.Fatalf("Get = %T, want *H1", obj)
	}
	if got.Entries() != 39 {
		t.Errorf("fEntries = %v, want 39", got.Entries())
	}
	if got.Title() != "test" {
		t.Errorf("title = %q, want %q", got.Title(), "test")
	}
	want := []float64{0, 3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 0}
	for i, w := range want {
		if got.Bin(i) != w {
			t.Errorf("bin %d = %v, want %v", i, got.Bin(i), w)
		}
	}
}

// TestCycleNumbers writes the same name three times; each write gets the
// next cycle, and a bare Get returns the highest one.
func TestCycleNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cycles.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 1; i <= 3; i++ {
		h := NewH1("h", "test", 10, 0, 10)
		fillH1(h, []int{i}) // i entries, to tell the cycles apart
		if _, err := f.Put("h", "test", h); err != nil {
			t.Fatalf("Put #%d: %v", i, err)
		}
	}

	want := []string{"h;1", "h;2", "h;3"}
	if got := f.dir.keyNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}

	// Get during the write session must already see cycle 3.
	obj, err := f.Get("h")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e := obj.(*H1).Entries(); e != 3 {
		t.Errorf("Get(\"h\").Entries() = %v, want cycle 3's 3", e)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()
	if got := rf.dir.keyNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("keys after reopen = %v, want %v", got, want)
	}
	for cycle, entries := range map[string]float64{"h;1": 1, "h;2": 2, "h": 3} {
		obj, err := rf.Get(cycle)
		if err != nil {
			t.Fatalf("Get(%q): %v", cycle, err)
		}
		if e := obj.(*H1).Entries(); e != entries {
			t.Errorf("Get(%q).Entries() = %v, want %v", cycle, e, entries)
		}
	}
}

func TestCreatedFileHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hdr.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) < kBEGIN {
		t.Fatalf("file is %d bytes, want at least the %d-byte header", len(raw), kBEGIN)
	}
	if string(raw[:4]) != "root" {
		t.Errorf("magic = %q, want %q", raw[:4], "root")
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()
	if rf.Version() != rootVersion {
		t.Errorf("Version() = %d, want %d", rf.Version(), rootVersion)
	}
	if rf.begin != kBEGIN {
		t.Errorf("begin = %d, want %d", rf.begin, kBEGIN)
	}
}

func TestOpenRejectsNonRootFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.root")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x55}, 200), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("Open of a non-ROOT file succeeded")
	}
	var fe *FormatError
	if !asErr(err, &fe) {
		t.Errorf("error = %T, want *FormatError", err)
	}
}

// TestFlushIdempotent flushes the free map twice with no intervening
// mutation; the second flush must leave the file bytes unchanged.
func TestFlushIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idem.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h := NewH1("h", "t", 4, 0, 4)
	if _, err := f.Put("h", "t", h); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := f.flushFreeList(); err != nil {
		t.Fatalf("first flush: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := f.flushFreeList(); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second flush changed the file")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestFreeMapInvariantsAfterReopen checks the §8 free-map invariants on
// a file that went through enough churn to create real free intervals.
func TestFreeMapInvariantsAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "churn.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := 0; i < 8; i++ {
		h := NewH1("h", "t", 16, 0, 16)
		fillH1(h, []int{i + 1})
		if _, err := f.Put("h", "t", h); err != nil {
			t.Fatalf("Put #%d: %v", i, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	segs := rf.free.Segments()
	for i, s := range segs {
		if s.start >= s.stop {
			t.Errorf("segment %d inverted: %v", i, s)
		}
		if i > 0 && segs[i-1].stop >= s.start {
			t.Errorf("segments %d/%d not sorted/disjoint/non-adjacent: %v", i-1, i, segs)
		}
		if s.stop > rf.free.End() {
			t.Errorf("segment %d extends past the logical end: %v > %d", i, s, rf.free.End())
		}
	}
	if rf.free.End() != rf.end {
		t.Errorf("free map end %d != header end %d", rf.free.End(), rf.end)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if rf.end > fi.Size() {
		t.Errorf("header end %d is past the physical file size %d", rf.end, fi.Size())
	}
}

// TestKeyPayloadAccounting is §8 property 1: for every key,
// stored payload + key header == fNbytes, and decompressing the stored
// payload yields exactly fObjlen bytes.
func TestKeyPayloadAccounting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "acct.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h := NewH1("h", "t", 64, 0, 64)
	fillH1(h, []int{1, 2, 3, 4, 5})
	if _, err := f.Put("h", "t", h); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	for _, k := range rf.Keys() {
		stored := k.bytes - k.keylen
		raw := make([]byte, stored)
		if _, err := rf.ReadAt(raw, k.seekkey+int64(k.keylen)); err != nil {
			t.Fatalf("ReadAt key %q: %v", k.name, err)
		}
		payload := raw
		if stored != k.objlen {
			payload, err = Decompress(raw, int(k.objlen))
			if err != nil {
				t.Fatalf("Decompress key %q: %v", k.name, err)
			}
		}
		if int32(len(payload)) != k.objlen {
			t.Errorf("key %q: payload decompresses to %d bytes, want fObjlen %d", k.name, len(payload), k.objlen)
		}
	}
}

func TestMapWritesToLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	if _, err := f.Put("h", "t", NewH1("h", "t", 4, 0, 4)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var buf bytes.Buffer
	f.SetLogOutput(&buf)
	f.Map()
	if !bytes.Contains(buf.Bytes(), []byte("h")) {
		t.Errorf("Map output missing the key: %q", buf.String())
	}
}
