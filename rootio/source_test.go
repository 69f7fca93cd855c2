// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

func TestBytesSourceChunk(t *testing.T) {
	src := NewBytesSource([]byte("abcdefgh"))
	defer src.Close()

	b, err := src.Chunk(context.Background(), ChunkRequest{Start: 2, Len: 3})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if string(b) != "cde" {
		t.Errorf("Chunk = %q, want %q", b, "cde")
	}
	if n, _ := src.NumBytes(); n != 8 {
		t.Errorf("NumBytes = %d, want 8", n)
	}

	_, err = src.Chunk(context.Background(), ChunkRequest{Start: 6, Len: 5})
	if err == nil {
		t.Fatal("out-of-range Chunk succeeded")
	}
	var se *SourceError
	if !asErr(err, &se) {
		t.Errorf("error = %T, want *SourceError", err)
	}
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestFileSourceChunksSinkAndOrder(t *testing.T) {
	data := []byte("0123456789abcdef")
	src, err := NewFileSource(writeTempFile(t, data), 4)
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer src.Close()

	reqs := []ChunkRequest{{0, 4}, {8, 4}, {4, 4}, {12, 4}}
	var mu sync.Mutex
	var sunk []int
	out, err := src.Chunks(context.Background(), reqs, func(i int, b []byte) {
		mu.Lock()
		sunk = append(sunk, i)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	// The returned list is in request order, whatever order the sink saw.
	want := []string{"0123", "89ab", "4567", "cdef"}
	for i, b := range out {
		if string(b) != want[i] {
			t.Errorf("out[%d] = %q, want %q", i, b, want[i])
		}
	}
	sort.Ints(sunk)
	if len(sunk) != 4 || sunk[0] != 0 || sunk[3] != 3 {
		t.Errorf("sink saw %v, want each request exactly once", sunk)
	}
}

func TestMmapSourceChunk(t *testing.T) {
	data := bytes.Repeat([]byte("xyz"), 100)
	src, err := NewMmapSource(writeTempFile(t, data))
	if err != nil {
		t.Fatalf("NewMmapSource: %v", err)
	}
	b, err := src.Chunk(context.Background(), ChunkRequest{Start: 3, Len: 6})
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if string(b) != "xyzxyz" {
		t.Errorf("Chunk = %q", b)
	}
	if n, _ := src.NumBytes(); n != int64(len(data)) {
		t.Errorf("NumBytes = %d, want %d", n, len(data))
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

// TestSourceReaderOpensRootFile drives a whole File read through the
// Source abstraction instead of a raw descriptor.
func TestSourceReaderOpensRootFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viasource.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h := NewH1("h", "t", 8, 0, 8)
	fillH1(h, []int{2, 2})
	if _, err := f.Put("h", "t", h); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, tt := range []struct {
		name string
		open func() (Source, error)
	}{
		{"file", func() (Source, error) { return NewFileSource(path, 2) }},
		{"mmap", func() (Source, error) { return NewMmapSource(path) }},
		{"bytes", func() (Source, error) {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return NewBytesSource(raw), nil
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			src, err := tt.open()
			if err != nil {
				t.Fatalf("open source: %v", err)
			}
			rf, err := NewReader(NewSourceReader(src), path)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			defer rf.Close()
			obj, err := rf.Get("h")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if e := obj.(*H1).Entries(); e != 4 {
				t.Errorf("Entries = %v, want 4", e)
			}
		})
	}
}
