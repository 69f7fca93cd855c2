// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestSerialExecutorRunsInline(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Shutdown()
	ran := false
	fut := e.Submit(func() error {
		ran = true
		return nil
	})
	if err := fut.Result(); err != nil {
		t.Errorf("Result: %v", err)
	}
	if !ran {
		t.Error("task did not run")
	}

	wantErr := fmt.Errorf("boom")
	if err := e.Submit(func() error { return wantErr }).Result(); err != wantErr {
		t.Errorf("Result = %v, want %v", err, wantErr)
	}
}

func TestPoolExecutorRunsAllTasks(t *testing.T) {
	e := NewPoolExecutor(4)
	var n int64
	futures := make([]Future, 0, 32)
	for i := 0; i < 32; i++ {
		futures = append(futures, e.Submit(func() error {
			atomic.AddInt64(&n, 1)
			return nil
		}))
	}
	for i, fut := range futures {
		if err := fut.Result(); err != nil {
			t.Errorf("task %d: %v", i, err)
		}
	}
	if n != 32 {
		t.Errorf("ran %d tasks, want 32", n)
	}
	e.Shutdown()
	e.Shutdown() // idempotent
}

// TestFileWithPoolExecutor reads compressed payloads through a pooled
// executor instead of the default serial one.
func TestFileWithPoolExecutor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pooled.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h := NewH1("h", "t", 32, 0, 32)
	fillH1(h, []int{9, 9, 9})
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
	pool := NewPoolExecutor(2)
	defer pool.Shutdown()
	rf.SetExecutor(pool)

	obj, err := rf.Get("h")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e := obj.(*H1).Entries(); e != 27 {
		t.Errorf("Entries = %v, want 27", e)
	}
}
