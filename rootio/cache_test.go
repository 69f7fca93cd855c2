// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"path/filepath"
	"testing"
)

func TestObjectCacheServesIdenticalInstance(t *testing.T) {
	path := filepath.Join(t.TempDir(), "objcache.root")
	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Put("h", "t", NewH1("h", "t", 4, 0, 4)); err != nil {
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
	if err := rf.SetObjectCache(8); err != nil {
		t.Fatalf("SetObjectCache: %v", err)
	}

	a, err := rf.Get("h")
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	b, err := rf.Get("h")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if a != b {
		t.Error("second Get decoded a fresh instance instead of serving the cache")
	}

	if err := rf.SetObjectCache(0); err != nil {
		t.Fatalf("SetObjectCache(0): %v", err)
	}
	c, err := rf.Get("h")
	if err != nil {
		t.Fatalf("third Get: %v", err)
	}
	if c == a {
		t.Error("cache disabled but the old instance came back")
	}
}

func TestArrayCacheKeying(t *testing.T) {
	c, err := NewArrayCache(4)
	if err != nil {
		t.Fatalf("NewArrayCache: %v", err)
	}
	var uuid [16]byte
	c.Add(uuid, "t/x", 0, 10, "I", []int32{1, 2, 3})
	if v, ok := c.Get(uuid, "t/x", 0, 10, "I"); !ok || len(v.([]int32)) != 3 {
		t.Errorf("Get = (%v, %v)", v, ok)
	}
	// A different interpretation of the same byte range is a different
	// entry.
	if _, ok := c.Get(uuid, "t/x", 0, 10, "i"); ok {
		t.Error("interpretation is not part of the key")
	}
	if _, ok := c.Get(uuid, "t/x", 0, 11, "I"); ok {
		t.Error("entry range is not part of the key")
	}
}

func TestObjectCacheLRUEvicts(t *testing.T) {
	c, err := NewObjectCache(2)
	if err != nil {
		t.Fatalf("NewObjectCache: %v", err)
	}
	var uuid [16]byte
	for i := int64(0); i < 3; i++ {
		c.Add(uuid, i, &tobjstring{value: "x"})
	}
	if _, ok := c.Get(uuid, 0); ok {
		t.Error("oldest entry survived past the cache capacity")
	}
	if _, ok := c.Get(uuid, 2); !ok {
		t.Error("newest entry was evicted")
	}
}
