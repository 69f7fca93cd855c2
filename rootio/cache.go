// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// objectCacheKey identifies one deserialized object by the file it came
// from and the absolute seek of its Key, spec.md §5's object cache.
type objectCacheKey struct {
	fileUUID [16]byte
	seekKey  int64
}

// ObjectCache memoizes File.readObjectFromKey results, keyed by
// (file UUID, seek), so re-reading the same Key (e.g. re-visiting a
// directory entry) skips decompression and re-synthesis.
type ObjectCache struct {
	lru *lru.Cache
}

// NewObjectCache returns an ObjectCache holding up to size entries.
func NewObjectCache(size int) (*ObjectCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ObjectCache{lru: c}, nil
}

func (c *ObjectCache) Get(fileUUID [16]byte, seekKey int64) (Object, bool) {
	v, ok := c.lru.Get(objectCacheKey{fileUUID, seekKey})
	if !ok {
		return nil, false
	}
	return v.(Object), true
}

func (c *ObjectCache) Add(fileUUID [16]byte, seekKey int64, obj Object) {
	c.lru.Add(objectCacheKey{fileUUID, seekKey}, obj)
}

// arrayCacheKey identifies one decoded, interpreted run of basket data:
// which branch, which entry range, and under which interpretation (two
// interpretations of the same bytes, e.g. signed vs. unsigned, are
// different cache entries), spec.md §5's array cache.
type arrayCacheKey struct {
	fileUUID       [16]byte
	branchPath     string
	entryStart     int64
	entryStop      int64
	interpretation string
}

// ArrayCache memoizes decoded basket payloads for TTree reads.
type ArrayCache struct {
	lru *lru.Cache
}

// NewArrayCache returns an ArrayCache holding up to size entries.
func NewArrayCache(size int) (*ArrayCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ArrayCache{lru: c}, nil
}

func (c *ArrayCache) key(fileUUID [16]byte, branchPath string, start, stop int64, interp string) arrayCacheKey {
	return arrayCacheKey{fileUUID, branchPath, start, stop, interp}
}

func (c *ArrayCache) Get(fileUUID [16]byte, branchPath string, start, stop int64, interp string) (interface{}, bool) {
	return c.lru.Get(c.key(fileUUID, branchPath, start, stop, interp))
}

func (c *ArrayCache) Add(fileUUID [16]byte, branchPath string, start, stop int64, interp string, v interface{}) {
	c.lru.Add(c.key(fileUUID, branchPath, start, stop, interp), v)
}

// String renders a cache key for diagnostics.
func (k arrayCacheKey) String() string {
	return fmt.Sprintf("%x:%s[%d:%d]@%s", k.fileUUID, k.branchPath, k.entryStart, k.entryStop, k.interpretation)
}
