// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "fmt"

// branchVersion is the TBranch class version this writer stamps.
const branchVersion = 1

// Branch is one column of a Tree, spec.md §4.10's TBranch: a leaf type,
// a compression setting, and the per-basket pointer tables
// (fBasketBytes, fBasketEntry, fBasketSeek) that locate its data on
// disk. basketEntry always has one more element than basketBytes/
// basketSeek: basketEntry[0] is 0 and basketEntry[i+1]-basketEntry[i] is
// basket i's entry count, spec.md §3's TTree invariant.
type Branch struct {
	tree *Tree

	name  string
	title string
	leaf  *Leaf

	compression int32 // packed algo*100+level, File.compression's convention

	basketBytes []int32
	basketEntry []int64
	basketSeek  []int64
	basketLast  []int32 // per-basket fLast: the pre-translation last offset (jagged), or the payload length (rectangular)

	totBytes int64
	zipBytes int64

	jagged      bool
	counterName string // jagged branches only: name of the synthesized counter branch
	counterFor  string // counter branches only: name of the jagged branch they count
	maximum     int64  // counter branches only: largest count value written so far
}

func (b *Branch) Class() string { return "TBranch" }
func (b *Branch) Name() string  { return b.name }
func (b *Branch) Title() string { return b.title }

// NumEntries reports how many rows this branch has recorded, derived
// from its basket entry table rather than stored redundantly.
func (b *Branch) NumEntries() int64 {
	if len(b.basketEntry) == 0 {
		return 0
	}
	return b.basketEntry[len(b.basketEntry)-1]
}

// leafTitle renders ROOT's "name[dim]/T" title convention for a leaf of
// kind k (spec.md §4.10.1); dim is empty for a rectangular branch.
func leafTitle(name string, kind LeafKind, dim string) string {
	return fmt.Sprintf("%s%s/%c", name, dim, byte(kind))
}

// AddBranch declares a new rectangular branch of the given element kind,
// ready to be filled by Extend. It must be called before the tree's
// first Extend; branches cannot be added to a tree that already has
// entries.
func (t *Tree) AddBranch(name string, kind LeafKind) (*Branch, error) {
	if !kind.valid() {
		return nil, fmt.Errorf("rootio: AddBranch: unknown leaf kind %q", string(kind))
	}
	if t.findBranch(name) != nil {
		return nil, fmt.Errorf("rootio: AddBranch: tree %q already has a branch named %q", t.named.name, name)
	}
	if t.numEntries > 0 {
		return nil, fmt.Errorf("rootio: AddBranch: tree %q already has entries; branches must be declared before the first Extend", t.named.name)
	}
	b := &Branch{
		tree:        t,
		name:        name,
		title:       leafTitle(name, kind, ""),
		leaf:        &Leaf{name: name, kind: kind},
		basketEntry: []int64{0},
	}
	t.branches = append(t.branches, b)
	return b, nil
}

// AddJaggedBranch declares a variable-length branch of the given element
// kind, plus a synthesized rectangular int32 counter branch named
// counterName that records each row's element count, per spec.md
// §4.10/S4 ("synthesized counter branch"). The counter branch is
// returned alongside the jagged one so a caller that wants to read it
// back directly (rather than implicitly via Array) can.
func (t *Tree) AddJaggedBranch(name string, kind LeafKind, counterName string) (*Branch, *Branch, error) {
	if t.findBranch(counterName) != nil {
		return nil, nil, fmt.Errorf("rootio: AddJaggedBranch: tree %q already has a branch named %q", t.named.name, counterName)
	}
	counter, err := t.AddBranch(counterName, LeafI)
	if err != nil {
		return nil, nil, err
	}
	counter.counterFor = name

	b, err := t.AddBranch(name, kind)
	if err != nil {
		return nil, nil, err
	}
	b.jagged = true
	b.counterName = counterName
	b.title = leafTitle(name, kind, "["+counterName+"]")
	return b, counter, nil
}

// MarshalROOT writes one branch's metadata and current basket pointer
// tables.
func (b *Branch) MarshalROOT(w *WBuffer) error {
	w.WriteI16(branchVersion)
	w.WriteString(b.name)
	w.WriteString(b.title)
	w.WriteU8(byte(b.leaf.kind))
	w.WriteI32(b.compression)
	w.WriteBool(b.jagged)
	w.WriteString(b.counterName)
	w.WriteString(b.counterFor)
	w.WriteI64(b.maximum)
	w.WriteI64(b.totBytes)
	w.WriteI64(b.zipBytes)

	w.WriteI32(int32(len(b.basketBytes)))
	for _, v := range b.basketBytes {
		w.WriteI32(v)
	}
	w.WriteI32(int32(len(b.basketSeek)))
	for _, v := range b.basketSeek {
		w.WriteI64(v)
	}
	w.WriteI32(int32(len(b.basketEntry)))
	for _, v := range b.basketEntry {
		w.WriteI64(v)
	}
	w.WriteI32(int32(len(b.basketLast)))
	for _, v := range b.basketLast {
		w.WriteI32(v)
	}
	return w.Err()
}

// UnmarshalROOT reads back one branch written by MarshalROOT.
func (b *Branch) UnmarshalROOT(r *RBuffer) error {
	_ = r.ReadI16() // version
	b.name = r.ReadString()
	b.title = r.ReadString()
	kind := LeafKind(r.ReadU8())
	b.leaf = &Leaf{name: b.name, kind: kind}
	b.compression = r.ReadI32()
	b.jagged = r.ReadBool()
	b.counterName = r.ReadString()
	b.counterFor = r.ReadString()
	b.maximum = r.ReadI64()
	b.totBytes = r.ReadI64()
	b.zipBytes = r.ReadI64()

	n := r.ReadI32()
	b.basketBytes = make([]int32, n)
	for i := range b.basketBytes {
		b.basketBytes[i] = r.ReadI32()
	}
	n = r.ReadI32()
	b.basketSeek = make([]int64, n)
	for i := range b.basketSeek {
		b.basketSeek[i] = r.ReadI64()
	}
	n = r.ReadI32()
	b.basketEntry = make([]int64, n)
	for i := range b.basketEntry {
		b.basketEntry[i] = r.ReadI64()
	}
	n = r.ReadI32()
	b.basketLast = make([]int32, n)
	for i := range b.basketLast {
		b.basketLast[i] = r.ReadI32()
	}
	return r.Err()
}

// path identifies this branch uniquely within its tree, for array-cache
// keying (spec.md §5's "branch path" cache dimension).
func (b *Branch) path() string {
	return b.tree.named.name + "/" + b.name
}

// interpretation names the decoding this branch's bytes are given, the
// array cache's third key dimension: two different ways of reading the
// same basket bytes (not possible here, since a branch has exactly one
// leaf kind) would otherwise collide.
func (b *Branch) interpretation() string {
	if b.jagged {
		return "jagged:" + string(b.leaf.kind)
	}
	return string(b.leaf.kind)
}

// Array reads back this branch's full column, decoding every basket in
// order (each basket is self-describing: a jagged basket's trailing
// count block needs no help from the companion counter branch). Regular
// branches return a slice of the leaf's Go type; jagged branches return
// a slice of such slices. Per-basket decoded results are served from the
// owning file's array cache (spec.md §5) when one is installed.
func (b *Branch) Array() (interface{}, error) {
	elemType := b.leaf.kind.goType()
	var out interface{}
	if b.jagged {
		out = newSliceOf(sliceType(elemType), 0)
	} else {
		out = newSliceOf(elemType, 0)
	}

	f := b.tree.file
	path := b.path()
	interp := b.interpretation()

	for k := range b.basketSeek {
		start, stop := b.basketEntry[k], b.basketEntry[k+1]

		if f.arrCache != nil {
			if v, ok := f.arrCache.Get(f.uuid, path, start, stop, interp); ok {
				out = appendSlice(out, v)
				continue
			}
		}

		payload, n, keylen, err := b.basketAt(k)
		if err != nil {
			return nil, err
		}
		v, err := decodeBasketPayload(b, payload, n, keylen, b.basketLast[k])
		if err != nil {
			return nil, err
		}
		if f.arrCache != nil {
			f.arrCache.Add(f.uuid, path, start, stop, interp, v)
		}
		out = appendSlice(out, v)
	}
	return out, nil
}

// basketAt decompresses basket k of branch b and returns its raw
// payload, its entry count and its key's fKeylen (needed to undo the
// offset translation in a jagged payload).
func (b *Branch) basketAt(k int) ([]byte, int, int32, error) {
	f := b.tree.file
	seek := b.basketSeek[k]
	key, raw, err := readFullRecordAt(f, seek)
	if err != nil {
		return nil, 0, 0, err
	}
	payload := raw
	if int32(len(raw)) != key.objlen {
		fut := f.executor().Submit(func() error {
			var derr error
			payload, derr = Decompress(raw, int(key.objlen))
			return derr
		})
		if err := fut.Result(); err != nil {
			return nil, 0, 0, err
		}
	}
	n := int(b.basketEntry[k+1] - b.basketEntry[k])
	return payload, n, key.keylen, nil
}
