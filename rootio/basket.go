// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"fmt"
	"reflect"
	"time"
)

// basketClass names TBasket records. A basket's Key is always emitted in
// the big-seek form, so its on-disk fVersion reads 1004 regardless of
// where the record lands in the file (spec.md §4.10.2).
const basketClass = "TBasket"

// encodeRectangular writes data (a slice whose element type is kind's Go
// type) as big-endian raw array bytes, spec.md §4.10.2's rectangular
// basket payload.
func encodeRectangular(kind LeafKind, data interface{}) ([]byte, int, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice || v.Type().Elem() != kind.goType() {
		return nil, 0, fmt.Errorf("rootio: branch data has type %T, want []%s", data, kind.goType())
	}
	w := NewWBuffer(nil, nil, 0)
	n := v.Len()
	prim := kind.prim()
	for i := 0; i < n; i++ {
		writePrim(w, prim, v.Index(i).Interface())
	}
	return w.Bytes(), n, w.Err()
}

// decodeRectangular reads n values of kind's type from r.
func decodeRectangular(kind LeafKind, r *RBuffer, n int) (interface{}, error) {
	slice := reflect.MakeSlice(reflect.SliceOf(kind.goType()), n, n)
	prim := kind.prim()
	for i := 0; i < n; i++ {
		slice.Index(i).Set(reflect.ValueOf(readPrim(r, prim)))
	}
	return slice.Interface(), r.Err()
}

// encodeJagged flattens data (a slice of slices, outer length = number of
// entries in this basket) into one values payload plus the cumulative
// byte-offset array of ROOT's TBasket convention: one offset per entry
// plus the end offset, pre-translation (entry 0 sits at byte 0 of the
// values; basketPayload adds the +fKeylen bias when writing).
func encodeJagged(kind LeafKind, data interface{}) (values []byte, offsets []int32, err error) {
	outer := reflect.ValueOf(data)
	if outer.Kind() != reflect.Slice {
		return nil, nil, fmt.Errorf("rootio: jagged branch data has type %T, want a slice of slices", data)
	}
	n := outer.Len()
	offsets = make([]int32, n+1)
	w := NewWBuffer(nil, nil, 0)
	prim := kind.prim()
	for i := 0; i < n; i++ {
		inner := outer.Index(i)
		if inner.Kind() != reflect.Slice || inner.Type().Elem() != kind.goType() {
			return nil, nil, fmt.Errorf("rootio: jagged branch entry %d has type %s, want []%s", i, inner.Type(), kind.goType())
		}
		for j := 0; j < inner.Len(); j++ {
			writePrim(w, prim, inner.Index(j).Interface())
		}
		offsets[i+1] = int32(w.Pos())
	}
	return w.Bytes(), offsets, w.Err()
}

// countsFromOffsets converts a cumulative byte-offset array back to
// per-entry element counts.
func countsFromOffsets(offsets []int32, itemSize int32) []int32 {
	counts := make([]int32, len(offsets)-1)
	for i := range counts {
		counts[i] = (offsets[i+1] - offsets[i]) / itemSize
	}
	return counts
}

// decodeJagged reconstructs the jagged slice-of-slices from a flattened
// values buffer and the per-entry counts read alongside it.
func decodeJagged(kind LeafKind, r *RBuffer, counts []int32) (interface{}, error) {
	elemType := kind.goType()
	outer := reflect.MakeSlice(reflect.SliceOf(reflect.SliceOf(elemType)), len(counts), len(counts))
	prim := kind.prim()
	for i, c := range counts {
		inner := reflect.MakeSlice(reflect.SliceOf(elemType), int(c), int(c))
		for j := 0; j < int(c); j++ {
			inner.Index(j).Set(reflect.ValueOf(readPrim(r, prim)))
		}
		outer.Index(i).Set(inner)
	}
	return outer.Interface(), r.Err()
}

// basketPayload builds one basket's on-disk payload (spec.md §4.10.2):
// the raw big-endian values for a rectangular branch, or for a jagged one
// the values followed by a 4-byte offset count and the big-endian offset
// array, each offset translated by +keylen and the final entry zeroed on
// disk, ROOT's convention. The pre-translation last offset is returned
// for the branch's fLast bookkeeping.
func basketPayload(b *Branch, data interface{}, keylen int32) ([]byte, int, int32, error) {
	if !b.jagged {
		raw, n, err := encodeRectangular(b.leaf.kind, data)
		return raw, n, int32(len(raw)), err
	}
	values, offsets, err := encodeJagged(b.leaf.kind, data)
	if err != nil {
		return nil, 0, 0, err
	}
	last := offsets[len(offsets)-1]
	w := NewWBuffer(nil, nil, 0)
	w.write(values)
	w.WriteI32(int32(len(offsets)))
	for i, off := range offsets {
		if i == len(offsets)-1 {
			w.WriteI32(0)
			continue
		}
		w.WriteI32(off + keylen)
	}
	return w.Bytes(), len(offsets) - 1, last, w.Err()
}

// newSliceOf returns an empty, addressable []elemType as an interface{}.
func newSliceOf(elemType reflect.Type, n int) interface{} {
	return reflect.MakeSlice(reflect.SliceOf(elemType), n, n).Interface()
}

// sliceType returns the reflect.Type of []elemType.
func sliceType(elemType reflect.Type) reflect.Type {
	return reflect.SliceOf(elemType)
}

// appendSlice appends src's elements onto dst; both must be slices of
// the same element type.
func appendSlice(dst, src interface{}) interface{} {
	return reflect.AppendSlice(reflect.ValueOf(dst), reflect.ValueOf(src)).Interface()
}

// decodeBasketPayload is basketPayload's reader-side counterpart. keylen
// undoes the +fKeylen offset translation and last restores the final
// offset entry the writer zeroed on disk.
func decodeBasketPayload(b *Branch, payload []byte, n int, keylen, last int32) (interface{}, error) {
	r := NewRBuffer(payload, nil, 0)
	if !b.jagged {
		return decodeRectangular(b.leaf.kind, r, n)
	}
	tail := 4 + 4*(n+1)
	if len(payload) < tail {
		return nil, &FormatError{Msg: fmt.Sprintf("jagged basket of %d entries too short for its offset block (%d bytes)", n, len(payload))}
	}
	tr := NewRBuffer(payload[len(payload)-tail:], nil, 0)
	cnt := tr.ReadI32()
	if int(cnt) != n+1 {
		return nil, &FormatError{Msg: fmt.Sprintf("jagged basket offset count %d, want %d", cnt, n+1)}
	}
	offsets := make([]int32, cnt)
	for i := range offsets {
		offsets[i] = tr.ReadI32()
	}
	for i := 0; i < n; i++ {
		offsets[i] -= keylen
	}
	offsets[n] = last
	values := payload[:len(payload)-tail]
	if int(last) != len(values) {
		return nil, &FormatError{Msg: fmt.Sprintf("jagged basket fLast %d disagrees with its %d value bytes", last, len(values))}
	}
	counts := countsFromOffsets(offsets, b.leaf.kind.size())
	return decodeJagged(b.leaf.kind, NewRBuffer(values, nil, 0), counts)
}

// writeUntrackedRecord allocates space for, and writes, a Key-framed
// record that is not listed in any directory's keys-data block: TBasket
// payloads are reachable only via their owning TBranch's fBasketSeek
// array, mirroring how this package's own TFree and TStreamerInfo
// records sit outside the normal directory listing. big forces the
// 64-bit-seek key form regardless of where the record lands, which is
// how TBasket keys get their fVersion = 1004 marker (spec.md §4.10.2);
// otherwise the same small-then-big allocation probe as
// tdirectory.AddObject decides the form. The record's extent is folded
// into the file's end-of-file bookkeeping on the way out since nothing
// else will.
func writeUntrackedRecord(f *File, class, name, title string, payload []byte, uncompressedLen int32, seekpdir int64, big bool) (*Key, error) {
	useBig := big || seekpdir >= kStartBigFile
	var keylen int32
	var loc int64
	if useBig {
		keylen = keyHeaderLen(class, name, title, true)
		loc = f.free.Allocate(int64(keylen)+int64(len(payload)), false)
	} else {
		smallLen := keyHeaderLen(class, name, title, false)
		totalSmall := int64(smallLen) + int64(len(payload))
		loc = f.free.Allocate(totalSmall, true)
		if loc >= kStartBigFile {
			useBig = true
			keylen = keyHeaderLen(class, name, title, true)
			loc = f.free.Allocate(int64(keylen)+int64(len(payload)), false)
		} else {
			keylen = smallLen
			loc = f.free.Allocate(totalSmall, false)
		}
	}

	k := &Key{
		f: f, class: class, name: name, title: title,
		objlen: uncompressedLen, buf: payload, cycle: 1, big: big,
		keylen: keylen, seekkey: loc, seekpdir: seekpdir,
		bytes:    keylen + int32(len(payload)),
		datetime: rootDatime(time.Now()),
	}
	if err := k.writeFile(); err != nil {
		return nil, err
	}
	if err := f.bumpEnd(loc + int64(keylen) + int64(len(payload))); err != nil {
		return nil, err
	}
	return k, nil
}
