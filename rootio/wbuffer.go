// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"encoding/binary"
	"math"
)

// WBuffer is the write-side counterpart of RBuffer: it accumulates a
// record's payload into an owned byte slice before it is known where
// that payload will live on disk. All multi-byte fields are big-endian,
// as required by spec.md §4.2.
//
// Once err is set, every subsequent Write call is a no-op: callers check
// err exactly once, at the end of a record, the same sticky-error idiom
// bytes.Buffer and archive/zip use internally.
type WBuffer struct {
	buf   []byte
	refs  map[int64]interface{}
	start int64
	err   error
}

// NewWBuffer returns a WBuffer that writes into data, starting from byte 0
// of data's capacity (data is treated as a pre-sized scratch buffer, not as
// already-written content).
func NewWBuffer(data []byte, refs map[int64]interface{}, start int64) *WBuffer {
	if refs == nil {
		refs = make(map[int64]interface{})
	}
	return &WBuffer{buf: data[:0], refs: refs, start: start}
}

// Err returns the first error encountered while writing, if any.
func (w *WBuffer) Err() error { return w.err }

// Bytes returns the bytes accumulated so far.
func (w *WBuffer) Bytes() []byte { return w.buf }

// Pos returns the number of bytes written so far.
func (w *WBuffer) Pos() int64 { return int64(len(w.buf)) }

func (w *WBuffer) write(p []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, p...)
}

func (w *WBuffer) WriteU8(v uint8) { w.write([]byte{v}) }

func (w *WBuffer) WriteI8(v int8) { w.WriteU8(uint8(v)) }

func (w *WBuffer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

func (w *WBuffer) WriteU16(v uint16) {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	w.write(buf[:])
}

func (w *WBuffer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *WBuffer) WriteU32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	w.write(buf[:])
}

func (w *WBuffer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *WBuffer) WriteU64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.write(buf[:])
}

func (w *WBuffer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *WBuffer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

func (w *WBuffer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteString writes the length-prefixed string encoding of spec.md §3.
func (w *WBuffer) WriteString(s string) {
	n := len(s)
	if n < 255 {
		w.WriteU8(uint8(n))
	} else {
		w.WriteU8(255)
		w.WriteU32(uint32(n))
	}
	w.write([]byte(s))
}

// WriteCString writes s followed by a NUL terminator.
func (w *WBuffer) WriteCString(s string) {
	w.write([]byte(s))
	w.WriteU8(0)
}

// SetRef registers a class name or object at pos in the per-record
// back-reference table, mirroring RBuffer.SetRef for the write path's
// own bookkeeping (used when re-serializing an object graph).
func (w *WBuffer) SetRef(pos int64, v interface{}) { w.refs[pos] = v }
