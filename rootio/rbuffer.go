// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// RBuffer is a position-tracked, big-endian binary cursor over a Chunk of
// bytes already resident in memory. It is the Cursor of spec.md §4.2:
// copyable by value via Copy, non-owning of the underlying data.
//
// refs is the per-record back-reference table used by the read-any-object
// protocol (§4.8): positions are measured from start, the origin bias that
// lets a record whose header has already been consumed compute
// back-reference offsets relative to its own beginning rather than the
// whole file.
type RBuffer struct {
	r     *bytes.Reader
	data  []byte
	start int64
	refs  map[int64]interface{}
	err   error
}

// NewRBuffer wraps data for reading. refs is the record-local back-reference
// table (may be nil for data that contains no read-any-object references).
// start biases Displacement() to the beginning of the enclosing record;
// Pos() stays an absolute index into data.
func NewRBuffer(data []byte, refs map[int64]interface{}, start int64) *RBuffer {
	if refs == nil {
		refs = make(map[int64]interface{})
	}
	return &RBuffer{
		r:     bytes.NewReader(data),
		data:  data,
		start: start,
		refs:  refs,
	}
}

// Err returns the first error encountered while reading, if any.
func (r *RBuffer) Err() error { return r.err }

func (r *RBuffer) setErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Pos returns the current absolute index into the wrapped data.
func (r *RBuffer) Pos() int64 {
	pos, _ := r.r.Seek(0, ioSeekCurrent)
	return pos
}

// Displacement returns the number of bytes read since start, i.e. the
// cursor's offset relative to the beginning of the enclosing record.
func (r *RBuffer) Displacement() int64 {
	return r.Pos() - r.start
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *RBuffer) Skip(n int64) {
	if r.err != nil {
		return
	}
	_, err := r.r.Seek(n, ioSeekCurrent)
	r.setErr(err)
}

// Copy returns an independent cursor over the same backing data, positioned
// identically to r.
func (r *RBuffer) Copy() *RBuffer {
	pos := r.Pos()
	cp := NewRBuffer(r.data, r.refs, r.start)
	cp.Skip(pos)
	cp.err = r.err
	return cp
}

// Bytes borrows (copies) the next n bytes and advances the cursor.
func (r *RBuffer) Bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r.r, out); err != nil {
		r.setErr(fmt.Errorf("rootio: short read of %d bytes: %w", n, err))
		return nil
	}
	return out
}

func (r *RBuffer) read(p []byte) {
	if r.err != nil {
		return
	}
	_, err := io.ReadFull(r.r, p)
	r.setErr(err)
}

func (r *RBuffer) ReadU8() uint8 {
	var buf [1]byte
	r.read(buf[:])
	return buf[0]
}

func (r *RBuffer) ReadI8() int8 { return int8(r.ReadU8()) }

func (r *RBuffer) ReadBool() bool { return r.ReadU8() != 0 }

func (r *RBuffer) ReadU16() uint16 {
	var buf [2]byte
	r.read(buf[:])
	return binary.BigEndian.Uint16(buf[:])
}

func (r *RBuffer) ReadI16() int16 { return int16(r.ReadU16()) }

func (r *RBuffer) ReadU32() uint32 {
	var buf [4]byte
	r.read(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

func (r *RBuffer) ReadI32() int32 { return int32(r.ReadU32()) }

func (r *RBuffer) ReadU64() uint64 {
	var buf [8]byte
	r.read(buf[:])
	return binary.BigEndian.Uint64(buf[:])
}

func (r *RBuffer) ReadI64() int64 { return int64(r.ReadU64()) }

func (r *RBuffer) ReadF32() float32 {
	return math.Float32frombits(r.ReadU32())
}

func (r *RBuffer) ReadF64() float64 {
	return math.Float64frombits(r.ReadU64())
}

// ReadString reads the length-prefixed string of spec.md §3: one byte
// length, or 0xFF followed by a 4-byte length when the string is 255 bytes
// or longer.
func (r *RBuffer) ReadString() string {
	n := int(r.ReadU8())
	if n == 255 {
		n = int(r.ReadU32())
	}
	if n == 0 {
		return ""
	}
	raw := r.Bytes(n)
	return string(raw)
}

// ReadCString reads a NUL-terminated string, used by the read-any-object
// protocol's kNewClassTag branch (§4.8).
func (r *RBuffer) ReadCString() string {
	var buf []byte
	for {
		c := r.ReadU8()
		if r.err != nil || c == 0 {
			break
		}
		buf = append(buf, c)
	}
	return string(buf)
}

// ReadStaticArrayI32 reads n consecutive big-endian int32 values.
func (r *RBuffer) ReadStaticArrayI32(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = r.ReadI32()
	}
	return out
}

// ReadStaticArrayF64 reads n consecutive big-endian float64 values.
func (r *RBuffer) ReadStaticArrayF64(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r.ReadF64()
	}
	return out
}

// SetPos seeks the cursor to an absolute position within the backing data.
func (r *RBuffer) SetPos(pos int64) {
	if r.err != nil {
		return
	}
	_, err := r.r.Seek(pos, ioSeekStart)
	r.setErr(err)
}

// Ref looks up the per-record back-reference table by record-relative
// position (the Displacement at which the entry was registered).
func (r *RBuffer) Ref(pos int64) (interface{}, bool) {
	v, ok := r.refs[pos]
	return v, ok
}

// SetRef registers a class name or object at pos in the per-record
// back-reference table.
func (r *RBuffer) SetRef(pos int64, v interface{}) {
	r.refs[pos] = v
}

// Debug renders a hex + interpreted dump of the cursor neighborhood, used
// by DeserializationError to aid diagnosis.
func (r *RBuffer) Debug(limit int) string {
	return debugDump(r.data, int(r.Pos()), limit)
}
