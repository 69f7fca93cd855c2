// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "reflect"

// LeafKind is TLeaf's type-letter tag (spec.md §4.10.1): the one-letter
// suffix ROOT's title convention ("name[dim]/T") uses to identify a
// branch's primitive element type.
type LeafKind byte

const (
	LeafO LeafKind = 'O' // bool
	LeafB LeafKind = 'B' // int8
	Leafb LeafKind = 'b' // uint8
	LeafS LeafKind = 'S' // int16
	Leafs LeafKind = 's' // uint16
	LeafI LeafKind = 'I' // int32
	Leafi LeafKind = 'i' // uint32
	LeafL LeafKind = 'L' // int64
	Leafl LeafKind = 'l' // uint64
	LeafF LeafKind = 'F' // float32
	LeafD LeafKind = 'D' // float64
)

// prim maps a leaf's type letter to the primitive wire kind streamers.go's
// readPrim/writePrim already know how to move to and from an RBuffer/
// WBuffer.
func (k LeafKind) prim() PrimKind {
	switch k {
	case LeafO:
		return PrimBool
	case LeafB:
		return PrimChar
	case Leafb:
		return PrimUChar
	case LeafS:
		return PrimShort
	case Leafs:
		return PrimUShort
	case LeafI:
		return PrimInt
	case Leafi:
		return PrimUInt
	case LeafL:
		return PrimLong64
	case Leafl:
		return PrimULong64
	case LeafF:
		return PrimFloat
	case LeafD:
		return PrimDouble
	default:
		return PrimUnknown
	}
}

// goType returns the concrete Go type this leaf's values are represented
// as in a decoded slice (reflect.MakeSlice's element type for Branch.Array).
func (k LeafKind) goType() reflect.Type {
	switch k {
	case LeafO:
		return reflect.TypeOf(bool(false))
	case LeafB:
		return reflect.TypeOf(int8(0))
	case Leafb:
		return reflect.TypeOf(uint8(0))
	case LeafS:
		return reflect.TypeOf(int16(0))
	case Leafs:
		return reflect.TypeOf(uint16(0))
	case LeafI:
		return reflect.TypeOf(int32(0))
	case Leafi:
		return reflect.TypeOf(uint32(0))
	case LeafL:
		return reflect.TypeOf(int64(0))
	case Leafl:
		return reflect.TypeOf(uint64(0))
	case LeafF:
		return reflect.TypeOf(float32(0))
	case LeafD:
		return reflect.TypeOf(float64(0))
	default:
		return nil
	}
}

func (k LeafKind) valid() bool { return k.goType() != nil }

// size returns the on-disk byte width of one element of kind k, used to
// convert a jagged basket's byte-offset array to element counts.
func (k LeafKind) size() int32 {
	switch k {
	case LeafO, LeafB, Leafb:
		return 1
	case LeafS, Leafs:
		return 2
	case LeafI, Leafi, LeafF:
		return 4
	case LeafL, Leafl, LeafD:
		return 8
	default:
		return 0
	}
}

// writePrim writes v, a value of the Go type readPrim would have produced
// for kind k, using k's wire encoding. It is streamers.go's readPrim's
// missing write-side counterpart, needed once this package has a write
// path (the teacher never wrote primitives back out).
func writePrim(w *WBuffer, k PrimKind, v interface{}) {
	switch k {
	case PrimBool:
		w.WriteBool(v.(bool))
	case PrimChar:
		w.WriteI8(v.(int8))
	case PrimUChar:
		w.WriteU8(v.(uint8))
	case PrimShort:
		w.WriteI16(v.(int16))
	case PrimUShort:
		w.WriteU16(v.(uint16))
	case PrimInt:
		w.WriteI32(v.(int32))
	case PrimUInt:
		w.WriteU32(v.(uint32))
	case PrimLong, PrimLong64:
		w.WriteI64(v.(int64))
	case PrimULong, PrimULong64:
		w.WriteU64(v.(uint64))
	case PrimFloat, PrimFloat16:
		w.WriteF32(v.(float32))
	case PrimDouble, PrimDouble32:
		w.WriteF64(v.(float64))
	}
}

// Leaf is TLeaf's write-side model: one per branch, identifying the
// branch's element type (spec.md §4.10.1's "exactly one TLeaf per
// branch, identified by its type letter").
type Leaf struct {
	name string
	kind LeafKind
}

func (l *Leaf) Class() string { return "TLeaf" + string(l.kind) }
func (l *Leaf) Name() string  { return l.name }
func (l *Leaf) Title() string { return string(l.kind) }
