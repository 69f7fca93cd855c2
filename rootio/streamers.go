// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"fmt"
	"strings"
)

// PrimKind enumerates the primitive wire types of spec.md §4.7's mapping
// table. Sizes are platform-fixed, not host-dependent: Long/ULong are
// always read as 8 bytes, matching ROOT's on-disk convention rather than
// C's `long`.
type PrimKind int

const (
	PrimBool PrimKind = iota
	PrimChar
	PrimUChar
	PrimShort
	PrimUShort
	PrimInt
	PrimUInt
	PrimLong
	PrimULong
	PrimLong64
	PrimULong64
	PrimFloat
	PrimFloat16
	PrimDouble
	PrimDouble32
	PrimCharStar
	PrimUnknown
)

// primFromType maps ROOT's fType streamer-element codes (TStreamerInfo's
// kUChar..kULong64 constants) to PrimKind. Fixed-array and counted-array
// variants are flagged by offsets of 20 (kOffsetL) and 40 (kOffsetP)
// respectively; callers normalize fType before calling this.
func primFromType(t int32) (PrimKind, error) {
	switch t {
	case 1:
		return PrimChar, nil
	case 2:
		return PrimShort, nil
	case 3:
		return PrimInt, nil
	case 4:
		return PrimLong, nil
	case 5:
		return PrimFloat, nil
	case 6:
		return PrimInt, nil // kCounter
	case 8:
		return PrimDouble, nil
	case 9:
		return PrimDouble32, nil
	case 11:
		return PrimUChar, nil
	case 12:
		return PrimUShort, nil
	case 13:
		return PrimUInt, nil
	case 14:
		return PrimULong, nil
	case 15:
		return PrimUInt, nil
	case 16:
		return PrimLong64, nil
	case 17:
		return PrimULong64, nil
	case 18:
		return PrimBool, nil
	case 19:
		return PrimFloat16, nil
	default:
		return PrimUnknown, &SchemaError{Msg: fmt.Sprintf("unknown primitive type code %d", t)}
	}
}

// readPrim reads one value of kind k from r as the Go type spec.md §4.7
// assigns it.
func readPrim(r *RBuffer, k PrimKind) interface{} {
	switch k {
	case PrimBool:
		return r.ReadBool()
	case PrimChar:
		return r.ReadI8()
	case PrimUChar:
		return r.ReadU8()
	case PrimShort:
		return r.ReadI16()
	case PrimUShort:
		return r.ReadU16()
	case PrimInt:
		return r.ReadI32()
	case PrimUInt:
		return r.ReadU32()
	case PrimLong, PrimLong64:
		return r.ReadI64()
	case PrimULong, PrimULong64:
		return r.ReadU64()
	case PrimFloat, PrimFloat16:
		return r.ReadF32()
	case PrimDouble, PrimDouble32:
		return r.ReadF64()
	case PrimCharStar:
		return r.ReadCString()
	default:
		return nil
	}
}

// ElementKind is the dispatch tag of spec.md §4.7's table.
type ElementKind int

const (
	KindBase ElementKind = iota
	KindPrimitive
	KindPrimitiveArrayFixed
	KindPrimitiveArrayCounted
	KindSTL
	KindObject
	KindObjectPointer
	KindAnyPointer
	KindLoop
	KindArtificial
	KindString
)

const (
	offsetL = 20 // ROOT's kOffsetL: fixed-length array of primitives
	offsetP = 40 // ROOT's kOffsetP: counted array of primitives
)

// StreamerElement is one field descriptor of a TStreamerInfo, per
// spec.md §3/§4.7.
type StreamerElement struct {
	Name      string
	Title     string
	TypeName  string
	Kind      ElementKind
	Prim      PrimKind
	ArrayLen  int32  // fixed-array length, for KindPrimitiveArrayFixed
	CountName string // sibling member holding the count, for KindPrimitiveArrayCounted and KindLoop
	BaseVers  int16  // base-class version, for KindBase
}

// StreamerInfo describes one version of one class's binary layout
// (spec.md §3, §4.7).
type StreamerInfo struct {
	class    string
	version  int16
	checksum uint32
	elements []StreamerElement
}

func (s *StreamerInfo) Class() string               { return "TStreamerInfo" }
func (s *StreamerInfo) Name() string                 { return s.class }
func (s *StreamerInfo) Title() string                { return "" }
func (s *StreamerInfo) ClassVersion() int16          { return s.version }
func (s *StreamerInfo) Elements() []StreamerElement  { return s.elements }

// unmarshalStreamerInfo reads one TStreamerInfo record: TNamed(name=class,
// title), fCheckSum, fClassVersion, then an inline TObjArray of
// TStreamerElement subclasses (dispatched by class name via the
// read-any-object protocol).
func unmarshalStreamerInfo(r *RBuffer, reg *StreamerRegistry) (*StreamerInfo, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}

	named, err := unmarshalTNamed(r)
	if err != nil {
		return nil, err
	}
	si := &StreamerInfo{class: named.name}
	_ = r.ReadU32() // fCheckSum
	si.version = int16(r.ReadI32())

	elems, err := readObjArrayOfElements(r, reg)
	if err != nil {
		return nil, err
	}
	si.elements = elems

	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return si, nil
}

// readObjArrayOfElements reads the TObjArray of TStreamerElement objects
// embedded in a TStreamerInfo record: num-bytes/version header, one
// TObject skip-byte, the array's own name, its size and low-water mark,
// then size object-any slots.
func readObjArrayOfElements(r *RBuffer, reg *StreamerRegistry) ([]StreamerElement, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}

	_ = r.ReadU8() // TObject::fBits low byte, unused here
	_ = r.ReadString()
	size := r.ReadI32()
	_ = r.ReadI32() // low water mark

	elems := make([]StreamerElement, 0, size)
	for i := int32(0); i < size; i++ {
		obj, err := ReadObjectAny(r, reg)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			continue
		}
		el, ok := obj.(*streamerElementObj)
		if !ok {
			continue
		}
		elems = append(elems, el.StreamerElement)
	}

	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return elems, nil
}

// Streamer write-back (spec.md §1.3). Everything below re-serializes the
// registered StreamerInfos into the exact framing the readers above
// expect, so a file updated by this package carries its schema forward.

const (
	streamerInfoVersion    = 9
	streamerElementVersion = 4
	objArrayVersion        = 3
	listVersion            = 5
	objStringVersion       = 1
)

// NewStreamerInfo describes one class version's layout, for registration
// via StreamerRegistry.Add or File.AddStreamerInfo. Counted and loop
// elements whose CountName was left empty get it derived from the
// bracketed title, the same way the wire decoder fills it in.
func NewStreamerInfo(class string, version int16, elements []StreamerElement) *StreamerInfo {
	for i := range elements {
		el := &elements[i]
		if (el.Kind == KindPrimitiveArrayCounted || el.Kind == KindLoop) && el.CountName == "" {
			el.CountName = countNameFromTitle(el.Title)
		}
	}
	return &StreamerInfo{class: class, version: version, elements: elements}
}

// countNameFromTitle extracts the sibling-member name ROOT encodes in a
// counted element's title: "fE[fNhit]" -> "fNhit".
func countNameFromTitle(title string) string {
	i := strings.IndexByte(title, '[')
	j := strings.IndexByte(title, ']')
	if i < 0 || j <= i {
		return ""
	}
	return title[i+1 : j]
}

// primToType is primFromType's inverse, used when writing streamer
// elements back out.
func primToType(k PrimKind) int32 {
	switch k {
	case PrimChar:
		return 1
	case PrimShort:
		return 2
	case PrimInt:
		return 3
	case PrimLong:
		return 4
	case PrimFloat:
		return 5
	case PrimDouble:
		return 8
	case PrimDouble32:
		return 9
	case PrimUChar:
		return 11
	case PrimUShort:
		return 12
	case PrimUInt:
		return 13
	case PrimULong:
		return 14
	case PrimLong64:
		return 16
	case PrimULong64:
		return 17
	case PrimBool:
		return 18
	case PrimFloat16:
		return 19
	default:
		return 0
	}
}

// streamerElementClass maps an element's kind back to the concrete
// TStreamerElement subclass name unmarshalStreamerElement dispatches on.
func streamerElementClass(el *StreamerElement) string {
	switch el.Kind {
	case KindBase:
		return "TStreamerBase"
	case KindPrimitive, KindPrimitiveArrayFixed:
		return "TStreamerBasicType"
	case KindPrimitiveArrayCounted:
		return "TStreamerBasicPointer"
	case KindSTL:
		return "TStreamerSTL"
	case KindObject:
		return "TStreamerObject"
	case KindObjectPointer:
		return "TStreamerObjectPointer"
	case KindAnyPointer:
		return "TStreamerObjectAny"
	case KindLoop:
		return "TStreamerLoop"
	case KindString:
		return "TStreamerString"
	default:
		return "TStreamerArtificial"
	}
}

// streamerElementFType computes the fType code the read side will map
// back to this element's kind and primitive.
func streamerElementFType(el *StreamerElement) int32 {
	switch el.Kind {
	case KindBase:
		return int32(el.BaseVers)
	case KindPrimitive:
		return primToType(el.Prim)
	case KindPrimitiveArrayFixed:
		return primToType(el.Prim) + offsetL
	case KindPrimitiveArrayCounted:
		return primToType(el.Prim) + offsetP
	default:
		return 0
	}
}

// marshalStreamerElement serializes one element's record body (version
// field onward; the caller frames it).
func marshalStreamerElement(el *StreamerElement) ([]byte, error) {
	b := NewWBuffer(nil, nil, 0)
	b.WriteI16(streamerElementVersion)
	b.WriteU8(0)
	b.WriteString(el.Name)
	b.WriteString(el.Title)
	b.WriteI32(streamerElementFType(el))
	b.WriteI32(0) // fSize
	b.WriteI32(el.ArrayLen)
	b.WriteI32(0)           // fArrayDim
	b.WriteI32(el.ArrayLen) // fMaxIndex[0]
	for i := 1; i < 5; i++ {
		b.WriteI32(0)
	}
	b.WriteString(el.TypeName)
	return b.Bytes(), b.Err()
}

// marshalStreamerInfo serializes one TStreamerInfo record body: TNamed
// (name = class), checksum, class version, then the inline TObjArray of
// elements.
func marshalStreamerInfo(si *StreamerInfo) ([]byte, error) {
	arr := NewWBuffer(nil, nil, 0)
	arr.WriteI16(objArrayVersion)
	arr.WriteU8(0)
	arr.WriteString("")
	arr.WriteI32(int32(len(si.elements)))
	arr.WriteI32(0) // low water mark
	for i := range si.elements {
		el := &si.elements[i]
		rec, err := marshalStreamerElement(el)
		if err != nil {
			return nil, err
		}
		writeObjectAnyNew(arr, streamerElementClass(el), framedRecord(rec))
	}
	if err := arr.Err(); err != nil {
		return nil, err
	}

	b := NewWBuffer(nil, nil, 0)
	b.WriteI16(streamerInfoVersion)
	b.WriteU8(0)
	b.WriteString(si.class)
	b.WriteString("")
	b.WriteU32(si.checksum)
	b.WriteI32(int32(si.version))
	b.write(framedRecord(arr.Bytes()))
	return b.Bytes(), b.Err()
}

// marshalStreamerList serializes the whole streamer record: a framed
// TList of TStreamerInfo entries followed by the preserved rule strings
// as TObjStrings.
func marshalStreamerList(infos []*StreamerInfo, rules []*tobjstring) ([]byte, error) {
	b := NewWBuffer(nil, nil, 0)
	b.WriteI16(listVersion)
	b.WriteU8(0)
	b.WriteString("")
	b.WriteI32(int32(len(infos) + len(rules)))
	for _, si := range infos {
		body, err := marshalStreamerInfo(si)
		if err != nil {
			return nil, err
		}
		writeObjectAnyNew(b, "TStreamerInfo", framedRecord(body))
		b.WriteString("") // option
	}
	for _, rule := range rules {
		rb := NewWBuffer(nil, nil, 0)
		rb.WriteI16(objStringVersion)
		rb.WriteU8(0)
		rb.WriteString(rule.value)
		writeObjectAnyNew(b, "TObjString", framedRecord(rb.Bytes()))
		b.WriteString("") // option
	}
	if err := b.Err(); err != nil {
		return nil, err
	}
	return framedRecord(b.Bytes()), nil
}

// streamerElementObj adapts StreamerElement to Object so it can travel
// through the read-any-object protocol like any other class instance.
type streamerElementObj struct {
	StreamerElement
}

func (e *streamerElementObj) Class() string { return "TStreamerElement" }

// unmarshalStreamerElement reads one TStreamerElement subclass record.
// class is the concrete ROOT class name (e.g. "TStreamerBasicType"),
// already consumed by the read-any-object dispatch.
func unmarshalStreamerElement(r *RBuffer, class string) (*streamerElementObj, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}

	named, err := unmarshalTNamed(r)
	if err != nil {
		return nil, err
	}

	el := StreamerElement{Name: named.name, Title: named.title}
	ftype := r.ReadI32()
	_ = r.ReadI32() // fSize
	_ = r.ReadI32() // fArrayLength
	_ = r.ReadI32() // fArrayDim
	for i := 0; i < 5; i++ {
		n := r.ReadI32()
		if i == 0 && ftype >= offsetL && ftype < offsetP {
			el.ArrayLen = n
		}
	}
	el.TypeName = r.ReadString()

	switch class {
	case "TStreamerBase":
		el.Kind = KindBase
		el.BaseVers = int16(ftype)
	case "TStreamerBasicType":
		switch {
		case ftype >= offsetP:
			el.Kind = KindPrimitiveArrayCounted
			p, _ := primFromType(ftype - offsetP)
			el.Prim = p
		case ftype >= offsetL:
			el.Kind = KindPrimitiveArrayFixed
			p, _ := primFromType(ftype - offsetL)
			el.Prim = p
		default:
			el.Kind = KindPrimitive
			p, _ := primFromType(ftype)
			el.Prim = p
		}
	case "TStreamerBasicPointer":
		el.Kind = KindPrimitiveArrayCounted
		base := ftype
		if base >= offsetP {
			base -= offsetP
		}
		p, _ := primFromType(base)
		el.Prim = p
	case "TStreamerSTL", "TStreamerSTLstring":
		el.Kind = KindSTL
	case "TStreamerObject":
		el.Kind = KindObject
	case "TStreamerObjectPointer":
		el.Kind = KindObjectPointer
	case "TStreamerObjectAny", "TStreamerObjectAnyPointer":
		el.Kind = KindAnyPointer
	case "TStreamerLoop":
		el.Kind = KindLoop
	case "TStreamerString":
		el.Kind = KindString
	case "TStreamerArtificial":
		el.Kind = KindArtificial
	default:
		el.Kind = KindObject
	}
	if el.Kind == KindPrimitiveArrayCounted || el.Kind == KindLoop {
		el.CountName = countNameFromTitle(el.Title)
	}

	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return &streamerElementObj{el}, nil
}
