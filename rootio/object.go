// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "fmt"

// Object is the minimal contract every deserialized value satisfies: it
// knows its own ROOT class name. Everything the Streamer registry
// synthesizes, and every hand-written bootstrap model, implements it.
type Object interface {
	Class() string
}

// Named is an Object that additionally carries a name and a title, the
// TNamed pair that almost every ROOT class inherits.
type Named interface {
	Object
	Name() string
	Title() string
}

// List is a sequence of Objects, satisfied by TList, TObjArray and the
// bare slice wrapper streamer parsing uses internally.
type List interface {
	Object
	Len() int
	At(i int) Object
}

// Directory is the subset of TDirectory's contract File needs to expose
// without creating an import cycle between file.go and tdirectory.go.
type Directory interface {
	Object
	Get(namecycle string) (Object, error)
}

// Model is the versioned/versionless model protocol of spec.md §4.9: the
// only construction path is Read, and every instance can report its own
// class version and expected byte length.
type Model interface {
	Object
	RVersion() int16
	// NumBytes is the length in the stream this instance was read from,
	// i.e. the declared payload length of its enclosing record.
	NumBytes() int32
}

// readAnyTag is the 4-byte tag at the head of the read-any-object
// protocol (spec.md §4.8).
type readAnyTag uint32

// ReadObjectAny implements the read-any-object protocol: a polymorphic,
// per-record back-referencing reference to some other object in the same
// top-level record. The back-reference table lives on r (RBuffer.refs),
// keyed by the object's record-relative byte position.
func ReadObjectAny(r *RBuffer, reg *StreamerRegistry) (Object, error) {
	if r.Err() != nil {
		return nil, r.Err()
	}
	beg := r.Displacement()
	tag := r.ReadU32()
	if r.Err() != nil {
		return nil, r.Err()
	}

	switch {
	case tag == 0:
		return nil, nil

	case tag == kNewClassTag:
		name := r.ReadCString()
		if r.Err() != nil {
			return nil, r.Err()
		}
		r.SetRef(beg, name)
		obj, err := reg.ReadObject(r, name)
		if err != nil {
			return nil, err
		}
		r.SetRef(beg+4, obj)
		return obj, nil

	case tag&kClassMask != 0:
		refPos := int64(tag &^ kClassMask)
		v, ok := r.Ref(refPos)
		if !ok {
			return nil, &DeserializationError{Msg: fmt.Sprintf("read-any-object: unresolved class back-reference at %d", refPos), Dump: r.Debug(32)}
		}
		name, ok := v.(string)
		if !ok {
			return nil, &DeserializationError{Msg: fmt.Sprintf("read-any-object: back-reference at %d is not a class name", refPos), Dump: r.Debug(32)}
		}
		obj, err := reg.ReadObject(r, name)
		if err != nil {
			return nil, err
		}
		r.SetRef(beg+4, obj)
		return obj, nil

	default:
		refPos := int64(tag)
		v, ok := r.Ref(refPos)
		if !ok {
			return nil, &DeserializationError{Msg: fmt.Sprintf("read-any-object: unresolved object back-reference at %d", refPos), Dump: r.Debug(32)}
		}
		obj, _ := v.(Object)
		return obj, nil
	}
}

// numBytesVersion reads the num-bytes/version framing header of spec.md
// §4.8: a 4-byte field whose kByteCountMask bit, if set, marks the
// remaining bits as the record's payload length (counting the 2-byte
// version field but not the 4-byte field itself); a 2-byte version field
// follows unconditionally. If the kByteCountMask bit is clear, nbytes is
// reported as -1 (unknown) and only vers is meaningful.
func numBytesVersion(r *RBuffer) (nbytes int32, vers int16, memberWise bool) {
	start := r.Pos()
	bcnt := r.ReadU32()
	if bcnt&kByteCountMask == 0 {
		r.SetPos(start)
		vers = r.ReadI16()
		return -1, vers, false
	}
	nbytes = int32(bcnt & ^uint32(kByteCountMask))
	v := r.ReadU16()
	memberWise = v&kMemberWise != 0
	vers = int16(v &^ kMemberWise)
	return nbytes, vers, memberWise
}

// TRef is the in-stream object reference of spec.md §4.8: a 32-bit
// reference id with no pointer. Resolution is left to the caller.
type TRef struct {
	id uint32
}

func (t *TRef) Class() string { return "TRef" }

// ID returns the reference id.
func (t *TRef) ID() uint32 { return t.id }

func unmarshalTRef(r *RBuffer) (*TRef, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}
	_ = r.ReadU8() // TObject::fBits low byte
	ref := &TRef{id: r.ReadU32()}
	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return ref, r.Err()
}

// framedRecord prefixes body (which begins with its own 2-byte version
// field) with the num-bytes field of §4.8's framing, kByteCountMask set to
// mark the remaining bits as the record's payload length.
func framedRecord(body []byte) []byte {
	w := NewWBuffer(nil, nil, 0)
	w.WriteU32(uint32(len(body)) | kByteCountMask)
	w.write(body)
	return w.Bytes()
}

// writeObjectAnyNew emits record through the read-any-object protocol's
// new-class branch: a kNewClassTag, the NUL-terminated class name, then
// the framed record itself. The write side never emits back-references;
// re-serialized streamer lists spell every class out in full.
func writeObjectAnyNew(w *WBuffer, class string, record []byte) {
	w.WriteU32(kNewClassTag)
	w.WriteCString(class)
	w.write(record)
}

// checkDisplacement verifies that the cursor has advanced exactly
// nbytes+extra bytes since recStart, the postcondition spec.md §4.8 and
// §8 property 6 both require. extra is 4 when nbytes included the version
// field's own two bytes already (the common case), 6 otherwise.
func checkDisplacement(r *RBuffer, recStart int64, nbytes int32, extra int64, class string) error {
	if nbytes < 0 {
		return nil // num_bytes was unknown; nothing to check.
	}
	want := recStart + int64(nbytes) + extra
	got := r.Pos()
	if got != want {
		return &DeserializationError{
			Obj: class,
			Msg: fmt.Sprintf("displacement mismatch: read %d bytes, record declared %d", got-recStart, int64(nbytes)+extra),
			Dump: r.Debug(32),
		}
	}
	return nil
}
