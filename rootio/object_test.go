// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "testing"

func TestNumBytesVersionFramed(t *testing.T) {
	w := NewWBuffer(nil, nil, 0)
	w.WriteU32(uint32(10) | kByteCountMask)
	w.WriteI16(5)
	r := NewRBuffer(w.Bytes(), nil, 0)
	nbytes, vers, mw := numBytesVersion(r)
	if nbytes != 10 || vers != 5 || mw {
		t.Errorf("numBytesVersion = (%d, %d, %v), want (10, 5, false)", nbytes, vers, mw)
	}
}

func TestNumBytesVersionMemberWise(t *testing.T) {
	w := NewWBuffer(nil, nil, 0)
	w.WriteU32(uint32(8) | kByteCountMask)
	w.WriteU16(uint16(5) | kMemberWise)
	r := NewRBuffer(w.Bytes(), nil, 0)
	nbytes, vers, mw := numBytesVersion(r)
	if nbytes != 8 || vers != 5 || !mw {
		t.Errorf("numBytesVersion = (%d, %d, %v), want (8, 5, true)", nbytes, vers, mw)
	}
}

func TestNumBytesVersionUnframed(t *testing.T) {
	w := NewWBuffer(nil, nil, 0)
	w.WriteI16(7)
	w.WriteU32(0) // filler so the 4-byte probe has something to read
	r := NewRBuffer(w.Bytes(), nil, 0)
	nbytes, vers, _ := numBytesVersion(r)
	if nbytes != -1 || vers != 7 {
		t.Errorf("numBytesVersion = (%d, %d), want (-1, 7)", nbytes, vers)
	}
	if r.Pos() != 2 {
		t.Errorf("cursor at %d after unframed header, want 2", r.Pos())
	}
}

func TestCheckDisplacement(t *testing.T) {
	data := make([]byte, 32)
	r := NewRBuffer(data, nil, 0)
	r.Skip(14)
	if err := checkDisplacement(r, 0, 10, 4, "T"); err != nil {
		t.Errorf("exact displacement rejected: %v", err)
	}
	if err := checkDisplacement(r, 0, 12, 4, "T"); err == nil {
		t.Error("wrong displacement accepted")
	}
	if err := checkDisplacement(r, 0, -1, 4, "T"); err != nil {
		t.Errorf("unknown num-bytes must skip the check: %v", err)
	}
}

func marshalObjString(s string) []byte {
	b := NewWBuffer(nil, nil, 0)
	b.WriteI16(objStringVersion)
	b.WriteU8(0)
	b.WriteString(s)
	return framedRecord(b.Bytes())
}

func TestReadObjectAnyNullTag(t *testing.T) {
	w := NewWBuffer(nil, nil, 0)
	w.WriteU32(0)
	r := NewRBuffer(w.Bytes(), nil, 0)
	obj, err := ReadObjectAny(r, NewStreamerRegistry())
	if err != nil {
		t.Fatalf("ReadObjectAny: %v", err)
	}
	if obj != nil {
		t.Errorf("null tag returned %v, want nil", obj)
	}
}

func TestReadObjectAnyNewClassAndBackRefs(t *testing.T) {
	w := NewWBuffer(nil, nil, 0)
	writeObjectAnyNew(w, "TObjString", marshalObjString("hi"))
	w.WriteU32(4)                      // object back-reference: the first object registered at beg+4 = 4
	w.WriteU32(uint32(kClassMask | 0)) // class back-reference to the name registered at position 0
	w.write(marshalObjString("yo"))    // the record for the class-back-ref read

	r := NewRBuffer(w.Bytes(), nil, 0)
	reg := NewStreamerRegistry()

	obj1, err := ReadObjectAny(r, reg)
	if err != nil {
		t.Fatalf("first ReadObjectAny: %v", err)
	}
	s1, ok := obj1.(*tobjstring)
	if !ok || s1.String() != "hi" {
		t.Fatalf("first object = %#v, want TObjString %q", obj1, "hi")
	}

	obj2, err := ReadObjectAny(r, reg)
	if err != nil {
		t.Fatalf("object back-reference: %v", err)
	}
	if obj2 != obj1 {
		t.Error("object back-reference did not return the identical instance")
	}

	obj3, err := ReadObjectAny(r, reg)
	if err != nil {
		t.Fatalf("class back-reference: %v", err)
	}
	s3, ok := obj3.(*tobjstring)
	if !ok || s3.String() != "yo" {
		t.Errorf("class-back-ref object = %#v, want TObjString %q", obj3, "yo")
	}
}

func TestReadObjectAnyUnresolvedBackRef(t *testing.T) {
	w := NewWBuffer(nil, nil, 0)
	w.WriteU32(12345)
	r := NewRBuffer(w.Bytes(), nil, 0)
	_, err := ReadObjectAny(r, NewStreamerRegistry())
	if err == nil {
		t.Fatal("unresolved back-reference accepted")
	}
	var de *DeserializationError
	if !asErr(err, &de) {
		t.Errorf("error = %T, want *DeserializationError", err)
	}
}

func TestTRefRoundTrip(t *testing.T) {
	b := NewWBuffer(nil, nil, 0)
	b.WriteI16(1)
	b.WriteU8(0)
	b.WriteU32(42)
	rec := framedRecord(b.Bytes())

	r := NewRBuffer(rec, nil, 0)
	obj, err := NewStreamerRegistry().ReadObject(r, "TRef")
	if err != nil {
		t.Fatalf("ReadObject(TRef): %v", err)
	}
	ref, ok := obj.(*TRef)
	if !ok {
		t.Fatalf("ReadObject(TRef) = %T", obj)
	}
	if ref.ID() != 42 {
		t.Errorf("ID() = %d, want 42", ref.ID())
	}
}
