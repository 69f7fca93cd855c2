// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// objArray is a minimal List implementation backing TList/TObjArray reads:
// a bare ordered sequence of Objects, enough for the streamer-info record
// (spec.md §4.7) and for TTree's TObjArray of TLeaf objects (§4.10.1).
type objArray struct {
	class string
	name  string
	items []Object
}

func (a *objArray) Class() string   { return a.class }
func (a *objArray) Name() string    { return a.name }
func (a *objArray) Title() string   { return "" }
func (a *objArray) Len() int        { return len(a.items) }
func (a *objArray) At(i int) Object { return a.items[i] }

// unmarshalTList reads a TList record: num-bytes/version header, TObject
// skip-byte, name, size, then size pairs of (object-any, option string).
func unmarshalTList(r *RBuffer, reg *StreamerRegistry) (*objArray, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}
	_ = r.ReadU8()
	name := r.ReadString()
	size := r.ReadI32()

	out := &objArray{class: "TList", name: name, items: make([]Object, 0, size)}
	for i := int32(0); i < size; i++ {
		obj, err := ReadObjectAny(r, reg)
		if err != nil {
			return nil, err
		}
		_ = r.ReadString() // per-object "option" string TList always writes
		if obj != nil {
			out.items = append(out.items, obj)
		}
	}

	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return out, nil
}

// unmarshalTObjArray reads a TObjArray record: num-bytes/version header,
// TObject skip-byte, name, size, low-water mark, then size object-any
// slots (no per-slot option string, unlike TList).
func unmarshalTObjArray(r *RBuffer, reg *StreamerRegistry) (*objArray, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}
	_ = r.ReadU8()
	name := r.ReadString()
	size := r.ReadI32()
	_ = r.ReadI32() // low water mark

	out := &objArray{class: "TObjArray", name: name, items: make([]Object, 0, size)}
	for i := int32(0); i < size; i++ {
		obj, err := ReadObjectAny(r, reg)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			out.items = append(out.items, obj)
		}
	}

	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return out, nil
}

// tobjstring wraps a string as an Object, used for the preserved
// schema-evolution rule text of spec.md §4.7.
type tobjstring struct {
	value string
}

func (s *tobjstring) Class() string { return "TObjString" }
func (s *tobjstring) String() string { return s.value }

func unmarshalTObjString(r *RBuffer) (*tobjstring, error) {
	nbytes, _, _ := numBytesVersion(r)
	recStart := r.Pos() - 6
	if nbytes < 0 {
		recStart = r.Pos() - 2
	}
	_ = r.ReadU8()
	s := &tobjstring{value: r.ReadString()}
	if nbytes >= 0 {
		r.SetPos(recStart + 4 + int64(nbytes))
	}
	return s, nil
}
