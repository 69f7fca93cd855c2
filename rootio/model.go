// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "fmt"

// WritableModel is the subset of Model (spec.md §4.9) that can serialize
// itself back to bytes. Only a handful of classes in this core engine
// are writable: TNamed, TDirectory, the TH1-style histogram, and the
// TTree write-path's Tree and Branch.
// Everything else read from a file round-trips as a read-only Model.
type WritableModel interface {
	Object
	MarshalROOT(w *WBuffer) error
}

// ToWritable attempts the Model -> WritableModel narrowing spec.md §4.9
// describes. Classes with no writable model return NotImplementedError
// rather than panicking, matching §7's SchemaError/NotImplementedError
// split ("streamer for class present but no writable model").
func ToWritable(obj Object) (WritableModel, error) {
	if w, ok := obj.(WritableModel); ok {
		return w, nil
	}
	return nil, &NotImplementedError{Feature: fmt.Sprintf("writing class %q", obj.Class())}
}

// tojson renders a best-effort structural dump of a GenericObject, the
// "best-effort structural dump" spec.md §4.9 names. It intentionally
// does not attempt to be a faithful JSON encoding of every ROOT type
// (char* vs int8, for instance, are both rendered as numbers); it exists
// for debugging, not for round-tripping.
func (g *GenericObject) tojson() map[string]interface{} {
	out := make(map[string]interface{}, len(g.order)+1)
	out["_class"] = g.class
	for _, name := range g.order {
		out[name] = g.members[name]
	}
	if len(g.bases) > 0 {
		bases := make([]interface{}, len(g.bases))
		for i, b := range g.bases {
			if gb, ok := b.(*GenericObject); ok {
				bases[i] = gb.tojson()
			} else {
				bases[i] = b.Class()
			}
		}
		out["_bases"] = bases
	}
	return out
}

// IsInstance reports whether obj is an instance of cls, either directly
// or through one of its (possibly nested) bases.
func IsInstance(obj Object, cls string) bool {
	if obj == nil {
		return false
	}
	if obj.Class() == cls {
		return true
	}
	g, ok := obj.(*GenericObject)
	if !ok {
		return false
	}
	for _, b := range g.bases {
		if IsInstance(b, cls) {
			return true
		}
	}
	return false
}
