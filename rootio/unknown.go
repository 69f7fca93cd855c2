// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// UnknownClass is the placeholder spec.md §4.7/§7 describes for a class
// with no embedded streamer and no hand-written model: it knows only its
// own declared byte length, enough to be skipped inside a larger record,
// but it is never interpretable.
type UnknownClass struct {
	class  string
	vers   int16
	nbytes int32
}

func (u *UnknownClass) Class() string    { return u.class }
func (u *UnknownClass) RVersion() int16  { return u.vers }
func (u *UnknownClass) NumBytes() int32  { return u.nbytes }

// UnknownClassVersion is the same placeholder for a class that does have
// an entry in the registry, but not for the particular version found on
// disk.
type UnknownClassVersion struct {
	UnknownClass
}

// GenericObject is the runtime representation of a class read by the
// synthesized element program of a StreamerInfo (spec.md §4.9): an
// ordered set of named members plus a linearized list of base-class
// sub-models, exactly the Model contract spec.md describes.
type GenericObject struct {
	class   string
	vers    int16
	nbytes  int32
	members map[string]interface{}
	order   []string
	bases   []Object
}

func (g *GenericObject) Class() string   { return g.class }
func (g *GenericObject) RVersion() int16 { return g.vers }
func (g *GenericObject) NumBytes() int32 { return g.nbytes }

// Member returns the value of a top-level member by name.
func (g *GenericObject) Member(name string) (interface{}, bool) {
	v, ok := g.members[name]
	return v, ok
}

// Members returns a shallow copy of the member map.
func (g *GenericObject) Members() map[string]interface{} {
	out := make(map[string]interface{}, len(g.members))
	for k, v := range g.members {
		out[k] = v
	}
	return out
}

// Bases returns the ordered list of base-class sub-models, in C++
// declaration order (spec.md §3, §9: "Multiple inheritance ... linearized
// in C++ declaration order").
func (g *GenericObject) Bases() []Object { return g.bases }

// Base returns the base sub-model whose class name matches cls, if any.
func (g *GenericObject) Base(cls string) (Object, bool) {
	for _, b := range g.bases {
		if b.Class() == cls {
			return b, true
		}
	}
	return nil, false
}

func (g *GenericObject) set(name string, v interface{}) {
	if _, exists := g.members[name]; !exists {
		g.order = append(g.order, name)
	}
	g.members[name] = v
}
