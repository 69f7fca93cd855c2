// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "testing"

func TestLeafKindValid(t *testing.T) {
	for _, k := range []LeafKind{LeafO, LeafB, Leafb, LeafS, Leafs, LeafI, Leafi, LeafL, Leafl, LeafF, LeafD} {
		if !k.valid() {
			t.Errorf("LeafKind(%q).valid() = false, want true", byte(k))
		}
	}
	if LeafKind('?').valid() {
		t.Errorf("LeafKind(%q).valid() = true, want false", "?")
	}
}

func TestWritePrimReadPrimRoundTrip(t *testing.T) {
	tests := []struct {
		kind LeafKind
		val  interface{}
	}{
		{LeafO, true},
		{LeafB, int8(-12)},
		{Leafb, uint8(200)},
		{LeafS, int16(-1000)},
		{Leafs, uint16(60000)},
		{LeafI, int32(-123456)},
		{Leafi, uint32(4000000000)},
		{LeafL, int64(-9000000000)},
		{Leafl, uint64(18000000000)},
		{LeafF, float32(3.5)},
		{LeafD, float64(2.71828)},
	}
	for _, tt := range tests {
		w := NewWBuffer(nil, nil, 0)
		writePrim(w, tt.kind.prim(), tt.val)
		if err := w.Err(); err != nil {
			t.Fatalf("writePrim(%v) failed: %v", tt.val, err)
		}
		r := NewRBuffer(w.Bytes(), nil, 0)
		got := readPrim(r, tt.kind.prim())
		if got != tt.val {
			t.Errorf("round trip of %v (%T): got %v (%T)", tt.val, tt.val, got, got)
		}
	}
}

func TestLeafTitle(t *testing.T) {
	tests := []struct {
		name string
		kind LeafKind
		dim  string
		want string
	}{
		{"pt", LeafF, "", "pt/F"},
		{"px", LeafD, "[n]", "px[n]/D"},
	}
	for _, tt := range tests {
		if got := leafTitle(tt.name, tt.kind, tt.dim); got != tt.want {
			t.Errorf("leafTitle(%q, %q, %q) = %q, want %q", tt.name, string(tt.kind), tt.dim, got, tt.want)
		}
	}
}
