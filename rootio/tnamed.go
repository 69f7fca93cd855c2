// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// tnamed is the (name, title) pair almost every ROOT class inherits,
// spec.md §3's Named contract. It is a versionless bootstrap model: its
// binary layout (a 1-byte TObject "fBits" placeholder, then two
// length-prefixed strings) never changes across ROOT releases, so it is
// hand-written rather than synthesized from a streamer.
type tnamed struct {
	name  string
	title string
}

func (n *tnamed) Class() string { return "TNamed" }
func (n *tnamed) Name() string  { return n.name }
func (n *tnamed) Title() string { return n.title }

// unmarshalTNamed reads a TNamed record as this package embeds it: one
// TObject skip-byte followed by name and title. Unlike a generically
// streamed class, TNamed here carries no num-bytes/version header of its
// own; it is always embedded inline at a fixed position within a larger
// record (the TDirectory header, a bootstrap histogram model) whose own
// framing already bounds it.
func unmarshalTNamed(r *RBuffer) (*tnamed, error) {
	_ = r.ReadU8() // TObject::fBits low byte
	n := &tnamed{name: r.ReadString(), title: r.ReadString()}
	return n, r.Err()
}

// MarshalROOT writes the TNamed record: the TObject skip-byte, name,
// title. See unmarshalTNamed for why no num-bytes/version header
// precedes it.
func (n *tnamed) MarshalROOT(w *WBuffer) error {
	w.WriteU8(0)
	w.WriteString(n.name)
	w.WriteString(n.title)
	return w.Err()
}

func tnamedSizeof(n *tnamed) int {
	return 1 + tstringSizeof(n.name) + tstringSizeof(n.title)
}
