// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// axisVersion and h1Version are the class versions this package's
// hand-written histogram/axis models stamp when writing, and the only
// versions their UnmarshalROOT methods know how to read (spec.md §9:
// TH1/TAxis are bootstrap models, not synthesized from a streamer).
const (
	axisVersion = 10
	h1Version   = 1
)

// Axis is TAxis's binning description: a uniform axis of nbins bins
// spanning [xmin, xmax), spec.md §3's supplemental histogram model.
type Axis struct {
	named tnamed
	nbins int32
	xmin  float64
	xmax  float64
}

func (a *Axis) Class() string   { return "TAxis" }
func (a *Axis) Name() string    { return a.named.name }
func (a *Axis) Title() string   { return a.named.title }
func (a *Axis) RVersion() int16 { return axisVersion }
func (a *Axis) NumBytes() int32 { return 0 }
func (a *Axis) NBins() int32    { return a.nbins }
func (a *Axis) Min() float64    { return a.xmin }
func (a *Axis) Max() float64    { return a.xmax }

func (a *Axis) MarshalROOT(w *WBuffer) error {
	w.WriteI16(axisVersion)
	if err := a.named.MarshalROOT(w); err != nil {
		return err
	}
	w.WriteI32(a.nbins)
	w.WriteF64(a.xmin)
	w.WriteF64(a.xmax)
	return w.Err()
}

func unmarshalAxis(r *RBuffer) (*Axis, error) {
	_ = r.ReadI16() // version; only axisVersion is produced by this writer
	a := &Axis{}
	_ = r.ReadU8() // TObject::fBits low byte, matching tnamed's own framing
	a.named = tnamed{name: r.ReadString(), title: r.ReadString()}
	a.nbins = r.ReadI32()
	a.xmin = r.ReadF64()
	a.xmax = r.ReadF64()
	return a, r.Err()
}

// H1 is a minimal, self-contained TH1-style 1D histogram: bin contents
// plus a uniform x axis and an entry count. It omits the drawing
// attributes, error-sumw2 array, and the TH1/TH1F/TH1D/TH1I class split
// real ROOT carries; this engine's Non-goals exclude physics-domain
// mixins, and bin contents are always stored as float64 regardless of
// the nominal class name under which they are written.
type H1 struct {
	class    string
	named    tnamed
	axis     Axis
	entries  float64
	contents []float64 // length axis.nbins+2 (underflow + bins + overflow)
}

// NewH1 returns an empty histogram with nbins uniform bins over [xmin,
// xmax).
func NewH1(name, title string, nbins int32, xmin, xmax float64) *H1 {
	return &H1{
		class:    "TH1D",
		named:    tnamed{name: name, title: title},
		axis:     Axis{named: tnamed{name: "xaxis"}, nbins: nbins, xmin: xmin, xmax: xmax},
		contents: make([]float64, nbins+2),
	}
}

func (h *H1) Class() string    { return h.class }
func (h *H1) Name() string     { return h.named.name }
func (h *H1) Title() string    { return h.named.title }
func (h *H1) RVersion() int16  { return h1Version }
func (h *H1) NumBytes() int32  { return 0 }
func (h *H1) Axis() *Axis      { return &h.axis }
func (h *H1) Entries() float64 { return h.entries }

// Bin returns the content of bin i (0 = underflow, axis.nbins+1 = overflow).
func (h *H1) Bin(i int) float64 { return h.contents[i] }

// Fill increments the bin containing x by w, growing the underflow/
// overflow bins when x falls outside [xmin, xmax).
func (h *H1) Fill(x, w float64) {
	h.entries++
	n := h.axis.nbins
	if x < h.axis.xmin {
		h.contents[0] += w
		return
	}
	if x >= h.axis.xmax {
		h.contents[n+1] += w
		return
	}
	width := (h.axis.xmax - h.axis.xmin) / float64(n)
	bin := int((x-h.axis.xmin)/width) + 1
	if bin > int(n) {
		bin = int(n)
	}
	h.contents[bin] += w
}

func (h *H1) MarshalROOT(w *WBuffer) error {
	w.WriteI16(h1Version)
	if err := h.named.MarshalROOT(w); err != nil {
		return err
	}
	if err := h.axis.MarshalROOT(w); err != nil {
		return err
	}
	w.WriteF64(h.entries)
	w.WriteI32(int32(len(h.contents)))
	for _, v := range h.contents {
		w.WriteF64(v)
	}
	return w.Err()
}

// unmarshalH1 reads an H1 record written by MarshalROOT. class is
// preserved only for Object.Class() bookkeeping by the caller; the wire
// layout does not vary across TH1F/TH1D/TH1I.
func unmarshalH1(r *RBuffer, class string) (*H1, error) {
	_ = r.ReadI16() // version
	h := &H1{class: class}
	_ = r.ReadU8()
	h.named = tnamed{name: r.ReadString(), title: r.ReadString()}
	axis, err := unmarshalAxis(r)
	if err != nil {
		return nil, err
	}
	h.axis = *axis
	h.entries = r.ReadF64()
	n := r.ReadI32()
	h.contents = make([]float64, n)
	for i := range h.contents {
		h.contents[i] = r.ReadF64()
	}
	return h, r.Err()
}
