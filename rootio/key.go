// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "time"

// keyClassVersion is TKey's own class version (not to be confused with
// the version of the object a Key refers to).
const keyClassVersion = 4

// Key is the record header preceding every serialized object, spec.md
// §3's TKey. It has a "small" (32-bit seeks) and "big" (64-bit seeks)
// form, selected by whether either seek is >= 2 GiB (spec.md §4.4).
type Key struct {
	f *File

	bytes    int32  // fNbytes: total bytes including the key header itself
	version  int16  // fVersion: TKey's own class version (+1000 if big)
	objlen   int32  // fObjlen: uncompressed payload length
	datetime uint32 // fDatime: packed creation timestamp
	keylen   int32  // fKeyLen: length of the key header + strings
	cycle    int16  // fCycle
	seekkey  int64  // fSeekKey: absolute seek of this key
	seekpdir int64  // fSeekPdir: absolute seek of the parent directory

	class string
	name  string
	title string

	// big forces the 64-bit seek form even when both seeks fit 32 bits.
	// TBasket keys are always written this way, so their fVersion reads
	// 1004 (spec.md §4.10.2).
	big bool

	buf []byte // raw (possibly compressed) payload bytes
}

func (k *Key) Class() string { return k.class }
func (k *Key) Name() string  { return k.name }
func (k *Key) Title() string { return k.title }

// isBig reports whether this key uses the 64-bit seek encoding: spec.md
// §4.4's rule ("a Key is big iff any of (own seek, parent seek) is >=
// 2^31"), or the form was forced, as it is for every TBasket.
func (k *Key) isBig() bool {
	return k.big || k.seekkey >= kStartBigFile || k.seekpdir >= kStartBigFile
}

// UnmarshalROOT decodes a Key header (and the class/name/title strings
// that follow it) from r. The payload bytes themselves are read
// separately by the caller, which knows the key's location and can read
// exactly k.bytes-k.keylen more bytes.
func (k *Key) UnmarshalROOT(r *RBuffer) error {
	k.bytes = r.ReadI32()
	v := r.ReadI16()
	big := v >= 1000
	if big {
		v -= 1000
	}
	k.version = v
	k.big = big
	k.objlen = r.ReadI32()
	k.datetime = r.ReadU32()
	k.keylen = int32(r.ReadI16())
	k.cycle = r.ReadI16()
	if big {
		k.seekkey = r.ReadI64()
		k.seekpdir = r.ReadI64()
	} else {
		k.seekkey = int64(r.ReadI32())
		k.seekpdir = int64(r.ReadI32())
	}
	k.class = r.ReadString()
	k.name = r.ReadString()
	k.title = r.ReadString()
	return r.Err()
}

// MarshalROOT encodes the Key header and strings (but not the payload,
// which callers append separately via writeFile) into w.
func (k *Key) MarshalROOT(w *WBuffer) error {
	vers := int16(keyClassVersion)
	if k.isBig() {
		vers += 1000
	}
	w.WriteI32(k.bytes)
	w.WriteI16(vers)
	w.WriteI32(k.objlen)
	w.WriteU32(k.datetime)
	w.WriteI16(int16(k.keylen))
	w.WriteI16(k.cycle)
	if k.isBig() {
		w.WriteI64(k.seekkey)
		w.WriteI64(k.seekpdir)
	} else {
		w.WriteI32(int32(k.seekkey))
		w.WriteI32(int32(k.seekpdir))
	}
	w.WriteString(k.class)
	w.WriteString(k.name)
	w.WriteString(k.title)
	return w.Err()
}

// checkSeek asserts fSeekKey == location for non-directory keys, spec.md
// §4.4's deserialization rule ("directory keys skip this check").
func (k *Key) checkSeek(loc int64, isDirectoryKey bool) error {
	if isDirectoryKey {
		return nil
	}
	if k.seekkey != loc {
		return &FormatError{Msg: "TKey.fSeekKey disagrees with its own location"}
	}
	return nil
}

// Created reports when this key's object was written, unpacked from the
// TDatime field.
func (k *Key) Created() time.Time { return datime(k.datetime) }

// Cycle returns this key's cycle number.
func (k *Key) Cycle() int16 { return k.cycle }

// writeFile serializes the key header, strings, and payload to f's
// backing storage at k.seekkey. k.keylen and k.bytes must already be set.
func (k *Key) writeFile() error {
	scratch := make([]byte, 0, k.keylen)
	w := NewWBuffer(scratch, nil, 0)
	if err := k.MarshalROOT(w); err != nil {
		return err
	}
	full := append(w.Bytes(), k.buf...)
	_, err := k.f.WriteAt(full, k.seekkey)
	return err
}

// totalBytes returns fNbytes: the key header length plus the payload
// length actually stored on disk (which, for a compressed key, is the
// compressed length, not objlen).
func (k *Key) totalBytes() int32 { return k.keylen + int32(len(k.buf)) }

// rootDatime packs t into ROOT's TDatime 32-bit representation:
// ((year-1995)<<26)|(month<<22)|(day<<17)|(hour<<12)|(min<<6)|sec.
func rootDatime(t time.Time) uint32 {
	y := t.Year()
	if y < 1995 {
		y = 1995
	}
	return uint32(y-1995)<<26 | uint32(t.Month())<<22 | uint32(t.Day())<<17 |
		uint32(t.Hour())<<12 | uint32(t.Minute())<<6 | uint32(t.Second())
}

// datime unpacks a ROOT TDatime 32-bit value back to a time.Time in UTC
// (ROOT itself does not store a timezone).
func datime(v uint32) time.Time {
	sec := int(v & 0x3f)
	min := int((v >> 6) & 0x3f)
	hour := int((v >> 12) & 0x1f)
	day := int((v >> 17) & 0x1f)
	month := int((v >> 22) & 0xf)
	year := int(v>>26) + 1995
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}
