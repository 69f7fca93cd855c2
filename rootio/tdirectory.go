// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// dirVersion is the TDirectory class version this writer stamps; +1000
// when the enclosing file uses 64-bit seeks (spec.md §6.1).
const dirVersion = 1

// tdirectory is spec.md §3's TDirectory: a fixed-size header (creation/
// modification time, seeks to its own header, its keys data block, and
// its parent) plus a data block listing child Keys. The root directory
// of a File and every subdirectory share this type.
type tdirectory struct {
	named tnamed
	file  *File

	ctime, mtime uint32
	seekdir      int64 // seek of this directory's own header Key
	seekparent   int64
	seekkeys     int64 // seek of the keys-data record
	nbyteskeys   int32 // total bytes of the keys-data record
	nbytesname   int32 // key header length plus TNamed size of this directory's header record
	uuid         [16]byte

	keysCap int32  // currently allocated size of the keys-data record
	keys    []Key  // child key descriptors (headers only, no payload)

	subdirs map[string]*tdirectory // populated for directories created or traversed this session
}

func (d *tdirectory) Class() string { return "TDirectory" }
func (d *tdirectory) Name() string  { return d.named.name }
func (d *tdirectory) Title() string { return d.named.title }

func (d *tdirectory) bigSeeks() bool {
	return d.file != nil && d.file.version%1000000 != d.file.version
}

// recordSize returns the number of bytes the fixed TDirectory header
// occupies for the given file-format version (spec.md §6.1).
func (d *tdirectory) recordSize(version int32) int {
	n := 2 + 4 + 4 + 4 + 4 // version, ctime, mtime, nbyteskeys, nbytesname
	if version >= 1000000 {
		n += 8 * 3
	} else {
		n += 4 * 3
	}
	n += 16 // uuid
	return n
}

func (d *tdirectory) MarshalROOT(w *WBuffer) error {
	big := d.bigSeeks()
	vers := int16(dirVersion)
	if big {
		vers += 1000
	}
	w.WriteI16(vers)
	w.WriteU32(d.ctime)
	w.WriteU32(d.mtime)
	w.WriteI32(d.nbyteskeys)
	w.WriteI32(d.nbytesname)
	if big {
		w.WriteI64(d.seekdir)
		w.WriteI64(d.seekparent)
		w.WriteI64(d.seekkeys)
	} else {
		w.WriteI32(int32(d.seekdir))
		w.WriteI32(int32(d.seekparent))
		w.WriteI32(int32(d.seekkeys))
	}
	w.write(d.uuid[:])
	return w.Err()
}

func (d *tdirectory) UnmarshalROOT(r *RBuffer) error {
	vers := r.ReadI16()
	big := vers >= 1000
	d.ctime = r.ReadU32()
	d.mtime = r.ReadU32()
	d.nbyteskeys = r.ReadI32()
	d.nbytesname = r.ReadI32()
	if big {
		d.seekdir = r.ReadI64()
		d.seekparent = r.ReadI64()
		d.seekkeys = r.ReadI64()
	} else {
		d.seekdir = int64(r.ReadI32())
		d.seekparent = int64(r.ReadI32())
		d.seekkeys = int64(r.ReadI32())
	}
	copy(d.uuid[:], r.Bytes(16))
	return r.Err()
}

// readFullRecordAt reads a whole Key record (header, strings, payload)
// starting at loc, returning the parsed Key and its uncompressed-or-raw
// payload bytes (the caller decompresses if objlen != len(payload)).
func readFullRecordAt(f *File, loc int64) (*Key, []byte, error) {
	head := make([]byte, 4)
	if _, err := f.ReadAt(head, loc); err != nil {
		return nil, nil, &SourceError{Path: f.id, Err: err}
	}
	nbytes := int32(binary.BigEndian.Uint32(head))
	if nbytes <= 0 {
		return nil, nil, &FormatError{Path: f.id, Msg: fmt.Sprintf("impossible key size %d at %d", nbytes, loc)}
	}
	full := make([]byte, nbytes)
	if _, err := f.ReadAt(full, loc); err != nil {
		return nil, nil, &SourceError{Path: f.id, Err: err}
	}
	r := NewRBuffer(full, nil, 0)
	k := &Key{f: f}
	if err := k.UnmarshalROOT(r); err != nil {
		return nil, nil, err
	}
	return k, full[k.keylen:], nil
}

// readDirInfo reads the root directory's own header record, located at
// f.begin: a TKey whose payload is TNamed (name, title) followed by the
// fixed TDirectory block (spec.md §3).
func (d *tdirectory) readDirInfo() error {
	f := d.file
	k, payload, err := readFullRecordAt(f, f.begin)
	if err != nil {
		return err
	}
	if err := k.checkSeek(f.begin, true); err != nil {
		return err
	}
	pr := NewRBuffer(payload, nil, 0)
	named, err := unmarshalTNamed(pr)
	if err != nil {
		return err
	}
	d.named = *named
	if err := d.UnmarshalROOT(pr); err != nil {
		return err
	}
	d.nbytesname = f.nbytesname
	return nil
}

// readKeys reads the directory's keys-data record (spec.md §4.6): a Key
// with an empty class name whose payload is [nkeys int32][Key header]*.
func (d *tdirectory) readKeys() error {
	if d.seekkeys == 0 {
		return nil
	}
	f := d.file
	k, payload, err := readFullRecordAt(f, d.seekkeys)
	if err != nil {
		return err
	}
	if err := k.checkSeek(d.seekkeys, true); err != nil {
		return err
	}
	d.keysCap = k.totalBytes()
	r := NewRBuffer(payload, nil, 0)
	n := r.ReadI32()
	d.keys = make([]Key, 0, n)
	for i := int32(0); i < n; i++ {
		var ck Key
		ck.f = f
		if err := ck.UnmarshalROOT(r); err != nil {
			return err
		}
		d.keys = append(d.keys, ck)
	}
	return r.Err()
}

// keysBlockPayload serializes [nkeys][Key header]* for the keys-data
// record.
func (d *tdirectory) keysBlockPayload() []byte {
	w := NewWBuffer(nil, nil, 0)
	w.WriteI32(int32(len(d.keys)))
	for i := range d.keys {
		_ = d.keys[i].MarshalROOT(w)
	}
	return w.Bytes()
}

// flushKeys (re)writes the keys-data record, growing its allocation by
// 1.5x when the current content no longer fits, per spec.md §4.6 step 5.
func (d *tdirectory) flushKeys() error {
	f := d.file
	payload := d.keysBlockPayload()
	kcls := ""
	hdrLen := keyHeaderLen(kcls, d.named.name, "", d.seekkeys >= kStartBigFile || d.seekdir >= kStartBigFile)
	need := hdrLen + int32(len(payload))

	if d.seekkeys == 0 || need > d.keysCap {
		if d.seekkeys != 0 {
			if err := f.free.Release(d.seekkeys, d.seekkeys+int64(d.keysCap)); err != nil {
				return err
			}
		}
		newCap := need
		if d.keysCap > 0 {
			grown := int32(float64(d.keysCap) * 1.5)
			if grown > newCap {
				newCap = grown
			}
		}
		loc := f.free.Allocate(int64(newCap), false)
		d.seekkeys = loc
		d.keysCap = newCap
	}

	k := &Key{f: f, class: kcls, name: d.named.name, title: "", objlen: int32(len(payload)), buf: payload, cycle: 1}
	k.keylen = keyHeaderLen(kcls, d.named.name, "", k.seekkey >= kStartBigFile)
	k.seekkey = d.seekkeys
	k.seekpdir = d.seekdir
	k.keylen = keyHeaderLen(kcls, d.named.name, "", k.isBig())
	k.bytes = k.keylen + int32(len(payload))
	d.nbyteskeys = k.bytes
	if err := k.writeFile(); err != nil {
		return err
	}
	// Zero-fill the unused tail of the allocation so the file physically
	// covers every byte the free map counts as used.
	if pad := d.keysCap - k.bytes; pad > 0 {
		if _, err := f.WriteAt(make([]byte, pad), d.seekkeys+int64(k.bytes)); err != nil {
			return err
		}
	}
	return nil
}

// flushHeader rewrites this directory's own TNamed+TDirectory header
// record in place (its location never moves once chosen, mirroring the
// File root header's fixed position at f.begin).
func (d *tdirectory) flushHeader() error {
	f := d.file
	namedLen := tnamedSizeof(&d.named)
	dirLen := d.recordSize(f.version)
	payload := make([]byte, 0, namedLen+dirLen)
	w := NewWBuffer(payload, nil, 0)
	if err := d.named.MarshalROOT(w); err != nil {
		return err
	}
	if err := d.MarshalROOT(w); err != nil {
		return err
	}
	full := w.Bytes()

	cls := d.file.Class()
	if d.seekdir != f.begin {
		cls = "TDirectory"
	}
	k := &Key{f: f, class: cls, name: d.named.name, title: d.named.title, objlen: int32(len(full)), buf: full, cycle: 1}
	k.seekkey = d.seekdir
	k.seekpdir = d.seekparent
	k.keylen = keyHeaderLen(cls, d.named.name, d.named.title, k.isBig())
	k.bytes = k.keylen + int32(len(full))
	d.nbytesname = k.keylen + int32(namedLen)
	return k.writeFile()
}

func keyHeaderLen(class, name, title string, big bool) int32 {
	n := int32(4 + 2 + 4 + 4 + 2 + 2)
	if big {
		n += 16
	} else {
		n += 8
	}
	n += int32(tstringSizeof(class) + tstringSizeof(name) + tstringSizeof(title))
	return n
}

// nextCycle returns the cycle the next write of name should use: the
// maximum existing cycle for that name, plus one, or 1 if name is new
// (spec.md §4.6 step 1, §3's Directory invariant).
func (d *tdirectory) nextCycle(name string) int16 {
	var max int16
	for _, k := range d.keys {
		if k.name == name && k.cycle > max {
			max = k.cycle
		}
	}
	return max + 1
}

// AddObject writes class/name/title/raw as a new child object, per
// spec.md §4.6's add_object operation. raw is the (optionally
// pre-compressed) payload; uncompressedSize is its uncompressed length
// (fObjlen). replaceCycle, if non-zero, reuses that cycle instead of
// allocating a new one.
func (d *tdirectory) AddObject(class, name, title string, raw []byte, uncompressedSize int32, replaceCycle int16, forceBig bool) (*Key, error) {
	f := d.file
	cycle := replaceCycle
	if cycle == 0 {
		cycle = d.nextCycle(name)
	}

	forcedBig := forceBig || d.seekdir >= kStartBigFile
	smallLen := keyHeaderLen(class, name, title, false)
	totalSmall := int64(smallLen) + int64(len(raw))
	loc := f.free.Allocate(totalSmall, true)
	useBig := forcedBig || loc >= kStartBigFile

	var keylen int32
	if useBig {
		keylen = keyHeaderLen(class, name, title, true)
		loc = f.free.Allocate(int64(keylen)+int64(len(raw)), false)
	} else {
		keylen = smallLen
		loc = f.free.Allocate(totalSmall, false)
	}

	k := &Key{
		f: f, class: class, name: name, title: title,
		objlen: uncompressedSize, buf: raw, cycle: cycle, big: useBig,
		keylen: keylen, seekkey: loc, seekpdir: d.seekdir,
		bytes:    keylen + int32(len(raw)),
		datetime: rootDatime(time.Now()),
	}
	if err := k.writeFile(); err != nil {
		return nil, err
	}

	if replaceCycle != 0 {
		for i := range d.keys {
			if d.keys[i].name == name && d.keys[i].cycle == replaceCycle {
				d.keys[i] = *k
				d.keys[i].buf = nil
				goto appended
			}
		}
	}
	d.keys = append(d.keys, *k)
	d.keys[len(d.keys)-1].buf = nil
appended:

	d.mtime = rootDatime(time.Now())
	if err := flushCascade(d, loc+int64(len(raw))+int64(keylen)); err != nil {
		return nil, err
	}
	return k, nil
}

// AddDirectory creates a subdirectory named name, allocating a header key
// and an initially empty keys block, per spec.md §4.6's add_directory.
func (d *tdirectory) AddDirectory(name, title string) (*tdirectory, error) {
	f := d.file
	sub := &tdirectory{
		named:      tnamed{name: name, title: title},
		file:       f,
		seekparent: d.seekdir,
		ctime:      rootDatime(time.Now()),
		mtime:      rootDatime(time.Now()),
	}
	uid := uuid.New()
	copy(sub.uuid[:], uid[:])

	namedLen := tnamedSizeof(&sub.named)
	dirLen := sub.recordSize(f.version)
	hdrLen := keyHeaderLen("TDirectory", name, title, false)
	loc := f.free.Allocate(int64(hdrLen)+int64(namedLen+dirLen), false)
	sub.seekdir = loc

	if d.subdirs == nil {
		d.subdirs = make(map[string]*tdirectory)
	}
	d.subdirs[name] = sub

	if err := sub.flushKeys(); err != nil {
		return nil, err
	}
	if err := sub.flushHeader(); err != nil {
		return nil, err
	}

	cycle := d.nextCycle(name)
	dk := Key{
		f: f, class: "TDirectory", name: name, title: title,
		objlen: int32(namedLen + dirLen), cycle: cycle,
		seekkey: loc, seekpdir: d.seekdir,
	}
	dk.keylen = keyHeaderLen("TDirectory", name, title, dk.isBig())
	dk.bytes = dk.keylen + int32(namedLen+dirLen)
	d.keys = append(d.keys, dk)
	d.mtime = rootDatime(time.Now())
	if err := flushCascade(d, loc+int64(hdrLen)+int64(namedLen+dirLen)); err != nil {
		return nil, err
	}
	return sub, nil
}

// findKey returns the child Key matching name, honoring an optional
// cycle (0 means "highest cycle"), spec.md §4.6's get operation.
func (d *tdirectory) findKey(name string, cycle int16) (*Key, bool) {
	var best *Key
	for i := range d.keys {
		k := &d.keys[i]
		if k.name != name {
			continue
		}
		if cycle != 0 {
			if k.cycle == cycle {
				return k, true
			}
			continue
		}
		if best == nil || k.cycle > best.cycle {
			best = k
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// parseNamecycle splits "name;cycle" into its parts, per spec.md §4.6.
func parseNamecycle(namecycle string) (string, int16) {
	i := strings.LastIndexByte(namecycle, ';')
	if i < 0 {
		return namecycle, 0
	}
	cyc, err := strconv.Atoi(namecycle[i+1:])
	if err != nil {
		return namecycle, 0
	}
	return namecycle[:i], int16(cyc)
}

// Get returns the object identified by namecycle ("name" or
// "name;cycle"), reading and decompressing its Key's payload and
// dispatching it through the streamer registry.
func (d *tdirectory) Get(namecycle string) (Object, error) {
	name, cycle := parseNamecycle(namecycle)
	k, ok := d.findKey(name, cycle)
	if !ok {
		return nil, fmt.Errorf("rootio: key %q not found", namecycle)
	}
	return d.file.readObjectFromKey(k)
}

// keyNames lists every "name;cycle" string known to this directory, in
// the order spec.md §8 S1/S2's scenario tests expect (insertion order,
// one entry per written key, including multiple cycles of the same
// name).
func (d *tdirectory) keyNames() []string {
	out := make([]string, len(d.keys))
	for i, k := range d.keys {
		out[i] = fmt.Sprintf("%s;%d", k.name, k.cycle)
	}
	return out
}

// Iterate walks this directory's children (and, if recursive, every
// subdirectory reachable from entries already materialized via
// AddDirectory or a prior traversal), calling fn with each object's path
// and Key. fn returning false stops the walk early. Keys are
// deduplicated by path: the same key reached by two different traversal
// routes is only reported once.
func (d *tdirectory) Iterate(recursive bool, filterName, filterClass string, fn func(path string, k Key) bool) {
	seen := make(map[string]bool)
	d.iterate("", recursive, filterName, filterClass, seen, fn)
}

func (d *tdirectory) iterate(prefix string, recursive bool, filterName, filterClass string, seen map[string]bool, fn func(string, Key) bool) bool {
	names := make([]string, 0, len(d.subdirs))
	for n := range d.subdirs {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, k := range d.keys {
		path := prefix + k.name
		if filterName != "" && filterName != k.name {
			continue
		}
		if filterClass != "" && filterClass != k.class {
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		if !fn(path, k) {
			return false
		}
	}
	if recursive {
		for _, n := range names {
			sub := d.subdirs[n]
			if !sub.iterate(prefix+n+"/", recursive, filterName, filterClass, seen, fn) {
				return false
			}
		}
	}
	return true
}
