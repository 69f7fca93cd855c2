// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
)

// Reader is the rootio interface to interact with ROOT
// files open in read-only mode.
type Reader interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// Writer is the rootio interface to interact with ROOT
// files open in write-only mode.
type Writer interface {
	io.Writer
	io.WriterAt
	io.Seeker
	io.Closer
}

// freeListSentinel marks the trailing free-space entry's stop offset as
// "free onward, without a fixed upper bound" (spec.md §4.5). Real ROOT
// uses a similarly oversized sentinel for the same purpose; this
// implementation's on-disk TFree encoding is otherwise self-consistent
// rather than bit-exact with ROOT's (a declared Non-goal). The small
// (32-bit) entry form carries its own sentinel: every genuine small-form
// stop is below kStartBigFile, so int32-max can never collide with one.
const (
	freeListSentinel      = int64(0x7fffffffff)
	freeListSentinelSmall = int64(0x7fffffff)
)

// A ROOT file is a suite of consecutive data records (TKey's) with
// the following format (see also the TKey class). If the key is
// located past the 32 bit file limit (> 2 GB) then some fields will
// be 8 instead of 4 bytes:
//    1->4            Nbytes    = Length of compressed object (in bytes)
//    5->6            Version   = TKey version identifier
//    7->10           ObjLen    = Length of uncompressed object
//    11->14          Datime    = Date and time when object was written to file
//    15->16          KeyLen    = Length of the key structure (in bytes)
//    17->18          Cycle     = Cycle of key
//    19->22 [19->26] SeekKey   = Pointer to record itself (consistency check)
//    23->26 [27->34] SeekPdir  = Pointer to directory header
//    27->27 [35->35] lname     = Number of bytes in the class name
//    28->.. [36->..] ClassName = Object Class Name
//    ..->..          lname     = Number of bytes in the object name
//    ..->..          Name      = lName bytes with the name of the object
//    ..->..          lTitle    = Number of bytes in the object title
//    ..->..          Title     = Title of the object
//    ----->          DATA      = Data bytes associated to the object
//
// The first data record starts at byte fBEGIN (currently set to kBEGIN).
// Bytes 1->kBEGIN contain the file description, when fVersion >= 1000000
// it is a large file (> 2 GB) and the offsets will be 8 bytes long and
// fUnits will be set to 8:
//    1->4            "root"      = Root file identifier
//    5->8            fVersion    = File format version
//    9->12           fBEGIN      = Pointer to first data record
//    13->16 [13->20] fEND        = Pointer to first free word at the EOF
//    17->20 [21->28] fSeekFree   = Pointer to FREE data record
//    21->24 [29->32] fNbytesFree = Number of bytes in FREE data record
//    25->28 [33->36] nfree       = Number of free data records
//    29->32 [37->40] fNbytesName = Number of bytes in TNamed at creation time
//    33->33 [41->41] fUnits      = Number of bytes for file pointers
//    34->37 [42->45] fCompress   = Compression level and algorithm
//    38->41 [46->53] fSeekInfo   = Pointer to TStreamerInfo record
//    42->45 [54->57] fNbytesInfo = Number of bytes in TStreamerInfo record
//    46->63 [58->75] fUUID       = Universal Unique ID
type File struct {
	r      Reader
	w      Writer
	seeker io.Seeker
	closer io.Closer

	id string // non-root, identifies filename, etc.

	version int32
	begin   int64

	// Remainder of record is variable length, 4 or 8 bytes per pointer
	end         int64
	seekfree    int64 // location of the free-space map record
	nbytesfree  int32 // number of bytes in the free-space map record
	nfree       int32 // number of entries in the free-space map record
	nbytesname  int32 // number of bytes in TNamed at creation time
	units       byte
	compression int32
	seekinfo    int64 // pointer to TStreamerInfo
	nbytesinfo  int32 // sizeof(TStreamerInfo)
	uuid        [16]byte

	dir     tdirectory // root directory of this file
	siKey   *Key       // key anchoring the TStreamerInfo list, nil until written or read
	sinfos  []*StreamerInfo
	siDirty bool // streamer list has entries not yet written back

	free *FreeList        // free-space map (spec.md §4.5)
	reg  *StreamerRegistry // nil means the package-wide default, streamers

	objCache *ObjectCache // nil disables object caching
	arrCache *ArrayCache  // nil disables TTree basket array caching

	exec Executor // nil means the default serial executor

	log *log.Logger
}

// defaultExecutor decompresses inline on the calling goroutine, the
// trivial executor of spec.md §5.
var defaultExecutor = NewSerialExecutor()

// SetExecutor routes this File's decompression work through e (spec.md
// §6.3). Pass nil to restore the default serial executor. The caller
// keeps ownership: Shutdown is never called by File.
func (f *File) SetExecutor(e Executor) { f.exec = e }

func (f *File) executor() Executor {
	if f.exec != nil {
		return f.exec
	}
	return defaultExecutor
}

// SetObjectCache installs an object cache of the given size (spec.md §5),
// so repeated Get calls for the same Key skip decompression and
// resynthesis. Pass size <= 0 to disable caching.
func (f *File) SetObjectCache(size int) error {
	if size <= 0 {
		f.objCache = nil
		return nil
	}
	c, err := NewObjectCache(size)
	if err != nil {
		return err
	}
	f.objCache = c
	return nil
}

// SetArrayCache installs a decoded-basket cache of the given size (spec.md
// §5), so repeated Branch.Array calls for the same branch skip
// decompression and re-decoding. Pass size <= 0 to disable caching.
func (f *File) SetArrayCache(size int) error {
	if size <= 0 {
		f.arrCache = nil
		return nil
	}
	c, err := NewArrayCache(size)
	if err != nil {
		return err
	}
	f.arrCache = c
	return nil
}

// Open opens the named ROOT file for reading. If successful, methods on the
// returned file can be used for reading; the associated file descriptor
// has mode os.O_RDONLY.
func Open(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return NewReader(fd, path)
}

// NewReader creates a new ROOT file reader.
func NewReader(r Reader, name string) (*File, error) {
	f := &File{
		r:      r,
		seeker: r,
		closer: r,
		id:     name,
		log:    log.New(ioutil.Discard, "rootio: ", 0),
	}
	f.dir = tdirectory{file: f}

	if err := f.readHeader(); err != nil {
		return nil, fmt.Errorf("rootio: failed to read header %q: %w", name, err)
	}
	return f, nil
}

// Create creates the named ROOT file for writing.
func Create(name string) (*File, error) {
	fd, err := os.Create(name)
	if err != nil {
		return nil, &SourceError{Path: name, Err: err}
	}

	// os.Create opens read-write, so a writable file can also serve Get
	// calls on keys it has already written (spec.md §8 S2 reads back a
	// cycle during the same write session).
	f := &File{
		r:      fd,
		w:      fd,
		seeker: fd,
		closer: fd,
		id:     name,
		log:    log.New(ioutil.Discard, "rootio: ", 0),
	}
	f.dir = tdirectory{named: tnamed{name: name}, file: f}

	if err := f.writeHeader(); err != nil {
		return nil, fmt.Errorf("rootio: failed to write header %q: %w", name, err)
	}
	return f, nil
}

// SetLogOutput routes this File's diagnostic trace (free-space churn,
// directory growth) to w, in place of the default discard sink.
func (f *File) SetLogOutput(w io.Writer) { f.log.SetOutput(w) }

// Read implements io.Reader
func (f *File) Read(p []byte) (int, error) {
	return f.r.Read(p)
}

// ReadAt implements io.ReaderAt
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.r == nil {
		return 0, &SourceError{Path: f.id, Err: fmt.Errorf("file is not readable")}
	}
	return f.r.ReadAt(p, off)
}

// WriteAt implements io.WriterAt, used by Key.writeFile and the
// directory/free-space flush paths once a record's final location has
// been chosen.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	return f.w.WriteAt(p, off)
}

// Seek implements io.Seeker
func (f *File) Seek(offset int64, whence int) (int64, error) {
	return f.seeker.Seek(offset, whence)
}

// Version returns the ROOT version this file was created with.
func (f *File) Version() int {
	return int(f.version)
}

// registry returns this file's streamer registry, falling back to the
// package-wide default (spec.md §9's "process-wide registry").
func (f *File) registry() *StreamerRegistry {
	if f.reg != nil {
		return f.reg
	}
	return streamers
}

func (f *File) readHeader() error {
	buf := make([]byte, kBEGIN)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return err
	}
	r := NewRBuffer(buf, nil, 0)

	magic := string(r.Bytes(4))
	if magic != "root" {
		return &FormatError{Path: f.id, Msg: fmt.Sprintf("not a root file (magic %q)", magic)}
	}

	f.version = r.ReadI32()
	f.begin = int64(r.ReadI32())
	big := f.version >= 1000000
	if !big {
		f.end = int64(r.ReadI32())
		f.seekfree = int64(r.ReadI32())
		f.nbytesfree = r.ReadI32()
		f.nfree = r.ReadI32()
		f.nbytesname = r.ReadI32()
		f.units = r.ReadU8()
		f.compression = r.ReadI32()
		f.seekinfo = int64(r.ReadI32())
		f.nbytesinfo = r.ReadI32()
	} else {
		f.end = r.ReadI64()
		f.seekfree = r.ReadI64()
		f.nbytesfree = r.ReadI32()
		f.nfree = r.ReadI32()
		f.nbytesname = r.ReadI32()
		f.units = r.ReadU8()
		f.compression = r.ReadI32()
		f.seekinfo = r.ReadI64()
		f.nbytesinfo = r.ReadI32()
	}
	f.version %= 1000000

	_ = r.ReadI16() // UUID version, always 1 (spec.md §6.1)
	copy(f.uuid[:], r.Bytes(16))
	if err := r.Err(); err != nil {
		return fmt.Errorf("rootio: failed to read ROOT file UUID: %w", err)
	}

	f.free = NewFreeList(f.end)
	if err := f.readFreeList(); err != nil {
		return fmt.Errorf("rootio: failed to read free-space map: %w", err)
	}

	if err := f.dir.readDirInfo(); err != nil {
		return fmt.Errorf("rootio: failed to read ROOT directory info: %w", err)
	}

	if err := f.readStreamerInfo(); err != nil {
		return fmt.Errorf("rootio: failed to read ROOT streamer infos: %w", err)
	}

	if err := f.dir.readKeys(); err != nil {
		return fmt.Errorf("rootio: failed to read ROOT file keys: %w", err)
	}

	return nil
}

func (f *File) writeHeader() error {
	f.begin = kBEGIN
	f.free = NewFreeList(kBEGIN)

	dirLen := int32(f.dir.recordSize(rootVersion))
	payloadLen := int32(tnamedSizeof(&f.dir.named)) + dirLen
	hdrLen := keyHeaderLen(f.Class(), f.Name(), f.Title(), false)

	loc := f.free.Allocate(int64(hdrLen)+int64(payloadLen), false)
	f.dir.seekdir = loc
	f.dir.seekparent = 0
	f.dir.ctime = rootDatime(time.Now())
	f.dir.mtime = f.dir.ctime
	uid := uuid.New()
	copy(f.dir.uuid[:], uid[:])
	copy(f.uuid[:], uid[:])
	f.nbytesname = hdrLen + int32(tnamedSizeof(&f.dir.named))

	if err := f.dir.flushKeys(); err != nil {
		return err
	}
	if err := f.dir.flushHeader(); err != nil {
		return err
	}

	f.end = f.free.End()
	f.units = 4
	f.version = rootVersion
	if f.end > kStartBigFile {
		f.version += 1000000
		f.units = 8
	}
	f.compression = 1
	f.seekinfo = 0
	f.nbytesinfo = 0

	return f.writeFileHeader()
}

// writeFileHeader (re)writes the fixed 100-byte file-level header at
// offset 0, zero-padded out to kBEGIN. Called once at creation and again
// every time fields it describes (fEnd, fSeekFree, fSeekInfo, ...)
// change, since those pointers are only discoverable by re-reading this
// block. The bytes are staged in a buffer and placed with WriteAt so the
// rewrite never depends on where the descriptor's sequential write
// offset happens to sit.
func (f *File) writeFileHeader() error {
	w := NewWBuffer(nil, nil, 0)
	w.write([]byte("root"))
	vers := f.version
	if f.end > kStartBigFile && vers < 1000000 {
		vers += 1000000
	}
	w.WriteI32(vers)
	w.WriteI32(int32(f.begin))
	big := vers >= 1000000
	if !big {
		w.WriteI32(int32(f.end))
		w.WriteI32(int32(f.seekfree))
		w.WriteI32(f.nbytesfree)
		w.WriteI32(f.nfree)
		w.WriteI32(f.nbytesname)
		w.WriteU8(f.units)
		w.WriteI32(f.compression)
		w.WriteI32(int32(f.seekinfo))
		w.WriteI32(f.nbytesinfo)
	} else {
		w.WriteI64(f.end)
		w.WriteI64(f.seekfree)
		w.WriteI32(f.nbytesfree)
		w.WriteI32(f.nfree)
		w.WriteI32(f.nbytesname)
		w.WriteU8(f.units)
		w.WriteI32(f.compression)
		w.WriteI64(f.seekinfo)
		w.WriteI32(f.nbytesinfo)
	}
	w.WriteI16(1) // UUID version (spec.md §6.1)
	w.write(f.uuid[:])
	if err := w.Err(); err != nil {
		return err
	}
	buf := w.Bytes()
	for len(buf) < kBEGIN {
		buf = append(buf, 0)
	}
	_, err := f.w.WriteAt(buf, 0)
	return err
}

// bumpEnd folds loc into the free-space map's logical end-of-file marker
// and mirrors the result onto f.end, then re-flushes the file header so
// fEND on disk never trails what has actually been written. This is the
// cascade ordering of spec.md §2: "file header/free-space map last".
func (f *File) bumpEnd(loc int64) error {
	if loc > f.free.End() {
		f.free.SetEnd(loc)
	}
	f.end = f.free.End()
	if f.w == nil {
		return nil
	}
	return f.writeFileHeader()
}

// readFreeList reads the free-space map record at f.seekfree, if any.
func (f *File) readFreeList() error {
	if f.seekfree <= 0 {
		return nil
	}
	k, payload, err := readFullRecordAt(f, f.seekfree)
	if err != nil {
		return err
	}
	if err := k.checkSeek(f.seekfree, true); err != nil {
		return err
	}
	r := NewRBuffer(payload, nil, 0)
	n := r.ReadI32()
	var segs []freeSegment
	for i := int32(0); i < n; i++ {
		vers := r.ReadI16()
		big := vers >= 1000
		var start, stop int64
		if big {
			start, stop = r.ReadI64(), r.ReadI64()
		} else {
			start, stop = int64(r.ReadI32()), int64(r.ReadI32())
		}
		if (big && stop == freeListSentinel) || (!big && stop == freeListSentinelSmall) {
			f.free.SetEnd(start)
			continue
		}
		segs = append(segs, freeSegment{start, stop})
	}
	for _, s := range segs {
		_ = f.free.Release(s.start, s.stop)
	}
	f.free.SetSelf(f.seekfree, int64(f.nbytesfree))
	return r.Err()
}

// encodeFreeList serializes the free-space map's current state: an entry
// count, each free interval, then the file-end sentinel entry.
func (f *File) encodeFreeList() []byte {
	segs := f.free.Segments()
	w := NewWBuffer(nil, nil, 0)
	w.WriteI32(int32(len(segs)) + 1)
	for _, s := range segs {
		big := s.stop >= kStartBigFile
		vers := int16(0)
		if big {
			vers = 1000
		}
		w.WriteI16(vers)
		if big {
			w.WriteI64(s.start)
			w.WriteI64(s.stop)
		} else {
			w.WriteI32(int32(s.start))
			w.WriteI32(int32(s.stop))
		}
	}
	big := f.free.End() >= kStartBigFile
	vers := int16(0)
	if big {
		vers = 1000
	}
	w.WriteI16(vers)
	if big {
		w.WriteI64(f.free.End())
		w.WriteI64(freeListSentinel)
	} else {
		w.WriteI32(int32(f.free.End()))
		w.WriteI32(int32(freeListSentinelSmall))
	}
	return w.Bytes()
}

// flushFreeList (re)writes the free-space map record, relocating it when
// it no longer fits in its current allocation. It is the last thing a
// mutating write path touches, per spec.md §2's cascade ordering.
//
// Relocating the record mutates the very state being serialized (the
// released interval joins the map; the new allocation may consume one),
// so the serialized form is rebuilt after every relocation until it fits
// the chosen allocation. Each relocation changes the interval list by at
// most one merge or split, so this settles within a few rounds.
func (f *File) flushFreeList() error {
	if f.w == nil {
		return nil
	}
	// The record may have been displaced by an Allocate that found it at
	// end-of-file (spec.md §4.5 step 2); pick up its current home.
	if loc, ok := f.free.Self(); ok {
		f.seekfree = loc
	}
	for round := 0; ; round++ {
		if round > 8 {
			return fmt.Errorf("rootio: free-space record failed to settle after %d relocations", round)
		}
		payload := f.encodeFreeList()
		if int32(len(payload)) != f.free.sizeof() {
			return fmt.Errorf("rootio: free-space record length %d disagrees with FreeList.sizeof() %d", len(payload), f.free.sizeof())
		}
		hdrLen := keyHeaderLen("", "", "", f.seekfree >= kStartBigFile)
		need := hdrLen + int32(len(payload))

		if f.seekfree != 0 && need <= f.nbytesfree {
			k := &Key{f: f, objlen: int32(len(payload)), buf: payload, cycle: 1, seekkey: f.seekfree}
			k.keylen = hdrLen
			k.bytes = k.keylen + int32(len(payload))
			f.nfree = int32(len(f.free.Segments())) + 1
			if err := k.writeFile(); err != nil {
				return err
			}
			f.free.SetSelf(f.seekfree, int64(f.nbytesfree))
			f.end = f.free.End()
			return f.writeFileHeader()
		}

		if f.seekfree != 0 {
			old, oldLen := f.seekfree, int64(f.nbytesfree)
			f.seekfree, f.nbytesfree = 0, 0
			f.free.ClearSelf()
			if err := f.free.Release(old, old+oldLen); err != nil {
				return err
			}
			continue
		}

		f.free.ClearSelf()
		f.seekfree = f.free.Allocate(int64(need), false)
		f.nbytesfree = need
	}
}

// Map prints, to f's log, a one-line summary of every key in the root
// directory: class, name, compressed size, uncompressed size and the
// resulting compression ratio.
func (f *File) Map() {
	for _, k := range f.dir.keys {
		ratio := 0.0
		if k.bytes > k.keylen {
			ratio = float64(k.objlen) / float64(k.bytes-k.keylen)
		}
		f.log.Printf("%8s %60s %6v %6v %f", k.class, k.name, k.bytes-k.keylen, k.objlen, ratio)
	}
}

func (f *File) Tell() int64 {
	where, err := f.Seek(0, ioSeekCurrent)
	if err != nil {
		panic(err)
	}
	return where
}

// Close flushes any pending streamer/free-space/header state (for a
// writer) and closes the underlying descriptor. The streamer list goes
// out before the free map, which always goes last (spec.md §2, §4.11).
// The descriptor is closed even when a flush fails; the flush error wins.
func (f *File) Close() error {
	var ferr error
	if f.w != nil {
		ferr = f.flushStreamerInfo()
		if ferr == nil {
			ferr = f.flushFreeList()
		}
	}
	for i := range f.dir.keys {
		f.dir.keys[i].f = nil
	}
	f.dir.keys = nil
	f.dir.file = nil
	cerr := f.closer.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// Keys returns the list of keys this File's root directory contains.
func (f *File) Keys() []Key {
	return f.dir.keys
}

func (f *File) Name() string { return f.dir.Name() }

func (f *File) Title() string { return f.dir.Title() }

func (f *File) Class() string { return "TFile" }

// readStreamerInfo reads the list of StreamerInfo (and preserved
// schema-evolution rule strings) from this file, per spec.md §4.7.
func (f *File) readStreamerInfo() error {
	if f.seekinfo <= 0 {
		return nil
	}
	if f.seekinfo >= f.end {
		return &FormatError{Path: f.id, Msg: fmt.Sprintf("invalid pointer to StreamerInfo (pos=%d end=%d)", f.seekinfo, f.end)}
	}

	k, payload, err := readFullRecordAt(f, f.seekinfo)
	if err != nil {
		return err
	}
	f.siKey = k

	body := payload
	if int32(len(payload)) != k.objlen {
		body, err = Decompress(payload, int(k.objlen))
		if err != nil {
			return err
		}
	}

	reg := f.registry()
	r := NewRBuffer(body, nil, 0)
	obj, err := reg.ReadObject(r, "TList")
	if err != nil {
		return err
	}
	lst, ok := obj.(*objArray)
	if !ok {
		return &FormatError{Path: f.id, Msg: "streamer record is not a TList"}
	}

	f.sinfos = make([]*StreamerInfo, 0, lst.Len())
	for i := 0; i < lst.Len(); i++ {
		switch v := lst.At(i).(type) {
		case *StreamerInfo:
			f.sinfos = append(f.sinfos, v)
			reg.Add(v)
		case *tobjstring:
			reg.AddRule(v)
		}
	}
	return nil
}

// StreamerInfo returns the list of StreamerInfos of this file.
func (f *File) StreamerInfo() []*StreamerInfo {
	return f.sinfos
}

// AddStreamerInfo registers si both with this file's registry (so objects
// of its class can be decoded right away) and with the file's own
// streamer list, to be written back on Close (spec.md §1.3).
func (f *File) AddStreamerInfo(si *StreamerInfo) {
	f.sinfos = append(f.sinfos, si)
	f.registry().Add(si)
	f.siDirty = true
}

// flushStreamerInfo (re)writes the file's streamer-info record: a TList
// of every StreamerInfo this session carries, followed by the preserved
// schema-evolution rule strings, verbatim (spec.md §4.7). A file that
// never registered a streamer keeps fSeekInfo at 0.
func (f *File) flushStreamerInfo() error {
	if f.w == nil || !f.siDirty {
		return nil
	}
	payload, err := marshalStreamerList(f.sinfos, f.registry().Rules())
	if err != nil {
		return err
	}
	if f.seekinfo != 0 {
		if err := f.free.Release(f.seekinfo, f.seekinfo+int64(f.nbytesinfo)); err != nil {
			return err
		}
		f.seekinfo, f.nbytesinfo = 0, 0
	}
	k, err := writeUntrackedRecord(f, "TList", "StreamerInfo", "Doubly linked list", payload, int32(len(payload)), f.begin, false)
	if err != nil {
		return err
	}
	f.siKey = k
	f.seekinfo = k.seekkey
	f.nbytesinfo = k.bytes
	f.siDirty = false
	return f.writeFileHeader()
}

// readObjectFromKey decompresses k's payload (if needed) and dispatches
// it through this file's streamer registry, per spec.md §4.7/§4.8. It
// implements the one-time streamer-refresh retry of §7/§8 S6: on the
// first DeserializationError, the registry's non-bootstrap entries are
// purged and the read is attempted exactly once more.
func (f *File) readObjectFromKey(k *Key) (Object, error) {
	if f.objCache != nil {
		if obj, ok := f.objCache.Get(f.uuid, k.seekkey); ok {
			return obj, nil
		}
	}

	raw := make([]byte, k.bytes-k.keylen)
	if _, err := f.ReadAt(raw, k.seekkey+int64(k.keylen)); err != nil {
		return nil, &SourceError{Path: f.id, Err: err}
	}

	obj, err := f.decodeKeyPayload(k, raw)
	if _, ok := err.(*DeserializationError); ok {
		// One-time streamer-refresh retry (spec.md §7, §8 S6): whatever
		// the registry held for this class disagreed with the bytes on
		// disk, so drop every registered layout and trust only the
		// file's own streamers for the second attempt.
		reg := f.registry()
		reg.Purge()
		for _, si := range f.sinfos {
			reg.Add(si)
		}
		obj, err = f.decodeKeyPayload(k, raw)
	}
	if err == nil && f.objCache != nil {
		f.objCache.Add(f.uuid, k.seekkey, obj)
	}
	return obj, err
}

func (f *File) decodeKeyPayload(k *Key, raw []byte) (Object, error) {
	payload := raw
	if int32(len(raw)) != k.objlen {
		fut := f.executor().Submit(func() error {
			var err error
			payload, err = Decompress(raw, int(k.objlen))
			return err
		})
		if err := fut.Result(); err != nil {
			return nil, err
		}
	}

	r := NewRBuffer(payload, nil, 0)
	if k.class == "TDirectory" {
		sub := &tdirectory{file: f, seekparent: k.seekpdir}
		named, err := unmarshalTNamed(r)
		if err != nil {
			return nil, err
		}
		sub.named = *named
		if err := sub.UnmarshalROOT(r); err != nil {
			return nil, err
		}
		if err := sub.readKeys(); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if k.class == "TTree" {
		// A TTree's branches carry a file reference (Branch.Array needs
		// one to chase fBasketSeek) but not a directory back-reference:
		// Extend-ing a tree obtained this way is not supported, only
		// reading it back (spec.md §4.10 only requires round-tripping
		// through extend/read within one writable session, not across a
		// close/reopen of a read-only handle).
		t := &Tree{file: f}
		if err := t.UnmarshalROOT(r); err != nil {
			return nil, err
		}
		return t, nil
	}
	return f.registry().ReadObject(r, k.class)
}

// Get returns the object identified by namecycle, "name" or
// "name;cycle", looked up in the root directory.
func (f *File) Get(namecycle string) (Object, error) {
	return f.dir.Get(namecycle)
}

// Put writes obj as a new (or new-cycle) child of the root directory
// under name/title, compressing its payload per f.compression, per
// spec.md §4.6's add_object.
func (f *File) Put(name, title string, obj WritableModel) (*Key, error) {
	w := NewWBuffer(nil, nil, 0)
	if err := obj.MarshalROOT(w); err != nil {
		return nil, err
	}
	raw := w.Bytes()
	payload := raw
	if f.compression > 0 {
		algo, level := decodeCompressionSetting(f.compression)
		compressed, err := Compress(raw, algo, level)
		if err == nil && len(compressed) < len(raw) {
			payload = compressed
		}
	}
	return f.dir.AddObject(obj.Class(), name, title, payload, int32(len(raw)), 0, false)
}

// decodeCompressionSetting unpacks ROOT's fCompress encoding,
// algo*100+level, into an Algo/level pair.
func decodeCompressionSetting(v int32) (Algo, int) {
	level := int(v % 100)
	switch v / 100 {
	case 1:
		return AlgoLZMA, level
	case 2:
		return AlgoLZ4, level
	case 3:
		return AlgoZstd, level
	default:
		return AlgoZlib, level
	}
}

var (
	_ Object    = (*File)(nil)
	_ Named     = (*File)(nil)
	_ Directory = (*File)(nil)
)
