// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "io"

const (
	ioSeekStart   = io.SeekStart
	ioSeekCurrent = io.SeekCurrent
	ioSeekEnd     = io.SeekEnd
)

const (
	// kBEGIN is the default offset of the first data record in a newly
	// created file: a 100-byte header, rounded up from the 86 bytes
	// spec.md §6.1 actually specifies.
	kBEGIN = 100

	// kStartBigFile is the 2 GiB boundary (spec.md §4.4, §4.5) at or
	// above which seeks must be written in the "big" 64-bit form.
	kStartBigFile = 2000000000

	// kNewClassTag marks the "register a new class name" case of the
	// read-any-object protocol (§4.8).
	kNewClassTag = 0xFFFFFFFF

	// kClassMask is the high bit that marks a read-any-object tag as a
	// class back-reference; clearing it leaves the referenced position.
	kClassMask = 0x80000000

	// kByteCountMask is the bit that marks a num-bytes field as carrying
	// a byte count; clearing it leaves the payload length (§4.8).
	kByteCountMask = 0x40000000

	// kByteCountVMask marks that a num-bytes/version 4-byte field
	// actually carries a byte count rather than just a version.
	kByteCountVMask = 0x40000000

	// kMapOffset is ROOT's traditional bias for back-reference position
	// bookkeeping; kept only for documentation of the protocol, since
	// this implementation keys its back-reference table by the
	// record-relative displacement directly (see object.go).
	kMapOffset = 2

	// kMemberWise flags a streamed container as memberwise-serialized
	// (§4.8); not implemented, per spec.md §9.
	kMemberWise = 0x4000

	// rootVersion is the file-format version this writer stamps into
	// newly created files.
	rootVersion = 63404

	// kStreamedMemberWise marks streamer info written for a version
	// that uses memberwise streaming for STL containers.
	kStreamedMemberWise = 1 << 14
)
