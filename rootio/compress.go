// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// blockTag identifies which codec a compressed block was written with, per
// spec.md §4.3.
type blockTag [2]byte

var (
	tagZlib = blockTag{'Z', 'L'}
	tagLZMA = blockTag{'X', 'Z'}
	tagLZ4  = blockTag{'L', '4'}
	tagZstd = blockTag{'Z', 'S'}
	tagOld  = blockTag{'C', 'S'}
)

// blockTargetSize is the uncompressed size of one compression block:
// the largest value the header's 24-bit length fields can carry, just
// under the nominal 16 MiB target.
const blockTargetSize = 1<<24 - 1

// decompress24 unpacks the little-endian-packed 24-bit length field used by
// every compression block header (spec.md §4.3: "c1 | c2<<8 | c3<<16").
func decompress24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

func compress24(n int) [3]byte {
	return [3]byte{byte(n), byte(n >> 8), byte(n >> 16)}
}

// Decompress reads concatenated compression blocks from src until target
// uncompressed bytes have been produced, per spec.md §4.3. It returns
// exactly target bytes on success. Blocks are numbered from 1 in error
// messages.
func Decompress(src []byte, target int) ([]byte, error) {
	out := make([]byte, 0, target)
	pos := 0
	blockIdx := 1
	for len(out) < target {
		if pos+9 > len(src) {
			return nil, fmt.Errorf("rootio: truncated compression block header at block %d", blockIdx)
		}
		var tag blockTag
		copy(tag[:], src[pos:pos+2])
		method := src[pos+2]
		_ = method
		csize := decompress24(src[pos+3 : pos+6])
		usize := decompress24(src[pos+6 : pos+9])
		pos += 9

		var checksum uint64
		hasChecksum := tag == tagLZ4
		if hasChecksum {
			if pos+8 > len(src) {
				return nil, fmt.Errorf("rootio: truncated LZ4 checksum at block %d", blockIdx)
			}
			checksum = beU64(src[pos : pos+8])
			pos += 8
		}

		if pos+csize > len(src) {
			return nil, fmt.Errorf("rootio: truncated compressed payload at block %d", blockIdx)
		}
		payload := src[pos : pos+csize]
		pos += csize

		if hasChecksum {
			got := xxhash.Sum64(payload)
			if got != checksum {
				return nil, fmt.Errorf("rootio: LZ4 checksum mismatch at block %d: want %x, got %x", blockIdx, checksum, got)
			}
		}

		var dec []byte
		var err error
		if csize == usize && (tag == tagZlib || tag == tagLZMA || tag == tagLZ4 || tag == tagZstd) {
			// Stored raw: the writer found this block incompressible
			// and fell back to a verbatim copy (compressBlock's LZ4
			// path does this). Only the four supported codec tags take
			// this path; "CS" and unknown tags reach decompressBlock's
			// error.
			dec = append([]byte{}, payload...)
		} else {
			dec, err = decompressBlock(tag, payload, usize)
		}
		if err != nil {
			return nil, fmt.Errorf("rootio: block %d: %w", blockIdx, err)
		}
		if len(dec) != usize {
			return nil, fmt.Errorf("rootio: block %d decompressed to %d bytes, want %d", blockIdx, len(dec), usize)
		}
		out = append(out, dec...)
		blockIdx++
	}
	return out[:target], nil
}

func decompressBlock(tag blockTag, payload []byte, usize int) ([]byte, error) {
	switch tag {
	case tagZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case tagLZMA:
		lr, err := lzma.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(lr)
	case tagLZ4:
		dst := make([]byte, usize)
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return nil, err
		}
		return dst[:n], nil
	case tagZstd:
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return zr.DecodeAll(payload, make([]byte, 0, usize))
	case tagOld:
		return nil, &NotImplementedError{Feature: `"CS" (old ROOT) compression tag`}
	default:
		return nil, fmt.Errorf("rootio: unknown compression tag %q", string(tag[:]))
	}
}

func beU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// Algo identifies a compression algorithm for the Compress entry point.
type Algo int

const (
	AlgoZlib Algo = iota
	AlgoLZMA
	AlgoLZ4
	AlgoZstd
)

// Compress splits data into spec.md §4.3's blocks and compresses each with
// algo, at the given level (meaning is codec-specific; 0 means default).
func Compress(data []byte, algo Algo, level int) ([]byte, error) {
	var out []byte
	for off := 0; off < len(data) || (len(data) == 0 && off == 0); off += blockTargetSize {
		end := off + blockTargetSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		block, err := compressBlock(chunk, algo, level)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		if len(data) == 0 {
			break
		}
	}
	return out, nil
}

func compressBlock(chunk []byte, algo Algo, level int) ([]byte, error) {
	var (
		tag     blockTag
		method  byte
		payload []byte
		err     error
	)
	switch algo {
	case AlgoZlib:
		tag, method = tagZlib, 1
		var buf bytes.Buffer
		lvl := level
		if lvl == 0 {
			lvl = zlib.DefaultCompression
		}
		zw, werr := zlib.NewWriterLevel(&buf, lvl)
		if werr != nil {
			return nil, werr
		}
		if _, err = zw.Write(chunk); err != nil {
			return nil, err
		}
		if err = zw.Close(); err != nil {
			return nil, err
		}
		payload = buf.Bytes()
	case AlgoLZMA:
		tag, method = tagLZMA, 1
		var buf bytes.Buffer
		lw, werr := lzma.NewWriter(&buf)
		if werr != nil {
			return nil, werr
		}
		if _, err = lw.Write(chunk); err != nil {
			return nil, err
		}
		if err = lw.Close(); err != nil {
			return nil, err
		}
		payload = buf.Bytes()
	case AlgoLZ4:
		tag, method = tagLZ4, 1
		dst := make([]byte, lz4.CompressBlockBound(len(chunk)))
		var c lz4.Compressor
		n, cerr := c.CompressBlock(chunk, dst)
		if cerr != nil {
			return nil, cerr
		}
		if n == 0 {
			// incompressible; lz4 returns 0 when the block would
			// not shrink. Store the raw bytes via an uncompressed
			// passthrough block instead.
			payload = append([]byte{}, chunk...)
		} else {
			payload = dst[:n]
		}
	case AlgoZstd:
		tag, method = tagZstd, 1
		zw, werr := zstd.NewWriter(nil)
		if werr != nil {
			return nil, werr
		}
		payload = zw.EncodeAll(chunk, nil)
		zw.Close()
	default:
		return nil, fmt.Errorf("rootio: unknown compression algorithm %d", algo)
	}

	if len(payload) >= len(chunk) && len(chunk) > 0 {
		// Incompressible: store the raw bytes. csize == usize is the
		// passthrough convention Decompress honors for every tag, and it
		// keeps csize within the header's 24-bit field.
		payload = append([]byte{}, chunk...)
	}

	csize := compress24(len(payload))
	usize := compress24(len(chunk))
	hdr := []byte{tag[0], tag[1], method, csize[0], csize[1], csize[2], usize[0], usize[1], usize[2]}
	if tag == tagLZ4 {
		var sum [8]byte
		putBeU64(sum[:], xxhash.Sum64(payload))
		hdr = append(hdr, sum[:]...)
	}
	return append(hdr, payload...), nil
}

func putBeU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
