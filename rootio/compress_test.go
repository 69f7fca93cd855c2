// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 512)
	for _, tt := range []struct {
		name string
		algo Algo
	}{
		{"zlib", AlgoZlib},
		{"lzma", AlgoLZMA},
		{"lz4", AlgoLZ4},
		{"zstd", AlgoZstd},
	} {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Compress(data, tt.algo, 0)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			out, err := Decompress(packed, len(data))
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Errorf("round trip mismatch: got %d bytes", len(out))
			}
		})
	}
}

func TestDecompressUnknownTag(t *testing.T) {
	src := append([]byte{'Q', 'Q', 1}, 1, 0, 0, 1, 0, 0, 0xaa)
	if _, err := Decompress(src, 1); err == nil {
		t.Fatal("unknown tag: got nil error, want one")
	}
}

func TestDecompressOldTagUnsupported(t *testing.T) {
	src := append([]byte{'C', 'S', 1}, 2, 0, 0, 1, 0, 0, 0xaa, 0xbb)
	_, err := Decompress(src, 1)
	if err == nil {
		t.Fatal(`"CS" tag: got nil error, want NotImplementedError`)
	}
	var nie *NotImplementedError
	if !asErr(err, &nie) {
		t.Errorf(`"CS" tag error = %T (%v), want *NotImplementedError`, err, err)
	}
}

// TestDecompressStoredRawBlock covers the csize == usize passthrough the
// LZ4 writer emits for incompressible input.
func TestDecompressStoredRawBlock(t *testing.T) {
	// High-entropy bytes defeat LZ4's matcher, forcing the raw fallback.
	data := make([]byte, 256)
	x := uint32(2463534242)
	for i := range data {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		data[i] = byte(x)
	}
	packed, err := Compress(data, AlgoLZ4, 0)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := Decompress(packed, len(data))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("stored-raw round trip mismatch")
	}
}

// TestLZ4ChecksumFailureIdentifiesBlock corrupts one byte inside the
// second of two LZ4 blocks (16 MiB + 5 MiB uncompressed); decompression
// must fail with a checksum error naming block 2, before decoding it.
func TestLZ4ChecksumFailureIdentifiesBlock(t *testing.T) {
	data := bytes.Repeat([]byte{0x42, 0x17, 0x42, 0x17, 0x00, 0x00, 0x00, 0x01}, (16+5)*1024*1024/8)
	packed, err := Compress(data, AlgoLZ4, 0)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	// Locate the second block: skip block 1's 9-byte header, 8-byte
	// checksum and compressed payload.
	csize1 := decompress24(packed[3:6])
	block2 := 9 + 8 + csize1
	if block2 >= len(packed) {
		t.Fatalf("expected a second block, packed is only %d bytes", len(packed))
	}
	packed[block2+9+8+5] ^= 0xff // one byte inside block 2's compressed payload

	_, err = Decompress(packed, len(data))
	if err == nil {
		t.Fatal("corrupted block 2: got nil error, want checksum failure")
	}
	if !strings.Contains(err.Error(), "checksum") {
		t.Errorf("error does not mention the checksum: %v", err)
	}
	if !strings.Contains(err.Error(), "block 2") {
		t.Errorf("error does not identify block 2: %v", err)
	}
}

func TestCompressMultiBlockBoundaries(t *testing.T) {
	data := bytes.Repeat([]byte{7}, blockTargetSize+1234)
	packed, err := Compress(data, AlgoZlib, 0)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	usize1 := decompress24(packed[6:9])
	if usize1 != blockTargetSize {
		t.Errorf("first block uncompressed size = %d, want %d", usize1, blockTargetSize)
	}
	out, err := Decompress(packed, len(data))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("multi-block round trip mismatch")
	}
}

func TestPack24RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 255, 256, 1 << 16, 1<<24 - 1} {
		b := compress24(n)
		if got := decompress24(b[:]); got != n {
			t.Errorf("24-bit round trip of %d = %d", n, got)
		}
	}
}
