// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sync/errgroup"
)

// ChunkRequest describes one byte range a caller wants pulled out of a
// Source, spec.md §4's "thin Source interface" for a remote/local byte
// provider sitting underneath File.
type ChunkRequest struct {
	Start int64
	Len   int64
}

// Source is the minimal transport abstraction this engine reads through,
// spec.md's explicit Non-goal list excludes any remote transport beyond
// this thin interface: a byte-range fetcher plus a total-size query.
type Source interface {
	// Chunk returns exactly req.Len bytes starting at req.Start.
	Chunk(ctx context.Context, req ChunkRequest) ([]byte, error)
	// Chunks fetches multiple ranges, fanning them out concurrently when
	// the backend supports it (spec.md §5's worker-pool model). sink, if
	// non-nil, is called once per completed chunk in completion order
	// (unordered); the returned list is in request order, and callers
	// that depend on ordering must use it rather than the sink.
	Chunks(ctx context.Context, reqs []ChunkRequest, sink func(i int, b []byte)) ([][]byte, error)
	// NumBytes reports the source's total size.
	NumBytes() (int64, error)
	Close() error
}

// bytesSource is a Source over an in-memory byte slice, useful for tests
// and for small files fully resident in memory.
type bytesSource struct {
	data []byte
}

// NewBytesSource wraps data as a Source.
func NewBytesSource(data []byte) Source { return &bytesSource{data: data} }

func (s *bytesSource) Chunk(ctx context.Context, req ChunkRequest) ([]byte, error) {
	if req.Start < 0 || req.Start+req.Len > int64(len(s.data)) {
		return nil, &SourceError{Err: fmt.Errorf("chunk [%d,%d) out of range (len=%d)", req.Start, req.Start+req.Len, len(s.data))}
	}
	out := make([]byte, req.Len)
	copy(out, s.data[req.Start:req.Start+req.Len])
	return out, nil
}

func (s *bytesSource) Chunks(ctx context.Context, reqs []ChunkRequest, sink func(int, []byte)) ([][]byte, error) {
	out := make([][]byte, len(reqs))
	for i, req := range reqs {
		b, err := s.Chunk(ctx, req)
		if err != nil {
			return nil, err
		}
		out[i] = b
		if sink != nil {
			sink(i, b)
		}
	}
	return out, nil
}

func (s *bytesSource) NumBytes() (int64, error) { return int64(len(s.data)), nil }
func (s *bytesSource) Close() error              { return nil }

// fileSource is a Source backed by an *os.File, fanning concurrent chunk
// requests out across a bounded worker pool via errgroup (spec.md §5).
type fileSource struct {
	f       *os.File
	workers int
}

// NewFileSource opens path for reading and returns a Source that serves
// Chunks requests with up to workers concurrent pread calls.
func NewFileSource(path string, workers int) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	if workers <= 0 {
		workers = 1
	}
	return &fileSource{f: f, workers: workers}, nil
}

func (s *fileSource) Chunk(ctx context.Context, req ChunkRequest) ([]byte, error) {
	out := make([]byte, req.Len)
	if _, err := s.f.ReadAt(out, req.Start); err != nil {
		return nil, &SourceError{Path: s.f.Name(), Err: err}
	}
	return out, nil
}

func (s *fileSource) Chunks(ctx context.Context, reqs []ChunkRequest, sink func(int, []byte)) ([][]byte, error) {
	out := make([][]byte, len(reqs))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			b, err := s.Chunk(ctx, req)
			if err != nil {
				return err
			}
			out[i] = b
			if sink != nil {
				mu.Lock()
				sink(i, b)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *fileSource) NumBytes() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, &SourceError{Path: s.f.Name(), Err: err}
	}
	return fi.Size(), nil
}

func (s *fileSource) Close() error { return s.f.Close() }

// mmapSource is a Source backed by a memory-mapped file, avoiding a
// syscall per chunk once the mapping is established. Chunks still copies
// out of the mapping so callers never hold a reference into mmap'd memory
// past Close.
type mmapSource struct {
	f *os.File
	m mmap.MMap
}

// NewMmapSource memory-maps path read-only.
func NewMmapSource(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, &SourceError{Path: path, Err: err}
	}
	return &mmapSource{f: f, m: m}, nil
}

func (s *mmapSource) Chunk(ctx context.Context, req ChunkRequest) ([]byte, error) {
	if req.Start < 0 || req.Start+req.Len > int64(len(s.m)) {
		return nil, &SourceError{Path: s.f.Name(), Err: fmt.Errorf("chunk [%d,%d) out of range (len=%d)", req.Start, req.Start+req.Len, len(s.m))}
	}
	out := make([]byte, req.Len)
	copy(out, s.m[req.Start:req.Start+req.Len])
	return out, nil
}

func (s *mmapSource) Chunks(ctx context.Context, reqs []ChunkRequest, sink func(int, []byte)) ([][]byte, error) {
	out := make([][]byte, len(reqs))
	for i, req := range reqs {
		b, err := s.Chunk(ctx, req)
		if err != nil {
			return nil, err
		}
		out[i] = b
		if sink != nil {
			sink(i, b)
		}
	}
	return out, nil
}

func (s *mmapSource) NumBytes() (int64, error) {
	fi, err := s.f.Stat()
	if err != nil {
		return 0, &SourceError{Path: s.f.Name(), Err: err}
	}
	return fi.Size(), nil
}

func (s *mmapSource) Close() error {
	if err := s.m.Unmap(); err != nil {
		return err
	}
	return s.f.Close()
}

// sourceReader adapts a Source to the Reader interface File expects,
// letting File.Open-style code swap in any Source backend while keeping
// the rest of the engine oblivious to the transport underneath.
type sourceReader struct {
	src Source
	pos int64
}

// NewSourceReader wraps src as a Reader usable with NewReader.
func NewSourceReader(src Source) Reader { return &sourceReader{src: src} }

func (r *sourceReader) ReadAt(p []byte, off int64) (int, error) {
	b, err := r.src.Chunk(context.Background(), ChunkRequest{Start: off, Len: int64(len(p))})
	if err != nil {
		return 0, err
	}
	copy(p, b)
	return len(b), nil
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.pos)
	r.pos += int64(n)
	return n, err
}

func (r *sourceReader) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case ioSeekStart:
		r.pos = offset
	case ioSeekCurrent:
		r.pos += offset
	case ioSeekEnd:
		n, err := r.src.NumBytes()
		if err != nil {
			return 0, err
		}
		r.pos = n + offset
	}
	return r.pos, nil
}

func (r *sourceReader) Close() error { return r.src.Close() }
