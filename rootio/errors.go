// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"fmt"
	"strings"
)

// SourceError wraps an I/O fault that occurred while pulling bytes out of a
// Source: a file not found, a closed handle, a remote timeout.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("rootio: source error on %q: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// FormatError reports a self-inconsistent on-disk structure: a bad magic,
// an impossible field value, a TKey whose fSeekKey disagrees with its own
// location. There is no recovery from a FormatError.
type FormatError struct {
	Path string
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("rootio: format error: %s", e.Msg)
	}
	return fmt.Sprintf("rootio: format error in %q: %s", e.Path, e.Msg)
}

// DeserializationError reports a num-bytes/version mismatch, an unexpected
// tag in the read-any-object protocol, or a class version for which no
// streamer and no hand-written model could be found.
type DeserializationError struct {
	Path  string
	Obj   string
	Msg   string
	Dump  string
}

func (e *DeserializationError) Error() string {
	var b strings.Builder
	b.WriteString("rootio: deserialization error")
	if e.Path != "" {
		fmt.Fprintf(&b, " in %q", e.Path)
	}
	if e.Obj != "" {
		fmt.Fprintf(&b, " (object %q)", e.Obj)
	}
	fmt.Fprintf(&b, ": %s", e.Msg)
	if e.Dump != "" {
		fmt.Fprintf(&b, "\n%s", e.Dump)
	}
	return b.String()
}

// SchemaError reports an unknown primitive code in a TStreamerElement, or a
// streamer that exists for a class but describes no writable layout.
type SchemaError struct {
	Class string
	Msg   string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("rootio: schema error for class %q: %s", e.Class, e.Msg)
}

// AllocationError reports that the in-memory free-space map has become
// internally inconsistent: a release() was asked to free an interval that
// overlaps an already-free interval. A correctly functioning writer never
// triggers this.
type AllocationError struct {
	Start, Stop int64
	Msg         string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("rootio: allocation error releasing [%d, %d): %s", e.Start, e.Stop, e.Msg)
}

// NotImplementedError reports a feature the spec reserves but does not
// implement: memberwise-serialized containers, the "CS" compression tag,
// or writing a class for which no writable model is registered.
type NotImplementedError struct {
	Feature string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("rootio: not implemented: %s", e.Feature)
}

// debugDump renders a hex + interpreted-overlay dump of the bytes around
// pos, used to annotate DeserializationError messages. limit bounds the
// number of bytes shown on each side of pos.
func debugDump(data []byte, pos, limit int) string {
	lo := pos - limit
	if lo < 0 {
		lo = 0
	}
	hi := pos + limit
	if hi > len(data) {
		hi = len(data)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "bytes [%d:%d) around offset %d:\n", lo, hi, pos)
	for i := lo; i < hi; i += 16 {
		end := i + 16
		if end > hi {
			end = hi
		}
		fmt.Fprintf(&b, "  %08x  ", i)
		for j := i; j < end; j++ {
			mark := ' '
			if j == pos {
				mark = '>'
			}
			fmt.Fprintf(&b, "%c%02x", mark, data[j])
		}
		b.WriteString("  |")
		for j := i; j < end; j++ {
			c := data[j]
			if c < 0x20 || c > 0x7e {
				c = '.'
			}
			b.WriteByte(c)
		}
		b.WriteString("|\n")
	}
	return b.String()
}
