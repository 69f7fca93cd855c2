// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// asErr is a test shorthand for errors.As.
func asErr(err error, target interface{}) bool { return errors.As(err, target) }

func TestSourceErrorWraps(t *testing.T) {
	cause := fmt.Errorf("disk on fire")
	err := fmt.Errorf("while reading: %w", &SourceError{Path: "f.root", Err: cause})
	var se *SourceError
	if !errors.As(err, &se) {
		t.Fatal("errors.As failed to find the SourceError")
	}
	if se.Path != "f.root" {
		t.Errorf("Path = %q, want %q", se.Path, "f.root")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is failed to unwrap to the cause")
	}
}

func TestDeserializationErrorRendersDump(t *testing.T) {
	err := &DeserializationError{Path: "f.root", Obj: "TThing", Msg: "boom", Dump: "bytes [0:4)"}
	s := err.Error()
	for _, want := range []string{"f.root", "TThing", "boom", "bytes [0:4)"} {
		if !strings.Contains(s, want) {
			t.Errorf("Error() = %q, missing %q", s, want)
		}
	}
}

func TestDebugDump(t *testing.T) {
	data := []byte("root\x00\x01\x02\x03abcdefgh")
	dump := debugDump(data, 4, 8)
	if !strings.Contains(dump, "offset 4") {
		t.Errorf("dump missing offset marker:\n%s", dump)
	}
	if !strings.Contains(dump, ">00") {
		t.Errorf("dump missing cursor marker on byte 0x00:\n%s", dump)
	}
	if !strings.Contains(dump, "root") {
		t.Errorf("dump missing ASCII overlay:\n%s", dump)
	}
}

func TestAllocationErrorMessage(t *testing.T) {
	err := &AllocationError{Start: 10, Stop: 20, Msg: "overlaps"}
	if !strings.Contains(err.Error(), "[10, 20)") {
		t.Errorf("Error() = %q, missing interval", err.Error())
	}
}
