// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "testing"

func TestSplitPath(t *testing.T) {
	for _, tt := range []struct {
		in, file, obj string
	}{
		{"f.root:h", "f.root", "h"},
		{"dir/f.root:sub/obj;2", "dir/f.root", "sub/obj;2"},
		{"h", "", "h"},
		{"C:/data/f.root:h", "C:/data/f.root", "h"},
	} {
		file, obj := SplitPath(tt.in)
		if file != tt.file || obj != tt.obj {
			t.Errorf("SplitPath(%q) = (%q, %q), want (%q, %q)", tt.in, file, obj, tt.file, tt.obj)
		}
	}
}

func TestGetObjectNonDirectoryComponent(t *testing.T) {
	f, err := Create(t.TempDir() + "/flatpath.root")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()
	putH1(t, &f.dir, "h", 1)
	if _, err := GetObject(f, "h/inner"); err == nil {
		t.Fatal("descending through a non-directory succeeded")
	}
}
