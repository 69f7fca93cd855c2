// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

import "strings"

// SplitPath splits a "file.root:dir/sub/obj;cycle"-style path (spec.md
// §6.5) into its file part and its in-file object path. The final colon
// is the separator, so file paths that themselves contain one still
// split correctly. A path with no colon is returned verbatim as the
// object path, with an empty file part (the length-1-mapping form: the
// caller already has a *File in hand and only means the in-file part).
func SplitPath(path string) (file, objpath string) {
	i := strings.LastIndexByte(path, ':')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// GetObject resolves a "dir/sub/obj;cycle"-style in-file path against f,
// descending through intermediate directories with Get and honoring a
// trailing ";cycle" on the final component, per spec.md §6.5.
func GetObject(f *File, objpath string) (Object, error) {
	objpath = strings.TrimPrefix(objpath, "/")
	parts := strings.Split(objpath, "/")

	var dir Directory = f
	for i, part := range parts {
		obj, err := dir.Get(part)
		if err != nil {
			return nil, err
		}
		if i == len(parts)-1 {
			return obj, nil
		}
		sub, ok := obj.(Directory)
		if !ok {
			return nil, &FormatError{Msg: "path component " + part + " is not a directory"}
		}
		dir = sub
	}
	return nil, &FormatError{Msg: "empty object path"}
}

var _ Directory = (*tdirectory)(nil)
