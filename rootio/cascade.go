// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// flushCascade re-flushes a directory's keys-data record and its own
// header record, then folds loc into the file's logical end-of-file
// marker and re-stamps the file-level header. It is the fixed flush
// order spec.md §2 requires for every mutating directory operation:
// payload and key header are already on disk by the time a caller
// reaches here (AddObject/AddDirectory write those first), so all that
// remains is directory keys data, then the directory's own header,
// then the file-level bookkeeping last. Every call site that mutates a
// directory funnels its closing bookkeeping through this one function
// so the order can never drift between them.
func flushCascade(d *tdirectory, loc int64) error {
	if err := d.flushKeys(); err != nil {
		return err
	}
	if err := d.flushHeader(); err != nil {
		return err
	}
	return d.file.bumpEnd(loc)
}
