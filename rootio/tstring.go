// Copyright 2017 The go-hep Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rootio

// tstringSizeof returns the number of bytes the length-prefixed string
// encoding of spec.md §3 occupies for s: one length byte, plus four more
// when the string is 255 bytes or longer, plus the string's own bytes.
func tstringSizeof(s string) int {
	n := len(s)
	if n < 255 {
		return 1 + n
	}
	return 1 + 4 + n
}
