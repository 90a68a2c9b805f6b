/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import "github.com/badu/bayou/hdr"

// RequestHead is the parsed request-line plus headers, before any
// entity is attached — the wire codec's output feeding the Request
// value described in spec.md §3.
type RequestHead struct {
	Method  string
	Target  string // raw request-target, as sent on the wire
	Minor   int    // 0 or 1
	Headers *hdr.Ordered
}

// ResponseHead is the parsed status-line plus headers.
type ResponseHead struct {
	Minor   int
	Status  int
	Reason  string
	Headers *hdr.Ordered
}
