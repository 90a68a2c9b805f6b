/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bayou

import (
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
)

// Response is spec.md §3's response value: "Status (numeric code +
// reason), headers, cookies (as a list of Set-Cookie values, never
// collapsed with other headers), optional entity." Status must not be
// 1xx at the handler surface; 1xx responses are driver-internal
// (the server driver's continueBody writes the 100 itself).
type Response struct {
	Status     int
	Reason     string
	Headers    *hdr.Ordered
	SetCookies []string
	Entity     *entity.Entity

	// Last marks this as the final response on its connection — set by
	// the server driver's keep-alive decision (spec.md §4.2 item 6) or
	// forced true for a bad-request response (item 2).
	Last bool
}

// NewResponse builds a Response with a default reason phrase derived
// from status when reason is empty.
func NewResponse(status int, reason string, headers *hdr.Ordered, e *entity.Entity) *Response {
	if reason == "" {
		reason = StatusText(status)
	}
	return &Response{Status: status, Reason: reason, Headers: headers, Entity: e}
}

// ForceClose marks the response as the connection's last, per
// spec.md §4.2 item 2 ("Bad request ... Always mark this the last
// response on the connection") and item 4 (100-Continue handled
// without reading the body).
func (r *Response) ForceClose() {
	r.Last = true
	r.Headers.Set(hdr.Connection, "close")
}
