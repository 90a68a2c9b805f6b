/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bayou

// Method name constants, per RFC 7231 §4 and RFC 7231 §4.3.6 (CONNECT).
const (
	GET     = "GET"
	HEAD    = "HEAD"
	POST    = "POST"
	PUT     = "PUT"
	DELETE  = "DELETE"
	CONNECT = "CONNECT"
	OPTIONS = "OPTIONS"
	TRACE   = "TRACE"
	PATCH   = "PATCH"
)

// DefaultSupportedMethods matches spec.md §6's server configuration
// default: "supported methods ({GET, HEAD, POST, PUT, DELETE})".
var DefaultSupportedMethods = map[string]bool{
	GET: true, HEAD: true, POST: true, PUT: true, DELETE: true,
}
