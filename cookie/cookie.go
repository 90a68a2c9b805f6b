/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package cookie implements the cookie subsystem (spec.md §4.6, §4.5
// "Cookies"): RFC 6265 domain/path matching with public-suffix
// cut-off, a client-side shared Storage, and a server-side per-request
// Jar.
package cookie

import "strconv"

// Cookie is the immutable-by-convention triple spec.md §3 describes:
// "{name, value, max-age} plus {domain, path, secure, http-only}".
// Identity for replacement purposes is {Name, Domain, Path}.
type Cookie struct {
	Name   string
	Value  string
	MaxAge *int // nil: session cookie. <=0: delete.
	Domain string
	Path   string
	Secure bool
	HTTPOnly bool
}

// Identity returns the {name, domain, path} triple as a single key,
// per spec.md §3: "Identity for replacement purposes is {name,
// domain, path}".
func (c *Cookie) Identity() string {
	return c.Name + "\x00" + c.Domain + "\x00" + c.Path
}

// Deleted reports whether MaxAge marks this cookie for deletion
// (spec.md §3: "max-age ≤ 0 means delete").
func (c *Cookie) Deleted() bool {
	return c.MaxAge != nil && *c.MaxAge <= 0
}

// String renders the cookie as a Set-Cookie header value.
func (c *Cookie) String() string {
	s := c.Name + "=" + c.Value
	if c.Path != "" {
		s += "; Path=" + c.Path
	}
	if c.Domain != "" {
		s += "; Domain=" + c.Domain
	}
	if c.MaxAge != nil {
		s += "; Max-Age=" + strconv.Itoa(*c.MaxAge)
	}
	if c.Secure {
		s += "; Secure"
	}
	if c.HTTPOnly {
		s += "; HttpOnly"
	}
	return s
}

// DeletedCookie builds the Set-Cookie value spec.md §4.6 describes
// for removal: "a remove emits a Set-Cookie with DELETE max-age".
func DeletedCookie(name, domain, path string) *Cookie {
	age := 0
	return &Cookie{Name: name, Value: "DELETE", MaxAge: &age, Domain: domain, Path: path}
}
