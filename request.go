/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bayou

import (
	"crypto/x509"

	"github.com/badu/bayou/cookie"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/url"
)

// Request is the immutable view spec.md §3 describes: "method,
// request-target ..., HTTP minor version, host, scheme, client IP,
// TLS peer certificates, headers, cookies, and optional entity."
// Mutable builders exist at the boundary (see RequestBuilder); the
// core consumes these snapshots.
type Request struct {
	Method    string
	Target    string
	Form      url.TargetForm
	Minor     int
	Host      string
	Scheme    string
	ClientIP  string
	PeerCerts []*x509.Certificate
	Headers   *hdr.Ordered
	Entity    *entity.Entity

	cookies map[string]string
}

// NewRequest builds an immutable Request snapshot. headers must
// already be fully populated; the cookie map is derived once from its
// Cookie header at construction time, per spec.md §3: "cookies
// (derived from Cookie)".
func NewRequest(method, target string, form url.TargetForm, minor int, host, scheme, clientIP string, peerCerts []*x509.Certificate, headers *hdr.Ordered, e *entity.Entity) *Request {
	cookieHeader, _ := headers.Get(hdr.CookieHeader)
	return &Request{
		Method: method, Target: target, Form: form, Minor: minor,
		Host: host, Scheme: scheme, ClientIP: clientIP,
		PeerCerts: peerCerts, Headers: headers, Entity: e,
		cookies: cookie.ParseCookieHeader(cookieHeader),
	}
}

// Cookie returns the named cookie's value from the request's Cookie
// header.
func (r *Request) Cookie(name string) (string, bool) {
	v, ok := r.cookies[name]
	return v, ok
}

// IsHTTPS reports whether the request arrived over TLS.
func (r *Request) IsHTTPS() bool { return r.Scheme == "https" }

// HasBody reports whether the request declares an entity at all.
func (r *Request) HasBody() bool { return r.Entity != nil }
