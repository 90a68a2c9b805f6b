/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookie

import (
	"strconv"
	"strings"
)

// ParseCookieHeader splits an incoming "Cookie: a=1; b=2" value into
// a name → value map. The map keeps no order; when a name repeats,
// the last occurrence wins.
func ParseCookieHeader(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, '='); i > 0 {
			out[part[:i]] = part[i+1:]
		}
	}
	return out
}

// ParseSetCookie parses one Set-Cookie header value per RFC 6265
// §4.1.1. defaultDomain/defaultPath are used when the attributes omit
// Domain/Path, per spec.md §4.5: "invalid domains are normalized to
// host-only; Path defaults to the request's default-path."
func ParseSetCookie(raw, defaultDomain, defaultPath string) (*Cookie, bool) {
	parts := strings.Split(raw, ";")
	if len(parts) == 0 {
		return nil, false
	}
	nv := strings.TrimSpace(parts[0])
	eq := strings.IndexByte(nv, '=')
	if eq <= 0 {
		return nil, false
	}
	c := &Cookie{
		Name:   nv[:eq],
		Value:  nv[eq+1:],
		Domain: defaultDomain,
		Path:   defaultPath,
	}
	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		key := attr
		val := ""
		if i := strings.IndexByte(attr, '='); i >= 0 {
			key, val = attr[:i], attr[i+1:]
		}
		switch strings.ToLower(key) {
		case "domain":
			if val != "" {
				c.Domain = strings.TrimPrefix(strings.ToLower(val), ".")
			}
		case "path":
			if val != "" {
				c.Path = val
			}
		case "max-age":
			if n, err := strconv.Atoi(val); err == nil {
				c.MaxAge = &n
			}
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		}
	}
	return c, true
}

// DefaultPath computes RFC 6265 §5.1.4's default-path for a request
// whose URI path is uriPath.
func DefaultPath(uriPath string) string {
	if uriPath == "" || uriPath[0] != '/' {
		return "/"
	}
	i := strings.LastIndexByte(uriPath, '/')
	if i == 0 {
		return "/"
	}
	return uriPath[:i]
}
