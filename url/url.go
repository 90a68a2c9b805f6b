/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package url

import (
	"errors"
	"strings"
)

func split(s, sep string, cutc bool) (string, string) {
	i := strings.Index(s, sep)
	if i < 0 {
		return s, ""
	}
	if cutc {
		return s[:i], s[i+len(sep):]
	}
	return s[:i], s[i:]
}

// Parse parses rawurl (absolute or relative) into a URL.
func Parse(rawurl string) (*URL, error) {
	u, frag := split(rawurl, "#", true)
	parsed, err := parse(u, false)
	if err != nil {
		return nil, &Error{"parse", u, err}
	}
	if frag == "" {
		return parsed, nil
	}
	unescaped, err := unescape(frag, encodeFragment)
	if err != nil {
		return nil, &Error{"parse", rawurl, err}
	}
	parsed.Fragment = unescaped
	return parsed, nil
}

// ParseRequestURI parses rawurl, assuming it came from the
// request-target of an HTTP request line: either absolute-form or
// origin-form, never a bare relative path without a leading '/'.
func ParseRequestURI(rawurl string) (*URL, error) {
	u, err := parse(rawurl, true)
	if err != nil {
		return nil, &Error{"parse", rawurl, err}
	}
	return u, nil
}

func parse(rawurl string, viaRequest bool) (*URL, error) {
	if rawurl == "" && viaRequest {
		return nil, errors.New("empty url")
	}
	u := new(URL)
	if rawurl == "*" {
		u.Path = "*"
		return u, nil
	}

	rest := rawurl
	if scheme, r, ok := getScheme(rest); ok {
		u.Scheme = strings.ToLower(scheme)
		rest = r
	}

	if !strings.HasPrefix(rest, "//") {
		if u.Scheme != "" && viaRequest {
			// absolute-form without authority is invalid for a request-target.
			return nil, errors.New("missing authority in absolute-form request-target")
		}
		return finishPath(u, rest)
	}
	rest = rest[2:]

	authority, r := split(rest, "/", false)
	if q := strings.IndexByte(authority, '?'); q >= 0 {
		authority, r = authority[:q], authority[q:]
	}
	rest = r

	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		userinfo := authority[:at]
		authority = authority[at+1:]
		if colon := strings.IndexByte(userinfo, ':'); colon >= 0 {
			pass, err1 := unescape(userinfo[colon+1:], encodeHost)
			user, err2 := unescape(userinfo[:colon], encodeHost)
			if err1 != nil {
				return nil, err1
			}
			if err2 != nil {
				return nil, err2
			}
			u.User = UserPassword(user, pass)
		} else {
			user, err := unescape(userinfo, encodeHost)
			if err != nil {
				return nil, err
			}
			u.User = User(user)
		}
	}
	if err := validOptionalPort(authority); err != nil {
		return nil, err
	}
	u.Host = authority

	return finishPath(u, rest)
}

func finishPath(u *URL, rest string) (*URL, error) {
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		u.ForceQuery = true
		u.RawQuery = rest[q+1:]
		rest = rest[:q]
	}
	if err := u.setPath(rest); err != nil {
		return nil, err
	}
	if u.RawQuery == "" {
		u.ForceQuery = false
	}
	return u, nil
}

func getScheme(rawurl string) (scheme, rest string, ok bool) {
	for i := 0; i < len(rawurl); i++ {
		c := rawurl[i]
		switch {
		case 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' || c == '+' || c == '-' || c == '.':
			if i == 0 {
				return "", rawurl, false
			}
		case c == ':':
			if i == 0 {
				return "", rawurl, false
			}
			return rawurl[:i], rawurl[i+1:], true
		default:
			return "", rawurl, false
		}
	}
	return "", rawurl, false
}

func validOptionalPort(authority string) error {
	host := authority
	if i := strings.LastIndexByte(host, ']'); i >= 0 {
		host = host[i:]
	}
	colon := strings.LastIndexByte(host, ':')
	if colon < 0 {
		return nil
	}
	port := host[colon+1:]
	for _, b := range []byte(port) {
		if b < '0' || b > '9' {
			return errors.New("invalid port " + port + " after host")
		}
	}
	return nil
}

func (u *URL) setPath(p string) error {
	path, err := unescape(p, encodePath)
	if err != nil {
		return err
	}
	u.Path = path
	if escp := escape(path, encodePath); p == escp {
		u.RawPath = ""
	} else {
		u.RawPath = p
	}
	return nil
}

// EscapedPath returns the escaped form of u.Path.
func (u *URL) EscapedPath() string {
	if u.RawPath != "" {
		if p, err := unescape(u.RawPath, encodePath); err == nil && p == u.Path {
			return u.RawPath
		}
	}
	if u.Path == "*" {
		return "*"
	}
	return escape(u.Path, encodePath)
}

// String reassembles the URL into a valid URL string.
func (u *URL) String() string {
	var buf strings.Builder
	if u.Scheme != "" {
		buf.WriteString(u.Scheme)
		buf.WriteByte(':')
	}
	if u.Opaque != "" {
		buf.WriteString(u.Opaque)
	} else {
		if u.Scheme != "" || u.Host != "" || u.User != nil {
			buf.WriteString("//")
			if ui := u.User; ui != nil {
				buf.WriteString(ui.String())
				buf.WriteByte('@')
			}
			if h := u.Host; h != "" {
				buf.WriteString(escape(h, encodeHost))
			}
		}
		path := u.EscapedPath()
		if path != "" && path[0] != '/' && u.Host != "" {
			buf.WriteByte('/')
		}
		buf.WriteString(path)
	}
	if u.ForceQuery || u.RawQuery != "" {
		buf.WriteByte('?')
		buf.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		buf.WriteByte('#')
		buf.WriteString(escape(u.Fragment, encodeFragment))
	}
	return buf.String()
}

// IsAbs reports whether u has a non-empty scheme.
func (u *URL) IsAbs() bool { return u.Scheme != "" }

// RequestURI returns the encoded path?query that belongs on an
// HTTP request line, i.e. the origin-form of u.
func (u *URL) RequestURI() string {
	result := u.Opaque
	if result == "" {
		result = u.EscapedPath()
		if result == "" {
			result = "/"
		}
	} else if strings.HasPrefix(result, "//") {
		result = u.Scheme + ":" + result
	}
	if u.ForceQuery || u.RawQuery != "" {
		result += "?" + u.RawQuery
	}
	return result
}

// Hostname returns u.Host without any port number.
func (u *URL) Hostname() string { return stripPort(u.Host) }

// Port returns the port part of u.Host, or "" if none.
func (u *URL) Port() string { return portOnly(u.Host) }

func stripPort(hostport string) string {
	colon := strings.LastIndexByte(hostport, ':')
	if colon == -1 {
		return hostport
	}
	if i := strings.IndexByte(hostport, ']'); i != -1 {
		return strings.TrimPrefix(hostport[:i], "[")
	}
	return hostport[:colon]
}

func portOnly(hostport string) string {
	colon := strings.LastIndexByte(hostport, ':')
	if colon == -1 {
		return ""
	}
	if i := strings.IndexByte(hostport, ']'); i != -1 && i > colon {
		return ""
	}
	return hostport[colon+1:]
}

// Query parses u.RawQuery, silently discarding malformed pairs.
func (u *URL) Query() Values {
	v, _ := ParseQuery(u.RawQuery)
	return v
}

// ParseQuery parses a URL-encoded query string into Values.
func ParseQuery(query string) (Values, error) {
	m := Values{}
	var firstErr error
	for query != "" {
		var key string
		key, query, _ = strings.Cut(query, "&")
		if strings.Contains(key, ";") {
			if firstErr == nil {
				firstErr = errors.New("invalid semicolon separator in query")
			}
			continue
		}
		if key == "" {
			continue
		}
		key, value, _ := strings.Cut(key, "=")
		key, err1 := QueryUnescape(key)
		if err1 != nil {
			if firstErr == nil {
				firstErr = err1
			}
			continue
		}
		value, err2 := QueryUnescape(value)
		if err2 != nil {
			if firstErr == nil {
				firstErr = err2
			}
			continue
		}
		m[key] = append(m[key], value)
	}
	return m, firstErr
}

// Encode encodes v into URL-encoded "key=value" pairs, sorted by key.
func (v Values) Encode() string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sortStrings(keys)
	var buf strings.Builder
	for _, k := range keys {
		ek := QueryEscape(k)
		for _, val := range v[k] {
			if buf.Len() > 0 {
				buf.WriteByte('&')
			}
			buf.WriteString(ek)
			buf.WriteByte('=')
			buf.WriteString(QueryEscape(val))
		}
	}
	return buf.String()
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
