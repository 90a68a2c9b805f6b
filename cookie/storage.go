/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package cookie

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/net/publicsuffix"
)

// Storage is the client-side shared cookie store of spec.md §4.5
// ("Cookies") and §5 ("The cookie storage is the only genuinely
// shared mutable structure; its map is sharded by cookie-set-per-
// domain with fine-grained synchronization"). Each registrable
// domain gets its own mutex-guarded bucket, and the set of tracked
// domains is itself bounded by an LRU so a client that talks to an
// unbounded number of hosts doesn't grow this map forever.
type Storage struct {
	buckets *lru.Cache[string, *bucket]
}

type bucket struct {
	mu      sync.Mutex
	cookies map[string]*Cookie // identity -> cookie
}

// DefaultStorageCapacity bounds the number of distinct registrable
// domains tracked at once.
const DefaultStorageCapacity = 4096

// NewStorage returns an empty Storage. capacity <= 0 uses
// DefaultStorageCapacity.
func NewStorage(capacity int) *Storage {
	if capacity <= 0 {
		capacity = DefaultStorageCapacity
	}
	c, _ := lru.New[string, *bucket](capacity)
	return &Storage{buckets: c}
}

// registrableDomain applies the public-suffix cut-off spec.md's
// design note 9 calls for ("Treat as a pluggable static data set; the
// core consumes an is-public-suffix(domain) → bool oracle"), here
// supplied by golang.org/x/net/publicsuffix rather than a hand-rolled
// oracle, since the pack's retrieval already surfaces that package as
// the ecosystem-standard source for it.
func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func (s *Storage) bucketFor(host string) *bucket {
	key := registrableDomain(host)
	if b, ok := s.buckets.Get(key); ok {
		return b
	}
	b := &bucket{cookies: make(map[string]*Cookie)}
	s.buckets.Add(key, b)
	return b
}

// Store records the cookies from a response's Set-Cookie values for
// requestPath (used as Path default) against host.
func (s *Storage) Store(host, requestPath string, setCookieValues []string) {
	b := s.bucketFor(host)
	hostOnlyDomain := strings.ToLower(host)
	defaultPath := DefaultPath(requestPath)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, raw := range setCookieValues {
		c, ok := ParseSetCookie(raw, hostOnlyDomain, defaultPath)
		if !ok {
			continue
		}
		if !domainMatches(c.Domain, hostOnlyDomain) {
			// Per spec.md §4.5: "invalid domains are normalized to
			// host-only".
			c.Domain = hostOnlyDomain
		}
		if c.Deleted() {
			delete(b.cookies, c.Identity())
			continue
		}
		b.cookies[c.Identity()] = c
	}
}

// Match returns the cookies applicable to a request for (host, path,
// secure), per RFC 6265 §5.1.3 (domain-match) and §5.1.4 (path-match),
// with secure-only gating (spec.md §4.5).
func (s *Storage) Match(host, path string, secure bool) []*Cookie {
	b := s.bucketFor(host)
	host = strings.ToLower(host)

	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Cookie
	for _, c := range b.cookies {
		if !domainMatches(c.Domain, host) {
			continue
		}
		if !pathMatches(c.Path, path) {
			continue
		}
		if c.Secure && !secure {
			continue
		}
		out = append(out, c)
	}
	return out
}

// domainMatches implements RFC 6265 §5.1.3: the cookie's domain
// equals the request host, or is a suffix of it on a label boundary.
func domainMatches(cookieDomain, host string) bool {
	if cookieDomain == host {
		return true
	}
	if !strings.HasSuffix(host, cookieDomain) {
		return false
	}
	rest := host[:len(host)-len(cookieDomain)]
	return strings.HasSuffix(rest, ".")
}

// pathMatches implements RFC 6265 §5.1.4.
func pathMatches(cookiePath, requestPath string) bool {
	if cookiePath == requestPath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	if strings.HasSuffix(cookiePath, "/") {
		return true
	}
	return requestPath[len(cookiePath)] == '/'
}
