/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filter

import (
	"context"
	"strings"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/cookie"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/url"
)

// Cookies is the innermost filter stage before the raw sender
// (spec.md §4.5's chain order: "... cookies, and finally the raw
// sender"). Before sending, it attaches every cookie in store that
// matches the destination per RFC 6265 §5.1.3/§5.1.4 and the
// request's scheme; after a response arrives, it stores any
// Set-Cookie values the response carried.
func Cookies(store *cookie.Storage) Filter {
	return func(next Sender) Sender {
		return SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
			path := requestPath(req.Target)
			if matched := store.Match(req.Host, path, req.IsHTTPS()); len(matched) > 0 {
				if existing, ok := req.Headers.Get(hdr.CookieHeader); ok && existing != "" {
					req.Headers.Set(hdr.CookieHeader, existing+"; "+joinCookies(matched))
				} else {
					req.Headers.Set(hdr.CookieHeader, joinCookies(matched))
				}
			}

			out, p := async.New[*bayou.Response]()
			next.Send(ctx, req).OnCompletion(func(resp *bayou.Response, err error) {
				if err == nil && resp != nil && len(resp.SetCookies) > 0 {
					store.Store(req.Host, path, resp.SetCookies)
				}
				p.Complete(resp, err)
			})
			return out
		})
	}
}

func joinCookies(cookies []*cookie.Cookie) string {
	parts := make([]string, len(cookies))
	for i, c := range cookies {
		parts[i] = c.Name + "=" + c.Value
	}
	return strings.Join(parts, "; ")
}

// requestPath extracts the path component of a request-target for
// RFC 6265 default-path purposes, tolerating both origin-form
// ("/a/b?q") and absolute-form targets.
func requestPath(target string) string {
	if u, err := url.Parse(target); err == nil && u.Path != "" {
		return u.Path
	}
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return "/"
	}
	return target
}
