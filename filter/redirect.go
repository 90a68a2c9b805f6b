/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filter

import (
	"context"
	"io"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/url"
)

// DefaultMaxRedirects matches spec.md §6's client default:
// "auto-redirect-max (10)".
const DefaultMaxRedirects = 10

const drainBeforeRedirectTimeout = 1 * time.Second

// Redirect follows 301/302/303/307/308 responses up to maxHops,
// applying the method-rewrite rules of spec.md §4.5: "GET/HEAD keep
// their method on all redirect codes; 303 converts any method to GET;
// POST converts to GET on 301/302; other methods/codes do not
// redirect." Grounded on badu-http/cli/utils.go's send loop (follow
// Location, strip fragment, cap hop count) generalized from net/http
// client's channel-based CheckRedirect hook into an ordinary filter
// wrapping Sender.
func Redirect(maxHops int) Filter {
	if maxHops <= 0 {
		maxHops = DefaultMaxRedirects
	}
	return func(next Sender) Sender {
		return SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
			out, p := async.New[*bayou.Response]()
			followRedirects(ctx, next, req, maxHops, p)
			return out
		})
	}
}

func followRedirects(ctx context.Context, next Sender, req *bayou.Request, hopsLeft int, p *async.Promise[*bayou.Response]) {
	next.Send(ctx, req).OnCompletion(func(resp *bayou.Response, err error) {
		if err != nil {
			p.Complete(nil, err)
			return
		}
		if !bayou.IsRedirect(resp.Status) || hopsLeft == 0 {
			p.Complete(resp, nil)
			return
		}
		location, ok := resp.Headers.Get(hdr.Location)
		if !ok {
			p.Complete(resp, nil)
			return
		}
		nextMethod, ok := rewriteMethod(req.Method, resp.Status)
		if !ok {
			p.Complete(resp, nil)
			return
		}
		target, err := url.Parse(location)
		if err != nil {
			p.Complete(resp, nil)
			return
		}
		target.Fragment = "" // spec.md §4.5: "Fragment is stripped from Location"

		drainWithDeadline(resp.Entity, func() {
			nextReq := *req
			nextReq.Method = nextMethod
			nextReq.Target = target.RequestURI()
			if target.Host != "" {
				nextReq.Host = target.Host
			}
			if target.Scheme != "" {
				nextReq.Scheme = target.Scheme
			}
			if nextMethod != req.Method {
				nextReq.Entity = nil
			}
			followRedirects(ctx, next, &nextReq, hopsLeft-1, p)
		})
	})
}

// rewriteMethod applies spec.md §4.5's table. ok is false when the
// combination means "do not redirect".
func rewriteMethod(method string, status int) (string, bool) {
	if method == bayou.GET || method == bayou.HEAD {
		return method, true
	}
	switch status {
	case bayou.StatusSeeOther:
		return bayou.GET, true
	case bayou.StatusMovedPermanently, bayou.StatusFound:
		if method == bayou.POST {
			return bayou.GET, true
		}
		return "", false
	default:
		return "", false
	}
}

// drainWithDeadline reads and discards e's body, bounded by
// drainBeforeRedirectTimeout (spec.md §4.5: "On each hop the current
// response body is drained (bounded by 1 s) before the next
// request"), then invokes next regardless of whether the drain
// finished or timed out.
func drainWithDeadline(e *entity.Entity, next func()) {
	if e == nil {
		next()
		return
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		body, err := e.Open()
		if err != nil {
			return
		}
		defer body.Close()
		r := entity.AsReader(body)
		io.Copy(io.Discard, r)
	}()
	select {
	case <-done:
	case <-time.After(drainBeforeRedirectTimeout):
	}
	next()
}
