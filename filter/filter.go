/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package filter implements the client's composable request/response
// interceptor chain (spec.md §4.5): header-defaults-and-connection,
// redirect, auth (server then proxy), cookies, and finally the raw
// sender. The pipeline is built once at client construction and is
// immutable afterward (spec.md §5).
//
// Grounded on badu-http/cli/utils.go's send/refererForURL (the
// closest the teacher has to a client request pipeline — a single
// function threading redirect-follow and referer bookkeeping through
// repeated transport.RoundTrip calls), generalized into the ordered
// Filter chain spec.md requires plus auth and gzip stages the teacher
// doesn't implement at all (gzip taken from the rest of the retrieval
// pack, see SPEC_FULL.md's DOMAIN STACK; auth follows the RFCs
// directly, see DESIGN.md).
package filter

import (
	"context"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
)

// Sender performs one request/response round trip. The innermost
// Sender in a chain is the raw connection sender (pool + wire codec);
// every Filter wraps a Sender to produce another Sender.
type Sender interface {
	Send(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response]
}

// SenderFunc adapts a function to a Sender.
type SenderFunc func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response]

func (f SenderFunc) Send(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
	return f(ctx, req)
}

// Filter wraps a Sender with request/response transformation.
type Filter func(next Sender) Sender

// Chain composes filters outermost-first around raw, matching
// spec.md §4.5's stated order: "header-defaults-and-connection,
// redirect, auth (server), auth (proxy), cookies, and finally the raw
// sender." filters must be passed in that outermost-to-innermost
// order; Chain wraps from the inside out so the first element of
// filters ends up as the outermost wrapper.
func Chain(raw Sender, filters ...Filter) Sender {
	s := raw
	for i := len(filters) - 1; i >= 0; i-- {
		s = filters[i](s)
	}
	return s
}
