/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
)

// Handler answers one request with a Response future, per spec.md
// §4.2 item 3: "invoke the handler". A handler that panics or whose
// future resolves with an error is converted by the driver to a 500
// with a logged, random (UUID) error id (§4.2 item 3, §7 "handler" kind).
//
// Grounded on badu-http's Handler interface (types_server.go:
// "ServeHTTP(ResponseWriter, *Request)"), adapted from the
// write-to-a-mutable-ResponseWriter style to the engine's
// future-returning style since handlers here run cooperatively rather
// than blocking their own goroutine.
type Handler interface {
	Serve(ctx *bayou.Context) *async.Future[*bayou.Response]
}

// HandlerFunc adapts a plain function to a Handler, mirroring
// badu-http's HandlerFunc.
type HandlerFunc func(ctx *bayou.Context) *async.Future[*bayou.Response]

func (f HandlerFunc) Serve(ctx *bayou.Context) *async.Future[*bayou.Response] {
	return f(ctx)
}

// Upgrader handles a request whose Upgrade header names a protocol it
// registers for, per spec.md §4.2 item 3: "invoke its try-upgrade; a
// returned null-response transfers ownership of the connection to the
// upgrader and terminates the driver; a non-null response is written
// normally."
type Upgrader interface {
	// Protocol is the Upgrade header token this upgrader handles
	// (case-insensitively), e.g. "websocket".
	Protocol() string

	// TryUpgrade inspects the request and either takes ownership of
	// conn (returning nil, true) or declines (returning a Response to
	// write normally, false).
	TryUpgrade(ctx *bayou.Context, conn Hijacker) (resp *bayou.Response, hijacked bool)
}

// Hijacker lets an Upgrader take over the raw connection once it
// accepts an upgrade, mirroring badu-http's Hijacker interface
// (types_server.go) but returning the engine's own transport seam
// (wire.Source plus a raw write func) instead of a *bufio.ReadWriter,
// since this driver never blocks on a *bufio.Reader in the first
// place.
type Hijacker interface {
	Hijack() (Transport, error)
}

// UpgraderRegistry maps an Upgrade-header token to its Upgrader.
type UpgraderRegistry struct {
	byProtocol map[string]Upgrader
}

// NewUpgraderRegistry returns an empty registry.
func NewUpgraderRegistry() *UpgraderRegistry {
	return &UpgraderRegistry{byProtocol: make(map[string]Upgrader)}
}

// Register adds u under its own Protocol() token.
func (r *UpgraderRegistry) Register(u Upgrader) {
	r.byProtocol[normalizeToken(u.Protocol())] = u
}

// Lookup returns the Upgrader registered for token, if any.
func (r *UpgraderRegistry) Lookup(token string) (Upgrader, bool) {
	u, ok := r.byProtocol[normalizeToken(token)]
	return u, ok
}

func normalizeToken(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
