/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package tunnel implements server.Tunneler: the driver-side half of
// spec.md §4.7's CONNECT handling. A handler that answers a CONNECT
// request with a 2xx status hands the connection off here; Tunneler
// dials the target named by the request and pumps bytes between it
// and the now-hijacked client connection until either side is done.
package tunnel

import (
	"bytes"
	"net"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/server"
	"github.com/badu/bayou/wire"
)

// hopHeaders lists the headers stripped from the approved CONNECT
// response before it is written on the now-tunnelled connection, the
// same set badu-http's reverse proxy strips from a proxied request
// (util/reverse_proxy.go): they describe this hop, not the tunnel
// the client is about to start speaking raw bytes over.
var hopHeaders = []string{
	hdr.Connection,
	"Proxy-Connection",
	"Keep-Alive",
	hdr.ProxyAuthenticate,
	hdr.ProxyAuthorization,
	"Te",
	hdr.Trailer,
	hdr.TransferEncoding,
	hdr.UpgradeHeader,
}

// Tunneler dials CONNECT targets with net.DialTimeout and pumps bytes
// between the dialed connection and whatever client connection the
// server hands it. It is the only concrete implementation of
// server.Tunneler this module ships; a server not configured with one
// leaves CONNECT handling entirely to its handler (the 2xx response is
// written and the connection then behaves as any other, since nothing
// chains it through a tunnel).
type Tunneler struct {
	// DialTimeout bounds connecting to the CONNECT target. Zero means
	// no timeout, matching net.DialTimeout's own zero-value behavior.
	DialTimeout time.Duration

	// Dial overrides how the target is reached, for tests. Nil uses
	// net.DialTimeout against "tcp".
	Dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

func (t *Tunneler) dial(addr string) (net.Conn, error) {
	if t.Dial != nil {
		return t.Dial("tcp", addr, t.DialTimeout)
	}
	return net.DialTimeout("tcp", addr, t.DialTimeout)
}

// Tunnel implements server.Tunneler. ctx.Request.Target is the
// CONNECT authority (host:port, per spec.md §4.1's request-target
// forms). A dial failure rewrites resp into a 502 and declines the
// hijack, leaving the driver to write that response on the still-
// normal connection; a dial success hijacks, writes resp as-is, and
// starts the two-directional pump.
func (t *Tunneler) Tunnel(ctx *bayou.Context, resp *bayou.Response, conn server.Hijacker) bool {
	target, err := t.dial(ctx.Request.Target)
	if err != nil {
		resp.Status = bayou.StatusBadGateway
		resp.Reason = bayou.StatusText(bayou.StatusBadGateway)
		resp.Entity = nil
		resp.ForceClose()
		return false
	}

	transport, err := conn.Hijack()
	if err != nil {
		target.Close()
		return false
	}

	for _, h := range hopHeaders {
		resp.Headers.Del(h)
	}

	var head bytes.Buffer
	wire.EncodeResponseHead(&head, resp.Status, resp.Reason, ctx.Request.Minor, resp.Headers, nil, timeNow())
	if err := transport.Write(head.Bytes()); err != nil {
		transport.Close()
		target.Close()
		return false
	}

	runPumps(ctx, transport, target)
	return true
}

// timeNow is its own function so the response-head timestamp stays
// swappable the same way the rest of the wire package keeps Date
// generation out of line from its callers.
func timeNow() time.Time { return time.Now() }
