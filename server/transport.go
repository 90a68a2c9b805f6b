/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/badu/bayou/async"
	"github.com/badu/bayou/wire"
)

// Transport is the per-connection seam the Connection driver reads
// and writes through, standing in for spec.md §6's "Transport surface
// consumed (the engine does not implement these): TCP server ...
// per-connection read/write ... FIN sentinel." netTransport below is
// this engine's concrete implementation of that external collaborator
// over a real net.Conn.
type Transport interface {
	wire.Source
	Write(p []byte) error
	CloseWrite() error
	Close() error
	RemoteAddr() net.Addr
	TLSState() (*tls.ConnectionState, bool)
	SetReadTimeout(d time.Duration)
	SetWriteTimeout(d time.Duration)
}

// netTransport adapts a net.Conn to Transport. Every ReadChunk call
// performs a single blocking conn.Read bounded by a deadline derived
// from SetReadTimeout and returns an already-resolved Future — the
// connection's own goroutine is the "selector thread" spec.md §5
// describes, so there is no cross-goroutine hop to model here, unlike
// wire.Throttle's async.Timeout wrapper (which still applies on top,
// for the minimum-throughput check).
//
// Grounded on badu-http's connReader (conn_reader.go), simplified:
// badu's connReader exists mainly to support CloseNotifier's
// background-read trick, which this engine has no equivalent of since
// cancellation is modeled explicitly through context.Context instead.
type netTransport struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newNetTransport(conn net.Conn) *netTransport {
	return &netTransport{conn: conn}
}

func (t *netTransport) SetReadTimeout(d time.Duration)  { t.readTimeout = d }
func (t *netTransport) SetWriteTimeout(d time.Duration) { t.writeTimeout = d }

func (t *netTransport) ReadChunk(ctx context.Context) *async.Future[[]byte] {
	if t.readTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	} else {
		t.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, 32*1024)
	n, err := t.conn.Read(buf)
	if n > 0 {
		return async.Completed(buf[:n], nil)
	}
	if err == nil {
		err = io.EOF
	}
	return async.Completed[[]byte](nil, err)
}

func (t *netTransport) Write(p []byte) error {
	if t.writeTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	} else {
		t.conn.SetWriteDeadline(time.Time{})
	}
	_, err := t.conn.Write(p)
	return err
}

// CloseWrite half-closes the output side, per spec.md §4.2 item 7:
// "After the last response, half-close output, then wait ... for the
// peer's FIN before hard-closing, to avoid RST truncation." Grounded
// on badu-http's closeWriteAndWait (conn.go) and its closeWriter
// interface assertion against *net.TCPConn.
func (t *netTransport) CloseWrite() error {
	if cw, ok := t.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return t.conn.Close()
}

func (t *netTransport) Close() error { return t.conn.Close() }

func (t *netTransport) RemoteAddr() net.Addr { return t.conn.RemoteAddr() }

func (t *netTransport) TLSState() (*tls.ConnectionState, bool) {
	tlsConn, ok := t.conn.(*tls.Conn)
	if !ok {
		return nil, false
	}
	state := tlsConn.ConnectionState()
	return &state, true
}
