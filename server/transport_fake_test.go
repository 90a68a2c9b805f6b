/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"sync"
	"time"

	"github.com/badu/bayou/async"
)

// fakeTransport is an in-memory Transport for driving connection.serve
// without a real socket: in holds the chunks ReadChunk hands out in
// order, out accumulates everything Write sent.
type fakeTransport struct {
	mu   sync.Mutex
	in   [][]byte
	out  bytes.Buffer

	closed           bool
	writeCloseCalled bool
}

func newFakeTransport(chunks ...string) *fakeTransport {
	ft := &fakeTransport{}
	for _, c := range chunks {
		ft.in = append(ft.in, []byte(c))
	}
	return ft
}

func (f *fakeTransport) ReadChunk(ctx context.Context) *async.Future[[]byte] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.in) == 0 {
		return async.Completed[[]byte](nil, io.EOF)
	}
	chunk := f.in[0]
	f.in = f.in[1:]
	return async.Completed(chunk, nil)
}

func (f *fakeTransport) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out.Write(p)
	return nil
}

func (f *fakeTransport) CloseWrite() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeCloseCalled = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 55001}
}

func (f *fakeTransport) TLSState() (*tls.ConnectionState, bool) { return nil, false }
func (f *fakeTransport) SetReadTimeout(d time.Duration)         {}
func (f *fakeTransport) SetWriteTimeout(d time.Duration)        {}

func (f *fakeTransport) output() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) didCloseWrite() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCloseCalled
}

var _ Transport = (*fakeTransport)(nil)
