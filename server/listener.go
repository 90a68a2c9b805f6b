/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"net"
	"time"
)

// tcpKeepAliveListener wraps a *net.TCPListener so dead peers (laptop
// closed mid-download) eventually get noticed and reaped, per
// badu-http's tcp_keep_alive_listener.go, carried verbatim since the
// concern — keep-alive probing on accepted sockets — is unrelated to
// anything this module's expansion touches.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

const keepAlivePeriod = 3 * time.Minute

func (l tcpKeepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}
	conn.SetKeepAlive(true)
	conn.SetKeepAlivePeriod(keepAlivePeriod)
	return conn, nil
}

// listen opens a TCP listener on port wrapped with keep-alive probing.
func listen(port int) (net.Listener, error) {
	addr := &net.TCPAddr{Port: port}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return tcpKeepAliveListener{ln}, nil
}
