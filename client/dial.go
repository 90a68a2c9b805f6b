/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"strings"

	"github.com/badu/bayou/pool"
	"github.com/badu/bayou/wire"
)

// dial opens a net.Conn for dest, per spec.md §4.4's "if no idle
// connection exists, a new one is created through the transport
// layer." Three shapes, grounded on badu-http's transport.go
// dialConn: a direct connection, a connection to cfg.ProxyURL used
// in absolute-form for plain HTTP, and a CONNECT-tunnelled
// connection (optionally then wrapped in TLS) for HTTPS or any
// destination listed in cfg.Tunnels.
func (c *Client) dial(dest pool.Destination) (net.Conn, error) {
	needsTunnel := dest.Scheme == "https" || c.usesTunnel(dest.Host)

	if c.cfg.ProxyURL == "" {
		conn, err := net.Dial("tcp", destinationAddr(dest))
		if err != nil {
			return nil, err
		}
		if dest.Scheme == "https" {
			conn, err = tlsWrap(conn, dest.Host)
			if err != nil {
				return nil, err
			}
		}
		return conn, nil
	}

	proxyConn, err := net.Dial("tcp", c.cfg.ProxyURL)
	if err != nil {
		return nil, err
	}
	if !needsTunnel {
		// spec.md §4.4: plain HTTP through a proxy is sent in
		// absolute-form on the proxy connection directly, no CONNECT
		// handshake involved; Client.targetFor decides the wire form.
		return proxyConn, nil
	}
	if err := connectTunnel(proxyConn, destinationAddr(dest)); err != nil {
		proxyConn.Close()
		return nil, err
	}
	if dest.Scheme == "https" {
		tlsConn, err := tlsWrap(proxyConn, dest.Host)
		if err != nil {
			proxyConn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return proxyConn, nil
}

func (c *Client) usesTunnel(host string) bool {
	for _, t := range c.cfg.Tunnels {
		if strings.EqualFold(t, host) {
			return true
		}
	}
	return false
}

func tlsWrap(conn net.Conn, host string) (net.Conn, error) {
	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// connectTunnel performs the CONNECT handshake of spec.md §4.7 from
// the client side: write a CONNECT request for target, then parse
// the proxy's response head and fail unless it is 2xx. Grounded on
// badu-http's transport.go dialConn HTTPS-via-proxy branch, rewritten
// against this engine's own wire.ResponseParser instead of
// bufio.NewReader+ReadResponse.
func connectTunnel(conn net.Conn, target string) error {
	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n\r\n", target, target)
	if _, err := conn.Write([]byte(req)); err != nil {
		return err
	}

	parser := wire.NewResponseParser(wire.DefaultLimits)
	var carry []byte
	for {
		status, head, _, err := parser.Feed(carry)
		carry = nil
		if err != nil {
			return err
		}
		if status == wire.Done {
			if head.Status/100 != 2 {
				return fmt.Errorf("client: proxy CONNECT to %s failed: %d %s", target, head.Status, head.Reason)
			}
			return nil
		}
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if n == 0 && err != nil {
			return err
		}
		carry = buf[:n]
	}
}
