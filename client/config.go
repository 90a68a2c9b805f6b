/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package client implements the client connection driver (spec.md
// §4.3/§4.4): one outbound-pump-and-reader pair per TCP connection,
// a destination-keyed idle pool, and the Client type that wires the
// pool, the filter pipeline (package filter), and the wire codec
// together behind a single Fetch call.
//
// Grounded on badu-http/src/http/transport.go and tport/persist_conn.go
// (connectMethod/persistConn's dial-then-reuse shape, the CONNECT-
// through-proxy handshake in dialConn), restructured from net/http's
// implicit goroutine-per-request-plus-channel-handoff model into the
// explicit worker-affinity model described in client.go's doc comment,
// which stands in for spec.md §5's "fixed set of selector threads"
// without inventing a second scheduler on top of Go's own.
package client

import (
	"runtime"
	"time"

	"github.com/badu/bayou/cookie"
	"github.com/badu/bayou/filter"
	"github.com/badu/bayou/wire"
)

// Config gathers the client configuration surface of spec.md §6.
type Config struct {
	// ProxyURL, in "host:port" form, routes every request through an
	// HTTP proxy: plain HTTP requests are sent in absolute-form to the
	// proxy directly; HTTPS requests are tunnelled with CONNECT first.
	ProxyURL string
	// Tunnels lists destination hosts that must always be reached
	// through ProxyURL's CONNECT tunnel even when their scheme is
	// plain HTTP, per spec.md §6: "tunnels ([])".
	Tunnels []string

	RequestHeaderDefaults map[string]string
	AutoDecompress        bool
	AutoRedirectMax       int
	CookieStorage         *cookie.Storage
	ServerAuth            filter.CredentialSupplier
	ProxyAuth             filter.CredentialSupplier

	KeepAliveTimeout     time.Duration
	Await100Timeout      time.Duration
	ResponseHeadFieldMax int
	ResponseHeadTotalMax int
	ReadTimeout          time.Duration
	ReadMinThroughput    int64
	WriteTimeout         time.Duration

	// Workers is the number of selector-thread-equivalent goroutines
	// spec.md §5 describes ("a fixed set of selector threads, default:
	// one per processor"). Each live connection is permanently owned
	// by exactly one; see client.go.
	Workers int
}

// DefaultConfig returns a Config with every spec.md §6 default
// applied.
func DefaultConfig() Config {
	c := Config{AutoDecompress: true}
	c.FillDefaults()
	return c
}

// FillDefaults replaces every zero-valued field with its spec.md §6
// default, the same idiom server.Config.FillDefaults uses. The one
// exception is AutoDecompress: its zero value cannot be told apart
// from an explicit "off", so it is left as given; DefaultConfig is
// what turns it on.
func (c *Config) FillDefaults() {
	if c.RequestHeaderDefaults == nil {
		c.RequestHeaderDefaults = map[string]string{
			"Accept-Encoding": "gzip",
			"User-Agent":      filter.DefaultUserAgent,
		}
	}
	if c.AutoRedirectMax == 0 {
		c.AutoRedirectMax = filter.DefaultMaxRedirects
	}
	if c.CookieStorage == nil {
		c.CookieStorage = cookie.NewStorage(0)
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 15 * time.Second
	}
	if c.Await100Timeout == 0 {
		c.Await100Timeout = 1 * time.Second
	}
	if c.ResponseHeadFieldMax == 0 {
		c.ResponseHeadFieldMax = wire.DefaultLimits.FieldMax
	}
	if c.ResponseHeadTotalMax == 0 {
		c.ResponseHeadTotalMax = wire.DefaultLimits.TotalMax
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = wire.DefaultReadTimeout
	}
	if c.ReadMinThroughput == 0 {
		c.ReadMinThroughput = wire.DefaultMinThroughput
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15 * time.Second
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c *Config) limits() wire.Limits {
	return wire.Limits{FieldMax: c.ResponseHeadFieldMax, TotalMax: c.ResponseHeadTotalMax}
}
