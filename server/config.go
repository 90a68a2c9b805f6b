/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package server implements the server connection driver (spec.md
// §4.2): a cooperative per-connection state machine executed on the
// connection's own goroutine, plus the external-facing surface
// (Config, Handler, Upgrader, Mux, listener) that wires it to real
// TCP sockets.
//
// Grounded on badu-http's types_server.go (the flat Server struct of
// exported tunables, kept as SPEC_FULL.md's AMBIENT STACK section
// calls for) and conn.go (the conn/response state fields, generalized
// from an implicit goroutine-blocks-on-bufio.Reader model into the
// explicit req-new/.../closing states spec.md §4.2 names).
package server

import (
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/wire"
)

// Config gathers the server configuration surface of spec.md §6.
// Names mirror the spec's normative list; zero-valued fields are
// replaced with their documented default by FillDefaults.
type Config struct {
	Ports    []int
	TLSPorts []int

	MaxConnections      int
	MaxConnectionsPerIP int
	SelectorIDs         []int

	RequestHeadTimeout    time.Duration
	RequestHeadFieldMax   int
	RequestHeadTotalMax   int
	RequestBodyMax        int64
	ReadTimeout           time.Duration
	ReadMinThroughput     int64
	WriteTimeout          time.Duration
	WriteMinThroughput    int64
	OutboundBufferSize    int
	KeepAliveTimeout      time.Duration
	DrainRequestTimeout   time.Duration
	CloseTimeout          time.Duration
	SupportedMethods      map[string]bool
	XForwardLevel         int
	AutoGzip              bool
	AutoConditional       bool
	AutoRange             bool
	AutoCacheControl      bool
	RequestEncodingPolicy EncodingPolicy

	// Pipeline gates the optional pipelined-response mode of spec.md
	// §4.2 item 8 and design notes' "treat as optional feature" open
	// question. Default false.
	Pipeline bool
}

// EncodingPolicy governs how the driver reacts to a request declaring
// a Transfer-Encoding or Content-Encoding it does not understand.
type EncodingPolicy int

const (
	// EncodingReject matches spec.md §6's default: "request-encoding-
	// policy (reject)".
	EncodingReject EncodingPolicy = iota
	EncodingPassthrough
)

// DefaultConfig returns a Config with every spec.md §6 default
// applied, including the three booleans ("on" by default) that
// FillDefaults cannot safely default from a zero value alone.
func DefaultConfig() Config {
	c := Config{AutoConditional: true, AutoRange: true, AutoCacheControl: true}
	c.FillDefaults()
	return c
}

// FillDefaults replaces every zero-valued field with its spec.md §6
// default, the same "plain struct plus a fillDefaults step" idiom
// badu-http's Server uses (DefaultMaxHeaderBytes, DefaultReadTimeout
// in the net/http lineage) rather than a config-file parser — see
// SPEC_FULL.md AMBIENT STACK, "Configuration".
func (c *Config) FillDefaults() {
	if len(c.Ports) == 0 {
		c.Ports = []int{8080}
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 1<<31 - 1
	}
	if c.MaxConnectionsPerIP == 0 {
		c.MaxConnectionsPerIP = 1<<31 - 1
	}
	if c.RequestHeadTimeout == 0 {
		c.RequestHeadTimeout = 15 * time.Second
	}
	if c.RequestHeadFieldMax == 0 {
		c.RequestHeadFieldMax = wire.DefaultLimits.FieldMax
	}
	if c.RequestHeadTotalMax == 0 {
		c.RequestHeadTotalMax = wire.DefaultLimits.TotalMax
	}
	if c.RequestBodyMax == 0 {
		c.RequestBodyMax = 1 << 30 // 1 GiB
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
	if c.WriteMinThroughput == 0 {
		c.WriteMinThroughput = wire.DefaultMinThroughput
	}
	if c.OutboundBufferSize == 0 {
		c.OutboundBufferSize = wire.DefaultOutboundBufferSize
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 15 * time.Second
	}
	if c.DrainRequestTimeout == 0 {
		c.DrainRequestTimeout = 15 * time.Second
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = 5 * time.Second
	}
	if c.SupportedMethods == nil {
		c.SupportedMethods = bayou.DefaultSupportedMethods
	}
	// AutoConditional, AutoRange, AutoCacheControl default on; DefaultConfig
	// encodes that by starting from a Config literal with these true
	// rather than flipping a zero-value bool here (a zero bool is
	// indistinguishable from an explicit false).
}

func (c *Config) limits() wire.Limits {
	return wire.Limits{FieldMax: c.RequestHeadFieldMax, TotalMax: c.RequestHeadTotalMax}
}
