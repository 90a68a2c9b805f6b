/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filter

import "github.com/badu/bayou/cookie"

// Config gathers every knob the filter stages need, matching spec.md
// §6's client config surface (request-header defaults,
// auto-decompress, auto-redirect-max, cookie-storage, auth
// suppliers).
type Config struct {
	KeepAlive      bool
	AutoDecompress bool
	MaxRedirects   int
	CookieStorage  *cookie.Storage
	ServerAuth     CredentialSupplier
	ProxyAuth      CredentialSupplier
}

// Build assembles the full client chain in spec.md §4.5's order:
// "header-defaults-and-connection, redirect, auth (server), auth
// (proxy), cookies, and finally the raw sender." raw is the
// connection-pool-backed Sender that performs the actual wire
// round trip.
func Build(raw Sender, cfg Config) Sender {
	filters := []Filter{
		HeaderDefaults(HeaderDefaultsConfig{KeepAlive: cfg.KeepAlive, AutoDecompress: cfg.AutoDecompress}),
		Redirect(cfg.MaxRedirects),
	}
	if cfg.ServerAuth != nil {
		filters = append(filters, ServerAuth(cfg.ServerAuth))
	}
	if cfg.ProxyAuth != nil {
		filters = append(filters, ProxyAuth(cfg.ProxyAuth))
	}
	if cfg.CookieStorage != nil {
		filters = append(filters, Cookies(cfg.CookieStorage))
	}
	return Chain(raw, filters...)
}
