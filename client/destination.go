/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package client

import (
	"net"
	"strings"

	"github.com/badu/bayou/pool"
)

// destinationOf builds the pool key spec.md §4.4 describes: "the
// request's fingerprint: (scheme, host, port)". host may already
// carry a ":port" suffix (origin-form targets copy req.Host
// verbatim); defaultPort fills one in when it doesn't.
func destinationOf(scheme, host string) pool.Destination {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		h = host
		port = defaultPort(scheme)
	}
	return pool.Destination{Scheme: strings.ToLower(scheme), Host: strings.ToLower(h), Port: port}
}

func defaultPort(scheme string) string {
	if strings.EqualFold(scheme, "https") {
		return "443"
	}
	return "80"
}

func destinationAddr(d pool.Destination) string {
	return net.JoinHostPort(d.Host, d.Port)
}
