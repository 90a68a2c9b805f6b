/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package url

import (
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeHost lower-cases host and, if it carries non-ASCII labels,
// converts it to its A-label (punycode) form so it matches what went
// on the wire in the Host header (data model §3: "host (lower-case
// host[:port])"). Hosts that are already ASCII are only lower-cased;
// idna.ToASCII is a no-op for them beyond that.
func NormalizeHost(host string) (string, error) {
	h := stripPort(host)
	port := portOnly(host)
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		// Not a candidate for IDNA (e.g. an IP literal) — fall back to
		// a plain lower-case, which is what the wire form already is
		// for the overwhelming majority of requests.
		ascii = strings.ToLower(h)
	}
	if port != "" {
		return ascii + ":" + port, nil
	}
	return ascii, nil
}
