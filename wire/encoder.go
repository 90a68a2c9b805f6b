/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"bytes"
	"strconv"
	"time"

	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
)

// Framing describes how a body will be put on the wire, decided by
// EncodeRequestHead/EncodeResponseHead from the Entity's declared length.
type Framing int

const (
	FramingNone Framing = iota
	FramingFixed
	FramingChunked
)

// Server name default, prefixed to any user-supplied value — mirrors
// badu-http's ServerSoftware header policy.
const DefaultServerName = "Bayou"

// EncodeRequestHead writes a request-line and headers, CRLF
// terminated with a final blank line, per spec.md §4.1 ("Head
// encoder"). It decides body framing from entity's declared length
// and returns it so the caller's body writer can match it.
func EncodeRequestHead(buf *bytes.Buffer, method, target string, minor int, headers *hdr.Ordered, e *entity.Entity) Framing {
	buf.WriteString(method)
	buf.WriteByte(' ')
	buf.WriteString(target)
	buf.WriteString(" HTTP/1.")
	buf.WriteByte(byte('0' + minor))
	buf.WriteString("\r\n")
	framing := writeEntityHeaders(headers, e, minor)
	writeOrderedHeaders(buf, headers)
	buf.WriteString("\r\n")
	return framing
}

// EncodeResponseHead mirrors EncodeRequestHead for the status line,
// additionally injecting Date (if absent) and Server, per spec.md
// §4.1: "Server side also injects Date (if absent) and Server
// (default Bayou, prefixed to any user-provided value)."
func EncodeResponseHead(buf *bytes.Buffer, status int, reason string, minor int, headers *hdr.Ordered, e *entity.Entity, now time.Time) Framing {
	buf.WriteString("HTTP/1.")
	buf.WriteByte(byte('0' + minor))
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(status))
	buf.WriteByte(' ')
	buf.WriteString(reason)
	buf.WriteString("\r\n")

	if _, ok := headers.Get(hdr.Date); !ok {
		headers.Set(hdr.Date, now.UTC().Format(http11TimeFormat))
	}
	if existing, ok := headers.Get(hdr.ServerHeader); ok {
		headers.Set(hdr.ServerHeader, DefaultServerName+" "+existing)
	} else {
		headers.Set(hdr.ServerHeader, DefaultServerName)
	}

	framing := writeEntityHeaders(headers, e, minor)
	writeOrderedHeaders(buf, headers)
	buf.WriteString("\r\n")
	return framing
}

const http11TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// writeEntityHeaders inserts Content-Length or Transfer-Encoding:
// chunked based on whether the entity reports a known length, per
// spec.md §4.1's head encoder contract, plus Content-Type/Encoding
// when the entity declares them.
func writeEntityHeaders(headers *hdr.Ordered, e *entity.Entity, minor int) Framing {
	if e == nil {
		return FramingNone
	}
	if e.ContentType != "" {
		if _, ok := headers.Get(hdr.ContentType); !ok {
			headers.Set(hdr.ContentType, e.ContentType)
		}
	}
	if e.ContentEncoding != "" {
		if _, ok := headers.Get(hdr.ContentEncoding); !ok {
			headers.Set(hdr.ContentEncoding, e.ContentEncoding)
		}
	}
	if n, ok := e.KnownLength(); ok {
		headers.Set(hdr.ContentLength, strconv.FormatInt(n, 10))
		return FramingFixed
	}
	if minor == 0 {
		// spec.md §9: chunked transfer coding does not exist on
		// HTTP/1.0. An unknown-length body on a 1.0 message is
		// written without any framing header at all; the caller must
		// force the connection closed so the peer can still find the
		// body's end.
		return FramingFixed
	}
	headers.Set(hdr.TransferEncoding, "chunked")
	return FramingChunked
}

// writeOrderedHeaders re-validates every name/value pair before
// putting it on the wire, per spec.md §4.1's head encoder contract
// ("copies and re-validates all header name/value bytes"). A
// handler-set header that fails validation (a stray CR/LF in a
// value, a non-token name) is dropped rather than emitted, so a
// handler can never smuggle extra header lines or status lines onto
// the wire through an unchecked value.
func writeOrderedHeaders(buf *bytes.Buffer, headers *hdr.Ordered) {
	headers.Range(func(name, value string) {
		if !hdr.ValidHeaderFieldName(name) || !hdr.ValidHeaderFieldValue(value) {
			return
		}
		buf.WriteString(name)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	})
}
