/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package wire implements the HTTP/1.x wire codec (spec.md §4.1):
// incremental request- and response-head parsers that operate on
// fragmented byte streams, a head encoder, and the three body framing
// strategies (fixed length, chunked transfer, FIN-terminated).
//
// Grounded on badu-http's utils_chunks.go (chunk-line lexing,
// parseHexUint), chunk_writer.go (chunked encoder shape), and
// utils_transfer.go (the fixed/chunked/until-EOF framing decision
// table), restructured from blocking bufio.Reader calls into explicit
// incremental state machines: every parser exposes a Feed method that
// accepts whatever bytes the transport currently has available and
// returns NeedMore, Done, or Failed rather than blocking for the rest
// of the head (design note 9: "port as an explicit tagged return from
// each inner helper").
package wire

// Status is the tagged result of feeding more bytes to an incremental
// parser.
type Status int

const (
	// NeedMore means the parser consumed what it could and is waiting
	// for additional bytes from the transport.
	NeedMore Status = iota
	// Done means parsing finished; the parser's result field holds
	// the parsed value and any leftover unconsumed bytes are returned
	// alongside.
	Done
	// Failed means the input violates the wire format; the caller
	// should treat this as a Protocol-kind error.
	Failed
)

// Limits bounds a single head per spec.md §3: "each header field ≤
// head-field-max (default 8 KiB), total head ≤ head-total-max
// (default 32 KiB)".
type Limits struct {
	FieldMax int
	TotalMax int
}

// DefaultLimits matches spec.md §3's stated defaults.
var DefaultLimits = Limits{
	FieldMax: 8 * 1024,
	TotalMax: 32 * 1024,
}

const maxLineLength = 4096

// CrLf is the line terminator badu-http's writers compare against
// directly rather than allocating a string each time.
var CrLf = []byte("\r\n")
