/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"bytes"

	"github.com/badu/bayou/hdr"
)

// cutLine extracts the next CRLF- or LF-terminated line from buf,
// trimming the terminator and any trailing ASCII whitespace, and
// returns the remainder. ok is false when buf holds no complete line
// yet, in which case the caller should keep buf as carry and wait for
// more bytes — this is the incremental-parsing equivalent of
// badu-http's readChunkLine, which instead blocked on
// bufio.Reader.ReadSlice('\n').
func cutLine(buf []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(buf, '\n')
	if i < 0 {
		return nil, buf, false
	}
	line = buf[:i]
	rest = buf[i+1:]
	line = trimTrailingWhitespace(line)
	return line, rest, true
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func trimTrailingWhitespace(b []byte) []byte {
	for len(b) > 0 && isASCIISpace(b[len(b)-1]) {
		b = b[:len(b)-1]
	}
	return b
}

func trimLeadingSpace(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	return b
}

// isContinuationLine reports whether line is an obsolete-folded
// continuation of the previous header's value: RFC 7230 §3.2.4 calls
// generating this obsolete line folding forbidden, but a decoder
// still has to accept it from older intermediaries. Callers check
// this before calling splitHeaderLine, which rejects such a line
// outright since it isn't a "Name: value" pair on its own.
func isContinuationLine(line []byte) bool {
	return len(line) > 0 && (line[0] == ' ' || line[0] == '\t')
}

// foldedValue collapses a continuation line's leading LWS to a single
// SP and validates what remains, per spec.md §4.1's "folding
// continuations (LWS at line start) collapsed to one SP".
func foldedValue(line []byte) (string, bool) {
	v := trimLeadingSpace(line)
	v = trimTrailingWhitespace(v)
	if !hdr.ValidHeaderFieldValue(string(v)) {
		return "", false
	}
	return string(v), true
}

// splitHeaderLine splits "Name: value" into its two parts.
func splitHeaderLine(line []byte) (name, value string, ok bool) {
	if len(line) == 0 || line[0] == ' ' || line[0] == '\t' {
		return "", "", false
	}
	i := bytes.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	nameBytes := line[:i]
	if !hdr.ValidHeaderFieldName(string(nameBytes)) {
		return "", "", false
	}
	val := trimLeadingSpace(line[i+1:])
	val = trimTrailingWhitespace(val)
	if !hdr.ValidHeaderFieldValue(string(val)) {
		return "", "", false
	}
	return string(nameBytes), string(val), true
}
