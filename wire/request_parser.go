/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"bytes"

	"github.com/badu/bayou/errs"
	"github.com/badu/bayou/hdr"
)

type reqParseState int

const (
	reqStateLine reqParseState = iota
	reqStateHeaders
	reqStateDone
)

// RequestParser incrementally parses a request head from fragmented
// byte chunks. Feed may be called any number of times as bytes arrive
// from the transport; it never blocks.
//
// Grounded on badu-http's readChunkLine/parseHexUint lexing style
// (utils_chunks.go) generalized to request-line and header-line
// lexing, since the teacher's own request-line parser
// (readRequest in types_request.go, not retrieved in full) was a
// single blocking call over a *bufio.Reader.
type RequestParser struct {
	carry  []byte
	state  reqParseState
	total  int
	limits Limits

	head           RequestHead
	lastHeaderName string
}

// NewRequestParser returns a fresh parser bound by limits.
func NewRequestParser(limits Limits) *RequestParser {
	return &RequestParser{limits: limits, state: reqStateLine}
}

// Feed appends data to the parser's carry buffer and advances as far
// as complete lines allow. On Done, rest holds any bytes already
// received past the blank line terminating the head — the first
// bytes of the body, which the caller must hand to the body framer
// instead of discarding.
func (p *RequestParser) Feed(data []byte) (status Status, head *RequestHead, rest []byte, err error) {
	if len(data) > 0 {
		p.carry = append(p.carry, data...)
	}
	for {
		line, remainder, ok := cutLine(p.carry)
		if !ok {
			if len(p.carry) > p.limits.TotalMax {
				return Failed, nil, nil, errs.ErrHeadTooLarge
			}
			return NeedMore, nil, nil, nil
		}
		p.carry = remainder
		p.total += len(line) + 2
		if p.total > p.limits.TotalMax {
			return Failed, nil, nil, errs.ErrHeadTooLarge
		}

		switch p.state {
		case reqStateLine:
			if len(line) == 0 {
				// RFC 7230 §3.5 allows (and recommends tolerating) a
				// leading blank line before the request-line.
				continue
			}
			if err := p.parseRequestLine(line); err != nil {
				return Failed, nil, nil, err
			}
			p.state = reqStateHeaders
		case reqStateHeaders:
			if len(line) == 0 {
				p.state = reqStateDone
				h := p.head
				return Done, &h, p.carry, nil
			}
			if len(line) > p.limits.FieldMax {
				return Failed, nil, nil, errs.ErrLineTooLong
			}
			if isContinuationLine(line) {
				if p.lastHeaderName == "" {
					return Failed, nil, nil, errs.New(errs.Protocol, 400, errBadHeaderLine)
				}
				v, ok := foldedValue(line)
				if !ok {
					return Failed, nil, nil, errs.New(errs.Protocol, 400, errBadHeaderLine)
				}
				p.head.Headers.Fold(p.lastHeaderName, v)
				continue
			}
			name, value, ok := splitHeaderLine(line)
			if !ok {
				return Failed, nil, nil, errs.New(errs.Protocol, 400, errBadHeaderLine)
			}
			p.head.Headers.Add(name, value)
			p.lastHeaderName = name
		}
	}
}

var errBadHeaderLine = errBadLine("malformed header line")

type errBadLine string

func (e errBadLine) Error() string { return string(e) }

func (p *RequestParser) parseRequestLine(line []byte) error {
	p.head.Headers = hdr.NewOrdered()
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) != 3 {
		return errs.New(errs.Protocol, 400, errBadLine("malformed request-line"))
	}
	method := string(parts[0])
	if !validMethodToken(method) {
		return errs.ErrUnsupportedMethod
	}
	target := string(parts[1])
	if len(target) > p.limits.FieldMax {
		return errs.New(errs.Policy, 414, errBadLine("request-target too long"))
	}
	minor, err := parseHTTPVersion(parts[2])
	if err != nil {
		if err == errUnsupportedVersion {
			return errs.ErrUnsupportedVersion
		}
		return errs.New(errs.Protocol, 400, errBadLine("malformed HTTP version"))
	}
	p.head.Method = method
	p.head.Target = target
	p.head.Minor = minor
	return nil
}

func validMethodToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !hdr.IsTokenRune(rune(s[i])) {
			return false
		}
	}
	return true
}

var (
	errMalformedVersion   = errBadLine("malformed version")
	errUnsupportedVersion = errBadLine("unsupported version")
)

// parseHTTPVersion accepts "HTTP/1.0" or "HTTP/1.1" and returns the
// minor version (0 or 1). A token that isn't shaped like "HTTP/x.y"
// at all returns errMalformedVersion (400); a well-formed token
// naming a version other than 1.0/1.1 returns errUnsupportedVersion
// (505), since this engine is HTTP/1.x only (spec.md §1 Non-goals:
// "HTTP/2 or /3").
func parseHTTPVersion(v []byte) (int, error) {
	if len(v) != 8 || string(v[:5]) != "HTTP/" || v[6] != '.' || !isDigit(v[5]) || !isDigit(v[7]) {
		return 0, errMalformedVersion
	}
	if v[5] != '1' {
		return 0, errUnsupportedVersion
	}
	switch v[7] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	default:
		return 0, errUnsupportedVersion
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
