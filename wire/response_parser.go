/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"bytes"
	"strconv"

	"github.com/badu/bayou/errs"
	"github.com/badu/bayou/hdr"
)

type respParseState int

const (
	respStateLine respParseState = iota
	respStateHeaders
	respStateDone
)

// ResponseParser incrementally parses a response head, mirroring
// RequestParser's structure (same cutLine/splitHeaderLine helpers,
// same Feed/Done/rest contract) over a status-line instead of a
// request-line.
type ResponseParser struct {
	carry  []byte
	state  respParseState
	total  int
	limits Limits

	head           ResponseHead
	lastHeaderName string
}

func NewResponseParser(limits Limits) *ResponseParser {
	return &ResponseParser{limits: limits, state: respStateLine}
}

func (p *ResponseParser) Feed(data []byte) (status Status, head *ResponseHead, rest []byte, err error) {
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
		case respStateLine:
			if len(line) == 0 {
				continue
			}
			if err := p.parseStatusLine(line); err != nil {
				return Failed, nil, nil, err
			}
			p.state = respStateHeaders
		case respStateHeaders:
			if len(line) == 0 {
				p.state = respStateDone
				h := p.head
				return Done, &h, p.carry, nil
			}
			if len(line) > p.limits.FieldMax {
				return Failed, nil, nil, errs.ErrLineTooLong
			}
			if isContinuationLine(line) {
				if p.lastHeaderName == "" {
					return Failed, nil, nil, errs.New(errs.Protocol, 0, errBadHeaderLine)
				}
				v, ok := foldedValue(line)
				if !ok {
					return Failed, nil, nil, errs.New(errs.Protocol, 0, errBadHeaderLine)
				}
				p.head.Headers.Fold(p.lastHeaderName, v)
				continue
			}
			name, value, ok := splitHeaderLine(line)
			if !ok {
				return Failed, nil, nil, errs.New(errs.Protocol, 0, errBadHeaderLine)
			}
			p.head.Headers.Add(name, value)
			p.lastHeaderName = name
		}
	}
}

func (p *ResponseParser) parseStatusLine(line []byte) error {
	p.head.Headers = hdr.NewOrdered()
	parts := bytes.SplitN(line, []byte(" "), 3)
	if len(parts) < 2 {
		return errs.New(errs.Protocol, 0, errBadLine("malformed status-line"))
	}
	minor, err := parseHTTPVersion(parts[0])
	if err != nil {
		return errs.New(errs.Protocol, 0, err)
	}
	status, err := strconv.Atoi(string(parts[1]))
	if err != nil || status < 100 || status > 999 {
		return errs.New(errs.Protocol, 0, errBadLine("malformed status code"))
	}
	reason := ""
	if len(parts) == 3 {
		reason = string(parts[2])
	}
	p.head.Minor = minor
	p.head.Status = status
	p.head.Reason = reason
	return nil
}
