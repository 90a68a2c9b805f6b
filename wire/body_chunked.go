/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"context"
	"io"

	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/errs"
	"github.com/badu/bayou/hdr"
)

type chunkState int

const (
	chunkStateSize chunkState = iota
	chunkStateData
	chunkStateTrailer
	chunkStateDone
)

// ChunkedBody frames a Transfer-Encoding: chunked body, terminated by
// a 0-size chunk plus trailers, per spec.md §4.1's framing table.
//
// Grounded on badu-http's utils_chunks.go (readChunkLine,
// removeChunkExtension, parseHexUint), whose blocking
// *bufio.Reader-based loop is replaced here with an explicit carry
// buffer fed incrementally by Source, so a chunk boundary that
// straddles two socket reads simply waits for the next Next() call
// instead of blocking the selector thread.
type ChunkedBody struct {
	src             Source
	throttle        *Throttle
	carry           []byte
	state           chunkState
	size            uint64
	trailer         *hdr.Ordered
	lastTrailerName string
	closed          bool

	// Trailers, once populated (after Done), is made available to the
	// caller so it can merge it into the owning Request/Response.
	Trailers *hdr.Ordered
}

func NewChunkedBody(src Source, leftover []byte) *ChunkedBody {
	return &ChunkedBody{
		src:      src,
		throttle: NewThrottle(DefaultReadTimeout, DefaultMinThroughput),
		carry:    leftover,
		trailer:  hdr.NewOrdered(),
	}
}

func (b *ChunkedBody) Next(ctx context.Context) *async.Future[[]byte] {
	if b.closed {
		return async.Completed[[]byte](nil, io.ErrClosedPipe)
	}
	out, p := async.New[[]byte]()
	b.pump(ctx, p)
	return out
}

func (b *ChunkedBody) pump(ctx context.Context, p *async.Promise[[]byte]) {
	for {
		chunk, done, needMore, err := b.tryExtract()
		if err != nil {
			p.Complete(nil, err)
			return
		}
		if needMore {
			b.throttle.Guard(ctx, b.src).OnCompletion(func(data []byte, rerr error) {
				if rerr != nil {
					if rerr == io.EOF {
						p.Complete(nil, io.ErrUnexpectedEOF)
						return
					}
					p.Complete(nil, rerr)
					return
				}
				b.carry = append(b.carry, data...)
				b.pump(ctx, p)
			})
			return
		}
		if done {
			b.Trailers = b.trailer
			p.Complete(nil, io.EOF)
			return
		}
		if chunk != nil {
			p.Complete(chunk, nil)
			return
		}
		// Neither a chunk nor done nor needMore: an empty chunk-size
		// line or similar no-op was consumed; loop to make progress.
	}
}

// tryExtract advances as far as the current carry buffer allows
// without blocking. needMore means the caller must fetch more bytes
// from the transport before retrying.
func (b *ChunkedBody) tryExtract() (chunk []byte, done bool, needMore bool, err error) {
	switch b.state {
	case chunkStateSize:
		line, rest, ok := cutLine(b.carry)
		if !ok {
			return nil, false, true, nil
		}
		if len(line) >= maxLineLength {
			return nil, false, false, errs.ErrLineTooLong
		}
		size, perr := parseChunkSizeLine(line)
		if perr != nil {
			return nil, false, false, errs.New(errs.Protocol, 0, perr)
		}
		b.carry = rest
		b.size = size
		if size == 0 {
			b.state = chunkStateTrailer
			return nil, false, false, nil
		}
		b.state = chunkStateData
		return nil, false, false, nil

	case chunkStateData:
		need := int(b.size) + 2 // data + trailing CRLF
		if len(b.carry) < need {
			return nil, false, true, nil
		}
		data := b.carry[:b.size]
		b.carry = b.carry[need:]
		b.state = chunkStateSize
		return data, false, false, nil

	case chunkStateTrailer:
		line, rest, ok := cutLine(b.carry)
		if !ok {
			return nil, false, true, nil
		}
		b.carry = rest
		if len(line) == 0 {
			b.state = chunkStateDone
			return nil, true, false, nil
		}
		if isContinuationLine(line) {
			if b.lastTrailerName == "" {
				return nil, false, false, errs.New(errs.Protocol, 0, errBadHeaderLine)
			}
			v, ok := foldedValue(line)
			if !ok {
				return nil, false, false, errs.New(errs.Protocol, 0, errBadHeaderLine)
			}
			b.trailer.Fold(b.lastTrailerName, v)
			return nil, false, false, nil
		}
		name, value, ok := splitHeaderLine(line)
		if !ok {
			return nil, false, false, errs.New(errs.Protocol, 0, errBadHeaderLine)
		}
		b.trailer.Add(name, value)
		b.lastTrailerName = name
		return nil, false, false, nil

	default: // chunkStateDone
		return nil, true, false, nil
	}
}

func (b *ChunkedBody) Close() error {
	b.closed = true
	return nil
}

// Leftover returns bytes already read off the transport past the
// terminating chunk and trailers, valid once Next has resolved with
// io.EOF. See FixedLengthBody.Leftover for the same contract.
func (b *ChunkedBody) Leftover() []byte { return b.carry }

var _ entity.Body = (*ChunkedBody)(nil)

// parseChunkSizeLine strips a chunk-extension (";token" or
// ";token=value") before parsing the hex length, per badu-http's
// removeChunkExtension.
func parseChunkSizeLine(line []byte) (uint64, error) {
	if semi := indexByte(line, ';'); semi >= 0 {
		line = line[:semi]
	}
	return parseHexUint(line)
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func parseHexUint(v []byte) (uint64, error) {
	if len(v) == 0 {
		return 0, errBadLine("empty chunk length")
	}
	var n uint64
	for i, c := range v {
		var d byte
		switch {
		case '0' <= c && c <= '9':
			d = c - '0'
		case 'a' <= c && c <= 'f':
			d = c - 'a' + 10
		case 'A' <= c && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, errBadLine("invalid byte in chunk length")
		}
		if i == 16 {
			return 0, errBadLine("chunk length too large")
		}
		n <<= 4
		n |= uint64(d)
	}
	return n, nil
}
