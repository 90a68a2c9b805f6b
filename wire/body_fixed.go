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
)

// FixedLengthBody frames a body of known Content-Length N, per
// spec.md §4.1's framing table: "N bytes consumed". It is seeded with
// any bytes the head parser already read past the blank line
// (leftover), mirroring badu-http's body.go use of io.LimitedReader
// over the connection's *bufio.Reader, generalized to pull from a
// Source instead of blocking on one.
type FixedLengthBody struct {
	src       Source
	throttle  *Throttle
	remaining int64
	leftover  []byte
	closed    bool
}

// NewFixedLengthBody returns a Body that yields exactly length bytes,
// starting with any already-buffered leftover.
func NewFixedLengthBody(src Source, length int64, leftover []byte) *FixedLengthBody {
	return &FixedLengthBody{
		src:       src,
		throttle:  NewThrottle(DefaultReadTimeout, DefaultMinThroughput),
		remaining: length,
		leftover:  leftover,
	}
}

func (b *FixedLengthBody) Next(ctx context.Context) *async.Future[[]byte] {
	if b.closed {
		return async.Completed[[]byte](nil, io.ErrClosedPipe)
	}
	if b.remaining <= 0 {
		return async.Completed[[]byte](nil, io.EOF)
	}
	if len(b.leftover) > 0 {
		chunk := b.leftover
		if int64(len(chunk)) > b.remaining {
			chunk = chunk[:b.remaining]
		}
		b.leftover = b.leftover[len(chunk):]
		b.remaining -= int64(len(chunk))
		return async.Completed(chunk, nil)
	}

	out, p := async.New[[]byte]()
	b.throttle.Guard(ctx, b.src).OnCompletion(func(chunk []byte, err error) {
		if err != nil {
			if err == io.EOF {
				// The transport closed before we saw the declared
				// length: spec.md §4.1, "Fail with IO if the
				// transport terminates before the framed EOF (except
				// for Until-FIN)".
				p.Complete(nil, io.ErrUnexpectedEOF)
				return
			}
			p.Complete(nil, err)
			return
		}
		if int64(len(chunk)) > b.remaining {
			b.leftover = chunk[b.remaining:]
			chunk = chunk[:b.remaining]
		}
		b.remaining -= int64(len(chunk))
		p.Complete(chunk, nil)
	})
	return out
}

func (b *FixedLengthBody) Close() error {
	b.closed = true
	return nil
}

// Remaining reports the body bytes still expected (0 once the body is
// complete; the length is always known for this framer) — mirrors
// badu-http's unreadDataSizeLocked.
func (b *FixedLengthBody) Remaining() int64 { return b.remaining }

// Leftover returns bytes already read off the transport past the body
// boundary, per spec.md §4.1: "the first byte past the body boundary
// is unread to the underlying transport for the next request to pick
// up." Only meaningful once Remaining() reaches 0.
func (b *FixedLengthBody) Leftover() []byte { return b.leftover }

var _ entity.Body = (*FixedLengthBody)(nil)
