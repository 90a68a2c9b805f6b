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

// UntilFINBody frames a body with neither Content-Length nor chunked
// Transfer-Encoding, terminated by the transport's own FIN/close
// notify — the response-only case in spec.md §4.1's framing table.
// Unlike FixedLengthBody and ChunkedBody, an early transport close is
// the expected and correct end-of-body signal, not an error.
type UntilFINBody struct {
	src      Source
	throttle *Throttle
	leftover []byte
	eof      bool
	closed   bool
}

func NewUntilFINBody(src Source, leftover []byte) *UntilFINBody {
	return &UntilFINBody{
		src:      src,
		throttle: NewThrottle(DefaultReadTimeout, DefaultMinThroughput),
		leftover: leftover,
	}
}

func (b *UntilFINBody) Next(ctx context.Context) *async.Future[[]byte] {
	if b.closed {
		return async.Completed[[]byte](nil, io.ErrClosedPipe)
	}
	if len(b.leftover) > 0 {
		chunk := b.leftover
		b.leftover = nil
		return async.Completed(chunk, nil)
	}
	if b.eof {
		return async.Completed[[]byte](nil, io.EOF)
	}

	out, p := async.New[[]byte]()
	b.throttle.Guard(ctx, b.src).OnCompletion(func(chunk []byte, err error) {
		if err != nil {
			if err == io.EOF {
				b.eof = true
				p.Complete(nil, io.EOF)
				return
			}
			p.Complete(nil, err)
			return
		}
		p.Complete(chunk, nil)
	})
	return out
}

func (b *UntilFINBody) Close() error {
	b.closed = true
	return nil
}

var _ entity.Body = (*UntilFINBody)(nil)
