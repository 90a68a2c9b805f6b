/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package entity implements the byte-source model: a lazy,
// cancellable sequence of byte chunks used for request and response
// bodies (SPEC_FULL.md's "Byte-source model" component), plus the
// Entity value that pairs that sequence with its metadata.
//
// Grounded on badu-http's body.go (body/bodyLocked split, EOF-once
// semantics, ErrBodyReadAfterClose), generalized from a single
// bufio-backed io.ReadCloser into an interface any wire body framer
// (fixed, chunked, until-FIN) can implement without depending on
// bufio directly.
package entity

import (
	"context"
	"io"
	"sync"

	"github.com/badu/bayou/async"
	"github.com/badu/bayou/errs"
)

// Body is a lazy, single-consumption (per instance) sequence of byte
// chunks with an explicit close, per spec.md §3's Entity definition.
// Framers in the wire package (FixedLengthBody, ChunkedBody,
// UntilFINBody) each implement Body over their own termination rule.
type Body interface {
	// Next returns a Future that resolves to the next non-empty chunk,
	// or to (nil, io.EOF) once the body is exhausted. Calling Next
	// again after an EOF or error resolution is undefined; callers
	// that need to re-read must obtain a fresh Body from the Entity's
	// factory (see Sharable).
	Next(ctx context.Context) *async.Future[[]byte]

	io.Closer
}

// NopBody is a Body with no content, for requests/responses that
// declare no entity.
var NopBody Body = nopBody{}

type nopBody struct{}

func (nopBody) Next(ctx context.Context) *async.Future[[]byte] {
	return async.Completed[[]byte](nil, io.EOF)
}

func (nopBody) Close() error { return nil }

// AsReader adapts a Body to io.ReadCloser for boundary code (user
// handlers, the gzip filter, tests) that wants ordinary blocking
// reads instead of chunk futures. It is the inverse of FromReader.
func AsReader(b Body) io.ReadCloser {
	return &bodyReader{body: b}
}

type bodyReader struct {
	mu     sync.Mutex
	body   Body
	pend   []byte
	closed bool
	eof    bool
}

func (r *bodyReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, errs.ErrBodyReadAfterClose
	}
	for len(r.pend) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		chunk, err := r.body.Next(context.Background()).Await()
		if err != nil {
			if err == io.EOF {
				r.eof = true
				continue
			}
			return 0, err
		}
		r.pend = chunk
	}
	n := copy(p, r.pend)
	r.pend = r.pend[n:]
	return n, nil
}

func (r *bodyReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}

// FromReader wraps an ordinary io.Reader as a Body, for outbound
// request/response entities built from in-memory or file content
// rather than produced by the wire codec.
func FromReader(r io.Reader) Body {
	return &readerBody{r: r}
}

type readerBody struct {
	mu     sync.Mutex
	r      io.Reader
	closed bool
}

const readChunkSize = 32 * 1024

func (b *readerBody) Next(ctx context.Context) *async.Future[[]byte] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return async.Completed[[]byte](nil, errs.ErrBodyReadAfterClose)
	}
	buf := make([]byte, readChunkSize)
	n, err := b.r.Read(buf)
	if n > 0 {
		return async.Completed(buf[:n], nil)
	}
	if err == nil {
		err = io.EOF
	}
	return async.Completed[[]byte](nil, err)
}

func (b *readerBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
