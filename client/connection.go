/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/errs"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/pool"
	"github.com/badu/bayou/wire"
)

// Connection wraps one dialed net.Conn, permanently bound to the
// worker goroutine ("selector thread", spec.md §5) that dialed it.
// It implements pool.Conn for the idle pool and wire.Source for the
// three body framers, exactly the way server.netTransport does on the
// accept side (see server/transport.go): the two sides of the same
// connection speak the same wire codec, so they share its Source seam
// instead of each growing their own buffered-reader plumbing.
type Connection struct {
	conn     net.Conn
	dest     pool.Destination
	threadID int

	mu           sync.Mutex
	alive        bool
	lastWriteOK  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func newConnection(conn net.Conn, dest pool.Destination, threadID int) *Connection {
	return &Connection{conn: conn, dest: dest, threadID: threadID, alive: true}
}

func (c *Connection) ThreadID() int { return c.threadID }

func (c *Connection) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alive
}

func (c *Connection) Close() error {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Connection) markDead() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

// WriteOK reports whether the most recent RoundTrip finished writing
// its request (head and, if present, body) without error, the second
// of spec.md §4.4's two extra reuse-eligibility conditions beyond
// aliveness ("the response body drained without error, and the
// request write completed successfully").
func (c *Connection) WriteOK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastWriteOK
}

func (c *Connection) setReadTimeout(d time.Duration)  { c.readTimeout = d }
func (c *Connection) setWriteTimeout(d time.Duration) { c.writeTimeout = d }

// ReadChunk mirrors server.netTransport.ReadChunk: one blocking read
// bounded by a deadline, returned as an already-resolved Future since
// this connection's owning worker goroutine already is the selector
// thread spec.md §5 describes.
func (c *Connection) ReadChunk(ctx context.Context) *async.Future[[]byte] {
	if c.readTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
	buf := make([]byte, 32*1024)
	n, err := c.conn.Read(buf)
	if n > 0 {
		return async.Completed(buf[:n], nil)
	}
	if err == nil {
		err = io.EOF
	}
	c.markDead()
	return async.Completed[[]byte](nil, err)
}

func (c *Connection) write(p []byte) error {
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	if _, err := c.conn.Write(p); err != nil {
		c.markDead()
		return err
	}
	return nil
}

// RoundTrip sends req (already addressed in target's wire form:
// origin-form, absolute-form, or an authority for CONNECT) and
// returns the parsed response. It implements spec.md §4.3's outbound
// pump and paired reader for exactly one request on this connection;
// Client.execute is responsible for sequencing calls to RoundTrip so
// two requests never race the same Connection.
//
// onBodyDone is invoked exactly once per call, reporting whether the
// response body (if any) was drained cleanly: the signal
// Client.execute needs to decide reuse eligibility (spec.md §4.4) at
// the point the caller actually finishes reading the body, which may
// be long after RoundTrip itself returns.
func (c *Connection) RoundTrip(ctx context.Context, req *bayou.Request, target string, cfg *Config, onBodyDone func(drainedCleanly bool)) (*bayou.Response, error) {
	c.mu.Lock()
	c.lastWriteOK = false
	c.mu.Unlock()
	c.setWriteTimeout(cfg.WriteTimeout)

	var headBuf bytes.Buffer
	framing := wire.EncodeRequestHead(&headBuf, req.Method, target, req.Minor, req.Headers, req.Entity)
	if err := c.write(headBuf.Bytes()); err != nil {
		onBodyDone(false)
		return nil, errs.New(errs.Transport, 0, err)
	}

	expect100 := strings.EqualFold(strings.TrimSpace(firstOr(req.Headers, hdr.Expect)), "100-continue")

	var carry []byte
	if req.Entity != nil {
		sendBody := true
		if expect100 {
			var earlyResp *bayou.Response
			sendBody, carry, earlyResp = c.awaitContinue(ctx, cfg)
			if earlyResp != nil {
				// spec.md §4.3: "other exception → do not send body and
				// mark outbound corrupt" generalizes to the server
				// answering early without reading it at all; the early
				// response IS the final one, so stop here.
				onBodyDone(true)
				return earlyResp, nil
			}
		}
		if sendBody {
			if err := c.writeBody(ctx, req.Entity, framing); err != nil {
				onBodyDone(false)
				return nil, errs.New(errs.Transport, 0, err)
			}
		}
	}

	c.mu.Lock()
	c.lastWriteOK = true
	c.mu.Unlock()

	c.setReadTimeout(cfg.ReadTimeout)
	head, rest, err := c.readResponseHead(ctx, cfg.limits(), carry)
	if err != nil {
		onBodyDone(false)
		return nil, err
	}
	return c.buildResponse(req.Method, head, rest, onBodyDone), nil
}

// awaitContinue implements spec.md §4.3's await-100 promise: wait up
// to Await100Timeout for either an interim "100 Continue" or the
// timeout to elapse, and send the body in either case. Any other
// resolved head is a final response the server chose to send without
// reading the request body at all (e.g. rejecting it outright); that
// response is returned directly and the body is never sent.
func (c *Connection) awaitContinue(ctx context.Context, cfg *Config) (sendBody bool, carry []byte, earlyResp *bayou.Response) {
	c.setReadTimeout(cfg.Await100Timeout)
	head, rest, err := c.readResponseHead(ctx, cfg.limits(), nil)
	if err != nil {
		// Timeout-or-transport-hiccup: per spec.md §4.3, proceed to send
		// the body regardless of which one it was.
		return true, nil, nil
	}
	if head.Status == bayou.StatusContinue {
		return true, rest, nil
	}
	return false, nil, &bayou.Response{Status: head.Status, Reason: head.Reason, Headers: head.Headers}
}

func (c *Connection) writeBody(ctx context.Context, e *entity.Entity, framing wire.Framing) error {
	body, err := e.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	if framing != wire.FramingChunked {
		for {
			chunk, err := body.Next(ctx).Await()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			if err := c.write(chunk); err != nil {
				return err
			}
		}
	}

	enc := wire.NewChunkedEncoder(wire.DefaultOutboundBufferSize)
	for {
		chunk, err := body.Next(ctx).Await()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if out := enc.Write(chunk); out != nil {
			if err := c.write(out); err != nil {
				return err
			}
		}
	}
	return c.write(enc.Close(nil))
}

func (c *Connection) readResponseHead(ctx context.Context, limits wire.Limits, carry []byte) (*wire.ResponseHead, []byte, error) {
	parser := wire.NewResponseParser(limits)
	status, head, rest, err := parser.Feed(carry)
	for status == wire.NeedMore {
		chunk, rerr := c.ReadChunk(ctx).Await()
		if rerr != nil {
			return nil, nil, errs.New(errs.Transport, 0, rerr)
		}
		status, head, rest, err = parser.Feed(chunk)
	}
	if status == wire.Failed {
		return nil, nil, err
	}
	return head, rest, nil
}

// buildResponse decides the response body's framing per spec.md
// §4.1's table (HEAD requests and 1xx/204/304 statuses carry no body
// regardless of headers) and wraps whichever framer applies in a
// doneBody so onBodyDone fires exactly once, whenever the caller
// finishes (or abandons) reading it.
func (c *Connection) buildResponse(method string, head *wire.ResponseHead, rest []byte, onBodyDone func(bool)) *bayou.Response {
	if !responseHasBody(method, head.Status) {
		onBodyDone(true)
		return bayou.NewResponse(head.Status, head.Reason, head.Headers, nil)
	}

	var framer entity.Body
	var length *int64

	te, _ := head.Headers.Get(hdr.TransferEncoding)
	cl, hasCL := head.Headers.Get(hdr.ContentLength)
	switch {
	case strings.EqualFold(strings.TrimSpace(te), "chunked"):
		framer = wire.NewChunkedBody(c, rest)
	case hasCL:
		if n, perr := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); perr == nil && n >= 0 {
			length = &n
			framer = wire.NewFixedLengthBody(c, n, rest)
		} else {
			framer = wire.NewUntilFINBody(c, rest)
		}
	default:
		framer = wire.NewUntilFINBody(c, rest)
	}

	wrapped := &doneBody{inner: framer, done: onBodyDone}
	e := entity.New(func() (entity.Body, error) { return wrapped, nil }, false)
	e.ContentLength = length
	if ct, ok := head.Headers.Get(hdr.ContentType); ok {
		e.ContentType = ct
	}
	if ce, ok := head.Headers.Get(hdr.ContentEncoding); ok {
		e.ContentEncoding = ce
	}
	return bayou.NewResponse(head.Status, head.Reason, head.Headers, e)
}

// doneBody reports exactly once, via done, whether the wrapped body
// was drained to a clean EOF (reuse-eligible per spec.md §4.4) or
// abandoned/errored (not eligible). A caller that reads to EOF and
// then also calls Close observes only the first outcome.
type doneBody struct {
	inner entity.Body
	once  sync.Once
	done  func(drainedCleanly bool)
}

func (b *doneBody) Next(ctx context.Context) *async.Future[[]byte] {
	out, p := async.New[[]byte]()
	b.inner.Next(ctx).OnCompletion(func(chunk []byte, err error) {
		if err != nil {
			b.finish(err == io.EOF)
		}
		p.Complete(chunk, err)
	})
	return out
}

func (b *doneBody) finish(drainedCleanly bool) {
	b.once.Do(func() { b.done(drainedCleanly) })
}

func (b *doneBody) Close() error {
	b.finish(false)
	return b.inner.Close()
}

func responseHasBody(method string, status int) bool {
	if method == bayou.HEAD {
		return false
	}
	if status/100 == 1 || status == 204 || status == 304 {
		return false
	}
	return true
}

func firstOr(h *hdr.Ordered, name string) string {
	v, _ := h.Get(name)
	return v
}

var _ pool.Conn = (*Connection)(nil)
var _ wire.Source = (*Connection)(nil)
