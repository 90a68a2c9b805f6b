/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/cookie"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/errs"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/url"
	"github.com/badu/bayou/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Tunneler is the seam connection.dispatch calls into for a CONNECT
// request whose handler answers 2xx, per spec.md §4.2 item 3 ("chain
// the handler's response through the tunneller") and §4.7. It is
// implemented by the tunnel package; server depends only on this
// interface so the dependency runs one way.
type Tunneler interface {
	// Tunnel takes ownership of conn and pumps bytes between it and
	// the CONNECT target, or declines (returning false) and lets the
	// driver write resp normally.
	Tunnel(ctx *bayou.Context, resp *bayou.Response, conn Hijacker) (hijacked bool)
}

// connection drives one accepted connection through spec.md §4.2's
// states (req-new → req-none | req-err | req-bad | req-good →
// resp-start → resp-write → resp-end → (await-req | closing)) and its
// 8 numbered contracts.
//
// Grounded on badu-http's conn.serve loop (conn.go): the
// readRequest/dispatch/finishRequest/shouldReuseConnection/idle-wait
// shape is the same, restructured around this engine's
// Source/Body/Future seams and spec.md's explicit contract list
// instead of net/http's scattered special cases. Unlike badu-http,
// there is exactly one goroutine per connection and no *bufio.Reader:
// every blocking point is an explicit call into Transport.
type connection struct {
	transport Transport
	cfg       Config
	handler   Handler
	upgraders *UpgraderRegistry
	tunneler  Tunneler
	log       *zap.Logger

	// shuttingDown is consulted by the keep-alive decision (contract
	// 6: "the server is not shutting down"); nil is treated as false,
	// which test code relies on to exercise the driver standalone.
	shuttingDown func() bool

	remoteIP string
	hijacked bool
}

func newConnection(t Transport, cfg Config, h Handler, up *UpgraderRegistry, tun Tunneler, log *zap.Logger, shuttingDown func() bool) *connection {
	host, _, err := net.SplitHostPort(t.RemoteAddr().String())
	if err != nil {
		host = t.RemoteAddr().String()
	}
	return &connection{
		transport:    t,
		cfg:          cfg,
		handler:      h,
		upgraders:    up,
		tunneler:     tun,
		log:          log,
		shuttingDown: shuttingDown,
		remoteIP:     host,
	}
}

// serve runs the request loop until the connection is no longer
// reusable, a hijack transfers ownership away, or the peer disappears.
func (c *connection) serve(ctx context.Context) {
	defer func() {
		if !c.hijacked {
			c.transport.Close()
		}
	}()

	var carry []byte
	firstRequest := true
	for {
		head, rest, err := c.readHead(ctx, carry, firstRequest)
		carry = nil
		if err != nil {
			if firstRequest && isTimeoutErr(err) {
				return // req-none: nothing arrived before request-head-timeout.
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return // peer closed between (or mid-) requests.
			}
			if kind, ok := errs.KindOf(err); ok && (kind == errs.Protocol || kind == errs.Policy) {
				c.writeError(ctx, err, 1) // req-bad: contract 2, no draining.
			} else {
				c.log.Debug("connection read failed before a request completed", zap.Error(err))
			}
			return
		}
		firstRequest = false

		keepAlive, leftover := c.handleOne(ctx, head, rest)
		if c.hijacked {
			return
		}
		if !keepAlive {
			c.closeGracefully(ctx) // contract 7.
			return
		}
		carry = leftover
		if !c.cfg.Pipeline {
			runtime.Gosched() // contract 8, disabled: yield before the next request.
		}
	}
}

// readHead feeds carry (bytes already buffered from the previous
// request, if any) and further transport reads to a fresh
// wire.RequestParser until it reports Done or Failed.
func (c *connection) readHead(ctx context.Context, carry []byte, firstRequest bool) (*wire.RequestHead, []byte, error) {
	// Contract 1: the very first request's wait uses
	// request-head-timeout, not keep-alive-timeout, even though they
	// share the same default. Once a request is underway the head
	// itself is still bounded by request-head-timeout regardless.
	timeout := c.cfg.KeepAliveTimeout
	if firstRequest {
		timeout = c.cfg.RequestHeadTimeout
	}
	c.transport.SetReadTimeout(timeout)

	parser := wire.NewRequestParser(c.cfg.limits())
	status, head, rest, err := parser.Feed(carry)
	for status == wire.NeedMore {
		chunk, rerr := c.transport.ReadChunk(ctx).Await()
		if rerr != nil {
			return nil, nil, rerr
		}
		c.transport.SetReadTimeout(c.cfg.RequestHeadTimeout)
		status, head, rest, err = parser.Feed(chunk)
	}
	if status == wire.Failed {
		return nil, nil, err
	}
	return head, rest, nil
}

// handleOne executes req-good through resp-end for a single parsed
// head and reports whether the connection remains reusable plus any
// bytes already read past this request that belong to the next one.
func (c *connection) handleOne(ctx context.Context, head *wire.RequestHead, rest []byte) (keepAlive bool, leftover []byte) {
	hostHeader, _ := head.Headers.Get(hdr.Host)
	if head.Minor == 1 && hostHeader == "" {
		c.writeError(ctx, errs.ErrMissingHost, head.Minor)
		return false, nil
	}
	if hostHeader != "" && !url.ValidHostHeader(hostHeader) {
		c.writeError(ctx, errs.New(errs.Protocol, 400, fmt.Errorf("invalid Host header")), head.Minor)
		return false, nil
	}
	if head.Method != bayou.CONNECT && !c.cfg.SupportedMethods[head.Method] {
		c.writeError(ctx, errs.ErrUnsupportedMethod, head.Minor)
		return false, nil
	}

	_, form, terr := url.ParseTarget(head.Method, head.Target)
	if terr != nil {
		c.writeError(ctx, errs.New(errs.Protocol, 400, terr), head.Minor)
		return false, nil
	}

	scheme := "http"
	var peerCerts []*x509.Certificate
	if tlsState, ok := c.transport.TLSState(); ok {
		scheme = "https"
		peerCerts = tlsState.PeerCertificates
	}

	expect100 := strings.EqualFold(strings.TrimSpace(firstOr(head.Headers, hdr.Expect)), "100-continue")
	framer, reqEntity, continueSent, berr := c.buildRequestBody(head, rest, expect100)
	if berr != nil {
		c.writeError(ctx, berr, head.Minor)
		return false, nil
	}

	req := bayou.NewRequest(head.Method, head.Target, form, head.Minor, hostHeader, scheme, c.remoteIP, peerCerts, head.Headers, reqEntity)
	jar := cookie.NewJar(hostHeader, requestPath(head.Target), firstOr(head.Headers, hdr.CookieHeader))
	reqCtx := bayou.NewContext(ctx, req, jar, c.log)

	resp := c.dispatch(reqCtx)
	if c.hijacked {
		return false, nil
	}

	clientWantsClose := wantsClose(head.Headers, head.Minor)

	if framer != nil {
		switch {
		case expect100 && !*continueSent && head.Method == bayou.CONNECT:
			// Spec's explicit exception to contract 4: a CONNECT with
			// Expect-100 is still drained before tunneling begins, so the
			// client must be told to send the body before the drain can
			// make progress.
			if werr := c.transport.Write(continueStatusLine); werr != nil {
				return false, nil
			}
			*continueSent = true
			if derr := c.drain(ctx, framer); derr != nil {
				c.log.Debug("drain before tunnel failed, closing without writing", zap.Error(derr))
				return false, nil
			}
		case expect100 && !*continueSent:
			// Contract 4: the handler never read the body, so no
			// 100-Continue was ever sent; the client is still holding
			// it back, so draining would block forever. Force close
			// instead of attempting contract 5's normal drain.
			resp.ForceClose()
		default:
			if derr := c.drain(ctx, framer); derr != nil {
				c.log.Debug("drain before response failed, closing without writing", zap.Error(derr))
				return false, nil
			}
		}
	}

	leftover = frameLeftover(framer)
	keepAlive = c.writeResponse(ctx, resp, head.Minor, clientWantsClose)
	return keepAlive, leftover
}

// dispatch runs contract 3: upgrade hand-off, handler invocation (with
// panic/error recovery into a 500), and CONNECT chaining through the
// tunneller.
func (c *connection) dispatch(reqCtx *bayou.Context) (resp *bayou.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = c.handlerFailure(reqCtx, fmt.Errorf("panic: %v", r))
		}
	}()

	if c.upgraders != nil {
		if token, ok := reqCtx.Request.Headers.Get(hdr.UpgradeHeader); ok {
			if up, found := c.upgraders.Lookup(token); found {
				r, hijacked := up.TryUpgrade(reqCtx, c)
				if hijacked {
					return nil
				}
				return r
			}
		}
	}

	future := c.handler.Serve(reqCtx)
	resp, err := future.Await()
	if err != nil {
		return c.handlerFailure(reqCtx, err)
	}
	if resp == nil {
		return c.handlerFailure(reqCtx, fmt.Errorf("handler returned a nil response"))
	}

	if reqCtx.Request.Method == bayou.CONNECT && resp.Status/100 == 2 && c.tunneler != nil {
		if c.tunneler.Tunnel(reqCtx, resp, c) {
			return nil
		}
	}

	if setCookies := reqCtx.Jar.SetCookieHeaders(); len(setCookies) > 0 {
		resp.SetCookies = append(resp.SetCookies, setCookies...)
	}
	return resp
}

// Hijack implements Hijacker for both Upgrader and Tunneler callers:
// whichever asks first takes the transport, and the driver loop stops
// touching it (including the deferred Close in serve).
func (c *connection) Hijack() (Transport, error) {
	if c.hijacked {
		return nil, errs.ErrHijacked
	}
	c.hijacked = true
	return c.transport, nil
}

func (c *connection) handlerFailure(reqCtx *bayou.Context, err error) *bayou.Response {
	id := uuid.NewString()
	reqCtx.Log.Error("handler failed", zap.String("error_id", id), zap.Error(err))
	body := []byte("internal server error (id " + id + ")\n")
	n := int64(len(body))
	e := entity.New(func() (entity.Body, error) { return entity.FromReader(bytes.NewReader(body)), nil }, true)
	e.ContentType = "text/plain; charset=utf-8"
	e.ContentLength = &n
	return bayou.NewResponse(bayou.StatusInternalServerError, "", hdr.NewOrdered(), e)
}

// buildRequestBody picks the request's body framing per spec.md
// §4.1's table (fixed or chunked; until-FIN is response-only) and
// wraps it for 100-Continue if the request asked for it. The returned
// entity.Body is the raw framer, used for draining and recovering the
// leftover bytes after the body boundary even when the handler itself
// read through the continue-wrapped copy in the Entity.
func (c *connection) buildRequestBody(head *wire.RequestHead, rest []byte, expectContinue bool) (entity.Body, *entity.Entity, *bool, *errs.Error) {
	te := firstOr(head.Headers, hdr.TransferEncoding)
	cl, hasCL := head.Headers.Get(hdr.ContentLength)

	var framer entity.Body
	var length *int64

	switch {
	case strings.EqualFold(strings.TrimSpace(te), "chunked"):
		framer = wire.NewChunkedBody(c.transport, rest)
	case hasCL:
		n, perr := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if perr != nil || n < 0 {
			return nil, nil, nil, errs.New(errs.Protocol, 400, fmt.Errorf("invalid Content-Length"))
		}
		if n > c.cfg.RequestBodyMax {
			return nil, nil, nil, errs.ErrBodyTooLarge
		}
		length = &n
		framer = wire.NewFixedLengthBody(c.transport, n, rest)
	default:
		return nil, nil, nil, nil
	}

	sent := new(bool)
	var handlerBody entity.Body = framer
	if expectContinue {
		handlerBody = &continueBody{inner: framer, transport: c.transport, sent: sent}
	}

	e := entity.New(func() (entity.Body, error) { return handlerBody, nil }, false)
	e.ContentLength = length
	if ce, ok := head.Headers.Get(hdr.ContentEncoding); ok {
		e.ContentEncoding = ce
	}
	if ct, ok := head.Headers.Get(hdr.ContentType); ok {
		e.ContentType = ct
	}
	return framer, e, sent, nil
}

// continueBody sends the 100-Continue status line on its first Next
// call, per spec.md §4.2 item 4, then behaves exactly as inner.
type continueBody struct {
	inner     entity.Body
	transport Transport
	sent      *bool
}

var continueStatusLine = []byte("HTTP/1.1 100 Continue\r\n\r\n")

func (b *continueBody) Next(ctx context.Context) *async.Future[[]byte] {
	if !*b.sent {
		*b.sent = true
		if err := b.transport.Write(continueStatusLine); err != nil {
			return async.Completed[[]byte](nil, err)
		}
	}
	return b.inner.Next(ctx)
}

func (b *continueBody) Close() error { return b.inner.Close() }

// drain implements contract 5: reads framer to EOF within
// drain-request-timeout. Each individual read is already bounded by
// the framer's own read-timeout/min-throughput guard (wire.Throttle);
// this loop additionally bounds the whole drain, checked between
// reads rather than pre-empting a single in-flight read, consistent
// with this driver never blocking on anything but a single transport
// call at a time.
func (c *connection) drain(ctx context.Context, framer entity.Body) error {
	deadline := time.Now().Add(c.cfg.DrainRequestTimeout)
	for {
		if time.Now().After(deadline) {
			return errs.New(errs.Timeout, 0, fmt.Errorf("drain-request-timeout exceeded"))
		}
		_, err := framer.Next(ctx).Await()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func frameLeftover(framer entity.Body) []byte {
	switch b := framer.(type) {
	case *wire.FixedLengthBody:
		return b.Leftover()
	case *wire.ChunkedBody:
		return b.Leftover()
	default:
		return nil
	}
}

// writeResponse implements resp-start/resp-write/resp-end plus
// contract 6's keep-alive decision.
func (c *connection) writeResponse(ctx context.Context, resp *bayou.Response, minor int, clientWantsClose bool) bool {
	if resp.Headers == nil {
		resp.Headers = hdr.NewOrdered()
	}

	respWantsClose := clientWantsClose || resp.Last
	if v, ok := resp.Headers.Get(hdr.Connection); ok && strings.EqualFold(strings.TrimSpace(v), "close") {
		respWantsClose = true
	}
	if c.shuttingDown != nil && c.shuttingDown() {
		respWantsClose = true
	}

	unknownLength := resp.Entity != nil
	if resp.Entity != nil {
		if _, ok := resp.Entity.KnownLength(); ok {
			unknownLength = false
		}
	}
	if minor == 0 && unknownLength {
		// spec.md §9: a 1.0 peer has no notion of chunked framing, so
		// an unknown-length body can only be delimited by closing the
		// connection; advertising keep-alive here would leave the
		// peer unable to tell where the body ends.
		respWantsClose = true
	}

	if respWantsClose {
		resp.Headers.Set(hdr.Connection, "close")
	} else if minor == 0 {
		// HTTP/1.0 has no persistent connections by default; this
		// driver only offers one when it intends to honor it.
		resp.Headers.Set(hdr.Connection, "keep-alive")
	}

	var buf bytes.Buffer
	framing := wire.EncodeResponseHead(&buf, resp.Status, resp.Reason, minor, resp.Headers, resp.Entity, time.Now())

	if len(resp.SetCookies) > 0 {
		// Set-Cookie must never be comma-joined with other occurrences
		// (spec.md §3), so it cannot go through hdr.Ordered.Add; splice
		// each value in just before the head's closing blank line.
		b := buf.Bytes()
		buf.Truncate(len(b) - len(wire.CrLf))
		for _, sc := range resp.SetCookies {
			buf.WriteString(hdr.SetCookieHeader)
			buf.WriteString(": ")
			buf.WriteString(sc)
			buf.Write(wire.CrLf)
		}
		buf.Write(wire.CrLf)
	}

	if err := c.transport.Write(buf.Bytes()); err != nil {
		c.log.Debug("write response head failed", zap.Error(err))
		return false
	}
	if err := c.writeResponseBody(ctx, resp.Entity, framing); err != nil {
		c.log.Debug("write response body failed", zap.Error(err))
		return false
	}
	return !respWantsClose
}

func (c *connection) writeResponseBody(ctx context.Context, e *entity.Entity, framing wire.Framing) error {
	if e == nil {
		return nil
	}
	body, err := e.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	if framing != wire.FramingChunked {
		for {
			chunk, err := body.Next(ctx).Await()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			if err := c.transport.Write(chunk); err != nil {
				return err
			}
		}
	}

	enc := wire.NewChunkedEncoder(c.cfg.OutboundBufferSize)
	for {
		chunk, err := body.Next(ctx).Await()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if out := enc.Write(chunk); out != nil {
			if err := c.transport.Write(out); err != nil {
				return err
			}
		}
	}
	var trailers *hdr.Ordered
	if cb, ok := body.(*wire.ChunkedBody); ok {
		trailers = cb.Trailers
	}
	return c.transport.Write(enc.Close(trailers))
}

// writeError implements contract 2: write the error response
// immediately, without draining (the framing itself is untrusted),
// and always mark it the connection's last.
func (c *connection) writeError(ctx context.Context, err error, minor int) {
	status := 400
	var e *errs.Error
	if errors.As(err, &e) && e.Status != 0 {
		status = e.Status
	}
	resp := bayou.NewResponse(status, "", hdr.NewOrdered(), nil)
	resp.ForceClose()
	c.writeResponse(ctx, resp, minor, true)
}

// closeGracefully implements contract 7: half-close output, then wait
// up to close-timeout for the peer's own FIN before the deferred hard
// close in serve runs.
func (c *connection) closeGracefully(ctx context.Context) {
	if err := c.transport.CloseWrite(); err != nil {
		return
	}
	deadline := time.Now().Add(c.cfg.CloseTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		c.transport.SetReadTimeout(remaining)
		if _, err := c.transport.ReadChunk(ctx).Await(); err != nil {
			return // peer FIN'd, errored, or we timed out: hard-close now.
		}
		// Bytes arriving after our half-close are discarded; only the
		// peer's own FIN matters here.
	}
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	if k, ok := errs.KindOf(err); ok {
		return k == errs.Timeout
	}
	return false
}

func firstOr(h *hdr.Ordered, name string) string {
	v, _ := h.Get(name)
	return v
}

// requestPath strips query/fragment from a request-target for use as
// a cookie jar's default path, mirroring RFC 6265 §5.1.4's
// default-path algorithm for the common origin-form case.
func requestPath(target string) string {
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if target == "" || target[0] != '/' {
		return "/"
	}
	return target
}

// wantsClose reports whether the request's own framing forces the
// connection closed after this response: an explicit
// "Connection: close" token, or (per HTTP/1.0 semantics) the absence
// of an explicit "Connection: keep-alive" opt-in.
func wantsClose(headers *hdr.Ordered, minor int) bool {
	conn := firstOr(headers, hdr.Connection)
	hasToken := func(name string) bool {
		for _, t := range strings.Split(conn, ",") {
			if strings.EqualFold(strings.TrimSpace(t), name) {
				return true
			}
		}
		return false
	}
	if hasToken("close") {
		return true
	}
	if minor == 0 {
		return !hasToken("keep-alive")
	}
	return false
}
