/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package client

import (
	"context"
	"sync/atomic"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/errs"
	"github.com/badu/bayou/filter"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/pool"
	"github.com/badu/bayou/url"
)

// Client is the engine's client-side entry point: a filter.Chain
// (spec.md §4.5) sitting atop the worker pool below, which stands in
// for spec.md §5's "fixed set of selector threads, default: one per
// processor."
//
// Go has no literal equivalent of a thread permanently bound to a set
// of sockets: goroutines are scheduled onto OS threads by the Go
// runtime, not pinned by the caller. cfg.Workers goroutines, each
// draining its own job channel, reproduce the guarantee spec.md §5
// actually cares about (every connection's I/O always runs on the
// same logical worker, in submission order, so a connection's own
// callbacks never race each other) without inventing a second
// cooperative scheduler on top of Go's.
//
// Grounded on badu-http's transport.go (RoundTrip/dialConn/
// persistConn's dial-or-reuse shape) and tport/persist_conn.go
// (writeLoop/readLoop's paired-goroutine-per-connection split),
// restructured around this engine's pool.Pool and the explicit
// thread-affinity model above instead of net/http's implicit
// goroutine-per-request scheduling.
type Client struct {
	cfg    Config
	pool   *pool.Pool[*Connection]
	sender filter.Sender

	nextThread uint64
	workers    []chan job
}

// job is one queued unit of work for a worker: either a fresh request
// still looking for a connection (conn == nil), or a request that
// Checkout found parked on a different worker's connection and
// forwarded wholesale; see Client.execute.
type job struct {
	ctx     context.Context
	req     *bayou.Request
	target  string
	dest    pool.Destination
	conn    *Connection
	promise *async.Promise[*bayou.Response]
}

// New builds a Client with cfg's defaults filled in and starts its
// worker pool. Callers should keep the returned Client for the
// lifetime of however many requests share its connection pool and
// cookie storage; building a fresh Client per request defeats both.
func New(cfg Config) *Client {
	cfg.FillDefaults()
	c := &Client{
		cfg:  cfg,
		pool: pool.New[*Connection](),
	}
	c.sender = filter.Build(filter.SenderFunc(c.rawSend), filter.Config{
		KeepAlive:      cfg.KeepAliveTimeout > 0,
		AutoDecompress: cfg.AutoDecompress,
		MaxRedirects:   cfg.AutoRedirectMax,
		CookieStorage:  cfg.CookieStorage,
		ServerAuth:     cfg.ServerAuth,
		ProxyAuth:      cfg.ProxyAuth,
	})

	c.workers = make([]chan job, cfg.Workers)
	for i := range c.workers {
		ch := make(chan job, 64)
		c.workers[i] = ch
		go c.runWorker(i, ch)
	}
	return c
}

func (c *Client) runWorker(threadID int, jobs chan job) {
	for j := range jobs {
		c.execute(threadID, j)
	}
}

// execute implements spec.md §4.4's checkout/dial/checkin sequence
// for one job, on the worker that owns (or will own) the connection
// used. A cross-thread checkout is forwarded, not executed locally:
// the forwarding worker never blocks waiting for the result, so two
// workers forwarding to each other cannot deadlock.
func (c *Client) execute(threadID int, j job) {
	conn := j.conn
	if conn == nil {
		checked, crossThread, ok := c.pool.Checkout(j.dest, threadID)
		if ok {
			if crossThread {
				j.conn = checked
				c.workers[checked.ThreadID()] <- j
				return
			}
			conn = checked
		}
	}
	if conn == nil {
		raw, err := c.dial(j.dest)
		if err != nil {
			j.promise.Complete(nil, errs.New(errs.Transport, 0, err))
			return
		}
		conn = newConnection(raw, j.dest, threadID)
	}

	resp, err := conn.RoundTrip(j.ctx, j.req, j.target, &c.cfg, func(drainedCleanly bool) {
		if drainedCleanly && conn.Alive() && conn.WriteOK() {
			c.pool.Checkin(j.dest, conn)
		} else {
			conn.Close()
		}
	})
	if err != nil {
		j.promise.Complete(nil, err)
		return
	}
	j.promise.Complete(resp, nil)
}

// rawSend is the innermost filter.Sender the pipeline is built on: it
// assigns the job to a worker and returns a Future that resolves once
// that worker's execute call completes. It does not itself decide
// reuse; that is folded into the onBodyDone callback passed to
// Connection.RoundTrip inside execute, since the caller may not
// finish reading the body until long after rawSend's Future resolves.
func (c *Client) rawSend(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
	dest := destinationOf(req.Scheme, req.Host)
	target := c.targetFor(req, dest)

	// Thread assignment is destination-independent round robin, not a
	// hash of dest: pinning each destination to a fixed worker would
	// make Pool.Checkout's crossThread path nearly unreachable, since
	// every request for a destination would always land on the one
	// worker that already owns its connections.
	threadID := int(atomic.AddUint64(&c.nextThread, 1) % uint64(len(c.workers)))

	out, p := async.New[*bayou.Response]()
	c.workers[threadID] <- job{ctx: ctx, req: req, target: target, dest: dest, promise: p}
	return out
}

// targetFor picks the request-target's wire form per spec.md §6's
// proxy/tunnels knobs: plain HTTP routed through a proxy (and not
// itself a forced tunnel) goes out in absolute-form on the proxy
// connection; everything else (direct connections, HTTPS, and any
// host listed in Tunnels) uses origin-form once the CONNECT tunnel
// (if any) is already established, matching dial's own branching.
func (c *Client) targetFor(req *bayou.Request, dest pool.Destination) string {
	needsTunnel := dest.Scheme == "https" || c.usesTunnel(dest.Host)
	if c.cfg.ProxyURL != "" && !needsTunnel {
		return req.Scheme + "://" + req.Host + req.Target
	}
	return req.Target
}

// Do sends req through the full filter pipeline and returns a Future
// for its response, for callers already holding a *bayou.Request
// (e.g. one built by hand, or replayed by the redirect filter).
func (c *Client) Do(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
	return c.sender.Send(ctx, req)
}

// Fetch is the convenience entry point spec.md §8's end-to-end
// scenarios exercise: parse rawURL, build a Request with this
// Client's header defaults applied, send it, and block for the
// result. Callers that want to stay off the calling goroutine should
// use Do directly instead.
func (c *Client) Fetch(ctx context.Context, method, rawURL string, headers *hdr.Ordered, body *entity.Entity) (*bayou.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.New(errs.Protocol, 0, err)
	}
	if headers == nil {
		headers = hdr.NewOrdered()
	}
	if _, ok := headers.Get(hdr.Host); !ok {
		headers.Set(hdr.Host, u.Host)
	}
	for name, value := range c.cfg.RequestHeaderDefaults {
		if _, ok := headers.Get(name); !ok {
			headers.Set(name, value)
		}
	}

	req := bayou.NewRequest(method, u.RequestURI(), url.OriginForm, 1, u.Host, u.Scheme, "", nil, headers, body)
	return c.Do(ctx, req).Await()
}
