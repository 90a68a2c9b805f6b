/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/badu/bayou/errs"
	"go.uber.org/zap"
)

// lifecycleState is spec.md §6's "Exit behavior": "Server lifecycle
// has four states: init, accepting, accepting-paused,
// accepting-stopped."
type lifecycleState int32

const (
	stateInit lifecycleState = iota
	stateAccepting
	stateAcceptingPaused
	stateAcceptingStopped
)

// pollInterval is how often Stop re-checks the active connection
// count while waiting out its grace period, mirroring badu-http's
// Shutdown poll loop (pollIntervalMax/shutdownPollIntervalMax).
const pollInterval = 25 * time.Millisecond

// Server owns a set of listeners and spawns one connection driver per
// accepted socket, per spec.md §4.2/§6.
//
// Grounded on badu-http's Server (types_server.go): the flat
// exported-tunables-plus-lifecycle-state shape survives; ListenAndServe/
// Serve/the tcpKeepAliveListener wiring come from the same file.
// Shutdown's poll-until-idle loop is adapted from the teacher's
// Shutdown/closeIdleConns, simplified since this driver tracks active
// connections as a flat set rather than distinguishing idle from
// active (goroutine-per-connection makes "idle" observable only from
// inside the connection's own loop).
type Server struct {
	Config    Config
	Handler   Handler
	Upgraders *UpgraderRegistry
	Tunneler  Tunneler
	Log       *zap.Logger

	mu        sync.Mutex
	state     lifecycleState
	listeners []net.Listener
	active    map[*connection]struct{}
}

// New builds a Server with cfg's defaults filled in and an empty
// upgrader registry. Handler answers every non-upgraded,
// non-tunnelled request.
func New(cfg Config, handler Handler) *Server {
	cfg.FillDefaults()
	return &Server{
		Config:    cfg,
		Handler:   handler,
		Upgraders: NewUpgraderRegistry(),
		active:    make(map[*connection]struct{}),
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// ListenAndServe opens a listener for each configured port (spec.md
// §6: "ports (8080)") and serves all of them. TLSPorts is left to the
// caller: wiring real certificates belongs outside this package, via
// Serve(tls.NewListener(ln, tlsConfig)) for each TLS port.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	if s.state != stateInit {
		s.mu.Unlock()
		return errs.ErrServerClosed
	}
	s.state = stateAccepting
	s.mu.Unlock()

	listeners := make([]net.Listener, 0, len(s.Config.Ports))
	for _, port := range s.Config.Ports {
		ln, err := listen(port)
		if err != nil {
			return err
		}
		listeners = append(listeners, ln)
	}
	return s.serveAll(listeners)
}

// Serve runs the accept loop over a single already-open listener,
// e.g. a TLS listener the caller constructed itself.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.state == stateInit {
		s.state = stateAccepting
	}
	s.mu.Unlock()
	return s.serveAll([]net.Listener{ln})
}

func (s *Server) serveAll(listeners []net.Listener) error {
	s.mu.Lock()
	s.listeners = append(s.listeners, listeners...)
	s.mu.Unlock()

	if len(listeners) == 1 {
		return s.acceptLoop(listeners[0])
	}

	errCh := make(chan error, len(listeners))
	for _, ln := range listeners {
		ln := ln
		go func() { errCh <- s.acceptLoop(ln) }()
	}
	return <-errCh
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		raw, err := ln.Accept()
		if err != nil {
			if s.isStopped() || errors.Is(err, net.ErrClosed) {
				return errs.ErrServerClosed
			}
			return err
		}
		s.spawn(raw)
	}
}

func (s *Server) spawn(raw net.Conn) {
	t := newNetTransport(raw)
	t.SetWriteTimeout(s.Config.WriteTimeout)
	c := newConnection(t, s.Config, s.Handler, s.Upgraders, s.Tunneler, s.logger(), s.isStopped)

	s.mu.Lock()
	s.active[c] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.active, c)
			s.mu.Unlock()
		}()
		c.serve(context.Background())
	}()
}

func (s *Server) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateAcceptingPaused || s.state == stateAcceptingStopped
}

// Stop implements spec.md §6's stop(grace): stop-accepting (close
// every listener), wait for the connection count to reach 0 up to
// grace, then stop-all (abort whatever is left by closing its
// transport out from under it).
func (s *Server) Stop(grace time.Duration) {
	s.mu.Lock()
	s.state = stateAcceptingPaused
	for _, ln := range s.listeners {
		ln.Close()
	}
	s.mu.Unlock()

	deadline := time.Now().Add(grace)
	for {
		s.mu.Lock()
		n := len(s.active)
		s.mu.Unlock()
		if n == 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(pollInterval)
	}

	s.mu.Lock()
	s.state = stateAcceptingStopped
	remaining := make([]*connection, 0, len(s.active))
	for c := range s.active {
		remaining = append(remaining, c)
	}
	s.mu.Unlock()

	for _, c := range remaining {
		c.transport.Close()
	}
}

// ActiveConnections reports the current connection count, for
// callers/tests that want to observe Stop's drain progress.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
