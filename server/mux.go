/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"sort"
	"strings"
	"sync"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/hdr"
)

// Mux is a minimal request multiplexer matching exact paths or
// trailing-slash subtrees, with longer patterns taking precedence —
// the same rule badu-http/mux/types.go documents for ServeMux, here
// reimplemented against this engine's future-returning Handler
// instead of a ResponseWriter. SPEC_FULL.md keeps this only as demo
// routing tooling for cmd/bayou-httpd; it is not part of spec.md's
// protocol surface.
type Mux struct {
	mu      sync.RWMutex
	entries map[string]Handler
	sorted  []string
}

// NewMux returns an empty Mux.
func NewMux() *Mux {
	return &Mux{entries: make(map[string]Handler)}
}

// Handle registers handler for pattern. A pattern ending in "/"
// matches the whole subtree; any other pattern matches exactly.
func (m *Mux) Handle(pattern string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[pattern]; !exists {
		m.sorted = append(m.sorted, pattern)
		sort.Sort(sort.Reverse(sort.StringSlice(m.sorted)))
	}
	m.entries[pattern] = handler
}

// HandleFunc is the HandlerFunc-adapting convenience form of Handle.
func (m *Mux) HandleFunc(pattern string, fn HandlerFunc) {
	m.Handle(pattern, fn)
}

func (m *Mux) match(path string) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.entries[path]; ok {
		return h, true
	}
	var best string
	var bestHandler Handler
	for _, pattern := range m.sorted {
		if !strings.HasSuffix(pattern, "/") {
			continue
		}
		if strings.HasPrefix(path, pattern) && len(pattern) > len(best) {
			best = pattern
			bestHandler = m.entries[pattern]
		}
	}
	if bestHandler != nil {
		return bestHandler, true
	}
	return nil, false
}

// Serve implements Handler by dispatching to the best-matching
// registered pattern, or a bare 404 if nothing matches.
func (m *Mux) Serve(ctx *bayou.Context) *async.Future[*bayou.Response] {
	path := ctx.Request.Target
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	handler, ok := m.match(path)
	if !ok {
		resp := bayou.NewResponse(bayou.StatusNotFound, "", hdr.NewOrdered(), nil)
		return async.Completed(resp, nil)
	}
	return handler.Serve(ctx)
}

var _ Handler = (*Mux)(nil)
