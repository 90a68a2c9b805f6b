/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"context"
	"testing"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/hdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func handlerNamed(name string) Handler {
	return HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		resp := bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil)
		resp.Headers.Set("X-Handler", name)
		return async.Completed(resp, nil)
	})
}

func serveMux(t *testing.T, m *Mux, target string) *bayou.Response {
	req := bayou.NewRequest(bayou.GET, target, 0, 1, "example.com", "http", "127.0.0.1", nil, hdr.NewOrdered(), nil)
	ctx := bayou.NewContext(context.Background(), req, nil, zap.NewNop())
	resp, err := m.Serve(ctx).Await()
	require.NoError(t, err)
	return resp
}

func TestMuxExactMatchPrecedence(t *testing.T) {
	m := NewMux()
	m.Handle("/a/", handlerNamed("subtree"))
	m.Handle("/a/b", handlerNamed("exact"))

	resp := serveMux(t, m, "/a/b")
	v, _ := resp.Headers.Get("X-Handler")
	assert.Equal(t, "exact", v)
}

func TestMuxLongestSubtreeWins(t *testing.T) {
	m := NewMux()
	m.Handle("/", handlerNamed("root"))
	m.Handle("/a/", handlerNamed("a"))
	m.Handle("/a/b/", handlerNamed("ab"))

	resp := serveMux(t, m, "/a/b/c")
	v, _ := resp.Headers.Get("X-Handler")
	assert.Equal(t, "ab", v)

	resp = serveMux(t, m, "/a/other")
	v, _ = resp.Headers.Get("X-Handler")
	assert.Equal(t, "a", v)
}

func TestMuxNotFoundFallback(t *testing.T) {
	m := NewMux()
	m.Handle("/known", handlerNamed("known"))

	resp := serveMux(t, m, "/unknown")
	assert.Equal(t, bayou.StatusNotFound, resp.Status)
}

func TestMuxStripsQueryBeforeMatch(t *testing.T) {
	m := NewMux()
	m.Handle("/search", handlerNamed("search"))

	resp := serveMux(t, m, "/search?q=go")
	v, _ := resp.Headers.Get("X-Handler")
	assert.Equal(t, "search", v)
}
