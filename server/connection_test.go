/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package server

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okResponse(body string) *bayou.Response {
	h := hdr.NewOrdered()
	n := int64(len(body))
	e := entity.New(func() (entity.Body, error) { return entity.FromReader(strings.NewReader(body)), nil }, true)
	e.ContentType = "text/plain"
	e.ContentLength = &n
	return bayou.NewResponse(bayou.StatusOK, "", h, e)
}

func newTestConnection(t Transport, h Handler) *connection {
	cfg := DefaultConfig()
	return newConnection(t, cfg, h, nil, nil, zap.NewNop(), nil)
}

func TestConnectionSimpleKeepAlive(t *testing.T) {
	req := "GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"
	ft := newFakeTransport(req)

	h := HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		return async.Completed(okResponse("hi"), nil)
	})
	c := newTestConnection(ft, h)
	c.serve(context.Background())

	out := ft.output()
	assert.Contains(t, out, "HTTP/1.1 200")
	assert.Contains(t, out, "hi")
	assert.True(t, ft.isClosed())
}

func TestConnectionBadRequestLine(t *testing.T) {
	ft := newFakeTransport("GARBAGE\r\n\r\n")

	h := HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		t.Fatal("handler must not run for a malformed request line")
		return nil
	})
	c := newTestConnection(ft, h)
	c.serve(context.Background())

	out := ft.output()
	assert.Contains(t, out, "400")
	assert.Contains(t, out, "Connection: close")
	assert.True(t, ft.isClosed())
}

func TestConnectionExpectContinueHandlerReadsBody(t *testing.T) {
	req := "POST /upload HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\nhello"
	ft := newFakeTransport(req)

	var gotBody string
	h := HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		body, err := ctx.Request.Entity.Open()
		require.NoError(t, err)
		for {
			chunk, err := body.Next(ctx).Await()
			if err != nil {
				require.ErrorIs(t, err, io.EOF)
				break
			}
			gotBody += string(chunk)
		}
		return async.Completed(okResponse("ok"), nil)
	})
	c := newTestConnection(ft, h)
	c.serve(context.Background())

	assert.Equal(t, "hello", gotBody)
	out := ft.output()
	idxContinue := strings.Index(out, "100 Continue")
	idxFinal := strings.Index(out, "200")
	require.GreaterOrEqual(t, idxContinue, 0)
	require.Greater(t, idxFinal, idxContinue)
}

func TestConnectionExpectContinueHandlerIgnoresBody(t *testing.T) {
	req := "POST /upload HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\nhello"
	ft := newFakeTransport(req)

	h := HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		return async.Completed(okResponse("ok"), nil)
	})
	c := newTestConnection(ft, h)
	c.serve(context.Background())

	out := ft.output()
	assert.NotContains(t, out, "100 Continue")
	assert.Contains(t, out, "Connection: close")
	assert.True(t, ft.isClosed())
}

func TestConnectionHTTP10UnknownLengthForcesClose(t *testing.T) {
	req := "GET / HTTP/1.0\r\nHost: example.com\r\n\r\n"
	ft := newFakeTransport(req)

	h := HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		hdrs := hdr.NewOrdered()
		e := entity.New(func() (entity.Body, error) { return entity.FromReader(strings.NewReader("unknown length body")), nil }, true)
		return async.Completed(bayou.NewResponse(bayou.StatusOK, "", hdrs, e), nil)
	})
	c := newTestConnection(ft, h)
	c.serve(context.Background())

	out := ft.output()
	assert.Contains(t, out, "Connection: close")
	assert.NotContains(t, out, "keep-alive")
	assert.NotContains(t, out, "Transfer-Encoding")
	assert.True(t, ft.isClosed())
}
