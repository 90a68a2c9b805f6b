/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/cookie"
	"github.com/badu/bayou/hdr"
)

func TestCookies_AttachesMatchingCookiesAndStoresNew(t *testing.T) {
	store := cookie.NewStorage(0)
	store.Store("example.com", "/", []string{"session=abc123; Path=/"})

	var seenCookieHeader string
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		seenCookieHeader, _ = req.Headers.Get(hdr.CookieHeader)
		h := hdr.NewOrdered()
		resp := bayou.NewResponse(bayou.StatusOK, "", h, nil)
		resp.SetCookies = []string{"pref=dark; Path=/"}
		return async.Completed[*bayou.Response](resp, nil)
	})

	sender := Cookies(store)(raw)
	req := newAuthReq("/page")
	resp := sender.Send(context.Background(), req).Await()
	require.NotNil(t, resp)
	assert.Equal(t, "session=abc123", seenCookieHeader)

	matched := store.Match("example.com", "/page", false)
	names := map[string]bool{}
	for _, c := range matched {
		names[c.Name] = true
	}
	assert.True(t, names["session"])
	assert.True(t, names["pref"])
}

func TestCookies_NoMatchLeavesCookieHeaderUnset(t *testing.T) {
	store := cookie.NewStorage(0)
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		_, ok := req.Headers.Get(hdr.CookieHeader)
		assert.False(t, ok)
		return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil), nil)
	})
	sender := Cookies(store)(raw)
	sender.Send(context.Background(), newAuthReq("/other")).Await()
}
