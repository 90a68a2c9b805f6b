/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/hdr"
)

func newAuthReq(target string) *bayou.Request {
	h := hdr.NewOrdered()
	return bayou.NewRequest(bayou.GET, target, 0, 1, "example.com", "http", "", nil, h, nil)
}

func TestAuth_BasicChallengeRetries(t *testing.T) {
	calls := 0
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		calls++
		if calls == 1 {
			h := hdr.NewOrdered()
			h.Set(hdr.WwwAuthenticate, `Basic realm="protected"`)
			return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusUnauthorized, "", h, nil), nil)
		}
		auth, ok := req.Headers.Get(hdr.Authorization)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(auth, "Basic "))
		return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil), nil)
	})

	supplier := func(realm, host string) (Credential, bool) {
		assert.Equal(t, "protected", realm)
		return Credential{Username: "alice", Password: "secret"}, true
	}
	sender := ServerAuth(supplier)(raw)
	resp := sender.Send(context.Background(), newAuthReq("/x")).Await()
	assert.Equal(t, bayou.StatusOK, resp.Status)
	assert.Equal(t, 2, calls)
}

func TestAuth_DigestChallengeBuildsResponseHash(t *testing.T) {
	calls := 0
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		calls++
		if calls == 1 {
			h := hdr.NewOrdered()
			h.Set(hdr.WwwAuthenticate, `Digest realm="area", nonce="abc123", qop="auth", algorithm=MD5`)
			return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusUnauthorized, "", h, nil), nil)
		}
		auth, ok := req.Headers.Get(hdr.Authorization)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(auth, "Digest "))
		assert.Contains(t, auth, `username="alice"`)
		assert.Contains(t, auth, `nc=00000001`)
		assert.Contains(t, auth, `qop=auth`)
		return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil), nil)
	})

	supplier := func(realm, host string) (Credential, bool) {
		return Credential{Username: "alice", Password: "secret"}, true
	}
	sender := ServerAuth(supplier)(raw)
	resp := sender.Send(context.Background(), newAuthReq("/secure")).Await()
	assert.Equal(t, bayou.StatusOK, resp.Status)
	assert.Equal(t, 2, calls)
}

func TestAuth_ProxyUsesSeparateHeaders(t *testing.T) {
	calls := 0
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		calls++
		if calls == 1 {
			h := hdr.NewOrdered()
			h.Set(hdr.ProxyAuthenticate, `Basic realm="proxy"`)
			return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusProxyAuthRequired, "", h, nil), nil)
		}
		_, ok := req.Headers.Get(hdr.ProxyAuthorization)
		require.True(t, ok)
		return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil), nil)
	})
	supplier := func(realm, host string) (Credential, bool) {
		return Credential{Username: "bob", Password: "pw"}, true
	}
	sender := ProxyAuth(supplier)(raw)
	resp := sender.Send(context.Background(), newAuthReq("/")).Await()
	assert.Equal(t, bayou.StatusOK, resp.Status)
}

func TestAuth_NoSupplierPassesThrough(t *testing.T) {
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		h := hdr.NewOrdered()
		h.Set(hdr.WwwAuthenticate, `Basic realm="x"`)
		return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusUnauthorized, "", h, nil), nil)
	})
	sender := ServerAuth(nil)(raw)
	resp := sender.Send(context.Background(), newAuthReq("/")).Await()
	assert.Equal(t, bayou.StatusUnauthorized, resp.Status)
}

func TestAuth_CachedDigestCredentialUsedUpfront(t *testing.T) {
	calls := 0
	raw := SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
		calls++
		if calls == 1 {
			h := hdr.NewOrdered()
			h.Set(hdr.WwwAuthenticate, `Digest realm="area", nonce="n1", qop="auth"`)
			return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusUnauthorized, "", h, nil), nil)
		}
		return async.Completed[*bayou.Response](bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), nil), nil)
	})
	supplier := func(realm, host string) (Credential, bool) {
		return Credential{Username: "alice", Password: "secret"}, true
	}
	auth := newAuth(supplier, false)
	sender := auth.wrap(raw)
	ctx := context.Background()
	_ = sender.Send(ctx, newAuthReq("/a")).Await()
	require.Equal(t, 2, calls)

	// Second request to the same host reuses the cached digest state
	// and attaches Authorization without a fresh challenge round trip.
	req2 := newAuthReq("/b")
	resp2 := sender.Send(ctx, req2).Await()
	auth2, ok := req2.Headers.Get(hdr.Authorization)
	require.True(t, ok)
	assert.Contains(t, auth2, "nc=00000002")
	assert.Equal(t, bayou.StatusOK, resp2.Status)
}
