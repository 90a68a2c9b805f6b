/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package bayou

import (
	"context"

	"github.com/badu/bayou/cookie"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context is design note 9's replacement for the source's
// fiber-locals: "an explicit per-request context value passed into
// every filter invocation and accessible to the handler. Cookie
// jars, current-request references, and logging trace ids are
// attached to this context." It wraps a standard context.Context so
// cancellation (driver shutdown, client cancellation per §5) composes
// with the rest of the Go ecosystem.
type Context struct {
	context.Context

	RequestID string
	Jar       *cookie.Jar
	Log       *zap.Logger
	Request   *Request
}

// NewContext builds a request-scoped Context, generating a fresh
// request id via github.com/google/uuid — the same library the server
// driver (server/connection.go) uses to tag logged handler failures, so a trace id and an error id share
// a generation scheme.
func NewContext(parent context.Context, req *Request, jar *cookie.Jar, log *zap.Logger) *Context {
	id := uuid.NewString()
	return &Context{
		Context:   parent,
		RequestID: id,
		Jar:       jar,
		Log:       log.With(zap.String("request_id", id)),
		Request:   req,
	}
}
