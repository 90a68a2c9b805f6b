/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"context"

	"github.com/badu/bayou/async"
)

// Source is the transport-facing side of a body framer: it supplies
// raw bytes as the connection driver reads them off the socket,
// without the framer needing to know anything about sockets, TLS, or
// the selector loop. spec.md keeps socket I/O itself out of scope
// (§1: "TCP socket accept/connect/read/write ... out of scope"); this
// is the seam where that external collaborator plugs in.
type Source interface {
	// ReadChunk resolves with the next raw bytes available, or with
	// (nil, io.EOF) once the transport has hit FIN/close-notify.
	ReadChunk(ctx context.Context) *async.Future[[]byte]
}

// SourceFunc adapts a plain function to a Source, convenient for
// tests and for wiring a connection's read loop without a named type.
type SourceFunc func(ctx context.Context) *async.Future[[]byte]

func (f SourceFunc) ReadChunk(ctx context.Context) *async.Future[[]byte] {
	return f(ctx)
}
