/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package tunnel

import (
	"context"
	"io"
	"net"
	"sync"

	"github.com/badu/bayou/server"
)

// runPumps copies bytes in both directions of a CONNECT tunnel, one
// goroutine per direction, and blocks until both have stopped. A clean
// EOF on one side is passed on as a half-close of the other side's
// output. A transport error ends only the direction it occurred on;
// the other direction keeps running until its own read or write ends,
// and both connections are closed only after both directions have
// stopped. Unlike a queued
// outbound pipeline, writes here are made synchronously on the
// pumping goroutine, the same way every other write in this driver
// is; there is no outbound high-water mark to speak of because there
// is no queue to build one up in.
func runPumps(ctx context.Context, client server.Transport, target net.Conn) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		pumpFromClient(ctx, client, target)
	}()
	go func() {
		defer wg.Done()
		pumpFromTarget(ctx, target, client)
	}()

	wg.Wait()
	client.Close()
	target.Close()
}

// pumpFromClient copies bytes read off the hijacked client transport
// onto target, half-closing target's write side on a clean EOF from
// the client (propagating the client's FIN one-way) and returning on
// any error so the other direction's half-close can still land.
func pumpFromClient(ctx context.Context, client server.Transport, target net.Conn) {
	for {
		chunk, err := client.ReadChunk(ctx).Await()
		if len(chunk) > 0 {
			if _, werr := target.Write(chunk); werr != nil {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				closeWrite(target)
			}
			return
		}
	}
}

// pumpFromTarget mirrors pumpFromClient in the other direction: a
// plain net.Conn on the read side, the hijacked Transport on the
// write side.
func pumpFromTarget(ctx context.Context, target net.Conn, client server.Transport) {
	buf := make([]byte, 32*1024)
	for {
		n, err := target.Read(buf)
		if n > 0 {
			if werr := client.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				client.CloseWrite()
			}
			return
		}
	}
}

func closeWrite(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		cw.CloseWrite()
		return
	}
	conn.Close()
}
