/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"strconv"

	"github.com/badu/bayou/hdr"
)

// DefaultOutboundBufferSize matches spec.md §4.1: "buffers up to
// outbound-buffer-size bytes (default 16 KiB) into a single chunk".
const DefaultOutboundBufferSize = 16 * 1024

// ChunkedEncoder wraps an arbitrary body source into chunked
// Transfer-Encoding framing. Grounded on badu-http's chunk_writer.go
// (chunkWriter.Write/close), generalized from "write straight to
// res.conn.bufWriter" into "append to an in-memory buffer and return
// framed bytes the caller writes whenever it likes" so it composes
// with a non-blocking outbound pump instead of a blocking
// bufio.Writer.
type ChunkedEncoder struct {
	bufSize int
	pending []byte
}

func NewChunkedEncoder(bufSize int) *ChunkedEncoder {
	if bufSize <= 0 {
		bufSize = DefaultOutboundBufferSize
	}
	return &ChunkedEncoder{bufSize: bufSize}
}

// Write appends p to the pending chunk buffer and returns any framed
// bytes ready to send once the buffer reaches bufSize.
func (c *ChunkedEncoder) Write(p []byte) []byte {
	c.pending = append(c.pending, p...)
	if len(c.pending) < c.bufSize {
		return nil
	}
	return c.flushChunk(c.pending)
}

// Flush frames whatever is currently pending, even if under bufSize —
// used when the body source has paused but not finished, so a caller
// waiting on the wire isn't starved.
func (c *ChunkedEncoder) Flush() []byte {
	if len(c.pending) == 0 {
		return nil
	}
	return c.flushChunk(c.pending)
}

func (c *ChunkedEncoder) flushChunk(data []byte) []byte {
	out := make([]byte, 0, len(data)+16)
	out = append(out, strconv.FormatUint(uint64(len(data)), 16)...)
	out = append(out, '\r', '\n')
	out = append(out, data...)
	out = append(out, '\r', '\n')
	c.pending = nil
	return out
}

// Close frames the terminating 0-size chunk plus trailers, per
// spec.md §4.1: "terminates with 0 CRLF CRLF".
func (c *ChunkedEncoder) Close(trailers *hdr.Ordered) []byte {
	out := c.Flush()
	out = append(out, '0', '\r', '\n')
	if trailers != nil {
		trailers.Range(func(name, value string) {
			out = append(out, name...)
			out = append(out, ':', ' ')
			out = append(out, value...)
			out = append(out, '\r', '\n')
		})
	}
	out = append(out, '\r', '\n')
	return out
}
