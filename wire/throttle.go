/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package wire

import (
	"context"
	"time"

	"github.com/badu/bayou/async"
	"github.com/badu/bayou/errs"
)

// DefaultReadTimeout and DefaultMinThroughput match spec.md §4.1's
// body-framer defaults ("read-timeout, default 15 s" and
// "read-min-throughput, default 4 KiB/s" once more than 10s have
// elapsed).
const (
	DefaultReadTimeout     = 15 * time.Second
	DefaultMinThroughput   = 4 * 1024 // bytes/sec
	throughputGraceElapsed = 10 * time.Second
)

// Throttle enforces the per-read timeout and minimum aggregate
// throughput shared by all three body framers. It has no grounding
// in badu-http (net/http instead relies on the *net.Conn deadline
// APIs set once per request by the caller); this engine needs the
// check expressed in terms of the cooperative Source/Future seam
// instead of a blocking socket deadline.
type Throttle struct {
	ReadTimeout   time.Duration
	MinThroughput int64

	start     time.Time
	totalRead int64
}

func NewThrottle(readTimeout time.Duration, minThroughput int64) *Throttle {
	return &Throttle{ReadTimeout: readTimeout, MinThroughput: minThroughput}
}

// Guard wraps src.ReadChunk with the timeout, and on a successful
// read checks the minimum-throughput floor once enough wall time has
// passed to make the check meaningful.
func (t *Throttle) Guard(ctx context.Context, src Source) *async.Future[[]byte] {
	if t.start.IsZero() {
		t.start = time.Now()
	}
	raw := async.Timeout(src.ReadChunk(ctx), t.ReadTimeout)
	out, p := async.New[[]byte]()
	raw.OnCompletion(func(chunk []byte, err error) {
		if err != nil {
			if err == context.DeadlineExceeded {
				p.Complete(nil, errs.New(errs.Timeout, 0, err))
				return
			}
			p.Complete(nil, err)
			return
		}
		t.totalRead += int64(len(chunk))
		if elapsed := time.Since(t.start); elapsed > throughputGraceElapsed {
			rate := float64(t.totalRead) / elapsed.Seconds()
			if rate < float64(t.MinThroughput) {
				p.Complete(nil, errs.New(errs.Timeout, 0, errBadLine("body transfer below minimum throughput")))
				return
			}
		}
		p.Complete(chunk, nil)
	})
	return out
}
