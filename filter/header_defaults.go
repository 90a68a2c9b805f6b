/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package filter

import (
	"context"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	gzipimpl "github.com/klauspost/compress/gzip"
)

// DefaultUserAgent matches spec.md §6's client default:
// "request-header defaults ({Accept-Encoding: gzip,
// User-Agent: bayou.io})".
const DefaultUserAgent = "bayou.io"

// HeaderDefaultsConfig configures the outermost filter.
type HeaderDefaultsConfig struct {
	KeepAlive      bool
	AutoDecompress bool
}

// HeaderDefaults injects Accept-Encoding/User-Agent/Connection on the
// way out, and on the way back, if AutoDecompress is on and the
// response declares Content-Encoding: gzip, wraps the body in a
// gunzip decoder and strips Content-Encoding/Content-Length.
//
// Per spec.md's Open Questions: the gzip wrapper removes
// Content-Length but does not rewrite ETag — documented here as a
// known limitation, not silently fixed, matching the instruction to
// record rather than guess-correct source quirks.
func HeaderDefaults(cfg HeaderDefaultsConfig) Filter {
	return func(next Sender) Sender {
		return SenderFunc(func(ctx context.Context, req *bayou.Request) *async.Future[*bayou.Response] {
			if _, ok := req.Headers.Get(hdr.AcceptEncoding); !ok {
				req.Headers.Set(hdr.AcceptEncoding, "gzip")
			}
			if _, ok := req.Headers.Get(hdr.UserAgent); !ok {
				req.Headers.Set(hdr.UserAgent, DefaultUserAgent)
			}
			if cfg.KeepAlive {
				req.Headers.Set(hdr.Connection, "keep-alive")
			} else {
				req.Headers.Set(hdr.Connection, "close")
			}

			out, p := async.New[*bayou.Response]()
			next.Send(ctx, req).OnCompletion(func(resp *bayou.Response, err error) {
				if err != nil {
					p.Complete(nil, err)
					return
				}
				if cfg.AutoDecompress && resp.Entity != nil {
					if enc, ok := resp.Headers.Get(hdr.ContentEncoding); ok && enc == "gzip" {
						resp.Entity = gunzipEntity(resp.Entity)
						resp.Headers.Del(hdr.ContentEncoding)
						resp.Headers.Del(hdr.ContentLength)
					}
				}
				p.Complete(resp, nil)
			})
			return out
		})
	}
}

// gunzipEntity returns a new Entity whose body transparently
// decompresses src's body with klauspost/compress/gzip, and whose
// declared length is unknown (gzip output length isn't known until
// fully decoded).
func gunzipEntity(src *entity.Entity) *entity.Entity {
	factory := func() (entity.Body, error) {
		raw, err := src.Open()
		if err != nil {
			return nil, err
		}
		zr, err := gzipimpl.NewReader(entity.AsReader(raw))
		if err != nil {
			raw.Close()
			return nil, err
		}
		return entity.FromReader(zr), nil
	}
	out := entity.New(factory, src.Sharable)
	out.ContentType = src.ContentType
	return out
}
