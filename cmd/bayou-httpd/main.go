/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Command bayou-httpd is a demo server exercising the driver end to
// end: /echo reflects the request body back, /redirect-target answers
// with a fixed landing page, and /tunnel-health reports ok once a
// CONNECT tunnel can reach it. CONNECT itself is answered by approving
// every tunnel request whose target is a valid host:port (anything
// else gets 400) and handing the connection to package tunnel.
package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/badu/bayou"
	"github.com/badu/bayou/async"
	"github.com/badu/bayou/entity"
	"github.com/badu/bayou/hdr"
	"github.com/badu/bayou/server"
	"github.com/badu/bayou/tunnel"
	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", 8080, "listen port")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	mux := server.NewMux()
	mux.HandleFunc("/echo", echoHandler)
	mux.HandleFunc("/redirect-target", redirectTargetHandler)
	mux.HandleFunc("/tunnel-health", tunnelHealthHandler)

	cfg := server.DefaultConfig()
	cfg.Ports = []int{*port}
	cfg.SupportedMethods = map[string]bool{
		bayou.GET: true, bayou.HEAD: true, bayou.POST: true,
		bayou.PUT: true, bayou.DELETE: true, bayou.CONNECT: true,
	}

	srv := server.New(cfg, mux)
	srv.Log = log
	srv.Tunneler = &tunnel.Tunneler{}
	srv.Handler = server.HandlerFunc(func(ctx *bayou.Context) *async.Future[*bayou.Response] {
		if ctx.Request.Method == bayou.CONNECT {
			return connectHandler(ctx)
		}
		return mux.Serve(ctx)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		srv.Stop(5 * time.Second)
	}()

	log.Info("listening", zap.Int("port", *port))
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("serve failed", zap.Error(err))
	}
}

// echoHandler reads the whole request body and writes it back as the
// response body, exercising both request-side and response-side body
// framing against a single in-memory buffer.
func echoHandler(ctx *bayou.Context) *async.Future[*bayou.Response] {
	var buf bytes.Buffer
	if ctx.Request.Entity != nil {
		body, err := ctx.Request.Entity.Open()
		if err != nil {
			return async.Completed(errorResponse(err), nil)
		}
		defer body.Close()
		if _, err := io.Copy(&buf, entity.AsReader(body)); err != nil {
			return async.Completed(errorResponse(err), nil)
		}
	}
	n := int64(buf.Len())
	resp := bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), entity.New(
		func() (entity.Body, error) { return entity.FromReader(bytes.NewReader(buf.Bytes())), nil }, true))
	resp.Entity.ContentLength = &n
	resp.Entity.ContentType = "application/octet-stream"
	return async.Completed(resp, nil)
}

func redirectTargetHandler(ctx *bayou.Context) *async.Future[*bayou.Response] {
	body := []byte("you have arrived\n")
	n := int64(len(body))
	e := entity.New(func() (entity.Body, error) { return entity.FromReader(bytes.NewReader(body)), nil }, true)
	e.ContentLength = &n
	e.ContentType = "text/plain"
	return async.Completed(bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), e), nil)
}

func tunnelHealthHandler(ctx *bayou.Context) *async.Future[*bayou.Response] {
	body := []byte("ok\n")
	n := int64(len(body))
	e := entity.New(func() (entity.Body, error) { return entity.FromReader(bytes.NewReader(body)), nil }, true)
	e.ContentLength = &n
	e.ContentType = "text/plain"
	return async.Completed(bayou.NewResponse(bayou.StatusOK, "", hdr.NewOrdered(), e), nil)
}

// connectHandler approves every CONNECT request whose target is a
// syntactically valid host:port, deferring the actual dial to
// tunnel.Tunneler once server.connection chains the approved response
// through it.
func connectHandler(ctx *bayou.Context) *async.Future[*bayou.Response] {
	if _, _, err := net.SplitHostPort(ctx.Request.Target); err != nil {
		return async.Completed(bayou.NewResponse(bayou.StatusBadRequest, "", hdr.NewOrdered(), nil), nil)
	}
	return async.Completed(bayou.NewResponse(bayou.StatusOK, "Connection Established", hdr.NewOrdered(), nil), nil)
}

func errorResponse(err error) *bayou.Response {
	return bayou.NewResponse(bayou.StatusInternalServerError, "", hdr.NewOrdered(), nil)
}
