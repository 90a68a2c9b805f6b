/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Command bayou-fetch is a minimal curl-alike driving the client
// package end to end: one GET (or -method) request through the full
// filter pipeline, printed to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/badu/bayou/client"
	"github.com/badu/bayou/entity"
)

func main() {
	method := flag.String("method", "GET", "HTTP method")
	proxy := flag.String("proxy", "", "proxy host:port")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bayou-fetch [flags] <url>")
		os.Exit(2)
	}

	cfg := client.DefaultConfig()
	cfg.ProxyURL = *proxy
	c := client.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := c.Fetch(ctx, *method, flag.Arg(0), nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d %s\n", resp.Status, resp.Reason)
	resp.Headers.Range(func(name, value string) {
		fmt.Printf("%s: %s\n", name, value)
	})
	fmt.Println()

	if resp.Entity == nil {
		return
	}
	body, err := resp.Entity.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading body: %v\n", err)
		os.Exit(1)
	}
	defer body.Close()
	if _, err := io.Copy(os.Stdout, entity.AsReader(body)); err != nil {
		fmt.Fprintf(os.Stderr, "reading body: %v\n", err)
		os.Exit(1)
	}
}
