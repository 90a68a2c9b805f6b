/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package entity

import (
	"sync"
	"time"

	"github.com/badu/bayou/errs"
)

// ETag is an HTTP entity tag (RFC 7232 §2.3).
type ETag struct {
	Value string
	Weak  bool
}

// Factory produces a fresh Body. For a sharable Entity it may be
// called more than once (e.g. once per redirect-retry); for a
// single-use Entity, calling it a second time is a caller bug.
type Factory func() (Body, error)

// Entity pairs body metadata with a Factory, per spec.md §3: "content
// type, content length as optional integer, content encoding, etag
// with weak flag, last-modified instant, expires instant" plus the
// body itself. ContentLength is nil when unknown (chunked or
// until-FIN framing).
type Entity struct {
	ContentType     string
	ContentLength   *int64
	ContentEncoding string
	ETag            *ETag
	LastModified    *time.Time
	Expires         *time.Time

	// Sharable reports whether factory can be invoked more than once
	// to produce equivalent content (e.g. a fixed in-memory buffer or
	// a re-openable file), per spec.md §3: "An entity is sharable iff
	// its body factory can be called repeatedly and produce equivalent
	// content; otherwise single-use."
	Sharable bool

	mu      sync.Mutex
	factory Factory
	opened  bool
}

// New builds an Entity around factory. Pass sharable=true only when
// factory is safe to call more than once.
func New(factory Factory, sharable bool) *Entity {
	return &Entity{factory: factory, Sharable: sharable}
}

// Empty returns a zero-length, sharable Entity.
func Empty() *Entity {
	return New(func() (Body, error) { return NopBody, nil }, true)
}

// Open invokes the factory and returns a fresh Body. For a
// single-use Entity, a second call returns errs.ErrBodyReadAfterClose
// — the entity was already consumed once, by design (spec.md §3: "A
// body is read exactly once").
func (e *Entity) Open() (Body, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.opened && !e.Sharable {
		return nil, errs.ErrBodyReadAfterClose
	}
	e.opened = true
	return e.factory()
}

// KnownLength reports the declared content length and whether one
// was declared at all (false for chunked or until-FIN entities).
func (e *Entity) KnownLength() (int64, bool) {
	if e.ContentLength == nil {
		return 0, false
	}
	return *e.ContentLength, true
}
