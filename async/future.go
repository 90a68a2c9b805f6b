// Package async implements the engine's future-like asynchronous
// primitive (spec.md design note 9: "Async<T>"), translated to
// idiomatic Go. It preserves the three properties the design note
// calls out:
//
//   - single-consumer subscribe: OnCompletion may be attached once;
//     a second attempt panics, the same discipline the driver relies
//     on to avoid two goroutines racing a connection's completion.
//   - synchronous fast path: Poll returns immediately, without
//     allocating a channel wait, when the result is already known.
//   - cooperative cancellation: Cancel completes the Future with
//     context.Canceled and runs the subscriber inline, exactly as a
//     normal completion would, so callers never need to special-case
//     cancellation delivery.
//
// Completion always runs the subscriber callback synchronously, on
// whichever goroutine called Complete/Cancel — there is no implicit
// goroutine hop. That matches §5's ordering guarantee ("callbacks on
// a connection fire in program order on that connection's thread")
// when every Complete call for a connection's futures originates from
// that connection's own goroutine.
package async

import (
	"context"
	"sync"
	"time"
)

// Future is a single-producer, single-consumer asynchronous result.
type Future[T any] struct {
	mu        sync.Mutex
	completed bool
	value     T
	err       error
	subscribe func(T, error)
	subscribed bool
}

// Promise is the producer side of a Future.
type Promise[T any] struct {
	f *Future[T]
}

// New returns a fresh Future paired with the Promise that completes it.
func New[T any]() (*Future[T], *Promise[T]) {
	f := &Future[T]{}
	return f, &Promise[T]{f: f}
}

// Completed returns an already-resolved Future, for callers on a fast
// path that already know the answer (e.g. a cache hit) and want to
// hand back the same type other callers await on.
func Completed[T any](value T, err error) *Future[T] {
	return &Future[T]{completed: true, value: value, err: err}
}

// Complete resolves the Future with (value, err). Completing an
// already-completed Future is a no-op: the first completion wins,
// mirroring the source's single-assignment promise semantics.
func (p *Promise[T]) Complete(value T, err error) {
	p.f.mu.Lock()
	if p.f.completed {
		p.f.mu.Unlock()
		return
	}
	p.f.completed = true
	p.f.value = value
	p.f.err = err
	cb := p.f.subscribe
	p.f.mu.Unlock()
	if cb != nil {
		cb(value, err)
	}
}

// Cancel completes the Future with ctx.Err() (context.Canceled if ctx
// is nil). Cancellation composes with Complete: whichever call
// arrives first wins.
func (p *Promise[T]) Cancel(ctx context.Context) {
	var zero T
	err := context.Canceled
	if ctx != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	p.Complete(zero, err)
}

// Poll is the immediate-completion fast path: it returns the result
// and ok=true without blocking or registering a callback if the
// Future is already resolved.
func (f *Future[T]) Poll() (value T, err error, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.completed {
		return value, nil, false
	}
	return f.value, f.err, true
}

// OnCompletion registers fn to run when the Future resolves, or runs
// it immediately (still synchronously, never via a new goroutine) if
// it already has. It may be called at most once per Future.
func (f *Future[T]) OnCompletion(fn func(T, error)) {
	f.mu.Lock()
	if f.subscribed {
		f.mu.Unlock()
		panic("async: OnCompletion called twice on the same Future")
	}
	f.subscribed = true
	if f.completed {
		value, err := f.value, f.err
		f.mu.Unlock()
		fn(value, err)
		return
	}
	f.subscribe = fn
	f.mu.Unlock()
}

// Map returns a Future that resolves to fn(value) once f resolves
// successfully, or propagates f's error unchanged.
func Map[T, U any](f *Future[T], fn func(T) U) *Future[U] {
	out, p := New[U]()
	f.OnCompletion(func(v T, err error) {
		if err != nil {
			var zero U
			p.Complete(zero, err)
			return
		}
		p.Complete(fn(v), nil)
	})
	return out
}

// Then chains f into a Future produced by fn, flattening the nesting
// (the monadic bind a Promise-based Async<T> needs for e.g. "read the
// head, then read the body").
func Then[T, U any](f *Future[T], fn func(T, error) *Future[U]) *Future[U] {
	out, p := New[U]()
	f.OnCompletion(func(v T, err error) {
		next := fn(v, err)
		next.OnCompletion(func(nv U, nerr error) {
			p.Complete(nv, nerr)
		})
	})
	return out
}

// Await blocks the calling goroutine until f resolves. It exists for
// boundary code (tests, cmd/ examples) that is not itself running on
// a connection's cooperative loop; production driver code should
// prefer OnCompletion/Poll so it never blocks a selector thread.
func (f *Future[T]) Await() (T, error) {
	done := make(chan struct{})
	var value T
	var err error
	f.OnCompletion(func(v T, e error) {
		value, err = v, e
		close(done)
	})
	<-done
	return value, err
}

// Timeout returns a Future that resolves with (zero,
// context.DeadlineExceeded) if f has not resolved within d, otherwise with f's
// own result. Both the timer and f's completion race to complete the
// output Promise exactly once.
func Timeout[T any](f *Future[T], d time.Duration) *Future[T] {
	out, p := New[T]()
	timer := time.AfterFunc(d, func() {
		var zero T
		p.Complete(zero, context.DeadlineExceeded)
	})
	f.OnCompletion(func(v T, err error) {
		timer.Stop()
		p.Complete(v, err)
	})
	return out
}
