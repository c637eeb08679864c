package idb

import (
	"sync"
	"sync/atomic"
)

// Request is a pending store operation. It settles exactly once: either the
// success channel or the failure channel receives a single value, whichever
// the implementation reports first. Later reports are dropped.
type Request[T any] struct {
	success chan T
	failure chan error
	settled atomic.Bool
}

// NewRequest returns an unsettled request. Implementations settle it with
// Succeed or Fail; consumers select on Success and Failure.
func NewRequest[T any]() *Request[T] {
	return &Request[T]{
		success: make(chan T, 1),
		failure: make(chan error, 1),
	}
}

// FailedRequest returns a request that has already failed with err.
func FailedRequest[T any](err error) *Request[T] {
	r := NewRequest[T]()
	r.Fail(err)
	return r
}

// Success delivers the result when the request succeeds.
func (r *Request[T]) Success() <-chan T {
	return r.success
}

// Failure delivers the error when the request fails.
func (r *Request[T]) Failure() <-chan error {
	return r.failure
}

// Succeed settles the request with v. Returns false if it was already settled.
func (r *Request[T]) Succeed(v T) bool {
	if r.settled.Swap(true) {
		return false
	}
	r.success <- v
	return true
}

// Fail settles the request with err. Returns false if it was already settled.
func (r *Request[T]) Fail(err error) bool {
	if r.settled.Swap(true) {
		return false
	}
	r.failure <- err
	return true
}

// Settled reports whether the request has settled.
func (r *Request[T]) Settled() bool {
	return r.settled.Load()
}

// CursorRequest is a pending iteration. Unlike Request it succeeds many
// times: once when opened and once after every Cursor.Continue, delivering
// the new position or a nil Cursor at the end. A failure ends it.
//
// Producers must not deliver a position before the previous one was
// consumed and continued.
type CursorRequest struct {
	success chan Cursor
	failure chan error
	once    sync.Once
	done    chan struct{}
}

// NewCursorRequest returns an open cursor request.
func NewCursorRequest() *CursorRequest {
	return &CursorRequest{
		success: make(chan Cursor, 1),
		failure: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// FailedCursorRequest returns a cursor request that has already failed.
func FailedCursorRequest(err error) *CursorRequest {
	r := NewCursorRequest()
	r.Fail(err)
	return r
}

// Success delivers each cursor position, then nil at the end.
func (r *CursorRequest) Success() <-chan Cursor {
	return r.success
}

// Failure delivers the error that ended the iteration.
func (r *CursorRequest) Failure() <-chan error {
	return r.failure
}

// Deliver reports the next position, or nil at the end. Deliveries after a
// failure are dropped.
func (r *CursorRequest) Deliver(c Cursor) {
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case <-r.done:
	case r.success <- c:
	}
}

// Fail ends the iteration with err. Only the first failure is reported.
func (r *CursorRequest) Fail(err error) {
	r.once.Do(func() {
		close(r.done)
		r.failure <- err
	})
}
