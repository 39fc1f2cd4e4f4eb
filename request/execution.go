// Copyright 2021 The pipex Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"time"
)

// TimedOutKey is the Bag flag set by the timeout mechanism when an
// execution's cancellation signal fired because a timeout elapsed, as
// opposed to the caller cancelling.
var TimedOutKey = NewKey[bool]("timed-out")

// errTimeoutCause is the cancellation cause installed by NewExecution
// for the configured request timeout.
var errTimeoutCause = errors.New("pipex: request timeout")

// An Execution represents the state of a single logical request
// dispatch.
//
// One Execution is created per call to the client, and the same
// Execution is threaded through every middleware invocation and every
// retry of that call. It is never shared between calls.
//
// Middlewares may update Attempt (the retry middleware does so) and use
// the Bag to exchange data. The other exported fields should be treated
// as read-only.
type Execution struct {
	// ID uniquely identifies the execution.
	ID string

	// Start is the start time of the execution. It is assigned a
	// non-zero value when the execution starts, and remains constant
	// thereafter.
	Start time.Time

	// End is the end time of the execution. It contains the zero value
	// until the execution ends, when it is set to the current time.
	End time.Time

	// Attempt is the zero-based number of the current attempt. It is
	// zero on the initial attempt and is incremented by the retry
	// middleware immediately before each retry, so it never decreases.
	Attempt int

	bag Bag
	ctx context.Context
}

// NewExecution creates an execution whose cancellation signal derives
// from parent and, if timeout is positive, from the timeout. The
// returned cancel function must be called to release resources once the
// execution ends.
func NewExecution(parent context.Context, id string, timeout time.Duration) (*Execution, context.CancelFunc) {
	if parent == nil {
		panic(nilCtxMsg)
	}
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeoutCause(parent, timeout, errTimeoutCause)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &Execution{
		ID:  id,
		ctx: ctx,
	}, cancel
}

// Context returns the execution's cancellation signal. Every suspension
// point in the pipeline (transport send, refresh, retry wait) must
// observe it. The returned context is never nil.
func (e *Execution) Context() context.Context {
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

// Bag returns the execution's scratch space.
func (e *Execution) Bag() *Bag {
	return &e.bag
}

// Interruption returns nil if the execution's cancellation signal has
// not fired. Otherwise it returns an *Error of kind KindTimeout or
// KindCanceled describing the interruption of req, and for timeouts
// sets the TimedOutKey flag in the execution's bag.
//
// Only the execution's own timeout counts as a timeout. A deadline on
// the caller's context is the caller cancelling, and yields an error of
// kind KindCanceled wrapping context.DeadlineExceeded.
//
// Interruption must only be called from the goroutine dispatching the
// execution.
func (e *Execution) Interruption(req *Request) error {
	ctx := e.Context()
	if ctx.Err() == nil {
		return nil
	}
	cause := context.Cause(ctx)
	err := &Error{Kind: KindCanceled, Err: cause}
	if req != nil {
		err.Method = req.Method
		err.URL = req.URL
	}
	if errors.Is(cause, errTimeoutCause) {
		TimedOutKey.Set(&e.bag, true)
	}
	if e.TimedOut() {
		err.Kind = KindTimeout
	}
	return err
}

// TimedOut reports whether the timeout mechanism has flagged the
// execution as timed out.
func (e *Execution) TimedOut() bool {
	return TimedOutKey.Value(&e.bag)
}

// Duration returns the duration of the execution.
//
// If the execution has not yet started, the duration is zero. If the
// execution has ended, the duration returned is equal to End minus
// Start. Otherwise, it is equal to the current time minus Start.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started indicates whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended indicates whether the execution has ended.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}
